package convert

import (
	"errors"
	"runtime"

	"github.com/arloliu/mscompress/internal/logger"
	"github.com/arloliu/mscompress/internal/options"
	"github.com/arloliu/mscompress/section"
)

// Config holds conversion settings.
type Config struct {
	workers    int
	format     section.DataFormat
	logger     logger.Logger
	sourceName string
	readBuffer int
}

// Option configures a conversion.
type Option = options.Option[*Config]

func newConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		workers: runtime.NumCPU(),
		format:  section.DefaultDataFormat(),
	}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return cfg, nil
}

// WithWorkers sets the number of encoding workers. The default is the number
// of CPUs.
func WithWorkers(n int) Option {
	return options.New(func(c *Config) error {
		if n < 1 {
			return errors.New("worker count must be positive")
		}
		c.workers = n

		return nil
	})
}

// WithFormat sets the container DataFormat used by compression.
func WithFormat(df section.DataFormat) Option {
	return options.New(func(c *Config) error {
		if err := df.Validate(); err != nil {
			return err
		}
		c.format = df

		return nil
	})
}

// WithLogger sets the logger. Without it the logger stored in the context is
// used.
func WithLogger(l logger.Logger) Option {
	return options.NoError(func(c *Config) {
		c.logger = l
	})
}

// WithSourceName sets the source name recorded in the container. CompressFile
// defaults it to the base name of the source path.
func WithSourceName(name string) Option {
	return options.NoError(func(c *Config) {
		c.sourceName = name
	})
}

// WithReadBufferSize sets the source read buffer size.
func WithReadBufferSize(n int) Option {
	return options.NoError(func(c *Config) {
		c.readBuffer = n
	})
}
