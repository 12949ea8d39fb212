package container

import (
	"errors"

	"github.com/arloliu/mscompress/internal/logger"
	"github.com/arloliu/mscompress/internal/options"
)

// DefaultCacheSize is the number of decoded spectra a Reader keeps.
const DefaultCacheSize = 128

// WriterConfig holds Writer settings.
type WriterConfig struct {
	logger logger.Logger
	// bufferSize is the size of the buffered writer in front of the destination.
	bufferSize int
}

// WriterOption configures a Writer.
type WriterOption = options.Option[*WriterConfig]

func newWriterConfig() *WriterConfig {
	return &WriterConfig{
		logger:     logger.Nop(),
		bufferSize: 1 << 20,
	}
}

// WithWriterLogger sets the logger used for writer diagnostics.
func WithWriterLogger(l logger.Logger) WriterOption {
	return options.NoError(func(c *WriterConfig) {
		if l != nil {
			c.logger = l
		}
	})
}

// WithWriteBufferSize sets the write buffer size in bytes.
func WithWriteBufferSize(n int) WriterOption {
	return options.New(func(c *WriterConfig) error {
		if n < 4096 {
			return errors.New("write buffer size must be at least 4096 bytes")
		}
		c.bufferSize = n

		return nil
	})
}

// ReaderConfig holds Reader settings.
type ReaderConfig struct {
	logger    logger.Logger
	cacheSize int
	noMmap    bool
}

// ReaderOption configures a Reader.
type ReaderOption = options.Option[*ReaderConfig]

func newReaderConfig() *ReaderConfig {
	return &ReaderConfig{
		logger:    logger.Nop(),
		cacheSize: DefaultCacheSize,
	}
}

// WithCacheSize sets how many decoded spectra the reader caches. Zero disables
// the cache.
func WithCacheSize(n int) ReaderOption {
	return options.New(func(c *ReaderConfig) error {
		if n < 0 {
			return errors.New("cache size must not be negative")
		}
		c.cacheSize = n

		return nil
	})
}

// WithReaderLogger sets the logger used for reader diagnostics.
func WithReaderLogger(l logger.Logger) ReaderOption {
	return options.NoError(func(c *ReaderConfig) {
		if l != nil {
			c.logger = l
		}
	})
}

// WithoutMmap makes Open read through the file instead of mapping it.
func WithoutMmap() ReaderOption {
	return options.NoError(func(c *ReaderConfig) {
		c.noMmap = true
	})
}
