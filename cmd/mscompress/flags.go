package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/arloliu/mscompress/format"
	"github.com/arloliu/mscompress/internal/logger"
	"github.com/arloliu/mscompress/section"
)

var (
	configFile string
	logLevel   string
	logFormat  string
	debug      bool

	inputPath  string
	outputPath string
	workers    int64

	arrayCompression   string
	metaCompression    string
	zstdLevel          int64
	mzTransform        string
	mzTolerance        float64
	intensityTransform string
	intensityTolerance float64
)

func rootFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to a YAML config file",
			Value:       configPath(),
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (text, json)",
			Value:       "text",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func ioFlags(inputUsage string, outputUsage string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "input",
			Aliases:     []string{"i"},
			Usage:       inputUsage,
			Destination: &inputPath,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       outputUsage,
			Destination: &outputPath,
		},
		&cli.Int64Flag{
			Name:        "workers",
			Aliases:     []string{"j"},
			Usage:       "number of parallel workers (0 = number of CPUs)",
			Destination: &workers,
		},
	}
}

func formatFlags() []cli.Flag {
	df := section.DefaultDataFormat()

	return []cli.Flag{
		&cli.StringFlag{
			Name:        "array-compression",
			Usage:       "block compression of m/z and intensity arrays (zstd, s2, lz4, zlib, none)",
			Value:       strings.ToLower(df.ArrayCompression.String()),
			Destination: &arrayCompression,
		},
		&cli.StringFlag{
			Name:        "meta-compression",
			Usage:       "block compression of spectrum markup (zstd, s2, lz4, zlib, none)",
			Value:       strings.ToLower(df.MetaCompression.String()),
			Destination: &metaCompression,
		},
		&cli.Int64Flag{
			Name:        "zstd-level",
			Usage:       "zstd compression level (0 = codec default, up to 22)",
			Value:       int64(df.ZstdLevel),
			Destination: &zstdLevel,
		},
		&cli.StringFlag{
			Name:        "mz-transform",
			Usage:       "m/z transform (lossless, cast32, delta)",
			Value:       df.MzTransform.String(),
			Destination: &mzTransform,
		},
		&cli.Float64Flag{
			Name:        "mz-tolerance",
			Usage:       "absolute m/z error bound of lossy transforms",
			Destination: &mzTolerance,
		},
		&cli.StringFlag{
			Name:        "intensity-transform",
			Usage:       "intensity transform (lossless, cast32, log)",
			Value:       df.IntensityTransform.String(),
			Destination: &intensityTransform,
		},
		&cli.Float64Flag{
			Name:        "intensity-tolerance",
			Usage:       "relative intensity error bound of lossy transforms",
			Destination: &intensityTolerance,
		},
	}
}

// dataFormat builds the container format from the format flags.
func dataFormat() (section.DataFormat, error) {
	df := section.DefaultDataFormat()

	var err error
	if df.ArrayCompression, err = format.ParseCompressionType(arrayCompression); err != nil {
		return df, fmt.Errorf("--array-compression: %w", err)
	}
	if df.MetaCompression, err = format.ParseCompressionType(metaCompression); err != nil {
		return df, fmt.Errorf("--meta-compression: %w", err)
	}
	if zstdLevel < 0 || zstdLevel > 22 {
		return df, fmt.Errorf("--zstd-level: %d is outside 0-22", zstdLevel)
	}
	df.ZstdLevel = uint8(zstdLevel)

	if df.MzTransform, err = format.ParseTransformType(mzTransform); err != nil {
		return df, fmt.Errorf("--mz-transform: %w", err)
	}
	df.MzTolerance = mzTolerance
	if df.IntensityTransform, err = format.ParseTransformType(intensityTransform); err != nil {
		return df, fmt.Errorf("--intensity-transform: %w", err)
	}
	df.IntensityTolerance = intensityTolerance

	return df, df.Validate()
}

func newLogger(w io.Writer) (logger.Logger, error) {
	level := logger.ParseLevel(logLevel)
	if debug {
		level = logger.ParseLevel("debug")
	}

	switch strings.ToLower(logFormat) {
	case "text", "pretty", "":
		return logger.Text(w, level), nil
	case "json":
		return logger.JSON(w, level), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", logFormat)
	}
}

func newLoggerContext(ctx context.Context, w io.Writer) (context.Context, error) {
	l, err := newLogger(w)
	if err != nil {
		return ctx, err
	}

	return logger.WithContext(ctx, l), nil
}
