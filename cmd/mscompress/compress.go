package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/arloliu/mscompress/convert"
	"github.com/arloliu/mscompress/format"
	"github.com/arloliu/mscompress/internal/logger"
)

func compressCmd() *cli.Command {
	return &cli.Command{
		Name:  "compress",
		Usage: "Convert an mzML run into an msz container",
		Flags: append(ioFlags("path to the mzML file", "path of the msz container (default: input with .msz)"),
			formatFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyWorkersConfig(cmd, fileConfig)
			applyFormatConfig(cmd, fileConfig)

			df, err := dataFormat()
			if err != nil {
				return err
			}
			out, err := resolveOutput(inputPath, outputPath, format.KindContainer)
			if err != nil {
				return err
			}

			stats, err := convert.CompressFile(ctx, inputPath, out, conversionOptions(convert.WithFormat(df))...)
			if err != nil {
				return fmt.Errorf("compress %s: %w", inputPath, err)
			}

			log.Info("compressed",
				"input", inputPath,
				"output", out,
				"spectra", stats.Spectra,
				"ratio", fmt.Sprintf("%.2f", stats.Ratio()),
				"duration", stats.Duration)

			return nil
		},
	}
}

func conversionOptions(opts ...convert.Option) []convert.Option {
	if workers > 0 {
		opts = append(opts, convert.WithWorkers(int(workers)))
	}

	return opts
}
