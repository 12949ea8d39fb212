package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/arloliu/mscompress/convert"
	"github.com/arloliu/mscompress/format"
	"github.com/arloliu/mscompress/internal/logger"
)

func decompressCmd() *cli.Command {
	return &cli.Command{
		Name:  "decompress",
		Usage: "Restore an msz container into an mzML run",
		Flags: ioFlags("path to the msz container", "path of the mzML file (default: input with .mzML)"),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyWorkersConfig(cmd, fileConfig)

			out, err := resolveOutput(inputPath, outputPath, format.KindSource)
			if err != nil {
				return err
			}

			stats, err := convert.DecompressFile(ctx, inputPath, out, conversionOptions()...)
			if err != nil {
				return fmt.Errorf("decompress %s: %w", inputPath, err)
			}

			log.Info("decompressed",
				"input", inputPath,
				"output", out,
				"spectra", stats.Spectra,
				"bytes", stats.SourceBytes,
				"checksum", fmt.Sprintf("%08x", stats.Checksum),
				"duration", stats.Duration)

			return nil
		},
	}
}
