package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/mscompress"
)

// stdout and stderr are small seams for tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func describeCmd() *cli.Command {
	var (
		path    string
		asJSON  bool
		asYAML  bool
		spectra bool
	)

	return &cli.Command{
		Name:  "describe",
		Usage: "Summarize an mzML run or msz container",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "path to an mzML file or msz container",
				Destination: &path,
				Required:    true,
			},
			&cli.BoolFlag{Name: "json", Usage: "print the description as JSON", Destination: &asJSON},
			&cli.BoolFlag{Name: "yaml", Usage: "print the description as YAML", Destination: &asYAML},
			&cli.BoolFlag{Name: "spectra", Usage: "list the peak count of every spectrum", Destination: &spectra},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if asJSON && asYAML {
				return errors.New("--json and --yaml are mutually exclusive")
			}

			f, err := mscompress.Read(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer f.Close()

			d := f.Describe()
			switch {
			case asJSON:
				return writeJSON(stdout, d)
			case asYAML:
				return writeYAML(stdout, d)
			}

			if err := writeDescription(stdout, d); err != nil {
				return err
			}
			if spectra {
				return writeSpectra(stdout, f)
			}

			return nil
		},
	}
}

func writeJSON(w io.Writer, d mscompress.Description) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))

	return err
}

func writeYAML(w io.Writer, d mscompress.Description) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return err
	}

	return enc.Close()
}

func writeDescription(w io.Writer, d mscompress.Description) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row := func(k string, v any) {
		_, _ = fmt.Fprintf(tw, "%s:\t%v\n", k, v)
	}

	row("path", d.Path)
	row("kind", d.Kind)
	row("size", d.FileSize)
	row("spectra", d.SpectrumCount)
	row("namespace", d.Namespace)

	if s := d.Source; s != nil {
		declared := any(s.DeclaredCount)
		if s.DeclaredCount < 0 {
			declared = "absent"
		}
		row("declared count", declared)
		row("first spectrum offset", s.FirstOffset)
		row("last spectrum offset", s.LastOffset)
		row("param groups", s.ParamGroups)
	}

	if c := d.Container; c != nil {
		row("version", c.Version)
		row("source name", c.SourceName)
		row("source size", c.SourceSize)
		if c.FileSize > 0 {
			row("ratio", fmt.Sprintf("%.2f", float64(c.SourceSize)/float64(c.FileSize)))
		}
		row("array compression", c.Format.ArrayCompression)
		row("meta compression", c.Format.MetaCompression)
		row("zstd level", c.Format.ZstdLevel)
		row("source arrays", fmt.Sprintf("%s, m/z %s, intensity %s",
			c.Format.SourceCompression, c.Format.MzWidth, c.Format.IntensityWidth))
		row("m/z transform", transformLabel(c.Format.MzTransform, c.Format.MzTolerance))
		row("intensity transform", transformLabel(c.Format.IntensityTransform, c.Format.IntensityTolerance))
		row("spectrum blocks", fmt.Sprintf("%d..%d", c.FirstBlock, c.LastBlock))
		row("division", fmt.Sprintf("%d+%d", c.DivisionOffset, c.DivisionLength))
	}

	return tw.Flush()
}

func transformLabel(name string, tolerance float64) string {
	if tolerance == 0 {
		return name
	}

	return fmt.Sprintf("%s (tolerance %g)", name, tolerance)
}

func writeSpectra(w io.Writer, f mscompress.File) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ordinal\tpeaks")
	for i, sp := range f.Spectra() {
		n, err := sp.Size()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(tw, "%d\t%d\n", i, n)
	}

	return tw.Flush()
}
