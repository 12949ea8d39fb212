package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arloliu/mscompress/format"
)

// resolveOutput returns the destination path for a conversion of in into a
// file of the given kind. An explicit output wins; otherwise the input's
// extension is swapped next to the input.
func resolveOutput(in string, outFlag string, kind format.FileKind) (string, error) {
	outFlag = strings.TrimSpace(outFlag)
	if outFlag != "" {
		out := filepath.Clean(outFlag)
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return "", err
		}

		return out, nil
	}

	base := filepath.Base(filepath.Clean(in))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("invalid input path: %q", in)
	}

	ext := ".msz"
	if kind == format.KindSource {
		ext = ".mzML"
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	out := filepath.Join(filepath.Dir(in), stem+ext)
	if out == filepath.Clean(in) {
		return "", fmt.Errorf("output would overwrite input %q; use --output", in)
	}

	return out, nil
}
