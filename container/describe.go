package container

import "fmt"

// FormatDescription is the DataFormat in printable form.
type FormatDescription struct {
	ArrayCompression   string  `json:"array_compression" yaml:"array_compression"`
	MetaCompression    string  `json:"meta_compression" yaml:"meta_compression"`
	ZstdLevel          int     `json:"zstd_level" yaml:"zstd_level"`
	SourceCompression  string  `json:"source_compression" yaml:"source_compression"`
	MzWidth            string  `json:"mz_width" yaml:"mz_width"`
	IntensityWidth     string  `json:"intensity_width" yaml:"intensity_width"`
	MzTransform        string  `json:"mz_transform" yaml:"mz_transform"`
	MzTolerance        float64 `json:"mz_tolerance,omitempty" yaml:"mz_tolerance,omitempty"`
	IntensityTransform string  `json:"intensity_transform" yaml:"intensity_transform"`
	IntensityTolerance float64 `json:"intensity_tolerance,omitempty" yaml:"intensity_tolerance,omitempty"`
	Lossy              bool    `json:"lossy" yaml:"lossy"`
}

// Description summarizes a container from its header and Division alone.
type Description struct {
	Path          string            `json:"path" yaml:"path"`
	FileSize      int64             `json:"file_size" yaml:"file_size"`
	Version       string            `json:"version" yaml:"version"`
	Format        FormatDescription `json:"format" yaml:"format"`
	SpectrumCount int               `json:"spectrum_count" yaml:"spectrum_count"`
	// FirstBlock and LastBlock bound the spectrum blocks; both are zero for
	// a container without spectra.
	FirstBlock     uint64 `json:"first_block_offset" yaml:"first_block_offset"`
	LastBlock      uint64 `json:"last_block_offset" yaml:"last_block_offset"`
	DivisionOffset uint64 `json:"division_offset" yaml:"division_offset"`
	DivisionLength uint64 `json:"division_length" yaml:"division_length"`
	Namespace      string `json:"namespace" yaml:"namespace"`
	SourceName     string `json:"source_name" yaml:"source_name"`
	SourceSize     uint64 `json:"source_size" yaml:"source_size"`
}

// Describe summarizes the container without reading any spectrum block.
func (r *Reader) Describe() Description {
	h := r.header
	df := h.Format

	d := Description{
		Path:     r.path,
		FileSize: r.size,
		Version:  versionString(h.VersionMajor, h.VersionMinor),
		Format: FormatDescription{
			ArrayCompression:   df.ArrayCompression.String(),
			MetaCompression:    df.MetaCompression.String(),
			ZstdLevel:          int(df.ZstdLevel),
			SourceCompression:  df.SourceCompression.String(),
			MzWidth:            df.MzWidth.String(),
			IntensityWidth:     df.IntensityWidth.String(),
			MzTransform:        df.MzTransform.String(),
			MzTolerance:        df.MzTolerance,
			IntensityTransform: df.IntensityTransform.String(),
			IntensityTolerance: df.IntensityTolerance,
			Lossy:              h.IsLossy(),
		},
		SpectrumCount:  len(r.div.Entries),
		DivisionOffset: h.DivisionOffset,
		DivisionLength: h.DivisionLength,
		Namespace:      r.div.Namespace,
		SourceName:     r.div.SourceName,
		SourceSize:     r.div.SourceSize,
	}
	if n := len(r.div.Entries); n > 0 {
		d.FirstBlock = r.div.Entries[0].Meta.Offset
		d.LastBlock = r.div.Entries[n-1].Intensity.Offset
	}

	return d
}

func versionString(major uint8, minor uint8) string {
	return fmt.Sprintf("%d.%d", major, minor)
}
