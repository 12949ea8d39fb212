// Package mzmltest generates synthetic mzML documents for tests.
package mzmltest

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/arloliu/mscompress/encoding"
	"github.com/arloliu/mscompress/format"
)

// Namespace is the default namespace written on the mzML element.
const Namespace = "http://psi.hupo.org/ms/mzml"

// Spectrum holds the arrays written for one spectrum, at source precision.
type Spectrum struct {
	ID        string
	Mz        []float64
	Intensity []float64
}

// Options controls the generated document.
type Options struct {
	Spectra int
	// Peaks is the base peak count; spectrum i has Peaks + i%3 peaks.
	Peaks          int
	MzWidth        format.ElementWidth
	IntensityWidth format.ElementWidth
	Compression    format.SourceCompression
	// ParamGroups declares the intensity array through a referenceableParamGroupRef.
	ParamGroups bool
	// ExtraArray adds a third, non m/z and non intensity, array to every spectrum.
	ExtraArray bool
	// Indexed wraps the document in indexedmzML with an offset index.
	Indexed bool
	// Chromatogram appends a chromatogram list after the spectra.
	Chromatogram bool
	// EmptySpectrum makes the first spectrum zero-length.
	EmptySpectrum bool
	Seed          uint64
}

// DefaultOptions returns a small document with zlib-compressed 64-bit m/z and
// 32-bit intensity arrays.
func DefaultOptions() Options {
	return Options{
		Spectra:        12,
		Peaks:          40,
		MzWidth:        format.Width64,
		IntensityWidth: format.Width32,
		Compression:    format.SourceZlib,
		Seed:           1,
	}
}

// Generate builds a document and returns it with the arrays it contains.
func Generate(opts Options) ([]byte, []Spectrum) {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	var buf bytes.Buffer

	if opts.Indexed {
		buf.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
		fmt.Fprintf(&buf, `<indexedmzML xmlns="%s" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`+"\n", Namespace)
	} else {
		buf.WriteString(`<?xml version="1.0" encoding="ISO-8859-1"?>` + "\n")
	}
	fmt.Fprintf(&buf, `  <mzML xmlns="%s" id="synthetic" version="1.1.0">`+"\n", Namespace)
	buf.WriteString(`    <!-- generated for tests -->` + "\n")
	buf.WriteString(`    <cvList count="1"><cv id="MS" fullName="Proteomics Standards Initiative Mass Spectrometry Ontology" URI="https://purl.obolibrary.org/obo/ms.obo"/></cvList>` + "\n")
	if opts.ParamGroups {
		buf.WriteString(`    <referenceableParamGroupList count="1">` + "\n")
		buf.WriteString(`      <referenceableParamGroup id="intensityParams">` + "\n")
		fmt.Fprintf(&buf, `        <cvParam cvRef="MS" accession="%s" name="%s"/>`+"\n", widthAccession(opts.IntensityWidth), widthName(opts.IntensityWidth))
		fmt.Fprintf(&buf, `        <cvParam cvRef="MS" accession="%s" name="%s"/>`+"\n", compressionAccession(opts.Compression), compressionName(opts.Compression))
		buf.WriteString(`        <cvParam cvRef="MS" accession="MS:1000515" name="intensity array" unitCvRef="MS" unitAccession="MS:1000131" unitName="number of detector counts"/>` + "\n")
		buf.WriteString(`      </referenceableParamGroup>` + "\n")
		buf.WriteString(`    </referenceableParamGroupList>` + "\n")
	}
	buf.WriteString(`    <run id="run1" defaultInstrumentConfigurationRef="IC1">` + "\n")
	fmt.Fprintf(&buf, `      <spectrumList count="%d" defaultDataProcessingRef="dp">`+"\n", opts.Spectra)

	spectra := make([]Spectrum, opts.Spectra)
	offsets := make([]int, opts.Spectra)
	for i := range spectra {
		n := opts.Peaks + i%3
		if opts.EmptySpectrum && i == 0 {
			n = 0
		}
		sp := Spectrum{
			ID:        fmt.Sprintf("scan=%d", i+1),
			Mz:        make([]float64, n),
			Intensity: make([]float64, n),
		}
		mz := 100 + rng.Float64()*10
		for j := range n {
			mz += 0.01 + rng.Float64()*5
			sp.Mz[j] = roundTo(mz, opts.MzWidth)
			inten := rng.ExpFloat64() * 1e4
			if j%7 == 3 {
				inten = 0
			}
			sp.Intensity[j] = roundTo(inten, opts.IntensityWidth)
		}
		spectra[i] = sp

		offsets[i] = buf.Len() + len("        ")
		writeSpectrum(&buf, i, sp, opts)
	}

	buf.WriteString(`      </spectrumList>` + "\n")
	if opts.Chromatogram {
		times := []float64{0.5, 1.0, 1.5}
		text := mustEncode(times, encoding.Descriptor{Compression: opts.Compression, Width: format.Width64})
		buf.WriteString(`      <chromatogramList count="1" defaultDataProcessingRef="dp">` + "\n")
		buf.WriteString(`        <chromatogram index="0" id="TIC" defaultArrayLength="3">` + "\n")
		fmt.Fprintf(&buf, `          <binaryDataArrayList count="1"><binaryDataArray encodedLength="%d">`, len(text))
		fmt.Fprintf(&buf, `<cvParam cvRef="MS" accession="%s" name="%s"/>`, compressionAccession(opts.Compression), compressionName(opts.Compression))
		buf.WriteString(`<cvParam cvRef="MS" accession="MS:1000523" name="64-bit float"/>`)
		buf.WriteString(`<cvParam cvRef="MS" accession="MS:1000595" name="time array" unitCvRef="UO" unitAccession="UO:0000031" unitName="minute"/>`)
		fmt.Fprintf(&buf, `<binary>%s</binary></binaryDataArray></binaryDataArrayList>`+"\n", text)
		buf.WriteString(`        </chromatogram>` + "\n")
		buf.WriteString(`      </chromatogramList>` + "\n")
	}
	buf.WriteString(`    </run>` + "\n")
	buf.WriteString(`  </mzML>` + "\n")

	if opts.Indexed {
		indexOffset := buf.Len()
		buf.WriteString(`  <indexList count="1">` + "\n")
		buf.WriteString(`    <index name="spectrum">` + "\n")
		for i, off := range offsets {
			fmt.Fprintf(&buf, `      <offset idRef="%s">%d</offset>`+"\n", spectra[i].ID, off)
		}
		buf.WriteString(`    </index>` + "\n")
		buf.WriteString(`  </indexList>` + "\n")
		fmt.Fprintf(&buf, `  <indexListOffset>%d</indexListOffset>`+"\n", indexOffset)
		buf.WriteString(`  <fileChecksum>0000000000000000000000000000000000000000</fileChecksum>` + "\n")
		buf.WriteString(`</indexedmzML>` + "\n")
	}

	return buf.Bytes(), spectra
}

func writeSpectrum(buf *bytes.Buffer, i int, sp Spectrum, opts Options) {
	arrays := 2
	if opts.ExtraArray {
		arrays = 3
	}

	fmt.Fprintf(buf, `        <spectrum index="%d" id="%s" defaultArrayLength="%d">`+"\n", i, sp.ID, len(sp.Mz))
	buf.WriteString(`          <cvParam cvRef="MS" accession="MS:1000511" name="ms level" value="1"/>` + "\n")
	fmt.Fprintf(buf, `          <scanList count="1"><scan><cvParam cvRef="MS" accession="MS:1000016" name="scan start time" value="%.4f" unitCvRef="UO" unitAccession="UO:0000031" unitName="minute"/></scan></scanList>`+"\n", float64(i)*0.5)
	fmt.Fprintf(buf, `          <binaryDataArrayList count="%d">`+"\n", arrays)

	mzText := mustEncode(sp.Mz, encoding.Descriptor{Compression: opts.Compression, Width: opts.MzWidth})
	fmt.Fprintf(buf, `            <binaryDataArray encodedLength="%d">`+"\n", len(mzText))
	fmt.Fprintf(buf, `              <cvParam cvRef="MS" accession="%s" name="%s"/>`+"\n", widthAccession(opts.MzWidth), widthName(opts.MzWidth))
	fmt.Fprintf(buf, `              <cvParam cvRef="MS" accession="%s" name="%s"/>`+"\n", compressionAccession(opts.Compression), compressionName(opts.Compression))
	buf.WriteString(`              <cvParam cvRef="MS" accession="MS:1000514" name="m/z array" unitCvRef="MS" unitAccession="MS:1000040" unitName="m/z"/>` + "\n")
	fmt.Fprintf(buf, `              <binary>%s</binary>`+"\n", mzText)
	buf.WriteString(`            </binaryDataArray>` + "\n")

	intText := mustEncode(sp.Intensity, encoding.Descriptor{Compression: opts.Compression, Width: opts.IntensityWidth})
	fmt.Fprintf(buf, `            <binaryDataArray encodedLength="%d">`+"\n", len(intText))
	if opts.ParamGroups {
		buf.WriteString(`              <referenceableParamGroupRef ref="intensityParams"/>` + "\n")
	} else {
		fmt.Fprintf(buf, `              <cvParam cvRef="MS" accession="%s" name="%s"/>`+"\n", widthAccession(opts.IntensityWidth), widthName(opts.IntensityWidth))
		fmt.Fprintf(buf, `              <cvParam cvRef="MS" accession="%s" name="%s"/>`+"\n", compressionAccession(opts.Compression), compressionName(opts.Compression))
		buf.WriteString(`              <cvParam cvRef="MS" accession="MS:1000515" name="intensity array" unitCvRef="MS" unitAccession="MS:1000131" unitName="number of detector counts"/>` + "\n")
	}
	fmt.Fprintf(buf, `              <binary>%s</binary>`+"\n", intText)
	buf.WriteString(`            </binaryDataArray>` + "\n")

	if opts.ExtraArray {
		extra := make([]float64, len(sp.Mz))
		for j := range extra {
			extra[j] = float64(j % 4)
		}
		text := mustEncode(extra, encoding.Descriptor{Compression: format.SourceNone, Width: format.Width32})
		fmt.Fprintf(buf, `            <binaryDataArray arrayLength="%d" encodedLength="%d">`+"\n", len(extra), len(text))
		buf.WriteString(`              <cvParam cvRef="MS" accession="MS:1000521" name="32-bit float"/>` + "\n")
		buf.WriteString(`              <cvParam cvRef="MS" accession="MS:1000576" name="no compression"/>` + "\n")
		buf.WriteString(`              <cvParam cvRef="MS" accession="MS:1000516" name="charge array"/>` + "\n")
		fmt.Fprintf(buf, `              <binary>%s</binary>`+"\n", text)
		buf.WriteString(`            </binaryDataArray>` + "\n")
	}

	buf.WriteString(`          </binaryDataArrayList>` + "\n")
	buf.WriteString(`        </spectrum>` + "\n")
}

// WriteFile generates a document into dir and returns its path.
func WriteFile(t testing.TB, dir string, name string, opts Options) (string, []Spectrum) {
	t.Helper()

	data, spectra := Generate(opts)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}

	return path, spectra
}

func mustEncode(values []float64, desc encoding.Descriptor) []byte {
	text, err := encoding.EncodeArray(nil, values, desc)
	if err != nil {
		panic(err)
	}

	return text
}

func roundTo(v float64, width format.ElementWidth) float64 {
	if width == format.Width32 {
		return float64(float32(v))
	}

	return v
}

func widthAccession(w format.ElementWidth) string {
	if w == format.Width32 {
		return "MS:1000521"
	}

	return "MS:1000523"
}

func widthName(w format.ElementWidth) string {
	if w == format.Width32 {
		return "32-bit float"
	}

	return "64-bit float"
}

func compressionAccession(c format.SourceCompression) string {
	if c == format.SourceZlib {
		return "MS:1000574"
	}

	return "MS:1000576"
}

func compressionName(c format.SourceCompression) string {
	if c == format.SourceZlib {
		return "zlib compression"
	}

	return "no compression"
}
