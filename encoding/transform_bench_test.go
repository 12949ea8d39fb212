package encoding

import (
	"testing"

	"github.com/arloliu/mscompress/endian"
	"github.com/arloliu/mscompress/format"
)

type transformBenchCase struct {
	name string
	tr   Transform
	data []float64
}

var benchmarkBytesSink []byte

func transformBenchCases() []transformBenchCase {
	mz := mzSeries(2000)
	intensity := intensitySeries(2000)

	return []transformBenchCase{
		{"mz_lossless", NewTransform(format.RoleMz, format.TransformLossless, 0), mz},
		{"mz_cast32", NewTransform(format.RoleMz, format.TransformCast32, 1e-3), mz},
		{"mz_delta", NewTransform(format.RoleMz, format.TransformDelta, 1e-4), mz},
		{"intensity_log", NewTransform(format.RoleIntensity, format.TransformLog, 1e-3), intensity},
	}
}

func BenchmarkTransformEncode(b *testing.B) {
	for _, tc := range transformBenchCases() {
		b.Run(tc.name, func(b *testing.B) {
			packed, err := endian.AppendFloats(le, nil, tc.data, format.Width64)
			if err != nil {
				b.Fatal(err)
			}

			var payload []byte
			b.SetBytes(int64(len(packed)))
			b.ReportAllocs()
			b.ResetTimer()

			for b.Loop() {
				payload, err = tc.tr.Encode(payload[:0], packed, format.Width64)
				if err != nil {
					b.Fatal(err)
				}
			}

			b.ReportMetric(float64(len(payload))/float64(len(tc.data)), "bytes/value")
			benchmarkBytesSink = payload
		})
	}
}

func BenchmarkTransformDecodeRaw(b *testing.B) {
	for _, tc := range transformBenchCases() {
		b.Run(tc.name, func(b *testing.B) {
			packed, err := endian.AppendFloats(le, nil, tc.data, format.Width64)
			if err != nil {
				b.Fatal(err)
			}
			payload, err := tc.tr.Encode(nil, packed, format.Width64)
			if err != nil {
				b.Fatal(err)
			}

			var raw []byte
			b.SetBytes(int64(len(packed)))
			b.ReportAllocs()
			b.ResetTimer()

			for b.Loop() {
				raw, err = tc.tr.DecodeRaw(raw[:0], payload, format.Width64)
				if err != nil {
					b.Fatal(err)
				}
			}

			benchmarkBytesSink = raw
		})
	}
}
