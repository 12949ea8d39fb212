package section

import (
	"fmt"

	"github.com/arloliu/mscompress/errs"
)

// Footer is the last 16 bytes of a finalized container: the Division offset
// followed by FooterMarker.
type Footer struct {
	DivisionOffset uint64
}

// Bytes serializes the footer.
func (f Footer) Bytes() []byte {
	b := make([]byte, 0, FooterSize)
	b = engine.AppendUint64(b, f.DivisionOffset)
	b = engine.AppendUint64(b, FooterMarker)

	return b
}

// ParseFooter parses the footer from the last FooterSize bytes of data.
func ParseFooter(data []byte) (Footer, error) {
	if len(data) < FooterSize {
		return Footer{}, fmt.Errorf("%w: file too short for a footer", errs.ErrContainerIntegrity)
	}

	tail := data[len(data)-FooterSize:]
	if marker := engine.Uint64(tail[8:16]); marker != FooterMarker {
		return Footer{}, fmt.Errorf("%w: missing footer marker, container was not finalized", errs.ErrContainerIntegrity)
	}

	return Footer{DivisionOffset: engine.Uint64(tail[0:8])}, nil
}
