package treechunk

import (
	"github.com/dividuum/nbd-chunk-drive/sparse"
)

// ZeroWriter is the subset of Writer that WriteFromSections needs:
// an ordinary byte append and an elided zero-run append.
type ZeroWriter interface {
	Write(data []byte) error
	WriteZeros(n uint64) error
}

// sectionSource is satisfied by *sparse.Reader.
type sectionSource interface {
	Next() (sparse.Section, error)
}

// WriteFromSections drains src section by section, forwarding data
// sections to Write and hole sections to WriteZeros so that sparse
// regions never materialize as literal zero bytes on the wire.
func WriteFromSections(w ZeroWriter, src sectionSource, bufSize int) error {
	for {
		sec, err := src.Next()
		if err != nil {
			return err
		}
		if sec == nil {
			return nil
		}

		if sec.AllZero() {
			n, err := sec.Skip()
			if err != nil {
				return err
			}
			if err := w.WriteZeros(uint64(n)); err != nil {
				return err
			}
			continue
		}

		for {
			buf, err := sec.Read(bufSize)
			if err != nil {
				return err
			}
			if len(buf) == 0 {
				break
			}
			if err := w.Write(buf); err != nil {
				return err
			}
		}
	}
}
