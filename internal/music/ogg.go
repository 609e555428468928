package music

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

var errBadOggPage = errors.New("malformed ogg page")

const oggHeaderLen = 23 // bytes following the "OggS" capture pattern

// oggOpusReader yields raw opus packets from an ogg/opus byte stream. Packets
// spanning page boundaries are reassembled; OpusHead and OpusTags are skipped.
type oggOpusReader struct {
	r       *bufio.Reader
	pending [][]byte
	partial []byte
}

func newOggOpusReader(r io.Reader) *oggOpusReader {
	return &oggOpusReader{r: bufio.NewReaderSize(r, 65536)}
}

// ReadPacket returns the next audio packet or io.EOF at end of stream.
func (o *oggOpusReader) ReadPacket() ([]byte, error) {
	for len(o.pending) == 0 {
		if err := o.readPage(); err != nil {
			return nil, err
		}
	}
	packet := o.pending[0]
	o.pending = o.pending[1:]
	return packet, nil
}

func (o *oggOpusReader) readPage() error {
	if err := o.syncToPage(); err != nil {
		return err
	}

	header := make([]byte, oggHeaderLen)
	if _, err := io.ReadFull(o.r, header); err != nil {
		return unexpectedEOF(err)
	}
	if header[0] != 0 {
		return errBadOggPage
	}

	headerType := header[1]
	segments := make([]byte, header[22])
	if _, err := io.ReadFull(o.r, segments); err != nil {
		return unexpectedEOF(err)
	}

	size := 0
	for _, seg := range segments {
		size += int(seg)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(o.r, data); err != nil {
		return unexpectedEOF(err)
	}

	// A page that does not continue a packet discards any stale fragment.
	if headerType&0x01 == 0 {
		o.partial = o.partial[:0]
	}

	offset := 0
	for _, seg := range segments {
		n := int(seg)
		o.partial = append(o.partial, data[offset:offset+n]...)
		offset += n
		if seg < 255 {
			o.emit()
		}
	}
	return nil
}

func (o *oggOpusReader) emit() {
	if len(o.partial) == 0 {
		return
	}
	packet := bytes.Clone(o.partial)
	o.partial = o.partial[:0]
	if isOpusHeaderPacket(packet) {
		return
	}
	o.pending = append(o.pending, packet)
}

func (o *oggOpusReader) syncToPage() error {
	for {
		b, err := o.r.ReadByte()
		if err != nil {
			return err
		}
		if b != 'O' {
			continue
		}
		peek, err := o.r.Peek(3)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			return err
		}
		if string(peek) == "ggS" {
			_, _ = o.r.Discard(3)
			return nil
		}
	}
}

func isOpusHeaderPacket(packet []byte) bool {
	if len(packet) < 8 {
		return false
	}
	magic := string(packet[:8])
	return magic == "OpusHead" || magic == "OpusTags"
}

func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
