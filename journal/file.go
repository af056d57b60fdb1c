package journal

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/rlp"
)

const (
	journalFilePerm = 0600

	// maxFrameSize bounds a single entry frame when reading back, so a
	// corrupted length prefix cannot trigger a huge allocation.
	maxFrameSize = 1 << 20
)

// FileSink writes entries to a file as framed records:
//
//	[4 bytes length][4 bytes crc32(payload)][payload = rlp(Entry)]
type FileSink struct {
	file *os.File
	buf  *bufio.Writer
}

// NewFileSink opens (or truncates) path as a journal sink.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, journalFilePerm)
	if err != nil {
		return nil, fmt.Errorf("opening journal sink: %w", err)
	}
	return &FileSink{file: f, buf: bufio.NewWriter(f)}, nil
}

// WriteEntry implements Sink.
func (s *FileSink) WriteEntry(e Entry) error {
	payload, err := rlp.EncodeToBytes(&e)
	if err != nil {
		return fmt.Errorf("encoding journal entry: %w", err)
	}
	if len(payload) > maxFrameSize {
		return fmt.Errorf("%w: entry of %d bytes", ErrCorruptFrame, len(payload))
	}

	var header [8]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(len(payload)))
	binary.BigEndian.PutUint32(header[4:8], crc32.ChecksumIEEE(payload))

	if _, err := s.buf.Write(header[:]); err != nil {
		return err
	}
	if _, err := s.buf.Write(payload); err != nil {
		return err
	}
	// Flush per entry: the journal is an audit log, not a throughput path.
	return s.buf.Flush()
}

// Close flushes and closes the sink file.
func (s *FileSink) Close() error {
	if err := s.buf.Flush(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

// ReadFile replays a sink file, verifying each frame's checksum.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening journal file: %w", err)
	}
	defer f.Close()

	var entries []Entry
	r := bufio.NewReader(f)
	for {
		var header [8]byte
		if _, err := io.ReadFull(r, header[:]); err != nil {
			if err == io.EOF {
				return entries, nil
			}
			return nil, fmt.Errorf("%w: reading header: %v", ErrShortFrame, err)
		}

		length := binary.BigEndian.Uint32(header[0:4])
		sum := binary.BigEndian.Uint32(header[4:8])
		if length > maxFrameSize {
			return nil, fmt.Errorf("%w: frame of %d bytes", ErrCorruptFrame, length)
		}

		payload := make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("%w: reading payload: %v", ErrShortFrame, err)
		}
		if crc32.ChecksumIEEE(payload) != sum {
			return nil, fmt.Errorf("%w: checksum mismatch at entry %d", ErrCorruptFrame, len(entries))
		}

		var e Entry
		if err := rlp.DecodeBytes(payload, &e); err != nil {
			return nil, fmt.Errorf("%w: decoding entry: %v", ErrCorruptFrame, err)
		}
		entries = append(entries, e)
	}
}
