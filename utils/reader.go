package utils

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Reader reads values written by Writer.
type Reader struct {
	reader io.Reader
	buffer []byte
}

// NewReader creates a reader
func NewReader(reader io.Reader) *Reader {
	return &Reader{
		reader: reader,
		buffer: make([]byte, 8),
	}
}

// ReadUint8 reads uint8
func (r *Reader) ReadUint8() (uint8, error) {
	buf := r.buffer[0:1]
	if _, err := io.ReadFull(r.reader, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadBool reads a single byte bool. Anything other than 0 or 1 is an error.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadUint8()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, errors.Errorf("invalid bool byte %d", b)
	}
}

// ReadUint32 reads uint32
func (r *Reader) ReadUint32() (uint32, error) {
	buf := r.buffer[0:4]
	if _, err := io.ReadFull(r.reader, buf); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// ReadUint64 reads uint64
func (r *Reader) ReadUint64() (uint64, error) {
	buf := r.buffer[0:8]
	if _, err := io.ReadFull(r.reader, buf); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// ReadInt64 reads int64
func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadBytes fills p completely.
func (r *Reader) ReadBytes(p []byte) error {
	_, err := io.ReadFull(r.reader, p)
	return err
}

// ReadVarBytes reads a length-prefixed byte string of at most max bytes.
func (r *Reader) ReadVarBytes(max uint32) ([]byte, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if n > max {
		return nil, errors.Errorf("length %d exceeds maximum %d", n, max)
	}
	out := make([]byte, n)
	if err := r.ReadBytes(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadString reads a length-prefixed string of at most max bytes.
func (r *Reader) ReadString(max uint32) (string, error) {
	b, err := r.ReadVarBytes(max)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
