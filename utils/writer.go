package utils

import (
	"encoding/binary"
	"io"
)

// Writer writes little-endian fixed-width values and length-prefixed byte
// strings. The first write error is kept and every later write is a no-op.
type Writer struct {
	writer io.Writer
	buffer []byte
	err    error
}

// NewWriter creates a writer
func NewWriter(writer io.Writer) *Writer {
	return &Writer{
		writer: writer,
		buffer: make([]byte, 8),
	}
}

// Err returns the first error hit while writing.
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) write(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.writer.Write(b)
}

// WriteUint8 writes uint8
func (w *Writer) WriteUint8(v uint8) {
	buf := w.buffer[0:1]
	buf[0] = v
	w.write(buf)
}

// WriteBool writes a bool as a single 0 or 1 byte.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}
}

// WriteUint32 writes uint32
func (w *Writer) WriteUint32(v uint32) {
	buf := w.buffer[0:4]
	binary.LittleEndian.PutUint32(buf, v)
	w.write(buf)
}

// WriteUint64 writes uint64
func (w *Writer) WriteUint64(v uint64) {
	buf := w.buffer[0:8]
	binary.LittleEndian.PutUint64(buf, v)
	w.write(buf)
}

// WriteInt64 writes int64
func (w *Writer) WriteInt64(v int64) {
	w.WriteUint64(uint64(v))
}

// WriteBytes writes []byte with no length prefix.
func (w *Writer) WriteBytes(v []byte) {
	w.write(v)
}

// WriteVarBytes writes a uint32 length followed by the bytes.
func (w *Writer) WriteVarBytes(v []byte) {
	w.WriteUint32(uint32(len(v)))
	w.write(v)
}

// WriteString writes a length-prefixed string.
func (w *Writer) WriteString(s string) {
	w.WriteVarBytes([]byte(s))
}
