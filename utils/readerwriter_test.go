package utils

import (
	"bytes"
	"testing"
)

type readerWriter struct {
	reader *Reader
	writer *Writer
}

func newReaderWriter() readerWriter {
	buffer := &bytes.Buffer{}
	return readerWriter{
		reader: NewReader(buffer),
		writer: NewWriter(buffer),
	}
}

func TestReaderWriter_fixedWidth(t *testing.T) {
	rw := newReaderWriter()
	rw.writer.WriteUint32(6)
	rw.writer.WriteUint64(19)
	rw.writer.WriteInt64(-5)
	rw.writer.WriteUint8(50)
	rw.writer.WriteBool(true)
	if err := rw.writer.Err(); err != nil {
		t.Fatal(err)
	}

	ui32, err := rw.reader.ReadUint32()
	if err != nil {
		t.Fatal(err)
	}
	if ui32 != 6 {
		t.Error("Error ReadUint32")
	}

	ui64, err := rw.reader.ReadUint64()
	if err != nil {
		t.Fatal(err)
	}
	if ui64 != 19 {
		t.Error("Error ReadUint64")
	}

	i64, err := rw.reader.ReadInt64()
	if err != nil {
		t.Fatal(err)
	}
	if i64 != -5 {
		t.Error("Error ReadInt64")
	}

	ui8, err := rw.reader.ReadUint8()
	if err != nil {
		t.Fatal(err)
	}
	if ui8 != 50 {
		t.Error("Error ReadUint8")
	}

	b, err := rw.reader.ReadBool()
	if err != nil {
		t.Fatal(err)
	}
	if !b {
		t.Error("Error ReadBool")
	}
}

func TestReaderWriter_varBytes(t *testing.T) {
	rw := newReaderWriter()
	rw.writer.WriteString("tx-001")
	rw.writer.WriteVarBytes([]byte{1, 2})

	s, err := rw.reader.ReadString(32)
	if err != nil {
		t.Fatal(err)
	}
	if s != "tx-001" {
		t.Errorf("expected tx-001, got %s", s)
	}

	v, err := rw.reader.ReadVarBytes(64)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(v, []byte{1, 2}) {
		t.Errorf("expected 0102, got %x", v)
	}
}

func TestReader_varBytesTooLong(t *testing.T) {
	rw := newReaderWriter()
	rw.writer.WriteVarBytes(make([]byte, 10))

	if _, err := rw.reader.ReadVarBytes(4); err == nil {
		t.Fatal("expected error reading over maximum length")
	}
}

func TestReader_invalidBool(t *testing.T) {
	rw := newReaderWriter()
	rw.writer.WriteUint8(2)

	if _, err := rw.reader.ReadBool(); err == nil {
		t.Fatal("expected error for bool byte 2")
	}
}

func TestReader_shortRead(t *testing.T) {
	rw := newReaderWriter()
	rw.writer.WriteUint8(1)

	if _, err := rw.reader.ReadUint64(); err == nil {
		t.Fatal("expected error for short read")
	}
}
