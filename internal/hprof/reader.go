package hprof

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// reader provides buffered, big-endian reading of HPROF binary data.
type reader struct {
	r       *bufio.Reader
	idSize  int
	byteBuf []byte
}

func newReader(r io.Reader) *reader {
	return &reader{
		r:       bufio.NewReaderSize(r, 256*1024),
		idSize:  8,
		byteBuf: make([]byte, 8),
	}
}

func (r *reader) SetIDSize(size int) { r.idSize = size }
func (r *reader) IDSize() int        { return r.idSize }

func (r *reader) ReadHeader() (*Header, error) {
	format, err := r.readNullTerminatedString()
	if err != nil {
		return nil, fmt.Errorf("read format string: %w", err)
	}

	idSize, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("read id size: %w", err)
	}
	r.idSize = int(idSize)

	timestamp, err := r.ReadUint64()
	if err != nil {
		return nil, fmt.Errorf("read timestamp: %w", err)
	}

	return &Header{
		Format:    format,
		IDSize:    int(idSize),
		Timestamp: time.UnixMilli(int64(timestamp)),
	}, nil
}

func (r *reader) ReadRecordHeader() (tag RecordTag, timeDelta uint32, length uint32, err error) {
	tagByte, err := r.ReadByte()
	if err != nil {
		return 0, 0, 0, err
	}
	tag = RecordTag(tagByte)

	timeDelta, err = r.ReadUint32()
	if err != nil {
		return 0, 0, 0, err
	}

	length, err = r.ReadUint32()
	if err != nil {
		return 0, 0, 0, err
	}

	return tag, timeDelta, length, nil
}

func (r *reader) ReadByte() (byte, error) {
	return r.r.ReadByte()
}

func (r *reader) ReadBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	_, err := io.ReadFull(r.r, buf)
	return buf, err
}

func (r *reader) ReadUint16() (uint16, error) {
	if _, err := io.ReadFull(r.r, r.byteBuf[:2]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(r.byteBuf[:2]), nil
}

func (r *reader) ReadUint32() (uint32, error) {
	if _, err := io.ReadFull(r.r, r.byteBuf[:4]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(r.byteBuf[:4]), nil
}

func (r *reader) ReadUint64() (uint64, error) {
	if _, err := io.ReadFull(r.r, r.byteBuf[:8]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(r.byteBuf[:8]), nil
}

func (r *reader) ReadID() (uint64, error) {
	if r.idSize == 4 {
		v, err := r.ReadUint32()
		return uint64(v), err
	}
	return r.ReadUint64()
}

func (r *reader) Skip(n int64) error {
	_, err := r.r.Discard(int(n))
	return err
}

func (r *reader) readNullTerminatedString() (string, error) {
	var result []byte
	for {
		b, err := r.r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == 0 {
			break
		}
		result = append(result, b)
	}
	return string(result), nil
}
