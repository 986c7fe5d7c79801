package xdr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrUnexpectedEnd is returned (wrapped) by every decode helper when the
// input ends before the field is complete. Callers use errors.Is to treat
// it as a format error rather than an I/O failure.
var ErrUnexpectedEnd = errors.New("xdr: unexpected end of data")

// maxOpaqueLength bounds variable-length fields to protect against
// malformed length prefixes. Snapshot and wire fields are far smaller.
const maxOpaqueLength = 1024 * 1024 // 1 MB

// wrapEOF converts io.EOF and io.ErrUnexpectedEOF into ErrUnexpectedEnd.
func wrapEOF(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", ErrUnexpectedEnd, err)
	}
	return err
}

// ReadUint32 decodes a 32-bit unsigned integer from XDR format.
func ReadUint32(r io.Reader) (uint32, error) {
	var v uint32
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("read uint32: %w", wrapEOF(err))
	}
	return v, nil
}

// ReadUint64 decodes a 64-bit unsigned integer from XDR format.
func ReadUint64(r io.Reader) (uint64, error) {
	var v uint64
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("read uint64: %w", wrapEOF(err))
	}
	return v, nil
}

// ReadBool decodes an XDR boolean (uint32, any non-zero value is true).
func ReadBool(r io.Reader) (bool, error) {
	v, err := ReadUint32(r)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// ReadOpaque decodes variable-length opaque data, consuming the trailing
// alignment padding.
func ReadOpaque(r io.Reader) ([]byte, error) {
	length, err := ReadUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read opaque length: %w", err)
	}
	if length > maxOpaqueLength {
		return nil, fmt.Errorf("%w: opaque length %d exceeds maximum %d",
			ErrUnexpectedEnd, length, maxOpaqueLength)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read opaque data: %w", wrapEOF(err))
	}

	padding := (4 - (length % 4)) % 4
	if padding > 0 {
		var pad [3]byte
		if _, err := io.ReadFull(r, pad[:padding]); err != nil {
			return nil, fmt.Errorf("skip padding: %w", wrapEOF(err))
		}
	}

	return data, nil
}

// ReadString decodes an XDR string (opaque data interpreted as UTF-8).
func ReadString(r io.Reader) (string, error) {
	data, err := ReadOpaque(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
