// Package xdr implements the XDR primitive encoding (RFC 4506) used for
// driftfs wire and snapshot formats: big-endian fixed-width integers and
// length-prefixed variable data padded to 4-byte boundaries.
//
// Unlike a raw binary.Read/Write pairing, every decode helper reports
// truncated input as an error wrapping ErrUnexpectedEnd so callers can
// distinguish a malformed buffer from an I/O failure.
package xdr

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WriteUint32 encodes a 32-bit unsigned integer in XDR format.
//
// Per RFC 4506 Section 4.1 (Integer):
// Unsigned 32-bit integers are encoded in big-endian byte order.
func WriteUint32(w io.Writer, v uint32) error {
	if err := binary.Write(w, binary.BigEndian, v); err != nil {
		return fmt.Errorf("write uint32: %w", err)
	}
	return nil
}

// WriteUint64 encodes a 64-bit unsigned integer in XDR format.
//
// Per RFC 4506 Section 4.5 (Hyper Integer):
// Unsigned 64-bit integers are encoded in big-endian byte order.
func WriteUint64(w io.Writer, v uint64) error {
	if err := binary.Write(w, binary.BigEndian, v); err != nil {
		return fmt.Errorf("write uint64: %w", err)
	}
	return nil
}

// WriteBool encodes a boolean as a uint32 (0 = false, 1 = true) per
// RFC 4506 Section 4.4.
func WriteBool(w io.Writer, v bool) error {
	var val uint32
	if v {
		val = 1
	}
	return WriteUint32(w, val)
}

// WriteOpaque encodes variable-length opaque data per RFC 4506 Section 4.10:
// [length:uint32][data:bytes][padding to 4-byte boundary].
func WriteOpaque(w io.Writer, data []byte) error {
	length := uint32(len(data))
	if err := WriteUint32(w, length); err != nil {
		return fmt.Errorf("write opaque length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write opaque data: %w", err)
	}
	return writePadding(w, length)
}

// WriteString encodes a string per RFC 4506 Section 4.11. Encoding is
// identical to opaque data; the bytes are interpreted as UTF-8.
func WriteString(w io.Writer, s string) error {
	return WriteOpaque(w, []byte(s))
}

// writePadding writes 0-3 zero bytes so the next item starts on a 4-byte
// boundary.
func writePadding(w io.Writer, dataLen uint32) error {
	padding := (4 - (dataLen % 4)) % 4
	if padding > 0 {
		var pad [3]byte
		if _, err := w.Write(pad[:padding]); err != nil {
			return fmt.Errorf("write padding: %w", err)
		}
	}
	return nil
}
