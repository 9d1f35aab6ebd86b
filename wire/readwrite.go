package wire

import (
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
)

// ReadVarInt reads a variable-length integer from the given reader.
// This matches the Bitcoin protocol's compact size format.
func ReadVarInt(r io.Reader) (uint64, error) {
	var d uint8
	if err := binary.Read(r, binary.LittleEndian, &d); err != nil {
		return 0, err
	}
	switch d {
	case 0xff: // 8 bytes
		var rv uint64
		if err := binary.Read(r, binary.LittleEndian, &rv); err != nil {
			return 0, err
		}
		if rv < 0x100000000 {
			return 0, errors.Errorf("varint not canonically packed (0xff prefix with value %d < 2^32)", rv)
		}
		return rv, nil
	case 0xfe: // 4 bytes
		var v uint32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, err
		}
		if v < 0x10000 {
			return 0, errors.Errorf("varint not canonically packed (0xfe prefix with value %d < 2^16)", v)
		}
		return uint64(v), nil
	case 0xfd: // 2 bytes
		var v uint16
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, err
		}
		if v < 0xfd {
			return 0, errors.Errorf("varint not canonically packed (0xfd prefix with value %d < 0xfd)", v)
		}
		return uint64(v), nil
	default: // 1 byte
		return uint64(d), nil
	}
}

// WriteVarInt writes a variable-length integer to the given writer.
// This matches the Bitcoin protocol's compact size format.
func WriteVarInt(w io.Writer, val uint64) error {
	var buf [9]byte
	switch {
	case val < 0xfd:
		buf[0] = uint8(val)
		_, err := w.Write(buf[:1])
		return err
	case val <= 0xffff:
		buf[0] = 0xfd
		binary.LittleEndian.PutUint16(buf[1:], uint16(val))
		_, err := w.Write(buf[:3])
		return err
	case val <= 0xffffffff:
		buf[0] = 0xfe
		binary.LittleEndian.PutUint32(buf[1:], uint32(val))
		_, err := w.Write(buf[:5])
		return err
	default:
		buf[0] = 0xff
		binary.LittleEndian.PutUint64(buf[1:], val)
		_, err := w.Write(buf[:9])
		return err
	}
}

// VarIntSerializeSize returns the number of bytes WriteVarInt uses for val.
func VarIntSerializeSize(val uint64) int {
	switch {
	case val < 0xfd:
		return 1
	case val <= 0xffff:
		return 3
	case val <= 0xffffffff:
		return 5
	}
	return 9
}

// ReadVarString reads a variable-length byte string from the reader.
// It reads a varint length prefix, then that many bytes.
func ReadVarString(r io.Reader) ([]byte, error) {
	count, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, count)
	if _, err = io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func ReadUint32LE(r io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func WriteUint32LE(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func ReadUint64LE(r io.Reader) (uint64, error) {
	var v uint64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

// ReadChainHash reads a 32-byte hash in internal byte order.
func ReadChainHash(r io.Reader) (*chainhash.Hash, error) {
	b := make([]byte, chainhash.HashSize)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return chainhash.NewHash(b)
}

// WriteFixedBytes writes b, which must be exactly length bytes long.
func WriteFixedBytes(w io.Writer, b []byte, length int) error {
	if len(b) != length {
		return errors.Errorf("fixed bytes length mismatch: have %d, want %d", len(b), length)
	}
	_, err := w.Write(b)
	return err
}
