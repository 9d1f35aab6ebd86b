package wire

import (
	"bytes"
	"encoding/hex"
	"testing"

	btcwire "github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarIntBoundaries(t *testing.T) {
	cases := []struct {
		name string
		val  uint64
		hex  string
	}{
		{"zero", 0, "00"},
		{"max_u8", 0xfc, "fc"},
		{"u16_boundary", 0xfd, "fdfd00"},
		{"u16_max", 0xffff, "fdffff"},
		{"u32_boundary", 0x10000, "fe00000100"},
		{"u32_max", 0xffffffff, "feffffffff"},
		{"u64_boundary", 0x100000000, "ff0000000001000000"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteVarInt(&buf, tc.val))
			assert.Equal(t, tc.hex, hex.EncodeToString(buf.Bytes()))
			assert.Equal(t, buf.Len(), VarIntSerializeSize(tc.val))

			// btcd's encoder must agree byte for byte
			var ref bytes.Buffer
			require.NoError(t, btcwire.WriteVarInt(&ref, 0, tc.val))
			assert.Equal(t, ref.Bytes(), buf.Bytes())

			got, err := ReadVarInt(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			assert.Equal(t, tc.val, got)
		})
	}
}

func TestReadVarIntRejectsNonCanonical(t *testing.T) {
	for _, h := range []string{"fdfc00", "fe ffff0000", "ff ffffffff00000000"} {
		b, err := hex.DecodeString(stripSpaces(h))
		require.NoError(t, err)

		_, err = ReadVarInt(bytes.NewReader(b))
		assert.Error(t, err, h)
	}
}

func TestReadVarIntTruncated(t *testing.T) {
	_, err := ReadVarInt(bytes.NewReader([]byte{0xfe, 0x01}))
	assert.Error(t, err)
}

func TestReadVarString(t *testing.T) {
	payload := bytes.Repeat([]byte{0xab}, 300)

	var buf bytes.Buffer
	require.NoError(t, WriteVarInt(&buf, uint64(len(payload))))
	buf.Write(payload)
	assert.Equal(t, []byte{0xfd, 0x2c, 0x01}, buf.Bytes()[:3])

	got, err := ReadVarString(&buf)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	got, err = ReadVarString(bytes.NewReader([]byte{0x00}))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ReadVarString(bytes.NewReader([]byte{0x05, 0x01, 0x02}))
	assert.Error(t, err)
}

func TestLittleEndianIntegers(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUint32LE(&buf, 0x1f00ffff))
	buf.Write([]byte{0x00, 0xf2, 0x05, 0x2a, 0x01, 0x00, 0x00, 0x00})
	assert.Equal(t, "ffff001f00f2052a01000000", hex.EncodeToString(buf.Bytes()))

	r := bytes.NewReader(buf.Bytes())
	v32, err := ReadUint32LE(r)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1f00ffff), v32)
	v64, err := ReadUint64LE(r)
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000_000), v64)

	_, err = ReadUint64LE(r)
	assert.Error(t, err)
}

func TestWriteFixedBytes(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteFixedBytes(&buf, []byte{1, 2}, 3))
	assert.NoError(t, WriteFixedBytes(&buf, []byte{1, 2, 3}, 3))
}

func TestReadChainHash(t *testing.T) {
	h, err := ReadChainHash(bytes.NewReader(make([]byte, 32)))
	require.NoError(t, err)
	assert.Equal(t, ZeroHashHex, h.String())

	_, err = ReadChainHash(bytes.NewReader(make([]byte, 31)))
	assert.Error(t, err)
}

func stripSpaces(s string) string {
	return string(bytes.ReplaceAll([]byte(s), []byte(" "), nil))
}
