package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeWriteRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB, 0x00, ' ', '\n'}, 32)
	dgram := EncodeWrite("movie.mp4", 12, RoleParity, payload)

	file, stripe, role, got, err := DecodeWrite(dgram)
	require.NoError(t, err)
	assert.Equal(t, "movie.mp4", file)
	assert.Equal(t, 12, stripe)
	assert.Equal(t, RoleParity, role)
	assert.True(t, bytes.Equal(payload, got), "payload must survive byte-exact including embedded spaces/newlines")
}

func TestDecodeWriteRejectsMalformed(t *testing.T) {
	_, _, _, _, err := DecodeWrite([]byte("WRITE onlytwo fields"))
	assert.Error(t, err)

	_, _, _, _, err = DecodeWrite([]byte("READ f 1 data payload"))
	assert.Error(t, err)
}

func TestEncodeDecodeReadRoundTrip(t *testing.T) {
	dgram := EncodeRead("foo.txt", 3, 2)
	file, stripe, drive, err := DecodeRead(dgram)
	require.NoError(t, err)
	assert.Equal(t, "foo.txt", file)
	assert.Equal(t, 3, stripe)
	assert.Equal(t, 2, drive)
}

func TestEncodeDecodeDelete(t *testing.T) {
	dgram := EncodeDelete("DSS1")
	name, err := DecodeDelete(dgram)
	require.NoError(t, err)
	assert.Equal(t, "DSS1", name)
}

func TestPeerVerb(t *testing.T) {
	assert.Equal(t, "WRITE", PeerVerb(EncodeWrite("f", 0, RoleData, []byte("x"))))
	assert.Equal(t, "FAIL", PeerVerb(EncodeFail()))
	assert.Equal(t, "DELETE", PeerVerb(EncodeDelete("D")))
}
