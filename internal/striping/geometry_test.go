package striping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeometryValidation(t *testing.T) {
	_, err := NewGeometry(2, 128)
	assert.Error(t, err, "n<3 must be rejected")

	_, err = NewGeometry(3, 200)
	assert.Error(t, err, "striping unit not in {128,256,512,1024} must be rejected")

	g, err := NewGeometry(3, 128)
	require.NoError(t, err)
	assert.Equal(t, 3, g.NumDrives)
}

func TestGeometryS1(t *testing.T) {
	g, err := NewGeometry(3, 128)
	require.NoError(t, err)

	assert.Equal(t, 2, g.DataBlocksPerStripe())
	assert.Equal(t, 256, g.BytesPerStripe())
	assert.Equal(t, 1, g.NumStripes(200))
	assert.Equal(t, 2, g.ParityPosition(0))
}

func TestGeometryS2ParityRotation(t *testing.T) {
	g, err := NewGeometry(3, 128)
	require.NoError(t, err)

	assert.Equal(t, 3, g.NumStripes(600))
	assert.Equal(t, 2, g.ParityPosition(0))
	assert.Equal(t, 1, g.ParityPosition(1))
	assert.Equal(t, 0, g.ParityPosition(2))
}

func TestGeometryBoundarySingleStripe(t *testing.T) {
	g, err := NewGeometry(3, 128)
	require.NoError(t, err)
	assert.Equal(t, 1, g.NumStripes(256), "file size exactly S*(n-1) is one stripe")
	assert.Equal(t, 1, g.NumStripes(1), "tiny file is still one stripe")
}

func TestStripeByteRangeClampsToFileSize(t *testing.T) {
	g, err := NewGeometry(3, 128)
	require.NoError(t, err)
	start, end := g.StripeByteRange(2, 600)
	assert.Equal(t, int64(512), start)
	assert.Equal(t, int64(600), end, "last stripe is short, clamped to file size")
}
