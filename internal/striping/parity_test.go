package striping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXORSelfCancels(t *testing.T) {
	a := []byte{0x01, 0x02, 0xFF}
	b := []byte{0x0F, 0x02, 0x00}
	parity, err := XOR([][]byte{a, b})
	require.NoError(t, err)

	allZero, err := XOR([][]byte{a, b, parity})
	require.NoError(t, err)
	assert.True(t, IsZero(allZero), "XOR of all stripe blocks (data+parity) must be zero")
}

func TestXORRejectsMismatchedLengths(t *testing.T) {
	_, err := XOR([][]byte{{1, 2}, {1}})
	assert.Error(t, err)
}

func TestLayoutAssignDrivesAndParityConsistency(t *testing.T) {
	g, err := NewGeometry(4, 128)
	require.NoError(t, err)

	data := g.sliceDataBlocks([]byte("abcdefghijkl"))
	parity, err := XOR(data)
	require.NoError(t, err)

	for stripe := 0; stripe < 5; stripe++ {
		drives := g.assignDrives(stripe, data, parity)
		all := make([][]byte, len(drives))
		for i, db := range drives {
			all[i] = db.data
		}
		zero, err := XOR(all)
		require.NoError(t, err)
		assert.True(t, IsZero(zero), "XOR of all n drive blocks must be zero for stripe %d", stripe)

		parityPos := g.ParityPosition(stripe)
		assert.Equal(t, "parity", string(drives[parityPos].role))
		for i, db := range drives {
			if i != parityPos {
				assert.Equal(t, "data", string(db.role))
			}
		}
	}
}
