package storagenode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/dssraid/internal/wire"
)

func TestStoreWriteReadRoundTrip(t *testing.T) {
	s := NewStore()
	s.Write("a.txt", 0, wire.RoleData, []byte("hello"))
	s.Write("a.txt", 1, wire.RoleParity, []byte("world"))

	b, ok := s.Read("a.txt", 0)
	require.True(t, ok)
	assert.Equal(t, wire.RoleData, b.Role)
	assert.Equal(t, []byte("hello"), b.Data)

	_, ok = s.Read("a.txt", 5)
	assert.False(t, ok)

	_, ok = s.Read("missing.txt", 0)
	assert.False(t, ok)
}

func TestStoreWriteOverwrites(t *testing.T) {
	s := NewStore()
	s.Write("a.txt", 0, wire.RoleData, []byte("first"))
	s.Write("a.txt", 0, wire.RoleData, []byte("second"))

	b, ok := s.Read("a.txt", 0)
	require.True(t, ok)
	assert.Equal(t, []byte("second"), b.Data)
}

func TestStoreFailClearsEverything(t *testing.T) {
	s := NewStore()
	s.Write("a.txt", 0, wire.RoleData, []byte("x"))
	s.Write("b.txt", 0, wire.RoleData, []byte("y"))

	s.Fail()

	assert.Equal(t, Stats{}, s.Stats())
	_, ok := s.Read("a.txt", 0)
	assert.False(t, ok)
}

func TestStoreDeleteDSSClearsEverything(t *testing.T) {
	s := NewStore()
	s.Write("a.txt", 0, wire.RoleData, []byte("x"))

	s.DeleteDSS("dss1")

	assert.Equal(t, Stats{}, s.Stats())
}

func TestStoreStats(t *testing.T) {
	s := NewStore()
	s.Write("a.txt", 0, wire.RoleData, []byte("abc"))
	s.Write("a.txt", 1, wire.RoleParity, []byte("de"))
	s.Write("b.txt", 0, wire.RoleData, []byte("f"))

	st := s.Stats()
	assert.Equal(t, 2, st.Files)
	assert.Equal(t, 3, st.Blocks)
	assert.Equal(t, 6, st.Bytes)
}
