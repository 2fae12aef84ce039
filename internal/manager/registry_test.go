package manager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	return NewRegistry(1)
}

func TestRegisterUserUniquenessAndPorts(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.RegisterUser("alice", "127.0.0.1", 13100, 13101))

	assert.Error(t, r.RegisterUser("alice", "127.0.0.1", 13102, 13103), "duplicate name must fail")
	assert.Error(t, r.RegisterUser("bob", "not-an-ip", 13104, 13105), "bad IP must fail")
	assert.Error(t, r.RegisterUser("bob", "127.0.0.1", 13100, 13106), "port collision must fail")
}

func TestRegisterDiskCollidesWithUserPorts(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.RegisterUser("alice", "127.0.0.1", 13100, 13101))
	assert.Error(t, r.RegisterDisk("d1", "127.0.0.1", 13101, 13102), "node port colliding with a user port must fail")
}

func TestDeregisterDiskFailsWhileInDSS(t *testing.T) {
	r := newTestRegistry()
	for i, name := range []string{"d1", "d2", "d3"} {
		require.NoError(t, r.RegisterDisk(name, "127.0.0.1", 13110+i*2, 13111+i*2))
	}
	_, err := r.ConfigureDSS("D", 3, 128)
	require.NoError(t, err)

	assert.Error(t, r.DeregisterDisk("d1"), "InDSS node must refuse deregistration")
}

func TestConfigureDSSRejectsBadN(t *testing.T) {
	r := newTestRegistry()
	_, err := r.ConfigureDSS("D", 2, 128)
	assert.Error(t, err, "n<3 must be rejected")
}

func TestConfigureDSSRejectsBadStripingUnit(t *testing.T) {
	r := newTestRegistry()
	for i, name := range []string{"d1", "d2", "d3"} {
		require.NoError(t, r.RegisterDisk(name, "127.0.0.1", 13120+i*2, 13121+i*2))
	}
	_, err := r.ConfigureDSS("D", 3, 200)
	assert.Error(t, err, "striping unit not in {128,256,512,1024} must be rejected")
}

func TestConfigureDSSNeverDoubleAllocatesANode(t *testing.T) {
	r := newTestRegistry()
	for i, name := range []string{"d1", "d2", "d3", "d4"} {
		require.NoError(t, r.RegisterDisk(name, "127.0.0.1", 13130+i*2, 13131+i*2))
	}
	_, err := r.ConfigureDSS("D1", 3, 128)
	require.NoError(t, err)

	_, err = r.ConfigureDSS("D2", 3, 128)
	assert.Error(t, err, "only one Free node remains, not enough for a second 3-drive DSS")

	counts := r.Snapshot()
	assert.Equal(t, 3, counts.NodesInDSS)
}

func TestCopyCommitRoundTrip(t *testing.T) {
	r := newTestRegistry()
	for i, name := range []string{"d1", "d2", "d3"} {
		require.NoError(t, r.RegisterDisk(name, "127.0.0.1", 13140+i*2, 13141+i*2))
	}
	require.NoError(t, err2(r.ConfigureDSS("D", 3, 128)))

	d, nodes, err := r.BeginCopy("foo", 200, "alice", "tx-1", "10.0.0.1")
	require.NoError(t, err)
	assert.Len(t, nodes, 3)

	assert.Error(t, r.CommitCopy(d.Name, "wrong-tx", "10.0.0.1"), "mismatched TxID must not commit")

	require.NoError(t, r.CommitCopy(d.Name, "tx-1", "10.0.0.1"))

	_, _, size, err := r.FindFileDSS("foo")
	require.NoError(t, err)
	assert.Equal(t, int64(200), size)
}

func TestDecommissionFreesNodesAndRemovesDSS(t *testing.T) {
	r := newTestRegistry()
	for i, name := range []string{"d1", "d2", "d3"} {
		require.NoError(t, r.RegisterDisk(name, "127.0.0.1", 13150+i*2, 13151+i*2))
	}
	require.NoError(t, err2(r.ConfigureDSS("D", 3, 128)))

	d, _, err := r.BeginDecommission("D", "tx-2", "10.0.0.2")
	require.NoError(t, err)
	require.NoError(t, r.CommitDecommission(d.Name, "tx-2", "10.0.0.2"))

	_, err = r.Ls()
	assert.Error(t, err, "ls on an empty registry must fail")

	// Nodes must be Free again, so a fresh configure-dss of the same shape succeeds.
	_, err = r.ConfigureDSS("D", 3, 128)
	assert.NoError(t, err)
}

func err2(_ *DSS, err error) error { return err }
