// Package integration exercises the manager, storage node, and striping
// engine together over real localhost UDP sockets, covering the end-to-end
// scenarios spec.md §8 describes: trivial copy/read, multi-stripe parity
// rotation, bit-error recovery, disk failure and reconstruction,
// decommission, and rejection paths.
package integration

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dreamware/dssraid/internal/manager"
	"github.com/dreamware/dssraid/internal/mgrclient"
	"github.com/dreamware/dssraid/internal/netutil"
	"github.com/dreamware/dssraid/internal/obslog"
	"github.com/dreamware/dssraid/internal/storagenode"
	"github.com/dreamware/dssraid/internal/striping"
)

// testCluster runs a manager and a fleet of storage node peer endpoints in
// background goroutines, all bound to ephemeral loopback ports.
type testCluster struct {
	t        *testing.T
	mgr      *mgrclient.Client
	nodePort []int
	nodes    []*storagenode.Server
}

func newTestCluster(t *testing.T, numNodes int) *testCluster {
	t.Helper()
	log := obslog.Component("test")

	mgrConn, err := netutil.Listen(0)
	require.NoError(t, err)
	registry := manager.NewRegistry(1)
	mgrSrv := manager.NewServer(mgrConn, registry, log)
	go func() { _ = mgrSrv.Serve() }()
	t.Cleanup(func() { _ = mgrConn.Close() })

	mgrAddr, err := netutil.ResolveEndpoint("127.0.0.1", mgrConn.LocalPort())
	require.NoError(t, err)
	mgrClient := mgrclient.New(mgrAddr, netutil.DefaultTimeout)

	tc := &testCluster{t: t, mgr: mgrClient}

	for i := 0; i < numNodes; i++ {
		peerConn, err := netutil.Listen(0)
		require.NoError(t, err)
		store := storagenode.NewStore()
		peerSrv := storagenode.NewServer(peerConn, store, log)
		go func() { _ = peerSrv.Serve(context.Background()) }()
		t.Cleanup(func() { _ = peerConn.Close() })

		tc.nodePort = append(tc.nodePort, peerConn.LocalPort())
		tc.nodes = append(tc.nodes, peerSrv)

		diskName := diskNames[i]
		require.NoError(t, mgrClient.RegisterDisk(diskName, "127.0.0.1", peerConn.LocalPort(), peerConn.LocalPort()))
	}

	require.NoError(t, mgrClient.RegisterUser("alice", "127.0.0.1", 1, 1))
	return tc
}

var diskNames = []string{"disk0", "disk1", "disk2", "disk3", "disk4", "disk5"}

func (tc *testCluster) configureDSS(name string, n, stripingUnit int) {
	tc.t.Helper()
	require.NoError(tc.t, tc.mgr.ConfigureDSS(name, n, stripingUnit))
}

func (tc *testCluster) copyAndRead(filename string, data []byte) []byte {
	tc.t.Helper()
	log := obslog.Component("test")

	result, err := tc.mgr.Copy(filename, int64(len(data)), "alice")
	require.NoError(tc.t, err)
	engine, err := striping.NewEngine(result.Descriptor, log)
	require.NoError(tc.t, err)
	require.NoError(tc.t, engine.Copy(filename, data))
	require.NoError(tc.t, tc.mgr.CompleteCopy(result.TxID))

	readDesc, err := tc.mgr.Read("alice", filename)
	require.NoError(tc.t, err)
	readEngine, err := striping.NewEngine(readDesc.DSSDescriptor, log)
	require.NoError(tc.t, err)
	got, err := readEngine.Read(filename, readDesc.Size, striping.ReadOptions{Rand: rand.New(rand.NewSource(1))})
	require.NoError(tc.t, err)
	return got
}

// TestTrivialCopyAndRead covers S1: a file smaller than one stripe round
// trips unchanged through a 3-drive DSS.
func TestTrivialCopyAndRead(t *testing.T) {
	tc := newTestCluster(t, 3)
	tc.configureDSS("dss1", 3, 128)

	want := []byte("hello distributed raid")
	got := tc.copyAndRead("greeting.txt", want)
	require.Equal(t, want, got)
}

// TestMultiStripeParityRotation covers S2: a file spanning several stripes
// exercises the rotating parity position across drives.
func TestMultiStripeParityRotation(t *testing.T) {
	tc := newTestCluster(t, 4)
	tc.configureDSS("dss2", 4, 128)

	want := make([]byte, 128*3*5+37)
	for i := range want {
		want[i] = byte(i * 7)
	}
	got := tc.copyAndRead("bigfile.bin", want)
	require.Equal(t, want, got)
}

// TestReadWithBitErrorRecovers covers S3: injected per-block bit errors
// still yield a correct read via parity-mismatch retry.
func TestReadWithBitErrorRecovers(t *testing.T) {
	tc := newTestCluster(t, 3)
	tc.configureDSS("dss3", 3, 128)
	log := obslog.Component("test")

	want := []byte("resilient against single bit flips across every stripe we write")
	result, err := tc.mgr.Copy("flaky.txt", int64(len(want)), "alice")
	require.NoError(t, err)
	engine, err := striping.NewEngine(result.Descriptor, log)
	require.NoError(t, err)
	require.NoError(t, engine.Copy("flaky.txt", want))
	require.NoError(t, tc.mgr.CompleteCopy(result.TxID))

	readDesc, err := tc.mgr.Read("alice", "flaky.txt")
	require.NoError(t, err)
	readEngine, err := striping.NewEngine(readDesc.DSSDescriptor, log)
	require.NoError(t, err)
	got, err := readEngine.Read("flaky.txt", readDesc.Size, striping.ReadOptions{
		ErrorP: 15,
		Rand:   rand.New(rand.NewSource(2)),
	})
	require.NoError(t, err)
	require.Equal(t, want, got)
}

// TestDiskFailureReconstructs covers S4: a simulated single-drive loss is
// rebuilt from surviving data and parity blocks.
func TestDiskFailureReconstructs(t *testing.T) {
	tc := newTestCluster(t, 3)
	tc.configureDSS("dss4", 3, 128)
	log := obslog.Component("test")

	want := []byte("data that must survive the loss of exactly one drive")
	result, err := tc.mgr.Copy("survivor.txt", int64(len(want)), "alice")
	require.NoError(t, err)
	engine, err := striping.NewEngine(result.Descriptor, log)
	require.NoError(t, err)
	require.NoError(t, engine.Copy("survivor.txt", want))
	require.NoError(t, tc.mgr.CompleteCopy(result.TxID))

	failDesc, err := tc.mgr.DiskFailure("dss4")
	require.NoError(t, err)
	require.Contains(t, failDesc.Files, "survivor.txt")

	failEngine, err := striping.NewEngine(failDesc.DSSDescriptor, log)
	require.NoError(t, err)
	_, err = failEngine.Reconstruct(failDesc.Files, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	require.NoError(t, tc.mgr.RecoveryComplete("dss4"))

	readDesc, err := tc.mgr.Read("alice", "survivor.txt")
	require.NoError(t, err)
	readEngine, err := striping.NewEngine(readDesc.DSSDescriptor, log)
	require.NoError(t, err)
	got, err := readEngine.Read("survivor.txt", readDesc.Size, striping.ReadOptions{Rand: rand.New(rand.NewSource(4))})
	require.NoError(t, err)
	require.Equal(t, want, got)
}

// TestDecommissionRemovesDSS covers S5: after a DSS is decommissioned the
// manager no longer resolves its files and ls reports no DSS.
func TestDecommissionRemovesDSS(t *testing.T) {
	tc := newTestCluster(t, 3)
	tc.configureDSS("dss5", 3, 128)
	log := obslog.Component("test")

	data := []byte("file that will be wiped by decommission")
	result, err := tc.mgr.Copy("temp.txt", int64(len(data)), "alice")
	require.NoError(t, err)
	engine, err := striping.NewEngine(result.Descriptor, log)
	require.NoError(t, err)
	require.NoError(t, engine.Copy("temp.txt", data))
	require.NoError(t, tc.mgr.CompleteCopy(result.TxID))

	decomm, err := tc.mgr.DecommissionDSS("dss5")
	require.NoError(t, err)
	decommEngine, err := striping.NewEngine(decomm.Descriptor, log)
	require.NoError(t, err)
	require.NoError(t, decommEngine.Decommission("dss5"))
	require.NoError(t, tc.mgr.CompleteDecommission(decomm.TxID))

	_, err = tc.mgr.Read("alice", "temp.txt")
	require.Error(t, err)

	lines, err := tc.mgr.Ls()
	require.ErrorContains(t, err, "no DSS configured")
	require.Empty(t, lines)
}

// TestRejectionPaths covers S6: malformed and out-of-range manager requests
// fail cleanly rather than crashing the loop or corrupting registry state.
func TestRejectionPaths(t *testing.T) {
	tc := newTestCluster(t, 3)

	require.Error(t, tc.mgr.ConfigureDSS("toofew", 2, 128))
	require.Error(t, tc.mgr.ConfigureDSS("badunit", 3, 100))

	_, err := tc.mgr.Copy("nope.txt", 10, "alice")
	require.Error(t, err)

	tc.configureDSS("dss6", 3, 128)
	require.Error(t, tc.mgr.DeregisterDisk("disk0"))
}
