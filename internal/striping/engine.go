package striping

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dreamware/dssraid/internal/netutil"
	"github.com/dreamware/dssraid/internal/wire"
)

// maxReadRetries is the per-stripe retry budget on the read path
// (spec.md §4.3.2).
const maxReadRetries = 5

// maxProbeStripes bounds reconstruction's "probe the first surviving drive
// until BLOCK NOT FOUND" stripe enumeration (spec.md §9, design note on
// stripe enumeration), matching the reference client's hard cap rather than
// looping forever if a BLOCK NOT FOUND reply is itself lost.
const maxProbeStripes = 1000

// Engine drives the client side of the RAID-5 protocol against one DSS's
// storage nodes: the striping math in Geometry plus the parallel
// per-drive dispatch/gather spec.md §4.3 describes for Copy, Read,
// Reconstruct, and Decommission. It holds no manager connection — the
// caller resolves a wire.DSSDescriptor via mgrclient first and hands it
// here; a fresh Engine is built per operation rather than kept around,
// since it carries no state beyond one DSS's fixed geometry and disk list.
//
// Dispatch model:
//   - within one stripe, every drive's WRITE or READ is issued from its
//     own goroutine over its own dialed netutil.Conn; reads fan in through
//     a driveResult channel, writes through a WaitGroup and a per-drive
//     error slice
//   - across stripes, dispatch is sequential: stripe N+1 isn't started
//     until stripe N's fan-in completes
//
// Thread Safety:
// A single Engine value is not meant to be driven by concurrent callers;
// each exported operation (Copy, Read, Reconstruct, Decommission) owns
// the full stripe loop for the file it's given.
type Engine struct {
	Geometry Geometry
	Disks    []wire.DiskEndpoint
	Timeout  time.Duration
	Log      zerolog.Logger
}

// NewEngine builds an Engine from a manager-issued DSS descriptor,
// deriving its Geometry from the descriptor's drive count and striping
// unit.
//
// Parameters:
//   - desc: the DSS descriptor a manager reply (copy, read, disk-failure,
//     or decommission-dss) carries
//   - log: the component logger for per-operation diagnostics
//
// Returns:
//   - a ready Engine, or an error if desc's drive count or striping unit
//     violates Geometry's invariants
//
// Example:
//
//	result, _ := mgr.Copy(filename, size, owner)
//	engine, err := striping.NewEngine(result.Descriptor, log)
//	if err != nil {
//	    return err
//	}
//	err = engine.Copy(filename, data)
func NewEngine(desc wire.DSSDescriptor, log zerolog.Logger) (*Engine, error) {
	g, err := NewGeometry(desc.NumDrives, desc.StripingUnit)
	if err != nil {
		return nil, err
	}
	return &Engine{Geometry: g, Disks: desc.Disks, Timeout: netutil.DefaultTimeout, Log: log}, nil
}

func (e *Engine) timeout() time.Duration {
	if e.Timeout <= 0 {
		return netutil.DefaultTimeout
	}
	return e.Timeout
}

// dial opens a fresh UDP socket to drive i's client (peer) port.
func (e *Engine) dial(drive int) (*netutil.Conn, error) {
	d := e.Disks[drive]
	addr, err := netutil.ResolveEndpoint(d.IP, d.Port)
	if err != nil {
		return nil, err
	}
	return netutil.Dial(addr)
}

// driveResult carries one per-drive outcome back from a fanned-out
// goroutine on the read path.
type driveResult struct {
	drive int
	data  []byte
	err   error
}

func (e *Engine) driveName(i int) string {
	if i < 0 || i >= len(e.Disks) {
		return fmt.Sprintf("drive-%d", i)
	}
	return e.Disks[i].Name
}
