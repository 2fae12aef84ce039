package striping

import (
	"fmt"
	"math/rand"

	"github.com/dreamware/dssraid/internal/netutil"
	"github.com/dreamware/dssraid/internal/wire"
)

// Reconstruct simulates a single-disk failure and repairs it: it picks a
// drive index uniformly at random, sends it FAIL, waits for fail-complete,
// then for every filename in files probes for that file's stripes on a
// surviving drive and rewrites the failed drive's block at each stripe from
// the XOR of the survivors (spec.md §4.3.3). It returns the index of the
// drive it failed, so callers can verify recovery out of band.
func (e *Engine) Reconstruct(files []string, rng *rand.Rand) (failed int, err error) {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	failed = rng.Intn(e.Geometry.NumDrives)

	if err := e.sendFail(failed); err != nil {
		return failed, fmt.Errorf("striping: fail drive %s: %w", e.driveName(failed), err)
	}
	e.Log.Info().Str("drive", e.driveName(failed)).Msg("drive failed, reconstructing")

	surviving := make([]int, 0, e.Geometry.NumDrives-1)
	for i := 0; i < e.Geometry.NumDrives; i++ {
		if i != failed {
			surviving = append(surviving, i)
		}
	}
	probe := surviving[0]

	for _, file := range files {
		if err := e.reconstructFile(file, failed, probe, surviving); err != nil {
			return failed, fmt.Errorf("striping: reconstruct %s: %w", file, err)
		}
	}
	return failed, nil
}

func (e *Engine) sendFail(drive int) error {
	conn, err := e.dial(drive)
	if err != nil {
		return err
	}
	defer conn.Close()

	reply, err := conn.RequestReply(wire.EncodeFail(), netutil.ControlBufferSize, e.timeout())
	if err != nil {
		return err
	}
	if string(reply) != wire.ReplyFailComplete {
		return fmt.Errorf("unexpected reply %q", reply)
	}
	return nil
}

func (e *Engine) reconstructFile(file string, failed, probe int, surviving []int) error {
	stripes, err := e.enumerateStripes(file, probe)
	if err != nil {
		return err
	}

	for _, stripe := range stripes {
		blocks := make([][]byte, 0, len(surviving))
		for _, drive := range surviving {
			b, err := e.readBlock(file, stripe, drive)
			if err != nil {
				return fmt.Errorf("read surviving drive %s stripe %d: %w", e.driveName(drive), stripe, err)
			}
			blocks = append(blocks, b)
		}

		reconstructed, err := XOR(blocks)
		if err != nil {
			return err
		}

		role := wire.RoleData
		if failed == e.Geometry.ParityPosition(stripe) {
			role = wire.RoleParity
		}

		conn, err := e.dial(failed)
		if err != nil {
			return err
		}
		dgram := wire.EncodeWrite(file, stripe, role, reconstructed)
		err = conn.Send(dgram)
		conn.Close()
		if err != nil {
			return err
		}
		e.Log.Debug().Str("file", file).Int("stripe", stripe).Str("role", string(role)).Msg("restored block")
	}
	return nil
}

// enumerateStripes probes the surviving drive for stripes 0,1,2,... until
// it replies BLOCK NOT FOUND, per spec.md §4.3.3/§9. The hard cap guards
// against a lost BLOCK NOT FOUND reply spinning this forever; hitting it is
// reported as an error rather than silently stopping early.
func (e *Engine) enumerateStripes(file string, probe int) ([]int, error) {
	var stripes []int
	for stripe := 0; stripe < maxProbeStripes; stripe++ {
		_, err := e.readBlock(file, stripe, probe)
		if err != nil {
			if err.Error() == "block not found" {
				return stripes, nil
			}
			return nil, err
		}
		stripes = append(stripes, stripe)
	}
	return nil, fmt.Errorf("stripe enumeration for %s exceeded %d stripes without a BLOCK NOT FOUND reply", file, maxProbeStripes)
}
