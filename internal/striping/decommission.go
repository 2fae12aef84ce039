package striping

import (
	"fmt"

	"github.com/dreamware/dssraid/internal/wire"
)

// Decommission sends DELETE <dssName> to every drive in the engine, the
// data-plane half of tearing down a DSS (spec.md §4.3.4). The manager-side
// decommission-complete follow-up is the caller's responsibility once this
// returns.
func (e *Engine) Decommission(dssName string) error {
	for drive := range e.Disks {
		conn, err := e.dial(drive)
		if err != nil {
			return fmt.Errorf("striping: dial drive %s: %w", e.driveName(drive), err)
		}
		err = conn.Send(wire.EncodeDelete(dssName))
		conn.Close()
		if err != nil {
			return fmt.Errorf("striping: delete on drive %s: %w", e.driveName(drive), err)
		}
		e.Log.Debug().Str("drive", e.driveName(drive)).Str("dss", dssName).Msg("sent delete")
	}
	return nil
}
