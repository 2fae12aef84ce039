package manager

import "github.com/dreamware/dssraid/internal/wire"

// DSSDescriptor converts a DSS and its resolved node records into the wire
// descriptor shape clients use to reach storage nodes directly. nodes may
// be nil; in that case Disks carries name-only entries with empty IP/port.
func DSSDescriptor(d *DSS, nodes []*Node) wire.DSSDescriptor {
	disks := make([]wire.DiskEndpoint, len(d.Disks))
	for i, name := range d.Disks {
		disks[i] = wire.DiskEndpoint{Name: name}
	}
	for _, n := range nodes {
		for i, name := range d.Disks {
			if name == n.Name {
				disks[i] = wire.DiskEndpoint{Name: n.Name, IP: n.IP, Port: n.CPort}
			}
		}
	}
	return wire.DSSDescriptor{
		Name:         d.Name,
		NumDrives:    len(d.Disks),
		StripingUnit: d.StripingUnit,
		Disks:        disks,
	}
}
