package striping

import "github.com/dreamware/dssraid/internal/wire"

// sliceDataBlocks cuts a (possibly short) stripe slice into n-1 blocks of
// exactly StripingUnit bytes, zero-padding the final block(s) on the right
// when the source runs out (spec.md §3).
func (g Geometry) sliceDataBlocks(stripeData []byte) [][]byte {
	n := g.DataBlocksPerStripe()
	blocks := make([][]byte, n)
	for i := 0; i < n; i++ {
		start := i * g.StripingUnit
		block := make([]byte, g.StripingUnit)
		if start < len(stripeData) {
			end := start + g.StripingUnit
			if end > len(stripeData) {
				end = len(stripeData)
			}
			copy(block, stripeData[start:end])
		}
		blocks[i] = block
	}
	return blocks
}

// driveBlock is one drive's contribution to a stripe: its role and bytes.
type driveBlock struct {
	role wire.Role
	data []byte
}

// assignDrives places n-1 data blocks and one parity block onto the n
// drives of a stripe, with the parity block at ParityPosition(stripe) and
// data blocks filling the remaining positions in increasing drive order
// (spec.md §3).
func (g Geometry) assignDrives(stripe int, dataBlocks [][]byte, parity []byte) []driveBlock {
	out := make([]driveBlock, g.NumDrives)
	parityPos := g.ParityPosition(stripe)
	dataIdx := 0
	for drive := 0; drive < g.NumDrives; drive++ {
		if drive == parityPos {
			out[drive] = driveBlock{role: wire.RoleParity, data: parity}
			continue
		}
		out[drive] = driveBlock{role: wire.RoleData, data: dataBlocks[dataIdx]}
		dataIdx++
	}
	return out
}
