package striping

import "fmt"

// StripingUnits enumerates the only valid block sizes a DSS may be
// configured with, per spec.md §3.
var StripingUnits = [...]int{128, 256, 512, 1024}

// ValidStripingUnit reports whether s is one of the permitted block sizes.
func ValidStripingUnit(s int) bool {
	for _, v := range StripingUnits {
		if v == s {
			return true
		}
	}
	return false
}

// Geometry captures the striping parameters of a DSS and derives the
// per-file layout math from spec.md §3: stripe count, bytes per stripe, and
// parity placement. It holds no file-specific state, so one Geometry value
// serves every file stored on a given DSS.
type Geometry struct {
	NumDrives    int
	StripingUnit int
}

// NewGeometry validates n and s against the invariants configure-dss must
// enforce (n≥3, s one of the four permitted sizes) and returns a ready
// Geometry.
func NewGeometry(numDrives, stripingUnit int) (Geometry, error) {
	if numDrives < 3 {
		return Geometry{}, fmt.Errorf("striping: need at least 3 drives, got %d", numDrives)
	}
	if !ValidStripingUnit(stripingUnit) {
		return Geometry{}, fmt.Errorf("striping: striping unit %d not in {128,256,512,1024}", stripingUnit)
	}
	return Geometry{NumDrives: numDrives, StripingUnit: stripingUnit}, nil
}

// DataBlocksPerStripe is n-1: every stripe holds one data block per
// non-parity drive.
func (g Geometry) DataBlocksPerStripe() int { return g.NumDrives - 1 }

// BytesPerStripe is the amount of source-file data one stripe covers.
func (g Geometry) BytesPerStripe() int { return g.DataBlocksPerStripe() * g.StripingUnit }

// NumStripes returns how many stripes a file of size L requires.
func (g Geometry) NumStripes(fileSize int64) int {
	if fileSize <= 0 {
		return 0
	}
	bps := int64(g.BytesPerStripe())
	return int(ceilDiv(fileSize, bps))
}

// ParityPosition is P(k) = n-1-(k mod n), the left-rotating parity drive
// for stripe k (spec.md §3).
func (g Geometry) ParityPosition(stripe int) int {
	n := g.NumDrives
	return n - 1 - (stripe % n)
}

// StripeByteRange returns the half-open byte range [start, end) of the
// source file stripe k covers, clamped to fileSize for a possibly-short
// final stripe.
func (g Geometry) StripeByteRange(stripe int, fileSize int64) (start, end int64) {
	bps := int64(g.BytesPerStripe())
	start = int64(stripe) * bps
	end = start + bps
	if end > fileSize {
		end = fileSize
	}
	return start, end
}

func ceilDiv(a, b int64) int64 {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
