package striping

import (
	"bytes"
	"fmt"
	"math/rand"
	"sync"

	"github.com/dreamware/dssraid/internal/netutil"
	"github.com/dreamware/dssraid/internal/wire"
)

// ErrStripeFailed reports a stripe that could not be verified within the
// retry budget, carrying the offending stripe index per spec.md §4.3.2.
type ErrStripeFailed struct {
	Stripe int
}

func (e *ErrStripeFailed) Error() string {
	return fmt.Sprintf("striping: stripe %d failed verification after %d attempts", e.Stripe, maxReadRetries)
}

// ReadOptions configures the read path's optional bit-error injection
// (spec.md §4.3.2). ErrorP is a percentage in [0,100]; zero disables
// injection entirely, matching "default 0".
type ReadOptions struct {
	ErrorP int
	Rand   *rand.Rand
}

// Read gathers every stripe of filename from the engine's drives, verifying
// parity and retrying up to 5 times per stripe, and returns the
// reconstructed file truncated to fileSize.
func (e *Engine) Read(filename string, fileSize int64, opts ReadOptions) ([]byte, error) {
	numStripes := e.Geometry.NumStripes(fileSize)
	out := make([]byte, 0, fileSize)
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	for stripe := 0; stripe < numStripes; stripe++ {
		blocks, err := e.readStripeVerified(filename, stripe, opts.ErrorP, rng)
		if err != nil {
			return nil, err
		}

		parityPos := e.Geometry.ParityPosition(stripe)
		remaining := fileSize - int64(len(out))
		for drive := 0; drive < e.Geometry.NumDrives; drive++ {
			if drive == parityPos {
				continue
			}
			if remaining <= 0 {
				break
			}
			block := blocks[drive]
			take := int64(len(block))
			if take > remaining {
				take = remaining
			}
			out = append(out, block[:take]...)
			remaining -= take
		}
	}

	return out, nil
}

// readStripeVerified retries a stripe's gather+verify up to maxReadRetries
// times, returning the per-drive blocks once the parity invariant holds.
func (e *Engine) readStripeVerified(filename string, stripe, errorP int, rng *rand.Rand) ([][]byte, error) {
	var lastErr error
	for attempt := 0; attempt < maxReadRetries; attempt++ {
		blocks, err := e.readStripe(filename, stripe)
		if err != nil {
			lastErr = err
			continue
		}

		for i, b := range blocks {
			blocks[i] = injectBitError(b, errorP, rng)
		}

		parityPos := e.Geometry.ParityPosition(stripe)
		var dataBlocks [][]byte
		for i, b := range blocks {
			if i != parityPos {
				dataBlocks = append(dataBlocks, b)
			}
		}
		computed, err := XOR(dataBlocks)
		if err != nil {
			lastErr = err
			continue
		}
		if bytes.Equal(computed, blocks[parityPos]) {
			return blocks, nil
		}
		lastErr = fmt.Errorf("striping: parity mismatch on stripe %d", stripe)
	}
	e.Log.Warn().Err(lastErr).Str("file", filename).Int("stripe", stripe).Msg("stripe exhausted retries")
	return nil, &ErrStripeFailed{Stripe: stripe}
}

// readStripe issues one parallel READ round across all drives, failing the
// whole attempt if any drive is missing or not found.
func (e *Engine) readStripe(filename string, stripe int) ([][]byte, error) {
	results := make(chan driveResult, e.Geometry.NumDrives)
	var wg sync.WaitGroup
	for drive := 0; drive < e.Geometry.NumDrives; drive++ {
		wg.Add(1)
		go func(drive int) {
			defer wg.Done()
			data, err := e.readBlock(filename, stripe, drive)
			results <- driveResult{drive: drive, data: data, err: err}
		}(drive)
	}
	wg.Wait()
	close(results)

	blocks := make([][]byte, e.Geometry.NumDrives)
	for r := range results {
		if r.err != nil {
			return nil, fmt.Errorf("striping: drive %s: %w", e.driveName(r.drive), r.err)
		}
		blocks[r.drive] = r.data
	}
	return blocks, nil
}

func (e *Engine) readBlock(filename string, stripe, drive int) ([]byte, error) {
	conn, err := e.dial(drive)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	dgram := wire.EncodeRead(filename, stripe, drive)
	reply, err := conn.RequestReply(dgram, netutil.MaxDatagram, e.timeout())
	if err != nil {
		return nil, err
	}
	if string(reply) == wire.ReplyBlockNotFound {
		return nil, fmt.Errorf("block not found")
	}
	return reply, nil
}

// injectBitError optionally flips one random bit of block, the diagnostic
// fault-injection spec.md §4.3.2 describes: draw U in [0,100); if U<errorP,
// flip a uniformly-chosen bit at a uniformly-chosen byte.
func injectBitError(block []byte, errorP int, rng *rand.Rand) []byte {
	if errorP <= 0 || len(block) == 0 {
		return block
	}
	if rng.Intn(100) >= errorP {
		return block
	}
	out := append([]byte(nil), block...)
	byteIdx := rng.Intn(len(out))
	bitIdx := rng.Intn(8)
	out[byteIdx] ^= 1 << uint(bitIdx)
	return out
}
