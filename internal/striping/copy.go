package striping

import (
	"fmt"
	"sync"

	"github.com/dreamware/dssraid/internal/wire"
)

// Copy stripes fileData across the engine's drives, stripe by stripe. Each
// stripe's n WRITE datagrams fan out in parallel (one goroutine per drive);
// stripe k+1 is never started until every send for stripe k has returned,
// matching spec.md §4.3.1/§5's sequential-stripe, parallel-fan-out model.
//
// There is no per-WRITE acknowledgement (spec.md §9): a failed send is
// logged and the stripe proceeds regardless, the same trade-off the
// reference implementation makes by relying on a lossless local datagram
// path. A production port would add per-WRITE ACKs and retry symmetric to
// the read path.
func (e *Engine) Copy(filename string, fileData []byte) error {
	fileSize := int64(len(fileData))
	numStripes := e.Geometry.NumStripes(fileSize)

	e.Log.Info().Str("file", filename).Int64("size", fileSize).Int("stripes", numStripes).Msg("starting copy")

	for stripe := 0; stripe < numStripes; stripe++ {
		if err := e.writeStripe(filename, stripe, fileData, fileSize); err != nil {
			return fmt.Errorf("striping: write stripe %d of %s: %w", stripe, filename, err)
		}
	}

	e.Log.Info().Str("file", filename).Msg("copy complete")
	return nil
}

func (e *Engine) writeStripe(filename string, stripe int, fileData []byte, fileSize int64) error {
	start, end := e.Geometry.StripeByteRange(stripe, fileSize)
	dataBlocks := e.Geometry.sliceDataBlocks(fileData[start:end])

	parity, err := XOR(dataBlocks)
	if err != nil {
		return err
	}

	drives := e.Geometry.assignDrives(stripe, dataBlocks, parity)

	var wg sync.WaitGroup
	errs := make([]error, e.Geometry.NumDrives)
	for drive, db := range drives {
		wg.Add(1)
		go func(drive int, db driveBlock) {
			defer wg.Done()
			errs[drive] = e.writeBlock(filename, stripe, drive, db)
		}(drive, db)
	}
	wg.Wait()

	for drive, err := range errs {
		if err != nil {
			e.Log.Warn().Err(err).Str("file", filename).Int("stripe", stripe).
				Str("drive", e.driveName(drive)).Msg("write to drive failed")
		}
	}
	return nil
}

func (e *Engine) writeBlock(filename string, stripe, drive int, db driveBlock) error {
	conn, err := e.dial(drive)
	if err != nil {
		return err
	}
	defer conn.Close()

	dgram := wire.EncodeWrite(filename, stripe, db.role, db.data)
	return conn.Send(dgram)
}
