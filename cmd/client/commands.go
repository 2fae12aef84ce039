package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/dreamware/dssraid/internal/obslog"
	"github.com/dreamware/dssraid/internal/striping"
)

// runCopy reads localPath off disk and stripes it onto whatever DSS the
// manager assigns, then commits the file record via copy-complete
// (spec.md §4.3.1).
func runCopy(localPath, dssFilename, owner string) error {
	log := obslog.Component("client")

	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("client: read %s: %w", localPath, err)
	}

	mgr, err := newMgrClient()
	if err != nil {
		return err
	}

	result, err := mgr.Copy(dssFilename, int64(len(data)), owner)
	if err != nil {
		return err
	}

	engine, err := striping.NewEngine(result.Descriptor, log)
	if err != nil {
		return err
	}
	if err := engine.Copy(dssFilename, data); err != nil {
		return err
	}

	if err := mgr.CompleteCopy(result.TxID); err != nil {
		return fmt.Errorf("client: copy-complete: %w", err)
	}
	fmt.Printf("copied %s (%d bytes) to DSS %s as %s\n", localPath, len(data), result.Descriptor.Name, dssFilename)
	return nil
}

// runRead resolves filename through the manager, gathers and verifies
// every stripe (optionally injecting bit errors), and writes the
// reconstructed bytes to outputPath (spec.md §4.3.2).
func runRead(user, filename, outputPath string, errorP int) error {
	log := obslog.Component("client")

	mgr, err := newMgrClient()
	if err != nil {
		return err
	}

	desc, err := mgr.Read(user, filename)
	if err != nil {
		return err
	}

	engine, err := striping.NewEngine(desc.DSSDescriptor, log)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	data, err := engine.Read(filename, desc.Size, striping.ReadOptions{ErrorP: errorP, Rand: rng})
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("client: write %s: %w", outputPath, err)
	}
	fmt.Printf("read %s (%d bytes) to %s\n", filename, len(data), outputPath)
	return nil
}

// runDiskFailure simulates a single-disk loss on dssName and reconstructs
// every file the DSS holds (spec.md §4.3.3).
func runDiskFailure(dssName string) error {
	log := obslog.Component("client")

	mgr, err := newMgrClient()
	if err != nil {
		return err
	}

	desc, err := mgr.DiskFailure(dssName)
	if err != nil {
		return err
	}

	engine, err := striping.NewEngine(desc.DSSDescriptor, log)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	failed, err := engine.Reconstruct(desc.Files, rng)
	if err != nil {
		return err
	}

	if err := mgr.RecoveryComplete(dssName); err != nil {
		return fmt.Errorf("client: recovery-complete: %w", err)
	}
	fmt.Printf("reconstructed drive %d of DSS %s across %d files\n", failed, dssName, len(desc.Files))
	return nil
}

// runDecommission tears dssName down: deletes every node's local files,
// then commits the teardown via decommission-complete (spec.md §4.3.4).
func runDecommission(dssName string) error {
	log := obslog.Component("client")

	mgr, err := newMgrClient()
	if err != nil {
		return err
	}

	result, err := mgr.DecommissionDSS(dssName)
	if err != nil {
		return err
	}

	engine, err := striping.NewEngine(result.Descriptor, log)
	if err != nil {
		return err
	}
	if err := engine.Decommission(dssName); err != nil {
		return err
	}

	if err := mgr.CompleteDecommission(result.TxID); err != nil {
		return fmt.Errorf("client: decommission-complete: %w", err)
	}
	fmt.Printf("decommissioned DSS %s\n", dssName)
	return nil
}
