// Command node runs a storage node: the in-memory block store and the
// peer endpoint that serves WRITE/READ/FAIL/DELETE requests from a
// client's striping engine (spec.md §4.1), plus a management endpoint for
// textual administrative commands (out of core).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dreamware/dssraid/internal/cliutil"
	"github.com/dreamware/dssraid/internal/netutil"
	"github.com/dreamware/dssraid/internal/obslog"
	"github.com/dreamware/dssraid/internal/storagenode"
)

var (
	logLevel string
	logJSON  bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "node <mgmt-port> <peer-port>",
	Short: "Run a storage node",
	Args:  cobra.ExactArgs(2),
	RunE:  runNode,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Output logs in JSON format")
}

func runNode(cmd *cobra.Command, args []string) error {
	obslog.Init(obslog.Config{Level: logLevel, JSON: logJSON})
	log := obslog.Component("node")

	mport, err := cliutil.ParsePort(args[0])
	if err != nil {
		return err
	}
	cport, err := cliutil.ParsePort(args[1])
	if err != nil {
		return err
	}
	if mport == cport {
		return fmt.Errorf("management and peer ports must differ")
	}

	mgmtConn, err := netutil.Listen(mport)
	if err != nil {
		return fmt.Errorf("node: management endpoint: %w", err)
	}
	defer mgmtConn.Close()

	peerConn, err := netutil.Listen(cport)
	if err != nil {
		return fmt.Errorf("node: peer endpoint: %w", err)
	}
	defer peerConn.Close()

	store := storagenode.NewStore()
	mgmt := storagenode.NewManagementEndpoint(mgmtConn, log)
	peer := storagenode.NewServer(peerConn, store, log)

	ctx := context.Background()
	errCh := make(chan error, 2)
	go func() { errCh <- mgmt.Serve(ctx) }()
	go func() { errCh <- peer.Serve(ctx) }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	log.Info().Int("management_port", mport).Int("peer_port", cport).Msg("node listening")

	select {
	case <-stop:
		log.Info().Msg("node stopping")
		mgmtConn.Close()
		peerConn.Close()
		<-errCh
		<-errCh
	case err := <-errCh:
		return fmt.Errorf("node: %w", err)
	}
	return nil
}
