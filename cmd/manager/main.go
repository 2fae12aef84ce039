// Command manager runs the DSS metadata authority: the single-threaded
// registry of users, storage nodes, and distributed storage systems
// described in spec.md §4.2.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dreamware/dssraid/internal/cliutil"
	"github.com/dreamware/dssraid/internal/manager"
	"github.com/dreamware/dssraid/internal/netutil"
	"github.com/dreamware/dssraid/internal/obslog"
)

var (
	logLevel    string
	logJSON     bool
	metricsBind string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "manager <port>",
	Short: "Run the DSS manager",
	Args:  cobra.ExactArgs(1),
	RunE:  runManager,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Output logs in JSON format")
	rootCmd.Flags().StringVar(&metricsBind, "metrics-addr", ":9100", "Address to serve Prometheus metrics on")
}

func runManager(cmd *cobra.Command, args []string) error {
	obslog.Init(obslog.Config{Level: logLevel, JSON: logJSON})
	log := obslog.Component("manager")

	port, err := cliutil.ParsePort(args[0])
	if err != nil {
		return err
	}

	conn, err := netutil.Listen(port)
	if err != nil {
		return fmt.Errorf("manager: %w", err)
	}
	defer conn.Close()

	reg := prometheus.NewRegistry()
	manager.MustRegister(reg)
	registry := manager.NewRegistry(time.Now().UnixNano())
	collector := manager.NewCollector(registry, 15*time.Second)
	collector.Start()
	defer collector.Stop()

	go serveMetrics(metricsBind, reg, log)

	srv := manager.NewServer(conn, registry, log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	log.Info().Int("port", port).Msg("manager listening")

	select {
	case <-stop:
		log.Info().Msg("manager stopping")
		conn.Close()
		<-errCh
	case err := <-errCh:
		return fmt.Errorf("manager: %w", err)
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	s := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Warn().Err(err).Msg("metrics server stopped")
	}
}
