// Command client is the user-facing command driver: it issues manager
// verbs and, for copy/read/disk-failure/decommission-dss, performs the
// matching data-plane operation against storage nodes directly through
// internal/striping (spec.md §2).
package main

import (
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/dreamware/dssraid/internal/cliutil"
	"github.com/dreamware/dssraid/internal/mgrclient"
	"github.com/dreamware/dssraid/internal/netutil"
	"github.com/dreamware/dssraid/internal/obslog"
)

var (
	logLevel   string
	logJSON    bool
	managerHost string
	managerPort int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "client",
	Short: "Drive the DSS manager and storage nodes",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		obslog.Init(obslog.Config{Level: logLevel, JSON: logJSON})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringVar(&managerHost, "manager-host", "127.0.0.1", "Manager IP address")
	rootCmd.PersistentFlags().IntVar(&managerPort, "manager-port", 13100, "Manager port")

	rootCmd.AddCommand(
		registerUserCmd, registerDiskCmd, deregisterUserCmd, deregisterDiskCmd,
		configureDSSCmd, lsCmd,
		copyCmd, readCmd, diskFailureCmd, decommissionCmd,
	)
}

func mgrAddr() (*net.UDPAddr, error) {
	return netutil.ResolveEndpoint(managerHost, managerPort)
}

func newMgrClient() (*mgrclient.Client, error) {
	addr, err := mgrAddr()
	if err != nil {
		return nil, err
	}
	return mgrclient.New(addr, netutil.DefaultTimeout), nil
}

var registerUserCmd = &cobra.Command{
	Use:   "register-user <name> <ip> <mport> <cport>",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		mport, cport, err := parsePortPair(args[2], args[3])
		if err != nil {
			return err
		}
		if _, err := cliutil.ParseIP(args[1]); err != nil {
			return err
		}
		c, err := newMgrClient()
		if err != nil {
			return err
		}
		return c.RegisterUser(args[0], args[1], mport, cport)
	},
}

var registerDiskCmd = &cobra.Command{
	Use:   "register-disk <name> <ip> <mport> <cport>",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		mport, cport, err := parsePortPair(args[2], args[3])
		if err != nil {
			return err
		}
		if _, err := cliutil.ParseIP(args[1]); err != nil {
			return err
		}
		c, err := newMgrClient()
		if err != nil {
			return err
		}
		return c.RegisterDisk(args[0], args[1], mport, cport)
	},
}

var deregisterUserCmd = &cobra.Command{
	Use:  "deregister-user <name>",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newMgrClient()
		if err != nil {
			return err
		}
		return c.DeregisterUser(args[0])
	},
}

var deregisterDiskCmd = &cobra.Command{
	Use:  "deregister-disk <name>",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newMgrClient()
		if err != nil {
			return err
		}
		return c.DeregisterDisk(args[0])
	},
}

var configureDSSCmd = &cobra.Command{
	Use:  "configure-dss <name> <n> <striping-unit>",
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := parseInt(args[1])
		if err != nil {
			return err
		}
		su, err := parseInt(args[2])
		if err != nil {
			return err
		}
		c, err := newMgrClient()
		if err != nil {
			return err
		}
		return c.ConfigureDSS(args[0], n, su)
	},
}

var lsCmd = &cobra.Command{
	Use:  "ls",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newMgrClient()
		if err != nil {
			return err
		}
		lines, err := c.Ls()
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Println(line)
		}
		return nil
	},
}

var copyCmd = &cobra.Command{
	Use:  "copy <local-path> <dss-filename> <owner>",
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCopy(args[0], args[1], args[2])
	},
}

var readCmd = &cobra.Command{
	Use:  "read <user> <filename> <output-path>",
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		errorP, _ := cmd.Flags().GetInt("error-p")
		return runRead(args[0], args[1], args[2], errorP)
	},
}

var diskFailureCmd = &cobra.Command{
	Use:  "disk-failure <dss-name>",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiskFailure(args[0])
	},
}

var decommissionCmd = &cobra.Command{
	Use:  "decommission-dss <name>",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDecommission(args[0])
	},
}

func init() {
	readCmd.Flags().Int("error-p", 0, "Percentage chance [0,100] of injecting a single bit error per block per attempt")
}

func parsePortPair(a, b string) (int, int, error) {
	pa, err := cliutil.ParsePort(a)
	if err != nil {
		return 0, 0, err
	}
	pb, err := cliutil.ParsePort(b)
	if err != nil {
		return 0, 0, err
	}
	return pa, pb, nil
}

func parseInt(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return n, nil
}
