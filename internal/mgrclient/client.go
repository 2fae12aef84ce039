package mgrclient

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/dreamware/dssraid/internal/netutil"
	"github.com/dreamware/dssraid/internal/wire"
)

// Client talks to one manager over UDP. Every call opens a fresh dialed
// socket for its exchange, the same per-request connection discipline
// internal/netutil.Conn documents for the data plane.
type Client struct {
	managerAddr *net.UDPAddr
	timeout     time.Duration
}

// New returns a Client targeting the manager at addr, bounding every
// exchange by timeout.
func New(addr *net.UDPAddr, timeout time.Duration) *Client {
	return &Client{managerAddr: addr, timeout: timeout}
}

// ManagerError wraps a FAILURE reply from the manager.
type ManagerError struct {
	Reason string
}

func (e *ManagerError) Error() string {
	if e.Reason == "" {
		return "manager: request failed"
	}
	return "manager: " + e.Reason
}

// request sends payload and returns the manager's raw reply, translating
// a FAILURE reply into a *ManagerError.
func (c *Client) request(payload string, bufSize int) (string, error) {
	conn, err := netutil.Dial(c.managerAddr)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	reply, err := conn.RequestReply([]byte(payload), bufSize, c.timeout)
	if err != nil {
		return "", fmt.Errorf("mgrclient: %w", err)
	}
	text := string(reply)
	if wire.IsFailure(text) {
		return "", &ManagerError{Reason: strings.TrimPrefix(strings.TrimPrefix(text, "FAILURE:"), "FAILURE")}
	}
	return text, nil
}

// payloadLines strips the SUCCESS header from a SUCCESS\n<lines> reply.
func payloadLines(reply string) []string {
	lines := strings.Split(reply, "\n")
	if len(lines) == 0 {
		return nil
	}
	return lines[1:]
}

// RegisterUser issues register-user.
func (c *Client) RegisterUser(name, ip string, mport, cport int) error {
	_, err := c.request(fmt.Sprintf("%s %s %s %d %d", wire.VerbRegisterUser, name, ip, mport, cport), netutil.ControlBufferSize)
	return err
}

// RegisterDisk issues register-disk.
func (c *Client) RegisterDisk(name, ip string, mport, cport int) error {
	_, err := c.request(fmt.Sprintf("%s %s %s %d %d", wire.VerbRegisterDisk, name, ip, mport, cport), netutil.ControlBufferSize)
	return err
}

// DeregisterUser issues deregister-user.
func (c *Client) DeregisterUser(name string) error {
	_, err := c.request(fmt.Sprintf("%s %s", wire.VerbDeregisterUser, name), netutil.ControlBufferSize)
	return err
}

// DeregisterDisk issues deregister-disk.
func (c *Client) DeregisterDisk(name string) error {
	_, err := c.request(fmt.Sprintf("%s %s", wire.VerbDeregisterDisk, name), netutil.ControlBufferSize)
	return err
}

// ConfigureDSS issues configure-dss.
func (c *Client) ConfigureDSS(name string, n, stripingUnit int) error {
	_, err := c.request(fmt.Sprintf("%s %s %d %d", wire.VerbConfigureDSS, name, n, stripingUnit), netutil.ControlBufferSize)
	return err
}

// Ls issues ls and returns the raw payload lines (descriptor and file
// record lines interleaved per spec.md §4.2); formatting them for display
// is a CLI concern, out of scope here (spec.md §1).
func (c *Client) Ls() ([]string, error) {
	reply, err := c.request(wire.VerbLs, netutil.ControlBufferSize)
	if err != nil {
		return nil, err
	}
	return payloadLines(reply), nil
}

// CopyResult is the phase-1 reply to copy: the DSS descriptor the client
// strips its data plane against, plus the transaction id it must echo
// back in CompleteCopy.
type CopyResult struct {
	Descriptor wire.DSSDescriptor
	TxID       string
}

// Copy issues copy, staging a pending file record on the DSS the manager
// picked.
func (c *Client) Copy(filename string, size int64, owner string) (CopyResult, error) {
	reply, err := c.request(fmt.Sprintf("%s %s %d %s", wire.VerbCopy, filename, size, owner), netutil.ControlBufferSize)
	if err != nil {
		return CopyResult{}, err
	}
	lines := payloadLines(reply)
	if len(lines) != 1 {
		return CopyResult{}, fmt.Errorf("mgrclient: malformed copy reply")
	}
	d, err := wire.DecodeDSSDescriptor(lines[0])
	if err != nil {
		return CopyResult{}, err
	}
	return CopyResult{Descriptor: d, TxID: d.TxID}, nil
}

// CompleteCopy issues copy-complete, committing the file record staged by
// the matching Copy call.
func (c *Client) CompleteCopy(txID string) error {
	_, err := c.request(fmt.Sprintf("%s %s", wire.VerbCopyComplete, txID), netutil.ControlBufferSize)
	return err
}

// Read issues read.
func (c *Client) Read(user, filename string) (wire.ReadDescriptor, error) {
	reply, err := c.request(fmt.Sprintf("%s %s %s", wire.VerbRead, user, filename), netutil.ControlBufferSize)
	if err != nil {
		return wire.ReadDescriptor{}, err
	}
	lines := payloadLines(reply)
	if len(lines) != 1 {
		return wire.ReadDescriptor{}, fmt.Errorf("mgrclient: malformed read reply")
	}
	return wire.DecodeReadDescriptor(lines[0])
}

// DiskFailure issues disk-failure.
func (c *Client) DiskFailure(dssName string) (wire.DiskFailureDescriptor, error) {
	reply, err := c.request(fmt.Sprintf("%s %s", wire.VerbDiskFailure, dssName), netutil.ControlBufferSize)
	if err != nil {
		return wire.DiskFailureDescriptor{}, err
	}
	lines := payloadLines(reply)
	if len(lines) != 1 {
		return wire.DiskFailureDescriptor{}, fmt.Errorf("mgrclient: malformed disk-failure reply")
	}
	return wire.DecodeDiskFailureDescriptor(lines[0])
}

// RecoveryComplete issues recovery-complete once every file on the failed
// node has been rebuilt.
func (c *Client) RecoveryComplete(dssName string) error {
	_, err := c.request(fmt.Sprintf("%s %s", wire.VerbRecoveryComplete, dssName), netutil.ControlBufferSize)
	return err
}

// DecommissionResult is the phase-1 reply to decommission-dss.
type DecommissionResult struct {
	Descriptor wire.DSSDescriptor
	TxID       string
}

// DecommissionDSS issues decommission-dss.
func (c *Client) DecommissionDSS(name string) (DecommissionResult, error) {
	reply, err := c.request(fmt.Sprintf("%s %s", wire.VerbDecommissionDSS, name), netutil.ControlBufferSize)
	if err != nil {
		return DecommissionResult{}, err
	}
	lines := payloadLines(reply)
	if len(lines) != 1 {
		return DecommissionResult{}, fmt.Errorf("mgrclient: malformed decommission-dss reply")
	}
	d, err := wire.DecodeDSSDescriptor(lines[0])
	if err != nil {
		return DecommissionResult{}, err
	}
	return DecommissionResult{Descriptor: d, TxID: d.TxID}, nil
}

// CompleteDecommission issues decommission-complete.
func (c *Client) CompleteDecommission(txID string) error {
	_, err := c.request(fmt.Sprintf("%s %s", wire.VerbDecommissionDone, txID), netutil.ControlBufferSize)
	return err
}
