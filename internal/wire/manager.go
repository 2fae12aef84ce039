package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// Manager verbs.
const (
	VerbRegisterUser      = "register-user"
	VerbRegisterDisk      = "register-disk"
	VerbDeregisterUser    = "deregister-user"
	VerbDeregisterDisk    = "deregister-disk"
	VerbConfigureDSS      = "configure-dss"
	VerbLs                = "ls"
	VerbCopy              = "copy"
	VerbCopyComplete      = "copy-complete"
	VerbRead              = "read"
	VerbDiskFailure       = "disk-failure"
	VerbDecommissionDSS   = "decommission-dss"
	VerbRecoveryComplete  = "recovery-complete"
	VerbDecommissionDone  = "decommission-complete"
)

// ManagerRequest is a parsed manager datagram: a verb plus its positional
// arguments, tokenized on ASCII whitespace. The manager protocol never
// carries binary payloads, so plain field-splitting is exact.
type ManagerRequest struct {
	Verb string
	Args []string
}

// ParseManagerRequest tokenizes a manager datagram. An empty or
// whitespace-only datagram yields a ManagerRequest with an empty Verb,
// which callers should treat as an unknown command.
func ParseManagerRequest(data []byte) ManagerRequest {
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return ManagerRequest{}
	}
	return ManagerRequest{Verb: fields[0], Args: fields[1:]}
}

// Success is the bare textual reply for a verb that carries no payload.
func Success() string { return "SUCCESS" }

// SuccessPayload wraps payload lines under a SUCCESS header, per §6's
// "SUCCESS\n<payload-lines>" reply shape.
func SuccessPayload(lines ...string) string {
	if len(lines) == 0 {
		return Success()
	}
	return "SUCCESS\n" + strings.Join(lines, "\n")
}

// Failure formats a textual failure reply. An empty reason yields the bare
// "FAILURE" spec.md §6 allows.
func Failure(reason string) string {
	if reason == "" {
		return "FAILURE"
	}
	return "FAILURE: " + reason
}

// IsFailure reports whether a manager reply is a failure reply.
func IsFailure(reply string) bool {
	return reply == "FAILURE" || strings.HasPrefix(reply, "FAILURE:")
}

// DiskEndpoint names one storage node's address as carried in a DSS
// descriptor: name, IP, and client (peer) port — the triple the client
// needs to talk to it directly.
type DiskEndpoint struct {
	Name string
	IP   string
	Port int
}

// DSSDescriptor is the information the manager hands the client so it can
// perform a data-plane operation directly against the storage nodes.
type DSSDescriptor struct {
	Name         string
	NumDrives    int
	StripingUnit int
	Disks        []DiskEndpoint
	// TxID correlates this descriptor's phase-1 reply with the client's
	// follow-up *-complete message, strengthening the positional
	// sender-address correlation the base protocol relies on (spec.md §9).
	TxID string
}

// EncodeDSSDescriptor renders the descriptor as used by copy and
// decommission-dss: "<name> <n> <S> <disk1> <ip1> <cport1> ... <txid>".
func EncodeDSSDescriptor(d DSSDescriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d %d", d.Name, d.NumDrives, d.StripingUnit)
	for _, disk := range d.Disks {
		fmt.Fprintf(&b, " %s %s %d", disk.Name, disk.IP, disk.Port)
	}
	if d.TxID != "" {
		fmt.Fprintf(&b, " %s", d.TxID)
	}
	return b.String()
}

// DecodeDSSDescriptor parses the descriptor shape produced by
// EncodeDSSDescriptor. Trailing token count tells us whether a TxID is
// present: 3 + 3*n tokens means no TxID, 3 + 3*n + 1 means one is.
func DecodeDSSDescriptor(s string) (DSSDescriptor, error) {
	fields := strings.Fields(s)
	if len(fields) < 3 {
		return DSSDescriptor{}, fmt.Errorf("wire: truncated DSS descriptor")
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return DSSDescriptor{}, fmt.Errorf("wire: bad drive count: %w", err)
	}
	su, err := strconv.Atoi(fields[2])
	if err != nil {
		return DSSDescriptor{}, fmt.Errorf("wire: bad striping unit: %w", err)
	}

	want := 3 + 3*n
	txID := ""
	switch len(fields) {
	case want:
	case want + 1:
		txID = fields[want]
	default:
		return DSSDescriptor{}, fmt.Errorf("wire: expected %d or %d fields, got %d", want, want+1, len(fields))
	}

	disks := make([]DiskEndpoint, 0, n)
	for i := 0; i < n; i++ {
		base := 3 + i*3
		port, err := strconv.Atoi(fields[base+2])
		if err != nil {
			return DSSDescriptor{}, fmt.Errorf("wire: bad port for disk %d: %w", i, err)
		}
		disks = append(disks, DiskEndpoint{Name: fields[base], IP: fields[base+1], Port: port})
	}

	return DSSDescriptor{Name: fields[0], NumDrives: n, StripingUnit: su, Disks: disks, TxID: txID}, nil
}

// ReadDescriptor is the reply to a `read` request: the declared file size
// prefixed onto a DSS descriptor, per spec.md §4.2.
type ReadDescriptor struct {
	Size int64
	DSSDescriptor
}

// EncodeReadDescriptor renders "<size> <dssname> <n> <S> <disk1> ...".
func EncodeReadDescriptor(size int64, d DSSDescriptor) string {
	return fmt.Sprintf("%d %s", size, EncodeDSSDescriptor(d))
}

// DecodeReadDescriptor parses the shape produced by EncodeReadDescriptor.
func DecodeReadDescriptor(s string) (ReadDescriptor, error) {
	fields := strings.Fields(s)
	if len(fields) < 1 {
		return ReadDescriptor{}, fmt.Errorf("wire: empty read descriptor")
	}
	size, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return ReadDescriptor{}, fmt.Errorf("wire: bad file size: %w", err)
	}
	rest := strings.Join(fields[1:], " ")
	d, err := DecodeDSSDescriptor(rest)
	if err != nil {
		return ReadDescriptor{}, err
	}
	return ReadDescriptor{Size: size, DSSDescriptor: d}, nil
}

// DiskFailureDescriptor is the reply to `disk-failure`: a DSS descriptor
// followed by the list of files the client must reconstruct. Decommission
// has no equivalent file list, since a blanket DELETE needs no per-file
// detail, so the two reply shapes are kept deliberately distinct.
type DiskFailureDescriptor struct {
	DSSDescriptor
	Files []string
}

// EncodeDiskFailureDescriptor appends the file list after the descriptor.
// A TxID set on d would sit between the disk list and the files;
// DecodeDiskFailureDescriptor assumes none and would read it as a file name.
func EncodeDiskFailureDescriptor(d DSSDescriptor, files []string) string {
	parts := []string{EncodeDSSDescriptor(d)}
	parts = append(parts, files...)
	return strings.Join(parts, " ")
}

// DecodeDiskFailureDescriptor parses the shape produced by
// EncodeDiskFailureDescriptor. disk-failure never assigns a TxID (it is not
// a two-phase commit), so the descriptor's prefix is always exactly
// 3 + 3*n tokens; everything after is the file list.
func DecodeDiskFailureDescriptor(s string) (DiskFailureDescriptor, error) {
	fields := strings.Fields(s)
	if len(fields) < 3 {
		return DiskFailureDescriptor{}, fmt.Errorf("wire: truncated disk-failure descriptor")
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return DiskFailureDescriptor{}, fmt.Errorf("wire: bad drive count: %w", err)
	}

	prefixLen := 3 + 3*n
	if len(fields) < prefixLen {
		return DiskFailureDescriptor{}, fmt.Errorf("wire: expected at least %d fields, got %d", prefixLen, len(fields))
	}

	d, err := DecodeDSSDescriptor(strings.Join(fields[:prefixLen], " "))
	if err != nil {
		return DiskFailureDescriptor{}, err
	}
	files := append([]string{}, fields[prefixLen:]...)
	return DiskFailureDescriptor{DSSDescriptor: d, Files: files}, nil
}
