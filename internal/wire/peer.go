package wire

import (
	"bytes"
	"fmt"
	"strconv"
)

// Role identifies a block's function within its stripe.
type Role string

const (
	RoleData   Role = "data"
	RoleParity Role = "parity"
)

// Peer verbs, the only grammar a storage node's data-plane endpoint accepts.
const (
	VerbWrite  = "WRITE"
	VerbRead   = "READ"
	VerbFail   = "FAIL"
	VerbDelete = "DELETE"
)

// Peer replies that are not a raw block payload.
const (
	ReplyBlockNotFound = "BLOCK NOT FOUND"
	ReplyFailComplete  = "fail-complete"
)

var space = []byte(" ")

// PeerVerb returns the first whitespace-delimited token of a peer datagram,
// without touching the rest of the buffer. Used to dispatch before the
// verb-specific decoder runs.
func PeerVerb(data []byte) string {
	idx := bytes.IndexByte(data, ' ')
	if idx < 0 {
		return string(bytes.TrimRight(data, "\r\n"))
	}
	return string(data[:idx])
}

// EncodeWrite builds a WRITE datagram. The payload is appended verbatim
// after the fourth space; callers must ensure it is exactly the DSS's
// striping unit in length — this package does not enforce block size.
func EncodeWrite(file string, stripe int, role Role, payload []byte) []byte {
	head := fmt.Sprintf("%s %s %d %s ", VerbWrite, file, stripe, role)
	buf := make([]byte, 0, len(head)+len(payload))
	buf = append(buf, head...)
	buf = append(buf, payload...)
	return buf
}

// DecodeWrite splits a WRITE datagram into its four header tokens plus the
// raw remainder. It never re-tokenizes the payload: bytes.SplitN with n=5
// stops after the fourth separator, exactly mirroring the reference
// implementation's data.split(b' ', 4).
func DecodeWrite(data []byte) (file string, stripe int, role Role, payload []byte, err error) {
	parts := bytes.SplitN(data, space, 5)
	if len(parts) != 5 || string(parts[0]) != VerbWrite {
		return "", 0, "", nil, fmt.Errorf("wire: malformed WRITE datagram")
	}
	stripe, err = strconv.Atoi(string(parts[2]))
	if err != nil {
		return "", 0, "", nil, fmt.Errorf("wire: bad stripe index: %w", err)
	}
	role = Role(parts[3])
	if role != RoleData && role != RoleParity {
		return "", 0, "", nil, fmt.Errorf("wire: unknown block role %q", parts[3])
	}
	return string(parts[1]), stripe, role, parts[4], nil
}

// EncodeRead builds a READ datagram.
func EncodeRead(file string, stripe, drive int) []byte {
	return []byte(fmt.Sprintf("%s %s %d %d", VerbRead, file, stripe, drive))
}

// DecodeRead parses a READ datagram's four ASCII tokens.
func DecodeRead(data []byte) (file string, stripe, drive int, err error) {
	parts := bytes.SplitN(data, space, 4)
	if len(parts) != 4 || string(parts[0]) != VerbRead {
		return "", 0, 0, fmt.Errorf("wire: malformed READ datagram")
	}
	stripe, err = strconv.Atoi(string(parts[2]))
	if err != nil {
		return "", 0, 0, fmt.Errorf("wire: bad stripe index: %w", err)
	}
	drive, err = strconv.Atoi(string(parts[3]))
	if err != nil {
		return "", 0, 0, fmt.Errorf("wire: bad drive index: %w", err)
	}
	return string(parts[1]), stripe, drive, nil
}

// EncodeFail builds a FAIL datagram; it carries no operands.
func EncodeFail() []byte {
	return []byte(VerbFail)
}

// EncodeDelete builds a DELETE datagram naming the DSS whose files should be
// dropped.
func EncodeDelete(dssName string) []byte {
	return []byte(fmt.Sprintf("%s %s", VerbDelete, dssName))
}

// DecodeDelete parses a DELETE datagram.
func DecodeDelete(data []byte) (dssName string, err error) {
	parts := bytes.SplitN(data, space, 2)
	if len(parts) != 2 || string(parts[0]) != VerbDelete {
		return "", fmt.Errorf("wire: malformed DELETE datagram")
	}
	return string(parts[1]), nil
}
