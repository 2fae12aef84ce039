// Package wire implements the textual-plus-binary datagram framing shared by
// the manager control plane and the storage node data plane. Every message
// in the system is exactly one UDP datagram; this package only encodes and
// decodes byte slices — it never touches a socket.
//
// Two distinct grammars live here:
//
//   - The manager protocol (manager.go): space-separated ASCII tokens in,
//     textual replies out ("SUCCESS", "SUCCESS\n<payload>", a descriptor
//     string, or "FAILURE[: reason]").
//   - The peer protocol (peer.go): the first four whitespace-separated
//     tokens of a WRITE are parsed, and everything after the fourth ASCII
//     space is taken verbatim as the block payload — it is never
//     re-tokenized, because it may contain arbitrary bytes including
//     spaces and newlines.
package wire
