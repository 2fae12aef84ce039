// Package netutil provides the thin UDP transport helpers every component
// sends and receives datagrams through: a single, shared place that owns
// socket configuration (buffer sizes, per-datagram timeouts) so the
// protocol packages above it only deal in byte slices.
package netutil
