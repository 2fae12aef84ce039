// Package striping implements the RAID-5 block-interleaved distributed
// parity engine: the geometry math, parity computation, and the client-side
// write/read/reconstruct/decommission operations that drive it across a
// DSS's storage nodes.
package striping
