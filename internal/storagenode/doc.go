// Package storagenode implements the storage node: the in-memory block
// store and the peer endpoint that serves WRITE/READ/FAIL/DELETE requests
// from the client's striping engine (spec.md §4.1).
//
// A node holds no durable state (spec.md Non-goals) — everything lives in
// a Store guarded by a mutex, keyed by (filename, stripe) → {role,
// bytes} rather than a flat string key, since the RAID-5 layer needs to
// address individual blocks within a file.
package storagenode
