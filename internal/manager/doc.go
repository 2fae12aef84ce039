// Package manager implements the DSS metadata authority: the registries of
// users, storage nodes, and distributed storage systems, and the
// single-threaded request/reply loop that serves the manager's textual
// verbs (spec.md §4.2). It is the control-plane half of the system; the
// client's internal/striping engine performs the matching data-plane
// operations directly against storage nodes named in the manager's
// replies.
package manager
