// Package cliutil holds the positional-argument validation shared by the
// manager, node, and client command-line entry points (spec.md §6: port
// numbers must lie in [13100, 13199] and IP arguments must parse as IPv4
// or IPv6 literals).
package cliutil
