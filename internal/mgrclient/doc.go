// Package mgrclient is the client side of the manager's textual protocol:
// one method per verb in spec.md §4.2, each opening its own UDP
// round-trip and parsing the reply into typed results or an error.
package mgrclient
