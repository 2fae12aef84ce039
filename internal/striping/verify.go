package striping

import "bytes"

// VerifyAgainstOriginal is a diagnostic, not part of the read contract
// (spec.md §4.3.2): it compares a reconstructed file against the original
// bytes, the in-process equivalent of the reference client's `diff`
// subprocess call. It exists purely for test harnesses and interactive
// verification.
func VerifyAgainstOriginal(reconstructed, original []byte) bool {
	return bytes.Equal(reconstructed, original)
}
