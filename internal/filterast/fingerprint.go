package filterast

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint computes a stable signature over the canonicalized AST: a
// hex-encoded SHA-256 of its canonical JSON form. Two expressions that are
// semantically equivalent under And/Or reordering and case-folding produce
// the same fingerprint, matching spec.md §4.4 and the sync/derivation
// checkpoint compatibility check of spec.md §8 invariant 5.
func Fingerprint(e Expr) string {
	canon := Canonicalize(Simplify(e))
	sum := sha256.Sum256([]byte(canon.String()))
	return hex.EncodeToString(sum[:])
}
