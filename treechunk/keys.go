package treechunk

import (
	"crypto/hmac"
	"crypto/sha256"
)

// KeySize is the width of every derived key used by this package.
const KeySize = 16

// deriveKey computes first16(HMAC-SHA256(secret, label)), the keyed
// derivation used throughout the repository for both the intro key
// (from the caller's unlock key) and the layer key (from the hashed
// repo key).
func deriveKey(secret []byte, label string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(label))
	return mac.Sum(nil)[:KeySize]
}

// IntroKey derives the key that encrypts the intro chunk from the
// caller-supplied unlock key.
func IntroKey(unlockKey []byte) []byte {
	return deriveKey(unlockKey, "intro")
}

// HashRepoKey reduces a caller-supplied repository secret to the
// 16-byte repo_key stored (in the clear, inside the encrypted intro)
// alongside the repository's parameters.
func HashRepoKey(repoKeyRaw []byte) []byte {
	sum := sha256.Sum256(repoKeyRaw)
	return sum[:KeySize]
}

// LayerKey derives the key that encrypts every non-intro chunk from
// the repo key recovered from (or about to be written into) the intro.
func LayerKey(repoKey []byte) []byte {
	return deriveKey(repoKey, "layer")
}
