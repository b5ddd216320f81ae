package docan

import "crypto/rand"

// SecurityAlgo is the registered key-derivation function for
// SecurityAccess (spec.md §3). Returning (nil, nil) means "no key
// required at this level" (accept); a non-nil key means "reply with key
// at level+1"; a non-nil error surfaces as SecurityAlgoError. Plain
// function value, not an interface, so it stays trivially Send-safe,
// grounded on the teacher's registered-extension-function pattern
// (Entry.AddExtension(object, read, write) in od_extensions.go).
type SecurityAlgo func(level uint8, seed, salt []byte) ([]byte, error)

// generateSeed produces seedLen random bytes for a SecurityAccess seed
// request. crypto/rand is the stdlib CSPRNG; no pack library covers
// "generate a diagnostic seed" more idiomatically.
func generateSeed(seedLen int) ([]byte, error) {
	seed := make([]byte, seedLen)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	return seed, nil
}

// XORSecurityAlgo is a minimal example SecurityAlgo suitable for bench
// setups and tests: the key is the seed XORed byte-wise with salt
// (repeated if shorter). It is not a production key-derivation scheme.
func XORSecurityAlgo(_ uint8, seed, salt []byte) ([]byte, error) {
	if len(salt) == 0 {
		return append([]byte(nil), seed...), nil
	}
	key := make([]byte, len(seed))
	for i := range seed {
		key[i] = seed[i] ^ salt[i%len(salt)]
	}
	return key, nil
}
