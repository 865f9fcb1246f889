package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainProgram prefixes program keys. The version suffix tracks EncodingVersion.
const DomainProgram = "brahma/program/v" + EncodingVersion

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Key computes the structural program key of k for a backend.
//
// The key depends only on range dims, parameter kinds, body structure and
// backend. Two kernels built independently with the same shape get the same
// key regardless of their names.
func Key(k *Kernel, backend string) (string, error) {
	kernel, err := Encode(k)
	if err != nil {
		return "", fmt.Errorf("Key: %w", err)
	}
	canonical, err := MarshalCanonical(Object{
		"backend": String(backend),
		"kernel":  kernel,
	})
	if err != nil {
		return "", fmt.Errorf("Key: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainProgram, canonical), nil
}

// MustKey is like Key but panics on error.
// Use only in tests or when the kernel is known to be valid.
func MustKey(k *Kernel, backend string) string {
	key, err := Key(k, backend)
	if err != nil {
		panic(err)
	}
	return key
}
