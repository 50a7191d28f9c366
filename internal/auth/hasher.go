// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"

	"github.com/samber/oops"
	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2-HMAC-SHA512 parameters.
const (
	PBKDF2Iterations = 600_000
	SaltLength       = 32
	CredentialLength = sha512.Size // 64 bytes
)

// Credential is a derived password hash and the salt it was derived with.
type Credential struct {
	Salt []byte
	Hash []byte
}

// CredentialHasher derives and verifies password hashes.
type CredentialHasher interface {
	// Derive hashes password with salt. A nil salt generates a fresh random one.
	Derive(password string, salt []byte) (Credential, error)

	// Verify re-derives with salt and compares against expected in constant time.
	Verify(password string, salt, expected []byte) bool
}

// PBKDF2Hasher implements CredentialHasher with PBKDF2-HMAC-SHA512.
type PBKDF2Hasher struct {
	iterations int
}

// NewPBKDF2Hasher creates a hasher using PBKDF2Iterations rounds.
func NewPBKDF2Hasher() *PBKDF2Hasher {
	return &PBKDF2Hasher{iterations: PBKDF2Iterations}
}

// Derive hashes the password. Empty passwords are hashed as-is; policy is the caller's job.
func (h *PBKDF2Hasher) Derive(password string, salt []byte) (Credential, error) {
	if salt == nil {
		salt = make([]byte, SaltLength)
		if _, err := rand.Read(salt); err != nil {
			return Credential{}, oops.Code("AUTH_SALT_FAILED").
				With("operation", "crypto/rand.Read").
				With("requested_bytes", SaltLength).
				Wrap(err)
		}
	}

	hash := pbkdf2.Key([]byte(password), salt, h.iterations, CredentialLength, sha512.New)
	return Credential{Salt: salt, Hash: hash}, nil
}

// Verify checks the password against expected.
func (h *PBKDF2Hasher) Verify(password string, salt, expected []byte) bool {
	computed := pbkdf2.Key([]byte(password), salt, h.iterations, CredentialLength, sha512.New)
	return subtle.ConstantTimeCompare(computed, expected) == 1
}

// Compile-time interface check.
var _ CredentialHasher = (*PBKDF2Hasher)(nil)
