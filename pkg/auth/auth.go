// Package auth provides Marvel API credentials and per-request signatures.
package auth

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"os"
)

// Environment variables holding the API key pair.
const (
	EnvPublicKey  = "PUBLIC_KEY"
	EnvPrivateKey = "PRIVATE_KEY"
)

// ErrMissingCredentials is returned when one or both API keys are not set.
var ErrMissingCredentials = errors.New("missing credentials: PUBLIC_KEY and PRIVATE_KEY must be set")

// Credentials holds the Marvel API key pair. Loaded once at startup and
// immutable for the process lifetime.
type Credentials struct {
	PublicKey  string
	PrivateKey string
}

// FromEnv loads the key pair from the environment. It fails before any
// network call is made, so a misconfigured process never reaches the API.
func FromEnv() (Credentials, error) {
	creds := Credentials{
		PublicKey:  os.Getenv(EnvPublicKey),
		PrivateKey: os.Getenv(EnvPrivateKey),
	}
	if creds.PublicKey == "" || creds.PrivateKey == "" {
		return Credentials{}, ErrMissingCredentials
	}
	return creds, nil
}

// Sign computes the request signature for a timestamp: the hex MD5 digest
// of ts + privateKey + publicKey. The Marvel API mandates both the hash
// family and this exact concatenation order; any deviation is rejected as
// unauthenticated.
func (c Credentials) Sign(ts string) string {
	sum := md5.Sum([]byte(ts + c.PrivateKey + c.PublicKey))
	return hex.EncodeToString(sum[:])
}
