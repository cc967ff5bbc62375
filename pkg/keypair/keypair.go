// Package keypair loads and stores the ed25519 keypairs of the parties of a
// two-party intent. Keys are plain solana.PrivateKey values, so they can be
// used wherever a signer is expected.
package keypair

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// New returns a random keypair.
func New() (solana.PrivateKey, error) {
	return solana.NewRandomPrivateKey()
}

// FromJSON parses the JSON array of 64 bytes format used by the solana CLI
// key files and by the SECRET_KEY env vars.
func FromJSON(data []byte) (solana.PrivateKey, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrMissingSecretKey
	}
	var list []byte
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return nil, fmt.Errorf("invalid secret key format: %s", err)
	}
	for _, n := range ints {
		if n < 0 || n > 255 {
			return nil, fmt.Errorf("invalid secret key format: byte %d out of range", n)
		}
		list = append(list, byte(n))
	}
	return fromBytes(list)
}

// ToJSON is the inverse of FromJSON.
func ToJSON(key solana.PrivateKey) ([]byte, error) {
	ints := make([]int, 0, len(key))
	for _, b := range key {
		ints = append(ints, int(b))
	}
	return json.Marshal(ints)
}

func FromBase58(str string) (solana.PrivateKey, error) {
	str = strings.TrimSpace(str)
	if str == "" {
		return nil, ErrMissingSecretKey
	}
	buf, err := base58.Decode(str)
	if err != nil {
		return nil, fmt.Errorf("invalid secret key format: %s", err)
	}
	return fromBytes(buf)
}

func ToBase58(key solana.PrivateKey) string {
	return base58.Encode(key)
}

// Parse accepts either the JSON array or the base58 encoding of a secret key.
func Parse(str string) (solana.PrivateKey, error) {
	str = strings.TrimSpace(str)
	if strings.HasPrefix(str, "[") {
		return FromJSON([]byte(str))
	}
	return FromBase58(str)
}

// FromEnv parses the secret key held by the given env var.
func FromEnv(name string) (solana.PrivateKey, error) {
	value, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("%w: add %s to the environment", ErrMissingSecretKey, name)
	}
	return Parse(value)
}

// FromFile reads a solana CLI key file.
func FromFile(path string) (solana.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

// WriteFile stores the key in the solana CLI format, readable only by the
// owner.
func WriteFile(path string, key solana.PrivateKey) error {
	data, err := ToJSON(key)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func fromBytes(buf []byte) (solana.PrivateKey, error) {
	if len(buf) != ed25519.PrivateKeySize {
		return nil, ErrInvalidSecretKeyLength
	}
	key := solana.PrivateKey(buf)
	derived := ed25519.NewKeyFromSeed(buf[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], buf[ed25519.SeedSize:]) {
		return nil, ErrInvalidSecretKey
	}
	return key, nil
}
