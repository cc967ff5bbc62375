package keypair

import "errors"

var (
	ErrMissingSecretKey       = errors.New("missing secret key")
	ErrInvalidSecretKeyLength = errors.New("secret key must be 64 bytes long")
	ErrInvalidSecretKey       = errors.New("secret key does not match its public key")
	ErrInvalidMnemonic        = errors.New("invalid mnemonic")
	ErrInvalidEntropySize     = errors.New("entropy size must be 128 or 256")
	ErrMissingPassword        = errors.New("missing password")
	ErrInvalidPassword        = errors.New("invalid password")
	ErrMalformedKeyFile       = errors.New("malformed encrypted key file")
)
