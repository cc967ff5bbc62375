package keypair

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	keystoreVersion = 1
	kdfName         = "scrypt"
	cipherName      = "nacl-secretbox"

	scryptN     = 1 << 15
	scryptR     = 8
	scryptP     = 1
	scryptDKLen = 32
	saltLen     = 32
	nonceLen    = 24
)

// EncryptedKey is the JSON layout of a password protected key file.
type EncryptedKey struct {
	Version   int       `json:"version"`
	PublicKey string    `json:"public_key"`
	Crypto    KeyCrypto `json:"crypto"`
}

type KeyCrypto struct {
	Cipher     string    `json:"cipher"`
	CipherText string    `json:"ciphertext"`
	Nonce      string    `json:"nonce"`
	KDF        string    `json:"kdf"`
	KDFParams  KDFParams `json:"kdfparams"`
}

type KDFParams struct {
	N     int    `json:"n"`
	R     int    `json:"r"`
	P     int    `json:"p"`
	DKLen int    `json:"dklen"`
	Salt  string `json:"salt"`
}

// Encrypt seals the key with a key derived from password with scrypt.
func Encrypt(key solana.PrivateKey, password string) (*EncryptedKey, error) {
	if len(password) == 0 {
		return nil, ErrMissingPassword
	}
	if len(key) != 64 {
		return nil, ErrInvalidSecretKeyLength
	}

	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	var nonce [nonceLen]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}
	secret, err := deriveKey(password, salt, scryptN, scryptR, scryptP)
	if err != nil {
		return nil, err
	}

	ciphertext := secretbox.Seal(nil, key, &nonce, secret)
	return &EncryptedKey{
		Version:   keystoreVersion,
		PublicKey: key.PublicKey().String(),
		Crypto: KeyCrypto{
			Cipher:     cipherName,
			CipherText: hex.EncodeToString(ciphertext),
			Nonce:      hex.EncodeToString(nonce[:]),
			KDF:        kdfName,
			KDFParams: KDFParams{
				N:     scryptN,
				R:     scryptR,
				P:     scryptP,
				DKLen: scryptDKLen,
				Salt:  hex.EncodeToString(salt),
			},
		},
	}, nil
}

// Decrypt opens the key, failing with ErrInvalidPassword if it can't be
// authenticated.
func Decrypt(encrypted *EncryptedKey, password string) (solana.PrivateKey, error) {
	if len(password) == 0 {
		return nil, ErrMissingPassword
	}
	if err := encrypted.validate(); err != nil {
		return nil, err
	}

	params := encrypted.Crypto.KDFParams
	salt, _ := hex.DecodeString(params.Salt)
	ciphertext, _ := hex.DecodeString(encrypted.Crypto.CipherText)
	var nonce [nonceLen]byte
	buf, _ := hex.DecodeString(encrypted.Crypto.Nonce)
	copy(nonce[:], buf)

	secret, err := deriveKey(password, salt, params.N, params.R, params.P)
	if err != nil {
		return nil, err
	}
	plaintext, ok := secretbox.Open(nil, ciphertext, &nonce, secret)
	if !ok {
		return nil, ErrInvalidPassword
	}

	key, err := fromBytes(plaintext)
	if err != nil {
		return nil, err
	}
	if encrypted.PublicKey != "" && key.PublicKey().String() != encrypted.PublicKey {
		return nil, ErrMalformedKeyFile
	}
	return key, nil
}

// SaveEncrypted writes the key to path encrypted with password.
func SaveEncrypted(path string, key solana.PrivateKey, password string) error {
	encrypted, err := Encrypt(key, password)
	if err != nil {
		return err
	}
	buf, err := json.MarshalIndent(encrypted, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0600)
}

// LoadEncrypted reads and decrypts a key file written by SaveEncrypted.
func LoadEncrypted(path, password string) (solana.PrivateKey, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	encrypted := &EncryptedKey{}
	if err := json.Unmarshal(buf, encrypted); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedKeyFile, err)
	}
	return Decrypt(encrypted, password)
}

func (k *EncryptedKey) validate() error {
	if k.Version != keystoreVersion ||
		k.Crypto.Cipher != cipherName || k.Crypto.KDF != kdfName {
		return ErrMalformedKeyFile
	}
	if k.Crypto.KDFParams.DKLen != scryptDKLen {
		return ErrMalformedKeyFile
	}
	for _, str := range []string{
		k.Crypto.CipherText, k.Crypto.Nonce, k.Crypto.KDFParams.Salt,
	} {
		if _, err := hex.DecodeString(str); err != nil {
			return ErrMalformedKeyFile
		}
	}
	if len(k.Crypto.Nonce) != nonceLen*2 {
		return ErrMalformedKeyFile
	}
	return nil
}

func deriveKey(password string, salt []byte, n, r, p int) (*[32]byte, error) {
	buf, err := scrypt.Key([]byte(password), salt, n, r, p, scryptDKLen)
	if err != nil {
		return nil, err
	}
	var key [32]byte
	copy(key[:], buf)
	return &key, nil
}
