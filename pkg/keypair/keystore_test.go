package keypair_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/cosigner/pkg/keypair"
)

const password = "password"

func TestKeystore(t *testing.T) {
	key, err := keypair.New()
	require.NoError(t, err)

	t.Run("encrypt_decrypt", func(t *testing.T) {
		encrypted, err := keypair.Encrypt(key, password)
		require.NoError(t, err)
		require.Equal(t, key.PublicKey().String(), encrypted.PublicKey)

		decrypted, err := keypair.Decrypt(encrypted, password)
		require.NoError(t, err)
		require.Equal(t, key, decrypted)

		decrypted, err = keypair.Decrypt(encrypted, "wrong")
		require.ErrorIs(t, err, keypair.ErrInvalidPassword)
		require.Nil(t, decrypted)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "key.enc.json")
		require.NoError(t, keypair.SaveEncrypted(path, key, password))

		loaded, err := keypair.LoadEncrypted(path, password)
		require.NoError(t, err)
		require.Equal(t, key.PublicKey(), loaded.PublicKey())
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := keypair.Encrypt(key, "")
		require.ErrorIs(t, err, keypair.ErrMissingPassword)

		encrypted, err := keypair.Encrypt(key, password)
		require.NoError(t, err)
		encrypted.Crypto.Nonce = "zz"
		_, err = keypair.Decrypt(encrypted, password)
		require.ErrorIs(t, err, keypair.ErrMalformedKeyFile)
	})
}
