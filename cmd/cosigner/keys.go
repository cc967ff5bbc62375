package main

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"github.com/vulpemventures/cosigner/pkg/keypair"
)

var (
	keyOut        string
	keyMnemonic   string
	keyPassphrase string
	keyWithSeed   bool
	keyShowSecret bool

	keysNewCmd = &cobra.Command{
		Use:   "new",
		Short: "generate a new keypair",
		Long: "this command lets you generate a new random keypair, optionally " +
			"from a brand new seed phrase, and store it in a key file, " +
			"encrypted if --password is given",
		RunE: keysNew,
	}
	keysRecoverCmd = &cobra.Command{
		Use:   "recover",
		Short: "recover a keypair from a seed phrase",
		Long: "this command lets you recover the keypair derived from the " +
			"given seed phrase and optional passphrase",
		RunE: keysRecover,
	}
	keysShowCmd = &cobra.Command{
		Use:   "show",
		Short: "show the signer public key",
		Long: "this command prints the public key of the signer selected " +
			"with --key-file or --key-env",
		RunE: keysShow,
	}
	keysEncryptCmd = &cobra.Command{
		Use:   "encrypt",
		Short: "encrypt the signer key into a new key file",
		Long: "this command lets you store the signer key in a key file " +
			"encrypted with the given --password",
		RunE: keysEncrypt,
	}
	keysCmd = &cobra.Command{
		Use:   "keys",
		Short: "manage signer keypairs",
		Long: "this command lets you create, recover, inspect and encrypt " +
			"the keypairs used to sign intents",
	}
)

func init() {
	keysNewCmd.Flags().StringVar(
		&keyOut, "out", "", "path of the key file to create, printed if empty",
	)
	keysNewCmd.Flags().BoolVar(
		&keyWithSeed, "with-seed", false,
		"derive the keypair from a new seed phrase and print it",
	)
	keysNewCmd.Flags().StringVar(
		&keyPassphrase, "passphrase", "", "optional seed phrase passphrase",
	)

	keysRecoverCmd.Flags().StringVar(
		&keyMnemonic, "mnemonic", "", "space separated seed phrase",
	)
	keysRecoverCmd.Flags().StringVar(
		&keyPassphrase, "passphrase", "", "optional seed phrase passphrase",
	)
	keysRecoverCmd.Flags().StringVar(
		&keyOut, "out", "", "path of the key file to create, printed if empty",
	)
	keysRecoverCmd.MarkFlagRequired("mnemonic")

	keysShowCmd.Flags().BoolVar(
		&keyShowSecret, "secret", false, "print also the base58 secret key",
	)

	keysEncryptCmd.Flags().StringVar(
		&keyOut, "out", "", "path of the encrypted key file to create",
	)
	keysEncryptCmd.MarkFlagRequired("out")

	keysCmd.AddCommand(keysNewCmd, keysRecoverCmd, keysShowCmd, keysEncryptCmd)
}

func keysNew(_ *cobra.Command, _ []string) error {
	var (
		key      solana.PrivateKey
		mnemonic []string
		err      error
	)
	if keyWithSeed {
		mnemonic, err = keypair.NewMnemonic(keypair.NewMnemonicArgs{})
		if err != nil {
			return err
		}
		key, err = keypair.FromMnemonic(mnemonic, keyPassphrase)
	} else {
		key, err = keypair.New()
	}
	if err != nil {
		return err
	}

	reply := map[string]string{"public_key": key.PublicKey().String()}
	if len(mnemonic) > 0 {
		reply["mnemonic"] = strings.Join(mnemonic, " ")
	}
	if err := storeKey(key, reply); err != nil {
		return err
	}
	return printJSON(reply)
}

func keysRecover(_ *cobra.Command, _ []string) error {
	key, err := keypair.FromMnemonic(strings.Fields(keyMnemonic), keyPassphrase)
	if err != nil {
		return err
	}

	reply := map[string]string{"public_key": key.PublicKey().String()}
	if err := storeKey(key, reply); err != nil {
		return err
	}
	return printJSON(reply)
}

func keysShow(_ *cobra.Command, _ []string) error {
	key, err := loadSigner()
	if err != nil {
		return err
	}

	reply := map[string]string{"public_key": key.PublicKey().String()}
	if keyShowSecret {
		reply["secret_key"] = keypair.ToBase58(key)
	}
	return printJSON(reply)
}

func keysEncrypt(_ *cobra.Command, _ []string) error {
	key, err := loadSigner()
	if err != nil {
		return err
	}
	if keyPassword == "" {
		return keypair.ErrMissingPassword
	}

	path := cleanAndExpandPath(keyOut)
	if err := keypair.SaveEncrypted(path, key, keyPassword); err != nil {
		return err
	}
	fmt.Printf("key %s encrypted in %s\n", key.PublicKey(), path)
	return nil
}

// storeKey writes the key to --out, encrypted if --password is set, or adds
// it to the reply if no file is given.
func storeKey(key solana.PrivateKey, reply map[string]string) error {
	if keyOut == "" {
		buf, err := keypair.ToJSON(key)
		if err != nil {
			return err
		}
		reply["secret_key"] = string(buf)
		return nil
	}

	path := cleanAndExpandPath(keyOut)
	if keyPassword != "" {
		if err := keypair.SaveEncrypted(path, key, keyPassword); err != nil {
			return err
		}
	} else if err := keypair.WriteFile(path, key); err != nil {
		return err
	}
	reply["key_file"] = path
	return nil
}
