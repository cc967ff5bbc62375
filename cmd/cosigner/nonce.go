package main

import (
	"github.com/spf13/cobra"
	"github.com/vulpemventures/cosigner/pkg/keypair"
)

var (
	nonceKeyOut    string
	nonceAuthority string

	nonceCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "create a durable nonce account",
		Long: "this command creates a new nonce account paid by the signer, " +
			"controlled by --authority (the signer if empty), and stores its " +
			"key in --out",
		RunE: nonceCreate,
	}
	nonceShowCmd = &cobra.Command{
		Use:   "show <account>",
		Short: "show the state of a nonce account",
		Args:  cobra.ExactArgs(1),
		RunE:  nonceShow,
	}
	nonceCmd = &cobra.Command{
		Use:   "nonce",
		Short: "manage durable nonce accounts",
		Long: "this command lets you create and inspect the durable nonce " +
			"accounts used to anchor intents that must outlive a blockhash",
	}
)

func init() {
	nonceCreateCmd.Flags().StringVar(
		&nonceKeyOut, "out", "", "path of the key file of the new nonce account",
	)
	nonceCreateCmd.Flags().StringVar(
		&nonceAuthority, "authority", "", "nonce authority, the signer if empty",
	)
	nonceCreateCmd.MarkFlagRequired("out")

	nonceCmd.AddCommand(nonceCreateCmd, nonceShowCmd)
}

func nonceCreate(_ *cobra.Command, _ []string) error {
	payer, err := loadSigner()
	if err != nil {
		return err
	}
	authority, err := parseOptionalPubkey("authority", nonceAuthority)
	if err != nil {
		return err
	}
	nonceKey, err := keypair.New()
	if err != nil {
		return err
	}
	path := cleanAndExpandPath(nonceKeyOut)
	if err := keypair.WriteFile(path, nonceKey); err != nil {
		return err
	}

	svc, cleanup, err := getServices()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := newContext()
	defer cancel()

	receipt, err := svc.nonce.CreateNonceAccount(ctx, payer, nonceKey, authority)
	if err != nil {
		return err
	}
	if err := printReceipt(receipt); err != nil {
		return err
	}
	return printJSON(map[string]string{
		"nonce_account": nonceKey.PublicKey().String(),
		"key_file":      path,
	})
}

func nonceShow(_ *cobra.Command, args []string) error {
	account, err := parsePubkey("nonce account", args[0])
	if err != nil {
		return err
	}

	svc, cleanup, err := getServices()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := newContext()
	defer cancel()

	state, err := svc.nonce.GetNonce(ctx, account)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"account":   account.String(),
		"authority": state.Authority.String(),
		"nonce":     state.Value.String(),
		"fee":       state.LamportsPerSignature,
	})
}
