package main

import (
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"github.com/vulpemventures/cosigner/internal/core/application"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/pkg/keypair"
)

var (
	tokenMint      string
	tokenOwner     string
	tokenAmount    string
	tokenDecimals  uint8
	tokenAuthority string
	tokenSigners   []string
	tokenKeyOut    string
	tokenThreshold uint8
	tokenMembers   []string

	tokenCreateMintCmd = &cobra.Command{
		Use:   "create-mint",
		Short: "create a token mint",
		Long: "this command creates a new mint with --decimals paid by the " +
			"signer. --authority (the signer if empty) is both mint and freeze " +
			"authority and can be a multisig account. The key of the mint is " +
			"stored in --out if given",
		RunE: tokenCreateMint,
	}
	tokenCreateMultisigCmd = &cobra.Command{
		Use:   "create-multisig",
		Short: "create an N-of-M multisig account",
		Long: "this command creates a multisig account paid by the signer " +
			"listing every --member, of which --threshold must sign. The " +
			"account can then be used as mint authority",
		RunE: tokenCreateMultisig,
	}
	tokenAccountCmd = &cobra.Command{
		Use:   "account",
		Short: "get or create an associated token account",
		Long: "this command returns the associated token account of --owner " +
			"(the signer if empty) for --mint, creating it at the signer's " +
			"expense if missing",
		RunE: tokenAccount,
	}
	tokenMintCmd = &cobra.Command{
		Use:   "mint",
		Short: "mint tokens to an owner",
		Long: "this command mints tokens to the associated account of --owner. " +
			"The mint authority is either the signer or a multisig whose " +
			"co-signers are given with --signer, the quorum is checked by " +
			"the token program",
		RunE: tokenMintTo,
	}
	tokenBalanceCmd = &cobra.Command{
		Use:   "balance",
		Short: "get the token balance of an owner",
		RunE:  tokenBalance,
	}
	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "interact with the token program",
		Long: "this command lets you create mints, multisig authorities and " +
			"token accounts, mint tokens with " +
			"plain or multisig authorities and read token balances",
	}
)

func init() {
	tokenCmd.PersistentFlags().StringVar(&tokenMint, "mint", "", "token mint address")
	tokenCmd.PersistentFlags().StringVar(
		&tokenOwner, "owner", "", "token owner address, the signer if empty",
	)
	tokenCmd.PersistentFlags().Uint8Var(&tokenDecimals, "decimals", 9, "decimals of the mint")

	tokenCreateMintCmd.Flags().StringVar(
		&tokenAuthority, "authority", "", "mint authority, the signer if empty",
	)
	tokenCreateMintCmd.Flags().StringVar(
		&tokenKeyOut, "out", "", "path of the key file of the new mint",
	)

	tokenCreateMultisigCmd.Flags().Uint8Var(
		&tokenThreshold, "threshold", 2, "number of members required to sign",
	)
	tokenCreateMultisigCmd.Flags().StringArrayVar(
		&tokenMembers, "member", nil, "address of a multisig member, repeatable",
	)
	tokenCreateMultisigCmd.Flags().StringVar(
		&tokenKeyOut, "out", "", "path of the key file of the new multisig account",
	)
	tokenCreateMultisigCmd.MarkFlagRequired("member")

	tokenMintCmd.Flags().StringVar(&tokenAmount, "amount", "", "amount to mint in major units")
	tokenMintCmd.Flags().StringVar(
		&tokenAuthority, "authority", "", "mint authority, the signer if empty",
	)
	tokenMintCmd.Flags().StringArrayVar(
		&tokenSigners, "signer", nil,
		"key file (or env:NAME) of a multisig co-signer, repeatable",
	)
	tokenMintCmd.MarkFlagRequired("amount")

	tokenCmd.AddCommand(
		tokenCreateMintCmd, tokenCreateMultisigCmd,
		tokenAccountCmd, tokenMintCmd, tokenBalanceCmd,
	)
}

func tokenCreateMint(_ *cobra.Command, _ []string) error {
	payer, err := loadSigner()
	if err != nil {
		return err
	}
	authority, err := parseOptionalPubkey("authority", tokenAuthority)
	if err != nil {
		return err
	}
	mintKey, path, err := newAccountKey(tokenKeyOut)
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

	receipt, err := svc.token.CreateMint(
		ctx, payer, mintKey, authority, tokenDecimals,
	)
	if err != nil {
		return err
	}
	if err := printReceipt(receipt); err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"mint":     mintKey.PublicKey().String(),
		"decimals": tokenDecimals,
		"key_file": path,
	})
}

func tokenCreateMultisig(_ *cobra.Command, _ []string) error {
	payer, err := loadSigner()
	if err != nil {
		return err
	}
	members := make([]solana.PublicKey, 0, len(tokenMembers))
	for _, str := range tokenMembers {
		member, err := parsePubkey("member", strings.TrimSpace(str))
		if err != nil {
			return err
		}
		members = append(members, member)
	}
	multisigKey, path, err := newAccountKey(tokenKeyOut)
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

	receipt, err := svc.token.CreateMultisig(
		ctx, payer, multisigKey, tokenThreshold, members,
	)
	if err != nil {
		return err
	}
	if err := printReceipt(receipt); err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"multisig":  multisigKey.PublicKey().String(),
		"threshold": tokenThreshold,
		"members":   pubkeys(members),
		"key_file":  path,
	})
}

// newAccountKey generates the key of a new account and stores it at out,
// if not empty.
func newAccountKey(out string) (solana.PrivateKey, string, error) {
	key, err := keypair.New()
	if err != nil {
		return nil, "", err
	}
	if out == "" {
		return key, "", nil
	}
	path := cleanAndExpandPath(out)
	if err := keypair.WriteFile(path, key); err != nil {
		return nil, "", err
	}
	return key, path, nil
}

func tokenAccount(_ *cobra.Command, _ []string) error {
	payer, err := loadSigner()
	if err != nil {
		return err
	}
	mint, owner, err := parseMintAndOwner(payer.PublicKey())
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

	address, err := svc.token.EnsureTokenAccount(ctx, payer, owner, mint)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{
		"owner":         owner.String(),
		"mint":          mint.String(),
		"token_account": address.String(),
	})
}

func tokenMintTo(_ *cobra.Command, _ []string) error {
	payer, err := loadSigner()
	if err != nil {
		return err
	}
	mint, owner, err := parseMintAndOwner(payer.PublicKey())
	if err != nil {
		return err
	}
	amount, err := parseAmount(tokenAmount, tokenDecimals)
	if err != nil {
		return err
	}
	authority, err := parseOptionalPubkey("authority", tokenAuthority)
	if err != nil {
		return err
	}
	if authority.IsZero() {
		authority = payer.PublicKey()
	}

	signers := []domain.Signer{payer}
	if len(tokenSigners) > 0 {
		signers = make([]domain.Signer, 0, len(tokenSigners))
		for _, source := range tokenSigners {
			key, err := loadKeyFrom(strings.TrimSpace(source))
			if err != nil {
				return err
			}
			signers = append(signers, key)
		}
	}

	svc, cleanup, err := getServices()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := newContext()
	defer cancel()

	receipt, err := svc.token.MintTo(ctx, application.MintToArgs{
		Payer:     payer,
		Mint:      mint,
		Owner:     owner,
		Authority: authority,
		Signers:   signers,
		Amount:    amount,
	})
	if err != nil {
		return err
	}
	return printReceipt(receipt)
}

func tokenBalance(_ *cobra.Command, _ []string) error {
	var signer solana.PublicKey
	if tokenOwner == "" {
		key, err := loadSigner()
		if err != nil {
			return err
		}
		signer = key.PublicKey()
	}
	mint, owner, err := parseMintAndOwner(signer)
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

	amount, err := svc.token.TokenBalance(ctx, owner, mint)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"owner":  owner.String(),
		"mint":   mint.String(),
		"raw":    amount,
		"amount": formatAmount(amount, tokenDecimals),
	})
}

func parseMintAndOwner(
	defaultOwner solana.PublicKey,
) (solana.PublicKey, solana.PublicKey, error) {
	mint, err := parsePubkey("mint", tokenMint)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, err
	}
	owner := defaultOwner
	if tokenOwner != "" {
		if owner, err = parsePubkey("owner", tokenOwner); err != nil {
			return solana.PublicKey{}, solana.PublicKey{}, err
		}
	}
	return mint, owner, nil
}
