package main

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/spf13/cobra"
	"github.com/vulpemventures/cosigner/internal/core/application"
	"github.com/vulpemventures/cosigner/internal/core/domain"
)

var (
	intentTo           string
	intentFrom         string
	intentAmount       string
	intentFeePayer     string
	intentNonceAccount string
	intentMint         string
	intentDecimals     uint8
	intentDraft        bool
	intentSign         bool
	intentNoWait       bool

	intentTransferCmd = &cobra.Command{
		Use:   "transfer",
		Short: "build a SOL transfer intent",
		Long: "this command builds the intent moving SOL from --from (the " +
			"signer by default) to --to, with fees paid by --fee-payer, and " +
			"prints its handoff payload",
		RunE: intentTransfer,
	}
	intentTokenTransferCmd = &cobra.Command{
		Use:   "token-transfer",
		Short: "build a token transfer intent",
		Long: "this command builds the intent moving tokens of --mint between " +
			"the associated token accounts of --from and --to, with fees paid " +
			"by --fee-payer, and prints its handoff payload",
		RunE: intentTokenTransfer,
	}
	intentSignCmd = &cobra.Command{
		Use:   "sign <payload>",
		Short: "add the signer signature to an intent",
		Long: "this command partially signs the given intent payload (- to read " +
			"from stdin) and prints the new payload to hand off",
		Args: cobra.ExactArgs(1),
		RunE: intentSignPayload,
	}
	intentAttachNonceCmd = &cobra.Command{
		Use:   "attach-nonce <payload>",
		Short: "anchor an unsigned intent to a durable nonce",
		Long: "this command prepends the advance of --nonce-account to an " +
			"unsigned intent and seals its anchor to the current nonce value",
		Args: cobra.ExactArgs(1),
		RunE: intentAttachNonce,
	}
	intentCombineCmd = &cobra.Command{
		Use:   "combine <payload> <payload>",
		Short: "merge the signatures of two copies of an intent",
		Args:  cobra.ExactArgs(2),
		RunE:  intentCombine,
	}
	intentInspectCmd = &cobra.Command{
		Use:   "inspect <payload>",
		Short: "show the details of an intent",
		Args:  cobra.ExactArgs(1),
		RunE:  intentInspect,
	}
	intentRefreshCmd = &cobra.Command{
		Use:   "refresh <payload>",
		Short: "re-anchor an intent to a fresh value",
		Long: "this command rebuilds the intent with a fresh anchor of the same " +
			"kind, dropping any signature, after a stale or nonce rejection",
		Args: cobra.ExactArgs(1),
		RunE: intentRefresh,
	}
	intentSubmitCmd = &cobra.Command{
		Use:   "submit <payload>",
		Short: "submit a fully signed intent to the cluster",
		Args:  cobra.ExactArgs(1),
		RunE:  intentSubmit,
	}
	intentCmd = &cobra.Command{
		Use:   "intent",
		Short: "build, sign and submit two-party intents",
		Long: "this command lets you build intents whose fee payer differs from " +
			"the transfer authority, sign them in any order and hand them off " +
			"as base64 payloads",
	}
)

func init() {
	for _, cmd := range []*cobra.Command{intentTransferCmd, intentTokenTransferCmd} {
		cmd.Flags().StringVar(&intentTo, "to", "", "receiver address")
		cmd.Flags().StringVar(&intentFrom, "from", "", "sender address, the signer if empty")
		cmd.Flags().StringVar(&intentAmount, "amount", "", "amount to transfer in major units")
		cmd.Flags().StringVar(&intentFeePayer, "fee-payer", "", "fee payer address, the signer if empty")
		cmd.Flags().StringVar(
			&intentNonceAccount, "nonce-account", "",
			"durable nonce account to anchor the intent to",
		)
		cmd.Flags().BoolVar(
			&intentDraft, "draft", false,
			"leave the anchor pending for the counterparty to attach its nonce",
		)
		cmd.Flags().BoolVar(&intentSign, "sign", false, "sign the intent right after building it")
		cmd.MarkFlagRequired("to")
		cmd.MarkFlagRequired("amount")
	}
	intentTokenTransferCmd.Flags().StringVar(&intentMint, "mint", "", "token mint address")
	intentTokenTransferCmd.Flags().Uint8Var(&intentDecimals, "decimals", 9, "decimals of the mint")
	intentTokenTransferCmd.MarkFlagRequired("mint")

	intentAttachNonceCmd.Flags().StringVar(
		&intentNonceAccount, "nonce-account", "", "durable nonce account",
	)
	intentAttachNonceCmd.MarkFlagRequired("nonce-account")

	intentSubmitCmd.Flags().BoolVar(
		&intentNoWait, "no-wait", false, "do not wait for the transaction to confirm",
	)

	intentCmd.AddCommand(
		intentTransferCmd, intentTokenTransferCmd, intentSignCmd,
		intentAttachNonceCmd, intentCombineCmd, intentInspectCmd,
		intentRefreshCmd, intentSubmitCmd,
	)
}

type intentInfo struct {
	Id              string   `json:"id"`
	FeePayer        string   `json:"fee_payer"`
	Anchor          string   `json:"anchor"`
	RequiredSigners []string `json:"required_signers"`
	MissingSigners  []string `json:"missing_signers"`
	Complete        bool     `json:"complete"`
	Payload         string   `json:"payload"`
}

func intentTransfer(_ *cobra.Command, _ []string) error {
	from, feePayer, err := parseParties()
	if err != nil {
		return err
	}
	to, err := parsePubkey("receiver", intentTo)
	if err != nil {
		return err
	}
	lamports, err := parseSol(intentAmount)
	if err != nil {
		return err
	}
	nonceAccount, err := parseOptionalPubkey("nonce account", intentNonceAccount)
	if err != nil {
		return err
	}
	if intentDraft && !nonceAccount.IsZero() {
		return application.ErrDraftWithNonce
	}

	svc, cleanup, err := getServices()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := newContext()
	defer cancel()

	ixs := []solana.Instruction{
		system.NewTransferInstruction(lamports, from, to).Build(),
	}
	var intent *domain.Intent
	switch {
	case intentDraft:
		intent, err = svc.assembler.BuildDraft(ixs, feePayer)
	case !nonceAccount.IsZero():
		intent, err = svc.assembler.BuildWithNonce(ctx, ixs, feePayer, nonceAccount)
	default:
		intent, err = svc.assembler.BuildWithLatestBlockhash(ctx, ixs, feePayer)
	}
	if err != nil {
		return err
	}
	return printIntent(svc.assembler, intent, intentSign)
}

func intentTokenTransfer(_ *cobra.Command, _ []string) error {
	from, feePayer, err := parseParties()
	if err != nil {
		return err
	}
	to, err := parsePubkey("receiver", intentTo)
	if err != nil {
		return err
	}
	mint, err := parsePubkey("mint", intentMint)
	if err != nil {
		return err
	}
	amount, err := parseAmount(intentAmount, intentDecimals)
	if err != nil {
		return err
	}
	nonceAccount, err := parseOptionalPubkey("nonce account", intentNonceAccount)
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

	intent, err := svc.token.TransferIntent(ctx, application.TransferArgs{
		Mint:         mint,
		Decimals:     intentDecimals,
		From:         from,
		To:           to,
		Amount:       amount,
		FeePayer:     feePayer,
		NonceAccount: nonceAccount,
		Draft:        intentDraft,
	})
	if err != nil {
		return err
	}
	return printIntent(svc.assembler, intent, intentSign)
}

func intentSignPayload(_ *cobra.Command, args []string) error {
	assembler := application.NewAssemblerService(nil)
	intent, err := decodeIntent(assembler, args[0])
	if err != nil {
		return err
	}
	return printIntent(assembler, intent, true)
}

func intentAttachNonce(_ *cobra.Command, args []string) error {
	nonceAccount, err := parsePubkey("nonce account", intentNonceAccount)
	if err != nil {
		return err
	}

	svc, cleanup, err := getServices()
	if err != nil {
		return err
	}
	defer cleanup()

	intent, err := decodeIntent(svc.assembler, args[0])
	if err != nil {
		return err
	}

	ctx, cancel := newContext()
	defer cancel()

	sealed, err := svc.assembler.AttachNonce(ctx, intent, nonceAccount)
	if err != nil {
		return err
	}
	return printIntent(svc.assembler, sealed, false)
}

func intentCombine(_ *cobra.Command, args []string) error {
	assembler := application.NewAssemblerService(nil)
	a, err := decodeIntent(assembler, args[0])
	if err != nil {
		return err
	}
	b, err := decodeIntent(assembler, args[1])
	if err != nil {
		return err
	}

	combined, err := assembler.Combine(a, b)
	if err != nil {
		return err
	}
	return printIntent(assembler, combined, false)
}

func intentInspect(_ *cobra.Command, args []string) error {
	assembler := application.NewAssemblerService(nil)
	intent, err := decodeIntent(assembler, args[0])
	if err != nil {
		return err
	}
	return printIntent(assembler, intent, false)
}

func intentRefresh(_ *cobra.Command, args []string) error {
	svc, cleanup, err := getServices()
	if err != nil {
		return err
	}
	defer cleanup()

	intent, err := decodeIntent(svc.assembler, args[0])
	if err != nil {
		return err
	}

	ctx, cancel := newContext()
	defer cancel()

	refreshed, err := svc.assembler.RefreshAnchor(ctx, intent)
	if err != nil {
		return err
	}
	return printIntent(svc.assembler, refreshed, false)
}

func intentSubmit(_ *cobra.Command, args []string) error {
	svc, cleanup, err := getServices()
	if err != nil {
		return err
	}
	defer cleanup()

	intent, err := decodeIntent(svc.assembler, args[0])
	if err != nil {
		return err
	}

	ctx, cancel := newContext()
	defer cancel()

	receipt, err := svc.assembler.FinalizeAndSubmit(ctx, intent)
	if err != nil {
		return err
	}
	if !intentNoWait {
		if err := svc.assembler.AwaitConfirmation(
			ctx, receipt, domain.StatusConfirmed,
		); err != nil {
			return err
		}
	}

	return printJSON(map[string]string{
		"intent_id": receipt.IntentID,
		"signature": receipt.Signature.String(),
		"anchor":    receipt.Anchor.String(),
	})
}

func parseParties() (solana.PublicKey, solana.PublicKey, error) {
	from, err := parseOptionalPubkey("sender", intentFrom)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, err
	}
	feePayer, err := parseOptionalPubkey("fee payer", intentFeePayer)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, err
	}
	if from.IsZero() || feePayer.IsZero() {
		key, err := loadSigner()
		if err != nil {
			return solana.PublicKey{}, solana.PublicKey{}, err
		}
		if from.IsZero() {
			from = key.PublicKey()
		}
		if feePayer.IsZero() {
			feePayer = key.PublicKey()
		}
	}
	return from, feePayer, nil
}

func decodeIntent(
	assembler *application.AssemblerService, arg string,
) (*domain.Intent, error) {
	payload, err := readPayload(arg)
	if err != nil {
		return nil, err
	}
	return assembler.DeserializeFromHandoff(payload)
}

// printIntent prints the details and the handoff payload of the intent,
// after signing it with the signer key if sign is set.
func printIntent(
	assembler *application.AssemblerService, intent *domain.Intent, sign bool,
) error {
	if sign {
		key, err := loadSigner()
		if err != nil {
			return err
		}
		if intent, err = assembler.PartialSign(intent, key); err != nil {
			return err
		}
	}

	payload, err := assembler.SerializeForHandoff(intent)
	if err != nil {
		return err
	}
	return printJSON(intentInfo{
		Id:              intent.ID(),
		FeePayer:        intent.FeePayer().String(),
		Anchor:          intent.Anchor().String(),
		RequiredSigners: pubkeys(intent.RequiredSigners()),
		MissingSigners:  pubkeys(intent.MissingSigners()),
		Complete:        intent.IsComplete(),
		Payload:         string(payload),
	})
}

func pubkeys(list []solana.PublicKey) []string {
	str := make([]string, 0, len(list))
	for _, k := range list {
		str = append(str, k.String())
	}
	return str
}

func printReceipt(receipt *domain.Receipt) error {
	fmt.Printf("tx %s confirmed\n", receipt.Signature)
	return nil
}
