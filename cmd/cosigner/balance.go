package main

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	pb "github.com/vulpemventures/cosigner/api-spec/relay/v1"
)

var (
	balanceViaRelay bool
	airdropAmount   string
	airdropMin      string

	balanceCmd = &cobra.Command{
		Use:   "balance [address]",
		Short: "get the SOL balance of an address",
		Long: "this command returns the balance of the given address, or of the " +
			"signer if omitted, read from the cluster or through the relay",
		Args: cobra.MaximumNArgs(1),
		RunE: balance,
	}
	airdropCmd = &cobra.Command{
		Use:   "airdrop [address]",
		Short: "fund an address on a test cluster",
		Long: "this command requests an airdrop to the given address, or to the " +
			"signer if omitted, only if its balance is below --min",
		Args: cobra.MaximumNArgs(1),
		RunE: airdrop,
	}
)

func init() {
	balanceCmd.Flags().BoolVar(
		&balanceViaRelay, "relay", false, "read the balance through the relay",
	)
	airdropCmd.Flags().StringVar(
		&airdropAmount, "amount", "1", "amount of SOL to request",
	)
	airdropCmd.Flags().StringVar(
		&airdropMin, "min", "0.5", "request only if the balance is below this amount of SOL",
	)
}

func balance(_ *cobra.Command, args []string) error {
	address, err := addressOrSigner(args)
	if err != nil {
		return err
	}

	ctx, cancel := newContext()
	defer cancel()

	var lamports uint64
	if balanceViaRelay {
		client, cleanup, err := getRelayClient()
		if err != nil {
			return err
		}
		defer cleanup()

		reply, err := client.GetBalance(ctx, &pb.GetBalanceRequest{
			Address: address.String(),
		})
		if err != nil {
			return err
		}
		lamports = reply.Lamports
	} else {
		svc, cleanup, err := getServices()
		if err != nil {
			return err
		}
		defer cleanup()

		if lamports, err = svc.funding.GetBalance(ctx, address); err != nil {
			return err
		}
	}

	return printJSON(map[string]interface{}{
		"address":  address.String(),
		"lamports": lamports,
		"sol":      formatSol(lamports),
	})
}

func airdrop(_ *cobra.Command, args []string) error {
	address, err := addressOrSigner(args)
	if err != nil {
		return err
	}
	target, err := parseSol(airdropAmount)
	if err != nil {
		return err
	}
	threshold, err := parseSol(airdropMin)
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

	lamports, err := svc.funding.EnsureMinimumFunds(ctx, address, target, threshold)
	if err != nil {
		return err
	}
	fmt.Printf("balance of %s is %s SOL\n", address, formatSol(lamports))
	return nil
}

func addressOrSigner(args []string) (solana.PublicKey, error) {
	if len(args) > 0 {
		return parsePubkey("address", args[0])
	}
	key, err := loadSigner()
	if err != nil {
		return solana.PublicKey{}, err
	}
	return key.PublicKey(), nil
}
