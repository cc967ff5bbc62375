package main

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/cobra"
	"github.com/vulpemventures/cosigner/internal/core/domain"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	daemonDatadir = btcutil.AppDataDir("cosignerd", false)
	datadir       = btcutil.AppDataDir("cosigner-cli", false)
	statePath     = filepath.Join(datadir, "state.json")

	keyFile     string
	keyEnv      string
	keyPassword string

	rootCmd = &cobra.Command{
		Use:   "cosigner",
		Short: "CLI for two-party signed transactions",
		Long: "This CLI lets you build, partially sign, hand off and submit " +
			"transactions that need the signatures of two parties, either " +
			"directly on a Solana cluster or through a running cosigner relay",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if _, err := os.Stat(datadir); os.IsNotExist(err) {
				os.MkdirAll(datadir, os.ModeDir|0755)
			}
		},
		Version:       formatVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func initialState() map[string]string {
	return map[string]string{
		"rpcserver":     "localhost:18100",
		"no_tls":        strconv.FormatBool(false),
		"tls_cert_path": filepath.Join(daemonDatadir, "devnet", "tls", "cert.pem"),
		"cluster":       "devnet",
		"rpc_url":       "",
		"ws_url":        "",
		"commitment":    domain.StatusConfirmed.String(),
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&keyFile, "key-file", "",
		"path of the signer key file, plain or encrypted, "+
			"takes precedence over --key-env",
	)
	rootCmd.PersistentFlags().StringVar(
		&keyEnv, "key-env", "SECRET_KEY",
		"name of the env var holding the signer secret key, "+
			"as JSON byte array or base58",
	)
	rootCmd.PersistentFlags().StringVar(
		&keyPassword, "password", "",
		"password of the encrypted key file",
	)

	rootCmd.AddCommand(
		configCmd, keysCmd, balanceCmd, airdropCmd, intentCmd, nonceCmd,
		tokenCmd, relayCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printErr(err)
		os.Exit(1)
	}
}
