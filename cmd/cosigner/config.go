package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/vulpemventures/cosigner/internal/core/domain"
)

var (
	rpcServer   string
	noTLS       bool
	tlsCertPath string
	cluster     string
	rpcUrl      string
	wsUrl       string
	commitment  string

	configSetCmd = &cobra.Command{
		Use:   "set",
		Short: "edit single CLI config entry",
		Long: "this command lets you customize a single configuration entry of " +
			"the cosigner CLI",
		Args: cobra.ExactArgs(2),
		RunE: configSet,
	}
	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "edit multiple CLI config entry",
		Long: "this command lets you customize multiple configuration entries of " +
			"the cosigner CLI",
		RunE: configInit,
	}
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "print or edit CLI configuration",
		Long: "this command lets you show or customize the configuration of " +
			"the cosigner CLI",
		RunE: configPrint,
	}
)

func init() {
	state := initialState()
	configInitCmd.Flags().StringVar(
		&rpcServer, "rpcserver", state["rpcserver"],
		"address of the cosigner relay to connect to",
	)
	configInitCmd.Flags().BoolVar(
		&noTLS, "no-tls", false,
		"this must be set if the cosigner relay has TLS disabled",
	)
	configInitCmd.Flags().StringVar(
		&tlsCertPath, "tls-cert-path", state["tls_cert_path"],
		"the path of the TLS certificate file to use to connect to the "+
			"cosigner relay if it has TLS enabled",
	)
	configInitCmd.Flags().StringVar(
		&cluster, "cluster", state["cluster"],
		"solana cluster, one of mainnet-beta, testnet, devnet, localnet",
	)
	configInitCmd.Flags().StringVar(
		&rpcUrl, "rpc-url", "", "custom rpc endpoint, overrides the cluster one",
	)
	configInitCmd.Flags().StringVar(
		&wsUrl, "ws-url", "", "custom websocket endpoint, overrides the cluster one",
	)
	configInitCmd.Flags().StringVar(
		&commitment, "commitment", state["commitment"],
		"commitment level, one of processed, confirmed, finalized",
	)
	configCmd.AddCommand(configSetCmd, configInitCmd)
}

func configSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	// Prevent setting anything that is not part of the state.
	if _, ok := initialState()[key]; !ok {
		return fmt.Errorf("unknown config entry %s", key)
	}

	partialState := map[string]string{key: value}
	if key == "no_tls" {
		partialState["tls_cert_path"] = ""
		if val, _ := strconv.ParseBool(value); !val {
			partialState["tls_cert_path"] = initialState()["tls_cert_path"]
		}
	}
	if key == "tls_cert_path" {
		partialState["no_tls"] = "true"
		if len(value) > 0 {
			partialState["no_tls"] = "false"
			partialState[key] = cleanAndExpandPath(value)
		}
	}
	if key == "commitment" {
		if _, ok := domain.ParseConfirmationStatus(value); !ok {
			return fmt.Errorf("invalid commitment %s", value)
		}
	}
	if err := setState(partialState); err != nil {
		return err
	}

	fmt.Printf("%s %s has been set\n", key, partialState[key])

	return nil
}

func configInit(cmd *cobra.Command, args []string) error {
	if _, err := getState(); err != nil {
		return err
	}
	if _, ok := domain.ParseConfirmationStatus(commitment); !ok {
		return fmt.Errorf("invalid commitment %s", commitment)
	}

	if err := setState(map[string]string{
		"rpcserver":     rpcServer,
		"no_tls":        strconv.FormatBool(noTLS),
		"tls_cert_path": cleanAndExpandPath(tlsCertPath),
		"cluster":       cluster,
		"rpc_url":       rpcUrl,
		"ws_url":        wsUrl,
		"commitment":    commitment,
	}); err != nil {
		return err
	}

	fmt.Println("CLI has been configured")

	return nil
}

func configPrint(_ *cobra.Command, _ []string) error {
	state, err := getState()
	if err != nil {
		return err
	}

	buf, _ := json.MarshalIndent(state, "", "   ")
	fmt.Println(string(buf))

	return nil
}
