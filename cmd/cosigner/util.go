package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/big"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	pb "github.com/vulpemventures/cosigner/api-spec/relay/v1"
	"github.com/vulpemventures/cosigner/internal/core/application"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/core/ports"
	rpc_network "github.com/vulpemventures/cosigner/internal/infrastructure/network/rpc"
	"github.com/vulpemventures/cosigner/pkg/keypair"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const (
	lamportsDecimals = 9
	requestTimeout   = 2 * time.Minute
)

var (
	maxMsgRecvSize = grpc.MaxCallRecvMsgSize(1 * 1024 * 1024 * 200)
	colorRed       = string("\033[31m")
)

// services are the application services run in-process by the CLI against
// the configured cluster.
type services struct {
	network   ports.Network
	assembler *application.AssemblerService
	funding   *application.FundingService
	nonce     *application.NonceService
	token     *application.TokenService
}

func getServices() (*services, func(), error) {
	state, err := getState()
	if err != nil {
		return nil, nil, err
	}
	commitment, ok := domain.ParseConfirmationStatus(state["commitment"])
	if !ok {
		return nil, nil, fmt.Errorf(
			"invalid commitment, set it with `config set commitment`",
		)
	}

	network, err := rpc_network.NewService(rpc_network.ServiceArgs{
		Cluster:    state["cluster"],
		RPCAddr:    state["rpc_url"],
		WSAddr:     state["ws_url"],
		Commitment: commitment,
	})
	if err != nil {
		return nil, nil, err
	}

	assembler := application.NewAssemblerService(network)
	svc := &services{
		network:   network,
		assembler: assembler,
		funding: application.NewFundingService(
			network, state["cluster"] != "mainnet-beta",
		),
		nonce: application.NewNonceService(network, assembler),
		token: application.NewTokenService(network, assembler),
	}
	cleanup := func() { network.Close() }
	return svc, cleanup, nil
}

func getRelayClient() (pb.RelayServiceClient, func(), error) {
	conn, err := getClientConn()
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() { conn.Close() }
	return pb.NewRelayServiceClient(conn), cleanup, nil
}

func getClientConn() (*grpc.ClientConn, error) {
	state, err := getState()
	if err != nil {
		return nil, err
	}
	address, ok := state["rpcserver"]
	if !ok || address == "" {
		return nil, fmt.Errorf("set rpcserver with `config set rpcserver`")
	}

	opts := []grpc.DialOption{grpc.WithDefaultCallOptions(maxMsgRecvSize)}

	noTLS, _ := strconv.ParseBool(state["no_tls"])
	if noTLS {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	} else {
		certPath, ok := state["tls_cert_path"]
		if !ok || certPath == "" {
			return nil, fmt.Errorf(
				"missing TLS certificate filepath. Try " +
					"'cosigner config set tls_cert_path path/to/tls/certificate'",
			)
		}

		tlsCreds, err := credentials.NewClientTLSFromFile(certPath, "")
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS certificate:  %s", err)
		}
		opts = append(opts, grpc.WithTransportCredentials(tlsCreds))
	}

	conn, err := grpc.Dial(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cosigner relay: %v", err)
	}
	return conn, nil
}

// loadSigner returns the key of --key-file, decrypted with --password if
// given, or the one held by the --key-env env var.
func loadSigner() (solana.PrivateKey, error) {
	if keyFile != "" {
		path := cleanAndExpandPath(keyFile)
		if keyPassword != "" {
			return keypair.LoadEncrypted(path, keyPassword)
		}
		return keypair.FromFile(path)
	}
	return keypair.FromEnv(keyEnv)
}

// loadKeyFrom returns the key of the given file, or the one of the given env
// var if the source starts with env:.
func loadKeyFrom(source string) (solana.PrivateKey, error) {
	if name, ok := strings.CutPrefix(source, "env:"); ok {
		return keypair.FromEnv(name)
	}
	return keypair.FromFile(cleanAndExpandPath(source))
}

// readPayload returns the given handoff payload, read from stdin if "-".
func readPayload(arg string) ([]byte, error) {
	if arg == "-" {
		buf, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, err
		}
		arg = string(buf)
	}
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, fmt.Errorf("missing payload")
	}
	return []byte(arg), nil
}

func parsePubkey(name, str string) (solana.PublicKey, error) {
	if str == "" {
		return solana.PublicKey{}, fmt.Errorf("missing %s", name)
	}
	key, err := solana.PublicKeyFromBase58(str)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid %s: %s", name, err)
	}
	return key, nil
}

func parseOptionalPubkey(name, str string) (solana.PublicKey, error) {
	if str == "" {
		return solana.PublicKey{}, nil
	}
	return parsePubkey(name, str)
}

// parseAmount converts an amount in major units to the raw integer amount
// with the given decimals.
func parseAmount(str string, decimals uint8) (uint64, error) {
	amount, err := decimal.NewFromString(str)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %s", str)
	}
	if !amount.IsPositive() {
		return 0, fmt.Errorf("amount must be greater than zero")
	}
	raw := amount.Shift(int32(decimals))
	if !raw.Equal(raw.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimals", str, decimals)
	}
	maxAmount := decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)
	if raw.GreaterThan(maxAmount) {
		return 0, fmt.Errorf("amount %s is too large", str)
	}
	return raw.BigInt().Uint64(), nil
}

func formatAmount(raw uint64, decimals uint8) string {
	return decimal.NewFromBigInt(
		new(big.Int).SetUint64(raw), -int32(decimals),
	).String()
}

func parseSol(str string) (uint64, error) {
	return parseAmount(str, lamportsDecimals)
}

func formatSol(lamports uint64) string {
	return formatAmount(lamports, lamportsDecimals)
}

func newContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func getState() (map[string]string, error) {
	file, err := os.ReadFile(statePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := writeState(initialState()); err != nil {
			return nil, err
		}
		return initialState(), nil
	}

	data := map[string]string{}
	if err := json.Unmarshal(file, &data); err != nil {
		return nil, fmt.Errorf("failed to read state: %s", err)
	}
	for key, value := range initialState() {
		if _, ok := data[key]; !ok {
			data[key] = value
		}
	}
	return data, nil
}

func setState(partialState map[string]string) error {
	state, err := getState()
	if err != nil {
		return err
	}

	for key, value := range partialState {
		state[key] = value
	}
	return writeState(state)
}

func writeState(state map[string]string) error {
	dir := filepath.Dir(statePath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		err = os.MkdirAll(dir, 0755)
		if err != nil {
			return fmt.Errorf("failed to create directory: %v", err)
		}
	}

	buf, _ := json.MarshalIndent(state, "", "  ")
	if err := os.WriteFile(statePath, buf, 0644); err != nil {
		return fmt.Errorf("writing to file: %w", err)
	}

	return nil
}

func cleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

func jsonResponse(v interface{}) (string, error) {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal response: %s", err)
	}
	return string(buf), nil
}

func printJSON(v interface{}) error {
	str, err := jsonResponse(v)
	if err != nil {
		return err
	}
	fmt.Println(str)
	return nil
}

func printErr(err error) {
	s := status.Convert(err)
	msg := fmt.Sprintf("%s%s", colorRed, capitalize(s.Message()))
	fmt.Fprintln(os.Stderr, msg)
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	ss := strings.ToUpper(s[0:1])
	ss += s[1:]
	return ss
}

func formatVersion() string {
	return fmt.Sprintf(
		"\nVersion: %s\nCommit: %s\nDate: %s", version, commit, date,
	)
}
