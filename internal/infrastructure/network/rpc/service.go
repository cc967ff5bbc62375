// Package rpc_network implements ports.Network on top of a Solana JSON-RPC
// node. Confirmations are awaited through a websocket signature subscription
// when a ws endpoint is available, by polling otherwise.
package rpc_network

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/core/ports"
)

const defaultPollInterval = 500 * time.Millisecond

// Codes returned by the node when it refuses a transaction, as opposed to
// transport or availability failures.
var rejectionCodes = map[int]struct{}{
	-32002: {}, // preflight simulation failure
	-32003: {}, // signature verification failure
	-32013: {}, // signature length mismatch
	-32602: {}, // malformed transaction
}

type service struct {
	client       *rpc.Client
	ws           *wsClient
	commitment   rpc.CommitmentType
	pollInterval time.Duration
	wsLock       *sync.Mutex
	wsAddr       string

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

type ServiceArgs struct {
	// Cluster is one of mainnet-beta, testnet, devnet or localnet. The
	// endpoints below override the cluster ones.
	Cluster    string
	RPCAddr    string
	WSAddr     string
	Commitment domain.ConfirmationStatus
	// PollInterval is used to await confirmations when no ws endpoint is
	// available.
	PollInterval time.Duration
}

func (a ServiceArgs) validate() error {
	if a.Cluster == "" && a.RPCAddr == "" {
		return fmt.Errorf("missing cluster or rpc endpoint")
	}
	if a.Cluster != "" {
		if _, ok := Clusters[a.Cluster]; !ok {
			return fmt.Errorf("unknown cluster %s", a.Cluster)
		}
	}
	if a.WSAddr != "" &&
		!strings.HasPrefix(a.WSAddr, "ws://") && !strings.HasPrefix(a.WSAddr, "wss://") {
		return fmt.Errorf("invalid ws endpoint: unknown protocol")
	}
	return nil
}

func (a ServiceArgs) endpoints() (string, string) {
	rpcAddr, wsAddr := a.RPCAddr, a.WSAddr
	if cluster, ok := Clusters[a.Cluster]; ok {
		if rpcAddr == "" {
			rpcAddr = cluster.RPC
		}
		if wsAddr == "" {
			wsAddr = cluster.WS
		}
	}
	return rpcAddr, wsAddr
}

func NewService(args ServiceArgs) (ports.Network, error) {
	if err := args.validate(); err != nil {
		return nil, fmt.Errorf("invalid args: %s", err)
	}

	rpcAddr, wsAddr := args.endpoints()
	pollInterval := args.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("network: %s", format)
		log.Debugf(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("network: %s", format)
		log.WithError(err).Warnf(format, a...)
	}

	svc := &service{
		client:       rpc.New(rpcAddr),
		commitment:   commitmentFor(args.Commitment),
		pollInterval: pollInterval,
		wsLock:       &sync.Mutex{},
		wsAddr:       wsAddr,
		log:          logFn,
		warn:         warnFn,
	}
	svc.log("connected to %s", rpcAddr)
	return svc, nil
}

func (s *service) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	res, err := s.client.GetLatestBlockhash(ctx, s.commitment)
	if err != nil {
		return solana.Hash{}, err
	}
	return res.Value.Blockhash, nil
}

func (s *service) GetNonce(
	ctx context.Context, nonceAccount solana.PublicKey,
) (*domain.NonceState, error) {
	res, err := s.client.GetAccountInfoWithOpts(
		ctx, nonceAccount, &rpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: s.commitment,
		},
	)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("nonce account %s not found", nonceAccount)
		}
		return nil, err
	}
	if res == nil || res.Value == nil || res.Value.Data == nil {
		return nil, fmt.Errorf("nonce account %s not found", nonceAccount)
	}
	if !res.Value.Owner.Equals(solana.SystemProgramID) {
		return nil, fmt.Errorf(
			"account %s is not owned by the system program", nonceAccount,
		)
	}
	return domain.DecodeNonceAccount(res.Value.Data.GetBinary())
}

func (s *service) SendTransaction(
	ctx context.Context, rawTx []byte,
) (solana.Signature, error) {
	sig, err := s.client.SendRawTransactionWithOpts(
		ctx, rawTx, rpc.TransactionOpts{
			PreflightCommitment: s.commitment,
		},
	)
	if err != nil {
		return solana.Signature{}, classify(err)
	}
	s.log("sent tx %s", sig)
	return sig, nil
}

func (s *service) GetSignatureStatus(
	ctx context.Context, sig solana.Signature,
) (domain.ConfirmationStatus, error) {
	res, err := s.client.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return domain.StatusUnknown, err
	}
	if res == nil || len(res.Value) == 0 {
		return domain.StatusUnknown, nil
	}
	return statusFromResult(res.Value[0]), nil
}

func (s *service) AwaitConfirmation(
	ctx context.Context, sig solana.Signature, status domain.ConfirmationStatus,
) error {
	ws, err := s.wsClient()
	if err != nil {
		s.warn(err, "websocket not available, polling tx %s", sig)
		return s.poll(ctx, sig, status)
	}

	chNotif, subscripId, err := ws.subscribeSignature(ctx, sig, commitmentFor(status))
	if err != nil {
		s.warn(err, "failed to subscribe for tx %s, polling", sig)
		return s.poll(ctx, sig, status)
	}

	// The tx may have reached the status before the subscription was set up.
	current, err := s.GetSignatureStatus(ctx, sig)
	if err != nil {
		ws.unsubscribeSignature(subscripId)
		return err
	}
	if done, err := checkStatus(sig, current, status); done {
		ws.unsubscribeSignature(subscripId)
		return err
	}

	select {
	case n, ok := <-chNotif:
		if !ok {
			return s.poll(ctx, sig, status)
		}
		if n.Result.Value.Err != nil {
			return fmt.Errorf("transaction %s failed: %v", sig, n.Result.Value.Err)
		}
		return nil
	case <-ctx.Done():
		ws.unsubscribeSignature(subscripId)
		return ctx.Err()
	}
}

func (s *service) GetBalance(
	ctx context.Context, account solana.PublicKey,
) (uint64, error) {
	res, err := s.client.GetBalance(ctx, account, s.commitment)
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

func (s *service) RequestAirdrop(
	ctx context.Context, account solana.PublicKey, lamports uint64,
) (solana.Signature, error) {
	return s.client.RequestAirdrop(ctx, account, lamports, s.commitment)
}

func (s *service) GetMinimumBalanceForRentExemption(
	ctx context.Context, size uint64,
) (uint64, error) {
	return s.client.GetMinimumBalanceForRentExemption(ctx, size, s.commitment)
}

func (s *service) AccountExists(
	ctx context.Context, account solana.PublicKey,
) (bool, error) {
	res, err := s.client.GetAccountInfoWithOpts(
		ctx, account, &rpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: s.commitment,
		},
	)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return res != nil && res.Value != nil, nil
}

func (s *service) GetTokenBalance(
	ctx context.Context, tokenAccount solana.PublicKey,
) (uint64, error) {
	res, err := s.client.GetTokenAccountBalance(ctx, tokenAccount, s.commitment)
	if err != nil {
		return 0, err
	}
	if res == nil || res.Value == nil {
		return 0, fmt.Errorf("token account %s not found", tokenAccount)
	}
	return strconv.ParseUint(res.Value.Amount, 10, 64)
}

func (s *service) Close() {
	s.wsLock.Lock()
	defer s.wsLock.Unlock()

	if s.ws != nil {
		s.ws.close()
		s.ws = nil
	}
	if err := s.client.Close(); err != nil {
		s.warn(err, "failed to close rpc client")
	}
}

// wsClient returns the websocket client, dialing it again if the connection
// dropped.
func (s *service) wsClient() (*wsClient, error) {
	s.wsLock.Lock()
	defer s.wsLock.Unlock()

	if s.wsAddr == "" {
		return nil, errConnectionClosed
	}
	if s.ws != nil && !s.ws.isClosed() {
		return s.ws, nil
	}
	ws, err := newWSClient(s.wsAddr)
	if err != nil {
		return nil, err
	}
	s.ws = ws
	return ws, nil
}

func (s *service) poll(
	ctx context.Context, sig solana.Signature, status domain.ConfirmationStatus,
) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		current, err := s.GetSignatureStatus(ctx, sig)
		if err != nil {
			return err
		}
		if done, err := checkStatus(sig, current, status); done {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func checkStatus(
	sig solana.Signature, current, target domain.ConfirmationStatus,
) (bool, error) {
	if current == domain.StatusFailed {
		return true, fmt.Errorf("transaction %s failed", sig)
	}
	return current.Reached(target), nil
}

// classify turns the refusals of the node into *domain.RejectionError and
// leaves any other error untouched.
func classify(err error) error {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return err
	}
	if _, ok := rejectionCodes[rpcErr.Code]; !ok {
		return err
	}
	return domain.NewRejection(rpcErr.Message)
}
