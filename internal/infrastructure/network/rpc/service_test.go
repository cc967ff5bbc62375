package rpc_network

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/cosigner/internal/core/domain"
)

func TestClassify(t *testing.T) {
	errTransport := fmt.Errorf("connection refused")

	tests := []struct {
		name string
		err  error
		kind error
	}{
		{
			name: "stale_blockhash",
			err: &jsonrpc.RPCError{
				Code:    -32002,
				Message: "Transaction simulation failed: Blockhash not found",
			},
			kind: domain.ErrStaleAnchor,
		},
		{
			name: "insufficient_funds",
			err: &jsonrpc.RPCError{
				Code:    -32002,
				Message: "Transaction simulation failed: Attempt to debit an account but found no record of a prior credit.",
			},
			kind: domain.ErrNetworkRejection,
		},
		{
			name: "signature_verification",
			err: &jsonrpc.RPCError{
				Code:    -32003,
				Message: "Transaction signature verification failure",
			},
			kind: domain.ErrNetworkRejection,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err)
			require.ErrorIs(t, err, tt.kind)

			var rejection *domain.RejectionError
			require.True(t, errors.As(err, &rejection))
			require.Equal(t, tt.err.(*jsonrpc.RPCError).Message, rejection.Reason)
		})
	}

	t.Run("node_unhealthy", func(t *testing.T) {
		err := &jsonrpc.RPCError{Code: -32005, Message: "Node is unhealthy"}
		require.Equal(t, err, classify(err))
	})

	t.Run("transport", func(t *testing.T) {
		require.Equal(t, errTransport, classify(errTransport))
	})
}

func TestStatusFromResult(t *testing.T) {
	require.Equal(t, domain.StatusUnknown, statusFromResult(nil))
	require.Equal(t, domain.StatusFailed, statusFromResult(
		&rpc.SignatureStatusesResult{Err: map[string]interface{}{"InstructionError": nil}},
	))
	require.Equal(t, domain.StatusConfirmed, statusFromResult(
		&rpc.SignatureStatusesResult{ConfirmationStatus: rpc.ConfirmationStatusConfirmed},
	))
	require.Equal(t, domain.StatusFinalized, statusFromResult(
		&rpc.SignatureStatusesResult{ConfirmationStatus: rpc.ConfirmationStatusFinalized},
	))
}

func TestChHandler(t *testing.T) {
	h := newChHandler()

	chResp := h.addRequest(1)
	chNotif := h.addSubscription(1)

	// Subscription ids are mapped when the response is resolved.
	h.resolve(response{Id: 1, Result: json.RawMessage("42")})
	resp := <-chResp
	require.Equal(t, uint64(1), resp.Id)

	var n notification
	require.NoError(t, json.Unmarshal(
		[]byte(`{"subscription":42,"result":{"value":{"err":null}}}`), &n,
	))
	h.notify(n)
	got := <-chNotif
	require.Equal(t, uint64(42), got.Subscription)
	require.Nil(t, got.Result.Value.Err)

	// Unknown subscriptions are ignored.
	h.notify(notification{Subscription: 7})

	chResp = h.addRequest(2)
	h.clear()
	_, ok := <-chResp
	require.False(t, ok)
}

func TestServiceArgs(t *testing.T) {
	tests := []struct {
		name string
		args ServiceArgs
		err  bool
	}{
		{"cluster", ServiceArgs{Cluster: "devnet"}, false},
		{"endpoint", ServiceArgs{RPCAddr: "http://localhost:8899"}, false},
		{"missing", ServiceArgs{}, true},
		{"unknown_cluster", ServiceArgs{Cluster: "regtest"}, true},
		{"invalid_ws", ServiceArgs{Cluster: "devnet", WSAddr: "http://x"}, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := tt.args.validate()
			if tt.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}

	rpcAddr, wsAddr := ServiceArgs{Cluster: "devnet"}.endpoints()
	require.Equal(t, rpc.DevNet.RPC, rpcAddr)
	require.Equal(t, rpc.DevNet.WS, wsAddr)

	rpcAddr, _ = ServiceArgs{
		Cluster: "devnet", RPCAddr: "http://localhost:8899",
	}.endpoints()
	require.Equal(t, "http://localhost:8899", rpcAddr)
}
