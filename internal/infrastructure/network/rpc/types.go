package rpc_network

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/vulpemventures/cosigner/internal/core/domain"
)

type request struct {
	Version string        `json:"jsonrpc"`
	Id      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type response struct {
	Id     uint64          `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Method string          `json:"method,omitempty"`
	Params *notification   `json:"params,omitempty"`
	Error  *responseErr    `json:"error,omitempty"`
}

func (r response) error() error {
	if r.Error == nil {
		return nil
	}
	return r.Error
}

type responseErr struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *responseErr) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

type notification struct {
	Subscription uint64 `json:"subscription"`
	Result       struct {
		Value struct {
			Err interface{} `json:"err"`
		} `json:"value"`
	} `json:"result"`
}

// chHandler dispatches responses by request id and notifications by
// subscription id.
type chHandler struct {
	chRespByReqId       map[uint64]chan response
	chNotifByReqId      map[uint64]chan notification
	chNotifBySubscripId map[uint64]chan notification
	lock                *sync.RWMutex
}

func newChHandler() *chHandler {
	return &chHandler{
		chRespByReqId:       make(map[uint64]chan response),
		chNotifByReqId:      make(map[uint64]chan notification),
		chNotifBySubscripId: make(map[uint64]chan notification),
		lock:                &sync.RWMutex{},
	}
}

func (h *chHandler) addRequest(reqId uint64) chan response {
	h.lock.Lock()
	defer h.lock.Unlock()

	ch := make(chan response, 1)
	h.chRespByReqId[reqId] = ch
	return ch
}

// addSubscription registers the channel for the notifications of the
// subscription created by the given request. The mapping to the actual
// subscription id happens as soon as the response is read, before any
// notification can be dispatched.
func (h *chHandler) addSubscription(reqId uint64) chan notification {
	h.lock.Lock()
	defer h.lock.Unlock()

	ch := make(chan notification, 1)
	h.chNotifByReqId[reqId] = ch
	return ch
}

func (h *chHandler) resolve(resp response) {
	h.lock.Lock()
	defer h.lock.Unlock()

	if chNotif, ok := h.chNotifByReqId[resp.Id]; ok {
		delete(h.chNotifByReqId, resp.Id)
		var subscripId uint64
		if err := json.Unmarshal(resp.Result, &subscripId); err == nil {
			h.chNotifBySubscripId[subscripId] = chNotif
		}
	}

	if ch, ok := h.chRespByReqId[resp.Id]; ok {
		delete(h.chRespByReqId, resp.Id)
		ch <- resp
	}
}

func (h *chHandler) notify(n notification) {
	h.lock.Lock()
	defer h.lock.Unlock()

	ch, ok := h.chNotifBySubscripId[n.Subscription]
	if !ok {
		return
	}
	delete(h.chNotifBySubscripId, n.Subscription)
	ch <- n
}

func (h *chHandler) clearRequest(reqId uint64) {
	h.lock.Lock()
	defer h.lock.Unlock()

	delete(h.chRespByReqId, reqId)
	delete(h.chNotifByReqId, reqId)
}

func (h *chHandler) clearSubscription(subscripId uint64) {
	h.lock.Lock()
	defer h.lock.Unlock()

	delete(h.chNotifBySubscripId, subscripId)
}

func (h *chHandler) clear() {
	h.lock.Lock()
	defer h.lock.Unlock()

	for id, ch := range h.chRespByReqId {
		close(ch)
		delete(h.chRespByReqId, id)
	}
	for id, ch := range h.chNotifByReqId {
		close(ch)
		delete(h.chNotifByReqId, id)
	}
	for id, ch := range h.chNotifBySubscripId {
		close(ch)
		delete(h.chNotifBySubscripId, id)
	}
}

var commitmentByStatus = map[domain.ConfirmationStatus]rpc.CommitmentType{
	domain.StatusProcessed: rpc.CommitmentProcessed,
	domain.StatusConfirmed: rpc.CommitmentConfirmed,
	domain.StatusFinalized: rpc.CommitmentFinalized,
}

func commitmentFor(status domain.ConfirmationStatus) rpc.CommitmentType {
	if c, ok := commitmentByStatus[status]; ok {
		return c
	}
	return rpc.CommitmentConfirmed
}

func statusFromResult(res *rpc.SignatureStatusesResult) domain.ConfirmationStatus {
	if res == nil {
		return domain.StatusUnknown
	}
	if res.Err != nil {
		return domain.StatusFailed
	}
	switch res.ConfirmationStatus {
	case rpc.ConfirmationStatusProcessed:
		return domain.StatusProcessed
	case rpc.ConfirmationStatusConfirmed:
		return domain.StatusConfirmed
	case rpc.ConfirmationStatusFinalized:
		return domain.StatusFinalized
	default:
		return domain.StatusProcessed
	}
}

// Clusters lists the public endpoints known by name.
var Clusters = map[string]rpc.Cluster{
	"mainnet-beta": rpc.MainNetBeta,
	"testnet":      rpc.TestNet,
	"devnet":       rpc.DevNet,
	"localnet":     rpc.LocalNet,
}
