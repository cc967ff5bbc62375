package rpc_network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const signatureNotification = "signatureNotification"

var errConnectionClosed = fmt.Errorf("websocket connection closed")

type wsClient struct {
	conn      *websocket.Conn
	nextId    uint64
	chHandler *chHandler
	writeLock *sync.Mutex
	closed    int32

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

func newWSClient(addr string) (*wsClient, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, err
	}

	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("network: %s", format)
		log.Debugf(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("network: %s", format)
		log.WithError(err).Warnf(format, a...)
	}

	c := &wsClient{
		conn:      conn,
		nextId:    0,
		chHandler: newChHandler(),
		writeLock: &sync.Mutex{},
		log:       logFn,
		warn:      warnFn,
	}
	go c.listen()
	return c, nil
}

func (c *wsClient) listen() {
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) &&
				!websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.warn(err, "connection dropped")
			}
			atomic.StoreInt32(&c.closed, 1)
			c.chHandler.clear()
			return
		}

		var resp response
		if err := json.Unmarshal(msg, &resp); err != nil {
			c.warn(err, "failed to parse message from socket")
			continue
		}

		if resp.Method == signatureNotification {
			if resp.Params != nil {
				c.chHandler.notify(*resp.Params)
			}
			continue
		}
		c.chHandler.resolve(resp)
	}
}

func (c *wsClient) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

func (c *wsClient) close() {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	c.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	c.conn.Close()
}

// subscribeSignature returns the channel notified once the transaction
// reaches the given commitment, and the subscription id.
func (c *wsClient) subscribeSignature(
	ctx context.Context, sig solana.Signature, commitment rpc.CommitmentType,
) (chan notification, uint64, error) {
	req := c.newRequest(
		"signatureSubscribe", sig.String(),
		map[string]interface{}{"commitment": commitment},
	)
	chNotif := c.chHandler.addSubscription(req.Id)

	resp, err := c.request(ctx, req)
	if err != nil {
		return nil, 0, err
	}
	var subscripId uint64
	if err := json.Unmarshal(resp.Result, &subscripId); err != nil {
		return nil, 0, fmt.Errorf("invalid subscription id: %s", err)
	}
	c.log("subscribed for tx %s (subscription %d)", sig, subscripId)
	return chNotif, subscripId, nil
}

func (c *wsClient) unsubscribeSignature(subscripId uint64) {
	c.chHandler.clearSubscription(subscripId)
	req := c.newRequest("signatureUnsubscribe", subscripId)
	if err := c.write(req); err != nil {
		c.warn(err, "failed to unsubscribe %d", subscripId)
	}
}

func (c *wsClient) request(ctx context.Context, req request) (*response, error) {
	if c.isClosed() {
		c.chHandler.clearRequest(req.Id)
		return nil, errConnectionClosed
	}

	chResp := c.chHandler.addRequest(req.Id)
	defer c.chHandler.clearRequest(req.Id)

	if err := c.write(req); err != nil {
		return nil, err
	}

	select {
	case resp, ok := <-chResp:
		if !ok {
			return nil, errConnectionClosed
		}
		if err := resp.error(); err != nil {
			return nil, err
		}
		return &resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *wsClient) write(req request) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	return c.conn.WriteJSON(req)
}

func (c *wsClient) newRequest(method string, params ...interface{}) request {
	params = append([]interface{}{}, params...)
	return request{"2.0", atomic.AddUint64(&c.nextId, 1), method, params}
}
