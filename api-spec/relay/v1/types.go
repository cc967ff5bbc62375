// Package relayv1 is the Go binding of the cosigner.v1.RelayService contract
// described in api-spec/protobuf/cosigner/v1/relay.proto. Messages travel
// with the json codec registered under CodecName.
package relayv1

// IntentInfo is a relay mailbox entry.
type IntentInfo struct {
	Id              string   `json:"id"`
	Payload         string   `json:"payload"`
	FeePayer        string   `json:"fee_payer"`
	RequiredSigners []string `json:"required_signers"`
	MissingSigners  []string `json:"missing_signers"`
	Anchor          string   `json:"anchor"`
	Status          string   `json:"status"`
	TxSignature     string   `json:"tx_signature,omitempty"`
	Reason          string   `json:"reason,omitempty"`
	CreatedAt       int64    `json:"created_at"`
	UpdatedAt       int64    `json:"updated_at"`
}

func (i *IntentInfo) GetId() string {
	if i == nil {
		return ""
	}
	return i.Id
}

func (i *IntentInfo) GetMissingSigners() []string {
	if i == nil {
		return nil
	}
	return i.MissingSigners
}

func (i *IntentInfo) GetStatus() string {
	if i == nil {
		return ""
	}
	return i.Status
}

type PublishIntentRequest struct {
	// Payload is the base64 handoff payload of a (partially) signed intent.
	Payload string `json:"payload"`
}

func (r *PublishIntentRequest) GetPayload() string {
	if r == nil {
		return ""
	}
	return r.Payload
}

type PublishIntentResponse struct {
	Intent *IntentInfo `json:"intent"`
}

type GetIntentRequest struct {
	Id string `json:"id"`
}

func (r *GetIntentRequest) GetId() string {
	if r == nil {
		return ""
	}
	return r.Id
}

type GetIntentResponse struct {
	Intent *IntentInfo `json:"intent"`
}

type ListIntentsRequest struct {
	// Statuses filters the entries, all of them are returned if empty.
	Statuses []string `json:"statuses,omitempty"`
}

func (r *ListIntentsRequest) GetStatuses() []string {
	if r == nil {
		return nil
	}
	return r.Statuses
}

type ListIntentsResponse struct {
	Intents []*IntentInfo `json:"intents"`
}

type SubmitIntentRequest struct {
	Id string `json:"id"`
}

func (r *SubmitIntentRequest) GetId() string {
	if r == nil {
		return ""
	}
	return r.Id
}

type SubmitIntentResponse struct {
	Intent    *IntentInfo `json:"intent"`
	Signature string      `json:"signature"`
}

type GetBalanceRequest struct {
	Address string `json:"address"`
}

func (r *GetBalanceRequest) GetAddress() string {
	if r == nil {
		return ""
	}
	return r.Address
}

type GetBalanceResponse struct {
	Lamports uint64 `json:"lamports"`
}

type GetInfoRequest struct{}

type GetInfoResponse struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Cluster string `json:"cluster"`
}

type IntentNotificationsRequest struct{}

type IntentNotificationsResponse struct {
	EventType string      `json:"event_type"`
	Intent    *IntentInfo `json:"intent"`
}
