package grpc_handler

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	pb "github.com/vulpemventures/cosigner/api-spec/relay/v1"
	"github.com/vulpemventures/cosigner/internal/core/application"
	"github.com/vulpemventures/cosigner/internal/core/domain"
)

func parsePayload(payload string) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("missing payload")
	}
	return []byte(payload), nil
}

func parseIntentId(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("missing intent id")
	}
	return id, nil
}

func parseAddress(addr string) (solana.PublicKey, error) {
	if addr == "" {
		return solana.PublicKey{}, fmt.Errorf("missing address")
	}
	key, err := solana.PublicKeyFromBase58(addr)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid address: %s", err)
	}
	return key, nil
}

func parseStatuses(list []string) ([]domain.HandoffStatus, error) {
	statuses := make([]domain.HandoffStatus, 0, len(list))
	for _, s := range list {
		status, err := domain.ParseHandoffStatus(s)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func parseIntentInfo(info *application.HandoffInfo) *pb.IntentInfo {
	if info == nil {
		return nil
	}
	return &pb.IntentInfo{
		Id:              info.ID,
		Payload:         info.Payload,
		FeePayer:        info.FeePayer,
		RequiredSigners: info.RequiredSigners,
		MissingSigners:  info.MissingSigners,
		Anchor:          info.AnchorKind.String(),
		Status:          info.Status.String(),
		TxSignature:     info.TxSignature,
		Reason:          info.Reason,
		CreatedAt:       info.CreatedAt,
		UpdatedAt:       info.UpdatedAt,
	}
}

func parseIntentInfoList(list []*application.HandoffInfo) []*pb.IntentInfo {
	infos := make([]*pb.IntentInfo, 0, len(list))
	for _, info := range list {
		infos = append(infos, parseIntentInfo(info))
	}
	return infos
}
