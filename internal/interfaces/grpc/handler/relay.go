package grpc_handler

import (
	"context"

	pb "github.com/vulpemventures/cosigner/api-spec/relay/v1"
	"github.com/vulpemventures/cosigner/internal/core/application"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type relay struct {
	relaySvc   *application.RelayService
	fundingSvc *application.FundingService
	notifySvc  *application.NotificationService
	buildInfo  application.BuildInfo
	cluster    string
	chClose    chan struct{}
}

func NewRelayHandler(
	relaySvc *application.RelayService,
	fundingSvc *application.FundingService,
	notifySvc *application.NotificationService,
	buildInfo application.BuildInfo, cluster string,
	chClose chan struct{},
) pb.RelayServiceServer {
	return &relay{relaySvc, fundingSvc, notifySvc, buildInfo, cluster, chClose}
}

func (r *relay) PublishIntent(
	ctx context.Context, req *pb.PublishIntentRequest,
) (*pb.PublishIntentResponse, error) {
	payload, err := parsePayload(req.GetPayload())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	info, err := r.relaySvc.Publish(ctx, payload)
	if err != nil {
		return nil, err
	}
	return &pb.PublishIntentResponse{Intent: parseIntentInfo(info)}, nil
}

func (r *relay) GetIntent(
	ctx context.Context, req *pb.GetIntentRequest,
) (*pb.GetIntentResponse, error) {
	id, err := parseIntentId(req.GetId())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	info, err := r.relaySvc.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	return &pb.GetIntentResponse{Intent: parseIntentInfo(info)}, nil
}

func (r *relay) ListIntents(
	ctx context.Context, req *pb.ListIntentsRequest,
) (*pb.ListIntentsResponse, error) {
	statuses, err := parseStatuses(req.GetStatuses())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	list, err := r.relaySvc.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return &pb.ListIntentsResponse{Intents: parseIntentInfoList(list)}, nil
}

func (r *relay) SubmitIntent(
	ctx context.Context, req *pb.SubmitIntentRequest,
) (*pb.SubmitIntentResponse, error) {
	id, err := parseIntentId(req.GetId())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	info, receipt, err := r.relaySvc.Submit(ctx, id)
	if err != nil {
		return nil, err
	}
	return &pb.SubmitIntentResponse{
		Intent:    parseIntentInfo(info),
		Signature: receipt.Signature.String(),
	}, nil
}

func (r *relay) GetBalance(
	ctx context.Context, req *pb.GetBalanceRequest,
) (*pb.GetBalanceResponse, error) {
	address, err := parseAddress(req.GetAddress())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	balance, err := r.fundingSvc.GetBalance(ctx, address)
	if err != nil {
		return nil, err
	}
	return &pb.GetBalanceResponse{Lamports: balance}, nil
}

func (r *relay) GetInfo(
	_ context.Context, _ *pb.GetInfoRequest,
) (*pb.GetInfoResponse, error) {
	return &pb.GetInfoResponse{
		Version: r.buildInfo.Version,
		Commit:  r.buildInfo.Commit,
		Date:    r.buildInfo.Date,
		Cluster: r.cluster,
	}, nil
}
