package relayv1

import (
	"context"

	"google.golang.org/grpc"
)

// RelayServiceClient is the client API for the RelayService service.
type RelayServiceClient interface {
	PublishIntent(ctx context.Context, in *PublishIntentRequest, opts ...grpc.CallOption) (*PublishIntentResponse, error)
	GetIntent(ctx context.Context, in *GetIntentRequest, opts ...grpc.CallOption) (*GetIntentResponse, error)
	ListIntents(ctx context.Context, in *ListIntentsRequest, opts ...grpc.CallOption) (*ListIntentsResponse, error)
	SubmitIntent(ctx context.Context, in *SubmitIntentRequest, opts ...grpc.CallOption) (*SubmitIntentResponse, error)
	GetBalance(ctx context.Context, in *GetBalanceRequest, opts ...grpc.CallOption) (*GetBalanceResponse, error)
	GetInfo(ctx context.Context, in *GetInfoRequest, opts ...grpc.CallOption) (*GetInfoResponse, error)
	IntentNotifications(ctx context.Context, in *IntentNotificationsRequest, opts ...grpc.CallOption) (RelayService_IntentNotificationsClient, error)
}

type RelayService_IntentNotificationsClient interface {
	Recv() (*IntentNotificationsResponse, error)
	grpc.ClientStream
}

type relayServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewRelayServiceClient returns a client that encodes every call with the
// json codec of this package.
func NewRelayServiceClient(cc grpc.ClientConnInterface) RelayServiceClient {
	return &relayServiceClient{cc}
}

func (c *relayServiceClient) invoke(
	ctx context.Context, method string, in, out interface{},
	opts ...grpc.CallOption,
) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *relayServiceClient) PublishIntent(ctx context.Context, in *PublishIntentRequest, opts ...grpc.CallOption) (*PublishIntentResponse, error) {
	out := new(PublishIntentResponse)
	if err := c.invoke(ctx, RelayService_PublishIntent_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *relayServiceClient) GetIntent(ctx context.Context, in *GetIntentRequest, opts ...grpc.CallOption) (*GetIntentResponse, error) {
	out := new(GetIntentResponse)
	if err := c.invoke(ctx, RelayService_GetIntent_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *relayServiceClient) ListIntents(ctx context.Context, in *ListIntentsRequest, opts ...grpc.CallOption) (*ListIntentsResponse, error) {
	out := new(ListIntentsResponse)
	if err := c.invoke(ctx, RelayService_ListIntents_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *relayServiceClient) SubmitIntent(ctx context.Context, in *SubmitIntentRequest, opts ...grpc.CallOption) (*SubmitIntentResponse, error) {
	out := new(SubmitIntentResponse)
	if err := c.invoke(ctx, RelayService_SubmitIntent_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *relayServiceClient) GetBalance(ctx context.Context, in *GetBalanceRequest, opts ...grpc.CallOption) (*GetBalanceResponse, error) {
	out := new(GetBalanceResponse)
	if err := c.invoke(ctx, RelayService_GetBalance_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *relayServiceClient) GetInfo(ctx context.Context, in *GetInfoRequest, opts ...grpc.CallOption) (*GetInfoResponse, error) {
	out := new(GetInfoResponse)
	if err := c.invoke(ctx, RelayService_GetInfo_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *relayServiceClient) IntentNotifications(ctx context.Context, in *IntentNotificationsRequest, opts ...grpc.CallOption) (RelayService_IntentNotificationsClient, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(
		ctx, &RelayService_ServiceDesc.Streams[0],
		RelayService_IntentNotifications_FullMethodName, opts...,
	)
	if err != nil {
		return nil, err
	}
	x := &relayServiceIntentNotificationsClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type relayServiceIntentNotificationsClient struct {
	grpc.ClientStream
}

func (x *relayServiceIntentNotificationsClient) Recv() (*IntentNotificationsResponse, error) {
	m := new(IntentNotificationsResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
