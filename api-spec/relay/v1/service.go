package relayv1

import (
	"context"

	"google.golang.org/grpc"
)

const (
	RelayService_PublishIntent_FullMethodName       = "/cosigner.v1.RelayService/PublishIntent"
	RelayService_GetIntent_FullMethodName           = "/cosigner.v1.RelayService/GetIntent"
	RelayService_ListIntents_FullMethodName         = "/cosigner.v1.RelayService/ListIntents"
	RelayService_SubmitIntent_FullMethodName        = "/cosigner.v1.RelayService/SubmitIntent"
	RelayService_GetBalance_FullMethodName          = "/cosigner.v1.RelayService/GetBalance"
	RelayService_GetInfo_FullMethodName             = "/cosigner.v1.RelayService/GetInfo"
	RelayService_IntentNotifications_FullMethodName = "/cosigner.v1.RelayService/IntentNotifications"
)

// RelayServiceServer is the server API for the RelayService service.
type RelayServiceServer interface {
	// PublishIntent stores a new intent or merges the signatures of the given
	// copy into the stored one.
	PublishIntent(context.Context, *PublishIntentRequest) (*PublishIntentResponse, error)
	GetIntent(context.Context, *GetIntentRequest) (*GetIntentResponse, error)
	ListIntents(context.Context, *ListIntentsRequest) (*ListIntentsResponse, error)
	// SubmitIntent broadcasts a complete intent and records the outcome.
	SubmitIntent(context.Context, *SubmitIntentRequest) (*SubmitIntentResponse, error)
	GetBalance(context.Context, *GetBalanceRequest) (*GetBalanceResponse, error)
	GetInfo(context.Context, *GetInfoRequest) (*GetInfoResponse, error)
	// IntentNotifications streams the events of the relay mailbox.
	IntentNotifications(*IntentNotificationsRequest, RelayService_IntentNotificationsServer) error
}

type RelayService_IntentNotificationsServer interface {
	Send(*IntentNotificationsResponse) error
	grpc.ServerStream
}

type relayServiceIntentNotificationsServer struct {
	grpc.ServerStream
}

func (x *relayServiceIntentNotificationsServer) Send(m *IntentNotificationsResponse) error {
	return x.ServerStream.SendMsg(m)
}

func RegisterRelayServiceServer(s grpc.ServiceRegistrar, srv RelayServiceServer) {
	s.RegisterService(&RelayService_ServiceDesc, srv)
}

func unaryHandler[Req any](
	method string,
	call func(srv RelayServiceServer, ctx context.Context, req *Req) (interface{}, error),
) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(
		srv interface{}, ctx context.Context, dec func(interface{}) error,
		interceptor grpc.UnaryServerInterceptor,
	) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RelayServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: method,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(RelayServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func intentNotificationsHandler(srv interface{}, stream grpc.ServerStream) error {
	m := new(IntentNotificationsRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(RelayServiceServer).IntentNotifications(
		m, &relayServiceIntentNotificationsServer{stream},
	)
}

// RelayService_ServiceDesc is the grpc.ServiceDesc for RelayService service.
var RelayService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "cosigner.v1.RelayService",
	HandlerType: (*RelayServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "PublishIntent",
			Handler: unaryHandler(
				RelayService_PublishIntent_FullMethodName,
				func(srv RelayServiceServer, ctx context.Context, req *PublishIntentRequest) (interface{}, error) {
					return srv.PublishIntent(ctx, req)
				},
			),
		},
		{
			MethodName: "GetIntent",
			Handler: unaryHandler(
				RelayService_GetIntent_FullMethodName,
				func(srv RelayServiceServer, ctx context.Context, req *GetIntentRequest) (interface{}, error) {
					return srv.GetIntent(ctx, req)
				},
			),
		},
		{
			MethodName: "ListIntents",
			Handler: unaryHandler(
				RelayService_ListIntents_FullMethodName,
				func(srv RelayServiceServer, ctx context.Context, req *ListIntentsRequest) (interface{}, error) {
					return srv.ListIntents(ctx, req)
				},
			),
		},
		{
			MethodName: "SubmitIntent",
			Handler: unaryHandler(
				RelayService_SubmitIntent_FullMethodName,
				func(srv RelayServiceServer, ctx context.Context, req *SubmitIntentRequest) (interface{}, error) {
					return srv.SubmitIntent(ctx, req)
				},
			),
		},
		{
			MethodName: "GetBalance",
			Handler: unaryHandler(
				RelayService_GetBalance_FullMethodName,
				func(srv RelayServiceServer, ctx context.Context, req *GetBalanceRequest) (interface{}, error) {
					return srv.GetBalance(ctx, req)
				},
			),
		},
		{
			MethodName: "GetInfo",
			Handler: unaryHandler(
				RelayService_GetInfo_FullMethodName,
				func(srv RelayServiceServer, ctx context.Context, req *GetInfoRequest) (interface{}, error) {
					return srv.GetInfo(ctx, req)
				},
			),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "IntentNotifications",
			Handler:       intentNotificationsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "cosigner/v1/relay.proto",
}
