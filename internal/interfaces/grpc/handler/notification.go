package grpc_handler

import (
	"fmt"

	pb "github.com/vulpemventures/cosigner/api-spec/relay/v1"
	"github.com/vulpemventures/cosigner/internal/core/application"
)

var ErrStreamConnectionClosed = fmt.Errorf("connection closed on by server")

func (r *relay) IntentNotifications(
	req *pb.IntentNotificationsRequest,
	stream pb.RelayService_IntentNotificationsServer,
) error {
	chEvents, err := r.notifySvc.GetHandoffChannel(stream.Context())
	if err != nil {
		return err
	}

	for {
		select {
		case e, ok := <-chEvents:
			if !ok {
				return ErrStreamConnectionClosed
			}
			if err := stream.Send(&pb.IntentNotificationsResponse{
				EventType: e.EventType.String(),
				Intent:    parseIntentInfo((*application.HandoffInfo)(e.Handoff)),
			}); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		case <-r.chClose:
			return ErrStreamConnectionClosed
		}
	}
}
