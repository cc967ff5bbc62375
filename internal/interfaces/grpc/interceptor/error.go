package grpc_interceptor

import (
	"context"
	"errors"

	"github.com/vulpemventures/cosigner/internal/core/application"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	invalidArgumentErrors = []error{
		domain.ErrUnauthorizedSigner,
		domain.ErrMalformedIntent,
		domain.ErrIntentMismatch,
		domain.ErrEmptyInstructions,
		domain.ErrMissingFeePayer,
		domain.ErrInvalidAnchor,
		domain.ErrInvalidNonceAuthority,
		domain.ErrDuplicateNonceAdvance,
		domain.ErrInvalidSigner,
		application.ErrMissingPayer,
		application.ErrMissingMint,
		application.ErrMissingOwner,
		application.ErrMissingReceiver,
		application.ErrMissingAuthority,
		application.ErrZeroAmount,
		application.ErrDraftWithNonce,
		application.ErrInvalidThreshold,
		application.ErrTooManySigners,
	}
	failedPreconditionErrors = []error{
		domain.ErrIncompleteSignatures,
		domain.ErrAnchorPending,
		domain.ErrAnchorSealed,
		domain.ErrHandoffSubmitted,
		application.ErrAirdropDisabled,
	}
	abortedErrors = []error{
		domain.ErrStaleAnchor,
		domain.ErrNonceMismatch,
		domain.ErrNetworkRejection,
	}
)

func unaryErrorHandler(
	ctx context.Context, req interface{},
	info *grpc.UnaryServerInfo, handler grpc.UnaryHandler,
) (interface{}, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		return nil, ToStatus(err)
	}
	return resp, nil
}

func streamErrorHandler(
	srv interface{}, stream grpc.ServerStream,
	info *grpc.StreamServerInfo, handler grpc.StreamHandler,
) error {
	if err := handler(srv, stream); err != nil {
		return ToStatus(err)
	}
	return nil
}

// ToStatus maps domain and application errors to gRPC status errors.
// Errors that already carry a status are returned untouched.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, domain.ErrHandoffNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case isOneOf(err, invalidArgumentErrors):
		return status.Error(codes.InvalidArgument, err.Error())
	case isOneOf(err, failedPreconditionErrors):
		return status.Error(codes.FailedPrecondition, err.Error())
	case isOneOf(err, abortedErrors):
		return status.Error(codes.Aborted, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func isOneOf(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
