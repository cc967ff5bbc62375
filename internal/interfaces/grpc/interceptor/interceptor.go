package grpc_interceptor

import (
	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_logrus "github.com/grpc-ecosystem/go-grpc-middleware/logging/logrus"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	grpc_ctxtags "github.com/grpc-ecosystem/go-grpc-middleware/tags"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
)

// UnaryInterceptor returns the chain of interceptors for unary calls:
// panic recovery, request tagging, logging and domain error mapping.
func UnaryInterceptor() grpc.ServerOption {
	return grpc.UnaryInterceptor(
		grpc_middleware.ChainUnaryServer(
			grpc_recovery.UnaryServerInterceptor(),
			grpc_ctxtags.UnaryServerInterceptor(),
			grpc_logrus.UnaryServerInterceptor(logEntry(), logOptions()...),
			unaryErrorHandler,
		),
	)
}

// StreamInterceptor is the streaming counterpart of UnaryInterceptor.
func StreamInterceptor() grpc.ServerOption {
	return grpc.StreamInterceptor(
		grpc_middleware.ChainStreamServer(
			grpc_recovery.StreamServerInterceptor(),
			grpc_ctxtags.StreamServerInterceptor(),
			grpc_logrus.StreamServerInterceptor(logEntry(), logOptions()...),
			streamErrorHandler,
		),
	)
}

func logEntry() *log.Entry {
	return log.WithField("component", "grpc")
}

func logOptions() []grpc_logrus.Option {
	return []grpc_logrus.Option{
		grpc_logrus.WithLevels(grpc_logrus.DefaultCodeToLevel),
	}
}
