package api

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/matheus3301/walink/internal/metrics"
)

// Command outcomes recorded in metrics.
const (
	outcomeOK     = "ok"
	outcomeFailed = "failed"
	outcomeError  = "error"
)

// UnaryInterceptor tags each call with a request id (returned in the
// response header), logs it and counts it by method and outcome.
func UnaryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	log := logger.Named("api")
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		id := uuid.New().String()
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDKey, id))

		method := info.FullMethod
		if s, ok := req.(*structpb.Struct); ok {
			method = s.GetFields()["method"].GetStringValue()
			if !known(method) {
				method = "unknown"
			}
		}

		start := time.Now()
		resp, err := handler(ctx, req)
		outcome := outcomeOf(resp, err)
		metrics.CommandsTotal.WithLabelValues(method, outcome).Inc()
		log.Debug("call",
			zap.String("request_id", id),
			zap.String("method", method),
			zap.String("outcome", outcome),
			zap.Duration("took", time.Since(start)),
			zap.Error(err),
		)
		return resp, err
	}
}

// StreamInterceptor tags each stream with a request id and logs its span.
func StreamInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	log := logger.Named("api")
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		id := uuid.New().String()
		_ = ss.SetHeader(metadata.Pairs(RequestIDKey, id))
		log.Debug("stream opened", zap.String("request_id", id), zap.String("method", info.FullMethod))
		err := handler(srv, ss)
		log.Debug("stream closed", zap.String("request_id", id), zap.Error(err))
		return err
	}
}

func outcomeOf(resp any, err error) string {
	if err != nil {
		return outcomeError
	}
	if s, ok := resp.(*structpb.Struct); ok && !s.GetFields()["success"].GetBoolValue() {
		return outcomeFailed
	}
	return outcomeOK
}

// NewGRPCServer creates a gRPC server with the control interceptors and
// registers svc on it.
func NewGRPCServer(svc ControlServer, logger *zap.Logger) *grpc.Server {
	srv := grpc.NewServer(
		grpc.UnaryInterceptor(UnaryInterceptor(logger)),
		grpc.StreamInterceptor(StreamInterceptor(logger)),
	)
	RegisterControlServer(srv, svc)
	return srv
}
