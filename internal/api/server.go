package api

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/matheus3301/walink/internal/bus"
	"github.com/matheus3301/walink/internal/client"
)

// methodInstances lists the hosted instances; it needs no instance.
const methodInstances = "instances"

// KindStreamOpen is the first frame of every Events stream. It carries the
// instance state at subscription time.
const KindStreamOpen = "stream.open"

// Service implements ControlServer on top of a client registry.
type Service struct {
	registry *client.Registry
	log      *zap.Logger
}

// NewService creates the control service for the clients in reg.
func NewService(reg *client.Registry, logger *zap.Logger) *Service {
	return &Service{registry: reg, log: logger.Named("api")}
}

// Call runs one facade method. Facade failures come back as a Result with
// Success false; only unknown methods and instances are gRPC errors.
func (s *Service) Call(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.AsMap()
	method := str(fields["method"])

	if method == methodInstances {
		return toStruct(client.ResultOf(s.registry.IDs(), nil))
	}
	h, ok := methods[method]
	if !ok {
		return nil, grpcstatus.Errorf(codes.Unimplemented, "unknown method %q", method)
	}
	c, err := s.client(str(fields["instance"]))
	if err != nil {
		return nil, err
	}
	a, _ := fields["args"].(map[string]any)
	data, err := h(ctx, c, args(a))
	if err != nil {
		s.log.Debug("call failed",
			zap.String("instance", c.ID()),
			zap.String("method", method),
			zap.Error(err),
		)
	}
	return toStruct(client.ResultOf(data, err))
}

// Events streams notifications of one instance whose kind starts with the
// requested namespace.
func (s *Service) Events(req *structpb.Struct, stream grpc.ServerStream) error {
	fields := req.AsMap()
	c, err := s.client(str(fields["instance"]))
	if err != nil {
		return err
	}
	ch, unsub := c.Subscribe(str(fields["namespace"]), defaultBufSize)
	defer unsub()

	open := bus.Event{Kind: KindStreamOpen, Timestamp: time.Now(), Payload: map[string]any{"state": c.State()}}
	if err := s.send(stream, c.ID(), open); err != nil {
		return err
	}

	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			if err := s.send(stream, c.ID(), evt); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

func (s *Service) send(stream grpc.ServerStream, instance string, evt bus.Event) error {
	out, err := toStruct(map[string]any{
		"id":           uuid.New().String(),
		"instance":     instance,
		"kind":         evt.Kind,
		"timestamp_ms": evt.Timestamp.UnixMilli(),
		"payload":      evt.Payload,
	})
	if err != nil {
		s.log.Warn("dropping unencodable event", zap.String("kind", evt.Kind), zap.Error(err))
		return nil
	}
	return stream.SendMsg(out)
}

// client picks the addressed instance. An empty id selects the only
// instance when exactly one is hosted.
func (s *Service) client(id string) (*client.Client, error) {
	if id == "" {
		ids := s.registry.IDs()
		if len(ids) != 1 {
			return nil, grpcstatus.Errorf(codes.InvalidArgument, "instance required: %d hosted", len(ids))
		}
		id = ids[0]
	}
	c, ok := s.registry.Get(id)
	if !ok {
		return nil, grpcstatus.Errorf(codes.NotFound, "instance %q not found", id)
	}
	return c, nil
}
