package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/matheus3301/walink/internal/client"
)

// Client talks to a daemon's control socket.
type Client struct {
	conn *grpc.ClientConn
}

// Event is one notification received from the Events stream.
type Event struct {
	ID        string
	Instance  string
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Dial connects to the daemon's Unix domain socket.
func Dial(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Call runs method on instance. An empty instance addresses the only
// hosted instance.
func (c *Client) Call(ctx context.Context, instance, method string, params map[string]any) (client.Result, error) {
	req, err := toStruct(map[string]any{"method": method, "instance": instance, "args": params})
	if err != nil {
		return client.Result{}, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, callMethod, req, out); err != nil {
		return client.Result{}, err
	}
	fields := out.AsMap()
	success, _ := fields["success"].(bool)
	return client.Result{
		Success: success,
		Error:   str(fields["error"]),
		Data:    fields["data"],
	}, nil
}

// Instances lists the instance ids the daemon hosts.
func (c *Client) Instances(ctx context.Context) ([]string, error) {
	res, err := c.Call(ctx, "", methodInstances, nil)
	if err != nil {
		return nil, err
	}
	list, _ := res.Data.([]any)
	ids := make([]string, 0, len(list))
	for _, v := range list {
		ids = append(ids, str(v))
	}
	return ids, nil
}

// Events streams notifications of instance matching namespace and calls fn
// for each until ctx ends, the stream fails or fn returns an error.
func (c *Client) Events(ctx context.Context, instance, namespace string, fn func(Event) error) error {
	stream, err := c.conn.NewStream(ctx, &serviceDesc.Streams[0], eventsMethod)
	if err != nil {
		return err
	}
	req, err := toStruct(map[string]any{"instance": instance, "namespace": namespace})
	if err != nil {
		return err
	}
	if err := stream.SendMsg(req); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		out := new(structpb.Struct)
		if err := stream.RecvMsg(out); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		f := out.AsMap()
		ms, _ := f["timestamp_ms"].(float64)
		evt := Event{
			ID:        str(f["id"]),
			Instance:  str(f["instance"]),
			Kind:      str(f["kind"]),
			Timestamp: time.UnixMilli(int64(ms)),
			Payload:   f["payload"],
		}
		if err := fn(evt); err != nil {
			return err
		}
	}
}
