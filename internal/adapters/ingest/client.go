package ingest

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
)

// Client pushes advertisement batches to a bluespeak server.
type Client struct {
	conn  *grpc.ClientConn
	agent string
}

// Dial creates a client for addr. The connection is established lazily.
func Dial(addr, agent string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client: %w", err)
	}
	return &Client{conn: conn, agent: agent}, nil
}

// Report sends one batch and returns how many advertisements the server accepted
// and how many were new to it.
func (c *Client) Report(ctx context.Context, raws []domain.RawAdvertisement) (int, int, error) {
	req, err := EncodeBatch(c.agent, raws)
	if err != nil {
		return 0, 0, fmt.Errorf("encode batch: %w", err)
	}
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, ReportMethod, req, resp); err != nil {
		return 0, 0, err
	}
	accepted, fresh := DecodeResponse(resp)
	return accepted, fresh, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
