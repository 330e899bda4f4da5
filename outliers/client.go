package outliers

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ardanlabs/hampel/hampel"
	"github.com/ardanlabs/hampel/metrics"
)

// Client is an Outliers service client.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient returns a client using cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc}
}

// Detect returns the outliers in ms, which must share the same name.
func (c *Client) Detect(ctx context.Context, ms []metrics.Metric, p hampel.Params, opts ...grpc.CallOption) (Response, error) {
	req := Request{
		Metrics: ms,
		Params:  p,
	}
	in, err := req.toStruct()
	if err != nil {
		return Response{}, err
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, detectMethod, in, out, opts...); err != nil {
		return Response{}, err
	}

	return responseFromStruct(out)
}
