// Package outliers provides outlier detection over gRPC.
//
// The service is hampel.Outliers with a single unary Detect method. Messages
// are google.protobuf.Struct values, see Request and Response for the layout.
package outliers

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	serviceName  = "hampel.Outliers"
	detectMethod = "/" + serviceName + "/Detect"
)

// OutliersServer is the server API for the Outliers service.
type OutliersServer interface {
	Detect(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// Register registers srv as the Outliers service of s.
func Register(s grpc.ServiceRegistrar, srv OutliersServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*OutliersServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Detect",
			Handler:    detectHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "outliers.proto",
}

func detectHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(OutliersServer).Detect(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: detectMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OutliersServer).Detect(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
