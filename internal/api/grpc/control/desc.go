package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "facesentry.v1.ControlService"

	// GetStatusMethod is the full method name of GetStatus.
	GetStatusMethod = "/" + ServiceName + "/GetStatus"

	// SetDetectionMethod is the full method name of SetDetection.
	SetDetectionMethod = "/" + ServiceName + "/SetDetection"

	// ActorMetadataKey carries "user@host" of the caller for the audit trail.
	ActorMetadataKey = "x-actor"
)

// ControlServer is the server API of the control service.
type ControlServer interface {
	GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	SetDetection(ctx context.Context, req *wrapperspb.BoolValue) (*structpb.Struct, error)
}

// ServiceDesc describes the control service for grpc.Server.RegisterService.
//
//nolint:gochecknoglobals // Service descriptors are package-level by gRPC convention.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetStatus",
			Handler:    getStatusHandler,
		},
		{
			MethodName: "SetDetection",
			Handler:    setDetectionHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "facesentry/v1/control.proto",
}

// Register attaches srv to registrar.
func Register(registrar grpc.ServiceRegistrar, srv ControlServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

func getStatusHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	server, _ := srv.(ControlServer)

	if interceptor == nil {
		return server.GetStatus(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetStatusMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		typed, _ := req.(*emptypb.Empty)

		return server.GetStatus(ctx, typed)
	}

	return interceptor(ctx, in, info, handler)
}

func setDetectionHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.BoolValue)
	if err := dec(in); err != nil {
		return nil, err
	}

	server, _ := srv.(ControlServer)

	if interceptor == nil {
		return server.SetDetection(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: SetDetectionMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		typed, _ := req.(*wrapperspb.BoolValue)

		return server.SetDetection(ctx, typed)
	}

	return interceptor(ctx, in, info, handler)
}
