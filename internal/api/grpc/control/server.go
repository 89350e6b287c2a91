package control

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/oshokin/face-sentry/internal/domain/sentry"
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	Status(ctx context.Context) *domain.State
	SetDetection(ctx context.Context, actor string, active bool) (*domain.State, error)
}

// Server implements ControlServer on top of a Service.
type Server struct {
	// service provides the business logic for control operations.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// GetStatus returns the current detection state.
func (s *Server) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toResponse(s.service.Status(ctx))
}

// SetDetection switches detection on or off.
func (s *Server) SetDetection(ctx context.Context, req *wrapperspb.BoolValue) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	state, err := s.service.SetDetection(ctx, actorFromContext(ctx), req.GetValue())
	if err != nil {
		if ctx.Err() != nil {
			return nil, status.Error(codes.DeadlineExceeded, "switch not applied in time")
		}

		return nil, status.Error(codes.Unavailable, "unable to switch detection")
	}

	return toResponse(state)
}

func toResponse(state *domain.State) (*structpb.Struct, error) {
	doc, err := StateToStruct(state)
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode state")
	}

	return doc, nil
}

// actorFromContext returns the caller identity sent in metadata, if any.
func actorFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	values := md.Get(ActorMetadataKey)
	if len(values) == 0 {
		return ""
	}

	return strings.TrimSpace(values[0])
}
