package ingest

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lcalzada-xor/bluespeak/internal/core/domain"
)

const (
	ServiceName  = "bluespeak.v1.AdvertisementIngest"
	ReportMethod = "/" + ServiceName + "/Report"
)

// IngestServer is the server API for the AdvertisementIngest service.
type IngestServer interface {
	Report(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// Ingester accepts batches reported by an agent. discovery.Service satisfies it.
type Ingester interface {
	Ingest(ctx context.Context, source string, raws []domain.RawAdvertisement) (domain.ScanSummary, error)
}

func reportHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IngestServer).Report(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ReportMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(IngestServer).Report(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc describes the AdvertisementIngest service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IngestServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Report", Handler: reportHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bluespeak/v1/ingest.proto",
}

// RegisterIngestServer registers srv on s.
func RegisterIngestServer(s grpc.ServiceRegistrar, srv IngestServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Server implements IngestServer on top of an Ingester.
type Server struct {
	ingester Ingester
}

func NewServer(ingester Ingester) *Server {
	return &Server{ingester: ingester}
}

// NewGRPCServer returns a grpc.Server with the ingest service registered.
func NewGRPCServer(ingester Ingester, opts ...grpc.ServerOption) *grpc.Server {
	s := grpc.NewServer(opts...)
	RegisterIngestServer(s, NewServer(ingester))
	return s
}

func (s *Server) Report(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	agent, raws, err := DecodeBatch(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if agent == "" {
		agent = "agent"
	}

	summary, err := s.ingester.Ingest(ctx, agent, raws)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, status.FromContextError(err).Err()
		}
		slog.Error("Agent batch rejected", "agent", agent, "error", err)
		return nil, status.Error(codes.Internal, err.Error())
	}

	slog.Debug("Agent batch ingested", "agent", agent, "seen", summary.Seen, "new", summary.New)
	return EncodeResponse(summary)
}
