package api

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "pixelhealth.v1.EventHealth"

// Full method names.
const (
	GetHealthMethod = "/" + ServiceName + "/GetHealth"
	GetAlertsMethod = "/" + ServiceName + "/GetAlerts"
	GetReportMethod = "/" + ServiceName + "/GetReport"
)

// EventHealthServer is the server API for the EventHealth service.
type EventHealthServer interface {
	GetHealth(context.Context, *HealthRequest) (*HealthResponse, error)
	GetAlerts(context.Context, *HealthRequest) (*AlertsResponse, error)
	GetReport(context.Context, *HealthRequest) (*ReportResponse, error)
}

// RegisterEventHealthServer attaches srv to a gRPC server.
func RegisterEventHealthServer(s grpc.ServiceRegistrar, srv EventHealthServer) {
	s.RegisterService(&EventHealthServiceDesc, srv)
}

// EventHealthServiceDesc describes the EventHealth service. Messages travel
// with the json codec, so no protobuf descriptors are attached.
var EventHealthServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EventHealthServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetHealth", Handler: getHealthHandler},
		{MethodName: "GetAlerts", Handler: getAlertsHandler},
		{MethodName: "GetReport", Handler: getReportHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func getHealthHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(HealthRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EventHealthServer).GetHealth(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetHealthMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EventHealthServer).GetHealth(ctx, req.(*HealthRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getAlertsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(HealthRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EventHealthServer).GetAlerts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetAlertsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EventHealthServer).GetAlerts(ctx, req.(*HealthRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getReportHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(HealthRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EventHealthServer).GetReport(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetReportMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EventHealthServer).GetReport(ctx, req.(*HealthRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// EventHealthClient calls the EventHealth service using the json codec.
type EventHealthClient struct {
	cc grpc.ClientConnInterface
}

// NewEventHealthClient wraps an established connection.
func NewEventHealthClient(cc grpc.ClientConnInterface) *EventHealthClient {
	return &EventHealthClient{cc: cc}
}

// GetHealth returns the per-event-type health view.
func (c *EventHealthClient) GetHealth(ctx context.Context, in *HealthRequest, opts ...grpc.CallOption) (*HealthResponse, error) {
	out := new(HealthResponse)
	if err := c.cc.Invoke(ctx, GetHealthMethod, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAlerts returns the current alert list.
func (c *EventHealthClient) GetAlerts(ctx context.Context, in *HealthRequest, opts ...grpc.CallOption) (*AlertsResponse, error) {
	out := new(AlertsResponse)
	if err := c.cc.Invoke(ctx, GetAlertsMethod, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetReport returns health and alerts evaluated at the same instant.
func (c *EventHealthClient) GetReport(ctx context.Context, in *HealthRequest, opts ...grpc.CallOption) (*ReportResponse, error) {
	out := new(ReportResponse)
	if err := c.cc.Invoke(ctx, GetReportMethod, in, out, withJSON(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withJSON(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}
