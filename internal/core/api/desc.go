package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "routekeeper.v1.RouteKeeper"

// Method names of the RouteKeeper service.
const (
	MethodPreviewRoute      = "PreviewRoute"
	MethodPreviewAssignment = "PreviewAssignment"
	MethodCompileExpression = "CompileExpression"
	MethodParseExpression   = "ParseExpression"
	MethodExportOutcomes    = "ExportOutcomes"
	MethodSavePolicies      = "SavePolicies"
	MethodCompleteStep      = "CompleteStep"
	MethodArriveBranch      = "ArriveBranch"
	MethodSaveStepConfig    = "SaveStepConfig"
	MethodLoadStepConfig    = "LoadStepConfig"
	MethodDeleteStepConfig  = "DeleteStepConfig"
)

// RouteKeeperServer is the server API. Every message is a
// google.protobuf.Struct holding the JSON form of the domain types, so the
// service needs no generated code.
type RouteKeeperServer interface {
	PreviewRoute(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PreviewAssignment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CompileExpression(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ParseExpression(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportOutcomes(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SavePolicies(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CompleteStep(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ArriveBranch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SaveStepConfig(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LoadStepConfig(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteStepConfig(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(RouteKeeperServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func method(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RouteKeeperServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(RouteKeeperServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the RouteKeeper service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RouteKeeperServer)(nil),
	Methods: []grpc.MethodDesc{
		method(MethodPreviewRoute, RouteKeeperServer.PreviewRoute),
		method(MethodPreviewAssignment, RouteKeeperServer.PreviewAssignment),
		method(MethodCompileExpression, RouteKeeperServer.CompileExpression),
		method(MethodParseExpression, RouteKeeperServer.ParseExpression),
		method(MethodExportOutcomes, RouteKeeperServer.ExportOutcomes),
		method(MethodSavePolicies, RouteKeeperServer.SavePolicies),
		method(MethodCompleteStep, RouteKeeperServer.CompleteStep),
		method(MethodArriveBranch, RouteKeeperServer.ArriveBranch),
		method(MethodSaveStepConfig, RouteKeeperServer.SaveStepConfig),
		method(MethodLoadStepConfig, RouteKeeperServer.LoadStepConfig),
		method(MethodDeleteStepConfig, RouteKeeperServer.DeleteStepConfig),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "routekeeper/v1/routekeeper.proto",
}

// FullMethod returns the gRPC path of a method, e.g.
// /routekeeper.v1.RouteKeeper/PreviewRoute.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// RegisterRouteKeeperServer registers srv on s.
func RegisterRouteKeeperServer(s grpc.ServiceRegistrar, srv RouteKeeperServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls the RouteKeeper service over a connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method name with in.
func (c *Client) Call(ctx context.Context, name string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(name), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// CallJSON encodes req, invokes method name and decodes the reply into resp.
func (c *Client) CallJSON(ctx context.Context, name string, req, resp any, opts ...grpc.CallOption) error {
	in, err := encode(req)
	if err != nil {
		return err
	}
	out, err := c.Call(ctx, name, in, opts...)
	if err != nil {
		return err
	}
	return decode(out, resp)
}
