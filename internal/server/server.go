// Package server implements the gRPC zarrdump Inspector service
package server

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nainya/zarrdump/internal/inspect"
	"github.com/nainya/zarrdump/pkg/cf"
	"github.com/nainya/zarrdump/pkg/ingest"
	"github.com/nainya/zarrdump/pkg/storage"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "zarrdump.v1.Inspector"

// Full method names, as seen by interceptors.
const (
	CheckMethod   = "/" + ServiceName + "/Check"
	SummaryMethod = "/" + ServiceName + "/Summary"
)

// InspectorServer is the service implementation contract.
type InspectorServer interface {
	Check(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Summary(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the Inspector service. Both methods take and return
// google.protobuf.Struct, so no generated stubs are involved.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InspectorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Check", Handler: unaryHandler(CheckMethod, InspectorServer.Check)},
		{MethodName: "Summary", Handler: unaryHandler(SummaryMethod, InspectorServer.Summary)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "zarrdump/v1/inspector.proto",
}

func unaryHandler(fullMethod string, call func(InspectorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(InspectorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(InspectorServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Register adds the Inspector service to s.
func Register(s grpc.ServiceRegistrar, srv InspectorServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Server implements InspectorServer
type Server struct {
	inspector *inspect.Inspector
	root      string
}

// NewServer creates a new Inspector server. When root is non-empty, requests
// may only name stores below it, as relative paths.
func NewServer(in *inspect.Inspector, root string) *Server {
	return &Server{inspector: in, root: root}
}

// resolve maps a request path to a store location.
func (s *Server) resolve(req *structpb.Struct) (string, error) {
	raw := strings.TrimSpace(req.GetFields()["path"].GetStringValue())
	if raw == "" {
		return "", status.Error(codes.InvalidArgument, "path is required")
	}
	if s.root == "" {
		return raw, nil
	}
	if strings.HasPrefix(raw, storage.SchemeGCS) || !filepath.IsLocal(raw) {
		return "", status.Errorf(codes.PermissionDenied, "path '%s' is outside the served root", raw)
	}
	return filepath.Join(s.root, raw), nil
}

func (s *Server) open(ctx context.Context, req *structpb.Struct) (*inspect.Dataset, error) {
	location, err := s.resolve(req)
	if err != nil {
		return nil, err
	}
	ds, err := s.inspector.Open(ctx, location)
	switch {
	case err == nil:
		return ds, nil
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, storage.ErrNotDirectory):
		return nil, status.Errorf(codes.NotFound, "store not found: %v", err)
	case errors.Is(err, ingest.ErrNotStore):
		return nil, status.Errorf(codes.FailedPrecondition, "not a Zarr store: %v", err)
	}
	var perr *ingest.ParseError
	if errors.As(err, &perr) {
		return nil, status.Errorf(codes.InvalidArgument, "malformed metadata: %v", err)
	}
	return nil, status.Errorf(codes.Internal, "failed to load store: %v", err)
}

// Check runs the CF checker on the requested store
func (s *Server) Check(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ds, err := s.open(ctx, req)
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	report := s.inspector.Check(ctx, ds)
	issues := make([]interface{}, 0, len(report.Issues()))
	for _, is := range report.Issues() {
		issues = append(issues, map[string]interface{}{
			"level":   is.Level.String(),
			"message": is.Message,
		})
	}

	return newStruct(map[string]interface{}{
		"path":     ds.Location,
		"strategy": string(ds.Strategy),
		"warnings": report.Warnings(),
		"errors":   report.Errors(),
		"issues":   issues,
	})
}

// Summary returns the axis summary and inferred dimensions of the store
func (s *Server) Summary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ds, err := s.open(ctx, req)
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	sum := s.inspector.Summarize(ds)
	md := ds.Metadata

	dims := make([]interface{}, 0, len(md.Dimensions))
	for _, name := range md.DimensionNames() {
		d := md.Dimensions[name]
		dims = append(dims, map[string]interface{}{
			"name":      d.Name,
			"length":    d.MaxLength,
			"unlimited": d.IsUnlimited,
		})
	}

	return newStruct(map[string]interface{}{
		"path":                ds.Location,
		"strategy":            string(ds.Strategy),
		"zarr_format":         md.ZarrFormat,
		"variables":           len(md.Variables),
		"conventions":         optionalString(sum.Conventions),
		"axes":                axes(sum),
		"plot_dims":           plotDims(sum),
		"slice_dims":          stringList(sum.SliceDims),
		"candidate_data_vars": stringList(sum.CandidateDataVars),
		"dimensions":          dims,
	})
}

func newStruct(m map[string]interface{}) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

func axes(sum *cf.Summary) []interface{} {
	out := make([]interface{}, 0, len(sum.Axes))
	for _, a := range sum.Axes {
		out = append(out, map[string]interface{}{
			"axis":      string(a.Axis),
			"dim":       a.Dim,
			"coord_var": a.CoordVar,
		})
	}
	return out
}

func plotDims(sum *cf.Summary) interface{} {
	if sum.PlotDims == nil {
		return nil
	}
	return map[string]interface{}{"y": sum.PlotDims.Y, "x": sum.PlotDims.X}
}

func optionalString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func stringList(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
