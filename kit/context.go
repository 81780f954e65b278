// Package kit carries cross-cutting request plumbing: context keys shared by
// the HTTP and MCP transports, and the MCP tool registration helper.
package kit

import "context"

type contextKey string

const (
	RequestIDKey   contextKey = "kit_request_id"
	WorkspaceIDKey contextKey = "kit_workspace_id"
	CaseIDKey      contextKey = "kit_case_id"
	TransportKey   contextKey = "kit_transport" // "http", "mcp", "cli"
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}

func WithWorkspaceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, WorkspaceIDKey, id)
}
func GetWorkspaceID(ctx context.Context) string {
	v, _ := ctx.Value(WorkspaceIDKey).(string)
	return v
}

func WithCaseID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CaseIDKey, id)
}
func GetCaseID(ctx context.Context) string {
	v, _ := ctx.Value(CaseIDKey).(string)
	return v
}

func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}
func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "http"
}
