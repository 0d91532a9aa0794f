package logging

import (
	"context"
	"log/slog"
)

// requestFields are the request-scoped values the handler adds to every
// record logged with a *Context call.
type requestFields struct {
	requestID string
	provider  string
	model     string
}

type fieldsKey struct{}

func fieldsFrom(ctx context.Context) requestFields {
	if ctx == nil {
		return requestFields{}
	}
	f, _ := ctx.Value(fieldsKey{}).(requestFields)
	return f
}

func withFields(ctx context.Context, set func(*requestFields)) context.Context {
	f := fieldsFrom(ctx)
	set(&f)
	return context.WithValue(ctx, fieldsKey{}, f)
}

// WithRequestID returns ctx carrying the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withFields(ctx, func(f *requestFields) { f.requestID = id })
}

// WithProvider returns ctx carrying the provider serving the current attempt.
func WithProvider(ctx context.Context, provider string) context.Context {
	return withFields(ctx, func(f *requestFields) { f.provider = provider })
}

// WithModel returns ctx carrying the requested model.
func WithModel(ctx context.Context, model string) context.Context {
	return withFields(ctx, func(f *requestFields) { f.model = model })
}

// GetRequestID returns the request id of ctx, or "".
func GetRequestID(ctx context.Context) string { return fieldsFrom(ctx).requestID }

func GetProvider(ctx context.Context) string { return fieldsFrom(ctx).provider }

func GetModel(ctx context.Context) string { return fieldsFrom(ctx).model }

// contextAttrs returns the non-empty request fields of ctx.
func contextAttrs(ctx context.Context) []slog.Attr {
	f := fieldsFrom(ctx)
	var attrs []slog.Attr
	for _, kv := range [...]struct{ key, value string }{
		{"request_id", f.requestID},
		{"provider", f.provider},
		{"model", f.model},
	} {
		if kv.value != "" {
			attrs = append(attrs, slog.String(kv.key, kv.value))
		}
	}
	return attrs
}
