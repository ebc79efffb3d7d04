package log

import (
	"context"
	"encoding/hex"
	"log/slog"
	"strings"

	"github.com/zeebo/blake3"
)

const redacted = "[REDACTED]"

// Fingerprint returns a short, non-reversible identifier for a bearer token
// so log lines can correlate sessions without leaking credentials.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := blake3.Sum256([]byte(token))
	return hex.EncodeToString(sum[:6])
}

// redactAttr rewrites credential-bearing attributes. Tokens become their
// fingerprint; passwords, secrets and Authorization headers are dropped.
func redactAttr(_ []string, a slog.Attr) slog.Attr {
	switch strings.ToLower(a.Key) {
	case "token", "bearer":
		if a.Value.Kind() == slog.KindString {
			return slog.String(a.Key, Fingerprint(a.Value.String()))
		}
		return slog.String(a.Key, redacted)
	case "password", "secret", "jwt_secret", "authorization":
		return slog.String(a.Key, redacted)
	}
	return a
}

type ctxAttrsKey struct{}

// ContextWith returns ctx carrying attrs. Loggers add them to every entry
// logged with that context.
func ContextWith(ctx context.Context, args ...any) context.Context {
	prev, _ := ctx.Value(ctxAttrsKey{}).([]any)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(merged, prev...)
	merged = append(merged, args...)
	return context.WithValue(ctx, ctxAttrsKey{}, merged)
}

// contextHandler adds the attributes stored by ContextWith.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if args, ok := ctx.Value(ctxAttrsKey{}).([]any); ok {
		r.Add(args...)
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}
