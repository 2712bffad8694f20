// Package logging defines the structured, context-aware logger used by the engine and
// the daemon.
package logging

import "context"

// Logger is a context-aware, structured logger. Variadic args are key-value pairs:
//
//	log.Warn(ctx, "rate limit store unavailable", "group", group, "err", err)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}

// Nop returns a Logger that discards everything.
func Nop() Logger { return nop{} }

type nop struct{}

func (nop) Debug(context.Context, string, ...any) {}
func (nop) Info(context.Context, string, ...any)  {}
func (nop) Warn(context.Context, string, ...any)  {}
func (nop) Error(context.Context, string, ...any) {}
func (n nop) With(...any) Logger                  { return n }
