package logger

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// bridge adapts a zerolog logger to the slog.Handler interface so the
// editing core can take a plain *slog.Logger without knowing about the
// zerolog setup behind it.
type bridge struct {
	zl    *zerolog.Logger
	attrs []slog.Attr
	group string
}

// NewSlog wraps zl in a *slog.Logger. Context fields set through
// WithRequestID/WithCourseID travel along.
func NewSlog(zl *zerolog.Logger) *slog.Logger {
	return slog.New(&bridge{zl: zl})
}

// Enabled always reports true; zerolog's global level filter decides
// inside Handle.
func (b *bridge) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (b *bridge) Handle(ctx context.Context, r slog.Record) error {
	base := FromContext(ctx, b.zl)
	ev := eventFor(base, r.Level)

	for _, a := range b.attrs {
		ev = b.appendAttr(ev, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		ev = b.appendAttr(ev, a)
		return true
	})

	ev.Msg(r.Message)
	return nil
}

func (b *bridge) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *b
	cp.attrs = append(append([]slog.Attr{}, b.attrs...), attrs...)
	return &cp
}

// WithGroup dot-prefixes subsequent attr keys; zerolog has no native
// group concept.
func (b *bridge) WithGroup(name string) slog.Handler {
	if name == "" {
		return b
	}
	cp := *b
	if cp.group != "" {
		cp.group += "."
	}
	cp.group += name
	return &cp
}

func eventFor(zl *zerolog.Logger, lvl slog.Level) *zerolog.Event {
	switch {
	case lvl <= slog.LevelDebug:
		return zl.Debug()
	case lvl >= slog.LevelError:
		return zl.Error()
	case lvl >= slog.LevelWarn:
		return zl.Warn()
	default:
		return zl.Info()
	}
}

func (b *bridge) appendAttr(ev *zerolog.Event, a slog.Attr) *zerolog.Event {
	key := a.Key
	if b.group != "" {
		key = b.group + "." + key
	}
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return ev.Str(key, v.String())
	case slog.KindInt64:
		return ev.Int64(key, v.Int64())
	case slog.KindUint64:
		return ev.Uint64(key, v.Uint64())
	case slog.KindFloat64:
		return ev.Float64(key, v.Float64())
	case slog.KindBool:
		return ev.Bool(key, v.Bool())
	case slog.KindDuration:
		return ev.Dur(key, v.Duration())
	case slog.KindTime:
		return ev.Time(key, v.Time())
	case slog.KindGroup:
		for _, ga := range v.Group() {
			// The recursive call re-applies the group prefix, so only
			// the attr's own key is prepended here.
			ga.Key = a.Key + "." + ga.Key
			ev = b.appendAttr(ev, ga)
		}
		return ev
	default:
		return ev.Interface(key, v.Any())
	}
}
