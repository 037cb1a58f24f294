package logging

import (
	"context"
	"log/slog"
)

// CapturingHandler copies every record into a LogCollector under one
// activity and passes it on to the wrapped handler. Attribute keys inside
// groups are joined with dots.
type CapturingHandler struct {
	next      slog.Handler
	collector *LogCollector
	activity  string
	attrs     map[string]any
	prefix    string
}

// NewCapturingHandler wraps next so records are also stored in collector.
func NewCapturingHandler(next slog.Handler, collector *LogCollector, activity string) *CapturingHandler {
	return &CapturingHandler{
		next:      next,
		collector: collector,
		activity:  activity,
	}
}

// Enabled reports true at every level so debug records are captured even
// when the wrapped handler would drop them.
func (h *CapturingHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *CapturingHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for k, v := range h.attrs {
		attrs[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		flatten(attrs, h.prefix, a)
		return true
	})
	h.collector.Add(h.activity, LogEntry{
		Time:       r.Time,
		Level:      r.Level.String(),
		Message:    r.Message,
		Attributes: attrs,
	})

	if !h.next.Enabled(ctx, r.Level) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

func (h *CapturingHandler) WithAttrs(as []slog.Attr) slog.Handler {
	attrs := make(map[string]any, len(h.attrs)+len(as))
	for k, v := range h.attrs {
		attrs[k] = v
	}
	for _, a := range as {
		flatten(attrs, h.prefix, a)
	}
	clone := *h
	clone.next = h.next.WithAttrs(as)
	clone.attrs = attrs
	return &clone
}

func (h *CapturingHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.next = h.next.WithGroup(name)
	clone.prefix = h.prefix + name + "."
	return &clone
}

func flatten(dst map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range v.Group() {
			flatten(dst, p, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	dst[prefix+a.Key] = plain(v)
}

// plain converts v to a JSON friendly value.
func plain(v slog.Value) any {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time()
	}
	switch x := v.Any().(type) {
	case error:
		return x.Error()
	case interface{ String() string }:
		return x.String()
	default:
		return x
	}
}
