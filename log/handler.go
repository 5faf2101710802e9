// Package log provides structured logging (slog) for extension libraries.
// Records are forwarded to the host through the library handle's LogMessage
// callback; before the handle is established, or when the host does not
// accept log messages, records fall back to stderr.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/kernlink-dev/kernlink-sdk/library"
	"github.com/kernlink-dev/kernlink-sdk/log/logwire"
)

// LevelEnvVar overrides the minimum level ("debug", "info", "warn",
// "error"). Unrecognized values are ignored.
const LevelEnvVar = "KERNLINK_LOG_LEVEL"

// HostHandler implements slog.Handler, routing records to the host.
type HostHandler struct {
	opts     handlerConfig
	attrs    []logwire.Attr
	fallback io.Writer
}

// HandlerOption configures the HostHandler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	level    slog.Level
	fallback io.Writer
}

func defaultHandlerConfig() handlerConfig {
	cfg := handlerConfig{
		level:    slog.LevelInfo,
		fallback: os.Stderr,
	}
	switch strings.ToLower(os.Getenv(LevelEnvVar)) {
	case "debug":
		cfg.level = slog.LevelDebug
	case "info":
		cfg.level = slog.LevelInfo
	case "warn":
		cfg.level = slog.LevelWarn
	case "error":
		cfg.level = slog.LevelError
	}
	return cfg
}

// WithLevel sets the minimum level to report. Records below it are filtered
// on the library side before crossing the boundary.
func WithLevel(level slog.Level) HandlerOption {
	return func(c *handlerConfig) { c.level = level }
}

// WithFallback sets the writer used when no host log callback is available.
func WithFallback(w io.Writer) HandlerOption {
	return func(c *handlerConfig) { c.fallback = w }
}

// NewHandler creates a HostHandler with the given options.
func NewHandler(opts ...HandlerOption) *HostHandler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &HostHandler{opts: cfg, fallback: cfg.fallback}
}

// Install sets a HostHandler as the default slog handler.
func Install(opts ...HandlerOption) {
	slog.SetDefault(slog.New(NewHandler(opts...)))
}

// Enabled implements slog.Handler.
func (h *HostHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level
}

// WithAttrs implements slog.Handler.
func (h *HostHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = make([]logwire.Attr, 0, len(h.attrs)+len(attrs))
	nh.attrs = append(nh.attrs, h.attrs...)
	for _, a := range attrs {
		nh.attrs = append(nh.attrs, logwire.FromAttr(a))
	}
	return &nh
}

// WithGroup implements slog.Handler. Groups are flattened into a key prefix.
func (h *HostHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	nh.attrs = make([]logwire.Attr, len(h.attrs))
	copy(nh.attrs, h.attrs)
	// Prefixing later attrs would need per-handler state; record the group
	// itself so nothing is silently dropped.
	nh.attrs = append(nh.attrs, logwire.Attr{Key: "group", Type: "string", Value: name})
	return &nh
}

// Handle implements slog.Handler.
func (h *HostHandler) Handle(_ context.Context, record slog.Record) error {
	msg := logwire.Message{
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   record.Message,
		Attrs:     append([]logwire.Attr(nil), h.attrs...),
	}
	record.Attrs(func(attr slog.Attr) bool {
		msg.Attrs = append(msg.Attrs, logwire.FromAttr(attr))
		return true
	})

	if d, err := library.Get(); err == nil && d.LogMessage != nil {
		d.LogMessage(msg)
		return nil
	}

	fmt.Fprintf(h.fallback, "%s %s %s", msg.Timestamp.Format("2006-01-02T15:04:05.000"), msg.Level, msg.Message)
	for _, a := range msg.Attrs {
		fmt.Fprintf(h.fallback, " %s=%s", a.Key, a.Value)
	}
	fmt.Fprintln(h.fallback)
	return nil
}
