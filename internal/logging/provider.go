// Package logging routes the otelslog records of the core packages to a
// plain slog handler when no OpenTelemetry log exporter is configured.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/embedded"
	"go.opentelemetry.io/otel/log/global"
)

// severityOffset is the distance between otel severities and slog levels,
// the inverse of what otelslog applies.
const severityOffset = slog.Level(log.SeverityDebug) - slog.LevelDebug

// Provider is a log.LoggerProvider writing to a slog.Handler. Each logger
// adds its instrumentation scope as the "scope" attribute.
type Provider struct {
	embedded.LoggerProvider
	handler slog.Handler
}

func NewProvider(handler slog.Handler) *Provider {
	return &Provider{handler: handler}
}

func (p *Provider) Logger(name string, _ ...log.LoggerOption) log.Logger {
	handler := p.handler
	if name != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("scope", name)})
	}
	return &logger{handler: handler}
}

type logger struct {
	embedded.Logger
	handler slog.Handler
}

func (l *logger) Enabled(ctx context.Context, param log.EnabledParameters) bool {
	return l.handler.Enabled(ctx, slog.Level(param.Severity)-severityOffset)
}

func (l *logger) Emit(ctx context.Context, record log.Record) {
	level := slog.Level(record.Severity()) - severityOffset
	if !l.handler.Enabled(ctx, level) {
		return
	}
	timestamp := record.Timestamp()
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	message := record.Body().String()
	if record.Body().Kind() == log.KindString {
		message = record.Body().AsString()
	}
	out := slog.NewRecord(timestamp, level, message, 0)
	record.WalkAttributes(func(kv log.KeyValue) bool {
		out.AddAttrs(slog.Attr{Key: kv.Key, Value: slogValue(kv.Value)})
		return true
	})
	_ = l.handler.Handle(ctx, out)
}

func slogValue(v log.Value) slog.Value {
	switch v.Kind() {
	case log.KindBool:
		return slog.BoolValue(v.AsBool())
	case log.KindFloat64:
		return slog.Float64Value(v.AsFloat64())
	case log.KindInt64:
		return slog.Int64Value(v.AsInt64())
	case log.KindString:
		return slog.StringValue(v.AsString())
	case log.KindBytes:
		return slog.StringValue(string(v.AsBytes()))
	case log.KindSlice:
		values := make([]any, 0, len(v.AsSlice()))
		for _, item := range v.AsSlice() {
			values = append(values, slogValue(item).Any())
		}
		return slog.AnyValue(values)
	case log.KindMap:
		attrs := make([]slog.Attr, 0, len(v.AsMap()))
		for _, kv := range v.AsMap() {
			attrs = append(attrs, slog.Attr{Key: kv.Key, Value: slogValue(kv.Value)})
		}
		return slog.GroupValue(attrs...)
	default:
		return slog.AnyValue(nil)
	}
}

// Install makes handler the slog default and the global otel logger
// provider, so both slog.Default and the otelslog loggers write to it.
func Install(handler slog.Handler) {
	slog.SetDefault(slog.New(handler))
	global.SetLoggerProvider(NewProvider(handler))
}

// ToFile installs a debug level text handler appending to path. An empty
// path discards everything. The returned func closes the file.
func ToFile(path string) (func(), error) {
	if path == "" {
		slog.SetDefault(slog.New(slog.DiscardHandler))
		return func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	Install(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return func() { _ = f.Close() }, nil
}
