package transcript

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	TextFileName   = "transcript.txt"
	JSONFileName   = "transcript.json"
	SchemaFileName = "transcript.schema.json"
)

// FileSink writes transcript.txt, transcript.json and the schema of the
// latter into a per-session directory under Dir.
type FileSink struct {
	Dir string
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{Dir: dir}
}

// SessionDir is the directory the sink uses for sessionID.
func (s *FileSink) SessionDir(sessionID string) string {
	return filepath.Join(s.Dir, sessionID)
}

func (s *FileSink) Store(ctx context.Context, doc Document) (err error) {
	_, span := tracer.Start(ctx, "transcript.store")
	defer span.End()
	span.SetAttributes(attribute.String("transcript.sink", "file"), attribute.String("session.id", doc.SessionID))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	dir := s.SessionDir(doc.SessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create transcript directory: %w", err)
	}

	if err := writeFile(filepath.Join(dir, TextFileName), func(f *os.File) error { return WriteText(f, doc) }); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, JSONFileName), func(f *os.File) error { return WriteJSON(f, doc) }); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, SchemaFileName), func(f *os.File) error { return WriteSchema(f) }); err != nil {
		return err
	}

	logger.Info("transcript stored", "dir", dir, "entries", len(doc.Entries))
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filepath.Base(path), err)
	}
	return nil
}
