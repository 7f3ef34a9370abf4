// Package filestore keeps evidence files on the local disk.
package filestore

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/certificacion-calidad-go/internal/port"
)

var tracer = otel.Tracer("infra/filestore")

var _ port.FileStore = (*Local)(nil)

// Local stores files below a base directory. Stored names are random so
// uploads never overwrite each other; the original name is kept by the caller.
type Local struct {
	baseDir string
}

// NewLocal creates the base directory when missing.
func NewLocal(baseDir string) (*Local, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve file storage dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create file storage dir: %w", err)
	}
	return &Local{baseDir: abs}, nil
}

// SaveFile writes content under subfolder and returns its slash-separated path
// relative to the base directory.
func (l *Local) SaveFile(ctx context.Context, content []byte, subfolder, originalName string) (string, int64, error) {
	_, span := tracer.Start(ctx, "FileStore.SaveFile")
	defer span.End()
	span.SetAttributes(attribute.String("subfolder", subfolder), attribute.Int("size", len(content)))

	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	clean := path.Clean("/" + filepath.ToSlash(subfolder))
	rel := path.Join(strings.TrimPrefix(clean, "/"), uuid.NewString()+strings.ToLower(filepath.Ext(originalName)))

	full := filepath.Join(l.baseDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", 0, fmt.Errorf("create folder %s: %w", subfolder, err)
	}
	if err := os.WriteFile(full, content, 0o640); err != nil {
		return "", 0, fmt.Errorf("write %s: %w", rel, err)
	}
	return rel, int64(len(content)), nil
}

// GetFullPath returns the absolute base directory.
func (l *Local) GetFullPath() string {
	return l.baseDir
}
