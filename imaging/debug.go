package imaging

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// FileDebugSink dumps pipeline stage outputs as PNG files, one
// subdirectory per normalized image. Intended for tuning the preprocessing
// stages against problem photos, not for production traffic.
type FileDebugSink struct {
	dir string
	seq atomic.Uint64
}

// NewFileDebugSink creates the capture directory if needed.
func NewFileDebugSink(dir string) (*FileDebugSink, error) {
	if dir == "" {
		return nil, errors.New("debug capture dir required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrap(err, "failed to create debug capture dir")
	}
	return &FileDebugSink{dir: dir}, nil
}

// CaptureStage writes one stage image. Failures are logged and swallowed;
// diagnostics must never break the pipeline.
func (s *FileDebugSink) CaptureStage(name string, img image.Image) {
	path := filepath.Join(s.dir, fmt.Sprintf("%06d_%s.png", s.seq.Add(1), name))
	if err := imaging.Save(img, path); err != nil {
		slog.Warn("failed to write debug capture", "path", path, "err", err)
	}
}
