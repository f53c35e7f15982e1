package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nightowl-labs/signal-trader/internal/types"
	"github.com/nightowl-labs/signal-trader/pkg/errors"
)

const fileTimestampLayout = "20060102-150405"

// FileSink writes each snapshot as a timestamped JSON file under a directory.
// Files are never overwritten within the same second for the same symbol, the
// latest write wins.
type FileSink struct {
	dir string
	now func() time.Time
}

// NewFileSink creates the snapshot directory if needed and returns the sink.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeSnapshotWrite, err, "creating snapshot directory %s", dir)
	}

	return &FileSink{
		dir: dir,
		now: time.Now,
	}, nil
}

// Persist writes a single position to <symbol>-<timestamp>.json.
func (s *FileSink) Persist(_ context.Context, position types.Position) error {
	name := fmt.Sprintf("%s-%s.json", strings.ToLower(string(position.Symbol)), s.now().Format(fileTimestampLayout))

	return s.write(name, position)
}

// PersistAll writes the whole book to positions-<timestamp>.json.
func (s *FileSink) PersistAll(_ context.Context, positions []types.Position) error {
	name := fmt.Sprintf("positions-%s.json", s.now().Format(fileTimestampLayout))

	return s.write(name, positions)
}

// Close is a no-op for the file sink.
func (s *FileSink) Close() error {
	return nil
}

func (s *FileSink) write(name string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errors.Wrapf(errors.ErrCodeSnapshotWrite, err, "encoding snapshot %s", name)
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(errors.ErrCodeSnapshotWrite, err, "writing snapshot %s", path)
	}

	return nil
}
