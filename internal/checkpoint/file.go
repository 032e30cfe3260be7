package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"golang.org/x/sys/unix"

	"github.com/samcharles93/recurrent/internal/backend"
	"github.com/samcharles93/recurrent/internal/lstm"
)

// Save writes m to path. The file is replaced atomically so a crash never
// leaves a half-written model behind.
func Save(path string, m *lstm.Model) error {
	if m == nil {
		return errors.New("checkpoint: nil model")
	}
	buf, err := json.MarshalIndent(NewRecord(m), "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: encode: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(buf); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("checkpoint: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("checkpoint: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// Load reads a model from path. A missing file yields ErrNotFound; unreadable
// or inconsistent contents yield ErrCorrupt. be may be nil for the CPU backend.
func Load(path string, be backend.Backend) (*lstm.Model, error) {
	rec, err := ReadRecord(path)
	if err != nil {
		return nil, err
	}
	return rec.Model(be)
}

// Model rebuilds an lstm model from the record.
func (r *Record) Model(be backend.Backend) (*lstm.Model, error) {
	window, err := r.Window()
	if err != nil {
		return nil, err
	}
	p, err := r.Params()
	if err != nil {
		return nil, err
	}
	m, err := lstm.FromParams(lstm.Config{
		VocabSize:     r.OutputSize,
		HiddenSize:    r.HiddenSize,
		ContextWindow: window,
		Backend:       be,
	}, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return m, nil
}

// ReadRecord decodes the record at path without building a model.
func ReadRecord(path string) (*Record, error) {
	data, release, err := readFile(path)
	if err != nil {
		return nil, err
	}
	defer release()
	return Decode(data)
}

// Decode parses a record in either the current or the legacy layout.
func Decode(data []byte) (*Record, error) {
	var probe struct {
		FormatVersion *int `json:"format_version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if probe.FormatVersion == nil {
		var legacy legacyRecord
		if err := json.Unmarshal(data, &legacy); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		return legacy.upgrade(), nil
	}
	if *probe.FormatVersion > FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrCorrupt, *probe.FormatVersion)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return &rec, nil
}

// readFile maps path read-only, falling back to a plain read when mmap is
// unavailable. release must be called once the bytes are no longer used.
func readFile(path string) ([]byte, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, nil, fmt.Errorf("checkpoint: %w", err)
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("checkpoint: %w", err)
	}
	if stat.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s is a directory", ErrCorrupt, path)
	}
	size64 := stat.Size()
	if size64 == 0 {
		return nil, nil, fmt.Errorf("%w: %s is empty", ErrCorrupt, path)
	}
	if size64 > int64(int(^uint(0)>>1)) {
		return nil, nil, fmt.Errorf("%w: %s is too large", ErrCorrupt, path)
	}
	size := int(size64)

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		return data, func() { _ = unix.Munmap(data) }, nil
	}

	data, err = io.ReadAll(io.NewSectionReader(f, 0, size64))
	if err != nil {
		return nil, nil, fmt.Errorf("checkpoint: %w", err)
	}
	return data, func() {}, nil
}
