package scratch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// Tracker observes acquisition and release of scratch resources.
type Tracker interface {
	Acquired(name string)
	Released(name string)
}

type Manager struct {
	dir     string
	tracker Tracker
	logger  *logrus.Logger
}

func NewManager(dir string, tracker Tracker, logger *logrus.Logger) *Manager {
	if tracker == nil {
		tracker = nopTracker{}
	}
	return &Manager{dir: dir, tracker: tracker, logger: logger}
}

// File is a temporary file that lives until Release is called.
type File struct {
	path    string
	tracker Tracker
	once    sync.Once
	err     error
}

// Write materializes data into a new scratch file with the given extension.
// The caller must defer Release.
func (m *Manager) Write(data []byte, ext string) (*File, error) {
	if m.dir != "" {
		if err := os.MkdirAll(m.dir, 0o700); err != nil {
			return nil, fmt.Errorf("create scratch dir: %w", err)
		}
	}
	f, err := os.CreateTemp(m.dir, "moderation-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("create scratch file: %w", err)
	}
	path := f.Name()
	m.tracker.Acquired(path)
	sf := &File{path: path, tracker: m.tracker}

	_, werr := f.Write(data)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		if rerr := sf.Release(); rerr != nil && m.logger != nil {
			m.logger.WithError(rerr).Warn("failed to release scratch file")
		}
		return nil, fmt.Errorf("write scratch file: %w", err)
	}
	return sf, nil
}

func (f *File) Path() string {
	return f.path
}

// Release removes the file. It is safe to call more than once.
func (f *File) Release() error {
	f.once.Do(func() {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			f.err = err
		}
		f.tracker.Released(f.path)
	})
	return f.err
}

func (m *Manager) Dir() string {
	if m.dir == "" {
		return os.TempDir()
	}
	return filepath.Clean(m.dir)
}

type nopTracker struct{}

func (nopTracker) Acquired(string) {}
func (nopTracker) Released(string) {}
