package document

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxNameAttempts bounds the search for a free name in LocalStorage.Save
const maxNameAttempts = 1000

// Storage keeps exported workbooks
type Storage interface {
	// Save writes a workbook and returns the name it was stored under.
	// An existing file is never replaced.
	Save(filename string, data []byte) (string, error)
}

// LocalStorage implements the Storage interface on a local directory
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// Save writes a file under a cleaned version of filename. When that name
// is taken, "_2", "_3", ... is appended before the extension.
func (l *LocalStorage) Save(filename string, data []byte) (string, error) {
	clean := sanitizeFilename(filepath.Base(filename))
	ext := filepath.Ext(clean)
	base := strings.TrimSuffix(clean, ext)

	for i := 1; i <= maxNameAttempts; i++ {
		name := clean
		if i > 1 {
			name = fmt.Sprintf("%s_%d%s", base, i, ext)
		}

		f, err := os.OpenFile(filepath.Join(l.basePath, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating file: %w", err)
		}

		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", fmt.Errorf("writing file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("closing file: %w", err)
		}
		return name, nil
	}
	return "", fmt.Errorf("no free name for %s in %s", clean, l.basePath)
}
