package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/darmiel/fxrelay/internal/core"
)

var _ core.SecretStore = (*File)(nil)

// File reads secrets from files below a directory (e.g. mounted Kubernetes secrets).
type File struct {
	dir string
}

type FileConfig struct {
	Dir string `mapstructure:"dir"`
}

func NewFile(dir string) *File {
	return &File{dir: dir}
}

func (f *File) GetSecret(_ context.Context, name string) (string, error) {
	clean := filepath.Clean("/" + name)
	path := filepath.Join(f.dir, clean)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: '%s'", ErrSecretNotFound, path)
		}
		return "", fmt.Errorf("reading secret file '%s': %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}
