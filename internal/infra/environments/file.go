package environments

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"warden/internal/domain"
)

// FileLoader reads policy documents from <dir>/<environment>.json. It is
// the local-development stand-in for a secret-store loader.
type FileLoader struct {
	Dir string
}

func (l FileLoader) LoadPolicyDocument(_ context.Context, name string) ([]byte, error) {
	path := filepath.Join(l.Dir, name+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("policy document %s: %w", path, domain.ErrNotFound)
		}
		return nil, err
	}
	return raw, nil
}
