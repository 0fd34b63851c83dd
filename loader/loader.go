package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DataLoader reads and decodes the YAML documents this layer consumes
// (inventory files, role metadata). Relative paths are resolved against
// the loader's base directory.
type DataLoader struct {
	baseDir string
}

// NewDataLoader creates a loader resolving relative paths against the
// current working directory.
func NewDataLoader() *DataLoader {
	return &DataLoader{}
}

// NewDataLoaderWithBaseDir creates a loader resolving relative paths
// against the given directory.
func NewDataLoaderWithBaseDir(baseDir string) *DataLoader {
	return &DataLoader{baseDir: baseDir}
}

// BaseDir returns the directory relative paths are resolved against.
// Empty means the current working directory.
func (l *DataLoader) BaseDir() string {
	return l.baseDir
}

func (l *DataLoader) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || l.baseDir == "" {
		return path
	}
	return filepath.Join(l.baseDir, path)
}

// ReadFile reads the file at path. An empty file is an error: every document
// this loader handles has required content.
func (l *DataLoader) ReadFile(path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("file path is empty")
	}
	resolved := l.resolve(path)
	content, err := os.ReadFile(resolved)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read file '%s'", resolved)
	}
	if len(content) == 0 {
		return nil, errors.Errorf("file '%s' is empty", resolved)
	}
	return content, nil
}

// LoadYAML reads the file at path and unmarshals it into out.
func (l *DataLoader) LoadYAML(path string, out interface{}) error {
	content, err := l.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(content, out); err != nil {
		return errors.Wrapf(err, "failed to unmarshal YAML from '%s'", l.resolve(path))
	}
	return nil
}

// PathExists checks if a path exists. It distinguishes between "not exist"
// and other errors such as permission denied.
func (l *DataLoader) PathExists(path string) (bool, error) {
	_, err := os.Stat(l.resolve(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// IsDir checks if the given path is an existing directory.
func (l *DataLoader) IsDir(path string) (bool, error) {
	info, err := os.Stat(l.resolve(path))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// RoleNotFoundError reports a role identifier that looked like a filesystem
// location but could not be located.
type RoleNotFoundError struct {
	Role     string
	Searched []string
}

func (e *RoleNotFoundError) Error() string {
	if len(e.Searched) == 0 {
		return fmt.Sprintf("role '%s' not found", e.Role)
	}
	return fmt.Sprintf("role '%s' not found (searched: %s)", e.Role, strings.Join(e.Searched, ", "))
}

// ResolveRole resolves a role identifier for the backend engine.
//
// Path-like identifiers (absolute, or containing a path separator) must exist
// on disk and resolve to an absolute path. Bare names are looked up under the
// given search paths; a bare name found nowhere is returned unchanged so the
// backend's own role lookup convention can still claim it.
func (l *DataLoader) ResolveRole(role string, searchPaths []string) (string, error) {
	if strings.TrimSpace(role) == "" {
		return "", errors.New("role identifier is empty")
	}

	pathLike := filepath.IsAbs(role) || strings.ContainsRune(role, os.PathSeparator)
	if pathLike {
		resolved := l.resolve(role)
		exists, err := l.PathExists(resolved)
		if err != nil {
			return "", errors.Wrapf(err, "failed to check role path '%s'", resolved)
		}
		if !exists {
			return "", &RoleNotFoundError{Role: role}
		}
		abs, err := filepath.Abs(resolved)
		if err != nil {
			return "", errors.Wrapf(err, "failed to resolve role path '%s'", resolved)
		}
		return abs, nil
	}

	searched := make([]string, 0, len(searchPaths))
	for _, sp := range searchPaths {
		candidate := filepath.Join(l.resolve(sp), role)
		searched = append(searched, candidate)
		isDir, err := l.IsDir(candidate)
		if err != nil {
			return "", errors.Wrapf(err, "failed to check role candidate '%s'", candidate)
		}
		if isDir {
			abs, err := filepath.Abs(candidate)
			if err != nil {
				return "", errors.Wrapf(err, "failed to resolve role candidate '%s'", candidate)
			}
			return abs, nil
		}
	}

	return role, nil
}
