package catalog

import (
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
)

// LoadProjectIndex reads <project>/.jacques/index.json, returning a fresh
// zero-value index (not an error) when the file does not exist yet —
// ProjectIndex is lazily created on first extraction.
func LoadProjectIndex(projectDir string) (*ProjectIndex, error) {
	path := ProjectIndexPath(projectDir)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &ProjectIndex{}, nil
	}
	if err != nil {
		return nil, err
	}
	var idx ProjectIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

// SaveProjectIndex writes idx to <project>/.jacques/index.json atomically
// (write to a temp file in the same directory, then rename) so a reader
// never observes a partially-written index.
func SaveProjectIndex(projectDir string, idx *ProjectIndex) error {
	path := ProjectIndexPath(projectDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return atomicWriteJSON(path, idx)
}

// LoadGlobalSessionIndex reads ~/.jacques/session-index.json, returning a
// fresh zero-value index when it is missing (rebuilt on demand or on cold
// start).
func LoadGlobalSessionIndex() (*GlobalSessionIndex, error) {
	path, err := GlobalSessionIndexPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &GlobalSessionIndex{}, nil
	}
	if err != nil {
		return nil, err
	}
	var idx GlobalSessionIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

// SaveGlobalSessionIndex writes idx to ~/.jacques/session-index.json
// atomically.
func SaveGlobalSessionIndex(idx *GlobalSessionIndex) error {
	path, err := GlobalSessionIndexPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return atomicWriteJSON(path, idx)
}

func atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
