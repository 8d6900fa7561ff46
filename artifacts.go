package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	errNoOutputFile     = errors.New("no output file found after conversion")
	errUndersizedOutput = errors.New("output file too small, likely incomplete")
)

// candidate extensions checked when locating the produced file.
var outputExtensions = []string{".mp3", ".m4a", ".webm", ".part"}

// artifactStore is a thin wrapper around the produced-file area.
type artifactStore struct {
	dir string
}

func newArtifactStore(dir string) *artifactStore {
	return &artifactStore{dir: dir}
}

func (s *artifactStore) Exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func (s *artifactStore) SizeOf(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Delete removes the artifact, treating an already-absent file as success.
func (s *artifactStore) Delete(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Locate probes the fixed set of candidate extensions for the produced file
// and falls back to the bare base path.
func (s *artifactStore) Locate(outputBase string) (string, error) {
	for _, ext := range outputExtensions {
		candidate := outputBase + ext
		if s.Exists(candidate) {
			return candidate, nil
		}
	}
	if s.Exists(outputBase) {
		return outputBase, nil
	}
	return "", errNoOutputFile
}

// DiscardOutputs removes every output candidate for the base, including the
// bare path. Used after a failed conversion so no partial file lingers.
func (s *artifactStore) DiscardOutputs(outputBase string) {
	for _, ext := range outputExtensions {
		_ = s.Delete(outputBase + ext)
	}
	_ = s.Delete(outputBase)
}

// NormalizeMP3 renames the file to carry a .mp3 extension if it does not
// already.
func (s *artifactStore) NormalizeMP3(path string) (string, error) {
	if strings.HasSuffix(path, ".mp3") {
		return path, nil
	}
	ext := filepath.Ext(path)
	target := strings.TrimSuffix(path, ext) + ".mp3"
	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("normalize extension: %w", err)
	}
	return target, nil
}

// ValidateSize rejects presumed-incomplete outputs, deleting them so no
// partial artifact is left behind.
func (s *artifactStore) ValidateSize(path string) (int64, error) {
	size, err := s.SizeOf(path)
	if err != nil {
		return 0, err
	}
	if size < minArtifactBytes {
		_ = s.Delete(path)
		return 0, fmt.Errorf("%w: %d bytes", errUndersizedOutput, size)
	}
	return size, nil
}
