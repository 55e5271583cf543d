// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const filePermissions = 0o644

// Recorder writes event files into an output directory and, optionally,
// screenshots into a separate one.
type Recorder struct {
	dir       string
	screenDir string
}

// New validates the output directories and returns a Recorder. An
// empty screenDir stores screenshots next to the window files.
func New(dir, screenDir string) (*Recorder, error) {
	if err := ValidateDir(dir); err != nil {
		return nil, err
	}
	if screenDir == "" {
		screenDir = dir
	} else if err := ValidateDir(screenDir); err != nil {
		return nil, err
	}
	return &Recorder{dir: dir, screenDir: screenDir}, nil
}

// ValidateDir checks that path names an existing directory.
func ValidateDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("output directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output directory %s is not a directory", path)
	}
	return nil
}

// Dir returns the directory window files are written to.
func (r *Recorder) Dir() string { return r.dir }

// ScreenDir returns the directory screenshots are written to.
func (r *Recorder) ScreenDir() string { return r.screenDir }

// WriteWindow stores an encoded window as <dir>/<timestamp>.json and
// returns the path.
func (r *Recorder) WriteWindow(timestamp int64, encoded []byte) (string, error) {
	path := filepath.Join(r.dir, strconv.FormatInt(timestamp, 10)+".json")
	data := make([]byte, 0, len(encoded)+1)
	data = append(append(data, encoded...), '\n')
	if err := writeAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// WriteScreen stores a raw frame as <screenDir>/<timestamp>.jpg and
// returns the path.
func (r *Recorder) WriteScreen(timestamp int64, payload []byte) (string, error) {
	path := filepath.Join(r.screenDir, strconv.FormatInt(timestamp, 10)+".jpg")
	if err := writeAtomic(path, payload); err != nil {
		return "", err
	}
	return path, nil
}

// writeAtomic replaces path with data. The temporary file lives in the
// same directory so the rename cannot cross filesystems.
func writeAtomic(path string, data []byte) error {
	directory := filepath.Dir(path)
	file, err := os.CreateTemp(directory, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", path, err)
	}
	temporaryPath := file.Name()

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing %s: %w", temporaryPath, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing %s: %w", temporaryPath, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing %s: %w", temporaryPath, err)
	}
	if err := os.Chmod(temporaryPath, filePermissions); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("setting permissions on %s: %w", temporaryPath, err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming %s into place: %w", path, err)
	}

	if parent, err := os.Open(directory); err == nil {
		parent.Sync()
		parent.Close()
	}
	return nil
}
