// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// WriteFileAtomic replaces path with whatever write produces. The data goes
// to a temp file in the same directory, is synced, and is renamed over the
// target, so a crash leaves either the old file or the complete new one.
func WriteFileAtomic(path string, perm os.FileMode, write func(w io.Writer) error) (err error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, "resolve path")
	}

	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.Wrap(err, "create parent directory")
	}

	f, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tempPath := f.Name()

	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tempPath)
		}
	}()

	bw := bufio.NewWriter(f)
	if err = write(bw); err != nil {
		return errors.Wrap(err, "write data")
	}
	if err = bw.Flush(); err != nil {
		return errors.Wrap(err, "flush data")
	}
	if err = f.Sync(); err != nil {
		return errors.Wrap(err, "sync data to disk")
	}
	// Close before rename; Windows refuses to rename open files.
	if err = f.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err = os.Chmod(tempPath, perm); err != nil {
		return errors.Wrap(err, "set file permissions")
	}
	if err = os.Rename(tempPath, absPath); err != nil {
		return errors.Wrap(err, "rename temp file")
	}
	return nil
}
