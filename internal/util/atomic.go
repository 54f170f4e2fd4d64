// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// PrivateDirPerm is used for directories holding credentials and config.
const PrivateDirPerm os.FileMode = 0700

// RELIABILITY: Atomic write with fsync prevents data loss on crash
//
// AtomicWriteFile writes data to a temporary file in the target directory,
// syncs it, applies perm and renames it over path. Readers see either the old
// file or the complete new one. Missing parent directories are created 0700.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, "failed to get absolute path")
	}

	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, PrivateDirPerm); err != nil {
		return errors.Wrap(err, "failed to create parent directory")
	}

	// Same directory so the rename stays on one filesystem.
	f, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	tempPath := f.Name()

	success := false
	defer func() {
		if !success {
			f.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return errors.Wrap(err, "failed to write data")
	}
	if err := f.Sync(); err != nil {
		return errors.Wrap(err, "failed to sync data to disk")
	}
	// Close before rename - required on Windows
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "failed to close temp file")
	}
	if err := os.Chmod(tempPath, perm); err != nil {
		return errors.Wrap(err, "failed to set file permissions")
	}
	if err := os.Rename(tempPath, absPath); err != nil {
		return errors.Wrap(err, "failed to rename temp file")
	}

	success = true
	return nil
}

// EnsurePrivateFile tightens the permissions of an existing file to 0600.
// SECURITY: config and session files hold secrets.
func EnsurePrivateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return errors.Wrapf(err, "failed to fix insecure permissions (was %o)", mode)
		}
	}
	return nil
}
