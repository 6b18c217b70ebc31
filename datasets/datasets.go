/*******************************************************************************
 * Copyright (c) 2026 Genome Research Ltd.
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

// Package datasets contains helpers for discovering raw dataset directories and
// the archive files made from them.
package datasets

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	// StagingMarker marks raw directories that are still being imported.
	StagingMarker = "import"

	// ArchiveExt is the extension of archives this package creates.
	ArchiveExt = ".zip"

	// LegacyExt is the extension of whole-dataset archives made by the
	// instrument software itself.
	LegacyExt = ".PvDatasets"

	// PartialExt is appended to an archive name while it is being written.
	PartialExt = ".part"
)

// FindRawDirs returns the sorted names of the directories directly under root
// that don't have the given staging marker in their name. Symlinks to
// directories count as directories.
func FindRawDirs(root, marker string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	dirs := make([]string, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()

		if marker != "" && strings.Contains(name, marker) {
			continue
		}

		if isDir(root, entry) {
			dirs = append(dirs, name)
		}
	}

	slices.Sort(dirs)

	return dirs, nil
}

func isDir(root string, entry fs.DirEntry) bool {
	if entry.IsDir() {
		return true
	}

	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}

	fi, err := os.Stat(filepath.Join(root, entry.Name()))

	return err == nil && fi.IsDir()
}

// FindArchiveFiles returns the sorted names of the regular files directly under
// root that have an archive extension.
func FindArchiveFiles(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.Type().IsRegular() && IsArchiveName(entry.Name()) {
			files = append(files, entry.Name())
		}
	}

	slices.Sort(files)

	return files, nil
}

// IsArchiveName returns true if name ends with ArchiveExt or LegacyExt.
func IsArchiveName(name string) bool {
	return strings.HasSuffix(name, ArchiveExt) || strings.HasSuffix(name, LegacyExt)
}

// ArchiveName returns the name of the archive for the given raw dataset.
func ArchiveName(raw string) string {
	return raw + ArchiveExt
}

// PartialName returns the name an archive has while it is being written.
func PartialName(archive string) string {
	return archive + PartialExt
}

// RawName returns the raw dataset name an archive name was derived from, by
// removing its archive extension.
func RawName(archive string) string {
	for _, ext := range [...]string{ArchiveExt, LegacyExt} {
		if raw, ok := strings.CutSuffix(archive, ext); ok {
			return raw
		}
	}

	return archive
}

// IsLegacy returns true if the archive name has the LegacyExt.
func IsLegacy(archive string) bool {
	return strings.HasSuffix(archive, LegacyExt)
}

// Exists returns true if something exists at path.
func Exists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}

// DirSize returns the total apparent size of the regular files nested under
// dir, which may be a symlink to a directory.
func DirSize(dir string) (uint64, error) {
	root, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return 0, err
	}

	var size uint64

	err = filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.Type().IsRegular() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}

		size += uint64(fi.Size()) //nolint:gosec

		return nil
	})

	return size, err
}

// FileSize returns the size of the file at path.
func FileSize(path string) (uint64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}

	return uint64(fi.Size()), nil //nolint:gosec
}
