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

// Package archive writes dataset directories into zip archives via a partial
// file that is only renamed to its final name once complete, so that an archive
// at its final name is always whole.
package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrTempMissing is returned by Finalise when the partial file has gone.
	ErrTempMissing = Error("partial archive is missing")

	// ErrNotDir is returned by Create when the source is not a directory.
	ErrNotDir = Error("source is not a directory")

	filePerms = 0o640
)

// ProgressFunc is called after each file is added to an archive with the
// number of files done and the total number of files.
type ProgressFunc func(done, total int)

// IsValid returns true if the file at path is a structurally valid zip.
func IsValid(path string) bool {
	z, err := zip.OpenReader(path)
	if err != nil {
		return false
	}

	return z.Close() == nil
}

// Create writes every regular file nested under srcDir into a new zip file at
// dest, with entry names rooted at srcDir's own base name, so that extracting
// the archive reproduces that directory. dest must not already exist.
//
// On error dest may be left behind, partially written.
//
// Returns the size of the written archive.
func Create(srcDir, dest string, progress ProgressFunc) (uint64, error) {
	root, files, err := listFiles(srcDir)
	if err != nil {
		return 0, err
	}

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerms)
	if err != nil {
		return 0, err
	}

	size, err := write(f, root, filepath.Base(filepath.Clean(srcDir)), files, progress)
	if err != nil {
		f.Close()

		return 0, err
	}

	if err = f.Sync(); err != nil {
		f.Close()

		return 0, err
	}

	return size, f.Close()
}

// listFiles returns the regular files nested under srcDir, which may be a
// symlink to a directory, along with the resolved directory they were found in.
func listFiles(srcDir string) (string, []string, error) {
	fi, err := os.Stat(srcDir)
	if err != nil {
		return "", nil, err
	}

	if !fi.IsDir() {
		return "", nil, fmt.Errorf("%w: %s", ErrNotDir, srcDir)
	}

	root, err := filepath.EvalSymlinks(srcDir)
	if err != nil {
		return "", nil, err
	}

	var files []string

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.Type().IsRegular() {
			files = append(files, p)
		}

		return nil
	})

	return root, files, err
}

func write(f *os.File, root, name string, files []string, progress ProgressFunc) (uint64, error) {
	cw := &countWriter{w: f}
	z := zip.NewWriter(cw)

	for n, file := range files {
		if err := addFile(z, root, name, file); err != nil {
			return 0, err
		}

		if progress != nil {
			progress(n+1, len(files))
		}
	}

	if err := z.Close(); err != nil {
		return 0, err
	}

	return cw.n, nil
}

func addFile(z *zip.Writer, root, name, file string) error {
	fi, err := os.Stat(file)
	if err != nil {
		return err
	}

	rel, err := filepath.Rel(root, file)
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(fi)
	if err != nil {
		return err
	}

	header.Name = path.Join(name, filepath.ToSlash(rel))
	header.Method = zip.Deflate

	w, err := z.CreateHeader(header)
	if err != nil {
		return err
	}

	r, err := os.Open(file)
	if err != nil {
		return err
	}

	defer r.Close()

	_, err = io.Copy(w, r)

	return err
}

type countWriter struct {
	w io.Writer
	n uint64
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += uint64(n) //nolint:gosec

	return n, err
}

// Finalise atomically renames the partial archive tmp to final.
func Finalise(tmp, final string) error {
	if _, err := os.Stat(tmp); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrTempMissing, tmp)
	}

	return os.Rename(tmp, final)
}

// RemoveIfExists deletes path, returning true if something was deleted. It is
// not an error for path not to exist.
func RemoveIfExists(path string) (bool, error) {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	return err == nil, err
}
