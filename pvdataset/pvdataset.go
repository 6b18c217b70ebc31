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

// Package pvdataset recognises ParaVision study datasets, either as a directory
// on disk or packed inside a zip archive, and counts their reconstructions.
package pvdataset

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrNotDataset is returned when a path is not a recognisable study.
	ErrNotDataset = Error("not a ParaVision dataset")

	subjectFile = "subject"
	recoPattern = "*/pdata/*/2dseq"
)

// Dataset describes a recognised study.
type Dataset struct {
	// Name is the study's directory name; for an archive, the name of the
	// directory it extracts to.
	Name string

	// Recos is the number of reconstructed image outputs across all scans.
	Recos int
}

// Inspector inspects paths for ParaVision studies. The zero value is ready to
// use.
type Inspector struct{}

// Inspect returns details of the study at path, which may be a study directory
// or a zip file containing a single study directory. It returns an error
// wrapping ErrNotDataset if path is not a study.
func (Inspector) Inspect(p string) (*Dataset, error) {
	fi, err := os.Stat(p)
	if err != nil {
		return nil, err
	}

	if fi.IsDir() {
		return inspectDir(p)
	}

	return inspectZip(p)
}

func inspectDir(dir string) (*Dataset, error) {
	fi, err := os.Stat(filepath.Join(dir, subjectFile))
	if err != nil || !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s has no %s file", ErrNotDataset, dir, subjectFile)
	}

	recos, err := countRecos(dir)
	if err != nil {
		return nil, err
	}

	return &Dataset{Name: filepath.Base(dir), Recos: recos}, nil
}

// countRecos counts the files under dir whose path relative to dir matches
// recoPattern. dir itself never takes part in the match, so its name may
// contain pattern metacharacters.
func countRecos(dir string) (int, error) {
	root, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return 0, err
	}

	depth := strings.Count(recoPattern, "/")
	recos := 0

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}

		rel = filepath.ToSlash(rel)
		level := strings.Count(rel, "/")

		if d.IsDir() {
			if rel != "." && level >= depth {
				return filepath.SkipDir
			}

			return nil
		}

		if matched, _ := path.Match(recoPattern, rel); matched {
			recos++
		}

		return nil
	})

	return recos, err
}

func inspectZip(file string) (*Dataset, error) {
	z, err := zip.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotDataset, err)
	}

	defer z.Close()

	root, err := studyRoot(z.File)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, file)
	}

	d := &Dataset{Name: root}

	for _, f := range z.File {
		rel, ok := strings.CutPrefix(f.Name, root+"/")
		if !ok {
			continue
		}

		if matched, _ := path.Match(recoPattern, rel); matched {
			d.Recos++
		}
	}

	return d, nil
}

// studyRoot returns the single top-level directory of the archive, which must
// contain a subject file.
func studyRoot(files []*zip.File) (string, error) {
	var root string

	for _, f := range files {
		top, _, _ := strings.Cut(f.Name, "/")

		if root != "" && top != root {
			return "", fmt.Errorf("%w: more than one top level entry", ErrNotDataset)
		}

		root = top
	}

	if root == "" {
		return "", fmt.Errorf("%w: empty archive", ErrNotDataset)
	}

	for _, f := range files {
		if f.Name == root+"/"+subjectFile {
			return root, nil
		}
	}

	return "", fmt.Errorf("%w: no %s file", ErrNotDataset, subjectFile)
}
