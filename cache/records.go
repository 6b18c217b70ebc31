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

package cache

import (
	"maps"
	"slices"
	"strings"

	"github.com/wtsi-hgi/brkbackup/records"
)

// FindRaw returns the RawDataset with the given path, or nil.
func (c *Cache) FindRaw(path string) *records.RawDataset {
	return c.raws[path]
}

// FindArchive returns the Archive with the given path, or nil.
func (c *Cache) FindArchive(path string) *records.Archive {
	return c.archives[path]
}

// FindRawByArchive returns the RawDataset associated with the archive of the
// given path, or nil if the archive is unknown or its association can't be
// resolved to a known RawDataset.
func (c *Cache) FindRawByArchive(archivePath string) *records.RawDataset {
	a := c.archives[archivePath]
	if a == nil || a.Raw == "" {
		return nil
	}

	return c.raws[a.Raw]
}

// ArchivesOf returns the Archives associated with the given raw dataset path,
// sorted by path.
func (c *Cache) ArchivesOf(rawPath string) []*records.Archive {
	var as []*records.Archive

	for _, a := range c.Archives() {
		if a.Raw == rawPath {
			as = append(as, a)
		}
	}

	return as
}

// AddRaw stores a new RawDataset for path, unless one already exists. It
// returns the stored record and whether it was newly created.
func (c *Cache) AddRaw(path string) (*records.RawDataset, bool) {
	if r, ok := c.raws[path]; ok {
		return r, false
	}

	r := &records.RawDataset{Path: path}
	c.raws[path] = r

	return r, true
}

// AddArchive stores the given Archive, unless one with the same path already
// exists. It returns the stored record and whether the given one was added.
func (c *Cache) AddArchive(a *records.Archive) (*records.Archive, bool) {
	if existing, ok := c.archives[a.Path]; ok {
		return existing, false
	}

	c.archives[a.Path] = a

	return a, true
}

// RemoveArchive deletes the Archive with the given path from the store.
func (c *Cache) RemoveArchive(path string) {
	delete(c.archives, path)
}

// Raws returns all RawDatasets sorted by path.
func (c *Cache) Raws() []*records.RawDataset {
	raws := make([]*records.RawDataset, 0, len(c.raws))

	for _, k := range slices.Sorted(maps.Keys(c.raws)) {
		raws = append(raws, c.raws[k])
	}

	return raws
}

// Archives returns all Archives sorted by path.
func (c *Cache) Archives() []*records.Archive {
	archives := make([]*records.Archive, 0, len(c.archives))

	for _, k := range slices.Sorted(maps.Keys(c.archives)) {
		archives = append(archives, c.archives[k])
	}

	return archives
}

// DuplicateGroup is a set of archives that all resolve to the same raw dataset.
// When Resolved is false, the archives are those whose association could not
// be resolved to a known raw dataset, and Raw is blank.
type DuplicateGroup struct {
	Raw      string
	Resolved bool
	Archives []string
}

// Duplicates groups archives by the path of the RawDataset they resolve to and
// returns the groups with more than one member. Resolved groups are sorted by
// raw path, followed by the unresolved group if there is one.
func (c *Cache) Duplicates() []DuplicateGroup {
	const unresolved = "\x00"

	groups := make(map[string][]string)

	for _, a := range c.Archives() {
		key := unresolved

		if r := c.FindRawByArchive(a.Path); r != nil {
			key = r.Path
		}

		groups[key] = append(groups[key], a.Path)
	}

	var dups []DuplicateGroup

	for _, k := range slices.SortedFunc(maps.Keys(groups), compareUnresolvedLast(unresolved)) {
		if len(groups[k]) < 2 { //nolint:mnd
			continue
		}

		g := DuplicateGroup{Raw: k, Resolved: true, Archives: groups[k]}

		if k == unresolved {
			g.Raw = ""
			g.Resolved = false
		}

		dups = append(dups, g)
	}

	return dups
}

func compareUnresolvedLast(unresolved string) func(a, b string) int {
	return func(a, b string) int {
		switch {
		case a == b:
			return 0
		case a == unresolved:
			return 1
		case b == unresolved:
			return -1
		}

		return strings.Compare(a, b)
	}
}
