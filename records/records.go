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

// Package records defines the entities persisted in a backup cache: raw
// dataset directories, the archive files made from them, and the rules by which
// an archive's problem flags change as the filesystem is re-examined.
package records

import "strings"

// Flags is a composable set of problems an Archive may have. Combinations such
// as Issued|Garbage are meaningful, so this is a bit set rather than an enum.
type Flags uint8

const (
	// Issued means the archive is known to differ from, or has not been
	// verified against, its raw dataset.
	Issued Flags = 1 << iota

	// Crashed means the archive file is not a structurally valid zip.
	Crashed

	// Garbage means the archive is a valid zip that does not contain a
	// recognisable dataset.
	Garbage
)

var flagNames = [...]struct { //nolint:gochecknoglobals
	flag Flags
	name string
}{
	{Issued, "issued"},
	{Crashed, "crashed"},
	{Garbage, "garbage"},
}

// Has returns true if all of the given flags are set.
func (f Flags) Has(o Flags) bool {
	return f&o == o
}

// Any returns true if at least one of the given flags is set.
func (f Flags) Any(o Flags) bool {
	return f&o != 0
}

// Set returns f with the given flags set.
func (f Flags) Set(o Flags) Flags {
	return f | o
}

// Clear returns f with the given flags cleared.
func (f Flags) Clear(o Flags) Flags {
	return f &^ o
}

// String returns the set flag names joined by "|", or "ok" for no flags.
func (f Flags) String() string {
	if f == 0 {
		return "ok"
	}

	names := make([]string, 0, len(flagNames))

	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}

	return strings.Join(names, "|")
}

// RawDataset represents a raw dataset directory directly under the raw root.
//
// Records are never deleted: Removed records the historical fact that the
// directory has gone, and Backup stays true if it had been archived.
type RawDataset struct {
	Path    string
	Removed bool
	Backup  bool
}

// Key returns the identity key of the record.
func (r *RawDataset) Key() string {
	return r.Path
}

// Archive represents an archive file directly under the backup root.
type Archive struct {
	Path string

	// Raw is the name of the raw dataset this archive was made from, as
	// derived from the archive name or from the dataset stored inside it.
	Raw string

	Flags Flags
}

// Key returns the identity key of the record.
func (a *Archive) Key() string {
	return a.Path
}

// Issued is a convenience for a.Flags.Has(Issued).
func (a *Archive) Issued() bool { return a.Flags.Has(Issued) }

// Crashed is a convenience for a.Flags.Has(Crashed).
func (a *Archive) Crashed() bool { return a.Flags.Has(Crashed) }

// Garbage is a convenience for a.Flags.Has(Garbage).
func (a *Archive) Garbage() bool { return a.Flags.Has(Garbage) }
