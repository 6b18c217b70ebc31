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

package records

// Match is the result of comparing an archive against its raw dataset.
type Match int

const (
	// Indeterminate means one side could not be inspected, eg. the raw
	// dataset has been removed or the association could not be resolved.
	Indeterminate Match = iota
	Mismatched
	Matched
)

// String returns a lower case name for the Match.
func (m Match) String() string {
	switch m {
	case Matched:
		return "matched"
	case Mismatched:
		return "mismatched"
	default:
		return "indeterminate"
	}
}

// Probe supplies observations about an archive on disk. Methods are only
// called when the rules need their answer, so implementations may do their
// (potentially expensive) work lazily.
type Probe interface {
	// IsZip reports whether the archive is a structurally valid zip.
	IsZip() bool

	// IsDataset reports whether the archive contains a recognisable dataset.
	IsDataset() bool

	// Compare compares the archive's reconstruction count against its raw
	// dataset's.
	Compare() Match
}

// Outcome is the result of re-assessing an archive.
type Outcome struct {
	Flags Flags

	// MarkBackup is true if the associated raw dataset should be recorded as
	// backed up.
	MarkBackup bool
}

// Assess classifies a newly discovered archive.
//
// An archive that is not a valid zip is Issued|Crashed. One that is a valid zip
// but holds no recognisable dataset is Issued|Garbage. Otherwise it is Issued
// unless it matches its raw dataset.
func Assess(p Probe) Flags {
	if !p.IsZip() {
		return Issued | Crashed
	}

	if !p.IsDataset() {
		return Issued | Garbage
	}

	if p.Compare() != Matched {
		return Issued
	}

	return 0
}

// Reassess re-evaluates an existing archive with the given flags that is still
// present on disk.
func Reassess(f Flags, p Probe) Outcome {
	if !f.Has(Issued) {
		return Outcome{Flags: f, MarkBackup: true}
	}

	if f.Has(Crashed) {
		return reassessCrashed(f, p)
	}

	if p.Compare() == Matched {
		return Outcome{Flags: f.Clear(Issued), MarkBackup: true}
	}

	return Outcome{Flags: f}
}

func reassessCrashed(f Flags, p Probe) Outcome {
	if !p.IsZip() {
		return Outcome{Flags: f}
	}

	f = f.Clear(Crashed)

	if p.Compare() != Matched {
		return Outcome{Flags: f}
	}

	f = f.Clear(Issued)

	if f.Has(Garbage) && p.IsDataset() {
		f = f.Clear(Garbage)
	}

	return Outcome{Flags: f, MarkBackup: true}
}

