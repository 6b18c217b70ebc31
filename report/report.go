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

// Package report formats fixed-width, human readable summaries of the state of
// a backup.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/olekukonko/tablewriter"
	"github.com/wtsi-hgi/brkbackup/cache"
	"github.com/wtsi-hgi/brkbackup/records"
)

const (
	// DefaultWidth is the width of reports when Config.Width is unset.
	DefaultWidth = 80

	timeFormat  = "2006-01-02 15:04:05"
	sizeWidth   = 10
	condWidth   = 10
	flagWidth   = 8
	cellPadding = 3
	ellipsis    = "..."
	removedRaw  = "-- Removed --"
	unknownSize = "-"
	runIDLength = 8
)

// Source is what reports are generated from; a *backups.Handler is one.
type Source interface {
	Pending() []*records.RawDataset
	Issues() []*records.Archive
	Duplicates() []cache.DuplicateGroup
	Completed() []*records.RawDataset
	FindRawByArchive(name string) *records.RawDataset
	RawSize(name string) (uint64, error)
	ArchiveSize(name string) (uint64, error)
}

// Config configures a Reporter.
type Config struct {
	// User is named in report headers.
	User string

	// Width is the total width of report lines. Defaults to DefaultWidth.
	Width int

	// Now returns the time reports are generated. Defaults to time.Now.
	Now func() time.Time

	// MinSize excludes pending raw datasets smaller than this many bytes
	// from Status.
	MinSize uint64
}

// Reporter writes reports.
type Reporter struct {
	cfg Config
}

// New returns a Reporter using the given Config.
func New(cfg Config) *Reporter {
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Reporter{cfg: cfg}
}

// errWriter remembers the first error writing to w, after which further writes
// are dropped.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}

	var n int

	n, e.err = e.w.Write(p)

	return n, e.err
}

func (e *errWriter) println(a ...any) {
	fmt.Fprintln(e, a...)
}

func (r *Reporter) header(w *errWriter, title string) {
	w.println()
	w.println(strings.Repeat("=", r.cfg.Width))
	w.println()
	w.println(center(fmt.Sprintf("%s [%s]", title, r.cfg.Now().Format(timeFormat)), r.cfg.Width))
	w.println(rjust("Generated by "+r.cfg.User, r.cfg.Width))
	w.println(strings.Repeat("=", r.cfg.Width))
	w.println()
}

func (r *Reporter) section(w *errWriter, title, note string) {
	w.println(">> " + title)
	w.println("[Note: " + note + "]")
}

func (r *Reporter) footer(w *errWriter, msg string) {
	w.println()
	w.println(center(msg, r.cfg.Width))
	w.println()
	w.println(strings.Repeat("-", r.cfg.Width))
}

// table returns a borderless table with the given columns. If fixed widths are
// given for the trailing columns, the first column takes the rest of the report
// width, so that every row is exactly as wide as the header rules; cells must
// then be truncated to columnWidths().
func (r *Reporter) table(w io.Writer, header []string, alignments []int, fixed ...int) *tablewriter.Table {
	table := tablewriter.NewWriter(w)

	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetColumnAlignment(alignments)
	table.SetBorder(false)
	table.SetColumnSeparator(" ")
	table.SetCenterSeparator(" ")

	if len(fixed) > 0 {
		for n, width := range r.columnWidths(len(header), fixed...) {
			table.SetColMinWidth(n, width)
		}
	}

	return table
}

// columnWidths returns the content width of each of n columns, where all but
// the first have the given fixed widths and the first fills the remainder of
// the report width after cell padding.
func (r *Reporter) columnWidths(n int, fixed ...int) []int {
	first := r.cfg.Width - n*cellPadding

	for _, width := range fixed {
		first -= width
	}

	return append([]int{max(first, len(ellipsis)+1)}, fixed...)
}

// Status writes a report of the raw datasets awaiting archiving, archives with
// outstanding issues, and duplicated archives. If there are none, it says the
// backup is up to date.
func (r *Reporter) Status(w io.Writer, src Source) error {
	ew := &errWriter{w: w}

	r.header(ew, "Report of the status of archived data")

	total := r.pending(ew, src)
	total += r.issues(ew, src)
	total += r.duplicates(ew, src)

	if total == 0 {
		r.footer(ew, "The status of archived data is up-to-date...")
	}

	return ew.err
}

func (r *Reporter) pending(w *errWriter, src Source) int {
	pending := src.Pending()
	if len(pending) == 0 {
		return 0
	}

	table := r.table(w, []string{"Rawdata Path", "Size"},
		[]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT}, sizeWidth)
	pathWidth := r.columnWidths(2, sizeWidth)[0] //nolint:mnd
	shown, skipped := 0, 0

	for _, raw := range pending {
		size, err := src.RawSize(raw.Path)
		if err == nil && size < r.cfg.MinSize {
			skipped++

			continue
		}

		table.Append([]string{truncate(raw.Path, pathWidth), sizeString(size, err)})

		shown++
	}

	r.section(w, "The list of raw data need to be archived.",
		"The list excludes raw data with a garbage archive")

	if shown > 0 {
		table.Render()
	}

	if skipped > 0 {
		w.println(fmt.Sprintf("(%d raw datasets not displayed as smaller than %s)",
			skipped, bytefmt.ByteSize(r.cfg.MinSize)))
	}

	w.println()

	return len(pending)
}

func (r *Reporter) issues(w *errWriter, src Source) int {
	issues := src.Issues()
	if len(issues) == 0 {
		return 0
	}

	r.section(w, "Failed or incompleted archived data.", "The listed data are either crashed or incompleted")

	table := r.table(w, []string{"Archived Path", "Condition", "Size"},
		[]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_RIGHT}, condWidth, sizeWidth)
	pathWidth := r.columnWidths(3, condWidth, sizeWidth)[0] //nolint:mnd

	for _, a := range issues {
		size, err := src.ArchiveSize(a.Path)

		table.Append([]string{
			truncate(a.Path, pathWidth),
			Condition(a, src.FindRawByArchive(a.Path) != nil),
			sizeString(size, err),
		})
	}

	table.Render()
	w.println()

	return len(issues)
}

// Condition describes what is wrong with an issued archive: "Crashed" if it is
// not a valid zip but its raw dataset is known, "Failed" if it is not a valid
// zip and its raw dataset is unknown, otherwise "Issued".
func Condition(a *records.Archive, resolved bool) string {
	switch {
	case a.Crashed() && resolved:
		return "Crashed"
	case a.Crashed():
		return "Failed"
	default:
		return "Issued"
	}
}

func (r *Reporter) duplicates(w *errWriter, src Source) int {
	dups := src.Duplicates()
	if len(dups) == 0 {
		return 0
	}

	r.section(w, "List of duplicated archived data.", "The listed raw data has been archived into multiple files")

	half := (r.cfg.Width - 2*cellPadding) / 2 //nolint:mnd
	table := r.table(w, []string{"Raw Path", "Archived"},
		[]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT}, half)
	first := r.columnWidths(2, half)[0] //nolint:mnd

	for _, g := range dups {
		raw := g.Raw
		if !g.Resolved {
			raw = removedRaw
		}

		for n, name := range g.Archives {
			if n > 0 {
				raw = ""
			}

			table.Append([]string{truncate(raw, first), truncate(name, half)})
		}
	}

	table.Render()
	w.println()

	return len(dups)
}

// Completed writes a report of the raw datasets that have been archived, and
// whether they have since been removed.
func (r *Reporter) Completed(w io.Writer, src Source) error {
	ew := &errWriter{w: w}

	r.header(ew, "List of archived dataset")

	done := src.Completed()
	if len(done) == 0 {
		r.footer(ew, "No archived data...")

		return ew.err
	}

	table := r.table(ew, []string{"Rawdata Path", "Removed", "Archived"},
		[]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER}, flagWidth, flagWidth)
	pathWidth := r.columnWidths(3, flagWidth, flagWidth)[0] //nolint:mnd

	for _, raw := range done {
		table.Append([]string{
			truncate(raw.Path, pathWidth),
			fmt.Sprintf("%t", raw.Removed),
			fmt.Sprintf("%t", raw.Backup),
		})
	}

	table.Render()

	return ew.err
}

// Log writes the given event log entries as a table, oldest first.
func (r *Reporter) Log(w io.Writer, entries []cache.Entry) error {
	ew := &errWriter{w: w}

	r.header(ew, "Backup event log")

	if len(entries) == 0 {
		r.footer(ew, "No events have been logged...")

		return ew.err
	}

	table := r.table(ew, []string{"Time", "Run", "Origin", "Message"}, nil)

	for _, e := range entries {
		table.Append([]string{e.Time.Format(timeFormat), shortRun(e.Run), e.Origin, e.Message})
	}

	table.Render()

	return ew.err
}

func shortRun(run string) string {
	if len(run) > runIDLength {
		return run[:runIDLength]
	}

	return run
}

func sizeString(size uint64, err error) string {
	if err != nil {
		return unknownSize
	}

	return bytefmt.ByteSize(size)
}

// truncate shortens s to at most width runes, ending it with an ellipsis if
// anything was removed.
func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width || width <= len(ellipsis) {
		return s
	}

	return string(runes[:width-len(ellipsis)]) + ellipsis
}

func center(s string, width int) string {
	pad := width - len([]rune(s))
	if pad <= 0 {
		return s
	}

	return strings.Repeat(" ", pad/2) + s //nolint:mnd
}

func rjust(s string, width int) string {
	pad := width - len([]rune(s))
	if pad <= 0 {
		return s
	}

	return strings.Repeat(" ", pad) + s
}
