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

package report

import (
	"io/fs"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-hgi/brkbackup/cache"
	internaltest "github.com/wtsi-hgi/brkbackup/internal/test"
	"github.com/wtsi-hgi/brkbackup/records"
)

type fakeSource struct {
	pending    []*records.RawDataset
	issues     []*records.Archive
	duplicates []cache.DuplicateGroup
	completed  []*records.RawDataset
	raws       map[string]*records.RawDataset
	sizes      map[string]uint64
}

func (f *fakeSource) Pending() []*records.RawDataset      { return f.pending }
func (f *fakeSource) Issues() []*records.Archive          { return f.issues }
func (f *fakeSource) Duplicates() []cache.DuplicateGroup  { return f.duplicates }
func (f *fakeSource) Completed() []*records.RawDataset    { return f.completed }
func (f *fakeSource) RawSize(name string) (uint64, error) { return f.size(name) }

func (f *fakeSource) FindRawByArchive(name string) *records.RawDataset {
	return f.raws[name]
}

func (f *fakeSource) ArchiveSize(name string) (uint64, error) {
	return f.size(name)
}

func (f *fakeSource) size(name string) (uint64, error) {
	size, ok := f.sizes[name]
	if !ok {
		return 0, fs.ErrNotExist
	}

	return size, nil
}

func TestReporter(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	Convey("Given a Reporter", t, func() {
		r := New(Config{User: "alice", Now: func() time.Time { return now }})

		var sb strings.Builder

		Convey("Status of a backup with nothing to do says it is up to date", func() {
			So(r.Status(&sb, &fakeSource{}), ShouldBeNil)

			out := sb.String()
			So(out, ShouldContainSubstring, "Report of the status of archived data [2024-05-06 07:08:09]")
			So(out, ShouldContainSubstring, "Generated by alice")
			So(out, ShouldContainSubstring, "The status of archived data is up-to-date...")
			So(out, ShouldContainSubstring, strings.Repeat("=", DefaultWidth)+"\n")
		})

		Convey("Status lists pending, issued and duplicated data", func() {
			long := strings.Repeat("x", 100)
			src := &fakeSource{
				pending: []*records.RawDataset{{Path: "A"}, {Path: long}},
				issues: []*records.Archive{
					{Path: "B.zip", Raw: "B", Flags: records.Issued | records.Crashed},
					{Path: "C.zip", Raw: "C", Flags: records.Issued | records.Crashed},
					{Path: "D.zip", Raw: "D", Flags: records.Issued},
				},
				duplicates: []cache.DuplicateGroup{
					{Raw: "E", Resolved: true, Archives: []string{"E.PvDatasets", "E.zip"}},
					{Raw: "F", Archives: []string{"F.zip", "G.zip"}},
				},
				raws:  map[string]*records.RawDataset{"B.zip": {Path: "B"}, "D.zip": {Path: "D"}},
				sizes: map[string]uint64{"A": 2048, "B.zip": 0, "C.zip": 10},
			}

			So(r.Status(&sb, src), ShouldBeNil)

			out := sb.String()
			So(out, ShouldNotContainSubstring, "up-to-date")
			So(out, ShouldContainSubstring, "The list of raw data need to be archived.")
			So(out, ShouldContainSubstring, "2K")
			pathWidth := DefaultWidth - 2*cellPadding - sizeWidth
			So(out, ShouldContainSubstring, strings.Repeat("x", pathWidth-len(ellipsis))+ellipsis)
			So(out, ShouldNotContainSubstring, long)
			So(len(strings.TrimRight(lineWith(out, ellipsis), " ")), ShouldBeGreaterThanOrEqualTo, DefaultWidth-cellPadding)

			for _, line := range strings.Split(out, "\n") {
				So(len(strings.TrimRight(line, " ")), ShouldBeLessThanOrEqualTo, DefaultWidth)
			}

			So(out, ShouldContainSubstring, "Failed or incompleted archived data.")
			So(lineWith(out, "B.zip"), ShouldContainSubstring, "Crashed")
			So(lineWith(out, "C.zip"), ShouldContainSubstring, "Failed")
			So(lineWith(out, "D.zip"), ShouldContainSubstring, "Issued")
			So(lineWith(out, "D.zip"), ShouldContainSubstring, unknownSize)

			So(out, ShouldContainSubstring, "List of duplicated archived data.")
			So(lineWith(out, "E.PvDatasets"), ShouldContainSubstring, " E ")
			So(lineWith(out, "F.zip"), ShouldContainSubstring, removedRaw)
			So(lineWith(out, "G.zip"), ShouldNotContainSubstring, removedRaw)
		})

		Convey("Status can omit small pending raw datasets", func() {
			r = New(Config{User: "alice", MinSize: 1024})
			src := &fakeSource{
				pending: []*records.RawDataset{{Path: "small"}, {Path: "big"}},
				sizes:   map[string]uint64{"small": 10, "big": 4096},
			}

			So(r.Status(&sb, src), ShouldBeNil)

			out := sb.String()
			So(out, ShouldContainSubstring, "big")
			So(out, ShouldNotContainSubstring, "small ")
			So(out, ShouldContainSubstring, "(1 raw datasets not displayed as smaller than 1K)")
		})

		Convey("Completed lists archived raw datasets", func() {
			src := &fakeSource{completed: []*records.RawDataset{
				{Path: "A", Backup: true},
				{Path: "B", Backup: true, Removed: true},
			}}

			So(r.Completed(&sb, src), ShouldBeNil)

			out := sb.String()
			So(out, ShouldContainSubstring, "List of archived dataset")
			So(lineWith(out, " A "), ShouldContainSubstring, "false")
			So(lineWith(out, " B "), ShouldContainSubstring, "true")
		})

		Convey("Completed with nothing archived says so", func() {
			So(r.Completed(&sb, &fakeSource{}), ShouldBeNil)
			So(sb.String(), ShouldContainSubstring, "No archived data...")
		})

		Convey("Log tabulates entries", func() {
			entries := []cache.Entry{
				{Time: now, Message: "archived A as A.zip", Origin: "Handler.backup", Run: "0123456789abcdef"},
			}

			So(r.Log(&sb, entries), ShouldBeNil)

			line := lineWith(sb.String(), "archived A as A.zip")
			So(line, ShouldContainSubstring, "2024-05-06 07:08:09")
			So(line, ShouldContainSubstring, "01234567")
			So(line, ShouldNotContainSubstring, "89abcdef")
			So(line, ShouldContainSubstring, "Handler.backup")
		})

		Convey("write errors are returned", func() {
			So(r.Status(internaltest.BadWriter{}, &fakeSource{}), ShouldNotBeNil)
			So(r.Completed(internaltest.BadWriter{}, &fakeSource{}), ShouldNotBeNil)
			So(r.Log(internaltest.BadWriter{}, nil), ShouldNotBeNil)
		})
	})

	Convey("Table columns fill the report width", t, func() {
		r := New(Config{Width: 60})
		So(r.columnWidths(3, condWidth, sizeWidth), ShouldResemble, []int{60 - 9 - condWidth - sizeWidth, condWidth, sizeWidth})
		So(r.columnWidths(2, 55), ShouldResemble, []int{len(ellipsis) + 1, 55})
	})

	Convey("truncate shortens long strings with an ellipsis", t, func() {
		So(truncate("abcdef", 10), ShouldEqual, "abcdef")
		So(truncate("abcdefghijkl", 10), ShouldEqual, "abcdefg...")
		So(len(truncate(strings.Repeat("a", 50), 20)), ShouldEqual, 20)
	})

	Convey("center and rjust pad to the given width", t, func() {
		So(center("ab", 6), ShouldEqual, "  ab")
		So(rjust("ab", 6), ShouldEqual, "    ab")
		So(rjust("abcdefg", 6), ShouldEqual, "abcdefg")
	})
}

func lineWith(out, substr string) string {
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, substr) {
			return line
		}
	}

	return ""
}
