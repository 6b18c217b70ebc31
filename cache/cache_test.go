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
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-hgi/brkbackup/records"
)

func TestCache(t *testing.T) {
	Convey("Given a path for a new cache", t, func() {
		path := filepath.Join(t.TempDir(), DefaultName)

		c, discarded, err := Open(path)
		So(err, ShouldBeNil)
		So(discarded, ShouldBeFalse)
		So(c.Raws(), ShouldBeEmpty)
		So(c.Archives(), ShouldBeEmpty)
		So(c.Run(), ShouldNotBeBlank)

		_, err = os.Stat(path)
		So(err, ShouldBeNil)

		Convey("you can add and find records", func() {
			r, added := c.AddRaw("A")
			So(added, ShouldBeTrue)
			So(r, ShouldResemble, &records.RawDataset{Path: "A"})

			again, added := c.AddRaw("A")
			So(added, ShouldBeFalse)
			So(again, ShouldEqual, r)

			a, added := c.AddArchive(&records.Archive{Path: "A.zip", Raw: "A"})
			So(added, ShouldBeTrue)

			_, added = c.AddArchive(&records.Archive{Path: "A.zip", Raw: "other"})
			So(added, ShouldBeFalse)

			So(c.FindRaw("A"), ShouldEqual, r)
			So(c.FindRaw("B"), ShouldBeNil)
			So(c.FindArchive("A.zip"), ShouldEqual, a)
			So(c.FindRawByArchive("A.zip"), ShouldEqual, r)
			So(c.FindRawByArchive("B.zip"), ShouldBeNil)
			So(c.ArchivesOf("A"), ShouldResemble, []*records.Archive{a})

			c.RemoveArchive("A.zip")
			So(c.FindArchive("A.zip"), ShouldBeNil)
			So(c.FindRawByArchive("A.zip"), ShouldBeNil)
		})

		Convey("a saved store is observed identically after reopening", func() {
			c.AddRaw("B")
			r, _ := c.AddRaw("A")
			r.Backup = true
			r.Removed = true
			c.AddArchive(&records.Archive{Path: "A.zip", Raw: "A", Flags: records.Issued | records.Garbage})
			c.Log("hello", "Test", "save")

			So(c.Save(), ShouldBeNil)
			So(c.Close(), ShouldBeNil)

			reopened, discarded, err := Open(path)
			So(err, ShouldBeNil)
			So(discarded, ShouldBeFalse)

			defer reopened.Close()

			So(reopened.Raws(), ShouldResemble, []*records.RawDataset{
				{Path: "A", Removed: true, Backup: true},
				{Path: "B"},
			})
			So(reopened.Archives(), ShouldResemble, []*records.Archive{
				{Path: "A.zip", Raw: "A", Flags: records.Issued | records.Garbage},
			})

			entries := reopened.Entries()
			So(len(entries), ShouldEqual, 1)
			So(entries[0].Message, ShouldEqual, "hello")
			So(entries[0].Origin, ShouldEqual, "Test.save")
			So(entries[0].Run, ShouldEqual, c.Run())
			So(reopened.Run(), ShouldNotEqual, c.Run())
		})

		Convey("log entries are appended, never replaced", func() {
			c.Log("one", "Test")
			So(c.Save(), ShouldBeNil)
			c.Log("two", "Test")
			So(c.Save(), ShouldBeNil)
			So(c.Save(), ShouldBeNil)
			So(c.Close(), ShouldBeNil)

			reopened, _, err := Open(path)
			So(err, ShouldBeNil)

			defer reopened.Close()

			entries := reopened.Entries()
			So(len(entries), ShouldEqual, 2)
			So(entries[0].Message, ShouldEqual, "one")
			So(entries[1].Message, ShouldEqual, "two")
		})

		Convey("unsaved changes are not observed after reopening", func() {
			c.AddRaw("A")
			So(c.Close(), ShouldBeNil)

			reopened, _, err := Open(path)
			So(err, ShouldBeNil)

			defer reopened.Close()

			So(reopened.Raws(), ShouldBeEmpty)
		})

		Convey("duplicates are grouped by resolved raw dataset", func() {
			c.AddRaw("D")
			c.AddRaw("E")
			c.AddArchive(&records.Archive{Path: "D.zip", Raw: "D"})
			c.AddArchive(&records.Archive{Path: "D.PvDatasets", Raw: "D"})
			c.AddArchive(&records.Archive{Path: "E.zip", Raw: "E"})
			c.AddArchive(&records.Archive{Path: "X.zip", Raw: "X"})
			c.AddArchive(&records.Archive{Path: "Y.zip", Raw: "Y"})

			So(c.Duplicates(), ShouldResemble, []DuplicateGroup{
				{Raw: "D", Resolved: true, Archives: []string{"D.PvDatasets", "D.zip"}},
				{Raw: "", Resolved: false, Archives: []string{"X.zip", "Y.zip"}},
			})

			c.RemoveArchive("Y.zip")
			So(c.Duplicates(), ShouldResemble, []DuplicateGroup{
				{Raw: "D", Resolved: true, Archives: []string{"D.PvDatasets", "D.zip"}},
			})
		})

		Reset(func() {
			c.Close()
		})
	})

	Convey("A corrupt cache file is replaced by an empty store", t, func() {
		path := filepath.Join(t.TempDir(), DefaultName)
		So(os.WriteFile(path, []byte("this is not a bolt database, but it is long enough to look like one"), 0o600),
			ShouldBeNil)

		c, discarded, err := Open(path)
		So(err, ShouldBeNil)
		So(discarded, ShouldBeTrue)
		So(c.Raws(), ShouldBeEmpty)
		So(len(c.Entries()), ShouldEqual, 1)
		So(c.Close(), ShouldBeNil)

		reopened, discarded, err := Open(path)
		So(err, ShouldBeNil)
		So(discarded, ShouldBeFalse)
		So(len(reopened.Entries()), ShouldEqual, 1)
		So(reopened.Close(), ShouldBeNil)
	})

	Convey("A truncated cache file is replaced by an empty store", t, func() {
		path := filepath.Join(t.TempDir(), DefaultName)
		So(os.WriteFile(path, nil, 0o600), ShouldBeNil)

		c, discarded, err := Open(path)
		So(err, ShouldBeNil)
		So(discarded, ShouldBeTrue)
		So(c.Close(), ShouldBeNil)
	})
}
