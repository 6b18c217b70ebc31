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

package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/inconshreveable/log15"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWatch(t *testing.T) {
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())

	Convey("Given a raw directory", t, func() {
		dir := t.TempDir()

		So(os.Mkdir(filepath.Join(dir, "A"), 0o755), ShouldBeNil)
		So(os.Mkdir(filepath.Join(dir, "B_import"), 0o755), ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var calls [][]string

		Convey("Watch calls back with all directories, then only new ones", func() {
			fn := func(newDirs []string) error {
				calls = append(calls, newDirs)

				if len(calls) == 1 {
					return os.Mkdir(filepath.Join(dir, "C"), 0o755)
				}

				cancel()

				return nil
			}

			err := Watch(ctx, dir, "import", time.Millisecond, fn, logger)
			So(err, ShouldBeNil)
			So(calls, ShouldResemble, [][]string{{"A"}, {"C"}})
		})

		Convey("Watch offers directories again if the callback fails", func() {
			fn := func(newDirs []string) error {
				calls = append(calls, newDirs)

				if len(calls) == 1 {
					return errors.New("failed")
				}

				cancel()

				return nil
			}

			err := Watch(ctx, dir, "import", time.Millisecond, fn, logger)
			So(err, ShouldBeNil)
			So(calls, ShouldResemble, [][]string{{"A"}, {"A"}})
		})

		Convey("Watch returns if the directory can't be read", func() {
			err := Watch(ctx, filepath.Join(dir, "missing"), "import", time.Millisecond,
				func([]string) error { return nil }, logger)
			So(err, ShouldNotBeNil)
		})
	})
}
