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

package cmd

import (
	"github.com/dustin/go-humanize" //nolint:misspell
	"github.com/wtsi-hgi/brkbackup/backups"
)

const progressSteps = 10

// logProgress returns a backups.ProgressFunc that logs at the Info level each
// time a stage gets another tenth of the way through, and at the Debug level
// otherwise.
func logProgress() backups.ProgressFunc {
	var (
		stage string
		step  int
	)

	return func(s string, done, total int) {
		if s != stage {
			stage, step = s, 0
		}

		if total <= 0 {
			return
		}

		current := done * progressSteps / total
		if current <= step && done != total {
			appLogger.Debug("progress", "stage", s, "done", done, "total", total)

			return
		}

		step = current

		info("%s: %s of %s (%d%%)", s, humanize.Comma(int64(done)), humanize.Comma(int64(total)),
			done*100/total) //nolint:mnd
	}
}
