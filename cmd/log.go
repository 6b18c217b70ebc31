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
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/klauspost/pgzip"
	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/brkbackup/backups"
	"github.com/wtsi-hgi/brkbackup/cache"
)

var (
	logOutput string
	logRun    string
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the history of what has been done",
	Long: `Show the history of what has been done.

Every change the backup makes, and every failure, is recorded in the cache
alongside an identifier for the run that made it. This prints those records,
oldest first.

The --run flag can be used to limit the output to runs whose identifier starts
with the given value.

The --output/-o flag can be used to set the output file, instead of the default
stdout. Files ending in '.gz' will be compressed.
`,
	Run: func(_ *cobra.Command, _ []string) {
		withHandler(func(h *backups.Handler) error {
			return outputLog(logOutput, filterRun(h.Entries(), logRun))
		})
	},
}

func init() {
	RootCmd.AddCommand(logCmd)

	logCmd.Flags().StringVarP(&logOutput, "output", "o", "-", "file to write the log to")
	logCmd.Flags().StringVar(&logRun, "run", "", "only show entries from this run")
}

func filterRun(entries []cache.Entry, run string) []cache.Entry {
	if run == "" {
		return entries
	}

	var filtered []cache.Entry

	for _, e := range entries {
		if strings.HasPrefix(e.Run, run) {
			filtered = append(filtered, e)
		}
	}

	return filtered
}

func outputLog(output string, entries []cache.Entry) (err error) {
	var w io.Writer

	if output == "-" {
		w = os.Stdout
	} else {
		f, errr := os.Create(output)
		if errr != nil {
			return errr
		}

		w = f

		defer deferClose(f.Close, &err)
	}

	if strings.HasSuffix(output, ".gz") {
		g := pgzip.NewWriter(w)
		w = g

		defer deferClose(g.Close, &err)
	} else {
		b := bufio.NewWriter(w)
		w = b

		defer deferClose(b.Flush, &err)
	}

	err = newReporter(0).Log(w, entries)

	return err
}

func deferClose(fn func() error, err *error) {
	if errr := fn(); *err == nil {
		*err = errr
	}
}
