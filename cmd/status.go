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
	"io"
	"os"

	"code.cloudfoundry.org/bytefmt"
	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/brkbackup/backups"
	"github.com/wtsi-hgi/brkbackup/internal/user"
	"github.com/wtsi-hgi/brkbackup/report"
)

var (
	statusLargerThan string
	reportWidth      int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report what still needs doing",
	Long: `Report what still needs doing.

Lists the raw datasets that need archiving (with their sizes), archives with an
outstanding issue, and raw datasets that have been archived more than once.

An issue's condition is one of:

Crashed: the archive is not a valid zip.
Failed:  the archive is not a valid zip, and its raw dataset is unknown.
Issued:  the archive is not a study, or doesn't match its raw dataset.

The report reflects the cache as it was last saved; run 'scan' first to bring
it up to date.

--larger-than can be used to omit raw datasets smaller than the given size,
eg. 50M or 1G.
`,
	Run: func(_ *cobra.Command, _ []string) {
		minSize, err := parseSize(statusLargerThan)
		if err != nil {
			die("bad --larger-than: %s", err)
		}

		withHandler(func(h *backups.Handler) error {
			return newReporter(minSize).Status(cliOut(), h)
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List raw datasets that have been archived",
	Long: `List raw datasets that have been archived.

Each is shown along with whether it has since been removed from the raw
directory.
`,
	Run: func(_ *cobra.Command, _ []string) {
		withHandler(func(h *backups.Handler) error {
			return newReporter(0).Completed(cliOut(), h)
		})
	},
}

func init() {
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(listCmd)

	statusCmd.Flags().StringVar(&statusLargerThan, "larger-than", "",
		"only list raw datasets at least this large")
	RootCmd.PersistentFlags().IntVarP(&reportWidth, "width", "w", report.DefaultWidth, "width of reports")
}

func parseSize(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}

	return bytefmt.ToBytes(s)
}

func newReporter(minSize uint64) *report.Reporter {
	return report.New(report.Config{
		User:    user.Name(),
		Width:   reportWidth,
		MinSize: minSize,
	})
}

func cliOut() io.Writer {
	return os.Stdout
}
