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
	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/brkbackup/backups"
)

var scanQuiet bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Bring the cache up to date with the raw and archive directories",
	Long: `Bring the cache up to date with the raw and archive directories.

New raw datasets and archives are recorded, raw datasets that have disappeared
are marked as removed, and every archive is checked against its raw dataset.
Archives that have been deleted are forgotten.

Once done, the same report as the 'status' subcommand is printed, unless
--quiet/-q is given.
`,
	Run: func(_ *cobra.Command, _ []string) {
		withHandler(func(h *backups.Handler) error {
			if err := h.Reconcile(); err != nil {
				return err
			}

			info("scan complete: %d raw datasets, %d archives",
				len(h.Cache().Raws()), len(h.Cache().Archives()))

			if scanQuiet {
				return nil
			}

			return newReporter(0).Status(cliOut(), h)
		})
	},
}

func init() {
	RootCmd.AddCommand(scanCmd)

	scanCmd.Flags().BoolVarP(&scanQuiet, "quiet", "q", false, "don't print a status report")
}
