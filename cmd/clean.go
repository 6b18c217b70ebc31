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
	"os"

	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/brkbackup/backups"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete problematic archives",
	Long: `Delete problematic archives.

The cache is first brought up to date as with the 'scan' subcommand. You are
then asked to confirm that you want to continue, and after that to confirm the
deletion of each of:

1. archives that don't match their raw dataset;
2. zip files that aren't studies;
3. files that aren't valid zips;
4. each archive of raw datasets that have been archived more than once.

Archives that can't be deleted are reported and skipped.

Deleted archives can't be recovered.
`,
	Run: func(_ *cobra.Command, _ []string) {
		withHandler(func(h *backups.Handler) error {
			if err := h.Reconcile(); err != nil {
				return err
			}

			summary, err := h.Clean(newPromptConfirmer(os.Stdin, os.Stdout))
			if err != nil {
				return err
			}

			info("removed %d archives", len(summary.Removed))

			if summary.Failed != nil {
				warn("%s", summary.Failed)
			}

			return nil
		})
	},
}

func init() {
	RootCmd.AddCommand(cleanCmd)
}
