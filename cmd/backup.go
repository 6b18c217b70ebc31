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

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Archive raw datasets that need it",
	Long: `Archive raw datasets that need it.

The cache is first brought up to date as with the 'scan' subcommand. Then every
raw dataset that has never been archived is zipped into the archive directory,
followed by any whose existing archive has an issue.

Archives are written under a temporary name and only renamed once complete, so
an interrupted backup can simply be run again.

If an archive can't be written, the failure is logged (see the 'log'
subcommand) and the backup stops, exiting non-zero. Archives already made are
kept.
`,
	Run: func(_ *cobra.Command, _ []string) {
		withHandler(func(h *backups.Handler) error {
			if err := h.Reconcile(); err != nil {
				return err
			}

			if err := h.Backup(); err != nil {
				return err
			}

			info("backup complete")

			return nil
		})
	},
}

func init() {
	RootCmd.AddCommand(backupCmd)
}
