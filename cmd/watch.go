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
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/brkbackup/backups"
	"github.com/wtsi-hgi/brkbackup/watch"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Back up new raw datasets as they appear",
	Long: `Back up new raw datasets as they appear.

Every --interval (default 1m) the raw directory is checked for study
directories that haven't been seen before. When there are any, the equivalent
of the 'backup' subcommand is run. Everything is backed up on start.

Failures are logged, and retried the next time the raw directory is checked.

Runs until interrupted.
`,
	Run: func(_ *cobra.Command, _ []string) {
		cfg, err := handlerConfig()
		if err == nil {
			cfg, err = cfg.WithDefaults()
		}

		if err != nil {
			die("%s", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err = watch.Watch(ctx, cfg.RawDir, cfg.StagingMarker, watchInterval, func(_ []string) error {
			return useHandler(cfg, func(h *backups.Handler) error {
				if err := h.Reconcile(); err != nil {
					return err
				}

				return h.Backup()
			})
		}, appLogger)
		if err != nil {
			die("%s", err)
		}
	},
}

func init() {
	RootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVarP(&watchInterval, "interval", "i", watch.DefaultInterval,
		"how often to check for new raw datasets")
}
