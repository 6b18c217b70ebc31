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

// Package watch polls a raw directory for new dataset directories.
package watch

import (
	"context"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/wtsi-hgi/brkbackup/datasets"
)

// DefaultInterval is how often Watch looks for new directories if not told
// otherwise.
const DefaultInterval = time.Minute

// Func is called by Watch with the names of directories it hasn't seen before.
type Func func(newDirs []string) error

// Watch looks for dataset directories in dir (ignoring those whose names contain
// marker) every interval, calling fn with any it hasn't seen before. The first
// call gets every directory.
//
// If fn returns an error it is logged, and the same directories will be offered
// again next time. Watch only returns when ctx is cancelled, or dir can't be
// read.
func Watch(ctx context.Context, dir, marker string, interval time.Duration, fn Func, logger log15.Logger) error {
	if interval <= 0 {
		interval = DefaultInterval
	}

	seen := make(map[string]bool)

	for {
		if err := poll(dir, marker, seen, fn, logger); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func poll(dir, marker string, seen map[string]bool, fn Func, logger log15.Logger) error {
	dirs, err := datasets.FindRawDirs(dir, marker)
	if err != nil {
		return err
	}

	var newDirs []string

	for _, d := range dirs {
		if !seen[d] {
			newDirs = append(newDirs, d)
		}
	}

	if len(newDirs) == 0 {
		return nil
	}

	logger.Info("new raw datasets", "count", len(newDirs))

	if err := fn(newDirs); err != nil {
		logger.Error("handling new raw datasets failed", "err", err)

		return nil
	}

	for _, d := range newDirs {
		seen[d] = true
	}

	return nil
}
