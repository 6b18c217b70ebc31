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

package backups

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize" //nolint:misspell
	"github.com/wtsi-hgi/brkbackup/archive"
	"github.com/wtsi-hgi/brkbackup/datasets"
	"github.com/wtsi-hgi/brkbackup/records"
)

const (
	originBackup  = "backup"
	stageCompress = "compress"
)

// Backup archives every raw dataset that needs it. It should be called after
// Reconcile.
//
// Datasets that have never been backed up are done first, followed by those
// whose archives have an outstanding issue. The cache is saved after each
// dataset. If an archive can't be written, the failure is logged and Backup
// returns an error wrapping ErrArchiveFailed without attempting the remaining
// datasets; work already completed is kept.
func (h *Handler) Backup() error {
	h.forgetProbes()
	h.log(originBackup, "archiving starts")

	pending := h.Pending()
	done := make(map[string]bool, len(pending))

	phases := [...]struct {
		msg  string
		raws []*records.RawDataset
	}{
		{"archiving raw datasets that have not been archived", pending},
		{"archiving raw datasets whose archives have issues", nil},
	}

	for n := range phases {
		if n == 1 {
			phases[n].raws = h.retries(done)
		}

		h.log(originBackup, phases[n].msg, "count", len(phases[n].raws))
		h.printf("\n[step%d] %s\n", n+1, phases[n].msg)

		for _, r := range phases[n].raws {
			done[r.Path] = true

			err := h.archiveOne(r)

			if errs := h.cache.Save(); errs != nil {
				return errs
			}

			if err != nil {
				return err
			}
		}
	}

	return nil
}

// retries returns the existing raw datasets associated with issued archives,
// excluding any in done.
func (h *Handler) retries(done map[string]bool) []*records.RawDataset {
	var raws []*records.RawDataset

	for _, a := range h.Issues() {
		r := h.cache.FindRawByArchive(a.Path)
		if r == nil {
			h.logger.Debug("can't retry archive without a raw dataset", "path", a.Path)

			continue
		}

		if done[r.Path] || r.Removed {
			continue
		}

		done[r.Path] = true

		raws = append(raws, r)
	}

	return raws
}

// archiveOne makes sure the given raw dataset has a complete, valid archive.
func (h *Handler) archiveOne(r *records.RawDataset) error {
	rawPath := h.rawPath(r.Path)
	if !datasets.Exists(rawPath) {
		h.logger.Warn("raw dataset has gone, skipping", "path", rawPath)

		return nil
	}

	name := datasets.ArchiveName(r.Path)
	final := h.archivePath(name)
	tmp := datasets.PartialName(final)

	if removed, err := h.removeFile(tmp); err != nil {
		return h.archiveFailed(rawPath, err)
	} else if removed {
		h.printf(" -[%s] is detected and removed...\n", tmp)
	}

	needed, err := h.checkExisting(name)
	if err != nil {
		return h.archiveFailed(rawPath, err)
	}

	if !needed {
		return nil
	}

	return h.create(r, rawPath, name)
}

// checkExisting deletes the named final archive if it is invalid or doesn't
// match its raw dataset. It returns true if a new archive needs creating.
func (h *Handler) checkExisting(name string) (bool, error) {
	final := h.archivePath(name)
	if !datasets.Exists(final) {
		return true, nil
	}

	if h.cache.FindArchive(name) == nil {
		h.addArchive(name)
	}

	p := h.probeFor(name)

	switch {
	case !p.IsZip():
		h.printf(" -[%s] is crashed file, removing...\n", final)
	case !p.IsDataset() || p.Compare() != records.Matched:
		h.printf(" - [%s] is mismatching with the corresponding raw data, removing...\n", final)
	default:
		h.validated(name)

		return false, nil
	}

	if _, err := h.removeFile(final); err != nil {
		return false, err
	}

	h.cache.RemoveArchive(name)
	h.forgetProbe(name)

	return true, nil
}

func (h *Handler) create(r *records.RawDataset, rawPath, name string) error {
	final := h.archivePath(name)
	tmp := datasets.PartialName(final)

	h.printf("\n :: Compressing [%s]...\n", rawPath)

	start := time.Now()

	size, err := archive.Create(rawPath, tmp, func(done, total int) {
		h.cfg.Progress(stageCompress+" "+r.Path, done, total)
	})
	if err != nil {
		return h.archiveFailed(rawPath, err)
	}

	if err = archive.Finalise(tmp, final); err != nil {
		return h.archiveFailed(rawPath, err)
	}

	elapsed := time.Since(start)

	h.printf(" - [%s] is created.\n - processed time: %.2f sec\n", name, elapsed.Seconds())
	h.log(originBackup, fmt.Sprintf("archived %s as %s (%s in %s)",
		r.Path, name, humanize.IBytes(size), elapsed.Round(time.Millisecond)),
		"raw", r.Path, "bytes", size, "elapsed", elapsed)

	h.forgetProbe(name)

	if h.cache.FindArchive(name) == nil {
		h.cache.AddArchive(&records.Archive{Path: name, Raw: r.Path})
	}

	h.validated(name)

	return nil
}

// validated checks the named archive against its raw dataset, recording the
// result. Only an archive that matches marks its raw dataset as backed up.
func (h *Handler) validated(name string) {
	a := h.cache.FindArchive(name)
	a.Flags = records.Assess(h.probeFor(name))

	if a.Flags != 0 {
		h.log(originBackup, fmt.Sprintf("archive %s failed validation: %s", name, a.Flags), "path", name)

		return
	}

	if r := h.cache.FindRawByArchive(name); r != nil {
		r.Backup = true
	}
}

func (h *Handler) archiveFailed(rawPath string, err error) error {
	msg := fmt.Sprintf("failed to archive %s: %s", rawPath, err)

	h.cache.Log(msg, originHandler, originBackup)
	h.logger.Error(msg)

	return fmt.Errorf("%w: %s: %w", ErrArchiveFailed, rawPath, err)
}
