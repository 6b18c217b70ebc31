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
	"github.com/wtsi-hgi/brkbackup/datasets"
	"github.com/wtsi-hgi/brkbackup/records"
)

const (
	stageRaw      = "scan raw datasets"
	stageArchives = "scan archives"
	stageRemoved  = "check raw datasets"
	stageReview   = "review archives"
)

// Reconcile brings the cache into agreement with the raw and archive
// directories. Each step is saved before the next begins, so an interrupted
// Reconcile resumes from the last completed step next time.
//
//  1. New raw dataset directories are recorded.
//  2. New archive files are recorded and classified.
//  3. Raw datasets whose directories have gone are marked removed.
//  4. Every known archive is re-evaluated: records of deleted files are
//     dropped, and issues that have been resolved on disk are cleared.
func (h *Handler) Reconcile() error {
	h.forgetProbes()

	for _, step := range [...]func() error{
		h.discoverRaws,
		h.discoverArchives,
		h.markRemoved,
		h.reviewArchives,
	} {
		if err := step(); err != nil {
			return err
		}

		if err := h.cache.Save(); err != nil {
			return err
		}
	}

	return nil
}

func (h *Handler) discoverRaws() error {
	dirs, err := datasets.FindRawDirs(h.cfg.RawDir, h.cfg.StagingMarker)
	if err != nil {
		return err
	}

	for n, dir := range dirs {
		if _, added := h.cache.AddRaw(dir); added {
			h.logger.Debug("new raw dataset", "path", dir)
		}

		h.cfg.Progress(stageRaw, n+1, len(dirs))
	}

	return nil
}

func (h *Handler) discoverArchives() error {
	files, err := datasets.FindArchiveFiles(h.cfg.ArchiveDir)
	if err != nil {
		return err
	}

	for n, file := range files {
		if h.cache.FindArchive(file) == nil {
			h.addArchive(file)
		}

		h.cfg.Progress(stageArchives, n+1, len(files))
	}

	return nil
}

// addArchive records a newly found archive file and classifies it.
func (h *Handler) addArchive(name string) *records.Archive {
	p := h.probeFor(name)

	a, _ := h.cache.AddArchive(&records.Archive{Path: name, Raw: p.association()})
	a.Flags = records.Assess(p)

	h.logger.Debug("new archive", "path", name, "raw", a.Raw, "flags", a.Flags)

	return a
}

func (h *Handler) markRemoved() error {
	raws := h.cache.Raws()

	for n, r := range raws {
		if !r.Removed && !datasets.Exists(h.rawPath(r.Path)) {
			r.Removed = true

			h.log("scan", "raw dataset removed: "+r.Path)
		}

		h.cfg.Progress(stageRemoved, n+1, len(raws))
	}

	return nil
}

func (h *Handler) reviewArchives() error {
	archives := h.cache.Archives()

	for n, a := range archives {
		h.reviewArchive(a)
		h.cfg.Progress(stageReview, n+1, len(archives))
	}

	return nil
}

func (h *Handler) reviewArchive(a *records.Archive) {
	if !datasets.Exists(h.archivePath(a.Path)) {
		h.cache.RemoveArchive(a.Path)
		h.forgetProbe(a.Path)
		h.logger.Debug("archive gone", "path", a.Path)

		return
	}

	before := a.Flags
	outcome := records.Reassess(a.Flags, h.probeFor(a.Path))
	a.Flags = outcome.Flags

	if before != a.Flags {
		h.log("scan", "archive "+a.Path+" is now "+a.Flags.String()+" (was "+before.String()+")")
	}

	if !outcome.MarkBackup {
		return
	}

	if r := h.cache.FindRawByArchive(a.Path); r != nil && !r.Backup {
		r.Backup = true

		h.log("scan", "raw dataset "+r.Path+" is backed up by "+a.Path)
	}
}
