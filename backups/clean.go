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
	"strings"

	"code.cloudfoundry.org/bytefmt"
	"github.com/hashicorp/go-multierror"
	"github.com/wtsi-hgi/brkbackup/records"
)

const (
	originClean = "clean"

	cleanWarning = `
[Warning] Archived data that has any issue will be deleted by this command, and
          this cannot be reverted. The cache should be up to date before running
          this; it is reconciled with the disk first.
`
)

// CleanSummary describes what Clean did.
type CleanSummary struct {
	// Removed lists the archives that were deleted.
	Removed []string

	// Failed holds an error for each archive that could not be deleted.
	Failed *multierror.Error
}

type cleanPass struct {
	label   string
	include func(a *records.Archive) bool
}

// cleanPasses are the categories of problem archives offered for deletion. An
// archive belongs to at most one of them: an issued archive that is also
// garbage or crashed is left to the more specific pass.
var cleanPasses = [...]cleanPass{ //nolint:gochecknoglobals
	{"issued", func(a *records.Archive) bool {
		return a.Issued() && !a.Flags.Any(records.Garbage|records.Crashed)
	}},
	{"garbage", func(a *records.Archive) bool {
		return a.Garbage() && !a.Crashed()
	}},
	{"crashed", (*records.Archive).Crashed},
}

// Clean offers each problematic archive for deletion: issued, garbage and
// crashed archives, then all archives of duplicated raw datasets. Nothing is
// deleted unless c confirms both the whole operation and that specific archive.
//
// Archives that can't be deleted are logged and reported in the returned
// summary's Failed, but don't stop the remaining deletions. The cache is saved
// once all passes are done. An error is only returned if asking c fails or the
// cache can't be saved.
func (h *Handler) Clean(c Confirmer) (*CleanSummary, error) {
	summary := &CleanSummary{}

	h.printf("%s\n", cleanWarning)

	ok, err := c.Confirm("Are you sure to continue?")
	if err != nil || !ok {
		return summary, err
	}

	err = h.clean(c, summary)

	if errs := h.cache.Save(); errs != nil {
		return summary, errs
	}

	return summary, err
}

func (h *Handler) clean(c Confirmer, summary *CleanSummary) error {
	for _, pass := range cleanPasses {
		var candidates []*records.Archive

		for _, a := range h.cache.Archives() {
			if pass.include(a) {
				candidates = append(candidates, a)
			}
		}

		if len(candidates) == 0 {
			continue
		}

		h.printf("\nStart removing %s archived data...\n", strings.ToUpper(pass.label))

		for _, a := range candidates {
			if err := h.offerRemoval(c, a.Path, summary); err != nil {
				return err
			}
		}
	}

	return h.cleanDuplicates(c, summary)
}

func (h *Handler) cleanDuplicates(c Confirmer, summary *CleanSummary) error {
	dups := h.Duplicates()
	if len(dups) == 0 {
		return nil
	}

	h.printf("\nStart removing DUPLICATED archived data...\n")

	for _, g := range dups {
		h.printf("Raw dataset: [%s] %s\n", g.Raw, h.rawSizeString(g.Raw, g.Resolved))

		for _, name := range g.Archives {
			h.printf("  +-%s\n", name)
		}

		for _, name := range g.Archives {
			if err := h.offerRemoval(c, name, summary); err != nil {
				return err
			}
		}
	}

	return nil
}

func (h *Handler) rawSizeString(raw string, resolved bool) string {
	if !resolved {
		return "Removed"
	}

	size, err := h.RawSize(raw)
	if err != nil {
		return "Removed"
	}

	return bytefmt.ByteSize(size)
}

// offerRemoval deletes the named archive and its record if c confirms it.
func (h *Handler) offerRemoval(c Confirmer, name string, summary *CleanSummary) error {
	path := h.archivePath(name)

	ok, err := c.Confirm(fmt.Sprintf(" - Are you sure to remove [%s] ?", path))
	if err != nil || !ok {
		return err
	}

	if _, err := h.removeFile(path); err != nil {
		h.cache.Log(fmt.Sprintf("failed to remove %s: %s", path, err), originHandler, originClean)
		h.logger.Warn("failed to remove archive", "path", path, "err", err)
		h.printf("    Failed! The file is locked.\n")

		summary.Failed = multierror.Append(summary.Failed, fmt.Errorf("%s: %w", name, err))

		return nil
	}

	h.cache.RemoveArchive(name)
	h.forgetProbe(name)
	h.log(originClean, "removed archive "+name)

	summary.Removed = append(summary.Removed, name)

	return nil
}
