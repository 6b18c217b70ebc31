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
	"github.com/wtsi-hgi/brkbackup/archive"
	"github.com/wtsi-hgi/brkbackup/datasets"
	"github.com/wtsi-hgi/brkbackup/pvdataset"
	"github.com/wtsi-hgi/brkbackup/records"
)

// probe answers records.Probe questions about one archive file, inspecting the
// disk at most once per question.
type probe struct {
	h    *Handler
	name string

	isZip   *bool
	dataset *pvdataset.Dataset
	dsErr   error
	dsDone  bool
	match   *records.Match
}

// probeFor returns the memoised probe for the named archive. Probes are
// forgotten by forgetProbes whenever files may have changed.
func (h *Handler) probeFor(name string) *probe {
	if h.probes == nil {
		h.probes = make(map[string]*probe)
	}

	p, ok := h.probes[name]
	if !ok {
		p = &probe{h: h, name: name}
		h.probes[name] = p
	}

	return p
}

func (h *Handler) forgetProbes() {
	h.probes = nil
}

func (h *Handler) forgetProbe(name string) {
	delete(h.probes, name)
}

func (p *probe) IsZip() bool {
	if p.isZip == nil {
		v := archive.IsValid(p.h.archivePath(p.name))
		p.isZip = &v
	}

	return *p.isZip
}

func (p *probe) inspect() (*pvdataset.Dataset, error) {
	if !p.dsDone {
		p.dataset, p.dsErr = p.h.cfg.Inspector.Inspect(p.h.archivePath(p.name))
		p.dsDone = true
	}

	return p.dataset, p.dsErr
}

func (p *probe) IsDataset() bool {
	_, err := p.inspect()

	return err == nil
}

// Compare compares reconstruction counts of the archive and the raw dataset it
// is associated with. It is Indeterminate if the association can't be resolved,
// the raw dataset is gone, or either side can't be inspected.
func (p *probe) Compare() records.Match {
	if p.match == nil {
		m := p.compare()
		p.match = &m
	}

	return *p.match
}

func (p *probe) compare() records.Match {
	arc, err := p.inspect()
	if err != nil {
		return records.Indeterminate
	}

	r := p.h.cache.FindRawByArchive(p.name)
	if r == nil || r.Removed {
		return records.Indeterminate
	}

	rawPath := p.h.rawPath(r.Path)
	if !datasets.Exists(rawPath) {
		return records.Indeterminate
	}

	raw, err := p.h.cfg.Inspector.Inspect(rawPath)
	if err != nil {
		return records.Indeterminate
	}

	if arc.Recos == raw.Recos {
		return records.Matched
	}

	return records.Mismatched
}

// association returns the raw dataset name the named archive belongs to: the
// study name stored inside legacy archives when recognisable, otherwise the
// archive name without its extension.
func (p *probe) association() string {
	if datasets.IsLegacy(p.name) {
		if d, err := p.inspect(); err == nil && d.Name != "" {
			return d.Name
		}
	}

	return datasets.RawName(p.name)
}
