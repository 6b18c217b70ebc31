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

// Package backups keeps a directory of zip archives in step with a directory of
// raw ParaVision datasets.
//
// A Handler reconciles its cache with what is on disk, archives raw datasets
// that need it, and cleans up problematic archives after confirmation.
package backups

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/inconshreveable/log15"
	"github.com/wtsi-hgi/brkbackup/archive"
	"github.com/wtsi-hgi/brkbackup/cache"
	"github.com/wtsi-hgi/brkbackup/datasets"
	"github.com/wtsi-hgi/brkbackup/pvdataset"
	"github.com/wtsi-hgi/brkbackup/records"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrArchiveFailed is returned by Backup when an archive could not be
	// written; the run stops at that dataset.
	ErrArchiveFailed = Error("archiving failed")

	// ErrNotDir is returned by New when a root is not a directory.
	ErrNotDir = Error("not a directory")

	originHandler = "Handler"
)

// Inspector recognises datasets and counts their reconstructions. path may be a
// raw dataset directory or an archive file.
type Inspector interface {
	Inspect(path string) (*pvdataset.Dataset, error)
}

// Confirmer asks a yes/no question before something is deleted.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// ProgressFunc is called periodically during long operations. stage names the
// operation, and done and total count the items it is working through.
type ProgressFunc func(stage string, done, total int)

// Config configures a Handler.
type Config struct {
	// RawDir is the directory containing raw dataset directories. A leading ~
	// is expanded to the user's home directory.
	RawDir string

	// ArchiveDir is the directory archives are written to, and where the cache
	// file lives. A leading ~ is expanded to the user's home directory.
	ArchiveDir string

	// CacheName is the name of the cache file in ArchiveDir. Defaults to
	// cache.DefaultName.
	CacheName string

	// StagingMarker excludes raw directories whose names contain it. Defaults
	// to datasets.StagingMarker.
	StagingMarker string

	// Inspector defaults to pvdataset.Inspector.
	Inspector Inspector

	// Logger defaults to discarding everything.
	Logger log15.Logger

	// Progress, if set, is called as work progresses.
	Progress ProgressFunc

	// Output receives human readable messages about what Backup and Clean are
	// doing. Defaults to io.Discard.
	Output io.Writer
}

func (c *Config) setDefaults() error {
	var err error

	if c.RawDir, err = expandDir(c.RawDir); err != nil {
		return err
	}

	if c.ArchiveDir, err = expandDir(c.ArchiveDir); err != nil {
		return err
	}

	if c.CacheName == "" {
		c.CacheName = cache.DefaultName
	}

	if c.StagingMarker == "" {
		c.StagingMarker = datasets.StagingMarker
	}

	if c.Inspector == nil {
		c.Inspector = pvdataset.Inspector{}
	}

	if c.Logger == nil {
		c.Logger = log15.New()
		c.Logger.SetHandler(log15.DiscardHandler())
	}

	if c.Progress == nil {
		c.Progress = func(string, int, int) {}
	}

	if c.Output == nil {
		c.Output = io.Discard
	}

	return nil
}

// WithDefaults returns a copy of c with unset fields defaulted and the
// directories expanded and checked.
func (c Config) WithDefaults() (Config, error) {
	err := c.setDefaults()

	return c, err
}

func expandDir(dir string) (string, error) {
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}

		dir = filepath.Join(home, dir[1:])
	}

	fi, err := os.Stat(dir)
	if err != nil {
		return "", err
	}

	if !fi.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotDir, dir)
	}

	return dir, nil
}

// Handler manages the backup of one raw directory into one archive directory.
// Only one Handler (in any process) should work on a given pair of directories
// at a time.
type Handler struct {
	cfg    Config
	cache  *cache.Cache
	logger log15.Logger
	probes map[string]*probe
}

// New returns a Handler for the configured directories, loading (or creating)
// the cache in the archive directory. A corrupt cache is replaced with an empty
// one.
func New(cfg Config) (*Handler, error) {
	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}

	c, discarded, err := cache.Open(filepath.Join(cfg.ArchiveDir, cfg.CacheName))
	if err != nil {
		return nil, err
	}

	h := &Handler{
		cfg:    cfg,
		cache:  c,
		logger: cfg.Logger.New("run", c.Run()),
	}

	if discarded {
		h.logger.Warn("cache file was corrupt and has been reset", "path", c.Path())
	}

	return h, nil
}

// Close closes the cache after saving it.
func (h *Handler) Close() error {
	var errm *multierror.Error

	errm = multierror.Append(errm, h.cache.Save())
	errm = multierror.Append(errm, h.cache.Close())

	return errm.ErrorOrNil()
}

// Cache returns the Handler's cache.
func (h *Handler) Cache() *cache.Cache {
	return h.cache
}

func (h *Handler) rawPath(name string) string {
	return filepath.Join(h.cfg.RawDir, name)
}

func (h *Handler) archivePath(name string) string {
	return filepath.Join(h.cfg.ArchiveDir, name)
}

func (h *Handler) log(method, msg string, ctx ...any) {
	h.cache.Log(msg, originHandler, method)
	h.logger.Info(msg, ctx...)
}

func (h *Handler) printf(format string, a ...any) {
	fmt.Fprintf(h.cfg.Output, format, a...)
}

// Pending returns the raw datasets that still need archiving: those not backed
// up, still present, and without an associated garbage archive.
func (h *Handler) Pending() []*records.RawDataset {
	var pending []*records.RawDataset

	for _, r := range h.cache.Raws() {
		if !r.Backup && !r.Removed && !h.hasGarbage(r.Path) {
			pending = append(pending, r)
		}
	}

	return pending
}

func (h *Handler) hasGarbage(raw string) bool {
	for _, a := range h.cache.ArchivesOf(raw) {
		if a.Garbage() {
			return true
		}
	}

	return false
}

// Lost returns the raw datasets that were removed before ever being backed up.
func (h *Handler) Lost() []*records.RawDataset {
	var lost []*records.RawDataset

	for _, r := range h.cache.Raws() {
		if r.Removed && !r.Backup {
			lost = append(lost, r)
		}
	}

	return lost
}

// Completed returns the raw datasets that have been backed up.
func (h *Handler) Completed() []*records.RawDataset {
	var done []*records.RawDataset

	for _, r := range h.cache.Raws() {
		if r.Backup {
			done = append(done, r)
		}
	}

	return done
}

// Issues returns the archives flagged as Issued.
func (h *Handler) Issues() []*records.Archive {
	return h.archivesWith(records.Issued)
}

func (h *Handler) archivesWith(f records.Flags) []*records.Archive {
	var as []*records.Archive

	for _, a := range h.cache.Archives() {
		if a.Flags.Has(f) {
			as = append(as, a)
		}
	}

	return as
}

// Duplicates returns groups of archives that resolve to the same raw dataset.
func (h *Handler) Duplicates() []cache.DuplicateGroup {
	return h.cache.Duplicates()
}

// FindRawByArchive returns the raw dataset the named archive resolves to, or
// nil.
func (h *Handler) FindRawByArchive(name string) *records.RawDataset {
	return h.cache.FindRawByArchive(name)
}

// Entries returns the cache's event log.
func (h *Handler) Entries() []cache.Entry {
	return h.cache.Entries()
}

// RawSize returns the total size of the named raw dataset directory.
func (h *Handler) RawSize(name string) (uint64, error) {
	return datasets.DirSize(h.rawPath(name))
}

// ArchiveSize returns the size of the named archive file.
func (h *Handler) ArchiveSize(name string) (uint64, error) {
	return datasets.FileSize(h.archivePath(name))
}

func (h *Handler) removeFile(path string) (bool, error) {
	return archive.RemoveIfExists(path)
}
