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

// Package cache persists the state of a backup directory: which raw datasets
// have been seen, which archive files exist and what is wrong with them, and an
// append-only log of events.
//
// The whole store is held in memory and written to a single bolt file by Save.
// A file that cannot be opened or decoded is treated as corrupt and replaced by
// an empty store.
package cache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ugorji/go/codec"
	"github.com/wtsi-hgi/brkbackup/records"
	bolt "go.etcd.io/bbolt"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrCacheLocked is returned by Open when another process holds the cache.
	ErrCacheLocked = Error("cache file is in use by another process")

	errCorrupt = Error("cache file is corrupt")

	// DefaultName is the default cache file name inside the backup directory.
	DefaultName = ".brk-backup_cache"

	rawBucketName     = "raw"
	archiveBucketName = "archive"
	logBucketName     = "log"
	metaBucketName    = "_meta"
	metaKeyFormat     = "format"
	formatMarker      = "brkbackup-cache-1"

	boltFilePerms   = 0o640
	lockTimeout     = 5 * time.Second
	sizeOfSequence  = 8
	originSeparator = "."
)

// Entry is one item of the cache's event log.
type Entry struct {
	Time    time.Time
	Message string
	Origin  string
	Run     string
}

// Cache is the in-memory collection of records backed by a bolt file. It is not
// safe for concurrent use.
type Cache struct {
	path string
	db   *bolt.DB
	ch   codec.Handle

	raws     map[string]*records.RawDataset
	archives map[string]*records.Archive
	entries  []Entry
	pending  []Entry
	run      string
	now      func() time.Time
}

// Open loads the cache stored at path, creating it if it does not exist.
//
// If the file exists but is corrupt, it is deleted and replaced with a new empty
// store. Either way the (possibly new) store is immediately saved. The returned
// bool is true when a corrupt file was discarded.
func Open(path string) (*Cache, bool, error) {
	c := &Cache{
		path: path,
		ch:   new(codec.BincHandle),
		run:  uuid.NewString(),
		now:  time.Now,
	}

	c.reset()

	err := c.load()
	discarded := false

	if errors.Is(err, errCorrupt) {
		discarded = true
		err = c.recreate()
	}

	if err != nil {
		return nil, false, err
	}

	if discarded {
		c.Log("discarded corrupt cache file", "Cache.Open")
	}

	if err = c.Save(); err != nil {
		c.db.Close()

		return nil, false, err
	}

	return c, discarded, nil
}

func (c *Cache) reset() {
	c.raws = make(map[string]*records.RawDataset)
	c.archives = make(map[string]*records.Archive)
	c.entries = nil
	c.pending = nil
}

func openBoltWritable(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, boltFilePerms, &bolt.Options{
		Timeout:        lockTimeout,
		NoFreelistSync: true,
		FreelistType:   bolt.FreelistMapType,
	})
	if errors.Is(err, bolt.ErrTimeout) {
		return nil, ErrCacheLocked
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", errCorrupt, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [...]string{rawBucketName, archiveBucketName, logBucketName, metaBucketName} {
			if _, errc := tx.CreateBucketIfNotExists([]byte(bucket)); errc != nil {
				return errc
			}
		}

		return nil
	})
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("%w: %w", errCorrupt, err)
	}

	return db, nil
}

func (c *Cache) load() error {
	fresh := !fileExists(c.path)

	db, err := openBoltWritable(c.path)
	if err != nil {
		return err
	}

	c.db = db

	if fresh {
		return nil
	}

	if err = db.View(c.decodeAll); err != nil {
		_ = db.Close()
		c.db = nil
		c.reset()

		return fmt.Errorf("%w: %w", errCorrupt, err)
	}

	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}

func (c *Cache) recreate() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	c.reset()

	db, err := openBoltWritable(c.path)
	if err != nil {
		return err
	}

	c.db = db

	return nil
}

func (c *Cache) decodeAll(tx *bolt.Tx) error {
	if format := tx.Bucket([]byte(metaBucketName)).Get([]byte(metaKeyFormat)); string(format) != formatMarker {
		return errCorrupt
	}

	if err := tx.Bucket([]byte(rawBucketName)).ForEach(func(k, v []byte) error {
		r := new(records.RawDataset)
		if err := c.decode(v, r); err != nil || r.Path != string(k) {
			return errCorrupt
		}

		c.raws[r.Path] = r

		return nil
	}); err != nil {
		return err
	}

	if err := tx.Bucket([]byte(archiveBucketName)).ForEach(func(k, v []byte) error {
		a := new(records.Archive)
		if err := c.decode(v, a); err != nil || a.Path != string(k) {
			return errCorrupt
		}

		c.archives[a.Path] = a

		return nil
	}); err != nil {
		return err
	}

	return tx.Bucket([]byte(logBucketName)).ForEach(func(_, v []byte) error {
		var e Entry
		if err := c.decode(v, &e); err != nil {
			return errCorrupt
		}

		c.entries = append(c.entries, e)

		return nil
	})
}

func (c *Cache) decode(v []byte, into any) error {
	return codec.NewDecoderBytes(v, c.ch).Decode(into)
}

func (c *Cache) encode(v any) []byte {
	var encoded []byte

	codec.NewEncoderBytes(&encoded, c.ch).MustEncode(v)

	return encoded
}

// Save durably writes the whole store in a single transaction. Once it returns
// without error, a later Open will observe exactly this state.
func (c *Cache) Save() error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(metaBucketName)).Put([]byte(metaKeyFormat), []byte(formatMarker)); err != nil {
			return err
		}

		if err := c.rewriteRaws(tx); err != nil {
			return err
		}

		if err := c.rewriteArchives(tx); err != nil {
			return err
		}

		return c.appendLog(tx)
	})
	if err != nil {
		return err
	}

	c.pending = c.pending[:0]

	return nil
}

func recreateBucket(tx *bolt.Tx, name string) (*bolt.Bucket, error) {
	if err := tx.DeleteBucket([]byte(name)); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
		return nil, err
	}

	return tx.CreateBucket([]byte(name))
}

func (c *Cache) rewriteRaws(tx *bolt.Tx) error {
	b, err := recreateBucket(tx, rawBucketName)
	if err != nil {
		return err
	}

	for k, r := range c.raws {
		if err := b.Put([]byte(k), c.encode(r)); err != nil {
			return err
		}
	}

	return nil
}

func (c *Cache) rewriteArchives(tx *bolt.Tx) error {
	b, err := recreateBucket(tx, archiveBucketName)
	if err != nil {
		return err
	}

	for k, a := range c.archives {
		if err := b.Put([]byte(k), c.encode(a)); err != nil {
			return err
		}
	}

	return nil
}

func (c *Cache) appendLog(tx *bolt.Tx) error {
	b := tx.Bucket([]byte(logBucketName))

	for _, e := range c.pending {
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}

		key := make([]byte, sizeOfSequence)
		binary.BigEndian.PutUint64(key, seq)

		if err := b.Put(key, c.encode(e)); err != nil {
			return err
		}
	}

	return nil
}

// Close closes the underlying bolt file. It does not Save.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Path returns the path of the cache file.
func (c *Cache) Path() string {
	return c.path
}

// Run returns the id of this invocation, which is recorded against every log
// entry it makes.
func (c *Cache) Run() string {
	return c.run
}

// Log appends a diagnostic entry to the event log. It is persisted by the next
// Save.
func (c *Cache) Log(message string, origin ...string) {
	e := Entry{
		Time:    c.now(),
		Message: message,
		Origin:  strings.Join(origin, originSeparator),
		Run:     c.run,
	}

	c.entries = append(c.entries, e)
	c.pending = append(c.pending, e)
}

// Entries returns the event log, oldest first.
func (c *Cache) Entries() []Entry {
	return slices.Clone(c.entries)
}
