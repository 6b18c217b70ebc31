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
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/wtsi-hgi/brkbackup/backups"
)

const (
	envRawDir     = "BRKBACKUP_RAW_DIR"
	envArchiveDir = "BRKBACKUP_ARCHIVE_DIR"
	envCacheName  = "BRKBACKUP_CACHE_NAME"

	errRawDirRequired     = Error("--raw or $" + envRawDir + " is required")
	errArchiveDirRequired = Error("--archive or $" + envArchiveDir + " is required")
)

type Error string

func (e Error) Error() string { return string(e) }

var dotEnvKeys = []string{ //nolint:gochecknoglobals
	envRawDir,
	envArchiveDir,
	envCacheName,
}

func loadDotEnv() {
	orig := originalEnvKeys(dotEnvKeys)

	loadDotEnvFile(".env", orig)
	loadDotEnvFile(".env.local", orig)
}

func originalEnvKeys(keys []string) map[string]struct{} {
	orig := map[string]struct{}{}

	for _, key := range keys {
		if _, ok := os.LookupEnv(key); ok {
			orig[key] = struct{}{}
		}
	}

	return orig
}

func loadDotEnvFile(path string, orig map[string]struct{}) {
	env, err := godotenv.Read(path)
	if err != nil {
		return
	}

	for _, key := range dotEnvKeys {
		val, ok := env[key]
		if !ok {
			continue
		}

		if _, ok := orig[key]; ok {
			continue
		}

		_ = os.Setenv(key, val)
	}
}

// handlerConfig returns a backups.Config using the global flags, falling back
// to environment variables.
func handlerConfig() (backups.Config, error) {
	raw, err := requiredFlagOrEnv(rawDir, envRawDir, errRawDirRequired)
	if err != nil {
		return backups.Config{}, err
	}

	arc, err := requiredFlagOrEnv(arcDir, envArchiveDir, errArchiveDirRequired)
	if err != nil {
		return backups.Config{}, err
	}

	name := strings.TrimSpace(cacheName)
	if name == "" {
		name = strings.TrimSpace(os.Getenv(envCacheName))
	}

	return backups.Config{
		RawDir:     raw,
		ArchiveDir: arc,
		CacheName:  name,
		Logger:     appLogger,
		Progress:   logProgress(),
		Output:     os.Stdout,
	}, nil
}

func requiredFlagOrEnv(flagValue string, envKey string, missing error) (string, error) {
	v := strings.TrimSpace(flagValue)
	if v != "" {
		return v, nil
	}

	v = strings.TrimSpace(os.Getenv(envKey))
	if v == "" {
		return "", missing
	}

	return v, nil
}

// withHandler opens a backups.Handler for the configured directories, passes
// it to fn, then closes it. Any error is fatal.
func withHandler(fn func(h *backups.Handler) error) {
	cfg, err := handlerConfig()
	if err != nil {
		die("%s", err)
	}

	if err = useHandler(cfg, fn); err != nil {
		die("%s", err)
	}
}

// useHandler is like withHandler, but returns errors.
func useHandler(cfg backups.Config, fn func(h *backups.Handler) error) error {
	h, err := backups.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}

	err = fn(h)

	if errc := h.Close(); errc != nil {
		warn("failed to close the cache: %s", errc)
	}

	return err
}
