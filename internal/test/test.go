package internaltest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

const (
	dirPerms  = 0o755
	filePerms = 0o644
)

// CreateDataset creates a fake ParaVision study directory named name under
// root, with the given number of scans each having one reconstruction. It
// returns the path to the study directory.
func CreateDataset(root, name string, scans int) (string, error) {
	dir := filepath.Join(root, name)

	if err := os.MkdirAll(dir, dirPerms); err != nil {
		return "", err
	}

	if err := os.WriteFile(filepath.Join(dir, "subject"), []byte("##$SUBJECT_id=( 64 )\n<"+name+">\n"),
		filePerms); err != nil {
		return "", err
	}

	for scan := 1; scan <= scans; scan++ {
		if err := AddReco(dir, scan); err != nil {
			return "", err
		}
	}

	return dir, nil
}

// AddReco adds a scan numbered scan, with a single reconstruction, to the study
// directory dir.
func AddReco(dir string, scan int) error {
	scanDir := filepath.Join(dir, fmt.Sprintf("%d", scan))
	recoDir := filepath.Join(scanDir, "pdata", "1")

	if err := os.MkdirAll(recoDir, dirPerms); err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(scanDir, "acqp"), []byte("##$ACQ_scan_name=( 64 )\n"), filePerms); err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(recoDir, "visu_pars"), []byte("##$VisuCoreDim=2\n"), filePerms); err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(recoDir, "2dseq"), make([]byte, 64), filePerms) //nolint:mnd
}

// ZipDir writes the contents of dir into a zip file at dest, with entries rooted
// at rootName.
func ZipDir(dir, dest, rootName string) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}

	z := zip.NewWriter(f)

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return err
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		w, err := z.Create(rootName + "/" + filepath.ToSlash(rel))
		if err != nil {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		_, err = w.Write(data)

		return err
	})
	if err != nil {
		f.Close()

		return err
	}

	if err = z.Close(); err != nil {
		f.Close()

		return err
	}

	return f.Close()
}

// ZipFiles writes a zip at dest containing the given entry names, each with
// some content.
func ZipFiles(dest string, names ...string) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}

	z := zip.NewWriter(f)

	for _, name := range names {
		w, err := z.Create(name)
		if err != nil {
			f.Close()

			return err
		}

		if _, err = w.Write([]byte(name)); err != nil {
			f.Close()

			return err
		}
	}

	if err = z.Close(); err != nil {
		f.Close()

		return err
	}

	return f.Close()
}

// BadWriter is an io.Writer that always fails.
type BadWriter struct{}

// Write always fails.
func (BadWriter) Write([]byte) (int, error) {
	return 0, fs.ErrClosed
}
