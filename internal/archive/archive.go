// Package archive packages build context directories into tar streams.
package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Relocation instructs the packager to copy a file from outside the context
// into the archive under an in-context name.
type Relocation struct {
	// Name is the forward-slash archive path the file appears under.
	Name string
	// Source is the absolute path of the file to copy in.
	Source string
}

// TarContext writes dir as a tar stream to w. When relocation is non-nil,
// the relocation source file is appended under its in-context name before
// the archive is finalized, shadowing any existing entry of the same name.
func TarContext(dir string, w io.Writer, relocation *Relocation) error {
	tw := tar.NewWriter(w)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		return writeEntry(tw, filepath.ToSlash(rel), path, info)
	})
	if err != nil {
		return fmt.Errorf("packaging build context %s: %w", dir, err)
	}

	if relocation != nil {
		info, err := os.Stat(relocation.Source)
		if err != nil {
			return fmt.Errorf("relocating %s into build context: %w", relocation.Source, err)
		}
		if err := writeEntry(tw, relocation.Name, relocation.Source, info); err != nil {
			return fmt.Errorf("relocating %s into build context: %w", relocation.Source, err)
		}
	}

	return tw.Close()
}

func writeEntry(tw *tar.Writer, name, path string, info os.FileInfo) error {
	link := ""
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return err
		}
		link = target
	}

	h, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	h.Name = name
	if info.IsDir() && !strings.HasSuffix(h.Name, "/") {
		h.Name += "/"
	}
	if err := tw.WriteHeader(h); err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(tw, f); err != nil {
		return err
	}
	return nil
}

// VisitFileFunc is invoked for each entry in an archive. Returning an error
// stops the walk.
type VisitFileFunc func(h *tar.Header, r io.Reader) error

// Walk reads the archive from r, invoking fn on each entry.
func Walk(r io.Reader, fn VisitFileFunc) error {
	tr := tar.NewReader(r)
	for {
		h, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(h, tr); err != nil {
			return err
		}
	}
}
