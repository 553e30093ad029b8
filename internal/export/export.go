// internal/export/export.go
package export

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"minivcs/internal/errors"
	"minivcs/internal/index"
	"minivcs/internal/layout"
	"minivcs/shared/utils"

	"go.uber.org/zap"
)

// indexEntry is the bundle member holding the index backup stream.
const indexEntry = "index.backup"

// Exporter copies a repository's metadata root somewhere else.
type Exporter struct {
	root   layout.Root
	index  *index.Index
	codec  *codec
	logger *zap.Logger
}

func NewExporter(root layout.Root, idx *index.Index, level int, logger *zap.Logger) (*Exporter, error) {
	c, err := newCodec(level)
	if err != nil {
		return nil, err
	}
	return &Exporter{
		root:   root,
		index:  idx,
		codec:  c,
		logger: logger,
	}, nil
}

// Clone copies the whole metadata root to dest. The index database is not
// copied file by file but rebuilt at dest from a backup stream.
func (e *Exporter) Clone(dest string) error {
	if utils.Exists(dest) {
		return errors.DestinationExists(dest)
	}
	if err := e.checkOutside(dest); err != nil {
		return err
	}

	if err := utils.CopyTree(e.root.Path(), dest, layout.IndexDir); err != nil {
		e.cleanup(dest)
		return fmt.Errorf("copying repository: %w", err)
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(e.index.Backup(pw))
	}()

	if err := index.Restore(layout.Root(dest).Index(), pr, e.logger); err != nil {
		pr.CloseWithError(err)
		e.cleanup(dest)
		return fmt.Errorf("restoring index: %w", err)
	}

	e.logger.Info("cloned repository", zap.String("from", e.root.Path()), zap.String("to", dest))
	return nil
}

// checkOutside rejects destinations inside the metadata root, which a tree
// copy would walk into.
func (e *Exporter) checkOutside(dest string) error {
	absDest, err := filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dest, err)
	}
	rel, err := filepath.Rel(e.root.Path(), absDest)
	if err != nil {
		return nil
	}
	if filepath.IsLocal(rel) {
		return errors.ValidationError("destination is inside the repository", dest)
	}
	return nil
}

// Bundle writes the metadata root and an index backup to w as a zstd
// compressed tar stream.
func (e *Exporter) Bundle(w io.Writer) error {
	var backup bytes.Buffer
	if err := e.index.Backup(&backup); err != nil {
		return err
	}

	src := e.root.Path()
	err := e.codec.compress(w, func(cw io.Writer) error {
		tw := tar.NewWriter(cw)

		err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(src, path)
			if err != nil {
				return err
			}
			if rel == "." {
				return nil
			}
			if d.IsDir() && rel == layout.IndexDir {
				return filepath.SkipDir
			}
			return addEntry(tw, path, filepath.ToSlash(rel), d)
		})
		if err != nil {
			return fmt.Errorf("archiving repository: %w", err)
		}

		hdr := &tar.Header{
			Name:     indexEntry,
			Mode:     int64(layout.FilePerm),
			Size:     int64(backup.Len()),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if _, err := tw.Write(backup.Bytes()); err != nil {
			return err
		}

		return tw.Close()
	})
	if err != nil {
		return err
	}

	e.logger.Info("bundled repository", zap.String("root", src))
	return nil
}

func addEntry(tw *tar.Writer, path, name string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = name
	if d.IsDir() {
		hdr.Name += "/"
		return tw.WriteHeader(hdr)
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(tw, f)
	return err
}

// Unbundle recreates a repository at dest from a stream written by Bundle.
func (e *Exporter) Unbundle(r io.Reader, dest string) error {
	if utils.Exists(dest) {
		return errors.DestinationExists(dest)
	}
	if err := os.MkdirAll(dest, layout.DirPerm); err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}

	err := e.codec.decompress(r, func(cr io.Reader) error {
		return e.extract(tar.NewReader(cr), dest)
	})
	if err != nil {
		e.cleanup(dest)
		return fmt.Errorf("unbundling: %w", err)
	}

	e.logger.Info("unbundled repository", zap.String("to", dest))
	return nil
}

func (e *Exporter) extract(tr *tar.Reader, dest string) error {
	restored := false
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		name := filepath.FromSlash(filepath.Clean(hdr.Name))
		if !filepath.IsLocal(name) {
			return errors.ValidationError("bundle entry escapes destination", hdr.Name)
		}
		target := filepath.Join(dest, name)

		switch {
		case hdr.Name == indexEntry:
			if err := index.Restore(layout.Root(dest).Index(), tr, e.logger); err != nil {
				return err
			}
			restored = true
		case hdr.Typeflag == tar.TypeDir:
			if err := os.MkdirAll(target, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case hdr.Typeflag == tar.TypeReg:
			if err := writeEntry(tr, target, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		}
	}

	if !restored {
		return errors.ValidationError("bundle has no index", nil)
	}
	return nil
}

func writeEntry(r io.Reader, target string, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), layout.DirPerm); err != nil {
		return err
	}

	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (e *Exporter) cleanup(dest string) {
	if err := os.RemoveAll(dest); err != nil {
		e.logger.Error("removing partial copy", zap.String("dest", dest), zap.Error(err))
	}
}
