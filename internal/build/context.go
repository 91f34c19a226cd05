package build

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"
)

// Writes the directory tree at root as a tar stream.
//
// The copy is total: every entry under root is archived, regular files
// with their contents, symlinks with their targets. There is no ignore
// list and no filtering of any kind.
func tarTree(w io.Writer, root string) error {
	tw := tar.NewWriter(w)

	err := filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		return writeTarEntry(tw, p, filepath.ToSlash(rel), entry)
	})

	if cerr := tw.Close(); err == nil {
		err = cerr
	}
	return err
}

// Writes a single host file as a one-entry tar stream under the given
// archive name.
func tarFile(w io.Writer, hostPath, name string) error {
	tw := tar.NewWriter(w)

	info, err := os.Stat(hostPath)
	if err == nil {
		err = writeFileEntry(tw, hostPath, name, info)
	}

	if cerr := tw.Close(); err == nil {
		err = cerr
	}
	return err
}

// Writes one directory entry to the tar stream: header for every kind,
// contents for regular files, target for symlinks.
func writeTarEntry(tw *tar.Writer, hostPath, archivePath string, entry fs.DirEntry) error {
	info, err := entry.Info()
	if err != nil {
		return err
	}

	link := ""
	if info.Mode()&fs.ModeSymlink != 0 {
		if link, err = os.Readlink(hostPath); err != nil {
			return err
		}
	}

	header, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	header.Name = archivePath

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	if info.Mode().IsRegular() {
		f, err := os.Open(hostPath)
		if err != nil {
			return err
		}
		defer f.Close()

		if _, err := io.Copy(tw, f); err != nil {
			return err
		}
	}

	return nil
}

func writeFileEntry(tw *tar.Writer, hostPath, name string, info fs.FileInfo) error {
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = name

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	f, err := os.Open(hostPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(tw, f)
	return err
}

// Computes a content digest over a directory tree.
//
// The digest covers relative paths, modes, link targets, and file
// contents in lexical walk order. Timestamps and ownership are
// excluded, so a fresh checkout of identical content digests
// identically.
func TreeDigest(root string) (digest.Digest, error) {
	digester := digest.SHA256.Digester()
	h := digester.Hash()

	err := filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		fmt.Fprintf(h, "%s\x00%o\x00", filepath.ToSlash(rel), info.Mode())

		switch {
		case info.Mode()&fs.ModeSymlink != 0:
			target, err := os.Readlink(p)
			if err != nil {
				return err
			}
			io.WriteString(h, target)
		case info.Mode().IsRegular():
			f, err := os.Open(p)
			if err != nil {
				return err
			}
			_, err = io.Copy(h, f)
			f.Close()
			if err != nil {
				return err
			}
		}

		io.WriteString(h, "\x00")
		return nil
	})
	if err != nil {
		return "", err
	}

	return digester.Digest(), nil
}
