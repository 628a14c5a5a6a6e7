package workspace

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// copyTree copies src into dst recursively, preserving file modes. dst must
// already exist.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
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

		target := filepath.Join(dst, rel)
		if d.IsDir() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm())
		}
		return copyFile(path, target)
	})
}

// mirror makes dst an exact replica of src: files only in dst are deleted,
// everything in src is copied over. Top-level subtrees named in preserved
// are left alone in dst and never copied from src.
func mirror(src, dst string, preserved []string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}

	// Deletion pass first so a replaced directory/file type mismatch cannot
	// collide with the copy pass.
	err := filepath.WalkDir(dst, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Entry removed by an earlier RemoveAll in this walk.
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		rel, err := filepath.Rel(dst, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if isPreserved(rel, preserved) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		srcInfo, serr := os.Lstat(filepath.Join(src, rel))
		switch {
		case os.IsNotExist(serr):
			// Stray entry, not present in the workspace.
		case serr != nil:
			return serr
		case srcInfo.IsDir() == d.IsDir():
			return nil
		}

		if err := os.RemoveAll(path); err != nil {
			return err
		}
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return err
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
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
		if isPreserved(rel, preserved) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dst, rel)
		if d.IsDir() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm())
		}
		return copyFile(path, target)
	})
}

// isPreserved matches a preserved name against any path component, the same
// way an rsync exclude pattern without a leading slash applies at any depth.
func isPreserved(rel string, preserved []string) bool {
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		for _, p := range preserved {
			if part == p {
				return true
			}
		}
	}
	return false
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
