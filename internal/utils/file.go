package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
)

// DefaultImageExtensions are the suffixes picked up from an input directory
var DefaultImageExtensions = []string{".jpg", ".jpeg", ".png"}

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// GetFileExtension returns the file extension without the dot
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// HasExtension reports whether filename ends with one of exts, ignoring case.
// Extensions may be given with or without the leading dot.
func HasExtension(filename string, exts []string) bool {
	name := strings.ToLower(filename)
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// IsImageFile checks if a file has one of the default image extensions
func IsImageFile(filename string) bool {
	return HasExtension(filename, DefaultImageExtensions)
}

// Entry is one non-directory item of a flat directory listing
type Entry struct {
	Name string
	Path string
}

// ListDir returns the non-directory entries of dir in the order the filesystem reports them.
// Subdirectories are not descended into.
func ListDir(dir string) ([]Entry, error) {
	dirents, err := godirwalk.ReadDirents(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		path := filepath.Join(dir, de.Name())
		isDir := de.IsDir()
		if de.IsSymlink() {
			if fi, err := os.Stat(path); err == nil {
				isDir = fi.IsDir()
			}
		}
		if isDir {
			continue
		}
		entries = append(entries, Entry{Name: de.Name(), Path: path})
	}
	return entries, nil
}

// DirExists checks if a directory exists
func DirExists(dirname string) bool {
	info, err := os.Stat(dirname)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && info.IsDir()
}

// SameDir reports whether a and b resolve to the same directory path
func SameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
