package utils

import (
	"cmp"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/menta2k/image-geometry/pkg/modifier"
)

// EnsureDir creates dir and its parents if needed
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// GetFileExtension returns the lower-cased file extension without the dot
func GetFileExtension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// IsImageFile reports whether the extension names a format the renderer
// reads and writes
func IsImageFile(filename string) bool {
	ext := GetFileExtension(filename)
	if ext == "" {
		return false
	}
	f, err := modifier.ParseFormat(ext)
	return err == nil && slices.Contains(modifier.Formats(), f)
}

// GenerateOutputFilename builds <dir>/<prefix><name><suffix>.<format>.
// An empty format keeps the input extension, or jpg when there is none.
func GenerateOutputFilename(inputFile, outputDir, prefix, suffix, format string) string {
	base := filepath.Base(inputFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	if format == "" {
		format = cmp.Or(GetFileExtension(inputFile), modifier.FormatJPEG.Extension())
	}

	return filepath.Join(outputDir, SanitizeFilename(prefix+name+suffix)+"."+format)
}

// ListImageFiles walks dir and returns the image files below it in
// lexical order
func ListImageFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsImageFile(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// DirExists reports whether dirname is an existing directory
func DirExists(dirname string) bool {
	info, err := os.Stat(dirname)
	return err == nil && info.IsDir()
}

var filenameReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_",
)

// SanitizeFilename replaces characters that are invalid in file names
func SanitizeFilename(filename string) string {
	return strings.Trim(filenameReplacer.Replace(filename), " .")
}

// FormatFileSize formats a byte count with binary units, e.g. "1.5 KB"
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

