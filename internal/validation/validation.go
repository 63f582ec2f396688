// Package validation checks user-supplied paths, document identifiers and
// input sizes before anything touches the filesystem.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	coreerrors "github.com/FocuswithJustin/tafsirseg/core/errors"
)

// Limits on user-supplied input.
const (
	// MaxDocumentSize is the largest surah document accepted (64 MB).
	MaxDocumentSize = 64 << 20
	// MaxFilenameLength is the maximum allowed filename length.
	MaxFilenameLength = 255
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors. Each one also matches errors.ErrInvalidInput
// from core/errors.
var (
	ErrPathTraversal    error = invalid("path traversal detected")
	ErrInvalidFilename  error = invalid("invalid filename")
	ErrPathTooLong      error = invalid("path too long")
	ErrFilenameTooLong  error = invalid("filename too long")
	ErrInvalidCharacter error = invalid("invalid character in path")
	ErrEmptyPath        error = invalid("path cannot be empty")
	ErrFileTooLarge     error = invalid("file too large")
)

// invalid is a sentinel that unwraps to the shared invalid-input error.
type invalid string

func (e invalid) Error() string { return string(e) }

func (e invalid) Unwrap() error { return coreerrors.ErrInvalidInput }

// SanitizePath validates a user-supplied relative path and ensures it does
// not escape baseDir. Returns the cleaned relative path.
func SanitizePath(baseDir, userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}
	if len(userPath) > MaxPathLength {
		return "", ErrPathTooLong
	}

	cleanPath := filepath.Clean(userPath)
	if strings.Contains(cleanPath, "..") {
		return "", ErrPathTraversal
	}
	if filepath.IsAbs(cleanPath) {
		return "", fmt.Errorf("%w: absolute path not allowed", ErrPathTraversal)
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(baseDir, cleanPath))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	relPath, err := filepath.Rel(absBase, absPath)
	if err != nil || strings.HasPrefix(relPath, "..") {
		return "", ErrPathTraversal
	}

	return cleanPath, nil
}

// ValidateFilename checks that a single path element is safe to create.
func ValidateFilename(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}
	if len(filename) > MaxFilenameLength {
		return ErrFilenameTooLong
	}
	if filename == "." || filename == ".." {
		return fmt.Errorf("%w: reserved name", ErrInvalidFilename)
	}
	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("%w: path separator not allowed", ErrInvalidFilename)
	}
	for _, r := range filename {
		if r == 0 || unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidFilename)
		}
	}
	if strings.HasPrefix(filename, "-") {
		return fmt.Errorf("%w: filename cannot start with hyphen", ErrInvalidFilename)
	}
	if strings.HasPrefix(filename, ".") {
		return fmt.Errorf("%w: hidden names are reserved for staging", ErrInvalidFilename)
	}
	return nil
}

// ValidateDocumentID checks an identifier used to key output, typically a
// surah number. It becomes a directory name, so the filename rules apply.
func ValidateDocumentID(id string) error {
	if strings.TrimSpace(id) != id {
		return fmt.Errorf("%w: surrounding whitespace", ErrInvalidFilename)
	}
	return ValidateFilename(id)
}

// ValidatePath performs path validation without requiring a base directory.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}
	for _, r := range path {
		if r == 0 || unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}
	return nil
}

// ValidateDocumentFile checks that path is a regular file no larger than
// MaxDocumentSize.
func ValidateDocumentFile(path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: not a regular file", path)
	}
	if info.Size() > MaxDocumentSize {
		return fmt.Errorf("%w: %s is %d bytes", ErrFileTooLarge, path, info.Size())
	}
	return nil
}

// DocumentIDFromPath derives a document identifier from a file name:
// "surahs/2.md" becomes "2".
func DocumentIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
