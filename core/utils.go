package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Getwd walks up from the working directory until it finds the module root (the directory holding go.mod).
// go test runs from the package directory, so relative paths would otherwise break during tests.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == currDir {
			// not inside the module (e.g. an installed binary); use the working directory
			return wd
		}
		currDir = newDir
	}
}

// Paginate returns the offset/limit pair for a 1-based page, clamping bad input.
func Paginate(page, pageSize, maxSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if maxSize > 0 && pageSize > maxSize {
		pageSize = maxSize
	}
	return (page - 1) * pageSize, pageSize
}

// StringInSlice reports whether `s` is one of `list`.
func StringInSlice(s string, list []string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
