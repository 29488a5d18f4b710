// Package vault discovers and reads the note files of a knowledge vault.
package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultExtensions are the note types imported when none are given.
var DefaultExtensions = []string{".md", ".txt"}

// SupportedExtensions are every file type Read understands.
var SupportedExtensions = []string{".md", ".txt", ".pdf", ".html", ".htm"}

// Document is one file of the vault.
type Document struct {
	Path    string
	RelPath string
	ModTime time.Time
	Size    int64
}

// ID is the identifier the document is known by in the stores.
func (d Document) ID() string { return d.Path }

// Scan walks root and returns the most recently modified files with one of
// exts, newest first. Hidden files and directories are skipped. A limit of
// zero or less returns every match.
func Scan(root string, limit int, exts []string) ([]Document, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("vault path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault path %s is not a directory", root)
	}
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	want := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		want[e] = true
	}

	var docs []Document
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return nil
			}
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !want[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		docs = append(docs, Document{
			Path:    path,
			RelPath: rel,
			ModTime: fi.ModTime(),
			Size:    fi.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning vault: %w", err)
	}

	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].ModTime.Equal(docs[j].ModTime) {
			return docs[i].RelPath < docs[j].RelPath
		}
		return docs[i].ModTime.After(docs[j].ModTime)
	})
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}
