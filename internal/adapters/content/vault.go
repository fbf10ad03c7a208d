// Package content reads documents from a vault directory on disk.
package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideVault is returned when a document path escapes the vault root.
var ErrOutsideVault = errors.New("document path escapes vault root")

// Vault serves document text and document listings from a directory tree.
// Document paths are vault-relative, slash-separated, matching the paths targets
// are scoped with.
type Vault struct {
	root string
}

// NewVault returns a vault rooted at dir.
func NewVault(dir string) (*Vault, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("vault root is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve vault root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat vault root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault root %s is not a directory", abs)
	}
	return &Vault{root: abs}, nil
}

// Root returns the absolute vault root.
func (v *Vault) Root() string { return v.root }

// ReadText returns the full text of a vault-relative document.
func (v *Vault) ReadText(ctx context.Context, doc string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := v.resolve(doc)
	if err != nil {
		return "", err
	}
	raw, err := os.ReadFile(full)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ListDocuments walks the vault and returns every markdown document,
// vault-relative with forward slashes. Hidden directories are skipped.
func (v *Vault) ListDocuments(ctx context.Context) ([]string, error) {
	docs := []string{}
	err := filepath.WalkDir(v.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != v.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(d.Name()), ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(v.root, path)
		if relErr != nil {
			return relErr
		}
		docs = append(docs, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk vault: %w", err)
	}
	return docs, nil
}

// resolve maps a vault-relative document path onto the filesystem, rejecting
// anything that climbs out of the root.
func (v *Vault) resolve(doc string) (string, error) {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return "", errors.New("document path is required")
	}
	full := filepath.Join(v.root, filepath.FromSlash(doc))
	rel, err := filepath.Rel(v.root, full)
	if err != nil {
		return "", ErrOutsideVault
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrOutsideVault
	}
	return full, nil
}
