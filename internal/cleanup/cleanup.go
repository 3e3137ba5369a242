// Package cleanup repairs placeholder image extensions after an export
// run. Files saved with the placeholder extension are renamed to their
// sniffed type and every Markdown reference to them is rewritten.
package cleanup

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/custodia-labs/ghexport-cli/internal/images"
	"github.com/custodia-labs/ghexport-cli/internal/logger"
)

// Options controls a cleanup pass.
type Options struct {
	// PrefixFallback enables resolving a stale placeholder reference
	// by matching any image file with the same numeric prefix in the
	// same directory. The heuristic can pick an unrelated file when
	// prefixes collide, so it is off by default.
	PrefixFallback bool
}

// Result reports what a cleanup pass changed.
type Result struct {
	// Renamed is the number of placeholder files renamed to a real
	// extension.
	Renamed int
	// UpdatedFiles is the number of Markdown files whose content
	// changed.
	UpdatedFiles int
}

// extCandidates are the extensions tried when resolving a stale
// placeholder reference against the filesystem.
var extCandidates = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}

// placeholderRefPattern matches a relative placeholder path embedded in
// Markdown text.
var placeholderRefPattern = regexp.MustCompile(`(?:\.\./|\./)?[^\s"'<>]+\.img`)

// Run renames placeholder-extension files under root to their sniffed
// image types and updates Markdown references. Re-running on a clean
// tree changes nothing.
func Run(root string, opts Options) (Result, error) {
	var result Result

	if _, err := os.Stat(root); err != nil {
		return result, fmt.Errorf("export root not found: %s", root)
	}

	rewrites, renamed, err := renamePlaceholders(root)
	if err != nil {
		return result, err
	}
	result.Renamed = renamed

	updated, err := rewriteMarkdown(root, rewrites, opts)
	if err != nil {
		return result, err
	}
	result.UpdatedFiles = updated

	return result, nil
}

// renamePlaceholders renames every sniffable placeholder file and
// returns the root-relative old-to-new path rewrites.
func renamePlaceholders(root string) (map[string]string, int, error) {
	rewrites := make(map[string]string)

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), images.PlaceholderExt) {
			return nil
		}

		kind := images.DetectFile(p)
		if kind == images.Unknown {
			logger.Debug("cleanup: %s has no identifiable type, skipping", p)
			return nil
		}

		newPath := strings.TrimSuffix(p, images.PlaceholderExt) + kind.Ext()
		if err := os.Rename(p, newPath); err != nil {
			logger.Debug("cleanup: rename %s: %v", p, err)
			return nil
		}

		oldRel, relErr := filepath.Rel(root, p)
		newRel, relErr2 := filepath.Rel(root, newPath)
		if relErr != nil || relErr2 != nil {
			return nil
		}
		rewrites[filepath.ToSlash(oldRel)] = filepath.ToSlash(newRel)
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan %s: %w", root, err)
	}

	return rewrites, len(rewrites), nil
}

// rewriteMarkdown applies known rewrites to every Markdown file under
// root and repairs any remaining placeholder references by probing the
// filesystem next to each file.
func rewriteMarkdown(root string, rewrites map[string]string, opts Options) (int, error) {
	updatedFiles := 0

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		text := string(data)

		updated := text
		for oldRel, newRel := range rewrites {
			updated = strings.ReplaceAll(updated, oldRel, newRel)
			updated = strings.ReplaceAll(updated, "../"+oldRel, "../"+newRel)
			updated = strings.ReplaceAll(updated, "./"+oldRel, "./"+newRel)
		}

		refs := uniqueRefs(placeholderRefPattern.FindAllString(updated, -1))
		logger.Debug("cleanup: %s has %d placeholder refs", p, len(refs))
		for _, ref := range refs {
			if newRef, ok := resolveRef(filepath.Dir(p), ref, opts); ok {
				updated = strings.ReplaceAll(updated, ref, newRef)
			}
		}

		if updated != text {
			if err := os.WriteFile(p, []byte(updated), 0644); err != nil {
				return fmt.Errorf("write %s: %w", p, err)
			}
			updatedFiles++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return updatedFiles, nil
}

// resolveRef finds the renamed file a stale placeholder reference
// should point at. It first probes the reference location with each
// known extension, then optionally falls back to a numeric-prefix scan
// of the directory.
func resolveRef(mdDir, ref string, opts Options) (string, bool) {
	target := filepath.Join(mdDir, filepath.FromSlash(ref))

	for _, ext := range extCandidates {
		candidate := strings.TrimSuffix(target, images.PlaceholderExt) + ext
		if fileExists(candidate) {
			return strings.TrimSuffix(ref, images.PlaceholderExt) + ext, true
		}
	}

	if !opts.PrefixFallback {
		return "", false
	}

	base := filepath.Base(target)
	prefix, _, found := strings.Cut(base, "_")
	if !found {
		return "", false
	}
	prefix += "_"

	entries, err := os.ReadDir(filepath.Dir(target))
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		if !knownExt(strings.ToLower(filepath.Ext(entry.Name()))) {
			continue
		}
		logger.Debug("cleanup: prefix match %s -> %s", ref, entry.Name())
		return path.Join(path.Dir(ref), entry.Name()), true
	}
	return "", false
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func knownExt(ext string) bool {
	for _, candidate := range extCandidates {
		if ext == candidate {
			return true
		}
	}
	return false
}

func uniqueRefs(refs []string) []string {
	seen := make(map[string]bool, len(refs))
	out := refs[:0]
	for _, ref := range refs {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		out = append(out, ref)
	}
	return out
}
