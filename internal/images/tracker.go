package images

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/custodia-labs/ghexport-cli/internal/logger"
)

// Stats holds per-repository download counters.
type Stats struct {
	Attempted  int
	Downloaded int
	Failed     int
}

// MissingFunc is invoked when a download fails, with the source URL
// and the synthesised document-relative path.
type MissingFunc func(url, localPath string)

// Tracker caches the URL-to-local-path mapping for a single document's
// rendering. The first resolution of a URL downloads the asset and
// pins the local path; every later resolution of the same URL returns
// the identical path without re-downloading.
type Tracker struct {
	assetsDir string
	docDir    string
	fetcher   Fetcher
	stats     *Stats
	onMissing MissingFunc
	counter   int
	resolved  map[string]string
}

// NewTracker creates a tracker writing assets under assetsDir and
// returning paths relative to docDir (the directory of the Markdown
// file being rendered). stats and onMissing may be shared across
// trackers for a repository run.
func NewTracker(assetsDir, docDir string, fetcher Fetcher, stats *Stats, onMissing MissingFunc) *Tracker {
	return &Tracker{
		assetsDir: assetsDir,
		docDir:    docDir,
		fetcher:   fetcher,
		stats:     stats,
		onMissing: onMissing,
		resolved:  make(map[string]string),
	}
}

// Resolve returns the document-relative local path for url,
// downloading the asset on first encounter. On download failure the
// theoretical path is still synthesised and returned so the rendered
// output stays well-formed and repairable later.
func (t *Tracker) Resolve(ctx context.Context, rawURL string) string {
	if rel, ok := t.resolved[rawURL]; ok {
		return rel
	}

	t.counter++
	t.stats.Attempted++

	filename := filenameFromURL(rawURL, t.counter)
	absPath := filepath.Join(t.assetsDir, filename)

	if err := t.fetcher.Fetch(ctx, rawURL, absPath); err != nil {
		t.stats.Failed++
		rel := t.relPath(absPath)
		t.resolved[rawURL] = rel
		if t.onMissing != nil {
			t.onMissing(rawURL, rel)
		}
		return rel
	}

	// A placeholder extension means the URL carried no usable one:
	// sniff the saved bytes and rename when the type is identifiable.
	if strings.EqualFold(filepath.Ext(absPath), PlaceholderExt) {
		if kind := DetectFile(absPath); kind != Unknown {
			renamed := strings.TrimSuffix(absPath, filepath.Ext(absPath)) + kind.Ext()
			if err := os.Rename(absPath, renamed); err != nil {
				// Keep the placeholder extension; cleanup can fix it later.
				logger.Debug("rename %s: %v", absPath, err)
			} else {
				absPath = renamed
			}
		}
	}

	t.stats.Downloaded++
	rel := t.relPath(absPath)
	t.resolved[rawURL] = rel
	return rel
}

// relPath converts an absolute asset path to a forward-slash path
// relative to the document directory.
func (t *Tracker) relPath(abs string) string {
	rel, err := filepath.Rel(t.docDir, abs)
	if err != nil {
		rel = abs
	}
	return filepath.ToSlash(rel)
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitizeName reduces a filename to ASCII-safe characters.
func sanitizeName(name string) string {
	cleaned := unsafeNameChars.ReplaceAllString(name, "_")
	cleaned = strings.Trim(cleaned, "_")
	if cleaned == "" {
		return "image"
	}
	return cleaned
}

const maxBaseNameLen = 40

// filenameFromURL derives an asset filename from the URL path
// basename: a 3-digit sequential index, the sanitised name truncated
// to 40 characters, and the lower-cased extension. An absent or
// overlong extension becomes the placeholder pending sniffing.
func filenameFromURL(rawURL string, index int) string {
	base := ""
	if parsed, err := url.Parse(rawURL); err == nil {
		base = path.Base(parsed.Path)
		if base == "." || base == "/" {
			base = ""
		}
	}
	if base == "" {
		base = "image"
	}

	ext := path.Ext(base)
	name := sanitizeName(strings.TrimSuffix(base, ext))
	if len(name) > maxBaseNameLen {
		name = name[:maxBaseNameLen]
	}

	ext = strings.ToLower(ext)
	if ext == "" || len(ext) > 10 {
		ext = PlaceholderExt
	}

	return fmt.Sprintf("%03d_%s%s", index, name, ext)
}
