package images

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/ghexport-cli/internal/logger"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// userAgent identifies the exporter to asset hosts.
	userAgent = "ghexport/1.0"

	// acceptOctetStream asks GitHub for raw bytes rather than an HTML
	// attachment page.
	acceptOctetStream = "application/octet-stream"

	// userAttachmentPrefix marks GitHub attachment URLs that reject
	// plain GETs without a download hint.
	userAttachmentPrefix = "/user-attachments/assets/"
)

// TokenProvider supplies an access token for authenticated downloads.
// An empty token degrades to unauthenticated requests.
type TokenProvider interface {
	GetToken(ctx context.Context) (string, error)
}

// Fetcher downloads a URL to a destination file.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string) error
}

// Ensure Downloader implements the interface.
var _ Fetcher = (*Downloader)(nil)

// Downloader fetches image assets over HTTP with a best-effort
// strategy: the literal URL first, a download=1 retry for GitHub user
// attachments, and finally an authenticated API-proxy request through
// the go-github client.
type Downloader struct {
	tokens      TokenProvider
	rateLimiter *RateLimiter
	httpClient  *http.Client
	gh          *gh.Client
}

// NewDownloader creates a downloader with a token provider.
func NewDownloader(tokens TokenProvider) *Downloader {
	return &Downloader{
		tokens:      tokens,
		rateLimiter: NewRateLimiter(),
	}
}

// ensureClient initialises the HTTP and go-github clients if not
// already done. This is called lazily so the token is only resolved
// when the first download happens.
func (d *Downloader) ensureClient(ctx context.Context) error {
	if d.httpClient != nil {
		return nil
	}

	var token string
	if d.tokens != nil {
		t, err := d.tokens.GetToken(ctx)
		if err != nil {
			return fmt.Errorf("get token: %w", err)
		}
		token = t
	}

	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		tc := oauth2.NewClient(ctx, ts)
		tc.Timeout = DefaultTimeout
		d.httpClient = tc
	} else {
		d.httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	// The fallback goes through go-github pointed at github.com rather
	// than api.github.com, mirroring `gh api --hostname github.com`.
	client := gh.NewClient(d.httpClient)
	base, err := url.Parse("https://github.com/")
	if err != nil {
		return err
	}
	client.BaseURL = base
	d.gh = client

	return nil
}

// RateLimiter returns the rate limiter for external access.
func (d *Downloader) RateLimiter() *RateLimiter {
	return d.rateLimiter
}

// Fetch downloads url to dest. An already-present non-empty dest is
// treated as downloaded. Candidate URLs are tried in order; for GitHub
// user attachments a final attempt goes through the API client. Any
// path that yields a non-OK status, an empty body, or a transport
// error counts as a failure.
func (d *Downloader) Fetch(ctx context.Context, rawURL, dest string) error {
	if fi, err := os.Stat(dest); err == nil && fi.Size() > 0 {
		return nil
	}

	if err := d.ensureClient(ctx); err != nil {
		return err
	}

	var lastErr error
	for _, candidate := range candidateURLs(rawURL) {
		if err := d.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
		if err := d.fetchDirect(ctx, candidate, dest); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	if isUserAttachment(rawURL) {
		if err := d.fetchViaAPI(ctx, rawURL, dest); err != nil {
			return fmt.Errorf("api fallback: %w", err)
		}
		return nil
	}

	logger.Warn("failed to download %s: %v", rawURL, lastErr)
	return lastErr
}

// fetchDirect performs a plain GET of u and writes the body to dest.
func (d *Downloader) fetchDirect(ctx context.Context, u, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptOctetStream)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := d.rateLimiter.CheckRateLimit(resp); err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
			URL:        u,
		}
	}

	return writeBody(dest, resp.Body)
}

// fetchViaAPI downloads a user attachment through the go-github client
// with an octet-stream Accept header, which is what `gh api` does for
// attachment endpoints.
func (d *Downloader) fetchViaAPI(ctx context.Context, rawURL, dest string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return err
	}

	endpoint := strings.TrimPrefix(parsed.Path, "/")
	query := parsed.Query()
	// Force download=1 to get raw bytes.
	query.Set("download", "1")
	endpoint += "?" + query.Encode()

	req, err := d.gh.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", acceptOctetStream)

	if err := d.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	var buf bytes.Buffer
	resp, err := d.gh.Do(ctx, req, &buf)
	if resp != nil && resp.Response != nil {
		d.rateLimiter.UpdateFromResponse(resp.Response)
	}
	if err != nil {
		return err
	}
	if buf.Len() == 0 {
		return ErrEmptyBody
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	return os.WriteFile(dest, buf.Bytes(), 0644)
}

// writeBody streams r into dest, failing on empty content.
func writeBody(dest string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return err
	}
	if n == 0 {
		os.Remove(dest)
		return ErrEmptyBody
	}
	return nil
}

// candidateURLs returns the URLs to attempt in order. GitHub user
// attachments reject plain GETs without a download hint, so a
// download=1 variant is appended for them.
func candidateURLs(rawURL string) []string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return []string{rawURL}
	}
	if isUserAttachmentURL(parsed) && !strings.Contains(parsed.RawQuery, "download=1") {
		sep := "?"
		if parsed.RawQuery != "" {
			sep = "&"
		}
		return []string{rawURL, rawURL + sep + "download=1"}
	}
	return []string{rawURL}
}

func isUserAttachment(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return isUserAttachmentURL(parsed)
}

func isUserAttachmentURL(u *url.URL) bool {
	return strings.EqualFold(u.Hostname(), "github.com") &&
		strings.HasPrefix(u.Path, userAttachmentPrefix)
}
