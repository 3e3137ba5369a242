package images

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) GetToken(context.Context) (string, error) {
	return string(s), nil
}

func TestCandidateURLs(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want []string
	}{
		{
			name: "regular URL is tried as-is",
			url:  "https://example.com/img.png",
			want: []string{"https://example.com/img.png"},
		},
		{
			name: "user attachment gains a download=1 variant",
			url:  "https://github.com/user-attachments/assets/abc",
			want: []string{
				"https://github.com/user-attachments/assets/abc",
				"https://github.com/user-attachments/assets/abc?download=1",
			},
		},
		{
			name: "existing query appends with ampersand",
			url:  "https://github.com/user-attachments/assets/abc?x=1",
			want: []string{
				"https://github.com/user-attachments/assets/abc?x=1",
				"https://github.com/user-attachments/assets/abc?x=1&download=1",
			},
		},
		{
			name: "download hint already present",
			url:  "https://github.com/user-attachments/assets/abc?download=1",
			want: []string{"https://github.com/user-attachments/assets/abc?download=1"},
		},
		{
			name: "attachment path on another host is not special",
			url:  "https://example.com/user-attachments/assets/abc",
			want: []string{"https://example.com/user-attachments/assets/abc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, candidateURLs(tt.url))
		})
	}
}

func TestIsUserAttachment(t *testing.T) {
	assert.True(t, isUserAttachment("https://github.com/user-attachments/assets/abc"))
	assert.True(t, isUserAttachment("https://GitHub.com/user-attachments/assets/abc"))
	assert.False(t, isUserAttachment("https://example.com/user-attachments/assets/abc"))
	assert.False(t, isUserAttachment("https://github.com/owner/repo/blob/main/a.png"))
}

func TestDownloader_FetchWritesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, acceptOctetStream, r.Header.Get("Accept"))
		w.Write([]byte("\x89PNG\r\n\x1a\npayload"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "assets", "001_a.png")
	d := NewDownloader(staticToken(""))

	err := d.Fetch(context.Background(), srv.URL+"/a.png", dest)

	require.NoError(t, err)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG\r\n\x1a\npayload", string(data))
}

func TestDownloader_FetchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "001_a.png")
	d := NewDownloader(staticToken(""))

	err := d.Fetch(context.Background(), srv.URL+"/a.png", dest)

	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownloader_FetchEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "001_a.png")
	d := NewDownloader(staticToken(""))

	err := d.Fetch(context.Background(), srv.URL+"/a.png", dest)

	assert.ErrorIs(t, err, ErrEmptyBody)
}

func TestDownloader_FetchSkipsExistingFile(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "001_a.png")
	require.NoError(t, os.WriteFile(dest, []byte("already here"), 0644))
	d := NewDownloader(staticToken(""))

	err := d.Fetch(context.Background(), srv.URL+"/a.png", dest)

	require.NoError(t, err)
	assert.False(t, called, "existing non-empty file must not be re-downloaded")
	data, _ := os.ReadFile(dest)
	assert.Equal(t, "already here", string(data))
}

func TestDownloader_EnsureClientWithoutToken(t *testing.T) {
	d := NewDownloader(nil)

	err := d.ensureClient(context.Background())

	require.NoError(t, err)
	require.NotNil(t, d.httpClient)
	require.NotNil(t, d.gh)
	assert.Equal(t, "https://github.com/", d.gh.BaseURL.String())
}
