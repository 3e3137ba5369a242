// Package auth resolves the GitHub token used for attachment downloads.
// Resolution is a best-effort chain: environment variables, the config
// file, then the gh CLI. A missing token is not an error; the
// downloader degrades to unauthenticated (rate-limited) requests.
package auth

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/custodia-labs/ghexport-cli/internal/config"
	"github.com/custodia-labs/ghexport-cli/internal/logger"
)

// TokenProvider supplies an access token for API requests.
type TokenProvider interface {
	GetToken(ctx context.Context) (string, error)
}

// Ensure ChainProvider implements the interface.
var _ TokenProvider = (*ChainProvider)(nil)

// ChainProvider tries each token source in order and returns the first
// non-empty token: GH_TOKEN, GITHUB_TOKEN, the config store's token
// key, then `gh auth token`.
type ChainProvider struct {
	store *config.Store

	// Overridable for tests.
	getenv  func(string) string
	ghToken func(ctx context.Context) (string, error)
}

// NewChainProvider creates a token provider backed by the environment,
// the given config store (may be nil), and the gh CLI.
func NewChainProvider(store *config.Store) *ChainProvider {
	return &ChainProvider{
		store:   store,
		getenv:  os.Getenv,
		ghToken: ghAuthToken,
	}
}

// GetToken returns the first available token, or an empty string when
// no source has one. It never returns an error: every miss degrades
// to unauthenticated requests.
func (p *ChainProvider) GetToken(ctx context.Context) (string, error) {
	for _, env := range []string{"GH_TOKEN", "GITHUB_TOKEN"} {
		if token := strings.TrimSpace(p.getenv(env)); token != "" {
			logger.Debug("token resolved from %s", env)
			return token, nil
		}
	}

	if p.store != nil {
		if token := strings.TrimSpace(p.store.GetString("token")); token != "" {
			logger.Debug("token resolved from config file")
			return token, nil
		}
	}

	token, err := p.ghToken(ctx)
	if err != nil {
		logger.Debug("gh auth token unavailable: %v", err)
		return "", nil
	}
	if token != "" {
		logger.Debug("token resolved from gh CLI")
	}
	return token, nil
}

// ghAuthToken shells out to the gh CLI for a token. gh manages its own
// credential storage, so this picks up whatever the user logged in with.
func ghAuthToken(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "gh", "auth", "token").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
