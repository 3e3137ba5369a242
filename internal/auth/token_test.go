package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ghexport-cli/internal/config"
)

func newTestProvider(t *testing.T, env map[string]string, ghOut string, ghErr error) *ChainProvider {
	t.Helper()

	store, err := config.NewStore(t.TempDir())
	require.NoError(t, err)

	p := NewChainProvider(store)
	p.getenv = func(key string) string { return env[key] }
	p.ghToken = func(context.Context) (string, error) { return ghOut, ghErr }
	return p
}

func TestChainProvider_GHTokenEnvWins(t *testing.T) {
	p := newTestProvider(t, map[string]string{
		"GH_TOKEN":     "from-gh-token",
		"GITHUB_TOKEN": "from-github-token",
	}, "from-cli", nil)

	token, err := p.GetToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "from-gh-token", token)
}

func TestChainProvider_GithubTokenEnvFallback(t *testing.T) {
	p := newTestProvider(t, map[string]string{
		"GITHUB_TOKEN": "  from-github-token\n",
	}, "", nil)

	token, err := p.GetToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "from-github-token", token)
}

func TestChainProvider_ConfigStoreFallback(t *testing.T) {
	p := newTestProvider(t, nil, "", errors.New("gh not installed"))
	require.NoError(t, p.store.Set("token", "from-config"))

	token, err := p.GetToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "from-config", token)
}

func TestChainProvider_GhCLIFallback(t *testing.T) {
	p := newTestProvider(t, nil, "from-cli", nil)

	token, err := p.GetToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "from-cli", token)
}

func TestChainProvider_NoSourceDegradesToEmpty(t *testing.T) {
	p := newTestProvider(t, nil, "", errors.New("gh not installed"))

	token, err := p.GetToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "", token)
}

func TestChainProvider_NilStore(t *testing.T) {
	p := NewChainProvider(nil)
	p.getenv = func(string) string { return "" }
	p.ghToken = func(context.Context) (string, error) { return "", errors.New("no gh") }

	token, err := p.GetToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "", token)
}
