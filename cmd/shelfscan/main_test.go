package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/shelfscan/internal/auth"
	"github.com/justyntemme/shelfscan/internal/models"
)

type cliTestEnv struct {
	dir        string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", filepath.Join(dir, "home"))
	t.Setenv("SHELFSCAN_DB_PATH", filepath.Join(dir, "data", "shelfscan.db"))
	t.Setenv("SHELFSCAN_DB_DSN", "")
	t.Setenv("SHELFSCAN_SERVER_URL", "")
	t.Setenv("SHELFSCAN_JWT_SECRET", "")
	t.Setenv("SHELFSCAN_TOKEN", "")
	t.Setenv("SHELFSCAN_LOG_LEVEL", "")
	return &cliTestEnv{dir: dir, configPath: filepath.Join(dir, "shelfscan.toml")}
}

func (env *cliTestEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(env.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath, "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestImportKnownAndCheckLocal(t *testing.T) {
	env := setupCLITestEnv(t)
	known := env.writeFile(t, "known.txt", "# primary catalog\n0306406152\n\nB07XJ8C8F5\n")

	out, err := runCLI(t, env, "import", "known", known)
	require.NoError(t, err)
	assert.Contains(t, out, "known")

	out, err = runCLI(t, env, "check", "--local", "--json", "978-0-306-40615-7", "b000apznr0")
	require.NoError(t, err)

	var results []models.LookupResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.True(t, results[0].Known)
	assert.Equal(t, "0306406152", results[0].MatchedID)
	assert.Equal(t, "B000APZNR0", results[1].ID)
	assert.False(t, results[1].Known)

	// A second import of the same file is skipped.
	out, err = runCLI(t, env, "import", "known", known)
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing changed")
}

func TestImportSecondaryFeedsChecks(t *testing.T) {
	env := setupCLITestEnv(t)
	isbns := env.writeFile(t, "isbns.txt", "9780593085172|0|1\n")
	asins := env.writeFile(t, "asins.txt", "B000APZNR0|9780575114951\n")

	_, err := runCLI(t, env, "import", "secondary")
	assert.Error(t, err)

	out, err := runCLI(t, env, "import", "secondary", "--isbns", isbns, "--asins", asins)
	require.NoError(t, err)
	assert.Contains(t, out, "secondary")

	out, err = runCLI(t, env, "check", "--local", "--json", "9780593085172", "B000APZNR0")
	require.NoError(t, err)

	var results []models.LookupResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.True(t, results[0].KnownToSecondary())
	require.NotNil(t, results[1].ASINKnownToSecondary)
	assert.True(t, *results[1].ASINKnownToSecondary)
}

func TestCheckRejectsInvalidIdentifier(t *testing.T) {
	env := setupCLITestEnv(t)
	_, err := runCLI(t, env, "check", "--local", "not-a-book")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not-a-book")
}

func TestScanFileLocal(t *testing.T) {
	env := setupCLITestEnv(t)
	known := env.writeFile(t, "known.txt", "0316098094\n")
	_, err := runCLI(t, env, "import", "known", known)
	require.NoError(t, err)

	page := env.writeFile(t, "page.html", `<html><head></head><body>
<a href="https://www.amazon.com/dp/0316098094">Gideon</a>
<a href="/book/9780593085172">Piranesi</a>
<a href="/book/9780593085172/reviews">Reviews</a>
</body></html>`)
	annotated := filepath.Join(env.dir, "annotated.html")

	out, err := runCLI(t, env, "scan", "--local", "--json",
		"--base-url", "https://locusmag.example/list/", "--annotate", annotated, page)
	require.NoError(t, err)

	var result struct {
		Status string `json:"status"`
		Report struct {
			Unknown   int `json:"unknown"`
			Annotated int `json:"links_annotated"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "done", result.Status)
	assert.Equal(t, 1, result.Report.Unknown)
	assert.Equal(t, 2, result.Report.Annotated)

	html, err := os.ReadFile(annotated)
	require.NoError(t, err)
	assert.Contains(t, string(html), "shelfscan-highlight-unknown")
	assert.Contains(t, string(html), "shelfscan-styles")
}

func TestScanRemoteServer(t *testing.T) {
	env := setupCLITestEnv(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/batch_check/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"9780593085172","known":false,"status":0,"priority":"2"}]`))
	}))
	defer server.Close()
	t.Setenv("SHELFSCAN_SERVER_URL", server.URL)

	page := env.writeFile(t, "page.html", `<a href="https://books.example/isbn/9780593085172">Piranesi</a>`)
	out, err := runCLI(t, env, "scan", page)
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 links with IDs, 1 unique IDs, out of 1 links")
	assert.Contains(t, out, "9780593085172")
	assert.Contains(t, out, "known-to-secondary-source")
}

func TestPing(t *testing.T) {
	env := setupCLITestEnv(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("shelfscan lookup server running"))
	}))
	t.Setenv("SHELFSCAN_SERVER_URL", server.URL)

	out, err := runCLI(t, env, "ping")
	require.NoError(t, err)
	assert.Contains(t, out, "ok")

	server.Close()
	out, err = runCLI(t, env, "ping")
	assert.Error(t, err)
	assert.Contains(t, out, "dead")
}

func TestToken(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := runCLI(t, env, "token", "--subject", "firefox")
	assert.ErrorIs(t, err, auth.ErrMissingSecret)

	t.Setenv("SHELFSCAN_JWT_SECRET", "cli-secret")
	out, err := runCLI(t, env, "token", "--subject", "firefox", "--ttl", "1h")
	require.NoError(t, err)

	issuer, err := auth.NewIssuer("cli-secret", time.Hour)
	require.NoError(t, err)
	claims, err := issuer.ValidateToken(string(bytes.TrimSpace([]byte(out))))
	require.NoError(t, err)
	assert.Equal(t, "firefox", claims.Subject)
}
