package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/catalogd/internal/domain"
)

func runCLI(t *testing.T, cwd string, env map[string]string, args ...string) (string, string, error) {
	t.Helper()
	cc := &commandContext{
		getenv: func(k string) string { return env[k] },
		getwd:  func() (string, error) { return cwd, nil },
	}
	cmd := newRootCommandWith(cc)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestCLI_Lookup_NotFoundStdoutIsSingleJSON(t *testing.T) {
	var searched atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		searched.Store(r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`<html><body><a href="https://example.com/x">x</a></body></html>`))
	}))
	defer srv.Close()

	cwd := t.TempDir()
	cfg := "search_base_url: " + srv.URL + "\nlog_level: error\n"
	require.NoError(t, os.WriteFile(filepath.Join(cwd, "catalogd.yaml"), []byte(cfg), 0o644))

	stdout, stderr, err := runCLI(t, cwd, nil, "lookup", "ML 101234")
	require.ErrorIs(t, err, errSilentFailure)
	assert.Equal(t, 1, exitCode(err))
	assert.Equal(t, `"ML 101234" site:lddb.com`, searched.Load())

	var resp domain.LookupResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp), "stdout=%q", stdout)
	assert.Equal(t, domain.StatusNotFound, resp.Status)
	assert.Equal(t, "No LDDB results found for catalog number: ML 101234", resp.Message)
	assert.Equal(t, 1, strings.Count(strings.TrimSpace(stdout), "\n")+1)
	assert.Contains(t, stderr, "完成：status=not_found")
}

func TestCLI_Lookup_UsageErrors(t *testing.T) {
	cwd := t.TempDir()

	_, _, err := runCLI(t, cwd, nil, "lookup")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))

	_, _, err = runCLI(t, cwd, nil, "lookup", "   ")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))

	_, _, err = runCLI(t, cwd, nil, "lookup", "--bogus", "X")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestCLI_ConfigErrorsSurface(t *testing.T) {
	cwd := t.TempDir()
	_, _, err := runCLI(t, cwd, nil, "--config", "nope.yaml", "lookup", "X")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config_not_found")
	assert.Equal(t, 1, exitCode(err))
}

func TestSummaryLine(t *testing.T) {
	year := 1982
	var id int64 = 78
	meta := domain.NewMetadata("u")
	meta.Title = "Blade Runner"
	meta.Year = &year
	meta.TMDBID = &id

	got := summaryLine(domain.Success(meta, "ML1"))
	assert.Equal(t, `完成：status=success catalog=ML1 title="Blade Runner" year=1982 tmdb=yes`, got)

	got = summaryLine(domain.Failed("Found LDDB page but could not extract metadata"))
	assert.Equal(t, `完成：status=error message="Found LDDB page but could not extract metadata"`, got)
}

func TestEmitResponse_TTYIndents(t *testing.T) {
	var out, errOut bytes.Buffer
	require.NoError(t, emitResponse(&out, &errOut, domain.NotFound("x"), true))
	assert.Equal(t, "{\n  \"status\": \"not_found\",\n  \"message\": \"x\"\n}\n", out.String())
	assert.True(t, strings.HasPrefix(errOut.String(), "完成："))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(usageError{err: errors.New("x")}))
	assert.Equal(t, 1, exitCode(errors.New("x")))
}
