package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryosukesatoh/arxiv-digest/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{config.EnvAPIKey, config.EnvAPIBase, config.EnvWebhookKey, config.EnvTargetField} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func recentFeed(now time.Time) string {
	entry := func(id string, at time.Time) string {
		return fmt.Sprintf(`<entry><id>http://arxiv.org/abs/%s</id><title>Paper %s</title><summary>Summary %s.</summary>`+
			`<author><name>Author %s</name></author><published>%s</published></entry>`, id, id, id, id, at.UTC().Format(time.RFC3339))
	}
	return `<?xml version="1.0" encoding="UTF-8"?><feed xmlns="http://www.w3.org/2005/Atom">` +
		entry("1", now.Add(-time.Minute)) +
		entry("2", now.Add(-72*time.Hour)) +
		`</feed>`
}

func TestBuildRunnerStdoutWithoutCredentials(t *testing.T) {
	clearEnv(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(recentFeed(time.Now())))
	}))
	defer ts.Close()

	cfg, err := config.Load(writeConfig(t, fmt.Sprintf(`
category: cs.LG
fetcher:
  base_url: %s
`, ts.URL)))
	require.NoError(t, err)

	var out bytes.Buffer
	r, err := buildRunner(cfg, zerolog.Nop(), &out)
	require.NoError(t, err)

	report, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Fetched)
	assert.Equal(t, 1, report.Delivered)
	assert.Contains(t, out.String(), "### Paper 1\nSummary 1.\n")
	assert.NotContains(t, out.String(), "Paper 2")
}

func TestBuildRunnerFailsClosedWithTargetFieldAndNoKey(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvTargetField, "computer vision")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(recentFeed(time.Now())))
	}))
	defer ts.Close()

	cfg, err := config.Load(writeConfig(t, "fetcher:\n  base_url: "+ts.URL+"\n"))
	require.NoError(t, err)

	var out bytes.Buffer
	r, err := buildRunner(cfg, zerolog.Nop(), &out)
	require.NoError(t, err)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilteredOut)
	assert.Equal(t, 1, report.ClassifyFallbacks)
	assert.Empty(t, out.String())
}

func TestBuildRunnerWeChatWithoutKeySkips(t *testing.T) {
	clearEnv(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(recentFeed(time.Now())))
	}))
	defer ts.Close()

	cfg, err := config.Load(writeConfig(t, "publisher:\n  type: wechat\nfetcher:\n  base_url: "+ts.URL+"\n"))
	require.NoError(t, err)

	r, err := buildRunner(cfg, zerolog.Nop(), nil)
	require.NoError(t, err)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.DeliveriesSkipped)
}

func TestRunJobReportsFetchFailure(t *testing.T) {
	clearEnv(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	cfg, err := config.Load(writeConfig(t, "fetcher:\n  base_url: "+ts.URL+"\n"))
	require.NoError(t, err)

	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	r, err := buildRunner(cfg, logger, nil)
	require.NoError(t, err)

	err = runJob(context.Background(), r, logger, "test")
	require.Error(t, err)
	assert.Contains(t, logs.String(), "run failed")
	assert.Contains(t, logs.String(), "unexpected status 503")
}

func TestLoadConfigOptionalDefaultPath(t *testing.T) {
	clearEnv(t)
	missing := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := loadConfig(missing, false)
	require.NoError(t, err)
	assert.Equal(t, "stdout", cfg.Publisher.Type)

	_, err = loadConfig(missing, true)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "json", "warn")
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)

	_, err = newLogger(&buf, "json", "loud")
	assert.Error(t, err)
}

func TestCronLogger(t *testing.T) {
	var buf bytes.Buffer
	l := cronLogger{zerolog.New(&buf)}

	l.Error(errors.New("panic in job"), "job failed", "entry", 1)
	assert.Contains(t, buf.String(), `"message":"cron: job failed"`)
	assert.Contains(t, buf.String(), `"entry":1`)
	assert.Contains(t, buf.String(), "panic in job")
}
