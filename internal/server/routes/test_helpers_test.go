package routes

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/bbravo/portfolio-api/internal/config"
	"github.com/bbravo/portfolio-api/internal/github"
	"github.com/bbravo/portfolio-api/internal/repos"
	"github.com/bbravo/portfolio-api/internal/resume"
	"github.com/bbravo/portfolio-api/internal/server"
)

type fakeAggregator struct {
	result []repos.EnrichedRepo
	err    error
}

func (f *fakeAggregator) ListEnriched(ctx context.Context) ([]repos.EnrichedRepo, error) {
	return f.result, f.err
}

type fakeResume struct {
	result      resume.Result
	err         error
	invalidated int
	lastCond    github.Conditional
}

func (f *fakeResume) Metadata(ctx context.Context, cond github.Conditional) (resume.Result, error) {
	f.lastCond = cond
	return f.result, f.err
}

func (f *fakeResume) Invalidate() { f.invalidated++ }

func (f *fakeResume) State() (bool, int64) { return f.result.Data != nil, f.result.CacheAge }

type fakeFetcher struct {
	body    string
	headers http.Header
	err     error
	lastURL string
}

func (f *fakeFetcher) FetchRaw(ctx context.Context, rawURL string) (*http.Response, error) {
	f.lastURL = rawURL
	if f.err != nil {
		return nil, f.err
	}
	header := f.headers
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader([]byte(f.body))),
	}, nil
}

func (f *fakeFetcher) RawFileURL(owner, repo, branch, file string) string {
	return "https://github.com/" + owner + "/" + repo + "/raw/" + branch + "/" + file
}

type testEnv struct {
	app        *fiber.App
	aggregator *fakeAggregator
	resume     *fakeResume
	fetcher    *fakeFetcher
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &config.Config{
		Global: config.GlobalConfig{
			ListenPort:     5000,
			GitHubUsername: "BBrav0",
			ResumeRepo:     "Resume-Building",
			ResumeBranch:   "main",
			ResumeFile:     "resume.pdf",
			ResumeCacheTTL: config.Duration(5 * time.Minute),
			StaleMaxAge:    config.Duration(time.Minute),
		},
		Repos: []config.RepoConfig{
			{Name: "PersonalWebsite", Order: 1, Section: "projects"},
		},
	}
	if mutate != nil {
		mutate(cfg)
	}

	app, err := server.NewApp(server.AppOptions{Logger: logger, ListenPort: cfg.Global.ListenPort})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}

	env := &testEnv{
		app:        app,
		aggregator: &fakeAggregator{},
		resume:     &fakeResume{},
		fetcher:    &fakeFetcher{body: "%PDF-1.4"},
	}
	Register(app, Options{
		Logger:      logger,
		Config:      cfg,
		Aggregator:  env.aggregator,
		ResumeCache: env.resume,
		GitHub:      env.fetcher,
	})
	return env
}

func freshMetadata() *resume.Metadata {
	return &resume.Metadata{
		PDFURL:       "https://github.com/BBrav0/Resume-Building/raw/main/resume.pdf",
		LastModified: "2025-05-01T12:00:00Z",
		ETag:         `"abc123"`,
		SHA:          "deadbeef",
		Timestamp:    "2025-06-01T10:00:00Z",
		Size:         12345,
		DownloadURL:  "https://raw.example/resume.pdf",
	}
}
