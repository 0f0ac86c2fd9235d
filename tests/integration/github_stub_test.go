package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/bbravo/portfolio-api/internal/config"
	"github.com/bbravo/portfolio-api/internal/github"
	"github.com/bbravo/portfolio-api/internal/repos"
	"github.com/bbravo/portfolio-api/internal/resume"
	"github.com/bbravo/portfolio-api/internal/server"
	"github.com/bbravo/portfolio-api/internal/server/routes"
)

const (
	stubUser   = "BBrav0"
	stubRepo   = "Resume-Building"
	stubBranch = "main"
	stubFile   = "resume.pdf"
)

// githubStub 模拟 GitHub 的四类接口：仓库列表、语言分布、contents 元数据
// 与 raw 下载，集成测试据此断言缓存与聚合行为。
type githubStub struct {
	server *httptest.Server
	URL    string

	mu            sync.Mutex
	listHits      int
	langHits      int
	metaHits      int
	rawHits       int
	lastNoneMatch string

	etag     string
	sha      string
	pdfBody  []byte
	langFail map[string]bool
}

func newGitHubStub(t *testing.T) *githubStub {
	t.Helper()

	stub := &githubStub{
		etag:     `"v1"`,
		sha:      "sha-v1",
		pdfBody:  []byte("%PDF-1.4 stub"),
		langFail: map[string]bool{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/users/"+stubUser+"/repos", stub.handleList)
	mux.HandleFunc("/repos/", stub.handleRepoAPI)
	mux.HandleFunc(fmt.Sprintf("/%s/%s/raw/%s/%s", stubUser, stubRepo, stubBranch, stubFile), stub.handleRaw)

	stub.server = httptest.NewServer(mux)
	stub.URL = stub.server.URL
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *githubStub) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.listHits++
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	// 上游按 pushed 时间排序返回，包含一个未被允许列表收录的仓库。
	fmt.Fprint(w, `[
		{"name":"CoursePlanner","full_name":"BBrav0/CoursePlanner","description":"Degree planner","html_url":"https://github.com/BBrav0/CoursePlanner","language":"TypeScript","fork":false,"owner":{"login":"BBrav0"}},
		{"name":"PersonalWebsite","full_name":"BBrav0/PersonalWebsite","description":"Portfolio site","html_url":"https://github.com/BBrav0/PersonalWebsite","language":"Go","fork":false,"owner":{"login":"BBrav0"}},
		{"name":"dotfiles","full_name":"BBrav0/dotfiles","description":"shell setup","html_url":"https://github.com/BBrav0/dotfiles","language":"Shell","fork":false,"owner":{"login":"BBrav0"}}
	]`)
}

func (s *githubStub) handleRepoAPI(w http.ResponseWriter, r *http.Request) {
	switch {
	case hasSuffix(r.URL.Path, "/languages"):
		s.handleLanguages(w, r)
	case hasSuffix(r.URL.Path, "/contents/"+stubFile):
		s.handleContents(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *githubStub) handleLanguages(w http.ResponseWriter, r *http.Request) {
	repoName := pathSegment(r.URL.Path, 3)

	s.mu.Lock()
	s.langHits++
	fail := s.langFail[repoName]
	s.mu.Unlock()

	if fail {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"message":"boom"}`)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch repoName {
	case "PersonalWebsite":
		fmt.Fprint(w, `{"Go":1200,"HTML":300}`)
	default:
		fmt.Fprint(w, `{"TypeScript":900}`)
	}
}

func (s *githubStub) handleContents(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.metaHits++
	s.lastNoneMatch = r.Header.Get("If-None-Match")
	etag := s.etag
	sha := s.sha
	size := len(s.pdfBody)
	s.mu.Unlock()

	if r.Header.Get("If-None-Match") == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	payload := map[string]interface{}{
		"name":         stubFile,
		"sha":          sha,
		"size":         size,
		"download_url": s.URL + "/raw-download/" + stubFile,
		"commit": map[string]interface{}{
			"committer": map[string]interface{}{"date": "2025-05-01T12:00:00Z"},
		},
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *githubStub) handleRaw(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.rawHits++
	body := s.pdfBody
	etag := s.etag
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("ETag", etag)
	_, _ = w.Write(body)
}

// UpdatePDF 模拟上游发布了新版简历。
func (s *githubStub) UpdatePDF(etag, sha string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.etag = etag
	s.sha = sha
	s.pdfBody = body
}

func (s *githubStub) counts() (list, lang, meta, raw int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listHits, s.langHits, s.metaHits, s.rawHits
}

func hasSuffix(path, suffix string) bool {
	return len(path) >= len(suffix) && path[len(path)-len(suffix):] == suffix
}

// pathSegment 返回路径第 n 段（从 1 开始），例如 /repos/owner/repo 的第 3 段是 repo。
func pathSegment(path string, n int) string {
	seg := 0
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] != '/' {
			continue
		}
		if seg == n {
			return path[start:i]
		}
		seg++
		start = i + 1
	}
	if seg == n {
		return path[start:]
	}
	return ""
}

// newPortfolioApp 用真实组件（客户端、聚合器、缓存、路由）搭起完整服务，
// 只有上游被替换为 stub。
func newPortfolioApp(t *testing.T, stub *githubStub) *fiber.App {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &config.Config{
		Global: config.GlobalConfig{
			ListenPort:      5000,
			GitHubToken:     "test-token",
			GitHubUsername:  stubUser,
			ResumeRepo:      stubRepo,
			ResumeBranch:    stubBranch,
			ResumeFile:      stubFile,
			ResumeCacheTTL:  config.Duration(5 * time.Minute),
			StaleMaxAge:     config.Duration(time.Minute),
			UpstreamTimeout: config.Duration(15 * time.Second),
		},
		Repos: []config.RepoConfig{
			{Name: "PersonalWebsite", Order: 1, Section: "projects"},
			{Name: "CoursePlanner", Order: 2, Section: "software"},
		},
	}

	client := github.NewClient(github.Options{
		HTTPClient: server.NewUpstreamClient(cfg),
		Logger:     logger,
		Token:      cfg.Global.GitHubToken,
		APIBase:    stub.URL,
		RawBase:    stub.URL,
	})

	app, err := server.NewApp(server.AppOptions{Logger: logger, ListenPort: cfg.Global.ListenPort})
	if err != nil {
		t.Fatalf("app error: %v", err)
	}

	routes.Register(app, routes.Options{
		Logger:      logger,
		Config:      cfg,
		Aggregator:  repos.New(client, logger, cfg),
		ResumeCache: resume.NewCache(client, logger, cfg),
		GitHub:      client,
	})
	return app
}
