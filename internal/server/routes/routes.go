package routes

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/bbravo/portfolio-api/internal/config"
	"github.com/bbravo/portfolio-api/internal/github"
	"github.com/bbravo/portfolio-api/internal/repos"
	"github.com/bbravo/portfolio-api/internal/resume"
)

// RepoLister 描述仓库聚合能力，便于在路由测试中注入假实现。
type RepoLister interface {
	ListEnriched(ctx context.Context) ([]repos.EnrichedRepo, error)
}

// ResumeProvider 描述简历缓存能力。
type ResumeProvider interface {
	Metadata(ctx context.Context, cond github.Conditional) (resume.Result, error)
	Invalidate()
	State() (primed bool, ageSeconds int64)
}

// RawFetcher 描述原样转发路径需要的下载能力。
type RawFetcher interface {
	FetchRaw(ctx context.Context, rawURL string) (*http.Response, error)
	RawFileURL(owner, repo, branch, file string) string
}

// Options 汇总各路由依赖的协作对象。
type Options struct {
	Logger      *logrus.Logger
	Config      *config.Config
	Aggregator  RepoLister
	ResumeCache ResumeProvider
	GitHub      RawFetcher
}

// Register 将全部 API 路由与诊断路由挂载到 Fiber 应用。
func Register(app *fiber.App, opts Options) {
	if app == nil {
		return
	}

	app.Get("/api/repos", listReposHandler(opts))
	app.Get("/api/resume", resumeMetadataHandler(opts))
	app.Get("/api/resume/pdf", resumePDFHandler(opts))
	app.Get("/api/webhook/github", webhookStatusHandler())
	app.Post("/api/webhook/github", webhookHandler(opts))
	app.Get("/-/health", healthHandler(opts))
}
