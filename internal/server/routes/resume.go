package routes

import (
	"fmt"
	"io"

	"github.com/gofiber/fiber/v3"

	"github.com/bbravo/portfolio-api/internal/github"
	"github.com/bbravo/portfolio-api/internal/logging"
	"github.com/bbravo/portfolio-api/internal/resume"
	"github.com/bbravo/portfolio-api/internal/server"
)

// resumePayload 平铺元数据并附加缓存标记，字段名沿用前端既有契约。
type resumePayload struct {
	*resume.Metadata
	Updated  bool   `json:"updated,omitempty"`
	Cached   bool   `json:"cached,omitempty"`
	CacheAge *int64 `json:"cacheAge,omitempty"`
	Stale    bool   `json:"stale,omitempty"`
	Error    string `json:"error,omitempty"`
}

// resumeMetadataHandler 查询简历缓存并将结论翻译为 HTTP 语义：
// 304 短路、新鲜/陈旧各自的 Cache-Control、ETag 与 Last-Modified 镜像。
func resumeMetadataHandler(opts Options) fiber.Handler {
	freshMaxAge := int64(opts.Config.Global.ResumeCacheTTL.DurationValue().Seconds())
	staleMaxAge := int64(opts.Config.Global.StaleMaxAge.DurationValue().Seconds())

	return func(c fiber.Ctx) error {
		cond := github.Conditional{
			IfModifiedSince: c.Get("If-Modified-Since"),
			IfNoneMatch:     c.Get("If-None-Match"),
		}

		result, err := opts.ResumeCache.Metadata(c.Context(), cond)
		if err != nil {
			opts.Logger.WithError(err).
				WithFields(logging.CacheFields("resume_metadata", false, false, 0)).
				Error("简历元数据不可用")
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Failed to fetch resume data",
			})
		}

		if result.NotModified {
			return c.SendStatus(fiber.StatusNotModified)
		}

		// 快路径命中时也尊重客户端条件头，避免重复传输正文。
		if result.Cached && !result.Stale && result.Data.ETag != "" && cond.IfNoneMatch == result.Data.ETag {
			return c.SendStatus(fiber.StatusNotModified)
		}

		maxAge := freshMaxAge
		if result.Stale {
			// 陈旧响应给更短的缓存窗口，催促客户端尽快重试。
			maxAge = staleMaxAge
		}
		c.Set("Cache-Control", fmt.Sprintf("public, max-age=%d, s-maxage=%d", maxAge, maxAge))
		if result.Data.ETag != "" {
			c.Set("ETag", result.Data.ETag)
		}
		if result.Data.LastModified != "" {
			c.Set("Last-Modified", result.Data.LastModified)
		}

		payload := resumePayload{
			Metadata: result.Data,
			Updated:  result.Updated,
			Stale:    result.Stale,
			Error:    result.StaleReason,
			Cached:   result.Cached,
		}
		if result.Cached {
			age := result.CacheAge
			payload.CacheAge = &age
		}
		return c.JSON(payload)
	}
}

// resumePDFHandler 将 PDF 正文原样转发给客户端：薄薄的一层字节拷贝，
// 附带内联展示与跨域允许头。
func resumePDFHandler(opts Options) fiber.Handler {
	g := opts.Config.Global

	return func(c fiber.Ctx) error {
		rawURL := opts.GitHub.RawFileURL(g.GitHubUsername, g.ResumeRepo, g.ResumeBranch, g.ResumeFile)
		resp, err := opts.GitHub.FetchRaw(c.Context(), rawURL)
		if err != nil {
			opts.Logger.WithError(err).
				WithFields(logging.UpstreamFields("resume_pdf", g.GitHubUsername, g.ResumeRepo, 0)).
				Error("PDF 转发失败")
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Failed to serve PDF",
			})
		}
		defer resp.Body.Close()

		// 先透传上游缓存头，再覆盖展示相关字段。
		server.CopyResponseHeaders(c, resp.Header)
		c.Set("Content-Type", "application/pdf")
		c.Set("Cache-Control", "public, max-age=3600, s-maxage=3600")
		c.Set("Content-Disposition", "inline")
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "SAMEORIGIN")
		c.Set("Access-Control-Allow-Origin", "*")
		c.Set("Access-Control-Allow-Methods", "GET")
		c.Set("Access-Control-Allow-Headers", "Content-Type")

		c.Status(fiber.StatusOK)
		if _, err := io.Copy(c.Response().BodyWriter(), resp.Body); err != nil {
			return fiber.NewError(fiber.StatusBadGateway, fmt.Sprintf("stream pdf failed: %v", err))
		}
		return nil
	}
}
