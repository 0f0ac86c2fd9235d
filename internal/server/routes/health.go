package routes

import (
	"github.com/gofiber/fiber/v3"

	"github.com/bbravo/portfolio-api/internal/version"
)

// healthHandler 暴露 /-/health 诊断接口，输出版本与缓存状态。
func healthHandler(opts Options) fiber.Handler {
	return func(c fiber.Ctx) error {
		primed, age := opts.ResumeCache.State()
		return c.JSON(fiber.Map{
			"status":   "ok",
			"version":  version.Full(),
			"repos":    len(opts.Config.Repos),
			"sections": opts.Config.Sections(),
			"resume_cache": fiber.Map{
				"primed":      primed,
				"age_seconds": age,
			},
		})
	}
}
