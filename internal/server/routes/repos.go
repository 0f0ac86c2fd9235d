package routes

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/bbravo/portfolio-api/internal/github"
)

// listReposHandler 输出聚合后的仓库数组；限流与普通上游故障分别映射，
// 前端据此区分“稍后再试”与“出问题了”。
func listReposHandler(opts Options) fiber.Handler {
	return func(c fiber.Ctx) error {
		result, err := opts.Aggregator.ListEnriched(c.Context())
		if err != nil {
			return renderListError(c, opts.Logger, err)
		}
		return c.JSON(result)
	}
}

func renderListError(c fiber.Ctx, logger *logrus.Logger, err error) error {
	fields := logrus.Fields{"action": "list_repos"}

	if github.IsRateLimited(err) {
		logger.WithFields(fields).Warn("GitHub 配额耗尽")
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"message": "GitHub API rate limit exceeded on server.",
		})
	}

	var apiErr *github.APIError
	if errors.As(err, &apiErr) {
		logger.WithError(err).WithFields(fields).Error("上游列表请求失败")
		status := apiErr.StatusCode
		if status < fiber.StatusBadRequest {
			status = fiber.StatusBadGateway
		}
		message := apiErr.Message
		if message == "" {
			message = "Failed to fetch repositories from GitHub."
		}
		return c.Status(status).JSON(fiber.Map{"message": message})
	}

	logger.WithError(err).WithFields(fields).Error("仓库聚合失败")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Internal server error",
	})
}
