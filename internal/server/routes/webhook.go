package routes

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/tidwall/gjson"
)

// webhookHandler 接收 GitHub push 通知：签名校验通过且推送触及简历文件时，
// 让简历缓存立即失效，下一次请求会重新复验。
func webhookHandler(opts Options) fiber.Handler {
	g := opts.Config.Global
	branchRef := "refs/heads/" + g.ResumeBranch

	return func(c fiber.Ctx) error {
		body := c.Body()

		// 配置了密钥就强制校验；缺签名与错签名同样拒绝。
		if g.WebhookSecret != "" {
			signature := c.Get("X-Hub-Signature-256")
			if !verifySignature(body, signature, g.WebhookSecret) {
				opts.Logger.WithField("action", "webhook").Warn("Webhook 签名校验失败")
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid signature",
				})
			}
		}

		payload := gjson.ParseBytes(body)
		if payload.Get("ref").String() == branchRef && resumeFileTouched(payload, g.ResumeFile) {
			opts.ResumeCache.Invalidate()
			opts.Logger.WithField("action", "webhook").Info("简历文件变更，缓存已失效")
			return c.JSON(fiber.Map{
				"message":   "Resume update detected",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
		}

		return c.JSON(fiber.Map{"message": "Webhook received"})
	}
}

// webhookStatusHandler 供外部探测 webhook 端点是否在线。
func webhookStatusHandler() fiber.Handler {
	return func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":   "GitHub webhook endpoint is active",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func verifySignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

// resumeFileTouched 检查 push 事件中是否有提交修改或新增了简历文件。
func resumeFileTouched(payload gjson.Result, file string) bool {
	touched := false
	payload.Get("commits").ForEach(func(_, commit gjson.Result) bool {
		for _, key := range []string{"modified", "added"} {
			commit.Get(key).ForEach(func(_, path gjson.Result) bool {
				if path.String() == file {
					touched = true
					return false
				}
				return true
			})
		}
		return !touched
	})
	return touched
}
