package github

import (
	"errors"
	"fmt"
)

// ErrNotModified 表示上游针对条件请求返回 304，调用方可直接透传给下游。
var ErrNotModified = errors.New("github: not modified")

// APIError 保留上游状态码与 message 字段，供路由层映射 HTTP 响应。
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("github: upstream status %d", e.StatusCode)
	}
	return fmt.Sprintf("github: upstream status %d: %s", e.StatusCode, e.Message)
}

// RateLimitError 单独建模配额耗尽，让调用方能给出专门的 429 提示而非笼统报错。
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("github: rate limit exceeded: %s", e.Message)
}

// IsRateLimited 判断错误链中是否包含配额耗尽。
func IsRateLimited(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}
