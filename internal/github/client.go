package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/bbravo/portfolio-api/internal/logging"
)

const (
	defaultAPIBase = "https://api.github.com"
	defaultRawBase = "https://github.com"

	acceptJSON = "application/vnd.github.v3+json"
	userAgent  = "portfolio-api (+github.com/bbravo/portfolio-api)"

	// 上游错误正文大小上限，避免恶意响应撑爆内存。
	maxErrorBodyBytes = 64 * 1024
)

// Client 封装对 GitHub REST API 的全部上游调用，token 统一注入请求头。
// APIBase/RawBase 可在测试中指向 httptest 服务。
type Client struct {
	http    *http.Client
	logger  *logrus.Logger
	token   string
	apiBase string
	rawBase string
}

// Options 控制 Client 的构造参数，零值字段回退到生产默认值。
type Options struct {
	HTTPClient *http.Client
	Logger     *logrus.Logger
	Token      string
	APIBase    string
	RawBase    string
}

// NewClient 构造共享的 GitHub 客户端。
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	apiBase := strings.TrimRight(opts.APIBase, "/")
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	rawBase := strings.TrimRight(opts.RawBase, "/")
	if rawBase == "" {
		rawBase = defaultRawBase
	}

	return &Client{
		http:    httpClient,
		logger:  logger,
		token:   opts.Token,
		apiBase: apiBase,
		rawBase: rawBase,
	}
}

// ListRepos 拉取指定账号的完整仓库列表，按 pushed 时间排序，单页 100 条。
// 配额耗尽返回 RateLimitError，其余非 2xx 返回 APIError。
func (c *Client) ListRepos(ctx context.Context, user string) ([]Repo, error) {
	endpoint := fmt.Sprintf("%s/users/%s/repos?type=all&sort=pushed&per_page=100", c.apiBase, url.PathEscape(user))

	resp, err := c.doJSON(ctx, endpoint, Conditional{})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeAPIError(resp)
	}

	var repos []Repo
	if err := json.NewDecoder(resp.Body).Decode(&repos); err != nil {
		return nil, fmt.Errorf("github: 解析仓库列表失败: %w", err)
	}
	return repos, nil
}

// Languages 返回单个仓库的语言字节数分布；非 2xx 由调用方决定如何降级。
func (c *Client) Languages(ctx context.Context, owner, repo string) (map[string]int64, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/languages", c.apiBase, url.PathEscape(owner), url.PathEscape(repo))

	resp, err := c.doJSON(ctx, endpoint, Conditional{})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeAPIError(resp)
	}

	var languages map[string]int64
	if err := json.NewDecoder(resp.Body).Decode(&languages); err != nil {
		return nil, fmt.Errorf("github: 解析语言分布失败: %w", err)
	}
	return languages, nil
}

// FileMetadata 查询 contents 接口获取单个文件的元数据，支持条件请求：
// 上游返回 304 时抛出 ErrNotModified，响应头 ETag 会回填到结果中。
func (c *Client) FileMetadata(ctx context.Context, owner, repo, path string, cond Conditional) (*FileMeta, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.apiBase, url.PathEscape(owner), url.PathEscape(repo), escapePath(path))

	resp, err := c.doJSON(ctx, endpoint, cond)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil, ErrNotModified
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeAPIError(resp)
	}

	var meta FileMeta
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("github: 解析文件元数据失败: %w", err)
	}
	meta.ETag = resp.Header.Get("ETag")
	return &meta, nil
}

// FetchRaw 拉取原始文件正文，调用方负责关闭 Body。
// 用于下载可达性确认与原样转发两条路径。
func (c *Client) FetchRaw(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("github: 构造请求失败: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github: 下载文件失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		status := resp.StatusCode
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))
		resp.Body.Close()
		return nil, &APIError{StatusCode: status, Message: "raw download failed"}
	}
	return resp, nil
}

// RawFileURL 拼接 raw 下载地址，例如 https://github.com/<owner>/<repo>/raw/<branch>/<file>。
func (c *Client) RawFileURL(owner, repo, branch, file string) string {
	return fmt.Sprintf("%s/%s/%s/raw/%s/%s",
		c.rawBase, url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(branch), escapePath(file))
}

func (c *Client) doJSON(ctx context.Context, endpoint string, cond Conditional) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("github: 构造请求失败: %w", err)
	}
	req.Header.Set("Accept", acceptJSON)
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}
	if cond.IfModifiedSince != "" {
		req.Header.Set("If-Modified-Since", cond.IfModifiedSince)
	}
	if cond.IfNoneMatch != "" {
		req.Header.Set("If-None-Match", cond.IfNoneMatch)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github: 上游请求失败: %w", err)
	}
	return resp, nil
}

// decodeAPIError 读取错误正文的 message 字段并区分配额耗尽。
// 上游的限流信号依旧通过 message 子串表达，这里叠加状态码做结构化判断。
func (c *Client) decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	var payload struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &payload)

	c.logger.WithFields(logging.UpstreamFields("github_error", "", "", resp.StatusCode)).
		Warn(payload.Message)

	if isRateLimitSignal(resp.StatusCode, payload.Message) {
		return &RateLimitError{Message: payload.Message}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: payload.Message}
}

func isRateLimitSignal(status int, message string) bool {
	if status != http.StatusForbidden && status != http.StatusTooManyRequests {
		return false
	}
	return strings.Contains(strings.ToLower(message), "rate limit")
}

// escapePath 按路径段转义，保留 `/` 作为分隔符，空格等字符转为 %20。
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
