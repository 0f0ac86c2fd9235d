package resume

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/bbravo/portfolio-api/internal/config"
	"github.com/bbravo/portfolio-api/internal/github"
	"github.com/bbravo/portfolio-api/internal/logging"
)

// ErrUpstreamUnavailable 表示上游失败且本地没有任何缓存记录可以兜底。
var ErrUpstreamUnavailable = errors.New("resume: upstream unavailable and no cached record")

// MetadataClient 描述简历缓存需要的上游能力，便于在测试中注入假客户端。
type MetadataClient interface {
	FileMetadata(ctx context.Context, owner, repo, path string, cond github.Conditional) (*github.FileMeta, error)
	FetchRaw(ctx context.Context, rawURL string) (*http.Response, error)
	RawFileURL(owner, repo, branch, file string) string
}

// Metadata 是对外返回的简历文件描述，字段名沿用前端既有契约。
type Metadata struct {
	PDFURL       string `json:"pdfUrl"`
	LastModified string `json:"lastModified,omitempty"`
	ETag         string `json:"etag,omitempty"`
	SHA          string `json:"sha"`
	Timestamp    string `json:"timestamp"`
	Size         int64  `json:"size"`
	DownloadURL  string `json:"downloadUrl"`
}

// Result 是一次查询的完整结论，由路由层翻译为 HTTP 状态与缓存头。
type Result struct {
	Data        *Metadata
	Cached      bool
	CacheAge    int64
	Updated     bool
	Stale       bool
	StaleReason string
	NotModified bool
}

// record 是进程内唯一的缓存记录。只允许整体替换，禁止字段级修改，
// 并发读者因此永远不会看到半新半旧的状态。
type record struct {
	data     *Metadata
	etag     string
	storedAt time.Time
}

// Cache 维护单条简历元数据的新鲜度：TTL 快路径、ETag 复验、上游故障时
// 回退旧数据。进程启动时为空，由第一次成功回源填充。
type Cache struct {
	client MetadataClient
	logger *logrus.Logger

	owner    string
	repoName string
	branch   string
	file     string
	ttl      time.Duration

	now func() time.Time

	mu  sync.Mutex
	rec *record

	// 并发 miss 合并为一次回源；键包含条件请求头，不同条件互不合并。
	flight singleflight.Group
}

// NewCache 构造空缓存；所有定位参数取自配置，运行期不再变化。
func NewCache(client MetadataClient, logger *logrus.Logger, cfg *config.Config) *Cache {
	return &Cache{
		client:   client,
		logger:   logger,
		owner:    cfg.Global.GitHubUsername,
		repoName: cfg.Global.ResumeRepo,
		branch:   cfg.Global.ResumeBranch,
		file:     cfg.Global.ResumeFile,
		ttl:      cfg.Global.ResumeCacheTTL.DurationValue(),
		now:      time.Now,
	}
}

// Metadata 执行查询流程：
//  1. TTL 内直接返回缓存（不发任何上游请求）；
//  2. 过期则回源 contents 接口，客户端条件头原样透传，304 直接短路；
//  3. ETag 未变只前移时间戳；变了先确认正文可达再整体替换记录；
//  4. 回源失败但存在旧记录时降级返回旧数据；完全无记录才报错。
func (c *Cache) Metadata(ctx context.Context, cond github.Conditional) (Result, error) {
	if rec := c.current(); rec != nil {
		if age := c.now().Sub(rec.storedAt); age < c.ttl {
			return Result{Data: rec.data, Cached: true, CacheAge: int64(age.Seconds())}, nil
		}
	}

	key := cond.IfNoneMatch + "|" + cond.IfModifiedSince
	value, err, _ := c.flight.Do(key, func() (interface{}, error) {
		return c.revalidate(ctx, cond)
	})
	if err != nil {
		return Result{}, err
	}
	return value.(Result), nil
}

func (c *Cache) revalidate(ctx context.Context, cond github.Conditional) (Result, error) {
	meta, err := c.client.FileMetadata(ctx, c.owner, c.repoName, c.file, cond)
	if errors.Is(err, github.ErrNotModified) {
		// 上游确认未变更，缓存保持原样。
		return Result{NotModified: true}, nil
	}
	if err != nil {
		return c.fallback(err)
	}

	if rec := c.current(); rec != nil && rec.etag != "" && rec.etag == meta.ETag {
		// 内容未变，仅让缓存时间窗前移；数据沿用原引用，避免重新下载正文。
		c.store(&record{data: rec.data, etag: rec.etag, storedAt: c.now()})
		c.logger.WithFields(logging.CacheFields("resume_revalidate", true, false, 0)).
			Debug("ETag 未变化，缓存时间戳前移")
		return Result{Data: rec.data, Cached: true, CacheAge: 0}, nil
	}

	rawURL := c.client.RawFileURL(c.owner, c.repoName, c.branch, c.file)
	resp, err := c.client.FetchRaw(ctx, rawURL)
	if err != nil {
		return c.fallback(err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	data := &Metadata{
		PDFURL:       rawURL,
		LastModified: meta.LastModified(),
		ETag:         meta.ETag,
		SHA:          meta.SHA,
		Timestamp:    c.now().UTC().Format(time.RFC3339),
		Size:         meta.Size,
		DownloadURL:  meta.DownloadURL,
	}
	c.store(&record{data: data, etag: meta.ETag, storedAt: c.now()})
	c.logger.WithFields(logging.CacheFields("resume_refresh", false, false, 0)).
		Info("简历元数据已更新")
	return Result{Data: data, Updated: true}, nil
}

// fallback 在回源失败时返回旧记录；过期多久都照常返回，陈旧即是设计内的
// 降级路径，下一次 TTL 过期的请求会再次尝试回源。
func (c *Cache) fallback(cause error) (Result, error) {
	rec := c.current()
	if rec == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, cause)
	}

	age := int64(c.now().Sub(rec.storedAt).Seconds())
	c.logger.WithError(cause).
		WithFields(logging.CacheFields("resume_fallback", true, true, age)).
		Warn("上游不可用，返回陈旧缓存")
	return Result{
		Data:        rec.data,
		Cached:      true,
		CacheAge:    age,
		Stale:       true,
		StaleReason: "Using cached data due to fetch error",
	}, nil
}

// Invalidate 让当前记录立即过期但保留数据与 ETag，下一次请求会触发一次
// 轻量复验而非全量下载。Webhook 收到简历变更时调用。
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rec == nil {
		return
	}
	c.rec = &record{data: c.rec.data, etag: c.rec.etag}
}

// State 输出缓存当前状态，供诊断接口展示。
func (c *Cache) State() (primed bool, ageSeconds int64) {
	rec := c.current()
	if rec == nil {
		return false, 0
	}
	return true, int64(c.now().Sub(rec.storedAt).Seconds())
}

func (c *Cache) current() *record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec
}

func (c *Cache) store(rec *record) {
	c.mu.Lock()
	c.rec = rec
	c.mu.Unlock()
}
