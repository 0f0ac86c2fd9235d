package repos

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/bbravo/portfolio-api/internal/config"
	"github.com/bbravo/portfolio-api/internal/github"
	"github.com/bbravo/portfolio-api/internal/logging"
)

// ListingClient 描述聚合层需要的上游能力，便于在测试中注入假客户端。
type ListingClient interface {
	ListRepos(ctx context.Context, user string) ([]github.Repo, error)
	Languages(ctx context.Context, owner, repo string) (map[string]int64, error)
}

// EnrichedRepo 将上游仓库描述与语言分布、允许列表中的展示配置合并。
// Languages 在子请求失败时为非 nil 空映射，条目本身不会被丢弃。
type EnrichedRepo struct {
	github.Repo
	Languages map[string]int64  `json:"languages"`
	Display   config.RepoConfig `json:"display"`
}

// Aggregator 负责“列表 → 过滤 → 并发补全”三步流水线。
// 除出站 HTTP 请求外不持有请求间共享状态，实例可安全并发使用。
type Aggregator struct {
	client ListingClient
	logger *logrus.Logger
	user   string
	allow  map[string]config.RepoConfig
}

// New 构造 Aggregator，允许列表在构造时固化，运行期只读。
func New(client ListingClient, logger *logrus.Logger, cfg *config.Config) *Aggregator {
	return &Aggregator{
		client: client,
		logger: logger,
		user:   cfg.Global.GitHubUsername,
		allow:  cfg.AllowList(),
	}
}

// ListEnriched 拉取完整仓库列表后按允许列表过滤，再对每个命中项并发拉取
// 语言分布。子请求失败只降级该条目的 Languages，整体调用只在列表请求
// 失败时报错；限流错误原样向上传递，供路由层映射为 429。
func (a *Aggregator) ListEnriched(ctx context.Context) ([]EnrichedRepo, error) {
	listing, err := a.client.ListRepos(ctx, a.user)
	if err != nil {
		return nil, err
	}

	// 集合过滤，保持上游顺序；排序交给展示层。
	filtered := make([]EnrichedRepo, 0, len(a.allow))
	for _, repo := range listing {
		display, ok := a.allow[repo.Name]
		if !ok {
			continue
		}
		filtered = append(filtered, EnrichedRepo{Repo: repo, Display: display})
	}

	// 每个命中项一个子请求；允许列表是人工维护的小集合，无需并发上限。
	var wg sync.WaitGroup
	for i := range filtered {
		wg.Add(1)
		go func(item *EnrichedRepo) {
			defer wg.Done()
			item.Languages = a.fetchLanguages(ctx, item)
		}(&filtered[i])
	}
	wg.Wait()

	return filtered, nil
}

func (a *Aggregator) fetchLanguages(ctx context.Context, item *EnrichedRepo) map[string]int64 {
	owner := item.Display.Owner
	if owner == "" {
		owner = a.user
	}

	languages, err := a.client.Languages(ctx, owner, item.Name)
	if err != nil {
		fields := logging.UpstreamFields("language_fetch", owner, item.Name, 0)
		a.logger.WithError(err).WithFields(fields).Warn("语言分布拉取失败，降级为空映射")
		return map[string]int64{}
	}
	if languages == nil {
		languages = map[string]int64{}
	}
	return languages
}
