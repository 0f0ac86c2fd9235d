package config

import (
	"errors"
	"net/url"
	"strings"
)

var supportedSections = map[string]struct{}{
	"projects": {},
	"software": {},
}

const supportedSectionList = "projects|software"

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
// 缺少 GitHubToken 属于硬性配置错误：服务宁可拒绝启动，也不在运行期降级。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if strings.TrimSpace(g.GitHubToken) == "" {
		return newFieldError("Global.GitHubToken", "不能为空，可通过 GITHUB_PERSONAL_ACCESS_TOKEN 注入")
	}
	if strings.TrimSpace(g.GitHubUsername) == "" {
		return newFieldError("Global.GitHubUsername", "不能为空")
	}
	if strings.TrimSpace(g.ResumeRepo) == "" {
		return newFieldError("Global.ResumeRepo", "不能为空")
	}
	if strings.TrimSpace(g.ResumeFile) == "" {
		return newFieldError("Global.ResumeFile", "不能为空")
	}
	if g.ResumeCacheTTL.DurationValue() <= 0 {
		return newFieldError("Global.ResumeCacheTTL", "必须大于 0")
	}
	if g.StaleMaxAge.DurationValue() <= 0 {
		return newFieldError("Global.StaleMaxAge", "必须大于 0")
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("Global.UpstreamTimeout", "必须大于 0")
	}

	if len(c.Repos) == 0 {
		return errors.New("至少需要配置一个 Repo")
	}

	seenNames := map[string]struct{}{}
	for i := range c.Repos {
		repo := &c.Repos[i]
		if repo.Name == "" {
			return newFieldError("Repo[].Name", "不能为空")
		}
		if strings.ContainsAny(repo.Name, " /") {
			return newFieldError(repoField(repo.Name, "Name"), "不允许包含空格或路径分隔符")
		}
		if _, exists := seenNames[repo.Name]; exists {
			return newFieldError(repoField(repo.Name, "Name"), "重复")
		}
		seenNames[repo.Name] = struct{}{}

		if repo.Order <= 0 {
			return newFieldError(repoField(repo.Name, "Order"), "必须大于 0")
		}

		section := strings.ToLower(strings.TrimSpace(repo.Section))
		if _, ok := supportedSections[section]; !ok {
			return newFieldError(repoField(repo.Name, "Section"), "仅支持 "+supportedSectionList)
		}
		repo.Section = section

		for _, link := range repo.CustomLinks {
			if link.Label == "" {
				return newFieldError(repoField(repo.Name, "CustomLink.Label"), "不能为空")
			}
			if err := validateLinkURL(link.URL); err != nil {
				return newFieldError(repoField(repo.Name, "CustomLink.URL"), err.Error())
			}
		}
	}

	return nil
}

func validateLinkURL(raw string) error {
	if raw == "" {
		return errors.New("缺少链接地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("仅支持 http/https")
	}
	if parsed.Host == "" {
		return errors.New("缺少 Host")
	}
	return nil
}
