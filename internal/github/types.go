package github

import "time"

// RepoOwner 仅保留 login 字段，聚合层据此展示仓库归属。
type RepoOwner struct {
	Login string `json:"login"`
}

// Repo 是上游仓库列表接口返回的单条描述，字段与 GitHub REST v3 对齐。
type Repo struct {
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Description string    `json:"description"`
	HTMLURL     string    `json:"html_url"`
	Language    string    `json:"language"`
	UpdatedAt   time.Time `json:"updated_at"`
	PushedAt    time.Time `json:"pushed_at"`
	Fork        bool      `json:"fork"`
	Owner       RepoOwner `json:"owner"`
}

// FileMeta 描述 contents 接口返回的单个文件元数据。
// Commit.Committer.Date 与响应头 ETag 共同构成新鲜度判断依据。
type FileMeta struct {
	Name        string `json:"name"`
	SHA         string `json:"sha"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"download_url"`
	Commit      struct {
		Committer struct {
			Date string `json:"date"`
		} `json:"committer"`
	} `json:"commit"`

	// ETag 来自响应头而非 JSON 正文。
	ETag string `json:"-"`
}

// LastModified 返回提交时间字符串，可能为空。
func (m *FileMeta) LastModified() string {
	return m.Commit.Committer.Date
}

// Conditional 透传下游浏览器发来的条件请求头。
type Conditional struct {
	IfModifiedSince string
	IfNoneMatch     string
}
