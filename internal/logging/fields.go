package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// UpstreamFields 提供上游调用的公共字段，供 GitHub 客户端日志复用。
func UpstreamFields(action, owner, repo string, status int) logrus.Fields {
	return logrus.Fields{
		"action": action,
		"owner":  owner,
		"repo":   repo,
		"status": status,
	}
}

// CacheFields 提供缓存命中状态字段，供简历缓存日志复用。
func CacheFields(action string, cacheHit, stale bool, ageSeconds int64) logrus.Fields {
	return logrus.Fields{
		"action":      action,
		"cache_hit":   cacheHit,
		"stale":       stale,
		"age_seconds": ageSeconds,
	}
}
