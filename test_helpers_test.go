package main

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
)

var (
	rootOnce sync.Once
	rootDir  string
)

// projectRoot 从当前源文件向上定位 go.mod 所在目录，让测试不依赖工作目录。
func projectRoot(t *testing.T) string {
	t.Helper()

	rootOnce.Do(func() {
		_, file, _, ok := runtime.Caller(0)
		if !ok {
			return
		}
		for dir := filepath.Dir(file); ; dir = filepath.Dir(dir) {
			if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
				rootDir = dir
				return
			}
			if filepath.Dir(dir) == dir {
				return
			}
		}
	})

	if rootDir == "" {
		t.Fatal("无法定位 go.mod 所在目录")
	}
	return rootDir
}

// configFixture 返回 config 包 testdata 下指定夹具的绝对路径。
func configFixture(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(projectRoot(t), "internal", "config", "testdata", name)
}
