package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// cliOutput 收集 run 写往 stdOut/stdErr 的内容。
type cliOutput struct {
	out bytes.Buffer
	err bytes.Buffer
}

// captureOutput 在测试期间把 CLI 输出重定向到内存，结束后恢复。
func captureOutput(t *testing.T) *cliOutput {
	t.Helper()
	captured := &cliOutput{}
	prevOut, prevErr := stdOut, stdErr
	stdOut, stdErr = &captured.out, &captured.err
	t.Cleanup(func() {
		stdOut, stdErr = prevOut, prevErr
	})
	return captured
}

// configFixture 返回 internal/config/testdata 下的样例配置；go test 以包目录为工作目录。
func configFixture(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join("internal", "config", "testdata", name)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("样例配置 %s 不可用: %v", name, err)
	}
	return path
}
