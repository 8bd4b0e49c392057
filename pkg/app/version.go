package app

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// 构建信息，编译时注入：
//
//	go build -ldflags "-X github.com/lk2023060901/netcore/pkg/app.Version=v1.0.0 \
//	  -X github.com/lk2023060901/netcore/pkg/app.GitCommit=$(git rev-parse --short HEAD)"
var (
	Version   = "unknown"
	GitCommit = "unknown"
	BuildDate = "unknown"
	// AppName 为空时取可执行文件名
	AppName = ""
)

func init() {
	if AppName != "" {
		return
	}
	AppName = "netcore"
	if execPath, err := os.Executable(); err == nil {
		AppName = filepath.Base(execPath)
	}
}

// Info 构建信息
type Info struct {
	AppName   string `json:"app_name"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func GetInfo() Info {
	return Info{
		AppName:   AppName,
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String 启动时打印的单行版本信息
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit: %s, build: %s, go: %s, plat: %s)",
		i.AppName, i.Version, i.GitCommit, i.BuildDate, i.GoVersion, i.Platform)
}

// Fields 以 key/value 形式返回，用于结构化日志
func (i Info) Fields() []interface{} {
	return []interface{}{
		"name", i.AppName,
		"version", i.Version,
		"commit", i.GitCommit,
		"build_date", i.BuildDate,
		"go_version", i.GoVersion,
		"platform", i.Platform,
	}
}
