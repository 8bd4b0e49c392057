package app

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/netcore/pkg/config"
	"github.com/spf13/pflag"
)

// EnvPrefix 环境变量前缀，NETCORE_SERVER_PORT 对应 server.port
const EnvPrefix = "NETCORE"

const (
	flagConfig  = "config"
	flagLogPath = "log.output_path"
)

var (
	configPath string
	logPath    string
)

// RegisterFlags 注册 --config/-c 与 --log.output_path，重复调用无副作用
func RegisterFlags(fs *pflag.FlagSet) error {
	execDir, err := GetExecDir()
	if err != nil {
		return errors.Wrap(err, "failed to get executable directory")
	}

	if fs.Lookup(flagConfig) == nil {
		fs.StringP(flagConfig, "c", filepath.Join(execDir, "config.yaml"), "path to config file")
	}
	if fs.Lookup(flagLogPath) == nil {
		fs.String(flagLogPath, filepath.Join(execDir, "logs", "app.log"), "output path for logs")
	}
	return nil
}

// LoadConfig 使用全局命令行参数加载配置到 target。
// 优先级：命令行显式参数 > 环境变量 > 配置文件 > 默认值。
func LoadConfig(target any, opts ...config.Option) (config.Manager, error) {
	if err := RegisterFlags(pflag.CommandLine); err != nil {
		return nil, err
	}
	if !pflag.Parsed() {
		pflag.Parse()
	}
	return LoadConfigFrom(pflag.CommandLine, target, opts...)
}

// LoadConfigFrom 与 LoadConfig 相同，使用已解析的 fs。
// 返回的 Manager 可以用于 Watch 或按 key 再次解析。
func LoadConfigFrom(fs *pflag.FlagSet, target any, opts ...config.Option) (config.Manager, error) {
	if err := RegisterFlags(fs); err != nil {
		return nil, err
	}

	// 配置文件路径：--config 显式指定 > NETCORE_CONFIG > 默认路径
	path, _ := fs.GetString(flagConfig)
	if !fs.Changed(flagConfig) {
		if env := os.Getenv(EnvPrefix + "_CONFIG"); env != "" {
			path = env
		}
	}
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, "config file not found at %s", path)
	}

	mgr := config.NewManager(append([]config.Option{
		config.WithDefaults(map[string]any{"log.enable_file": true}),
	}, opts...)...)
	mgr.BindEnv(EnvPrefix)

	// 只绑定日志路径，避免其余参数的默认值进入配置
	if err := mgr.BindFlags(subset(fs, flagLogPath)); err != nil {
		return nil, err
	}

	if err := mgr.LoadFile(path); err != nil {
		return nil, err
	}
	if err := mgr.Unmarshal(target); err != nil {
		return nil, err
	}

	configPath = path
	logPath = mgr.GetString(flagLogPath)
	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create log directory")
		}
	}

	return mgr, nil
}

func subset(fs *pflag.FlagSet, names ...string) *pflag.FlagSet {
	out := pflag.NewFlagSet(fs.Name(), pflag.ContinueOnError)
	for _, name := range names {
		if f := fs.Lookup(name); f != nil {
			out.AddFlag(f)
		}
	}
	return out
}

// GetExecDir 获取可执行文件所在目录（解析符号链接）
func GetExecDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	realPath, err := filepath.EvalSymlinks(execPath)
	if err != nil {
		return filepath.Dir(execPath), nil
	}
	return filepath.Dir(realPath), nil
}

// GetConfigPath 返回最近一次加载使用的配置文件路径
func GetConfigPath() string {
	return configPath
}

func GetLogPath() string {
	return logPath
}
