package app

import (
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/netcore/pkg/logger"
)

// namedLoggers 按模块名区分的日志集合，如 "tcp"、"echo"
type namedLoggers struct {
	m sync.Map // name -> logger.Logger
}

func (n *namedLoggers) set(name string, l logger.Logger) {
	n.m.Store(name, l)
}

func (n *namedLoggers) get(name string) (logger.Logger, bool) {
	v, ok := n.m.Load(name)
	if !ok {
		return nil, false
	}
	return v.(logger.Logger), true
}

func (n *namedLoggers) sync() {
	n.m.Range(func(_, v any) bool {
		_ = v.(logger.Logger).Sync()
		return true
	})
}

// build 全部创建成功后才写入集合
func (n *namedLoggers) build(configs map[string]*logger.Config) error {
	built := make(map[string]logger.Logger, len(configs))
	for name, cfg := range configs {
		l, err := logger.New(cfg)
		if err != nil {
			for _, b := range built {
				_ = b.Sync()
			}
			return errors.Wrapf(err, "logger %q", name)
		}
		built[name] = l.Named(name)
	}
	for name, l := range built {
		n.set(name, l)
	}
	return nil
}
