package config

import "github.com/cockroachdb/errors"

// Load 以 defaults 为底解析 key 下的配置并校验。
// 文件中未出现的字段保留默认值，显式写出的 false 与 0 也会生效。
// key 为空时解析整个配置。
func Load[T any](m Manager, key string, defaults *T) (*T, error) {
	cfg := new(T)
	if defaults != nil {
		*cfg = *defaults
	}

	var err error
	if key == "" {
		err = m.Unmarshal(cfg)
	} else if m.IsSet(key) {
		err = m.UnmarshalKey(key, cfg)
	}
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, errors.Wrapf(err, "invalid config %q", key)
	}
	return cfg, nil
}
