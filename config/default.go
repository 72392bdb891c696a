package config

import (
	_ "embed"
)

// DefaultConfigYAML 嵌入的默认配置，外部配置文件可逐项覆盖
//
//go:embed default_config.yaml
var DefaultConfigYAML []byte
