package config

type Config interface {
	EnvConfig
	AuthorityConfig
	StoreConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Authority
	Store
}

func New() Config {
	return mainConfig{}
}
