package config

import "strconv"

type StoreConfig interface {
	GetStoreBackend() string
	GetSessionFile() string
	GetSessionPassphrase() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

type Store struct{}

var _ StoreConfig = Store{}

// GetStoreBackend selects the durable store implementation: "file" or "redis".
func (Store) GetStoreBackend() string {
	return GetEnv("SESSION_STORE", "file")
}

// GetSessionFile returns the session file path. Empty means the default
// path under the user's home directory.
func (Store) GetSessionFile() string {
	return GetEnv("SESSION_FILE", "")
}

// GetSessionPassphrase returns the passphrase for sealing the session file
// at rest. Empty means the file is written unsealed.
func (Store) GetSessionPassphrase() string {
	return GetEnv("SESSION_PASSPHRASE", "")
}

func (Store) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Store) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Store) GetRedisDB() int {
	db, err := strconv.Atoi(GetEnv("REDIS_DB", "0"))
	if err != nil {
		return 0
	}
	return db
}
