package config

const (
	SessionStoreMongo  = "mongo"
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

type StorageConfig interface {
	GetSessionStore() string
	GetMongoURI() string
	GetMongoDatabase() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisPrefix() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

// GetSessionStore selects the session record driver. The memory driver also keeps
// admin users and feedback in memory and is meant for local development only.
func (Storage) GetSessionStore() string {
	return GetEnv("SESSION_STORE", SessionStoreMongo)
}

func (Storage) GetMongoURI() string {
	return GetEnv("MONGO_URI", "")
}

func (Storage) GetMongoDatabase() string {
	return GetEnv("MONGO_DATABASE", "field_portal")
}

func (Storage) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "")
}

func (Storage) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Storage) GetRedisDB() int {
	return GetEnvInt("REDIS_DB", 0)
}

func (Storage) GetRedisPrefix() string {
	return GetEnv("REDIS_PREFIX", "portal:session:")
}
