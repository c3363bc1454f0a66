package storage

import (
	"fmt"

	"gatekeeper/internal/models"
)

// Factory provides a centralized way to create attempt stores based on
// configuration, so backends can be swapped without code changes.
type Factory struct{}

// NewFactory creates a new storage factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Create instantiates an attempt store based on the provided configuration.
// Supported backends:
//   - memory: in-memory log (for testing/development)
//   - sqlite: local SQLite database (single-instance deployments)
//   - postgres: PostgreSQL database (shared log across instances)
//   - redis: redis sorted sets (shared log, lowest latency)
func (f *Factory) Create(config models.StorageConfig) (AttemptStore, error) {
	storageConfig := Config{
		Type:             config.Type,
		ConnectionString: config.Database.DSN,
		RedisAddr:        config.Redis.Addr,
		RedisPassword:    config.Redis.Password,
		RedisDB:          config.Redis.DB,
		RedisPoolSize:    config.Redis.PoolSize,
	}

	switch config.Type {
	case models.StorageTypeMemory:
		return NewMemoryStore(storageConfig)
	case models.StorageTypeSQLite:
		return NewSQLiteStore(storageConfig)
	case models.StorageTypePostgres:
		return NewPostgresStore(storageConfig)
	case models.StorageTypeRedis:
		return NewRedisStore(storageConfig)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Type)
	}
}

// GetSupportedBackends returns a list of all supported store types.
func (f *Factory) GetSupportedBackends() []string {
	return []string{models.StorageTypeMemory, models.StorageTypeSQLite, models.StorageTypePostgres, models.StorageTypeRedis}
}

// ValidateConfig validates that a storage configuration is valid for its type.
func (f *Factory) ValidateConfig(config models.StorageConfig) error {
	switch config.Type {
	case models.StorageTypeMemory:
		// Memory storage requires no additional configuration
	case models.StorageTypeSQLite, models.StorageTypePostgres:
		if config.Database.DSN == "" {
			return fmt.Errorf("database DSN is required for %s storage", config.Type)
		}
	case models.StorageTypeRedis:
		if config.Redis.Addr == "" {
			return fmt.Errorf("redis address is required for redis storage")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", config.Type)
	}
	return nil
}
