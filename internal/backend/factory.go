package backend

import (
	"context"
	"fmt"

	"chitieu/internal/kv/breaker"
	"chitieu/internal/kv/dynamo"
	"chitieu/internal/kv/file"
	"chitieu/internal/kv/memory"
	"chitieu/internal/kv/postgres"
	"chitieu/internal/kv/sqlite"
	"chitieu/internal/log"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend. Remote backends come back
// wrapped in a circuit breaker.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *BackendResult
		err error
	)
	switch config.Type {
	case MemoryBackend:
		res = &BackendResult{Store: memory.New()}
		f.logger.Warn("Using in-memory backend, records will not survive a restart")
	case FileBackend:
		res, err = f.createFileBackend(config)
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(config)
	case PostgresBackend:
		res, err = f.createPostgresBackend(ctx, config)
	case DynamoDBBackend:
		res, err = f.createDynamoBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.Type.Remote() {
		guarded := breaker.Wrap(res.Store, breaker.DefaultConfig(config.Type.String()), f.logger)
		res.Store = guarded
	}
	return res, nil
}

func (f *DefaultFactory) createFileBackend(config Config) (*BackendResult, error) {
	store, err := file.New(config.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file backend: %w", err)
	}
	f.logger.Info("Initialized file backend", "data_directory", config.DataDirectory)
	return &BackendResult{Store: store}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	store, err := sqlite.Open(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite backend: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{Store: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := postgres.Open(ctx, config.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres backend: %w", err)
	}
	f.logger.Info("Initialized postgres backend")
	return &BackendResult{Store: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createDynamoBackend(ctx context.Context, config Config) (*BackendResult, error) {
	client, err := dynamo.NewClient(ctx, dynamo.Options{
		Region:   config.DynamoDBRegion,
		Endpoint: config.DynamoDBEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize DynamoDB client: %w", err)
	}
	f.logger.Info("Initialized DynamoDB backend",
		"table", config.DynamoDBTable, "region", config.DynamoDBRegion)
	return &BackendResult{Store: dynamo.New(client, config.DynamoDBTable)}, nil
}

