package history

import (
	"fmt"
	"log/slog"
)

func NewStore(storeType, connectionString string) (Store, error) {
	switch storeType {
	case "sqlite":
		store, err := NewSQLiteStore(connectionString)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize history store: %w", err)
		}
		slog.Info("history store initialized", "type", storeType)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported history store driver: %s", storeType)
	}
}
