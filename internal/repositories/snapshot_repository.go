package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"portfolio-analytics-api/internal/models"
)

// SnapshotRepository defines the interface for snapshot data operations
type SnapshotRepository interface {
	// Create creates a new snapshot
	Create(ctx context.Context, snapshot *models.Snapshot) error

	// GetByID retrieves a snapshot by its ID
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Snapshot, error)

	// GetByAccountID retrieves snapshots for an account with pagination
	GetByAccountID(ctx context.Context, accountID string, limit, offset int) ([]models.Snapshot, error)

	// GetByDateRange retrieves snapshots within a date range
	GetByDateRange(ctx context.Context, accountID string, startDate, endDate time.Time) ([]models.Snapshot, error)

	// GetLatest retrieves the latest snapshot for an account
	GetLatest(ctx context.Context, accountID string) (*models.Snapshot, error)

	// DeleteOldSnapshots deletes snapshots older than specified duration
	DeleteOldSnapshots(ctx context.Context, olderThan time.Duration) (int64, error)
}
