package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Snapshot is a point-in-time record of an account's computed analytics,
// written by the daily scheduler and served from the history endpoint.
type Snapshot struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	AccountID string             `bson:"account_id" json:"account_id"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`

	TotalValue    decimal.Decimal `bson:"total_value" json:"total_value"`
	InvestedValue decimal.Decimal `bson:"invested_value" json:"invested_value"`
	UnrealizedPnL decimal.Decimal `bson:"unrealized_pnl" json:"unrealized_pnl"`
	PositionCount int             `bson:"position_count" json:"position_count"`

	SectorAllocation map[string]decimal.Decimal `bson:"sector_allocation,omitempty" json:"sector_allocation,omitempty"`
	HerfindahlIndex  decimal.Decimal            `bson:"herfindahl_index" json:"herfindahl_index"`
	OverallScore     decimal.Decimal            `bson:"overall_score" json:"overall_score"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
