package store

import (
	"time"

	"github.com/yanun0323/decimal"
)

// DepositProcess is the authoritative view of one deposit workflow, owned by
// the platform's storage layer. This core only reads it so reconnecting
// clients can reconcile after missed updates.
type DepositProcess struct {
	ID            uint64          `gorm:"primaryKey" json:"id"`
	Reference     string          `gorm:"size:64;uniqueIndex" json:"reference"`
	UserID        string          `gorm:"size:64;index" json:"userId"`
	CommodityName string          `gorm:"size:128" json:"commodityName"`
	Stage         string          `gorm:"size:64" json:"stage"`
	Quantity      decimal.Decimal `gorm:"type:numeric" json:"quantity"`
	Valuation     decimal.Decimal `gorm:"type:numeric" json:"valuation"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// TableName fixes the table name regardless of gorm pluralization.
func (DepositProcess) TableName() string {
	return "deposit_processes"
}
