package model

import "github.com/shopspring/decimal"

// PricingRow is the sale price of an inventory item for a session year.
type PricingRow struct {
	UnitPrice    decimal.Decimal `json:"unit_price"`
	ItemName     string          `json:"item_name" binding:"required"`
	CategoryName string          `json:"category_name"`
	SessionYear  string          `json:"session_year"`
	ID           int             `json:"id"`
	CategoryID   int             `json:"category_id" binding:"required"`
	IsActive     bool            `json:"is_active"`
}

// EntityID implements Entity.
func (p PricingRow) EntityID() int { return p.ID }

// Active implements Activatable.
func (p PricingRow) Active() bool { return p.IsActive }

// PriceUpdate is one line of a bulk pricing request.
type PriceUpdate struct {
	UnitPrice decimal.Decimal `json:"unit_price"`
	ID        int             `json:"id"`
}

// BulkPriceRequest is the bulk pricing payload.
type BulkPriceRequest struct {
	Items []PriceUpdate `json:"items" binding:"required,min=1"`
}

// Purchase is an item sold to a student.
type Purchase struct {
	PurchasedAt  Date            `json:"purchased_at"`
	Amount       decimal.Decimal `json:"amount"`
	StudentName  string          `json:"student_name"`
	ItemName     string          `json:"item_name"`
	CategoryName string          `json:"category_name"`
	Status       ApprovalStatus  `json:"status"`
	ID           int             `json:"id"`
	StudentID    int             `json:"student_id" binding:"required"`
	ItemID       int             `json:"item_id" binding:"required"`
	CategoryID   int             `json:"category_id"`
	Quantity     int             `json:"quantity" binding:"required,gt=0"`
}

// EntityID implements Entity.
func (p Purchase) EntityID() int { return p.ID }

// ApprovalStatus implements Approvable.
func (p Purchase) ApprovalStatus() ApprovalStatus { return p.Status }

// MovementType classifies a stock movement.
type MovementType string

// Movement types.
const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementAdjustment MovementType = "adjustment"
)

// StockMovement is a procurement or issue of stock awaiting approval.
type StockMovement struct {
	CreatedAt    Date            `json:"created_at"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	ItemName     string          `json:"item_name"`
	MovementType MovementType    `json:"movement_type" binding:"required,oneof=in out adjustment"`
	Supplier     string          `json:"supplier,omitempty"`
	Status       ApprovalStatus  `json:"status"`
	ID           int             `json:"id"`
	ItemID       int             `json:"item_id" binding:"required"`
	Quantity     int             `json:"quantity" binding:"required,gt=0"`
}

// EntityID implements Entity.
func (s StockMovement) EntityID() int { return s.ID }

// ApprovalStatus implements Approvable.
func (s StockMovement) ApprovalStatus() ApprovalStatus { return s.Status }

// Total is quantity times unit cost.
func (s StockMovement) Total() decimal.Decimal {
	return s.UnitCost.Mul(decimal.NewFromInt(int64(s.Quantity)))
}
