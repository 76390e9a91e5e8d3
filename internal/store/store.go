package store

import (
	"context"
	"errors"

	"tokoku/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrAccessDenied      = errors.New("access denied")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConcurrency       = errors.New("concurrent update conflict")
	ErrDuplicate         = errors.New("already exists")
)

// SaleDecrement is one stock movement inside an atomic sale: the record to
// insert and the quantity to remove from its stock row.
type SaleDecrement struct {
	StockID  string
	Quantity float64
	Record   domain.SaleRecord
}

type Repository interface {
	CreateUser(ctx context.Context, user domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	CreateStore(ctx context.Context, st domain.Store) (*domain.Store, error)
	GetStoreByID(ctx context.Context, id string) (*domain.Store, error)
	ListStores(ctx context.Context, userID string) ([]domain.Store, error)

	GetStockByID(ctx context.Context, id string) (*domain.StockEntry, error)
	// GetStockByProduct resolves the ledger identity for receipts: the same
	// product in a different unit is a separate row.
	GetStockByProduct(ctx context.Context, userID, storeID, productName, unit string) (*domain.StockEntry, error)
	// GetStockByName resolves a product for sales regardless of unit,
	// preferring the oldest row when several units exist.
	GetStockByName(ctx context.Context, userID, storeID, productName string) (*domain.StockEntry, error)
	ListStock(ctx context.Context, userID, storeID string) ([]domain.StockEntry, error)
	CreateStock(ctx context.Context, entry domain.StockEntry) (*domain.StockEntry, error)
	// MergeStock folds a receipt into an existing row under a row lock and
	// returns the merged entry. The incoming selling price replaces the
	// stored one, including replacement with nil.
	MergeStock(ctx context.Context, stockID string, addQty, addBill float64, sellingPrice *float64) (*domain.StockEntry, error)
	UpdateStock(ctx context.Context, entry domain.StockEntry) (*domain.StockEntry, error)
	DeleteStock(ctx context.Context, id string) error

	// CreateSale applies every decrement and inserts every record in one
	// atomic transaction, locking stock rows in ascending stock-id order
	// and re-validating quantities under the locks. On shortage it returns
	// ErrInsufficientStock and writes nothing.
	CreateSale(ctx context.Context, decrements []SaleDecrement) ([]domain.SaleRecord, error)
	ListSales(ctx context.Context, userID, storeID string, limit int) ([]domain.SaleRecord, error)
	GetSalesSummary(ctx context.Context, userID, storeID string) (*domain.SalesSummary, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, storeID string, limit int) ([]domain.AuditLog, error)
}
