package domain

import "time"

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Store struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	StoreName string    `json:"store_name"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type StockEntry struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	StoreID      string    `json:"store_id"`
	ProductName  string    `json:"product_name"`
	Quantity     float64   `json:"quantity"`
	Unit         string    `json:"unit"`
	UnitAmount   float64   `json:"unit_amount"`
	BillAmount   float64   `json:"bill_amount"`
	SellingPrice *float64  `json:"selling_price"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type SaleRecord struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	StoreID       string    `json:"store_id"`
	StockID       string    `json:"stock_id"`
	ProductName   string    `json:"product_name"`
	Quantity      float64   `json:"quantity"`
	Unit          string    `json:"unit"`
	UnitCost      float64   `json:"unit_cost"`
	SellingPrice  float64   `json:"selling_price"`
	TotalAmount   float64   `json:"total_amount"`
	TotalCost     float64   `json:"total_cost"`
	Profit        float64   `json:"profit"`
	ProfitPerUnit float64   `json:"profit_per_unit"`
	ProfitMargin  float64   `json:"profit_margin"`
	SalesType     string    `json:"sales_type"`
	CustomerName  string    `json:"customer_name,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	SoldAt        time.Time `json:"sold_at"`
}

type AuditLog struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	StoreID    string    `json:"store_id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	SalesTypeOffline = "offline"
	SalesTypeOnline  = "online"
)

const (
	StockStatusOutOfStock  = "out_of_stock"
	StockStatusCriticalLow = "critical_low"
	StockStatusLowStock    = "low_stock"
	StockStatusAdequate    = "adequate"
)

// AllowedUnits are the units a stock entry may be recorded in.
var AllowedUnits = []string{
	"pieces", "kg", "grams", "liters", "ml", "meters",
	"cm", "boxes", "packs", "tons", "pounds", "ounces",
}

func UnitAllowed(unit string) bool {
	for _, u := range AllowedUnits {
		if u == unit {
			return true
		}
	}
	return false
}

// StockStatus classifies a post-operation quantity for restock advisories.
func StockStatus(quantity float64) string {
	switch {
	case quantity <= 0:
		return StockStatusOutOfStock
	case quantity <= 5:
		return StockStatusCriticalLow
	case quantity <= 10:
		return StockStatusLowStock
	default:
		return StockStatusAdequate
	}
}

type ReceiveStockRequest struct {
	UserID       string   `json:"user_id"`
	StoreID      string   `json:"store_id"`
	ProductName  string   `json:"product_name"`
	Quantity     float64  `json:"quantity"`
	Unit         string   `json:"unit"`
	UnitAmount   float64  `json:"unit_amount"`
	BillAmount   float64  `json:"bill_amount"`
	SellingPrice *float64 `json:"selling_price,omitempty"`
}

type PurchaseInfo struct {
	Quantity   float64 `json:"quantity"`
	Unit       string  `json:"unit"`
	UnitAmount float64 `json:"unit_amount"`
	BillAmount float64 `json:"bill_amount"`
}

type SellingInfo struct {
	SellingPrice *float64 `json:"selling_price"`
	PriceSet     bool     `json:"price_set"`
}

type BusinessAnalysis struct {
	ProfitPerUnit   float64 `json:"profit_per_unit"`
	ProfitMargin    float64 `json:"profit_margin"`
	PotentialProfit float64 `json:"potential_profit"`
}

type StockStatistics struct {
	TotalValue       float64 `json:"total_value"`
	PotentialRevenue float64 `json:"potential_revenue"`
}

type MergeDetails struct {
	PreviousQuantity   float64 `json:"previous_quantity"`
	AddedQuantity      float64 `json:"added_quantity"`
	PreviousBillAmount float64 `json:"previous_bill_amount"`
	AddedBillAmount    float64 `json:"added_bill_amount"`
	PreviousUnitAmount float64 `json:"previous_unit_amount"`
	NewUnitAmount      float64 `json:"new_unit_amount"`
}

type UnitWarning struct {
	Message      string `json:"message"`
	ExistingUnit string `json:"existing_unit"`
	ProvidedUnit string `json:"provided_unit"`
}

type ReceiveStockResponse struct {
	Action           string            `json:"action"`
	Stock            StockEntry        `json:"stock_data"`
	PurchaseInfo     PurchaseInfo      `json:"purchase_info"`
	SellingInfo      SellingInfo       `json:"selling_info"`
	BusinessAnalysis *BusinessAnalysis `json:"business_analysis,omitempty"`
	Statistics       StockStatistics   `json:"statistics"`
	MergeDetails     *MergeDetails     `json:"merge_details,omitempty"`
	Warning          *UnitWarning      `json:"warning,omitempty"`
}

type SaleLine struct {
	ProductName  string   `json:"product_name"`
	Quantity     float64  `json:"quantity"`
	SellingPrice *float64 `json:"selling_price,omitempty"`
}

type CreateSaleRequest struct {
	UserID    string `json:"user_id"`
	StoreID   string `json:"store_id"`
	SalesType string `json:"sales_type"`
	// Shared by every record of the transaction.
	CustomerName string `json:"customer_name,omitempty"`
	Notes        string `json:"notes,omitempty"`
	// Single-line form. Ignored when Products is set.
	ProductName  string     `json:"product_name,omitempty"`
	Quantity     float64    `json:"quantity,omitempty"`
	SellingPrice *float64   `json:"selling_price,omitempty"`
	Products     []SaleLine `json:"products,omitempty"`
}

type SaleLineError struct {
	Index       int          `json:"index"`
	ProductName string       `json:"product_name"`
	Reason      string       `json:"reason"`
	Details     *StockDetail `json:"error_details,omitempty"`
}

type StockDetail struct {
	Requested float64 `json:"requested"`
	Available float64 `json:"available"`
	Shortage  float64 `json:"shortage"`
	Unit      string  `json:"unit"`
}

type TransactionSummary struct {
	TotalItems          int     `json:"total_items"`
	TotalSaleAmount     float64 `json:"total_sale_amount"`
	TotalCost           float64 `json:"total_cost"`
	TotalProfit         float64 `json:"total_profit"`
	OverallProfitMargin float64 `json:"overall_profit_margin"`
}

type StockAlert struct {
	StockID           string  `json:"stock_id"`
	ProductName       string  `json:"product_name"`
	RemainingQuantity float64 `json:"remaining_quantity"`
	Unit              string  `json:"unit"`
	Status            string  `json:"status"`
}

type CreateSaleResponse struct {
	TransactionID string             `json:"transaction_id"`
	SalesType     string             `json:"sales_type"`
	SaleRecords   []SaleRecord       `json:"sale_records"`
	Summary       TransactionSummary `json:"transaction_summary"`
	StockAlerts   []StockAlert       `json:"stock_alerts"`
}

type StockListItem struct {
	StockEntry
	Status string `json:"status"`
}

type EditStockRequest struct {
	UserID       string   `json:"user_id"`
	ProductName  *string  `json:"product_name,omitempty"`
	SellingPrice *float64 `json:"selling_price,omitempty"`
	Unit         *string  `json:"unit,omitempty"`
}

type SalesTypeStat struct {
	SalesType   string  `json:"sales_type"`
	Count       int     `json:"count"`
	TotalAmount float64 `json:"total_amount"`
	TotalProfit float64 `json:"total_profit"`
}

type SalesSummary struct {
	TotalSales  int             `json:"total_sales"`
	TotalAmount float64         `json:"total_amount"`
	TotalProfit float64         `json:"total_profit"`
	ByType      []SalesTypeStat `json:"by_type"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateStoreRequest struct {
	UserID    string `json:"user_id"`
	StoreName string `json:"store_name"`
	Address   string `json:"address,omitempty"`
}
