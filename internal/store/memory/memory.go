// Package memory implements store.Repository behind a single mutex. It backs
// the test suite and dev mode when no DATABASE_URL is configured.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tokoku/backend/internal/domain"
	"tokoku/backend/internal/pricing"
	"tokoku/backend/internal/store"
	"tokoku/backend/internal/xid"
)

type Store struct {
	mu           sync.RWMutex
	usersByID    map[string]domain.User
	usersByEmail map[string]string
	storesByID   map[string]domain.Store
	stockByID    map[string]domain.StockEntry
	sales        []domain.SaleRecord
	auditLogs    []domain.AuditLog
}

func New() *Store {
	return &Store{
		usersByID:    map[string]domain.User{},
		usersByEmail: map[string]string{},
		storesByID:   map[string]domain.Store{},
		stockByID:    map[string]domain.StockEntry{},
	}
}

// NewSeeded returns a store preloaded with a demo owner, one store and a few
// stock entries. Used by tests and dev mode.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	hash, _ := bcrypt.GenerateFromPassword([]byte("owner123"), bcrypt.DefaultCost)
	owner := domain.User{
		ID:           "user-1",
		Name:         "Demo Owner",
		Email:        "owner@example.com",
		PasswordHash: string(hash),
		CreatedAt:    now,
	}
	s.usersByID[owner.ID] = owner
	s.usersByEmail[owner.Email] = owner.ID

	shop := domain.Store{
		ID:        "store-1",
		UserID:    owner.ID,
		StoreName: "Toko Utama",
		Address:   "Jl. Pasar Baru 12",
		CreatedAt: now,
	}
	s.storesByID[shop.ID] = shop

	price := func(v float64) *float64 { return &v }
	entries := []domain.StockEntry{
		{ID: "stock-1", UserID: owner.ID, StoreID: shop.ID, ProductName: "Basmati Rice", Quantity: 50, Unit: "kg", UnitAmount: 50, BillAmount: 2500, SellingPrice: price(65), CreatedAt: now, UpdatedAt: now},
		{ID: "stock-2", UserID: owner.ID, StoreID: shop.ID, ProductName: "Sunflower Oil", Quantity: 30, Unit: "liters", UnitAmount: 120, BillAmount: 3600, SellingPrice: price(150), CreatedAt: now, UpdatedAt: now},
		{ID: "stock-3", UserID: owner.ID, StoreID: shop.ID, ProductName: "Wheat Flour", Quantity: 8, Unit: "kg", UnitAmount: 35, BillAmount: 280, SellingPrice: nil, CreatedAt: now, UpdatedAt: now},
	}
	for _, entry := range entries {
		s.stockByID[entry.ID] = entry
	}
	return s
}

func (s *Store) CreateUser(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(user.Email))
	if _, exists := s.usersByEmail[email]; exists {
		return nil, store.ErrDuplicate
	}
	if user.ID == "" {
		user.ID = xid.New("user")
	}
	user.Email = email
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByID[user.ID] = user
	s.usersByEmail[email] = user.ID
	cloned := user
	return &cloned, nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cloned := user
	return &cloned, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, store.ErrNotFound
	}
	user := s.usersByID[id]
	cloned := user
	return &cloned, nil
}

func (s *Store) CreateStore(_ context.Context, st domain.Store) (*domain.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usersByID[st.UserID]; !ok {
		return nil, store.ErrNotFound
	}
	if st.ID == "" {
		st.ID = xid.New("store")
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	s.storesByID[st.ID] = st
	cloned := st
	return &cloned, nil
}

func (s *Store) GetStoreByID(_ context.Context, id string) (*domain.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.storesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cloned := st
	return &cloned, nil
}

func (s *Store) ListStores(_ context.Context, userID string) ([]domain.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stores := make([]domain.Store, 0)
	for _, st := range s.storesByID {
		if st.UserID == userID {
			stores = append(stores, st)
		}
	}
	slices.SortFunc(stores, func(a, b domain.Store) int {
		return cmpString(a.ID, b.ID)
	})
	return stores, nil
}

func (s *Store) GetStockByID(_ context.Context, id string) (*domain.StockEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.stockByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneStock(entry), nil
}

func (s *Store) GetStockByProduct(_ context.Context, userID, storeID, productName, unit string) (*domain.StockEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.findByProduct(userID, storeID, productName, unit)
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneStock(entry), nil
}

func (s *Store) GetStockByName(_ context.Context, userID, storeID, productName string) (*domain.StockEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.findByName(userID, storeID, productName)
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneStock(entry), nil
}

func (s *Store) ListStock(_ context.Context, userID, storeID string) ([]domain.StockEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.StockEntry, 0)
	for _, entry := range s.stockByID {
		if entry.UserID == userID && entry.StoreID == storeID {
			entries = append(entries, *cloneStock(entry))
		}
	}
	slices.SortFunc(entries, func(a, b domain.StockEntry) int {
		return cmpString(strings.ToLower(a.ProductName), strings.ToLower(b.ProductName))
	})
	return entries, nil
}

func (s *Store) CreateStock(_ context.Context, entry domain.StockEntry) (*domain.StockEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.findByProduct(entry.UserID, entry.StoreID, entry.ProductName, entry.Unit); exists {
		return nil, store.ErrDuplicate
	}
	if entry.ID == "" {
		entry.ID = xid.New("stock")
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	s.stockByID[entry.ID] = *cloneStock(entry)
	return cloneStock(entry), nil
}

func (s *Store) MergeStock(_ context.Context, stockID string, addQty, addBill float64, sellingPrice *float64) (*domain.StockEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.stockByID[stockID]
	if !ok {
		return nil, store.ErrNotFound
	}

	merged := pricing.WeightedMerge(entry.Quantity, entry.BillAmount, addQty, addBill)
	entry.Quantity = merged.Quantity
	entry.BillAmount = merged.BillAmount
	entry.UnitAmount = merged.UnitAmount
	entry.SellingPrice = nil
	if sellingPrice != nil {
		price := *sellingPrice
		entry.SellingPrice = &price
	}
	entry.UpdatedAt = time.Now().UTC()
	s.stockByID[stockID] = entry
	return cloneStock(entry), nil
}

func (s *Store) UpdateStock(_ context.Context, entry domain.StockEntry) (*domain.StockEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.stockByID[entry.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if other, exists := s.findByProduct(entry.UserID, entry.StoreID, entry.ProductName, entry.Unit); exists && other.ID != entry.ID {
		return nil, store.ErrDuplicate
	}
	entry.CreatedAt = current.CreatedAt
	entry.UpdatedAt = time.Now().UTC()
	s.stockByID[entry.ID] = *cloneStock(entry)
	return cloneStock(entry), nil
}

func (s *Store) DeleteStock(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stockByID[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.stockByID, id)
	return nil
}

// CreateSale applies the whole batch under the store mutex: every decrement
// is validated against current quantities first, then all records and
// decrements are applied together. A shortage leaves the store untouched.
func (s *Store) CreateSale(_ context.Context, decrements []store.SaleDecrement) ([]domain.SaleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(decrements) == 0 {
		return nil, store.ErrValidation
	}

	ordered := slices.Clone(decrements)
	slices.SortFunc(ordered, func(a, b store.SaleDecrement) int {
		return cmpString(a.StockID, b.StockID)
	})

	for _, dec := range ordered {
		entry, ok := s.stockByID[dec.StockID]
		if !ok {
			return nil, store.ErrNotFound
		}
		if entry.Quantity < dec.Quantity {
			return nil, store.ErrInsufficientStock
		}
	}

	now := time.Now().UTC()
	records := make([]domain.SaleRecord, 0, len(ordered))
	for _, dec := range ordered {
		entry := s.stockByID[dec.StockID]
		entry.Quantity -= dec.Quantity
		entry.UpdatedAt = now
		s.stockByID[dec.StockID] = entry

		record := dec.Record
		if record.ID == "" {
			record.ID = xid.New("sale")
		}
		if record.SoldAt.IsZero() {
			record.SoldAt = now
		}
		s.sales = append(s.sales, record)
		records = append(records, record)
	}
	return records, nil
}

func (s *Store) ListSales(_ context.Context, userID, storeID string, limit int) ([]domain.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.SaleRecord, 0)
	for i := len(s.sales) - 1; i >= 0; i-- {
		record := s.sales[i]
		if record.UserID != userID || record.StoreID != storeID {
			continue
		}
		records = append(records, record)
		if limit > 0 && len(records) >= limit {
			break
		}
	}
	return records, nil
}

func (s *Store) GetSalesSummary(_ context.Context, userID, storeID string) (*domain.SalesSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.SalesSummary{}
	byType := map[string]*domain.SalesTypeStat{}
	for _, record := range s.sales {
		if record.UserID != userID || record.StoreID != storeID {
			continue
		}
		summary.TotalSales++
		summary.TotalAmount += record.TotalAmount
		summary.TotalProfit += record.Profit

		stat, ok := byType[record.SalesType]
		if !ok {
			stat = &domain.SalesTypeStat{SalesType: record.SalesType}
			byType[record.SalesType] = stat
		}
		stat.Count++
		stat.TotalAmount += record.TotalAmount
		stat.TotalProfit += record.Profit
	}

	summary.TotalAmount = pricing.Round(summary.TotalAmount, 2)
	summary.TotalProfit = pricing.Round(summary.TotalProfit, 2)
	for _, salesType := range []string{domain.SalesTypeOffline, domain.SalesTypeOnline} {
		if stat, ok := byType[salesType]; ok {
			stat.TotalAmount = pricing.Round(stat.TotalAmount, 2)
			stat.TotalProfit = pricing.Round(stat.TotalProfit, 2)
			summary.ByType = append(summary.ByType, *stat)
		}
	}
	return &summary, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, storeID string, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.AuditLog, 0)
	for i := len(s.auditLogs) - 1; i >= 0; i-- {
		entry := s.auditLogs[i]
		if storeID != "" && entry.StoreID != storeID {
			continue
		}
		logs = append(logs, entry)
		if limit > 0 && len(logs) >= limit {
			break
		}
	}
	return logs, nil
}

func (s *Store) findByProduct(userID, storeID, productName, unit string) (domain.StockEntry, bool) {
	name := strings.ToLower(strings.TrimSpace(productName))
	for _, entry := range s.stockByID {
		if entry.UserID == userID && entry.StoreID == storeID &&
			strings.ToLower(entry.ProductName) == name && entry.Unit == unit {
			return entry, true
		}
	}
	return domain.StockEntry{}, false
}

// findByName matches on product name alone. When a product is kept in
// several units the oldest row wins, so sales resolve deterministically.
func (s *Store) findByName(userID, storeID, productName string) (domain.StockEntry, bool) {
	name := strings.ToLower(strings.TrimSpace(productName))
	var best domain.StockEntry
	found := false
	for _, entry := range s.stockByID {
		if entry.UserID != userID || entry.StoreID != storeID || strings.ToLower(entry.ProductName) != name {
			continue
		}
		if !found || entry.CreatedAt.Before(best.CreatedAt) ||
			(entry.CreatedAt.Equal(best.CreatedAt) && entry.ID < best.ID) {
			best = entry
			found = true
		}
	}
	return best, found
}

func cloneStock(entry domain.StockEntry) *domain.StockEntry {
	cloned := entry
	if entry.SellingPrice != nil {
		price := *entry.SellingPrice
		cloned.SellingPrice = &price
	}
	return &cloned
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
