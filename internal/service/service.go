// Package service implements the business rules over a store.Repository:
// receipt merging on a weighted-average cost basis, all-or-nothing sale
// transactions, ownership checks and restock advisories.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tokoku/backend/internal/cache"
	"tokoku/backend/internal/domain"
	"tokoku/backend/internal/pricing"
	"tokoku/backend/internal/report"
	"tokoku/backend/internal/store"
	"tokoku/backend/internal/xid"
)

const (
	saleRetryDelay  = 50 * time.Millisecond
	maxSaleAttempts = 2
)

type Service struct {
	repo     store.Repository
	stocks   cache.StockCache
	cacheTTL time.Duration
}

func New(repo store.Repository, stocks cache.StockCache, cacheTTL time.Duration) *Service {
	if stocks == nil {
		stocks = cache.NoopStockCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Service{repo: repo, stocks: stocks, cacheTTL: cacheTTL}
}

// SaleValidationError aggregates the per-line failures of a sale request.
// Every line is validated before the error is returned.
type SaleValidationError struct {
	Lines []domain.SaleLineError
}

func (e *SaleValidationError) Error() string {
	return fmt.Sprintf("sale validation failed for %d line(s)", len(e.Lines))
}

func (s *Service) ReceiveStock(ctx context.Context, req domain.ReceiveStockRequest) (*domain.ReceiveStockResponse, error) {
	req.ProductName = strings.TrimSpace(req.ProductName)
	req.Unit = strings.ToLower(strings.TrimSpace(req.Unit))

	if err := validateReceive(req); err != nil {
		return nil, err
	}
	if _, err := s.requireOwnedStore(ctx, req.UserID, req.StoreID); err != nil {
		return nil, err
	}

	if req.SellingPrice != nil {
		price := pricing.Round(*req.SellingPrice, 2)
		req.SellingPrice = &price
	}

	// Product plus unit is the ledger identity. A receipt in a new unit
	// opens an independent row instead of folding into the existing one.
	existing, err := s.repo.GetStockByProduct(ctx, req.UserID, req.StoreID, req.ProductName, req.Unit)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	var resp *domain.ReceiveStockResponse
	if existing == nil {
		resp, err = s.createStock(ctx, req)
		if err == nil {
			if sameName, nameErr := s.repo.GetStockByName(ctx, req.UserID, req.StoreID, req.ProductName); nameErr == nil && sameName.Unit != req.Unit {
				resp.Warning = &domain.UnitWarning{
					Message:      fmt.Sprintf("%q is already tracked in %q; this receipt opened a separate ledger in %q", req.ProductName, sameName.Unit, req.Unit),
					ExistingUnit: sameName.Unit,
					ProvidedUnit: req.Unit,
				}
			}
		}
	} else {
		resp, err = s.mergeStock(ctx, req, existing)
	}
	if err != nil {
		return nil, err
	}

	if cacheErr := s.stocks.Invalidate(ctx, req.UserID, req.StoreID); cacheErr != nil {
		log.Printf("[service] stock cache invalidate failed: %v", cacheErr)
	}
	s.logAudit(ctx, req.UserID, req.StoreID, "stock."+resp.Action, "stock", resp.Stock.ID,
		fmt.Sprintf("%s +%.3f %s", req.ProductName, req.Quantity, req.Unit))
	return resp, nil
}

func validateReceive(req domain.ReceiveStockRequest) error {
	switch {
	case req.UserID == "":
		return fmt.Errorf("%w: user_id is required", store.ErrValidation)
	case req.StoreID == "":
		return fmt.Errorf("%w: store_id is required", store.ErrValidation)
	case req.ProductName == "":
		return fmt.Errorf("%w: product_name is required", store.ErrValidation)
	case req.Unit == "":
		return fmt.Errorf("%w: unit is required", store.ErrValidation)
	}
	if req.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be a positive number", store.ErrValidation)
	}
	if req.UnitAmount < 0 {
		return fmt.Errorf("%w: unit_amount must not be negative", store.ErrValidation)
	}
	if req.BillAmount < 0 {
		return fmt.Errorf("%w: bill_amount must not be negative", store.ErrValidation)
	}
	if req.SellingPrice != nil && *req.SellingPrice <= 0 {
		return fmt.Errorf("%w: selling_price must be a positive number", store.ErrValidation)
	}
	if !domain.UnitAllowed(req.Unit) {
		return fmt.Errorf("%w: unit %q is not allowed (allowed: %s)",
			store.ErrValidation, req.Unit, strings.Join(domain.AllowedUnits, ", "))
	}
	if !pricing.BillConsistent(req.Quantity, req.UnitAmount, req.BillAmount) {
		expected := pricing.Mul2(req.Quantity, req.UnitAmount)
		return fmt.Errorf("%w: bill_amount %.2f does not match quantity * unit_amount (%.2f, tolerance %.2f)",
			store.ErrValidation, req.BillAmount, expected, pricing.BillTolerance)
	}
	return nil
}

func (s *Service) createStock(ctx context.Context, req domain.ReceiveStockRequest) (*domain.ReceiveStockResponse, error) {
	entry := domain.StockEntry{
		UserID:       req.UserID,
		StoreID:      req.StoreID,
		ProductName:  req.ProductName,
		Quantity:     req.Quantity,
		Unit:         req.Unit,
		UnitAmount:   pricing.Round(req.UnitAmount, 4),
		BillAmount:   pricing.Round(req.BillAmount, 2),
		SellingPrice: req.SellingPrice,
	}
	saved, err := s.repo.CreateStock(ctx, entry)
	if errors.Is(err, store.ErrDuplicate) {
		// Lost a race with a concurrent first receipt; fold into it.
		existing, getErr := s.repo.GetStockByProduct(ctx, req.UserID, req.StoreID, req.ProductName, req.Unit)
		if getErr != nil {
			return nil, getErr
		}
		return s.mergeStock(ctx, req, existing)
	}
	if err != nil {
		return nil, err
	}
	return s.buildReceiveResponse("created", *saved, req, nil), nil
}

func (s *Service) mergeStock(ctx context.Context, req domain.ReceiveStockRequest, existing *domain.StockEntry) (*domain.ReceiveStockResponse, error) {
	merged, err := s.repo.MergeStock(ctx, existing.ID, req.Quantity, pricing.Round(req.BillAmount, 2), req.SellingPrice)
	if err != nil {
		return nil, err
	}

	details := &domain.MergeDetails{
		PreviousQuantity:   existing.Quantity,
		AddedQuantity:      req.Quantity,
		PreviousBillAmount: existing.BillAmount,
		AddedBillAmount:    pricing.Round(req.BillAmount, 2),
		PreviousUnitAmount: existing.UnitAmount,
		NewUnitAmount:      merged.UnitAmount,
	}
	return s.buildReceiveResponse("merged", *merged, req, details), nil
}

func (s *Service) buildReceiveResponse(action string, entry domain.StockEntry, req domain.ReceiveStockRequest, details *domain.MergeDetails) *domain.ReceiveStockResponse {
	resp := &domain.ReceiveStockResponse{
		Action: action,
		Stock:  entry,
		PurchaseInfo: domain.PurchaseInfo{
			Quantity:   req.Quantity,
			Unit:       req.Unit,
			UnitAmount: pricing.Round(req.UnitAmount, 4),
			BillAmount: pricing.Round(req.BillAmount, 2),
		},
		SellingInfo: domain.SellingInfo{
			SellingPrice: entry.SellingPrice,
			PriceSet:     entry.SellingPrice != nil,
		},
		Statistics: domain.StockStatistics{
			TotalValue: pricing.Mul2(entry.Quantity, entry.UnitAmount),
		},
		MergeDetails: details,
	}
	if entry.SellingPrice != nil {
		price := *entry.SellingPrice
		resp.BusinessAnalysis = &domain.BusinessAnalysis{
			ProfitPerUnit:   pricing.UnitProfit(entry.UnitAmount, price),
			ProfitMargin:    pricing.UnitMargin(entry.UnitAmount, price),
			PotentialProfit: pricing.Mul2(entry.Quantity, pricing.UnitProfit(entry.UnitAmount, price)),
		}
		resp.Statistics.PotentialRevenue = pricing.Mul2(entry.Quantity, price)
	}
	return resp
}

func (s *Service) CreateSale(ctx context.Context, req domain.CreateSaleRequest) (*domain.CreateSaleResponse, error) {
	req.SalesType = strings.ToLower(strings.TrimSpace(req.SalesType))
	if req.SalesType != domain.SalesTypeOffline && req.SalesType != domain.SalesTypeOnline {
		return nil, fmt.Errorf("%w: sales_type must be %q or %q",
			store.ErrValidation, domain.SalesTypeOffline, domain.SalesTypeOnline)
	}
	if _, err := s.requireOwnedStore(ctx, req.UserID, req.StoreID); err != nil {
		return nil, err
	}

	lines := req.Products
	if len(lines) == 0 {
		if strings.TrimSpace(req.ProductName) == "" {
			return nil, fmt.Errorf("%w: provide product_name or a products array", store.ErrValidation)
		}
		lines = []domain.SaleLine{{
			ProductName:  req.ProductName,
			Quantity:     req.Quantity,
			SellingPrice: req.SellingPrice,
		}}
	}

	transactionID := xid.Transaction(req.SalesType, req.UserID)

	var records []domain.SaleRecord
	for attempt := 1; ; attempt++ {
		decrements, verr := s.validateSaleLines(ctx, req, lines, transactionID)
		if verr != nil {
			return nil, verr
		}

		var err error
		records, err = s.repo.CreateSale(ctx, decrements)
		if err == nil {
			break
		}
		// The repository re-checks quantities under its locks, so a
		// shortage here means another sale won the race between our
		// validation pass and the commit. Revalidating converts it
		// into a per-line error payload.
		if errors.Is(err, store.ErrInsufficientStock) && attempt < maxSaleAttempts {
			time.Sleep(saleRetryDelay)
			continue
		}
		if errors.Is(err, store.ErrConcurrency) && attempt < maxSaleAttempts {
			log.Printf("[service] sale %s hit lock contention, retrying", transactionID)
			time.Sleep(saleRetryDelay)
			continue
		}
		return nil, err
	}

	resp := &domain.CreateSaleResponse{
		TransactionID: transactionID,
		SalesType:     req.SalesType,
		SaleRecords:   records,
	}
	totalAmount, totalCost, totalProfit := 0.0, 0.0, 0.0
	for _, record := range records {
		totalAmount += record.TotalAmount
		totalCost += record.TotalCost
		totalProfit += record.Profit
	}
	resp.Summary = domain.TransactionSummary{
		TotalItems:          len(records),
		TotalSaleAmount:     pricing.Round(totalAmount, 2),
		TotalCost:           pricing.Round(totalCost, 2),
		TotalProfit:         pricing.Round(totalProfit, 2),
		OverallProfitMargin: pricing.MarginPct(totalProfit, totalCost),
	}

	for _, record := range records {
		alert := domain.StockAlert{
			StockID:     record.StockID,
			ProductName: record.ProductName,
			Unit:        record.Unit,
		}
		if entry, err := s.repo.GetStockByID(ctx, record.StockID); err == nil {
			alert.RemainingQuantity = entry.Quantity
			alert.Status = domain.StockStatus(entry.Quantity)
		}
		resp.StockAlerts = append(resp.StockAlerts, alert)
	}

	if cacheErr := s.stocks.Invalidate(ctx, req.UserID, req.StoreID); cacheErr != nil {
		log.Printf("[service] stock cache invalidate failed: %v", cacheErr)
	}
	s.logAudit(ctx, req.UserID, req.StoreID, "sale.create", "sale", transactionID,
		fmt.Sprintf("%d line(s), total %.2f", len(records), resp.Summary.TotalSaleAmount))
	return resp, nil
}

// validateSaleLines checks every line against a snapshot of current stock
// without writing anything. All failures are collected so the caller sees
// the full picture in one round trip.
func (s *Service) validateSaleLines(ctx context.Context, req domain.CreateSaleRequest, lines []domain.SaleLine, transactionID string) ([]store.SaleDecrement, error) {
	decrements := make([]store.SaleDecrement, 0, len(lines))
	var lineErrors []domain.SaleLineError

	for i, line := range lines {
		name := strings.TrimSpace(line.ProductName)
		fail := func(reason string, details *domain.StockDetail) {
			lineErrors = append(lineErrors, domain.SaleLineError{
				Index:       i,
				ProductName: name,
				Reason:      reason,
				Details:     details,
			})
		}

		if name == "" {
			fail("product_name is required", nil)
			continue
		}
		if line.Quantity <= 0 {
			fail("quantity must be a positive number", nil)
			continue
		}
		if line.SellingPrice != nil && *line.SellingPrice <= 0 {
			fail("selling_price must be a positive number", nil)
			continue
		}

		entry, err := s.repo.GetStockByName(ctx, req.UserID, req.StoreID, name)
		if errors.Is(err, store.ErrNotFound) {
			fail("product not found in this store", nil)
			continue
		}
		if err != nil {
			return nil, err
		}

		if entry.Quantity < line.Quantity {
			fail("insufficient stock", &domain.StockDetail{
				Requested: line.Quantity,
				Available: entry.Quantity,
				Shortage:  pricing.Round(line.Quantity-entry.Quantity, 3),
				Unit:      entry.Unit,
			})
			continue
		}

		price := 0.0
		switch {
		case line.SellingPrice != nil:
			price = pricing.Round(*line.SellingPrice, 2)
		case entry.SellingPrice != nil:
			price = *entry.SellingPrice
		default:
			fail("selling price not set; provide one on the line or set it on the stock entry", nil)
			continue
		}

		eco := pricing.LineEconomics(line.Quantity, entry.UnitAmount, price)
		decrements = append(decrements, store.SaleDecrement{
			StockID:  entry.ID,
			Quantity: line.Quantity,
			Record: domain.SaleRecord{
				TransactionID: transactionID,
				UserID:        req.UserID,
				StoreID:       req.StoreID,
				StockID:       entry.ID,
				ProductName:   entry.ProductName,
				Quantity:      line.Quantity,
				Unit:          entry.Unit,
				UnitCost:      entry.UnitAmount,
				SellingPrice:  price,
				TotalAmount:   eco.TotalAmount,
				TotalCost:     eco.TotalCost,
				Profit:        eco.Profit,
				ProfitPerUnit: pricing.UnitProfit(entry.UnitAmount, price),
				ProfitMargin:  eco.ProfitMargin,
				SalesType:     req.SalesType,
				CustomerName:  strings.TrimSpace(req.CustomerName),
				Notes:         strings.TrimSpace(req.Notes),
			},
		})
	}

	if len(lineErrors) > 0 {
		return nil, &SaleValidationError{Lines: lineErrors}
	}
	return decrements, nil
}

func (s *Service) ListStock(ctx context.Context, userID, storeID string) ([]domain.StockListItem, error) {
	if _, err := s.requireOwnedStore(ctx, userID, storeID); err != nil {
		return nil, err
	}

	entries, hit, err := s.stocks.Get(ctx, userID, storeID)
	if err != nil {
		log.Printf("[service] stock cache read failed: %v", err)
		hit = false
	}
	if !hit {
		entries, err = s.repo.ListStock(ctx, userID, storeID)
		if err != nil {
			return nil, err
		}
		if cacheErr := s.stocks.Set(ctx, userID, storeID, entries, s.cacheTTL); cacheErr != nil {
			log.Printf("[service] stock cache write failed: %v", cacheErr)
		}
	}

	items := make([]domain.StockListItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, domain.StockListItem{
			StockEntry: entry,
			Status:     domain.StockStatus(entry.Quantity),
		})
	}
	return items, nil
}

func (s *Service) GetStock(ctx context.Context, userID, stockID string) (*domain.StockListItem, error) {
	entry, err := s.ownedStock(ctx, userID, stockID)
	if err != nil {
		return nil, err
	}
	return &domain.StockListItem{StockEntry: *entry, Status: domain.StockStatus(entry.Quantity)}, nil
}

func (s *Service) EditStock(ctx context.Context, stockID string, req domain.EditStockRequest) (*domain.StockListItem, error) {
	entry, err := s.ownedStock(ctx, req.UserID, stockID)
	if err != nil {
		return nil, err
	}

	if req.ProductName != nil {
		name := strings.TrimSpace(*req.ProductName)
		if name == "" {
			return nil, fmt.Errorf("%w: product_name cannot be empty", store.ErrValidation)
		}
		entry.ProductName = name
	}
	if req.Unit != nil {
		unit := strings.ToLower(strings.TrimSpace(*req.Unit))
		if !domain.UnitAllowed(unit) {
			return nil, fmt.Errorf("%w: unit %q is not allowed", store.ErrValidation, unit)
		}
		entry.Unit = unit
	}
	if req.SellingPrice != nil {
		if *req.SellingPrice <= 0 {
			return nil, fmt.Errorf("%w: selling_price must be a positive number", store.ErrValidation)
		}
		price := pricing.Round(*req.SellingPrice, 2)
		entry.SellingPrice = &price
	}

	saved, err := s.repo.UpdateStock(ctx, *entry)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, fmt.Errorf("%w: another product already uses that name", store.ErrValidation)
	}
	if err != nil {
		return nil, err
	}

	if cacheErr := s.stocks.Invalidate(ctx, entry.UserID, entry.StoreID); cacheErr != nil {
		log.Printf("[service] stock cache invalidate failed: %v", cacheErr)
	}
	s.logAudit(ctx, entry.UserID, entry.StoreID, "stock.edit", "stock", entry.ID, "")
	return &domain.StockListItem{StockEntry: *saved, Status: domain.StockStatus(saved.Quantity)}, nil
}

func (s *Service) DeleteStock(ctx context.Context, userID, stockID string) error {
	entry, err := s.ownedStock(ctx, userID, stockID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteStock(ctx, stockID); err != nil {
		return err
	}
	if cacheErr := s.stocks.Invalidate(ctx, entry.UserID, entry.StoreID); cacheErr != nil {
		log.Printf("[service] stock cache invalidate failed: %v", cacheErr)
	}
	s.logAudit(ctx, entry.UserID, entry.StoreID, "stock.delete", "stock", stockID, entry.ProductName)
	return nil
}

func (s *Service) ExportStock(ctx context.Context, userID, storeID string) ([]byte, string, error) {
	st, err := s.requireOwnedStore(ctx, userID, storeID)
	if err != nil {
		return nil, "", err
	}
	items, err := s.ListStock(ctx, userID, storeID)
	if err != nil {
		return nil, "", err
	}
	payload, err := report.StockWorkbook(st.StoreName, items)
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("stock-%s-%s.xlsx", storeID, time.Now().UTC().Format("20060102"))
	return payload, filename, nil
}

func (s *Service) ListSales(ctx context.Context, userID, storeID string, limit int) ([]domain.SaleRecord, error) {
	if _, err := s.requireOwnedStore(ctx, userID, storeID); err != nil {
		return nil, err
	}
	return s.repo.ListSales(ctx, userID, storeID, limit)
}

func (s *Service) SalesSummary(ctx context.Context, userID, storeID string) (*domain.SalesSummary, error) {
	if _, err := s.requireOwnedStore(ctx, userID, storeID); err != nil {
		return nil, err
	}
	return s.repo.GetSalesSummary(ctx, userID, storeID)
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	switch {
	case req.Name == "":
		return nil, fmt.Errorf("%w: name is required", store.ErrValidation)
	case req.Email == "" || !strings.Contains(req.Email, "@"):
		return nil, fmt.Errorf("%w: a valid email is required", store.ErrValidation)
	case len(req.Password) < 8:
		return nil, fmt.Errorf("%w: password must be at least 8 characters", store.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.CreateUser(ctx, domain.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, user.ID, "", "user.register", "user", user.ID, req.Email)
	return user, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid email or password", store.ErrAccessDenied)
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, fmt.Errorf("%w: invalid email or password", store.ErrAccessDenied)
	}
	return user, nil
}

func (s *Service) CreateStore(ctx context.Context, req domain.CreateStoreRequest) (*domain.Store, error) {
	req.StoreName = strings.TrimSpace(req.StoreName)
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user_id is required", store.ErrValidation)
	}
	if req.StoreName == "" {
		return nil, fmt.Errorf("%w: store_name is required", store.ErrValidation)
	}
	if _, err := s.repo.GetUserByID(ctx, req.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s", store.ErrNotFound, req.UserID)
		}
		return nil, err
	}

	created, err := s.repo.CreateStore(ctx, domain.Store{
		UserID:    req.UserID,
		StoreName: req.StoreName,
		Address:   strings.TrimSpace(req.Address),
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, req.UserID, created.ID, "store.create", "store", created.ID, created.StoreName)
	return created, nil
}

func (s *Service) ListStores(ctx context.Context, userID string) ([]domain.Store, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", store.ErrValidation)
	}
	return s.repo.ListStores(ctx, userID)
}

func (s *Service) ListAuditLogs(ctx context.Context, userID, storeID string, limit int) ([]domain.AuditLog, error) {
	if _, err := s.requireOwnedStore(ctx, userID, storeID); err != nil {
		return nil, err
	}
	return s.repo.ListAuditLogs(ctx, storeID, limit)
}

// requireOwnedStore resolves user and store, then enforces that the store
// belongs to the user. The error order matters: missing user and missing
// store are 404s, foreign store is a 403.
func (s *Service) requireOwnedStore(ctx context.Context, userID, storeID string) (*domain.Store, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", store.ErrValidation)
	}
	if storeID == "" {
		return nil, fmt.Errorf("%w: store_id is required", store.ErrValidation)
	}
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s", store.ErrNotFound, userID)
		}
		return nil, err
	}
	st, err := s.repo.GetStoreByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: store %s", store.ErrNotFound, storeID)
		}
		return nil, err
	}
	if st.UserID != userID {
		return nil, fmt.Errorf("%w: store %s does not belong to user %s", store.ErrAccessDenied, storeID, userID)
	}
	return st, nil
}

func (s *Service) ownedStock(ctx context.Context, userID, stockID string) (*domain.StockEntry, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", store.ErrValidation)
	}
	entry, err := s.repo.GetStockByID(ctx, stockID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: stock %s", store.ErrNotFound, stockID)
		}
		return nil, err
	}
	if entry.UserID != userID {
		return nil, fmt.Errorf("%w: stock %s does not belong to user %s", store.ErrAccessDenied, stockID, userID)
	}
	return entry, nil
}

func (s *Service) logAudit(ctx context.Context, userID, storeID, action, entityType, entityID, detail string) {
	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		UserID:     userID,
		StoreID:    storeID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
	}); err != nil {
		log.Printf("[service] audit log write failed (%s %s): %v", action, entityID, err)
	}
}
