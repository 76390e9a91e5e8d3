package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tokoku/backend/internal/domain"
	"tokoku/backend/internal/pricing"
	"tokoku/backend/internal/store"
	"tokoku/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	if user.ID == "" {
		user.ID = xid.New("user")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	saved := user
	return &saved, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, created_at
		FROM users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, created_at
		FROM users
		WHERE lower(email) = lower($1)
	`, email)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) CreateStore(ctx context.Context, st domain.Store) (*domain.Store, error) {
	if st.ID == "" {
		st.ID = xid.New("store")
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stores (id, user_id, store_name, address, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, st.ID, st.UserID, st.StoreName, st.Address, st.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	saved := st
	return &saved, nil
}

func (s *Store) GetStoreByID(ctx context.Context, id string) (*domain.Store, error) {
	var st domain.Store
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, store_name, address, created_at
		FROM stores
		WHERE id = $1
	`, id).Scan(&st.ID, &st.UserID, &st.StoreName, &st.Address, &st.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) ListStores(ctx context.Context, userID string) ([]domain.Store, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, store_name, address, created_at
		FROM stores
		WHERE user_id = $1
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stores := make([]domain.Store, 0, 8)
	for rows.Next() {
		var st domain.Store
		if err := rows.Scan(&st.ID, &st.UserID, &st.StoreName, &st.Address, &st.CreatedAt); err != nil {
			return nil, err
		}
		stores = append(stores, st)
	}
	return stores, rows.Err()
}

const stockColumns = `id, user_id, store_id, product_name, quantity, unit, unit_amount, bill_amount, selling_price, created_at, updated_at`

func (s *Store) GetStockByID(ctx context.Context, id string) (*domain.StockEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+stockColumns+`
		FROM stock_entries
		WHERE id = $1
	`, id)
	return scanStock(row)
}

func (s *Store) GetStockByProduct(ctx context.Context, userID, storeID, productName, unit string) (*domain.StockEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+stockColumns+`
		FROM stock_entries
		WHERE user_id = $1 AND store_id = $2 AND lower(product_name) = lower($3) AND unit = $4
	`, userID, storeID, productName, unit)
	return scanStock(row)
}

func (s *Store) GetStockByName(ctx context.Context, userID, storeID, productName string) (*domain.StockEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+stockColumns+`
		FROM stock_entries
		WHERE user_id = $1 AND store_id = $2 AND lower(product_name) = lower($3)
		ORDER BY created_at, id
		LIMIT 1
	`, userID, storeID, productName)
	return scanStock(row)
}

func (s *Store) ListStock(ctx context.Context, userID, storeID string) ([]domain.StockEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+stockColumns+`
		FROM stock_entries
		WHERE user_id = $1 AND store_id = $2
		ORDER BY lower(product_name)
	`, userID, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.StockEntry, 0, 64)
	for rows.Next() {
		entry, err := scanStock(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func (s *Store) CreateStock(ctx context.Context, entry domain.StockEntry) (*domain.StockEntry, error) {
	if entry.ID == "" {
		entry.ID = xid.New("stock")
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stock_entries (id, user_id, store_id, product_name, quantity, unit, unit_amount, bill_amount, selling_price, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, entry.ID, entry.UserID, entry.StoreID, entry.ProductName, entry.Quantity, entry.Unit,
		entry.UnitAmount, entry.BillAmount, nullFloat(entry.SellingPrice), entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return nil, store.ErrDuplicate
			case "23503":
				return nil, store.ErrNotFound
			}
		}
		return nil, err
	}
	saved := entry
	return &saved, nil
}

// MergeStock folds a receipt into an existing row. The row is locked for the
// duration of the transaction so concurrent receipts serialize and each merge
// reads the figures the previous one wrote.
func (s *Store) MergeStock(ctx context.Context, stockID string, addQty, addBill float64, sellingPrice *float64) (*domain.StockEntry, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT `+stockColumns+`
		FROM stock_entries
		WHERE id = $1
		FOR UPDATE
	`, stockID)
	entry, err := scanStock(row)
	if err != nil {
		return nil, err
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

	_, err = tx.ExecContext(ctx, `
		UPDATE stock_entries
		SET quantity = $2, bill_amount = $3, unit_amount = $4, selling_price = $5, updated_at = $6
		WHERE id = $1
	`, entry.ID, entry.Quantity, entry.BillAmount, entry.UnitAmount, nullFloat(entry.SellingPrice), entry.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Store) UpdateStock(ctx context.Context, entry domain.StockEntry) (*domain.StockEntry, error) {
	entry.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE stock_entries
		SET product_name = $2, quantity = $3, unit = $4, unit_amount = $5, bill_amount = $6, selling_price = $7, updated_at = $8
		WHERE id = $1
	`, entry.ID, entry.ProductName, entry.Quantity, entry.Unit, entry.UnitAmount,
		entry.BillAmount, nullFloat(entry.SellingPrice), entry.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	saved := entry
	return &saved, nil
}

func (s *Store) DeleteStock(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM stock_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CreateSale inserts every record and applies every decrement in one
// transaction. Stock rows are locked in ascending id order so concurrent
// sales touching the same rows cannot deadlock, and quantities are
// re-checked under the locks. Lock timeouts and serialization failures come
// back as ErrConcurrency so the caller can retry.
func (s *Store) CreateSale(ctx context.Context, decrements []store.SaleDecrement) ([]domain.SaleRecord, error) {
	if len(decrements) == 0 {
		return nil, store.ErrValidation
	}

	ids := make([]string, 0, len(decrements))
	need := make(map[string]float64, len(decrements))
	for _, dec := range decrements {
		if _, seen := need[dec.StockID]; !seen {
			ids = append(ids, dec.StockID)
		}
		need[dec.StockID] += dec.Quantity
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SET LOCAL lock_timeout = '3s'`); err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, quantity
		FROM stock_entries
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, mapTxError(err)
	}
	available := make(map[string]float64, len(ids))
	for rows.Next() {
		var id string
		var qty float64
		if err := rows.Scan(&id, &qty); err != nil {
			rows.Close()
			return nil, err
		}
		available[id] = qty
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapTxError(err)
	}

	for id, qty := range need {
		current, ok := available[id]
		if !ok {
			return nil, store.ErrNotFound
		}
		if current < qty {
			return nil, store.ErrInsufficientStock
		}
	}

	now := time.Now().UTC()
	records := make([]domain.SaleRecord, 0, len(decrements))
	for _, dec := range decrements {
		record := dec.Record
		if record.ID == "" {
			record.ID = xid.New("sale")
		}
		if record.SoldAt.IsZero() {
			record.SoldAt = now
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sale_records (id, transaction_id, user_id, store_id, stock_id, product_name, quantity, unit, unit_cost, selling_price, total_amount, total_cost, profit, profit_per_unit, profit_margin, sales_type, customer_name, notes, sold_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		`, record.ID, record.TransactionID, record.UserID, record.StoreID, record.StockID,
			record.ProductName, record.Quantity, record.Unit, record.UnitCost, record.SellingPrice,
			record.TotalAmount, record.TotalCost, record.Profit, record.ProfitPerUnit,
			record.ProfitMargin, record.SalesType, record.CustomerName, record.Notes, record.SoldAt)
		if err != nil {
			return nil, mapTxError(err)
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE stock_entries
			SET quantity = quantity - $2, updated_at = $3
			WHERE id = $1
		`, dec.StockID, dec.Quantity, now)
		if err != nil {
			return nil, mapTxError(err)
		}
		records = append(records, record)
	}

	if err := tx.Commit(); err != nil {
		return nil, mapTxError(err)
	}
	return records, nil
}

const saleColumns = `id, transaction_id, user_id, store_id, stock_id, product_name, quantity, unit, unit_cost, selling_price, total_amount, total_cost, profit, profit_per_unit, profit_margin, sales_type, customer_name, notes, sold_at`

func (s *Store) ListSales(ctx context.Context, userID, storeID string, limit int) ([]domain.SaleRecord, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+saleColumns+`
		FROM sale_records
		WHERE user_id = $1 AND store_id = $2
		ORDER BY sold_at DESC, id DESC
		LIMIT $3
	`, userID, storeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.SaleRecord, 0, limit)
	for rows.Next() {
		var r domain.SaleRecord
		if err := rows.Scan(&r.ID, &r.TransactionID, &r.UserID, &r.StoreID, &r.StockID,
			&r.ProductName, &r.Quantity, &r.Unit, &r.UnitCost, &r.SellingPrice,
			&r.TotalAmount, &r.TotalCost, &r.Profit, &r.ProfitPerUnit, &r.ProfitMargin,
			&r.SalesType, &r.CustomerName, &r.Notes, &r.SoldAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) GetSalesSummary(ctx context.Context, userID, storeID string) (*domain.SalesSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sales_type, COUNT(*), COALESCE(SUM(total_amount), 0), COALESCE(SUM(profit), 0)
		FROM sale_records
		WHERE user_id = $1 AND store_id = $2
		GROUP BY sales_type
		ORDER BY sales_type DESC
	`, userID, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := domain.SalesSummary{}
	for rows.Next() {
		var stat domain.SalesTypeStat
		if err := rows.Scan(&stat.SalesType, &stat.Count, &stat.TotalAmount, &stat.TotalProfit); err != nil {
			return nil, err
		}
		stat.TotalAmount = pricing.Round(stat.TotalAmount, 2)
		stat.TotalProfit = pricing.Round(stat.TotalProfit, 2)
		summary.ByType = append(summary.ByType, stat)
		summary.TotalSales += stat.Count
		summary.TotalAmount += stat.TotalAmount
		summary.TotalProfit += stat.TotalProfit
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	summary.TotalAmount = pricing.Round(summary.TotalAmount, 2)
	summary.TotalProfit = pricing.Round(summary.TotalProfit, 2)
	return &summary, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, user_id, store_id, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.UserID, entry.StoreID, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, storeID string, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, store_id, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE ($1 = '' OR store_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, storeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.StoreID, &entry.Action,
			&entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStock(row rowScanner) (*domain.StockEntry, error) {
	var entry domain.StockEntry
	var sellingPrice sql.NullFloat64
	err := row.Scan(&entry.ID, &entry.UserID, &entry.StoreID, &entry.ProductName,
		&entry.Quantity, &entry.Unit, &entry.UnitAmount, &entry.BillAmount,
		&sellingPrice, &entry.CreatedAt, &entry.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if sellingPrice.Valid {
		price := sellingPrice.Float64
		entry.SellingPrice = &price
	}
	return &entry, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// mapTxError turns lock timeouts (55P03), deadlocks (40P01) and
// serialization failures (40001) into ErrConcurrency.
func mapTxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03", "40P01", "40001":
			return store.ErrConcurrency
		case "23503":
			return store.ErrNotFound
		}
	}
	return err
}
