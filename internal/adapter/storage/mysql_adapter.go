package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/pantry/internal/core/domain"
	"github.com/rl1809/pantry/internal/port"
)

const (
	productColumns = `p.id, p.user_id, p.name, p.obs, p.category_id, p.storage_location_id,
		p.min_quantity, p.quantity, p.expiry_date, p.created_at, p.updated_at`
	batchColumns = `b.id, b.product_id, b.quantity, b.expiry_date, b.created_at`
)

var (
	_ port.Store = (*MySQLAdapter)(nil)
	_ port.Tx    = (*mysqlTx)(nil)
)

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) WithTx(ctx context.Context, fn func(tx port.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&mysqlTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetProduct(ctx context.Context, userID, productID string) (*domain.Product, error) {
	p, err := scanProduct(m.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products p WHERE p.id = ? AND p.user_id = ?`, productID, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("product", productID)
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return p, nil
}

func (m *MySQLAdapter) ListProducts(ctx context.Context, userID string) ([]domain.Product, error) {
	return queryProducts(ctx, m.db, `
		SELECT `+productColumns+`
		FROM products p WHERE p.user_id = ?
		ORDER BY p.expiry_date IS NULL, p.expiry_date ASC, p.name ASC`, userID)
}

func (m *MySQLAdapter) ListProductBatches(ctx context.Context, userID, productID string) ([]domain.Batch, error) {
	if _, err := m.GetProduct(ctx, userID, productID); err != nil {
		return nil, err
	}
	return queryBatches(ctx, m.db, `
		SELECT `+batchColumns+`
		FROM product_batches b WHERE b.product_id = ?
		ORDER BY b.expiry_date ASC, b.created_at ASC, b.id ASC`, productID)
}

func (m *MySQLAdapter) ListRestockCandidates(ctx context.Context, userID string, now time.Time) ([]domain.Product, error) {
	return queryProducts(ctx, m.db, `
		SELECT `+productColumns+`
		FROM products p
		WHERE p.user_id = ?
		AND (p.quantity <= p.min_quantity OR (p.expiry_date IS NOT NULL AND p.expiry_date < ?))
		ORDER BY p.name ASC`, userID, now.UTC())
}

func (m *MySQLAdapter) UpdateProductDetails(ctx context.Context, userID, productID string, details domain.ProductDetails) (*domain.Product, error) {
	_, err := m.db.ExecContext(ctx, `
		UPDATE products
		SET name = ?, obs = ?, min_quantity = ?, category_id = ?, storage_location_id = ?
		WHERE id = ? AND user_id = ?`,
		details.Name, details.Obs, details.MinQuantity, details.CategoryID, details.StorageLocationID,
		productID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	// MySQL reports zero affected rows when nothing changed, so existence is
	// decided by the read.
	return m.GetProduct(ctx, userID, productID)
}

func (m *MySQLAdapter) DeleteProduct(ctx context.Context, userID, productID string) error {
	result, err := m.db.ExecContext(ctx, `DELETE FROM products WHERE id = ? AND user_id = ?`, productID, userID)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.NewNotFoundError("product", productID)
	}
	return nil
}

type mysqlTx struct {
	tx *sql.Tx
}

func (t *mysqlTx) InsertProduct(ctx context.Context, p domain.Product) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO products (id, user_id, name, obs, category_id, storage_location_id,
			min_quantity, quantity, expiry_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, NULL, ?, ?)`,
		p.ID, p.UserID, p.Name, p.Obs, p.CategoryID, p.StorageLocationID,
		p.MinQuantity, p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (t *mysqlTx) LockProduct(ctx context.Context, userID, productID string) (*domain.Product, error) {
	p, err := scanProduct(t.tx.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products p WHERE p.id = ? AND p.user_id = ?
		FOR UPDATE`, productID, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("product", productID)
	}
	if err != nil {
		return nil, fmt.Errorf("lock product: %w", err)
	}
	return p, nil
}

// LockBatchProduct locks the owning product before the batch, the same order
// every other mutation takes, so concurrent writers cannot deadlock.
func (t *mysqlTx) LockBatchProduct(ctx context.Context, userID, batchID string) (*domain.Product, *domain.Batch, error) {
	var productID string
	err := t.tx.QueryRowContext(ctx, `SELECT product_id FROM product_batches WHERE id = ?`, batchID).Scan(&productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, domain.NewNotFoundError("batch", batchID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query batch: %w", err)
	}

	p, err := t.LockProduct(ctx, userID, productID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil, domain.NewNotFoundError("batch", batchID)
	}
	if err != nil {
		return nil, nil, err
	}

	var r batchRow
	err = t.tx.QueryRowContext(ctx, `
		SELECT `+batchColumns+`
		FROM product_batches b WHERE b.id = ? AND b.product_id = ?
		FOR UPDATE`, batchID, productID,
	).Scan(r.dest()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, domain.NewNotFoundError("batch", batchID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("lock batch: %w", err)
	}

	b := r.batch()
	return p, &b, nil
}

func (t *mysqlTx) ListBatches(ctx context.Context, productID string) ([]domain.Batch, error) {
	return queryBatches(ctx, t.tx, `
		SELECT `+batchColumns+`
		FROM product_batches b WHERE b.product_id = ?
		ORDER BY b.expiry_date ASC, b.created_at ASC, b.id ASC`, productID)
}

func (t *mysqlTx) LockBatches(ctx context.Context, productID string) ([]domain.Batch, error) {
	return queryBatches(ctx, t.tx, `
		SELECT `+batchColumns+`
		FROM product_batches b WHERE b.product_id = ?
		ORDER BY b.expiry_date ASC, b.created_at ASC, b.id ASC
		FOR UPDATE`, productID)
}

func (t *mysqlTx) InsertBatch(ctx context.Context, b domain.Batch) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO product_batches (id, product_id, quantity, expiry_date, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.ProductID, b.Quantity, b.ExpiryDate.Format(time.DateOnly), b.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func (t *mysqlTx) SetBatchQuantity(ctx context.Context, batchID string, quantity int) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE product_batches SET quantity = ? WHERE id = ?`, quantity, batchID)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	return nil
}

func (t *mysqlTx) DeleteBatch(ctx context.Context, batchID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM product_batches WHERE id = ?`, batchID)
	if err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	return nil
}

func (t *mysqlTx) PurgeEmptyBatches(ctx context.Context, productID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM product_batches WHERE product_id = ? AND quantity <= 0`, productID)
	if err != nil {
		return fmt.Errorf("purge batches: %w", err)
	}
	return nil
}

func (t *mysqlTx) WriteAggregate(ctx context.Context, productID string, agg domain.Aggregate) (*domain.Product, error) {
	var expiry any
	if agg.ExpiryDate != nil {
		expiry = agg.ExpiryDate.Format(time.DateOnly)
	}

	_, err := t.tx.ExecContext(ctx, `
		UPDATE products SET quantity = ?, expiry_date = ?, updated_at = NOW(6)
		WHERE id = ?`, agg.Quantity, expiry, productID,
	)
	if err != nil {
		return nil, fmt.Errorf("update aggregate: %w", err)
	}

	p, err := scanProduct(t.tx.QueryRowContext(ctx, `
		SELECT `+productColumns+` FROM products p WHERE p.id = ?`, productID,
	))
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return p, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type productRow struct {
	p        domain.Product
	obs      sql.NullString
	category sql.NullString
	location sql.NullString
	expiry   sql.NullTime
}

func (r *productRow) dest() []any {
	return []any{
		&r.p.ID, &r.p.UserID, &r.p.Name, &r.obs, &r.category, &r.location,
		&r.p.MinQuantity, &r.p.Quantity, &r.expiry, &r.p.CreatedAt, &r.p.UpdatedAt,
	}
}

func (r *productRow) product() domain.Product {
	p := r.p
	p.Obs = r.obs.String
	if r.category.Valid {
		p.CategoryID = &r.category.String
	}
	if r.location.Valid {
		p.StorageLocationID = &r.location.String
	}
	if r.expiry.Valid {
		expiry := domain.Date(r.expiry.Time)
		p.ExpiryDate = &expiry
	}
	return p
}

type batchRow struct {
	b domain.Batch
}

func (r *batchRow) dest() []any {
	return []any{&r.b.ID, &r.b.ProductID, &r.b.Quantity, &r.b.ExpiryDate, &r.b.CreatedAt}
}

func (r *batchRow) batch() domain.Batch {
	b := r.b
	b.ExpiryDate = domain.Date(b.ExpiryDate)
	return b
}

func scanProduct(row *sql.Row) (*domain.Product, error) {
	var r productRow
	if err := row.Scan(r.dest()...); err != nil {
		return nil, err
	}
	p := r.product()
	return &p, nil
}

func queryProducts(ctx context.Context, q queryer, query string, args ...any) ([]domain.Product, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var r productRow
		if err := rows.Scan(r.dest()...); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, r.product())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func queryBatches(ctx context.Context, q queryer, query string, args ...any) ([]domain.Batch, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	var batches []domain.Batch
	for rows.Next() {
		var r batchRow
		if err := rows.Scan(r.dest()...); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		batches = append(batches, r.batch())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return batches, nil
}
