package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/astrobite/storefront/internal/app/domain/catalog"
	"github.com/astrobite/storefront/internal/app/domain/order"
	"github.com/astrobite/storefront/internal/app/domain/user"
	"github.com/astrobite/storefront/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.CatalogStore = (*Store)(nil)
var _ storage.OrderStore = (*Store)(nil)
var _ storage.UserStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// --- CatalogStore -----------------------------------------------------------

func (s *Store) CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	p.CreatedAt = time.Now().UTC()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO products (category_id, name, description, price, image1, image2, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING product_id
	`, p.CategoryID, p.Name, p.Description, p.Price, p.Image1, p.Image2, p.CreatedAt).Scan(&p.ID)
	if err != nil {
		return catalog.Product{}, err
	}
	return p, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (catalog.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT product_id, category_id, name, description, price, image1, image2, created_at
		FROM products
		WHERE product_id = $1
	`, id)
	return scanProduct(row)
}

func (s *Store) ListProducts(ctx context.Context, categoryID *int64) ([]catalog.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, category_id, name, description, price, image1, image2, created_at
		FROM products
		WHERE $1::bigint IS NULL OR category_id = $1
		ORDER BY name
	`, toNullInt64(categoryID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (s *Store) SearchProducts(ctx context.Context, query string, limit int) ([]catalog.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, category_id, name, description, price, image1, image2, created_at
		FROM products
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY name
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (s *Store) RandomProducts(ctx context.Context, n int) ([]catalog.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, category_id, name, description, price, image1, image2, created_at
		FROM products
		ORDER BY random()
		LIMIT $1
	`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (s *Store) UpdateProductPrice(ctx context.Context, id int64, price decimal.Decimal) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE products SET price = $2 WHERE product_id = $1
	`, id, price)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) CreateCategory(ctx context.Context, c catalog.Category) (catalog.Category, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (name) VALUES ($1) RETURNING category_id
	`, c.Name).Scan(&c.ID)
	if err != nil {
		return catalog.Category{}, err
	}
	return c, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category_id, name FROM categories ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []catalog.Category
	for rows.Next() {
		var c catalog.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *Store) CreateStore(ctx context.Context, st catalog.Store) (catalog.Store, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO stores (name, location_code, address)
		VALUES ($1, $2, $3)
		RETURNING store_id
	`, st.Name, st.LocationCode, st.Address).Scan(&st.ID)
	if err != nil {
		return catalog.Store{}, err
	}
	return st, nil
}

func (s *Store) ListStores(ctx context.Context) ([]catalog.Store, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT store_id, name, location_code, address FROM stores ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []catalog.Store
	for rows.Next() {
		var st catalog.Store
		if err := rows.Scan(&st.ID, &st.Name, &st.LocationCode, &st.Address); err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	return result, rows.Err()
}

func (s *Store) SetStock(ctx context.Context, level catalog.StockLevel) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory (product_id, store_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_id, store_id) DO UPDATE SET quantity = EXCLUDED.quantity
	`, level.ProductID, level.StoreID, level.Quantity)
	return err
}

func (s *Store) StockLevels(ctx context.Context, productID int64) ([]catalog.StockLevel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, store_id, quantity
		FROM inventory
		WHERE product_id = $1
		ORDER BY store_id
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []catalog.StockLevel
	for rows.Next() {
		var lvl catalog.StockLevel
		if err := rows.Scan(&lvl.ProductID, &lvl.StoreID, &lvl.Quantity); err != nil {
			return nil, err
		}
		result = append(result, lvl)
	}
	return result, rows.Err()
}

// --- OrderStore -------------------------------------------------------------

// CreateOrder inserts the order header and all lines in a single
// transaction. Any failure rolls back everything: no partial order is ever
// visible.
func (s *Store) CreateOrder(ctx context.Context, ord order.Order, lines []order.Line) (order.Order, error) {
	if len(lines) == 0 {
		return order.Order{}, fmt.Errorf("order must have at least one line")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return order.Order{}, err
	}
	defer tx.Rollback()

	ord.CreatedAt = time.Now().UTC()
	if ord.Status == "" {
		ord.Status = order.StatusPending
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, store_id, total_price, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING order_id
	`, ord.UserID, toNullInt64(ord.StoreID), ord.TotalPrice, ord.Status, ord.CreatedAt).Scan(&ord.ID)
	if err != nil {
		return order.Order{}, err
	}

	for i := range lines {
		lines[i].OrderID = ord.ID
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase)
			VALUES ($1, $2, $3, $4)
		`, lines[i].OrderID, lines[i].ProductID, lines[i].Quantity, lines[i].PriceAtPurchase)
		if err != nil {
			return order.Order{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return order.Order{}, err
	}
	return ord, nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (order.Order, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT order_id, user_id, store_id, total_price, status, created_at
		FROM orders
		WHERE order_id = $1
	`, id)
	return scanOrder(row)
}

func (s *Store) OrderLines(ctx context.Context, orderID int64) ([]order.Line, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, product_id, quantity, price_at_purchase
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []order.Line
	for rows.Next() {
		var ln order.Line
		if err := rows.Scan(&ln.OrderID, &ln.ProductID, &ln.Quantity, &ln.PriceAtPurchase); err != nil {
			return nil, err
		}
		result = append(result, ln)
	}
	return result, rows.Err()
}

func (s *Store) GetConfirmation(ctx context.Context, orderID, userID int64) (order.Confirmation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT o.order_id, o.user_id, o.store_id, o.total_price, o.status, o.created_at,
		       COALESCE(s.name, ''), COALESCE(s.location_code, ''), COALESCE(s.address, '')
		FROM orders o
		LEFT JOIN stores s ON s.store_id = o.store_id
		WHERE o.order_id = $1 AND o.user_id = $2
	`, orderID, userID)

	var (
		conf    order.Confirmation
		storeID sql.NullInt64
	)
	if err := row.Scan(&conf.Order.ID, &conf.Order.UserID, &storeID, &conf.Order.TotalPrice,
		&conf.Order.Status, &conf.Order.CreatedAt, &conf.StoreName, &conf.StoreCode, &conf.StoreAddr); err != nil {
		return order.Confirmation{}, err
	}
	if storeID.Valid {
		conf.Order.StoreID = &storeID.Int64
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT oi.order_id, oi.product_id, oi.quantity, oi.price_at_purchase, p.name, p.image1
		FROM order_items oi
		JOIN products p ON p.product_id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.product_id
	`, orderID)
	if err != nil {
		return order.Confirmation{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var ln order.ConfirmationLine
		if err := rows.Scan(&ln.OrderID, &ln.ProductID, &ln.Quantity, &ln.PriceAtPurchase, &ln.ProductName, &ln.Image); err != nil {
			return order.Confirmation{}, err
		}
		conf.Lines = append(conf.Lines, ln)
	}
	return conf, rows.Err()
}

func (s *Store) ListOrders(ctx context.Context, status order.Status, limit int) ([]order.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.order_id, o.user_id, o.store_id, o.total_price, o.status, o.created_at,
		       u.name, u.email, COALESCE(s.name, ''), COALESCE(s.location_code, '')
		FROM orders o
		JOIN users u ON u.user_id = o.user_id
		LEFT JOIN stores s ON s.store_id = o.store_id
		WHERE $1 = '' OR o.status = $1
		ORDER BY o.created_at DESC
		LIMIT $2
	`, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []order.Summary
	for rows.Next() {
		var (
			sum     order.Summary
			storeID sql.NullInt64
		)
		if err := rows.Scan(&sum.ID, &sum.UserID, &storeID, &sum.TotalPrice, &sum.Status, &sum.CreatedAt,
			&sum.CustomerName, &sum.CustomerEmail, &sum.StoreName, &sum.LocationCode); err != nil {
			return nil, err
		}
		if storeID.Valid {
			sum.StoreID = &storeID.Int64
		}
		result = append(result, sum)
	}
	return result, rows.Err()
}

func (s *Store) ListUserOrders(ctx context.Context, userID int64) ([]order.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, user_id, store_id, total_price, status, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []order.Order
	for rows.Next() {
		ord, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, ord)
	}
	return result, rows.Err()
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status order.Status) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE orders SET status = $2 WHERE order_id = $1
	`, id, status)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.Role == "" {
		u.Role = user.RoleUser
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (name, email, password_hash, role, provider, provider_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING user_id
	`, u.Name, u.Email, u.PasswordHash, u.Role, u.Provider, u.ProviderID, u.CreatedAt, u.UpdatedAt).Scan(&u.ID)
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, name, email, password_hash, role, provider, provider_id, created_at, updated_at
		FROM users
		WHERE user_id = $1
	`, id)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, name, email, password_hash, role, provider, provider_id, created_at, updated_at
		FROM users
		WHERE email = $1
	`, email)
	return scanUser(row)
}

func (s *Store) GetUserByProvider(ctx context.Context, provider, providerID string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, name, email, password_hash, role, provider, provider_id, created_at, updated_at
		FROM users
		WHERE provider = $1 AND provider_id = $2
	`, provider, providerID)
	return scanUser(row)
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	existing, err := s.GetUser(ctx, u.ID)
	if err != nil {
		return user.User{}, err
	}

	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET name = $2, email = $3, password_hash = $4, role = $5, provider = $6, provider_id = $7, updated_at = $8
		WHERE user_id = $1
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.Provider, u.ProviderID, u.UpdatedAt)
	if err != nil {
		return user.User{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *Store) CreateSession(ctx context.Context, sess user.Session) (user.Session, error) {
	sess.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, sess.ID, sess.UserID, sess.TokenHash, sess.ExpiresAt, sess.CreatedAt)
	if err != nil {
		return user.Session{}, err
	}
	return sess, nil
}

func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (user.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, user_id, token_hash, expires_at, created_at
		FROM sessions
		WHERE token_hash = $1 AND expires_at > now()
	`, tokenHash)

	var sess user.Session
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.TokenHash, &sess.ExpiresAt, &sess.CreatedAt); err != nil {
		return user.Session{}, err
	}
	return sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE token_hash = $1
	`, tokenHash)
	return err
}

// --- scan helpers -----------------------------------------------------------

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (catalog.Product, error) {
	var p catalog.Product
	if err := row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Description, &p.Price, &p.Image1, &p.Image2, &p.CreatedAt); err != nil {
		return catalog.Product{}, err
	}
	return p, nil
}

func collectProducts(rows *sql.Rows) ([]catalog.Product, error) {
	var result []catalog.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func scanOrder(row rowScanner) (order.Order, error) {
	var (
		ord     order.Order
		storeID sql.NullInt64
	)
	if err := row.Scan(&ord.ID, &ord.UserID, &storeID, &ord.TotalPrice, &ord.Status, &ord.CreatedAt); err != nil {
		return order.Order{}, err
	}
	if storeID.Valid {
		ord.StoreID = &storeID.Int64
	}
	return ord, nil
}

func scanUser(row rowScanner) (user.User, error) {
	var u user.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Provider, &u.ProviderID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, storage.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func toNullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
