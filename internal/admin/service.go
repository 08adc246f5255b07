// Package admin backs the management panel: operator login, order review and
// customer account maintenance.
package admin

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"figurachat/internal/models"
)

// Errors surfaced to the HTTP layer.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("admin user not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrLastAdmin          = errors.New("cannot delete the last admin account")
)

// Service implements the admin panel operations over the relational store.
type Service struct {
	db *sql.DB
}

// NewService builds the admin service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// SeedDefaultAdmin creates the bootstrap admin account when no admin exists
// yet, so a fresh install can log into the panel.
func (s *Service) SeedDefaultAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	var admins int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM admin_users WHERE role = ?`, models.RoleAdmin,
	).Scan(&admins); err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if admins > 0 {
		return nil
	}
	_, err := s.CreateUser(ctx, username, password, "Administrador", "", models.RoleAdmin)
	return err
}

// Login checks credentials and returns the matching account.
func (s *Service) Login(ctx context.Context, username, password string) (*models.AdminUser, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.userByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash != hashPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ListOrders returns the most recent stored orders, newest first.
func (s *Service) ListOrders(ctx context.Context, limit int) ([]*models.StoredOrder, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, customer_name, customer_phone, order_type, description, order_data,
		        price, status, delivery_date, delivery_notes, created_at, updated_at
		 FROM orders ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.StoredOrder
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// GetOrder loads one stored order by id.
func (s *Service) GetOrder(ctx context.Context, id int64) (*models.StoredOrder, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, customer_name, customer_phone, order_type, description, order_data,
		        price, status, delivery_date, delivery_notes, created_at, updated_at
		 FROM orders WHERE id = ?`, id,
	)
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	return order, err
}

// OrderUpdate carries the editable order fields. Nil members are left as is.
type OrderUpdate struct {
	CustomerName  *string    `json:"customer_name"`
	CustomerPhone *string    `json:"customer_phone"`
	OrderType     *string    `json:"order_type"`
	Price         *float64   `json:"price"`
	Status        *string    `json:"status"`
	DeliveryDate  *time.Time `json:"delivery_date"`
	DeliveryNotes *string    `json:"delivery_notes"`
}

// UpdateOrder applies a partial edit and returns the refreshed row.
func (s *Service) UpdateOrder(ctx context.Context, id int64, upd OrderUpdate) (*models.StoredOrder, error) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if upd.CustomerName != nil {
		add("customer_name", strings.TrimSpace(*upd.CustomerName))
	}
	if upd.CustomerPhone != nil {
		add("customer_phone", strings.TrimSpace(*upd.CustomerPhone))
	}
	if upd.OrderType != nil {
		add("order_type", strings.TrimSpace(*upd.OrderType))
	}
	if upd.Price != nil {
		add("price", *upd.Price)
	}
	if upd.Status != nil {
		add("status", strings.TrimSpace(*upd.Status))
	}
	if upd.DeliveryDate != nil {
		add("delivery_date", upd.DeliveryDate.UTC())
	}
	if upd.DeliveryNotes != nil {
		add("delivery_notes", *upd.DeliveryNotes)
	}
	if len(sets) == 0 {
		return s.GetOrder(ctx, id)
	}
	add("updated_at", time.Now().UTC())
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrOrderNotFound
	}
	return s.GetOrder(ctx, id)
}

// ListUsers returns every admin account.
func (s *Service) ListUsers(ctx context.Context) ([]*models.AdminUser, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, password_hash, full_name, email, role FROM admin_users ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list admin users: %w", err)
	}
	defer rows.Close()

	var users []*models.AdminUser
	for rows.Next() {
		u := new(models.AdminUser)
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Email, &u.Role); err != nil {
			return nil, fmt.Errorf("scan admin user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateUser adds an admin account. The role defaults to viewer.
func (s *Service) CreateUser(ctx context.Context, username, password, fullName, email, role string) (*models.AdminUser, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}
	if role != models.RoleAdmin {
		role = models.RoleViewer
	}
	if _, err := s.userByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO admin_users (username, password_hash, full_name, email, role, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		username, hashPassword(password), fullName, email, role, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert admin user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("admin user id: %w", err)
	}
	return &models.AdminUser{
		ID:           id,
		Username:     username,
		PasswordHash: hashPassword(password),
		FullName:     fullName,
		Email:        email,
		Role:         role,
	}, nil
}

// UserUpdate carries the editable account fields. An empty password keeps the
// current one.
type UserUpdate struct {
	Password *string `json:"password"`
	FullName *string `json:"full_name"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
}

// UpdateUser applies a partial account edit.
func (s *Service) UpdateUser(ctx context.Context, id int64, upd UserUpdate) (*models.AdminUser, error) {
	var (
		sets []string
		args []any
	)
	if upd.Password != nil && *upd.Password != "" {
		sets = append(sets, "password_hash = ?")
		args = append(args, hashPassword(*upd.Password))
	}
	if upd.FullName != nil {
		sets = append(sets, "full_name = ?")
		args = append(args, *upd.FullName)
	}
	if upd.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *upd.Email)
	}
	if upd.Role != nil {
		role := *upd.Role
		if role != models.RoleAdmin {
			role = models.RoleViewer
		}
		sets = append(sets, "role = ?")
		args = append(args, role)
	}
	if len(sets) > 0 {
		args = append(args, id)
		res, err := s.db.ExecContext(ctx,
			`UPDATE admin_users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...,
		)
		if err != nil {
			return nil, fmt.Errorf("update admin user: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return nil, ErrUserNotFound
		}
	}
	return s.userByID(ctx, id)
}

// DeleteUser removes an account. The last remaining admin cannot be deleted.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	user, err := s.userByID(ctx, id)
	if err != nil {
		return err
	}
	if user.Role == models.RoleAdmin {
		var admins int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM admin_users WHERE role = ?`, models.RoleAdmin,
		).Scan(&admins); err != nil {
			return fmt.Errorf("count admins: %w", err)
		}
		if admins <= 1 {
			return ErrLastAdmin
		}
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM admin_tokens WHERE admin_id = ?`, id); err != nil {
		return fmt.Errorf("delete admin tokens: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM admin_users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete admin user: %w", err)
	}
	return nil
}

func (s *Service) userByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	u := new(models.AdminUser)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, full_name, email, role FROM admin_users WHERE username = ?`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Email, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup admin user: %w", err)
	}
	return u, nil
}

func (s *Service) userByID(ctx context.Context, id int64) (*models.AdminUser, error) {
	u := new(models.AdminUser)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, full_name, email, role FROM admin_users WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Email, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup admin user: %w", err)
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.StoredOrder, error) {
	var (
		order    models.StoredOrder
		descr    sql.NullString
		rawData  sql.NullString
		phone    sql.NullString
		notes    sql.NullString
		delivery sql.NullTime
	)
	err := row.Scan(&order.ID, &order.UserID, &order.CustomerName, &phone, &order.OrderType,
		&descr, &rawData, &order.Price, &order.Status, &delivery, &notes, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	order.CustomerPhone = phone.String
	order.Description = descr.String
	order.DeliveryNotes = notes.String
	if delivery.Valid {
		t := delivery.Time
		order.DeliveryDate = &t
	}
	if raw := strings.TrimSpace(rawData.String); raw != "" {
		var o models.Order
		if err := json.Unmarshal([]byte(raw), &o); err == nil {
			order.Order = &o
			// Panel projections derived from the snapshot, plus a recap for
			// rows stored before the description column was filled.
			order.Clothing = o.UpperBody
			order.Shoes = o.Feet
			order.Accessories = o.ExtraDetails
			if order.Description == "" {
				order.Description = o.Description()
			}
		}
	}
	return &order, nil
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
