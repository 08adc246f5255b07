package models

import "time"

// AdminUser is an account with access to the admin panel.
type AdminUser struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
}

// Admin roles.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// StoredOrder is a finalized order row as kept in the orders table.
type StoredOrder struct {
	ID            int64      `json:"id"`
	UserID        string     `json:"user_id"`
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone"`
	OrderType     string     `json:"order_type"`
	Description   string     `json:"description"`
	Clothing      string     `json:"clothing"`
	Shoes         string     `json:"shoes"`
	Accessories   string     `json:"accessories"`
	Order         *Order     `json:"order_data"`
	Price         float64    `json:"price"`
	Status        string     `json:"status"`
	DeliveryDate  *time.Time `json:"delivery_date,omitempty"`
	DeliveryNotes string     `json:"delivery_notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
