package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleEmployee      Role = "employee"
)

func (r Role) Valid() bool {
	return r == RoleAdministrator || r == RoleEmployee
}

type Account struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	RegisteredAt time.Time `json:"registered_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

type Customer struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Phone        string    `json:"phone"`
	Address      Address   `json:"address"`
	Active       bool      `json:"active"`
	RegisteredAt time.Time `json:"registered_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Book struct {
	ID              uuid.UUID       `json:"id"`
	Title           string          `json:"title"`
	Author          string          `json:"author"`
	Genre           string          `json:"genre"`
	Stock           int             `json:"stock"`
	ISBN            string          `json:"isbn"`
	PublicationYear int             `json:"publication_year"`
	Price           decimal.Decimal `json:"price"`
	Description     string          `json:"description"`
	AddedAt         time.Time       `json:"added_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Version         int             `json:"version"`
}

// CartLine is a pending purchase held in the customer's session. Title and
// Author are captured when the line is first added; UnitPrice follows the
// catalog on every add or update.
type CartLine struct {
	BookID    uuid.UUID       `json:"book_id"`
	Title     string          `json:"title"`
	Author    string          `json:"author"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type Channel string

const (
	ChannelInPerson Channel = "in_person"
	ChannelOnline   Channel = "online"
)

const SaleStatusCompleted = "completed"

type Sale struct {
	ID            uuid.UUID       `json:"id"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	CustomerPhone string          `json:"customer_phone,omitempty"`
	StaffID       *uuid.UUID      `json:"staff_id,omitempty"`
	StaffName     string          `json:"staff_name,omitempty"`
	Items         []SaleItem      `json:"items,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	Channel       Channel         `json:"channel"`
	SoldAt        time.Time       `json:"sold_at"`
}

// SaleItem is a frozen copy of the book as it was sold.
type SaleItem struct {
	BookID    uuid.UUID       `json:"book_id"`
	Title     string          `json:"title"`
	Author    string          `json:"author"`
	Genre     string          `json:"genre"`
	ISBN      string          `json:"isbn"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type Dashboard struct {
	TotalBooks      int64           `json:"total_books"`
	ActiveCustomers int64           `json:"active_customers"`
	TotalSales      int64           `json:"total_sales"`
	MonthRevenue    decimal.Decimal `json:"month_revenue"`
	LowStockBooks   []Book          `json:"low_stock_books"`
	RecentSales     []Sale          `json:"recent_sales"`
}
