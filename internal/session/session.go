// Package session keeps server-side session state in Redis and guards routes
// on the identity scopes it holds.
package session

import (
	"github.com/google/uuid"
	"github.com/safar/go-bookstore/internal/models"
)

type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashWarning = "warning"
)

// Session is the server-side state behind one cookie. The staff and customer
// identities are independent scopes.
type Session struct {
	Token string `json:"-"`

	StaffID   *uuid.UUID  `json:"staff_id,omitempty"`
	StaffName string      `json:"staff_name,omitempty"`
	StaffRole models.Role `json:"staff_role,omitempty"`

	CustomerID    *uuid.UUID `json:"customer_id,omitempty"`
	CustomerName  string     `json:"customer_name,omitempty"`
	CustomerEmail string     `json:"customer_email,omitempty"`

	Flashes []Flash `json:"flashes,omitempty"`

	dirty bool
}

func (s *Session) LoginStaff(account *models.Account) {
	id := account.ID
	s.StaffID = &id
	s.StaffName = account.Name
	s.StaffRole = account.Role
	s.dirty = true
}

func (s *Session) LoginCustomer(customer *models.Customer) {
	id := customer.ID
	s.CustomerID = &id
	s.CustomerName = customer.Name
	s.CustomerEmail = customer.Email
	s.dirty = true
}

// Reset drops both identities and any pending flashes.
func (s *Session) Reset() {
	token := s.Token
	*s = Session{Token: token, dirty: true}
}

func (s *Session) Has(scope Scope) bool {
	switch scope {
	case ScopeStaff:
		return s.StaffID != nil
	case ScopeCustomer:
		return s.CustomerID != nil
	}
	return false
}

func (s *Session) AddFlash(category, message string) {
	s.Flashes = append(s.Flashes, Flash{Category: category, Message: message})
	s.dirty = true
}

// PopFlashes returns and clears the pending flashes.
func (s *Session) PopFlashes() []Flash {
	flashes := s.Flashes
	if len(flashes) > 0 {
		s.Flashes = nil
		s.dirty = true
	}
	return flashes
}

func (s *Session) Dirty() bool {
	return s.dirty
}
