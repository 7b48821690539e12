// internal/models/memory.go
package models

import "time"

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type Preferences struct {
	Brands      []string   `json:"brands"`
	CarTypes    []string   `json:"carTypes"`
	PriceRange  PriceRange `json:"priceRange"`
	LastSeen    time.Time  `json:"lastSeen"`
	IntentScore int        `json:"intentScore"`
}

// CustomerMemory is the long-lived profile kept per customer. History holds unique item ids
// in first-seen order and Notes is append-only.
type CustomerMemory struct {
	CustomerID  string      `json:"customerId"`
	Preferences Preferences `json:"preferences"`
	History     []string    `json:"history"`
	Notes       []string    `json:"notes"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// NewCustomerMemory returns the empty default record for a customer.
func NewCustomerMemory(customerID string, now time.Time) *CustomerMemory {
	return &CustomerMemory{
		CustomerID: customerID,
		Preferences: Preferences{
			Brands:   []string{},
			CarTypes: []string{},
			LastSeen: now,
		},
		History:   []string{},
		Notes:     []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
