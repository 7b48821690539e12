// internal/models/vehicle.go
package models

import "strings"

// Vehicle is a projection of an inventory item from the cars collection.
type Vehicle struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Type        string   `json:"type"`
	Badge       string   `json:"badge,omitempty"`
	Img         string   `json:"img,omitempty"`
	Year        int      `json:"year,omitempty"`
	Featured    bool     `json:"featured,omitempty"`
	Description string   `json:"description,omitempty"`
	Features    []string `json:"features,omitempty"`
}

// Brand is the first word of the vehicle name.
func (v Vehicle) Brand() string {
	fields := strings.Fields(v.Name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

type MatchResult struct {
	ItemID string  `json:"itemId"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}
