package models

import "time"

// Option is an entry of the typed lookup catalogue (e.g. "country" / "Latvia").
type Option struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	Remarks   *string   `json:"remarks,omitempty"`
	Status    bool      `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	CreatedBy *string   `json:"createdBy,omitempty"`
	UpdatedBy *string   `json:"updatedBy,omitempty"`
}

// OptionListItem is the minimal projection used by list endpoints.
type OptionListItem struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}
