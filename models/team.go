package models

import "time"

type Team struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Country   string    `json:"country"`
	OwnerID   int       `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`

	LogoKey *string `json:"-"`
	LogoURL *string `json:"logoUrl,omitempty"`

	Owner  *User   `json:"owner,omitempty"`
	Racers []Racer `json:"racers,omitempty"`
}
