package models

import "time"

// Racer принадлежит команде; команда может заявить не более двух гонщиков.
type Racer struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Age          int       `json:"age"`
	Country      string    `json:"country"`
	RacingNumber int       `json:"racingNumber"`
	TeamID       int       `json:"teamId"`
	PhotoKey     *string   `json:"-"`
	PhotoURL     *string   `json:"photoUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`

	Team *Team `json:"team,omitempty"`
}
