package models

import "time"

// RaceStatus представляет статусы гонки, соответствующие ENUM в БД.
type RaceStatus string

const (
	RaceStatusPending   RaceStatus = "pending"
	RaceStatusOngoing   RaceStatus = "ongoing"
	RaceStatusCompleted RaceStatus = "completed"
)

// TyreType - тип резины, общий для записей участников и пит-стопов.
type TyreType string

const (
	TyreSoft   TyreType = "soft"
	TyreMedium TyreType = "medium"
	TyreHard   TyreType = "hard"
)

func (t TyreType) Valid() bool {
	switch t {
	case TyreSoft, TyreMedium, TyreHard:
		return true
	}
	return false
}

// Race представляет одну гонку с фиксированным числом кругов.
// Статус движется строго pending -> ongoing -> completed.
type Race struct {
	ID        int        `json:"id"`
	Venue     string     `json:"venue"`
	TotalLaps int        `json:"totalLaps"`
	Status    RaceStatus `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
}
