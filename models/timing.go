package models

import "time"

// LapTime - факт завершения круга, только добавляется, никогда не изменяется.
type LapTime struct {
	ID        int       `json:"id"`
	RaceID    int       `json:"raceId"`
	RacerID   int       `json:"racerId"`
	LapTime   float64   `json:"lapTime"`
	CreatedAt time.Time `json:"createdAt"`
}

// PitStop - факт пит-стопа; одновременно с ним меняется текущая резина участника.
type PitStop struct {
	ID        int       `json:"id"`
	RaceID    int       `json:"raceId"`
	RacerID   int       `json:"racerId"`
	TyreType  TyreType  `json:"tyreType"`
	PitTime   float64   `json:"pitTime"`
	CreatedAt time.Time `json:"createdAt"`
}
