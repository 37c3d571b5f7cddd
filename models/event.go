package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	EventRaceCreated    EventType = "race_created"
	EventRaceStarted    EventType = "race_started"
	EventPositionChange EventType = "position_change"
	EventLapCompleted   EventType = "lap_completed"
	EventPitStop        EventType = "pit_stop"
	EventDNF            EventType = "dnf"
	EventRaceCompleted  EventType = "race_completed"
)

// Event - неизменяемая запись одного действия над состоянием гонки.
// Журнал событий является каноничной историей гонки и полезной нагрузкой
// для live-рассылки. Data хранит типизированный payload, форма которого
// определяется полем Type (см. структуры *Data ниже).
type Event struct {
	ID        int             `json:"id"`
	RaceID    int             `json:"raceId"`
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Payload-структуры - по одной на тип события. Никогда не используем
// свободную map: у каждого типа фиксированный набор полей.

type RaceCreatedData struct {
	Venue           string   `json:"venue"`
	TotalLaps       int      `json:"totalLaps"`
	RacerCount      int      `json:"racerCount"`
	DefaultTyreType TyreType `json:"defaultTyreType"`
	Grid            []int    `json:"grid"`
}

type RaceStartedData struct {
	StartedAt        time.Time `json:"startedAt"`
	ParticipantCount int       `json:"participantCount"`
}

type PositionChangeData struct {
	RacerID     int `json:"racerId"`
	OldPosition int `json:"oldPosition"`
	NewPosition int `json:"newPosition"`
}

type LapCompletedData struct {
	RacerID int     `json:"racerId"`
	LapTime float64 `json:"lapTime"`
}

type PitStopData struct {
	RacerID  int      `json:"racerId"`
	TyreType TyreType `json:"tyreType"`
	PitTime  float64  `json:"pitTime"`
}

type DNFData struct {
	RacerID int `json:"racerId"`
}

type RaceCompletedData struct {
	CompletedAt time.Time `json:"completedAt"`
}

// NewEvent упаковывает типизированный payload в запись события.
func NewEvent(raceID int, eventType EventType, data interface{}) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event data: %w", eventType, err)
	}
	return &Event{
		RaceID: raceID,
		Type:   eventType,
		Data:   raw,
	}, nil
}

// DecodeData распаковывает payload события в переданную структуру.
func (e *Event) DecodeData(dst interface{}) error {
	if err := json.Unmarshal(e.Data, dst); err != nil {
		return fmt.Errorf("failed to decode %s event data: %w", e.Type, err)
	}
	return nil
}
