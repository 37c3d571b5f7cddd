package services

import (
	"testing"

	"github.com/nbekov/race-control/models"
)

func mustReplayEvent(t *testing.T, eventType models.EventType, data interface{}) *models.Event {
	t.Helper()
	event, err := models.NewEvent(1, eventType, data)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	return event
}

func TestReplayUnknownEventType(t *testing.T) {
	events := []*models.Event{
		{RaceID: 1, Type: "weather_change", Data: []byte(`{}`)},
	}
	if _, err := ReplayEntryStates(events); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestReplayPositionChangeForUnknownRacer(t *testing.T) {
	events := []*models.Event{
		mustReplayEvent(t, models.EventRaceCreated, models.RaceCreatedData{
			Venue: "Spa", TotalLaps: 10, RacerCount: 2,
			DefaultTyreType: models.TyreMedium, Grid: []int{1, 2},
		}),
		mustReplayEvent(t, models.EventPositionChange, models.PositionChangeData{
			RacerID: 9, OldPosition: 1, NewPosition: 2,
		}),
	}
	if _, err := ReplayEntryStates(events); err == nil {
		t.Fatal("expected error for position change of unknown racer")
	}
}

func TestReplayPitStopForUnlistedRacerIgnored(t *testing.T) {
	events := []*models.Event{
		mustReplayEvent(t, models.EventRaceCreated, models.RaceCreatedData{
			Venue: "Spa", TotalLaps: 10, RacerCount: 2,
			DefaultTyreType: models.TyreMedium, Grid: []int{1, 2},
		}),
		mustReplayEvent(t, models.EventPitStop, models.PitStopData{
			RacerID: 9, TyreType: models.TyreSoft, PitTime: 20,
		}),
	}

	states, err := ReplayEntryStates(events)
	if err != nil {
		t.Fatalf("ReplayEntryStates: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("expected 2 entry states, got %d", len(states))
	}
	if states[1].TyreType != models.TyreMedium || states[2].TyreType != models.TyreMedium {
		t.Error("pit stop of unlisted racer must not change listed entries")
	}
}
