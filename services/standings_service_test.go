package services

import (
	"context"
	"errors"
	"testing"

	"github.com/nbekov/race-control/models"
)

func newStandingsFixture(racerIDs ...int) (*raceServiceFixture, StandingsService) {
	f := newRaceServiceFixture(racerIDs...)
	standings := NewStandingsService(
		&fakeRaceRepo{state: f.state},
		&fakeEntryRepo{state: f.state},
		&fakeLapRepo{state: f.state},
	)
	return f, standings
}

func TestRaceGapsOrderingAndFormat(t *testing.T) {
	f, standings := newStandingsFixture(1, 2, 3)
	ctx := context.Background()

	race := f.mustCreateRace(t, 1, 2, 3)
	f.mustStartRace(t, race.ID)

	// Гонщик 2 лидирует: 90.0 + 91.0; гонщик 1 отстаёт на 1.5 секунды.
	laps := []struct {
		racerID int
		lapTime float64
	}{
		{2, 90.0},
		{1, 91.0},
		{2, 91.0},
		{1, 91.5},
		{3, 100.0},
	}
	for _, lap := range laps {
		if _, err := f.service.MarkLap(ctx, race.ID, lap.racerID, lap.lapTime); err != nil {
			t.Fatalf("MarkLap(%d, %f): %v", lap.racerID, lap.lapTime, err)
		}
	}
	if _, err := f.service.MarkDNF(ctx, race.ID, 3); err != nil {
		t.Fatalf("MarkDNF: %v", err)
	}

	gaps, err := standings.RaceGaps(ctx, race.ID)
	if err != nil {
		t.Fatalf("RaceGaps: %v", err)
	}
	if len(gaps) != 3 {
		t.Fatalf("expected 3 racers in standings, got %d", len(gaps))
	}

	if gaps[0].RacerID != 2 || gaps[0].Gap != "0.000" {
		t.Errorf("leader: expected racer 2 with gap 0.000, got racer %d gap %s", gaps[0].RacerID, gaps[0].Gap)
	}
	if gaps[0].Laps != 2 || gaps[0].TotalTime != 181.0 {
		t.Errorf("leader totals: expected 2 laps / 181.0, got %d / %f", gaps[0].Laps, gaps[0].TotalTime)
	}

	if gaps[1].RacerID != 1 || gaps[1].Gap != "1.500" {
		t.Errorf("second: expected racer 1 with gap 1.500, got racer %d gap %s", gaps[1].RacerID, gaps[1].Gap)
	}

	if gaps[2].RacerID != 3 {
		t.Errorf("third: expected racer 3, got %d", gaps[2].RacerID)
	}
	if gaps[2].Status != models.EntryStatusDNF {
		t.Errorf("racer 3: expected DNF status in standings, got %s", gaps[2].Status)
	}
	if gaps[2].Laps != 1 {
		t.Errorf("racer 3: expected 1 lap, got %d", gaps[2].Laps)
	}
}

func TestRaceGapsNoLaps(t *testing.T) {
	f, standings := newStandingsFixture(1, 2)
	race := f.mustCreateRace(t, 1, 2)

	gaps, err := standings.RaceGaps(context.Background(), race.ID)
	if err != nil {
		t.Fatalf("RaceGaps: %v", err)
	}
	if gaps == nil || len(gaps) != 0 {
		t.Fatalf("expected empty standings before any laps, got %v", gaps)
	}
}

func TestRaceGapsUnknownRace(t *testing.T) {
	_, standings := newStandingsFixture()
	if _, err := standings.RaceGaps(context.Background(), 123); !errors.Is(err, ErrRaceNotFound) {
		t.Fatalf("expected ErrRaceNotFound, got %v", err)
	}
}
