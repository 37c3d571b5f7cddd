package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/nbekov/race-control/models"
	"github.com/nbekov/race-control/repositories"
)

// Фейковые репозитории держат всё в памяти и игнорируют exec:
// транзакционность здесь не проверяется, только семантика команд.

type memState struct {
	races   map[int]*models.Race
	entries map[int]*models.RaceEntry
	laps    []*models.LapTime
	pits    []*models.PitStop
	events  []*models.Event
	racers  map[int]bool

	nextRaceID  int
	nextEntryID int
	nextLapID   int
	nextPitID   int
	nextEventID int
	clock       time.Time
}

func newMemState(racerIDs ...int) *memState {
	racers := make(map[int]bool)
	for _, id := range racerIDs {
		racers[id] = true
	}
	return &memState{
		races:   make(map[int]*models.Race),
		entries: make(map[int]*models.RaceEntry),
		racers:  racers,
		clock:   time.Date(2026, 5, 1, 14, 0, 0, 0, time.UTC),
	}
}

func (m *memState) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

type fakeRaceRepo struct{ state *memState }

func (r *fakeRaceRepo) Create(_ context.Context, _ repositories.SQLExecutor, race *models.Race) error {
	r.state.nextRaceID++
	race.ID = r.state.nextRaceID
	race.CreatedAt = r.state.tick()
	stored := *race
	r.state.races[race.ID] = &stored
	return nil
}

func (r *fakeRaceRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Race, error) {
	race, ok := r.state.races[id]
	if !ok {
		return nil, repositories.ErrRaceNotFound
	}
	copied := *race
	return &copied, nil
}

func (r *fakeRaceRepo) List(_ context.Context) ([]models.Race, error) {
	races := make([]models.Race, 0, len(r.state.races))
	for _, race := range r.state.races {
		races = append(races, *race)
	}
	sort.Slice(races, func(i, j int) bool { return races[i].ID < races[j].ID })
	return races, nil
}

func (r *fakeRaceRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.RaceStatus) error {
	race, ok := r.state.races[id]
	if !ok {
		return repositories.ErrRaceNotFound
	}
	race.Status = status
	return nil
}

type fakeEntryRepo struct{ state *memState }

func (r *fakeEntryRepo) CreateBatch(_ context.Context, _ repositories.SQLExecutor, entries []*models.RaceEntry) error {
	for _, entry := range entries {
		r.state.nextEntryID++
		entry.ID = r.state.nextEntryID
		stored := *entry
		r.state.entries[entry.ID] = &stored
	}
	return nil
}

func (r *fakeEntryRepo) GetByRaceAndRacer(_ context.Context, _ repositories.SQLExecutor, raceID, racerID int) (*models.RaceEntry, error) {
	for _, entry := range r.state.entries {
		if entry.RaceID == raceID && entry.RacerID == racerID {
			copied := *entry
			return &copied, nil
		}
	}
	return nil, repositories.ErrEntryNotFound
}

func (r *fakeEntryRepo) ListByRace(_ context.Context, raceID int) ([]*models.RaceEntry, error) {
	entries := make([]*models.RaceEntry, 0)
	for _, entry := range r.state.entries {
		if entry.RaceID == raceID {
			copied := *entry
			entries = append(entries, &copied)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Position < entries[j].Position })
	return entries, nil
}

func (r *fakeEntryRepo) CountByRace(_ context.Context, _ repositories.SQLExecutor, raceID int) (int, error) {
	count := 0
	for _, entry := range r.state.entries {
		if entry.RaceID == raceID {
			count++
		}
	}
	return count, nil
}

func (r *fakeEntryRepo) UpdatePosition(_ context.Context, _ repositories.SQLExecutor, entryID, newPosition, expectedVersion int) error {
	entry, ok := r.state.entries[entryID]
	if !ok {
		return repositories.ErrEntryNotFound
	}
	if entry.Version != expectedVersion {
		return repositories.ErrEntryVersionConflict
	}
	entry.Position = newPosition
	entry.Version++
	return nil
}

func (r *fakeEntryRepo) UpdateTyre(_ context.Context, _ repositories.SQLExecutor, entryID int, tyre models.TyreType) error {
	entry, ok := r.state.entries[entryID]
	if !ok {
		return repositories.ErrEntryNotFound
	}
	entry.TyreType = tyre
	entry.Version++
	return nil
}

func (r *fakeEntryRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, entryID int, status models.EntryStatus) error {
	entry, ok := r.state.entries[entryID]
	if !ok {
		return repositories.ErrEntryNotFound
	}
	entry.Status = status
	entry.Version++
	return nil
}

type fakeLapRepo struct{ state *memState }

func (r *fakeLapRepo) Create(_ context.Context, _ repositories.SQLExecutor, lap *models.LapTime) error {
	r.state.nextLapID++
	lap.ID = r.state.nextLapID
	lap.CreatedAt = r.state.tick()
	stored := *lap
	r.state.laps = append(r.state.laps, &stored)
	return nil
}

func (r *fakeLapRepo) ListByRace(_ context.Context, raceID int) ([]*models.LapTime, error) {
	laps := make([]*models.LapTime, 0)
	for _, lap := range r.state.laps {
		if lap.RaceID == raceID {
			copied := *lap
			laps = append(laps, &copied)
		}
	}
	return laps, nil
}

type fakePitRepo struct{ state *memState }

func (r *fakePitRepo) Create(_ context.Context, _ repositories.SQLExecutor, pit *models.PitStop) error {
	r.state.nextPitID++
	pit.ID = r.state.nextPitID
	pit.CreatedAt = r.state.tick()
	stored := *pit
	r.state.pits = append(r.state.pits, &stored)
	return nil
}

func (r *fakePitRepo) ListByRace(_ context.Context, raceID int) ([]*models.PitStop, error) {
	pits := make([]*models.PitStop, 0)
	for _, pit := range r.state.pits {
		if pit.RaceID == raceID {
			copied := *pit
			pits = append(pits, &copied)
		}
	}
	return pits, nil
}

type fakeEventRepo struct{ state *memState }

func (r *fakeEventRepo) Append(_ context.Context, _ repositories.SQLExecutor, event *models.Event) error {
	r.state.nextEventID++
	event.ID = r.state.nextEventID
	event.CreatedAt = r.state.tick()
	stored := *event
	r.state.events = append(r.state.events, &stored)
	return nil
}

func (r *fakeEventRepo) ListByRace(_ context.Context, raceID int) ([]*models.Event, error) {
	events := make([]*models.Event, 0)
	for _, event := range r.state.events {
		if event.RaceID == raceID {
			copied := *event
			events = append(events, &copied)
		}
	}
	return events, nil
}

type fakeRacerRepo struct{ state *memState }

func (r *fakeRacerRepo) Create(_ context.Context, _ *models.Racer) error  { return nil }
func (r *fakeRacerRepo) Update(_ context.Context, _ *models.Racer) error { return nil }
func (r *fakeRacerRepo) UpdatePhotoKey(_ context.Context, _ int, _ *string) error {
	return nil
}
func (r *fakeRacerRepo) List(_ context.Context) ([]models.Racer, error) { return nil, nil }
func (r *fakeRacerRepo) CountByTeam(_ context.Context, _ int) (int, error) {
	return 0, nil
}

func (r *fakeRacerRepo) GetByID(_ context.Context, id int) (*models.Racer, error) {
	if !r.state.racers[id] {
		return nil, repositories.ErrRacerNotFound
	}
	return &models.Racer{ID: id}, nil
}

func (r *fakeRacerRepo) MissingIDs(_ context.Context, ids []int) ([]int, error) {
	var missing []int
	for _, id := range ids {
		if !r.state.racers[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) RunInTx(_ context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type fakeBroadcaster struct {
	published []*models.Event
}

func (b *fakeBroadcaster) BroadcastToRace(_ int, event *models.Event) {
	b.published = append(b.published, event)
}

type raceServiceFixture struct {
	service RaceService
	state   *memState
	hub     *fakeBroadcaster
}

func newRaceServiceFixture(racerIDs ...int) *raceServiceFixture {
	state := newMemState(racerIDs...)
	hub := &fakeBroadcaster{}
	service := NewRaceService(
		fakeTxRunner{},
		&fakeRaceRepo{state: state},
		&fakeEntryRepo{state: state},
		&fakeLapRepo{state: state},
		&fakePitRepo{state: state},
		&fakeEventRepo{state: state},
		&fakeRacerRepo{state: state},
		hub,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return &raceServiceFixture{service: service, state: state, hub: hub}
}

func (f *raceServiceFixture) mustCreateRace(t *testing.T, grid ...int) *models.Race {
	t.Helper()
	race, err := f.service.CreateRace(context.Background(), CreateRaceInput{
		Venue:        "Monza",
		TotalLaps:    53,
		StartingGrid: grid,
	})
	if err != nil {
		t.Fatalf("CreateRace: %v", err)
	}
	return race
}

func (f *raceServiceFixture) mustStartRace(t *testing.T, raceID int) {
	t.Helper()
	if _, err := f.service.StartRace(context.Background(), raceID); err != nil {
		t.Fatalf("StartRace: %v", err)
	}
}

func TestCreateRaceCreatesEntriesInGridOrder(t *testing.T) {
	f := newRaceServiceFixture(5, 3, 9)
	race := f.mustCreateRace(t, 5, 3, 9)

	if race.Status != models.RaceStatusPending {
		t.Errorf("expected pending status, got %s", race.Status)
	}

	entries, err := f.service.ListEntries(context.Background(), race.ID)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	wantOrder := []int{5, 3, 9}
	for i, entry := range entries {
		if entry.RacerID != wantOrder[i] {
			t.Errorf("position %d: expected racer %d, got %d", i+1, wantOrder[i], entry.RacerID)
		}
		if entry.Position != i+1 {
			t.Errorf("racer %d: expected position %d, got %d", entry.RacerID, i+1, entry.Position)
		}
		if entry.TyreType != models.TyreMedium {
			t.Errorf("racer %d: expected default medium tyre, got %s", entry.RacerID, entry.TyreType)
		}
		if entry.Status != models.EntryStatusActive {
			t.Errorf("racer %d: expected active status, got %s", entry.RacerID, entry.Status)
		}
	}

	events, err := f.service.ListEvents(context.Background(), race.ID)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != models.EventRaceCreated {
		t.Fatalf("expected race_created event, got %s", events[0].Type)
	}

	var data models.RaceCreatedData
	if err := events[0].DecodeData(&data); err != nil {
		t.Fatalf("DecodeData: %v", err)
	}
	if data.Venue != "Monza" || data.TotalLaps != 53 || data.RacerCount != 3 {
		t.Errorf("unexpected payload: %+v", data)
	}
	if len(data.Grid) != 3 || data.Grid[0] != 5 || data.Grid[1] != 3 || data.Grid[2] != 9 {
		t.Errorf("unexpected grid in payload: %v", data.Grid)
	}
}

func TestCreateRaceValidation(t *testing.T) {
	f := newRaceServiceFixture(1, 2, 3)

	tests := []struct {
		name    string
		input   CreateRaceInput
		wantErr error
	}{
		{
			name:    "empty venue",
			input:   CreateRaceInput{Venue: "   ", TotalLaps: 10, StartingGrid: []int{1, 2}},
			wantErr: ErrVenueRequired,
		},
		{
			name:    "zero laps",
			input:   CreateRaceInput{Venue: "Spa", TotalLaps: 0, StartingGrid: []int{1, 2}},
			wantErr: ErrInvalidTotalLaps,
		},
		{
			name:    "too many laps",
			input:   CreateRaceInput{Venue: "Spa", TotalLaps: 201, StartingGrid: []int{1, 2}},
			wantErr: ErrInvalidTotalLaps,
		},
		{
			name:    "grid of one",
			input:   CreateRaceInput{Venue: "Spa", TotalLaps: 10, StartingGrid: []int{1}},
			wantErr: ErrGridTooSmall,
		},
		{
			name:    "duplicate racer",
			input:   CreateRaceInput{Venue: "Spa", TotalLaps: 10, StartingGrid: []int{1, 2, 1}},
			wantErr: ErrDuplicateRacerInGrid,
		},
		{
			name:    "invalid tyre",
			input:   CreateRaceInput{Venue: "Spa", TotalLaps: 10, StartingGrid: []int{1, 2}, DefaultTyreType: "slick"},
			wantErr: ErrInvalidTyreType,
		},
		{
			name:    "unknown racer",
			input:   CreateRaceInput{Venue: "Spa", TotalLaps: 10, StartingGrid: []int{1, 99}},
			wantErr: ErrRacerNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CreateRace(context.Background(), tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if len(f.state.events) != 0 {
		t.Errorf("rejected commands must not append events, got %d", len(f.state.events))
	}
	if len(f.hub.published) != 0 {
		t.Errorf("rejected commands must not broadcast, got %d", len(f.hub.published))
	}
}

func TestStartRaceTransition(t *testing.T) {
	f := newRaceServiceFixture(1, 2)
	race := f.mustCreateRace(t, 1, 2)

	started, err := f.service.StartRace(context.Background(), race.ID)
	if err != nil {
		t.Fatalf("StartRace: %v", err)
	}
	if started.Status != models.RaceStatusOngoing {
		t.Errorf("expected ongoing, got %s", started.Status)
	}

	if _, err := f.service.StartRace(context.Background(), race.ID); !errors.Is(err, ErrRaceNotPending) {
		t.Fatalf("second start: expected ErrRaceNotPending, got %v", err)
	}

	events, _ := f.service.ListEvents(context.Background(), race.ID)
	if len(events) != 2 {
		t.Fatalf("expected 2 events after create+start, got %d", len(events))
	}
	var data models.RaceStartedData
	if err := events[1].DecodeData(&data); err != nil {
		t.Fatalf("DecodeData: %v", err)
	}
	if data.ParticipantCount != 2 {
		t.Errorf("expected 2 participants in payload, got %d", data.ParticipantCount)
	}
}

func TestStartRaceRequiresEntries(t *testing.T) {
	f := newRaceServiceFixture()
	f.state.nextRaceID++
	f.state.races[1] = &models.Race{ID: 1, Venue: "Suzuka", TotalLaps: 10, Status: models.RaceStatusPending}

	if _, err := f.service.StartRace(context.Background(), 1); !errors.Is(err, ErrRaceHasNoEntries) {
		t.Fatalf("expected ErrRaceHasNoEntries, got %v", err)
	}
}

func TestStartRaceNotFound(t *testing.T) {
	f := newRaceServiceFixture()
	if _, err := f.service.StartRace(context.Background(), 42); !errors.Is(err, ErrRaceNotFound) {
		t.Fatalf("expected ErrRaceNotFound, got %v", err)
	}
}

func TestUpdatePositionRecordsOldAndNew(t *testing.T) {
	f := newRaceServiceFixture(1, 2, 3, 4, 5)
	race := f.mustCreateRace(t, 1, 2, 3, 4, 5)
	f.mustStartRace(t, race.ID)

	entry, err := f.service.UpdatePosition(context.Background(), race.ID, 2, 5)
	if err != nil {
		t.Fatalf("UpdatePosition: %v", err)
	}
	if entry.Position != 5 {
		t.Errorf("expected position 5, got %d", entry.Position)
	}

	events, _ := f.service.ListEvents(context.Background(), race.ID)
	last := events[len(events)-1]
	if last.Type != models.EventPositionChange {
		t.Fatalf("expected position_change, got %s", last.Type)
	}
	var data models.PositionChangeData
	if err := last.DecodeData(&data); err != nil {
		t.Fatalf("DecodeData: %v", err)
	}
	if data.RacerID != 2 || data.OldPosition != 2 || data.NewPosition != 5 {
		t.Errorf("unexpected payload: %+v", data)
	}
}

func TestUpdatePositionValidation(t *testing.T) {
	f := newRaceServiceFixture(1, 2)
	race := f.mustCreateRace(t, 1, 2)
	f.mustStartRace(t, race.ID)

	if _, err := f.service.UpdatePosition(context.Background(), race.ID, 1, 0); !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("expected ErrInvalidPosition, got %v", err)
	}
	if _, err := f.service.UpdatePosition(context.Background(), race.ID, 99, 1); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestMarkLapBoundaries(t *testing.T) {
	f := newRaceServiceFixture(1, 2)
	race := f.mustCreateRace(t, 1, 2)
	f.mustStartRace(t, race.ID)

	lap, err := f.service.MarkLap(context.Background(), race.ID, 1, 300)
	if err != nil {
		t.Fatalf("lap of exactly 300s must be accepted: %v", err)
	}
	if lap.LapTime != 300 {
		t.Errorf("expected lap time 300, got %f", lap.LapTime)
	}

	for _, bad := range []float64{0, -1, 300.5} {
		if _, err := f.service.MarkLap(context.Background(), race.ID, 1, bad); !errors.Is(err, ErrInvalidLapTime) {
			t.Errorf("lap time %f: expected ErrInvalidLapTime, got %v", bad, err)
		}
	}
}

func TestMarkPitStopUpdatesTyre(t *testing.T) {
	f := newRaceServiceFixture(1, 2)
	race := f.mustCreateRace(t, 1, 2)
	f.mustStartRace(t, race.ID)

	pit, err := f.service.MarkPitStop(context.Background(), race.ID, 1, models.TyreHard, 23.5)
	if err != nil {
		t.Fatalf("MarkPitStop: %v", err)
	}
	if pit.TyreType != models.TyreHard {
		t.Errorf("expected hard tyre on pit record, got %s", pit.TyreType)
	}

	entries, _ := f.service.ListEntries(context.Background(), race.ID)
	for _, entry := range entries {
		if entry.RacerID == 1 && entry.TyreType != models.TyreHard {
			t.Errorf("entry tyre not updated, got %s", entry.TyreType)
		}
	}

	if _, err := f.service.MarkPitStop(context.Background(), race.ID, 1, models.TyreSoft, 61); !errors.Is(err, ErrInvalidPitTime) {
		t.Errorf("pit time 61: expected ErrInvalidPitTime, got %v", err)
	}
	if _, err := f.service.MarkPitStop(context.Background(), race.ID, 1, "wet", 20); !errors.Is(err, ErrInvalidTyreType) {
		t.Errorf("invalid tyre: expected ErrInvalidTyreType, got %v", err)
	}

	if _, err := f.service.MarkPitStop(context.Background(), race.ID, 1, models.TyreSoft, 60); err != nil {
		t.Errorf("pit time of exactly 60s must be accepted: %v", err)
	}
}

func TestMarkPitStopWithoutEntryStillRecorded(t *testing.T) {
	f := newRaceServiceFixture(1, 2, 7)
	race := f.mustCreateRace(t, 1, 2)
	f.mustStartRace(t, race.ID)

	// Гонщик 7 существует, но в этой гонке не заявлен.
	pit, err := f.service.MarkPitStop(context.Background(), race.ID, 7, models.TyreSoft, 19)
	if err != nil {
		t.Fatalf("pit stop for unlisted racer must still be recorded: %v", err)
	}
	if pit.ID == 0 {
		t.Error("pit record was not persisted")
	}

	events, _ := f.service.ListEvents(context.Background(), race.ID)
	last := events[len(events)-1]
	if last.Type != models.EventPitStop {
		t.Errorf("expected pit_stop event, got %s", last.Type)
	}
}

func TestMarkDNFKeepsPositionAndAllowsRepeat(t *testing.T) {
	f := newRaceServiceFixture(1, 2, 3)
	race := f.mustCreateRace(t, 1, 2, 3)
	f.mustStartRace(t, race.ID)

	entry, err := f.service.MarkDNF(context.Background(), race.ID, 2)
	if err != nil {
		t.Fatalf("MarkDNF: %v", err)
	}
	if entry.Status != models.EntryStatusDNF {
		t.Errorf("expected DNF status, got %s", entry.Status)
	}
	if entry.Position != 2 {
		t.Errorf("DNF must keep last position, got %d", entry.Position)
	}

	eventsBefore := len(f.state.events)
	if _, err := f.service.MarkDNF(context.Background(), race.ID, 2); err != nil {
		t.Fatalf("repeated DNF must be accepted: %v", err)
	}
	if len(f.state.events) != eventsBefore+1 {
		t.Errorf("repeated DNF must append another event")
	}

	entries, _ := f.service.ListEntries(context.Background(), race.ID)
	active := 0
	for _, e := range entries {
		if e.Status == models.EntryStatusActive {
			active++
		}
	}
	if active != 2 {
		t.Errorf("expected 2 active entries, got %d", active)
	}
}

func TestFinalizeRaceRejectsFurtherUpdates(t *testing.T) {
	f := newRaceServiceFixture(1, 2)
	race := f.mustCreateRace(t, 1, 2)
	f.mustStartRace(t, race.ID)

	finalized, err := f.service.FinalizeRace(context.Background(), race.ID)
	if err != nil {
		t.Fatalf("FinalizeRace: %v", err)
	}
	if finalized.Status != models.RaceStatusCompleted {
		t.Errorf("expected completed, got %s", finalized.Status)
	}

	if _, err := f.service.FinalizeRace(context.Background(), race.ID); !errors.Is(err, ErrRaceAlreadyCompleted) {
		t.Fatalf("second finalize: expected ErrRaceAlreadyCompleted, got %v", err)
	}
	if _, err := f.service.MarkLap(context.Background(), race.ID, 1, 90); !errors.Is(err, ErrRaceCompleted) {
		t.Fatalf("lap after finalize: expected ErrRaceCompleted, got %v", err)
	}
	if _, err := f.service.UpdatePosition(context.Background(), race.ID, 1, 2); !errors.Is(err, ErrRaceCompleted) {
		t.Fatalf("position after finalize: expected ErrRaceCompleted, got %v", err)
	}
	if _, err := f.service.MarkDNF(context.Background(), race.ID, 1); !errors.Is(err, ErrRaceCompleted) {
		t.Fatalf("dnf after finalize: expected ErrRaceCompleted, got %v", err)
	}
	if _, err := f.service.MarkPitStop(context.Background(), race.ID, 1, models.TyreSoft, 20); !errors.Is(err, ErrRaceCompleted) {
		t.Fatalf("pit after finalize: expected ErrRaceCompleted, got %v", err)
	}
}

func TestFinalizePendingRaceAllowed(t *testing.T) {
	f := newRaceServiceFixture(1, 2)
	race := f.mustCreateRace(t, 1, 2)

	// Отмена незапущенной гонки: финализация из pending разрешена.
	finalized, err := f.service.FinalizeRace(context.Background(), race.ID)
	if err != nil {
		t.Fatalf("FinalizeRace from pending: %v", err)
	}
	if finalized.Status != models.RaceStatusCompleted {
		t.Errorf("expected completed, got %s", finalized.Status)
	}
}

func TestEveryCommandPublishesCommittedEvent(t *testing.T) {
	f := newRaceServiceFixture(1, 2, 3)
	ctx := context.Background()

	race := f.mustCreateRace(t, 1, 2, 3)
	f.mustStartRace(t, race.ID)
	if _, err := f.service.MarkLap(ctx, race.ID, 1, 92.411); err != nil {
		t.Fatalf("MarkLap: %v", err)
	}
	if _, err := f.service.UpdatePosition(ctx, race.ID, 3, 1); err != nil {
		t.Fatalf("UpdatePosition: %v", err)
	}
	if _, err := f.service.MarkPitStop(ctx, race.ID, 2, models.TyreSoft, 21.3); err != nil {
		t.Fatalf("MarkPitStop: %v", err)
	}
	if _, err := f.service.MarkDNF(ctx, race.ID, 2); err != nil {
		t.Fatalf("MarkDNF: %v", err)
	}
	if _, err := f.service.FinalizeRace(ctx, race.ID); err != nil {
		t.Fatalf("FinalizeRace: %v", err)
	}

	// Семь команд - семь событий, и все семь ушли подписчикам.
	if len(f.state.events) != 7 {
		t.Fatalf("expected 7 events, got %d", len(f.state.events))
	}
	if len(f.hub.published) != 7 {
		t.Fatalf("expected 7 broadcasts, got %d", len(f.hub.published))
	}

	for i, event := range f.state.events {
		if event.ID == 0 {
			t.Errorf("event %d was published without persisted id", i)
		}
		if i > 0 && event.CreatedAt.Before(f.state.events[i-1].CreatedAt) {
			t.Errorf("event %d created before its predecessor", i)
		}
		if f.hub.published[i].Type != event.Type {
			t.Errorf("broadcast %d: expected %s, got %s", i, event.Type, f.hub.published[i].Type)
		}
	}
}

func TestReplayMatchesEntryState(t *testing.T) {
	f := newRaceServiceFixture(1, 2, 3, 4)
	ctx := context.Background()

	race := f.mustCreateRace(t, 4, 2, 1, 3)
	f.mustStartRace(t, race.ID)
	if _, err := f.service.UpdatePosition(ctx, race.ID, 1, 1); err != nil {
		t.Fatalf("UpdatePosition: %v", err)
	}
	if _, err := f.service.MarkPitStop(ctx, race.ID, 2, models.TyreHard, 24); err != nil {
		t.Fatalf("MarkPitStop: %v", err)
	}
	if _, err := f.service.MarkDNF(ctx, race.ID, 3); err != nil {
		t.Fatalf("MarkDNF: %v", err)
	}
	if _, err := f.service.FinalizeRace(ctx, race.ID); err != nil {
		t.Fatalf("FinalizeRace: %v", err)
	}

	events, err := f.service.ListEvents(ctx, race.ID)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	replayed, err := ReplayEntryStates(events)
	if err != nil {
		t.Fatalf("ReplayEntryStates: %v", err)
	}

	entries, err := f.service.ListEntries(ctx, race.ID)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(replayed) != len(entries) {
		t.Fatalf("replay produced %d entries, store has %d", len(replayed), len(entries))
	}

	for _, entry := range entries {
		state, ok := replayed[entry.RacerID]
		if !ok {
			t.Errorf("racer %d missing from replay", entry.RacerID)
			continue
		}
		if state.Position != entry.Position {
			t.Errorf("racer %d: replay position %d, store %d", entry.RacerID, state.Position, entry.Position)
		}
		if state.TyreType != entry.TyreType {
			t.Errorf("racer %d: replay tyre %s, store %s", entry.RacerID, state.TyreType, entry.TyreType)
		}
		if state.Status != entry.Status {
			t.Errorf("racer %d: replay status %s, store %s", entry.RacerID, state.Status, entry.Status)
		}
	}
}

func TestListEntriesUnknownRace(t *testing.T) {
	f := newRaceServiceFixture()
	if _, err := f.service.ListEntries(context.Background(), 7); !errors.Is(err, ErrRaceNotFound) {
		t.Fatalf("expected ErrRaceNotFound, got %v", err)
	}
}
