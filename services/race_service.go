package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nbekov/race-control/models"
	"github.com/nbekov/race-control/repositories"
)

// Broadcaster рассылает зафиксированное событие подписчикам гонки.
// Доставка best-effort: ошибки доставки не влияют на результат команды.
type Broadcaster interface {
	BroadcastToRace(raceID int, event *models.Event)
}

// TxRunner выполняет функцию в одной транзакции хранилища (см. db.Runner).
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error
}

type CreateRaceInput struct {
	Venue           string          `json:"venue"`
	TotalLaps       int             `json:"totalLaps"`
	StartingGrid    []int           `json:"startingGrid"`
	DefaultTyreType models.TyreType `json:"defaultTyreType"`
}

// RaceService - оркестратор команд над гонкой. Каждая мутирующая команда:
// валидация -> блокировка гонки -> транзакция (мутации + запись события) ->
// коммит -> публикация события в канал рассылки.
type RaceService interface {
	CreateRace(ctx context.Context, input CreateRaceInput) (*models.Race, error)
	StartRace(ctx context.Context, raceID int) (*models.Race, error)
	UpdatePosition(ctx context.Context, raceID, racerID, newPosition int) (*models.RaceEntry, error)
	MarkLap(ctx context.Context, raceID, racerID int, lapTime float64) (*models.LapTime, error)
	MarkPitStop(ctx context.Context, raceID, racerID int, tyreType models.TyreType, pitTime float64) (*models.PitStop, error)
	MarkDNF(ctx context.Context, raceID, racerID int) (*models.RaceEntry, error)
	FinalizeRace(ctx context.Context, raceID int) (*models.Race, error)

	GetRace(ctx context.Context, raceID int) (*models.Race, error)
	ListRaces(ctx context.Context) ([]models.Race, error)
	ListEntries(ctx context.Context, raceID int) ([]*models.RaceEntry, error)
	ListEvents(ctx context.Context, raceID int) ([]*models.Event, error)
}

type raceService struct {
	tx        TxRunner
	raceRepo  repositories.RaceRepository
	entryRepo repositories.EntryRepository
	lapRepo   repositories.LapTimeRepository
	pitRepo   repositories.PitStopRepository
	eventRepo repositories.EventRepository
	racerRepo repositories.RacerRepository
	hub       Broadcaster
	logger    *slog.Logger

	// Мутирующие команды одной гонки сериализуются; разные гонки
	// выполняются параллельно. Это даёт монотонный порядок событий
	// внутри гонки.
	locksMu sync.Mutex
	locks   map[int]*sync.Mutex
}

func NewRaceService(
	tx TxRunner,
	raceRepo repositories.RaceRepository,
	entryRepo repositories.EntryRepository,
	lapRepo repositories.LapTimeRepository,
	pitRepo repositories.PitStopRepository,
	eventRepo repositories.EventRepository,
	racerRepo repositories.RacerRepository,
	hub Broadcaster,
	logger *slog.Logger,
) RaceService {
	return &raceService{
		tx:        tx,
		raceRepo:  raceRepo,
		entryRepo: entryRepo,
		lapRepo:   lapRepo,
		pitRepo:   pitRepo,
		eventRepo: eventRepo,
		racerRepo: racerRepo,
		hub:       hub,
		logger:    logger,
		locks:     make(map[int]*sync.Mutex),
	}
}

func (s *raceService) lockRace(raceID int) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[raceID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[raceID] = mu
	}
	s.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// publish отправляет событие подписчикам уже после коммита транзакции.
// Отсутствие подписчиков или ошибки доставки не влияют на команду.
func (s *raceService) publish(event *models.Event) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToRace(event.RaceID, event)
}

func (s *raceService) CreateRace(ctx context.Context, input CreateRaceInput) (*models.Race, error) {
	venue := strings.TrimSpace(input.Venue)
	if venue == "" {
		return nil, ErrVenueRequired
	}
	if input.TotalLaps < 1 || input.TotalLaps > 200 {
		return nil, ErrInvalidTotalLaps
	}
	if len(input.StartingGrid) < 2 {
		return nil, ErrGridTooSmall
	}

	seen := make(map[int]struct{}, len(input.StartingGrid))
	for _, racerID := range input.StartingGrid {
		if _, dup := seen[racerID]; dup {
			return nil, ErrDuplicateRacerInGrid
		}
		seen[racerID] = struct{}{}
	}

	tyre := input.DefaultTyreType
	if tyre == "" {
		tyre = models.TyreMedium
	}
	if !tyre.Valid() {
		return nil, ErrInvalidTyreType
	}

	missing, err := s.racerRepo.MissingIDs(ctx, input.StartingGrid)
	if err != nil {
		return nil, fmt.Errorf("failed to verify starting grid: %w", err)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: unknown racer ids %v", ErrRacerNotFound, missing)
	}

	race := &models.Race{
		Venue:     venue,
		TotalLaps: input.TotalLaps,
		Status:    models.RaceStatusPending,
	}

	event, err := models.NewEvent(0, models.EventRaceCreated, models.RaceCreatedData{
		Venue:           venue,
		TotalLaps:       input.TotalLaps,
		RacerCount:      len(input.StartingGrid),
		DefaultTyreType: tyre,
		Grid:            input.StartingGrid,
	})
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if txErr := s.raceRepo.Create(ctx, exec, race); txErr != nil {
			return fmt.Errorf("failed to create race: %w", txErr)
		}

		entries := make([]*models.RaceEntry, 0, len(input.StartingGrid))
		for i, racerID := range input.StartingGrid {
			entries = append(entries, &models.RaceEntry{
				RaceID:   race.ID,
				RacerID:  racerID,
				Position: i + 1,
				TyreType: tyre,
				Status:   models.EntryStatusActive,
			})
		}
		if txErr := s.entryRepo.CreateBatch(ctx, exec, entries); txErr != nil {
			return txErr
		}

		event.RaceID = race.ID
		return s.eventRepo.Append(ctx, exec, event)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("race created",
		slog.Int("race_id", race.ID),
		slog.String("venue", race.Venue),
		slog.Int("racers", len(input.StartingGrid)))
	s.publish(event)
	return race, nil
}

func (s *raceService) StartRace(ctx context.Context, raceID int) (*models.Race, error) {
	defer s.lockRace(raceID)()

	race, err := s.loadRace(ctx, raceID)
	if err != nil {
		return nil, err
	}
	if race.Status != models.RaceStatusPending {
		return nil, ErrRaceNotPending
	}

	participantCount, err := s.entryRepo.CountByRace(ctx, nil, raceID)
	if err != nil {
		return nil, err
	}
	if participantCount == 0 {
		return nil, ErrRaceHasNoEntries
	}

	event, err := models.NewEvent(raceID, models.EventRaceStarted, models.RaceStartedData{
		StartedAt:        time.Now().UTC(),
		ParticipantCount: participantCount,
	})
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if txErr := s.raceRepo.UpdateStatus(ctx, exec, raceID, models.RaceStatusOngoing); txErr != nil {
			return txErr
		}
		return s.eventRepo.Append(ctx, exec, event)
	})
	if err != nil {
		return nil, err
	}

	race.Status = models.RaceStatusOngoing
	s.logger.Info("race started", slog.Int("race_id", raceID), slog.Int("participants", participantCount))
	s.publish(event)
	return race, nil
}

func (s *raceService) UpdatePosition(ctx context.Context, raceID, racerID, newPosition int) (*models.RaceEntry, error) {
	if newPosition < 1 {
		return nil, ErrInvalidPosition
	}

	defer s.lockRace(raceID)()

	if err := s.checkRaceAcceptsUpdates(ctx, raceID); err != nil {
		return nil, err
	}

	entry, err := s.loadEntry(ctx, raceID, racerID)
	if err != nil {
		return nil, err
	}

	event, err := models.NewEvent(raceID, models.EventPositionChange, models.PositionChangeData{
		RacerID:     racerID,
		OldPosition: entry.Position,
		NewPosition: newPosition,
	})
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		txErr := s.entryRepo.UpdatePosition(ctx, exec, entry.ID, newPosition, entry.Version)
		if errors.Is(txErr, repositories.ErrEntryVersionConflict) {
			// Запись успела измениться между чтением и записью
			// (другой экземпляр сервиса). Перечитываем и пробуем ещё раз.
			fresh, reloadErr := s.entryRepo.GetByRaceAndRacer(ctx, exec, raceID, racerID)
			if reloadErr != nil {
				return reloadErr
			}
			entry = fresh
			txErr = s.entryRepo.UpdatePosition(ctx, exec, entry.ID, newPosition, entry.Version)
		}
		if errors.Is(txErr, repositories.ErrEntryVersionConflict) {
			return ErrEntryConflict
		}
		if txErr != nil {
			return txErr
		}
		return s.eventRepo.Append(ctx, exec, event)
	})
	if err != nil {
		return nil, err
	}

	entry.Position = newPosition
	entry.Version++
	s.publish(event)
	return entry, nil
}

func (s *raceService) MarkLap(ctx context.Context, raceID, racerID int, lapTime float64) (*models.LapTime, error) {
	if lapTime <= 0 || lapTime > 300 {
		return nil, ErrInvalidLapTime
	}

	defer s.lockRace(raceID)()

	if err := s.checkRaceAcceptsUpdates(ctx, raceID); err != nil {
		return nil, err
	}

	lap := &models.LapTime{
		RaceID:  raceID,
		RacerID: racerID,
		LapTime: lapTime,
	}

	event, err := models.NewEvent(raceID, models.EventLapCompleted, models.LapCompletedData{
		RacerID: racerID,
		LapTime: lapTime,
	})
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if txErr := s.lapRepo.Create(ctx, exec, lap); txErr != nil {
			return txErr
		}
		return s.eventRepo.Append(ctx, exec, event)
	})
	if err != nil {
		return nil, err
	}

	s.publish(event)
	return lap, nil
}

func (s *raceService) MarkPitStop(ctx context.Context, raceID, racerID int, tyreType models.TyreType, pitTime float64) (*models.PitStop, error) {
	if !tyreType.Valid() {
		return nil, ErrInvalidTyreType
	}
	if pitTime <= 0 || pitTime > 60 {
		return nil, ErrInvalidPitTime
	}

	defer s.lockRace(raceID)()

	if err := s.checkRaceAcceptsUpdates(ctx, raceID); err != nil {
		return nil, err
	}

	pit := &models.PitStop{
		RaceID:   raceID,
		RacerID:  racerID,
		TyreType: tyreType,
		PitTime:  pitTime,
	}

	event, err := models.NewEvent(raceID, models.EventPitStop, models.PitStopData{
		RacerID:  racerID,
		TyreType: tyreType,
		PitTime:  pitTime,
	})
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if txErr := s.pitRepo.Create(ctx, exec, pit); txErr != nil {
			return txErr
		}

		// Факт пит-стопа записывается даже без записи участия: смена
		// резины в этом случае просто пропускается.
		entry, txErr := s.entryRepo.GetByRaceAndRacer(ctx, exec, raceID, racerID)
		if txErr != nil && !errors.Is(txErr, repositories.ErrEntryNotFound) {
			return txErr
		}
		if entry != nil {
			if txErr = s.entryRepo.UpdateTyre(ctx, exec, entry.ID, tyreType); txErr != nil {
				return txErr
			}
		}

		return s.eventRepo.Append(ctx, exec, event)
	})
	if err != nil {
		return nil, err
	}

	s.publish(event)
	return pit, nil
}

func (s *raceService) MarkDNF(ctx context.Context, raceID, racerID int) (*models.RaceEntry, error) {
	defer s.lockRace(raceID)()

	if err := s.checkRaceAcceptsUpdates(ctx, raceID); err != nil {
		return nil, err
	}

	entry, err := s.loadEntry(ctx, raceID, racerID)
	if err != nil {
		return nil, err
	}

	// Повторный DNF принимается и пишет ещё одно событие: журнал
	// фиксирует действия администратора, в том числе избыточные.
	event, err := models.NewEvent(raceID, models.EventDNF, models.DNFData{RacerID: racerID})
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if txErr := s.entryRepo.UpdateStatus(ctx, exec, entry.ID, models.EntryStatusDNF); txErr != nil {
			return txErr
		}
		return s.eventRepo.Append(ctx, exec, event)
	})
	if err != nil {
		return nil, err
	}

	entry.Status = models.EntryStatusDNF
	entry.Version++
	s.logger.Info("racer marked DNF", slog.Int("race_id", raceID), slog.Int("racer_id", racerID))
	s.publish(event)
	return entry, nil
}

func (s *raceService) FinalizeRace(ctx context.Context, raceID int) (*models.Race, error) {
	defer s.lockRace(raceID)()

	race, err := s.loadRace(ctx, raceID)
	if err != nil {
		return nil, err
	}
	if race.Status == models.RaceStatusCompleted {
		return nil, ErrRaceAlreadyCompleted
	}

	event, err := models.NewEvent(raceID, models.EventRaceCompleted, models.RaceCompletedData{
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if txErr := s.raceRepo.UpdateStatus(ctx, exec, raceID, models.RaceStatusCompleted); txErr != nil {
			return txErr
		}
		return s.eventRepo.Append(ctx, exec, event)
	})
	if err != nil {
		return nil, err
	}

	race.Status = models.RaceStatusCompleted
	s.logger.Info("race finalized", slog.Int("race_id", raceID))
	s.publish(event)
	return race, nil
}

func (s *raceService) GetRace(ctx context.Context, raceID int) (*models.Race, error) {
	return s.loadRace(ctx, raceID)
}

func (s *raceService) ListRaces(ctx context.Context) ([]models.Race, error) {
	return s.raceRepo.List(ctx)
}

func (s *raceService) ListEntries(ctx context.Context, raceID int) ([]*models.RaceEntry, error) {
	if _, err := s.loadRace(ctx, raceID); err != nil {
		return nil, err
	}
	return s.entryRepo.ListByRace(ctx, raceID)
}

func (s *raceService) ListEvents(ctx context.Context, raceID int) ([]*models.Event, error) {
	return s.eventRepo.ListByRace(ctx, raceID)
}

func (s *raceService) loadRace(ctx context.Context, raceID int) (*models.Race, error) {
	race, err := s.raceRepo.GetByID(ctx, nil, raceID)
	if err != nil {
		if errors.Is(err, repositories.ErrRaceNotFound) {
			return nil, ErrRaceNotFound
		}
		return nil, err
	}
	return race, nil
}

func (s *raceService) loadEntry(ctx context.Context, raceID, racerID int) (*models.RaceEntry, error) {
	entry, err := s.entryRepo.GetByRaceAndRacer(ctx, nil, raceID, racerID)
	if err != nil {
		if errors.Is(err, repositories.ErrEntryNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}

// checkRaceAcceptsUpdates запрещает lap/pit/position/DNF команды после
// финализации гонки. Статусы pending и ongoing обновления принимают.
func (s *raceService) checkRaceAcceptsUpdates(ctx context.Context, raceID int) error {
	race, err := s.loadRace(ctx, raceID)
	if err != nil {
		return err
	}
	if race.Status == models.RaceStatusCompleted {
		return ErrRaceCompleted
	}
	return nil
}
