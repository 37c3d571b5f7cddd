package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/nbekov/race-control/models"
	"github.com/nbekov/race-control/repositories"
)

// RacerGap - отставание гонщика от лидера по сумме времён кругов.
// Gap форматируется с миллисекундной точностью (3 знака).
type RacerGap struct {
	RacerID   int                `json:"racerId"`
	Laps      int                `json:"laps"`
	TotalTime float64            `json:"totalTime"`
	Gap       string             `json:"gap"`
	Status    models.EntryStatus `json:"status"`
}

// StandingsService - производное чтение над журналом кругов; ничего не
// мутирует и не кеширует, пересчитывается по запросу.
type StandingsService interface {
	RaceGaps(ctx context.Context, raceID int) ([]RacerGap, error)
}

type standingsService struct {
	raceRepo  repositories.RaceRepository
	entryRepo repositories.EntryRepository
	lapRepo   repositories.LapTimeRepository
}

func NewStandingsService(
	raceRepo repositories.RaceRepository,
	entryRepo repositories.EntryRepository,
	lapRepo repositories.LapTimeRepository,
) StandingsService {
	return &standingsService{
		raceRepo:  raceRepo,
		entryRepo: entryRepo,
		lapRepo:   lapRepo,
	}
}

func (s *standingsService) RaceGaps(ctx context.Context, raceID int) ([]RacerGap, error) {
	if _, err := s.raceRepo.GetByID(ctx, nil, raceID); err != nil {
		if errors.Is(err, repositories.ErrRaceNotFound) {
			return nil, ErrRaceNotFound
		}
		return nil, err
	}

	var (
		laps    []*models.LapTime
		entries []*models.RaceEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		laps, err = s.lapRepo.ListByRace(gctx, raceID)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = s.entryRepo.ListByRace(gctx, raceID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	totals := make(map[int]float64)
	lapCounts := make(map[int]int)
	for _, lap := range laps {
		totals[lap.RacerID] += lap.LapTime
		lapCounts[lap.RacerID]++
	}
	if len(totals) == 0 {
		return []RacerGap{}, nil
	}

	statuses := make(map[int]models.EntryStatus, len(entries))
	for _, entry := range entries {
		statuses[entry.RacerID] = entry.Status
	}

	leaderTime := -1.0
	for _, total := range totals {
		if leaderTime < 0 || total < leaderTime {
			leaderTime = total
		}
	}

	gaps := make([]RacerGap, 0, len(totals))
	for racerID, total := range totals {
		status, ok := statuses[racerID]
		if !ok {
			status = models.EntryStatusActive
		}
		gaps = append(gaps, RacerGap{
			RacerID:   racerID,
			Laps:      lapCounts[racerID],
			TotalTime: total,
			Gap:       fmt.Sprintf("%.3f", total-leaderTime),
			Status:    status,
		})
	}

	sort.Slice(gaps, func(i, j int) bool {
		if gaps[i].TotalTime != gaps[j].TotalTime {
			return gaps[i].TotalTime < gaps[j].TotalTime
		}
		return gaps[i].RacerID < gaps[j].RacerID
	})
	return gaps, nil
}
