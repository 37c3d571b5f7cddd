package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nbekov/race-control/models"
	"github.com/nbekov/race-control/repositories"
	"github.com/nbekov/race-control/storage"
)

// Команда может заявить не более двух гонщиков.
const maxRacersPerTeam = 2

type CreateRacerInput struct {
	Name         string `json:"name"`
	Age          int    `json:"age"`
	Country      string `json:"country"`
	RacingNumber int    `json:"racingNumber"`
	TeamID       int    `json:"teamId"`
}

type UpdateRacerInput struct {
	Name         *string `json:"name,omitempty"`
	Age          *int    `json:"age,omitempty"`
	Country      *string `json:"country,omitempty"`
	RacingNumber *int    `json:"racingNumber,omitempty"`
}

type RacerService interface {
	CreateRacer(ctx context.Context, currentUserID int, input CreateRacerInput) (*models.Racer, error)
	ListRacers(ctx context.Context) ([]models.Racer, error)
	UpdateRacer(ctx context.Context, racerID, currentUserID int, input UpdateRacerInput) (*models.Racer, error)
	UploadPhoto(ctx context.Context, racerID, currentUserID int, contentType string, file io.Reader) (*models.Racer, error)
}

type racerService struct {
	racerRepo repositories.RacerRepository
	teamRepo  repositories.TeamRepository
	uploader  storage.FileUploader
}

func NewRacerService(
	racerRepo repositories.RacerRepository,
	teamRepo repositories.TeamRepository,
	uploader storage.FileUploader,
) RacerService {
	return &racerService{
		racerRepo: racerRepo,
		teamRepo:  teamRepo,
		uploader:  uploader,
	}
}

func (s *racerService) CreateRacer(ctx context.Context, currentUserID int, input CreateRacerInput) (*models.Racer, error) {
	team, err := s.teamRepo.GetByID(ctx, input.TeamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	if team.OwnerID != currentUserID {
		return nil, ErrForbiddenOperation
	}

	count, err := s.racerRepo.CountByTeam(ctx, input.TeamID)
	if err != nil {
		return nil, err
	}
	if count >= maxRacersPerTeam {
		return nil, ErrTeamFull
	}

	racer := &models.Racer{
		Name:         strings.TrimSpace(input.Name),
		Age:          input.Age,
		Country:      input.Country,
		RacingNumber: input.RacingNumber,
		TeamID:       input.TeamID,
	}
	if err := s.racerRepo.Create(ctx, racer); err != nil {
		if errors.Is(err, repositories.ErrRacerNumberConflict) {
			return nil, ErrRacerNumberConflict
		}
		return nil, fmt.Errorf("failed to create racer: %w", err)
	}
	return racer, nil
}

func (s *racerService) ListRacers(ctx context.Context) ([]models.Racer, error) {
	racers, err := s.racerRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range racers {
		s.attachPhotoURL(&racers[i])
	}
	return racers, nil
}

func (s *racerService) UpdateRacer(ctx context.Context, racerID, currentUserID int, input UpdateRacerInput) (*models.Racer, error) {
	racer, err := s.getOwnedRacer(ctx, racerID, currentUserID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
		racer.Name = strings.TrimSpace(*input.Name)
	}
	if input.Age != nil && *input.Age > 0 {
		racer.Age = *input.Age
	}
	if input.Country != nil && *input.Country != "" {
		racer.Country = *input.Country
	}
	if input.RacingNumber != nil && *input.RacingNumber > 0 {
		racer.RacingNumber = *input.RacingNumber
	}

	if err := s.racerRepo.Update(ctx, racer); err != nil {
		if errors.Is(err, repositories.ErrRacerNumberConflict) {
			return nil, ErrRacerNumberConflict
		}
		return nil, err
	}
	s.attachPhotoURL(racer)
	return racer, nil
}

func (s *racerService) UploadPhoto(ctx context.Context, racerID, currentUserID int, contentType string, file io.Reader) (*models.Racer, error) {
	if s.uploader == nil {
		return nil, ErrUploadsNotConfigured
	}

	racer, err := s.getOwnedRacer(ctx, racerID, currentUserID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("racers/%d/photo", racerID)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload racer photo: %w", err)
	}

	if err := s.racerRepo.UpdatePhotoKey(ctx, racerID, &result.Key); err != nil {
		return nil, err
	}
	racer.PhotoKey = &result.Key
	s.attachPhotoURL(racer)
	return racer, nil
}

func (s *racerService) getOwnedRacer(ctx context.Context, racerID, currentUserID int) (*models.Racer, error) {
	racer, err := s.racerRepo.GetByID(ctx, racerID)
	if err != nil {
		if errors.Is(err, repositories.ErrRacerNotFound) {
			return nil, ErrRacerNotFound
		}
		return nil, err
	}
	team, err := s.teamRepo.GetByID(ctx, racer.TeamID)
	if err != nil {
		return nil, err
	}
	if team.OwnerID != currentUserID {
		return nil, ErrForbiddenOperation
	}
	return racer, nil
}

func (s *racerService) attachPhotoURL(racer *models.Racer) {
	if s.uploader == nil || racer.PhotoKey == nil {
		return
	}
	url := s.uploader.GetPublicURL(*racer.PhotoKey)
	if url != "" {
		racer.PhotoURL = &url
	}
}
