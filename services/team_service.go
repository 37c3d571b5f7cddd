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

type CreateTeamInput struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

type UpdateTeamInput struct {
	Name    *string `json:"name,omitempty"`
	Country *string `json:"country,omitempty"`
}

type TeamService interface {
	CreateTeam(ctx context.Context, ownerID int, input CreateTeamInput) (*models.Team, error)
	ListTeams(ctx context.Context) ([]models.Team, error)
	UpdateTeam(ctx context.Context, teamID, currentUserID int, input UpdateTeamInput) (*models.Team, error)
	UploadLogo(ctx context.Context, teamID, currentUserID int, contentType string, file io.Reader) (*models.Team, error)
}

type teamService struct {
	teamRepo repositories.TeamRepository
	uploader storage.FileUploader
}

func NewTeamService(teamRepo repositories.TeamRepository, uploader storage.FileUploader) TeamService {
	return &teamService{teamRepo: teamRepo, uploader: uploader}
}

func (s *teamService) CreateTeam(ctx context.Context, ownerID int, input CreateTeamInput) (*models.Team, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}

	team := &models.Team{
		Name:    name,
		Country: input.Country,
		OwnerID: ownerID,
	}
	if err := s.teamRepo.Create(ctx, team); err != nil {
		if errors.Is(err, repositories.ErrTeamNameConflict) {
			return nil, ErrTeamNameConflict
		}
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	s.attachLogoURL(team)
	return team, nil
}

func (s *teamService) ListTeams(ctx context.Context) ([]models.Team, error) {
	teams, err := s.teamRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range teams {
		s.attachLogoURL(&teams[i])
	}
	return teams, nil
}

func (s *teamService) UpdateTeam(ctx context.Context, teamID, currentUserID int, input UpdateTeamInput) (*models.Team, error) {
	team, err := s.getOwnedTeam(ctx, teamID, currentUserID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
		team.Name = strings.TrimSpace(*input.Name)
	}
	if input.Country != nil && *input.Country != "" {
		team.Country = *input.Country
	}

	if err := s.teamRepo.Update(ctx, team); err != nil {
		if errors.Is(err, repositories.ErrTeamNameConflict) {
			return nil, ErrTeamNameConflict
		}
		return nil, err
	}
	s.attachLogoURL(team)
	return team, nil
}

func (s *teamService) UploadLogo(ctx context.Context, teamID, currentUserID int, contentType string, file io.Reader) (*models.Team, error) {
	if s.uploader == nil {
		return nil, ErrUploadsNotConfigured
	}

	team, err := s.getOwnedTeam(ctx, teamID, currentUserID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("teams/%d/logo", teamID)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload team logo: %w", err)
	}

	if err := s.teamRepo.UpdateLogoKey(ctx, teamID, &result.Key); err != nil {
		return nil, err
	}
	team.LogoKey = &result.Key
	s.attachLogoURL(team)
	return team, nil
}

func (s *teamService) getOwnedTeam(ctx context.Context, teamID, currentUserID int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	if team.OwnerID != currentUserID {
		return nil, ErrForbiddenOperation
	}
	return team, nil
}

func (s *teamService) attachLogoURL(team *models.Team) {
	if s.uploader == nil || team.LogoKey == nil {
		return
	}
	url := s.uploader.GetPublicURL(*team.LogoKey)
	if url != "" {
		team.LogoURL = &url
	}
}
