package services

import (
	"context"
	"errors"
	"time"

	"github.com/courtsync/courtsync/brackets"
	"github.com/courtsync/courtsync/models"
	"github.com/courtsync/courtsync/repositories"
	"github.com/courtsync/courtsync/state"
)

// MatchService routes live match mutations through the tournament's state
// manager. Reads go straight to the database so they work for tournaments
// that are not currently running.
type MatchService struct {
	matchRepo repositories.MatchRepository
	registry  *ManagerRegistry
}

func NewMatchService(matchRepo repositories.MatchRepository, registry *ManagerRegistry) *MatchService {
	return &MatchService{matchRepo: matchRepo, registry: registry}
}

func (s *MatchService) manager(tournamentID string) (*state.Manager, error) {
	mgr, ok := s.registry.Get(tournamentID)
	if !ok {
		return nil, ErrTournamentInvalidStatusTransition
	}
	return mgr, nil
}

func (s *MatchService) Get(ctx context.Context, tournamentID, matchID string) (*models.Match, error) {
	// Prefer the live view; it may be ahead of the database.
	if mgr, ok := s.registry.Get(tournamentID); ok {
		if m, err := mgr.Match(matchID); err == nil {
			return m, nil
		}
	}
	m, err := s.matchRepo.GetByID(ctx, tournamentID, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *MatchService) List(ctx context.Context, tournamentID string, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	return s.matchRepo.ListByTournament(ctx, tournamentID, round, status)
}

func (s *MatchService) Start(ctx context.Context, tournamentID, matchID string) error {
	mgr, err := s.manager(tournamentID)
	if err != nil {
		return err
	}
	return mapManagerError(mgr.StartMatch(ctx, matchID))
}

func (s *MatchService) UpdateScore(ctx context.Context, tournamentID, matchID string, team1, team2 int) error {
	mgr, err := s.manager(tournamentID)
	if err != nil {
		return err
	}
	return mapManagerError(mgr.UpdateScore(ctx, matchID, team1, team2))
}

func (s *MatchService) End(ctx context.Context, tournamentID, matchID, winnerID, loserID string) error {
	mgr, err := s.manager(tournamentID)
	if err != nil {
		return err
	}
	return mapManagerError(mgr.EndMatch(ctx, matchID, winnerID, loserID))
}

func (s *MatchService) Reschedule(ctx context.Context, tournamentID, matchID string, at time.Time, court string) error {
	mgr, err := s.manager(tournamentID)
	if err != nil {
		return err
	}
	return mapManagerError(mgr.RescheduleMatch(ctx, matchID, at, court))
}

func mapManagerError(err error) error {
	if errors.Is(err, brackets.ErrMatchNotFound) {
		return ErrMatchNotFound
	}
	return err
}
