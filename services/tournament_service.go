package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/courtsync/courtsync/brackets"
	"github.com/courtsync/courtsync/models"
	"github.com/courtsync/courtsync/realtime"
	"github.com/courtsync/courtsync/repositories"
	"github.com/courtsync/courtsync/state"
	"github.com/courtsync/courtsync/storage"
)

type TournamentService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	matchRepo      repositories.MatchRepository
	transport      realtime.Transport
	archiver       storage.SnapshotArchiver // optional
	registry       *ManagerRegistry
	logger         *slog.Logger
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	transport realtime.Transport,
	archiver storage.SnapshotArchiver,
	registry *ManagerRegistry,
	logger *slog.Logger,
) *TournamentService {
	return &TournamentService{
		db:             db,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		matchRepo:      matchRepo,
		transport:      transport,
		archiver:       archiver,
		registry:       registry,
		logger:         logger,
	}
}

// Create persists a tournament with its finalized team list. The team list
// is fixed at creation; there is no registration window.
func (s *TournamentService) Create(ctx context.Context, t *models.Tournament) error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrTournamentNameRequired
	}
	if len(t.Teams) == 0 {
		return ErrTeamListRequired
	}
	if _, err := brackets.ForType(t.Type); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Status = models.TournamentStatusSetup

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.tournamentRepo.Create(ctx, tx, t); err != nil {
		return err
	}
	teamIDs := make([]string, 0, len(t.Teams))
	for _, team := range t.Teams {
		if team.ID == "" {
			team.ID = uuid.NewString()
		}
		if err := s.teamRepo.Create(ctx, tx, team); err != nil {
			return err
		}
		teamIDs = append(teamIDs, team.ID)
	}
	if err := s.tournamentRepo.LinkTeams(ctx, tx, t.ID, teamIDs); err != nil {
		return err
	}
	return tx.Commit()
}

// Get loads a tournament with its teams and matches. The two child loads are
// independent and run concurrently.
func (s *TournamentService) Get(ctx context.Context, id string) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		teams, err := s.teamRepo.ListByTournament(gctx, id)
		if err != nil {
			return err
		}
		t.Teams = teams
		return nil
	})
	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gctx, id, nil, nil)
		if err != nil {
			return err
		}
		t.Matches = matches
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(t.Matches) > 0 {
		t.Bracket = bracketFromMatches(t.Matches)
	}
	return t, nil
}

func (s *TournamentService) List(ctx context.Context, status *models.TournamentStatus) ([]*models.Tournament, error) {
	return s.tournamentRepo.List(ctx, status)
}

// GenerateBracket seeds the team list and builds the bracket for the
// tournament's format. Legal only in setup; regenerating replaces any
// previous bracket.
func (s *TournamentService) GenerateBracket(ctx context.Context, id string) (*models.BracketStructure, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != models.TournamentStatusSetup {
		return nil, ErrBracketLocked
	}

	bs, err := brackets.Generate(t)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	t.Bracket = bs
	t.RoundCount = bs.TotalRounds

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.matchRepo.DeleteByTournament(ctx, tx, id); err != nil {
		return nil, err
	}
	if err := s.matchRepo.CreateBatch(ctx, tx, bs.AllMatches()); err != nil {
		return nil, err
	}
	if err := s.tournamentRepo.UpdateRoundCount(ctx, tx, id, bs.TotalRounds); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	ev := models.NewTournamentEvent(models.EventBracketUpdate, id, models.SourceAdmin)
	ev.Payload = map[string]any{"total_rounds": bs.TotalRounds, "total_matches": bs.TotalMatches}
	if err := s.transport.Publish(ctx, ev); err != nil && !errors.Is(err, realtime.ErrOfflineQueued) {
		s.logger.Warn("failed to publish bracket update", slog.String("tournament_id", id), slog.Any("error", err))
	}
	return bs, nil
}

// Start transitions setup -> in_progress and brings up the live state
// manager for the tournament.
func (s *TournamentService) Start(ctx context.Context, id string) error {
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if t.Bracket == nil {
		return ErrBracketNotGenerated
	}
	if !t.CanTransitionTo(models.TournamentStatusInProgress) {
		return ErrTournamentInvalidStatusTransition
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, id, models.TournamentStatusInProgress); err != nil {
		return err
	}
	t.Status = models.TournamentStatusInProgress

	mgr, err := state.NewManager(t, s.transport, s.logger)
	if err != nil {
		return err
	}
	mgr.Subscribe(s.persistenceHook(id))
	s.registry.Put(id, mgr)
	return nil
}

// Resume rebuilds managers for tournaments that were in progress when the
// process last stopped.
func (s *TournamentService) Resume(ctx context.Context) error {
	status := models.TournamentStatusInProgress
	running, err := s.tournamentRepo.List(ctx, &status)
	if err != nil {
		return err
	}
	for _, t := range running {
		full, err := s.Get(ctx, t.ID)
		if err != nil {
			return err
		}
		if full.Bracket == nil {
			continue
		}
		mgr, err := state.NewManager(full, s.transport, s.logger)
		if err != nil {
			return err
		}
		mgr.Subscribe(s.persistenceHook(t.ID))
		s.registry.Put(t.ID, mgr)
		s.logger.Info("resumed tournament", slog.String("tournament_id", t.ID))
	}
	return nil
}

// SeedPoolWinners fills the playoff bracket of a pool play tournament once
// pool standings are known. Winners are given in pool order; walkovers
// created by uneven pool counts resolve immediately.
func (s *TournamentService) SeedPoolWinners(ctx context.Context, id string, winnerIDs []string) error {
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if t.Type != models.TypePoolPlay {
		return ErrNotPoolPlay
	}
	mgr, ok := s.registry.Get(id)
	if !ok {
		return ErrTournamentInvalidStatusTransition
	}

	live := mgr.Tournament()
	for _, m := range live.Bracket.AllMatches() {
		if strings.HasPrefix(m.ID, "P") && !strings.HasPrefix(m.ID, "PO") && m.Status != models.MatchStatusCompleted && m.Status != models.MatchStatusBye {
			return ErrPoolsNotFinished
		}
	}

	slots := brackets.PoolWinnerSlots(live.Bracket)
	if len(slots) == 0 {
		return ErrBracketNotGenerated
	}
	for i, winnerID := range winnerIDs {
		if i/2 >= len(slots) {
			break
		}
		slots[i/2].FillSlot(winnerID)
	}
	touched := brackets.NewResolver(live.Bracket.AllMatches()).ResolvePending()

	dirty := make([]*models.Match, 0, len(slots)+len(touched))
	dirty = append(dirty, slots...)
	dirty = append(dirty, touched...)
	for _, m := range dirty {
		if err := s.matchRepo.Update(ctx, m); err != nil {
			return err
		}
	}

	ev := models.NewTournamentEvent(models.EventBracketUpdate, id, models.SourceAdmin)
	ev.Payload = map[string]any{"playoff_seeded": true}
	if err := s.transport.Publish(ctx, ev); err != nil && !errors.Is(err, realtime.ErrOfflineQueued) {
		s.logger.Warn("failed to publish playoff seeding", slog.String("tournament_id", id), slog.Any("error", err))
	}
	return nil
}

// persistenceHook mirrors every live mutation into the database so a process
// restart can resume from persisted state. It runs on the manager's local
// notification path.
func (s *TournamentService) persistenceHook(tournamentID string) realtime.Handler {
	return func(ev models.TournamentEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		switch ev.Type {
		case models.EventTournamentComplete:
			s.finishTournament(ctx, tournamentID)
		case models.EventMatchStart, models.EventScoreUpdate, models.EventMatchEnd,
			models.EventTeamAdvance, models.EventMatchScheduleChange:
			if ev.MatchID == nil {
				return
			}
			mgr, ok := s.registry.Get(tournamentID)
			if !ok {
				return
			}
			match, err := mgr.Match(*ev.MatchID)
			if err != nil {
				return
			}
			if err := s.matchRepo.Update(ctx, match); err != nil {
				s.logger.Error("failed to persist match update",
					slog.String("match_id", match.ID), slog.Any("error", err))
			}
		}
	}
}

// finishTournament persists the terminal status and archives a final
// snapshot. The two writes are independent.
func (s *TournamentService) finishTournament(ctx context.Context, tournamentID string) {
	mgr, ok := s.registry.Get(tournamentID)
	if !ok {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.tournamentRepo.UpdateStatus(gctx, tournamentID, models.TournamentStatusCompleted)
	})
	if s.archiver != nil {
		g.Go(func() error {
			snapshot, err := json.Marshal(mgr.Tournament())
			if err != nil {
				return err
			}
			key := fmt.Sprintf("tournaments/%s/final.json", tournamentID)
			res, err := s.archiver.Archive(gctx, key, snapshot)
			if err != nil {
				return err
			}
			s.logger.Info("archived tournament snapshot",
				slog.String("tournament_id", tournamentID), slog.String("location", res.Location))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to finalize tournament",
			slog.String("tournament_id", tournamentID), slog.Any("error", err))
	}
}

// bracketFromMatches regroups persisted matches into display rounds. Round
// names are not stored, so reconstructed rounds carry generic names.
func bracketFromMatches(matches []*models.Match) *models.BracketStructure {
	byRound := make(map[int][]*models.Match)
	numbers := make([]int, 0)
	for _, m := range matches {
		if _, seen := byRound[m.Round]; !seen {
			numbers = append(numbers, m.Round)
		}
		byRound[m.Round] = append(byRound[m.Round], m)
	}
	sort.Ints(numbers)

	bs := &models.BracketStructure{
		TotalRounds:  len(numbers),
		TotalMatches: len(matches),
	}
	for _, n := range numbers {
		ms := byRound[n]
		sort.Slice(ms, func(i, j int) bool { return ms[i].Position < ms[j].Position })
		bs.Rounds = append(bs.Rounds, &models.BracketRound{
			Number:  n,
			Name:    fmt.Sprintf("Round %d", n),
			Matches: ms,
		})
	}
	return bs
}
