package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/courtsync/courtsync/models"
)

var (
	ErrTournamentNotFound = errors.New("tournament not found")
)

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error
	GetByID(ctx context.Context, id string) (*models.Tournament, error)
	List(ctx context.Context, status *models.TournamentStatus) ([]*models.Tournament, error)
	UpdateStatus(ctx context.Context, id string, status models.TournamentStatus) error
	UpdateRoundCount(ctx context.Context, exec SQLExecutor, id string, roundCount int) error
	LinkTeams(ctx context.Context, exec SQLExecutor, tournamentID string, teamIDs []string) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	settings, err := json.Marshal(t.Settings)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tournaments (id, name, type, status, settings, round_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	return exec.QueryRowContext(ctx, query,
		t.ID,
		t.Name,
		t.Type,
		t.Status,
		settings,
		t.RoundCount,
	).Scan(&t.CreatedAt)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id string) (*models.Tournament, error) {
	query := `
		SELECT id, name, type, status, settings, round_count, created_at
		FROM tournaments
		WHERE id = $1`

	t := &models.Tournament{}
	var settings []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.Name,
		&t.Type,
		&t.Status,
		&settings,
		&t.RoundCount,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &t.Settings); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, status *models.TournamentStatus) ([]*models.Tournament, error) {
	query := `
		SELECT id, name, type, status, settings, round_count, created_at
		FROM tournaments`
	args := []interface{}{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*models.Tournament, 0)
	for rows.Next() {
		t := &models.Tournament{}
		var settings []byte
		if scanErr := rows.Scan(&t.ID, &t.Name, &t.Type, &t.Status, &settings, &t.RoundCount, &t.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		if len(settings) > 0 {
			if err := json.Unmarshal(settings, &t.Settings); err != nil {
				return nil, err
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, id string, status models.TournamentStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tournaments SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTournamentNotFound
	}
	return nil
}

func (r *postgresTournamentRepository) UpdateRoundCount(ctx context.Context, exec SQLExecutor, id string, roundCount int) error {
	res, err := exec.ExecContext(ctx, `UPDATE tournaments SET round_count = $2 WHERE id = $1`, id, roundCount)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTournamentNotFound
	}
	return nil
}

func (r *postgresTournamentRepository) LinkTeams(ctx context.Context, exec SQLExecutor, tournamentID string, teamIDs []string) error {
	query := `INSERT INTO tournament_teams (tournament_id, team_id) VALUES ($1, $2)`
	for _, teamID := range teamIDs {
		if _, err := exec.ExecContext(ctx, query, tournamentID, teamID); err != nil {
			return err
		}
	}
	return nil
}
