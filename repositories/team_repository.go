package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/courtsync/courtsync/models"
)

var ErrTeamNotFound = errors.New("team not found")

type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, id string) (*models.Team, error)
	ListByTournament(ctx context.Context, tournamentID string) ([]*models.Team, error)
	// UpdateRecord writes back win/loss/tie totals and power rating after a
	// tournament; it feeds seeding of future tournaments, never the
	// current bracket.
	UpdateRecord(ctx context.Context, id string, wins, losses, ties int, powerRating float64) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	query := `
		INSERT INTO teams (id, name, seed, power_rating, wins, losses, ties, region, division)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := exec.ExecContext(ctx, query,
		team.ID,
		team.Name,
		team.Seed,
		team.PowerRating,
		team.Wins,
		team.Losses,
		team.Ties,
		team.Region,
		team.Division,
	)
	return err
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id string) (*models.Team, error) {
	query := `
		SELECT id, name, seed, power_rating, wins, losses, ties, region, division
		FROM teams
		WHERE id = $1`

	team := &models.Team{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&team.ID,
		&team.Name,
		&team.Seed,
		&team.PowerRating,
		&team.Wins,
		&team.Losses,
		&team.Ties,
		&team.Region,
		&team.Division,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}

func (r *postgresTeamRepository) ListByTournament(ctx context.Context, tournamentID string) ([]*models.Team, error) {
	query := `
		SELECT t.id, t.name, t.seed, t.power_rating, t.wins, t.losses, t.ties, t.region, t.division
		FROM teams t
		JOIN tournament_teams tt ON tt.team_id = t.id
		WHERE tt.tournament_id = $1
		ORDER BY t.seed NULLS LAST, t.power_rating DESC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		var team models.Team
		if scanErr := rows.Scan(
			&team.ID,
			&team.Name,
			&team.Seed,
			&team.PowerRating,
			&team.Wins,
			&team.Losses,
			&team.Ties,
			&team.Region,
			&team.Division,
		); scanErr != nil {
			return nil, scanErr
		}
		teams = append(teams, &team)
	}
	return teams, rows.Err()
}

func (r *postgresTeamRepository) UpdateRecord(ctx context.Context, id string, wins, losses, ties int, powerRating float64) error {
	query := `
		UPDATE teams
		SET wins = $2, losses = $3, ties = $4, power_rating = $5
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, wins, losses, ties, powerRating)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTeamNotFound
	}
	return nil
}
