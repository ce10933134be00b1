package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/courtsync/courtsync/models"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error
	GetByID(ctx context.Context, tournamentID, id string) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID string, round *int, status *models.MatchStatus) ([]*models.Match, error)
	Update(ctx context.Context, match *models.Match) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `tournament_id, id, round, position, team1_id, team2_id,
	winner_id, loser_id, score_team1, score_team2, status, scheduled_at, court,
	parent_match_ids, child_match_ids, loser_child_id`

func (r *postgresMatchRepository) CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error {
	query := `
		INSERT INTO matches (` + matchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	for _, m := range matches {
		var s1, s2 *int
		if m.Score != nil {
			s1, s2 = &m.Score.Team1, &m.Score.Team2
		}
		_, err := exec.ExecContext(ctx, query,
			m.TournamentID,
			m.ID,
			m.Round,
			m.Position,
			m.Team1ID,
			m.Team2ID,
			m.WinnerID,
			m.LoserID,
			s1,
			s2,
			m.Status,
			m.ScheduledAt,
			m.Court,
			pq.Array(m.ParentMatchIDs),
			pq.Array(m.ChildMatchIDs),
			m.LoserChildID,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, tournamentID, id string) (*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1 AND id = $2`

	m, err := scanMatch(r.db.QueryRowContext(ctx, query, tournamentID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID string, roundFilter *int, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	placeholder := 2

	if roundFilter != nil {
		queryBuilder.WriteString(" AND round = $")
		queryBuilder.WriteString(strconv.Itoa(placeholder))
		args = append(args, *roundFilter)
		placeholder++
	}
	if statusFilter != nil {
		queryBuilder.WriteString(" AND status = $")
		queryBuilder.WriteString(strconv.Itoa(placeholder))
		args = append(args, *statusFilter)
		placeholder++
	}
	queryBuilder.WriteString(" ORDER BY round ASC, position ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) Update(ctx context.Context, match *models.Match) error {
	query := `
		UPDATE matches
		SET team1_id = $3, team2_id = $4, winner_id = $5, loser_id = $6,
		    score_team1 = $7, score_team2 = $8, status = $9,
		    scheduled_at = $10, court = $11
		WHERE tournament_id = $1 AND id = $2`

	var s1, s2 *int
	if match.Score != nil {
		s1, s2 = &match.Score.Team1, &match.Score.Team2
	}
	res, err := r.db.ExecContext(ctx, query,
		match.TournamentID,
		match.ID,
		match.Team1ID,
		match.Team2ID,
		match.WinnerID,
		match.LoserID,
		s1,
		s2,
		match.Status,
		match.ScheduledAt,
		match.Court,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMatchNotFound
	}
	return nil
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) error {
	_, err := exec.ExecContext(ctx, `DELETE FROM matches WHERE tournament_id = $1`, tournamentID)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner) (*models.Match, error) {
	m := &models.Match{}
	var s1, s2 *int
	var parents, children pq.StringArray
	err := row.Scan(
		&m.TournamentID,
		&m.ID,
		&m.Round,
		&m.Position,
		&m.Team1ID,
		&m.Team2ID,
		&m.WinnerID,
		&m.LoserID,
		&s1,
		&s2,
		&m.Status,
		&m.ScheduledAt,
		&m.Court,
		&parents,
		&children,
		&m.LoserChildID,
	)
	if err != nil {
		return nil, err
	}
	if s1 != nil && s2 != nil {
		m.Score = &models.Score{Team1: *s1, Team2: *s2}
	}
	m.ParentMatchIDs = parents
	m.ChildMatchIDs = children
	return m, nil
}
