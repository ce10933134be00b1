package repositories

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/courtsync/courtsync/models"
)

// EventOutboxRepository stores events that could not be delivered before a
// transport shutdown. Rows are deleted once redelivery succeeds.
type EventOutboxRepository interface {
	Persist(ctx context.Context, events []models.TournamentEvent) error
	ListPending(ctx context.Context, tournamentID string) ([]models.TournamentEvent, error)
	Delete(ctx context.Context, eventIDs []string) error
}

type postgresEventOutboxRepository struct {
	db *sql.DB
}

func NewPostgresEventOutboxRepository(db *sql.DB) EventOutboxRepository {
	return &postgresEventOutboxRepository{db: db}
}

func (r *postgresEventOutboxRepository) Persist(ctx context.Context, events []models.TournamentEvent) error {
	query := `
		INSERT INTO event_outbox (id, tournament_id, event)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`

	for _, ev := range events {
		body, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := r.db.ExecContext(ctx, query, ev.ID, ev.TournamentID, body); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresEventOutboxRepository) ListPending(ctx context.Context, tournamentID string) ([]models.TournamentEvent, error) {
	query := `
		SELECT event
		FROM event_outbox
		WHERE tournament_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]models.TournamentEvent, 0)
	for rows.Next() {
		var body []byte
		if scanErr := rows.Scan(&body); scanErr != nil {
			return nil, scanErr
		}
		var ev models.TournamentEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *postgresEventOutboxRepository) Delete(ctx context.Context, eventIDs []string) error {
	query := `DELETE FROM event_outbox WHERE id = $1`
	for _, id := range eventIDs {
		if _, err := r.db.ExecContext(ctx, query, id); err != nil {
			return err
		}
	}
	return nil
}
