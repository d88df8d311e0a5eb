package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/musterapp/muster/internal/domain"
)

type eventsRepo struct {
	db dbtx
}

func (r *eventsRepo) CreateEvent(ctx context.Context, e domain.Event) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO events (id, owner_id, title, description, subcategory_id, starts_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerID, e.Title, e.Description, e.SubcategoryID, e.StartsAt.UTC(), now, now,
	)
	return err
}

func (r *eventsRepo) GetEventByID(ctx context.Context, id string) (domain.Event, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, description, subcategory_id, starts_at, created_at, updated_at
		FROM events WHERE id = ?`, id)

	var e domain.Event
	err := row.Scan(&e.ID, &e.OwnerID, &e.Title, &e.Description, &e.SubcategoryID,
		&e.StartsAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return domain.Event{}, mapNotFound(err)
	}
	return e, nil
}

func (r *eventsRepo) ListEvents(ctx context.Context) ([]domain.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, title, description, subcategory_id, starts_at, created_at, updated_at
		FROM events ORDER BY starts_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Title, &e.Description, &e.SubcategoryID,
			&e.StartsAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *eventsRepo) DeleteEvent(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	return err
}

type pollsRepo struct {
	db dbtx
}

func (r *pollsRepo) CreatePoll(ctx context.Context, p domain.Poll) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO polls (id, event_id, question, options, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.EventID, p.Question, strings.Join(p.Options, "\n"), time.Now().UTC(),
	)
	return err
}

func (r *pollsRepo) ListEventPolls(ctx context.Context, eventID string) ([]domain.Poll, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_id, question, options, created_at
		FROM polls WHERE event_id = ? ORDER BY created_at ASC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Poll
	for rows.Next() {
		var p domain.Poll
		var options string
		if err := rows.Scan(&p.ID, &p.EventID, &p.Question, &options, &p.CreatedAt); err != nil {
			return nil, err
		}
		if options != "" {
			p.Options = strings.Split(options, "\n")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
