package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/musterapp/muster/internal/domain"
	"github.com/musterapp/muster/internal/store"
	"github.com/musterapp/muster/pkg/idx"
)

var ErrInvalidEvent = errors.New("invalid_event")

// EventService is thin glue over the store; the session subsystem is the
// interesting part of this service, not event business rules.
type EventService struct {
	Store store.Store
}

func (s *EventService) CreateEvent(ctx context.Context, ownerID, title, description, subcategoryID string, startsAt time.Time) (domain.Event, error) {
	title = strings.TrimSpace(title)
	if title == "" || startsAt.IsZero() {
		return domain.Event{}, ErrInvalidEvent
	}

	e := domain.Event{
		ID:            idx.New().String(),
		OwnerID:       ownerID,
		Title:         title,
		Description:   strings.TrimSpace(description),
		SubcategoryID: subcategoryID,
		StartsAt:      startsAt,
	}
	if err := s.Store.Events().CreateEvent(ctx, e); err != nil {
		return domain.Event{}, err
	}
	return e, nil
}

func (s *EventService) GetEventByID(ctx context.Context, id string) (domain.Event, error) {
	return s.Store.Events().GetEventByID(ctx, id)
}

func (s *EventService) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return s.Store.Events().ListEvents(ctx)
}

func (s *EventService) CreatePoll(ctx context.Context, eventID, question string, options []string) (domain.Poll, error) {
	question = strings.TrimSpace(question)
	if question == "" || len(options) < 2 {
		return domain.Poll{}, ErrInvalidEvent
	}

	if _, err := s.Store.Events().GetEventByID(ctx, eventID); err != nil {
		return domain.Poll{}, err
	}

	p := domain.Poll{
		ID:       idx.New().String(),
		EventID:  eventID,
		Question: question,
		Options:  options,
	}
	if err := s.Store.Polls().CreatePoll(ctx, p); err != nil {
		return domain.Poll{}, err
	}
	return p, nil
}

func (s *EventService) ListEventPolls(ctx context.Context, eventID string) ([]domain.Poll, error) {
	return s.Store.Polls().ListEventPolls(ctx, eventID)
}

// CatalogSeed describes a category and its subcategories for first-run
// seeding.
type CatalogSeed struct {
	Category      string
	Subcategories []string
}

// SeedCatalog inserts the given categories and subcategories if the catalog is
// empty. Runs at startup; an already-populated catalog is left alone.
func (s *EventService) SeedCatalog(ctx context.Context, seeds []CatalogSeed) error {
	existing, err := s.Store.Categories().ListCategories(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, seed := range seeds {
			c := domain.Category{ID: idx.New().String(), Name: seed.Category}
			if err := tx.Categories().CreateCategory(ctx, c); err != nil {
				return err
			}
			for _, name := range seed.Subcategories {
				sc := domain.Subcategory{ID: idx.New().String(), CategoryID: c.ID, Name: name}
				if err := tx.Categories().CreateSubcategory(ctx, sc); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *EventService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.Store.Categories().ListCategories(ctx)
}

func (s *EventService) ListSubcategories(ctx context.Context) ([]domain.Subcategory, error) {
	return s.Store.Categories().ListSubcategories(ctx)
}
