// Package decks holds presentation decks for the lifetime of the process.
// Decks are working documents: they are created, edited and exported over
// the API and vanish with the process.
package decks

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/xid"

	"docpress/internal/domain"
	"docpress/internal/metrics"
)

// Limits bounds the store.
type Limits struct {
	MaxDecks         int
	MaxSlidesPerDeck int
}

// Summary is the list view of a deck.
type Summary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	SlideCount int       `json:"slide_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store is the in-memory deck registry. All methods are safe for concurrent
// use; decks are handed out as deep copies so callers never share state with
// the registry.
type Store struct {
	mu     sync.RWMutex
	decks  map[string]*domain.Deck
	limits Limits
}

// NewStore returns an empty registry with the given bounds.
func NewStore(limits Limits) *Store {
	return &Store{
		decks:  make(map[string]*domain.Deck),
		limits: limits,
	}
}

// Create validates the supplied slides and registers a new deck.
func (s *Store) Create(title string, slides []domain.Slide) (*domain.Deck, error) {
	normalized, err := domain.NormalizeSlides(slides)
	if err != nil {
		return nil, err
	}
	if len(normalized) > s.limits.MaxSlidesPerDeck {
		return nil, domain.ErrDeckTooLarge
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.decks) >= s.limits.MaxDecks {
		return nil, domain.ErrDeckStoreFull
	}

	now := time.Now().UTC()
	d := &domain.Deck{
		ID:        xid.New().String(),
		Title:     title,
		Slides:    normalized,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.decks[d.ID] = d
	s.publishStats()
	return d.Clone(), nil
}

// List returns summaries of all decks, oldest first.
func (s *Store) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.decks))
	for _, d := range s.decks {
		out = append(out, Summary{
			ID:         d.ID,
			Title:      d.Title,
			SlideCount: len(d.Slides),
			CreatedAt:  d.CreatedAt,
			UpdatedAt:  d.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Get returns a copy of the deck.
func (s *Store) Get(id string) (*domain.Deck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.decks[id]
	if !ok {
		return nil, domain.ErrDeckNotFound
	}
	return d.Clone(), nil
}

// Delete releases the deck and its slides.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.decks[id]; !ok {
		return domain.ErrDeckNotFound
	}
	delete(s.decks, id)
	s.publishStats()
	return nil
}

// AddSlide inserts a slide at pos (zero appends) and returns the updated
// deck.
func (s *Store) AddSlide(id string, slide domain.Slide, pos int) (*domain.Deck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.decks[id]
	if !ok {
		return nil, domain.ErrDeckNotFound
	}
	if len(d.Slides)+1 > s.limits.MaxSlidesPerDeck {
		return nil, domain.ErrDeckTooLarge
	}
	if err := d.InsertSlide(slide, pos); err != nil {
		return nil, err
	}
	d.UpdatedAt = time.Now().UTC()
	s.publishStats()
	return d.Clone(), nil
}

// UpdateSlide replaces the content of the slide at pos.
func (s *Store) UpdateSlide(id string, pos int, slide domain.Slide) (*domain.Deck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.decks[id]
	if !ok {
		return nil, domain.ErrDeckNotFound
	}
	if err := d.UpdateSlide(pos, slide); err != nil {
		return nil, err
	}
	d.UpdatedAt = time.Now().UTC()
	return d.Clone(), nil
}

// RemoveSlide deletes the slide at pos and renumbers the rest.
func (s *Store) RemoveSlide(id string, pos int) (*domain.Deck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.decks[id]
	if !ok {
		return nil, domain.ErrDeckNotFound
	}
	if err := d.RemoveSlide(pos); err != nil {
		return nil, err
	}
	d.UpdatedAt = time.Now().UTC()
	s.publishStats()
	return d.Clone(), nil
}

// Counts returns the number of decks and slides currently held.
func (s *Store) Counts() (decks, slides int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countsLocked()
}

func (s *Store) countsLocked() (decks, slides int) {
	decks = len(s.decks)
	for _, d := range s.decks {
		slides += len(d.Slides)
	}
	return decks, slides
}

func (s *Store) publishStats() {
	d, sl := s.countsLocked()
	metrics.UpdateDeckStats(d, sl)
}
