package decks

import (
	"errors"
	"testing"

	"docpress/internal/domain"
)

func testStore() *Store {
	return NewStore(Limits{MaxDecks: 3, MaxSlidesPerDeck: 4})
}

func TestStore_CreateAssignsIDsAndPositions(t *testing.T) {
	s := testStore()

	d, err := s.Create("quarterly", []domain.Slide{{Title: "intro"}, {Title: "numbers"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.ID == "" {
		t.Fatalf("expected generated deck id")
	}
	if d.CreatedAt.IsZero() || d.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps to be set: %+v", d)
	}
	for i, sl := range d.Slides {
		if sl.Position != i+1 {
			t.Fatalf("expected contiguous positions, got %+v", d.Slides)
		}
	}

	d2, err := s.Create("other", nil)
	if err != nil {
		t.Fatalf("create empty: %v", err)
	}
	if d2.ID == d.ID {
		t.Fatalf("deck ids must be unique")
	}
}

func TestStore_CreateValidation(t *testing.T) {
	s := testStore()

	if _, err := s.Create("bad", []domain.Slide{{Position: 1}, {Position: 3}}); !errors.Is(err, domain.ErrInvalidSlidePositions) {
		t.Fatalf("want ErrInvalidSlidePositions, got %v", err)
	}

	tooMany := make([]domain.Slide, 5)
	if _, err := s.Create("big", tooMany); !errors.Is(err, domain.ErrDeckTooLarge) {
		t.Fatalf("want ErrDeckTooLarge, got %v", err)
	}
}

func TestStore_CreateRespectsDeckLimit(t *testing.T) {
	s := testStore()
	for i := 0; i < 3; i++ {
		if _, err := s.Create("d", nil); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	if _, err := s.Create("overflow", nil); !errors.Is(err, domain.ErrDeckStoreFull) {
		t.Fatalf("want ErrDeckStoreFull, got %v", err)
	}
}

func TestStore_GetAndDelete(t *testing.T) {
	s := testStore()
	d, _ := s.Create("doomed", []domain.Slide{{Title: "only"}})

	got, err := s.Get(d.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "doomed" || len(got.Slides) != 1 {
		t.Fatalf("unexpected deck: %+v", got)
	}

	if err := s.Delete(d.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(d.ID); !errors.Is(err, domain.ErrDeckNotFound) {
		t.Fatalf("want ErrDeckNotFound after delete, got %v", err)
	}
	if err := s.Delete(d.ID); !errors.Is(err, domain.ErrDeckNotFound) {
		t.Fatalf("second delete must report not found, got %v", err)
	}
}

func TestStore_SlideMutations(t *testing.T) {
	s := testStore()
	d, _ := s.Create("work", []domain.Slide{{Title: "one"}, {Title: "three"}})

	updated, err := s.AddSlide(d.ID, domain.Slide{Title: "two"}, 2)
	if err != nil {
		t.Fatalf("add slide: %v", err)
	}
	titles := []string{"one", "two", "three"}
	for i, want := range titles {
		if updated.Slides[i].Title != want || updated.Slides[i].Position != i+1 {
			t.Fatalf("after insert, slide %d = %+v, want title %q", i, updated.Slides[i], want)
		}
	}

	if _, err := s.AddSlide(d.ID, domain.Slide{}, 9); !errors.Is(err, domain.ErrInvalidSlidePositions) {
		t.Fatalf("want ErrInvalidSlidePositions for bad insert position, got %v", err)
	}

	updated, err = s.UpdateSlide(d.ID, 2, domain.Slide{Title: "TWO", Notes: "loud"})
	if err != nil {
		t.Fatalf("update slide: %v", err)
	}
	if updated.Slides[1].Title != "TWO" || updated.Slides[1].Notes != "loud" {
		t.Fatalf("update not applied: %+v", updated.Slides[1])
	}
	if _, err := s.UpdateSlide(d.ID, 7, domain.Slide{}); !errors.Is(err, domain.ErrSlideNotFound) {
		t.Fatalf("want ErrSlideNotFound for update out of range, got %v", err)
	}

	updated, err = s.RemoveSlide(d.ID, 1)
	if err != nil {
		t.Fatalf("remove slide: %v", err)
	}
	if len(updated.Slides) != 2 || updated.Slides[0].Title != "TWO" || updated.Slides[0].Position != 1 {
		t.Fatalf("remove did not renumber: %+v", updated.Slides)
	}

	if _, err := s.AddSlide("ghost", domain.Slide{}, 0); !errors.Is(err, domain.ErrDeckNotFound) {
		t.Fatalf("want ErrDeckNotFound for unknown deck, got %v", err)
	}
}

func TestStore_SlideLimitEnforced(t *testing.T) {
	s := testStore()
	d, _ := s.Create("full", make([]domain.Slide, 4))

	if _, err := s.AddSlide(d.ID, domain.Slide{Title: "overflow"}, 0); !errors.Is(err, domain.ErrDeckTooLarge) {
		t.Fatalf("want ErrDeckTooLarge, got %v", err)
	}
}

func TestStore_ListIsSortedAndCounted(t *testing.T) {
	s := testStore()
	a, _ := s.Create("first", []domain.Slide{{}, {}})
	b, _ := s.Create("second", []domain.Slide{{}})

	list := s.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(list))
	}
	if list[0].ID != a.ID || list[1].ID != b.ID {
		t.Fatalf("expected oldest-first order, got %+v", list)
	}
	if list[0].SlideCount != 2 || list[1].SlideCount != 1 {
		t.Fatalf("unexpected slide counts: %+v", list)
	}

	decks, slides := s.Counts()
	if decks != 2 || slides != 3 {
		t.Fatalf("counts = (%d, %d), want (2, 3)", decks, slides)
	}
}

func TestStore_HandsOutCopies(t *testing.T) {
	s := testStore()
	d, _ := s.Create("shared", []domain.Slide{{Title: "original"}})

	d.Slides[0].Title = "mutated"
	d.Title = "mutated"

	fresh, _ := s.Get(d.ID)
	if fresh.Title != "shared" || fresh.Slides[0].Title != "original" {
		t.Fatalf("store state leaked to callers: %+v", fresh)
	}
}
