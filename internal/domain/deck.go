package domain

import (
	"sort"
	"time"
)

// Slide is one page of a presentation deck. Position is 1-based and unique
// within its deck; every other field defaults to the empty string.
type Slide struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Notes    string `json:"notes"`
	Layout   string `json:"layout"`
}

// Deck is an ordered collection of slides. Slides are owned by the deck:
// they are created through it, renumbered by it and discarded with it.
//
// Invariant: after every exported mutation the slide positions are exactly
// 1..len(Slides), in ascending order.
type Deck struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Slides    []Slide   `json:"slides"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeSlides validates and orders slides supplied by a client.
// Either no slide carries a position (all are numbered in order of
// appearance) or every slide does, in which case the positions must form the
// set 1..N; the result is sorted by position. Mixing set and unset positions
// is rejected.
func NormalizeSlides(slides []Slide) ([]Slide, error) {
	if len(slides) == 0 {
		return []Slide{}, nil
	}
	withPos := 0
	for _, s := range slides {
		if s.Position != 0 {
			withPos++
		}
	}
	out := make([]Slide, len(slides))
	copy(out, slides)
	switch withPos {
	case 0:
		for i := range out {
			out[i].Position = i + 1
		}
	case len(slides):
		sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
		for i, s := range out {
			if s.Position != i+1 {
				return nil, ErrInvalidSlidePositions
			}
		}
	default:
		return nil, ErrInvalidSlidePositions
	}
	return out, nil
}

// InsertSlide places s at position pos, shifting later slides up by one.
// pos may be 1..len+1; zero means append. The deck is renumbered afterwards.
func (d *Deck) InsertSlide(s Slide, pos int) error {
	n := len(d.Slides)
	if pos == 0 {
		pos = n + 1
	}
	if pos < 1 || pos > n+1 {
		return ErrInvalidSlidePositions
	}
	d.Slides = append(d.Slides, Slide{})
	copy(d.Slides[pos:], d.Slides[pos-1:])
	d.Slides[pos-1] = s
	d.renumber()
	return nil
}

// UpdateSlide replaces the content fields of the slide at pos. The position
// itself is immutable here; moving a slide is a remove plus insert.
func (d *Deck) UpdateSlide(pos int, s Slide) error {
	if pos < 1 || pos > len(d.Slides) {
		return ErrSlideNotFound
	}
	d.Slides[pos-1].Title = s.Title
	d.Slides[pos-1].Content = s.Content
	d.Slides[pos-1].Notes = s.Notes
	d.Slides[pos-1].Layout = s.Layout
	return nil
}

// RemoveSlide deletes the slide at pos and renumbers the remainder.
func (d *Deck) RemoveSlide(pos int) error {
	if pos < 1 || pos > len(d.Slides) {
		return ErrSlideNotFound
	}
	d.Slides = append(d.Slides[:pos-1], d.Slides[pos:]...)
	d.renumber()
	return nil
}

// SlideAt returns the slide at pos.
func (d *Deck) SlideAt(pos int) (Slide, error) {
	if pos < 1 || pos > len(d.Slides) {
		return Slide{}, ErrSlideNotFound
	}
	return d.Slides[pos-1], nil
}

// Clone returns a deep copy. Handing out copies keeps JSON marshalling and
// template rendering outside the store lock.
func (d *Deck) Clone() *Deck {
	cp := *d
	cp.Slides = make([]Slide, len(d.Slides))
	copy(cp.Slides, d.Slides)
	return &cp
}

func (d *Deck) renumber() {
	for i := range d.Slides {
		d.Slides[i].Position = i + 1
	}
}
