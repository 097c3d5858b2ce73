package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"docpress/internal/decks"
	"docpress/internal/domain"
	"docpress/internal/infra/logging"
)

// DeckHandlers exposes the deck assembly endpoints. Exports go through the
// shared DocumentService, so they cache and fail like every other render.
type DeckHandlers struct {
	Store     *decks.Store
	Documents *DocumentService
}

type createDeckRequest struct {
	Title  string         `json:"title"`
	Slides []domain.Slide `json:"slides"`
}

// HandleCreateDeck registers a new deck. Slides are optional; when present
// they either all carry positions forming 1..N or none do.
func (h *DeckHandlers) HandleCreateDeck(c *fiber.Ctx) error {
	var req createDeckRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body: "+err.Error())
	}
	if strings.TrimSpace(req.Title) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Deck title must not be empty")
	}

	d, err := h.Store.Create(req.Title, req.Slides)
	if err != nil {
		return deckError(err)
	}

	logging.Info("Deck created", "deck_id", d.ID, "slides", len(d.Slides))
	return c.Status(fiber.StatusCreated).JSON(d)
}

// HandleListDecks returns summaries of all decks.
func (h *DeckHandlers) HandleListDecks(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"decks": h.Store.List()})
}

// HandleGetDeck returns one deck with all slides.
func (h *DeckHandlers) HandleGetDeck(c *fiber.Ctx) error {
	d, err := h.Store.Get(c.Params("id"))
	if err != nil {
		return deckError(err)
	}
	return c.JSON(d)
}

// HandleDeleteDeck removes a deck and its slides.
func (h *DeckHandlers) HandleDeleteDeck(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Store.Delete(id); err != nil {
		return deckError(err)
	}
	logging.Info("Deck deleted", "deck_id", id)
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleAddSlide inserts the slide from the body. Its position field picks
// the insertion point; zero appends.
func (h *DeckHandlers) HandleAddSlide(c *fiber.Ctx) error {
	var slide domain.Slide
	if err := c.BodyParser(&slide); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body: "+err.Error())
	}

	d, err := h.Store.AddSlide(c.Params("id"), slide, slide.Position)
	if err != nil {
		return deckError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(d)
}

// HandleUpdateSlide replaces the content of the slide at the path position.
func (h *DeckHandlers) HandleUpdateSlide(c *fiber.Ctx) error {
	pos, err := c.ParamsInt("pos")
	if err != nil || pos < 1 {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid slide position")
	}
	var slide domain.Slide
	if err := c.BodyParser(&slide); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body: "+err.Error())
	}

	d, err := h.Store.UpdateSlide(c.Params("id"), pos, slide)
	if err != nil {
		return deckError(err)
	}
	return c.JSON(d)
}

// HandleRemoveSlide deletes the slide at the path position and renumbers the
// remainder.
func (h *DeckHandlers) HandleRemoveSlide(c *fiber.Ctx) error {
	pos, err := c.ParamsInt("pos")
	if err != nil || pos < 1 {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid slide position")
	}

	d, err := h.Store.RemoveSlide(c.Params("id"), pos)
	if err != nil {
		return deckError(err)
	}
	return c.JSON(d)
}

// HandleExportPDF renders the deck to PDF. The usual format, orientation,
// margin and filename options apply; decks default to landscape and
// notes=true adds the speaker notes to each page.
func (h *DeckHandlers) HandleExportPDF(c *fiber.Ctx) error {
	d, err := h.Store.Get(c.Params("id"))
	if err != nil {
		return deckError(err)
	}

	params, err := extractRenderOptions(c.Query, *h.Documents.Config)
	if err != nil {
		return err
	}
	if c.Query("orientation") == "" {
		params.Orientation = "landscape"
		params.Paper.Width, params.Paper.Height = params.Paper.Height, params.Paper.Width
	}
	if c.Query("filename") == "" {
		params.Filename = d.ID + ".pdf"
	}
	includeNotes := c.QueryBool("notes")

	html, err := decks.RenderHTML(d, includeNotes)
	if err != nil {
		logging.Error("Deck render failed", "deck_id", d.ID, "error", err.Error())
		return fiber.NewError(fiber.StatusInternalServerError, "Deck rendering failed")
	}
	params.HTML = html

	return h.Documents.respondPDF(c, params, deckCacheKey(d, params, includeNotes), "deck")
}

// deckCacheKey folds the deck revision into the cache key, so edits
// invalidate earlier exports.
func deckCacheKey(d *domain.Deck, params *renderParams, includeNotes bool) string {
	h := sha256.New()
	h.Write([]byte("deck:" + d.ID))
	h.Write([]byte(d.UpdatedAt.UTC().Format(time.RFC3339Nano)))
	h.Write([]byte(params.Format))
	h.Write([]byte(params.Orientation))
	h.Write([]byte(strconv.FormatFloat(params.Margin, 'f', 2, 64)))
	h.Write([]byte(strconv.FormatBool(includeNotes)))
	return "pdfcache:" + hex.EncodeToString(h.Sum(nil))
}

// deckError maps store errors onto HTTP errors.
func deckError(err error) error {
	switch {
	case errors.Is(err, domain.ErrDeckNotFound), errors.Is(err, domain.ErrSlideNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidSlidePositions):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrDeckTooLarge):
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, domain.ErrDeckStoreFull):
		return fiber.NewError(fiber.StatusInsufficientStorage, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
