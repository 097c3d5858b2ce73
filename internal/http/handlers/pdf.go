package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	neturl "net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"docpress/internal/config"
)

// filenameRe bounds what goes into the Content-Disposition header.
var filenameRe = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// HandleConversion renders HTML submitted as form data into a PDF.
func (svc *DocumentService) HandleConversion(c *fiber.Ctx) error {
	html := c.FormValue("html")

	if len(html) < 10 {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid HTML: content too short or missing")
	}
	if len(html) > svc.Config.Limits.MaxHTMLBytes {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, fmt.Sprintf("HTML input exceeds %d bytes", svc.Config.Limits.MaxHTMLBytes))
	}

	params, err := extractRenderOptions(c.FormValue, *svc.Config)
	if err != nil {
		return err
	}
	params.HTML = html

	return svc.respondPDF(c, params, computePDFCacheKey(params), "html")
}

// HandleURLConversion fetches a page by URL and renders it into a PDF.
func (svc *DocumentService) HandleURLConversion(c *fiber.Ctx) error {
	urlStr := c.Query("url")
	if urlStr == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid URL: missing")
	}

	parsed, err := neturl.ParseRequestURI(urlStr)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid URL: must be HTTP or HTTPS")
	}

	params, err := extractRenderOptions(c.Query, *svc.Config)
	if err != nil {
		return err
	}
	params.URL = urlStr

	return svc.respondPDF(c, params, computePDFCacheKey(params), "url")
}

// extractRenderOptions validates the render options shared by every PDF
// endpoint. get is c.FormValue or c.Query, so form and query based endpoints
// run through one parser.
func extractRenderOptions(get func(key string, defaultValue ...string) string, cfg config.Config) (*renderParams, error) {
	format := strings.ToUpper(get("format"))
	if format != "" {
		if _, ok := cfg.PDF.PaperSizes[format]; !ok {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid format: not supported")
		}
	}

	orientation := strings.ToLower(get("orientation"))
	if orientation != "" && orientation != "portrait" && orientation != "landscape" {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid orientation: must be 'portrait' or 'landscape'")
	}

	margin := 0.4
	if marginStr := get("margin"); marginStr != "" {
		m, err := strconv.ParseFloat(marginStr, 64)
		if err != nil || m < 0.1 || m > 2.0 {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid margin: must be a float between 0.1 and 2.0")
		}
		margin = m
	}

	filename := get("filename")
	if filename == "" {
		filename = "output.pdf"
	} else {
		if !strings.HasSuffix(filename, ".pdf") {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Filename must end with .pdf")
		}
		if !filenameRe.MatchString(filename) {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Filename contains invalid characters")
		}
	}

	paper, ok := cfg.PDF.PaperSizes[format]
	if !ok {
		paper, ok = cfg.PDF.PaperSizes[cfg.PDF.DefaultPaper]
		if !ok {
			return nil, fiber.NewError(fiber.StatusInternalServerError, "Default paper size not configured")
		}
	}

	if orientation == "landscape" {
		paper.Width, paper.Height = paper.Height, paper.Width
	}

	return &renderParams{
		Format:      format,
		Orientation: orientation,
		Margin:      margin,
		Filename:    filename,
		Paper:       paper,
	}, nil
}

// computePDFCacheKey creates a SHA256-based cache key from everything that
// affects the rendered bytes.
func computePDFCacheKey(params *renderParams) string {
	h := sha256.New()
	if params.URL != "" {
		h.Write([]byte(params.URL))
	} else {
		h.Write([]byte(params.HTML))
	}
	h.Write([]byte(params.Format))
	h.Write([]byte(params.Orientation))
	h.Write([]byte(strconv.FormatFloat(params.Margin, 'f', 2, 64)))
	return "pdfcache:" + hex.EncodeToString(h.Sum(nil))
}
