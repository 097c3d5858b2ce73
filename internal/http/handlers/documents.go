// Package handlers implements the HTTP endpoints of the service.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"docpress/internal/config"
	"docpress/internal/infra/chrome"
	"docpress/internal/infra/logging"
	"docpress/internal/metrics"
)

// renderParams is a fully validated render request.
type renderParams struct {
	HTML        string
	URL         string
	Format      string
	Orientation string
	Margin      float64
	Filename    string
	Paper       config.PaperSize
}

// DocumentService is the document-processing capability shared by every
// endpoint that produces a PDF. One instance is built at startup and handed
// to the HTTP server; endpoints never construct their own.
type DocumentService struct {
	Config *config.Config
	Redis  *redis.Client

	poolMu sync.Mutex
	pool   *chrome.Pool
}

// NewDocumentService validates the rendering configuration and returns the
// shared capability. Startup must treat an error as fatal: a service that
// cannot render has nothing to serve.
func NewDocumentService(cfg config.Config, rdb *redis.Client) (*DocumentService, error) {
	if cfg.PDF.TimeoutSecs <= 0 {
		return nil, fmt.Errorf("render timeout must be positive, got %d", cfg.PDF.TimeoutSecs)
	}
	if _, ok := cfg.PDF.PaperSizes[cfg.PDF.DefaultPaper]; !ok {
		return nil, fmt.Errorf("default paper %q not in configured paper sizes", cfg.PDF.DefaultPaper)
	}
	return &DocumentService{
		Config: &cfg, // convert value to pointer
		Redis:  rdb,
	}, nil
}

// chromePool lazily starts the shared browser. A disabled pool (size zero)
// returns nil and renders fall back to one-shot Chrome instances.
func (svc *DocumentService) chromePool() (*chrome.Pool, error) {
	svc.poolMu.Lock()
	defer svc.poolMu.Unlock()

	if svc.Config.PDF.ChromePoolSize <= 0 {
		return nil, nil
	}
	if svc.pool != nil {
		return svc.pool, nil
	}
	pool, err := chrome.NewPool(*svc.Config)
	if err != nil {
		return nil, err
	}
	svc.pool = pool
	return svc.pool, nil
}

// respondPDF serves the render result for params, going through the Redis
// cache when enabled. source labels the render metrics: html, url or deck.
func (svc *DocumentService) respondPDF(c *fiber.Ctx, params *renderParams, cacheKey, source string) error {
	useCache := svc.Redis != nil && svc.Config.Cache.PDFCacheEnabled

	if useCache {
		if cached, err := svc.cachedPDF(c, cacheKey); err == nil && cached != nil {
			metrics.RecordCacheHit()
			c.Set("Content-Type", "application/pdf")
			c.Set("Content-Disposition", "attachment; filename="+params.Filename)
			return c.Send(cached)
		}
		metrics.RecordCacheMiss()
	}

	pdfBuf, err := svc.render(params)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// Log the underlying error so we can distinguish between:
			// - Chrome pool init warmup timeout
			// - Pool acquire timeout (no free tab)
			// - Actual render timeout
			logging.Error("PDF generation timeout", "timeout_secs", svc.Config.PDF.TimeoutSecs, "error", err.Error())
			metrics.RecordRender(source, "timeout")
			return fiber.NewError(fiber.StatusRequestTimeout, "PDF rendering took too long")
		}
		if chrome.IsSessionInterrupted(err) {
			logging.Error("Chrome session interrupted", "error", err.Error())
			metrics.RecordRender(source, "error")
			return fiber.NewError(fiber.StatusServiceUnavailable, "Chrome session interrupted")
		}
		logging.Error("PDF generation failed", "error", err.Error())
		metrics.RecordRender(source, "error")
		return fiber.NewError(fiber.StatusInternalServerError, "PDF generation failed: "+err.Error())
	}

	if len(pdfBuf) > svc.Config.Limits.MaxPDFBytes {
		metrics.RecordRender(source, "error")
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "PDF exceeds allowed size")
	}
	metrics.RecordRender(source, "ok")

	if useCache {
		svc.storePDF(c, cacheKey, pdfBuf)
	}

	logging.Info("PDF generated", "filename", params.Filename, "source", source, "request_id", c.Get("X-Request-ID"))

	c.Set("Content-Type", "application/pdf")
	c.Set("Content-Disposition", "attachment; filename="+params.Filename)
	return c.Send(pdfBuf)
}

// render turns HTML or a URL into PDF bytes, using the pool when enabled.
func (svc *DocumentService) render(params *renderParams) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRenderDuration(time.Since(start).Seconds())
	}()

	pool, err := svc.chromePool()
	if err != nil {
		return nil, err
	}
	if pool == nil {
		// Fallback: start a new Chrome instance per request.
		return svc.renderOneShot(params)
	}

	timeout := time.Duration(svc.Config.PDF.TimeoutSecs) * time.Second

	runOnce := func() ([]byte, error) {
		acquireCtx, acquireCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer acquireCancel()

		tab, err := pool.Acquire(acquireCtx)
		if err != nil {
			return nil, err
		}

		ctx, cancel := context.WithTimeout(tab.Ctx, timeout)
		pdfBuf, renderErr := renderInTab(ctx, params)
		cancel()

		pool.Release(tab, renderErr)
		return pdfBuf, renderErr
	}

	pdfBuf, renderErr := runOnce()
	if renderErr != nil && chrome.IsSessionInterrupted(renderErr) {
		logging.Warn("Chrome session interrupted; restarting pool and retrying once", "error", renderErr.Error())
		_ = pool.Restart()
		return runOnce()
	}

	return pdfBuf, renderErr
}

// renderOneShot runs one render in a dedicated Chrome instance.
func (svc *DocumentService) renderOneShot(params *renderParams) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "chromedata-*")
	if err != nil {
		return nil, fmt.Errorf("cannot create temp profile dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), chrome.AllocatorOptions(*svc.Config, tmpDir)...)
	defer allocCancel()
	chromeCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	timeout := time.Duration(svc.Config.PDF.TimeoutSecs) * time.Second
	chromeCtx, cancel = context.WithTimeout(chromeCtx, timeout)
	defer cancel()

	return renderInTab(chromeCtx, params)
}

// renderInTab renders either raw HTML or a remote URL into PDF within a
// pre-existing chromedp tab.
func renderInTab(ctx context.Context, params *renderParams) ([]byte, error) {
	var pdfBuf []byte
	var actions []chromedp.Action

	if params.URL != "" {
		actions = append(actions,
			chromedp.Navigate(params.URL),
			chromedp.WaitReady("body", chromedp.ByQuery),
		)
	} else {
		actions = append(actions,
			chromedp.Navigate("about:blank"),
			chromedp.ActionFunc(func(ctx context.Context) error {
				frame, err := page.GetFrameTree().Do(ctx)
				if err != nil {
					return err
				}
				return page.SetDocumentContent(frame.Frame.ID, params.HTML).Do(ctx)
			}),
			chromedp.WaitReady("body", chromedp.ByQuery),
		)
	}

	actions = append(actions,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return waitForRenderReady(ctx, 200*time.Millisecond)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfBuf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(params.Paper.Width).
				WithPaperHeight(params.Paper.Height).
				WithMarginTop(params.Margin).
				WithMarginBottom(params.Margin).
				WithMarginLeft(params.Margin).
				WithMarginRight(params.Margin).
				Do(ctx)
			return err
		}),
	)

	if err := chromedp.Run(ctx, actions...); err != nil {
		return nil, err
	}
	return pdfBuf, nil
}

// waitForRenderReady gives the page a settle window for fonts and async
// layout before printing.
func waitForRenderReady(ctx context.Context, settle time.Duration) error {
	t := time.NewTimer(settle)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// cachedPDF retrieves a cached PDF. A nil result with nil error is a miss.
func (svc *DocumentService) cachedPDF(c *fiber.Ctx, key string) ([]byte, error) {
	ctxRedis, cancel := context.WithTimeout(c.Context(), 1*time.Second)
	defer cancel()

	cached, err := svc.Redis.Get(ctxRedis, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		logging.Warn("Redis read failed", "error", err)
		return nil, err
	}

	logging.Info("PDF cache hit", "key", key)
	return cached, nil
}

// storePDF caches a rendered PDF. Cache failures are logged, not surfaced;
// the client already has its document.
func (svc *DocumentService) storePDF(c *fiber.Ctx, key string, data []byte) {
	ctxRedis, cancel := context.WithTimeout(c.Context(), 1*time.Second)
	defer cancel()

	ttl := time.Duration(svc.Config.Cache.PDFCacheTTL)
	if ttl <= 0 {
		ttl = 1 * time.Minute
	}

	if err := svc.Redis.Set(ctxRedis, key, data, ttl).Err(); err != nil {
		logging.Warn("Redis write failed", "error", err)
	}
}

// HandleChromeStats exposes basic observability for the Chrome pool
// (capacity / idle / in_use).
func (svc *DocumentService) HandleChromeStats(c *fiber.Ctx) error {
	pool, err := svc.chromePool()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Chrome pool init failed: "+err.Error())
	}

	// Pool disabled.
	if pool == nil {
		return c.JSON(fiber.Map{
			"enabled":        false,
			"capacity":       0,
			"idle":           0,
			"in_use":         0,
			"pool_size_conf": svc.Config.PDF.ChromePoolSize,
			"profile_dir":    "",
			"timeout_secs":   svc.Config.PDF.TimeoutSecs,
			"restarts":       0,
		})
	}

	s := pool.Stats(svc.Config.PDF.TimeoutSecs)
	return c.JSON(fiber.Map{
		"enabled":        s.Enabled,
		"capacity":       s.Capacity,
		"idle":           s.Idle,
		"in_use":         s.InUse,
		"pool_size_conf": s.PoolSizeConf,
		"profile_dir":    s.ProfileDir,
		"timeout_secs":   svc.Config.PDF.TimeoutSecs,
		"restarts":       s.Restarts,
		"last_restart":   s.LastRestart,
	})
}

// Close releases the Chrome pool if one was started.
func (svc *DocumentService) Close() {
	svc.poolMu.Lock()
	defer svc.poolMu.Unlock()

	if svc.pool != nil {
		svc.pool.Close()
		svc.pool = nil
	}
}
