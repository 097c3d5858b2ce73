package chrome

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"docpress/internal/config"
	"docpress/internal/infra/logging"
)

// Tab is one rendering slot checked out of the pool.
type Tab struct {
	Ctx    context.Context
	cancel context.CancelFunc
}

// Pool maintains a shared headless Chrome instance and bounds concurrent
// renders with a token semaphore. Tabs are created per acquisition inside
// the shared browser; the browser itself launches lazily on first use.
type Pool struct {
	mu sync.Mutex

	cfg        config.Config
	profileDir string

	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
	browserCtx    context.Context

	sem    chan struct{}
	closed bool

	restarts    int
	lastRestart time.Time
}

// Stats is a point-in-time snapshot of the pool.
type Stats struct {
	Enabled      bool
	Capacity     int
	Idle         int
	InUse        int
	PoolSizeConf int
	ProfileDir   string
	TimeoutSecs  int
	Restarts     int
	LastRestart  time.Time
}

// AllocatorOptions returns the Chrome launch flags used everywhere a browser
// is started. Software rendering is forced to avoid Vulkan/ANGLE issues in
// minimal container environments.
func AllocatorOptions(cfg config.Config, profileDir string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(profileDir),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-gpu-compositing", true),
		chromedp.Flag("disable-features", "Vulkan,UseSkiaRenderer"),
		chromedp.Flag("use-gl", "swiftshader"),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if cfg.PDF.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.PDF.ChromePath))
	}
	if cfg.PDF.ChromeNoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	return opts
}

// createProfileDir makes a fresh user-data dir under the configured base, or
// under the system temp dir when no base is set.
func createProfileDir(cfg config.Config) (string, error) {
	base := cfg.PDF.UserDataDir
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", fmt.Errorf("create profile base %s: %w", base, err)
	}
	dir, err := os.MkdirTemp(base, "chrome-profile-*")
	if err != nil {
		return "", fmt.Errorf("create profile dir in %s: %w", base, err)
	}
	return dir, nil
}

// NewPool builds a pool of the configured size. A size of zero means the
// pool is disabled; callers fall back to one-shot rendering.
func NewPool(cfg config.Config) (*Pool, error) {
	size := cfg.PDF.ChromePoolSize
	if size <= 0 {
		return nil, fmt.Errorf("chrome pool disabled (size %d)", size)
	}

	p := &Pool{cfg: cfg}
	if err := p.start(); err != nil {
		return nil, err
	}
	logging.Info("Chrome pool ready", "size", size, "profile_dir", p.profileDir)
	return p, nil
}

// start provisions a profile dir and the shared browser contexts. The caller
// holds the lock or owns the pool exclusively.
func (p *Pool) start() error {
	dir, err := createProfileDir(p.cfg)
	if err != nil {
		return err
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), AllocatorOptions(p.cfg, dir)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	p.profileDir = dir
	p.allocCancel = allocCancel
	p.browserCancel = browserCancel
	p.browserCtx = browserCtx

	size := p.cfg.PDF.ChromePoolSize
	p.sem = make(chan struct{}, size)
	for i := 0; i < size; i++ {
		p.sem <- struct{}{}
	}
	return nil
}

// Acquire blocks until a render slot is free or ctx is done, then opens a
// tab in the shared browser.
func (p *Pool) Acquire(ctx context.Context) (*Tab, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errors.New("chrome pool is closed")
	}
	sem := p.sem
	browserCtx := p.browserCtx
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-sem:
	}

	tabCtx, cancel := chromedp.NewContext(browserCtx)
	return &Tab{Ctx: tabCtx, cancel: cancel}, nil
}

// Release returns the slot to the pool and closes the tab. renderErr is the
// outcome of the render that used the tab; interrupted sessions are logged
// so pool restarts can be correlated.
func (p *Pool) Release(tab *Tab, renderErr error) {
	if tab != nil && tab.cancel != nil {
		tab.cancel()
	}
	if renderErr != nil && IsSessionInterrupted(renderErr) {
		logging.Warn("Tab released after interrupted session", "error", renderErr.Error())
	}

	p.mu.Lock()
	sem := p.sem
	p.mu.Unlock()
	if sem == nil {
		return
	}
	select {
	case sem <- struct{}{}:
	default:
		// The pool was restarted while this tab was out; its slot already
		// exists in the new semaphore.
	}
}

// Restart tears down the browser and profile dir and provisions fresh ones.
// In-flight renders fail with session errors and are retried by callers.
func (p *Pool) Restart() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("chrome pool is closed")
	}

	if p.browserCancel != nil {
		p.browserCancel()
	}
	if p.allocCancel != nil {
		p.allocCancel()
	}
	oldDir := p.profileDir

	if err := p.start(); err != nil {
		return err
	}
	if oldDir != "" {
		_ = os.RemoveAll(oldDir)
	}

	p.restarts++
	p.lastRestart = time.Now()
	logging.Warn("Chrome pool restarted", "restarts", p.restarts, "profile_dir", p.profileDir)
	return nil
}

// Close shuts the pool down. It is idempotent.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	if p.browserCancel != nil {
		p.browserCancel()
	}
	if p.allocCancel != nil {
		p.allocCancel()
	}
	if p.profileDir != "" {
		_ = os.RemoveAll(p.profileDir)
	}
}

// Stats reports the current pool state.
func (p *Pool) Stats(timeoutSecs int) Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		Enabled:      !p.closed && p.sem != nil,
		PoolSizeConf: p.cfg.PDF.ChromePoolSize,
		ProfileDir:   p.profileDir,
		TimeoutSecs:  timeoutSecs,
		Restarts:     p.restarts,
		LastRestart:  p.lastRestart,
	}
	if p.sem != nil {
		s.Capacity = cap(p.sem)
		s.Idle = len(p.sem)
		s.InUse = s.Capacity - s.Idle
	}
	return s
}

// IsSessionInterrupted reports whether err looks like a torn-down Chrome
// session rather than a bad input.
func IsSessionInterrupted(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{
		"target closed",
		"session closed",
		"browser closed",
		"connection closed",
		"websocket",
	} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
