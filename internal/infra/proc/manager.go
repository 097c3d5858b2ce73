// Package proc supervises the auxiliary tool servers launched over the API.
// Every child runs in its own process group and is tracked by a write-once
// ManagedService record; the record exists exactly as long as the process
// does.
package proc

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"docpress/internal/config"
	"docpress/internal/domain"
	"docpress/internal/infra/logging"
	"docpress/internal/metrics"
)

const maxOutputLines = 50

// child is the supervisor-side state for one launched tool. The record is
// immutable after Launch; only the output ring and the exit error mutate.
type child struct {
	record domain.ManagedService
	spec   config.ToolSpec
	cmd    *exec.Cmd
	done   chan struct{}

	outMu   sync.Mutex
	lastOut []string
	exitErr error
}

// Manager is the registry of running tool services. All methods are safe
// for concurrent use. Dead children are reaped by a per-child goroutine,
// so a record disappearing from List without an explicit Stop means the
// process exited on its own.
type Manager struct {
	mu       sync.RWMutex
	children map[string]*child
	names    map[string]string // tool name -> record id
}

// NewManager returns an empty registry.
func NewManager() *Manager {
	return &Manager{
		children: make(map[string]*child),
		names:    make(map[string]string),
	}
}

// Launch starts the tool described by spec and registers its record. The
// call waits out spec.StartupGrace so commands that die immediately surface
// as launch failures instead of phantom records.
func (m *Manager) Launch(spec config.ToolSpec) (domain.ManagedService, error) {
	m.mu.RLock()
	_, busy := m.names[spec.Name]
	m.mu.RUnlock()
	if busy {
		return domain.ManagedService{}, domain.ErrToolAlreadyRunning
	}

	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Env = append(os.Environ(), flattenEnv(spec.Env)...)
	setSysProcAttr(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return domain.ManagedService{}, fmt.Errorf("stdout pipe for %s: %w", spec.Name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return domain.ManagedService{}, fmt.Errorf("stderr pipe for %s: %w", spec.Name, err)
	}

	m.mu.Lock()
	if _, busy := m.names[spec.Name]; busy {
		m.mu.Unlock()
		return domain.ManagedService{}, domain.ErrToolAlreadyRunning
	}
	if err := cmd.Start(); err != nil {
		m.mu.Unlock()
		metrics.RecordServiceLaunch("error")
		return domain.ManagedService{}, fmt.Errorf("start %s: %w", spec.Command, err)
	}
	c := &child{
		record: domain.ManagedService{
			ID:        uuid.NewString(),
			Name:      spec.Name,
			PID:       cmd.Process.Pid,
			Port:      spec.Port,
			StartedAt: time.Now().UTC(),
		},
		spec: spec,
		cmd:  cmd,
		done: make(chan struct{}),
	}
	m.children[c.record.ID] = c
	m.names[spec.Name] = c.record.ID
	m.publishGaugeLocked()
	m.mu.Unlock()

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		c.capture(stdout, "")
	}()
	go func() {
		defer readers.Done()
		c.capture(stderr, "[stderr] ")
	}()
	go m.reap(c, &readers)

	select {
	case <-c.done:
		metrics.RecordServiceLaunch("error")
		if err := c.exit(); err != nil {
			return domain.ManagedService{}, fmt.Errorf("tool %s exited during startup: %w", spec.Name, err)
		}
		return domain.ManagedService{}, fmt.Errorf("tool %s exited during startup", spec.Name)
	case <-time.After(time.Duration(spec.StartupGrace)):
	}

	metrics.RecordServiceLaunch("ok")
	logging.Info("Tool service started", "tool", spec.Name, "id", c.record.ID, "pid", c.record.PID)
	return c.record, nil
}

// reap waits for the child to exit and removes its record from the active
// set. The pipe readers must drain before Wait closes the pipes, or trailing
// output is lost.
func (m *Manager) reap(c *child, readers *sync.WaitGroup) {
	readers.Wait()
	err := c.cmd.Wait()
	c.setExit(err)

	m.mu.Lock()
	delete(m.children, c.record.ID)
	if cur, ok := m.names[c.record.Name]; ok && cur == c.record.ID {
		delete(m.names, c.record.Name)
	}
	m.publishGaugeLocked()
	m.mu.Unlock()

	close(c.done)

	if err != nil {
		logging.Warn("Tool service exited", "tool", c.record.Name, "id", c.record.ID, "error", err.Error())
	} else {
		logging.Info("Tool service exited", "tool", c.record.Name, "id", c.record.ID)
	}
}

// List returns the records of all running tools, oldest first, name as
// tie-breaker.
func (m *Manager) List() []domain.ManagedService {
	m.mu.RLock()
	out := make([]domain.ManagedService, 0, len(m.children))
	for _, c := range m.children {
		out = append(out, c.record)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Get returns the record for id. A tool that was stopped or died is gone.
func (m *Manager) Get(id string) (domain.ManagedService, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.children[id]
	if !ok {
		return domain.ManagedService{}, domain.ErrServiceNotFound
	}
	return c.record, nil
}

// Logs returns the captured tail of the tool's combined output.
func (m *Manager) Logs(id string) ([]string, error) {
	m.mu.RLock()
	c, ok := m.children[id]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrServiceNotFound
	}

	c.outMu.Lock()
	defer c.outMu.Unlock()
	out := make([]string, len(c.lastOut))
	copy(out, c.lastOut)
	return out, nil
}

// Healthy probes the tool's health endpoint. Tools without a port are never
// healthy; probe failures report false rather than an error.
func (m *Manager) Healthy(id string) (bool, error) {
	m.mu.RLock()
	c, ok := m.children[id]
	m.mu.RUnlock()
	if !ok {
		return false, domain.ErrServiceNotFound
	}
	if c.record.Port <= 0 {
		return false, nil
	}

	url := fmt.Sprintf("http://127.0.0.1:%d%s", c.record.Port, c.spec.HealthPath)
	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return false, nil
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

// Stop terminates the tool's process group and blocks until the record is
// reaped: SIGTERM first, SIGKILL after spec.StopTimeout.
func (m *Manager) Stop(id string) error {
	m.mu.RLock()
	c, ok := m.children[id]
	m.mu.RUnlock()
	if !ok {
		return domain.ErrServiceNotFound
	}

	terminateProcess(c.cmd)
	select {
	case <-c.done:
	case <-time.After(time.Duration(c.spec.StopTimeout)):
		logging.Warn("Tool service ignored SIGTERM, killing", "tool", c.record.Name, "id", id)
		forceKillProcess(c.cmd)
		<-c.done
	}

	logging.Info("Tool service stopped", "tool", c.record.Name, "id", id)
	return nil
}

// StopAll stops every running tool in parallel and returns when all are
// gone. Used on shutdown.
func (m *Manager) StopAll() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.children))
	for id := range m.children {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_ = m.Stop(id)
		}(id)
	}
	wg.Wait()
}

// Count returns the number of running tools.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.children)
}

func (m *Manager) publishGaugeLocked() {
	metrics.UpdateManagedServices(len(m.children))
}

// capture tails a child's output stream into the ring buffer.
func (c *child) capture(r io.Reader, prefix string) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		c.append(prefix + sc.Text())
	}
}

func (c *child) append(line string) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	c.lastOut = append(c.lastOut, line)
	if len(c.lastOut) > maxOutputLines {
		c.lastOut = c.lastOut[len(c.lastOut)-maxOutputLines:]
	}
}

func (c *child) setExit(err error) {
	c.outMu.Lock()
	c.exitErr = err
	c.outMu.Unlock()
}

func (c *child) exit() error {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	return c.exitErr
}

func flattenEnv(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(env))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}
