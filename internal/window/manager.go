// Package window owns the shell's single UI window, its native menu and the
// message channels between the UI and the update coordinator.
package window

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// IPC channels.
const (
	ChannelCheckUpdate      = "checkUpdate"
	ChannelAutoUpdateStatus = "autoUpdateStatus"
)

// ErrWindowClosed is returned when sending to a surface that has been closed.
var ErrWindowClosed = errors.New("window closed")

// Message is one IPC message between the UI and the shell.
type Message struct {
	Channel string `json:"channel"`
	Payload string `json:"payload,omitempty"`
}

// Surface is an open window able to receive messages.
type Surface interface {
	Send(msg Message) error
	Close() error
}

// Events receives activity of the surfaces a Backend opened.
type Events interface {
	Closed(id uuid.UUID)
	Received(id uuid.UUID, msg Message)
}

// Backend opens surfaces. Open must not call back into events before it returns.
type Backend interface {
	Open(id uuid.UUID, events Events) (Surface, error)
}

// MenuInstaller makes a menu model visible to the user.
type MenuInstaller interface {
	Install(menu MenuModel)
}

// Handle identifies the open window.
type Handle struct {
	ID      uuid.UUID
	surface Surface
}

// Manager keeps at most one window open.
type Manager struct {
	backend   Backend
	facts     MenuFacts
	installer MenuInstaller
	quit      func()

	mu        sync.Mutex
	handle    *Handle
	menu      MenuModel
	onCheck   func()
	onInstall func()
}

// Option configures a Manager.
type Option func(*Manager)

// WithMenuInstaller sets where built menus are installed.
func WithMenuInstaller(i MenuInstaller) Option {
	return func(m *Manager) {
		m.installer = i
	}
}

// WithQuit sets the function that ends the application.
func WithQuit(fn func()) Option {
	return func(m *Manager) {
		m.quit = fn
	}
}

// NewManager creates a Manager with no window open.
func NewManager(backend Backend, facts MenuFacts, opts ...Option) *Manager {
	m := &Manager{
		backend: backend,
		facts:   facts,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetUpdateHandlers registers the targets of the UI check request and the
// menu install entry.
func (m *Manager) SetUpdateHandlers(check, install func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCheck = check
	m.onInstall = install
}

// Handle returns the open window, or nil.
func (m *Manager) Handle() *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle
}

// Menu returns the menu built for the current or last window.
func (m *Manager) Menu() MenuModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.menu
}

// Create opens the window unless one is already open, then builds and installs its menu.
func (m *Manager) Create() (*Handle, error) {
	m.mu.Lock()
	if m.handle != nil {
		h := m.handle
		m.mu.Unlock()
		return h, nil
	}

	id := uuid.New()
	surface, err := m.backend.Open(id, m)
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("open window: %w", err)
	}
	h := &Handle{ID: id, surface: surface}
	m.handle = h
	m.menu = BuildMenu(m.facts, MenuActions{
		CheckForUpdates: m.requestCheck,
		InstallUpdate:   m.requestInstall,
		Quit:            m.requestQuit,
	})
	menu := m.menu
	m.mu.Unlock()

	if m.installer != nil {
		m.installer.Install(menu)
	}
	log.WithField("window", id).Info("window created")
	return h, nil
}

// Activate recreates the window if none is open.
func (m *Manager) Activate() (*Handle, error) {
	if h := m.Handle(); h != nil {
		return h, nil
	}
	log.Debug("activated without a window, creating one")
	return m.Create()
}

// Close closes the open window without treating it as the last window closing.
func (m *Manager) Close() error {
	m.mu.Lock()
	h := m.handle
	m.handle = nil
	m.mu.Unlock()

	if h == nil {
		return nil
	}
	return h.surface.Close()
}

// Closed implements Events. It clears the handle and handles the last window closing.
func (m *Manager) Closed(id uuid.UUID) {
	m.mu.Lock()
	if m.handle == nil || m.handle.ID != id {
		m.mu.Unlock()
		return
	}
	m.handle = nil
	m.mu.Unlock()

	log.WithField("window", id).Info("window closed")
	m.WindowAllClosed()
}

// Received implements Events.
func (m *Manager) Received(id uuid.UUID, msg Message) {
	log.WithField("window", id).Debugf("received %q", msg.Channel)
	m.Dispatch(msg)
}

// Dispatch routes an inbound UI message.
func (m *Manager) Dispatch(msg Message) {
	switch msg.Channel {
	case ChannelCheckUpdate:
		m.requestCheck()
	default:
		log.Debugf("ignoring message on unknown channel %q", msg.Channel)
	}
}

// WindowAllClosed quits the application unless the platform keeps
// applications running without windows. It reports whether quit was requested.
func (m *Manager) WindowAllClosed() bool {
	if m.facts.Family.KeepsRunningWithoutWindows() {
		log.Debugf("all windows closed, staying alive on %s", m.facts.Family)
		return false
	}
	m.requestQuit()
	return true
}

// SendStatus delivers an update status to the open window. Without a window
// the status is dropped.
func (m *Manager) SendStatus(text string) {
	h := m.Handle()
	if h == nil {
		log.Tracef("no window, dropping status %q", text)
		return
	}
	if err := h.surface.Send(Message{Channel: ChannelAutoUpdateStatus, Payload: text}); err != nil {
		log.WithField("window", h.ID).Debugf("status not delivered: %v", err)
	}
}

func (m *Manager) requestCheck() {
	m.mu.Lock()
	fn := m.onCheck
	m.mu.Unlock()
	if fn == nil {
		log.Warn("update check requested but no handler is registered")
		return
	}
	fn()
}

func (m *Manager) requestInstall() {
	m.mu.Lock()
	fn := m.onInstall
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (m *Manager) requestQuit() {
	log.Info("quitting")
	if m.quit != nil {
		m.quit()
	}
}
