package session

import (
	"fmt"
	"sync"

	"parking_terminal/internal/parking"

	"go.uber.org/zap"
)

// Manager owns the logged-in attendant and the tariff table for this process.
// Writes are serialised; reads go straight to the cells.
type Manager struct {
	store  Store
	logger *zap.Logger

	mu      sync.Mutex
	session *Cell[*parking.Session]
	tariffs *Cell[parking.TariffTable]
}

func NewManager(store Store, logger *zap.Logger) *Manager {
	return &Manager{
		store:   store,
		logger:  logger.Named("session"),
		session: NewCell[*parking.Session](nil),
		tariffs: NewCell(parking.TariffTable{}),
	}
}

// Restore publishes the persisted session, if any.
func (m *Manager) Restore() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.store.Load()
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if current == nil {
		return nil
	}

	m.session.Set(current)
	m.logger.Info("session restored", zap.Int64("user_id", current.ID), zap.String("name", current.Name))
	return nil
}

// Begin replaces the current session. The session is published only after it
// has been persisted.
func (m *Manager) Begin(current parking.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Save(current); err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	m.session.Set(&current)
	m.logger.Info("session started", zap.Int64("user_id", current.ID), zap.String("name", current.Name))
	return nil
}

// End clears the session and the tariff table. The in-memory state is cleared
// even when the persisted copy cannot be removed.
func (m *Manager) End() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.store.Delete()
	m.session.Set(nil)
	m.tariffs.Set(parking.TariffTable{})
	m.logger.Info("session ended")
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

func (m *Manager) Current() (parking.Session, bool) {
	current := m.session.Get()
	if current == nil {
		return parking.Session{}, false
	}
	return *current, true
}

func (m *Manager) LoggedIn() bool {
	return m.session.Get() != nil
}

func (m *Manager) SetTariffs(table parking.TariffTable) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make(parking.TariffTable, len(table))
	for kind, price := range table {
		next = next.With(kind, price)
	}
	m.tariffs.Set(next)
}

// Tariffs never returns nil; absent vehicle types price at zero.
func (m *Manager) Tariffs() parking.TariffTable {
	return m.tariffs.Get()
}

func (m *Manager) SessionUpdates() (<-chan *parking.Session, func()) {
	return m.session.Subscribe()
}

func (m *Manager) TariffUpdates() (<-chan parking.TariffTable, func()) {
	return m.tariffs.Subscribe()
}
