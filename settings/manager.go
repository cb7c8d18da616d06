package settings

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Manager owns the live settings record. Every change is a locked
// read-modify-write-persist sequence, so concurrent writers never interleave
// and the live record only changes once the new image is stored.
type Manager struct {
	logger *slog.Logger
	store  Store

	mu  sync.Mutex
	rec Record
}

// Open loads the record from store. A missing, corrupted or outdated image
// is replaced by defaults, which are saved right away.
func Open(logger *slog.Logger, store Store) (*Manager, error) {
	m := &Manager{logger: logger, store: store}

	p, err := store.Load()
	if err == nil {
		m.rec, err = Decode(p)
	}
	if err == nil {
		return m, nil
	}

	logger.Warn("Restoring default settings", "reason", err)
	m.rec = Defaults()
	m.rec.MAC = randomMAC()
	if err := m.save(m.rec); err != nil {
		return nil, fmt.Errorf("save default settings: %w", err)
	}
	return m, nil
}

// Snapshot returns a copy of the live record.
func (m *Manager) Snapshot() Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec
}

// Update applies fn to a copy of the live record, validates and persists the
// result, and only then makes it live. If fn, validation or the store fails
// the live record is unchanged.
func (m *Manager) Update(fn func(*Record) error) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.rec
	if err := fn(&next); err != nil {
		return m.rec, err
	}
	if err := next.Validate(); err != nil {
		return m.rec, err
	}
	if err := m.save(next); err != nil {
		return m.rec, err
	}
	m.rec = next
	m.logger.Info("Settings updated")
	return next, nil
}

func (m *Manager) save(r Record) error {
	p, err := Encode(r)
	if err != nil {
		return err
	}
	if err := m.store.Save(p); err != nil {
		return fmt.Errorf("persist settings: %w", err)
	}
	return nil
}

// randomMAC derives a locally administered unicast address from a random
// UUID.
func randomMAC() [6]byte {
	u := uuid.New()
	var mac [6]byte
	copy(mac[:], u[:6])
	mac[0] = mac[0]&^0x01 | 0x02
	return mac
}
