package blocklist

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"adsduit/internal/models"
	"adsduit/internal/store"
)

// Manager keeps the persisted set of blocked client IPs. Blocking the same
// IP twice updates the reason instead of duplicating the entry.
type Manager struct {
	store store.RecordStore
	log   *logrus.Logger
}

func NewManager(s store.RecordStore, log *logrus.Logger) *Manager {
	return &Manager{store: s, log: log}
}

func (m *Manager) load(ctx context.Context) []models.BlockedIP {
	var blocked []models.BlockedIP
	m.store.Load(ctx, store.CollectionBlockedIPs, &blocked)
	return blocked
}

func (m *Manager) List(ctx context.Context) []models.BlockedIP {
	return m.load(ctx)
}

func (m *Manager) IsBlocked(ctx context.Context, ip string) bool {
	for _, b := range m.load(ctx) {
		if b.IP == ip {
			return true
		}
	}
	return false
}

func (m *Manager) Block(ctx context.Context, ip, reason string) error {
	blocked := m.load(ctx)
	for i := range blocked {
		if blocked[i].IP == ip {
			blocked[i].Reason = reason
			blocked[i].BlockedAt = time.Now()
			return m.store.Save(ctx, store.CollectionBlockedIPs, blocked)
		}
	}
	blocked = append(blocked, models.BlockedIP{IP: ip, Reason: reason, BlockedAt: time.Now()})
	return m.store.Save(ctx, store.CollectionBlockedIPs, blocked)
}

// Unblock removes the IP from the set; removing an absent IP is a no-op.
func (m *Manager) Unblock(ctx context.Context, ip string) error {
	blocked := m.load(ctx)
	kept := blocked[:0]
	for _, b := range blocked {
		if b.IP != ip {
			kept = append(kept, b)
		}
	}
	return m.store.Save(ctx, store.CollectionBlockedIPs, kept)
}
