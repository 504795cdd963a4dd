package store

import (
	"context"
)

// Collection keys. The adsduit_ prefix namespaces everything this service
// writes, so a shared store can hold other data alongside.
const (
	CollectionUsers       = "adsduit_users"
	CollectionWithdrawals = "adsduit_withdrawals"
	CollectionAdWatches   = "adsduit_adwatches"
	CollectionReferrals   = "adsduit_referrals"
	CollectionBlockedIPs  = "adsduit_blocked_ips"
	KeySession            = "adsduit_session"
)

// RecordStore persists whole collections as single JSON blobs. There is no
// partial-record update and no transaction spanning two collections; callers
// must order their saves so the safety-critical write lands first.
type RecordStore interface {
	// Load reads the named key into out. A missing key or malformed blob
	// leaves out untouched: reads fail soft and never surface an error.
	Load(ctx context.Context, name string, out any)

	// Save overwrites the named key with the JSON encoding of v.
	Save(ctx context.Context, name string, v any) error

	// Delete removes the named key. Deleting an absent key is not an error.
	Delete(ctx context.Context, name string) error

	Close()
}
