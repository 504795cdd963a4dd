package session

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"adsduit/internal/models"
	"adsduit/internal/store"
)

const tokenLifetime = 24 * time.Hour

// Session is the authenticated principal: a specific account, or the fixed
// administrator with no account attached.
type Session struct {
	Admin   bool            `json:"admin,omitempty"`
	Account *models.Account `json:"account,omitempty"`
}

func (s *Session) IsAuthenticated() bool {
	return s != nil && (s.Admin || s.Account != nil)
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Admin
}

func (s *Session) CurrentAccount() *models.Account {
	if s == nil {
		return nil
	}
	return s.Account
}

// Gatekeeper owns session establishment: it mints and validates bearer
// tokens and keeps the persisted resume snapshot so a restarted client can
// pick up where it left off. It enforces no business rules of its own.
type Gatekeeper struct {
	store  store.RecordStore
	secret string
	log    *logrus.Logger
}

func NewGatekeeper(s store.RecordStore, secret string, log *logrus.Logger) *Gatekeeper {
	return &Gatekeeper{store: s, secret: secret, log: log}
}

// SetActive persists sess as the resume snapshot.
func (g *Gatekeeper) SetActive(ctx context.Context, sess *Session) {
	if err := g.store.Save(ctx, store.KeySession, sess); err != nil {
		g.log.Errorf("failed to persist session: %v", err)
	}
}

// Active loads the persisted session, or nil when nobody is logged in.
func (g *Gatekeeper) Active(ctx context.Context) *Session {
	var sess Session
	g.store.Load(ctx, store.KeySession, &sess)
	if !sess.IsAuthenticated() {
		return nil
	}
	return &sess
}

// RefreshAccount rewrites the resume snapshot when the active session
// belongs to the given account, keeping the snapshot's balance current.
func (g *Gatekeeper) RefreshAccount(ctx context.Context, account *models.Account) {
	active := g.Active(ctx)
	if active == nil || active.Account == nil || active.Account.ID != account.ID {
		return
	}
	g.SetActive(ctx, &Session{Account: account})
}

// Logout clears the resume snapshot.
func (g *Gatekeeper) Logout(ctx context.Context) error {
	return g.store.Delete(ctx, store.KeySession)
}

// Token mints a bearer token for the session's principal.
func (g *Gatekeeper) Token(sess *Session) (string, error) {
	p := Principal{Admin: sess.Admin}
	if sess.Account != nil {
		p.AccountID = sess.Account.ID
	}
	return buildToken(p, g.secret, tokenLifetime)
}

// Resolve validates a bearer token and returns its principal.
func (g *Gatekeeper) Resolve(token string) (Principal, error) {
	return parseToken(token, g.secret)
}
