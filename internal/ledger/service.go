package ledger

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"adsduit/internal/accounts"
	"adsduit/internal/models"
	"adsduit/internal/session"
	"adsduit/internal/store"
)

const (
	// SignupBonus is credited to a new account that registered with a
	// resolvable referral code.
	SignupBonus int64 = 50

	// CommissionRate is the share of a referred account's reward credited
	// to its referrer, floored to whole rupiah.
	CommissionRate = 0.2

	// MinWithdrawal is the smallest amount a withdrawal request may carry.
	MinWithdrawal int64 = 100

	referralCodeLength  = 6
	referralCodePrefix  = "ADS"
	referralCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// AdminCredentials is the configured administrator pair. How this principal
// is established is invisible to the rest of the system.
type AdminCredentials struct {
	Handle string
	Secret string
}

// Service is the sole authority over balance-bearing fields. Every mutating
// operation runs under one mutex: the backing store offers read-modify-write
// with no compare-and-swap, so concurrent HTTP requests would otherwise race
// the balance check against the debit.
type Service struct {
	mu       sync.Mutex
	store    store.RecordStore
	dir      *accounts.Directory
	sessions *session.Gatekeeper
	admin    AdminCredentials
	log      *logrus.Logger
}

func NewService(s store.RecordStore, dir *accounts.Directory, gk *session.Gatekeeper, admin AdminCredentials, log *logrus.Logger) *Service {
	return &Service{
		store:    s,
		dir:      dir,
		sessions: gk,
		admin:    admin,
		log:      log,
	}
}

// Register creates an account and makes it the active session. A referral
// code that resolves to an existing account earns the new account the signup
// bonus and bumps the referrer's count; an unknown code is silently ignored
// and registration proceeds without the bonus.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dir.FindByHandle(ctx, req.DanaNumber) != nil {
		return nil, accounts.ErrDuplicateHandle
	}

	account := models.Account{
		ID:           uuid.NewString(),
		Name:         req.Name,
		DanaNumber:   req.DanaNumber,
		DanaName:     req.DanaName,
		Email:        req.Email,
		ReferralCode: s.newReferralCode(ctx),
		ReferredBy:   req.ReferralCode,
		CreatedAt:    time.Now(),
	}

	var referrer *models.Account
	if req.ReferralCode != "" {
		referrer = s.dir.FindByReferralCode(ctx, req.ReferralCode)
	}
	if referrer != nil {
		account.Balance += SignupBonus
		account.TotalEarned += SignupBonus
	}

	if err := s.dir.Insert(ctx, account); err != nil {
		return nil, err
	}

	if referrer != nil {
		if _, err := s.dir.Update(ctx, referrer.ID, func(a *models.Account) {
			a.ReferralCount++
		}); err != nil {
			s.log.Errorf("failed to bump referral count for %s: %v", referrer.ID, err)
		}
		// The relationship is recorded at signup; commission money flows
		// from the referred account's later activity, so the bonus is 0.
		s.appendReferral(ctx, models.Referral{
			ID:           uuid.NewString(),
			ReferrerID:   referrer.ID,
			ReferredID:   account.ID,
			ReferredName: account.Name,
			Bonus:        0,
			CreatedAt:    time.Now(),
		})
	}

	s.sessions.SetActive(ctx, &session.Session{Account: &account})
	return &account, nil
}

// Authenticate resolves credentials to a session. The configured admin pair
// yields the administrator session. Any registered dana number logs in
// regardless of the password value: the platform never stores user
// passwords, and this replicates that behavior rather than fixing it.
func (s *Service) Authenticate(ctx context.Context, danaNumber, password string) (*session.Session, error) {
	if danaNumber == s.admin.Handle && password == s.admin.Secret {
		sess := &session.Session{Admin: true}
		s.sessions.SetActive(ctx, sess)
		return sess, nil
	}

	account := s.dir.FindByHandle(ctx, danaNumber)
	if account == nil {
		return nil, ErrInvalidCredentials
	}

	sess := &session.Session{Account: account}
	s.sessions.SetActive(ctx, sess)
	return sess, nil
}

// CompleteRewardTask credits one finished task: balance, lifetime earnings
// and the watch counter on the account, an append-only watch record, and the
// referrer's commission when the account was referred.
func (s *Service) CompleteRewardTask(ctx context.Context, accountID string, reward int64, adType string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, err := s.dir.Update(ctx, accountID, func(a *models.Account) {
		a.Balance += reward
		a.TotalEarned += reward
		a.AdsWatched++
	})
	if err != nil {
		return nil, err
	}

	s.appendAdWatch(ctx, models.AdWatch{
		ID:        uuid.NewString(),
		UserID:    account.ID,
		AdType:    adType,
		Reward:    reward,
		WatchedAt: time.Now(),
	})

	s.payCommission(ctx, account, reward)

	s.sessions.RefreshAccount(ctx, account)
	return account, nil
}

// payCommission credits the referrer's share of a reward. A commission that
// floors to zero pays nothing and records nothing.
func (s *Service) payCommission(ctx context.Context, account *models.Account, reward int64) {
	if account.ReferredBy == "" {
		return
	}
	referrer := s.dir.FindByReferralCode(ctx, account.ReferredBy)
	if referrer == nil || referrer.ID == account.ID {
		return
	}

	commission := int64(float64(reward) * CommissionRate)
	if commission <= 0 {
		return
	}

	if _, err := s.dir.Update(ctx, referrer.ID, func(a *models.Account) {
		a.Balance += commission
		a.TotalEarned += commission
		a.ReferralEarnings += commission
	}); err != nil {
		s.log.Errorf("failed to pay commission to %s: %v", referrer.ID, err)
		return
	}

	s.appendReferral(ctx, models.Referral{
		ID:           uuid.NewString(),
		ReferrerID:   referrer.ID,
		ReferredID:   account.ID,
		ReferredName: account.Name,
		Bonus:        commission,
		CreatedAt:    time.Now(),
	})
}

// RequestWithdrawal debits the balance immediately and files a pending
// request; the funds are reserved before any admin decision.
func (s *Service) RequestWithdrawal(ctx context.Context, accountID string, amount int64) (*models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount < MinWithdrawal {
		return nil, ErrBelowMinimum
	}

	account := s.dir.FindByID(ctx, accountID)
	if account == nil {
		return nil, accounts.ErrNotFound
	}
	if amount > account.Balance {
		return nil, ErrInsufficientFunds
	}

	// Debit before filing the request: a crash in between loses the
	// request record, never fabricates balance.
	account, err := s.dir.Update(ctx, accountID, func(a *models.Account) {
		a.Balance -= amount
	})
	if err != nil {
		return nil, err
	}

	withdrawal := models.Withdrawal{
		ID:          uuid.NewString(),
		UserID:      account.ID,
		UserName:    account.Name,
		DanaNumber:  account.DanaNumber,
		DanaName:    account.DanaName,
		Amount:      amount,
		Status:      models.WithdrawalPending,
		RequestedAt: time.Now(),
	}

	withdrawals := s.loadWithdrawals(ctx)
	if err := s.store.Save(ctx, store.CollectionWithdrawals, append(withdrawals, withdrawal)); err != nil {
		return nil, err
	}

	s.sessions.RefreshAccount(ctx, account)
	return &withdrawal, nil
}

// ResolveWithdrawal applies the admin decision. Approval moves no money: the
// funds already left the ledger at request time. Rejection credits the
// amount back; when the owning account no longer exists the refund is
// skipped and the request is still marked rejected.
func (s *Service) ResolveWithdrawal(ctx context.Context, requestID string, approve bool) (*models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	withdrawals := s.loadWithdrawals(ctx)
	idx := -1
	for i := range withdrawals {
		if withdrawals[i].ID == requestID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, ErrWithdrawalNotFound
	}
	if withdrawals[idx].Status != models.WithdrawalPending {
		return nil, ErrAlreadyResolved
	}

	now := time.Now()
	withdrawals[idx].ProcessedAt = &now
	if approve {
		withdrawals[idx].Status = models.WithdrawalApproved
	} else {
		withdrawals[idx].Status = models.WithdrawalRejected
		refunded, err := s.dir.Update(ctx, withdrawals[idx].UserID, func(a *models.Account) {
			a.Balance += withdrawals[idx].Amount
		})
		switch err {
		case nil:
			s.sessions.RefreshAccount(ctx, refunded)
		case accounts.ErrNotFound:
			s.log.Warnf("rejected withdrawal %s is orphaned, skipping refund", requestID)
		default:
			return nil, err
		}
	}

	if err := s.store.Save(ctx, store.CollectionWithdrawals, withdrawals); err != nil {
		return nil, err
	}

	resolved := withdrawals[idx]
	return &resolved, nil
}

// Accounts lists every registered account for the admin view.
func (s *Service) Accounts(ctx context.Context) []models.Account {
	return s.dir.All(ctx)
}

// Account returns one account by id, or nil.
func (s *Service) Account(ctx context.Context, id string) *models.Account {
	return s.dir.FindByID(ctx, id)
}

// WithdrawalsByAccount lists an account's requests, newest first.
func (s *Service) WithdrawalsByAccount(ctx context.Context, accountID string) []models.Withdrawal {
	var out []models.Withdrawal
	for _, w := range s.loadWithdrawals(ctx) {
		if w.UserID == accountID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return out
}

// AllWithdrawals lists every request, newest first, optionally filtered by
// status.
func (s *Service) AllWithdrawals(ctx context.Context, status models.WithdrawalStatus) []models.Withdrawal {
	var out []models.Withdrawal
	for _, w := range s.loadWithdrawals(ctx) {
		if status == "" || w.Status == status {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return out
}

// ReferralsByAccount lists bonus records where the account is the referrer,
// newest first.
func (s *Service) ReferralsByAccount(ctx context.Context, accountID string) []models.Referral {
	var referrals, out []models.Referral
	s.store.Load(ctx, store.CollectionReferrals, &referrals)
	for _, r := range referrals {
		if r.ReferrerID == accountID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// AdWatchesByAccount lists an account's reward events, newest first.
func (s *Service) AdWatchesByAccount(ctx context.Context, accountID string) []models.AdWatch {
	var watches, out []models.AdWatch
	s.store.Load(ctx, store.CollectionAdWatches, &watches)
	for _, w := range watches {
		if w.UserID == accountID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WatchedAt.After(out[j].WatchedAt) })
	return out
}

// Stats aggregates the admin dashboard counters.
func (s *Service) Stats(ctx context.Context) models.Stats {
	withdrawals := s.loadWithdrawals(ctx)
	stats := models.Stats{
		TotalUsers:       len(s.dir.All(ctx)),
		TotalWithdrawals: len(withdrawals),
	}
	for _, w := range withdrawals {
		switch w.Status {
		case models.WithdrawalPending:
			stats.PendingWithdrawals++
		case models.WithdrawalApproved:
			stats.TotalPaid += w.Amount
		}
	}
	return stats
}

func (s *Service) loadWithdrawals(ctx context.Context) []models.Withdrawal {
	var withdrawals []models.Withdrawal
	s.store.Load(ctx, store.CollectionWithdrawals, &withdrawals)
	return withdrawals
}

func (s *Service) appendAdWatch(ctx context.Context, watch models.AdWatch) {
	var watches []models.AdWatch
	s.store.Load(ctx, store.CollectionAdWatches, &watches)
	if err := s.store.Save(ctx, store.CollectionAdWatches, append(watches, watch)); err != nil {
		s.log.Errorf("failed to append ad watch: %v", err)
	}
}

func (s *Service) appendReferral(ctx context.Context, referral models.Referral) {
	var referrals []models.Referral
	s.store.Load(ctx, store.CollectionReferrals, &referrals)
	if err := s.store.Save(ctx, store.CollectionReferrals, append(referrals, referral)); err != nil {
		s.log.Errorf("failed to append referral record: %v", err)
	}
}

// newReferralCode generates a code unique among existing accounts,
// regenerating on collision.
func (s *Service) newReferralCode(ctx context.Context) string {
	for {
		code := make([]byte, referralCodeLength)
		for i := range code {
			code[i] = referralCodeCharset[rand.Intn(len(referralCodeCharset))]
		}
		candidate := referralCodePrefix + string(code)
		if s.dir.FindByReferralCode(ctx, candidate) == nil {
			return candidate
		}
	}
}
