package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"adsduit/internal/accounts"
	"adsduit/internal/blocklist"
	"adsduit/internal/ledger"
	"adsduit/internal/middlewares"
	"adsduit/internal/models"
	"adsduit/internal/session"
	"adsduit/internal/tasks"
)

type API struct {
	ledger    *ledger.Service
	sessions  *session.Gatekeeper
	tasks     *tasks.Issuer
	blocklist *blocklist.Manager
	log       *logrus.Logger
}

func NewAPI(l *ledger.Service, gk *session.Gatekeeper, iss *tasks.Issuer, bl *blocklist.Manager, log *logrus.Logger) *API {
	return &API{
		ledger:    l,
		sessions:  gk,
		tasks:     iss,
		blocklist: bl,
		log:       log,
	}
}

type loginResponse struct {
	Admin   bool            `json:"admin"`
	Account *models.Account `json:"account,omitempty"`
}

type rewardResponse struct {
	Reward  int64           `json:"reward"`
	Account *models.Account `json:"account"`
}

func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request format", http.StatusBadRequest)
		return
	}

	if req.Name == "" || req.DanaNumber == "" || req.DanaName == "" {
		http.Error(w, "name, dana number and dana name must not be empty", http.StatusBadRequest)
		return
	}

	account, err := a.ledger.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, accounts.ErrDuplicateHandle) {
			http.Error(w, "dana number already registered", http.StatusConflict)
			return
		}
		a.log.Errorf("failed to register account: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	a.issueToken(w, &session.Session{Account: account})
	a.writeJSON(w, http.StatusOK, account)
}

func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request format", http.StatusBadRequest)
		return
	}

	sess, err := a.ledger.Authenticate(r.Context(), req.DanaNumber, req.Password)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidCredentials) {
			http.Error(w, "invalid dana number/password pair", http.StatusUnauthorized)
			return
		}
		a.log.Errorf("failed to authenticate: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	a.issueToken(w, sess)
	a.writeJSON(w, http.StatusOK, loginResponse{Admin: sess.Admin, Account: sess.Account})
}

func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Logout(r.Context()); err != nil {
		a.log.Errorf("failed to clear session: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *API) Profile(w http.ResponseWriter, r *http.Request) {
	accountID, ok := a.requireAccount(w, r)
	if !ok {
		return
	}

	account := a.ledger.Account(r.Context(), accountID)
	if account == nil {
		http.Error(w, "account not found", http.StatusNotFound)
		return
	}
	a.writeJSON(w, http.StatusOK, account)
}

func (a *API) NewCaptcha(w http.ResponseWriter, r *http.Request) {
	accountID, ok := a.requireAccount(w, r)
	if !ok {
		return
	}
	a.writeJSON(w, http.StatusOK, a.tasks.NewCaptcha(accountID))
}

func (a *API) SubmitCaptcha(w http.ResponseWriter, r *http.Request) {
	accountID, ok := a.requireAccount(w, r)
	if !ok {
		return
	}

	var req models.CaptchaAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request format", http.StatusBadRequest)
		return
	}

	reward, err := a.tasks.SubmitCaptcha(req.TaskID, accountID, req.Answer)
	if err != nil {
		switch {
		case errors.Is(err, tasks.ErrWrongAnswer):
			http.Error(w, "wrong answer, try again", http.StatusBadRequest)
		case errors.Is(err, tasks.ErrUnknownTask):
			http.Error(w, "unknown or expired task", http.StatusNotFound)
		default:
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	a.creditReward(w, r, accountID, reward, tasks.TypeCaptcha)
}

func (a *API) StartAd(w http.ResponseWriter, r *http.Request) {
	accountID, ok := a.requireAccount(w, r)
	if !ok {
		return
	}
	a.writeJSON(w, http.StatusOK, a.tasks.StartAd(accountID))
}

func (a *API) CompleteAd(w http.ResponseWriter, r *http.Request) {
	accountID, ok := a.requireAccount(w, r)
	if !ok {
		return
	}

	var req models.AdCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request format", http.StatusBadRequest)
		return
	}

	reward, err := a.tasks.CompleteAd(req.TaskID, accountID)
	if err != nil {
		switch {
		case errors.Is(err, tasks.ErrAdNotDone):
			http.Error(w, "ad has not finished playing", http.StatusConflict)
		case errors.Is(err, tasks.ErrUnknownTask):
			http.Error(w, "unknown or expired task", http.StatusNotFound)
		default:
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	a.creditReward(w, r, accountID, reward, tasks.TypeAd)
}

func (a *API) creditReward(w http.ResponseWriter, r *http.Request, accountID string, reward int64, adType string) {
	account, err := a.ledger.CompleteRewardTask(r.Context(), accountID, reward, adType)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			http.Error(w, "account not found", http.StatusNotFound)
			return
		}
		a.log.Errorf("failed to credit reward: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	a.writeJSON(w, http.StatusOK, rewardResponse{Reward: reward, Account: account})
}

func (a *API) Withdraw(w http.ResponseWriter, r *http.Request) {
	accountID, ok := a.requireAccount(w, r)
	if !ok {
		return
	}

	var req models.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request format", http.StatusBadRequest)
		return
	}

	withdrawal, err := a.ledger.RequestWithdrawal(r.Context(), accountID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrBelowMinimum):
			http.Error(w, "minimum withdrawal is 100", http.StatusUnprocessableEntity)
		case errors.Is(err, ledger.ErrInsufficientFunds):
			http.Error(w, "insufficient funds", http.StatusPaymentRequired)
		case errors.Is(err, accounts.ErrNotFound):
			http.Error(w, "account not found", http.StatusNotFound)
		default:
			a.log.Errorf("failed to create withdrawal: %v", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	a.writeJSON(w, http.StatusOK, withdrawal)
}

func (a *API) GetWithdrawals(w http.ResponseWriter, r *http.Request) {
	accountID, ok := a.requireAccount(w, r)
	if !ok {
		return
	}
	a.writeList(w, a.ledger.WithdrawalsByAccount(r.Context(), accountID))
}

func (a *API) GetReferrals(w http.ResponseWriter, r *http.Request) {
	accountID, ok := a.requireAccount(w, r)
	if !ok {
		return
	}
	a.writeList(w, a.ledger.ReferralsByAccount(r.Context(), accountID))
}

func (a *API) GetAdWatches(w http.ResponseWriter, r *http.Request) {
	accountID, ok := a.requireAccount(w, r)
	if !ok {
		return
	}
	a.writeList(w, a.ledger.AdWatchesByAccount(r.Context(), accountID))
}

// requireAccount rejects principals that carry no account, i.e. the
// administrator hitting a user endpoint.
func (a *API) requireAccount(w http.ResponseWriter, r *http.Request) (string, bool) {
	p := middlewares.Principal(r)
	if p.AccountID == "" {
		http.Error(w, "user account required", http.StatusForbidden)
		return "", false
	}
	return p.AccountID, true
}

func (a *API) issueToken(w http.ResponseWriter, sess *session.Session) {
	token, err := a.sessions.Token(sess)
	if err != nil {
		a.log.Errorf("failed to build token: %v", err)
		return
	}
	w.Header().Set("Authorization", "Bearer "+token)
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Errorf("failed to encode response: %v", err)
	}
}

// writeList answers 204 for an empty sequence, the same contract the
// history endpoints have always had.
func (a *API) writeList(w http.ResponseWriter, list any) {
	empty := false
	switch v := list.(type) {
	case []models.Withdrawal:
		empty = len(v) == 0
	case []models.Referral:
		empty = len(v) == 0
	case []models.AdWatch:
		empty = len(v) == 0
	case []models.Account:
		empty = len(v) == 0
	case []models.BlockedIP:
		empty = len(v) == 0
	}
	if empty {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	a.writeJSON(w, http.StatusOK, list)
}
