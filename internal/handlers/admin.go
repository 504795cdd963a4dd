package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"adsduit/internal/ledger"
	"adsduit/internal/models"
)

func (a *API) AdminStats(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.ledger.Stats(r.Context()))
}

func (a *API) AdminUsers(w http.ResponseWriter, r *http.Request) {
	a.writeList(w, a.ledger.Accounts(r.Context()))
}

func (a *API) AdminWithdrawals(w http.ResponseWriter, r *http.Request) {
	status := models.WithdrawalStatus(r.URL.Query().Get("status"))
	switch status {
	case "", models.WithdrawalPending, models.WithdrawalApproved, models.WithdrawalRejected:
	default:
		http.Error(w, "unknown status filter", http.StatusBadRequest)
		return
	}
	a.writeList(w, a.ledger.AllWithdrawals(r.Context(), status))
}

func (a *API) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	a.resolveWithdrawal(w, r, true)
}

func (a *API) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	a.resolveWithdrawal(w, r, false)
}

func (a *API) resolveWithdrawal(w http.ResponseWriter, r *http.Request, approve bool) {
	withdrawal, err := a.ledger.ResolveWithdrawal(r.Context(), chi.URLParam(r, "id"), approve)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrWithdrawalNotFound):
			http.Error(w, "withdrawal request not found", http.StatusNotFound)
		case errors.Is(err, ledger.ErrAlreadyResolved):
			http.Error(w, "withdrawal request already resolved", http.StatusConflict)
		default:
			a.log.Errorf("failed to resolve withdrawal: %v", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}
	a.writeJSON(w, http.StatusOK, withdrawal)
}

func (a *API) BlockedIPs(w http.ResponseWriter, r *http.Request) {
	a.writeList(w, a.blocklist.List(r.Context()))
}

func (a *API) BlockIP(w http.ResponseWriter, r *http.Request) {
	var req models.BlockIPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request format", http.StatusBadRequest)
		return
	}
	if req.IP == "" {
		http.Error(w, "ip must not be empty", http.StatusBadRequest)
		return
	}

	if err := a.blocklist.Block(r.Context(), req.IP, req.Reason); err != nil {
		a.log.Errorf("failed to block ip: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *API) UnblockIP(w http.ResponseWriter, r *http.Request) {
	if err := a.blocklist.Unblock(r.Context(), chi.URLParam(r, "ip")); err != nil {
		a.log.Errorf("failed to unblock ip: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
