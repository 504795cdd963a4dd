package models

import (
	"time"
)

// Account is one registered participant. Balance fields are whole rupiah.
type Account struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	DanaNumber       string    `json:"danaNumber"`
	DanaName         string    `json:"danaName"`
	Email            string    `json:"email"`
	Balance          int64     `json:"balance"`
	TotalEarned      int64     `json:"totalEarned"`
	AdsWatched       int       `json:"adsWatched"`
	ReferralEarnings int64     `json:"referralEarnings"`
	ReferralCode     string    `json:"referralCode"`
	ReferredBy       string    `json:"referredBy,omitempty"` // referral code of the referrer, not an id
	ReferralCount    int       `json:"referrals"`
	CreatedAt        time.Time `json:"createdAt"`
}

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

// Withdrawal snapshots the account's display fields at request time, so the
// admin view stays stable even if the profile changes later.
type Withdrawal struct {
	ID          string           `json:"id"`
	UserID      string           `json:"userId"`
	UserName    string           `json:"userName"`
	DanaNumber  string           `json:"danaNumber"`
	DanaName    string           `json:"danaName"`
	Amount      int64            `json:"amount"`
	Status      WithdrawalStatus `json:"status"`
	RequestedAt time.Time        `json:"requestedAt"`
	ProcessedAt *time.Time       `json:"processedAt,omitempty"`
}

// AdWatch is an append-only record of one completed reward task.
type AdWatch struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	AdType    string    `json:"adType"`
	Reward    int64     `json:"reward"`
	WatchedAt time.Time `json:"watchedAt"`
}

// Referral is an append-only record of a bonus event between a referrer and
// a referred account. The signup record carries bonus 0; commission records
// carry the credited amount.
type Referral struct {
	ID           string    `json:"id"`
	ReferrerID   string    `json:"referrerId"`
	ReferredID   string    `json:"referredId"`
	ReferredName string    `json:"referredName"`
	Bonus        int64     `json:"bonus"`
	CreatedAt    time.Time `json:"createdAt"`
}

type BlockedIP struct {
	IP        string    `json:"ip"`
	Reason    string    `json:"reason,omitempty"`
	BlockedAt time.Time `json:"blockedAt"`
}

type RegisterRequest struct {
	Name         string `json:"name"`
	DanaNumber   string `json:"danaNumber"`
	DanaName     string `json:"danaName"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	ReferralCode string `json:"referralCode,omitempty"`
}

type LoginRequest struct {
	DanaNumber string `json:"danaNumber"`
	Password   string `json:"password"`
}

type WithdrawRequest struct {
	Amount int64 `json:"amount"`
}

type CaptchaAnswerRequest struct {
	TaskID string `json:"taskId"`
	Answer string `json:"answer"`
}

type AdCompleteRequest struct {
	TaskID string `json:"taskId"`
}

type BlockIPRequest struct {
	IP     string `json:"ip"`
	Reason string `json:"reason,omitempty"`
}

// Stats are the admin dashboard counters.
type Stats struct {
	TotalUsers         int   `json:"totalUsers"`
	TotalWithdrawals   int   `json:"totalWithdrawals"`
	PendingWithdrawals int   `json:"pendingWithdrawals"`
	TotalPaid          int64 `json:"totalPaid"`
}
