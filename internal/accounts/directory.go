package accounts

import (
	"context"
	"errors"

	"adsduit/internal/models"
	"adsduit/internal/store"
)

var (
	ErrDuplicateHandle = errors.New("dana number already registered")
	ErrNotFound        = errors.New("account not found")
)

// Directory provides indexed access over the accounts collection. Every
// mutation is a read-modify-write of the whole collection; the ledger
// serializes callers, so last-write-wins never actually loses an update.
type Directory struct {
	store store.RecordStore
}

func NewDirectory(s store.RecordStore) *Directory {
	return &Directory{store: s}
}

func (d *Directory) load(ctx context.Context) []models.Account {
	var accounts []models.Account
	d.store.Load(ctx, store.CollectionUsers, &accounts)
	return accounts
}

func (d *Directory) save(ctx context.Context, accounts []models.Account) error {
	return d.store.Save(ctx, store.CollectionUsers, accounts)
}

// All returns every account, in insertion order.
func (d *Directory) All(ctx context.Context) []models.Account {
	return d.load(ctx)
}

func (d *Directory) FindByID(ctx context.Context, id string) *models.Account {
	return d.find(ctx, func(a *models.Account) bool { return a.ID == id })
}

func (d *Directory) FindByHandle(ctx context.Context, danaNumber string) *models.Account {
	return d.find(ctx, func(a *models.Account) bool { return a.DanaNumber == danaNumber })
}

func (d *Directory) FindByReferralCode(ctx context.Context, code string) *models.Account {
	return d.find(ctx, func(a *models.Account) bool { return a.ReferralCode == code })
}

func (d *Directory) find(ctx context.Context, match func(*models.Account) bool) *models.Account {
	for _, a := range d.load(ctx) {
		if match(&a) {
			found := a
			return &found
		}
	}
	return nil
}

// Insert appends a new account, rejecting a dana number that is already
// registered.
func (d *Directory) Insert(ctx context.Context, account models.Account) error {
	accounts := d.load(ctx)
	for _, a := range accounts {
		if a.DanaNumber == account.DanaNumber {
			return ErrDuplicateHandle
		}
	}
	return d.save(ctx, append(accounts, account))
}

// Update applies apply to the stored account and writes the collection back,
// returning the updated copy.
func (d *Directory) Update(ctx context.Context, id string, apply func(*models.Account)) (*models.Account, error) {
	accounts := d.load(ctx)
	for i := range accounts {
		if accounts[i].ID == id {
			apply(&accounts[i])
			if err := d.save(ctx, accounts); err != nil {
				return nil, err
			}
			updated := accounts[i]
			return &updated, nil
		}
	}
	return nil, ErrNotFound
}
