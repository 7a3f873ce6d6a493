// Package account loads the user's accounts and exposes helpers for
// editing them. Accounts are read-mostly; the interesting write paths
// live on the entities scoped below an account.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"virtwallet/internal/cache"
	"virtwallet/internal/datasync"
	"virtwallet/internal/notify"
)

// ErrNotFound reports that an account id was absent from the loaded
// list. Distinct from a network failure so callers can tell "server
// unreachable" from "no such account".
var ErrNotFound = errors.New("account not found")

// Period is a manually set accounting period inside a month start date
// rule. Dates are yyyy-MM-dd strings; Month is yyyy-MM.
type Period struct {
	Month     string `json:"month"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// MonthStartDateRule decides where an account's accounting month
// begins.
type MonthStartDateRule struct {
	CurrentMonth       bool     `json:"currentMonth"`
	DayOfMonth         int      `json:"dayOfMonth"`
	ManuallySetPeriods []Period `json:"manuallySetPeriods"`
}

type Account struct {
	AccountID          string             `json:"accountId"`
	OwnerID            string             `json:"ownerId"`
	Name               string             `json:"name"`
	Description        string             `json:"description"`
	MonthStartDateRule MonthStartDateRule `json:"monthStartDateRule"`
}

// Clone copies an account deeply enough for independent editing: the
// month start date rule and its periods do not alias the original.
func Clone(a Account) Account {
	clone := a
	clone.MonthStartDateRule.ManuallySetPeriods = append(
		[]Period(nil), a.MonthStartDateRule.ManuallySetPeriods...)
	return clone
}

// Loader reads accounts cache-first. Failures surface as notifications
// and an empty result so pages render a "no data" state.
type Loader struct {
	engine   *datasync.Engine
	messages notify.Handler
	log      *slog.Logger
}

func NewLoader(engine *datasync.Engine, messages notify.Handler, log *slog.Logger) *Loader {
	return &Loader{engine: engine, messages: messages, log: log}
}

func (l *Loader) loadParams() datasync.LoadParams[[]Account] {
	return datasync.LoadParams[[]Account]{
		Key:          cache.AccountsKey(),
		ResourcePath: "/account",
	}
}

// LoadAll returns every account owned by the signed-in user.
func (l *Loader) LoadAll(ctx context.Context) ([]Account, error) {
	l.log.Debug("loading accounts")

	accounts, err := datasync.Load(ctx, l.engine, l.loadParams())
	if err != nil {
		l.log.Error("failed to load accounts", "error", err)
		l.messages.Show(notify.MsgErrorLoadingAccounts)
		return []Account{}, err
	}
	return accounts, nil
}

// LoadByID returns one account from the loaded list, or ErrNotFound.
func (l *Loader) LoadByID(ctx context.Context, accountID string) (Account, error) {
	accounts, err := datasync.Load(ctx, l.engine, l.loadParams())
	if err != nil {
		l.log.Error("failed to load accounts", "error", err)
		l.messages.Show(notify.MsgErrorLoadingAccounts)
		return Account{}, err
	}

	for _, a := range accounts {
		if a.AccountID == accountID {
			return a, nil
		}
	}

	l.messages.Show(notify.MsgErrorLoadingAccounts)
	return Account{}, fmt.Errorf("%w: %s", ErrNotFound, accountID)
}
