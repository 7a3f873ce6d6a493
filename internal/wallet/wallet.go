// Package wallet manages the wallets of an account and the wallet-level
// maintenance operations: statement upload, transaction reclassification
// and local transaction cache invalidation.
package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"golang.org/x/sync/errgroup"

	"virtwallet/internal/account"
	"virtwallet/internal/cache"
	"virtwallet/internal/datasync"
	"virtwallet/internal/notify"
)

type Wallet struct {
	AccountID   string `json:"accountId"`
	WalletID    string `json:"walletId"`
	OwnerID     string `json:"ownerId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

func walletsPath(accountID string) string {
	return fmt.Sprintf("/account/%s/wallet", accountID)
}

func walletPath(accountID, walletID string) string {
	return fmt.Sprintf("/account/%s/wallet/%s", accountID, walletID)
}

// Create registers a new wallet and appends the server's response to
// the cached list.
func Create(ctx context.Context, engine *datasync.Engine, wallet Wallet, messages notify.Handler) error {
	err := datasync.Create(ctx, engine, datasync.CreateParams[[]Wallet]{
		Key:          cache.WalletsKey(wallet.AccountID),
		ResourcePath: walletsPath(wallet.AccountID),
		Body:         wallet,
		Merger: func(current []Wallet, created json.RawMessage) ([]Wallet, error) {
			var createdWallet Wallet
			if err := json.Unmarshal(created, &createdWallet); err != nil {
				return nil, fmt.Errorf("decode created wallet: %w", err)
			}
			return append(current, createdWallet), nil
		},
	})
	if err != nil {
		messages.Show(notify.MsgErrorCreatingWallet)
		return err
	}
	return nil
}

// Save writes a wallet edit through to the server and replaces the
// cached entry with the server's response.
func Save(ctx context.Context, engine *datasync.Engine, original, updated Wallet, messages notify.Handler) error {
	oldAttrs, err := datasync.AttributesOf(original)
	if err != nil {
		return fmt.Errorf("build wallet change set: %w", err)
	}
	newAttrs, err := datasync.AttributesOf(updated)
	if err != nil {
		return fmt.Errorf("build wallet change set: %w", err)
	}

	walletID := original.WalletID

	err = datasync.Update(ctx, engine, datasync.UpdateParams[[]Wallet]{
		Key:          cache.WalletsKey(original.AccountID),
		ResourcePath: walletPath(original.AccountID, walletID),
		ChangeSet:    datasync.NewChangeSet(oldAttrs, newAttrs),
		Merger: func(current []Wallet, saved json.RawMessage) ([]Wallet, error) {
			var savedWallet Wallet
			if err := json.Unmarshal(saved, &savedWallet); err != nil {
				return nil, fmt.Errorf("decode updated wallet: %w", err)
			}
			if savedWallet.WalletID == "" {
				savedWallet = updated
			}

			merged := append([]Wallet(nil), current...)
			for i := range merged {
				if merged[i].WalletID == walletID {
					merged[i] = savedWallet
				}
			}
			return merged, nil
		},
	})
	if errors.Is(err, datasync.ErrNoChanges) {
		messages.Show(notify.MsgNoChangesMade)
		return nil
	}
	if err != nil {
		messages.Show(notify.MsgErrorSavingWallet)
		return err
	}
	return nil
}

// Delete removes a wallet and splices it out of the cached list. A
// wallet already absent (deleted elsewhere) leaves the list unchanged.
func Delete(ctx context.Context, engine *datasync.Engine, wallet Wallet, messages notify.Handler) error {
	err := datasync.Remove(ctx, engine, datasync.RemoveParams[[]Wallet]{
		Key:          cache.WalletsKey(wallet.AccountID),
		ResourcePath: walletPath(wallet.AccountID, wallet.WalletID),
		Merger: func(current []Wallet) ([]Wallet, error) {
			merged := make([]Wallet, 0, len(current))
			for _, w := range current {
				if w.WalletID != wallet.WalletID {
					merged = append(merged, w)
				}
			}
			return merged, nil
		},
	})
	if err != nil {
		messages.Show(notify.MsgErrorDeletingWallet)
		return err
	}
	return nil
}

// ReclassifyParams selects which transactions the server re-runs the
// classification rules over.
type ReclassifyParams struct {
	AccountID  string
	WalletID   string
	FromDate   string
	ToDate     string
	SourceType string
}

// Reclassify asks the server to re-classify a wallet's transactions.
// Pure server-side work: the local transaction cache is not touched
// here, callers invalidate it separately (CleanTransactions).
func Reclassify(ctx context.Context, client datasync.Client, p ReclassifyParams) (json.RawMessage, error) {
	query := url.Values{
		"filters": {p.SourceType},
		"from":    {p.FromDate},
		"to":      {p.ToDate},
	}

	resp, err := client.PutJSON(ctx, walletPath(p.AccountID, p.WalletID)+"/reclassify", nil, query)
	if err != nil {
		return nil, fmt.Errorf("reclassify wallet %s: %w", p.WalletID, err)
	}
	return resp, nil
}

// CleanTransactions drops the wallet's cached transactions so the next
// load refetches them.
func CleanTransactions(ctx context.Context, engine *datasync.Engine, accountID, walletID string) {
	engine.CleanLocal(ctx, cache.TransactionsKey(accountID, walletID))
}

// Loader reads wallets cache-first.
type Loader struct {
	engine   *datasync.Engine
	messages notify.Handler
	log      *slog.Logger
}

func NewLoader(engine *datasync.Engine, messages notify.Handler, log *slog.Logger) *Loader {
	return &Loader{engine: engine, messages: messages, log: log}
}

// Load returns one account's wallets.
func (l *Loader) Load(ctx context.Context, accountID string) ([]Wallet, error) {
	l.log.Debug("loading wallets", "account_id", accountID)

	wallets, err := datasync.Load(ctx, l.engine, datasync.LoadParams[[]Wallet]{
		Key:          cache.WalletsKey(accountID),
		ResourcePath: walletsPath(accountID),
	})
	if err != nil {
		l.log.Error("failed to load wallets", "account_id", accountID, "error", err)
		l.messages.Show(notify.MsgErrorLoadingWallets)
		return []Wallet{}, err
	}
	return wallets, nil
}

// LoadAll returns the wallets of every account the user owns: it loads
// the account list, fans out one wallet load per account and flattens
// the results in account order.
func (l *Loader) LoadAll(ctx context.Context) ([]Wallet, error) {
	accounts, err := account.NewLoader(l.engine, notify.Discard, l.log).LoadAll(ctx)
	if err != nil {
		l.messages.Show(notify.MsgErrorLoadingWallets)
		return []Wallet{}, err
	}

	l.log.Debug("loading wallets for all accounts", "accounts", len(accounts))

	perAccount := make([][]Wallet, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range accounts {
		i, a := i, a
		g.Go(func() error {
			wallets, err := datasync.Load(gctx, l.engine, datasync.LoadParams[[]Wallet]{
				Key:          cache.WalletsKey(a.AccountID),
				ResourcePath: walletsPath(a.AccountID),
			})
			if err != nil {
				return err
			}
			perAccount[i] = wallets
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		l.log.Error("failed to load wallets across accounts", "error", err)
		l.messages.Show(notify.MsgErrorLoadingWallets)
		return []Wallet{}, err
	}

	var flat []Wallet
	for _, wallets := range perAccount {
		flat = append(flat, wallets...)
	}
	if flat == nil {
		flat = []Wallet{}
	}
	return flat, nil
}
