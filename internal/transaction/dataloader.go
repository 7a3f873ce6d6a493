package transaction

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"virtwallet/internal/category"
	"virtwallet/internal/datasync"
	"virtwallet/internal/notify"
)

// View is what the transactions page renders: the window's transactions
// plus the categories used for grouping and editing.
type View struct {
	Categories   []category.Category
	Transactions []Transaction

	// Window actually covered by the transaction data source; may be
	// wider than requested after a union refetch.
	Window Window
}

// DataLoader assembles a View by fetching categories and transactions
// concurrently.
type DataLoader struct {
	categories   *category.Loader
	transactions *Loader
}

func NewDataLoader(engine *datasync.Engine, messages notify.Handler, log *slog.Logger) *DataLoader {
	return &DataLoader{
		categories:   category.NewLoader(engine, messages, log),
		transactions: NewLoader(engine, messages, log),
	}
}

// Load fetches both collections in parallel. Each side degrades to an
// empty list with its own notification on failure; the first error is
// still reported.
func (d *DataLoader) Load(ctx context.Context, accountID, walletID string, window Window) (View, error) {
	view := View{Window: window}

	var g errgroup.Group
	g.Go(func() error {
		categories, err := d.categories.Load(ctx, accountID)
		view.Categories = categories
		return err
	})
	g.Go(func() error {
		transactions, resolved, err := d.transactions.Load(ctx, accountID, walletID, window)
		view.Transactions = transactions
		view.Window = resolved
		return err
	})

	err := g.Wait()
	return view, err
}
