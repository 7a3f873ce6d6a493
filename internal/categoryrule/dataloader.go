package categoryrule

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"virtwallet/internal/category"
	"virtwallet/internal/datasync"
	"virtwallet/internal/notify"
)

// View is the combined data a rule-management page renders: the rules
// of one type plus the categories they can point at.
type View struct {
	Categories []category.Category
	Rules      []Rule
}

// DataLoader assembles a View by fetching categories and rules
// concurrently.
type DataLoader struct {
	categories *category.Loader
	rules      *Loader
}

func NewDataLoader(engine *datasync.Engine, messages notify.Handler, ruleType string, log *slog.Logger) *DataLoader {
	return &DataLoader{
		categories: category.NewLoader(engine, messages, log),
		rules:      NewLoader(engine, messages, ruleType, log),
	}
}

// Load fetches both collections in parallel. A failing side already
// notified and yielded an empty list, so the view is always renderable;
// the first error is still reported to the caller.
func (d *DataLoader) Load(ctx context.Context, accountID string) (View, error) {
	var view View

	// One side failing must not cancel the other: each loader already
	// degrades to an empty list plus a notification on its own.
	var g errgroup.Group
	g.Go(func() error {
		categories, err := d.categories.Load(ctx, accountID)
		view.Categories = categories
		return err
	})
	g.Go(func() error {
		rules, err := d.rules.Load(ctx, accountID)
		view.Rules = rules
		return err
	})

	err := g.Wait()
	return view, err
}
