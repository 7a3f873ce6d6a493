// Package category manages transaction categories for an account:
// cache-first loading, creation and write-through edits.
package category

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"virtwallet/internal/cache"
	"virtwallet/internal/datasync"
	"virtwallet/internal/notify"
)

type Category struct {
	AccountID   string         `json:"accountId"`
	CategoryID  string         `json:"categoryId"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Budget      map[string]any `json:"budget,omitempty"`
}

// initialBudgetVersion tags a budget that is being introduced by this
// edit, so the server can distinguish it from an update of an existing
// one.
const initialBudgetVersion = 1

// changeSetFor builds the change set for a category edit. A budget
// added where none existed is invisible to the shallow attribute scan
// (it only walks old-state keys), so it is special-cased here: the old
// side gets an explicit nil and the new side carries the initial
// version marker.
func changeSetFor(original, updated Category) (*datasync.ChangeSet, error) {
	oldAttrs, err := datasync.AttributesOf(original)
	if err != nil {
		return nil, err
	}
	newAttrs, err := datasync.AttributesOf(updated)
	if err != nil {
		return nil, err
	}

	if original.Budget == nil && updated.Budget != nil {
		budget := make(map[string]any, len(updated.Budget)+1)
		for k, v := range updated.Budget {
			budget[k] = v
		}
		if _, ok := budget["versionId"]; !ok {
			budget["versionId"] = initialBudgetVersion
		}
		newAttrs["budget"] = budget
		oldAttrs["budget"] = nil
	}

	return datasync.NewChangeSet(oldAttrs, newAttrs), nil
}

// Save writes a category edit through to the server and reconciles the
// cached list with the server's response. An edit with no effective
// changes is skipped with a notification and no network call.
func Save(ctx context.Context, engine *datasync.Engine, original, updated Category, messages notify.Handler) error {
	changeSet, err := changeSetFor(original, updated)
	if err != nil {
		return fmt.Errorf("build category change set: %w", err)
	}

	accountID := original.AccountID
	categoryID := original.CategoryID

	err = datasync.Update(ctx, engine, datasync.UpdateParams[[]Category]{
		Key:          cache.CategoriesKey(accountID),
		ResourcePath: fmt.Sprintf("/account/%s/category/%s", accountID, categoryID),
		ChangeSet:    changeSet,
		Merger:       replaceByID(categoryID),
	})
	if errors.Is(err, datasync.ErrNoChanges) {
		messages.Show(notify.MsgNoChangesMade)
		return nil
	}
	if err != nil {
		messages.Show(notify.MsgErrorSavingCategory)
		return err
	}
	return nil
}

// replaceByID builds the update merger: the server's returned category
// replaces the cached entry with the matching id. A category missing
// from the cache leaves the list unchanged.
func replaceByID(categoryID string) func([]Category, json.RawMessage) ([]Category, error) {
	return func(current []Category, updated json.RawMessage) ([]Category, error) {
		var saved Category
		if err := json.Unmarshal(updated, &saved); err != nil {
			return nil, fmt.Errorf("decode updated category: %w", err)
		}
		if saved.CategoryID == "" {
			saved.CategoryID = categoryID
		}

		merged := append([]Category(nil), current...)
		for i := range merged {
			if merged[i].CategoryID == categoryID {
				merged[i] = saved
			}
		}
		return merged, nil
	}
}

// Create registers a new category under the account. The wire format is
// a one-element list; the server answers with the created entries.
func Create(ctx context.Context, engine *datasync.Engine, accountID string, category Category, messages notify.Handler) error {
	category.AccountID = accountID

	err := datasync.Create(ctx, engine, datasync.CreateParams[[]Category]{
		Key:          cache.CategoriesKey(accountID),
		ResourcePath: fmt.Sprintf("/account/%s/category", accountID),
		Body:         []Category{category},
		Merger: func(current []Category, created json.RawMessage) ([]Category, error) {
			var createdList []Category
			if err := json.Unmarshal(created, &createdList); err != nil {
				return nil, fmt.Errorf("decode created categories: %w", err)
			}
			return append(current, createdList...), nil
		},
	})
	if err != nil {
		messages.Show(notify.MsgErrorCreatingCategory)
		return err
	}
	return nil
}

// Loader reads an account's categories cache-first.
type Loader struct {
	engine   *datasync.Engine
	messages notify.Handler
	log      *slog.Logger
}

func NewLoader(engine *datasync.Engine, messages notify.Handler, log *slog.Logger) *Loader {
	return &Loader{engine: engine, messages: messages, log: log}
}

func (l *Loader) Load(ctx context.Context, accountID string) ([]Category, error) {
	l.log.Debug("loading categories", "account_id", accountID)

	categories, err := datasync.Load(ctx, l.engine, datasync.LoadParams[[]Category]{
		Key:          cache.CategoriesKey(accountID),
		ResourcePath: fmt.Sprintf("/account/%s/category", accountID),
	})
	if err != nil {
		l.log.Error("failed to load categories", "account_id", accountID, "error", err)
		l.messages.Show(notify.MsgErrorLoadingCategories)
		return []Category{}, err
	}
	return categories, nil
}
