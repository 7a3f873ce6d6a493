// Package transaction manages a wallet's transaction history. Reads go
// through a freshness policy that tracks the date window already
// fetched, so revisiting a page does not refetch the whole history.
package transaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"virtwallet/internal/cache"
	"virtwallet/internal/datasync"
	"virtwallet/internal/notify"
)

type Transaction struct {
	TxID        string          `json:"txId"`
	AccountID   string          `json:"accountId"`
	WalletID    string          `json:"walletId"`
	TxDate      string          `json:"txDate"`
	Description string          `json:"description"`
	Value       decimal.Decimal `json:"value"`
	BalanceType string          `json:"balanceType"`
	CategoryID  string          `json:"categoryId"`
	Keyword     string          `json:"keyword"`
	Source      string          `json:"source,omitempty"`
	SourceType  string          `json:"sourceType,omitempty"`
}

func transactionsPath(accountID, walletID string) string {
	return fmt.Sprintf("/account/%s/wallet/%s/transaction", accountID, walletID)
}

// Save writes a transaction edit through to the server. The wire
// payload embeds the transaction date alongside the diff so the server
// can locate the entry in its date-partitioned storage.
func Save(ctx context.Context, engine *datasync.Engine, original, updated Transaction, messages notify.Handler) error {
	oldAttrs, err := datasync.AttributesOf(original)
	if err != nil {
		return fmt.Errorf("build transaction change set: %w", err)
	}
	newAttrs, err := datasync.AttributesOf(updated)
	if err != nil {
		return fmt.Errorf("build transaction change set: %w", err)
	}

	changeSet := datasync.NewChangeSet(oldAttrs, newAttrs)
	changeSet.Transform = func(c *datasync.ChangeSet) any {
		diff := c.Diff()
		return struct {
			TxDate string             `json:"txDate"`
			Old    datasync.Attributes `json:"old"`
			New    datasync.Attributes `json:"new"`
		}{TxDate: original.TxDate, Old: diff.Old, New: diff.New}
	}

	txID := original.TxID

	err = datasync.Update(ctx, engine, datasync.UpdateParams[Record]{
		Key:          cache.TransactionsKey(original.AccountID, original.WalletID),
		ResourcePath: fmt.Sprintf("%s/%s", transactionsPath(original.AccountID, original.WalletID), txID),
		ChangeSet:    changeSet,
		Merger: func(current Record, saved json.RawMessage) (Record, error) {
			var savedTx Transaction
			if err := json.Unmarshal(saved, &savedTx); err != nil {
				return Record{}, fmt.Errorf("decode updated transaction: %w", err)
			}
			if savedTx.TxID == "" {
				savedTx = updated
			}

			merged := append([]Transaction(nil), current.Data...)
			for i := range merged {
				if merged[i].TxID == txID {
					merged[i] = savedTx
				}
			}
			current.Data = merged
			return current, nil
		},
	})
	if errors.Is(err, datasync.ErrNoChanges) {
		messages.Show(notify.MsgNoChangesMade)
		return nil
	}
	if err != nil {
		messages.Show(notify.MsgErrorSavingTransaction)
		return err
	}
	return nil
}

// Export asks the server to generate a downloadable artifact for the
// wallet's transactions in the date range and returns its URL.
func Export(ctx context.Context, client datasync.Client, accountID, walletID string, window Window) (string, error) {
	raw, err := client.Get(ctx, fmt.Sprintf("/account/%s/wallet/%s/export", accountID, walletID), window.queryValues())
	if err != nil {
		return "", fmt.Errorf("export transactions: %w", err)
	}

	var artifactURL string
	if err := json.Unmarshal(raw, &artifactURL); err != nil {
		return "", fmt.Errorf("decode export URL: %w", err)
	}
	return artifactURL, nil
}
