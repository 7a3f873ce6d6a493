package transaction

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"time"

	"virtwallet/internal/cache"
	"virtwallet/internal/datasync"
	"virtwallet/internal/notify"
)

// maxQueryAge bounds how long a past query keeps suppressing refetches
// of dates beyond the cached window. After this, asking again for a
// recent upper bound goes back to the server even if the last query
// already covered it: new transactions may have appeared.
const maxQueryAge = 12 * time.Hour

// Window is an inclusive date range, yyyy-MM-dd.
type Window struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (w Window) queryValues() url.Values {
	return url.Values{"from": {w.From}, "to": {w.To}}
}

// Metadata tracks the date range already fetched for one account/wallet
// pair. Min <= Max whenever any transaction is present; LastQueryParams
// reflects the most recent network query that populated the cache.
type Metadata struct {
	Max             string    `json:"max"`
	Min             string    `json:"min"`
	LastQueryParams Window    `json:"lastQueryParams"`
	LastQueryTime   time.Time `json:"lastQueryTime"`
}

// Record is the cached shape for transactions: the data plus the
// freshness metadata.
type Record struct {
	Data     []Transaction `json:"data"`
	Metadata Metadata      `json:"metadata"`
}

// UnmarshalJSON accepts both the cached object form and the server's
// bare-list response, so a Record can be fetched and cached through the
// same decode path.
func (r *Record) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &r.Data)
	}

	type plain Record
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*r = Record(decoded)
	return nil
}

// shouldRefetch decides whether the cached window satisfies the
// requested one. Dates compare lexicographically (ISO format).
func shouldRefetch(requested Window, m Metadata, now time.Time) bool {
	if m.Max == "" || m.Min == "" {
		return true
	}

	if requested.To > m.Max &&
		(m.LastQueryParams.To < requested.To || now.Sub(m.LastQueryTime) > maxQueryAge) {
		return true
	}

	if requested.From < m.Min && requested.From < m.LastQueryParams.From {
		return true
	}

	return false
}

// refetchWindow widens the requested window to the union with the
// cached one, so a refetch never shrinks the known-covered interval.
func refetchWindow(requested Window, m Metadata) Window {
	fetch := requested
	if m.Min != "" && m.Min < fetch.From {
		fetch.From = m.Min
	}
	if m.Max != "" && m.Max > fetch.To {
		fetch.To = m.Max
	}
	return fetch
}

// stampMetadata recomputes a fetched record's metadata: max/min over
// the fetched set's dates, plus the query that produced it.
func stampMetadata(now time.Time) func(Record, url.Values) Record {
	return func(r Record, query url.Values) Record {
		m := Metadata{
			LastQueryParams: Window{From: query.Get("from"), To: query.Get("to")},
			LastQueryTime:   now,
		}
		for _, tx := range r.Data {
			if m.Max == "" || tx.TxDate > m.Max {
				m.Max = tx.TxDate
			}
			if m.Min == "" || tx.TxDate < m.Min {
				m.Min = tx.TxDate
			}
		}
		r.Metadata = m
		return r
	}
}

// filterWindow keeps the transactions inside the window.
func filterWindow(transactions []Transaction, w Window) []Transaction {
	filtered := make([]Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if tx.TxDate >= w.From && tx.TxDate <= w.To {
			filtered = append(filtered, tx)
		}
	}
	return filtered
}

// Loader reads transactions through the freshness policy.
//
// The read-decide-write sequence is not atomic: a write landing on the
// same key between the cache read and a refetch's store is overwritten,
// last-write-wins. Accepted for a single-user client.
type Loader struct {
	engine   *datasync.Engine
	messages notify.Handler
	log      *slog.Logger
	now      func() time.Time
}

func NewLoader(engine *datasync.Engine, messages notify.Handler, log *slog.Logger) *Loader {
	return &Loader{engine: engine, messages: messages, log: log, now: time.Now}
}

// Load returns the wallet's transactions inside the requested window,
// refetching from the server only when the cached window cannot satisfy
// it. The returned Window is the range actually covered by the data
// source (the union fetch window on a refetch, the request otherwise),
// so callers can reconcile their displayed filter with what was
// fetched.
func (l *Loader) Load(ctx context.Context, accountID, walletID string, requested Window) ([]Transaction, Window, error) {
	key := cache.TransactionsKey(accountID, walletID)

	// Cache peek: no resource path, so a miss yields a zero record
	// without touching the network.
	record, err := datasync.Load(ctx, l.engine, datasync.LoadParams[Record]{Key: key})
	if err != nil {
		return []Transaction{}, requested, err
	}

	resolved := requested
	if shouldRefetch(requested, record.Metadata, l.now()) {
		fetch := refetchWindow(requested, record.Metadata)
		l.log.Debug("refetching transactions",
			"account_id", accountID, "wallet_id", walletID,
			"from", fetch.From, "to", fetch.To)

		record, err = datasync.Reload(ctx, l.engine, datasync.LoadParams[Record]{
			Key:          key,
			ResourcePath: transactionsPath(accountID, walletID),
			Query:        fetch.queryValues(),
			Transform:    stampMetadata(l.now()),
		})
		if err != nil {
			l.log.Error("failed to load transactions",
				"account_id", accountID, "wallet_id", walletID, "error", err)
			l.messages.Show(notify.MsgErrorLoadingTransactions)
			return []Transaction{}, requested, err
		}
		resolved = fetch
	}

	return filterWindow(record.Data, requested), resolved, nil
}
