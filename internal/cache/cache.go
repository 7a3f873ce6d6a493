// Package cache holds previously fetched server resources between
// sessions, keyed by resource identity strings. A missing or corrupt
// entry is a miss, never an error: callers must be able to run with the
// cache permanently empty.
package cache

import "fmt"

// Store is the persistence port for cached resources. Operations are
// synchronous and side-effect only the named key.
type Store interface {
	// Get returns the stored value for key, or false on a miss.
	Get(key string) ([]byte, bool)

	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte)

	// Remove deletes the key. Removing an absent key is a no-op.
	Remove(key string)
}

// Cache key namespace. The formats must stay exactly as they are for
// compatibility with previously persisted entries.

func AccountsKey() string {
	return "accounts"
}

func CategoriesKey(accountID string) string {
	return fmt.Sprintf("categories_%s", accountID)
}

func CategoryRulesKey(accountID string) string {
	return fmt.Sprintf("categoryRules_%s", accountID)
}

func WalletsKey(accountID string) string {
	return fmt.Sprintf("wallets_%s", accountID)
}

func TransactionsKey(accountID, walletID string) string {
	return fmt.Sprintf("transactions_%s_%s", accountID, walletID)
}
