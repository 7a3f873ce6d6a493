// Package notify is the port through which entity modules surface
// user-facing messages. The sync engine never shows messages itself; it
// fails with an error and leaves translation to the entity module.
package notify

// Handler receives a message key for presentation. The presentation
// layer resolves keys against its locale catalogue.
type Handler interface {
	Show(messageKey string)
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(string)

func (f HandlerFunc) Show(messageKey string) { f(messageKey) }

// Discard drops every message. Useful for background loads that have no
// surface to report to.
var Discard Handler = HandlerFunc(func(string) {})

// Message keys, matching the locale catalogue ids.
const (
	MsgNoChangesMade = "no_changes_made"

	MsgErrorLoadingAccounts = "error_loading_accounts"

	MsgErrorLoadingCategories = "error_loading_categories"
	MsgErrorSavingCategory    = "error_saving_category"
	MsgErrorCreatingCategory  = "error_creating_category"

	MsgErrorLoadingCategoryRules = "error_loading_category_rules"
	MsgErrorSavingCategoryRule   = "error_saving_category_rule"
	MsgErrorCreatingCategoryRule = "error_creating_category_rule"
	MsgErrorDeletingCategoryRule = "error_deleting_category_rule"

	MsgErrorLoadingWallets = "error_loading_wallets"
	MsgErrorSavingWallet   = "error_saving_wallet"
	MsgErrorCreatingWallet = "error_creating_wallet"
	MsgErrorDeletingWallet = "error_deleting_wallet"

	MsgErrorLoadingTransactions = "error_loading_transactions"
	MsgErrorSavingTransaction   = "error_saving_transaction"
)
