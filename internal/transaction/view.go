package transaction

import (
	"sort"
	"strings"

	"virtwallet/internal/category"
)

// Sort orders for transaction lists.
const (
	OrderByDate        = "date"
	OrderByDescription = "description"
	OrderByValue       = "value"
)

// Sort returns a copy of the list ordered by the named field. An
// unknown order falls back to date.
func Sort(orderBy string, transactions []Transaction, ascending bool) []Transaction {
	sorted := append([]Transaction(nil), transactions...)

	var less func(a, b Transaction) bool
	switch orderBy {
	case OrderByDescription:
		less = func(a, b Transaction) bool {
			return strings.ToUpper(a.Description) < strings.ToUpper(b.Description)
		}
	case OrderByValue:
		less = func(a, b Transaction) bool { return a.Value.LessThan(b.Value) }
	default:
		less = func(a, b Transaction) bool { return a.TxDate < b.TxDate }
	}

	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	if !ascending {
		for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
			sorted[i], sorted[j] = sorted[j], sorted[i]
		}
	}
	return sorted
}

// Group is a labelled slice of transactions for sectioned rendering.
type Group struct {
	GroupID      string
	Transactions []Transaction
}

// GroupByDate sections transactions by their date, groups ordered by
// first appearance.
func GroupByDate(transactions []Transaction) []Group {
	var order []string
	groups := make(map[string][]Transaction)

	for _, tx := range transactions {
		if _, seen := groups[tx.TxDate]; !seen {
			order = append(order, tx.TxDate)
		}
		groups[tx.TxDate] = append(groups[tx.TxDate], tx)
	}

	result := make([]Group, 0, len(order))
	for _, date := range order {
		result = append(result, Group{GroupID: date, Transactions: groups[date]})
	}
	return result
}

// unclassifiedGroup labels transactions without a category.
const unclassifiedGroup = "Unclassified"

// GroupByCategory sections transactions by category name. Transactions
// without a category fall into the "Unclassified" group; ones pointing
// at a category id the list does not know are dropped.
func GroupByCategory(transactions []Transaction, categories []category.Category) []Group {
	names := make(map[string]string, len(categories)+1)
	for _, c := range categories {
		names[c.CategoryID] = c.Name
	}
	names[""] = unclassifiedGroup

	var order []string
	groups := make(map[string][]Transaction)
	for _, tx := range transactions {
		if _, known := names[tx.CategoryID]; !known {
			continue
		}
		if _, seen := groups[tx.CategoryID]; !seen {
			order = append(order, tx.CategoryID)
		}
		groups[tx.CategoryID] = append(groups[tx.CategoryID], tx)
	}

	result := make([]Group, 0, len(order))
	for _, categoryID := range order {
		result = append(result, Group{GroupID: names[categoryID], Transactions: groups[categoryID]})
	}
	return result
}

// Search keeps the transactions whose keyword contains the term,
// case-insensitively. An empty term keeps everything.
func Search(transactions []Transaction, term string) []Transaction {
	if term == "" {
		return transactions
	}

	upper := strings.ToUpper(term)
	matched := make([]Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if strings.Contains(strings.ToUpper(tx.Keyword), upper) {
			matched = append(matched, tx)
		}
	}
	return matched
}
