package transaction

import (
	"testing"

	"github.com/shopspring/decimal"

	"virtwallet/internal/category"
)

func tx(id, date, description, value, categoryID, keyword string) Transaction {
	return Transaction{
		TxID:        id,
		TxDate:      date,
		Description: description,
		Value:       decimal.RequireFromString(value),
		CategoryID:  categoryID,
		Keyword:     keyword,
	}
}

func ids(transactions []Transaction) []string {
	result := make([]string, len(transactions))
	for i, t := range transactions {
		result[i] = t.TxID
	}
	return result
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSortOrders(t *testing.T) {
	list := []Transaction{
		tx("T1", "2023-04-20", "zebra", "5.00", "", ""),
		tx("T2", "2023-04-02", "Apple", "-12.00", "", ""),
		tx("T3", "2023-04-10", "mango", "1.50", "", ""),
	}

	tests := []struct {
		name      string
		orderBy   string
		ascending bool
		want      []string
	}{
		{"by date ascending", OrderByDate, true, []string{"T2", "T3", "T1"}},
		{"by date descending", OrderByDate, false, []string{"T1", "T3", "T2"}},
		{"by description case-insensitive", OrderByDescription, true, []string{"T2", "T3", "T1"}},
		{"by value", OrderByValue, true, []string{"T2", "T3", "T1"}},
		{"unknown falls back to date", "bogus", true, []string{"T2", "T3", "T1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sort(tt.orderBy, list, tt.ascending)
			if !equal(ids(got), tt.want) {
				t.Errorf("order = %v, want %v", ids(got), tt.want)
			}
		})
	}

	// The input list is never reordered in place.
	if list[0].TxID != "T1" {
		t.Errorf("input mutated: %v", ids(list))
	}
}

func TestGroupByDate(t *testing.T) {
	list := []Transaction{
		tx("T1", "2023-04-02", "", "1.00", "", ""),
		tx("T2", "2023-04-10", "", "1.00", "", ""),
		tx("T3", "2023-04-02", "", "1.00", "", ""),
	}

	groups := GroupByDate(list)
	if len(groups) != 2 {
		t.Fatalf("groups = %v", groups)
	}
	if groups[0].GroupID != "2023-04-02" || len(groups[0].Transactions) != 2 {
		t.Errorf("groups[0] = %+v", groups[0])
	}
	if groups[1].GroupID != "2023-04-10" || len(groups[1].Transactions) != 1 {
		t.Errorf("groups[1] = %+v", groups[1])
	}
}

func TestGroupByCategory(t *testing.T) {
	categories := []category.Category{
		{CategoryID: "C1", Name: "Food"},
		{CategoryID: "C2", Name: "Travel"},
	}
	list := []Transaction{
		tx("T1", "2023-04-02", "", "1.00", "C1", ""),
		tx("T2", "2023-04-03", "", "1.00", "", ""),
		tx("T3", "2023-04-04", "", "1.00", "C1", ""),
		tx("T4", "2023-04-05", "", "1.00", "UNKNOWN", ""),
	}

	groups := GroupByCategory(list, categories)
	if len(groups) != 2 {
		t.Fatalf("groups = %+v", groups)
	}
	if groups[0].GroupID != "Food" || len(groups[0].Transactions) != 2 {
		t.Errorf("groups[0] = %+v", groups[0])
	}
	if groups[1].GroupID != "Unclassified" || groups[1].Transactions[0].TxID != "T2" {
		t.Errorf("groups[1] = %+v", groups[1])
	}
}

func TestSearchMatchesKeywordCaseInsensitively(t *testing.T) {
	list := []Transaction{
		tx("T1", "2023-04-02", "", "1.00", "", "TESCO STORE"),
		tx("T2", "2023-04-03", "", "1.00", "", "Spar Express"),
	}

	got := Search(list, "tesco")
	if !equal(ids(got), []string{"T1"}) {
		t.Errorf("got = %v", ids(got))
	}

	if got := Search(list, ""); len(got) != 2 {
		t.Errorf("empty term filtered: %v", ids(got))
	}
}
