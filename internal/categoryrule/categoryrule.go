// Package categoryrule manages the classification rules that assign
// categories to imported transactions. Rules come in two flavours kept
// as parallel sub-lists of a single cached object: keyword rules,
// identified by their keyword, and expression rules, identified by a
// generated rule id.
package categoryrule

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

// RuleTypeKeyword marks a keyword rule. Every other rule type
// ("contains", "startsWith", ...) is an expression rule.
const RuleTypeKeyword = "keyword"

// Rule is either a keyword or an expression rule; RuleType tells them
// apart. Keyword rules use Keyword as identity, expression rules use
// RuleID.
type Rule struct {
	AccountID  string `json:"accountId"`
	RuleType   string `json:"ruleType"`
	CategoryID string `json:"categoryId"`
	Priority   int    `json:"priority"`
	Keyword    string `json:"keyword,omitempty"`
	RuleID     string `json:"ruleId,omitempty"`
	Name       string `json:"name,omitempty"`
	Parameter  string `json:"parameter,omitempty"`
}

// Rules is the cached shape for an account's rules.
type Rules struct {
	KeywordRules    []Rule `json:"keywordRules"`
	ExpressionRules []Rule `json:"expressionRules"`
}

func (r Rule) isKeyword() bool {
	return r.RuleType == RuleTypeKeyword
}

// Identity returns the value that uniquely names the rule within its
// sub-list.
func (r Rule) Identity() string {
	if r.isKeyword() {
		return r.Keyword
	}
	return r.RuleID
}

func pathSegment(r Rule) string {
	if r.isKeyword() {
		return "keyword"
	}
	return "expression"
}

func rulePath(r Rule) string {
	return fmt.Sprintf("/account/%s/categoryRule/%s/%s", r.AccountID, pathSegment(r), r.Identity())
}

// subList returns the sub-list the rule belongs to, plus a setter
// writing a modified copy back into a Rules value.
func subList(rules Rules, r Rule) ([]Rule, func(Rules, []Rule) Rules) {
	if r.isKeyword() {
		return rules.KeywordRules, func(rs Rules, l []Rule) Rules { rs.KeywordRules = l; return rs }
	}
	return rules.ExpressionRules, func(rs Rules, l []Rule) Rules { rs.ExpressionRules = l; return rs }
}

// Save writes a rule edit through to the server. The rule keeps its
// type and identity across the edit; only the remaining attributes
// change.
func Save(ctx context.Context, engine *datasync.Engine, original, updated Rule, messages notify.Handler) error {
	oldAttrs, err := datasync.AttributesOf(original)
	if err != nil {
		return fmt.Errorf("build rule change set: %w", err)
	}
	newAttrs, err := datasync.AttributesOf(updated)
	if err != nil {
		return fmt.Errorf("build rule change set: %w", err)
	}

	err = datasync.Update(ctx, engine, datasync.UpdateParams[Rules]{
		Key:          cache.CategoryRulesKey(original.AccountID),
		ResourcePath: rulePath(original),
		ChangeSet:    datasync.NewChangeSet(oldAttrs, newAttrs),
		Merger: func(current Rules, saved json.RawMessage) (Rules, error) {
			var savedRule Rule
			if err := json.Unmarshal(saved, &savedRule); err != nil {
				return Rules{}, fmt.Errorf("decode updated rule: %w", err)
			}
			if savedRule.RuleType == "" {
				savedRule.RuleType = original.RuleType
			}
			if savedRule.Identity() == "" {
				savedRule = updated
			}

			list, set := subList(current, original)
			merged := append([]Rule(nil), list...)
			for i := range merged {
				if merged[i].Identity() == original.Identity() {
					merged[i] = savedRule
				}
			}
			return set(current, merged), nil
		},
	})
	if errors.Is(err, datasync.ErrNoChanges) {
		messages.Show(notify.MsgNoChangesMade)
		return nil
	}
	if err != nil {
		messages.Show(notify.MsgErrorSavingCategoryRule)
		return err
	}
	return nil
}

// Create registers a new rule. The wire format is a one-element list;
// the server answers with the created entries, which are appended to
// the matching sub-list.
func Create(ctx context.Context, engine *datasync.Engine, rule Rule, messages notify.Handler) error {
	err := datasync.Create(ctx, engine, datasync.CreateParams[Rules]{
		Key:          cache.CategoryRulesKey(rule.AccountID),
		ResourcePath: fmt.Sprintf("/account/%s/categoryRule", rule.AccountID),
		Body:         []Rule{rule},
		Merger: func(current Rules, created json.RawMessage) (Rules, error) {
			var createdList []Rule
			if err := json.Unmarshal(created, &createdList); err != nil {
				return Rules{}, fmt.Errorf("decode created rules: %w", err)
			}
			list, set := subList(current, rule)
			return set(current, append(append([]Rule(nil), list...), createdList...)), nil
		},
	})
	if err != nil {
		messages.Show(notify.MsgErrorCreatingCategoryRule)
		return err
	}
	return nil
}

// Delete removes a rule and splices it out of its cached sub-list. A
// rule already absent from the cache leaves the list unchanged.
func Delete(ctx context.Context, engine *datasync.Engine, rule Rule, messages notify.Handler) error {
	err := datasync.Remove(ctx, engine, datasync.RemoveParams[Rules]{
		Key:          cache.CategoryRulesKey(rule.AccountID),
		ResourcePath: rulePath(rule),
		Merger: func(current Rules) (Rules, error) {
			list, set := subList(current, rule)
			merged := make([]Rule, 0, len(list))
			for _, r := range list {
				if r.Identity() != rule.Identity() {
					merged = append(merged, r)
				}
			}
			return set(current, merged), nil
		},
	})
	if err != nil {
		messages.Show(notify.MsgErrorDeletingCategoryRule)
		return err
	}
	return nil
}

// Loader reads an account's rules cache-first. The rule type it serves
// is a configuration value, not a subtype.
type Loader struct {
	engine   *datasync.Engine
	messages notify.Handler
	ruleType string
	log      *slog.Logger
}

func NewLoader(engine *datasync.Engine, messages notify.Handler, ruleType string, log *slog.Logger) *Loader {
	return &Loader{engine: engine, messages: messages, ruleType: ruleType, log: log}
}

// Load returns the sub-list matching the loader's rule type.
func (l *Loader) Load(ctx context.Context, accountID string) ([]Rule, error) {
	l.log.Debug("loading category rules", "account_id", accountID, "rule_type", l.ruleType)

	rules, err := datasync.Load(ctx, l.engine, datasync.LoadParams[Rules]{
		Key:          cache.CategoryRulesKey(accountID),
		ResourcePath: fmt.Sprintf("/account/%s/categoryRule", accountID),
	})
	if err != nil {
		l.log.Error("failed to load category rules", "account_id", accountID, "error", err)
		l.messages.Show(notify.MsgErrorLoadingCategoryRules)
		return []Rule{}, err
	}

	if l.ruleType == RuleTypeKeyword {
		return rules.KeywordRules, nil
	}
	return rules.ExpressionRules, nil
}
