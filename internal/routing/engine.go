// Package routing implements the tenant rule engine: an ordered,
// first-match-wins evaluation of routing rules against a message/ticket
// context, with a default-queue fallback. The engine performs no writes and
// is safe for concurrent use.
package routing

import (
	"regexp"
	"sort"
	"strings"

	"github.com/spec-kit/mailroom/internal/domain"
)

// Context carries the fields rules can match against.
type Context struct {
	TenantID       string
	SenderDomain   string
	Subject        string
	Body           string
	RequesterEmail string
	IssueType      string
	IssueSystem    string
	Tags           []string
}

// Decision is the outcome of one evaluation. QueueID is nil when neither a
// rule nor a tenant default queue applied.
type Decision struct {
	QueueID           *string
	MatchedRuleID     *string
	IsDefaultFallback bool
	AutoAssignAgentID *string
	AutoPriority      *domain.TicketPriority
	AutoTags          []string
}

// extractor pulls the candidate values for one match type out of a context.
// Tag rules see the whole tag set; scalar fields yield a single value.
type extractor func(ctx Context) []string

// comparator reports whether any extracted value satisfies the rule value.
type comparator func(values []string, matchValue string) bool

var extractors = map[domain.RuleMatchType]extractor{
	domain.MatchSenderDomain:   func(c Context) []string { return scalar(c.SenderDomain) },
	domain.MatchSubjectKeyword: func(c Context) []string { return scalar(c.Subject) },
	domain.MatchBodyKeyword:    func(c Context) []string { return scalar(c.Body) },
	domain.MatchRequesterEmail: func(c Context) []string { return scalar(c.RequesterEmail) },
	domain.MatchTag:            func(c Context) []string { return c.Tags },
	domain.MatchIssueType: func(c Context) []string {
		values := scalar(c.IssueType)
		return append(values, scalar(c.IssueSystem)...)
	},
}

var comparators = map[domain.RuleOperator]comparator{
	domain.OperatorEquals:     anyValue(strings.EqualFold),
	domain.OperatorContains:   anyValue(foldContains),
	domain.OperatorStartsWith: anyValue(foldHasPrefix),
	domain.OperatorRegex:      regexMatch,
	domain.OperatorIn:         inSet,
}

// Engine evaluates routing rules. Stateless.
type Engine struct{}

// NewEngine constructs the engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate applies the tenant's rules in ascending sort order and returns the
// first match's outcome. Inactive rules and rules from other tenants never
// participate. With no match, the tenant's default queue (if any) is the
// fallback.
func (e *Engine) Evaluate(ctx Context, rules []domain.RoutingRule, defaultQueue *domain.Queue) Decision {
	ordered := make([]domain.RoutingRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SortOrder < ordered[j].SortOrder
	})

	for i := range ordered {
		rule := &ordered[i]
		if !rule.IsActive || rule.TenantID != ctx.TenantID {
			continue
		}
		if !ruleMatches(rule, ctx) {
			continue
		}
		ruleID := rule.ID
		queueID := rule.QueueID
		return Decision{
			QueueID:           &queueID,
			MatchedRuleID:     &ruleID,
			AutoAssignAgentID: rule.AutoAssignAgentID,
			AutoPriority:      rule.AutoPriority,
			AutoTags:          ParseTagList(rule.AutoTags),
		}
	}

	if defaultQueue != nil && defaultQueue.TenantID == ctx.TenantID {
		queueID := defaultQueue.ID
		return Decision{QueueID: &queueID, IsDefaultFallback: true}
	}
	return Decision{}
}

func ruleMatches(rule *domain.RoutingRule, ctx Context) bool {
	extract, ok := extractors[rule.MatchType]
	if !ok {
		return false
	}
	compare, ok := comparators[rule.Operator]
	if !ok {
		return false
	}
	return compare(extract(ctx), rule.MatchValue)
}

// ParseTagList splits a comma-separated tag value, trimming whitespace and
// dropping empty tokens.
func ParseTagList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

func scalar(value string) []string {
	if value == "" {
		return nil
	}
	return []string{value}
}

func anyValue(pred func(fieldValue, matchValue string) bool) comparator {
	return func(values []string, matchValue string) bool {
		for _, value := range values {
			if pred(value, matchValue) {
				return true
			}
		}
		return false
	}
}

func foldContains(fieldValue, matchValue string) bool {
	return strings.Contains(strings.ToLower(fieldValue), strings.ToLower(matchValue))
}

func foldHasPrefix(fieldValue, matchValue string) bool {
	return strings.HasPrefix(strings.ToLower(fieldValue), strings.ToLower(matchValue))
}

// regexMatch compiles the rule value case-insensitively. An invalid pattern
// is a non-match, never an error: a broken tenant rule must not take down
// evaluation.
func regexMatch(values []string, matchValue string) bool {
	re, err := regexp.Compile("(?i)" + matchValue)
	if err != nil {
		return false
	}
	for _, value := range values {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}

// inSet splits the rule value on commas and tests case-insensitive
// intersection with the extracted values.
func inSet(values []string, matchValue string) bool {
	tokens := ParseTagList(matchValue)
	for _, token := range tokens {
		for _, value := range values {
			if strings.EqualFold(value, token) {
				return true
			}
		}
	}
	return false
}
