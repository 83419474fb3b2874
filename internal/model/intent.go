package model

import "strings"

// Intent is the classified purpose of a user query.
type Intent string

const (
	IntentPolicy         Intent = "POLICY"
	IntentOrder          Intent = "ORDER"
	IntentRecommendation Intent = "RECOMMENDATION"
	IntentNotRelevant    Intent = "NOT_RELEVANT"
	// IntentUnknown marks a classifier label outside the closed set.
	IntentUnknown Intent = "UNKNOWN"
)

// ParseIntent maps a classifier label onto the closed intent set.
// Labels must match exactly; anything else yields IntentUnknown.
func ParseIntent(label string) Intent {
	switch Intent(strings.TrimSpace(label)) {
	case IntentPolicy:
		return IntentPolicy
	case IntentOrder:
		return IntentOrder
	case IntentRecommendation:
		return IntentRecommendation
	case IntentNotRelevant:
		return IntentNotRelevant
	default:
		return IntentUnknown
	}
}

func (i Intent) String() string {
	return string(i)
}
