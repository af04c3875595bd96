// Package detector scores inbound text for scam likelihood using weighted
// keyword categories. Classification is pure and total: it never fails,
// and identical input always yields the same verdict.
package detector

import (
	"regexp"
	"strings"
)

// DefaultThreshold is the score at which a message is flagged as a scam.
const DefaultThreshold = 0.5

// Verdict is the outcome of classifying one message.
type Verdict struct {
	IsScam  bool     `json:"isScam"`
	Score   float64  `json:"score"`             // normalized to [0,1]
	Signals []string `json:"signals,omitempty"` // every category that fired
}

// Classifier evaluates message text against the signal sets.
type Classifier struct {
	threshold float64
}

// New creates a classifier with the given scam threshold.
// A threshold <= 0 falls back to DefaultThreshold.
func New(threshold float64) *Classifier {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Classifier{threshold: threshold}
}

// Threshold returns the configured scam cutoff.
func (c *Classifier) Threshold() float64 { return c.threshold }

// Classify scores the message. Empty or whitespace-only text yields a
// non-scam verdict with score 0. Ties at the threshold resolve to scam:
// a false positive costs one wasted persona reply, a false negative costs
// the whole engagement.
func (c *Classifier) Classify(text string) Verdict {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return Verdict{}
	}

	var score float64
	var signals []string

	for _, cat := range categories {
		if cat.matches(lower) {
			score += cat.weight
			signals = append(signals, cat.name)
		}
	}

	if timePressurePattern.MatchString(lower) {
		score += 0.1
		signals = append(signals, "time-pressure")
	}
	if financialContextPattern.MatchString(lower) {
		score += 0.1
		signals = append(signals, "financial-context")
	}

	if score > 1.0 {
		score = 1.0
	}

	return Verdict{
		IsScam:  score >= c.threshold,
		Score:   score,
		Signals: signals,
	}
}

// category is a named signal set with a fixed weight contribution.
type category struct {
	name    string
	weight  float64
	phrases []string
}

func (c category) matches(lower string) bool {
	for _, p := range c.phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// categories holds the weighted signal sets. Phrases are matched as
// lowercase substrings; weights are tuned so that two categories plus a
// pattern boost clears the default threshold.
var categories = []category{
	{
		name:   "urgency",
		weight: 0.25,
		phrases: []string{
			"urgent", "immediately", "right now", "act now", "within 24 hours",
			"last warning", "final notice", "expire",
		},
	},
	{
		name:   "account-threat",
		weight: 0.3,
		phrases: []string{
			"account blocked", "account is blocked", "account suspended",
			"account frozen", "will be blocked", "will be suspended",
			"deactivate", "disconnect", "legal action", "kyc",
		},
	},
	{
		name:   "payment-request",
		weight: 0.3,
		phrases: []string{
			"pay to", "send money", "transfer", "processing fee", "upi",
			"refund", "rs.", "rupees", "payment",
		},
	},
	{
		name:   "credential-phish",
		weight: 0.3,
		phrases: []string{
			"otp", "cvv", "pin number", "password", "pan card", "aadhar",
			"aadhaar", "debit card", "credit card", "click link", "click here",
			"verify now", "verify your",
		},
	},
	{
		name:   "reward-bait",
		weight: 0.25,
		phrases: []string{
			"lottery", "winner", "you have won", "prize", "congratulations",
			"lucky draw", "cashback",
		},
	},
}

var (
	timePressurePattern     = regexp.MustCompile(`\b(today|now|24 hours|immediate|soon)\b`)
	financialContextPattern = regexp.MustCompile(`\b(bank|account|fund|transfer|payment)\b`)
)
