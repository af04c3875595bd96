package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyBlockedAccountOTP(t *testing.T) {
	c := New(0)
	v := c.Classify("Your account is blocked. Send OTP now.")

	assert.True(t, v.IsScam)
	assert.GreaterOrEqual(t, v.Score, 0.5)
	assert.Contains(t, v.Signals, "account-threat")
	assert.Contains(t, v.Signals, "credential-phish")
}

func TestClassifyPaymentDemand(t *testing.T) {
	c := New(0)
	v := c.Classify("Pay to scammer@upi immediately or account frozen")

	assert.True(t, v.IsScam)
	assert.Contains(t, v.Signals, "payment-request")
	assert.Contains(t, v.Signals, "account-threat")
	assert.Contains(t, v.Signals, "urgency")
}

func TestClassifyBenignText(t *testing.T) {
	c := New(0)
	v := c.Classify("Hey, are we still meeting for lunch tomorrow?")

	assert.False(t, v.IsScam)
	assert.Empty(t, v.Signals)
	assert.Zero(t, v.Score)
}

func TestClassifyEmptyAndWhitespace(t *testing.T) {
	c := New(0)

	for _, text := range []string{"", "   ", "\n\t "} {
		v := c.Classify(text)
		assert.False(t, v.IsScam)
		assert.Zero(t, v.Score)
		assert.Nil(t, v.Signals)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := New(0)
	text := "URGENT: verify your KYC today or account suspended"

	first := c.Classify(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Classify(text))
	}
	assert.True(t, first.IsScam)
}

func TestClassifyTieResolvesToScam(t *testing.T) {
	// Exactly one 0.3 category plus both 0.1 pattern boosts lands on 0.5.
	c := New(0.5)
	v := c.Classify("transfer the fund to my bank today")

	assert.InDelta(t, 0.5, v.Score, 1e-9)
	assert.True(t, v.IsScam, "score equal to the cutoff must flag as scam")
}

func TestClassifyScoreClamped(t *testing.T) {
	c := New(0)
	v := c.Classify(
		"URGENT act now: account blocked, pay to refund@upi, share OTP and CVV, " +
			"you have won a lottery prize, transfer payment from your bank today immediately")

	assert.True(t, v.IsScam)
	assert.LessOrEqual(t, v.Score, 1.0)
	assert.Len(t, v.Signals, 7)
}

func TestClassifyCaseInsensitive(t *testing.T) {
	c := New(0)
	upper := c.Classify("ACCOUNT BLOCKED, SEND OTP NOW")
	lower := c.Classify("account blocked, send otp now")

	assert.Equal(t, lower.Score, upper.Score)
	assert.Equal(t, lower.Signals, upper.Signals)
}

func TestCustomThreshold(t *testing.T) {
	strict := New(0.9)
	v := strict.Classify("Your account is blocked. Send OTP now.")
	assert.False(t, v.IsScam, "score below a strict cutoff stays non-scam")
	assert.Greater(t, v.Score, 0.0)

	assert.Equal(t, DefaultThreshold, New(0).Threshold())
	assert.Equal(t, 0.9, strict.Threshold())
}
