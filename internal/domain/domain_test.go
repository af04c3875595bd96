package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentifierKey(t *testing.T) {
	a := Identifier{Kind: KindUPI, Value: "scammer@upi", Raw: "Scammer@UPI"}
	b := Identifier{Kind: KindUPI, Value: "scammer@upi", Raw: "scammer@upi"}
	assert.Equal(t, a.Key(), b.Key(), "raw form must not affect identity")

	c := Identifier{Kind: KindPhone, Value: "scammer@upi"}
	assert.NotEqual(t, a.Key(), c.Key(), "kind is part of identity")
}

func TestKindCritical(t *testing.T) {
	assert.True(t, KindUPI.Critical())
	assert.True(t, KindBankAccount.Critical())
	assert.True(t, KindPhone.Critical())
	assert.False(t, KindURL.Critical())
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusMonitoring.Terminal())
	assert.False(t, StatusEngaged.Terminal())
	assert.True(t, StatusReported.Terminal())
	assert.True(t, StatusClosed.Terminal())
}

func TestSessionHasIdentifier(t *testing.T) {
	sess := &Session{
		Identifiers: []Identifier{
			{Kind: KindUPI, Value: "a@okaxis"},
		},
	}

	assert.True(t, sess.HasIdentifier(Identifier{Kind: KindUPI, Value: "a@okaxis", Raw: "A@OKAXIS"}))
	assert.False(t, sess.HasIdentifier(Identifier{Kind: KindUPI, Value: "b@okaxis"}))
	assert.False(t, sess.HasIdentifier(Identifier{Kind: KindURL, Value: "a@okaxis"}))
}

func TestSessionCriticalAndKinds(t *testing.T) {
	sess := &Session{
		Identifiers: []Identifier{
			{Kind: KindURL, Value: "http://phish.example"},
		},
	}
	assert.False(t, sess.HasCriticalIdentifier())

	sess.Identifiers = append(sess.Identifiers, Identifier{Kind: KindPhone, Value: "9876543210"})
	assert.True(t, sess.HasCriticalIdentifier())

	kinds := sess.IdentifierKinds()
	assert.ElementsMatch(t, []IdentifierKind{KindURL, KindPhone}, kinds)

	assert.Equal(t, []string{"9876543210"}, sess.IdentifiersOfKind(KindPhone))
}
