package intel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarpitlabs/tarpit/internal/domain"
)

func kinds(ids []domain.Identifier) []domain.IdentifierKind {
	var out []domain.IdentifierKind
	for _, id := range ids {
		out = append(out, id.Kind)
	}
	return out
}

func values(ids []domain.Identifier, kind domain.IdentifierKind) []string {
	var out []string
	for _, id := range ids {
		if id.Kind == kind {
			out = append(out, id.Value)
		}
	}
	return out
}

func TestExtractUPI(t *testing.T) {
	ids := Extract("Pay to scammer@upi immediately or account frozen")

	require.Len(t, ids, 1)
	assert.Equal(t, domain.KindUPI, ids[0].Kind)
	assert.Equal(t, "scammer@upi", ids[0].Value)
	assert.Equal(t, "scammer@upi", ids[0].Raw)
}

func TestExtractUPINormalizesCase(t *testing.T) {
	a := Extract("send to User.Name@upi")
	b := Extract("send to user.name@upi")

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, a[0].Value, b[0].Value)
	assert.Equal(t, "User.Name@upi", a[0].Raw)
}

func TestExtractUPIRejectsEmail(t *testing.T) {
	ids := Extract("contact me at fraudster@gmail.com or helpdesk@rediffmail")
	assert.Empty(t, values(ids, domain.KindUPI))
}

func TestExtractUPIKnownPSPAndGenericSuffix(t *testing.T) {
	ids := Extract("use ramesh123@okaxis or backup 9876501234@ybl")

	assert.ElementsMatch(t,
		[]string{"ramesh123@okaxis", "9876501234@ybl"},
		values(ids, domain.KindUPI))
	// The numeric UPI handle must not also surface as a phone number.
	assert.Empty(t, values(ids, domain.KindPhone))
}

func TestExtractPhone(t *testing.T) {
	ids := Extract("call our officer at +91-9876543210 or 8765432109 today")

	assert.ElementsMatch(t,
		[]string{"9876543210", "8765432109"},
		values(ids, domain.KindPhone))
}

func TestExtractPhoneNormalization(t *testing.T) {
	for _, raw := range []string{"9876543210", "+919876543210", "+91 9876543210", "+91-9876543210"} {
		ids := Extract("number is " + raw + " ok")
		require.Len(t, ids, 1, "input %q", raw)
		assert.Equal(t, "9876543210", ids[0].Value, "input %q", raw)
	}
}

func TestExtractBankAccountWithContext(t *testing.T) {
	ids := Extract("transfer to account 123456789 right away")

	require.Len(t, ids, 1)
	assert.Equal(t, domain.KindBankAccount, ids[0].Kind)
	assert.Equal(t, "123456789", ids[0].Value)
}

func TestExtractBankAccountLongRun(t *testing.T) {
	// 12+ digits is too long for a phone even without a context keyword.
	ids := Extract("deposit here 123456789012")

	require.Len(t, ids, 1)
	assert.Equal(t, domain.KindBankAccount, ids[0].Kind)
	assert.Equal(t, "123456789012", ids[0].Value)
}

func TestExtractOverlapPhoneVsAccount(t *testing.T) {
	// A 10-digit run adjacent to an account keyword is claimed by the more
	// specific bank pattern; the same span must not also emit a phone.
	ids := Extract("my account no 9876543210")

	assert.Equal(t, []domain.IdentifierKind{domain.KindBankAccount}, kinds(ids))
}

func TestExtractURL(t *testing.T) {
	ids := Extract("verify at HTTPS://Secure-Bank.example/Login?id=AB12 now")

	require.Len(t, ids, 1)
	assert.Equal(t, domain.KindURL, ids[0].Kind)
	assert.Equal(t, "https://secure-bank.example/Login?id=AB12", ids[0].Value)
}

func TestExtractWWWURL(t *testing.T) {
	ids := Extract("go to www.KYC-update.example/form.")

	require.Len(t, ids, 1)
	assert.Equal(t, "www.kyc-update.example/form", ids[0].Value)
}

func TestExtractDigitsInsideURLNotDoubleCounted(t *testing.T) {
	ids := Extract("click http://evil.example/9876543210 fast")

	assert.Equal(t, []domain.IdentifierKind{domain.KindURL}, kinds(ids))
}

func TestExtractNothing(t *testing.T) {
	assert.Nil(t, Extract(""))
	assert.Nil(t, Extract("   \n\t"))
	assert.Empty(t, Extract("hello, how are you doing today friend"))
}

func TestExtractIdempotentAndDeterministic(t *testing.T) {
	text := "pay scammer@upi, call 9876543210, see http://phish.example/x"
	first := Extract(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Extract(text))
	}
	require.Len(t, first, 3)
}

func TestExtractDedupWithinCall(t *testing.T) {
	ids := Extract("send to scammer@upi, yes scammer@upi, SCAMMER@UPI")

	assert.Len(t, ids, 1)
}

func TestExtractPartialDigitRunsIgnored(t *testing.T) {
	// A 10-digit-looking window inside a longer run is not a phone.
	ids := Extract("ref 9198765432109 code")

	assert.Empty(t, values(ids, domain.KindPhone))
	assert.Equal(t, []string{"9198765432109"}, values(ids, domain.KindBankAccount))
}

func TestKeywords(t *testing.T) {
	kws := Keywords("URGENT: verify your KYC or account will be blocked, share OTP")

	assert.ElementsMatch(t, []string{"urgent", "verify", "block", "kyc", "otp"}, kws)
	assert.Nil(t, Keywords("nice weather"))
}
