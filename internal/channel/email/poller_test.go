package email

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionID(t *testing.T) {
	assert.Equal(t, "email:scammer@example.com", SessionID(" Scammer@Example.com "))
}

func TestExtractTextPlain(t *testing.T) {
	raw := "From: a@b.c\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"send money to fraud@ybl\r\n"

	text, err := extractText(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "send money to fraud@ybl\r\n", text)
}

func TestExtractTextNoContentType(t *testing.T) {
	raw := "From: a@b.c\r\n\r\nhello there\r\n"

	text, err := extractText(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "hello there\r\n", text)
}

func TestExtractTextQuotedPrintable(t *testing.T) {
	raw := "From: a@b.c\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"pay =E2=82=B9500 now\r\n"

	text, err := extractText(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Contains(t, text, "pay ₹500 now")
}

func TestExtractTextMultipart(t *testing.T) {
	raw := "From: a@b.c\r\n" +
		"Content-Type: multipart/alternative; boundary=XYZ\r\n" +
		"\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<b>ignored</b>\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"the plain part\r\n" +
		"--XYZ--\r\n"

	text, err := extractText(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "the plain part", text)
}

func TestExtractTextUnsupportedType(t *testing.T) {
	raw := "From: a@b.c\r\n" +
		"Content-Type: application/octet-stream\r\n" +
		"\r\n" +
		"binary\r\n"

	_, err := extractText(strings.NewReader(raw))
	assert.Error(t, err)
}
