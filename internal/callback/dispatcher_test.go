package callback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarpitlabs/tarpit/internal/domain"
	"github.com/tarpitlabs/tarpit/internal/logging"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

func sampleSession() *domain.Session {
	return &domain.Session{
		ID:        "sess-1",
		Status:    domain.StatusEngaged,
		TurnCount: 3,
		Keywords:  []string{"otp", "urgent"},
		Identifiers: []domain.Identifier{
			{Kind: domain.KindUPI, Value: "scammer@upi", SourceTurn: 2},
			{Kind: domain.KindPhone, Value: "9876543210", SourceTurn: 3},
			{Kind: domain.KindURL, Value: "http://phish.example", SourceTurn: 1},
		},
		Messages: []domain.Message{
			{Sender: domain.SenderScammer, Text: "pay now"},
			{Sender: domain.SenderAgent, Text: "pay where?"},
		},
	}
}

func TestBuildReport(t *testing.T) {
	rep := BuildReport(sampleSession(), "engaged and extracted")

	assert.Equal(t, "sess-1", rep.SessionID)
	assert.True(t, rep.ScamDetected)
	assert.Equal(t, 3, rep.TotalMessages)
	assert.Equal(t, []string{"scammer@upi"}, rep.Intelligence.UPIIDs)
	assert.Equal(t, []string{"9876543210"}, rep.Intelligence.PhoneNumbers)
	assert.Equal(t, []string{"http://phish.example"}, rep.Intelligence.PhishingLinks)
	assert.Empty(t, rep.Intelligence.BankAccounts)
	assert.Equal(t, []string{"otp", "urgent"}, rep.Intelligence.SuspiciousKeywords)
	require.Len(t, rep.Excerpt, 2)
	assert.Equal(t, domain.SenderScammer, rep.Excerpt[0].Sender)
}

func TestBuildReportBoundsExcerpt(t *testing.T) {
	sess := sampleSession()
	for i := 0; i < 30; i++ {
		sess.Messages = append(sess.Messages, domain.Message{Sender: domain.SenderScammer, Text: "again"})
	}

	rep := BuildReport(sess, "")
	assert.Len(t, rep.Excerpt, excerptLen)
}

func TestDispatchSuccess(t *testing.T) {
	var got Report
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(srv.URL, "secret", 3, time.Second, silentLog())
	err := d.Dispatch(context.Background(), BuildReport(sampleSession(), "notes"))

	require.NoError(t, err)
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, []string{"scammer@upi"}, got.Intelligence.UPIIDs)
}

func TestDispatchRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(srv.URL, "", 3, time.Second, silentLog())
	d.backoff = time.Millisecond

	err := d.Dispatch(context.Background(), Report{SessionID: "s"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDispatchExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(srv.URL, "", 2, time.Second, silentLog())
	d.backoff = time.Millisecond

	err := d.Dispatch(context.Background(), Report{SessionID: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, int32(2), calls.Load())
}

func TestDispatchContextCancelledBetweenRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(srv.URL, "", 5, time.Second, silentLog())
	d.backoff = time.Hour // force the cancel path

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := d.Dispatch(ctx, Report{SessionID: "s"})
	assert.ErrorIs(t, err, context.Canceled)
}
