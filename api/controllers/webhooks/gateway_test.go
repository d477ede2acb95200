package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopcore-io/shopcore-backend/internal/payments"
	pkgerrors "github.com/shopcore-io/shopcore-backend/pkg/errors"
)

type stubGuard struct {
	applied []payments.GatewayEvent
	err     error
}

func (s *stubGuard) Apply(ctx context.Context, event payments.GatewayEvent) error {
	if s.err != nil {
		return s.err
	}
	s.applied = append(s.applied, event)
	return nil
}

func postEvent(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/gateway", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestGatewayEventAcceptsWellFormedPayload(t *testing.T) {
	t.Parallel()

	guard := &stubGuard{}
	handler := GatewayEvent(guard, nil)

	rec := postEvent(t, handler, `{
		"reference": "pay_123",
		"gateway_status": "success",
		"amount": "50.00",
		"paid_at": "2025-06-01T12:00:00Z"
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, guard.applied, 1)
	event := guard.applied[0]
	assert.Equal(t, "pay_123", event.Reference)
	require.NotNil(t, event.PaidAt)
}

func TestGatewayEventRejectsBadPayloads(t *testing.T) {
	t.Parallel()

	guard := &stubGuard{}
	handler := GatewayEvent(guard, nil)

	cases := []struct {
		name string
		body string
	}{
		{"missing reference", `{"gateway_status": "success", "amount": "1.00"}`},
		{"unknown status", `{"reference": "r", "gateway_status": "settled", "amount": "1.00"}`},
		{"bad amount", `{"reference": "r", "gateway_status": "success", "amount": "fifty"}`},
		{"bad paid_at", `{"reference": "r", "gateway_status": "success", "amount": "1.00", "paid_at": "yesterday"}`},
		{"unknown field", `{"reference": "r", "gateway_status": "success", "amount": "1.00", "signature": "x"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postEvent(t, handler, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, guard.applied)
		})
	}
}

func TestGatewayEventMapsGuardErrors(t *testing.T) {
	t.Parallel()

	guard := &stubGuard{err: pkgerrors.New(pkgerrors.CodeStateConflict, "payment transition disallowed")}
	handler := GatewayEvent(guard, nil)

	rec := postEvent(t, handler, `{"reference": "r", "gateway_status": "refunded", "amount": "1.00"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_STATE_TRANSITION")
}
