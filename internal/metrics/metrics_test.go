package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.LoginAttempt(LoginSuccess)
	m.LoginAttempt(LoginSuccess)
	m.LoginAttempt(LoginNotActivated)
	m.TokenEvent(TokenRevoked, 3)
	m.TokenEvent(TokenRevoked, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LoginAttemptsTotal.WithLabelValues(LoginSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoginAttemptsTotal.WithLabelValues(LoginNotActivated)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.FirstTimeTokensTotal.WithLabelValues(TokenRevoked)))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.LoginAttempt(LoginSuccess)
		m.TokenEvent(TokenIssued, 1)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.LoginAttempt(LoginInvalidCredentials)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `expensetracker_login_attempts_total{outcome="invalid_credentials"} 1`)
}
