package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLoginOutcomes_Counts(t *testing.T) {
	before := testutil.ToFloat64(LoginOutcomes.WithLabelValues("ok"))
	LoginOutcomes.WithLabelValues("ok").Inc()
	if got := testutil.ToFloat64(LoginOutcomes.WithLabelValues("ok")); got != before+1 {
		t.Fatalf("counter=%v, want %v", got, before+1)
	}
}

func TestHandler_ExposesNamespace(t *testing.T) {
	Transactions.WithLabelValues("ok").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "suizk_transactions_total") {
		t.Fatalf("metrics output missing collector:\n%s", body)
	}
}
