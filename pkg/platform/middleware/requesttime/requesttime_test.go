package requesttime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"chatguard/pkg/requestcontext"
)

func TestWithClock_PinsOneInstantPerRequest(t *testing.T) {
	nairobi := time.FixedZone("EAT", 3*60*60)
	calls := 0
	clock := func() time.Time {
		calls++
		return time.Date(2026, 5, 1, 12, 0, calls, 0, nairobi)
	}

	var first, second time.Time
	h := WithClock(clock)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		first = requestcontext.Now(r.Context())
		second = requestcontext.Now(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.Equal(t, time.UTC, first.Location())
	assert.Equal(t, 9, first.Hour())
}
