package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordNotification(t *testing.T) {
	sent := testutil.ToFloat64(NotificationsTotal.WithLabelValues("email", "sent"))
	failed := testutil.ToFloat64(NotificationsTotal.WithLabelValues("email", "failed"))

	RecordNotification("email", nil)
	RecordNotification("email", errors.New("boom"))
	RecordNotification("email", errors.New("boom"))

	assert.Equal(t, sent+1, testutil.ToFloat64(NotificationsTotal.WithLabelValues("email", "sent")))
	assert.Equal(t, failed+2, testutil.ToFloat64(NotificationsTotal.WithLabelValues("email", "failed")))
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/cart", "200"))
	RecordAPIRequest("GET", "/cart", "200", 15*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/cart", "200")))
}
