package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordStoreCall(t *testing.T) {
	before := testutil.ToFloat64(StoreOperationsTotal.WithLabelValues("probe-test", "failure"))

	RecordStoreCall("probe-test", time.Now(), errors.New("boom"))
	RecordStoreCall("probe-test", time.Now(), nil)

	assert.Equal(t, before+1, testutil.ToFloat64(StoreOperationsTotal.WithLabelValues("probe-test", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(StoreOperationsTotal.WithLabelValues("probe-test", "success")))
}

func TestSetDegraded(t *testing.T) {
	SetDegraded(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(Degraded))
	SetDegraded(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(Degraded))
}
