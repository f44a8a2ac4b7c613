package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveUpdatesGauges(t *testing.T) {
	assert := assert.New(t)

	r := New()
	r.Observe(3, 0.42, 0.01, 5)

	assert.InDelta(0.42, testutil.ToFloat64(r.essRatio), 1e-9)
	assert.InDelta(0.01, testutil.ToFloat64(r.sigma), 1e-9)
	assert.InDelta(3, testutil.ToFloat64(r.iteration), 1e-9)
	assert.InDelta(5, testutil.ToFloat64(r.gmmComponentsActive), 1e-9)
}

func TestNilRecorderObserveIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() { r.Observe(1, 0.5, 1.0, 2) })
}
