package tracing

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/notyourromanticboyfriend/warehouse-apps-v2/config"
)

// A zero-value tracer is what callers fall back to when New Relic fails to
// initialize; every method has to be a safe no-op.
func TestZeroValueTracerIsDisabled(t *testing.T) {
	tr := &NewRelicTracer{}

	txn := tr.StartTransaction("anything")
	require.Nil(t, txn)

	seg := tr.StartSpan("anything", txn)
	require.NotNil(t, seg)
	seg.End()

	tr.AddAttribute(txn, "key", "value")
	tr.RecordError(txn, errors.New("boom"))
	tr.EndTransaction(txn)
}

func TestNewTracerDisabledWithoutLicenseKey(t *testing.T) {
	tr, err := NewTracer(config.TracingConfig{})
	require.NoError(t, err)
	require.Nil(t, tr.StartTransaction("anything"))
}
