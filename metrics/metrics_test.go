package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegister_Idempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestDocumentsTotal_Labels(t *testing.T) {
	before := testutil.ToFloat64(DocumentsTotal.WithLabelValues("PERSISTED", "false"))
	DocumentsTotal.WithLabelValues("PERSISTED", "false").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(DocumentsTotal.WithLabelValues("PERSISTED", "false")))
}
