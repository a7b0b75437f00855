package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris/transaction-orchestrator/pkg/api"
)

func TestError(t *testing.T) {
	rr := httptest.NewRecorder()

	Error(rr, http.StatusTeapot, "short and stout")

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body api.Error
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "short and stout", body.Message)
	assert.Nil(t, body.Transaction)
}
