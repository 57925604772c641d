package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth_OK(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[healthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, testNow.Equal(resp.Time))
}
