package booking

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirm_PostsEventAndVendor(t *testing.T) {
	var gotPath string
	var gotBody confirmRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &gotBody))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	require.NoError(t, c.Confirm(context.Background(), "ev-1", "vendor-1"))
	assert.Equal(t, "/internal/bookings/confirm-services", gotPath)
	assert.Equal(t, "ev-1", gotBody.EventID)
	assert.Equal(t, "vendor-1", gotBody.VendorID)
}

func TestConfirm_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Confirm(context.Background(), "ev-1", "vendor-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.Confirm(context.Background(), "ev-1", "vendor-1"))
}
