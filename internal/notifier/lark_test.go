package notifier

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendToLarkRejectsEmptyWebhook(t *testing.T) {
	err := SendToLark("hello", "")
	require.Error(t, err)
}

func TestSendToLarkSkipsEmptyMessage(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	require.NoError(t, SendToLark("", srv.URL))
	assert.False(t, called, "empty message should not hit the webhook")
}

func TestSendToLarkSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		fmt.Fprint(w, `{"code":0,"msg":"success"}`)
	}))
	defer srv.Close()

	require.NoError(t, SendToLark("hello", srv.URL))
}

func TestSendToLarkSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"code":19001,"msg":"param invalid"}`)
	}))
	defer srv.Close()

	err := SendToLark("hello", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "19001")
}
