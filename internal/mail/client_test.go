package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/kitaplik/internal/config"
)

func newTestServer(t *testing.T, status int, got *message) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		if got != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(url string) *Client {
	return NewClient(config.Mail{APIURL: url, APIKey: "re_test", From: "Kitaplik <no-reply@kitaplik.test>"})
}

func TestSendVerification(t *testing.T) {
	var got message
	server := newTestServer(t, http.StatusOK, &got)

	err := newTestClient(server.URL).SendVerification(context.Background(), "ayse@example.com", "ayse", "https://kitaplik.test/new-verification?token=abc")
	require.NoError(t, err)

	assert.Equal(t, []string{"ayse@example.com"}, got.To)
	assert.Equal(t, "Kitaplik <no-reply@kitaplik.test>", got.From)
	assert.Equal(t, verificationSubject, got.Subject)
	assert.Contains(t, got.HTML, "Merhaba ayse")
	assert.Contains(t, got.HTML, `href="https://kitaplik.test/new-verification?token=abc"`)
}

func TestSendPasswordReset(t *testing.T) {
	var got message
	server := newTestServer(t, http.StatusOK, &got)

	err := newTestClient(server.URL).SendPasswordReset(context.Background(), "ayse@example.com", "https://kitaplik.test/new-password?token=xyz")
	require.NoError(t, err)
	assert.Equal(t, passwordResetSubject, got.Subject)
	assert.Contains(t, got.HTML, "new-password?token=xyz")
}

func TestSend_Failures(t *testing.T) {
	t.Run("provider rejects", func(t *testing.T) {
		server := newTestServer(t, http.StatusUnprocessableEntity, nil)
		err := newTestClient(server.URL).SendPasswordReset(context.Background(), "a@b.c", "link")
		assert.ErrorIs(t, err, ErrDeliveryFailed)
	})

	t.Run("unreachable", func(t *testing.T) {
		server := newTestServer(t, http.StatusOK, nil)
		url := server.URL
		server.Close()
		err := newTestClient(url).SendPasswordReset(context.Background(), "a@b.c", "link")
		assert.ErrorIs(t, err, ErrDeliveryFailed)
	})

	t.Run("missing api key", func(t *testing.T) {
		client := NewClient(config.Mail{APIURL: "http://127.0.0.1:1"})
		err := client.SendVerification(context.Background(), "a@b.c", "ayse", "link")
		assert.ErrorIs(t, err, ErrDeliveryFailed)
	})
}

func TestTemplatesEscape(t *testing.T) {
	html, err := renderVerification("<script>", "https://x.test/?a=1&b=2")
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "a=1&amp;b=2")
}

var _ Sender = (*Client)(nil)
