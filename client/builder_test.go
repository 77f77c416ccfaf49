package client_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-http/actor"
	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/client"
	"github.com/momentics/hioload-http/transfer"
)

func TestBuilderPerform(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "yes", r.Header.Get("X-Flag"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "tester", r.UserAgent())
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	a := actor.New[*transfer.ResponseHandler]()
	defer a.Close()

	req, err := client.New(a, transfer.NewResponseHandler()).
		URL(srv.URL).
		PostFields([]byte(`{"k":1}`)).
		CustomRequest(http.MethodPut).
		HTTPHeaders([]string{"X-Flag: yes", "Accept:application/json"}).
		UserAgent("tester").
		Timeout(5 * time.Second).
		Finalize()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e, err := req.Perform(ctx)
	require.NoError(t, err)
	code, err := e.ResponseCode()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, `{"k":1}`, string(e.Handler().Take()))
	require.Empty(t, e.Handler().Data())
}

func TestBuilderCollectsFirstError(t *testing.T) {
	a := actor.New[*transfer.ResponseHandler]()
	defer a.Close()

	_, err := client.New(a, transfer.NewResponseHandler()).
		URL("http://example.com").
		HTTPHeaders([]string{"no colon here"}).
		URL("http://[::1").
		Finalize()
	require.ErrorIs(t, err, client.ErrInvalidHeader)

	_, err = client.New(a, transfer.NewResponseHandler()).URL("http://[::1").Finalize()
	require.ErrorIs(t, err, client.ErrInvalidURL)
}

func TestBuilderWithoutActor(t *testing.T) {
	_, err := client.New[*transfer.ResponseHandler](nil, transfer.NewResponseHandler()).
		URL("http://example.com").
		Finalize()
	require.ErrorIs(t, err, api.ErrLoopUnavailable)
}
