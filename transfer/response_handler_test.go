package transfer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/momentics/hioload-http/transfer"
)

func TestResponseHandler_AccumulatesAndTakes(t *testing.T) {
	h := transfer.NewResponseHandler()
	n, err := h.Write([]byte("hello "))
	assert.NoError(t, err)
	assert.Equal(t, 6, n)
	_, _ = h.Write([]byte("world"))
	assert.Equal(t, "hello world", string(h.Data()))

	assert.Equal(t, "hello world", string(h.Take()))
	assert.Empty(t, h.Data())
	assert.Empty(t, h.Take())
}

func TestResponseHandler_Headers(t *testing.T) {
	var h transfer.ResponseHandler
	h.Header("content-type", "text/plain")
	h.Header("Set-Cookie", "a=1")
	h.Header("Set-Cookie", "b=2")

	assert.Equal(t, "text/plain", h.Headers().Get("Content-Type"))
	assert.Equal(t, []string{"a=1", "b=2"}, h.Headers().Values("Set-Cookie"))
}
