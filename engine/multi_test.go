package engine_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/engine"
	"github.com/momentics/hioload-http/transfer"
)

func newMulti(t *testing.T) *engine.Multi {
	t.Helper()
	m := engine.NewMulti(engine.DefaultConfig())
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func newEasy(url string) *transfer.Easy[*transfer.ResponseHandler] {
	e := transfer.New(transfer.NewResponseHandler())
	e.URL(url)
	return e
}

// performOne drives m until t's completion message arrives.
func performOne(t *testing.T, m *engine.Multi, tr api.Transfer) engine.Message {
	t.Helper()
	_, err := m.Add(tr)
	require.NoError(t, err)
	_, err = m.Perform()
	require.NoError(t, err)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		m.Wait(50*time.Millisecond, nil)
		if msg, ok := m.InfoRead(); ok {
			m.Remove(msg.Handle)
			return msg
		}
	}
	t.Fatal("transfer did not finish")
	return engine.Message{}
}

func TestMultiGetStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "hioload-http/1.0", r.UserAgent())
		w.Header().Set("X-Test", "yes")
		_, _ = io.WriteString(w, "hello")
	}))
	defer srv.Close()

	m := newMulti(t)
	e := newEasy(srv.URL)
	msg := performOne(t, m, e)

	require.Nil(t, msg.Err)
	require.Same(t, api.Transfer(e), msg.Handle.Transfer())
	code, err := e.ResponseCode()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "hello", string(e.Handler().Data()))
	require.Equal(t, "yes", e.Handler().Headers().Get("X-Test"))
	require.Equal(t, int64(5), e.Info().BytesReceived)
	require.Greater(t, e.Info().Timing.Total, time.Duration(0))
}

func TestMultiNotFoundIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "B")
	}))
	defer srv.Close()

	e := newEasy(srv.URL)
	msg := performOne(t, newMulti(t), e)
	require.Nil(t, msg.Err)
	code, _ := e.ResponseCode()
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "B", string(e.Handler().Data()))
}

func TestMultiFailOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "boom")
	}))
	defer srv.Close()

	e := newEasy(srv.URL)
	e.FailOnError(true)
	msg := performOne(t, newMulti(t), e)
	require.NotNil(t, msg.Err)
	require.Equal(t, api.ErrCodeHTTPStatus, msg.Err.Code)
	require.Empty(t, e.Handler().Data())
	require.ErrorIs(t, e.Err(), api.NewTransferError(api.ErrCodeHTTPStatus, "", nil))
}

func TestMultiPostEchoesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "u", user)
		assert.Equal(t, "p", pass)
		_, _ = io.Copy(w, r.Body)
	}))
	defer srv.Close()

	e := newEasy(srv.URL)
	e.PostFields([]byte("payload"))
	e.Username("u")
	e.Password("p")
	msg := performOne(t, newMulti(t), e)
	require.Nil(t, msg.Err)
	require.Equal(t, "payload", string(e.Handler().Data()))
}

func TestMultiHeadSkipsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Content-Length", "10")
	}))
	defer srv.Close()

	e := newEasy(srv.URL)
	e.Nobody(true)
	msg := performOne(t, newMulti(t), e)
	require.Nil(t, msg.Err)
	require.Empty(t, e.Handler().Data())
}

func TestMultiShowHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "body")
	}))
	defer srv.Close()

	e := newEasy(srv.URL)
	e.ShowHeader(true)
	msg := performOne(t, newMulti(t), e)
	require.Nil(t, msg.Err)
	out := string(e.Handler().Data())
	require.True(t, strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n"), out)
	require.True(t, strings.HasSuffix(out, "\r\n\r\nbody"), out)
}

func redirectChain(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/r/"))
		if err != nil || n == 0 {
			_, _ = io.WriteString(w, "landed")
			return
		}
		http.Redirect(w, r, fmt.Sprintf("/r/%d", n-1), http.StatusFound)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestMultiRedirectNotFollowedByDefault(t *testing.T) {
	srv := redirectChain(t)
	e := newEasy(srv.URL + "/r/1")
	msg := performOne(t, newMulti(t), e)
	require.Nil(t, msg.Err)
	code, _ := e.ResponseCode()
	require.Equal(t, http.StatusFound, code)
	require.Zero(t, e.Info().RedirectCount)
}

func TestMultiRedirectFollowed(t *testing.T) {
	srv := redirectChain(t)
	e := newEasy(srv.URL + "/r/3")
	e.FollowLocation(true)
	msg := performOne(t, newMulti(t), e)
	require.Nil(t, msg.Err)
	require.Equal(t, "landed", string(e.Handler().Data()))
	require.Equal(t, 3, e.Info().RedirectCount)
	require.Equal(t, srv.URL+"/r/0", e.Info().EffectiveURL)
}

func TestMultiRedirectCap(t *testing.T) {
	srv := redirectChain(t)
	e := newEasy(srv.URL + "/r/3")
	e.FollowLocation(true)
	e.MaxRedirections(1)
	msg := performOne(t, newMulti(t), e)
	require.NotNil(t, msg.Err)
	require.Equal(t, api.ErrCodeTooManyRedirects, msg.Err.Code)
}

func TestMultiRejectsMalformedTransfers(t *testing.T) {
	m := newMulti(t)
	cases := map[string]api.ErrorCode{
		"":               api.ErrCodeMalformedRequest,
		"example.com":    api.ErrCodeMalformedRequest,
		"http://":        api.ErrCodeMalformedRequest,
		"ftp://host/x":   api.ErrCodeUnsupportedProtocol,
		"http://a b.com": api.ErrCodeMalformedRequest,
	}
	for raw, want := range cases {
		_, err := m.Add(newEasy(raw))
		require.Error(t, err, raw)
		require.Equal(t, want, api.CodeOf(err), raw)
	}
	require.Zero(t, m.Running())
}

func TestMultiTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	e := newEasy(srv.URL)
	e.Timeout(50 * time.Millisecond)
	msg := performOne(t, newMulti(t), e)
	require.NotNil(t, msg.Err)
	require.Equal(t, api.ErrCodeTimeout, msg.Err.Code)
}

func TestMultiConnectRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	msg := performOne(t, newMulti(t), newEasy(url))
	require.NotNil(t, msg.Err)
	require.Equal(t, api.ErrCodeConnect, msg.Err.Code)
}

func TestMultiMaxFileSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("x", 100))
	}))
	defer srv.Close()

	e := newEasy(srv.URL)
	e.MaxFileSize(10)
	msg := performOne(t, newMulti(t), e)
	require.NotNil(t, msg.Err)
	require.Equal(t, api.ErrCodeFileSizeExceeded, msg.Err.Code)
}

type shortWriter struct{}

func (shortWriter) Write([]byte) (int, error) { return 0, nil }

func TestMultiHandlerShortWrite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "data")
	}))
	defer srv.Close()

	e := transfer.New[api.Handler](shortWriter{})
	e.URL(srv.URL)
	msg := performOne(t, newMulti(t), e)
	require.NotNil(t, msg.Err)
	require.Equal(t, api.ErrCodeWrite, msg.Err.Code)
}

func TestMultiManyConcurrentTransfers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.URL.Query().Get("id"))
	}))
	defer srv.Close()

	m := newMulti(t)
	const n = 32
	easies := make(map[api.Transfer]string, n)
	for i := 0; i < n; i++ {
		id := strconv.Itoa(i)
		e := newEasy(srv.URL + "/?id=" + id)
		_, err := m.Add(e)
		require.NoError(t, err)
		easies[e] = id
	}
	running, err := m.Perform()
	require.NoError(t, err)
	require.LessOrEqual(t, running, n)

	deadline := time.Now().Add(5 * time.Second)
	for got := 0; got < n; {
		require.True(t, time.Now().Before(deadline), "transfers did not finish")
		m.Wait(50*time.Millisecond, nil)
		for {
			msg, ok := m.InfoRead()
			if !ok {
				break
			}
			m.Remove(msg.Handle)
			require.Nil(t, msg.Err)
			e := msg.Handle.Transfer().(*transfer.Easy[*transfer.ResponseHandler])
			require.Equal(t, easies[e], string(e.Handler().Data()))
			got++
		}
	}
}

func TestMultiWaitWakes(t *testing.T) {
	m := newMulti(t)
	wake := make(chan struct{}, 1)
	wake <- struct{}{}
	start := time.Now()
	m.Wait(5*time.Second, wake)
	require.Less(t, time.Since(start), time.Second)
}

func TestMultiCloseAbortsRunning(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	m := engine.NewMulti(engine.DefaultConfig())
	_, err := m.Add(newEasy(srv.URL))
	require.NoError(t, err)
	_, err = m.Perform()
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.Zero(t, m.Running())
	_, err = m.Add(newEasy(srv.URL))
	require.ErrorIs(t, err, engine.ErrMultiClosed)
	require.NoError(t, m.Close())
}
