package main

import (
	"bytes"
	"context"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Setenv("REQUEST_LOG_LEVEL", "error")

	var stdout, stderr bytes.Buffer
	err := newApp(&stdout, &stderr).RunContext(context.Background(), append([]string{appName}, args...))
	return stdout.String(), err
}

func newEchoServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Method", r.Method)
		w.Header().Set("X-Accept", r.Header.Get("Accept"))
		w.WriteHeader(nethttp.StatusOK)
		w.Write([]byte(r.URL.RequestURI() + " " + string(body)))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRequestBody(t *testing.T) {
	srv := newEchoServer(t)

	out, err := runApp(t, srv.URL+"/hello?x=1")
	require.NoError(t, err)
	assert.Equal(t, "/hello?x=1 ", out)
}

func TestRequestFlags(t *testing.T) {
	srv := newEchoServer(t)

	out, err := runApp(t, "-i", "-X", "post", "-H", "Accept: a, b", "-d", "payload", srv.URL+"/form")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n"), out)
	assert.Contains(t, out, "X-Method: POST\r\n")
	assert.Contains(t, out, "X-Accept: a, b\r\n")
	assert.True(t, strings.HasSuffix(out, "\r\n\r\n/form payload"), out)
}

func TestRequestConfigHeaders(t *testing.T) {
	srv := newEchoServer(t)
	t.Setenv("REQUEST_HEADERS", "Accept: text/x")

	out, err := runApp(t, "-i", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "X-Accept: text/x\r\n")

	out, err = runApp(t, "-i", "-H", "accept: text/y", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "X-Accept: text/y\r\n")
}

func TestRequestErrors(t *testing.T) {
	testcases := []struct {
		desc string
		env  string
		args []string
		err  error
	}{
		{desc: "no target", args: nil, err: errNoTarget},
		{desc: "bad header", args: []string{"-H", "no-colon", "http://127.0.0.1:1/"}},
		{desc: "bad log level", args: []string{"--log-level", "loud", "http://127.0.0.1:1/"}},
		{desc: "bad config header", env: "no-colon", args: []string{"http://127.0.0.1:1/"}},
		{desc: "bad config file", args: []string{"--config", "request.yaml", "http://127.0.0.1:1/"}},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			if tc.env != "" {
				t.Setenv("REQUEST_HEADERS", tc.env)
			}
			_, err := runApp(t, tc.args...)
			require.Error(t, err)
			if tc.err != nil {
				assert.True(t, errors.Is(err, tc.err))
			}
		})
	}
}
