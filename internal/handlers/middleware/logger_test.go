package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type loggerFunc func(string, ...any)

func (f loggerFunc) Info(msg string, v ...any) { f(msg, v...) }

func TestLoggerMiddleware(t *testing.T) {
	var calls []string
	var args []any

	logger := loggerFunc(func(m string, v ...any) {
		calls = append(calls, m)
		args = v
	})

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, err := w.Write([]byte("created"))
		require.NoError(t, err, "should write response")
	})

	srv := httptest.NewServer(LoggerMiddleware(logger)(h))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/credentials")
	require.NoError(t, err, "should make request to test server")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "should read response body")
	defer resp.Body.Close() // nolint:errcheck

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "created", string(body))

	require.Len(t, calls, 1, "logger should be called once per request")
	require.Equal(t, "got HTTP request", calls[0])

	// Args come as key value pairs
	require.Len(t, args, 10)
	logged := map[string]any{}
	for i := 0; i < len(args); i += 2 {
		logged[args[i].(string)] = args[i+1]
	}

	require.Equal(t, "GET", logged["method"])
	require.Equal(t, "/credentials", logged["uri"])
	require.NotEmpty(t, logged["duration"])
	require.Equal(t, http.StatusCreated, logged["status"])
	require.Equal(t, len("created"), logged["size"])
}
