package booklooker

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/raine/bookrelist/internal/book"
	"github.com/raine/bookrelist/internal/marketplace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "0123456789abcdef0123456789abcdef"

func testClient(baseURL string) *Client {
	return NewClient(ClientOpts{
		BaseURL: baseURL,
		APIKey:  "secret",
		Retry: &marketplace.RetryPolicy{
			MaxAttempts: 3,
			Backoff:     marketplace.Linear(time.Second),
			Sleep:       func(ctx context.Context, d time.Duration) error { return nil },
		},
	})
}

func testRecord() *book.Record {
	return &book.Record{ID: 7, Title: "Momo", Author: "Michael Ende", Condition: book.ConditionGood, Price: 8}
}

func authOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status": "OK", "returnValue": "` + testToken + `"}`))
}

func TestAuthenticate(t *testing.T) {
	t.Run("json answer", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/authenticate", r.URL.Path)
			assert.Equal(t, "secret", r.URL.Query().Get("apiKey"))
			authOK(w)
		}))
		defer ts.Close()

		s, err := testClient(ts.URL).Authenticate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, testToken, s.Token)
	})

	t.Run("raw token", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(testToken + "\n"))
		}))
		defer ts.Close()

		s, err := testClient(ts.URL).Authenticate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, testToken, s.Token)
	})

	t.Run("rejected key", func(t *testing.T) {
		var calls int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.Write([]byte(`{"status": "NOK", "returnValue": "invalid api key"}`))
		}))
		defer ts.Close()

		_, err := testClient(ts.URL).Authenticate(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, marketplace.ErrAuthFailed))
		assert.Contains(t, err.Error(), "invalid api key")
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "auth failures are not retried")
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := NewClient(ClientOpts{BaseURL: "http://127.0.0.1:1"}).Authenticate(context.Background())
		assert.True(t, errors.Is(err, ErrMissingAPIKey))
	})
}

func TestPublish(t *testing.T) {
	var authCalls, uploadCalls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/authenticate":
			atomic.AddInt32(&authCalls, 1)
			authOK(w)
		case "/file_import":
			atomic.AddInt32(&uploadCalls, 1)
			q := r.URL.Query()
			assert.Equal(t, testToken, q.Get("token"))
			assert.Equal(t, "article", q.Get("fileType"))
			assert.Equal(t, "0", q.Get("dataType"))
			assert.Equal(t, "0", q.Get("mediaType"))
			assert.Equal(t, "1", q.Get("formatID"))
			assert.Equal(t, "UTF-8", q.Get("encoding"))

			file, header, err := r.FormFile("file")
			if err != nil {
				t.Errorf("expected file part: %v", err)
				return
			}
			defer file.Close()
			content, _ := io.ReadAll(file)
			assert.Equal(t, "book_7.txt", header.Filename)
			assert.Contains(t, string(content), "Michael Ende\tMomo")

			w.Write([]byte("OK"))
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
		}
	}))
	defer ts.Close()

	client := testClient(ts.URL)
	res := client.Publish(context.Background(), testRecord())
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "book_7.txt", res.Handle)
	assert.Equal(t, StatusFileReceived, res.Status)

	res = client.Publish(context.Background(), testRecord())
	require.True(t, res.Success, res.Message)
	assert.Equal(t, int32(1), atomic.LoadInt32(&authCalls), "session is reused")
	assert.Equal(t, int32(2), atomic.LoadInt32(&uploadCalls))
}

func TestPublishValidationFailsBeforeNetwork(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	}))
	defer ts.Close()

	res := testClient(ts.URL).Publish(context.Background(), &book.Record{ID: 1})
	assert.False(t, res.Success)
	assert.Equal(t, marketplace.KindValidation, res.Kind)
	assert.Contains(t, res.Errors, "Titel fehlt")
}

func TestPublishAllowsZeroPrice(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/authenticate" {
			authOK(w)
			return
		}
		w.Write([]byte(`{"status": "OK", "returnValue": "FILE_RECEIVED"}`))
	}))
	defer ts.Close()

	rec := testRecord()
	rec.Price = 0
	res := testClient(ts.URL).Publish(context.Background(), rec)
	assert.True(t, res.Success, res.Message)
}

func TestPublishRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/authenticate" {
			authOK(w)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status": "NOK", "returnValue": "Ungültiges Dateiformat"}`))
	}))
	defer ts.Close()

	res := testClient(ts.URL).Publish(context.Background(), testRecord())
	assert.False(t, res.Success)
	assert.Equal(t, marketplace.KindRejected, res.Kind)
	assert.Contains(t, res.Message, "Ungültiges Dateiformat")
}

func TestPublishRetriesServerErrors(t *testing.T) {
	var uploads int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/authenticate" {
			authOK(w)
			return
		}
		if atomic.AddInt32(&uploads, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("success"))
	}))
	defer ts.Close()

	res := testClient(ts.URL).Publish(context.Background(), testRecord())
	assert.True(t, res.Success, res.Message)
	assert.Equal(t, int32(3), atomic.LoadInt32(&uploads))
}

func TestPublishGivesUpAfterRetries(t *testing.T) {
	var uploads int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/authenticate" {
			authOK(w)
			return
		}
		atomic.AddInt32(&uploads, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	res := testClient(ts.URL).Publish(context.Background(), testRecord())
	assert.False(t, res.Success)
	assert.Equal(t, marketplace.KindConnection, res.Kind)
	assert.Equal(t, int32(3), atomic.LoadInt32(&uploads))
}

func TestPublishAuthFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("nope"))
	}))
	defer ts.Close()

	res := testClient(ts.URL).Publish(context.Background(), testRecord())
	assert.False(t, res.Success)
	assert.Equal(t, marketplace.KindAuthFailed, res.Kind)
}

func TestPublishRenewsExpiredToken(t *testing.T) {
	var authCalls, uploads int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/authenticate" {
			atomic.AddInt32(&authCalls, 1)
			authOK(w)
			return
		}
		assert.Equal(t, "/file_import", r.URL.Path)
		if atomic.AddInt32(&uploads, 1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"status": "OK", "returnValue": ""}`))
	}))
	defer ts.Close()

	res := testClient(ts.URL).Publish(context.Background(), testRecord())
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "book_7.txt", res.Handle)
	assert.Equal(t, int32(2), atomic.LoadInt32(&authCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&uploads))
}

func TestPublishTokenRejectedTwice(t *testing.T) {
	var authCalls, uploads int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/authenticate" {
			atomic.AddInt32(&authCalls, 1)
			authOK(w)
			return
		}
		atomic.AddInt32(&uploads, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	res := testClient(ts.URL).Publish(context.Background(), testRecord())
	assert.False(t, res.Success)
	assert.Equal(t, marketplace.KindAuthFailed, res.Kind)
	assert.Equal(t, int32(2), atomic.LoadInt32(&authCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&uploads))
}

func TestCheckStatus(t *testing.T) {
	status := "IMPORTED"
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/authenticate" {
			authOK(w)
			return
		}
		assert.Equal(t, "/file_status", r.URL.Path)
		assert.Equal(t, "book_7.txt", r.URL.Query().Get("filename"))
		w.Write([]byte(`{"status": "OK", "returnValue": "` + status + `"}`))
	}))
	defer ts.Close()

	client := testClient(ts.URL)
	res := client.CheckStatus(context.Background(), "book_7.txt")
	require.True(t, res.Success, res.Message)
	assert.Equal(t, StatusImported, res.Status)
	assert.Equal(t, "Import erfolgreich", res.Message)

	status = "REJECTED"
	res = client.CheckStatus(context.Background(), "book_7.txt")
	assert.False(t, res.Success)
	assert.Equal(t, marketplace.KindRejected, res.Kind)
	assert.Equal(t, "Import abgelehnt", res.Message)
}

func TestCheckStatusRenewsExpiredToken(t *testing.T) {
	var authCalls, statusCalls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/authenticate" {
			atomic.AddInt32(&authCalls, 1)
			authOK(w)
			return
		}
		if atomic.AddInt32(&statusCalls, 1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"status": "OK", "returnValue": "QUEUED"}`))
	}))
	defer ts.Close()

	res := testClient(ts.URL).CheckStatus(context.Background(), "book_7.txt")
	require.True(t, res.Success, res.Message)
	assert.Equal(t, StatusQueued, res.Status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&authCalls))
}

func TestVerify(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authOK(w)
	}))
	defer ts.Close()

	res := testClient(ts.URL).Verify(context.Background())
	assert.True(t, res.Success)
	assert.True(t, strings.Contains(res.Message, "erfolgreich"))
}
