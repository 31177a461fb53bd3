package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/dropcode/dropcode/internal/backend"
	protocol "github.com/dropcode/dropcode/protocol/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, handler http.Handler) *backend.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := backend.New(backend.Config{
		BaseURL:       server.URL + "/prod",
		UploadRoute:   "/upload",
		DownloadRoute: "download",
		FeedbackRoute: "/feedback",
		UserAgent:     "dropcode/v0.1.0",
	})
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew(t *testing.T) {
	t.Run("rejects non http scheme", func(t *testing.T) {
		_, err := backend.New(backend.Config{BaseURL: "ftp://example.com"})
		assert.Error(t, err)
	})
	t.Run("rejects negative retries", func(t *testing.T) {
		_, err := backend.New(backend.Config{BaseURL: "https://example.com", Retries: -1})
		assert.Error(t, err)
	})
}

func TestUpload(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/prod/upload", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "dropcode/v0.1.0", r.Header.Get("User-Agent"))
			assert.NotEmpty(t, r.Header.Get("X-Request-Id"))

			var req protocol.UploadRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "aGVsbG8=", req.File)
			assert.Equal(t, "hello.txt", req.Filename)
			assert.Equal(t, int64(5), req.Filesize)
			assert.Equal(t, "text/plain", req.Filetype)

			writeJSON(w, http.StatusOK, map[string]any{
				"success":          true,
				"code":             "XJ9Q2K",
				"display_duration": 30,
			})
		}))
		res, err := client.Upload(context.Background(), protocol.UploadRequest{
			File: "aGVsbG8=", Filename: "hello.txt", Filesize: 5, Filetype: "text/plain",
		})
		require.NoError(t, err)
		assert.Equal(t, "XJ9Q2K", res.Code)
		assert.Equal(t, 30, res.DisplayDuration)
	})

	t.Run("negative success indicator", func(t *testing.T) {
		client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "No file provided"})
		}))
		_, err := client.Upload(context.Background(), protocol.UploadRequest{})
		var resErr *backend.ResponseError
		require.True(t, errors.As(err, &resErr))
		assert.Equal(t, "No file provided", resErr.Message)
		assert.Equal(t, http.StatusOK, resErr.Status)
		assert.False(t, errors.Is(err, backend.ErrTransport))
	})

	t.Run("server error passes message through", func(t *testing.T) {
		var calls int32
		client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "Upload failed. Please try again."})
		}))
		_, err := client.Upload(context.Background(), protocol.UploadRequest{})
		var resErr *backend.ResponseError
		require.True(t, errors.As(err, &resErr))
		assert.Equal(t, http.StatusInternalServerError, resErr.Status)
		assert.Equal(t, "Upload failed. Please try again.", resErr.Message)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "no automatic retries")
	})

	t.Run("undecodable body", func(t *testing.T) {
		client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, "<html>bad gateway</html>")
		}))
		_, err := client.Upload(context.Background(), protocol.UploadRequest{})
		assert.ErrorIs(t, err, backend.ErrTransport)
	})

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		server.Close()
		client, err := backend.New(backend.Config{BaseURL: server.URL, UploadRoute: "/upload"})
		require.NoError(t, err)
		_, err = client.Upload(context.Background(), protocol.UploadRequest{})
		assert.ErrorIs(t, err, backend.ErrTransport)
	})
}

func TestDownload(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/prod/download", r.URL.Path)
			assert.Equal(t, "AB 12", r.URL.Query().Get("code"))
			writeJSON(w, http.StatusOK, map[string]any{
				"success":        true,
				"url":            "https://files.example.com/a.txt",
				"filename":       "a.txt",
				"url_expires_in": 3600,
			})
		}))
		res, err := client.Download(context.Background(), "AB 12")
		require.NoError(t, err)
		assert.Equal(t, "https://files.example.com/a.txt", res.URL)
		assert.Equal(t, "a.txt", res.Filename)
		assert.Equal(t, 3600, res.URLExpiresIn)
	})

	t.Run("not found", func(t *testing.T) {
		client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "Invalid code or file not found"})
		}))
		_, err := client.Download(context.Background(), "NOPE")
		var resErr *backend.ResponseError
		require.True(t, errors.As(err, &resErr))
		assert.Equal(t, http.StatusNotFound, resErr.Status)
	})
}

func TestFeedback(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req protocol.FeedbackRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 4, req.Rating)
		assert.Equal(t, "", req.Feedback)
		assert.Equal(t, "2024-05-01T10:20:30.000Z", req.Timestamp)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "feedback_id": "f-1"})
	}))
	res, err := client.Feedback(context.Background(), protocol.FeedbackRequest{
		Rating:    4,
		Timestamp: "2024-05-01T10:20:30.000Z",
	})
	require.NoError(t, err)
	assert.Equal(t, "f-1", res.FeedbackID)
}

func TestFetch(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "payload")
		}))
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "A frog walks into a bank...")
		}))
		defer server.Close()

		body, size, err := client.Fetch(context.Background(), server.URL+"/a.txt")
		require.NoError(t, err)
		defer body.Close()
		b, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, "A frog walks into a bank...", string(b))
		assert.Equal(t, int64(len(b)), size)
	})
	t.Run("expired url", func(t *testing.T) {
		client := newClient(t, http.NotFoundHandler())
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()
		_, _, err := client.Fetch(context.Background(), server.URL)
		assert.ErrorIs(t, err, backend.ErrTransport)
	})
}
