package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dropcode/dropcode/cmd/dropcode/config"
	"github.com/dropcode/dropcode/internal/session"
	protocol "github.com/dropcode/dropcode/protocol/backend"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	*httptest.Server
	mu       sync.Mutex
	uploads  []protocol.UploadRequest
	codes    []string
	feedback []protocol.FeedbackRequest
}

func newFakeServer(t *testing.T) *fakeServer {
	s := &fakeServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		var req protocol.UploadRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		s.mu.Lock()
		s.uploads = append(s.uploads, req)
		s.mu.Unlock()
		writeJSON(w, protocol.UploadResponse{Status: protocol.Status{Success: true}, Code: "AB12CD", DisplayDuration: 600})
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.codes = append(s.codes, r.URL.Query().Get("code"))
		s.mu.Unlock()
		writeJSON(w, protocol.DownloadResponse{
			Status:   protocol.Status{Success: true},
			URL:      s.URL + "/files/report.txt",
			Filename: "report.txt",
		})
	})
	mux.HandleFunc("/files/report.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("quarterly numbers"))
	})
	mux.HandleFunc("/feedback", func(w http.ResponseWriter, r *http.Request) {
		var req protocol.FeedbackRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		s.mu.Lock()
		s.feedback = append(s.feedback, req)
		s.mu.Unlock()
		writeJSON(w, protocol.FeedbackResponse{Status: protocol.Status{Success: true}})
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// setupConfig points the global viper state at a fresh config file and backend.
func setupConfig(t *testing.T, backendURL string) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	require.NoError(t, config.InitIn(t.TempDir()))
	viper.Set("backend", backendURL)
	viper.Set("tui_style", config.StyleRaw)
}

func TestValidateBackendURL(t *testing.T) {
	assert.NoError(t, validateBackendURL("https://api.example.com/prod"))
	assert.NoError(t, validateBackendURL("http://localhost:8080"))
	assert.ErrorIs(t, validateBackendURL(""), ErrInvalidBackend)
	assert.ErrorIs(t, validateBackendURL("api.example.com"), ErrInvalidBackend)
	assert.ErrorIs(t, validateBackendURL("ftp://example.com"), ErrInvalidBackend)
}

func TestAppOptions(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	require.NoError(t, config.InitIn(t.TempDir()))
	assert.Len(t, appOptions(context.Background()), 2)

	viper.Set("backend", "http://localhost:8080")
	assert.Len(t, appOptions(context.Background()), 3)
}

func TestLinePresenter(t *testing.T) {
	var buf bytes.Buffer
	p := newLinePresenter(&buf)
	p.Notify(session.Notification{Icon: "✅", Message: "File uploaded successfully! 🎉", Level: session.LevelSuccess})
	p.ShowFeedback()
	p.HideFeedback()
	assert.Contains(t, buf.String(), "✅ File uploaded successfully! 🎉")
	assert.Contains(t, buf.String(), "dropcode feedback --rating 5")
}

func TestSendRaw(t *testing.T) {
	server := newFakeServer(t)
	setupConfig(t, server.URL)

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	cmd := Send()
	cmd.SetArgs([]string{path})
	require.NoError(t, cmd.Execute())

	require.Len(t, server.uploads, 1)
	assert.Equal(t, "notes.txt", server.uploads[0].Filename)
	assert.Equal(t, int64(5), server.uploads[0].Filesize)
	assert.Equal(t, "aGVsbG8=", server.uploads[0].File)
}

func TestSendRawMissingFile(t *testing.T) {
	server := newFakeServer(t)
	setupConfig(t, server.URL)

	cmd := Send()
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing.txt")})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	assert.Error(t, cmd.Execute())
	assert.Empty(t, server.uploads)
}

func TestReceiveRaw(t *testing.T) {
	server := newFakeServer(t)
	setupConfig(t, server.URL)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.txt"), []byte("old"), 0o644))

	cmd := Receive()
	cmd.SetArgs([]string{" ab12cd ", "--output", dir, "--yes"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, []string{"AB12CD"}, server.codes)
	b, err := os.ReadFile(filepath.Join(dir, "report.txt"))
	require.NoError(t, err)
	assert.Equal(t, "quarterly numbers", string(b))
	assert.False(t, viper.GetBool("prompt_overwrite_files"))
}

func TestReceiveRawRequiresCode(t *testing.T) {
	server := newFakeServer(t)
	setupConfig(t, server.URL)

	cmd := Receive()
	cmd.SetArgs([]string{"--output", t.TempDir()})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	assert.Error(t, cmd.Execute())
	assert.Empty(t, server.codes)
}

func TestFeedbackCommand(t *testing.T) {
	t.Run("submits", func(t *testing.T) {
		server := newFakeServer(t)
		setupConfig(t, server.URL)

		cmd := Feedback()
		cmd.SetArgs([]string{"--rating", "4", "--comment", " faster please "})
		require.NoError(t, cmd.Execute())

		require.Len(t, server.feedback, 1)
		assert.Equal(t, 4, server.feedback[0].Rating)
		assert.Equal(t, "faster please", server.feedback[0].Feedback)
	})
	t.Run("requires input", func(t *testing.T) {
		server := newFakeServer(t)
		setupConfig(t, server.URL)

		cmd := Feedback()
		cmd.SetArgs([]string{})
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		assert.Error(t, cmd.Execute())
		assert.Empty(t, server.feedback)
	})
	t.Run("rejects out of range rating", func(t *testing.T) {
		server := newFakeServer(t)
		setupConfig(t, server.URL)

		cmd := Feedback()
		cmd.SetArgs([]string{"--rating", "7"})
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		assert.ErrorIs(t, cmd.Execute(), session.ErrInvalidRating)
		assert.Empty(t, server.feedback)
	})
}

func TestThemeCommand(t *testing.T) {
	setupConfig(t, "https://api.example.com")

	run := func(args ...string) string {
		var out bytes.Buffer
		cmd := Theme()
		cmd.SetOut(&out)
		cmd.SetArgs(args)
		require.NoError(t, cmd.Execute())
		return out.String()
	}

	assert.Equal(t, "light\n", run())
	assert.Equal(t, "☀️ dark\n", run("dark"))
	assert.Equal(t, "dark\n", run())
	assert.Equal(t, "🌙 light\n", run("toggle"))

	cmd := Theme()
	cmd.SetArgs([]string{"neon"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	assert.Error(t, cmd.Execute())
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := Version("v1.2.3")
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "v1.2.3\n", out.String())
}
