// Package session implements the dropcode transfer client independently of
// any rendering surface: the upload, download and feedback flows, the panel
// state machine and the process wide UI state they share.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dropcode/dropcode/internal/theme"
	"github.com/dropcode/dropcode/protocol/backend"
	"go.uber.org/zap"
)

const (
	// MaxUploadSize is the largest file accepted for upload (10 MiB).
	MaxUploadSize int64 = 10 << 20
	// AutoSubmitDelay lets the user see a star selection before the
	// feedback modal submits and closes.
	AutoSubmitDelay = 300 * time.Millisecond
)

// ------------------------------------------------------- Types -------------------------------------------------------

// TransferRequest is a file selected for upload. It is consumed by a single
// upload and never persisted.
type TransferRequest struct {
	Content  []byte
	Filename string
	Size     int64
	MimeType string
}

// DownloadResult is a resolved share code.
type DownloadResult struct {
	URL       string
	Filename  string
	Filetype  string
	ExpiresIn time.Duration
}

// FeedbackEntry is a rating and comment pair. Rating 0 means unset.
type FeedbackEntry struct {
	Rating      int
	Comment     string
	SubmittedAt time.Time
}

// Valid reports whether the entry has something worth submitting.
func (f FeedbackEntry) Valid() bool {
	return f.Rating != 0 || f.Comment != ""
}

// Panel is the active panel of the client.
type Panel int

const (
	PanelNone Panel = iota
	PanelSend
	PanelReceive
)

func (p Panel) String() string {
	switch p {
	case PanelSend:
		return "send"
	case PanelReceive:
		return "receive"
	default:
		return "none"
	}
}

// State is a snapshot of the UI state of a session.
type State struct {
	Panel       Panel
	CodeVisible bool
	Code        string
	Upload      UploadInfo

	FileStatus      string
	FileStatusLevel Level

	Uploading  bool
	Resolving  bool
	Submitting bool
	Resolved   *DownloadResult

	FeedbackShown bool
	FeedbackOpen  bool
	Rating        int
	Comment       string

	Theme       theme.Theme
	HelpVisible bool
}

// UploadInfo holds the optional extras returned with a share code.
type UploadInfo struct {
	Filename        string
	ExpiresAt       string
	DisplayDuration time.Duration
}

// ---------------------------------------------------- Collaborators --------------------------------------------------

// Backend performs the three remote operations.
type Backend interface {
	Upload(ctx context.Context, req backend.UploadRequest) (backend.UploadResponse, error)
	Download(ctx context.Context, code string) (backend.DownloadResponse, error)
	Feedback(ctx context.Context, req backend.FeedbackRequest) (backend.FeedbackResponse, error)
}

type Copier interface {
	Copy(text string) error
}

type ThemeStore interface {
	Load() (theme.Theme, error)
	Save(t theme.Theme) error
}

// Presenter is the rendering surface. Calls may arrive from any goroutine.
type Presenter interface {
	Notify(n Notification)
	ShowFeedback()
	HideFeedback()
}

// Timer is a pending deferred call.
type Timer interface {
	Stop() bool
}

type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Loader turns a selected path into a transfer request.
type Loader func(path string) (*TransferRequest, error)

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type nopPresenter struct{}

func (nopPresenter) Notify(Notification) {}
func (nopPresenter) ShowFeedback()       {}
func (nopPresenter) HideFeedback()       {}

// ----------------------------------------------------- Controller ----------------------------------------------------

// Controller owns the session state and runs the flows against the backend.
// It is safe for concurrent use.
type Controller struct {
	backend   Backend
	copier    Copier
	themes    ThemeStore
	presenter Presenter
	scheduler Scheduler
	load      Loader
	now       func() time.Time
	logger    *zap.Logger

	autoSubmitDelay time.Duration

	uploading  atomic.Bool
	submitting atomic.Bool

	mu          sync.Mutex
	state       State
	pending     Timer
	pendingSeq  uint64
	dispatchTbl map[EventType]handler
}

type Option func(*Controller)

func WithCopier(c Copier) Option {
	return func(ctrl *Controller) {
		ctrl.copier = c
	}
}

func WithThemeStore(s ThemeStore) Option {
	return func(ctrl *Controller) {
		ctrl.themes = s
	}
}

func WithPresenter(p Presenter) Option {
	return func(ctrl *Controller) {
		ctrl.presenter = p
	}
}

func WithScheduler(s Scheduler) Option {
	return func(ctrl *Controller) {
		ctrl.scheduler = s
	}
}

func WithLoader(l Loader) Option {
	return func(ctrl *Controller) {
		ctrl.load = l
	}
}

func WithClock(now func() time.Time) Option {
	return func(ctrl *Controller) {
		ctrl.now = now
	}
}

func WithLogger(lgr *zap.Logger) Option {
	return func(ctrl *Controller) {
		ctrl.logger = lgr
	}
}

func WithAutoSubmitDelay(d time.Duration) Option {
	return func(ctrl *Controller) {
		ctrl.autoSubmitDelay = d
	}
}

// New creates a controller in the idle state.
func New(b Backend, opts ...Option) *Controller {
	c := &Controller{
		backend:         b,
		presenter:       nopPresenter{},
		scheduler:       realScheduler{},
		now:             time.Now,
		logger:          zap.NewNop(),
		autoSubmitDelay: AutoSubmitDelay,
		state:           State{Theme: theme.Light},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.dispatchTbl = c.handlers()
	return c
}

// SetPresenter replaces the presenter. Used when the rendering surface is
// created after the controller.
func (c *Controller) SetPresenter(p Presenter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p == nil {
		p = nopPresenter{}
	}
	c.presenter = p
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Uploading = c.uploading.Load()
	s.Submitting = c.submitting.Load()
	if c.state.Resolved != nil {
		resolved := *c.state.Resolved
		s.Resolved = &resolved
	}
	return s
}

// ---------------------------------------------------- Panel state ----------------------------------------------------

// OpenSendPanel shows the send panel, hiding the receive panel and any code display.
func (c *Controller) OpenSendPanel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Panel = PanelSend
	c.state.CodeVisible = false
}

// OpenReceivePanel shows the receive panel, hiding the send panel and any code display.
func (c *Controller) OpenReceivePanel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Panel = PanelReceive
	c.state.CodeVisible = false
}

func (c *Controller) ToggleHelp() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.HelpVisible = !c.state.HelpVisible
	return c.state.HelpVisible
}

// LoadTheme applies the persisted theme preference.
func (c *Controller) LoadTheme() theme.Theme {
	if c.themes == nil {
		return c.Snapshot().Theme
	}
	t, err := c.themes.Load()
	if err != nil {
		c.logger.Warn("loading theme", zap.Error(err))
	}
	c.mu.Lock()
	c.state.Theme = t
	c.mu.Unlock()
	return t
}

// ToggleTheme flips the theme and persists it. The toggle takes effect even
// when persisting fails.
func (c *Controller) ToggleTheme() (theme.Theme, error) {
	c.mu.Lock()
	c.state.Theme = c.state.Theme.Toggle()
	t := c.state.Theme
	c.mu.Unlock()
	if c.themes == nil {
		return t, nil
	}
	if err := c.themes.Save(t); err != nil {
		c.logger.Warn("saving theme", zap.Error(err))
		return t, err
	}
	return t, nil
}

// ------------------------------------------------------ Helpers ------------------------------------------------------

func (c *Controller) notify(n Notification) {
	c.mu.Lock()
	p := c.presenter
	c.mu.Unlock()
	p.Notify(n)
}

func (c *Controller) setFileStatus(status string, level Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.FileStatus = status
	c.state.FileStatusLevel = level
}
