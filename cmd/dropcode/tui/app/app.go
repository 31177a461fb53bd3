package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/timer"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dropcode/dropcode/cmd/dropcode/tui"
	"github.com/dropcode/dropcode/cmd/dropcode/tui/feedback"
	"github.com/dropcode/dropcode/internal/file"
	"github.com/dropcode/dropcode/internal/session"
	"github.com/erikgeiser/promptkit"
	"github.com/erikgeiser/promptkit/confirmation"
	"github.com/pkg/errors"
)

// Fetcher retrieves the payload behind a resolved download url.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, int64, error)
}

// ------------------------------------------------------ Messages -----------------------------------------------------

type notifyMsg session.Notification
type showFeedbackMsg struct{}
type hideFeedbackMsg struct{}

type flowDoneMsg struct {
	event session.EventType
	err   error
}

type resolvedMsg struct {
	result session.DownloadResult
}

type overwritePromptMsg struct {
	result session.DownloadResult
}

type savedMsg struct {
	path string
	size int64
}

// ----------------------------------------------------- Presenter -----------------------------------------------------

// presenter forwards controller callbacks into the program. Callbacks may
// arrive while the program is handling a message, so they are queued and a
// single goroutine delivers them in the order they were made.
type presenter struct {
	mu    sync.Mutex
	queue []tea.Msg
	wake  chan struct{}
	send  func(tea.Msg)
}

func newPresenter(send func(tea.Msg)) *presenter {
	p := &presenter{wake: make(chan struct{}, 1), send: send}
	go p.deliver()
	return p
}

func (p *presenter) Notify(n session.Notification) { p.push(notifyMsg(n)) }
func (p *presenter) ShowFeedback()                 { p.push(showFeedbackMsg{}) }
func (p *presenter) HideFeedback()                 { p.push(hideFeedbackMsg{}) }

func (p *presenter) push(msg tea.Msg) {
	p.mu.Lock()
	p.queue = append(p.queue, msg)
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *presenter) deliver() {
	for range p.wake {
		for {
			p.mu.Lock()
			if len(p.queue) == 0 {
				p.mu.Unlock()
				break
			}
			msg := p.queue[0]
			p.queue = p.queue[1:]
			p.mu.Unlock()
			p.send(msg)
		}
	}
}

// ------------------------------------------------------- Model -------------------------------------------------------

type Option func(m *model)

// WithInitialUpload uploads path as soon as the program starts.
func WithInitialUpload(path string) Option {
	return func(m *model) {
		m.initialUpload = path
	}
}

// WithInitialCode resolves code as soon as the program starts.
func WithInitialCode(code string) Option {
	return func(m *model) {
		m.initialCode = code
	}
}

func WithOutputDir(dir string) Option {
	return func(m *model) {
		m.outputDir = dir
	}
}

func WithPromptOverwrite(prompt bool) Option {
	return func(m *model) {
		m.promptOverwrite = prompt
	}
}

// WithBackendLabel shows label next to the title, naming a backend other
// than the default one.
func WithBackendLabel(label string) Option {
	return func(m *model) {
		m.backendLabel = label
	}
}

func WithContext(ctx context.Context) Option {
	return func(m *model) {
		m.ctx = ctx
	}
}

type model struct {
	ctx             context.Context
	ctrl            *session.Controller
	fetcher         Fetcher
	outputDir       string
	promptOverwrite bool
	initialUpload   string
	initialCode     string
	backendLabel    string

	state        session.State
	downloading  string
	saved        string
	pending      *session.DownloadResult
	notification *session.Notification

	width             int
	height            int
	pathInput         textinput.Model
	codeInput         textinput.Model
	feedback          feedback.Model
	overwritePrompt   confirmation.Model
	notificationTimer timer.Model
	spinner           spinner.Model
	help              help.Model
	keys              tui.KeyMap
}

// New creates the interactive program and attaches it to ctrl as presenter.
func New(ctrl *session.Controller, fetcher Fetcher, opts ...Option) *tea.Program {
	m := newModel(ctrl, fetcher, opts...)
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	ctrl.SetPresenter(newPresenter(program.Send))
	return program
}

func newModel(ctrl *session.Controller, fetcher Fetcher, opts ...Option) model {
	pathInput := textinput.New()
	pathInput.Placeholder = "drop a file here or type its path"
	pathInput.Prompt = "📁 "

	codeInput := textinput.New()
	codeInput.Placeholder = "share code"
	codeInput.Prompt = "🔑 "
	codeInput.CharLimit = 32

	m := model{
		ctx:               context.Background(),
		ctrl:              ctrl,
		fetcher:           fetcher,
		outputDir:         ".",
		promptOverwrite:   true,
		pathInput:         pathInput,
		codeInput:         codeInput,
		feedback:          feedback.New(),
		overwritePrompt:   *confirmation.NewModel(confirmation.New("", confirmation.Undecided)),
		notificationTimer: timer.NewWithInterval(tui.TEMP_UI_MESSAGE_DURATION, 100*time.Millisecond),
		help:              help.New(),
		keys:              tui.Keys,
	}
	for _, opt := range opts {
		opt(&m)
	}
	lipgloss.SetHasDarkBackground(ctrl.LoadTheme().IsDark())
	m.state = ctrl.Snapshot()
	m.resetSpinner(tui.WaitingSpinner)
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick}
	switch {
	case m.initialUpload != "":
		cmds = append(cmds, m.dispatchCmd(session.Event{Type: session.EventFileSelected, Path: m.initialUpload}))
	case m.initialCode != "":
		cmds = append(cmds, m.resolveCmd(m.initialCode))
	}
	return tea.Batch(cmds...)
}

// ------------------------------------------------------- Update ------------------------------------------------------

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.refresh()

	switch msg := msg.(type) {

	case notifyMsg:
		n := session.Notification(msg)
		cmd := m.showNotification(n)
		return m, cmd

	case showFeedbackMsg:
		m.feedback = m.feedback.Reset().Sync(m.state)
		m.pathInput.Blur()
		m.codeInput.Blur()
		return m, m.feedback.Init()

	case hideFeedbackMsg:
		m.feedback = m.feedback.Reset()
		cmd := m.focusPanel()
		return m, cmd

	case feedback.EventMsg:
		if msg.Type == session.EventCommentEdited {
			// already applied while handling the key
			return m, nil
		}
		return m, m.dispatchCmd(session.Event(msg))

	case flowDoneMsg:
		if msg.event == session.EventFileSelected && msg.err == nil {
			m.pathInput.Reset()
		}
		return m, nil

	case resolvedMsg:
		m.codeInput.Reset()
		cmd := m.startSave(msg.result)
		return m, cmd

	case overwritePromptMsg:
		m.downloading = ""
		m.pending = &msg.result
		m.keys.OverwritePromptYes.SetEnabled(true)
		m.keys.OverwritePromptNo.SetEnabled(true)
		m.keys.OverwritePromptConfirm.SetEnabled(true)
		m.codeInput.Blur()
		cmd := m.newOverwritePrompt(msg.result.Filename)
		return m, cmd

	case savedMsg:
		m.downloading = ""
		m.saved = msg.path
		cmd := m.showNotification(session.Notification{
			Message:  fmt.Sprintf("Saved %s (%s)", msg.path, tui.ByteCountSI(msg.size)),
			Icon:     "💾",
			Level:    session.LevelSuccess,
			Duration: session.NotificationDuration,
		})
		return m, cmd

	case tui.ErrorMsg:
		m.downloading = ""
		cmd := m.showNotification(session.Notification{
			Message:  msg.Error(),
			Icon:     "❌",
			Level:    session.LevelError,
			Duration: session.NotificationDuration,
		})
		return m, cmd

	case timer.TickMsg:
		var cmd tea.Cmd
		m.notificationTimer, cmd = m.notificationTimer.Update(msg)
		return m, cmd

	case timer.TimeoutMsg:
		if msg.ID == m.notificationTimer.ID() {
			m.notification = nil
			m.keys.CopyCode.SetHelp(m.keys.CopyCode.Help().Key, tui.CopyKeyHelpText)
		}
		var cmd tea.Cmd
		m.notificationTimer, cmd = m.notificationTimer.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		if m.state.FeedbackOpen && msg.Type == tea.MouseLeft && !m.insideModal(msg.X, msg.Y) {
			return m, m.dispatchCmd(session.Event{Type: session.EventBackdropClicked})
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width - 2*tui.MARGIN
		m.pathInput.Width = min(tui.MAX_WIDTH, msg.Width) - 4*tui.MARGIN
		m.codeInput.Width = m.pathInput.Width
		m.overwritePrompt.MaxWidth = msg.Width - 2*tui.MARGIN - 4
		_, promptCmd := m.overwritePrompt.Update(msg)
		return m, promptCmd

	default:
		var spinnerCmd, pathCmd, codeCmd, feedbackCmd tea.Cmd
		m.spinner, spinnerCmd = m.spinner.Update(msg)
		m.pathInput, pathCmd = m.pathInput.Update(msg)
		m.codeInput, codeCmd = m.codeInput.Update(msg)
		if m.state.FeedbackOpen {
			m.feedback, feedbackCmd = m.feedback.Update(msg)
		}
		_, promptCmd := m.overwritePrompt.Update(msg)
		return m, tea.Batch(spinnerCmd, pathCmd, codeCmd, feedbackCmd, promptCmd)
	}
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.ToggleTheme):
		t, err := m.ctrl.ToggleTheme()
		lipgloss.SetHasDarkBackground(t.IsDark())
		m.refresh()
		if err != nil {
			cmd := m.showNotification(session.Notification{
				Message:  "Theme changed, but the preference could not be saved.",
				Icon:     "⚠️",
				Level:    session.LevelWarning,
				Duration: session.NotificationDuration,
			})
			return m, cmd
		}
		return m, nil
	}

	if m.pending != nil {
		return m.handleOverwritePromptKey(msg)
	}

	if m.state.FeedbackOpen {
		before := m.feedback.Comment()
		var cmd tea.Cmd
		m.feedback, cmd = m.feedback.Update(msg)
		// applied in key order, ahead of any submit the same keys trigger
		if after := m.feedback.Comment(); after != before {
			m.ctrl.EditComment(after)
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.CloseModal):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Send):
		m.ctrl.OpenSendPanel()
		m.refresh()
		cmd := m.focusPanel()
		return m, cmd
	case key.Matches(msg, m.keys.Receive):
		m.ctrl.OpenReceivePanel()
		m.refresh()
		cmd := m.focusPanel()
		return m, cmd
	case key.Matches(msg, m.keys.CopyCode):
		return m, m.copyCmd()
	case key.Matches(msg, m.keys.ToggleHelp):
		m.help.ShowAll = m.ctrl.ToggleHelp()
		return m, nil
	}

	switch m.state.Panel {
	case session.PanelSend:
		if msg.Paste {
			path := file.CleanDroppedPath(string(msg.Runes))
			m.pathInput.SetValue(path)
			spin := m.resetSpinner(tui.TransferSpinner)
			return m, tea.Batch(spin, m.dispatchCmd(session.Event{Type: session.EventFileDropped, Path: path}))
		}
		if key.Matches(msg, m.keys.Submit) {
			path := file.CleanDroppedPath(m.pathInput.Value())
			spin := m.resetSpinner(tui.TransferSpinner)
			return m, tea.Batch(spin, m.dispatchCmd(session.Event{Type: session.EventFileSelected, Path: path}))
		}
		var cmd tea.Cmd
		m.pathInput, cmd = m.pathInput.Update(msg)
		return m, cmd

	case session.PanelReceive:
		if key.Matches(msg, m.keys.Submit) {
			spin := m.resetSpinner(tui.WaitingSpinner)
			return m, tea.Batch(spin, m.resolveCmd(m.codeInput.Value()))
		}
		var cmd tea.Cmd
		m.codeInput, cmd = m.codeInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleOverwritePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	_, promptCmd := m.overwritePrompt.Update(msg)
	switch msg.String() {
	case "left", "right":
		cmds = append(cmds, promptCmd)
	}
	if key.Matches(msg, m.keys.OverwritePromptYes, m.keys.OverwritePromptNo, m.keys.OverwritePromptConfirm) {
		m.keys.OverwritePromptYes.SetEnabled(false)
		m.keys.OverwritePromptNo.SetEnabled(false)
		m.keys.OverwritePromptConfirm.SetEnabled(false)
		result := *m.pending
		m.pending = nil
		shouldOverwrite, _ := m.overwritePrompt.Value()
		if shouldOverwrite {
			m.downloading = result.Filename
			cmds = append(cmds, m.resetSpinner(tui.ReceivingSpinner), m.saveCmd(result, true))
		} else {
			cmds = append(cmds, m.showNotification(session.Notification{
				Message:  fmt.Sprintf("Kept existing %s", result.Filename),
				Icon:     "📄",
				Level:    session.LevelInfo,
				Duration: session.NotificationDuration,
			}))
		}
		cmds = append(cmds, m.focusPanel())
	}
	return m, tea.Batch(cmds...)
}

// -------------------------------------------------------- View -------------------------------------------------------

func (m model) View() string {
	if m.state.FeedbackOpen && m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.renderModal())
	}

	var b strings.Builder
	b.WriteString("\n" + tui.PadText + tui.ElementText("dropcode") + "  " + tui.HelpStyle(m.state.Theme.Icon()))
	if m.backendLabel != "" {
		b.WriteString("  " + tui.HelpStyle("via "+m.backendLabel))
	}
	b.WriteString("\n")
	b.WriteString(tui.PadText + tui.LogSeparator(m.width))

	switch m.state.Panel {
	case session.PanelSend:
		b.WriteString(m.sendView())
	case session.PanelReceive:
		b.WriteString(m.receiveView())
	default:
		b.WriteString(tui.PadText + tui.InfoStyle("Share files with a short code.") + "\n\n")
		b.WriteString(tui.PadText + tui.BoldText("ctrl+s") + "  " + tui.InfoStyle("send a file") + "\n")
		b.WriteString(tui.PadText + tui.BoldText("ctrl+r") + "  " + tui.InfoStyle("receive a file") + "\n")
	}
	b.WriteString("\n")

	if m.notification != nil {
		n := m.notification
		b.WriteString(tui.PadText + n.Icon + " " + tui.LevelText(n.Level, n.Message) + "\n\n")
	}
	b.WriteString(tui.PadText + m.help.View(m.keys) + "\n")
	return b.String()
}

func (m model) sendView() string {
	var b strings.Builder
	b.WriteString(tui.PadText + tui.InfoStyle("Select a file (max 10 MB) and press enter.") + "\n\n")
	b.WriteString(tui.PadText + m.pathInput.View() + "\n\n")

	if m.state.Uploading {
		b.WriteString(tui.PadText + m.spinner.View() + " " + tui.InfoStyle(m.state.FileStatus) + "\n")
	} else if m.state.FileStatus != "" {
		b.WriteString(tui.PadText + tui.LevelText(m.state.FileStatusLevel, m.state.FileStatus) + "\n")
	}

	if m.state.CodeVisible {
		code := lipgloss.JoinVertical(lipgloss.Center,
			tui.HelpStyle("your code"),
			tui.CodeStyle.Render(m.state.Code),
		)
		b.WriteString("\n" + lipgloss.NewStyle().MarginLeft(tui.MARGIN).Render(code) + "\n\n")
		b.WriteString(tui.PadText + tui.InfoStyle("Share this code with the recipient.") + "\n")
		if info := m.state.Upload; info.ExpiresAt != "" || info.DisplayDuration > 0 {
			b.WriteString(tui.PadText + tui.HelpStyle(expiryText(info)) + "\n")
		}
	}
	return b.String()
}

func (m model) receiveView() string {
	var b strings.Builder
	b.WriteString(tui.PadText + tui.InfoStyle("Enter the code you received and press enter.") + "\n\n")
	b.WriteString(tui.PadText + m.codeInput.View() + "\n\n")

	switch {
	case m.state.Resolving:
		b.WriteString(tui.PadText + m.spinner.View() + " " + tui.InfoStyle("Looking up code...") + "\n")
	case m.downloading != "":
		name := tui.Truncate(m.downloading, max(10, m.width-8*tui.MARGIN))
		b.WriteString(tui.PadText + m.spinner.View() + " " + tui.InfoStyle("Downloading "+tui.BoldText(name)) + "\n")
	case m.pending != nil:
		b.WriteString(tui.PadText + m.overwritePrompt.View() + "\n")
	case m.saved != "":
		b.WriteString(tui.PadText + tui.SuccessText("Saved to "+m.saved) + "\n")
	}
	return b.String()
}

func (m model) renderModal() string {
	return tui.ModalStyle.Render(m.feedback.View())
}

// insideModal reports whether the cell (x, y) lies on the centered modal.
func (m model) insideModal(x, y int) bool {
	w, h := lipgloss.Size(m.renderModal())
	left := (m.width - w) / 2
	top := (m.height - h) / 2
	return x >= left && x < left+w && y >= top && y < top+h
}

func expiryText(info session.UploadInfo) string {
	var parts []string
	if info.DisplayDuration > 0 {
		parts = append(parts, fmt.Sprintf("valid for %s", info.DisplayDuration))
	}
	if info.ExpiresAt != "" {
		parts = append(parts, fmt.Sprintf("expires %s", info.ExpiresAt))
	}
	return strings.Join(parts, ", ")
}

// ------------------------------------------------------ Commands -----------------------------------------------------

func (m model) dispatchCmd(e session.Event) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return flowDoneMsg{event: e.Type, err: ctrl.Dispatch(ctx, e)}
	}
}

func (m model) resolveCmd(code string) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		result, err := ctrl.ResolveCode(ctx, code)
		if err != nil {
			return flowDoneMsg{event: session.EventDownloadClicked, err: err}
		}
		return resolvedMsg{result: result}
	}
}

func (m model) copyCmd() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return flowDoneMsg{event: session.EventCopyClicked, err: ctrl.Dispatch(ctx, session.Event{Type: session.EventCopyClicked})}
	}
}

// startSave saves result into the output directory, asking first when it
// would replace an existing file.
func (m *model) startSave(result session.DownloadResult) tea.Cmd {
	if result.Filename == "" {
		result.Filename = file.NameFromURL(result.URL)
	}
	if m.promptOverwrite && file.Exists(m.outputDir, result.Filename) {
		return func() tea.Msg { return overwritePromptMsg{result: result} }
	}
	m.downloading = result.Filename
	spin := m.resetSpinner(tui.ReceivingSpinner)
	return tea.Batch(spin, m.saveCmd(result, !m.promptOverwrite))
}

func (m model) saveCmd(result session.DownloadResult, overwrite bool) tea.Cmd {
	ctx, fetcher, dir := m.ctx, m.fetcher, m.outputDir
	return func() tea.Msg {
		if fetcher == nil {
			return tui.ErrorMsg(errors.New("downloads are not available"))
		}
		body, _, err := fetcher.Fetch(ctx, result.URL)
		if err != nil {
			return tui.ErrorMsg(errors.Wrapf(err, "downloading %s", result.Filename))
		}
		defer body.Close()
		path, size, err := file.Save(dir, result.Filename, body, overwrite)
		switch {
		case errors.Is(err, file.ErrFileExists):
			return overwritePromptMsg{result: result}
		case err != nil:
			return tui.ErrorMsg(errors.Wrapf(err, "saving %s", result.Filename))
		}
		return savedMsg{path: path, size: size}
	}
}

// ------------------------------------------------------ Helpers ------------------------------------------------------

// refresh pulls the controller state, which flows running as commands change
// behind the model's back.
func (m *model) refresh() {
	m.state = m.ctrl.Snapshot()
	m.keys.CopyCode.SetEnabled(m.state.CodeVisible)
	if m.state.FeedbackOpen {
		m.feedback = m.feedback.Sync(m.state)
	}
}

func (m *model) showNotification(n session.Notification) tea.Cmd {
	m.notification = &n
	if n.Message == "Code copied to clipboard!" {
		m.keys.CopyCode.SetHelp(m.keys.CopyCode.Help().Key, tui.CopyKeyActiveHelpText)
	}
	d := n.Duration
	if d <= 0 {
		d = tui.TEMP_UI_MESSAGE_DURATION
	}
	m.notificationTimer = timer.NewWithInterval(d, 100*time.Millisecond)
	return m.notificationTimer.Init()
}

func (m *model) focusPanel() tea.Cmd {
	m.pathInput.Blur()
	m.codeInput.Blur()
	switch m.state.Panel {
	case session.PanelSend:
		return m.pathInput.Focus()
	case session.PanelReceive:
		return m.codeInput.Focus()
	}
	return nil
}

func (m *model) newOverwritePrompt(fileName string) tea.Cmd {
	prompt := confirmation.New(fmt.Sprintf("Overwrite file '%s'?", fileName), confirmation.Yes)
	m.overwritePrompt = *confirmation.NewModel(prompt)
	m.overwritePrompt.MaxWidth = m.width
	m.overwritePrompt.WrapMode = promptkit.HardWrap
	m.overwritePrompt.Template = confirmation.TemplateYN
	m.overwritePrompt.ResultTemplate = confirmation.ResultTemplateYN
	m.overwritePrompt.KeyMap.Abort = []string{}
	m.overwritePrompt.KeyMap.Toggle = []string{}
	return m.overwritePrompt.Init()
}

// resetSpinner replaces the spinner with a fresh one showing frames and
// returns the command that starts it. Ticks of the old spinner are dropped.
func (m *model) resetSpinner(frames spinner.Spinner) tea.Cmd {
	m.spinner = spinner.New()
	m.spinner.Style = lipgloss.NewStyle().Foreground(tui.ELEMENT_COLOR)
	m.spinner.Spinner = frames
	return m.spinner.Tick
}

// Run starts the program and reports the error that ended it.
func Run(program *tea.Program) error {
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running tui: %w", err)
	}
	fmt.Fprintln(os.Stdout)
	return nil
}
