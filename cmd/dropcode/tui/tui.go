package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/dropcode/dropcode/internal/session"
	"github.com/mattn/go-runewidth"
)

// ----------------------------------------------------- Constants -----------------------------------------------------

const (
	MARGIN    = 2
	PADDING   = 1
	MAX_WIDTH = 80

	TEMP_UI_MESSAGE_DURATION = session.NotificationDuration

	CopyKeyHelpText       = "copy code"
	CopyKeyActiveHelpText = "code copied!"
)

// Colors adapt to the background, which follows the theme preference.
var (
	PRIMARY_COLOR           = lipgloss.AdaptiveColor{Light: "#3A3A3A", Dark: "#B8BABA"}
	SECONDARY_COLOR         = lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#626262"}
	ELEMENT_COLOR           = lipgloss.AdaptiveColor{Light: "#C46A00", Dark: "#EE9F40"}
	SECONDARY_ELEMENT_COLOR = lipgloss.AdaptiveColor{Light: "#D9822B", Dark: "#EE9F70"}
	ERROR_COLOR             = lipgloss.AdaptiveColor{Light: "#B00000", Dark: "#CC0000"}
	WARNING_COLOR           = lipgloss.AdaptiveColor{Light: "#C45C00", Dark: "#FF7900"}
	CHECK_COLOR             = lipgloss.AdaptiveColor{Light: "#1E7F1D", Dark: "#34B233"}
)

// ------------------------------------------------------- Styles ------------------------------------------------------

var PadText = strings.Repeat(" ", MARGIN)

var BaseStyle = lipgloss.NewStyle()
var InfoStyle = BaseStyle.Copy().Foreground(PRIMARY_COLOR).Render
var HelpStyle = BaseStyle.Copy().Foreground(SECONDARY_COLOR).Render
var BoldText = BaseStyle.Copy().Bold(true).Render
var ErrorText = BaseStyle.Copy().Foreground(ERROR_COLOR).Render
var WarningText = BaseStyle.Copy().Foreground(WARNING_COLOR).Render
var SuccessText = BaseStyle.Copy().Foreground(CHECK_COLOR).Render
var ElementText = BaseStyle.Copy().Foreground(ELEMENT_COLOR).Bold(true).Render

var CodeStyle = BaseStyle.Copy().
	Bold(true).
	Foreground(ELEMENT_COLOR).
	Border(lipgloss.DoubleBorder()).
	BorderForeground(SECONDARY_ELEMENT_COLOR).
	Padding(0, 3)

var ModalStyle = BaseStyle.Copy().
	BorderStyle(lipgloss.ThickBorder()).
	BorderForeground(ELEMENT_COLOR).
	Padding(PADDING, MARGIN)

// LevelText renders s in the color of a notification level.
func LevelText(level session.Level, s string) string {
	switch level {
	case session.LevelSuccess:
		return SuccessText(s)
	case session.LevelWarning:
		return WarningText(s)
	case session.LevelError:
		return ErrorText(s)
	default:
		return InfoStyle(s)
	}
}

// LogSeparator is a horizontal rule separating the program from the lines it
// printed above.
func LogSeparator(width int) string {
	paddedWidth := max(0, width-2*MARGIN)
	return HelpStyle(strings.Repeat("─", min(paddedWidth, MAX_WIDTH))) + "\n\n"
}

// ------------------------------------------------------ Spinners -----------------------------------------------------

var WaitingSpinner = spinner.Spinner{
	Frames: []string{"⠋ ", "⠙ ", "⠹ ", "⠸ ", "⠼ ", "⠴ ", "⠦ ", "⠧ ", "⠇ ", "⠏ "},
	FPS:    time.Second / 12,
}

var TransferSpinner = spinner.Spinner{
	Frames: []string{"»  ", "»» ", "»»»", "   "},
	FPS:    time.Millisecond * 400,
}

var ReceivingSpinner = spinner.Spinner{
	Frames: []string{"   ", "  «", " ««", "«««"},
	FPS:    time.Second / 2,
}

// ------------------------------------------------------- Keys --------------------------------------------------------

type KeyMap struct {
	Quit                   key.Binding
	Send                   key.Binding
	Receive                key.Binding
	CopyCode               key.Binding
	ToggleTheme            key.Binding
	ToggleHelp             key.Binding
	Submit                 key.Binding
	NextField              key.Binding
	CloseModal             key.Binding
	OverwritePromptYes     key.Binding
	OverwritePromptNo      key.Binding
	OverwritePromptConfirm key.Binding
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Send,
		k.Receive,
		k.CopyCode,
		k.Submit,
		k.ToggleHelp,
		k.Quit,
		k.OverwritePromptYes,
		k.OverwritePromptNo,
		k.OverwritePromptConfirm,
	}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Send, k.Receive, k.CopyCode},
		{k.Submit, k.NextField, k.CloseModal},
		{k.ToggleTheme, k.ToggleHelp, k.Quit},
	}
}

var Keys = KeyMap{
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	Send: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "send"),
	),
	Receive: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "receive"),
	),
	CopyCode: key.NewBinding(
		key.WithKeys("ctrl+y"),
		key.WithHelp("ctrl+y", CopyKeyHelpText),
		key.WithDisabled(),
	),
	ToggleTheme: key.NewBinding(
		key.WithKeys("ctrl+t"),
		key.WithHelp("ctrl+t", "toggle theme"),
	),
	ToggleHelp: key.NewBinding(
		key.WithKeys("ctrl+g"),
		key.WithHelp("ctrl+g", "more"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "submit"),
	),
	NextField: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next field"),
	),
	CloseModal: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "close"),
	),
	OverwritePromptYes: key.NewBinding(
		key.WithKeys("y", "Y"),
		key.WithHelp("y", "overwrite"),
		key.WithDisabled(),
	),
	OverwritePromptNo: key.NewBinding(
		key.WithKeys("n", "N"),
		key.WithHelp("n", "keep existing"),
		key.WithDisabled(),
	),
	OverwritePromptConfirm: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "confirm"),
		key.WithDisabled(),
	),
}

// ----------------------------------------------------- Messages ------------------------------------------------------

type ErrorMsg error

// ------------------------------------------------------ Helpers ------------------------------------------------------

// ByteCountSI formats a byte count using SI units.
func ByteCountSI(b int64) string {
	const unit = 1000
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "kMGTPE"[exp])
}

// Truncate shortens s to at most width terminal cells.
func Truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}
