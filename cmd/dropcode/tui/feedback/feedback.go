package feedback

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dropcode/dropcode/cmd/dropcode/tui"
	"github.com/dropcode/dropcode/internal/session"
)

const (
	maxStars         = 5
	commentCharLimit = 500
	defaultWidth     = 44
)

type focus int

const (
	focusStars focus = iota
	focusComment
)

// EventMsg carries a user interaction with the modal to the parent model.
type EventMsg session.Event

func eventCmd(e session.Event) tea.Cmd {
	return func() tea.Msg {
		return EventMsg(e)
	}
}

type Model struct {
	Rating     int
	Submitting bool

	focus   focus
	cursor  int
	comment textinput.Model
	width   int
	keys    keyMap
}

type keyMap struct {
	Left      key.Binding
	Right     key.Binding
	Select    key.Binding
	NextField key.Binding
	Submit    key.Binding
	Close     key.Binding
}

var keys = keyMap{
	Left:      key.NewBinding(key.WithKeys("left", "h")),
	Right:     key.NewBinding(key.WithKeys("right", "l")),
	Select:    key.NewBinding(key.WithKeys(" ")),
	NextField: key.NewBinding(key.WithKeys("tab", "shift+tab")),
	Submit:    key.NewBinding(key.WithKeys("enter")),
	Close:     key.NewBinding(key.WithKeys("esc")),
}

func New() Model {
	comment := textinput.New()
	comment.Placeholder = "Any suggestions? (optional)"
	comment.CharLimit = commentCharLimit
	comment.Prompt = "› "
	comment.Width = defaultWidth - 4
	return Model{
		cursor:  1,
		comment: comment,
		width:   defaultWidth,
		keys:    keys,
	}
}

// Reset clears the modal for its next opening.
func (m Model) Reset() Model {
	m.Rating = 0
	m.Submitting = false
	m.focus = focusStars
	m.cursor = 1
	m.comment.Reset()
	m.comment.Blur()
	return m
}

// Sync copies the controller owned fields of the session state.
func (m Model) Sync(s session.State) Model {
	m.Rating = s.Rating
	m.Submitting = s.Submitting
	if s.Rating > 0 {
		m.cursor = s.Rating
	}
	return m
}

func (m Model) Comment() string {
	return m.comment.Value()
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.comment, cmd = m.comment.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(keyMsg, m.keys.Close):
		return m, eventCmd(session.Event{Type: session.EventFeedbackCloseClicked})
	case key.Matches(keyMsg, m.keys.Submit):
		return m, eventCmd(session.Event{Type: session.EventFeedbackSubmitClicked})
	case key.Matches(keyMsg, m.keys.NextField):
		return m.toggleFocus()
	}

	if m.focus == focusComment {
		before := m.comment.Value()
		var cmd tea.Cmd
		m.comment, cmd = m.comment.Update(keyMsg)
		if after := m.comment.Value(); after != before {
			return m, tea.Batch(cmd, eventCmd(session.Event{Type: session.EventCommentEdited, Comment: after}))
		}
		return m, cmd
	}

	switch {
	case key.Matches(keyMsg, m.keys.Left):
		m.cursor = max(1, m.cursor-1)
		return m, nil
	case key.Matches(keyMsg, m.keys.Right):
		m.cursor = min(maxStars, m.cursor+1)
		return m, nil
	case key.Matches(keyMsg, m.keys.Select):
		return m.selectStar(m.cursor)
	}
	if r := keyMsg.Runes; keyMsg.Type == tea.KeyRunes && len(r) == 1 && r[0] >= '1' && r[0] <= '5' {
		return m.selectStar(int(r[0] - '0'))
	}
	return m, nil
}

func (m Model) selectStar(rating int) (Model, tea.Cmd) {
	m.cursor = rating
	m.Rating = rating
	return m, eventCmd(session.Event{Type: session.EventStarClicked, Rating: rating})
}

func (m Model) toggleFocus() (Model, tea.Cmd) {
	if m.focus == focusStars {
		m.focus = focusComment
		return m, m.comment.Focus()
	}
	m.focus = focusStars
	m.comment.Blur()
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(tui.BoldText("How was your experience?"))
	b.WriteString("\n\n")

	for i := 1; i <= maxStars; i++ {
		star := "☆"
		if i <= m.Rating {
			star = tui.ElementText("★")
		}
		if m.focus == focusStars && i == m.cursor {
			star = "[" + star + "]"
		} else {
			star = " " + star + " "
		}
		b.WriteString(star)
	}
	b.WriteString("\n\n")
	b.WriteString(m.comment.View())
	b.WriteString("\n\n")

	if m.Submitting {
		b.WriteString(tui.HelpStyle("Submitting..."))
	} else {
		b.WriteString(tui.HelpStyle("1-5 rate • tab comment • enter submit • esc close"))
	}
	return tui.BaseStyle.Copy().Width(m.width).Render(b.String())
}
