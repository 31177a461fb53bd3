package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// EventType names a user interaction.
type EventType int

const (
	EventSendClicked EventType = iota
	EventReceiveClicked
	EventFileSelected
	EventFileDropped
	EventDownloadClicked
	EventCopyClicked
	EventStarClicked
	EventCommentEdited
	EventFeedbackSubmitClicked
	EventFeedbackCloseClicked
	EventBackdropClicked
	EventThemeToggled
	EventHelpToggled
)

func (t EventType) Name() string {
	switch t {
	case EventSendClicked:
		return "SendClicked"
	case EventReceiveClicked:
		return "ReceiveClicked"
	case EventFileSelected:
		return "FileSelected"
	case EventFileDropped:
		return "FileDropped"
	case EventDownloadClicked:
		return "DownloadClicked"
	case EventCopyClicked:
		return "CopyClicked"
	case EventStarClicked:
		return "StarClicked"
	case EventCommentEdited:
		return "CommentEdited"
	case EventFeedbackSubmitClicked:
		return "FeedbackSubmitClicked"
	case EventFeedbackCloseClicked:
		return "FeedbackCloseClicked"
	case EventBackdropClicked:
		return "BackdropClicked"
	case EventThemeToggled:
		return "ThemeToggled"
	case EventHelpToggled:
		return "HelpToggled"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is a user interaction together with its payload. Only the fields
// relevant to the event type are read.
type Event struct {
	Type    EventType
	Path    string           // FileSelected, FileDropped
	Request *TransferRequest // FileSelected, FileDropped; takes precedence over Path
	Code    string           // DownloadClicked
	Rating  int              // StarClicked
	Comment string           // CommentEdited
}

type handler func(ctx context.Context, e Event) error

// handlers is the dispatch table mapping events to transitions and flows.
func (c *Controller) handlers() map[EventType]handler {
	upload := func(ctx context.Context, e Event) error {
		if e.Request != nil {
			_, err := c.SubmitUpload(ctx, e.Request)
			return err
		}
		if e.Path == "" {
			return ErrNoFile
		}
		_, err := c.UploadPath(ctx, e.Path)
		return err
	}
	closeFeedback := func(context.Context, Event) error {
		c.CloseFeedback()
		return nil
	}
	return map[EventType]handler{
		EventSendClicked: func(context.Context, Event) error {
			c.OpenSendPanel()
			return nil
		},
		EventReceiveClicked: func(context.Context, Event) error {
			c.OpenReceivePanel()
			return nil
		},
		EventFileSelected: upload,
		EventFileDropped:  upload,
		EventDownloadClicked: func(ctx context.Context, e Event) error {
			_, err := c.ResolveCode(ctx, e.Code)
			return err
		},
		EventCopyClicked: func(context.Context, Event) error {
			c.mu.Lock()
			code := c.state.Code
			c.mu.Unlock()
			if !c.CopyText(code) {
				return ErrClipboardUnavailable
			}
			return nil
		},
		EventStarClicked: func(ctx context.Context, e Event) error {
			return c.SelectRating(ctx, e.Rating)
		},
		EventCommentEdited: func(_ context.Context, e Event) error {
			c.EditComment(e.Comment)
			return nil
		},
		EventFeedbackSubmitClicked: func(ctx context.Context, _ Event) error {
			return c.SubmitFeedbackForm(ctx)
		},
		EventFeedbackCloseClicked: closeFeedback,
		EventBackdropClicked:      closeFeedback,
		EventThemeToggled: func(context.Context, Event) error {
			_, err := c.ToggleTheme()
			return err
		},
		EventHelpToggled: func(context.Context, Event) error {
			c.ToggleHelp()
			return nil
		},
	}
}

// Dispatch routes e through the dispatch table. Flows triggered by the event
// run synchronously; callers that must stay responsive run Dispatch off their
// event loop.
func (c *Controller) Dispatch(ctx context.Context, e Event) error {
	h, ok := c.dispatchTbl[e.Type]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEvent, e.Type.Name())
	}
	c.logger.Debug("dispatching event", zap.String("event", e.Type.Name()))
	return h(ctx, e)
}
