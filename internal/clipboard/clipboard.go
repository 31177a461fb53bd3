// Package clipboard copies text to the system clipboard, falling back to an
// OSC52 terminal escape sequence when no clipboard utility is available.
package clipboard

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/aymanbagabas/go-osc52/v2"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var ErrUnavailable = errors.New("clipboard unavailable")

// Copier writes text to the clipboard.
type Copier struct {
	primary  func(string) error
	terminal io.Writer
	isTTY    func() bool
	env      func(string) string
	logger   *zap.Logger
}

type Option func(*Copier)

// WithTerminal sets the terminal the OSC52 fallback is written to. The
// fallback is skipped unless isTTY reports a terminal.
func WithTerminal(w io.Writer, isTTY func() bool) Option {
	return func(c *Copier) {
		c.terminal = w
		c.isTTY = isTTY
	}
}

// WithPrimary replaces the system clipboard. A nil func disables it.
func WithPrimary(f func(string) error) Option {
	return func(c *Copier) {
		c.primary = f
	}
}

func WithLogger(lgr *zap.Logger) Option {
	return func(c *Copier) {
		c.logger = lgr
	}
}

func withEnv(env func(string) string) Option {
	return func(c *Copier) {
		c.env = env
	}
}

// New returns a copier using the system clipboard, with the OSC52 fallback
// written to stderr when it is a terminal.
func New(opts ...Option) *Copier {
	c := &Copier{
		terminal: os.Stderr,
		isTTY:    func() bool { return term.IsTerminal(int(os.Stderr.Fd())) },
		env:      os.Getenv,
		logger:   zap.NewNop(),
	}
	if !clipboard.Unsupported {
		c.primary = clipboard.WriteAll
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Copy writes text to the system clipboard, or asks the terminal to do so.
// ErrUnavailable is returned when neither succeeds. Empty text is copied
// like any other.
func (c *Copier) Copy(text string) error {
	var primaryErr error
	if c.primary != nil {
		if primaryErr = c.primary(text); primaryErr == nil {
			return nil
		}
		c.logger.Debug("system clipboard failed, trying terminal", zap.Error(primaryErr))
	}

	if c.terminal == nil || c.isTTY == nil || !c.isTTY() {
		if primaryErr != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, primaryErr)
		}
		return ErrUnavailable
	}

	seq := osc52.New(text)
	switch {
	case c.env("TMUX") != "":
		seq = seq.Tmux()
	case strings.HasPrefix(c.env("TERM"), "screen"):
		seq = seq.Screen()
	}
	if _, err := seq.WriteTo(c.terminal); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
