package clipboard

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) string { return "" }

func TestCopyPrimary(t *testing.T) {
	var got []string
	var terminal bytes.Buffer
	c := New(
		WithPrimary(func(s string) error { got = append(got, s); return nil }),
		WithTerminal(&terminal, func() bool { return true }),
	)
	require.NoError(t, c.Copy("XJ9Q2K"))
	require.NoError(t, c.Copy(""))
	assert.Equal(t, []string{"XJ9Q2K", ""}, got)
	assert.Zero(t, terminal.Len())
}

func TestCopyFallsBackToTerminal(t *testing.T) {
	var terminal bytes.Buffer
	c := New(
		WithPrimary(func(string) error { return errors.New("xclip not found") }),
		WithTerminal(&terminal, func() bool { return true }),
		withEnv(noEnv),
	)
	require.NoError(t, c.Copy("XJ9Q2K"))
	out := terminal.String()
	assert.Contains(t, out, "\x1b]52;c;")
	assert.Contains(t, out, base64.StdEncoding.EncodeToString([]byte("XJ9Q2K")))
}

func TestCopyTmux(t *testing.T) {
	var terminal bytes.Buffer
	c := New(
		WithPrimary(nil),
		WithTerminal(&terminal, func() bool { return true }),
		withEnv(func(k string) string {
			if k == "TMUX" {
				return "/tmp/tmux-1000/default,1,0"
			}
			return ""
		}),
	)
	require.NoError(t, c.Copy("AB12"))
	assert.Contains(t, terminal.String(), "\x1bPtmux;")
}

func TestCopyUnavailable(t *testing.T) {
	var terminal bytes.Buffer
	c := New(
		WithPrimary(func(string) error { return errors.New("no display") }),
		WithTerminal(&terminal, func() bool { return false }),
	)
	err := c.Copy("XJ9Q2K")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "no display")
	assert.Zero(t, terminal.Len())

	c = New(WithPrimary(nil), WithTerminal(nil, nil))
	assert.ErrorIs(t, c.Copy("x"), ErrUnavailable)
}
