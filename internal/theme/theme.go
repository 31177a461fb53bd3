// Package theme persists the dark/light preference of the interactive client.
package theme

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/exp/slices"
)

// Key is the configuration key the preference is stored under.
const Key = "theme"

type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

var Themes = []string{string(Light), string(Dark)}

var ErrInvalid = errors.New("invalid theme")

// Parse parses s into a theme, ignoring case and surrounding whitespace.
func Parse(s string) (Theme, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if !slices.Contains(Themes, v) {
		return Light, fmt.Errorf("%w: %q (expected one of %s)", ErrInvalid, s, strings.Join(Themes, ", "))
	}
	return Theme(v), nil
}

// Toggle returns the opposite theme.
func (t Theme) Toggle() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

func (t Theme) IsDark() bool {
	return t == Dark
}

// Icon is the glyph shown on the toggle, which advertises the theme it switches to.
func (t Theme) Icon() string {
	if t == Dark {
		return "☀️"
	}
	return "🌙"
}

// Store reads and writes the preference through a viper instance backed by
// the config file.
type Store struct {
	v *viper.Viper
}

func NewStore(v *viper.Viper) *Store {
	return &Store{v: v}
}

// Load returns the stored theme. Unset or unknown values resolve to Light.
func (s *Store) Load() (Theme, error) {
	raw := s.v.GetString(Key)
	if raw == "" {
		return Light, nil
	}
	t, err := Parse(raw)
	if err != nil {
		return Light, err
	}
	return t, nil
}

// Save stores t and writes it to the config file. Only the theme key is
// changed on disk; flags and other overrides held by the store's viper
// instance stay out of the file.
func (s *Store) Save(t Theme) error {
	s.v.Set(Key, string(t))

	path := s.v.ConfigFileUsed()
	if path == "" {
		return errors.New("no config file to write the theme to")
	}
	file := viper.New()
	file.SetConfigFile(path)
	if err := file.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file (%s): %w", path, err)
	}
	file.Set(Key, string(t))
	if err := file.WriteConfig(); err != nil {
		return fmt.Errorf("writing theme to config file: %w", err)
	}
	return nil
}
