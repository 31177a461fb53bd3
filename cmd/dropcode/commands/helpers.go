package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dropcode/dropcode/cmd/dropcode/config"
	"github.com/dropcode/dropcode/cmd/dropcode/tui"
	"github.com/dropcode/dropcode/cmd/dropcode/tui/app"
	"github.com/dropcode/dropcode/internal/backend"
	"github.com/dropcode/dropcode/internal/clipboard"
	"github.com/dropcode/dropcode/internal/file"
	"github.com/dropcode/dropcode/internal/logger"
	"github.com/dropcode/dropcode/internal/session"
	"github.com/dropcode/dropcode/internal/theme"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	backendFlagDesc = `Base url of the dropcode backend. Accepted formats:
  - https://api.example.com/prod
  - http://localhost:8080
	`
	tuiStyleFlagDesc = "Style of the tui (rich|raw)"
)

var validate = validator.New()
var ErrInvalidBackend = errors.New("invalid backend url provided")

// validateBackendURL validates that the backend is an absolute http(s) url.
func validateBackendURL(raw string) error {
	if err := validate.Var(raw, "required,url,startswith=http"); err != nil {
		return ErrInvalidBackend
	}
	return nil
}

// bindTransferFlags binds the flags shared by the commands talking to the backend.
func bindTransferFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlag("backend", cmd.Flags().Lookup("backend")); err != nil {
		return fmt.Errorf("binding backend flag: %w", err)
	}
	if flag := cmd.Flags().Lookup("tui-style"); flag != nil {
		if err := viper.BindPFlag("tui_style", flag); err != nil {
			return fmt.Errorf("binding tui-style flag: %w", err)
		}
	}
	return nil
}

func setupLoggingFromViper(cmd string) (*zap.Logger, error) {
	if viper.GetBool("verbose") {
		lgr, err := logger.NewFile(fmt.Sprintf(".dropcode-%s.log", cmd))
		if err != nil {
			return nil, fmt.Errorf("could not log to the provided file: %w", err)
		}
		return lgr.With(zap.String("command", cmd)), nil
	}
	return zap.NewNop(), nil
}

// newController loads the configuration and wires a session controller to
// the backend, the clipboard, the theme store and the file loader.
func newController(lgr *zap.Logger, opts ...session.Option) (*session.Controller, *backend.Client, error) {
	cnf, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := validateBackendURL(cnf.Backend); err != nil {
		return nil, nil, fmt.Errorf("%w: (%s) is not a valid backend url", err, cnf.Backend)
	}
	client, err := backend.New(cnf.BackendConfig(), backend.WithLogger(lgr))
	if err != nil {
		return nil, nil, fmt.Errorf("creating backend client: %w", err)
	}
	opts = append([]session.Option{
		session.WithCopier(clipboard.New(clipboard.WithLogger(lgr))),
		session.WithThemeStore(theme.NewStore(viper.GetViper())),
		session.WithLoader(file.Open),
		session.WithLogger(lgr),
	}, opts...)
	return session.New(client, opts...), client, nil
}

// ------------------------------------------------------ Presenter ----------------------------------------------------

// linePresenter renders notifications as lines for the raw tui style.
type linePresenter struct {
	mu  sync.Mutex
	out io.Writer
}

func newLinePresenter(out io.Writer) *linePresenter {
	return &linePresenter{out: out}
}

func (p *linePresenter) Notify(n session.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, tui.LevelText(n.Level, n.Icon+" "+n.Message))
}

func (p *linePresenter) ShowFeedback() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, tui.HelpStyle("Enjoying dropcode? Rate it with `dropcode feedback --rating 5`"))
}

func (p *linePresenter) HideFeedback() {}

// appOptions are the interactive options shared by every command starting the app.
func appOptions(ctx context.Context) []app.Option {
	opts := []app.Option{
		app.WithContext(ctx),
		app.WithPromptOverwrite(viper.GetBool("prompt_overwrite_files")),
	}
	if !config.IsDefault("backend") {
		opts = append(opts, app.WithBackendLabel(viper.GetString("backend")))
	}
	return opts
}
