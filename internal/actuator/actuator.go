// Package actuator abstracts the platform-specific enforcement
// surface: closing, minimizing, and terminating foreground windows.
// The decision core only speaks to the interface; desktop bindings
// plug in behind it.
package actuator

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Actuator executes window-level enforcement actions.
type Actuator interface {
	// CloseWindow gracefully closes the named app's window. A window
	// title narrows the match when the app has several.
	CloseWindow(ctx context.Context, app, windowTitle string) error

	// CloseTab closes the browser tab matching the keyword and
	// refocuses returnToApp when given.
	CloseTab(ctx context.Context, keyword, returnToApp string) error

	// MinimizeWindow minimizes the named app's window.
	MinimizeWindow(ctx context.Context, app, windowTitle string) error

	// TerminateProcess force-kills every process of the app.
	TerminateProcess(ctx context.Context, app string) error

	// FocusApp brings the named app to the foreground.
	FocusApp(ctx context.Context, app string) error

	// IsRunning reports whether the app currently has a process.
	IsRunning(ctx context.Context, app string) (bool, error)
}

// LogActuator records every action without touching the desktop. It
// backs headless runs and tests, and is the default until a platform
// binding is wired in.
type LogActuator struct{}

// NewLogActuator creates a log-only actuator.
func NewLogActuator() *LogActuator { return &LogActuator{} }

func (a *LogActuator) CloseWindow(_ context.Context, app, windowTitle string) error {
	log.Info().Str("app", app).Str("title", windowTitle).Msg("actuator: close window")
	return nil
}

func (a *LogActuator) CloseTab(_ context.Context, keyword, returnToApp string) error {
	log.Info().Str("keyword", keyword).Str("return_to", returnToApp).Msg("actuator: close tab")
	return nil
}

func (a *LogActuator) MinimizeWindow(_ context.Context, app, windowTitle string) error {
	log.Info().Str("app", app).Str("title", windowTitle).Msg("actuator: minimize window")
	return nil
}

func (a *LogActuator) TerminateProcess(_ context.Context, app string) error {
	log.Info().Str("app", app).Msg("actuator: terminate process")
	return nil
}

func (a *LogActuator) FocusApp(_ context.Context, app string) error {
	log.Info().Str("app", app).Msg("actuator: focus app")
	return nil
}

func (a *LogActuator) IsRunning(_ context.Context, _ string) (bool, error) {
	return false, nil
}

var _ Actuator = (*LogActuator)(nil)
