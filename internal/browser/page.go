package browser

import "context"

// Page is the set of UI primitives the driver needs. Selectors are XPath.
// Implementations return an error wrapping ErrSessionClosed once the
// underlying browser is gone.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// Exists reports whether at least one node matches, without waiting.
	Exists(ctx context.Context, sel string) (bool, error)
	// Click activates the first matching node.
	Click(ctx context.Context, sel string) error
	// Clear empties an input or contenteditable node.
	Clear(ctx context.Context, sel string) error
	// Type types text (no line breaks) into the node.
	Type(ctx context.Context, sel, text string) error
	// Newline inserts a line break without submitting.
	Newline(ctx context.Context, sel string) error
	Close() error
}

// LaunchSpec describes one provisioning attempt.
type LaunchSpec struct {
	Source       string
	UserDataDir  string
	Headless     bool
	WindowWidth  int
	WindowHeight int
}

// Launcher provisions a browser and returns its page.
type Launcher interface {
	Open(ctx context.Context, spec LaunchSpec) (Page, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context, spec LaunchSpec) (Page, error)

func (f LauncherFunc) Open(ctx context.Context, spec LaunchSpec) (Page, error) { return f(ctx, spec) }
