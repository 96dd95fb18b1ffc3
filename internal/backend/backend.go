// Package backend describes the mechanisms that change the desktop background
// and knows how to turn an image path into the command each one needs.
package backend

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies a wallpaper backend.
type Kind string

const (
	SystemSettingsKeyValue Kind = "gsettings"
	XfceConfigQuery        Kind = "xfconf"
	PlasmaShellScript      Kind = "plasma"
	SwayBackgroundDaemon   Kind = "swaybg"
	NitrogenTool           Kind = "nitrogen"
	FehTool                Kind = "feh"
	NativeOSApi            Kind = "native"
)

// PathPolicy controls how the image path is substituted into a template.
type PathPolicy int

const (
	// PathRaw substitutes the path untouched and runs the fragments as argv.
	// No shell parses the result, so escaping would corrupt the path.
	PathRaw PathPolicy = iota

	// PathEscaped substitutes Escape(path), joins the fragments into one
	// command line and hands it to a secondary shell.
	PathEscaped
)

// Strategy controls how a backend is executed.
type Strategy int

const (
	StrategySpawn Strategy = iota
	StrategyNative
)

// Placeholder marks the template fragment that receives the image path.
const Placeholder = "{path}"

// shellProgram parses command lines of PathEscaped backends.
const shellProgram = "sh"

var (
	ErrUnknownBackend = errors.New("unknown wallpaper backend")
	ErrNativeOnly     = errors.New("backend is executed through the native OS API")
)

// Embedding says how the path is quoted for a script literal inside the
// template, before any shell escaping.
type Embedding int

const (
	EmbedNone Embedding = iota

	// EmbedJSString quotes the path for a double-quoted JavaScript string.
	EmbedJSString
)

func (e Embedding) quote(path string) string {
	if e == EmbedJSString {
		return EscapeJS(path)
	}
	return path
}

// Backend is one registered way of changing the wallpaper.
type Backend struct {
	Kind        Kind
	Description string
	Template    []string
	Policy      PathPolicy
	Strategy    Strategy
	Embed       Embedding
}

// Command is a program plus its arguments, ready to spawn.
type Command struct {
	Program string
	Args    []string
}

// Argv returns the program followed by its arguments.
func (c Command) Argv() []string {
	return append([]string{c.Program}, c.Args...)
}

// IsZero reports whether the command has no program.
func (c Command) IsZero() bool {
	return c.Program == ""
}

// String renders the command as it would be typed into a shell.
func (c Command) String() string {
	argv := c.Argv()
	parts := make([]string, len(argv))
	for i, a := range argv {
		parts[i] = Escape(a)
	}
	return strings.Join(parts, " ")
}

// FormatCommand builds the command that applies path with this backend.
// Native backends have no command and return the zero Command.
func (b Backend) FormatCommand(path string) Command {
	if b.Strategy == StrategyNative || len(b.Template) == 0 {
		return Command{}
	}

	if b.Policy == PathEscaped {
		line := strings.Join(substitute(b.Template, Escape(b.Embed.quote(path))), " ")
		return Command{Program: shellProgram, Args: []string{"-c", line}}
	}

	argv := substitute(b.Template, path)
	return Command{Program: argv[0], Args: argv[1:]}
}

// Execute spawns cmd without waiting for it to finish.
func (b Backend) Execute(s Spawner, cmd Command) error {
	if b.Strategy == StrategyNative {
		return ErrNativeOnly
	}
	if cmd.IsZero() {
		return &SpawnError{Err: fmt.Errorf("command was empty")}
	}

	if err := s.Spawn(cmd); err != nil {
		var spawnErr *SpawnError
		if errors.As(err, &spawnErr) {
			return err
		}
		return &SpawnError{Program: cmd.Program, Err: err}
	}
	return nil
}

func substitute(template []string, path string) []string {
	out := make([]string, len(template))
	for i, fragment := range template {
		out[i] = strings.ReplaceAll(fragment, Placeholder, path)
	}
	return out
}
