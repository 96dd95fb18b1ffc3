package darwin

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// scriptTimeout bounds a single osascript call. System Events can hang while
// it waits for the automation permission prompt.
const scriptTimeout = 10 * time.Second

// runner runs osascript with the given script and returns its stdout.
type runner func(ctx context.Context, script string) ([]byte, error)

// WallpaperService implements platform.WallpaperService for macOS.
type WallpaperService struct {
	run runner
}

// NewWallpaperService creates a service that talks to osascript.
func NewWallpaperService() *WallpaperService {
	return &WallpaperService{run: osascript}
}

// Set sets the picture of every desktop through System Events.
func (s *WallpaperService) Set(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), scriptTimeout)
	defer cancel()

	if _, err := s.run(ctx, setScript(path)); err != nil {
		return fmt.Errorf("failed to set wallpaper: %w", err)
	}
	return nil
}

// Get returns the current desktop wallpaper path.
// Finder is asked instead of System Events because it answers for the
// active space on every display.
func (s *WallpaperService) Get() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), scriptTimeout)
	defer cancel()

	output, err := s.run(ctx, getScript)
	if err != nil {
		return "", fmt.Errorf("failed to get wallpaper: %w", err)
	}

	path := strings.TrimSpace(string(output))
	if path == "" {
		return "", fmt.Errorf("failed to get wallpaper: empty answer from Finder")
	}
	return path, nil
}

const getScript = `tell application "Finder" to get POSIX path of (desktop picture as alias)`

// setScript quotes path as an AppleScript string literal.
func setScript(path string) string {
	quoted := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(path)
	return fmt.Sprintf(`tell application "System Events"
	tell every desktop
		set picture to "%s"
	end tell
end tell`, quoted)
}

func osascript(ctx context.Context, script string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "osascript", "-e", script)

	var stderr strings.Builder
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}
	return output, nil
}
