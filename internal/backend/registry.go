package backend

import "fmt"

// plasmaScript is evaluated by plasmashell. The path is spliced in between
// two single-quoted segments so the outer shell sees it unquoted, and lands
// inside a JavaScript string literal once the shell has parsed it.
const plasmaScript = `'string:var Desktops = desktops(); ` +
	`for (i=0;i<Desktops.length;i++) { ` +
	`d = Desktops[i]; ` +
	`d.wallpaperPlugin = "org.kde.image"; ` +
	`d.currentConfigGroup = Array("Wallpaper", "org.kde.image", "General"); ` +
	`d.writeConfig("Image", "file://'` + Placeholder + `'") }'`

var (
	registry = make(map[Kind]Backend)
	order    []Kind
)

func register(b Backend) {
	if _, ok := registry[b.Kind]; !ok {
		order = append(order, b.Kind)
	}
	registry[b.Kind] = b
}

func init() {
	register(Backend{
		Kind:        SystemSettingsKeyValue,
		Description: "GNOME gsettings key",
		Template:    []string{"gsettings", "set", "org.gnome.desktop.background", "picture-uri", "file://" + Placeholder},
		Policy:      PathRaw,
	})
	register(Backend{
		Kind:        XfceConfigQuery,
		Description: "XFCE xfconf-query property",
		Template:    []string{"xfconf-query", "-c", "xfce4-desktop", "-p", "/backdrop/screen0/monitor0/image-path", "-s", Placeholder},
		Policy:      PathRaw,
	})
	register(Backend{
		Kind:        PlasmaShellScript,
		Description: "KDE Plasma shell script over qdbus",
		Template:    []string{"qdbus", "org.kde.plasmashell", "/PlasmaShell", "org.kde.PlasmaShell.evaluateScript", plasmaScript},
		Policy:      PathEscaped,
		Embed:       EmbedJSString,
	})
	register(Backend{
		Kind:        SwayBackgroundDaemon,
		Description: "swaybg daemon",
		Template:    []string{"swaybg", "-i", Placeholder},
		Policy:      PathRaw,
	})
	register(Backend{
		Kind:        NitrogenTool,
		Description: "nitrogen",
		Template:    []string{"nitrogen", "--set-zoom-fill", Placeholder},
		Policy:      PathRaw,
	})
	register(Backend{
		Kind:        FehTool,
		Description: "feh",
		Template:    []string{"feh", "--bg-fill", Placeholder},
		Policy:      PathRaw,
	})
	register(Backend{
		Kind:        NativeOSApi,
		Description: "native OS wallpaper API",
		Strategy:    StrategyNative,
	})
}

// Lookup returns the registered backend for kind.
func Lookup(kind Kind) (Backend, error) {
	b, ok := registry[kind]
	if !ok {
		return Backend{}, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
	return b, nil
}

// ParseKind validates a backend name, e.g. from the config file.
func ParseKind(name string) (Kind, error) {
	kind := Kind(name)
	if _, ok := registry[kind]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	return kind, nil
}

// All returns every registered backend in registration order.
func All() []Backend {
	out := make([]Backend, 0, len(order))
	for _, k := range order {
		out = append(out, registry[k])
	}
	return out
}
