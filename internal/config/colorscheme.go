package config

import (
	"fmt"
	"os"

	"github.com/micro-editor/tcell/v2"
	"gopkg.in/yaml.v2"

	"github.com/rustyterm/rustyterm/internal/host"
)

// InTmux mirrors the teacher's tmux-compatibility check: true color
// escapes are unreliable through tmux, so colors downsample to the
// 256-entry palette.
var InTmux = os.Getenv("TMUX") != ""

// DefStyle is RustyTerm's default, unstyled cell — the teacher's
// DefStyle convention, scoped down from a full buffer-syntax colorscheme
// to the handful of UI roles this spec's components actually paint.
var DefStyle = tcell.StyleDefault

// Role names the semantic UI elements the assistant/terminal UIs style,
// playing the part of the teacher's "color group" in GetColor but over a
// small fixed set instead of an open-ended syntax-highlighting namespace,
// since RustyTerm has no buffer to highlight.
type Role string

const (
	RoleBorderFocused   Role = "border_focused"
	RoleBorderUnfocused Role = "border_unfocused"
	RoleScrollIndicator Role = "scroll_indicator"
	RoleVerdictAllow    Role = "verdict_allow"
	RoleVerdictConfirm  Role = "verdict_confirm"
	RoleVerdictDeny     Role = "verdict_deny"
	RoleChatUser        Role = "chat_user"
	RoleChatAssistant   Role = "chat_assistant"
	RoleTabActive       Role = "tab_active"
	RoleTabInactive     Role = "tab_inactive"
	RoleTimestamp       Role = "timestamp"
)

// Colorscheme is the active Role → tcell.Style mapping.
var Colorscheme map[Role]tcell.Style

func init() {
	Colorscheme = defaultColorscheme()
}

func defaultColorscheme() map[Role]tcell.Style {
	return map[Role]tcell.Style{
		RoleBorderFocused:   DefStyle.Foreground(tcell.Color205), // hot pink, teacher's focus border color
		RoleBorderUnfocused: DefStyle.Foreground(tcell.ColorGray),
		RoleScrollIndicator: DefStyle.Foreground(tcell.ColorYellow).Bold(true),
		RoleVerdictAllow:    DefStyle.Foreground(tcell.ColorGreen).Bold(true),
		RoleVerdictConfirm:  DefStyle.Foreground(tcell.ColorYellow).Bold(true),
		RoleVerdictDeny:     DefStyle.Foreground(tcell.ColorRed).Bold(true),
		RoleChatUser:        DefStyle.Foreground(tcell.ColorAqua),
		RoleChatAssistant:   DefStyle.Foreground(tcell.ColorSilver),
		RoleTabActive:       DefStyle.Foreground(tcell.ColorWhite).Bold(true),
		RoleTabInactive:     DefStyle.Foreground(tcell.ColorGray),
		RoleTimestamp:       DefStyle.Foreground(tcell.ColorGray).Italic(true),
	}
}

// GetColor returns the style for role, falling back to DefStyle for an
// unrecognized role the way the teacher's GetColor falls back for an
// unknown syntax group.
func GetColor(role Role) tcell.Style {
	if st, ok := Colorscheme[role]; ok {
		return st
	}
	return DefStyle
}

// colorschemeOverrideFile is the on-disk shape of an optional hex-color
// override, keyed by Role name.
type colorschemeOverrideFile map[Role]string

// InitColorscheme resets Colorscheme to its defaults, then applies a
// colorscheme.yaml override from path if one exists. A missing file is
// not an error, matching internal/security's LoadPolicyFile convention
// for the same RUSTYTERM_CONFIG_HOME directory.
func InitColorscheme(path string) error {
	Colorscheme = defaultColorscheme()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read colorscheme file: %w", err)
	}

	var override colorschemeOverrideFile
	if err := yaml.Unmarshal(data, &override); err != nil {
		return fmt.Errorf("config: parse colorscheme file %s: %w", path, err)
	}

	for role, hex := range override {
		Colorscheme[role] = DefStyle.Foreground(hexColor(hex))
	}
	return nil
}

// hexColor parses a "#rrggbb" string into a tcell.Color, downsampling to
// the 256-palette when InTmux, matching the teacher's hexTo256Color
// tmux-compatibility rule (applied here via the same go-colorful
// nearest-palette search internal/host uses for terminal grid cells, so
// the UI chrome and the terminal content agree on a palette when
// truecolor is unavailable).
func hexColor(hex string) tcell.Color {
	if !InTmux {
		return tcell.GetColor(hex)
	}
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return tcell.ColorDefault
	}
	return tcell.PaletteColor(int(host.NearestPaletteIndex(uint8(r), uint8(g), uint8(b))))
}
