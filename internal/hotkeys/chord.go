package hotkeys

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRegistration wraps every chord parsing and listener failure.
var ErrRegistration = errors.New("hotkey registration failed")

// Modifier is a bit set of held modifier keys.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModAlt
	ModShift
	ModSuper
)

var modifierNames = []struct {
	mod  Modifier
	name string
}{
	{ModCtrl, "ctrl"},
	{ModAlt, "alt"},
	{ModShift, "shift"},
	{ModSuper, "super"},
}

var modifierAliases = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"mod1":    ModAlt,
	"option":  ModAlt,
	"shift":   ModShift,
	"super":   ModSuper,
	"win":     ModSuper,
	"cmd":     ModSuper,
	"meta":    ModSuper,
	"mod4":    ModSuper,
}

// namedKey maps a canonical key name to its X11 keysym and Windows
// virtual-key code.
type namedKey struct {
	keysym string
	vk     uint32
}

var namedKeys = map[string]namedKey{
	"space":     {"space", 0x20},
	"enter":     {"Return", 0x0D},
	"esc":       {"Escape", 0x1B},
	"tab":       {"Tab", 0x09},
	"backspace": {"BackSpace", 0x08},
	"delete":    {"Delete", 0x2E},
	"insert":    {"Insert", 0x2D},
	"home":      {"Home", 0x24},
	"end":       {"End", 0x23},
	"pageup":    {"Prior", 0x21},
	"pagedown":  {"Next", 0x22},
	"left":      {"Left", 0x25},
	"up":        {"Up", 0x26},
	"right":     {"Right", 0x27},
	"down":      {"Down", 0x28},
}

var keyAliases = map[string]string{
	"return": "enter",
	"escape": "esc",
	"del":    "delete",
	"ins":    "insert",
	"pgup":   "pageup",
	"pgdn":   "pagedown",
}

func init() {
	for i := 1; i <= 24; i++ {
		namedKeys[fmt.Sprintf("f%d", i)] = namedKey{fmt.Sprintf("F%d", i), uint32(0x70 + i - 1)}
	}
}

// Chord is a parsed key combination: zero or more modifiers plus exactly one
// key. Key is the canonical lower-case key name.
type Chord struct {
	Mods Modifier
	Key  string
}

// ParseChord parses strings like "ctrl+alt+h", "<ctrl>+<alt>+h" or
// "Mod4-Mod1-t". Matching is case-insensitive.
func ParseChord(s string) (Chord, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Chord{}, fmt.Errorf("%w: empty chord", ErrRegistration)
	}

	tokens := strings.FieldsFunc(strings.ToLower(trimmed), func(r rune) bool {
		return r == '+' || r == '-'
	})

	var c Chord
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		tok = strings.TrimSuffix(strings.TrimPrefix(tok, "<"), ">")
		if tok == "" {
			return Chord{}, fmt.Errorf("%w: malformed chord %q", ErrRegistration, s)
		}
		if mod, ok := modifierAliases[tok]; ok {
			c.Mods |= mod
			continue
		}
		key, err := canonicalKey(tok)
		if err != nil {
			return Chord{}, fmt.Errorf("%w: chord %q: %v", ErrRegistration, s, err)
		}
		if c.Key != "" {
			return Chord{}, fmt.Errorf("%w: chord %q has more than one key (%s, %s)", ErrRegistration, s, c.Key, key)
		}
		c.Key = key
	}
	if c.Key == "" {
		return Chord{}, fmt.Errorf("%w: chord %q has no key", ErrRegistration, s)
	}
	return c, nil
}

func canonicalKey(tok string) (string, error) {
	if alias, ok := keyAliases[tok]; ok {
		tok = alias
	}
	if _, ok := namedKeys[tok]; ok {
		return tok, nil
	}
	if len(tok) == 1 {
		ch := tok[0]
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') {
			return tok, nil
		}
	}
	return "", fmt.Errorf("unknown key %q", tok)
}

// String returns the canonical form, modifiers in ctrl, alt, shift, super
// order.
func (c Chord) String() string {
	parts := make([]string, 0, 5)
	for _, m := range modifierNames {
		if c.Mods&m.mod != 0 {
			parts = append(parts, m.name)
		}
	}
	parts = append(parts, c.Key)
	return strings.Join(parts, "+")
}

// X11 returns the chord in xgbutil/keybind notation, e.g. "Control-Mod1-h".
func (c Chord) X11() string {
	var parts []string
	if c.Mods&ModCtrl != 0 {
		parts = append(parts, "Control")
	}
	if c.Mods&ModAlt != 0 {
		parts = append(parts, "Mod1")
	}
	if c.Mods&ModShift != 0 {
		parts = append(parts, "Shift")
	}
	if c.Mods&ModSuper != 0 {
		parts = append(parts, "Mod4")
	}
	return strings.Join(append(parts, c.Keysym()), "-")
}

// Keysym returns the X11 keysym name for the chord key.
func (c Chord) Keysym() string {
	if nk, ok := namedKeys[c.Key]; ok {
		return nk.keysym
	}
	return c.Key
}

// VirtualKey returns the Windows virtual-key code for the chord key.
func (c Chord) VirtualKey() uint32 {
	if nk, ok := namedKeys[c.Key]; ok {
		return nk.vk
	}
	return uint32(strings.ToUpper(c.Key)[0])
}
