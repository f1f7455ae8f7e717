package hotkey

import (
	"log"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
)

// Listen registers a global key combination such as "Ctrl+Shift+S" and calls
// callback each time every key of it is held down at once. It returns false
// when no key of the combination could be mapped.
func Listen(hotkeyConfig string, callback func()) bool {
	keys := parseHotkey(hotkeyConfig)

	type keyState struct {
		name     string
		rawcodes []uint16
		pressed  bool
	}

	var keyStates []keyState
	for _, keyName := range keys {
		rawcodes := keyNameToKeysyms(keyName)
		if len(rawcodes) == 0 {
			log.Printf("ERROR: Cannot map key '%s' to a keysym, hotkey may not work correctly", keyName)
			continue
		}
		keyStates = append(keyStates, keyState{name: keyName, rawcodes: rawcodes})
	}

	if len(keyStates) == 0 {
		log.Printf("ERROR: No valid keys in hotkey configuration '%s'", hotkeyConfig)
		return false
	}

	log.Printf("Hotkey listener configured for: %s", hotkeyConfig)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in hotkey goroutine: %v", r)
			}
		}()

		var mu sync.Mutex

		evChan := gohook.Start()
		if evChan == nil {
			log.Printf("ERROR: gohook.Start() returned nil channel")
			return
		}

		for ev := range evChan {
			if ev.Kind != gohook.KeyDown && ev.Kind != gohook.KeyUp {
				continue
			}

			mu.Lock()
			for i := range keyStates {
				for _, rawcode := range keyStates[i].rawcodes {
					if ev.Rawcode == rawcode {
						keyStates[i].pressed = ev.Kind == gohook.KeyDown
						break
					}
				}
			}

			allPressed := ev.Kind == gohook.KeyDown
			for i := range keyStates {
				if !keyStates[i].pressed {
					allPressed = false
					break
				}
			}
			if allPressed {
				for i := range keyStates {
					keyStates[i].pressed = false
				}
			}
			mu.Unlock()

			if allPressed {
				log.Printf("Hotkey activated: %s", hotkeyConfig)
				if callback != nil {
					callback()
				}
			}
		}
		log.Printf("Event channel closed")
	}()
	return true
}

// Stop ends the global hook started by Listen.
func Stop() {
	gohook.End()
}

// Keysym returns the primary X11 keysym for a key name such as "q" or "esc".
func Keysym(keyName string) (uint32, bool) {
	syms := keyNameToKeysyms(keyName)
	if len(syms) == 0 {
		return 0, false
	}
	return uint32(syms[0]), true
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	parts := strings.Split(strings.ToLower(hotkeyConfig), "+")
	var keys []string

	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "ctrl", "control":
			keys = append(keys, "ctrl")
		case "alt":
			keys = append(keys, "alt")
		case "shift":
			keys = append(keys, "shift")
		case "win", "cmd", "super":
			keys = append(keys, "super")
		default:
			keys = append(keys, part)
		}
	}

	return keys
}

// keyNameToKeysyms maps a key name to X11 keysyms, which is what the hook
// reports as the rawcode on X11. Modifiers return both left and right variants.
func keyNameToKeysyms(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))

	if len(keyName) == 1 {
		c := keyName[0]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			return []uint16{uint16(c)} // XK_a..XK_z, XK_0..XK_9 are ASCII
		}
	}

	if n, ok := functionKey(keyName); ok {
		return []uint16{0xffbe + uint16(n-1)} // XK_F1
	}

	switch keyName {
	case "ctrl":
		return []uint16{0xffe3, 0xffe4} // XK_Control_L, XK_Control_R
	case "shift":
		return []uint16{0xffe1, 0xffe2} // XK_Shift_L, XK_Shift_R
	case "alt":
		return []uint16{0xffe9, 0xffea} // XK_Alt_L, XK_Alt_R
	case "super":
		return []uint16{0xffeb, 0xffec} // XK_Super_L, XK_Super_R

	case "space":
		return []uint16{0x0020}
	case "enter", "return":
		return []uint16{0xff0d}
	case "esc", "escape":
		return []uint16{0xff1b}
	case "tab":
		return []uint16{0xff09}
	case "backspace":
		return []uint16{0xff08}
	case "delete", "del":
		return []uint16{0xffff}
	case "insert", "ins":
		return []uint16{0xff63}
	case "home":
		return []uint16{0xff50}
	case "end":
		return []uint16{0xff57}
	case "pageup", "pgup":
		return []uint16{0xff55}
	case "pagedown", "pgdn":
		return []uint16{0xff56}
	case "print", "printscreen", "prtsc":
		return []uint16{0xff61}

	case "left":
		return []uint16{0xff51}
	case "up":
		return []uint16{0xff52}
	case "right":
		return []uint16{0xff53}
	case "down":
		return []uint16{0xff54}

	default:
		log.Printf("WARNING: Unknown key name '%s', cannot map to keysym", keyName)
		return nil
	}
}

// functionKey parses "f1".."f24".
func functionKey(keyName string) (int, bool) {
	if len(keyName) < 2 || len(keyName) > 3 || keyName[0] != 'f' {
		return 0, false
	}
	n := 0
	for _, c := range keyName[1:] {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if n < 1 || n > 24 {
		return 0, false
	}
	return n, true
}
