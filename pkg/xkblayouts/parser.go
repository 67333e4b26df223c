package xkblayouts

import (
	"regexp"
	"strings"
)

// a layout is every letters-only name that follows a '+' in the symbols
// descriptor, e.g. "pc+us+ru:2+inet(evdev)"
var shortNameRe = regexp.MustCompile(`(?i)\+([a-z]+)`)

// symbol files that are pulled into the descriptor but aren't layouts
var notLayouts = map[string]struct{}{
	"inet":  {},
	"group": {},
}

// ParseShortNames extracts layout short names from an XKB symbols
// descriptor, in the order the groups appear.
func ParseShortNames(symbols string) []string {
	var names []string
	for _, match := range shortNameRe.FindAllStringSubmatch(symbols, -1) {
		name := match[1]
		if _, skip := notLayouts[strings.ToLower(name)]; skip {
			continue
		}
		names = append(names, name)
	}
	return names
}
