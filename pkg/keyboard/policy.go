package keyboard

import "strings"

// NumlockPolicy is what the greeter does with Num Lock on start.
type NumlockPolicy int

const (
	NumlockUnset NumlockPolicy = iota
	NumlockOn
	NumlockOff
)

// ParseNumlockPolicy accepts "on" and "off" in any case; everything else
// leaves Num Lock alone.
func ParseNumlockPolicy(s string) NumlockPolicy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on":
		return NumlockOn
	case "off":
		return NumlockOff
	}
	return NumlockUnset
}

func (p NumlockPolicy) String() string {
	switch p {
	case NumlockOn:
		return "on"
	case NumlockOff:
		return "off"
	}
	return "none"
}
