package keyboard

// Atom is a server-side identifier standing in for a string.
type Atom uint32

type IndicatorName struct {
	// Slot is the indicator's bit position in the server's indicator mask.
	Slot uint8
	Name Atom
}

type GroupNames struct {
	Symbols Atom
	Groups  []Atom
}

type State struct {
	LockedMods uint8
	Group      uint8
}

// LockCommand is one combined latch/lock request: the modifiers in
// AffectMods are locked or unlocked according to Mods, and Group becomes the
// locked layout group.
type LockCommand struct {
	AffectMods uint8
	Mods       uint8
	Group      uint8
}

// Service is the keyboard extension as seen through one connection. Every
// call blocks until the server answered.
type Service interface {
	IndicatorNames() ([]IndicatorName, error)
	IndicatorMods(slot uint8) (uint8, error)
	AtomName(atom Atom) (string, error)
	GroupNames() (GroupNames, error)
	State() (State, error)
	LatchLockState(cmd LockCommand) error
	Close() error
}

// Dialer opens the connection a Model talks through.
type Dialer func() (Service, error)
