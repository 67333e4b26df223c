package xkb

import (
	"errors"
	"fmt"

	"codeberg.org/miketth/greeterkbd/pkg/keyboard"
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

var (
	ErrUnreachable          = errors.New("x server unreachable")
	ErrExtensionUnsupported = errors.New("keyboard extension unsupported")
)

// VersionError is returned when the server refuses the requested extension
// version.
type VersionError struct {
	ServerMajor uint16
	ServerMinor uint16
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("server speaks %s %d.%d, want %d.%d",
		ExtensionName, e.ServerMajor, e.ServerMinor, MajorVersion, MinorVersion)
}

func (e *VersionError) Unwrap() error {
	return ErrExtensionUnsupported
}

// Client owns the connection to the X server and implements keyboard.Service
// against the core keyboard.
type Client struct {
	conn   *xgb.Conn
	device DeviceSpec
}

var _ keyboard.Service = (*Client)(nil)

// Connect opens display (empty means $DISPLAY) and negotiates the keyboard
// extension on it.
func Connect(display string) (*Client, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	if err := useExtension(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &Client{conn: conn, device: UseCoreKbd}, nil
}

func useExtension(conn *xgb.Conn) error {
	if err := Init(conn); err != nil {
		return fmt.Errorf("init %s: %w", ExtensionName, err)
	}

	reply, err := UseExtension(conn, MajorVersion, MinorVersion).Reply()
	if err != nil {
		return fmt.Errorf("use extension: %w", err)
	}
	if !reply.Supported {
		return &VersionError{ServerMajor: reply.ServerMajor, ServerMinor: reply.ServerMinor}
	}

	return nil
}

func (c *Client) Close() error {
	c.conn.Close()
	return nil
}

func (c *Client) IndicatorNames() ([]keyboard.IndicatorName, error) {
	reply, err := GetNames(c.conn, c.device, NameDetailIndicatorNames).Reply()
	if err != nil {
		return nil, fmt.Errorf("get names: %w", err)
	}

	return indicatorNames(reply.Indicators, reply.IndicatorNames), nil
}

// indicatorNames pairs the n-th atom with the n-th set bit of the mask, which
// is how the server lays out named indicators.
func indicatorNames(mask uint32, atoms []xproto.Atom) []keyboard.IndicatorName {
	out := make([]keyboard.IndicatorName, 0, len(atoms))
	n := 0
	for slot := uint8(0); slot < 32 && n < len(atoms); slot++ {
		if mask&(1<<slot) == 0 {
			continue
		}
		out = append(out, keyboard.IndicatorName{Slot: slot, Name: keyboard.Atom(atoms[n])})
		n++
	}
	return out
}

func (c *Client) IndicatorMods(slot uint8) (uint8, error) {
	reply, err := GetIndicatorMap(c.conn, c.device, 1<<slot).Reply()
	if err != nil {
		return 0, fmt.Errorf("get indicator map: %w", err)
	}
	if len(reply.Maps) == 0 {
		return 0, fmt.Errorf("no map for indicator %d", slot)
	}

	return reply.Maps[0].Mods, nil
}

func (c *Client) AtomName(atom keyboard.Atom) (string, error) {
	reply, err := xproto.GetAtomName(c.conn, xproto.Atom(atom)).Reply()
	if err != nil {
		return "", fmt.Errorf("get atom name: %w", err)
	}

	return reply.Name, nil
}

func (c *Client) GroupNames() (keyboard.GroupNames, error) {
	reply, err := GetNames(c.conn, c.device, NameDetailGroupNames|NameDetailSymbols).Reply()
	if err != nil {
		return keyboard.GroupNames{}, fmt.Errorf("get names: %w", err)
	}

	names := keyboard.GroupNames{
		Symbols: keyboard.Atom(reply.SymbolsName),
		Groups:  make([]keyboard.Atom, len(reply.Groups)),
	}
	for i, atom := range reply.Groups {
		names.Groups[i] = keyboard.Atom(atom)
	}

	return names, nil
}

func (c *Client) State() (keyboard.State, error) {
	reply, err := GetState(c.conn, c.device).Reply()
	if err != nil {
		return keyboard.State{}, fmt.Errorf("get state: %w", err)
	}

	return keyboard.State{LockedMods: reply.LockedMods, Group: reply.Group}, nil
}

func (c *Client) LatchLockState(cmd keyboard.LockCommand) error {
	err := LatchLockStateChecked(c.conn, c.device, LatchLockState{
		AffectModLocks: cmd.AffectMods,
		ModLocks:       cmd.Mods,
		LockGroup:      true,
		GroupLock:      cmd.Group,
	}).Check()
	if err != nil {
		return fmt.Errorf("latch lock state: %w", err)
	}

	return nil
}
