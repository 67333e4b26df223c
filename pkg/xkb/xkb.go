// Package xkb is a small client for the XKEYBOARD extension, covering the
// requests a greeter needs to mirror lock-key indicators and layout groups.
//
// Requests are framed the same way xgb's generated extension packages frame
// theirs: bytes are built by hand and sent through xgb.Conn.NewRequest, and
// replies are decoded from the raw buffer returned by the cookie.
package xkb

import (
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

const (
	ExtensionName = "XKEYBOARD"

	MajorVersion = 1
	MinorVersion = 0
)

// DeviceSpec selects the keyboard a request applies to.
type DeviceSpec uint16

const UseCoreKbd DeviceSpec = 0x0100

// request opcodes
const (
	opUseExtension    = 0
	opGetState        = 4
	opLatchLockState  = 5
	opGetIndicatorMap = 13
	opGetNames        = 17
)

// NameDetail bits for GetNames.
const (
	NameDetailKeycodes        = 1 << 0
	NameDetailGeometry        = 1 << 1
	NameDetailSymbols         = 1 << 2
	NameDetailPhysSymbols     = 1 << 3
	NameDetailTypes           = 1 << 4
	NameDetailCompat          = 1 << 5
	NameDetailKeyTypeNames    = 1 << 6
	NameDetailKTLevelNames    = 1 << 7
	NameDetailIndicatorNames  = 1 << 8
	NameDetailKeyNames        = 1 << 9
	NameDetailKeyAliases      = 1 << 10
	NameDetailVirtualModNames = 1 << 11
	NameDetailGroupNames      = 1 << 12
	NameDetailRGNames         = 1 << 13
)

// BadKeyboard is the extension-relative error number of a Keyboard error.
const BadKeyboard = 0

// Init must be called before any other request of this package is issued on c.
func Init(c *xgb.Conn) error {
	reply, err := xproto.QueryExtension(c, uint16(len(ExtensionName)), ExtensionName).Reply()
	switch {
	case err != nil:
		return fmt.Errorf("query extension: %w", err)
	case !reply.Present:
		return fmt.Errorf("%s not present: %w", ExtensionName, ErrExtensionUnsupported)
	}

	c.ExtLock.Lock()
	c.Extensions[ExtensionName] = reply.MajorOpcode
	c.ExtLock.Unlock()
	for errNum, fun := range xgb.NewExtErrorFuncs[ExtensionName] {
		xgb.NewErrorFuncs[int(reply.FirstError)+errNum] = fun
	}
	return nil
}

func init() {
	xgb.NewExtErrorFuncs[ExtensionName] = map[int]xgb.NewErrorFun{
		BadKeyboard: KeyboardErrorNew,
	}
}

// KeyboardError is the XKEYBOARD-specific protocol error.
type KeyboardError struct {
	Sequence    uint16
	NiceName    string
	Value       uint32
	MinorOpcode uint16
	MajorOpcode byte
}

// KeyboardErrorNew constructs a KeyboardError that implements xgb.Error.
func KeyboardErrorNew(buf []byte) xgb.Error {
	v := KeyboardError{NiceName: "Keyboard"}
	b := 2 // skip error determinant and error number

	v.Sequence = xgb.Get16(buf[b:])
	b += 2

	v.Value = xgb.Get32(buf[b:])
	b += 4

	v.MinorOpcode = xgb.Get16(buf[b:])
	b += 2

	v.MajorOpcode = buf[b]

	return v
}

func (err KeyboardError) SequenceId() uint16 {
	return err.Sequence
}

func (err KeyboardError) BadId() uint32 {
	return err.Value
}

func (err KeyboardError) Error() string {
	return fmt.Sprintf("BadKeyboard {Sequence: %d, Value: %d, MinorOpcode: %d, MajorOpcode: %d}",
		err.Sequence, err.Value, err.MinorOpcode, err.MajorOpcode)
}

// opcode returns the major opcode registered by Init.
func opcode(c *xgb.Conn, request string) byte {
	c.ExtLock.RLock()
	defer c.ExtLock.RUnlock()
	op, ok := c.Extensions[ExtensionName]
	if !ok {
		panic("Cannot issue request '" + request + "' using the uninitialized extension '" + ExtensionName + "'. xkb.Init(connObj) must be called first.")
	}
	return op
}

// header writes the 4 byte request header and returns the offset after it.
func header(buf []byte, major, minor byte) int {
	buf[0] = major
	buf[1] = minor
	xgb.Put16(buf[2:], uint16(len(buf)/4))
	return 4
}

func popCount(v uint32) int {
	n := 0
	for ; v != 0; v &= v - 1 {
		n++
	}
	return n
}

func checkLength(name string, buf []byte, want int) error {
	if len(buf) < want {
		return fmt.Errorf("%s reply: short buffer (%d < %d bytes)", name, len(buf), want)
	}
	return nil
}
