package xkb

import (
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// UseExtension

type UseExtensionCookie struct {
	*xgb.Cookie
}

type UseExtensionReply struct {
	Sequence    uint16
	Length      uint32
	Supported   bool
	ServerMajor uint16
	ServerMinor uint16
}

func UseExtension(c *xgb.Conn, wantedMajor, wantedMinor uint16) UseExtensionCookie {
	cookie := c.NewCookie(true, true)
	c.NewRequest(useExtensionRequest(opcode(c, "UseExtension"), wantedMajor, wantedMinor), cookie)
	return UseExtensionCookie{cookie}
}

func (cook UseExtensionCookie) Reply() (*UseExtensionReply, error) {
	buf, err := cook.Cookie.Reply()
	if err != nil {
		return nil, err
	}
	if buf == nil {
		return nil, nil
	}
	return useExtensionReply(buf)
}

func useExtensionRequest(major byte, wantedMajor, wantedMinor uint16) []byte {
	buf := make([]byte, 8)
	b := header(buf, major, opUseExtension)

	xgb.Put16(buf[b:], wantedMajor)
	b += 2

	xgb.Put16(buf[b:], wantedMinor)

	return buf
}

func useExtensionReply(buf []byte) (*UseExtensionReply, error) {
	if err := checkLength("UseExtension", buf, 12); err != nil {
		return nil, err
	}

	v := new(UseExtensionReply)
	v.Supported = buf[1] == 1
	v.Sequence = xgb.Get16(buf[2:])
	v.Length = xgb.Get32(buf[4:])
	v.ServerMajor = xgb.Get16(buf[8:])
	v.ServerMinor = xgb.Get16(buf[10:])
	return v, nil
}

// GetState

type GetStateCookie struct {
	*xgb.Cookie
}

type GetStateReply struct {
	Sequence         uint16
	Length           uint32
	DeviceID         byte
	Mods             byte
	BaseMods         byte
	LatchedMods      byte
	LockedMods       byte
	Group            byte
	LockedGroup      byte
	BaseGroup        int16
	LatchedGroup     int16
	CompatState      byte
	GrabMods         byte
	CompatGrabMods   byte
	LookupMods       byte
	CompatLookupMods byte
	PtrBtnState      uint16
}

func GetState(c *xgb.Conn, device DeviceSpec) GetStateCookie {
	cookie := c.NewCookie(true, true)
	c.NewRequest(getStateRequest(opcode(c, "GetState"), device), cookie)
	return GetStateCookie{cookie}
}

func (cook GetStateCookie) Reply() (*GetStateReply, error) {
	buf, err := cook.Cookie.Reply()
	if err != nil {
		return nil, err
	}
	if buf == nil {
		return nil, nil
	}
	return getStateReply(buf)
}

func getStateRequest(major byte, device DeviceSpec) []byte {
	buf := make([]byte, 8)
	b := header(buf, major, opGetState)

	xgb.Put16(buf[b:], uint16(device))
	// 2 bytes padding

	return buf
}

func getStateReply(buf []byte) (*GetStateReply, error) {
	if err := checkLength("GetState", buf, 26); err != nil {
		return nil, err
	}

	v := new(GetStateReply)
	v.DeviceID = buf[1]
	v.Sequence = xgb.Get16(buf[2:])
	v.Length = xgb.Get32(buf[4:])
	v.Mods = buf[8]
	v.BaseMods = buf[9]
	v.LatchedMods = buf[10]
	v.LockedMods = buf[11]
	v.Group = buf[12]
	v.LockedGroup = buf[13]
	v.BaseGroup = int16(xgb.Get16(buf[14:]))
	v.LatchedGroup = int16(xgb.Get16(buf[16:]))
	v.CompatState = buf[18]
	v.GrabMods = buf[19]
	v.CompatGrabMods = buf[20]
	v.LookupMods = buf[21]
	v.CompatLookupMods = buf[22]
	v.PtrBtnState = xgb.Get16(buf[24:])
	return v, nil
}

// LatchLockState

type LatchLockStateCookie struct {
	*xgb.Cookie
}

// LatchLockState holds the fields of a single latch/lock command.
type LatchLockState struct {
	AffectModLocks   byte
	ModLocks         byte
	LockGroup        bool
	GroupLock        byte
	AffectModLatches byte
	LatchGroup       bool
	GroupLatch       int16
}

// LatchLockStateChecked sends a checked request; use Check to wait for the
// server's verdict.
func LatchLockStateChecked(c *xgb.Conn, device DeviceSpec, state LatchLockState) LatchLockStateCookie {
	cookie := c.NewCookie(true, false)
	c.NewRequest(latchLockStateRequest(opcode(c, "LatchLockState"), device, state), cookie)
	return LatchLockStateCookie{cookie}
}

func (cook LatchLockStateCookie) Check() error {
	return cook.Cookie.Check()
}

func latchLockStateRequest(major byte, device DeviceSpec, state LatchLockState) []byte {
	buf := make([]byte, 16)
	b := header(buf, major, opLatchLockState)

	xgb.Put16(buf[b:], uint16(device))
	b += 2

	buf[b] = state.AffectModLocks
	b += 1

	buf[b] = state.ModLocks
	b += 1

	buf[b] = boolByte(state.LockGroup)
	b += 1

	buf[b] = state.GroupLock
	b += 1

	buf[b] = state.AffectModLatches
	b += 1

	b += 2 // padding

	buf[b] = boolByte(state.LatchGroup)
	b += 1

	xgb.Put16(buf[b:], uint16(state.GroupLatch))

	return buf
}

// GetIndicatorMap

type GetIndicatorMapCookie struct {
	*xgb.Cookie
}

type IndicatorMap struct {
	Flags       byte
	WhichGroups byte
	Groups      byte
	WhichMods   byte
	Mods        byte
	RealMods    byte
	Vmods       uint16
	Ctrls       uint32
}

type GetIndicatorMapReply struct {
	Sequence       uint16
	Length         uint32
	DeviceID       byte
	Which          uint32
	RealIndicators uint32
	NIndicators    byte
	Maps           []IndicatorMap
}

// GetIndicatorMap asks for the maps of every indicator whose bit is set in which.
func GetIndicatorMap(c *xgb.Conn, device DeviceSpec, which uint32) GetIndicatorMapCookie {
	cookie := c.NewCookie(true, true)
	c.NewRequest(getIndicatorMapRequest(opcode(c, "GetIndicatorMap"), device, which), cookie)
	return GetIndicatorMapCookie{cookie}
}

func (cook GetIndicatorMapCookie) Reply() (*GetIndicatorMapReply, error) {
	buf, err := cook.Cookie.Reply()
	if err != nil {
		return nil, err
	}
	if buf == nil {
		return nil, nil
	}
	return getIndicatorMapReply(buf)
}

func getIndicatorMapRequest(major byte, device DeviceSpec, which uint32) []byte {
	buf := make([]byte, 12)
	b := header(buf, major, opGetIndicatorMap)

	xgb.Put16(buf[b:], uint16(device))
	b += 4 // device + 2 bytes padding

	xgb.Put32(buf[b:], which)

	return buf
}

const indicatorMapSize = 12

func getIndicatorMapReply(buf []byte) (*GetIndicatorMapReply, error) {
	if err := checkLength("GetIndicatorMap", buf, 32); err != nil {
		return nil, err
	}

	v := new(GetIndicatorMapReply)
	v.DeviceID = buf[1]
	v.Sequence = xgb.Get16(buf[2:])
	v.Length = xgb.Get32(buf[4:])
	v.Which = xgb.Get32(buf[8:])
	v.RealIndicators = xgb.Get32(buf[12:])
	v.NIndicators = buf[16]

	n := popCount(v.Which)
	if err := checkLength("GetIndicatorMap", buf, 32+n*indicatorMapSize); err != nil {
		return nil, err
	}

	v.Maps = make([]IndicatorMap, n)
	b := 32
	for i := range v.Maps {
		v.Maps[i] = IndicatorMap{
			Flags:       buf[b],
			WhichGroups: buf[b+1],
			Groups:      buf[b+2],
			WhichMods:   buf[b+3],
			Mods:        buf[b+4],
			RealMods:    buf[b+5],
			Vmods:       xgb.Get16(buf[b+6:]),
			Ctrls:       xgb.Get32(buf[b+8:]),
		}
		b += indicatorMapSize
	}
	return v, nil
}

// GetNames

type GetNamesCookie struct {
	*xgb.Cookie
}

// GetNamesReply carries the atoms of every name detail present in Which.
// Details this package never asks for are skipped, not decoded.
type GetNamesReply struct {
	Sequence     uint16
	Length       uint32
	DeviceID     byte
	Which        uint32
	MinKeyCode   byte
	MaxKeyCode   byte
	NTypes       byte
	GroupNames   byte
	VirtualMods  uint16
	FirstKey     byte
	NKeys        byte
	Indicators   uint32
	NRadioGroups byte
	NKeyAliases  byte
	NKTLevels    uint16

	KeycodesName    xproto.Atom
	GeometryName    xproto.Atom
	SymbolsName     xproto.Atom
	PhysSymbolsName xproto.Atom
	TypesName       xproto.Atom
	CompatName      xproto.Atom
	IndicatorNames  []xproto.Atom
	Groups          []xproto.Atom
}

func GetNames(c *xgb.Conn, device DeviceSpec, which uint32) GetNamesCookie {
	cookie := c.NewCookie(true, true)
	c.NewRequest(getNamesRequest(opcode(c, "GetNames"), device, which), cookie)
	return GetNamesCookie{cookie}
}

func (cook GetNamesCookie) Reply() (*GetNamesReply, error) {
	buf, err := cook.Cookie.Reply()
	if err != nil {
		return nil, err
	}
	if buf == nil {
		return nil, nil
	}
	return getNamesReply(buf)
}

func getNamesRequest(major byte, device DeviceSpec, which uint32) []byte {
	buf := make([]byte, 12)
	b := header(buf, major, opGetNames)

	xgb.Put16(buf[b:], uint16(device))
	b += 4 // device + 2 bytes padding

	xgb.Put32(buf[b:], which)

	return buf
}

func getNamesReply(buf []byte) (*GetNamesReply, error) {
	if err := checkLength("GetNames", buf, 32); err != nil {
		return nil, err
	}

	v := new(GetNamesReply)
	v.DeviceID = buf[1]
	v.Sequence = xgb.Get16(buf[2:])
	v.Length = xgb.Get32(buf[4:])
	v.Which = xgb.Get32(buf[8:])
	v.MinKeyCode = buf[12]
	v.MaxKeyCode = buf[13]
	v.NTypes = buf[14]
	v.GroupNames = buf[15]
	v.VirtualMods = xgb.Get16(buf[16:])
	v.FirstKey = buf[18]
	v.NKeys = buf[19]
	v.Indicators = xgb.Get32(buf[20:])
	v.NRadioGroups = buf[24]
	v.NKeyAliases = buf[25]
	v.NKTLevels = xgb.Get16(buf[26:])

	r := valueReader{name: "GetNames", buf: buf, off: 32}

	single := []struct {
		bit uint32
		dst *xproto.Atom
	}{
		{NameDetailKeycodes, &v.KeycodesName},
		{NameDetailGeometry, &v.GeometryName},
		{NameDetailSymbols, &v.SymbolsName},
		{NameDetailPhysSymbols, &v.PhysSymbolsName},
		{NameDetailTypes, &v.TypesName},
		{NameDetailCompat, &v.CompatName},
	}
	for _, s := range single {
		if v.Which&s.bit == 0 {
			continue
		}
		atoms, err := r.atoms(1)
		if err != nil {
			return nil, err
		}
		*s.dst = atoms[0]
	}

	if v.Which&NameDetailKeyTypeNames != 0 {
		if err := r.skip(int(v.NTypes) * 4); err != nil {
			return nil, err
		}
	}
	if v.Which&NameDetailKTLevelNames != 0 {
		levels, err := r.bytes(int(v.NTypes))
		if err != nil {
			return nil, err
		}
		total := 0
		for _, l := range levels {
			total += int(l)
		}
		r.align()
		if err := r.skip(total * 4); err != nil {
			return nil, err
		}
	}
	if v.Which&NameDetailIndicatorNames != 0 {
		atoms, err := r.atoms(popCount(v.Indicators))
		if err != nil {
			return nil, err
		}
		v.IndicatorNames = atoms
	}
	if v.Which&NameDetailVirtualModNames != 0 {
		if err := r.skip(popCount(uint32(v.VirtualMods)) * 4); err != nil {
			return nil, err
		}
	}
	if v.Which&NameDetailGroupNames != 0 {
		atoms, err := r.atoms(popCount(uint32(v.GroupNames)))
		if err != nil {
			return nil, err
		}
		v.Groups = atoms
	}
	// key names, key aliases and radio group names follow; nothing here reads them

	return v, nil
}

// valueReader walks the variable length part of a reply.
type valueReader struct {
	name string
	buf  []byte
	off  int
}

func (r *valueReader) bytes(n int) ([]byte, error) {
	if err := checkLength(r.name, r.buf, r.off+n); err != nil {
		return nil, err
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *valueReader) skip(n int) error {
	_, err := r.bytes(n)
	return err
}

func (r *valueReader) align() {
	r.off = xgb.Pad(r.off)
}

func (r *valueReader) atoms(n int) ([]xproto.Atom, error) {
	raw, err := r.bytes(n * 4)
	if err != nil {
		return nil, fmt.Errorf("read %d atoms: %w", n, err)
	}
	out := make([]xproto.Atom, n)
	for i := range out {
		out[i] = xproto.Atom(xgb.Get32(raw[i*4:]))
	}
	return out, nil
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
