package xkb

import (
	"encoding/binary"
	"errors"
	"testing"

	"codeberg.org/miketth/greeterkbd/pkg/keyboard"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOpcode = 135

// replyBuf builds a 32+extra byte reply with sequence 7 and the length field set.
func replyBuf(extra int) []byte {
	buf := make([]byte, 32+extra)
	buf[0] = 1
	binary.LittleEndian.PutUint16(buf[2:], 7)
	binary.LittleEndian.PutUint32(buf[4:], uint32(extra/4))
	return buf
}

func TestRequests(t *testing.T) {
	t.Run("UseExtension", func(t *testing.T) {
		assert.Equal(t,
			[]byte{testOpcode, opUseExtension, 2, 0, 1, 0, 0, 0},
			useExtensionRequest(testOpcode, 1, 0))
	})

	t.Run("GetState", func(t *testing.T) {
		assert.Equal(t,
			[]byte{testOpcode, opGetState, 2, 0, 0x00, 0x01, 0, 0},
			getStateRequest(testOpcode, UseCoreKbd))
	})

	t.Run("GetIndicatorMap", func(t *testing.T) {
		assert.Equal(t,
			[]byte{testOpcode, opGetIndicatorMap, 3, 0, 0x00, 0x01, 0, 0, 0x04, 0, 0, 0},
			getIndicatorMapRequest(testOpcode, UseCoreKbd, 1<<2))
	})

	t.Run("GetNames", func(t *testing.T) {
		assert.Equal(t,
			[]byte{testOpcode, opGetNames, 3, 0, 0x00, 0x01, 0, 0, 0x04, 0x10, 0, 0},
			getNamesRequest(testOpcode, UseCoreKbd, NameDetailGroupNames|NameDetailSymbols))
	})

	t.Run("LatchLockState", func(t *testing.T) {
		got := latchLockStateRequest(testOpcode, UseCoreKbd, LatchLockState{
			AffectModLocks: 0x12,
			ModLocks:       0x10,
			LockGroup:      true,
			GroupLock:      2,
		})
		assert.Equal(t, []byte{
			testOpcode, opLatchLockState, 4, 0,
			0x00, 0x01, // device
			0x12, 0x10, // affect mod locks, mod locks
			1, 2, // lock group, group lock
			0,    // affect mod latches
			0, 0, // padding
			0,    // latch group
			0, 0, // group latch
		}, got)
	})
}

func TestUseExtensionReply(t *testing.T) {
	buf := replyBuf(0)
	buf[1] = 0
	binary.LittleEndian.PutUint16(buf[8:], 1)
	binary.LittleEndian.PutUint16(buf[10:], 0)

	v, err := useExtensionReply(buf)
	require.NoError(t, err)
	assert.False(t, v.Supported)
	assert.Equal(t, uint16(1), v.ServerMajor)
	assert.Equal(t, uint16(7), v.Sequence)

	buf[1] = 1
	v, err = useExtensionReply(buf)
	require.NoError(t, err)
	assert.True(t, v.Supported)
}

func TestGetStateReply(t *testing.T) {
	buf := replyBuf(0)
	buf[11] = 0x12 // locked mods
	buf[12] = 1    // group

	v, err := getStateReply(buf)
	require.NoError(t, err)
	assert.Equal(t, byte(0x12), v.LockedMods)
	assert.Equal(t, byte(1), v.Group)

	_, err = getStateReply(buf[:10])
	assert.Error(t, err)
}

func TestGetIndicatorMapReply(t *testing.T) {
	buf := replyBuf(indicatorMapSize)
	binary.LittleEndian.PutUint32(buf[8:], 1<<1)
	buf[32+4] = 0x10 // mods

	v, err := getIndicatorMapReply(buf)
	require.NoError(t, err)
	require.Len(t, v.Maps, 1)
	assert.Equal(t, byte(0x10), v.Maps[0].Mods)

	// which claims two maps, only one is there
	binary.LittleEndian.PutUint32(buf[8:], 1<<1|1<<2)
	_, err = getIndicatorMapReply(buf)
	assert.Error(t, err)
}

func TestGetNamesReply(t *testing.T) {
	t.Run("symbols and groups", func(t *testing.T) {
		buf := replyBuf(12)
		binary.LittleEndian.PutUint32(buf[8:], NameDetailSymbols|NameDetailGroupNames)
		buf[15] = 0b11 // two groups
		binary.LittleEndian.PutUint32(buf[32:], 100)
		binary.LittleEndian.PutUint32(buf[36:], 200)
		binary.LittleEndian.PutUint32(buf[40:], 201)

		v, err := getNamesReply(buf)
		require.NoError(t, err)
		assert.Equal(t, xproto.Atom(100), v.SymbolsName)
		assert.Equal(t, []xproto.Atom{200, 201}, v.Groups)
		assert.Empty(t, v.IndicatorNames)
	})

	t.Run("indicator names", func(t *testing.T) {
		buf := replyBuf(8)
		binary.LittleEndian.PutUint32(buf[8:], NameDetailIndicatorNames)
		binary.LittleEndian.PutUint32(buf[20:], 1<<0|1<<3)
		binary.LittleEndian.PutUint32(buf[32:], 300)
		binary.LittleEndian.PutUint32(buf[36:], 301)

		v, err := getNamesReply(buf)
		require.NoError(t, err)
		assert.Equal(t, []xproto.Atom{300, 301}, v.IndicatorNames)
		assert.Equal(t, uint32(1<<0|1<<3), v.Indicators)
	})

	t.Run("skips details in front", func(t *testing.T) {
		// keycodes atom, two key type names, then the indicator name
		buf := replyBuf(16)
		binary.LittleEndian.PutUint32(buf[8:], NameDetailKeycodes|NameDetailKeyTypeNames|NameDetailIndicatorNames)
		buf[14] = 2 // nTypes
		binary.LittleEndian.PutUint32(buf[20:], 1<<1)
		binary.LittleEndian.PutUint32(buf[32:], 10)
		binary.LittleEndian.PutUint32(buf[44:], 400)

		v, err := getNamesReply(buf)
		require.NoError(t, err)
		assert.Equal(t, xproto.Atom(10), v.KeycodesName)
		assert.Equal(t, []xproto.Atom{400}, v.IndicatorNames)
	})

	t.Run("truncated", func(t *testing.T) {
		buf := replyBuf(4)
		binary.LittleEndian.PutUint32(buf[8:], NameDetailSymbols|NameDetailGroupNames)
		buf[15] = 0b1

		_, err := getNamesReply(buf)
		assert.Error(t, err)
	})
}

func TestIndicatorNames(t *testing.T) {
	got := indicatorNames(1<<0|1<<1|1<<5, []xproto.Atom{11, 12, 13})
	assert.Equal(t, []keyboard.IndicatorName{
		{Slot: 0, Name: 11},
		{Slot: 1, Name: 12},
		{Slot: 5, Name: 13},
	}, got)
}

func TestKeyboardError(t *testing.T) {
	buf := make([]byte, 32)
	buf[1] = 140
	binary.LittleEndian.PutUint16(buf[2:], 9)
	binary.LittleEndian.PutUint32(buf[4:], 0x0100)
	binary.LittleEndian.PutUint16(buf[8:], opLatchLockState)
	buf[10] = testOpcode

	err := KeyboardErrorNew(buf)
	assert.Equal(t, uint16(9), err.SequenceId())
	assert.Equal(t, uint32(0x0100), err.BadId())
	assert.Contains(t, err.Error(), "BadKeyboard")
}

func TestVersionError(t *testing.T) {
	var err error = &VersionError{ServerMajor: 0, ServerMinor: 65}
	assert.True(t, errors.Is(err, ErrExtensionUnsupported))
	assert.Contains(t, err.Error(), "0.65")
}
