package keyboard

import (
	"sync"

	"go.uber.org/zap"
)

type Indicator struct {
	Enabled bool
	Mask    uint8
}

type Layout struct {
	ShortName string
	LongName  string
}

// Property names an observable field of the model.
type Property int

const (
	NumLockProperty Property = iota
	CapsLockProperty
	CurrentLayoutProperty
)

func (p Property) String() string {
	switch p {
	case NumLockProperty:
		return "numLock"
	case CapsLockProperty:
		return "capsLock"
	case CurrentLayoutProperty:
		return "currentLayout"
	}
	return "unknown"
}

// active is everything a working model owns. A model without one is
// disabled for good.
type active struct {
	svc      Service
	numlock  Indicator
	capslock Indicator
	layouts  []Layout
	layoutID int
}

func (a *active) applySnapshot(state State) {
	a.numlock.Enabled = state.LockedMods&a.numlock.Mask != 0
	a.capslock.Enabled = state.LockedMods&a.capslock.Mask != 0
	a.layoutID = int(state.Group)
}

func (a *active) lockCommand() LockCommand {
	cmd := LockCommand{
		AffectMods: a.numlock.Mask | a.capslock.Mask,
		Group:      uint8(a.layoutID),
	}
	if a.numlock.Enabled {
		cmd.Mods |= a.numlock.Mask
	}
	if a.capslock.Enabled {
		cmd.Mods |= a.capslock.Mask
	}
	return cmd
}

// Model mirrors the lock-key indicators and layout groups of the keyboard
// extension. Setters are safe for concurrent use; each one that changes a
// value pushes the complete state to the server in a single command.
type Model struct {
	mu        sync.Mutex
	active    *active
	listeners []func(Property)

	log *zap.SugaredLogger
}

// New connects through dial and loads indicators, layouts and the current
// state. Any fatal failure yields a disabled model instead of an error.
func New(dial Dialer, log *zap.SugaredLogger) *Model {
	m := &Model{log: log}

	svc, err := dial()
	if err != nil {
		log.Errorw("connect failed, keyboard extension disabled", "error", err)
		return m
	}

	a, err := initialize(svc, log)
	if err != nil {
		log.Errorw("keyboard extension disabled", "error", err)
		if err := svc.Close(); err != nil {
			log.Warnw("close keyboard connection", "error", err)
		}
		return m
	}

	m.active = a
	return m
}

// Close releases the connection. The model is disabled afterwards.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil
	}
	svc := m.active.svc
	m.active = nil
	return svc.Close()
}

// OnChange registers fn to be called after every actual value transition.
func (m *Model) OnChange(fn func(Property)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Model) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

func (m *Model) NumLockState() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return false
	}
	return m.active.numlock.Enabled
}

func (m *Model) CapsLockState() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return false
	}
	return m.active.capslock.Enabled
}

// Layouts returns a copy of the layout catalog, indexed by group.
func (m *Model) Layouts() []Layout {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	out := make([]Layout, len(m.active.layouts))
	copy(out, m.active.layouts)
	return out
}

func (m *Model) CurrentLayout() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return 0
	}
	return m.active.layoutID
}

// Indicators returns the Num Lock and Caps Lock indicators as loaded.
func (m *Model) Indicators() (numlock, capslock Indicator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return Indicator{}, Indicator{}
	}
	return m.active.numlock, m.active.capslock
}

func (m *Model) SetNumLockState(state bool) {
	m.update(NumLockProperty, func(a *active) bool {
		if a.numlock.Enabled == state {
			return false
		}
		a.numlock.Enabled = state
		return true
	})
}

func (m *Model) SetCapsLockState(state bool) {
	m.update(CapsLockProperty, func(a *active) bool {
		if a.capslock.Enabled == state {
			return false
		}
		a.capslock.Enabled = state
		return true
	})
}

// SetCurrentLayout locks the layout group at index. Indexes outside the
// catalog are ignored.
func (m *Model) SetCurrentLayout(index int) {
	m.update(CurrentLayoutProperty, func(a *active) bool {
		if a.layoutID == index {
			return false
		}
		if index < 0 || index >= len(a.layouts) {
			m.log.Warnw("layout index out of range", "index", index, "layouts", len(a.layouts))
			return false
		}
		a.layoutID = index
		return true
	})
}

// ApplyNumlockPolicy sets Num Lock as the configured policy demands.
func (m *Model) ApplyNumlockPolicy(policy NumlockPolicy) {
	if !m.Enabled() {
		return
	}

	switch policy {
	case NumlockOn:
		m.SetNumLockState(true)
	case NumlockOff:
		m.SetNumLockState(false)
	}
}

// update applies change under the lock and, if it reported a change, sends
// the combined command before anyone else can touch the state. Listeners run
// after the lock is released.
func (m *Model) update(p Property, change func(a *active) bool) {
	m.mu.Lock()
	if m.active == nil || !change(m.active) {
		m.mu.Unlock()
		return
	}

	m.sendState(m.active)

	listeners := make([]func(Property), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(p)
	}
}

// sendState pushes the local state to the server. A rejected command is only
// logged; the local state is kept as it is.
func (m *Model) sendState(a *active) {
	cmd := a.lockCommand()
	m.log.Debugw("latch lock state", "affect", cmd.AffectMods, "mods", cmd.Mods, "group", cmd.Group)

	if err := a.svc.LatchLockState(cmd); err != nil {
		m.log.Warnw("can't update state", "error", err)
	}
}
