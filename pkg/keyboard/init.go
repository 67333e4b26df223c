package keyboard

import (
	"fmt"

	"codeberg.org/miketth/greeterkbd/pkg/xkblayouts"
	"go.uber.org/zap"
)

const (
	numLockName  = "Num Lock"
	capsLockName = "Caps Lock"
)

// initialize runs the startup sequence against a freshly connected service.
// A returned error means the model has to stay disabled.
func initialize(svc Service, log *zap.SugaredLogger) (*active, error) {
	numlock, capslock, err := buildIndicatorMasks(svc, log)
	if err != nil {
		return nil, fmt.Errorf("init led map: %w", err)
	}

	layouts, err := buildLayouts(svc, log)
	if err != nil {
		// the model stays usable, just without layouts
		log.Warnw("can't init layouts", "error", err)
	}

	state, err := svc.State()
	if err != nil {
		return nil, fmt.Errorf("load leds state: %w", err)
	}

	a := &active{
		svc:      svc,
		numlock:  numlock,
		capslock: capslock,
		layouts:  layouts,
	}
	a.applySnapshot(state)

	return a, nil
}

// resolveName never fails: a name that can't be fetched is logged and
// treated as empty.
func resolveName(svc Service, atom Atom, log *zap.SugaredLogger) string {
	name, err := svc.AtomName(atom)
	if err != nil {
		log.Warnw("failed to get atom name", "atom", atom, "error", err)
		return ""
	}
	return name
}

func buildIndicatorMasks(svc Service, log *zap.SugaredLogger) (numlock, capslock Indicator, err error) {
	names, err := svc.IndicatorNames()
	if err != nil {
		return Indicator{}, Indicator{}, fmt.Errorf("get indicator names: %w", err)
	}

	for _, ind := range names {
		switch resolveName(svc, ind.Name, log) {
		case numLockName:
			numlock.Mask = indicatorMask(svc, ind.Slot, log)
		case capsLockName:
			capslock.Mask = indicatorMask(svc, ind.Slot, log)
		}
	}

	log.Debugw("indicator masks", "numlock", numlock.Mask, "capslock", capslock.Mask)
	return numlock, capslock, nil
}

func indicatorMask(svc Service, slot uint8, log *zap.SugaredLogger) uint8 {
	mask, err := svc.IndicatorMods(slot)
	if err != nil {
		log.Warnw("can't get indicator mask", "slot", slot, "error", err)
		return 0
	}
	return mask
}

func buildLayouts(svc Service, log *zap.SugaredLogger) ([]Layout, error) {
	names, err := svc.GroupNames()
	if err != nil {
		return nil, fmt.Errorf("get group names: %w", err)
	}

	shortNames := xkblayouts.ParseShortNames(resolveName(svc, names.Symbols, log))

	layouts := make([]Layout, 0, len(names.Groups))
	for i, group := range names.Groups {
		layout := Layout{LongName: resolveName(svc, group, log)}
		if i < len(shortNames) {
			layout.ShortName = shortNames[i]
		}

		log.Debugw("layout", "index", i, "short", layout.ShortName, "long", layout.LongName)
		layouts = append(layouts, layout)
	}

	return layouts, nil
}
