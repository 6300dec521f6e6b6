package gcode

import (
	"errors"

	"github.com/mastercactapus/svgrbl/coord"
)

// VM tracks the modal state and position of a program as it runs. Positions
// are kept in mm regardless of the active units.
type VM struct {
	pos coord.Point
	wco coord.Point

	modal [256]float64

	// feed is in mm/min
	feed float64
}

// power-on state of a Grbl controller
var grblDefaults = map[ModalGroup]float64{
	ModalGroupMotion:                 0,
	ModalGroupCoordinateSystem:       54,
	ModalGroupPlaneSelection:         17,
	ModalGroupDistanceMode:           90,
	ModalGroupArcDistanceMode:        91.1,
	ModalGroupFeedRateMode:           94,
	ModalGroupUnits:                  21,
	ModalGroupCutterCompensationMode: 40,
	ModalGroupToolLength:             49,
	ModalGroupStopping:               0,
	ModalGroupSpindle:                5,
	ModalGroupCoolant:                9,
}

func NewVM() *VM {
	vm := &VM{}
	for g, v := range grblDefaults {
		vm.modal[g] = v
	}
	return vm
}

func (vm VM) Inches() bool         { return vm.modal[ModalGroupUnits] == 20 }
func (vm VM) RelativeMotion() bool { return vm.modal[ModalGroupDistanceMode] == 91 }

// Motion returns the active motion code, 0 for rapids and 1 for feed moves.
func (vm VM) Motion() float64 { return vm.modal[ModalGroupMotion] }

// Feed returns the last programmed feed rate in mm/min.
func (vm VM) Feed() float64 { return vm.feed }

func (vm VM) WPos() coord.Point      { return vm.pos.Sub(vm.wco) }
func (vm VM) MPos() coord.Point      { return vm.pos }
func (vm *VM) SetMPos(p coord.Point) { vm.pos = p }
func (vm *VM) SetWCO(p coord.Point)  { vm.wco = p }
func (vm VM) WCO() coord.Point       { return vm.wco }

// supported reports if the VM knows what w does. Arcs, probing and anything
// touching offsets are rejected.
func supported(w Word) bool {
	switch {
	case w.IsAxis():
		return true
	case w.W == 'F', w.W == 'S', w.W == 'P':
		return true
	case w.W == 'G':
		switch w.Arg {
		case 0, 1, 4, 20, 21, 53, 90, 91, 94:
			return true
		}
	case w.W == 'M':
		switch w.Arg {
		case 2, 3, 5:
			return true
		}
	}
	return false
}

// target returns p with every axis word of b applied, scaled by mul.
func target(p coord.Point, b Block, mul float64) coord.Point {
	for _, w := range b {
		switch w.W {
		case 'X':
			p.X = w.Arg * mul
		case 'Y':
			p.Y = w.Arg * mul
		case 'Z':
			p.Z = w.Arg * mul
		}
	}
	return p
}

// Run applies one block.
func (vm *VM) Run(b Block) error {
	err := b.Validate()
	if err != nil {
		return err
	}

	var machineCoords bool
	for _, w := range b {
		if !supported(w) {
			return errors.New("unsupported code: " + w.String())
		}
		if mg := w.ModalGroup(); mg != ModalGroupNone && mg != ModalGroupNonModal && mg != ModalGroupFeedRate {
			vm.modal[mg] = w.Arg
		}
		if w == (Word{W: 'G', Arg: 53}) {
			machineCoords = true
		}
	}

	mul := 1.0
	if vm.Inches() {
		mul = 25.4
	}
	if ok, f := b.Arg('F'); ok {
		vm.feed = f * mul
	}

	var hasAxis bool
	for _, w := range b {
		hasAxis = hasAxis || w.IsAxis()
	}
	if !hasAxis {
		return nil
	}

	switch {
	case machineCoords:
		vm.pos = target(vm.pos, b, 1)
	case vm.RelativeMotion():
		vm.pos = vm.pos.Add(target(coord.Point{}, b, mul))
	default:
		vm.pos = target(vm.WPos(), b, mul).Add(vm.wco)
	}

	return nil
}
