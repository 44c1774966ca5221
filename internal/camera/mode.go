package camera

import "fmt"

// Facing selects the camera lens.
type Facing int

const (
	FacingBack Facing = iota
	FacingFront
)

// Toggle switches between the back and front lens.
func (f Facing) Toggle() Facing {
	if f == FacingFront {
		return FacingBack
	}
	return FacingFront
}

func (f Facing) String() string {
	switch f {
	case FacingBack:
		return "back"
	case FacingFront:
		return "front"
	default:
		return fmt.Sprintf("Facing(%d)", int(f))
	}
}

// FlashMode is the flash setting applied to the next capture.
type FlashMode int

const (
	FlashOff FlashMode = iota
	FlashAuto
	FlashOn
)

// Next cycles OFF -> AUTO -> ON -> OFF.
func (m FlashMode) Next() FlashMode {
	switch m {
	case FlashOff:
		return FlashAuto
	case FlashAuto:
		return FlashOn
	default:
		return FlashOff
	}
}

func (m FlashMode) String() string {
	switch m {
	case FlashOff:
		return "off"
	case FlashAuto:
		return "auto"
	case FlashOn:
		return "on"
	default:
		return fmt.Sprintf("FlashMode(%d)", int(m))
	}
}

// Settings are the device options for a single capture.
type Settings struct {
	Flash  FlashMode
	Facing Facing
}
