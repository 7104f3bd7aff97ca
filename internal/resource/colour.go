package resource

import (
	"fmt"

	"framekit/internal/docmodel"
)

// ColourKind is the factory id of colour items
const ColourKind = "r_colour"

// Colour is a shared solid colour. It has no external data, so it is online as soon as
// it is enabled.
type Colour struct {
	R, G, B, A uint8
}

func (c *Colour) Kind() string { return ColourKind }

func (c *Colour) Clone() Content {
	cp := *c
	return &cp
}

// RGBA packs the channels as 0xRRGGBBAA
func (c *Colour) RGBA() uint32 {
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}

// SetRGBA unpacks 0xRRGGBBAA
func (c *Colour) SetRGBA(v uint32) {
	c.R, c.G, c.B, c.A = uint8(v>>24), uint8(v>>16), uint8(v>>8), uint8(v)
}

// Hex formats the colour as #rrggbbaa
func (c *Colour) Hex() string {
	return fmt.Sprintf("#%08x", c.RGBA())
}

func (c *Colour) Serialise(data docmodel.Dict) {
	data.SetUint64("Colour", uint64(c.RGBA()))
}

func (c *Colour) Deserialise(data docmodel.Dict) error {
	if v, ok := data.TryGetUint64("Colour"); ok {
		if v > 0xFFFFFFFF {
			return fmt.Errorf("colour %#x: %w", v, docmodel.ErrTypeMismatch)
		}
		c.SetRGBA(uint32(v))
	}
	return nil
}
