package resource

import (
	"framekit/internal/docmodel"
)

// TextStyleKind is the factory id of text style items
const TextStyleKind = "r_txtstyle"

// TextStyle holds the styling shared by text clips
type TextStyle struct {
	FontSize        float64
	FontFamily      string
	BorderThickness float64
	SkewX           float64
	IsAntiAliased   bool
	Foreground      Colour
	Border          Colour
}

// NewTextStyle returns a style with the editor defaults
func NewTextStyle() *TextStyle {
	return &TextStyle{
		FontSize:        40,
		FontFamily:      "Consolas",
		BorderThickness: 1,
		IsAntiAliased:   true,
		Foreground:      Colour{R: 255, G: 255, B: 255, A: 255},
		Border:          Colour{R: 169, G: 169, B: 169, A: 255},
	}
}

func (s *TextStyle) Kind() string { return TextStyleKind }

func (s *TextStyle) Clone() Content {
	cp := *s
	return &cp
}

func (s *TextStyle) Serialise(data docmodel.Dict) {
	data.SetFloat64("FontSize", s.FontSize)
	data.SetString("FontFamily", s.FontFamily)
	data.SetFloat64("BorderThickness", s.BorderThickness)
	data.SetFloat64("SkewX", s.SkewX)
	data.SetBool("IsAntiAliased", s.IsAntiAliased)
	data.SetUint64("Foreground", uint64(s.Foreground.RGBA()))
	data.SetUint64("Border", uint64(s.Border.RGBA()))
}

func (s *TextStyle) Deserialise(data docmodel.Dict) error {
	s.FontSize = data.GetFloat64("FontSize", s.FontSize)
	s.FontFamily = data.GetString("FontFamily", s.FontFamily)
	s.BorderThickness = data.GetFloat64("BorderThickness", s.BorderThickness)
	s.SkewX = data.GetFloat64("SkewX", s.SkewX)
	s.IsAntiAliased = data.GetBool("IsAntiAliased", s.IsAntiAliased)
	if v, ok := data.TryGetUint64("Foreground"); ok {
		s.Foreground.SetRGBA(uint32(v))
	}
	if v, ok := data.TryGetUint64("Border"); ok {
		s.Border.SetRGBA(uint32(v))
	}
	return nil
}
