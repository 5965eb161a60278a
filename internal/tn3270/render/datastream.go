package render

import (
	"github.com/neo6systems/neo6/internal/tn3270/compiler"
)

// 3270 order codes.
const (
	OrderSBA byte = 0x11 // Set Buffer Address
	OrderSF  byte = 0x1D // Start Field
	OrderSA  byte = 0x28 // Set Attribute (extended)
)

// Extended-attribute type bytes carried by an SA order.
const (
	saTypeHighlight byte = 0x41
	saTypeColor     byte = 0x42
)

const (
	defaultColorSA     byte = 0x00
	defaultHighlightSA byte = 0xF0
)

// colorSAValue maps a compiler color attribute onto the SA value that
// selects it; this proxy models the seven named 3270 colors and leaves
// AttrDefault to defaultColorSA.
var colorSAValue = map[compiler.Attr]byte{
	compiler.AttrBlue:      0xF1,
	compiler.AttrRed:       0xF2,
	compiler.AttrPink:      0xF3,
	compiler.AttrGreen:     0xF4,
	compiler.AttrTurquoise: 0xF5,
	compiler.AttrYellow:    0xF6,
	compiler.AttrWhite:     0xF7,
}

// highlightSAValue maps a compiler highlight modifier onto its SA value.
// Bright uses a proxy-specific extension code since IBM's own SA
// highlighting values (blink, reverse video, underscore) don't include an
// intensify code — a real 3270 signals that through the field attribute
// byte instead, which this proxy's field model does not carry per-run.
var highlightSAValue = map[compiler.Attr]byte{
	compiler.AttrBlink:     0xF1,
	compiler.AttrUnderline: 0xF4,
	compiler.AttrBright:    0xF8,
}

// selectColor returns the first color attribute present in attrs, if any.
func selectColor(attrs compiler.AttrSet) compiler.Attr {
	for _, a := range [...]compiler.Attr{
		compiler.AttrBlue, compiler.AttrRed, compiler.AttrPink,
		compiler.AttrGreen, compiler.AttrTurquoise, compiler.AttrYellow, compiler.AttrWhite,
	} {
		if attrs[a] {
			return a
		}
	}
	return compiler.AttrDefault
}

// selectHighlight returns the first highlight modifier present in attrs, if
// any; simultaneous highlight modifiers are not composed onto the wire
// since 3270's SA highlighting order only ever carries one active value.
func selectHighlight(attrs compiler.AttrSet) compiler.Attr {
	for _, a := range [...]compiler.Attr{compiler.AttrUnderline, compiler.AttrBlink, compiler.AttrBright} {
		if attrs[a] {
			return a
		}
	}
	return compiler.AttrDefault
}

// EncodeSA emits the SA order for the given attribute type and value.
func EncodeSA(attrType, value byte) []byte {
	return []byte{OrderSA, attrType, value}
}

// sba12 table maps a 6-bit value onto its 3270 code-page byte for 12-bit
// buffer addressing (used for screens of 4096 cells or fewer, which 80×24's
// 1920 cells comfortably satisfies).
var sba12 = [64]byte{
	0x40, 0xC1, 0xC2, 0xC3, 0xC4, 0xC5, 0xC6, 0xC7,
	0xC8, 0xC9, 0x4A, 0x4B, 0x4C, 0x4D, 0x4E, 0x4F,
	0x50, 0xD1, 0xD2, 0xD3, 0xD4, 0xD5, 0xD6, 0xD7,
	0xD8, 0xD9, 0x5A, 0x5B, 0x5C, 0x5D, 0x5E, 0x5F,
	0x60, 0x61, 0xE2, 0xE3, 0xE4, 0xE5, 0xE6, 0xE7,
	0xE8, 0xE9, 0x6A, 0x6B, 0x6C, 0x6D, 0x6E, 0x6F,
	0xF0, 0xF1, 0xF2, 0xF3, 0xF4, 0xF5, 0xF6, 0xF7,
	0xF8, 0xF9, 0x7A, 0x7B, 0x7C, 0x7D, 0x7E, 0x7F,
}

// EncodeAddress12 encodes a 0-based cell address into the 3270 12-bit
// addressing scheme (two code-page bytes), the addressing mode used for
// this proxy's fixed 80×24 (1920-cell) screens.
func EncodeAddress12(address int) [2]byte {
	hi := (address >> 6) & 0x3F
	lo := address & 0x3F
	return [2]byte{sba12[hi], sba12[lo]}
}

// AttrByte composes a 3270 field attribute byte from protected/numeric
// flags; this proxy does not model the full extended-attribute set, only
// the bits the Field Manager's rules require.
func AttrByte(protected, numeric, hidden bool) byte {
	var b byte = 0x40 // base: unprotected, alphanumeric, normal intensity
	if protected {
		b |= 0x20
	}
	if numeric {
		b |= 0x10
	}
	if hidden {
		b |= 0x0C // non-display
	}
	return b
}

// EncodeSBA emits the SBA order plus its address bytes for cell address.
func EncodeSBA(address int) []byte {
	addr := EncodeAddress12(address)
	return []byte{OrderSBA, addr[0], addr[1]}
}

// EncodeSF emits the SF order plus its attribute byte.
func EncodeSF(attr byte) []byte {
	return []byte{OrderSF, attr}
}
