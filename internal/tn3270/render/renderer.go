package render

import (
	"github.com/neo6systems/neo6/internal/tn3270/compiler"
)

const (
	Rows  = 24
	Cols  = 80
	Cells = Rows * Cols
)

// Cell is one 3270 buffer position: either plain character data or, for a
// field-start cell, the 3270 attribute byte (which renders blank). Color
// and Highlight carry the extended attributes active when the cell's
// character was drawn, compiler.AttrDefault meaning "none".
type Cell struct {
	Char       byte
	Attr       byte
	IsFieldTag bool
	Color      compiler.Attr
	Highlight  compiler.Attr
}

// Screen is the rendered 80×24 cell buffer (§3).
type Screen struct {
	Cells [Cells]Cell
}

func cellIndex(row, col int) int { return (row-1)*Cols + (col - 1) }

// Renderer executes a compiled program against a fresh Screen buffer.
type Renderer struct {
	SubstitutionWarnings int
}

// Render walks prog's draw ops, maintaining cursor and attribute stack
// state, and returns the resulting screen buffer plus the composed 3270
// data stream bytes (WCC + SBA/SF orders + character runs).
func (r *Renderer) Render(prog *compiler.Program) (*Screen, []byte) {
	screen := &Screen{}
	row, col := 1, 1
	lastColor := compiler.AttrDefault
	lastHighlight := compiler.AttrDefault

	var stream []byte
	stream = append(stream, 0xC3) // WCC: reset + unlock keyboard, conventional default

	advance := func(n int) {
		for i := 0; i < n; i++ {
			col++
			if col > Cols {
				col = 1
				row++
				if row > Rows {
					row = 1
				}
			}
		}
	}

	for _, op := range prog.Ops {
		switch op.Kind {
		case compiler.OpMoveTo:
			row, col = op.Row, op.Col
			stream = append(stream, EncodeSBA(cellIndex(row, col))...)
		case compiler.OpMoveCol:
			col = op.Col
			stream = append(stream, EncodeSBA(cellIndex(row, col))...)
		case compiler.OpMoveRow:
			row = op.Row
			stream = append(stream, EncodeSBA(cellIndex(row, col))...)
		case compiler.OpPushAttr, compiler.OpPopAttr:
			// attribute stack state lives in the compiler's emitted Attrs
			// per Text op; nothing to do at render time beyond passthrough.
		case compiler.OpText:
			color := selectColor(op.Attrs)
			highlight := selectHighlight(op.Attrs)
			if color != lastColor {
				value, ok := colorSAValue[color]
				if !ok {
					value = defaultColorSA
				}
				stream = append(stream, EncodeSA(saTypeColor, value)...)
				lastColor = color
			}
			if highlight != lastHighlight {
				value, ok := highlightSAValue[highlight]
				if !ok {
					value = defaultHighlightSA
				}
				stream = append(stream, EncodeSA(saTypeHighlight, value)...)
				lastHighlight = highlight
			}

			encoded, subs := ToCP037(op.Text)
			r.SubstitutionWarnings += subs
			for _, b := range encoded {
				idx := cellIndex(row, col)
				screen.Cells[idx] = Cell{Char: b, Color: color, Highlight: highlight}
				stream = append(stream, b)
				advance(1)
			}
		case compiler.OpBeginField:
			idx := cellIndex(row, col)
			attr := AttrByte(op.Field.Protected, op.Field.Numeric, op.Field.Hidden)
			screen.Cells[idx] = Cell{Attr: attr, IsFieldTag: true}
			stream = append(stream, EncodeSBA(idx)...)
			stream = append(stream, EncodeSF(attr)...)
			advance(1)
			for i := 0; i < op.Field.Length; i++ {
				fIdx := cellIndex(row, col)
				screen.Cells[fIdx] = Cell{Char: asciiToCP037[' ']}
				advance(1)
			}
		case compiler.OpEndField:
			// no buffer effect; marks the field scope boundary.
		}
	}

	return screen, stream
}
