package compiler

import (
	"fmt"
	"regexp"
	"sort"
)

const (
	Rows = 24
	Cols = 80
)

// Vars is the variable substitution table consulted before lexing: the
// standard names (timestamp, terminal_type, user_id, session_id,
// system_date, system_time) plus any caller-supplied extras.
type Vars map[string]string

var varPattern = regexp.MustCompile(`\{[A-Za-z_][A-Za-z0-9_]*\}`)

// substitute replaces every {ident} occurrence found in vars; unknown
// variables are left as literal text, per §4.7 step 1.
func substitute(src string, vars Vars) string {
	return varPattern.ReplaceAllStringFunc(src, func(m string) string {
		name := m[1 : len(m)-1]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}

var (
	v1PosPattern   = regexp.MustCompile(`<pos:(\d+),(\d+)>`)
	v1OpenPattern  = regexp.MustCompile(`<([A-Z]+)>`)
	v1ClosePattern = regexp.MustCompile(`</([A-Z]+)>`)
	v1FieldPattern = regexp.MustCompile(`<FIELD ([^>]+)>`)
)

func isV1Tag(name string) bool {
	if name == "FIELD" {
		return true
	}
	_, ok := attrNames[name]
	return ok
}

// looksLikeV1 reports whether src contains any recognized v1 markup.
func looksLikeV1(src string) bool {
	if v1PosPattern.MatchString(src) {
		return true
	}
	for _, m := range v1OpenPattern.FindAllStringSubmatch(src, -1) {
		if isV1Tag(m[1]) {
			return true
		}
	}
	return false
}

// looksLikeV2 reports whether src contains any recognized v2 bracket
// markup (a leading '[' followed by a plausible tag body).
var v2Pattern = regexp.MustCompile(`\[(X\d|Y\d|XY\d|/?[A-Z]+|/?FIELD)`)

func looksLikeV2(src string) bool {
	return v2Pattern.MatchString(src)
}

// preprocessV1 rewrites recognized v1 <tag> markup into v2 bracket markup.
// Text outside a recognized tag (including a literal '<') passes through
// unchanged — the Open Question in §9 resolves this conservatively.
func preprocessV1(src string) string {
	src = v1PosPattern.ReplaceAllString(src, "[XY$1,$2]")
	src = v1FieldPattern.ReplaceAllStringFunc(src, func(m string) string {
		sub := v1FieldPattern.FindStringSubmatch(m)
		return "[FIELD " + sub[1] + "]"
	})
	src = v1ClosePattern.ReplaceAllStringFunc(src, func(m string) string {
		sub := v1ClosePattern.FindStringSubmatch(m)
		if !isV1Tag(sub[1]) {
			return m
		}
		return "[/" + sub[1] + "]"
	})
	src = v1OpenPattern.ReplaceAllStringFunc(src, func(m string) string {
		sub := v1OpenPattern.FindStringSubmatch(m)
		if !isV1Tag(sub[1]) {
			return m
		}
		return "[" + sub[1] + "]"
	})
	return src
}

// Compile runs the single-pass compilation algorithm of §4.7 over template,
// substituting vars first.
func Compile(template string, vars Vars) (*Program, error) {
	src := substitute(template, vars)

	v1, v2 := looksLikeV1(src), looksLikeV2(src)
	if v1 && v2 {
		return nil, fmt.Errorf("compiler: v1 and v2 template syntax must not mix in a single file")
	}
	if v1 {
		src = preprocessV1(src)
	}

	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	return parse(toks)
}

type cursor struct{ row, col int }

func (c *cursor) advance(n int) {
	for i := 0; i < n; i++ {
		c.col++
		if c.col > Cols {
			c.col = 1
			c.row++
			if c.row > Rows {
				c.row = 1
			}
		}
	}
}

func cellIndex(row, col int) int { return (row-1)*Cols + (col - 1) }

func parse(toks []token) (*Program, error) {
	prog := &Program{}
	cur := cursor{row: 1, col: 1}

	var attrStack []string
	var inField bool
	var fieldDepthGuard []string // tracks open field name for balance checking
	var pendingField FieldDecl
	activeAttrs := func() AttrSet {
		set := AttrSet{}
		for _, name := range attrStack {
			set[attrNames[name]] = true
		}
		return set
	}

	for _, t := range toks {
		switch t.kind {
		case tokText:
			if err := checkPositionInBounds(cur.row, cur.col); err != nil {
				return nil, err
			}
			prog.Ops = append(prog.Ops, Op{Kind: OpText, Text: []byte(t.text), Attrs: activeAttrs()})
			cur.advance(len(t.text))

		case tokPosXY:
			if err := checkPositionInBounds(t.row, t.col); err != nil {
				return nil, err
			}
			cur = cursor{row: t.row, col: t.col}
			prog.Ops = append(prog.Ops, Op{Kind: OpMoveTo, Row: t.row, Col: t.col})

		case tokPosX:
			if err := checkPositionInBounds(cur.row, t.col); err != nil {
				return nil, err
			}
			cur.col = t.col
			prog.Ops = append(prog.Ops, Op{Kind: OpMoveCol, Col: t.col})

		case tokPosY:
			if err := checkPositionInBounds(t.row, cur.col); err != nil {
				return nil, err
			}
			cur.row = t.row
			prog.Ops = append(prog.Ops, Op{Kind: OpMoveRow, Row: t.row})

		case tokOpenAttr:
			attrStack = append(attrStack, t.text)
			prog.Ops = append(prog.Ops, Op{Kind: OpPushAttr, Attr: attrNames[t.text]})

		case tokCloseAttr:
			if len(attrStack) == 0 || attrStack[len(attrStack)-1] != t.text {
				opened := ""
				if len(attrStack) > 0 {
					opened = attrStack[len(attrStack)-1]
				}
				return nil, unbalancedTagErr(opened, t.text)
			}
			attrStack = attrStack[:len(attrStack)-1]
			prog.Ops = append(prog.Ops, Op{Kind: OpPopAttr, Attr: attrNames[t.text]})

		case tokFieldOpen:
			if inField {
				return nil, unbalancedTagErr(fieldDepthGuard[len(fieldDepthGuard)-1], t.decl.Name)
			}
			inField = true
			pendingField = t.decl
			fieldDepthGuard = append(fieldDepthGuard, t.decl.Name)

			entry := FieldEntry{
				Name: pendingField.Name, StartRow: cur.row, StartCol: cur.col,
				Length: pendingField.Length, Hidden: pendingField.Hidden,
				Numeric: pendingField.Numeric, Uppercase: pendingField.Uppercase,
				Protected: pendingField.Protected,
			}
			prog.Fields = append(prog.Fields, entry)
			prog.Ops = append(prog.Ops, Op{Kind: OpBeginField, Row: cur.row, Col: cur.col, Field: pendingField})
			cur.advance(1 + pendingField.Length)

		case tokFieldClose:
			if !inField {
				return nil, unbalancedTagErr("", "FIELD")
			}
			inField = false
			fieldDepthGuard = fieldDepthGuard[:len(fieldDepthGuard)-1]
			prog.Ops = append(prog.Ops, Op{Kind: OpEndField})
		}
	}

	if len(attrStack) > 0 {
		return nil, unbalancedTagErr(attrStack[len(attrStack)-1], "<eof>")
	}
	if inField {
		return nil, unbalancedTagErr(pendingField.Name, "<eof>")
	}

	if err := validateNoOverlap(prog.Fields); err != nil {
		return nil, err
	}
	return prog, nil
}

func checkPositionInBounds(row, col int) error {
	if row < 1 || row > Rows || col < 1 || col > Cols {
		return positionOutOfRangeErr(row, col)
	}
	return nil
}

func validateNoOverlap(fields []FieldEntry) error {
	sorted := make([]FieldEntry, len(fields))
	copy(sorted, fields)
	sort.Slice(sorted, func(i, j int) bool {
		return cellIndex(sorted[i].StartRow, sorted[i].StartCol) < cellIndex(sorted[j].StartRow, sorted[j].StartCol)
	})
	for i := 1; i < len(sorted); i++ {
		prev, next := sorted[i-1], sorted[i]
		prevAttrCell := cellIndex(prev.StartRow, prev.StartCol)
		prevContentEnd := prevAttrCell + prev.Length // inclusive last content cell
		nextAttrCell := cellIndex(next.StartRow, next.StartCol)
		if nextAttrCell <= prevContentEnd {
			return fieldsOverlapErr(prev.Name, next.Name)
		}
	}
	return nil
}
