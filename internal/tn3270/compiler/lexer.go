package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokText tokenKind = iota
	tokPosX
	tokPosY
	tokPosXY
	tokOpenAttr
	tokCloseAttr
	tokFieldOpen
	tokFieldClose
)

type token struct {
	kind tokenKind
	text string
	row  int
	col  int
	decl FieldDecl
}

var attrNames = map[string]Attr{
	"DEFAULT":   AttrDefault,
	"BLUE":      AttrBlue,
	"RED":       AttrRed,
	"PINK":      AttrPink,
	"GREEN":     AttrGreen,
	"TURQUOISE": AttrTurquoise,
	"YELLOW":    AttrYellow,
	"WHITE":     AttrWhite,
	"BRIGHT":    AttrBright,
	"BLINK":     AttrBlink,
	"UNDERLINE": AttrUnderline,
}

// lex tokenizes a v2-syntax template (after variable substitution and the
// v1 pre-pass, if any) into the flat token stream the parser consumes.
func lex(src string) ([]token, error) {
	var toks []token
	var textBuf strings.Builder
	flushText := func() {
		if textBuf.Len() > 0 {
			toks = append(toks, token{kind: tokText, text: textBuf.String()})
			textBuf.Reset()
		}
	}

	i := 0
	n := len(src)
	for i < n {
		c := src[i]
		if c != '[' {
			textBuf.WriteByte(c)
			i++
			continue
		}
		end := strings.IndexByte(src[i:], ']')
		if end < 0 {
			return nil, fmt.Errorf("compiler: unterminated tag starting at byte %d", i)
		}
		tagBody := src[i+1 : i+end]
		i += end + 1

		tok, err := lexTag(tagBody)
		if err != nil {
			return nil, err
		}
		flushText()
		toks = append(toks, tok)
	}
	flushText()
	return toks, nil
}

func lexTag(body string) (token, error) {
	if name := strings.TrimSpace(body); name != "" {
		if _, ok := attrNames[name]; ok {
			return token{kind: tokOpenAttr, text: name}, nil
		}
	}
	switch {
	case strings.HasPrefix(body, "XY"):
		row, col, err := parseXY(body[2:])
		if err != nil {
			return token{}, err
		}
		return token{kind: tokPosXY, row: row, col: col}, nil
	case strings.HasPrefix(body, "X"):
		col, err := strconv.Atoi(body[1:])
		if err != nil {
			return token{}, fmt.Errorf("compiler: invalid [X] position: %q", body)
		}
		return token{kind: tokPosX, col: col}, nil
	case strings.HasPrefix(body, "Y"):
		row, err := strconv.Atoi(body[1:])
		if err != nil {
			return token{}, fmt.Errorf("compiler: invalid [Y] position: %q", body)
		}
		return token{kind: tokPosY, row: row}, nil
	case strings.HasPrefix(body, "/FIELD"):
		return token{kind: tokFieldClose}, nil
	case strings.HasPrefix(body, "FIELD "), strings.HasPrefix(body, "FIELD\t"):
		decl, err := parseFieldDecl(strings.TrimSpace(body[len("FIELD"):]))
		if err != nil {
			return token{}, err
		}
		return token{kind: tokFieldOpen, decl: decl}, nil
	case strings.HasPrefix(body, "/"):
		name := strings.TrimSpace(body[1:])
		if _, ok := attrNames[name]; !ok {
			return token{}, fmt.Errorf("compiler: unknown attribute tag %q", name)
		}
		return token{kind: tokCloseAttr, text: name}, nil
	default:
		name := strings.TrimSpace(body)
		if _, ok := attrNames[name]; !ok {
			return token{}, fmt.Errorf("compiler: unknown attribute tag %q", name)
		}
		return token{kind: tokOpenAttr, text: name}, nil
	}
}

func parseXY(body string) (row, col int, err error) {
	parts := strings.SplitN(body, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("compiler: invalid [XY] position: %q", body)
	}
	row, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("compiler: invalid [XY] row: %q", parts[0])
	}
	col, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("compiler: invalid [XY] col: %q", parts[1])
	}
	return row, col, nil
}

func parseFieldDecl(body string) (FieldDecl, error) {
	parts := strings.Split(body, ",")
	if len(parts) == 0 || strings.TrimSpace(parts[0]) == "" {
		return FieldDecl{}, fmt.Errorf("compiler: field declaration missing name")
	}
	decl := FieldDecl{Name: strings.TrimSpace(parts[0])}
	for _, attr := range parts[1:] {
		attr = strings.TrimSpace(attr)
		switch {
		case strings.HasPrefix(attr, "length="):
			l, err := strconv.Atoi(strings.TrimPrefix(attr, "length="))
			if err != nil {
				return FieldDecl{}, fmt.Errorf("compiler: invalid field length: %q", attr)
			}
			decl.Length = l
		case attr == "hidden":
			decl.Hidden = true
		case attr == "numeric":
			decl.Numeric = true
		case attr == "uppercase":
			decl.Uppercase = true
		case attr == "protected":
			decl.Protected = true
		case attr == "":
			// tolerate trailing comma
		default:
			return FieldDecl{}, fmt.Errorf("compiler: unknown field attribute: %q", attr)
		}
	}
	return decl, nil
}
