package compiler

import (
	"testing"

	"github.com/neo6systems/neo6/internal/neo6err"
)

func TestCompileV2BasicField(t *testing.T) {
	prog, err := Compile("[XY1,1]Account:[FIELD account_id,length=10][/FIELD]", nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	f, ok := prog.FieldByName("account_id")
	if !ok {
		t.Fatal("expected account_id field to be indexed")
	}
	if f.Length != 10 {
		t.Errorf("Length = %d, want 10", f.Length)
	}
	if f.StartRow != 1 || f.StartCol != 9 {
		t.Errorf("start = (%d,%d), want (1,9) after \"Account:\" (8 chars)", f.StartRow, f.StartCol)
	}
}

func TestCompileFieldAttributes(t *testing.T) {
	prog, err := Compile("[FIELD amount,length=6,numeric,protected][/FIELD]", nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	f, _ := prog.FieldByName("amount")
	if !f.Numeric || !f.Protected {
		t.Errorf("unexpected flags: %+v", f)
	}
}

func TestCompileVarSubstitution(t *testing.T) {
	prog, err := Compile("[XY1,1]User: {user_id}", Vars{"user_id": "ALICE"})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(prog.Ops) == 0 || string(prog.Ops[len(prog.Ops)-1].Text) != "User: ALICE" {
		t.Errorf("expected substituted text, got ops: %+v", prog.Ops)
	}
}

func TestCompileUnknownVarLeftLiteral(t *testing.T) {
	prog, err := Compile("[XY1,1]{does_not_exist}", nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if string(prog.Ops[len(prog.Ops)-1].Text) != "{does_not_exist}" {
		t.Errorf("expected unknown var to pass through literally, got %q", prog.Ops[len(prog.Ops)-1].Text)
	}
}

func TestCompileUnbalancedAttrTag(t *testing.T) {
	_, err := Compile("[RED]hello[/BLUE]", nil)
	if err == nil {
		t.Fatal("expected unbalanced tag error")
	}
	if got := errKind(err); got != "TEMPLATE_UNBALANCED_TAG" {
		t.Errorf("error kind = %q, want TEMPLATE_UNBALANCED_TAG", got)
	}
}

func TestCompileUnbalancedTagAtEOF(t *testing.T) {
	_, err := Compile("[RED]hello", nil)
	if err == nil {
		t.Fatal("expected unbalanced tag error for unclosed attribute at eof")
	}
}

func TestCompileNestedFieldRejected(t *testing.T) {
	_, err := Compile("[FIELD a,length=5][FIELD b,length=5]", nil)
	if err == nil {
		t.Fatal("expected error for a field opened while another is still open")
	}
}

func TestCompileUnclosedFieldAtEOF(t *testing.T) {
	_, err := Compile("[FIELD a,length=5]", nil)
	if err == nil {
		t.Fatal("expected error for a field never closed")
	}
}

func TestCompilePositionOutOfRange(t *testing.T) {
	_, err := Compile("[XY25,1]text", nil)
	if err == nil {
		t.Fatal("expected position-out-of-range error for row 25")
	}
	if got := errKind(err); got != "TEMPLATE_POSITION_OUT_OF_RANGE" {
		t.Errorf("error kind = %q, want TEMPLATE_POSITION_OUT_OF_RANGE", got)
	}
}

func TestCompileOverlappingFieldsRejected(t *testing.T) {
	_, err := Compile("[XY1,1][FIELD a,length=10][/FIELD][XY1,5][FIELD b,length=10][/FIELD]", nil)
	if err == nil {
		t.Fatal("expected overlapping-fields error")
	}
	if got := errKind(err); got != "TEMPLATE_FIELDS_OVERLAP" {
		t.Errorf("error kind = %q, want TEMPLATE_FIELDS_OVERLAP", got)
	}
}

func TestCompileAdjacentFieldsDoNotOverlap(t *testing.T) {
	_, err := Compile("[XY1,1][FIELD a,length=5][/FIELD][XY1,7][FIELD b,length=5][/FIELD]", nil)
	if err != nil {
		t.Fatalf("expected adjacent fields to be accepted, got %v", err)
	}
}

func TestCompileV1Syntax(t *testing.T) {
	prog, err := Compile("<pos:1,1><RED>Balance</RED><FIELD balance,length=12></FIELD>", nil)
	if err != nil {
		t.Fatalf("Compile v1: %v", err)
	}
	f, ok := prog.FieldByName("balance")
	if !ok || f.Length != 12 {
		t.Errorf("unexpected field: %+v ok=%v", f, ok)
	}
}

func TestCompileV1LiteralLessThanOutsideRecognizedTag(t *testing.T) {
	prog, err := Compile("[XY1,1]a < b", nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if string(prog.Ops[len(prog.Ops)-1].Text) != "a < b" {
		t.Errorf("expected literal '<' to pass through, got %q", prog.Ops[len(prog.Ops)-1].Text)
	}
}

func TestCompileMixedV1V2Rejected(t *testing.T) {
	_, err := Compile("<pos:1,1>[FIELD a,length=5]", nil)
	if err == nil {
		t.Fatal("expected error when v1 and v2 syntax are mixed")
	}
}

func TestCompileUnknownAttributeTag(t *testing.T) {
	_, err := Compile("[MAGENTA]text[/MAGENTA]", nil)
	if err == nil {
		t.Fatal("expected error for unrecognized attribute tag")
	}
}

func TestCompileAttrTagComposesOntoTextOp(t *testing.T) {
	prog, err := Compile("[YELLOW][BRIGHT]Balance[/BRIGHT][/YELLOW]", nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	var textOp *Op
	for i := range prog.Ops {
		if prog.Ops[i].Kind == OpText {
			textOp = &prog.Ops[i]
		}
	}
	if textOp == nil {
		t.Fatal("expected an OpText op")
	}
	if !textOp.Attrs[AttrYellow] || !textOp.Attrs[AttrBright] {
		t.Errorf("Attrs = %+v, want both YELLOW and BRIGHT set", textOp.Attrs)
	}
}

func TestCompileNestedAttrTagsUnwindIndependently(t *testing.T) {
	prog, err := Compile("[RED]a[BLINK]b[/BLINK]c[/RED]", nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	var seenPlainRed, seenRedBlink bool
	for _, op := range prog.Ops {
		if op.Kind != OpText {
			continue
		}
		switch string(op.Text) {
		case "a", "c":
			if op.Attrs[AttrRed] && !op.Attrs[AttrBlink] {
				seenPlainRed = true
			}
		case "b":
			if op.Attrs[AttrRed] && op.Attrs[AttrBlink] {
				seenRedBlink = true
			}
		}
	}
	if !seenPlainRed || !seenRedBlink {
		t.Errorf("expected 'a'/'c' to carry only RED and 'b' to carry RED+BLINK")
	}
}

func errKind(err error) string {
	if e := neo6err.As(err); e != nil {
		return e.Kind.Code()
	}
	return ""
}
