package compiler

import (
	"fmt"

	"github.com/neo6systems/neo6/internal/neo6err"
)

// unbalancedTagErr builds a TEMPLATE_UNBALANCED_TAG error citing both the
// tag that was opened and the tag whose close attempt failed to match it.
func unbalancedTagErr(opened, closing string) *neo6err.Error {
	return neo6err.New(neo6err.TemplateUnbalancedTag,
		fmt.Sprintf("unbalanced tag: opened %q, attempted close %q", opened, closing))
}

func positionOutOfRangeErr(row, col int) *neo6err.Error {
	return neo6err.New(neo6err.TemplatePositionOutOfRange,
		fmt.Sprintf("position (%d,%d) out of range 1..24 x 1..80", row, col))
}

func fieldsOverlapErr(a, b string) *neo6err.Error {
	return neo6err.New(neo6err.TemplateFieldsOverlap,
		fmt.Sprintf("fields %q and %q overlap", a, b))
}
