// Package validate implements the Parameter Validator (§4.4): required
// checks, type checks, constraint application and strict-mode extras
// rejection over a Transaction Descriptor's parameter tree.
package validate

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/neo6systems/neo6/internal/neo6err"
	"github.com/neo6systems/neo6/internal/txregistry"
)

// patternCache avoids recompiling the same regexp on every invocation; the
// registry is read-mostly so the working set of patterns is small and
// stable between reloads.
var patternCache sync.Map // map[string]*regexp.Regexp

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if v, ok := patternCache.Load(pattern); ok {
		return v.(*regexp.Regexp), nil
	}
	// pattern is anchored implicitly at both ends per §4.4.
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, err
	}
	patternCache.Store(pattern, re)
	return re, nil
}

// Params is the mutable parameter tree the validator normalizes in place:
// defaults get injected, unknown keys get rejected in strict mode.
type Params map[string]any

// Validate runs the five-step algorithm from §4.4 against desc and returns
// the normalized parameter tree, or a *neo6err.Error with Kind ParamsInvalid
// and the offending Field populated.
func Validate(desc txregistry.Descriptor, in Params) (Params, *neo6err.Error) {
	if in == nil {
		in = Params{}
	}
	out := Params{}
	known := make(map[string]struct{}, len(desc.Parameters))

	for _, spec := range desc.Parameters {
		known[spec.Name] = struct{}{}
		val, present := in[spec.Name]

		if !present {
			if spec.Required {
				return nil, neo6err.New(neo6err.ParamsInvalid, "missing required parameter").WithField(spec.Name)
			}
			if spec.Default != nil {
				out[spec.Name] = spec.Default
			}
			continue
		}

		if err := checkType(spec, val); err != nil {
			return nil, err
		}

		if err := applyConstraints(spec, &val); err != nil {
			return nil, err
		}

		out[spec.Name] = val
	}

	if !desc.AllowExtras {
		for k := range in {
			if _, ok := known[k]; !ok {
				return nil, neo6err.New(neo6err.ParamsInvalid, "unknown parameter").WithField(k)
			}
		}
	} else {
		for k, v := range in {
			if _, ok := known[k]; !ok {
				out[k] = v
			}
		}
	}

	return out, nil
}

func checkType(spec txregistry.ParameterSpec, val any) *neo6err.Error {
	mismatch := func() *neo6err.Error {
		return neo6err.New(neo6err.ParamsInvalid, fmt.Sprintf("expected type %s", spec.Type)).WithField(spec.Name)
	}
	switch spec.Type {
	case txregistry.TypeString:
		if _, ok := val.(string); !ok {
			return mismatch()
		}
	case txregistry.TypeBool:
		if _, ok := val.(bool); !ok {
			return mismatch()
		}
	case txregistry.TypeInt:
		f, ok := asFloat(val)
		if !ok || f != float64(int64(f)) {
			return mismatch()
		}
	case txregistry.TypeFloat, txregistry.TypeDecimal:
		if _, ok := asFloat(val); !ok {
			return mismatch()
		}
	case txregistry.TypeObject:
		// object-typed parameters accept any tree.
	default:
		return neo6err.New(neo6err.ParamsInvalid, "unknown parameter type").WithField(spec.Name)
	}
	return nil
}

func applyConstraints(spec txregistry.ParameterSpec, val *any) *neo6err.Error {
	if spec.MaxLength > 0 {
		if s, ok := (*val).(string); ok && len(s) > spec.MaxLength {
			return neo6err.New(neo6err.ParamsInvalid, "exceeds max_length").WithField(spec.Name)
		}
	}
	if spec.Pattern != "" {
		s, ok := (*val).(string)
		if !ok {
			return neo6err.New(neo6err.ParamsInvalid, "pattern constraint requires a string").WithField(spec.Name)
		}
		re, err := compilePattern(spec.Pattern)
		if err != nil {
			return neo6err.New(neo6err.ParamsInvalid, "invalid pattern constraint").WithField(spec.Name)
		}
		if !re.MatchString(s) {
			return neo6err.New(neo6err.ParamsInvalid, "does not match pattern").WithField(spec.Name)
		}
	}
	if spec.Min != nil || spec.Max != nil {
		f, ok := asFloat(*val)
		if !ok {
			return neo6err.New(neo6err.ParamsInvalid, "min/max constraint requires a numeric value").WithField(spec.Name)
		}
		if spec.Min != nil && f < *spec.Min {
			return neo6err.New(neo6err.ParamsInvalid, "below min").WithField(spec.Name)
		}
		if spec.Max != nil && f > *spec.Max {
			return neo6err.New(neo6err.ParamsInvalid, "above max").WithField(spec.Name)
		}
	}
	return nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
