package validate

import (
	"testing"

	"github.com/neo6systems/neo6/internal/neo6err"
	"github.com/neo6systems/neo6/internal/txregistry"
)

func descriptor(specs ...txregistry.ParameterSpec) txregistry.Descriptor {
	return txregistry.Descriptor{Id: "TEST", Protocol: "rest", Endpoint: "/test", Parameters: specs}
}

func TestValidateMissingRequired(t *testing.T) {
	desc := descriptor(txregistry.ParameterSpec{Name: "account_id", Type: txregistry.TypeString, Required: true})
	_, err := Validate(desc, Params{})
	if err == nil {
		t.Fatal("expected error for missing required parameter")
	}
	if err.Kind != neo6err.ParamsInvalid || err.Field != "account_id" {
		t.Errorf("unexpected error: %+v", err)
	}
}

func TestValidateAppliesDefault(t *testing.T) {
	desc := descriptor(txregistry.ParameterSpec{Name: "currency", Type: txregistry.TypeString, Default: "USD"})
	out, err := Validate(desc, Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["currency"] != "USD" {
		t.Errorf("currency = %v, want default USD", out["currency"])
	}
}

func TestValidateTypeMismatch(t *testing.T) {
	desc := descriptor(txregistry.ParameterSpec{Name: "amount", Type: txregistry.TypeInt, Required: true})
	_, err := Validate(desc, Params{"amount": "not-a-number"})
	if err == nil || err.Kind != neo6err.ParamsInvalid {
		t.Fatalf("expected ParamsInvalid, got %v", err)
	}
}

func TestValidateIntRejectsFractional(t *testing.T) {
	desc := descriptor(txregistry.ParameterSpec{Name: "count", Type: txregistry.TypeInt, Required: true})
	_, err := Validate(desc, Params{"count": 1.5})
	if err == nil {
		t.Fatal("expected error for fractional int")
	}
}

func TestValidateMaxLength(t *testing.T) {
	desc := descriptor(txregistry.ParameterSpec{Name: "note", Type: txregistry.TypeString, MaxLength: 3})
	_, err := Validate(desc, Params{"note": "toolong"})
	if err == nil {
		t.Fatal("expected max_length violation")
	}
}

func TestValidatePattern(t *testing.T) {
	desc := descriptor(txregistry.ParameterSpec{Name: "account_id", Type: txregistry.TypeString, Pattern: `[0-9]{4}`})
	if _, err := Validate(desc, Params{"account_id": "1234"}); err != nil {
		t.Fatalf("expected pattern match to pass, got %v", err)
	}
	if _, err := Validate(desc, Params{"account_id": "abcd"}); err == nil {
		t.Fatal("expected pattern mismatch to fail")
	}
}

func TestValidatePatternIsAnchored(t *testing.T) {
	desc := descriptor(txregistry.ParameterSpec{Name: "account_id", Type: txregistry.TypeString, Pattern: `[0-9]{4}`})
	if _, err := Validate(desc, Params{"account_id": "x1234x"}); err == nil {
		t.Fatal("expected pattern to be implicitly anchored at both ends")
	}
}

func TestValidateMinMax(t *testing.T) {
	min, max := 1.0, 10.0
	desc := descriptor(txregistry.ParameterSpec{Name: "qty", Type: txregistry.TypeFloat, Min: &min, Max: &max})
	if _, err := Validate(desc, Params{"qty": 0.5}); err == nil {
		t.Fatal("expected below-min error")
	}
	if _, err := Validate(desc, Params{"qty": 10.5}); err == nil {
		t.Fatal("expected above-max error")
	}
	if _, err := Validate(desc, Params{"qty": 5.0}); err != nil {
		t.Fatalf("expected in-range value to pass, got %v", err)
	}
}

func TestValidateStrictModeRejectsUnknown(t *testing.T) {
	desc := descriptor(txregistry.ParameterSpec{Name: "account_id", Type: txregistry.TypeString})
	_, err := Validate(desc, Params{"account_id": "1234", "extra": "nope"})
	if err == nil {
		t.Fatal("expected unknown parameter to be rejected in strict mode")
	}
}

func TestValidateAllowExtrasPassesThrough(t *testing.T) {
	desc := txregistry.Descriptor{
		Id:          "TEST",
		AllowExtras: true,
		Parameters:  []txregistry.ParameterSpec{{Name: "account_id", Type: txregistry.TypeString}},
	}
	out, err := Validate(desc, Params{"account_id": "1234", "extra": "kept"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["extra"] != "kept" {
		t.Errorf("expected extra field to pass through, got %v", out["extra"])
	}
}

func TestValidateObjectAcceptsAnyTree(t *testing.T) {
	desc := descriptor(txregistry.ParameterSpec{Name: "payload", Type: txregistry.TypeObject, Required: true})
	out, err := Validate(desc, Params{"payload": map[string]any{"nested": true}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := out["payload"].(map[string]any); !ok {
		t.Errorf("expected payload to pass through unchanged")
	}
}

func TestValidateUnknownParameterType(t *testing.T) {
	desc := descriptor(txregistry.ParameterSpec{Name: "weird", Type: "mystery", Required: true})
	if _, err := Validate(desc, Params{"weird": "x"}); err == nil {
		t.Fatal("expected error for unknown parameter type")
	}
}
