package armbackend

import (
	"strings"
	"testing"
)

func TestDiagnosticErrorMessages(t *testing.T) {
	cases := []struct {
		diag Diagnostic
		want string
	}{
		{Diagnostic{Kind: DiagNonPICRelocation, RelType: R_ARM_ABS32, Symbol: "foo"}, "non_pic_relocation"},
		{Diagnostic{Kind: DiagBaseRelocation, RelType: R_ARM_BASE_PREL, Symbol: "bar"}, "base_relocation"},
		{Diagnostic{Kind: DiagDynamicRelocation, RelType: R_ARM_COPY}, "dynamic_relocation"},
		{Diagnostic{Kind: DiagUndefinedReference, Symbol: "baz"}, "undefined_reference"},
		{Diagnostic{Kind: DiagUnrecognizedOutputSection, Section: ".weird"}, "unrecognized_output_section"},
	}

	for _, c := range cases {
		msg := c.diag.Error()
		if !strings.Contains(msg, c.want) {
			t.Errorf("Error() = %q, want it to contain %q", msg, c.want)
		}
	}
}

func TestDiagnosticIncludesSymbolName(t *testing.T) {
	d := Diagnostic{Kind: DiagNonPICRelocation, RelType: R_ARM_ABS16, Symbol: "some_global"}
	if !strings.Contains(d.Error(), "some_global") {
		t.Fatalf("Error() = %q, must name the offending symbol", d.Error())
	}
}
