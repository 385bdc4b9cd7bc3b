package core_test

import (
	"errors"
	"testing"

	"servicebook/internal/core"
)

func TestClassifyCode(t *testing.T) {
	tests := []struct {
		code      string
		want      core.CodeKind
		expectErr bool
	}{
		{code: "PLB-01", want: core.KindCategory},
		{code: "EL-99", want: core.KindCategory},
		{code: "2A-07", want: core.KindCategory},
		{code: "PLB-01-A", want: core.KindSubcategory},
		{code: "PLB-01-z", want: core.KindSubcategory},
		{code: "PLB-01-001", want: core.KindService},
		{code: "PLB-01-999", want: core.KindService},
		{code: "", expectErr: true},
		{code: "PLB", expectErr: true},
		{code: "PLB-1", expectErr: true},        // one-digit category number
		{code: "PLB-001", expectErr: true},      // three-digit category number
		{code: "PLB-01-", expectErr: true},      // trailing separator
		{code: "PLB-01-AB", expectErr: true},    // two-letter subcategory
		{code: "PLB-01-01", expectErr: true},    // two-digit service number
		{code: "PLB-01-0001", expectErr: true},  // four-digit service number
		{code: "PLB 01", expectErr: true},       // space instead of hyphen
		{code: "PLB-01-001-X", expectErr: true}, // extra segment
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := core.ClassifyCode(tt.code)
			if tt.expectErr {
				if !errors.Is(err, core.ErrInvalidCode) {
					t.Errorf("ClassifyCode(%q): expected ErrInvalidCode, got %v", tt.code, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ClassifyCode(%q) failed: %v", tt.code, err)
			}
			if got != tt.want {
				t.Errorf("ClassifyCode(%q) = %s, want %s", tt.code, got, tt.want)
			}
		})
	}
}
