package core

import (
	"fmt"
	"regexp"
	"strings"
)

// CodeKind classifies a catalog code by its shape. Codes are the stable,
// user-visible identity of catalog rows; internal integer IDs never cross the
// package boundary.
type CodeKind string

const (
	KindCategory    CodeKind = "category"    // e.g. EL-01
	KindSubcategory CodeKind = "subcategory" // e.g. EL-01-A
	KindService     CodeKind = "service"     // e.g. EL-01-001
)

// The shape is <opaque-prefix>-<2-digit-number>[-<letter-or-3-digit-number>].
// The prefix is opaque: any alphanumeric run is accepted.
var (
	categoryCodeRe    = regexp.MustCompile(`^[A-Za-z0-9]+-\d{2}$`)
	subcategoryCodeRe = regexp.MustCompile(`^[A-Za-z0-9]+-\d{2}-[A-Za-z]$`)
	serviceCodeRe     = regexp.MustCompile(`^[A-Za-z0-9]+-\d{2}-\d{3}$`)
)

// ClassifyCode returns the kind of a catalog code, or ErrInvalidCode when the
// string matches none of the three shapes.
func ClassifyCode(code string) (CodeKind, error) {
	switch {
	case categoryCodeRe.MatchString(code):
		return KindCategory, nil
	case subcategoryCodeRe.MatchString(code):
		return KindSubcategory, nil
	case serviceCodeRe.MatchString(code):
		return KindService, nil
	}
	return "", fmt.Errorf("code %q: %w", code, ErrInvalidCode)
}

func validateCode(code string, want CodeKind) error {
	kind, err := ClassifyCode(code)
	if err != nil {
		return err
	}
	if kind != want {
		return fmt.Errorf("code %q is not a %s code: %w", code, want, ErrInvalidCode)
	}
	return nil
}

// validateChildCode checks that child begins with parent plus the separator.
func validateChildCode(child, parent string) error {
	if !strings.HasPrefix(child, parent+"-") {
		return fmt.Errorf("code %q does not begin with %q: %w", child, parent, ErrInvalidCodeHierarchy)
	}
	return nil
}
