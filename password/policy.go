package password

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SpecialChars is the fixed set a password must draw from when
// Policy.RequireSpecialChars is set.
const SpecialChars = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?`~"

// Policy describes password strength rules. It is read-only input to
// [Validate].
type Policy struct {
	MinLength           int
	MaxLength           int
	RequireUppercase    bool
	RequireLowercase    bool
	RequireNumbers      bool
	RequireSpecialChars bool
	ForbiddenPatterns   []string
}

// DefaultPolicy returns the policy used when a caller supplies none.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:           8,
		MaxLength:           128,
		RequireUppercase:    true,
		RequireLowercase:    true,
		RequireNumbers:      true,
		RequireSpecialChars: true,
		ForbiddenPatterns:   []string{"password", "123456", "qwerty", "letmein"},
	}
}

// IsZero reports whether p has no rules at all.
func (p Policy) IsZero() bool {
	return p.MinLength == 0 && p.MaxLength == 0 &&
		!p.RequireUppercase && !p.RequireLowercase &&
		!p.RequireNumbers && !p.RequireSpecialChars &&
		len(p.ForbiddenPatterns) == 0
}

// ValidationResult is the outcome of [Validate].
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Err returns nil for a valid result, otherwise ErrPasswordPolicy carrying
// the joined messages.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrPasswordPolicy, strings.Join(r.Errors, "; "))
}

// Validate checks password against every rule in policy and collects one
// message per violated rule. It never stops at the first violation.
func Validate(password string, policy Policy) ValidationResult {
	errs := make([]string, 0, 4)

	length := utf8.RuneCountInString(password)
	if policy.MinLength > 0 && length < policy.MinLength {
		errs = append(errs, fmt.Sprintf("Password must be at least %d characters long", policy.MinLength))
	}
	if policy.MaxLength > 0 && length > policy.MaxLength {
		errs = append(errs, fmt.Sprintf("Password must be no more than %d characters long", policy.MaxLength))
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
		if strings.ContainsRune(SpecialChars, r) {
			hasSpecial = true
		}
	}

	if policy.RequireUppercase && !hasUpper {
		errs = append(errs, "Password must contain at least one uppercase letter")
	}
	if policy.RequireLowercase && !hasLower {
		errs = append(errs, "Password must contain at least one lowercase letter")
	}
	if policy.RequireNumbers && !hasDigit {
		errs = append(errs, "Password must contain at least one number")
	}
	if policy.RequireSpecialChars && !hasSpecial {
		errs = append(errs, "Password must contain at least one special character")
	}

	lowered := strings.ToLower(password)
	for _, pattern := range policy.ForbiddenPatterns {
		if pattern == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(pattern)) {
			errs = append(errs, fmt.Sprintf("Password cannot contain common patterns like %q", pattern))
		}
	}

	return ValidationResult{
		Valid:  len(errs) == 0,
		Errors: errs,
	}
}
