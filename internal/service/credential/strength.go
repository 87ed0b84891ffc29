package credential

import (
	"unicode"
)

// Score rates a password from 0 to 100
// Purely informational, stored next to the credential for the UI meter
func Score(password string) int {
	if password == "" {
		return 0
	}

	var hasLower, hasUpper, hasDigit, hasOther bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasOther = true
		}
	}

	score := len(password) * 4
	for _, ok := range []bool{hasLower, hasUpper, hasDigit, hasOther} {
		if ok {
			score += 10
		}
	}

	if score > 100 {
		score = 100
	}
	return score
}
