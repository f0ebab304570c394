package validation

// ValidatePIN validates an optional numeric quick-login PIN:
// 4 to 12 digits.
func ValidatePIN(pin string) error {
	if len(pin) < 4 || len(pin) > 12 {
		return Error("pin must be 4 to 12 digits")
	}

	for _, r := range pin {
		if r < '0' || r > '9' {
			return Error("pin must contain only digits")
		}
	}

	return nil
}
