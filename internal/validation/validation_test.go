package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("user@example.com"))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("not-an-email"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("sturdy-passphrase"))
	assert.Error(t, ValidatePassword("short"))
	assert.Error(t, ValidatePassword("password123"))
}

func TestValidatePIN(t *testing.T) {
	assert.NoError(t, ValidatePIN("1234"))
	assert.NoError(t, ValidatePIN("123456789012"))
	assert.Error(t, ValidatePIN("123"))
	assert.Error(t, ValidatePIN("1234567890123"))
	assert.Error(t, ValidatePIN("12ab"))
}
