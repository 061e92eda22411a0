package cardnum

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewPAN(t *testing.T) {
	for i := 0; i < 50; i++ {
		pan := NewPAN()
		assert.Len(t, pan, 16)
		assert.Equal(t, byte('4'), pan[0])
		assert.True(t, Valid(pan), pan)
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("4532015112830366")) // known Luhn-valid number
	assert.False(t, Valid("4532015112830367"))
	assert.False(t, Valid("453201511283036"))
	assert.False(t, Valid("4532o15112830366"))
	assert.False(t, Valid(""))
}

func TestNewCVV(t *testing.T) {
	cvv := NewCVV()
	assert.Len(t, cvv, 3)
	for i := 0; i < len(cvv); i++ {
		assert.GreaterOrEqual(t, cvv[i], byte('0'))
		assert.LessOrEqual(t, cvv[i], byte('9'))
	}
}

func TestNewExpiry(t *testing.T) {
	assert.Equal(t, "01/30", NewExpiry(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "12/29", NewExpiry(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)))
}

func TestNewOTP(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		otp := NewOTP()
		assert.Len(t, otp, 6)
		for j := 0; j < len(otp); j++ {
			assert.GreaterOrEqual(t, otp[j], byte('0'))
			assert.LessOrEqual(t, otp[j], byte('9'))
		}
		seen[otp] = true
	}
	// 20 draws from a million values collide essentially never
	assert.Greater(t, len(seen), 1)
}
