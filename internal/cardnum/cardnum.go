// Package cardnum generates simulated card credentials and one-time codes.
// Values are random but well-formed so downstream tooling treats them like
// real issuance data; nothing here belongs to a payment network.
package cardnum

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const panLength = 16

// NewPAN returns a 16-digit Luhn-valid card number.
func NewPAN() string {
	buf := make([]byte, panLength)
	buf[0] = '4' // simulated issuer range
	for i := 1; i < panLength-1; i++ {
		buf[i] = '0' + randDigit()
	}
	buf[panLength-1] = '0' + luhnCheckDigit(buf[:panLength-1])
	return string(buf)
}

// NewCVV returns a 3-digit verification code.
func NewCVV() string {
	return fmt.Sprintf("%c%c%c", '0'+randDigit(), '0'+randDigit(), '0'+randDigit())
}

// NewExpiry formats now+4 years as MM/YY.
func NewExpiry(now time.Time) string {
	exp := now.AddDate(4, 0, 0)
	return fmt.Sprintf("%02d/%02d", int(exp.Month()), exp.Year()%100)
}

// NewOTP returns a zero-padded 6-digit one-time code.
func NewOTP() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		panic(err) // crypto/rand failure is unrecoverable
	}
	return fmt.Sprintf("%06d", n.Int64())
}

// Valid reports whether s is a 16-digit Luhn-valid number.
func Valid(s string) bool {
	if len(s) != panLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return luhnCheckDigit([]byte(s[:panLength-1])) == s[panLength-1]-'0'
}

func randDigit() byte {
	n, err := rand.Int(rand.Reader, big.NewInt(10))
	if err != nil {
		panic(err)
	}
	return byte(n.Int64())
}

// luhnCheckDigit computes the digit that makes digits+check pass Luhn.
func luhnCheckDigit(digits []byte) byte {
	sum := 0
	double := true
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return byte((10 - sum%10) % 10)
}
