// Package otp generates one-time login codes and normalizes the mobile
// numbers they are delivered to.
package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
)

// FixedCode is returned outside production so staging and local logins
// stay reproducible without a live SMS gateway.
const FixedCode = "12345"

// ErrInvalidMobile is returned when a mobile number fails production
// validation.
var ErrInvalidMobile = errors.New("invalid mobile number, it must start with 05 and be 10 digits long")

// mobile numbers are accepted as local Saudi numbers: 05 followed by 8 digits
var mobilePattern = regexp.MustCompile(`^05\d{8}$`)

// Generate returns a one-time code. In production it is a uniformly random
// 6-digit decimal in [100000, 999999]; otherwise the fixed code.
func Generate(production bool) string {
	if !production {
		return FixedCode
	}
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// without randomness we cannot mint codes at all.
		panic(fmt.Sprintf("otp: read random: %v", err))
	}
	return fmt.Sprintf("%d", n.Int64()+100000)
}

// NormalizeMobile validates a raw mobile number and rewrites it to the
// international form stored on the principal. In production the input must
// match 05xxxxxxxx and the leading 0 is replaced with the 966 country code.
// Outside production the input passes through unchanged.
func NormalizeMobile(raw string, production bool) (string, error) {
	if !production {
		return raw, nil
	}
	if !mobilePattern.MatchString(raw) {
		return "", ErrInvalidMobile
	}
	return "966" + raw[1:], nil
}
