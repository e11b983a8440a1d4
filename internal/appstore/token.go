package appstore

import (
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenPattern matches the bearer token the app web page embeds in its
// percent-encoded environment config: "token":"<TOKEN>"}
var tokenPattern = regexp.MustCompile(`token%22%3A%22([^%]+)%22%7D`)

// ExtractToken returns the catalog API bearer token embedded in an app web
// page. It returns ErrTokenExtraction when the page does not contain one.
func ExtractToken(page []byte) (string, error) {
	m := tokenPattern.FindSubmatch(page)
	if m == nil || len(m[1]) == 0 {
		return "", ErrTokenExtraction
	}
	return string(m[1]), nil
}

// TokenExpiry reads the exp claim of a scraped token without verifying its
// signature. ok is false when the token is not a JWT or carries no exp.
func TokenExpiry(token string) (exp time.Time, ok bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	nd, err := parsed.Claims.GetExpirationTime()
	if err != nil || nd == nil {
		return time.Time{}, false
	}
	return nd.Time, true
}
