package domain

import "regexp"

// User is an account record. The password is stored only as a bcrypt hash and
// never serialized.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash []byte `json:"-"`
}

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// ValidEmail reports whether the address looks like an email. The check is
// deliberately loose; deliverability is not in scope.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
