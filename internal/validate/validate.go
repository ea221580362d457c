// Package validate holds the form rules shared by the web pages (checked
// before a request is sent) and the API (checked again on receipt).
package validate

import (
	"regexp"
	"strings"
)

const (
	MinPasswordLen = 8
	MaxUsernameLen = 80
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^\+?[\d\s-]{10,}$`)
)

// Errors maps a field name to its message. Empty means valid.
type Errors map[string]string

func (e Errors) OK() bool { return len(e) == 0 }

// First returns one message, for single-banner forms. Fields are checked in
// the given order.
func (e Errors) First(order ...string) string {
	for _, f := range order {
		if m, ok := e[f]; ok {
			return m
		}
	}
	for _, m := range e {
		return m
	}
	return ""
}

func Username(errs Errors, username string) {
	switch u := strings.TrimSpace(username); {
	case u == "":
		errs["username"] = "Username is required"
	case len(u) > MaxUsernameLen:
		errs["username"] = "Username must be less than 80 characters"
	}
}

// Password checks a new password. confirm is compared only when non-nil.
func Password(errs Errors, password string, confirm *string) {
	switch {
	case password == "":
		errs["password"] = "Password is required"
	case len(password) < MinPasswordLen:
		errs["password"] = "Password must be at least 8 characters"
	}
	if confirm != nil && *confirm != password {
		errs["confirm_password"] = "Passwords do not match"
	}
}

// OptionalPassword accepts an empty password (keep the current one).
func OptionalPassword(errs Errors, password, confirm string) {
	if password == "" && confirm == "" {
		return
	}
	Password(errs, password, &confirm)
}

func Role(errs Errors, role string) {
	if role != "admin" && role != "staff" {
		errs["role"] = "Role must be admin or staff"
	}
}

// Signup holds the business signup form.
type Signup struct {
	BusinessName    string
	BusinessAddress string
	BusinessPhone   string
	BusinessEmail   string
	Username        string
	Password        string
	ConfirmPassword *string
}

func (s Signup) Validate() Errors {
	errs := Errors{}
	if strings.TrimSpace(s.BusinessName) == "" {
		errs["business_name"] = "Business name is required"
	}
	if s.BusinessEmail != "" && !emailRe.MatchString(s.BusinessEmail) {
		errs["business_email"] = "Invalid email format"
	}
	if s.BusinessPhone != "" && !phoneRe.MatchString(s.BusinessPhone) {
		errs["business_phone"] = "Invalid phone format"
	}
	Username(errs, s.Username)
	Password(errs, s.Password, s.ConfirmPassword)
	return errs
}
