package models

import "strings"

type User struct {
	ID       ID     `json:"id,omitempty"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

// Public returns a copy without credentials, suitable for local persistence and display.
func (u User) Public() User {
	u.Password = ""
	return u
}

// Initials returns up to two upper-case initials of the user's name.
func (u User) Initials() string {
	var out []rune
	start := true
	for _, r := range u.Name {
		if r == ' ' {
			start = true
			continue
		}
		if start {
			out = append(out, r)
			start = false
			if len(out) == 2 {
				break
			}
		}
	}
	return strings.ToUpper(string(out))
}
