package assignment

import "strings"

// labelSource reads one candidate display label from a user.
type labelSource struct {
	name string
	get  func(User) string
}

// displayPrecedence is the order in which user fields are tried for a label.
var displayPrecedence = []labelSource{
	{"displayName", func(u User) string { return u.DisplayName }},
	{"fullName", func(u User) string { return u.FullName }},
	{"username", func(u User) string { return u.Username }},
	{"email", func(u User) string { return u.Email }},
	{"id", func(u User) string { return u.ID }},
}

// DisplayLabel returns the first non-blank field in precedence order.
func DisplayLabel(u User) string {
	label, _ := displayLabel(u)
	return label
}

// DisplayLabelSource is DisplayLabel plus the name of the field used.
// Both are empty when every field is blank.
func DisplayLabelSource(u User) (label, source string) {
	return displayLabel(u)
}

func displayLabel(u User) (string, string) {
	for _, src := range displayPrecedence {
		if v := strings.TrimSpace(src.get(u)); v != "" {
			return v, src.name
		}
	}
	return "", ""
}
