// Package recovery turns a password-reset link into a one-time redirect to
// the update-password screen.
package recovery

import (
	"net/url"
	"strings"
)

const recoveryType = "recovery"

// Fragment is the token hand-off carried in a URL fragment such as
// "#type=recovery&access_token=A&refresh_token=B".
type Fragment struct {
	Type         string
	AccessToken  string
	RefreshToken string
}

// ParseFragment reads fragment with or without the leading '#'. Malformed
// pairs are skipped; an unparsable fragment yields the zero Fragment.
func ParseFragment(fragment string) Fragment {
	values, _ := url.ParseQuery(strings.TrimPrefix(fragment, "#"))
	return Fragment{
		Type:         values.Get("type"),
		AccessToken:  values.Get("access_token"),
		RefreshToken: values.Get("refresh_token"),
	}
}

func (f Fragment) IsRecovery() bool {
	return f.Type == recoveryType
}

// HasTokens reports whether both halves of the token pair are present.
func (f Fragment) HasTokens() bool {
	return f.AccessToken != "" && f.RefreshToken != ""
}
