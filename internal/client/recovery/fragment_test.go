package recovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFragment(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		want      Fragment
		recovery  bool
		hasTokens bool
	}{
		{
			name:      "full recovery link",
			in:        "#type=recovery&access_token=A&refresh_token=B",
			want:      Fragment{Type: "recovery", AccessToken: "A", RefreshToken: "B"},
			recovery:  true,
			hasTokens: true,
		},
		{
			name:     "no leading hash, tokens missing",
			in:       "type=recovery",
			want:     Fragment{Type: "recovery"},
			recovery: true,
		},
		{
			name:      "signup confirmation is not recovery",
			in:        "#type=signup&access_token=A&refresh_token=B",
			want:      Fragment{Type: "signup", AccessToken: "A", RefreshToken: "B"},
			hasTokens: true,
		},
		{
			name:     "half a pair",
			in:       "#type=recovery&access_token=A",
			want:     Fragment{Type: "recovery", AccessToken: "A"},
			recovery: true,
		},
		{name: "empty", in: "", want: Fragment{}},
		{name: "garbage", in: "#%zz", want: Fragment{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFragment(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.recovery, got.IsRecovery())
			assert.Equal(t, tt.hasTokens, got.HasTokens())
		})
	}
}
