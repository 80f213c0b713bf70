package xregexp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchString(t *testing.T) {
	tests := []struct {
		pattern string
		str     string
		want    bool
	}{
		{pattern: "www", str: "www", want: true},
		{pattern: "www", str: "www2", want: false},
		{pattern: "admin.*", str: "admin-portal", want: true},
		{pattern: "admin.*", str: "my-admin", want: false},
		{pattern: "api|app", str: "app", want: true},
		{pattern: "api|app", str: "apps", want: false},
		{pattern: "^status$", str: "status", want: true},
		{pattern: "[", str: "[", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.str, func(t *testing.T) {
			require.Equal(t, tt.want, MatchString(tt.pattern, tt.str))
		})
	}
}

func TestMatchAny(t *testing.T) {
	require.True(t, MatchAny([]string{"www", "admin.*"}, "admin1"))
	require.False(t, MatchAny(nil, "acme"))
}
