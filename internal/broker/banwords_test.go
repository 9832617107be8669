package broker

import "testing"

func TestLooksLikeBan(t *testing.T) {
	tests := []struct {
		name    string
		code    Code
		message string
		want    bool
	}{
		{
			name:    "blocked account",
			code:    CodeUnknown,
			message: "Your account is blocked. Contact support.",
			want:    true,
		},
		{
			name:    "suspended account",
			code:    CodeAccessDenied,
			message: "This account is suspended",
			want:    true,
		},
		{
			name:    "session refresh phrase with invalid_grant",
			code:    CodeInvalidGrant,
			message: "We are unable to refresh your session.",
			want:    true,
		},
		{
			name:    "session refresh phrase without invalid_grant",
			code:    CodeNetworkError,
			message: "we are unable to refresh your session",
			want:    false,
		},
		{
			name:    "access not available",
			code:    CodeUnknown,
			message: "Access not available for this user",
			want:    true,
		},
		{
			name:    "ordinary invalid_grant",
			code:    CodeInvalidGrant,
			message: "invalid grant provided",
			want:    false,
		},
		{
			name:    "empty message",
			code:    CodeInvalidGrant,
			message: "",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LooksLikeBan(tt.code, tt.message); got != tt.want {
				t.Fatalf("LooksLikeBan(%s, %q) = %v, want %v", tt.code, tt.message, got, tt.want)
			}
		})
	}
}
