package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSignup(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		input   SignupInput
		message string
	}{
		{
			name:  "valid",
			input: SignupInput{Username: "alice", Email: "a@x.com", Password: "pw12345"},
		},
		{
			name:    "missing username",
			input:   SignupInput{Email: "a@x.com", Password: "pw12345"},
			message: `"username" is not allowed to be empty`,
		},
		{
			name:    "username not alphanumeric",
			input:   SignupInput{Username: "al ice!", Email: "a@x.com", Password: "pw12345"},
			message: `"username" must only contain alpha-numeric characters`,
		},
		{
			name:    "username too long",
			input:   SignupInput{Username: strings.Repeat("a", 21), Email: "a@x.com", Password: "pw12345"},
			message: `"username" length must be less than or equal to 20 characters long`,
		},
		{
			name:    "bad email",
			input:   SignupInput{Username: "alice", Email: "not-an-email", Password: "pw12345"},
			message: `"email" must be a valid email`,
		},
		{
			name:    "password too long",
			input:   SignupInput{Username: "alice", Email: "a@x.com", Password: strings.Repeat("p", 21)},
			message: `"password" length must be less than or equal to 20 characters long`,
		},
		{
			name:    "first error wins",
			input:   SignupInput{Username: "", Email: "bad", Password: ""},
			message: `"username" is not allowed to be empty`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateSignup(tt.input)
			if tt.message == "" {
				assert.NoError(t, err)
				return
			}
			var verr *Error
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.message, verr.Error())
		})
	}
}

func TestValidateSignup_BoundaryLengths(t *testing.T) {
	v := New()

	tests := []struct {
		name     string
		username string
		password string
		message  string
	}{
		{name: "ascii at limit", username: strings.Repeat("a", 20), password: strings.Repeat("p", 20)},
		{name: "accented at limit", username: "alice", password: strings.Repeat("é", 20)},
		{name: "astral at limit", username: "alice", password: strings.Repeat("😀", 10)},
		{
			name:     "astral over limit",
			username: "alice",
			password: strings.Repeat("😀", 20),
			message:  `"password" length must be less than or equal to 20 characters long`,
		},
		{
			name:     "astral one unit over",
			username: "alice",
			password: strings.Repeat("😀", 10) + "p",
			message:  `"password" length must be less than or equal to 20 characters long`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateSignup(SignupInput{Username: tt.username, Email: "a@x.com", Password: tt.password})
			if tt.message == "" {
				require.NoError(t, err)
				assert.LessOrEqual(t, len(tt.password), 72, "accepted passwords must fit bcrypt")
				return
			}
			var verr *Error
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, "password", verr.Field)
			assert.Equal(t, tt.message, verr.Message)
		})
	}
}

func TestValidateLogin(t *testing.T) {
	v := New()

	assert.NoError(t, v.ValidateLogin(LoginInput{Email: "a@x.com"}), "password is not checked")

	err := v.ValidateLogin(LoginInput{Email: "nope", Password: "x"})
	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "email", verr.Field)
	assert.Equal(t, `"email" must be a valid email`, verr.Message)
}
