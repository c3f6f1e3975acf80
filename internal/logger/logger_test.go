package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedact(t *testing.T) {
	tests := []struct {
		name string
		in   []interface{}
		want []interface{}
	}{
		{"empty", nil, nil},
		{"plain", []interface{}{"user_id", "abc"}, []interface{}{"user_id", "abc"}},
		{"password", []interface{}{"password", "hunter2"}, []interface{}{"password", "[REDACTED]"}},
		{"mixed case", []interface{}{"JWT_Token", "x.y.z", "path", "/"}, []interface{}{"JWT_Token", "[REDACTED]", "path", "/"}},
		{"dangling key", []interface{}{"otp", "123456", "orphan"}, []interface{}{"otp", "[REDACTED]", "orphan"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, redact(tt.in))
		})
	}
}
