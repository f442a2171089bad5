package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	var tests = []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "local format", input: "0712345678", expected: "254712345678"},
		{name: "international format", input: "254712345678", expected: "254712345678"},
		{name: "leading plus", input: "+254712345678", expected: "254712345678"},
		{name: "surrounding whitespace", input: " 0712345678 ", expected: "254712345678"},
		{name: "too short local", input: "071234567", wantErr: true},
		{name: "too long local", input: "07123456789", wantErr: true},
		{name: "landline prefix", input: "0212345678", wantErr: true},
		{name: "foreign country code", input: "255712345678", wantErr: true},
		{name: "letters", input: "07abc45678", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizePhone(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalizePhone_BothFormatsCanonicalizeIdentically(t *testing.T) {
	local, err := NormalizePhone("0712345678")
	require.NoError(t, err)
	intl, err := NormalizePhone("254712345678")
	require.NoError(t, err)
	require.Equal(t, local, intl)
}

func TestValidateInitiate(t *testing.T) {
	var tests = []struct {
		name    string
		req     InitiateRequest
		wantErr bool
	}{
		{
			name: "valid",
			req:  InitiateRequest{Phone: "0712345678", Amount: 10, Email: "test@example.com"},
		},
		{
			name:    "zero amount",
			req:     InitiateRequest{Phone: "0712345678", Amount: 0, Email: "test@example.com"},
			wantErr: true,
		},
		{
			name:    "negative amount",
			req:     InitiateRequest{Phone: "0712345678", Amount: -5, Email: "test@example.com"},
			wantErr: true,
		},
		{
			name:    "malformed email",
			req:     InitiateRequest{Phone: "0712345678", Amount: 10, Email: "not-an-email"},
			wantErr: true,
		},
		{
			name:    "missing email",
			req:     InitiateRequest{Phone: "0712345678", Amount: 10, Email: ""},
			wantErr: true,
		},
		{
			name:    "bad phone",
			req:     InitiateRequest{Phone: "12345", Amount: 10, Email: "test@example.com"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := tt.req
			err := validateInitiate(&req)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "254712345678", req.Phone)
		})
	}
}
