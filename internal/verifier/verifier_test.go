package verifier

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/fxrelay/internal/keys"
	"github.com/darmiel/fxrelay/internal/testutil"
)

const (
	profileChange = "https://schemas.accounts.firefox.com/event/profile-change"
	deleteUser    = "https://schemas.accounts.firefox.com/event/delete-user"
)

type testClaims struct {
	jwt.RegisteredClaims
	Events json.RawMessage `json:"events,omitempty"`
}

func TestVerifier_Verify(t *testing.T) {
	iss := testutil.NewIssuer(t)
	otherKey := testutil.GenerateKey(t)
	v := New(keys.NewResolver(nil))

	validClaims := func() testClaims {
		return testClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    iss.URL(),
				Subject:   "FXA_USER_ID",
				IssuedAt:  jwt.NewNumericDate(time.Now()),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
			Events: json.RawMessage(`{"` + profileChange + `": {}, "` + deleteUser + `": {}}`),
		}
	}

	hsToken := func() string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims())
		token.Header["kid"] = iss.KeyID
		s, err := token.SignedString([]byte("not-so-secret"))
		require.NoError(t, err)
		return s
	}

	notAnObject := "eyJhbGciOiJSUzI1NiIsImtpZCI6InRlc3Qta2V5LTEifQ." +
		base64.RawURLEncoding.EncodeToString([]byte(`"hello"`)) + ".c2ln"

	tests := []struct {
		name    string
		token   func() string
		wantErr error
	}{
		{
			name:    "Garbage",
			token:   func() string { return "abc123imnotarealjwt" },
			wantErr: ErrDecode,
		},
		{
			name:    "Payload Not An Object",
			token:   func() string { return notAnObject },
			wantErr: ErrDecode,
		},
		{
			name: "Missing Kid",
			token: func() string {
				return testutil.Sign(t, iss.Key, "", validClaims())
			},
			wantErr: ErrMissingIssuerOrKid,
		},
		{
			name: "Missing Issuer",
			token: func() string {
				c := validClaims()
				c.Issuer = ""
				return iss.Sign(t, c)
			},
			wantErr: ErrMissingIssuerOrKid,
		},
		{
			name: "Unknown Kid",
			token: func() string {
				return testutil.Sign(t, otherKey, "other-kid", validClaims())
			},
			wantErr: keys.ErrKeyNotFound,
		},
		{
			name: "Signed By Other Key",
			token: func() string {
				return testutil.Sign(t, otherKey, iss.KeyID, validClaims())
			},
			wantErr: ErrSignatureInvalid,
		},
		{
			name: "Expired",
			token: func() string {
				c := validClaims()
				c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
				return iss.Sign(t, c)
			},
			wantErr: ErrSignatureInvalid,
		},
		{
			name:    "HS256 Rejected",
			token:   hsToken,
			wantErr: ErrSignatureInvalid,
		},
		{
			name: "Missing Sub",
			token: func() string {
				c := validClaims()
				c.Subject = ""
				return iss.Sign(t, c)
			},
			wantErr: ErrInvalidPayloadShape,
		},
		{
			name: "Sub Not A String",
			token: func() string {
				return iss.Sign(t, jwt.MapClaims{
					"iss":    iss.URL(),
					"sub":    42,
					"events": map[string]any{deleteUser: map[string]any{}},
				})
			},
			wantErr: ErrInvalidPayloadShape,
		},
		{
			name: "Missing Events",
			token: func() string {
				c := validClaims()
				c.Events = nil
				return iss.Sign(t, c)
			},
			wantErr: ErrInvalidPayloadShape,
		},
		{
			name: "Empty Events",
			token: func() string {
				c := validClaims()
				c.Events = json.RawMessage(`{}`)
				return iss.Sign(t, c)
			},
			wantErr: ErrInvalidPayloadShape,
		},
		{
			name: "Events Not An Object",
			token: func() string {
				c := validClaims()
				c.Events = json.RawMessage(`["delete-user"]`)
				return iss.Sign(t, c)
			},
			wantErr: ErrInvalidPayloadShape,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := v.Verify(context.Background(), tt.token())
			require.Error(t, err)
			assert.Nil(t, payload)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

func TestVerifier_VerifyReturnsPayload(t *testing.T) {
	iss := testutil.NewIssuer(t)
	v := New(keys.NewResolver(nil))

	token := iss.Sign(t, testClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:  iss.URL(),
			Subject: "plamen",
		},
		Events: json.RawMessage(`{"crew": "olympics", "` + deleteUser + `": {}}`),
	})

	payload, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, iss.URL(), payload.Issuer)
	assert.Equal(t, "plamen", payload.Subject)
	assert.Equal(t, []string{"crew", deleteUser}, payload.Events.Types())

	detail, ok := payload.Events.Get("crew")
	require.True(t, ok)
	assert.JSONEq(t, `"olympics"`, string(detail))
}

func TestVerifier_UsesClock(t *testing.T) {
	iss := testutil.NewIssuer(t)
	v := New(keys.NewResolver(nil))

	exp := time.Now().Add(time.Hour)
	token := iss.Sign(t, testClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    iss.URL(),
			Subject:   "plamen",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Events: json.RawMessage(`{"` + deleteUser + `": {}}`),
	})

	v.now = func() time.Time { return exp.Add(time.Second) }
	_, err := v.Verify(context.Background(), token)
	assert.True(t, errors.Is(err, ErrSignatureInvalid))
}
