package auth

import (
	"context"
	"testing"
	"time"

	"github.com/YelzhanWeb/orderdesk/internal/domain"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	issuer, err := NewIssuer("secret", time.Hour)
	require.NoError(t, err)

	token, err := issuer.Issue("maria", domain.RoleKitchen)
	require.NoError(t, err)

	p, err := issuer.ParseHeader("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, Principal{Subject: "maria", Role: domain.RoleKitchen}, p)
}

func TestParseRejects(t *testing.T) {
	issuer, err := NewIssuer("secret", time.Hour)
	require.NoError(t, err)
	other, err := NewIssuer("other", time.Hour)
	require.NoError(t, err)

	foreign, err := other.Issue("maria", domain.RoleAdmin)
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "maria",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		Role: domain.RoleAdmin,
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "maria"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   error
	}{
		{name: "empty", header: "", want: ErrMissingToken},
		{name: "no scheme", header: foreign, want: ErrInvalidToken},
		{name: "wrong scheme", header: "Basic " + foreign, want: ErrInvalidToken},
		{name: "foreign signature", header: "Bearer " + foreign, want: ErrInvalidToken},
		{name: "expired", header: "Bearer " + expired, want: ErrInvalidToken},
		{name: "no role", header: "Bearer " + noRole, want: ErrInvalidToken},
		{name: "garbage", header: "Bearer abc.def.ghi", want: ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.ParseHeader(tt.header)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIssueValidatesInput(t *testing.T) {
	issuer, err := NewIssuer("secret", 0)
	require.NoError(t, err)

	_, err = issuer.Issue("maria", domain.Role("chef"))
	assert.Error(t, err)
	_, err = issuer.Issue(" ", domain.RoleAdmin)
	assert.Error(t, err)

	_, err = NewIssuer("", time.Hour)
	assert.Error(t, err)
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFrom(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{Subject: "joao", Role: domain.RoleDelivery})
	p, ok := PrincipalFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, domain.RoleDelivery, p.Role)
}
