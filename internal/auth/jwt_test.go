package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/edukit/edukit/internal/model"
)

func testCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec([]byte("test-secret"), "HS256", 7*24*time.Hour, 14*24*time.Hour)
	require.NoError(t, err)
	return codec
}

func TestAccessTokenRoundTrip(t *testing.T) {
	codec := testCodec(t)

	user := model.User{ID: 7, Email: "admin@demoschool.edu", Kind: model.KindAdmin}
	tenant := model.Tenant{ID: 1, Code: "DEMO01", SchemaName: "school_demo01"}

	token, err := codec.IssueAccess(user, tenant)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	require.Equal(t, int64(7), claims.UserID)
	require.Equal(t, "admin@demoschool.edu", claims.Email)
	require.Equal(t, int64(1), claims.TenantID)
	require.Equal(t, "DEMO01", claims.TenantCode)
	require.Equal(t, TokenKindAccess, claims.Kind)
}

func TestRefreshTokenCarriesMinimalIdentity(t *testing.T) {
	codec := testCodec(t)

	token, err := codec.IssueRefresh(7)
	require.NoError(t, err)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	require.Equal(t, int64(7), claims.UserID)
	require.Equal(t, TokenKindRefresh, claims.Kind)
	require.Empty(t, claims.Email)
	require.Empty(t, claims.TenantCode)
}

func TestVerifyExpired(t *testing.T) {
	codec := testCodec(t)

	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: 7,
		Kind:   TokenKindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Second)),
		},
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = codec.Verify(signed)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyWrongSecret(t *testing.T) {
	codec := testCodec(t)

	other, err := NewCodec([]byte("other-secret"), "HS256", time.Hour, 2*time.Hour)
	require.NoError(t, err)
	token, err := other.IssueRefresh(7)
	require.NoError(t, err)

	_, err = codec.Verify(token)
	require.ErrorIs(t, err, ErrTokenSignature)
}

func TestVerifyMalformed(t *testing.T) {
	codec := testCodec(t)

	_, err := codec.Verify("not-a-token")
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestVerifyRejectsForeignAlgorithm(t *testing.T) {
	codec := testCodec(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		UserID: 7,
		Kind:   TokenKindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(time.Now().UTC().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = codec.Verify(signed)
	require.Error(t, err)
}

func TestVerifyIsPure(t *testing.T) {
	codec := testCodec(t)

	token, err := codec.IssueRefresh(7)
	require.NoError(t, err)

	first, err := codec.Verify(token)
	require.NoError(t, err)
	second, err := codec.Verify(token)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestNewCodecRejectsAsymmetricAlgorithms(t *testing.T) {
	_, err := NewCodec([]byte("secret"), "RS256", time.Hour, 2*time.Hour)
	require.Error(t, err)
}
