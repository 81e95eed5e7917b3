package security

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSubject = Subject{ID: "id-1", Email: "a@x.com", Role: "student"}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestNewTokenIssuer_RequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("")
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestTokenIssuer_IssueAndVerify(t *testing.T) {
	issuer, err := NewTokenIssuer("secret", WithIssuer("eduplatform"))
	require.NoError(t, err)

	pair, err := issuer.IssuePair(testSubject)
	require.NoError(t, err)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	access, err := issuer.Verify(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "id-1", access.IdentityID())
	assert.Equal(t, "a@x.com", access.Email)
	assert.Equal(t, "student", access.Role)
	assert.Equal(t, TokenTypeAccess, access.Type)
	assert.Equal(t, "eduplatform", access.Issuer)
	assert.NotEmpty(t, access.ID)

	refresh, err := issuer.VerifyType(pair.RefreshToken, TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, refresh.Type)
}

func TestTokenIssuer_Lifetimes(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := NewTokenIssuer("secret", WithNow(fixedClock(now)), WithAccessTTL(30*time.Minute))
	require.NoError(t, err)

	pair, err := issuer.IssuePair(testSubject)
	require.NoError(t, err)

	access := issuer.Decode(pair.AccessToken)
	require.NotNil(t, access)
	assert.True(t, now.Add(30*time.Minute).Equal(access.ExpiresAt.Time))

	refresh := issuer.Decode(pair.RefreshToken)
	require.NotNil(t, refresh)
	assert.True(t, now.Add(7*24*time.Hour).Equal(refresh.ExpiresAt.Time))
}

func TestTokenIssuer_DefaultAccessTTL(t *testing.T) {
	issuer, err := NewTokenIssuer("secret")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, issuer.AccessTTL())
}

func TestTokenIssuer_VerifyExpired(t *testing.T) {
	now := time.Now()
	issuer, err := NewTokenIssuer("secret", WithNow(fixedClock(now)), WithAccessTTL(time.Minute))
	require.NoError(t, err)

	token, err := issuer.IssueAccessToken(testSubject)
	require.NoError(t, err)

	later, err := NewTokenIssuer("secret", WithNow(fixedClock(now.Add(2*time.Minute))))
	require.NoError(t, err)

	_, err = later.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_VerifyWrongSecret(t *testing.T) {
	issuer, err := NewTokenIssuer("secret")
	require.NoError(t, err)
	other, err := NewTokenIssuer("other-secret")
	require.NoError(t, err)

	token, err := issuer.IssueAccessToken(testSubject)
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_VerifyTampered(t *testing.T) {
	issuer, err := NewTokenIssuer("secret")
	require.NoError(t, err)

	token, err := issuer.IssueAccessToken(testSubject)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		Role: "admin",
		Type: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "id-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SigningString()
	require.NoError(t, err)

	_, err = issuer.Verify(forged + "." + parts[2])
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_VerifyRejectsOtherAlgorithms(t *testing.T) {
	issuer, err := NewTokenIssuer("secret")
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Type: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "id-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_VerifyTypeMismatch(t *testing.T) {
	issuer, err := NewTokenIssuer("secret")
	require.NoError(t, err)

	access, err := issuer.IssueAccessToken(testSubject)
	require.NoError(t, err)

	_, err = issuer.VerifyType(access, TokenTypeRefresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_DecodeGarbage(t *testing.T) {
	issuer, err := NewTokenIssuer("secret")
	require.NoError(t, err)

	assert.Nil(t, issuer.Decode("not-a-token"))
	assert.Nil(t, issuer.Decode(""))
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)

	token, err := GenerateOpaqueToken(0)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}
