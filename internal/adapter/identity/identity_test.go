package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHMACVerifierRoundTrip(t *testing.T) {
	v := NewHMACVerifier("secret", "harvia")

	token, err := v.Issue("user-1", time.Minute)
	require.NoError(t, err)

	uid, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", uid)
}

func TestHMACVerifierRejects(t *testing.T) {
	v := NewHMACVerifier("secret", "harvia")

	other, err := NewHMACVerifier("other", "harvia").Issue("user-1", time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := v.Issue("user-1", -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSubject, err := v.Issue("", time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), noSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func selfSignedPEM(t *testing.T, key *rsa.PrivateKey) string {
	t.Helper()
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "securetoken"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
}

func TestFirebaseVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	var fetches atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		w.Header().Set("Cache-Control", "public, max-age=600")
		_ = json.NewEncoder(w).Encode(map[string]string{"kid-1": selfSignedPEM(t, key)})
	}))
	defer server.Close()

	v := NewFirebaseVerifier("harvia-app", server.URL)

	sign := func(claims jwt.RegisteredClaims, kid string) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		tok.Header["kid"] = kid
		s, err := tok.SignedString(key)
		require.NoError(t, err)
		return s
	}
	now := time.Now()
	valid := jwt.RegisteredClaims{
		Subject:   "firebase-uid",
		Issuer:    "https://securetoken.google.com/harvia-app",
		Audience:  jwt.ClaimStrings{"harvia-app"},
		IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	uid, err := v.Verify(context.Background(), sign(valid, "kid-1"))
	require.NoError(t, err)
	assert.Equal(t, "firebase-uid", uid)

	wrongAud := valid
	wrongAud.Audience = jwt.ClaimStrings{"someone-else"}
	_, err = v.Verify(context.Background(), sign(wrongAud, "kid-1"))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify(context.Background(), sign(valid, "kid-2"))
	assert.ErrorIs(t, err, ErrInvalidToken)

	assert.Equal(t, int32(1), fetches.Load(), "certificates are cached")
}
