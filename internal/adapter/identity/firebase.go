package identity

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GoogleCertsURL publishes the x509 certificates that sign Firebase ID tokens.
const GoogleCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

var maxAgeRe = regexp.MustCompile(`max-age=(\d+)`)

// FirebaseVerifier checks Firebase Authentication ID tokens.
type FirebaseVerifier struct {
	projectID  string
	certsURL   string
	httpClient *http.Client

	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	expires time.Time
}

// NewFirebaseVerifier creates a verifier for projectID. An empty certsURL
// uses GoogleCertsURL.
func NewFirebaseVerifier(projectID, certsURL string) *FirebaseVerifier {
	if certsURL == "" {
		certsURL = GoogleCertsURL
	}
	return &FirebaseVerifier{
		projectID:  projectID,
		certsURL:   certsURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

var _ Verifier = (*FirebaseVerifier)(nil)

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (string, error) {
	keys, err := v.publicKeys(ctx)
	if err != nil {
		return "", err
	}

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		key, ok := keys[kid]
		if !ok {
			return nil, fmt.Errorf("unknown key id %q", kid)
		}
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer("https://securetoken.google.com/"+v.projectID),
		jwt.WithAudience(v.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return subject(claims)
}

// publicKeys returns the cached key set, refreshing it once it expires.
func (v *FirebaseVerifier) publicKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	v.mu.RLock()
	if v.keys != nil && time.Now().Before(v.expires) {
		keys := v.keys
		v.mu.RUnlock()
		return keys, nil
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.keys != nil && time.Now().Before(v.expires) {
		return v.keys, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch signing certificates: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch signing certificates: status %d", resp.StatusCode)
	}

	var pems map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&pems); err != nil {
		return nil, fmt.Errorf("decode signing certificates: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(pems))
	for kid, pem := range pems {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			return nil, fmt.Errorf("parse certificate %s: %w", kid, err)
		}
		keys[kid] = key
	}

	ttl := time.Hour
	if m := maxAgeRe.FindStringSubmatch(resp.Header.Get("Cache-Control")); m != nil {
		if secs, err := strconv.Atoi(m[1]); err == nil {
			ttl = time.Duration(secs) * time.Second
		}
	}
	v.keys = keys
	v.expires = time.Now().Add(ttl)
	return keys, nil
}
