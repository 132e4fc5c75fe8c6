package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	serviceTokenKey = "service_token"

	// minTokenCacheTTL caps how long a token is cached when the provider
	// hands out one too short-lived to refresh a minute early.
	minTokenCacheTTL = 5 * time.Second
)

// HTTPProvider talks to the platform's remote identity service. Every call
// is authenticated with a short-lived service token that the provider
// issues against our API key; the token is cached until shortly before it
// expires.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	http    *http.Client
	tokens  *gocache.Cache
}

func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		tokens:  gocache.New(gocache.NoExpiration, time.Minute),
	}
}

type identityResponse struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

func (p *HTTPProvider) Create(ctx context.Context, email, password string) (*Identity, error) {
	return p.identityCall(ctx, "/v1/accounts", map[string]string{
		"email":    email,
		"password": password,
	})
}

func (p *HTTPProvider) Login(ctx context.Context, email, password string) (*Identity, error) {
	return p.identityCall(ctx, "/v1/sessions", map[string]string{
		"email":    email,
		"password": password,
	})
}

func (p *HTTPProvider) FederatedSignIn(ctx context.Context, idToken string) (*Identity, error) {
	return p.identityCall(ctx, "/v1/sessions/federated", map[string]string{
		"id_token": idToken,
	})
}

func (p *HTTPProvider) SignOut(ctx context.Context, uid string) error {
	_, err := p.do(ctx, http.MethodDelete, "/v1/sessions/"+uid, nil)
	return err
}

func (p *HTTPProvider) identityCall(ctx context.Context, path string, body map[string]string) (*Identity, error) {
	raw, err := p.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	var resp identityResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("identity: decode response: %w", err)
	}
	return &Identity{UID: resp.UID, Email: resp.Email, Name: resp.Name}, nil
}

func (p *HTTPProvider) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	token, err := p.serviceToken(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var out bytes.Buffer
	if _, err := out.ReadFrom(resp.Body); err != nil {
		return nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return out.Bytes(), nil
	}

	var apiErr errorResponse
	_ = json.Unmarshal(out.Bytes(), &apiErr)
	switch apiErr.Code {
	case "EMAIL_EXISTS":
		return nil, ErrExists
	case "INVALID_CREDENTIALS":
		return nil, ErrBadCredential
	case "INVALID_TOKEN":
		return nil, ErrBadToken
	}
	if apiErr.Message != "" {
		return nil, fmt.Errorf("identity: %s", apiErr.Message)
	}
	return nil, fmt.Errorf("identity: %s %s: status %d", method, path, resp.StatusCode)
}

func (p *HTTPProvider) serviceToken(ctx context.Context) (string, error) {
	if tok, ok := p.tokens.Get(serviceTokenKey); ok {
		return tok.(string), nil
	}

	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(map[string]string{"api_key": p.apiKey})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/service-tokens", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("identity: service token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("identity: service token: status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", err
	}

	// Refresh a minute early so in-flight calls never carry an expired
	// token. The ttl must stay positive: this cache treats a zero
	// duration as never-expires.
	ttl := time.Duration(tr.ExpiresIn)*time.Second - time.Minute
	if ttl <= 0 {
		ttl = minTokenCacheTTL
	}
	p.tokens.Set(serviceTokenKey, tr.Token, ttl)
	return tr.Token, nil
}
