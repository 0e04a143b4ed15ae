package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	googleAuthEndpoint     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenEndpoint    = "https://oauth2.googleapis.com/token"
	googleUserinfoEndpoint = "https://openidconnect.googleapis.com/v1/userinfo"
)

// Google signs users in through Google's OAuth 2.0 endpoints and reads the
// profile from the OpenID userinfo endpoint.
type Google struct {
	clientID     string
	clientSecret string
	redirectURI  string

	authEndpoint     string
	tokenEndpoint    string
	userinfoEndpoint string
	http             *http.Client
}

// GoogleOption overrides Google endpoints. Only intended for test use.
type GoogleOption func(*Google)

func WithGoogleEndpoints(auth, token, userinfo string) GoogleOption {
	return func(g *Google) {
		g.authEndpoint = auth
		g.tokenEndpoint = token
		g.userinfoEndpoint = userinfo
	}
}

func NewGoogle(clientID, clientSecret, redirectURI string, opts ...GoogleOption) *Google {
	g := &Google{
		clientID:         clientID,
		clientSecret:     clientSecret,
		redirectURI:      redirectURI,
		authEndpoint:     googleAuthEndpoint,
		tokenEndpoint:    googleTokenEndpoint,
		userinfoEndpoint: googleUserinfoEndpoint,
		http:             &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Google) Name() string { return "google" }

func (g *Google) AuthURL(state string) string {
	u, _ := url.Parse(g.authEndpoint)
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", g.clientID)
	q.Set("redirect_uri", g.redirectURI)
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String()
}

func (g *Google) Exchange(ctx context.Context, code string) (Callback, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", g.clientID)
	form.Set("client_secret", g.clientSecret)
	form.Set("redirect_uri", g.redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Callback{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := g.http.Do(req)
	if err != nil {
		return Callback{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		var body struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return Callback{}, fmt.Errorf("google token http %d: %s %s", resp.StatusCode, body.Error, body.ErrorDescription)
	}
	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return Callback{}, err
	}
	if token.AccessToken == "" {
		return Callback{}, fmt.Errorf("google token response missing access_token")
	}

	return g.userinfo(ctx, token.AccessToken)
}

func (g *Google) userinfo(ctx context.Context, accessToken string) (Callback, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userinfoEndpoint, nil)
	if err != nil {
		return Callback{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp, err := g.http.Do(req)
	if err != nil {
		return Callback{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return Callback{}, fmt.Errorf("google userinfo http %d", resp.StatusCode)
	}
	var info struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Callback{}, err
	}
	if info.Sub == "" {
		return Callback{}, fmt.Errorf("google userinfo missing subject")
	}

	claims := map[string]string{}
	if info.Email != "" {
		claims["email"] = info.Email
	}
	if info.Name != "" {
		claims["name"] = info.Name
	}
	return Callback{Provider: g.Name(), Key: info.Sub, Claims: claims}, nil
}
