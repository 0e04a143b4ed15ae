package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	facebookAuthEndpoint    = "https://www.facebook.com/v18.0/dialog/oauth"
	facebookTokenEndpoint   = "https://graph.facebook.com/v18.0/oauth/access_token"
	facebookProfileEndpoint = "https://graph.facebook.com/v18.0/me"
)

// Facebook signs users in through the Facebook Graph API.
type Facebook struct {
	clientID     string
	clientSecret string
	redirectURI  string

	authEndpoint    string
	tokenEndpoint   string
	profileEndpoint string
	http            *http.Client
}

// FacebookOption overrides Facebook endpoints. Only intended for test use.
type FacebookOption func(*Facebook)

func WithFacebookEndpoints(auth, token, profile string) FacebookOption {
	return func(f *Facebook) {
		f.authEndpoint = auth
		f.tokenEndpoint = token
		f.profileEndpoint = profile
	}
}

func NewFacebook(clientID, clientSecret, redirectURI string, opts ...FacebookOption) *Facebook {
	f := &Facebook{
		clientID:        clientID,
		clientSecret:    clientSecret,
		redirectURI:     redirectURI,
		authEndpoint:    facebookAuthEndpoint,
		tokenEndpoint:   facebookTokenEndpoint,
		profileEndpoint: facebookProfileEndpoint,
		http:            &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Facebook) Name() string { return "facebook" }

func (f *Facebook) AuthURL(state string) string {
	u, _ := url.Parse(f.authEndpoint)
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", f.clientID)
	q.Set("redirect_uri", f.redirectURI)
	q.Set("scope", "email,public_profile")
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String()
}

func (f *Facebook) Exchange(ctx context.Context, code string) (Callback, error) {
	u, err := url.Parse(f.tokenEndpoint)
	if err != nil {
		return Callback{}, err
	}
	q := u.Query()
	q.Set("client_id", f.clientID)
	q.Set("client_secret", f.clientSecret)
	q.Set("redirect_uri", f.redirectURI)
	q.Set("code", code)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Callback{}, err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return Callback{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return Callback{}, fmt.Errorf("facebook token http %d", resp.StatusCode)
	}
	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return Callback{}, err
	}
	if token.AccessToken == "" {
		return Callback{}, fmt.Errorf("facebook token response missing access_token")
	}

	return f.profile(ctx, token.AccessToken)
}

func (f *Facebook) profile(ctx context.Context, accessToken string) (Callback, error) {
	u, err := url.Parse(f.profileEndpoint)
	if err != nil {
		return Callback{}, err
	}
	q := u.Query()
	q.Set("fields", "id,name,email")
	q.Set("access_token", accessToken)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Callback{}, err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return Callback{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return Callback{}, fmt.Errorf("facebook profile http %d", resp.StatusCode)
	}
	var profile struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return Callback{}, err
	}
	if profile.ID == "" {
		return Callback{}, fmt.Errorf("facebook profile missing id")
	}

	claims := map[string]string{}
	if profile.Email != "" {
		claims["email"] = profile.Email
	}
	if profile.Name != "" {
		claims["name"] = profile.Name
	}
	return Callback{Provider: f.Name(), Key: profile.ID, Claims: claims}, nil
}
