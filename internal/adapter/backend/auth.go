package backend

import (
	"context"
	"net/http"

	domain "github.com/aq2208/campuspay-terminal/internal/entity"
	"github.com/aq2208/campuspay-terminal/internal/nfc"
	"github.com/aq2208/campuspay-terminal/internal/session"
)

// CSRFToken fetches GET /csrf/.
func (c *Client) CSRFToken(ctx context.Context) (string, error) {
	var out struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := c.do(ctx, nil, http.MethodGet, "/csrf/", nil, &out); err != nil {
		return "", err
	}
	return out.CSRFToken, nil
}

// Login exchanges phone + password for a token pair.
func (c *Client) Login(ctx context.Context, phone, password string) (session.Tokens, error) {
	csrf, err := c.CSRFToken(ctx)
	if err != nil {
		return session.Tokens{}, err
	}
	in := map[string]string{"phone_number": phone, "password": password}
	var out struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	if err := c.do(ctx, &session.Context{CSRFToken: csrf}, http.MethodPost, "/login/", in, &out); err != nil {
		return session.Tokens{}, err
	}
	return session.Tokens{Access: out.Access, Refresh: out.Refresh, Phone: phone}, nil
}

func (c *Client) Register(ctx context.Context, r domain.Registration) error {
	csrf, err := c.CSRFToken(ctx)
	if err != nil {
		return err
	}
	return c.do(ctx, &session.Context{CSRFToken: csrf}, http.MethodPost, "/register/", r, nil)
}

func (c *Client) Details(ctx context.Context, sc session.Context) (domain.UserDetails, error) {
	var out domain.UserDetails
	err := c.do(ctx, &sc, http.MethodGet, "/details/", nil, &out)
	return out, err
}

// VerifyPassword checks the signed-in user's own password.
func (c *Client) VerifyPassword(ctx context.Context, sc session.Context, password string) error {
	return c.do(ctx, &sc, http.MethodPost, "/verify-password/", map[string]string{"password": password}, nil)
}

// VerifyUser checks a tag credential against the backend.
func (c *Client) VerifyUser(ctx context.Context, sc session.Context, cred nfc.Credential) error {
	in := map[string]string{
		"email":        cred.Identity,
		"phone_number": cred.Phone,
		"password":     cred.Secret,
	}
	return c.do(ctx, &sc, http.MethodPost, "/verify-user/", in, nil)
}
