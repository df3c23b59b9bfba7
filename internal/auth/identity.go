package auth

import (
	"context"
	"errors"

	"github.com/teamhub-dev/teamhub/internal/httpclient"
)

var ErrIdentityRejected = errors.New("identity token rejected")

// Identity is what a third-party identity provider vouches for.
type Identity struct {
	ExternalID string `json:"uid"`
	Email      string `json:"email"`
	Name       string `json:"name"`
}

type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// HTTPIdentityVerifier posts the token to a verification endpoint that
// answers with the identity or a 4xx.
type HTTPIdentityVerifier struct {
	url    string
	client *httpclient.Client
}

func NewHTTPIdentityVerifier(url string, client *httpclient.Client) *HTTPIdentityVerifier {
	return &HTTPIdentityVerifier{url: url, client: client}
}

func (v *HTTPIdentityVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	var out Identity
	err := v.client.PostJSON(ctx, v.url, map[string]string{"token": token}, &out)
	if err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) && statusErr.Code < 500 {
			return nil, ErrIdentityRejected
		}
		return nil, err
	}
	if out.ExternalID == "" {
		return nil, ErrIdentityRejected
	}
	return &out, nil
}
