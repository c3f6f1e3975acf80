package services

import (
	"context"
	"fmt"

	"oaforum/internal/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// GoogleProfile 登录所需的 Google 账号信息
type GoogleProfile struct {
	ID            string
	Email         string
	VerifiedEmail bool
}

type GoogleAuth struct {
	oauth   *oauth2.Config
	enabled bool
}

func NewGoogleAuth(cfg config.GoogleConfig) *GoogleAuth {
	return &GoogleAuth{
		enabled: cfg.Enabled(),
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				googleoauth2.UserinfoEmailScope,
				googleoauth2.UserinfoProfileScope,
			},
			Endpoint: google.Endpoint,
		},
	}
}

func (g *GoogleAuth) Enabled() bool {
	return g != nil && g.enabled
}

func (g *GoogleAuth) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state)
}

// Exchange 用授权码换取令牌并读取用户信息
func (g *GoogleAuth) Exchange(ctx context.Context, code string) (*GoogleProfile, error) {
	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	svc, err := googleoauth2.NewService(ctx, option.WithTokenSource(g.oauth.TokenSource(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("create oauth2 service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}

	return &GoogleProfile{
		ID:            info.Id,
		Email:         info.Email,
		VerifiedEmail: info.VerifiedEmail != nil && *info.VerifiedEmail,
	}, nil
}
