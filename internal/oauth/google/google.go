package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

var (
	ErrConfigInvalid   = errors.New("google config invalid")
	ErrRequestFailed   = errors.New("google request failed")
	ErrResponseInvalid = errors.New("google response invalid")
	ErrTokenInvalid    = errors.New("google token invalid")
)

const defaultTimeout = 10 * time.Second

var validIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// Config Google OAuth 配置
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	TokenURL     string // 为空使用 Google 官方地址
	Timeout      time.Duration
}

// Normalize 规范化配置
func (c *Config) Normalize() {
	c.ClientID = strings.TrimSpace(c.ClientID)
	c.ClientSecret = strings.TrimSpace(c.ClientSecret)
	c.RedirectURL = strings.TrimSpace(c.RedirectURL)
	c.TokenURL = strings.TrimSpace(c.TokenURL)
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Identity 校验通过的 Google 身份
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
	Locale        string
}

type validateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// Client Google 登录客户端
type Client struct {
	cfg      Config
	oauth    oauth2.Config
	http     *http.Client
	validate validateFunc
}

// NewClient 创建客户端
func NewClient(cfg Config) *Client {
	cfg.Normalize()
	endpoint := googleoauth.Endpoint
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}
	c := &Client{
		cfg: cfg,
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		http:     httpClient,
		validate: idtoken.Validate,
	}
	if validator, err := idtoken.NewValidator(context.Background(), option.WithHTTPClient(httpClient)); err == nil {
		c.validate = validator.Validate
	}
	return c
}

// VerifyIDToken 校验 ID Token 签名、受众与签发方并返回身份
func (c *Client) VerifyIDToken(ctx context.Context, idToken string) (*Identity, error) {
	if c.cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: client_id is required", ErrConfigInvalid)
	}
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return nil, fmt.Errorf("%w: id_token is empty", ErrTokenInvalid)
	}
	payload, err := c.validate(ctx, idToken, c.cfg.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !validIssuers[payload.Issuer] {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrTokenInvalid, payload.Issuer)
	}
	if strings.TrimSpace(payload.Subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	return &Identity{
		Subject:       payload.Subject,
		Email:         strings.ToLower(strings.TrimSpace(claimString(payload.Claims, "email"))),
		EmailVerified: claimBool(payload.Claims, "email_verified"),
		Name:          claimString(payload.Claims, "name"),
		Picture:       claimString(payload.Claims, "picture"),
		Locale:        claimString(payload.Claims, "locale"),
	}, nil
}

// ExchangeCode 授权码换取 ID Token 后校验
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURL string) (*Identity, error) {
	if c.cfg.ClientID == "" || c.cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client_id/client_secret is required", ErrConfigInvalid)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: code is empty", ErrTokenInvalid)
	}
	conf := c.oauth
	if redirectURL = strings.TrimSpace(redirectURL); redirectURL != "" {
		conf.RedirectURL = redirectURL
	}
	token, err := conf.Exchange(context.WithValue(ctx, oauth2.HTTPClient, c.http), code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			switch retrieveErr.Response.StatusCode {
			case http.StatusBadRequest, http.StatusUnauthorized:
				return nil, fmt.Errorf("%w: code rejected", ErrTokenInvalid)
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken == "" {
		return nil, fmt.Errorf("%w: id_token missing", ErrResponseInvalid)
	}
	return c.VerifyIDToken(ctx, rawIDToken)
}

func claimString(claims map[string]interface{}, key string) string {
	value, _ := claims[key].(string)
	return value
}

// email_verified 可能是布尔值也可能是字符串
func claimBool(claims map[string]interface{}, key string) bool {
	switch value := claims[key].(type) {
	case bool:
		return value
	case string:
		return value == "true"
	}
	return false
}
