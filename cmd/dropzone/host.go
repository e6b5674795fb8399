package main

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tendant/simple-dropzone/pkg/dropzone"
)

// hostFlags describe the host application the CLI stands in for
type hostFlags struct {
	domain      string
	sitePath    string
	channel     string
	entity      string
	notEmbedded bool

	token     string
	devSecret string
	subject   string
	name      string
	tokenTTL  time.Duration
}

func (f hostFlags) host() *dropzone.StaticHost {
	h := &dropzone.StaticHost{
		Embedded: !f.notEmbedded,
		HostContext: dropzone.HostContext{
			EntityID:    f.entity,
			SiteDomain:  f.domain,
			SitePath:    f.sitePath,
			ChannelName: f.channel,
		},
		Token: f.token,
	}
	if f.token == "" && f.devSecret != "" {
		h.TokenFunc = func(_ context.Context, resource string) (string, error) {
			return mintDevToken(f.devSecret, resource, f.subject, f.name, f.tokenTTL)
		}
	}
	return h
}

// mintDevToken signs an HS256 token the reference upload server accepts
// when it runs with the same JWT_SECRET.
func mintDevToken(secret, audience, subject, name string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"aud": audience,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if name != "" {
		claims["name"] = name
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", &dropzone.TokenError{Reason: dropzone.ReasonOther, Message: fmt.Sprintf("failed to sign token: %v", err)}
	}
	return token, nil
}
