// Package oidc guards the admin surface of the storage server. The browse
// routes stay anonymous; only /admin (rebuild, reload, status) requires a
// verified Bearer token, checked against an OIDC issuer or a raw JWKS
// endpoint.
package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
)

// Config carries the token-verification settings for the admin routes.
// Either Issuer (discovery) or JWKSURL (direct key set) must be set.
type Config struct {
	// Issuer is the OIDC issuer URL. When set, JWKS and endpoints are
	// discovered from the issuer's well-known metadata.
	Issuer string

	// ClientID is the expected audience for presented tokens unless
	// Audience overrides it.
	ClientID string

	// Audience, when set, is the expected audience value. Use it when the
	// admin API is registered as its own resource audience.
	Audience string

	// JWKSURL points at a JWKS endpoint directly. With no Issuer set the
	// issuer claim is not checked.
	JWKSURL string
}

// Verifier validates Bearer tokens presented to the admin routes.
type Verifier struct {
	verifier *gooidc.IDTokenVerifier
}

// NewVerifier builds a Verifier from cfg, preferring issuer discovery over
// a direct JWKS endpoint when both are configured.
func NewVerifier(ctx context.Context, cfg Config) (*Verifier, error) {
	expectedAud := cfg.Audience
	if expectedAud == "" {
		expectedAud = cfg.ClientID
	}

	switch {
	case cfg.Issuer != "":
		provider, err := gooidc.NewProvider(ctx, cfg.Issuer)
		if err != nil {
			return nil, fmt.Errorf("oidc: provider discovery failed: %w", err)
		}
		return &Verifier{verifier: provider.Verifier(&gooidc.Config{
			ClientID: expectedAud,
		})}, nil
	case cfg.JWKSURL != "":
		ks := gooidc.NewRemoteKeySet(ctx, cfg.JWKSURL)
		return &Verifier{verifier: gooidc.NewVerifier(cfg.Issuer, ks, &gooidc.Config{
			ClientID: expectedAud,
		})}, nil
	default:
		return nil, errors.New("oidc: either Issuer or JWKSURL must be provided")
	}
}

// Subject is the verified identity attached to an admin request. Roles and
// Scopes feed the RBAC policy.
type Subject struct {
	Subject   string
	Issuer    string
	Audience  string
	ExpiresAt time.Time
	Roles     []string
	Scopes    []string
}

// Verify validates a raw Bearer token and extracts the subject fields.
// Roles are gathered from the flat "roles" claim and Keycloak's
// realm_access; scopes from "scope" (space separated) and "scp".
func (v *Verifier) Verify(ctx context.Context, rawToken string) (*Subject, error) {
	if v == nil || v.verifier == nil {
		return nil, errors.New("oidc: verifier not initialized")
	}
	idt, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("oidc: token verification failed: %w", err)
	}
	var claims struct {
		Exp         int64  `json:"exp"`
		Sub         string `json:"sub"`
		Iss         string `json:"iss"`
		Aud         any    `json:"aud"` // string or []string
		Roles       any    `json:"roles"`
		Scope       string `json:"scope"`
		Scp         any    `json:"scp"`
		RealmAccess struct {
			Roles []string `json:"roles"`
		} `json:"realm_access"`
	}
	if err := idt.Claims(&claims); err != nil {
		return nil, fmt.Errorf("oidc: parse claims: %w", err)
	}
	var aud string
	switch t := claims.Aud.(type) {
	case string:
		aud = t
	case []any:
		if len(t) > 0 {
			if s, ok := t[0].(string); ok {
				aud = s
			}
		}
	case []string:
		if len(t) > 0 {
			aud = t[0]
		}
	}
	roleSet := map[string]struct{}{}
	addRole := func(r string) {
		r = strings.TrimSpace(r)
		if r != "" {
			roleSet[r] = struct{}{}
		}
	}
	switch t := claims.Roles.(type) {
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok {
				addRole(s)
			}
		}
	case []string:
		for _, s := range t {
			addRole(s)
		}
	case string:
		addRole(t)
	}
	for _, r := range claims.RealmAccess.Roles {
		addRole(r)
	}
	var scopes []string
	addScopes := func(raw string) {
		for _, s := range strings.Split(raw, " ") {
			if s = strings.TrimSpace(s); s != "" {
				scopes = append(scopes, s)
			}
		}
	}
	addScopes(claims.Scope)
	switch t := claims.Scp.(type) {
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok {
				scopes = append(scopes, strings.TrimSpace(s))
			}
		}
	case []string:
		for _, s := range t {
			scopes = append(scopes, strings.TrimSpace(s))
		}
	case string:
		addScopes(t)
	}
	var roles []string
	for r := range roleSet {
		roles = append(roles, r)
	}

	return &Subject{
		Subject:   claims.Sub,
		Issuer:    claims.Iss,
		Audience:  aud,
		ExpiresAt: time.Unix(claims.Exp, 0).UTC(),
		Roles:     roles,
		Scopes:    scopes,
	}, nil
}

// VerifierIface lets tests and callers substitute a fake verifier.
type VerifierIface interface {
	Verify(ctx context.Context, rawToken string) (*Subject, error)
}

type contextKey string

const subjectContextKey contextKey = "oidcSubject"

// WithSubject stores the verified subject on the context for RBAC.
func WithSubject(ctx context.Context, s *Subject) context.Context {
	if s == nil {
		return ctx
	}
	return context.WithValue(ctx, subjectContextKey, s)
}

// SubjectFromContext returns the subject attached by Middleware, if any.
func SubjectFromContext(ctx context.Context) (*Subject, bool) {
	s, ok := ctx.Value(subjectContextKey).(*Subject)
	return s, ok
}

// Middleware enforces Bearer auth on the admin routes. Requests matching
// exempt pass through untouched. On success the verified subject lands on
// the request context and in the X-Admin-Subject response header; on
// failure the request stops with 401.
func Middleware(v VerifierIface, exempt func(*http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt != nil && exempt(r) {
				next.ServeHTTP(w, r)
				return
			}
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
			subj, err := v.Verify(r.Context(), raw)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := r.Context()
			if subj != nil {
				w.Header().Set("X-Admin-Subject", subj.Subject)
				ctx = WithSubject(ctx, subj)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
