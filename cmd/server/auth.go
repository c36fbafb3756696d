package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Simplici0/decorquote/internal/account"
	"github.com/Simplici0/decorquote/internal/auth"
)

// devSecret signs tokens when no secret is configured. config.Warnings
// reports that case at startup.
const devSecret = "decorquote-dev-secret"

type ctxKey int

const claimsKey ctxKey = iota

type authService struct {
	accounts *account.Service
	signer   *auth.Signer
}

func newAuthService(accounts *account.Service, secret string, ttl time.Duration) *authService {
	if secret == "" {
		secret = devSecret
	}
	return &authService{accounts: accounts, signer: auth.NewSigner(secret, ttl)}
}

// middleware requires a valid "Authorization: Bearer <token>" header and
// stores the token claims in the request context.
func (a *authService) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Token necessário.")
			return
		}
		claims, err := a.signer.Verify(token)
		if errors.Is(err, auth.ErrExpiredToken) {
			writeError(w, http.StatusUnauthorized, "Sessão expirada. Entre novamente.")
			return
		}
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Token inválido.")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// storeID returns the store the authenticated request is scoped to.
func storeID(r *http.Request) string {
	claims, _ := r.Context().Value(claimsKey).(auth.Claims)
	return claims.StoreID
}

type tokenResponse struct {
	Message string `json:"mensagem,omitempty"`
	Token   string `json:"token"`
	StoreID string `json:"loja_id"`
}

func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg account.Registration
	if !decodeJSON(w, r, &reg) {
		return
	}

	company, user, err := s.accounts.Register(r.Context(), reg)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	token, err := s.auth.signer.Issue(company.ID, user.Email)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{Message: "Conta criada!", Token: token, StoreID: company.ID})
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	token, err := s.auth.signer.Issue(user.StoreID, user.Email)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, StoreID: user.StoreID})
}
