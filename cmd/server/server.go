package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Simplici0/decorquote/internal/account"
	"github.com/Simplici0/decorquote/internal/catalog"
	"github.com/Simplici0/decorquote/internal/config"
	"github.com/Simplici0/decorquote/internal/pricing"
	"github.com/Simplici0/decorquote/internal/store"
)

const (
	msgInternal     = "Ocorreu um erro interno no servidor. Tente novamente mais tarde."
	msgNotFound     = "Não encontrado."
	msgInvalidBody  = "Corpo da requisição inválido."
	msgRateLimited  = "Muitos pedidos. Tente mais tarde."
	msgAuthAttempts = "Muitas tentativas seguidas. Aguarde 15 minutos."

	maxBodyBytes = 2 << 20
	maxXLSXBytes = 10 << 20
)

type server struct {
	store    *store.Store
	catalog  *catalog.Cache
	accounts *account.Service
	auth     *authService
	pricing  pricing.Config
	origins  []string
	proxied  bool
	limiter  *ipLimiter
	attempts *ipLimiter
	log      *zap.Logger
}

func newServer(st *store.Store, c *config.Config, log *zap.Logger) *server {
	accounts := account.NewService(st, c.Account.TrialDays)
	return &server{
		store:    st,
		catalog:  catalog.NewCache(catalog.NewLoader(st), c.Catalog.CacheTTL),
		accounts: accounts,
		auth:     newAuthService(accounts, c.Auth.SessionSecret, c.Auth.TokenTTL),
		pricing:  c.PricingConfig(),
		origins:  c.Server.AllowedOrigins,
		proxied:  c.Server.TrustProxy,
		limiter:  newIPLimiter(c.Server.RateLimit, msgRateLimited),
		attempts: newIPLimiter(c.Server.AuthRateLimit, msgAuthAttempts),
		log:      log,
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.proxied {
		r.Use(middleware.RealIP)
	}
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.middleware)

		r.With(s.attempts.middleware).Post("/register", s.handleRegister)
		r.With(s.attempts.middleware).Post("/login", s.handleLogin)

		r.Route("/api", func(r chi.Router) {
			r.Use(s.auth.middleware)

			r.Post("/calcular", s.handleCalculate)

			r.Get("/dados-base", s.handleBaseData)
			r.Put("/dados-base/{table}", s.handleReplaceBaseData)
			r.Get("/tecidos/xlsx", s.handleExportFabrics)
			r.Post("/tecidos/xlsx", s.handleImportFabrics)
			r.Delete("/tecidos/{name}", s.handleDeleteFabric)

			r.Get("/opcoes", s.handleOptions)
			r.Post("/opcoes", s.handleAddOptions)

			r.Get("/orcamentos", s.handleListQuotes)
			r.Route("/orcamentos/{clientID}", func(r chi.Router) {
				r.Get("/", s.handleGetQuote)
				r.Put("/", s.handlePutQuote)
				r.Delete("/", s.handleDeleteQuote)
				r.Get("/resumo", s.handleQuoteSummary)
				r.Get("/texto", s.handleQuoteText)
				r.Get("/xlsx", s.handleQuoteXLSX)
			})

			r.Get("/config/taxas", s.handleGetFees)
			r.Post("/config/taxas", s.handlePutFees)

			r.Get("/assinatura", s.handleSubscription)
		})
	})

	return r
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Online."))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"erro": msg})
}

// fail maps err to a status code. Unexpected errors are logged and answered
// with a generic message.
func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ve *account.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, account.ErrCNPJTaken):
		writeError(w, http.StatusConflict, "CNPJ já cadastrado.")
	case errors.Is(err, account.ErrEmailTaken):
		writeError(w, http.StatusConflict, "E-mail já cadastrado.")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "Registro duplicado.")
	case errors.Is(err, account.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "E-mail ou senha inválidos.")
	default:
		s.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

// decodeJSON reads a JSON body of at most maxBodyBytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	return true
}
