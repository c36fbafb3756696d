// Package account registers stores and reports their subscription state.
package account

import (
	"context"
	"errors"
	"math"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Simplici0/decorquote/internal/auth"
	"github.com/Simplici0/decorquote/internal/seed"
	"github.com/Simplici0/decorquote/internal/store"
)

var (
	ErrCNPJTaken          = errors.New("account: cnpj already registered")
	ErrEmailTaken         = errors.New("account: e-mail already registered")
	ErrInvalidCredentials = errors.New("account: invalid credentials")
)

const minPasswordLen = 6

// ValidationError reports the first invalid registration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Registration is the sign-up form of a new store owner.
type Registration struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	UserName    string `json:"nome_usuario"`
	CompanyName string `json:"nome_empresa"`
	CNPJ        string `json:"cnpj"`
	Phone       string `json:"telefone"`
}

// Normalize trims every field, lowercases the e-mail and strips the CNPJ
// punctuation.
func (r Registration) Normalize() Registration {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.UserName = strings.TrimSpace(r.UserName)
	r.CompanyName = strings.TrimSpace(r.CompanyName)
	r.CNPJ = digits(r.CNPJ)
	r.Phone = strings.TrimSpace(r.Phone)
	return r
}

// Validate checks a normalized registration.
func (r Registration) Validate() error {
	if _, err := mail.ParseAddress(r.Email); err != nil || !strings.Contains(r.Email, "@") {
		return &ValidationError{Field: "email", Message: "E-mail inválido."}
	}
	if len([]rune(r.Password)) < minPasswordLen {
		return &ValidationError{Field: "password", Message: "A senha deve ter ao menos 6 caracteres."}
	}
	if len(r.Password) > auth.MaxPasswordBytes {
		return &ValidationError{Field: "password", Message: "A senha deve ter no máximo 72 caracteres."}
	}
	if len([]rune(r.UserName)) < 2 {
		return &ValidationError{Field: "nome_usuario", Message: "Informe o nome do usuário."}
	}
	if len([]rune(r.CompanyName)) < 2 {
		return &ValidationError{Field: "nome_empresa", Message: "Informe o nome da empresa."}
	}
	if len(r.CNPJ) != 14 {
		return &ValidationError{Field: "cnpj", Message: "CNPJ deve ter 14 dígitos."}
	}
	return nil
}

// Service registers and authenticates store owners.
type Service struct {
	st        *store.Store
	trialDays int
	now       func() time.Time
}

// NewService returns a Service granting trialDays of trial to new stores.
func NewService(st *store.Store, trialDays int) *Service {
	return &Service{st: st, trialDays: trialDays, now: time.Now}
}

// Register creates the company, its owner and its default option lists.
func (s *Service) Register(ctx context.Context, r Registration) (*store.Company, *store.User, error) {
	r = r.Normalize()
	if err := r.Validate(); err != nil {
		return nil, nil, err
	}

	_, err := s.st.CompanyByCNPJ(ctx, r.CNPJ)
	if err == nil {
		return nil, nil, ErrCNPJTaken
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, nil, err
	}
	if _, err := s.st.UserByEmail(ctx, r.Email); err == nil {
		return nil, nil, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, nil, err
	}

	hash, err := auth.HashPassword(r.Password)
	if err != nil {
		return nil, nil, eris.Wrap(err, "account: hash password")
	}

	var (
		company *store.Company
		user    *store.User
		n       int
	)
	err = s.st.WithTx(ctx, func(tx *store.Store) error {
		var err error
		company, err = tx.CreateCompany(ctx, store.Company{
			Name:        r.CompanyName,
			CNPJ:        r.CNPJ,
			Phone:       r.Phone,
			OwnerName:   r.UserName,
			OwnerEmail:  r.Email,
			TrialEndsAt: s.now().UTC().AddDate(0, 0, s.trialDays),
		})
		if errors.Is(err, store.ErrConflict) {
			return ErrCNPJTaken
		}
		if err != nil {
			return err
		}

		user, err = tx.CreateUser(ctx, store.User{
			StoreID:      company.ID,
			Email:        r.Email,
			Name:         r.UserName,
			PasswordHash: hash,
		})
		if errors.Is(err, store.ErrConflict) {
			return ErrEmailTaken
		}
		if err != nil {
			return err
		}

		n, err = seed.ApplyDefaults(ctx, tx, company.ID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	zap.L().Info("store registered",
		zap.String("store_id", company.ID),
		zap.String("cnpj", company.CNPJ),
		zap.Int("default_rows", n),
	)

	return company, user, nil
}

// Authenticate returns the user matching email and password.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*store.User, error) {
	u, err := s.st.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Status loads storeID and reports its subscription state.
func (s *Service) Status(ctx context.Context, storeID string) (Status, error) {
	c, err := s.st.GetCompany(ctx, storeID)
	if err != nil {
		return Status{}, err
	}
	return SubscriptionStatus(c, s.now()), nil
}

// SetSubscription records a subscription change made outside the app, such as
// a confirmed payment, and returns the resulting state.
func (s *Service) SetSubscription(ctx context.Context, storeID, status string, endsAt time.Time) (Status, error) {
	switch status {
	case store.SubscriptionActive:
		if !endsAt.After(s.now()) {
			return Status{}, &ValidationError{Field: "expira_em", Message: "A assinatura ativa deve terminar no futuro."}
		}
	case store.SubscriptionCanceled:
	default:
		return Status{}, &ValidationError{Field: "status", Message: "Status de assinatura inválido."}
	}

	if err := s.st.UpdateSubscription(ctx, storeID, status, endsAt.UTC()); err != nil {
		return Status{}, err
	}
	zap.L().Info("subscription updated",
		zap.String("store_id", storeID),
		zap.String("status", status),
		zap.Time("ends_at", endsAt),
	)
	return s.Status(ctx, storeID)
}

// Subscription states reported to clients.
const (
	StateTrial   = "trial"
	StateActive  = "active"
	StateExpired = "expired"
	StateNone    = "none"
)

// Status is the subscription state of a store at a point in time.
type Status struct {
	State         string    `json:"status"`
	DaysRemaining int       `json:"dias_restantes"`
	Expired       bool      `json:"expirado"`
	EndsAt        time.Time `json:"expira_em,omitzero"`
}

// SubscriptionStatus derives the state of c at now. Remaining days round up,
// so a trial ending in one hour still has 1 day left.
func SubscriptionStatus(c *store.Company, now time.Time) Status {
	var ends time.Time
	switch c.SubscriptionStatus {
	case store.SubscriptionTrial:
		ends = c.TrialEndsAt
	case store.SubscriptionActive:
		ends = c.SubscriptionEndsAt
	case store.SubscriptionCanceled:
		return Status{State: StateExpired, Expired: true, EndsAt: c.SubscriptionEndsAt}
	default:
		return Status{State: StateNone, Expired: true}
	}
	if ends.IsZero() {
		return Status{State: StateNone, Expired: true}
	}

	days := int(math.Ceil(ends.Sub(now).Hours() / 24))
	if days <= 0 {
		return Status{State: StateExpired, Expired: true, EndsAt: ends}
	}
	return Status{State: c.SubscriptionStatus, DaysRemaining: days, EndsAt: ends}
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
