package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/cobrancapro/cobranca-pro-go/internal/domain"
)

var authTracer = otel.Tracer("service/auth")

const bcryptCost = 12

// AuthService authenticates the single operator account. The tool is
// single-tenant; there is no user registry, just one configured credential.
type AuthService struct {
	user         string
	passwordHash []byte
	jwtSecret    []byte
	accessTTL    time.Duration
	logger       *zap.Logger
}

// LoginInput is the credential payload for POST /v1/auth/login.
type LoginInput struct {
	Usuario string `json:"usuario"`
	Senha   string `json:"senha"`
}

// LoginOutput carries the signed access token.
type LoginOutput struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
	Usuario     string `json:"usuario"`
}

// NewAuthService hashes the configured password and returns the service.
func NewAuthService(user, password, jwtSecret string, accessTTL time.Duration, logger *zap.Logger) (*AuthService, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash operator password: %w", err)
	}
	return &AuthService{
		user:         user,
		passwordHash: hash,
		jwtSecret:    []byte(jwtSecret),
		accessTTL:    accessTTL,
		logger:       logger,
	}, nil
}

// Login verifies the operator credential and signs an access token.
func (s *AuthService) Login(ctx context.Context, in *LoginInput) (*LoginOutput, error) {
	_, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	if in.Usuario != s.user {
		s.logger.Warn("login: usuário desconhecido", zap.String("usuario", in.Usuario))
		return nil, &domain.ErrNaoAutorizado{Message: "Credenciais inválidas"}
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(in.Senha)); err != nil {
		s.logger.Warn("login: senha incorreta", zap.String("usuario", in.Usuario))
		return nil, &domain.ErrNaoAutorizado{Message: "Credenciais inválidas"}
	}

	token, err := s.signAccessToken()
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	s.logger.Info("operador autenticado", zap.String("usuario", s.user))
	return &LoginOutput{
		AccessToken: token,
		ExpiresIn:   int(s.accessTTL.Seconds()),
		Usuario:     s.user,
	}, nil
}

// JWTClaims represents the custom claims in access tokens.
type JWTClaims struct {
	Sub  string `json:"sub"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// ValidateAccessToken parses and verifies a token, used by the middleware.
func (s *AuthService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrNaoAutorizado{Message: "Token inválido ou expirado"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrNaoAutorizado{Message: "Token inválido"}
	}
	if claims.Type != "access" {
		return nil, &domain.ErrNaoAutorizado{Message: "Tipo de token inválido"}
	}

	return claims, nil
}

func (s *AuthService) signAccessToken() (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Sub:  s.user,
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    "cobranca-api",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
