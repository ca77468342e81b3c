package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/authz"
)

var (
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrTokenExpired = errors.New("auth: token expired")
)

// TokenService は HS256 のアクセストークンを発行・検証します。sub はアカウント ID です。
type TokenService struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
}

// NewTokenService は TokenService を生成します。
func NewTokenService(signingKey, issuer string) *TokenService {
	return &TokenService{signingKey: []byte(signingKey), issuer: issuer, now: time.Now}
}

// Issue はアカウント ID を sub に持つトークンを発行します。
func (s *TokenService) Issue(accountID int64, expiresIn time.Duration) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(accountID, 10),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
	})
	return token.SignedString(s.signingKey)
}

// Verify はトークンを検証し、アカウント ID を返します。
func (s *TokenService) Verify(tokenString string) (int64, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return 0, ErrInvalidToken
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: subject %q", ErrInvalidToken, claims.Subject)
	}
	return id, nil
}

// AccountResolver はアカウント ID から権限スナップショットを構築します。
type AccountResolver interface {
	Resolve(ctx context.Context, accountID int64) (authz.Principal, error)
}

// Authenticator は Authorization ヘッダーからリクエストの Principal を決定します。
type Authenticator struct {
	tokens   *TokenService
	accounts AccountResolver
}

// NewAuthenticator は Authenticator を生成します。
func NewAuthenticator(tokens *TokenService, accounts AccountResolver) *Authenticator {
	return &Authenticator{tokens: tokens, accounts: accounts}
}

// Authenticate はヘッダー値を検証します。ヘッダーが無い、またはトークンが不正な場合は
// 未認証の Principal を返し、エラーはアカウントの読み込み失敗時のみ返します。
func (a *Authenticator) Authenticate(ctx context.Context, header string) (authz.Principal, error) {
	token, ok := BearerToken(header)
	if !ok {
		return authz.Anonymous(), nil
	}

	accountID, err := a.tokens.Verify(token)
	if err != nil {
		return authz.Anonymous(), nil
	}

	return a.accounts.Resolve(ctx, accountID)
}

// BearerToken は "Bearer <token>" 形式のヘッダーからトークンを取り出します。
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
