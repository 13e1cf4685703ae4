package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang-jwt/jwt/v5/request"
	"github.com/google/uuid"
	"github.com/programme-lv/ojcore/httpjson"
	"github.com/programme-lv/ojcore/srvcerror"
)

const (
	// RoleJudge is held by judge workers. Their subject is the judge uid
	// stamped on claims.
	RoleJudge = "judge"
	// RoleOperator may rejudge, run system tests and export code.
	RoleOperator = "operator"
	RoleUser     = "user"
)

type JwtClaims struct {
	Username string   `json:"username,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

func (c *JwtClaims) HasRole(role string) bool {
	return c != nil && slices.Contains(c.Roles, role)
}

// UserID parses the subject as a user uuid.
func (c *JwtClaims) UserID() (uuid.UUID, error) {
	if c == nil {
		return uuid.Nil, errors.New("no claims")
	}
	return uuid.Parse(c.Subject)
}

type ClaimsKeyType string

var CtxJwtClaimsKey ClaimsKeyType = "jwtClaims"

// ClaimsFromContext returns nil for anonymous requests.
func ClaimsFromContext(ctx context.Context) *JwtClaims {
	claims, _ := ctx.Value(CtxJwtClaimsKey).(*JwtClaims)
	return claims
}

func GenerateJWT(subject, username string, roles []string, ttl time.Duration, jwtKey []byte) (string, error) {
	claims := &JwtClaims{
		Username: username,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

func ValidateJWT(tokenStr string, jwtKey []byte) (*JwtClaims, error) {
	claims := &JwtClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return jwtKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return nil, errors.New("invalid token signature")
		}
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func errInvalidToken() *srvcerror.Error {
	return srvcerror.New("invalid_token", "missing or invalid bearer token").
		SetHttpStatusCode(http.StatusUnauthorized)
}

func errMissingRole(role string) *srvcerror.Error {
	return srvcerror.Forbidden("missing_role", "requires role "+role)
}

// GetJwtAuthMiddleware validates JWT token and adds the claims to the request
// context. Requests without a token pass through anonymously.
func GetJwtAuthMiddleware(jwtKey []byte) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, err := request.BearerExtractor{}.ExtractToken(r)
			if err != nil {
				if errors.Is(err, request.ErrNoTokenInRequest) {
					ctx := context.WithValue(r.Context(), CtxJwtClaimsKey, (*JwtClaims)(nil))
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				httpjson.WriteError(w, r, errInvalidToken().SetDebug(err))
				return
			}

			claims, err := ValidateJWT(token, jwtKey)
			if err != nil {
				httpjson.WriteError(w, r, errInvalidToken().SetDebug(err))
				return
			}

			ctx := context.WithValue(r.Context(), CtxJwtClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(hfn)
	}
}

// RequireRole rejects requests whose claims lack role.
func RequireRole(role string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				httpjson.WriteError(w, r, errInvalidToken())
				return
			}
			if !claims.HasRole(role) {
				httpjson.WriteError(w, r, errMissingRole(role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
