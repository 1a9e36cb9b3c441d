package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/MarkoPoloResearchLab/voyages/pkg/booking"
)

const (
	actorContextKey = "booking_actor"
	bearerPrefix    = "Bearer "
)

var (
	// ErrInvalidToken indicates a bearer token that failed verification.
	ErrInvalidToken = errors.New("invalid bearer token")
	// ErrInvalidTokenConfig indicates a missing signing key.
	ErrInvalidTokenConfig = errors.New("invalid token authority config")
)

// Claims carries the identity of a signed-in user.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenAuthority signs and verifies HS256 bearer tokens.
type TokenAuthority struct {
	signingKey []byte
	issuer     string
	nowFn      func() time.Time
}

// NewTokenAuthority builds a TokenAuthority. An empty issuer disables the issuer check.
func NewTokenAuthority(signingKey string, issuer string) (*TokenAuthority, error) {
	if strings.TrimSpace(signingKey) == "" {
		return nil, fmt.Errorf("%w: signing key is empty", ErrInvalidTokenConfig)
	}
	return &TokenAuthority{
		signingKey: []byte(signingKey),
		issuer:     strings.TrimSpace(issuer),
		nowFn:      time.Now,
	}, nil
}

// Issue signs a token for actor that expires after ttl.
func (authority *TokenAuthority) Issue(actor booking.Actor, ttl time.Duration) (string, error) {
	now := authority.nowFn().UTC()
	claims := Claims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID.String(),
			Issuer:    authority.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(authority.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses raw and returns the actor it identifies.
func (authority *TokenAuthority) Verify(raw string) (booking.Actor, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(authority.nowFn),
	}
	if authority.issuer != "" {
		options = append(options, jwt.WithIssuer(authority.issuer))
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return authority.signingKey, nil
	}, options...)
	if err != nil {
		return booking.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	userID, err := booking.NewUserID(claims.Subject)
	if err != nil {
		return booking.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	role, err := booking.ParseRole(claims.Role)
	if err != nil {
		return booking.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return booking.Actor{ID: userID, Role: role}, nil
}

func authenticate(authority *TokenAuthority) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		raw, ok := strings.CutPrefix(ctx.GetHeader("Authorization"), bearerPrefix)
		if !ok || strings.TrimSpace(raw) == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing bearer token"))
			return
		}
		actor, err := authority.Verify(strings.TrimSpace(raw))
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", ErrInvalidToken.Error()))
			return
		}
		ctx.Set(actorContextKey, actor)
		ctx.Next()
	}
}

// requireRoles admits only actors holding one of roles.
func requireRoles(roles ...booking.Role) gin.HandlerFunc {
	allowed := make(map[booking.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(ctx *gin.Context) {
		actor, ok := actorFrom(ctx)
		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing bearer token"))
			return
		}
		if _, permitted := allowed[actor.Role]; !permitted {
			ctx.AbortWithStatusJSON(http.StatusForbidden, errorResponse(string(booking.KindForbidden), booking.ErrForbidden.Error()))
			return
		}
		ctx.Next()
	}
}

func actorFrom(ctx *gin.Context) (booking.Actor, bool) {
	value, ok := ctx.Get(actorContextKey)
	if !ok {
		return booking.Actor{}, false
	}
	actor, ok := value.(booking.Actor)
	return actor, ok
}
