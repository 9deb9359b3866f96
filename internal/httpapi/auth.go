package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/MarkoPoloResearchLab/motocare/pkg/booking"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	callerContextKey  = "booking_caller"
	bearerPrefix      = "bearer "
	roleAdmin         = "ADMIN"
	errorCodeUnauth   = "unauthorized"
	errorCodeForbid   = "forbidden"
	messageNoToken    = "missing bearer token"
	messageBadToken   = "invalid token"
	messageAdminsOnly = "admin role required"
)

var errMissingSubject = errors.New("token has no subject")

// sessionClaims is the token the hosting application issues for a signed-in user.
type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func authMiddleware(signingKey []byte, issuer string) gin.HandlerFunc {
	parserOptions := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(parserOptions...)
	keyFunc := func(*jwt.Token) (interface{}, error) { return signingKey, nil }

	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errorCodeUnauth, messageNoToken))
			return
		}
		claims := &sessionClaims{}
		if _, err := parser.ParseWithClaims(strings.TrimSpace(header[len(bearerPrefix):]), claims, keyFunc); err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errorCodeUnauth, messageBadToken))
			return
		}
		caller, err := callerFromClaims(claims)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errorCodeUnauth, messageBadToken))
			return
		}
		ctx.Set(callerContextKey, caller)
		ctx.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		caller, ok := callerFrom(ctx)
		if !ok || !caller.Admin {
			ctx.AbortWithStatusJSON(http.StatusForbidden, errorResponse(errorCodeForbid, messageAdminsOnly))
			return
		}
		ctx.Next()
	}
}

func callerFromClaims(claims *sessionClaims) (booking.Caller, error) {
	if strings.TrimSpace(claims.Subject) == "" {
		return booking.Caller{}, errMissingSubject
	}
	userID, err := booking.NewUserID(claims.Subject)
	if err != nil {
		return booking.Caller{}, err
	}
	return booking.Caller{
		UserID: userID,
		Admin:  strings.EqualFold(strings.TrimSpace(claims.Role), roleAdmin),
	}, nil
}

func callerFrom(ctx *gin.Context) (booking.Caller, bool) {
	value, ok := ctx.Get(callerContextKey)
	if !ok {
		return booking.Caller{}, false
	}
	caller, ok := value.(booking.Caller)
	return caller, ok
}
