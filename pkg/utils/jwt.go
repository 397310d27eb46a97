package utils

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/maheshrc27/postcast/internal/transfer"
)

var ErrInvalidToken = errors.New("invalid token")

// UserIDFromToken verifies an HS256 session token and returns the numeric
// user id it was issued for. Tokens without an expiry are refused.
func UserIDFromToken(secretKey, tokenString string) (int64, error) {
	var claims transfer.CustomClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		slog.Info(err.Error())
		return 0, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("%w: bad user id %q", ErrInvalidToken, claims.UserID)
	}
	return userID, nil
}
