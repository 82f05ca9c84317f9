package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt"
)

// Claims identify the caller by address in the "id" claim.
type Claims struct {
	ID string `json:"id"`
	jwt.StandardClaims
}

// Caller returns the address carried in the token.
func (c *Claims) Caller() (common.Address, error) {
	if !common.IsHexAddress(c.ID) {
		return common.Address{}, fmt.Errorf("invalid caller id %q", c.ID)
	}
	return common.HexToAddress(c.ID), nil
}

const (
	expireDuration = 7 * 24 * time.Hour
)

type AuthService struct {
	JWTSecret []byte
}

func NewAuthService(secret string) *AuthService {
	return &AuthService{
		JWTSecret: []byte(secret),
	}
}

func (a *AuthService) GenerateToken(id common.Address) (string, error) {
	expirationTime := time.Now().Add(expireDuration).Unix()
	claims := &Claims{
		ID: id.Hex(),
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: expirationTime,
			IssuedAt:  time.Now().Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.JWTSecret)
}

func (a *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.JWTSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}
	if _, err := claims.Caller(); err != nil {
		return nil, err
	}
	return claims, nil
}

func (a *AuthService) RefreshToken(oldToken string) (string, error) {
	claims, err := a.ValidateToken(oldToken)
	if err != nil {
		return "", err
	}
	caller, err := claims.Caller()
	if err != nil {
		return "", err
	}
	return a.GenerateToken(caller)
}
