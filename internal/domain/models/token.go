package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/caronahq/carona-system/pkg/uuid"
)

const (
	AccessToken  = "access"
	RefreshToken = "refresh"
)

func IsValidTokenType(typ string) bool {
	return typ == AccessToken || typ == RefreshToken
}

type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type CustomClaims struct {
	TokenID   uuid.UUID
	TokenType string
	Email     string
	Role      string
	jwt.RegisteredClaims
}
