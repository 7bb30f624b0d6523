package config

import (
	"os"
	"time"
)

// Server captures process-level configuration so main stays lean.
type Server struct {
	Addr            string
	DatabaseURL     string
	JWTSigningKey   string
	TokenTTL        time.Duration
	InstitutionName string

	// Seed credentials for the initial super admin. Only used when the
	// admin store is empty at startup.
	SeedAdminEmail  string
	SeedAdminSecret string
	SeedAdminName   string
	SeedAdminDept   string
}

const defaultTokenTTL = 24 * time.Hour

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("CERTIS_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	tokenTTL := defaultTokenTTL
	if ttlStr := os.Getenv("TOKEN_TTL"); ttlStr != "" {
		if duration, err := time.ParseDuration(ttlStr); err == nil && duration > 0 {
			tokenTTL = duration
		}
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	institution := os.Getenv("INSTITUTION_NAME")
	if institution == "" {
		institution = "Certis Institute"
	}

	return Server{
		Addr:            addr,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		JWTSigningKey:   jwtSigningKey,
		TokenTTL:        tokenTTL,
		InstitutionName: institution,
		SeedAdminEmail:  os.Getenv("SEED_ADMIN_EMAIL"),
		SeedAdminSecret: os.Getenv("SEED_ADMIN_SECRET"),
		SeedAdminName:   os.Getenv("SEED_ADMIN_NAME"),
		SeedAdminDept:   os.Getenv("SEED_ADMIN_DEPARTMENT"),
	}
}
