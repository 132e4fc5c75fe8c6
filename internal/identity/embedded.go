package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type credentialRow struct {
	UID          string    `gorm:"column:uid;primaryKey"`
	Email        string    `gorm:"column:email;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash"`
	Name         string    `gorm:"column:name"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (credentialRow) TableName() string { return "identity_credentials" }

// EmbeddedProvider is a self-hosted identity backend for local and seed
// deployments: credentials in SQL, bcrypt hashes, uuid ids. Production
// points at the remote service via HTTPProvider instead.
type EmbeddedProvider struct {
	db *gorm.DB
}

func NewEmbeddedProvider(db *gorm.DB) *EmbeddedProvider {
	return &EmbeddedProvider{db: db}
}

func (p *EmbeddedProvider) Migrate() error {
	return p.db.AutoMigrate(&credentialRow{})
}

func (p *EmbeddedProvider) Create(ctx context.Context, email, password string) (*Identity, error) {
	email = normalizeEmail(email)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	row := credentialRow{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrExists
		}
		return nil, fmt.Errorf("identity create: %w", err)
	}

	return &Identity{UID: row.UID, Email: row.Email, Name: row.Name}, nil
}

func (p *EmbeddedProvider) Login(ctx context.Context, email, password string) (*Identity, error) {
	var row credentialRow
	err := p.db.WithContext(ctx).
		Where("email = ?", normalizeEmail(email)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBadCredential
		}
		return nil, fmt.Errorf("identity login: %w", err)
	}

	if row.PasswordHash == "" {
		// Federated-only account; no password to check against.
		return nil, ErrBadCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)); err != nil {
		return nil, ErrBadCredential
	}

	return &Identity{UID: row.UID, Email: row.Email, Name: row.Name}, nil
}

// FederatedSignIn accepts an upstream ID token, takes its email/name claims
// and provisions the credential row on first sight. The embedded backend
// does not verify the upstream signature; it exists for local stacks where
// the token was minted by the dev tooling itself.
func (p *EmbeddedProvider) FederatedSignIn(ctx context.Context, idToken string) (*Identity, error) {
	claims := jwtlib.MapClaims{}
	parser := jwtlib.NewParser()
	if _, _, err := parser.ParseUnverified(idToken, claims); err != nil {
		return nil, ErrBadToken
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return nil, ErrBadToken
	}
	email = normalizeEmail(email)
	name, _ := claims["name"].(string)

	var row credentialRow
	err := p.db.WithContext(ctx).Where("email = ?", email).First(&row).Error
	switch {
	case err == nil:
		return &Identity{UID: row.UID, Email: row.Email, Name: row.Name}, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = credentialRow{
			UID:       uuid.NewString(),
			Email:     email,
			Name:      name,
			CreatedAt: time.Now(),
		}
		if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				// Lost the race to a concurrent federated sign-in.
				if err := p.db.WithContext(ctx).Where("email = ?", email).First(&row).Error; err != nil {
					return nil, fmt.Errorf("identity federated: %w", err)
				}
				return &Identity{UID: row.UID, Email: row.Email, Name: row.Name}, nil
			}
			return nil, fmt.Errorf("identity federated: %w", err)
		}
		return &Identity{UID: row.UID, Email: row.Email, Name: row.Name}, nil
	default:
		return nil, fmt.Errorf("identity federated: %w", err)
	}
}

func (p *EmbeddedProvider) SignOut(ctx context.Context, uid string) error {
	// The embedded backend issues no server-side sessions.
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// sqlite reports constraint violations as plain errors
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
