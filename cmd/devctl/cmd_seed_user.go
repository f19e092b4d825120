package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"golang.org/x/crypto/bcrypt"

	"github.com/bizmatters/deviation-service/internal/audit"
)

const (
	// MinPasswordLength is the minimum password length requirement
	MinPasswordLength = 8
	// BcryptCost is the cost factor for bcrypt hashing (10 = ~100ms)
	BcryptCost = 10
)

var (
	emailRegex  = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	hasLetter   = regexp.MustCompile(`[a-zA-Z]`)
	hasNumber   = regexp.MustCompile(`[0-9]`)
	validRoles  = map[string]bool{"user": true, "admin": true}
	errNoDBFlag = errors.New("DATABASE_URL is not set and --database-url was not given")
)

type seedUserFlags struct {
	name        string
	email       string
	password    string
	roles       string
	databaseURL string
}

func newSeedUserCmd() *cobra.Command {
	var f seedUserFlags
	cmd := &cobra.Command{
		Use:   "seed-user",
		Short: "Create a login user",
		Long: "Creates a user with a bcrypt-hashed password. The users table is\n" +
			"created first if it does not exist.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			roles := splitList(f.roles)
			if err := validateUser(f.name, f.email, f.password, roles); err != nil {
				return fmt.Errorf("validation error: %w", err)
			}
			url := f.databaseURL
			if url == "" {
				url = os.Getenv("DATABASE_URL")
			}
			if url == "" {
				return errNoDBFlag
			}

			ctx := cmd.Context()
			pool, err := pgxpool.New(ctx, url)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()
			if err := pool.Ping(ctx); err != nil {
				return fmt.Errorf("failed to ping database: %w", err)
			}
			if err := audit.NewPostgresRecorder(pool).EnsureSchema(ctx); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}

			id, err := createUser(ctx, pool, f.name, f.email, f.password, roles)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Successfully created user")
			fmt.Fprintf(out, "  ID:    %s\n", id)
			fmt.Fprintf(out, "  Name:  %s\n", f.name)
			fmt.Fprintf(out, "  Email: %s\n", normalizeEmail(f.email))
			fmt.Fprintf(out, "  Roles: %s\n", strings.Join(roles, ", "))
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.name, "name", "", "Full name of the user (required)")
	fl.StringVar(&f.email, "email", "", "Email address (required)")
	fl.StringVar(&f.password, "password", "", "Password (required, min 8 chars)")
	fl.StringVar(&f.roles, "roles", "user", "Comma-separated roles: user, admin")
	fl.StringVar(&f.databaseURL, "database-url", "", "PostgreSQL URL (defaults to $DATABASE_URL)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// validateUser validates user input according to security requirements
func validateUser(name, email, password string, roles []string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name is required and cannot be empty")
	}
	if !emailRegex.MatchString(strings.TrimSpace(email)) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}
	if !hasLetter.MatchString(password) || !hasNumber.MatchString(password) {
		return errors.New("password must contain at least one letter and one number")
	}
	if len(roles) == 0 {
		return errors.New("at least one role is required")
	}
	for _, r := range roles {
		if !validRoles[r] {
			return fmt.Errorf("unknown role %q; valid roles: user, admin", r)
		}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// createUser creates a new user with hashed password using pgx transaction
func createUser(ctx context.Context, pool *pgxpool.Pool, name, email, password string, roles []string) (string, error) {
	ctx, span := otel.Tracer("devctl").Start(ctx, "seed_user.create")
	defer span.End()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id string
	err = tx.QueryRow(ctx,
		`INSERT INTO users (id, name, email, hashed_password, roles)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		uuid.New(), strings.TrimSpace(name), normalizeEmail(email), string(hashed), roles,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", fmt.Errorf("user with email %s already exists", email)
		}
		span.RecordError(err)
		return "", fmt.Errorf("failed to insert user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}
