package auth

import (
	"context"

	"github.com/mmynk/splitwiser/internal/models"
)

// Authenticator verifies who a ledger user is.
// Implementations decide the credential format; the ledger only ever sees
// the resulting user ID.
type Authenticator interface {
	// Register creates a new user account with the given email and credential.
	// Returns ErrEmailExists when the email is taken.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate verifies the user's credentials.
	// Returns ErrInvalidCredentials for an unknown email or a wrong credential.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// User looks up an account by ID.
	User(ctx context.Context, userID string) (*models.User, error)
}
