package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

const roleClaim = "role"

// FirebaseVerifier verifies Firebase ID tokens against a Firebase project.
type FirebaseVerifier struct {
	client *firebaseauth.Client
}

// NewFirebaseVerifier initialises the Firebase Admin SDK and returns a
// verifier bound to the configured project.
func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string) (*FirebaseVerifier, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, errors.New("auth: firebase project id is required")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("auth: initialise firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth: initialise firebase auth client: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

// Verify validates the raw ID token and maps its claims onto an Identity.
func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrTokenMissing
	}

	decoded, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		if firebaseauth.IsIDTokenExpired(err) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	identity := &Identity{
		UID:   decoded.UID,
		Roles: []string{RoleCustomer},
	}
	if email, ok := decoded.Claims["email"].(string); ok {
		identity.Email = email
	}
	if role, ok := decoded.Claims[roleClaim].(string); ok {
		role = strings.ToLower(strings.TrimSpace(role))
		if role != "" && !identity.HasRole(role) {
			identity.Roles = append(identity.Roles, role)
		}
	}
	return identity, nil
}
