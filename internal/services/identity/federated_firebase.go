package identity

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// FirebaseTokenVerifier verifies Firebase ID tokens with the Admin SDK,
// which caches Google's signing certificates.
type FirebaseTokenVerifier struct {
	client *fbauth.Client
}

// NewFirebaseTokenVerifier initializes a Firebase app for projectID.
// credentialsFile may be empty: ID token verification needs no service
// account, only the project id.
func NewFirebaseTokenVerifier(ctx context.Context, projectID, credentialsFile string) (*FirebaseTokenVerifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase auth client: %w", err)
	}
	return &FirebaseTokenVerifier{client: client}, nil
}

// VerifyToken implements TokenVerifier.
func (f *FirebaseTokenVerifier) VerifyToken(ctx context.Context, token string) (map[string]any, error) {
	tok, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, err
	}

	claims := make(map[string]any, len(tok.Claims)+1)
	for k, v := range tok.Claims {
		claims[k] = v
	}
	claims["sub"] = tok.UID
	return claims, nil
}

// IsTransient implements TokenVerifier.
func (f *FirebaseTokenVerifier) IsTransient(err error) bool {
	return fbauth.IsCertificateFetchFailed(err)
}
