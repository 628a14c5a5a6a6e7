package auth

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/adorable-labs/adorable-backend/config"
)

// FirebaseVerifier implements Verifier on top of the Firebase Admin SDK.
type FirebaseVerifier struct {
	client *fbauth.Client
}

// InitializeFirebase initializes the Firebase Admin SDK and returns a Verifier
// backed by its Auth client.
func InitializeFirebase(cfg *config.FirebaseConfig) (*FirebaseVerifier, error) {
	if cfg.CredentialsPath == "" {
		return nil, fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required")
	}

	opt := option.WithCredentialsFile(cfg.CredentialsPath)
	app, err := firebase.NewApp(context.Background(), nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	authClient, err := app.Auth(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get Auth client: %w", err)
	}

	return &FirebaseVerifier{client: authClient}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, accessToken string) (string, error) {
	decoded, err := v.client.VerifyIDToken(ctx, accessToken)
	if err != nil {
		return "", err
	}
	return decoded.UID, nil
}
