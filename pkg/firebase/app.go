package firebase

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Clients holds the Firebase handles built once at startup and shared by
// every component.
type Clients struct {
	App       *firebase.App
	Auth      *auth.Client
	Firestore *firestore.Client
	Messaging *messaging.Client
}

// NewClients initializes the Firebase app and its service clients.
// databaseID selects a named Firestore database; empty uses the default one.
func NewClients(ctx context.Context, projectID, credentialsFile, databaseID string, log *zap.Logger) (*Clients, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	var fbConfig *firebase.Config
	if projectID != "" {
		fbConfig = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get auth client: %w", err)
	}

	var fs *firestore.Client
	if databaseID != "" {
		fs, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	} else {
		fs, err = app.Firestore(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get firestore client: %w", err)
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		_ = fs.Close()
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	log.Info("firebase clients initialized",
		zap.String("project_id", projectID),
		zap.String("firestore_database", databaseID))

	return &Clients{
		App:       app,
		Auth:      authClient,
		Firestore: fs,
		Messaging: messagingClient,
	}, nil
}

func (c *Clients) Close() error {
	if c.Firestore != nil {
		return c.Firestore.Close()
	}
	return nil
}
