package firebase

import (
	"context"
	"fmt"
	"log"
	"os"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// App holds the initialized Firebase app and its service clients
type App struct {
	FirebaseApp     *firebase.App
	AuthClient      *auth.Client
	MessagingClient *messaging.Client
	Bucket          *gcs.BucketHandle
	BucketName      string
}

// InitFirebase initializes the Firebase application with auth, messaging,
// and storage clients
func InitFirebase(ctx context.Context, credentialsPath, bucketName string) (*App, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("Firebase credentials path not provided")
	}

	// Check if the credentials file exists
	if _, err := os.Stat(credentialsPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("Firebase credentials file not found at %s", credentialsPath)
	}

	opt := option.WithCredentialsFile(credentialsPath)

	firebaseApp, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: bucketName}, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase auth client: %w", err)
	}

	messagingClient, err := firebaseApp.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase messaging client: %w", err)
	}

	storageClient, err := firebaseApp.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase storage client: %w", err)
	}
	bucket, err := storageClient.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("error getting default storage bucket: %w", err)
	}

	log.Println("Firebase app and service clients initialized successfully!")
	return &App{
		FirebaseApp:     firebaseApp,
		AuthClient:      authClient,
		MessagingClient: messagingClient,
		Bucket:          bucket,
		BucketName:      bucketName,
	}, nil
}

// UploadImage writes the image bytes to the bucket and makes the object
// publicly readable. Returns the public URL of the object.
func (a *App) UploadImage(ctx context.Context, blobName string, data []byte) (string, error) {
	obj := a.Bucket.Object(blobName)
	w := obj.NewWriter(ctx)
	w.ContentType = "image/jpeg"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("error writing object %s: %w", blobName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("error finalizing object %s: %w", blobName, err)
	}
	if err := obj.ACL().Set(ctx, gcs.AllUsers, gcs.RoleReader); err != nil {
		return "", fmt.Errorf("error setting ACL on object %s: %w", blobName, err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", a.BucketName, blobName), nil
}

// MakeObjectPrivate revokes public read access to an object.
func (a *App) MakeObjectPrivate(ctx context.Context, blobName string) error {
	return a.Bucket.Object(blobName).ACL().Delete(ctx, gcs.AllUsers)
}

// MakeObjectPublic restores public read access to an object.
func (a *App) MakeObjectPublic(ctx context.Context, blobName string) error {
	return a.Bucket.Object(blobName).ACL().Set(ctx, gcs.AllUsers, gcs.RoleReader)
}

// DeleteObject removes an object from the bucket.
func (a *App) DeleteObject(ctx context.Context, blobName string) error {
	return a.Bucket.Object(blobName).Delete(ctx)
}

// GetPhoneNumber looks up the phone number registered for a Firebase user.
func (a *App) GetPhoneNumber(ctx context.Context, uid string) (string, error) {
	user, err := a.AuthClient.GetUser(ctx, uid)
	if err != nil {
		return "", fmt.Errorf("error looking up firebase user %s: %w", uid, err)
	}
	return user.PhoneNumber, nil
}
