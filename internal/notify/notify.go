package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/placemark-app/backend/internal/models"
	"github.com/placemark-app/backend/internal/repositories"
)

const sendTimeout = 10 * time.Second

// Messenger is the subset of the FCM client the notifier needs.
// *messaging.Client satisfies it.
type Messenger interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// Notifier sends push notifications for social events. Delivery is best
// effort: failures are logged and the triggering request is never failed.
type Notifier struct {
	messenger Messenger
	tokenRepo repositories.TokenRepository
	userRepo  repositories.UserRepository
}

// NewNotifier creates a new Notifier.
func NewNotifier(messenger Messenger, tokenRepo repositories.TokenRepository, userRepo repositories.UserRepository) *Notifier {
	return &Notifier{messenger: messenger, tokenRepo: tokenRepo, userRepo: userRepo}
}

// NotifyFollowed tells a user they have a new follower.
func (n *Notifier) NotifyFollowed(userID uint, follower *models.User) {
	n.send(userID, func(prefs *models.UserPrefs) bool { return prefs.FollowNotifications },
		fmt.Sprintf("%s started following you", follower.Username))
}

// NotifyPostLiked tells a post's author someone liked it.
func (n *Notifier) NotifyPostLiked(post *models.Post, liker *models.User) {
	if post.UserID == liker.ID {
		return
	}
	n.send(post.UserID, func(prefs *models.UserPrefs) bool { return prefs.PostLikedNotifications },
		fmt.Sprintf("%s likes your post about %s", liker.Username, post.Place.Name))
}

// NotifyPostSaved tells a post's author someone saved it.
func (n *Notifier) NotifyPostSaved(post *models.Post, saver *models.User) {
	if post.UserID == saver.ID {
		return
	}
	n.send(post.UserID, func(prefs *models.UserPrefs) bool { return prefs.PostLikedNotifications },
		fmt.Sprintf("%s saved your post about %s", saver.Username, post.Place.Name))
}

// NotifyComment tells a post's author someone commented on it.
func (n *Notifier) NotifyComment(post *models.Post, commenter *models.User, content string) {
	if post.UserID == commenter.ID {
		return
	}
	n.send(post.UserID, func(prefs *models.UserPrefs) bool { return prefs.CommentNotifications },
		fmt.Sprintf("%s commented on your post about %s: \"%s\"", commenter.Username, post.Place.Name, content))
}

// NotifyCommentLiked tells a comment's author someone liked it.
func (n *Notifier) NotifyCommentLiked(comment *models.Comment, liker *models.User) {
	if comment.UserID == liker.ID {
		return
	}
	n.send(comment.UserID, func(prefs *models.UserPrefs) bool { return prefs.CommentLikedNotifications },
		fmt.Sprintf("%s likes your comment", liker.Username))
}

func (n *Notifier) send(userID uint, enabled func(*models.UserPrefs) bool, body string) {
	prefs, err := n.userRepo.GetPreferences(userID)
	if err != nil {
		log.Printf("Failed to load preferences for user %d: %v", userID, err)
		return
	}
	if !enabled(prefs) {
		return
	}

	tokens, err := n.tokenRepo.GetTokensForUser(userID)
	if err != nil {
		log.Printf("Failed to load tokens for user %d: %v", userID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	for _, token := range tokens {
		message := &messaging.Message{
			Token:        token.Token,
			Notification: &messaging.Notification{Body: body},
			APNS: &messaging.APNSConfig{
				Payload: &messaging.APNSPayload{Aps: &messaging.Aps{Sound: "default"}},
			},
		}
		if _, err := n.messenger.Send(ctx, message); err != nil {
			if messaging.IsUnregistered(err) {
				if err := n.tokenRepo.DeleteToken(token.ID); err != nil {
					log.Printf("Failed to prune dead token %d: %v", token.ID, err)
				}
				continue
			}
			log.Printf("Failed to send notification to user %d: %v", userID, err)
		}
	}
}
