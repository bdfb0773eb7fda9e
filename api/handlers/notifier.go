package handlers

import (
	"context"
	"os"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/agriconnect/agriconnect-api/databases"
	"github.com/agriconnect/agriconnect-api/models"
)

// Notifier maps lifecycle events onto notification records. Everything here is
// best effort: failures are logged and swallowed so the triggering operation,
// whose primary write has already committed, never rolls back.
type Notifier struct {
	UDB databases.UserDatabase
}

// Notify appends the notification to the recipient's embedded inbox and pushes
// it over the live channel when one is connected
func (n Notifier) Notify(ctx context.Context, notification models.Notification) {
	if notification.ID == "" {
		notification.ID = primitive.NewObjectID().Hex()
	}
	if notification.CreatedAt == 0 {
		notification.CreatedAt = primitive.NewDateTimeFromTime(time.Now())
	}

	rID, err := primitive.ObjectIDFromHex(notification.Recipient)
	if err != nil {
		zap.S().Warnw("notification skipped, bad recipient id",
			"recipient", notification.Recipient, "error", err)
		return
	}

	filter := bson.M{"_id": rID}
	update := bson.M{"$push": bson.M{"user.notifications": notification}}
	_, err = n.UDB.UpdateOne(ctx, filter, update)
	if err != nil {
		zap.S().Warnw("failed to store notification",
			"recipient", notification.Recipient, "type", notification.Type, "error", err)
		return
	}

	sendNotificationToUser(notification.Recipient, notification)
}

// SendEmail delivers a transactional email through SendGrid. Best effort.
func (n Notifier) SendEmail(toEmail, toName, subject, htmlContent, plainText string) {
	if toEmail == "" {
		return
	}
	from := mail.NewEmail("AgriConnect", "no-reply@agriconnect.app")
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)
	client := sendgrid.NewSendClient(os.Getenv("SENDGRID_API_KEY"))
	response, err := client.Send(message)
	if err != nil {
		zap.S().Warnw("failed to send email", "to", toEmail, "subject", subject, "error", err)
		return
	}
	if response.StatusCode >= 400 {
		zap.S().Warnw("sendgrid returned error status",
			"status", response.StatusCode, "body", response.Body)
	}
}

// UserContact resolves the email and display name for a user id
func (n Notifier) UserContact(ctx context.Context, userID primitive.ObjectID) (email, name string) {
	user, err := n.UDB.FindOne(ctx, bson.M{"_id": userID})
	if err != nil {
		return "", ""
	}
	return user.Details.Email, user.Details.Name
}
