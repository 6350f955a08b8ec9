package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"trackeco/internal/models"
)

// FCMService handles Firebase Cloud Messaging
type FCMService struct {
	client *messaging.Client
}

// NewFCMService creates a new FCM service instance from a credentials file
func NewFCMService(credentialsFile string) (*FCMService, error) {
	return newFCMService(option.WithCredentialsFile(credentialsFile))
}

// NewFCMServiceFromBase64 creates a new FCM service instance from base64-encoded credentials,
// for hosts where a credentials file can't be mounted
func NewFCMServiceFromBase64(credentialsBase64 string) (*FCMService, error) {
	credentialsJSON, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
	}
	return newFCMService(option.WithCredentialsJSON(credentialsJSON))
}

func newFCMService(opt option.ClientOption) (*FCMService, error) {
	ctx := context.Background()

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client}, nil
}

// AwardMessage builds the push payload for a granted award
func AwardMessage(tokens []string, ack models.ServerAck) *messaging.MulticastMessage {
	title := "Disposal verified!"
	body := fmt.Sprintf("+%d points, +%d XP. You are now %s.", ack.PointsEarned, ack.XPEarned, ack.EcoRank)
	if ack.FirstDisposal {
		title = "Welcome to TrackEco!"
		body = fmt.Sprintf("First disposal bonus: +%d points.", ack.PointsEarned)
	}

	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: map[string]string{
			"type":             "points_awarded",
			"record_id":        ack.RecordID,
			"points_earned":    strconv.Itoa(ack.PointsEarned),
			"xp_earned":        strconv.Itoa(ack.XPEarned),
			"new_total_points": strconv.Itoa(ack.NewTotalPoints),
			"eco_rank":         ack.EcoRank,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "default",
				},
			},
		},
	}
}

// NotifyAward pushes an award notification to every device of the user
func (s *FCMService) NotifyAward(ctx context.Context, tokens []string, ack models.ServerAck) error {
	if len(tokens) == 0 {
		return nil
	}

	response, err := s.client.SendEachForMulticast(ctx, AwardMessage(tokens, ack))
	if err != nil {
		return fmt.Errorf("error sending multicast message: %w", err)
	}

	log.Printf("✅ Award push sent: %d success, %d failures", response.SuccessCount, response.FailureCount)
	return nil
}
