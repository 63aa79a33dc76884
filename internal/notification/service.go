package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	conndomain "inboxhub-backend/internal/connection/domain"
	connrepo "inboxhub-backend/internal/connection/repository"
	emailusecase "inboxhub-backend/internal/email/usecase"
)

// GmailNotification is the payload Gmail publishes on mailbox changes
type GmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// Service consumes Gmail push notifications from Pub/Sub and triggers an
// incremental sync for the affected connection.
type Service struct {
	pubsubClient *pubsub.Client
	connRepo     connrepo.ConnectionRepository
	emailUsecase emailusecase.EmailUsecase
	topicName    string
	subName      string

	// Deduplication: track last historyId per connection, Gmail redelivers
	mu            sync.Mutex
	lastHistoryID map[string]uint64
}

func NewService(projectID, topicName, credentialsFile string, connRepo connrepo.ConnectionRepository, emailUsecase emailusecase.EmailUsecase) (*Service, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %v", err)
	}

	return &Service{
		pubsubClient:  client,
		connRepo:      connRepo,
		emailUsecase:  emailUsecase,
		topicName:     topicName,
		subName:       topicName + "-sub", // Convention: topic-sub
		lastHistoryID: make(map[string]uint64),
	}, nil
}

func (s *Service) Start(ctx context.Context) {
	log.Printf("[PubSub] Starting notification service with topic: %s, subscription: %s", s.topicName, s.subName)

	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Printf("[PubSub] Error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topic := s.pubsubClient.Topic(s.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Printf("[PubSub] Error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			log.Printf("[PubSub] Topic %s does not exist, cannot create subscription", s.topicName)
			return
		}

		sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			log.Printf("[PubSub] Failed to create subscription: %v", err)
			return
		}
		log.Printf("[PubSub] Created subscription: %s", s.subName)
	}

	log.Printf("[PubSub] Listening for messages on subscription: %s", s.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleMessage(ctx, msg)
		msg.Ack()
	})
	if err != nil {
		log.Printf("[PubSub] Error receiving messages: %v", err)
	}
}

func (s *Service) handleMessage(ctx context.Context, msg *pubsub.Message) {
	var notification GmailNotification
	if err := json.Unmarshal(msg.Data, &notification); err != nil {
		log.Printf("[PubSub] Failed to unmarshal notification: %v", err)
		return
	}

	log.Printf("[PubSub] Notification for %s (historyId: %d)", notification.EmailAddress, notification.HistoryID)

	conn, err := s.connRepo.FindByAccountEmail(conndomain.ProviderGmail, notification.EmailAddress)
	if err != nil {
		log.Printf("[PubSub] Error finding connection for %s: %v", notification.EmailAddress, err)
		return
	}
	if conn == nil {
		log.Printf("[PubSub] No connection for account %s", notification.EmailAddress)
		return
	}

	if s.seenHistoryID(conn.ID, notification.HistoryID) {
		log.Printf("[PubSub] Skipping duplicate notification for %s (historyId %d)", notification.EmailAddress, notification.HistoryID)
		return
	}

	if _, err := s.emailUsecase.TrySync(ctx, conn.UserID, conn.Provider); err != nil {
		log.Printf("[PubSub] Triggered sync failed for %s/%s: %v", conn.UserID, conn.Provider, err)
	}
}

func (s *Service) seenHistoryID(connID string, historyID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.lastHistoryID[connID]; ok && historyID <= last {
		return true
	}
	s.lastHistoryID[connID] = historyID
	return false
}
