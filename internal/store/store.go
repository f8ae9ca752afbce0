package store

import (
	"context"
	"errors"
	"time"

	"fleetnav/internal/model"
)

// Store is the persistence interface used by the API server: solve runs and
// their solutions, webhook subscriptions, and the webhook delivery queue.
type Store interface {
	// Solve runs
	CreateSolveRun(ctx context.Context, tenantID string) (model.SolveRun, error)
	GetSolveRun(ctx context.Context, tenantID, id string) (model.SolveRun, error)
	ListSolveRuns(ctx context.Context, tenantID, cursor string, limit int) ([]model.SolveRun, string, error)
	MarkSolveRunning(ctx context.Context, id string) error
	CompleteSolveRun(ctx context.Context, id string, summary model.SolveSummary, sol model.Solution) error
	FailSolveRun(ctx context.Context, id, errMsg string) error
	GetSolution(ctx context.Context, tenantID, id string) (model.Solution, error)

	// Subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error)
	ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error)
	DeleteSubscription(ctx context.Context, tenantID, id string) error

	// Webhook delivery queue
	EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
}

// WebhookDelivery is one queued outbound event delivery.
type WebhookDelivery struct {
	ID             string
	TenantID       string
	SubscriptionID string
	EventType      string
	URL            string
	Secret         string
	Payload        []byte
	Status         string
	Attempts       int
}

var ErrNotFound = errors.New("not found")
