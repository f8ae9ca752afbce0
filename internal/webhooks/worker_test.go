package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fleetnav/internal/model"
	"fleetnav/internal/store"
)

func TestSignAndVerifyHMAC(t *testing.T) {
	body := []byte(`{"type":"solve.completed"}`)
	sig := SignHMAC("secret", body)
	if !VerifyHMAC("secret", body, sig) {
		t.Fatal("valid signature rejected")
	}
	if VerifyHMAC("other", body, sig) {
		t.Fatal("wrong secret accepted")
	}
	if VerifyHMAC("secret", []byte("tampered"), sig) {
		t.Fatal("tampered body accepted")
	}
	if VerifyHMAC("secret", body, "not-hex") {
		t.Fatal("malformed signature accepted")
	}
}

func TestWorkerDeliversWithSignature(t *testing.T) {
	ctx := context.Background()

	type received struct {
		event string
		sig   string
		body  []byte
	}
	got := make(chan received, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- received{event: r.Header.Get("X-Event-Type"), sig: r.Header.Get("X-Signature"), body: body}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	mem := store.NewMemory()
	pub := NewPublisher(mem)
	sub, err := mem.CreateSubscription(ctx, model.SubscriptionRequest{
		TenantID: "t_a", URL: ts.URL, Events: []string{"solve.completed"}, Secret: "s3cret",
	})
	if err != nil {
		t.Fatal(err)
	}
	pub.Emit(ctx, "t_a", "solve.completed", map[string]any{"solveId": "run1"})

	w := NewWorker(mem, 3)
	w.processOnce()

	select {
	case r := <-got:
		if r.event != "solve.completed" {
			t.Fatalf("event header = %q", r.event)
		}
		if !VerifyHMAC("s3cret", r.body, r.sig) {
			t.Fatal("delivery signature does not verify")
		}
		var payload struct {
			Type     string `json:"type"`
			TenantID string `json:"tenantId"`
		}
		if err := json.Unmarshal(r.body, &payload); err != nil {
			t.Fatal(err)
		}
		if payload.Type != "solve.completed" || payload.TenantID != "t_a" {
			t.Fatalf("payload = %+v", payload)
		}
	default:
		t.Fatal("no delivery received")
	}

	// Delivered: nothing left in the queue.
	due, _ := mem.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("queue not drained: %v (sub %s)", due, sub.ID)
	}
}

func TestWorkerRetriesThenFails(t *testing.T) {
	ctx := context.Background()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	mem := store.NewMemory()
	id, err := mem.EnqueueWebhook(ctx, "t_a", "sub1", "solve.failed", ts.URL, "", []byte(`{}`))
	if err != nil {
		t.Fatal(err)
	}

	w := NewWorker(mem, 2)

	// First attempt: 500, rescheduled with backoff, so not immediately due.
	w.processOnce()
	due, _ := mem.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("retry scheduled immediately: %v", due)
	}

	// Force the retry due now; second attempt hits MaxAttempts and the
	// delivery goes terminal.
	past := time.Now().Add(-time.Minute)
	if err := mem.MarkWebhookDelivery(ctx, id, false, &past, "", 500, 0); err != nil {
		t.Fatal(err)
	}
	w.processOnce()
	due, _ = mem.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("delivery still pending after max attempts: %v", due)
	}
}

func TestWorkerUnreachableEndpoint(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	if _, err := mem.EnqueueWebhook(ctx, "t_a", "sub1", "solve.completed", "http://127.0.0.1:1/unreachable", "", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}

	w := NewWorker(mem, 5)
	w.processOnce()

	// Connection error counts as an attempt and reschedules.
	due, _ := mem.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("failed attempt left delivery due: %v", due)
	}
}

func TestNextBackoffDoublesAndCaps(t *testing.T) {
	if nextBackoff(0) >= nextBackoff(1) {
		t.Fatal("backoff must grow with attempts")
	}
	if nextBackoff(2) != 4*nextBackoff(0) {
		t.Fatalf("backoff(2) = %v, want 4x backoff(0)", nextBackoff(2))
	}
	if nextBackoff(100) != nextBackoff(11) {
		t.Fatal("backoff must cap for large attempt counts")
	}
}
