package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/showcaseworker/internal/events"
	"github.com/Lllllllleong/showcaseworker/internal/models"
)

// Push bodies are small JSON envelopes; anything larger is not a storage event.
const maxPushBodyBytes = 1 << 20

// Processor runs the pipeline for one object event.
type Processor interface {
	Process(ctx context.Context, e models.ObjectEvent) (*models.ShowcaseResult, error)
}

type pushResponse struct {
	RunID            string `json:"runId"`
	Status           string `json:"status"`
	ShowcaseImageURL string `json:"showcaseImageUrl,omitempty"`
}

// NewPushHandler serves Pub/Sub push deliveries. Malformed deliveries get a
// 400 and pipeline failures a 500 so the subscription redelivers them.
func NewPushHandler(p Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxPushBodyBytes))
		if err != nil {
			slog.Error("Failed to read push request body.", "error", err)
			http.Error(w, "Bad Request: unreadable body", http.StatusBadRequest)
			return
		}

		e, err := events.ParsePush(body)
		if err != nil {
			slog.Warn("Rejecting malformed push message.", "error", err)
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}

		res, err := p.Process(r.Context(), e)
		logSideEffects(res)
		if err != nil {
			http.Error(w, "Internal Server Error: showcase processing failed", http.StatusInternalServerError)
			return
		}

		resp := pushResponse{RunID: res.RunID, Status: string(res.Status), ShowcaseImageURL: res.ImageURL}
		if res.Skipped {
			resp.Status = "skipped"
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("Failed to write push response.", "runId", res.RunID, "error", err)
		}
	}
}

// NewEventHandler serves Eventarc deliveries of storage finalize events.
// Malformed events are logged and acknowledged since redelivery cannot fix them.
func NewEventHandler(p Processor) func(context.Context, cloudevents.Event) error {
	return func(ctx context.Context, ce cloudevents.Event) error {
		e, err := events.FromCloudEvent(ce)
		if err != nil {
			slog.Error("Dropping malformed storage event.", "eventId", ce.ID(), "eventType", ce.Type(), "error", err)
			return nil
		}
		res, err := p.Process(ctx, e)
		logSideEffects(res)
		return err
	}
}

func logSideEffects(res *models.ShowcaseResult) {
	if res == nil {
		return
	}
	logCtx := slog.With("runId", res.RunID, "userId", res.JobKey.UserID, "characterId", res.JobKey.CharacterID)
	if !res.Cleanup.OK() {
		logCtx.Warn("Failed to delete original upload after success.", "error", res.Cleanup.Err)
	}
	if !res.FailureMark.OK() {
		logCtx.Error("CRITICAL: Failed to mark character as failed after a processing error.", "error", res.FailureMark.Err)
	}
}
