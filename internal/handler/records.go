package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/aldr/autonomi-service/internal/model"
	"github.com/aldr/autonomi-service/internal/queue"
	"github.com/aldr/autonomi-service/internal/store"
)

const (
	msgReceived = "Record received (not yet stored on Autonomi)"
	msgStored   = "Record stored (simulated Autonomi storage)"
)

// EventPublisher is implemented by service.RecordPublisher.
type EventPublisher interface {
	PublishRecordReceived(ctx context.Context, ev queue.RecordReceivedEvent) error
}

// RecordHandler bundles dependencies for the record endpoints.
type RecordHandler struct {
	Store  store.Store
	Events EventPublisher // nil disables event publishing
	Log    *zap.Logger
}

func NewRecordHandler(s store.Store, events EventPublisher, log *zap.Logger) *RecordHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &RecordHandler{Store: s, Events: events, Log: log}
}

// ----- DTOs -----

// createRecordReq mirrors model.HealthRecord with pointer fields so that
// absent keys can be told apart from empty strings.
type createRecordReq struct {
	ID         *string `json:"id"`
	OwnerID    *string `json:"owner_id" validate:"required"`
	RecordType *string `json:"record_type" validate:"required"`
	Title      *string `json:"title" validate:"required"`
	Content    *string `json:"content" validate:"required"`
	Date       *string `json:"date" validate:"required"`
}

func (r createRecordReq) record() model.HealthRecord {
	return model.HealthRecord{
		ID:         r.ID,
		OwnerID:    *r.OwnerID,
		RecordType: *r.RecordType,
		Title:      *r.Title,
		Content:    *r.Content,
		Date:       *r.Date,
	}
}

type recordData struct {
	ID string `json:"id"`
}

type envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    *recordData `json:"data,omitempty"`
}

// StoreRecord: POST /records.  Bind and shape failures are returned as-is
// so Echo's default error handler answers them.
func (h *RecordHandler) StoreRecord(c echo.Context) error {
	var req createRecordReq
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	rec := req.record()
	h.Log.Info("Received record", zap.String("title", rec.Title))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	receipt, err := h.Store.Put(ctx, rec)
	if err != nil {
		h.Log.Error("store record failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, envelope{Status: "error", Message: "Failed to store record"})
	}
	h.publish(rec, receipt)

	msg := msgReceived
	if receipt.Stored {
		msg = msgStored
	}
	return c.JSON(http.StatusOK, envelope{
		Status:  "success",
		Message: msg,
		Data:    &recordData{ID: receipt.ID},
	})
}

// publish fires the record.received event in the background; the
// response never waits on the broker.
func (h *RecordHandler) publish(rec model.HealthRecord, receipt model.Receipt) {
	if h.Events == nil {
		return
	}
	ev := queue.RecordReceivedEvent{
		RecordID:   receipt.ID,
		OwnerID:    rec.OwnerID,
		RecordType: rec.RecordType,
		Title:      rec.Title,
		Stored:     receipt.Stored,
		ReceivedAt: time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.Events.PublishRecordReceived(ctx, ev); err != nil {
			h.Log.Warn("publish record.received failed", zap.String("record_id", ev.RecordID), zap.Error(err))
		}
	}()
}

// GetRecord: GET /records/:id.
func (h *RecordHandler) GetRecord(c echo.Context) error {
	id := pathParam(c, "id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rec, err := h.Store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, envelope{Status: "error", Message: "Record not found"})
		}
		h.Log.Error("get record failed", zap.String("id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, envelope{Status: "error", Message: "Failed to retrieve record"})
	}
	return c.JSON(http.StatusOK, rec)
}

// pathParam returns the decoded value of a path parameter.  Echo routes on
// URL.RawPath when the path holds escapes that URL.Path cannot represent
// (e.g. %2F); parameters then arrive still encoded and are unescaped here.
func pathParam(c echo.Context, name string) string {
	v := c.Param(name)
	if c.Request().URL.RawPath == "" {
		return v
	}
	if dec, err := url.PathUnescape(v); err == nil {
		return dec
	}
	return v
}

// ListRecords: GET /records.
func (h *RecordHandler) ListRecords(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	recs, err := h.Store.List(ctx)
	if err != nil {
		h.Log.Error("list records failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, envelope{Status: "error", Message: "Failed to list records"})
	}
	return c.JSON(http.StatusOK, recs)
}
