package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/atlas-erp/atlas-erp/internal/accounting/journals"
	"github.com/atlas-erp/atlas-erp/internal/accounting/mappings"
	"github.com/atlas-erp/atlas-erp/internal/accounting/shared"
	internalshared "github.com/atlas-erp/atlas-erp/internal/shared"
)

// Ledger exposes the journal operations integrations need.
type Ledger interface {
	CreateAndPost(ctx context.Context, input journals.CreateInput) (journals.JournalEntry, error)
	FindBySource(ctx context.Context, module string, sourceID uuid.UUID) (journals.JournalEntry, error)
	Post(ctx context.Context, input journals.PostInput) (journals.JournalEntry, error)
}

// MappingSource resolves integration keys to ledger accounts.
type MappingSource interface {
	Get(ctx context.Context, module, key string) (mappings.AccountMapping, error)
}

// EventLedger is the processed-event ledger that makes at-least-once
// delivery safe.
type EventLedger interface {
	Find(ctx context.Context, eventID uuid.UUID) (internalshared.ProcessedEvent, error)
	RecordSuccess(ctx context.Context, eventID uuid.UUID, module string) error
	RecordFailure(ctx context.Context, eventID uuid.UUID, module, message string) error
}

// Hooks turns domain events from the wider platform into posted journal
// entries. Every handler runs the same three-step protocol: look the event
// id up in the processed-event ledger, perform the domain action, record
// the outcome. A replayed event that already succeeded is a no-op; a
// failure is recorded with its message before the error propagates.
type Hooks struct {
	logger   *slog.Logger
	ledger   Ledger
	mappings MappingSource
	events   EventLedger
}

func NewHooks(logger *slog.Logger, ledger Ledger, mappingSource MappingSource, events EventLedger) *Hooks {
	return &Hooks{logger: logger, ledger: ledger, mappings: mappingSource, events: events}
}

// HandleOrderCompleted books revenue for a completed order: debit accounts
// receivable, credit sales revenue.
func (h *Hooks) HandleOrderCompleted(ctx context.Context, evt OrderCompletedEvent) error {
	if evt.EventID == uuid.Nil {
		return errors.New("integration: event id required")
	}
	if evt.CompletedAt.IsZero() {
		return errors.New("integration: completion date required")
	}
	return h.handle(ctx, evt.EventID, "SALES.ORDER_COMPLETED", func(ctx context.Context) error {
		amount := round2(evt.Total)
		if amount <= 0 {
			return nil
		}
		receivable, err := h.mappings.Get(ctx, "SALES", "sales.order.receivable")
		if err != nil {
			return err
		}
		revenue, err := h.mappings.Get(ctx, "SALES", "sales.order.revenue")
		if err != nil {
			return err
		}
		return h.post(ctx, journals.CreateInput{
			Date:         evt.CompletedAt,
			Description:  fmt.Sprintf("Order %s completed", evt.OrderNumber),
			Reference:    evt.CustomerRef,
			SourceModule: "SALES.ORDER",
			SourceID:     evt.OrderID,
			Lines: []journals.LineInput{
				{AccountID: receivable.AccountID, Side: journals.SideDebit, Amount: amount},
				{AccountID: revenue.AccountID, Side: journals.SideCredit, Amount: amount},
			},
		})
	})
}

// HandlePaymentReceived books a settled customer payment: debit cash,
// credit accounts receivable.
func (h *Hooks) HandlePaymentReceived(ctx context.Context, evt PaymentReceivedEvent) error {
	if evt.EventID == uuid.Nil {
		return errors.New("integration: event id required")
	}
	if evt.ReceivedAt.IsZero() {
		return errors.New("integration: payment date required")
	}
	return h.handle(ctx, evt.EventID, "SALES.PAYMENT_RECEIVED", func(ctx context.Context) error {
		amount := round2(evt.Amount)
		if amount <= 0 {
			return nil
		}
		cash, err := h.mappings.Get(ctx, "SALES", "sales.payment.cash")
		if err != nil {
			return err
		}
		receivable, err := h.mappings.Get(ctx, "SALES", "sales.order.receivable")
		if err != nil {
			return err
		}
		return h.post(ctx, journals.CreateInput{
			Date:         evt.ReceivedAt,
			Description:  fmt.Sprintf("Payment %s received", evt.Reference),
			Reference:    evt.Reference,
			SourceModule: "SALES.PAYMENT",
			SourceID:     evt.PaymentID,
			Lines: []journals.LineInput{
				{AccountID: cash.AccountID, Side: journals.SideDebit, Amount: amount},
				{AccountID: receivable.AccountID, Side: journals.SideCredit, Amount: amount},
			},
		})
	})
}

func (h *Hooks) handle(ctx context.Context, eventID uuid.UUID, module string, action func(context.Context) error) error {
	if rec, err := h.events.Find(ctx, eventID); err == nil {
		if rec.Status == internalshared.EventStatusProcessed {
			h.logger.Debug("event already processed", slog.String("event_id", eventID.String()), slog.String("module", module))
			return nil
		}
		// Failed events fall through and retry.
	} else if !errors.Is(err, internalshared.ErrEventNotProcessed) {
		return err
	}
	if err := action(ctx); err != nil {
		if recErr := h.events.RecordFailure(ctx, eventID, module, err.Error()); recErr != nil {
			h.logger.Error("record event failure", slog.Any("error", recErr))
		}
		return err
	}
	return h.events.RecordSuccess(ctx, eventID, module)
}

func (h *Hooks) post(ctx context.Context, input journals.CreateInput) error {
	if input.SourceID == uuid.Nil {
		return errors.New("integration: source id required")
	}
	input.CreatedBy = systemActorID
	_, err := h.ledger.CreateAndPost(ctx, input)
	if errors.Is(err, shared.ErrSourceAlreadyLinked) {
		// An earlier delivery created the entry. Confirm it reached POSTED
		// before counting this delivery as done; a draft left by an older
		// code path gets posted here.
		existing, findErr := h.ledger.FindBySource(ctx, input.SourceModule, input.SourceID)
		if findErr != nil {
			return findErr
		}
		if existing.Status == journals.JournalStatusDraft {
			_, postErr := h.ledger.Post(ctx, journals.PostInput{EntryID: existing.ID, ActorID: systemActorID})
			return postErr
		}
		return nil
	}
	return err
}

// systemActorID stamps entries generated by integrations rather than a
// logged-in user.
const systemActorID int64 = 1

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
