package locations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fleetops/fleetops/internal/identity"
	"github.com/fleetops/fleetops/internal/shared"
)

// auditModule tags workflow audit entries written by this package.
const auditModule = "LOCATIONS"

// JourneyDirectory answers whether a journey resolves within a tenant.
type JourneyDirectory interface {
	Exists(ctx context.Context, tenantID, journeyID int64) (bool, error)
}

// CustomerDirectory answers whether a customer resolves within a tenant.
type CustomerDirectory interface {
	Exists(ctx context.Context, tenantID, customerID int64) (bool, error)
}

// AuditRecorder persists and reads workflow history entries.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
	List(ctx context.Context, module string, ref uuid.UUID) ([]shared.AuditLog, error)
}

// Service provides the location update approval workflow. Authorization has
// already happened by the time any method runs; methods only implement
// workflow semantics against the caller's tenant.
type Service struct {
	repo      Repository
	journeys  JourneyDirectory
	customers CustomerDirectory
	audit     AuditRecorder
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a new service.
func NewService(repo Repository, journeys JourneyDirectory, customers CustomerDirectory, audit AuditRecorder, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		journeys:  journeys,
		customers: customers,
		audit:     audit,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit creates a new PENDING request for the actor's tenant.
func (s *Service) Submit(ctx context.Context, actor identity.Principal, tenantID int64, cmd SubmitCommand) (*UpdateRequest, error) {
	ok, err := s.journeys.Exists(ctx, tenantID, cmd.JourneyID)
	if err != nil {
		return nil, fmt.Errorf("check journey: %w", err)
	}
	if !ok {
		return nil, ErrJourneyNotFound
	}

	ok, err = s.customers.Exists(ctx, tenantID, cmd.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("check customer: %w", err)
	}
	if !ok {
		return nil, ErrCustomerNotFound
	}

	req := &UpdateRequest{
		ID:              uuid.New(),
		TenantID:        tenantID,
		JourneyID:       cmd.JourneyID,
		StopID:          cmd.StopID,
		CustomerID:      cmd.CustomerID,
		Current:         Position(cmd.Current),
		Requested:       Position(cmd.Requested),
		Reason:          cmd.Reason,
		Status:          StatusPending,
		RequestedBy:     actor.ID,
		RequestedByName: actor.Name,
		CreatedAt:       s.now(),
	}

	if err := s.repo.Insert(ctx, req); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, req.ID, actor.ID, shared.AuditSubmit, cmd.Reason)
	return req, nil
}

// Approve transitions a PENDING request to APPROVED and copies the requested
// position onto the customer record in the same transaction. A second attempt
// on the same request fails with ErrNotProcessable; the customer record is
// mutated at most once per request id.
func (s *Service) Approve(ctx context.Context, actor identity.Principal, tenantID int64, cmd ApproveCommand) (*UpdateRequest, error) {
	processedAt := s.now()

	var approved *UpdateRequest
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		req, err := tx.LockPending(ctx, tenantID, cmd.RequestID)
		if err != nil {
			return s.maskPreconditionFailure("approve", cmd.RequestID, tenantID, err)
		}

		if err := tx.MarkApproved(ctx, tenantID, cmd.RequestID, actor.ID, actor.Name, processedAt); err != nil {
			return s.maskPreconditionFailure("approve", cmd.RequestID, tenantID, err)
		}

		if err := tx.UpdateCustomerPosition(ctx, tenantID, req.CustomerID, req.Requested); err != nil {
			return fmt.Errorf("update customer position: %w", err)
		}

		if cmd.UpdateFutureStops {
			if err := tx.UpdateFutureStopPositions(ctx, tenantID, req.JourneyID, req.CustomerID, req.StopID, req.Requested); err != nil {
				return fmt.Errorf("update future stops: %w", err)
			}
		}

		req.Status = StatusApproved
		req.ProcessedBy = &actor.ID
		req.ProcessedByName = &actor.Name
		req.ProcessedAt = &processedAt
		approved = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, cmd.RequestID, actor.ID, shared.AuditApprove, "")
	return approved, nil
}

// Reject transitions a PENDING request to REJECTED. The customer record is
// not touched.
func (s *Service) Reject(ctx context.Context, actor identity.Principal, tenantID int64, cmd RejectCommand) (*UpdateRequest, error) {
	processedAt := s.now()

	var rejected *UpdateRequest
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		req, err := tx.LockPending(ctx, tenantID, cmd.RequestID)
		if err != nil {
			return s.maskPreconditionFailure("reject", cmd.RequestID, tenantID, err)
		}
		if err := tx.MarkRejected(ctx, tenantID, cmd.RequestID, actor.ID, actor.Name, cmd.Reason, processedAt); err != nil {
			return s.maskPreconditionFailure("reject", cmd.RequestID, tenantID, err)
		}

		req.Status = StatusRejected
		req.ProcessedBy = &actor.ID
		req.ProcessedByName = &actor.Name
		req.RejectionReason = &cmd.Reason
		req.ProcessedAt = &processedAt
		rejected = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, cmd.RequestID, actor.ID, shared.AuditReject, cmd.Reason)
	return rejected, nil
}

// ListPending returns open requests for the tenant, oldest first.
func (s *Service) ListPending(ctx context.Context, tenantID int64) ([]UpdateRequest, error) {
	return s.repo.ListPending(ctx, tenantID)
}

// HistoryPage is one page of processed requests.
type HistoryPage struct {
	Items      []UpdateRequest   `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

// ListHistory returns processed requests for the tenant, newest first.
func (s *Service) ListHistory(ctx context.Context, tenantID int64, q ListHistoryQuery) (*HistoryPage, error) {
	page, perPage := q.Page, q.PerPage
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}

	items, total, err := s.repo.ListHistory(ctx, tenantID, q.Status, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	return &HistoryPage{
		Items:      items,
		Pagination: shared.NewPagination(page, perPage, total),
	}, nil
}

// AuditTrail returns the workflow history of one request. The request is
// looked up within the tenant first so cross-tenant ids leak nothing.
func (s *Service) AuditTrail(ctx context.Context, tenantID int64, id uuid.UUID) ([]shared.AuditLog, error) {
	if _, err := s.repo.GetByID(ctx, tenantID, id); err != nil {
		return nil, err
	}
	if s.audit == nil {
		return []shared.AuditLog{}, nil
	}
	return s.audit.List(ctx, auditModule, id)
}

// maskPreconditionFailure collapses the two precondition failures into the
// single outcome callers see, logging which case actually occurred.
func (s *Service) maskPreconditionFailure(op string, id uuid.UUID, tenantID int64, err error) error {
	switch {
	case errors.Is(err, errRequestMissing):
		s.logger.Warn("location update precondition: request missing",
			slog.String("op", op),
			slog.String("request_id", id.String()),
			slog.Int64("tenant_id", tenantID))
		return ErrNotProcessable
	case errors.Is(err, errAlreadyProcessed):
		s.logger.Warn("location update precondition: already processed",
			slog.String("op", op),
			slog.String("request_id", id.String()),
			slog.Int64("tenant_id", tenantID))
		return ErrNotProcessable
	default:
		return err
	}
}

func (s *Service) recordAudit(ctx context.Context, ref uuid.UUID, actorID int64, action shared.AuditAction, note string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		Module:  auditModule,
		RefID:   ref,
		ActorID: actorID,
		Action:  action,
		Note:    note,
	}); err != nil {
		s.logger.Error("record workflow audit", slog.Any("error", err))
	}
}
