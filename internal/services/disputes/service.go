package disputes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillbridge/backend/internal/domain/enums"
	pgrepo "github.com/skillbridge/backend/internal/repo/postgres"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("dispute not found")
	ErrUnauthorized    = errors.New("not a dispute participant")
	ErrAlreadyResolved = errors.New("dispute already resolved")
)

type DisputeStore interface {
	Create(ctx context.Context, tx pgx.Tx, p pgrepo.CreateDisputeParams) (int64, string, error)
	AppendTimeline(ctx context.Context, tx pgx.Tx, disputeID int64, action string, actorID int64, details string) error
	GetByID(ctx context.Context, id int64) (pgrepo.DisputeRecord, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (pgrepo.DisputeRecord, error)
	SetMediator(ctx context.Context, tx pgx.Tx, id, mediatorID int64) error
	SetUnderReview(ctx context.Context, tx pgx.Tx, id int64) error
	SetResolution(ctx context.Context, tx pgx.Tx, id int64, p pgrepo.ResolveDisputeParams) error
	Close(ctx context.Context, tx pgx.Tx, id int64) error
	EscalatePriority(ctx context.Context, tx pgx.Tx, id int64, priority string) error
	AddEvidence(ctx context.Context, tx pgx.Tx, disputeID, submittedBy int64, kind, objectKey, note string) (uuid.UUID, error)
	AddMessage(ctx context.Context, disputeID, senderID int64, message string, isPrivate bool) (int64, error)
	AddFollowUpAction(ctx context.Context, tx pgx.Tx, disputeID int64, description string, assignedTo int64, deadline time.Time) error
	ListTimeline(ctx context.Context, disputeID int64) ([]pgrepo.TimelineEntry, error)
	ListMessages(ctx context.Context, disputeID int64, includePrivate bool) ([]pgrepo.DisputeMessageRecord, error)
	ListEvidence(ctx context.Context, disputeID int64) ([]pgrepo.DisputeEvidenceRecord, error)
	ListForUser(ctx context.Context, userID int64) ([]pgrepo.DisputeRecord, error)
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]pgrepo.DisputeRecord, error)
	Stats(ctx context.Context) (pgrepo.DisputeStats, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID int64, event, title, message string, data map[string]any) error
}

type AdminStore interface {
	ListAdminIDs(ctx context.Context) ([]int64, error)
}

type EvidencePresigner interface {
	PresignGet(ctx context.Context, objectKey string, ttl time.Duration) (string, error)
}

type Service struct {
	pool     *pgxpool.Pool
	store    DisputeStore
	notifier Notifier
	admins   AdminStore
	evidence EvidencePresigner
	urlTTL   time.Duration
	runTx    func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
	now      func() time.Time
}

type Dependencies struct {
	Pool           *pgxpool.Pool
	Store          DisputeStore
	Notifier       Notifier
	Admins         AdminStore
	Evidence       EvidencePresigner
	EvidenceURLTTL time.Duration
}

// Actor identifies the calling user and their marketplace role for
// dispute access checks. Admins may act on any dispute.
type Actor struct {
	ID   int64
	Role string
}

func (a Actor) isAdmin() bool {
	return strings.EqualFold(a.Role, string(enums.RoleAdmin))
}

type CreateRequest struct {
	Type              string
	Priority          string
	RespondentID      int64
	RelatedEntityType string
	RelatedEntityID   string
	Title             string
	Description       string
}

type FollowUpRequest struct {
	Description string
	AssignedTo  int64
	Deadline    time.Time
}

type ResolveRequest struct {
	ResolutionType string
	Description    string
	Compensation   *float64
	FollowUps      []FollowUpRequest
}

// Detail bundles a dispute with its audit trail for the detail view.
type Detail struct {
	Dispute  pgrepo.DisputeRecord
	Timeline []pgrepo.TimelineEntry
	Messages []pgrepo.DisputeMessageRecord
	Evidence []pgrepo.DisputeEvidenceRecord
}

func NewService(deps Dependencies) *Service {
	urlTTL := deps.EvidenceURLTTL
	if urlTTL <= 0 {
		urlTTL = 5 * time.Minute
	}

	s := &Service{
		pool:     deps.Pool,
		store:    deps.Store,
		notifier: deps.Notifier,
		admins:   deps.Admins,
		evidence: deps.Evidence,
		urlTTL:   urlTTL,
		now:      time.Now,
	}
	s.runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return pgrepo.WithTx(ctx, s.pool, fn)
	}
	return s
}

// Create opens a dispute between initiator and respondent. The dispute
// id, deadlines, and the opening timeline entry are written atomically.
func (s *Service) Create(ctx context.Context, initiatorID int64, req CreateRequest) (int64, string, error) {
	if initiatorID <= 0 || req.RespondentID <= 0 || initiatorID == req.RespondentID {
		return 0, "", ErrValidation
	}
	if !enums.IsValidDisputeType(req.Type) || strings.TrimSpace(req.Title) == "" {
		return 0, "", ErrValidation
	}
	if s.store == nil {
		return 0, "", fmt.Errorf("dispute dependencies are not configured")
	}

	priority := req.Priority
	if priority == "" {
		priority = "medium"
	}
	// Disputes share the flag priority vocabulary.
	if !enums.IsValidFlagPriority(priority) {
		return 0, "", ErrValidation
	}

	var (
		id        int64
		disputeID string
	)
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		createdID, createdDisputeID, err := s.store.Create(txCtx, tx, pgrepo.CreateDisputeParams{
			Type:              req.Type,
			Priority:          priority,
			InitiatorID:       initiatorID,
			RespondentID:      req.RespondentID,
			RelatedEntityType: req.RelatedEntityType,
			RelatedEntityID:   req.RelatedEntityID,
			Title:             req.Title,
			Description:       req.Description,
			CreatedAt:         s.now(),
		})
		if err != nil {
			return err
		}
		id = createdID
		disputeID = createdDisputeID
		return nil
	}); err != nil {
		return 0, "", err
	}

	s.notify(ctx, req.RespondentID, "dispute_opened", "Dispute opened against you",
		"A dispute has been opened that requires your response.", map[string]any{
			"dispute_id": disputeID,
		})
	if priority == "high" || priority == "urgent" {
		s.alertAdmins(ctx, disputeID, req.Type, priority)
	}

	return id, disputeID, nil
}

// alertAdmins fans a high-priority dispute out to every admin account.
// Best effort.
func (s *Service) alertAdmins(ctx context.Context, disputeID, disputeType, priority string) {
	if s.admins == nil || s.notifier == nil {
		return
	}
	adminIDs, err := s.admins.ListAdminIDs(ctx)
	if err != nil {
		return
	}
	for _, adminID := range adminIDs {
		s.notify(ctx, adminID, "dispute_opened", "High priority dispute",
			fmt.Sprintf("A %s priority dispute (%s) was opened.", priority, disputeType), map[string]any{
				"dispute_id": disputeID,
			})
	}
}

// StartReview moves an open dispute into moderator review and records
// the step in the timeline.
func (s *Service) StartReview(ctx context.Context, reviewerID, disputeID int64) error {
	if reviewerID <= 0 || disputeID <= 0 {
		return ErrValidation
	}

	var dispute pgrepo.DisputeRecord
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		record, err := s.store.GetByIDForUpdate(txCtx, tx, disputeID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrDisputeNotFound) {
				return ErrNotFound
			}
			return err
		}
		dispute = record

		if err := s.store.SetUnderReview(txCtx, tx, disputeID); err != nil {
			if errors.Is(err, pgrepo.ErrDisputeNotFound) {
				return ErrAlreadyResolved
			}
			return err
		}
		return s.store.AppendTimeline(txCtx, tx, disputeID, "review_started", reviewerID, "")
	}); err != nil {
		return err
	}

	for _, party := range []int64{dispute.InitiatorID, dispute.RespondentID} {
		s.notify(ctx, party, "dispute_under_review", "Dispute under review",
			"A moderator has started reviewing the dispute.", map[string]any{
				"dispute_id": dispute.DisputeID,
			})
	}
	return nil
}

// AssignMediator moves the dispute into mediation and records the
// assignment in the timeline.
func (s *Service) AssignMediator(ctx context.Context, assignedBy, disputeID, mediatorID int64) error {
	if assignedBy <= 0 || disputeID <= 0 || mediatorID <= 0 {
		return ErrValidation
	}

	var dispute pgrepo.DisputeRecord
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		record, err := s.store.GetByIDForUpdate(txCtx, tx, disputeID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrDisputeNotFound) {
				return ErrNotFound
			}
			return err
		}
		dispute = record

		if record.Status == string(enums.DisputeResolved) || record.Status == string(enums.DisputeClosed) {
			return ErrAlreadyResolved
		}

		if err := s.store.SetMediator(txCtx, tx, disputeID, mediatorID); err != nil {
			if errors.Is(err, pgrepo.ErrDisputeNotFound) {
				return ErrAlreadyResolved
			}
			return err
		}
		return s.store.AppendTimeline(txCtx, tx, disputeID, "mediator_assigned", assignedBy, fmt.Sprintf("mediator %d", mediatorID))
	}); err != nil {
		return err
	}

	for _, party := range []int64{dispute.InitiatorID, dispute.RespondentID, mediatorID} {
		s.notify(ctx, party, "dispute_mediation", "Dispute entered mediation",
			"A mediator has been assigned to the dispute.", map[string]any{
				"dispute_id": dispute.DisputeID,
			})
	}
	return nil
}

// Resolve records the final outcome exactly once. Follow-up actions are
// scheduled and both parties notified after the outcome is persisted.
func (s *Service) Resolve(ctx context.Context, resolvedBy, disputeID int64, req ResolveRequest) error {
	if resolvedBy <= 0 || disputeID <= 0 {
		return ErrValidation
	}
	if !enums.IsValidResolutionType(req.ResolutionType) || strings.TrimSpace(req.Description) == "" {
		return ErrValidation
	}
	for _, followUp := range req.FollowUps {
		if strings.TrimSpace(followUp.Description) == "" || followUp.AssignedTo <= 0 {
			return ErrValidation
		}
	}

	var dispute pgrepo.DisputeRecord
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		record, err := s.store.GetByIDForUpdate(txCtx, tx, disputeID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrDisputeNotFound) {
				return ErrNotFound
			}
			return err
		}
		dispute = record

		if err := s.store.SetResolution(txCtx, tx, disputeID, pgrepo.ResolveDisputeParams{
			ResolutionType: req.ResolutionType,
			Description:    req.Description,
			Compensation:   req.Compensation,
			ResolvedBy:     resolvedBy,
			ResolvedAt:     s.now(),
		}); err != nil {
			if errors.Is(err, pgrepo.ErrDisputeNotFound) {
				return ErrAlreadyResolved
			}
			return err
		}

		if err := s.store.AppendTimeline(txCtx, tx, disputeID, "dispute_resolved", resolvedBy, req.ResolutionType); err != nil {
			return err
		}

		for _, followUp := range req.FollowUps {
			if err := s.store.AddFollowUpAction(txCtx, tx, disputeID, followUp.Description, followUp.AssignedTo, followUp.Deadline); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	for _, party := range []int64{dispute.InitiatorID, dispute.RespondentID} {
		s.notify(ctx, party, "dispute_resolved", "Dispute resolved",
			"The dispute has been resolved.", map[string]any{
				"dispute_id": dispute.DisputeID,
				"resolution": req.ResolutionType,
			})
	}
	for _, followUp := range req.FollowUps {
		s.notify(ctx, followUp.AssignedTo, "dispute_follow_up", "Follow-up action assigned",
			followUp.Description, map[string]any{
				"dispute_id": dispute.DisputeID,
				"deadline":   followUp.Deadline.UTC().Format(time.RFC3339),
			})
	}
	return nil
}

// Close shuts a dispute without a recorded resolution.
func (s *Service) Close(ctx context.Context, closedBy, disputeID int64) error {
	if closedBy <= 0 || disputeID <= 0 {
		return ErrValidation
	}

	return s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		if err := s.store.Close(txCtx, tx, disputeID); err != nil {
			if errors.Is(err, pgrepo.ErrDisputeNotFound) {
				return ErrAlreadyResolved
			}
			return err
		}
		return s.store.AppendTimeline(txCtx, tx, disputeID, "dispute_closed", closedBy, "")
	})
}

// AddMessage posts to the dispute thread. Participants, the mediator
// and admins may write; private notes are for mediators and admins.
func (s *Service) AddMessage(ctx context.Context, sender Actor, disputeID int64, message string, isPrivate bool) (int64, error) {
	if sender.ID <= 0 || disputeID <= 0 || strings.TrimSpace(message) == "" {
		return 0, ErrValidation
	}

	dispute, err := s.get(ctx, disputeID)
	if err != nil {
		return 0, err
	}
	if !canAccess(dispute, sender) {
		return 0, ErrUnauthorized
	}
	if isPrivate && !canUsePrivate(dispute, sender) {
		return 0, ErrUnauthorized
	}

	return s.store.AddMessage(ctx, disputeID, sender.ID, message, isPrivate)
}

// AddEvidence attaches an uploaded object to the dispute and records it
// in the timeline.
func (s *Service) AddEvidence(ctx context.Context, submitter Actor, disputeID int64, kind, objectKey, note string) (uuid.UUID, error) {
	if submitter.ID <= 0 || disputeID <= 0 || strings.TrimSpace(objectKey) == "" {
		return uuid.Nil, ErrValidation
	}

	dispute, err := s.get(ctx, disputeID)
	if err != nil {
		return uuid.Nil, err
	}
	if !canAccess(dispute, submitter) {
		return uuid.Nil, ErrUnauthorized
	}

	var evidenceID uuid.UUID
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		id, err := s.store.AddEvidence(txCtx, tx, disputeID, submitter.ID, kind, objectKey, note)
		if err != nil {
			return err
		}
		evidenceID = id
		return s.store.AppendTimeline(txCtx, tx, disputeID, "evidence_submitted", submitter.ID, kind)
	}); err != nil {
		return uuid.Nil, err
	}
	return evidenceID, nil
}

// EvidenceURL returns a short-lived presigned download link.
func (s *Service) EvidenceURL(ctx context.Context, requester Actor, disputeID int64, objectKey string) (string, error) {
	if requester.ID <= 0 || disputeID <= 0 || strings.TrimSpace(objectKey) == "" {
		return "", ErrValidation
	}
	if s.evidence == nil {
		return "", fmt.Errorf("evidence store is not configured")
	}

	dispute, err := s.get(ctx, disputeID)
	if err != nil {
		return "", err
	}
	if !canAccess(dispute, requester) {
		return "", ErrUnauthorized
	}

	return s.evidence.PresignGet(ctx, objectKey, s.urlTTL)
}

// Get returns the dispute with its full audit trail. Private mediator
// notes are filtered out for regular participants.
func (s *Service) Get(ctx context.Context, requester Actor, disputeID int64) (Detail, error) {
	if requester.ID <= 0 || disputeID <= 0 {
		return Detail{}, ErrValidation
	}

	dispute, err := s.get(ctx, disputeID)
	if err != nil {
		return Detail{}, err
	}
	if !canAccess(dispute, requester) {
		return Detail{}, ErrUnauthorized
	}

	timeline, err := s.store.ListTimeline(ctx, disputeID)
	if err != nil {
		return Detail{}, err
	}
	messages, err := s.store.ListMessages(ctx, disputeID, canUsePrivate(dispute, requester))
	if err != nil {
		return Detail{}, err
	}
	evidence, err := s.store.ListEvidence(ctx, disputeID)
	if err != nil {
		return Detail{}, err
	}

	return Detail{
		Dispute:  dispute,
		Timeline: timeline,
		Messages: messages,
		Evidence: evidence,
	}, nil
}

func (s *Service) ListForUser(ctx context.Context, userID int64) ([]pgrepo.DisputeRecord, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	return s.store.ListForUser(ctx, userID)
}

func (s *Service) Stats(ctx context.Context) (pgrepo.DisputeStats, error) {
	return s.store.Stats(ctx)
}

// SweepDeadlines escalates disputes whose current-phase deadline has
// passed: priority is raised, the miss is recorded in the timeline, and
// both parties are notified. Returns how many disputes were escalated.
func (s *Service) SweepDeadlines(ctx context.Context, limit int) (int, error) {
	overdue, err := s.store.ListOverdue(ctx, s.now(), limit)
	if err != nil {
		return 0, fmt.Errorf("list overdue disputes: %w", err)
	}

	escalated := 0
	for _, dispute := range overdue {
		if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
			if err := s.store.EscalatePriority(txCtx, tx, dispute.ID, escalatedPriority(dispute.Priority)); err != nil {
				return err
			}
			return s.store.AppendTimeline(txCtx, tx, dispute.ID, "deadline_passed", 0, dispute.Status)
		}); err != nil {
			return escalated, err
		}
		escalated++

		for _, party := range []int64{dispute.InitiatorID, dispute.RespondentID} {
			s.notify(ctx, party, "dispute_deadline_passed", "Dispute deadline passed",
				"A dispute deadline has passed and the dispute was escalated.", map[string]any{
					"dispute_id": dispute.DisputeID,
				})
		}
	}
	return escalated, nil
}

func (s *Service) get(ctx context.Context, disputeID int64) (pgrepo.DisputeRecord, error) {
	dispute, err := s.store.GetByID(ctx, disputeID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrDisputeNotFound) {
			return pgrepo.DisputeRecord{}, ErrNotFound
		}
		return pgrepo.DisputeRecord{}, err
	}
	return dispute, nil
}

func canAccess(dispute pgrepo.DisputeRecord, actor Actor) bool {
	if dispute.InitiatorID == actor.ID || dispute.RespondentID == actor.ID {
		return true
	}
	return isMediator(dispute, actor.ID) || actor.isAdmin()
}

func canUsePrivate(dispute pgrepo.DisputeRecord, actor Actor) bool {
	return isMediator(dispute, actor.ID) || actor.isAdmin()
}

func isMediator(dispute pgrepo.DisputeRecord, userID int64) bool {
	return dispute.MediatorID != nil && *dispute.MediatorID == userID
}

func escalatedPriority(current string) string {
	switch current {
	case "low":
		return "medium"
	case "medium":
		return "high"
	default:
		return "urgent"
	}
}

func (s *Service) notify(ctx context.Context, userID int64, event, title, message string, data map[string]any) {
	if s.notifier == nil || userID <= 0 {
		return
	}
	_ = s.notifier.Notify(ctx, userID, event, title, message, data)
}
