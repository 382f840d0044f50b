package moderation

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
	"github.com/skillbridge/backend/internal/domain/rules"
	pgrepo "github.com/skillbridge/backend/internal/repo/postgres"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("flag not found")
	ErrDuplicateFlag = errors.New("content already flagged by reporter")
	ErrSelfFlag      = errors.New("cannot flag own content")
	ErrInvalidState  = errors.New("flag is not open")
	ErrRateLimited   = errors.New("flag rate limit exceeded")
)

type FlagStore interface {
	Create(ctx context.Context, tx pgx.Tx, p pgrepo.CreateFlagParams) (int64, error)
	HasActiveByReporter(ctx context.Context, reporterID int64, contentType, contentID string) (bool, error)
	CountPunitiveResolved(ctx context.Context, targetUserID int64) (int, error)
	GetByID(ctx context.Context, flagID int64) (pgrepo.FlagRecord, error)
	Assign(ctx context.Context, flagID, moderatorID int64) error
	Resolve(ctx context.Context, tx pgx.Tx, flagID, moderatorID int64, resolution, notes string, at time.Time) error
	Dismiss(ctx context.Context, flagID, moderatorID int64, notes string, at time.Time) error
	Escalate(ctx context.Context, flagID int64, priority string, severity int) error
	ListByStatus(ctx context.Context, status string, limit int) ([]pgrepo.FlagRecord, error)
	AddEvidence(ctx context.Context, flagID int64, kind, objectKey, note string) (uuid.UUID, error)
	ListEvidence(ctx context.Context, flagID int64) ([]pgrepo.FlagEvidenceRecord, error)
	Stats(ctx context.Context) (pgrepo.FlagStats, error)
}

type ContentStore interface {
	AuthorID(ctx context.Context, contentType, contentID string) (int64, error)
	Remove(ctx context.Context, tx pgx.Tx, contentType, contentID string) error
	MarkEdited(ctx context.Context, tx pgx.Tx, contentType, contentID string) error
}

type UserStore interface {
	AddWarning(ctx context.Context, tx pgx.Tx, userID, issuedBy int64, reason string) error
	Suspend(ctx context.Context, tx pgx.Tx, userID int64, until time.Time) error
	Ban(ctx context.Context, tx pgx.Tx, userID int64) error
	ListAdminIDs(ctx context.Context) ([]int64, error)
}

type FlagLimiter interface {
	AllowFlag(ctx context.Context, reporterID int64) (int64, bool, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID int64, event, title, message string, data map[string]any) error
}

// Alerter pushes urgent flags into the moderator chat channel.
type Alerter interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

type EvidencePresigner interface {
	PresignGet(ctx context.Context, objectKey string, ttl time.Duration) (string, error)
}

type Config struct {
	SuspensionDuration time.Duration
	EvidenceURLTTL     time.Duration
	ModeratorChatID    int64
}

type Service struct {
	pool     *pgxpool.Pool
	flags    FlagStore
	content  ContentStore
	users    UserStore
	limiter  FlagLimiter
	notifier Notifier
	alerter  Alerter
	evidence EvidencePresigner
	cfg      Config
	runTx    func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
	now      func() time.Time
}

type Dependencies struct {
	Pool     *pgxpool.Pool
	Flags    FlagStore
	Content  ContentStore
	Users    UserStore
	Limiter  FlagLimiter
	Notifier Notifier
	Alerter  Alerter
	Evidence EvidencePresigner
	Config   Config
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.SuspensionDuration <= 0 {
		cfg.SuspensionDuration = 7 * 24 * time.Hour
	}
	if cfg.EvidenceURLTTL <= 0 {
		cfg.EvidenceURLTTL = 5 * time.Minute
	}

	s := &Service{
		pool:     deps.Pool,
		flags:    deps.Flags,
		content:  deps.Content,
		users:    deps.Users,
		limiter:  deps.Limiter,
		notifier: deps.Notifier,
		alerter:  deps.Alerter,
		evidence: deps.Evidence,
		cfg:      cfg,
		now:      time.Now,
	}
	s.runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return pgrepo.WithTx(ctx, s.pool, fn)
	}
	return s
}

// FlagContent files a user report against a piece of content. Priority
// and severity are triaged from the reason, with a forced escalation
// when the content author is a repeat offender. High and urgent flags
// fan out to every active moderator immediately.
func (s *Service) FlagContent(ctx context.Context, reporterID int64, contentType, contentID, reason, description string) (int64, error) {
	return s.flag(ctx, reporterID, contentType, contentID, reason, description, false)
}

// AutoFlag files a system-detected flag. Auto-detected spam is resolved
// on the spot with a content removal; everything else lands in the
// moderation queue like a user report.
func (s *Service) AutoFlag(ctx context.Context, detectorID int64, contentType, contentID, reason, description string) (int64, error) {
	return s.flag(ctx, detectorID, contentType, contentID, reason, description, true)
}

func (s *Service) flag(ctx context.Context, reporterID int64, contentType, contentID, reason, description string, autoDetected bool) (int64, error) {
	if reporterID <= 0 || strings.TrimSpace(contentID) == "" {
		return 0, ErrValidation
	}
	if !enums.IsValidContentType(contentType) || !enums.IsValidFlagReason(reason) {
		return 0, ErrValidation
	}
	if s.flags == nil || s.content == nil {
		return 0, fmt.Errorf("moderation dependencies are not configured")
	}

	if !autoDetected && s.limiter != nil {
		_, allowed, err := s.limiter.AllowFlag(ctx, reporterID)
		if err != nil {
			return 0, fmt.Errorf("check flag rate: %w", err)
		}
		if !allowed {
			return 0, ErrRateLimited
		}
	}

	targetUserID, err := s.content.AuthorID(ctx, contentType, contentID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrContentNotFound) {
			return 0, ErrValidation
		}
		return 0, fmt.Errorf("resolve content author: %w", err)
	}
	if targetUserID == reporterID && !autoDetected {
		return 0, ErrSelfFlag
	}

	duplicate, err := s.flags.HasActiveByReporter(ctx, reporterID, contentType, contentID)
	if err != nil {
		return 0, fmt.Errorf("check duplicate flag: %w", err)
	}
	if duplicate {
		return 0, ErrDuplicateFlag
	}

	priority, severity := rules.FlagTriage(enums.FlagReason(reason))
	punitive, err := s.flags.CountPunitiveResolved(ctx, targetUserID)
	if err != nil {
		return 0, fmt.Errorf("count punitive resolutions: %w", err)
	}
	if punitive >= rules.RepeatOffenderThreshold {
		priority, severity = rules.RepeatOffenderTriage()
	}

	autoResolveSpam := autoDetected && enums.FlagReason(reason) == enums.FlagReasonSpam

	var flagID int64
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		id, err := s.flags.Create(txCtx, tx, pgrepo.CreateFlagParams{
			ReporterID:   reporterID,
			ContentType:  contentType,
			ContentID:    contentID,
			TargetUserID: targetUserID,
			Reason:       reason,
			Description:  description,
			Priority:     string(priority),
			Severity:     severity,
			AutoDetected: autoDetected,
		})
		if err != nil {
			return err
		}
		flagID = id

		if autoResolveSpam {
			if err := s.content.Remove(txCtx, tx, contentType, contentID); err != nil {
				return err
			}
			if err := s.flags.Resolve(txCtx, tx, id, reporterID, string(enums.ResolutionContentRemoved), "auto-resolved spam", s.now()); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return 0, err
	}

	if !autoResolveSpam && rules.NeedsModeratorAlert(priority) {
		s.alertModerators(ctx, flagID, reason, priority)
	}

	return flagID, nil
}

// AssignFlag claims a pending flag for review.
func (s *Service) AssignFlag(ctx context.Context, moderatorID, flagID int64) error {
	if moderatorID <= 0 || flagID <= 0 {
		return ErrValidation
	}

	if err := s.flags.Assign(ctx, flagID, moderatorID); err != nil {
		if errors.Is(err, pgrepo.ErrFlagNotFound) {
			return s.openStateError(ctx, flagID)
		}
		return err
	}
	return nil
}

// EscalateFlag manually raises the priority and severity of an open
// flag, ahead of the triage the reason produced.
func (s *Service) EscalateFlag(ctx context.Context, moderatorID, flagID int64, priority string, severity int) error {
	if moderatorID <= 0 || flagID <= 0 {
		return ErrValidation
	}
	if !enums.IsValidFlagPriority(priority) || severity < 1 || severity > 10 {
		return ErrValidation
	}

	flag, err := s.flags.GetByID(ctx, flagID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrFlagNotFound) {
			return ErrNotFound
		}
		return err
	}
	if flag.Status != string(enums.FlagPending) && flag.Status != string(enums.FlagUnderReview) {
		return ErrInvalidState
	}

	return s.flags.Escalate(ctx, flagID, priority, severity)
}

// ResolveFlag closes a flag with a moderation outcome and applies the
// outcome's side effect to the content or its author in the same
// transaction.
func (s *Service) ResolveFlag(ctx context.Context, moderatorID, flagID int64, resolution, notes string) error {
	if moderatorID <= 0 || flagID <= 0 {
		return ErrValidation
	}
	if !enums.IsValidFlagResolution(resolution) {
		return ErrValidation
	}

	flag, err := s.flags.GetByID(ctx, flagID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrFlagNotFound) {
			return ErrNotFound
		}
		return err
	}
	if flag.Status != string(enums.FlagPending) && flag.Status != string(enums.FlagUnderReview) {
		return ErrInvalidState
	}

	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		if err := s.flags.Resolve(txCtx, tx, flagID, moderatorID, resolution, notes, s.now()); err != nil {
			if errors.Is(err, pgrepo.ErrFlagNotFound) {
				return ErrInvalidState
			}
			return err
		}
		return s.applyResolution(txCtx, tx, flag, moderatorID, enums.FlagResolution(resolution))
	}); err != nil {
		return err
	}

	s.notify(ctx, flag.ReporterID, "flag_resolved", "Report resolved",
		"Your report has been reviewed and resolved.", map[string]any{
			"flag_id":    flagID,
			"resolution": resolution,
		})
	if enums.IsPunitiveResolution(enums.FlagResolution(resolution)) {
		s.notify(ctx, flag.TargetUserID, "moderation_action", "Moderation action taken",
			"A moderation action was applied to your content or account.", map[string]any{
				"flag_id":    flagID,
				"resolution": resolution,
			})
	}

	return nil
}

func (s *Service) applyResolution(ctx context.Context, tx pgx.Tx, flag pgrepo.FlagRecord, moderatorID int64, resolution enums.FlagResolution) error {
	switch resolution {
	case enums.ResolutionContentRemoved:
		return s.content.Remove(ctx, tx, flag.ContentType, flag.ContentID)
	case enums.ResolutionUserSuspended:
		if err := s.users.AddWarning(ctx, tx, flag.TargetUserID, moderatorID, flag.Reason); err != nil {
			return err
		}
		return s.users.Suspend(ctx, tx, flag.TargetUserID, s.now().Add(s.cfg.SuspensionDuration))
	case enums.ResolutionUserBanned:
		return s.users.Ban(ctx, tx, flag.TargetUserID)
	case enums.ResolutionWarningIssued:
		return s.users.AddWarning(ctx, tx, flag.TargetUserID, moderatorID, flag.Reason)
	case enums.ResolutionContentEdited:
		return s.content.MarkEdited(ctx, tx, flag.ContentType, flag.ContentID)
	case enums.ResolutionNoAction:
		return nil
	default:
		return ErrValidation
	}
}

// DismissFlag closes a flag without action.
func (s *Service) DismissFlag(ctx context.Context, moderatorID, flagID int64, notes string) error {
	if moderatorID <= 0 || flagID <= 0 {
		return ErrValidation
	}

	if err := s.flags.Dismiss(ctx, flagID, moderatorID, notes, s.now()); err != nil {
		if errors.Is(err, pgrepo.ErrFlagNotFound) {
			return s.openStateError(ctx, flagID)
		}
		return err
	}
	return nil
}

func (s *Service) GetFlag(ctx context.Context, flagID int64) (pgrepo.FlagRecord, []pgrepo.FlagEvidenceRecord, error) {
	if flagID <= 0 {
		return pgrepo.FlagRecord{}, nil, ErrValidation
	}

	flag, err := s.flags.GetByID(ctx, flagID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrFlagNotFound) {
			return pgrepo.FlagRecord{}, nil, ErrNotFound
		}
		return pgrepo.FlagRecord{}, nil, err
	}

	evidence, err := s.flags.ListEvidence(ctx, flagID)
	if err != nil {
		return pgrepo.FlagRecord{}, nil, err
	}
	return flag, evidence, nil
}

func (s *Service) ListQueue(ctx context.Context, status string, limit int) ([]pgrepo.FlagRecord, error) {
	switch enums.FlagStatus(status) {
	case enums.FlagPending, enums.FlagUnderReview, enums.FlagResolved, enums.FlagDismissed:
	default:
		return nil, ErrValidation
	}
	return s.flags.ListByStatus(ctx, status, limit)
}

// AttachEvidence records an uploaded evidence object against a flag.
func (s *Service) AttachEvidence(ctx context.Context, flagID int64, kind, objectKey, note string) (uuid.UUID, error) {
	if flagID <= 0 || strings.TrimSpace(objectKey) == "" {
		return uuid.Nil, ErrValidation
	}

	if _, err := s.flags.GetByID(ctx, flagID); err != nil {
		if errors.Is(err, pgrepo.ErrFlagNotFound) {
			return uuid.Nil, ErrNotFound
		}
		return uuid.Nil, err
	}
	return s.flags.AddEvidence(ctx, flagID, kind, objectKey, note)
}

// EvidenceURL returns a short-lived presigned download link for an
// evidence object.
func (s *Service) EvidenceURL(ctx context.Context, objectKey string) (string, error) {
	if strings.TrimSpace(objectKey) == "" {
		return "", ErrValidation
	}
	if s.evidence == nil {
		return "", fmt.Errorf("evidence store is not configured")
	}
	return s.evidence.PresignGet(ctx, objectKey, s.cfg.EvidenceURLTTL)
}

func (s *Service) Stats(ctx context.Context) (pgrepo.FlagStats, error) {
	return s.flags.Stats(ctx)
}

// alertModerators fans out a high-priority flag to every active admin
// and, when configured, the moderator chat. Best effort.
func (s *Service) alertModerators(ctx context.Context, flagID int64, reason string, priority enums.FlagPriority) {
	if s.users != nil && s.notifier != nil {
		if adminIDs, err := s.users.ListAdminIDs(ctx); err == nil {
			for _, adminID := range adminIDs {
				s.notify(ctx, adminID, "flag_escalated", "High priority flag",
					fmt.Sprintf("A %s priority flag (%s) needs review.", priority, reason), map[string]any{
						"flag_id": flagID,
					})
			}
		}
	}

	if s.alerter != nil && s.cfg.ModeratorChatID != 0 {
		text := fmt.Sprintf("Flag #%d (%s, %s priority) awaits review.", flagID, reason, priority)
		_ = s.alerter.SendText(ctx, s.cfg.ModeratorChatID, text)
	}
}

// openStateError distinguishes a missing flag from one that is simply no
// longer open.
func (s *Service) openStateError(ctx context.Context, flagID int64) error {
	if _, err := s.flags.GetByID(ctx, flagID); err != nil {
		return ErrNotFound
	}
	return ErrInvalidState
}

func (s *Service) notify(ctx context.Context, userID int64, event, title, message string, data map[string]any) {
	if s.notifier == nil || userID <= 0 {
		return
	}
	_ = s.notifier.Notify(ctx, userID, event, title, message, data)
}
