package disputes

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/skillbridge/backend/internal/domain/rules"
	pgrepo "github.com/skillbridge/backend/internal/repo/postgres"
)

type memoryDisputeStore struct {
	nextID    int64
	nextSeq   int64
	disputes  map[int64]*pgrepo.DisputeRecord
	timelines map[int64][]pgrepo.TimelineEntry
	messages  map[int64][]pgrepo.DisputeMessageRecord
	evidence  map[int64][]pgrepo.DisputeEvidenceRecord
	followUps map[int64][]pgrepo.FollowUpAction
}

func newMemoryDisputeStore() *memoryDisputeStore {
	return &memoryDisputeStore{
		nextID:    1,
		nextSeq:   1,
		disputes:  make(map[int64]*pgrepo.DisputeRecord),
		timelines: make(map[int64][]pgrepo.TimelineEntry),
		messages:  make(map[int64][]pgrepo.DisputeMessageRecord),
		evidence:  make(map[int64][]pgrepo.DisputeEvidenceRecord),
		followUps: make(map[int64][]pgrepo.FollowUpAction),
	}
}

func (s *memoryDisputeStore) Create(ctx context.Context, tx pgx.Tx, p pgrepo.CreateDisputeParams) (int64, string, error) {
	id := s.nextID
	s.nextID++
	seq := s.nextSeq
	s.nextSeq++

	createdAt := p.CreatedAt.UTC()
	disputeID := rules.DisputeID(createdAt, seq)
	deadlines := rules.DisputeDeadlines(createdAt)

	s.disputes[id] = &pgrepo.DisputeRecord{
		ID:                 id,
		DisputeID:          disputeID,
		Type:               p.Type,
		Status:             "open",
		Priority:           p.Priority,
		InitiatorID:        p.InitiatorID,
		RespondentID:       p.RespondentID,
		RelatedEntityType:  p.RelatedEntityType,
		RelatedEntityID:    p.RelatedEntityID,
		Title:              p.Title,
		Description:        p.Description,
		ResponseDeadline:   deadlines.Response,
		MediationDeadline:  deadlines.Mediation,
		ResolutionDeadline: deadlines.Resolution,
		CreatedAt:          createdAt,
	}
	if err := s.AppendTimeline(ctx, tx, id, "dispute_created", p.InitiatorID, ""); err != nil {
		return 0, "", err
	}
	return id, disputeID, nil
}

func (s *memoryDisputeStore) AppendTimeline(_ context.Context, _ pgx.Tx, disputeID int64, action string, actorID int64, details string) error {
	s.timelines[disputeID] = append(s.timelines[disputeID], pgrepo.TimelineEntry{
		ID:        int64(len(s.timelines[disputeID]) + 1),
		DisputeID: disputeID,
		Action:    action,
		ActorID:   actorID,
		Details:   details,
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *memoryDisputeStore) GetByID(_ context.Context, id int64) (pgrepo.DisputeRecord, error) {
	dispute, ok := s.disputes[id]
	if !ok {
		return pgrepo.DisputeRecord{}, pgrepo.ErrDisputeNotFound
	}
	return *dispute, nil
}

func (s *memoryDisputeStore) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id int64) (pgrepo.DisputeRecord, error) {
	return s.GetByID(ctx, id)
}

func (s *memoryDisputeStore) SetMediator(_ context.Context, _ pgx.Tx, id, mediatorID int64) error {
	dispute, ok := s.disputes[id]
	if !ok || (dispute.Status != "open" && dispute.Status != "under_review") {
		return pgrepo.ErrDisputeNotFound
	}
	dispute.MediatorID = &mediatorID
	dispute.Status = "mediation"
	return nil
}

func (s *memoryDisputeStore) SetUnderReview(_ context.Context, _ pgx.Tx, id int64) error {
	dispute, ok := s.disputes[id]
	if !ok || dispute.Status != "open" {
		return pgrepo.ErrDisputeNotFound
	}
	dispute.Status = "under_review"
	return nil
}

func (s *memoryDisputeStore) SetResolution(_ context.Context, _ pgx.Tx, id int64, p pgrepo.ResolveDisputeParams) error {
	dispute, ok := s.disputes[id]
	if !ok || dispute.ResolutionType != nil ||
		(dispute.Status != "open" && dispute.Status != "under_review" && dispute.Status != "mediation") {
		return pgrepo.ErrDisputeNotFound
	}
	resolvedAt := p.ResolvedAt
	dispute.Status = "resolved"
	dispute.ResolutionType = &p.ResolutionType
	dispute.ResolutionDesc = &p.Description
	dispute.Compensation = p.Compensation
	dispute.ResolvedBy = &p.ResolvedBy
	dispute.ResolvedAt = &resolvedAt
	return nil
}

func (s *memoryDisputeStore) Close(_ context.Context, _ pgx.Tx, id int64) error {
	dispute, ok := s.disputes[id]
	if !ok || (dispute.Status != "open" && dispute.Status != "under_review" && dispute.Status != "mediation") {
		return pgrepo.ErrDisputeNotFound
	}
	dispute.Status = "closed"
	return nil
}

func (s *memoryDisputeStore) EscalatePriority(_ context.Context, _ pgx.Tx, id int64, priority string) error {
	if dispute, ok := s.disputes[id]; ok {
		dispute.Priority = priority
	}
	return nil
}

func (s *memoryDisputeStore) AddEvidence(_ context.Context, _ pgx.Tx, disputeID, submittedBy int64, kind, objectKey, note string) (uuid.UUID, error) {
	id := uuid.New()
	s.evidence[disputeID] = append(s.evidence[disputeID], pgrepo.DisputeEvidenceRecord{
		ID:          id,
		DisputeID:   disputeID,
		SubmittedBy: submittedBy,
		Kind:        kind,
		ObjectKey:   objectKey,
		Note:        note,
	})
	return id, nil
}

func (s *memoryDisputeStore) AddMessage(_ context.Context, disputeID, senderID int64, message string, isPrivate bool) (int64, error) {
	id := int64(len(s.messages[disputeID]) + 1)
	s.messages[disputeID] = append(s.messages[disputeID], pgrepo.DisputeMessageRecord{
		ID:        id,
		DisputeID: disputeID,
		SenderID:  senderID,
		Message:   message,
		IsPrivate: isPrivate,
	})
	return id, nil
}

func (s *memoryDisputeStore) AddFollowUpAction(_ context.Context, _ pgx.Tx, disputeID int64, description string, assignedTo int64, deadline time.Time) error {
	s.followUps[disputeID] = append(s.followUps[disputeID], pgrepo.FollowUpAction{
		DisputeID:   disputeID,
		Description: description,
		AssignedTo:  assignedTo,
		Deadline:    deadline,
	})
	return nil
}

func (s *memoryDisputeStore) ListTimeline(_ context.Context, disputeID int64) ([]pgrepo.TimelineEntry, error) {
	return s.timelines[disputeID], nil
}

func (s *memoryDisputeStore) ListMessages(_ context.Context, disputeID int64, includePrivate bool) ([]pgrepo.DisputeMessageRecord, error) {
	var out []pgrepo.DisputeMessageRecord
	for _, message := range s.messages[disputeID] {
		if message.IsPrivate && !includePrivate {
			continue
		}
		out = append(out, message)
	}
	return out, nil
}

func (s *memoryDisputeStore) ListEvidence(_ context.Context, disputeID int64) ([]pgrepo.DisputeEvidenceRecord, error) {
	return s.evidence[disputeID], nil
}

func (s *memoryDisputeStore) ListForUser(_ context.Context, userID int64) ([]pgrepo.DisputeRecord, error) {
	var out []pgrepo.DisputeRecord
	for _, dispute := range s.disputes {
		if dispute.InitiatorID == userID || dispute.RespondentID == userID ||
			(dispute.MediatorID != nil && *dispute.MediatorID == userID) {
			out = append(out, *dispute)
		}
	}
	return out, nil
}

func (s *memoryDisputeStore) ListOverdue(_ context.Context, now time.Time, _ int) ([]pgrepo.DisputeRecord, error) {
	var out []pgrepo.DisputeRecord
	for _, dispute := range s.disputes {
		switch dispute.Status {
		case "open":
			if dispute.ResponseDeadline.Before(now) {
				out = append(out, *dispute)
			}
		case "under_review":
			if dispute.MediationDeadline.Before(now) {
				out = append(out, *dispute)
			}
		case "mediation":
			if dispute.ResolutionDeadline.Before(now) {
				out = append(out, *dispute)
			}
		}
	}
	return out, nil
}

func (s *memoryDisputeStore) Stats(_ context.Context) (pgrepo.DisputeStats, error) {
	stats := pgrepo.DisputeStats{ByStatus: map[string]int{}, ByType: map[string]int{}}
	for _, dispute := range s.disputes {
		stats.ByStatus[dispute.Status]++
		stats.ByType[dispute.Type]++
	}
	return stats, nil
}

type recordedNotification struct {
	userID int64
	event  string
}

type memoryNotifier struct {
	sent []recordedNotification
}

func (n *memoryNotifier) Notify(_ context.Context, userID int64, event, _, _ string, _ map[string]any) error {
	n.sent = append(n.sent, recordedNotification{userID: userID, event: event})
	return nil
}

func (n *memoryNotifier) count(userID int64, event string) int {
	total := 0
	for _, sent := range n.sent {
		if sent.userID == userID && sent.event == event {
			total++
		}
	}
	return total
}

type adminStoreStub []int64

func (s adminStoreStub) ListAdminIDs(_ context.Context) ([]int64, error) {
	return s, nil
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newServiceForTest() (*Service, *memoryDisputeStore, *memoryNotifier) {
	store := newMemoryDisputeStore()
	notifier := &memoryNotifier{}
	svc := NewService(Dependencies{Store: store, Notifier: notifier})
	svc.runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return fn(ctx, nil)
	}
	svc.now = func() time.Time { return testNow }
	return svc, store, notifier
}

var disputeIDPattern = regexp.MustCompile(`^DSP-\d+-\d{4}$`)

func TestCreateSetsIDDeadlinesAndTimeline(t *testing.T) {
	svc, store, notifier := newServiceForTest()

	ctx := context.Background()
	id, disputeID, err := svc.Create(ctx, 10, CreateRequest{
		Type:         "mentorship",
		RespondentID: 20,
		Title:        "Sessions never happened",
		Description:  "Paid for four sessions, got none.",
	})
	if err != nil {
		t.Fatalf("create dispute: %v", err)
	}
	if !disputeIDPattern.MatchString(disputeID) {
		t.Fatalf("unexpected dispute id format: %q", disputeID)
	}

	dispute, _ := store.GetByID(ctx, id)
	if dispute.Status != "open" || dispute.Priority != "medium" {
		t.Fatalf("unexpected dispute: %+v", dispute)
	}
	if want := testNow.AddDate(0, 0, 7); !dispute.ResponseDeadline.Equal(want) {
		t.Fatalf("expected response deadline %v, got %v", want, dispute.ResponseDeadline)
	}
	if want := testNow.AddDate(0, 0, 14); !dispute.MediationDeadline.Equal(want) {
		t.Fatalf("expected mediation deadline %v, got %v", want, dispute.MediationDeadline)
	}
	if want := testNow.AddDate(0, 0, 30); !dispute.ResolutionDeadline.Equal(want) {
		t.Fatalf("expected resolution deadline %v, got %v", want, dispute.ResolutionDeadline)
	}

	timeline, _ := store.ListTimeline(ctx, id)
	if len(timeline) != 1 || timeline[0].Action != "dispute_created" {
		t.Fatalf("expected dispute_created timeline entry, got %+v", timeline)
	}
	if notifier.count(20, "dispute_opened") != 1 {
		t.Fatalf("expected respondent notified, got %+v", notifier.sent)
	}
}

func TestCreateHighPriorityAlertsAdmins(t *testing.T) {
	svc, _, notifier := newServiceForTest()
	svc.admins = adminStoreStub{1, 2}

	ctx := context.Background()
	if _, _, err := svc.Create(ctx, 10, CreateRequest{
		Type:         "project",
		Priority:     "high",
		RespondentID: 20,
		Title:        "Refund withheld",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, adminID := range []int64{1, 2} {
		if notifier.count(adminID, "dispute_opened") != 1 {
			t.Fatalf("expected admin %d notified, got %+v", adminID, notifier.sent)
		}
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newServiceForTest()
	ctx := context.Background()

	if _, _, err := svc.Create(ctx, 10, CreateRequest{Type: "mentorship", RespondentID: 10, Title: "x"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for self dispute, got %v", err)
	}
	if _, _, err := svc.Create(ctx, 10, CreateRequest{Type: "parking", RespondentID: 20, Title: "x"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for bad type, got %v", err)
	}
	if _, _, err := svc.Create(ctx, 10, CreateRequest{Type: "mentorship", RespondentID: 20}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty title, got %v", err)
	}
}

func TestStartReviewMovesOpenDispute(t *testing.T) {
	svc, store, notifier := newServiceForTest()
	ctx := context.Background()

	id, _, err := svc.Create(ctx, 10, CreateRequest{Type: "project", RespondentID: 20, Title: "Unpaid work"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.StartReview(ctx, 1, id); err != nil {
		t.Fatalf("start review: %v", err)
	}

	dispute, _ := store.GetByID(ctx, id)
	if dispute.Status != "under_review" {
		t.Fatalf("expected under_review status, got %q", dispute.Status)
	}
	timeline, _ := store.ListTimeline(ctx, id)
	if timeline[len(timeline)-1].Action != "review_started" {
		t.Fatalf("expected review_started entry, got %+v", timeline)
	}
	if notifier.count(10, "dispute_under_review") != 1 || notifier.count(20, "dispute_under_review") != 1 {
		t.Fatalf("expected both parties notified of review")
	}

	// Only an open dispute can enter review.
	if err := svc.StartReview(ctx, 1, id); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved on second review, got %v", err)
	}
	if err := svc.StartReview(ctx, 1, 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// A reviewed dispute still moves on to mediation.
	if err := svc.AssignMediator(ctx, 1, id, 30); err != nil {
		t.Fatalf("assign mediator after review: %v", err)
	}
	dispute, _ = store.GetByID(ctx, id)
	if dispute.Status != "mediation" {
		t.Fatalf("expected mediation status, got %q", dispute.Status)
	}
}

func TestAssignMediatorMovesToMediation(t *testing.T) {
	svc, store, notifier := newServiceForTest()
	ctx := context.Background()

	id, _, err := svc.Create(ctx, 10, CreateRequest{Type: "project", RespondentID: 20, Title: "Unpaid work"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.AssignMediator(ctx, 1, id, 30); err != nil {
		t.Fatalf("assign mediator: %v", err)
	}

	dispute, _ := store.GetByID(ctx, id)
	if dispute.Status != "mediation" || dispute.MediatorID == nil || *dispute.MediatorID != 30 {
		t.Fatalf("unexpected dispute after assignment: %+v", dispute)
	}

	timeline, _ := store.ListTimeline(ctx, id)
	if timeline[len(timeline)-1].Action != "mediator_assigned" {
		t.Fatalf("expected mediator_assigned entry, got %+v", timeline)
	}
	if notifier.count(30, "dispute_mediation") != 1 {
		t.Fatalf("expected mediator notified")
	}
}

func TestResolveRecordsOutcomeOnce(t *testing.T) {
	svc, store, notifier := newServiceForTest()
	ctx := context.Background()

	id, _, err := svc.Create(ctx, 10, CreateRequest{Type: "project", RespondentID: 20, Title: "Unpaid work"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	compensation := 250.0
	deadline := testNow.AddDate(0, 0, 5)
	err = svc.Resolve(ctx, 1, id, ResolveRequest{
		ResolutionType: "compensation",
		Description:    "Respondent pays for completed milestones.",
		Compensation:   &compensation,
		FollowUps: []FollowUpRequest{
			{Description: "Transfer payment", AssignedTo: 20, Deadline: deadline},
		},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	dispute, _ := store.GetByID(ctx, id)
	if dispute.Status != "resolved" || dispute.ResolutionType == nil || *dispute.ResolutionType != "compensation" {
		t.Fatalf("unexpected dispute after resolve: %+v", dispute)
	}
	if dispute.Compensation == nil || *dispute.Compensation != 250.0 {
		t.Fatalf("expected compensation recorded, got %+v", dispute.Compensation)
	}

	timeline, _ := store.ListTimeline(ctx, id)
	if timeline[len(timeline)-1].Action != "dispute_resolved" {
		t.Fatalf("expected dispute_resolved entry, got %+v", timeline)
	}
	if len(store.followUps[id]) != 1 {
		t.Fatalf("expected follow-up action recorded")
	}
	if notifier.count(10, "dispute_resolved") != 1 || notifier.count(20, "dispute_resolved") != 1 {
		t.Fatalf("expected both parties notified")
	}
	if notifier.count(20, "dispute_follow_up") != 1 {
		t.Fatalf("expected follow-up assignee notified")
	}

	err = svc.Resolve(ctx, 1, id, ResolveRequest{ResolutionType: "refund", Description: "second try"})
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved on second resolve, got %v", err)
	}
}

func TestMessagesEnforceParticipationAndPrivacy(t *testing.T) {
	svc, store, _ := newServiceForTest()
	ctx := context.Background()

	id, _, err := svc.Create(ctx, 10, CreateRequest{Type: "project", RespondentID: 20, Title: "Unpaid work"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.AssignMediator(ctx, 1, id, 30); err != nil {
		t.Fatalf("assign mediator: %v", err)
	}

	if _, err := svc.AddMessage(ctx, Actor{ID: 99, Role: "client"}, id, "let me in", false); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for outsider, got %v", err)
	}
	if _, err := svc.AddMessage(ctx, Actor{ID: 10}, id, "secret note", true); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for private note by party, got %v", err)
	}
	if _, err := svc.AddMessage(ctx, Actor{ID: 10}, id, "my side of the story", false); err != nil {
		t.Fatalf("party message: %v", err)
	}
	if _, err := svc.AddMessage(ctx, Actor{ID: 30}, id, "mediator-only note", true); err != nil {
		t.Fatalf("mediator private note: %v", err)
	}

	partyView, err := svc.Get(ctx, Actor{ID: 10}, id)
	if err != nil {
		t.Fatalf("party get: %v", err)
	}
	for _, message := range partyView.Messages {
		if message.IsPrivate {
			t.Fatalf("private note leaked to party: %+v", message)
		}
	}

	mediatorView, err := svc.Get(ctx, Actor{ID: 30}, id)
	if err != nil {
		t.Fatalf("mediator get: %v", err)
	}
	if len(mediatorView.Messages) != len(partyView.Messages)+1 {
		t.Fatalf("expected mediator to see private note")
	}
	_ = store
}

func TestAdminsActOnAnyDispute(t *testing.T) {
	svc, _, _ := newServiceForTest()
	ctx := context.Background()

	id, _, err := svc.Create(ctx, 10, CreateRequest{Type: "project", RespondentID: 20, Title: "Unpaid work"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// User 50 is not a participant but carries the admin role.
	admin := Actor{ID: 50, Role: "admin"}
	if _, err := svc.AddMessage(ctx, admin, id, "reviewing this case", false); err != nil {
		t.Fatalf("admin message: %v", err)
	}
	if _, err := svc.AddMessage(ctx, admin, id, "internal note", true); err != nil {
		t.Fatalf("admin private note: %v", err)
	}
	if _, err := svc.AddEvidence(ctx, admin, id, "report", "disputes/1/report.pdf", ""); err != nil {
		t.Fatalf("admin evidence: %v", err)
	}

	adminView, err := svc.Get(ctx, admin, id)
	if err != nil {
		t.Fatalf("admin get: %v", err)
	}
	private := 0
	for _, message := range adminView.Messages {
		if message.IsPrivate {
			private++
		}
	}
	if private != 1 {
		t.Fatalf("expected admin to see the private note, got %d", private)
	}

	if _, err := svc.AddMessage(ctx, Actor{ID: 50, Role: "client"}, id, "same user, no role", false); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized without admin role, got %v", err)
	}
}

func TestAddEvidenceAppendsTimeline(t *testing.T) {
	svc, store, _ := newServiceForTest()
	ctx := context.Background()

	id, _, err := svc.Create(ctx, 10, CreateRequest{Type: "project", RespondentID: 20, Title: "Unpaid work"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.AddEvidence(ctx, Actor{ID: 99, Role: "mentor"}, id, "screenshot", "disputes/1/a.png", ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for outsider, got %v", err)
	}

	evidenceID, err := svc.AddEvidence(ctx, Actor{ID: 20}, id, "screenshot", "disputes/1/a.png", "chat log")
	if err != nil {
		t.Fatalf("add evidence: %v", err)
	}
	if evidenceID == uuid.Nil {
		t.Fatalf("expected evidence id")
	}

	timeline, _ := store.ListTimeline(ctx, id)
	if timeline[len(timeline)-1].Action != "evidence_submitted" {
		t.Fatalf("expected evidence_submitted entry, got %+v", timeline)
	}
}

func TestSweepDeadlinesEscalatesOverdue(t *testing.T) {
	svc, store, notifier := newServiceForTest()
	ctx := context.Background()

	id, _, err := svc.Create(ctx, 10, CreateRequest{Type: "project", RespondentID: 20, Title: "Unpaid work"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Jump past the response deadline.
	svc.now = func() time.Time { return testNow.AddDate(0, 0, 8) }

	escalated, err := svc.SweepDeadlines(ctx, 100)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if escalated != 1 {
		t.Fatalf("expected one escalation, got %d", escalated)
	}

	dispute, _ := store.GetByID(ctx, id)
	if dispute.Priority != "high" {
		t.Fatalf("expected priority escalated to high, got %q", dispute.Priority)
	}

	timeline, _ := store.ListTimeline(ctx, id)
	if timeline[len(timeline)-1].Action != "deadline_passed" {
		t.Fatalf("expected deadline_passed entry, got %+v", timeline)
	}
	if notifier.count(10, "dispute_deadline_passed") != 1 || notifier.count(20, "dispute_deadline_passed") != 1 {
		t.Fatalf("expected both parties notified of deadline miss")
	}

	// Resolved disputes are left alone.
	if err := svc.Resolve(ctx, 1, id, ResolveRequest{ResolutionType: "dismissed", Description: "settled offline"}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	escalated, err = svc.SweepDeadlines(ctx, 100)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if escalated != 0 {
		t.Fatalf("expected no escalations after resolution, got %d", escalated)
	}
}
