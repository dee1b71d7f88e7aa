package orchestrator

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ergasia-workers/internal/audit"
	"ergasia-workers/internal/common/errors"
	"ergasia-workers/internal/common/logger"
	"ergasia-workers/internal/identity"
	"ergasia-workers/internal/models"
	"ergasia-workers/internal/reconcile"
)

// ==========================
// In-memory backend
// ==========================

// backend plays all six services against shared state so sagas can be
// checked end to end.
type backend struct {
	mu sync.Mutex

	jobs        map[string]*models.Job
	appliers    map[string]*models.Applier
	invitations map[string]*models.Invitation
	roster      map[string][]string
	wallet      map[string]int64
	escrow      map[string]int64
	submissions map[string]*models.Submission
	inbox       []models.InboxMessage
	payouts     map[string]int

	calls      []string
	failBefore map[string][]error
	failAfter  map[string][]error
	seq        int
}

func newBackend() *backend {
	return &backend{
		jobs:        map[string]*models.Job{},
		appliers:    map[string]*models.Applier{},
		invitations: map[string]*models.Invitation{},
		roster:      map[string][]string{},
		wallet:      map[string]int64{},
		escrow:      map[string]int64{},
		submissions: map[string]*models.Submission{},
		payouts:     map[string]int{},
		failBefore:  map[string][]error{},
		failAfter:   map[string][]error{},
	}
}

// failNext makes the next call to method fail without effect.
func (b *backend) failNext(method string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failBefore[method] = append(b.failBefore[method], err)
}

// landThenFail makes the next call to method apply its effect and then
// report err.
func (b *backend) landThenFail(method string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failAfter[method] = append(b.failAfter[method], err)
}

// enter records the call and returns an injected pre-effect failure.
func (b *backend) enter(method string) error {
	b.calls = append(b.calls, method)
	if errs := b.failBefore[method]; len(errs) > 0 {
		b.failBefore[method] = errs[1:]
		return errs[0]
	}
	return nil
}

func (b *backend) leave(method string) error {
	if errs := b.failAfter[method]; len(errs) > 0 {
		b.failAfter[method] = errs[1:]
		return errs[0]
	}
	return nil
}

func (b *backend) countCalls(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (b *backend) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s-%d", prefix, b.seq)
}

func (b *backend) addJob(job models.Job) {
	b.mu.Lock()
	defer b.mu.Unlock()
	j := job
	b.jobs[job.ID] = &j
}

func (b *backend) jobStatus(jobID string) models.JobStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.jobs[jobID].Status
}

func (b *backend) rosterOf(jobID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.roster[jobID]...)
}

func (b *backend) inboxFor(userID string) []models.InboxMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.InboxMessage
	for _, m := range b.inbox {
		if m.ReceiverID == userID {
			out = append(out, m)
		}
	}
	return out
}

func (b *backend) invitationsFor(jobID, userID string) []models.Invitation {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.Invitation
	for _, inv := range b.invitations {
		if inv.JobID == jobID && inv.InviteeID == userID {
			out = append(out, *inv)
		}
	}
	return out
}

func transient(service string) error {
	return errors.NewExternalServiceError(service, stderrors.New("503 service unavailable"))
}

// jobsAPI, appliersAPI, ... give each service its own method set over the
// shared backend.
type (
	jobsAPI        struct{ *backend }
	appliersAPI    struct{ *backend }
	invitationsAPI struct{ *backend }
	rosterAPI      struct{ *backend }
	submissionsAPI struct{ *backend }
	inboxAPI       struct{ *backend }
)

// ---- Job ----

func (b jobsAPI) GetJob(_ context.Context, jobID string) (*models.Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("GetJob"); err != nil {
		return nil, err
	}
	job, ok := b.jobs[jobID]
	if !ok {
		return nil, errors.NewResourceNotFoundError("job", "job "+jobID)
	}
	out := *job
	return &out, nil
}

// GetJobFresh shares the backing map with GetJob and is counted apart.
func (b jobsAPI) GetJobFresh(_ context.Context, jobID string) (*models.Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("GetJobFresh"); err != nil {
		return nil, err
	}
	job, ok := b.jobs[jobID]
	if !ok {
		return nil, errors.NewResourceNotFoundError("job", "job "+jobID)
	}
	out := *job
	return &out, nil
}

func (b jobsAPI) SetStatus(_ context.Context, jobID string, status models.JobStatus) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("SetStatus"); err != nil {
		return err
	}
	job, ok := b.jobs[jobID]
	if !ok {
		return errors.NewResourceNotFoundError("job", "job "+jobID)
	}
	next, ok := job.Status.Next()
	if !ok || next != status {
		return errors.NewInvalidStateError("illegal transition", string(job.Status)+" -> "+string(status))
	}
	job.Status = status
	return b.leave("SetStatus")
}

// ---- Applier ----

func applierKey(userID, jobID string) string { return userID + "|" + jobID }

func (b appliersAPI) Apply(_ context.Context, userID, jobID string) (*models.Applier, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("Apply"); err != nil {
		return nil, err
	}
	key := applierKey(userID, jobID)
	if _, ok := b.appliers[key]; ok {
		return nil, &errors.StandardError{Code: errors.ErrCodeDuplicateApplication, Message: "already applied"}
	}
	a := &models.Applier{UserID: userID, JobID: jobID, Status: models.ApplierPending, AppliedAt: time.Now()}
	b.appliers[key] = a
	out := *a
	return &out, nil
}

func (b appliersAPI) HasApplied(_ context.Context, userID, jobID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("HasApplied"); err != nil {
		return false, err
	}
	_, ok := b.appliers[applierKey(userID, jobID)]
	return ok, nil
}

func (b appliersAPI) Accept(_ context.Context, userID, jobID string) error {
	return b.setApplier("AcceptApplier", userID, jobID, models.ApplierAccepted)
}

func (b appliersAPI) Reject(_ context.Context, userID, jobID string) error {
	return b.setApplier("RejectApplier", userID, jobID, models.ApplierRejected)
}

func (b appliersAPI) setApplier(method, userID, jobID string, status models.ApplierStatus) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(method); err != nil {
		return err
	}
	a, ok := b.appliers[applierKey(userID, jobID)]
	if !ok {
		return errors.NewResourceNotFoundError("applier", applierKey(userID, jobID))
	}
	a.Status = status
	return nil
}

// ---- Invitation ----

func (b invitationsAPI) FindByJobAndUser(_ context.Context, jobID, userID string) (*models.Invitation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("FindInvitation"); err != nil {
		return nil, err
	}
	var found *models.Invitation
	for _, inv := range b.invitations {
		if inv.JobID == jobID && inv.InviteeID == userID {
			if found == nil || !inv.IsRejected {
				found = inv
			}
		}
	}
	if found == nil {
		return nil, nil
	}
	out := *found
	return &out, nil
}

func (b invitationsAPI) Get(_ context.Context, invitationID string) (*models.Invitation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("GetInvitation"); err != nil {
		return nil, err
	}
	inv, ok := b.invitations[invitationID]
	if !ok {
		return nil, errors.NewResourceNotFoundError("invitation", invitationID)
	}
	out := *inv
	return &out, nil
}

func (b invitationsAPI) Create(_ context.Context, jobID, inviterID, inviteeID string) (*models.Invitation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("CreateInvitation"); err != nil {
		return nil, err
	}
	inv := &models.Invitation{
		ID:        b.nextID("inv"),
		JobID:     jobID,
		InviterID: inviterID,
		InviteeID: inviteeID,
		InvitedAt: time.Now(),
	}
	b.invitations[inv.ID] = inv
	out := *inv
	return &out, nil
}

func (b invitationsAPI) Accept(_ context.Context, userID, invitationID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("AcceptInvitation"); err != nil {
		return err
	}
	inv := b.invitations[invitationID]
	inv.IsAccepted = true
	return b.leave("AcceptInvitation")
}

func (b invitationsAPI) Reject(_ context.Context, userID, invitationID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("RejectInvitation"); err != nil {
		return err
	}
	b.invitations[invitationID].IsRejected = true
	return nil
}

// ---- JobTransaction ----

func (b rosterAPI) AppendFreelancer(_ context.Context, jobID, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("AppendFreelancer"); err != nil {
		return err
	}
	job := b.jobs[jobID]
	for _, id := range b.roster[jobID] {
		if id == userID {
			return nil
		}
	}
	if len(b.roster[jobID]) >= job.Slots {
		return errors.NewSlotsFullError(jobID)
	}
	b.roster[jobID] = append(b.roster[jobID], userID)
	return b.leave("AppendFreelancer")
}

func (b rosterAPI) IsRegistered(_ context.Context, jobID, userID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("IsRegistered"); err != nil {
		return false, err
	}
	for _, id := range b.roster[jobID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (b rosterAPI) ListAccepted(_ context.Context, jobID string) ([]models.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("ListAccepted"); err != nil {
		return nil, err
	}
	var out []models.User
	for _, id := range b.roster[jobID] {
		out = append(out, models.User{ID: id})
	}
	return out, nil
}

func (b rosterAPI) DebitForStart(_ context.Context, jobID string, amount int64) (*models.Transaction, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("DebitForStart"); err != nil {
		return nil, err
	}
	owner := b.jobs[jobID].OwnerID
	if b.wallet[owner] < amount {
		return nil, errors.NewInsufficientFundsError("Insufficient Balance.")
	}
	b.wallet[owner] -= amount
	b.escrow[jobID] += amount
	if err := b.leave("DebitForStart"); err != nil {
		return nil, err
	}
	return &models.Transaction{ID: b.nextID("tx"), JobID: jobID, Amount: amount, Kind: "debit"}, nil
}

func (b rosterAPI) EscrowBalance(_ context.Context, jobID string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("EscrowBalance"); err != nil {
		return 0, err
	}
	return b.escrow[jobID], nil
}

func (b rosterAPI) PayoutFreelancers(_ context.Context, jobID string) (*models.Payout, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("PayoutFreelancers"); err != nil {
		return nil, err
	}
	payout := &models.Payout{JobID: jobID}
	members := b.roster[jobID]
	if b.escrow[jobID] > 0 && len(members) > 0 {
		share := b.escrow[jobID] / int64(len(members))
		for _, id := range members {
			payout.Transfers = append(payout.Transfers, models.Transaction{JobID: jobID, UserID: id, Amount: share, Kind: "payout"})
			b.wallet[id] += share
		}
		b.escrow[jobID] = 0
		b.payouts[jobID]++
	}
	return payout, nil
}

// ---- Submission ----

func (b submissionsAPI) Create(_ context.Context, in models.NewSubmission) (*models.Submission, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("CreateSubmission"); err != nil {
		return nil, err
	}
	sub := &models.Submission{
		ID:       b.nextID("sub"),
		JobID:    in.JobID,
		User:     in.User,
		Message:  in.Message,
		FileName: in.FileName,
		Status:   models.SubmissionWaiting,
	}
	b.submissions[sub.ID] = sub
	out := *sub
	return &out, nil
}

func (b submissionsAPI) Get(_ context.Context, submissionID string) (*models.Submission, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("GetSubmission"); err != nil {
		return nil, err
	}
	sub, ok := b.submissions[submissionID]
	if !ok {
		return nil, errors.NewResourceNotFoundError("submission", submissionID)
	}
	out := *sub
	return &out, nil
}

func (b submissionsAPI) UpdateStatus(_ context.Context, submissionID string, status models.SubmissionStatus, rejectMessage string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("UpdateSubmission"); err != nil {
		return err
	}
	sub := b.submissions[submissionID]
	if sub.Status != models.SubmissionWaiting {
		return errors.NewConflictError("submission", "already reviewed")
	}
	sub.Status = status
	sub.RejectMessage = rejectMessage
	return nil
}

func (b *backend) submission(id string) models.Submission {
	b.mu.Lock()
	defer b.mu.Unlock()
	return *b.submissions[id]
}

// ---- Inbox ----

func (b inboxAPI) Create(_ context.Context, notice models.Notice) (*models.InboxMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("CreateInbox"); err != nil {
		return nil, err
	}
	msg := models.InboxMessage{
		ID:         b.nextID("msg"),
		SenderID:   notice.SenderID,
		ReceiverID: notice.ReceiverID,
		JobID:      notice.JobID,
		Category:   notice.Category,
		Action:     notice.Action,
		Message:    notice.Message,
		CreatedAt:  time.Now(),
	}
	b.inbox = append(b.inbox, msg)
	return &msg, nil
}

func (b inboxAPI) MarkRead(_ context.Context, userID, inboxID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("MarkRead"); err != nil {
		return err
	}
	for i := range b.inbox {
		if b.inbox[i].ID == inboxID {
			if b.inbox[i].ReceiverID != userID {
				return errors.NewForbiddenError("not the receiver")
			}
			b.inbox[i].Read = true
			return nil
		}
	}
	return errors.NewResourceNotFoundError("inbox", inboxID)
}

func (b inboxAPI) ListByUser(_ context.Context, userID string) ([]models.InboxMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("ListInbox"); err != nil {
		return nil, err
	}
	var out []models.InboxMessage
	for _, m := range b.inbox {
		if m.ReceiverID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

// ==========================
// In-memory ledger
// ==========================

type memLedger struct {
	mu      sync.Mutex
	records map[string]*reconcile.Record
	seq     int
	openErr error
}

func newMemLedger() *memLedger {
	return &memLedger{records: map[string]*reconcile.Record{}}
}

func (l *memLedger) Open(_ context.Context, rec reconcile.Record) (*reconcile.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.openErr != nil {
		return nil, l.openErr
	}
	for _, existing := range l.records {
		if existing.Kind == rec.Kind && existing.JobID == rec.JobID && existing.SubjectID == rec.SubjectID &&
			existing.Status != reconcile.StatusResolved {
			existing.LastError = rec.LastError
			if rec.Status == reconcile.StatusManual {
				existing.Status = reconcile.StatusManual
			}
			out := *existing
			return &out, nil
		}
	}
	l.seq++
	stored := rec
	stored.ID = fmt.Sprintf("rec-%d", l.seq)
	if stored.Status == "" {
		stored.Status = reconcile.StatusOpen
	}
	l.records[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (l *memLedger) Get(_ context.Context, id string) (*reconcile.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[id]
	if !ok {
		return nil, errors.NewResourceNotFoundError("reconcile", id)
	}
	out := *rec
	return &out, nil
}

func (l *memLedger) FindOpen(_ context.Context, kind reconcile.Kind, jobID, subjectID string) (*reconcile.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rec := range l.records {
		if rec.Kind == kind && rec.JobID == jobID && rec.SubjectID == subjectID && rec.Status != reconcile.StatusResolved {
			out := *rec
			return &out, nil
		}
	}
	return nil, nil
}

func (l *memLedger) ListOpen(_ context.Context, limit int) ([]reconcile.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []reconcile.Record
	for i := 1; i <= l.seq && len(out) < limit; i++ {
		if rec, ok := l.records[fmt.Sprintf("rec-%d", i)]; ok && rec.Status == reconcile.StatusOpen {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (l *memLedger) Resolve(_ context.Context, id, resolution string) error {
	return l.set(id, reconcile.StatusResolved, resolution)
}

func (l *memLedger) MarkManual(_ context.Context, id, reason string) error {
	return l.set(id, reconcile.StatusManual, reason)
}

func (l *memLedger) set(id string, status reconcile.Status, resolution string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[id]
	if !ok {
		return errors.NewResourceNotFoundError("reconcile", id)
	}
	rec.Status = status
	rec.Resolution = resolution
	return nil
}

func (l *memLedger) RecordAttempt(_ context.Context, id, lastError string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[id]
	if !ok {
		return 0, errors.NewResourceNotFoundError("reconcile", id)
	}
	rec.Attempts++
	rec.LastError = lastError
	return rec.Attempts, nil
}

func (l *memLedger) all() []reconcile.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []reconcile.Record
	for i := 1; i <= l.seq; i++ {
		if rec, ok := l.records[fmt.Sprintf("rec-%d", i)]; ok {
			out = append(out, *rec)
		}
	}
	return out
}

// ==========================
// Recorders
// ==========================

type recordingAlerter struct {
	mu        sync.Mutex
	opened    []reconcile.Record
	escalated []reconcile.Record
}

func (a *recordingAlerter) ReconciliationOpened(_ context.Context, rec reconcile.Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.opened = append(a.opened, rec)
	return nil
}

func (a *recordingAlerter) ReconciliationEscalated(_ context.Context, rec reconcile.Record, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.escalated = append(a.escalated, rec)
	return nil
}

type recordingAuditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *recordingAuditor) Record(_ context.Context, ev audit.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []models.InboxMessage
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg models.InboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

// ==========================
// Fixture
// ==========================

const (
	ownerID = "owner-1"
	aliceID = "freelancer-alice"
	bobID   = "freelancer-bob"
	carolID = "freelancer-carol"
)

var (
	owner = identity.Actor{UserID: ownerID}
	alice = identity.Actor{UserID: aliceID}
	bob   = identity.Actor{UserID: bobID}
	carol = identity.Actor{UserID: carolID}
)

type fixture struct {
	orch      *Orchestrator
	backend   *backend
	ledger    *memLedger
	alerter   *recordingAlerter
	auditor   *recordingAuditor
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := newBackend()
	f := &fixture{
		backend:   b,
		ledger:    newMemLedger(),
		alerter:   &recordingAlerter{},
		auditor:   &recordingAuditor{},
		publisher: &recordingPublisher{},
	}
	f.orch = New(Deps{
		Jobs:        jobsAPI{b},
		Appliers:    appliersAPI{b},
		Invitations: invitationsAPI{b},
		Roster:      rosterAPI{b},
		Submissions: submissionsAPI{b},
		Inbox:       inboxAPI{b},
		Ledger:      f.ledger,
		Auditor:     f.auditor,
		Alerter:     f.alerter,
		Publisher:   f.publisher,
		Logger:      logger.NewTestLogger(t),
	}, Config{MaxReplayAttempts: 3})
	return f
}

// withJob seeds a job owned by owner-1.
func (f *fixture) withJob(id string, status models.JobStatus, slots int) *fixture {
	f.backend.addJob(models.Job{ID: id, OwnerID: ownerID, Name: "Logo design", Salary: 100, Slots: slots, Status: status})
	return f
}

func (f *fixture) onRoster(jobID string, users ...string) *fixture {
	f.backend.mu.Lock()
	defer f.backend.mu.Unlock()
	f.backend.roster[jobID] = append(f.backend.roster[jobID], users...)
	return f
}

func (f *fixture) withWallet(userID string, amount int64) *fixture {
	f.backend.mu.Lock()
	defer f.backend.mu.Unlock()
	f.backend.wallet[userID] = amount
	return f
}

// invite creates an invitation through the saga and returns its id.
func (f *fixture) invite(t *testing.T, jobID, userID string) string {
	t.Helper()
	inv, err := f.orch.InviteFreelancer(context.Background(), owner, jobID, userID)
	if err != nil {
		t.Fatalf("invite %s: %v", userID, err)
	}
	return inv.ID
}
