package service

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/neuroref/config"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/form"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/notification"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain/response"
	"github.com/dmehra2102/prod-golang-projects/neuroref/pkg/events"
	"github.com/dmehra2102/prod-golang-projects/neuroref/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/neuroref/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var epoch = time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)

// memDB backs every in-memory repository used by the service tests. Rows
// are stored without associations; reads hydrate them like a preload.
type memDB struct {
	mu     sync.Mutex
	nextID uint

	users         map[uint]domain.User
	patients      map[uint]patient.Patient
	forms         map[uint]form.MedicalForm
	attachments   map[uint]form.FileAttachment
	responses     map[uint]response.FormResponse
	notifications map[uint]notification.Notification
	audits        []domain.AuditLog

	// Fault injection.
	failUpdateStatus error
	failResponse     error
}

func newMemDB() *memDB {
	return &memDB{
		users:         map[uint]domain.User{},
		patients:      map[uint]patient.Patient{},
		forms:         map[uint]form.MedicalForm{},
		attachments:   map[uint]form.FileAttachment{},
		responses:     map[uint]response.FormResponse{},
		notifications: map[uint]notification.Notification{},
	}
}

func (db *memDB) id() uint {
	db.nextID++
	return db.nextID
}

type memSnapshot struct {
	users         map[uint]domain.User
	patients      map[uint]patient.Patient
	forms         map[uint]form.MedicalForm
	attachments   map[uint]form.FileAttachment
	responses     map[uint]response.FormResponse
	notifications map[uint]notification.Notification
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (db *memDB) snapshot() memSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	return memSnapshot{
		users:         cloneMap(db.users),
		patients:      cloneMap(db.patients),
		forms:         cloneMap(db.forms),
		attachments:   cloneMap(db.attachments),
		responses:     cloneMap(db.responses),
		notifications: cloneMap(db.notifications),
	}
}

func (db *memDB) restore(s memSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users = s.users
	db.patients = s.patients
	db.forms = s.forms
	db.attachments = s.attachments
	db.responses = s.responses
	db.notifications = s.notifications
}

// memTx rolls the whole memDB back when fn fails.
type memTx struct{ db *memDB }

func (t memTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := t.db.snapshot()
	if err := fn(ctx); err != nil {
		t.db.restore(snap)
		return err
	}
	return nil
}

// users

type memUsers struct{ db *memDB }

func (r memUsers) Create(_ context.Context, u *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return domain.ErrUserAlreadyExists
		}
	}
	u.ID = r.db.id()
	r.db.users[u.ID] = *u
	return nil
}

func (r memUsers) Update(_ context.Context, u *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[u.ID]; !ok {
		return domain.ErrUserNotFound
	}
	r.db.users[u.ID] = *u
	return nil
}

func (r memUsers) GetByID(_ context.Context, id uint) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r memUsers) find(match func(domain.User) bool) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	return r.find(func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r memUsers) GetByCIN(_ context.Context, cin string) (*domain.User, error) {
	cin = strings.TrimSpace(cin)
	return r.find(func(u domain.User) bool { return u.CIN != "" && u.CIN == cin })
}

func (r memUsers) ListByRoles(_ context.Context, roles []domain.Role, active bool) ([]*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*domain.User
	for _, u := range r.db.users {
		if slices.Contains(roles, u.Role) && u.IsActive == active {
			u := u
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memUsers) CountByRole(_ context.Context, role domain.Role) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, u := range r.db.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (r memUsers) mutate(id uint, fn func(*domain.User)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	fn(&u)
	r.db.users[id] = u
	return nil
}

func (r memUsers) SetActive(_ context.Context, id uint, active bool) error {
	return r.mutate(id, func(u *domain.User) { u.IsActive = active })
}

func (r memUsers) Delete(_ context.Context, id uint) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.db.users, id)
	return nil
}

func (r memUsers) RecordLoginSuccess(_ context.Context, id uint, at time.Time) error {
	return r.mutate(id, func(u *domain.User) {
		u.FailedLoginCount = 0
		u.LockedUntil = nil
		u.LastLoginAt = &at
	})
}

func (r memUsers) RecordLoginFailure(_ context.Context, id uint, lockUntil *time.Time) error {
	return r.mutate(id, func(u *domain.User) {
		u.FailedLoginCount++
		if lockUntil != nil {
			u.LockedUntil = lockUntil
		}
	})
}

func (r memUsers) UpdatePassword(_ context.Context, id uint, hash string) error {
	return r.mutate(id, func(u *domain.User) { u.PasswordHash = hash })
}

// patients

type memPatients struct{ db *memDB }

func (r memPatients) GetByID(_ context.Context, id uint) (*patient.Patient, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.patients[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	return &p, nil
}

func (r memPatients) GetByCIN(_ context.Context, cin string) (*patient.Patient, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.patients {
		if p.CIN == cin {
			return &p, nil
		}
	}
	return nil, patient.ErrPatientNotFound
}

func (r memPatients) Save(_ context.Context, p *patient.Patient) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if p.ID == 0 {
		p.ID = r.db.id()
		p.CreatedAt = epoch
	}
	row := *p
	row.ReferringDoctor = nil
	r.db.patients[p.ID] = row
	return nil
}

// forms

type memForms struct{ db *memDB }

func (r memForms) Create(_ context.Context, f *form.MedicalForm) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	f.ID = r.db.id()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = epoch.Add(time.Duration(f.ID) * time.Minute)
	}
	row := *f
	row.Patient, row.Doctor, row.AssignedTo, row.Attachments = nil, nil, nil, nil
	r.db.forms[f.ID] = row
	return nil
}

// hydrate must be called with the lock held.
func (r memForms) hydrate(row form.MedicalForm) *form.MedicalForm {
	f := row
	if p, ok := r.db.patients[f.PatientID]; ok {
		f.Patient = &p
	}
	if u, ok := r.db.users[f.DoctorID]; ok {
		f.Doctor = &u
	}
	if f.AssignedToID != nil {
		id := *f.AssignedToID
		f.AssignedToID = &id
		if u, ok := r.db.users[id]; ok {
			f.AssignedTo = &u
		}
	}
	for _, a := range r.db.attachments {
		if a.FormID == f.ID {
			f.Attachments = append(f.Attachments, a)
		}
	}
	sort.Slice(f.Attachments, func(i, j int) bool { return f.Attachments[i].ID < f.Attachments[j].ID })
	return &f
}

func (r memForms) GetByID(_ context.Context, id uint) (*form.MedicalForm, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	row, ok := r.db.forms[id]
	if !ok {
		return nil, form.ErrFormNotFound
	}
	return r.hydrate(row), nil
}

func (r memForms) LatestByPatient(ctx context.Context, patientID uint) (*form.MedicalForm, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var latest *form.MedicalForm
	for _, row := range r.db.forms {
		if row.PatientID != patientID {
			continue
		}
		if latest == nil || row.CreatedAt.After(latest.CreatedAt) {
			latest = r.hydrate(row)
		}
	}
	if latest == nil {
		return nil, form.ErrFormNotFound
	}
	return latest, nil
}

func (r memForms) List(_ context.Context, q form.ListQuery) ([]*form.MedicalForm, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*form.MedicalForm
	for _, row := range r.db.forms {
		switch {
		case q.DoctorID != nil && row.DoctorID != *q.DoctorID:
			continue
		case q.AssignedToID != nil && !row.IsAssignedTo(*q.AssignedToID):
			continue
		case q.Unassigned && row.AssignedToID != nil:
			continue
		case len(q.Statuses) > 0 && !slices.Contains(q.Statuses, row.Status):
			continue
		case q.ExcludeStatus != "" && row.Status == q.ExcludeStatus:
			continue
		case q.CreatedAfter != nil && row.CreatedAt.Before(*q.CreatedAfter):
			continue
		case q.PDFMissingOnly && row.PDFGenerated:
			continue
		}
		out = append(out, r.hydrate(row))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r memForms) CountSubmittedByAssignee(_ context.Context, ids []uint) (map[uint]int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	counts := map[uint]int64{}
	for _, row := range r.db.forms {
		if row.Status == form.StatusSubmitted && row.AssignedToID != nil && slices.Contains(ids, *row.AssignedToID) {
			counts[*row.AssignedToID]++
		}
	}
	return counts, nil
}

func (r memForms) mutate(id uint, fn func(*form.MedicalForm)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	row, ok := r.db.forms[id]
	if !ok {
		return form.ErrFormNotFound
	}
	fn(&row)
	r.db.forms[id] = row
	return nil
}

func (r memForms) UpdateStatus(_ context.Context, id uint, s form.Status) error {
	if err := r.db.failUpdateStatus; err != nil {
		return err
	}
	return r.mutate(id, func(f *form.MedicalForm) { f.Status = s })
}

func (r memForms) UpdateStatusIfAssigned(_ context.Context, id, assigneeID uint, s form.Status) (bool, error) {
	if err := r.db.failUpdateStatus; err != nil {
		return false, err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	row, ok := r.db.forms[id]
	if !ok || row.AssignedToID == nil || *row.AssignedToID != assigneeID {
		return false, nil
	}
	row.Status = s
	r.db.forms[id] = row
	return true, nil
}

func (r memForms) ClaimUnassigned(_ context.Context, id, neurologistID uint) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	row, ok := r.db.forms[id]
	if !ok || !row.IsUnclaimed() {
		return false, nil
	}
	row.AssignedToID = &neurologistID
	r.db.forms[id] = row
	return true, nil
}

func (r memForms) Reassign(_ context.Context, id, neurologistID uint) error {
	return r.mutate(id, func(f *form.MedicalForm) { f.AssignedToID = &neurologistID })
}

func (r memForms) ReleaseSubmitted(_ context.Context, neurologistID uint) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for id, row := range r.db.forms {
		if row.Status == form.StatusSubmitted && row.IsAssignedTo(neurologistID) {
			row.AssignedToID = nil
			r.db.forms[id] = row
			n++
		}
	}
	return n, nil
}

func (r memForms) MarkPDFGenerated(_ context.Context, id uint, fileName, path string, at time.Time) error {
	return r.mutate(id, func(f *form.MedicalForm) {
		f.PDFGenerated = true
		f.PDFFileName = fileName
		f.PDFFilePath = path
		f.PDFGeneratedAt = &at
	})
}

func (r memForms) Delete(_ context.Context, id uint) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.forms[id]; !ok {
		return form.ErrFormNotFound
	}
	delete(r.db.forms, id)
	return nil
}

// attachments

type memAttachments struct{ db *memDB }

func (r memAttachments) Create(_ context.Context, a *form.FileAttachment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a.ID = r.db.id()
	r.db.attachments[a.ID] = *a
	return nil
}

func (r memAttachments) GetByID(_ context.Context, id uint) (*form.FileAttachment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.attachments[id]
	if !ok {
		return nil, form.ErrAttachmentNotFound
	}
	return &a, nil
}

func (r memAttachments) ListByForm(_ context.Context, formID uint) ([]*form.FileAttachment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*form.FileAttachment
	for _, a := range r.db.attachments {
		if a.FormID == formID {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memAttachments) DeleteByForm(_ context.Context, formID uint) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, a := range r.db.attachments {
		if a.FormID == formID {
			delete(r.db.attachments, id)
		}
	}
	return nil
}

// responses

type memResponses struct{ db *memDB }

func (r memResponses) Create(_ context.Context, fr *response.FormResponse) error {
	if err := r.db.failResponse; err != nil {
		return err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	fr.ID = r.db.id()
	fr.CreatedAt = epoch.Add(time.Duration(fr.ID) * time.Minute)
	row := *fr
	row.Responder, row.SupervisionDoctor = nil, nil
	r.db.responses[fr.ID] = row
	return nil
}

// byForm must be called with the lock held. Oldest first.
func (r memResponses) byForm(formID uint) []*response.FormResponse {
	var out []*response.FormResponse
	for _, row := range r.db.responses {
		if row.FormID != formID {
			continue
		}
		row := row
		if u, ok := r.db.users[row.ResponderID]; ok {
			row.Responder = &u
		}
		out = append(out, &row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r memResponses) LatestByForm(_ context.Context, formID uint) (*response.FormResponse, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	all := r.byForm(formID)
	if len(all) == 0 {
		return nil, response.ErrResponseNotFound
	}
	return all[len(all)-1], nil
}

func (r memResponses) ExistsByForm(_ context.Context, formID uint) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return len(r.byForm(formID)) > 0, nil
}

func (r memResponses) ListByForm(_ context.Context, formID uint) ([]*response.FormResponse, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.byForm(formID), nil
}

func (r memResponses) DeleteByForm(_ context.Context, formID uint) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, row := range r.db.responses {
		if row.FormID == formID {
			delete(r.db.responses, id)
		}
	}
	return nil
}

// notifications

type memNotifications struct{ db *memDB }

func (r memNotifications) Create(_ context.Context, n *notification.Notification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n.ID = r.db.id()
	n.CreatedAt = epoch.Add(time.Duration(n.ID) * time.Minute)
	r.db.notifications[n.ID] = *n
	return nil
}

func (r memNotifications) GetByID(_ context.Context, id uint) (*notification.Notification, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n, ok := r.db.notifications[id]
	if !ok {
		return nil, notification.ErrNotificationNotFound
	}
	return &n, nil
}

func (r memNotifications) ListByUser(_ context.Context, userID uint, unreadOnly bool) ([]*notification.Notification, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*notification.Notification
	for _, n := range r.db.notifications {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			n := n
			out = append(out, &n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r memNotifications) CountUnread(ctx context.Context, userID uint) (int64, error) {
	list, _ := r.ListByUser(ctx, userID, true)
	return int64(len(list)), nil
}

func (r memNotifications) MarkRead(_ context.Context, id uint) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n, ok := r.db.notifications[id]
	if !ok {
		return notification.ErrNotificationNotFound
	}
	n.IsRead = true
	r.db.notifications[id] = n
	return nil
}

func (r memNotifications) MarkAllRead(_ context.Context, userID uint) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var count int64
	for id, n := range r.db.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			r.db.notifications[id] = n
			count++
		}
	}
	return count, nil
}

func (r memNotifications) Delete(_ context.Context, id uint) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.notifications, id)
	return nil
}

// audit

type memAudit struct{ db *memDB }

func (r memAudit) Create(_ context.Context, e *domain.AuditLog) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.audits = append(r.db.audits, *e)
	return nil
}

// collaborators

type mockRenderer struct{ mock.Mock }

func (m *mockRenderer) Render(f *form.MedicalForm) ([]byte, error) {
	args := m.Called(f)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *mockRenderer) FileName(f *form.MedicalForm) string {
	return m.Called(f).String(0)
}

type mockSink struct{ mock.Mock }

func (m *mockSink) Notify(ctx context.Context, userID uint, in NotificationInput) (*notification.Notification, error) {
	args := m.Called(ctx, userID, in)
	n, _ := args.Get(0).(*notification.Notification)
	return n, args.Error(1)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, e events.Event) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockPublisher) Close() error { return nil }

// failingStore fails every write after the first okWrites.
type failingStore struct {
	AttachmentStore
	okWrites int
	removed  []string
}

func (s *failingStore) Store(ctx context.Context, data []byte, meta storage.Metadata) (string, error) {
	if s.okWrites == 0 {
		return "", errors.New("disk full")
	}
	s.okWrites--
	return s.AttachmentStore.Store(ctx, data, meta)
}

func (s *failingStore) Remove(ctx context.Context, ref string) error {
	s.removed = append(s.removed, ref)
	return s.AttachmentStore.Remove(ctx, ref)
}

// harness wires the services over one memDB.
type harness struct {
	db       *memDB
	users    memUsers
	forms    memForms
	metrics  *metrics.Collector
	audit    *AuditService
	store    *storage.AttachmentStore
	docs     *storage.LocalBackend
	renderer *mockRenderer
	notifier *NotificationService
	log      *zap.Logger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := newMemDB()
	log := zap.NewNop()
	m := metrics.NewCollector("test", prometheus.NewRegistry())

	blobs, err := storage.NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	store, err := storage.NewAttachmentStore(blobs, key)
	require.NoError(t, err)
	docs, err := storage.NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	audit := NewAuditService(memAudit{db}, m, log)
	t.Cleanup(audit.Shutdown)

	renderer := &mockRenderer{}
	renderer.On("Render", mock.Anything).Return([]byte("%PDF-1.3 test"), nil).Maybe()
	renderer.On("FileName", mock.Anything).Return("formulaire_test.pdf").Maybe()

	return &harness{
		db:       db,
		users:    memUsers{db},
		forms:    memForms{db},
		metrics:  m,
		audit:    audit,
		store:    store,
		docs:     docs,
		renderer: renderer,
		notifier: NewNotificationService(memNotifications{db}, events.NopPublisher{}, m, log),
		log:      log,
	}
}

func (h *harness) assigner() *AssignmentService {
	return NewAssignmentService(h.users, h.forms, h.metrics, h.log)
}

func (h *harness) formDeps() FormDeps {
	return FormDeps{
		Tx:          memTx{h.db},
		Forms:       h.forms,
		Attachments: memAttachments{h.db},
		Responses:   memResponses{h.db},
		Patients:    memPatients{h.db},
		Assigner:    h.assigner(),
		Store:       h.store,
		Documents:   h.docs,
		Renderer:    h.renderer,
		Notifier:    h.notifier,
		Audit:       h.audit,
		Metrics:     h.metrics,
	}
}

func (h *harness) formService(deps FormDeps) *FormService {
	return NewFormService(deps, config.UploadConfig{MaxImageBytes: 1 << 10, MaxVideoBytes: 2 << 10}, h.log)
}

func (h *harness) responseService(sink NotificationSink) *ResponseService {
	if sink == nil {
		sink = h.notifier
	}
	return NewResponseService(memTx{h.db}, h.forms, memResponses{h.db}, h.users, sink, h.audit, h.metrics, h.log)
}

func (h *harness) user(t *testing.T, role domain.Role, name, specialization string) *domain.User {
	t.Helper()
	u := &domain.User{
		Name:           name,
		Email:          strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@hopital.tn",
		Role:           role,
		Specialization: specialization,
		IsActive:       true,
		PasswordHash:   "x",
	}
	require.NoError(t, h.users.Create(context.Background(), u))
	return u
}

func (h *harness) patient(t *testing.T, cin string) *patient.Patient {
	t.Helper()
	p := &patient.Patient{CIN: cin, Name: "Patient " + cin}
	require.NoError(t, memPatients{h.db}.Save(context.Background(), p))
	return p
}

// seedForm stores a form directly, bypassing submission.
func (h *harness) seedForm(t *testing.T, p *patient.Patient, doctor *domain.User, assignee *domain.User, status form.Status) *form.MedicalForm {
	t.Helper()
	f := &form.MedicalForm{PatientID: p.ID, DoctorID: doctor.ID, Status: status}
	if assignee != nil {
		f.AssignedToID = &assignee.ID
	}
	require.NoError(t, h.forms.Create(context.Background(), f))
	return f
}

func (h *harness) notificationsFor(userID uint) []notification.Notification {
	h.db.mu.Lock()
	defer h.db.mu.Unlock()
	var out []notification.Notification
	for _, n := range h.db.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func intPtr(v int) *int { return &v }
