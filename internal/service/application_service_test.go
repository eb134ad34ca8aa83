package service

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lcportal/lcportal/internal/domain"
	"github.com/lcportal/lcportal/internal/repository"
)

// memAppStore is an in-memory ApplicationStore for lifecycle tests
type memAppStore struct {
	apps        map[uuid.UUID]*domain.Application
	history     map[uuid.UUID][]domain.StatusHistoryEntry
	refs        map[string]bool
	createFails int // number of leading Create calls that report a reference collision
	createCalls int
}

func newMemAppStore() *memAppStore {
	return &memAppStore{
		apps:    make(map[uuid.UUID]*domain.Application),
		history: make(map[uuid.UUID][]domain.StatusHistoryEntry),
		refs:    make(map[string]bool),
	}
}

func copyApp(app *domain.Application) *domain.Application {
	dup := *app
	dup.FormData = make(domain.FormData, len(app.FormData))
	for k, v := range app.FormData {
		dup.FormData[k] = v
	}
	dup.StatusHistory = append([]domain.StatusHistoryEntry(nil), app.StatusHistory...)
	return &dup
}

func (m *memAppStore) Create(ctx context.Context, app *domain.Application) error {
	m.createCalls++
	if m.createCalls <= m.createFails {
		return repository.ErrDuplicateReference
	}
	if m.refs[app.Reference] {
		return repository.ErrDuplicateReference
	}
	m.refs[app.Reference] = true
	m.apps[app.ID] = copyApp(app)
	return nil
}

func (m *memAppStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Application, error) {
	app, ok := m.apps[id]
	if !ok {
		return nil, nil
	}
	dup := copyApp(app)
	dup.StatusHistory = append([]domain.StatusHistoryEntry(nil), m.history[id]...)
	return dup, nil
}

func (m *memAppStore) Update(ctx context.Context, app *domain.Application) error {
	stored, ok := m.apps[app.ID]
	if !ok {
		return errors.New("missing row")
	}
	if stored.Version != app.Version {
		return repository.ErrVersionConflict
	}
	dup := copyApp(app)
	dup.Version++
	m.apps[app.ID] = dup
	app.Version++
	return nil
}

func (m *memAppStore) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.apps, id)
	delete(m.history, id)
	return nil
}

func (m *memAppStore) AppendHistory(ctx context.Context, applicationID uuid.UUID, entry domain.StatusHistoryEntry) error {
	m.history[applicationID] = append(m.history[applicationID], entry)
	return nil
}

func (m *memAppStore) List(ctx context.Context, filter domain.ApplicationFilter) ([]*domain.Application, int, error) {
	var out []*domain.Application
	for id, app := range m.apps {
		if filter.CreatedBy != nil && app.CreatedBy != *filter.CreatedBy {
			continue
		}
		dup := copyApp(app)
		dup.StatusHistory = append([]domain.StatusHistoryEntry(nil), m.history[id]...)
		out = append(out, dup)
	}
	return out, len(out), nil
}

func (m *memAppStore) DashboardStats(ctx context.Context, createdBy *uuid.UUID) (*domain.DashboardStats, error) {
	stats := &domain.DashboardStats{}
	for _, app := range m.apps {
		if createdBy != nil && app.CreatedBy != *createdBy {
			continue
		}
		stats.Total++
		switch app.Status {
		case domain.StatusDraft:
			stats.Draft++
		case domain.StatusSubmitted:
			stats.Submitted++
		case domain.StatusApproved:
			stats.Approved++
		}
	}
	return stats, nil
}

// memCompanyStore resolves one fixed company
type memCompanyStore struct {
	company *domain.Company
}

func (m *memCompanyStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	if m.company != nil && m.company.ID == id {
		return m.company, nil
	}
	return nil, nil
}

// recordingNotifier records fan-out calls
type recordingNotifier struct {
	userNotifications []domain.Notification
	roleNotifications []domain.Notification
	roles             []domain.Role
	officerCount      int
	failUser          bool
}

func (n *recordingNotifier) NotifyUser(ctx context.Context, userID uuid.UUID, notif domain.Notification) error {
	if n.failUser {
		return errors.New("notification store unavailable")
	}
	notif.UserID = userID
	n.userNotifications = append(n.userNotifications, notif)
	return nil
}

func (n *recordingNotifier) NotifyRole(ctx context.Context, role domain.Role, notif domain.Notification) (int, error) {
	n.roles = append(n.roles, role)
	n.roleNotifications = append(n.roleNotifications, notif)
	return n.officerCount, nil
}

type lifecycleFixture struct {
	svc      *ApplicationService
	store    *memAppStore
	notifier *recordingNotifier
	company  *domain.Company
	actor    *domain.User
	officer  *domain.User
	admin    *domain.User
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()

	company := &domain.Company{
		ID:                 uuid.New(),
		Name:               "Keller Trading GmbH",
		RegistrationNumber: "HRB-204881",
	}
	companyID := company.ID
	actor := &domain.User{
		ID:        uuid.New(),
		Email:     "trader@example.com",
		Role:      domain.RoleUser,
		CompanyID: &companyID,
		IsActive:  true,
	}
	officer := &domain.User{
		ID:       uuid.New(),
		Email:    "compliance@example.com",
		Role:     domain.RoleComplianceOfficer,
		IsActive: true,
	}
	admin := &domain.User{
		ID:       uuid.New(),
		Email:    "admin@example.com",
		Role:     domain.RoleAdmin,
		IsActive: true,
	}

	store := newMemAppStore()
	notifier := &recordingNotifier{officerCount: 2}
	svc := NewApplicationService(store, &memCompanyStore{company: company}, notifier)

	return &lifecycleFixture{
		svc:      svc,
		store:    store,
		notifier: notifier,
		company:  company,
		actor:    actor,
		officer:  officer,
		admin:    admin,
	}
}

func (f *lifecycleFixture) createDraft(t *testing.T) *domain.Application {
	t.Helper()
	app, err := f.svc.Create(context.Background(), &domain.ApplicationCreateRequest{
		Type:       domain.TypeSight,
		Amount:     50000,
		Currency:   "usd",
		ExpiryDate: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	}, f.actor)
	if err != nil {
		t.Fatalf("create application: %v", err)
	}
	return app
}

func completeForms(t *testing.T, f *lifecycleFixture, appID uuid.UUID, categories ...string) {
	t.Helper()
	app := f.store.apps[appID]
	if app.FormData == nil {
		app.FormData = domain.FormData{}
	}
	for _, category := range categories {
		app.FormData[category] = json.RawMessage(`{"filled":true}`)
	}
}

var allCategories = []string{"company", "lc", "parties", "shipping", "compliance"}

func TestCreateSeedsDraftWithDefaults(t *testing.T) {
	f := newLifecycleFixture(t)
	app := f.createDraft(t)

	if app.Status != domain.StatusDraft {
		t.Fatalf("expected draft status, got %s", app.Status)
	}
	if app.CurrentStep != domain.StepCompanyInfo {
		t.Fatalf("expected company_info step, got %s", app.CurrentStep)
	}
	if app.Currency != "USD" {
		t.Fatalf("expected uppercased currency, got %q", app.Currency)
	}
	if matched := regexp.MustCompile(`^LC-\d{4}-\d{5}$`).MatchString(app.Reference); !matched {
		t.Fatalf("reference %q does not match LC-<year>-<5 digits>", app.Reference)
	}
	if app.Tenor != 90 || app.PresentationPeriod != 21 {
		t.Fatalf("expected default tenor 90 and presentation period 21, got %d/%d", app.Tenor, app.PresentationPeriod)
	}
	if app.Applicant != f.company.ID {
		t.Fatalf("applicant should be the actor's company")
	}

	history := f.store.history[app.ID]
	if len(history) != 1 {
		t.Fatalf("expected one history entry, got %d", len(history))
	}
	if history[0].Status != domain.StatusDraft || history[0].Comments != "Application created" {
		t.Fatalf("unexpected seed history entry: %+v", history[0])
	}
	if history[0].ChangedBy != f.actor.ID {
		t.Fatalf("seed history entry should be attributed to the creator")
	}

	if len(f.notifier.userNotifications) != 1 {
		t.Fatalf("expected one creation notification, got %d", len(f.notifier.userNotifications))
	}
	if f.notifier.userNotifications[0].UserID != f.actor.ID {
		t.Fatalf("creation notification should address the creator")
	}
	if app.ApplicantSummary == nil || app.ApplicantSummary.Name != f.company.Name {
		t.Fatalf("expected applicant summary to be populated")
	}
}

func TestCreateRequiresCompany(t *testing.T) {
	f := newLifecycleFixture(t)
	noCompany := &domain.User{ID: uuid.New(), Role: domain.RoleUser, IsActive: true}

	_, err := f.svc.Create(context.Background(), &domain.ApplicationCreateRequest{
		Type:       domain.TypeSight,
		Amount:     1000,
		Currency:   "EUR",
		ExpiryDate: time.Now().AddDate(0, 6, 0),
	}, noCompany)

	if !errors.Is(err, ErrNoCompany) {
		t.Fatalf("expected ErrNoCompany, got %v", err)
	}
}

func TestCreateRetriesGeneratedReferenceOnCollision(t *testing.T) {
	f := newLifecycleFixture(t)
	f.store.createFails = 2

	app := f.createDraft(t)
	if f.store.createCalls != 3 {
		t.Fatalf("expected 3 create attempts, got %d", f.store.createCalls)
	}
	if f.store.apps[app.ID] == nil {
		t.Fatalf("application should be persisted after retries")
	}
}

func TestCreateDoesNotRetrySuppliedReference(t *testing.T) {
	f := newLifecycleFixture(t)
	f.store.createFails = 1

	_, err := f.svc.Create(context.Background(), &domain.ApplicationCreateRequest{
		Reference:  "LC-2025-00042",
		Type:       domain.TypeStandby,
		Amount:     1000,
		Currency:   "EUR",
		ExpiryDate: time.Now().AddDate(0, 6, 0),
	}, f.actor)

	if !errors.Is(err, repository.ErrDuplicateReference) {
		t.Fatalf("expected duplicate reference error, got %v", err)
	}
	if f.store.createCalls != 1 {
		t.Fatalf("supplied references must not be retried, got %d attempts", f.store.createCalls)
	}
}

func TestUpdateRejectsDraftRevert(t *testing.T) {
	f := newLifecycleFixture(t)
	app := f.createDraft(t)
	f.store.apps[app.ID].Status = domain.StatusSubmitted

	draft := domain.StatusDraft
	_, err := f.svc.Update(context.Background(), app.ID, &domain.ApplicationUpdateRequest{Status: &draft}, f.actor)
	if !errors.Is(err, ErrDraftRevert) {
		t.Fatalf("expected ErrDraftRevert, got %v", err)
	}
	if f.store.apps[app.ID].Status != domain.StatusSubmitted {
		t.Fatalf("persisted status must be unchanged after rejected revert")
	}
}

func TestUpdateAppendsHistoryPerStatusChange(t *testing.T) {
	f := newLifecycleFixture(t)
	app := f.createDraft(t)
	f.store.apps[app.ID].Status = domain.StatusSubmitted

	review := domain.StatusUnderReview
	if _, err := f.svc.Update(context.Background(), app.ID, &domain.ApplicationUpdateRequest{
		Status:         &review,
		StatusComments: "Assigned for screening",
	}, f.officer); err != nil {
		t.Fatalf("first status update: %v", err)
	}

	approved := domain.StatusApproved
	if _, err := f.svc.Update(context.Background(), app.ID, &domain.ApplicationUpdateRequest{
		Status: &approved,
	}, f.admin); err != nil {
		t.Fatalf("second status update: %v", err)
	}

	history := f.store.history[app.ID]
	if len(history) != 3 { // seed + two changes
		t.Fatalf("expected 3 history rows, got %d", len(history))
	}
	if history[1].Status != domain.StatusUnderReview || history[1].ChangedBy != f.officer.ID || history[1].Comments != "Assigned for screening" {
		t.Fatalf("unexpected second row: %+v", history[1])
	}
	if history[2].Status != domain.StatusApproved || history[2].ChangedBy != f.admin.ID || history[2].Comments != "Status updated" {
		t.Fatalf("unexpected third row: %+v", history[2])
	}
}

func TestUpdateSameStatusAppendsNothing(t *testing.T) {
	f := newLifecycleFixture(t)
	app := f.createDraft(t)

	draft := domain.StatusDraft
	if _, err := f.svc.Update(context.Background(), app.ID, &domain.ApplicationUpdateRequest{Status: &draft}, f.actor); err != nil {
		t.Fatalf("update: %v", err)
	}

	if len(f.store.history[app.ID]) != 1 {
		t.Fatalf("re-asserting the current status must not append history")
	}
}

func TestUpdateToSubmittedNotifiesComplianceOfficers(t *testing.T) {
	f := newLifecycleFixture(t)
	app := f.createDraft(t)

	submitted := domain.StatusSubmitted
	updated, err := f.svc.Update(context.Background(), app.ID, &domain.ApplicationUpdateRequest{Status: &submitted}, f.actor)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.CurrentStep != domain.StepSubmission {
		t.Fatalf("submitting must force the submission step, got %s", updated.CurrentStep)
	}
	if len(f.notifier.roles) != 1 || f.notifier.roles[0] != domain.RoleComplianceOfficer {
		t.Fatalf("expected one compliance-officer fan-out, got %v", f.notifier.roles)
	}
	if f.notifier.roleNotifications[0].Priority != domain.NotificationPriorityHigh {
		t.Fatalf("officer notifications must be high priority")
	}
}

func TestUpdateMergesFormDataPerCategory(t *testing.T) {
	f := newLifecycleFixture(t)
	app := f.createDraft(t)
	completeForms(t, f, app.ID, "company", "lc")

	updated, err := f.svc.Update(context.Background(), app.ID, &domain.ApplicationUpdateRequest{
		FormData: domain.FormData{"lc": json.RawMessage(`{"amount":75000}`)},
	}, f.actor)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if string(updated.FormData["company"]) != `{"filled":true}` {
		t.Fatalf("untouched categories must survive the merge, got %s", updated.FormData["company"])
	}
	if string(updated.FormData["lc"]) != `{"amount":75000}` {
		t.Fatalf("updated category must be replaced, got %s", updated.FormData["lc"])
	}
}

func TestUpdateRejectsStaleVersion(t *testing.T) {
	f := newLifecycleFixture(t)
	app := f.createDraft(t)

	stale := app.Version - 1
	high := domain.PriorityHigh
	_, err := f.svc.Update(context.Background(), app.ID, &domain.ApplicationUpdateRequest{
		Priority: &high,
		Version:  &stale,
	}, f.actor)

	if !errors.Is(err, ErrStaleVersion) {
		t.Fatalf("expected ErrStaleVersion, got %v", err)
	}
}

func TestUpdateStepStoresPayloadUnderCategory(t *testing.T) {
	f := newLifecycleFixture(t)
	app := f.createDraft(t)

	updated, err := f.svc.UpdateStep(context.Background(), app.ID, &domain.ApplicationStepRequest{
		Step:     domain.StepLCDetails,
		FormData: json.RawMessage(`{"tenor":120}`),
	}, f.actor)
	if err != nil {
		t.Fatalf("update step: %v", err)
	}

	if updated.CurrentStep != domain.StepLCDetails {
		t.Fatalf("expected lc_details step, got %s", updated.CurrentStep)
	}
	if string(updated.FormData["lc"]) != `{"tenor":120}` {
		t.Fatalf("payload must be stored under the first underscore segment, got %v", updated.FormData)
	}
	if string(f.store.apps[app.ID].FormData["lc"]) != `{"tenor":120}` {
		t.Fatalf("step payload must be persisted")
	}
}

func TestSubmitRejectsIncompleteForms(t *testing.T) {
	cases := []struct {
		name    string
		present []string
		missing []string
	}{
		{"none", nil, allCategories},
		{"company_only", []string{"company"}, []string{"lc", "parties", "shipping", "compliance"}},
		{"missing_shipping_compliance", []string{"company", "lc", "parties"}, []string{"shipping", "compliance"}},
		{"missing_compliance", []string{"company", "lc", "parties", "shipping"}, []string{"compliance"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newLifecycleFixture(t)
			app := f.createDraft(t)
			completeForms(t, f, app.ID, tc.present...)

			_, err := f.svc.Submit(context.Background(), app.ID, f.actor)

			var incomplete *IncompleteApplicationError
			if !errors.As(err, &incomplete) {
				t.Fatalf("expected IncompleteApplicationError, got %v", err)
			}
			if len(incomplete.Missing) != len(tc.missing) {
				t.Fatalf("expected missing %v, got %v", tc.missing, incomplete.Missing)
			}
			for i, want := range tc.missing {
				if incomplete.Missing[i] != want {
					t.Fatalf("expected missing %v, got %v", tc.missing, incomplete.Missing)
				}
			}
			if f.store.apps[app.ID].Status != domain.StatusDraft {
				t.Fatalf("persisted status must be unchanged after rejected submission")
			}
		})
	}
}

func TestSubmitCompletesApplication(t *testing.T) {
	f := newLifecycleFixture(t)
	app := f.createDraft(t)
	completeForms(t, f, app.ID, allCategories...)
	f.notifier.userNotifications = nil

	submitted, err := f.svc.Submit(context.Background(), app.ID, f.actor)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if submitted.Status != domain.StatusSubmitted || submitted.CurrentStep != domain.StepSubmission {
		t.Fatalf("expected submitted/submission, got %s/%s", submitted.Status, submitted.CurrentStep)
	}

	history := f.store.history[app.ID]
	last := history[len(history)-1]
	if last.Status != domain.StatusSubmitted || last.Comments != "Application submitted for review" {
		t.Fatalf("unexpected submission history row: %+v", last)
	}

	if len(f.notifier.roles) != 1 || f.notifier.roles[0] != domain.RoleComplianceOfficer {
		t.Fatalf("expected compliance-officer fan-out, got %v", f.notifier.roles)
	}
	if f.notifier.roleNotifications[0].Priority != domain.NotificationPriorityHigh {
		t.Fatalf("officer notifications must be high priority")
	}
	if len(f.notifier.userNotifications) != 1 {
		t.Fatalf("expected exactly one confirmation notification, got %d", len(f.notifier.userNotifications))
	}
	confirmation := f.notifier.userNotifications[0]
	if confirmation.UserID != f.actor.ID || confirmation.Priority != domain.NotificationPriorityNormal {
		t.Fatalf("confirmation must address the submitter at normal priority: %+v", confirmation)
	}
}

func TestSubmitTwiceAppendsDuplicateHistoryRows(t *testing.T) {
	f := newLifecycleFixture(t)
	app := f.createDraft(t)
	completeForms(t, f, app.ID, allCategories...)

	if _, err := f.svc.Submit(context.Background(), app.ID, f.actor); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := f.svc.Submit(context.Background(), app.ID, f.actor); err != nil {
		t.Fatalf("second submit: %v", err)
	}

	history := f.store.history[app.ID]
	if len(history) != 3 { // seed + two submissions
		t.Fatalf("submit must always append, expected 3 rows got %d", len(history))
	}
	if history[1].Status != domain.StatusSubmitted || history[2].Status != domain.StatusSubmitted {
		t.Fatalf("both submission rows must record submitted status")
	}
}

func TestDeleteOnlyAllowedForDrafts(t *testing.T) {
	f := newLifecycleFixture(t)
	app := f.createDraft(t)

	f.store.apps[app.ID].Status = domain.StatusSubmitted
	if err := f.svc.Delete(context.Background(), app.ID, f.actor); !errors.Is(err, ErrNotDraft) {
		t.Fatalf("expected ErrNotDraft, got %v", err)
	}
	if _, ok := f.store.apps[app.ID]; !ok {
		t.Fatalf("rejected delete must leave the record in place")
	}

	f.store.apps[app.ID].Status = domain.StatusDraft
	if err := f.svc.Delete(context.Background(), app.ID, f.actor); err != nil {
		t.Fatalf("draft delete: %v", err)
	}
	if _, ok := f.store.apps[app.ID]; ok {
		t.Fatalf("draft delete must remove the record")
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	f := newLifecycleFixture(t)
	app := f.createDraft(t)

	stranger := &domain.User{ID: uuid.New(), Role: domain.RoleUser, IsActive: true}
	if _, err := f.svc.Get(context.Background(), app.ID, stranger); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for a stranger, got %v", err)
	}

	if _, err := f.svc.Get(context.Background(), app.ID, f.officer); err != nil {
		t.Fatalf("elevated roles may read any application: %v", err)
	}

	if _, err := f.svc.Get(context.Background(), uuid.New(), f.actor); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an unknown id, got %v", err)
	}
}

func TestListScopesNonElevatedCallers(t *testing.T) {
	f := newLifecycleFixture(t)
	f.createDraft(t)

	other := &domain.User{ID: uuid.New(), Role: domain.RoleUser, IsActive: true}
	apps, total, err := f.svc.List(context.Background(), domain.ApplicationFilter{}, other)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 0 || len(apps) != 0 {
		t.Fatalf("non-elevated callers must not see other users' applications")
	}

	apps, total, err = f.svc.List(context.Background(), domain.ApplicationFilter{}, f.officer)
	if err != nil {
		t.Fatalf("list as officer: %v", err)
	}
	if total != 1 || len(apps) != 1 {
		t.Fatalf("elevated callers see all applications, got %d", total)
	}
}

func TestDashboardStatsScopesByRole(t *testing.T) {
	f := newLifecycleFixture(t)
	f.createDraft(t)

	stats, err := f.svc.DashboardStats(context.Background(), f.actor)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 1 || stats.Draft != 1 {
		t.Fatalf("unexpected stats for owner: %+v", stats)
	}

	other := &domain.User{ID: uuid.New(), Role: domain.RoleUser, IsActive: true}
	stats, err = f.svc.DashboardStats(context.Background(), other)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 0 {
		t.Fatalf("stats must be scoped to the caller, got %+v", stats)
	}
}
