package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lcportal/lcportal/internal/domain"
	"github.com/lcportal/lcportal/internal/repository"
)

// ApplicationStore is the persistence surface the lifecycle engine needs
type ApplicationStore interface {
	Create(ctx context.Context, app *domain.Application) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Application, error)
	Update(ctx context.Context, app *domain.Application) error
	Delete(ctx context.Context, id uuid.UUID) error
	AppendHistory(ctx context.Context, applicationID uuid.UUID, entry domain.StatusHistoryEntry) error
	List(ctx context.Context, filter domain.ApplicationFilter) ([]*domain.Application, int, error)
	DashboardStats(ctx context.Context, createdBy *uuid.UUID) (*domain.DashboardStats, error)
}

// CompanyStore resolves applicant companies for display projections
type CompanyStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Company, error)
}

// Notifier is the injected fan-out capability. The engine never queries users
// by role itself; role-addressed delivery is the notifier's concern.
type Notifier interface {
	NotifyUser(ctx context.Context, userID uuid.UUID, n domain.Notification) error
	NotifyRole(ctx context.Context, role domain.Role, n domain.Notification) (int, error)
}

// ApplicationService enforces the LC application lifecycle: status and step
// transitions, submission pre-flight validation, audit trail, notification
// fan-out.
type ApplicationService struct {
	apps      ApplicationStore
	companies CompanyStore
	notifier  Notifier
}

// NewApplicationService creates a new application service
func NewApplicationService(apps ApplicationStore, companies CompanyStore, notifier Notifier) *ApplicationService {
	return &ApplicationService{
		apps:      apps,
		companies: companies,
		notifier:  notifier,
	}
}

const referenceAttempts = 3

// generateReference produces a reference of the form LC-<year>-<5 digits>
func generateReference(now time.Time) string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// Fall back to the clock; uniqueness is enforced by the store
		binary.BigEndian.PutUint64(b[:], uint64(now.UnixNano()))
	}
	n := binary.BigEndian.Uint64(b[:])
	return fmt.Sprintf("LC-%d-%05d", now.Year(), 10000+n%90000)
}

// Create creates a draft application owned by the actor's company
func (s *ApplicationService) Create(ctx context.Context, req *domain.ApplicationCreateRequest, actor *domain.User) (*domain.Application, error) {
	if actor.CompanyID == nil {
		return nil, ErrNoCompany
	}

	now := time.Now()
	app := &domain.Application{
		ID:                   uuid.New(),
		Reference:            req.Reference,
		Type:                 req.Type,
		Amount:               req.Amount,
		Currency:             strings.ToUpper(req.Currency),
		Applicant:            *actor.CompanyID,
		Beneficiary:          req.Beneficiary,
		IssuingBank:          req.IssuingBank,
		AdvisingBank:         req.AdvisingBank,
		Tenor:                90,
		ShipmentDate:         req.ShipmentDate,
		ExpiryDate:           req.ExpiryDate,
		LatestShipmentDate:   req.LatestShipmentDate,
		PresentationPeriod:   21,
		GoodsDescription:     req.GoodsDescription,
		DocumentsRequired:    req.DocumentsRequired,
		AdditionalConditions: req.AdditionalConditions,
		Status:               domain.StatusDraft,
		CurrentStep:          domain.StepCompanyInfo,
		FormData:             domain.FormData{},
		CreatedBy:            actor.ID,
		Priority:             domain.PriorityNormal,
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if req.Tenor != nil {
		app.Tenor = *req.Tenor
	}
	if req.PresentationPeriod != nil {
		app.PresentationPeriod = *req.PresentationPeriod
	}
	if req.Priority != "" {
		app.Priority = req.Priority
	}
	if app.Currency == "" {
		app.Currency = "USD"
	}

	generated := app.Reference == ""
	if generated {
		app.Reference = generateReference(now)
	}

	for attempt := 0; ; attempt++ {
		err := s.apps.Create(ctx, app)
		if err == nil {
			break
		}
		// Regenerate on collision, but only for references we picked ourselves
		if errors.Is(err, repository.ErrDuplicateReference) && generated && attempt < referenceAttempts-1 {
			app.Reference = generateReference(now)
			continue
		}
		return nil, err
	}

	entry := domain.StatusHistoryEntry{
		ID:        uuid.New(),
		Status:    domain.StatusDraft,
		ChangedBy: actor.ID,
		Comments:  "Application created",
		Timestamp: now,
	}
	if err := s.apps.AppendHistory(ctx, app.ID, entry); err != nil {
		return nil, err
	}
	app.StatusHistory = append(app.StatusHistory, entry)

	err := s.notifier.NotifyUser(ctx, actor.ID, domain.Notification{
		Type:     domain.NotificationApplicationUpdate,
		Title:    "New Application Created",
		Message:  fmt.Sprintf("Application %s has been created", app.Reference),
		Priority: domain.NotificationPriorityNormal,
		Data:     domain.NotificationData{ApplicationID: &app.ID},
	})
	if err != nil {
		return nil, err
	}

	s.attachApplicant(ctx, app)

	log.Printf("Application created: %s by %s", app.Reference, actor.Email)

	return app, nil
}

// Get fetches one application, enforcing ownership for non-elevated actors
func (s *ApplicationService) Get(ctx context.Context, id uuid.UUID, actor *domain.User) (*domain.Application, error) {
	app, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	s.attachApplicant(ctx, app)
	return app, nil
}

// List returns a page of applications visible to the actor plus the total count
func (s *ApplicationService) List(ctx context.Context, filter domain.ApplicationFilter, actor *domain.User) ([]*domain.Application, int, error) {
	if !actor.Role.Elevated() {
		filter.CreatedBy = &actor.ID
	}

	apps, total, err := s.apps.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	for _, app := range apps {
		s.attachApplicant(ctx, app)
	}

	return apps, total, nil
}

// Update applies field changes to an application, enforcing the
// status-transition policy: a non-draft application can never return to draft,
// and a status change appends an audit entry. A change to submitted also
// forces the submission step and notifies compliance officers.
func (s *ApplicationService) Update(ctx context.Context, id uuid.UUID, req *domain.ApplicationUpdateRequest, actor *domain.User) (*domain.Application, error) {
	app, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	if req.Version != nil && *req.Version != app.Version {
		return nil, ErrStaleVersion
	}

	if app.Status != domain.StatusDraft && req.Status != nil && *req.Status == domain.StatusDraft {
		return nil, ErrDraftRevert
	}

	var historyEntry *domain.StatusHistoryEntry
	statusChanged := req.Status != nil && *req.Status != app.Status
	if statusChanged {
		comments := req.StatusComments
		if comments == "" {
			comments = "Status updated"
		}
		historyEntry = &domain.StatusHistoryEntry{
			ID:        uuid.New(),
			Status:    *req.Status,
			ChangedBy: actor.ID,
			Comments:  comments,
			Timestamp: time.Now(),
		}
		app.Status = *req.Status
		if *req.Status == domain.StatusSubmitted {
			app.CurrentStep = domain.StepSubmission
		}
	}

	s.applyUpdate(app, req)

	if err := s.apps.Update(ctx, app); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrStaleVersion
		}
		return nil, err
	}

	if historyEntry != nil {
		if err := s.apps.AppendHistory(ctx, app.ID, *historyEntry); err != nil {
			return nil, err
		}
		app.StatusHistory = append(app.StatusHistory, *historyEntry)

		if app.Status == domain.StatusSubmitted {
			if _, err := s.notifyOfficers(ctx, app, "needs compliance review"); err != nil {
				return nil, err
			}
		}
	}

	s.attachApplicant(ctx, app)

	return app, nil
}

// applyUpdate copies the unguarded fields of the request onto the application
func (s *ApplicationService) applyUpdate(app *domain.Application, req *domain.ApplicationUpdateRequest) {
	if req.Type != nil {
		app.Type = *req.Type
	}
	if req.Amount != nil {
		app.Amount = *req.Amount
	}
	if req.Currency != nil {
		app.Currency = strings.ToUpper(*req.Currency)
	}
	if req.Beneficiary != nil {
		app.Beneficiary = *req.Beneficiary
	}
	if req.IssuingBank != nil {
		app.IssuingBank = *req.IssuingBank
	}
	if req.AdvisingBank != nil {
		app.AdvisingBank = *req.AdvisingBank
	}
	if req.Tenor != nil {
		app.Tenor = *req.Tenor
	}
	if req.ShipmentDate != nil {
		app.ShipmentDate = req.ShipmentDate
	}
	if req.ExpiryDate != nil {
		app.ExpiryDate = *req.ExpiryDate
	}
	if req.LatestShipmentDate != nil {
		app.LatestShipmentDate = req.LatestShipmentDate
	}
	if req.PresentationPeriod != nil {
		app.PresentationPeriod = *req.PresentationPeriod
	}
	if req.GoodsDescription != nil {
		app.GoodsDescription = *req.GoodsDescription
	}
	if req.DocumentsRequired != nil {
		app.DocumentsRequired = req.DocumentsRequired
	}
	if req.AdditionalConditions != nil {
		app.AdditionalConditions = *req.AdditionalConditions
	}
	if req.Charges != nil {
		app.Charges = *req.Charges
	}
	if req.ComplianceCheck != nil {
		app.ComplianceCheck = *req.ComplianceCheck
	}
	if req.AssignedTo != nil {
		app.AssignedTo = req.AssignedTo
	}
	if req.Priority != nil {
		app.Priority = *req.Priority
	}
	if req.FormData != nil {
		// Merged per top-level category, not replaced wholesale
		app.FormData = app.FormData.Merge(req.FormData)
	}
	app.UpdatedAt = time.Now()
}

// UpdateStep advances the form step and stores the step's form payload under
// the category derived from the step name
func (s *ApplicationService) UpdateStep(ctx context.Context, id uuid.UUID, req *domain.ApplicationStepRequest, actor *domain.User) (*domain.Application, error) {
	app, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	app.CurrentStep = req.Step
	if len(req.FormData) > 0 {
		if app.FormData == nil {
			app.FormData = domain.FormData{}
		}
		app.FormData[req.Step.FormCategory()] = req.FormData
	}
	app.UpdatedAt = time.Now()

	if err := s.apps.Update(ctx, app); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrStaleVersion
		}
		return nil, err
	}

	s.attachApplicant(ctx, app)

	return app, nil
}

// formAreaPresent reports whether a category holds a usable payload
func formAreaPresent(form domain.FormData, category string) bool {
	raw, ok := form[category]
	if !ok {
		return false
	}
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed != "null" && trimmed != "false"
}

// Submit validates that every required form area is complete, then moves the
// application to submitted and fans out review notifications. The audit entry
// is appended unconditionally, so submitting twice records two rows.
func (s *ApplicationService) Submit(ctx context.Context, id uuid.UUID, actor *domain.User) (*domain.Application, error) {
	app, err := s.load(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, step := range domain.RequiredSteps {
		if !formAreaPresent(app.FormData, step.FormCategory()) {
			missing = append(missing, step.FormCategory())
		}
	}
	if len(missing) > 0 {
		return nil, &IncompleteApplicationError{Missing: missing}
	}

	now := time.Now()
	app.Status = domain.StatusSubmitted
	app.CurrentStep = domain.StepSubmission
	app.UpdatedAt = now

	if err := s.apps.Update(ctx, app); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrStaleVersion
		}
		return nil, err
	}

	entry := domain.StatusHistoryEntry{
		ID:        uuid.New(),
		Status:    domain.StatusSubmitted,
		ChangedBy: actor.ID,
		Comments:  "Application submitted for review",
		Timestamp: now,
	}
	if err := s.apps.AppendHistory(ctx, app.ID, entry); err != nil {
		return nil, err
	}
	app.StatusHistory = append(app.StatusHistory, entry)

	if _, err := s.notifyOfficers(ctx, app, "is ready for review"); err != nil {
		return nil, err
	}

	err = s.notifier.NotifyUser(ctx, actor.ID, domain.Notification{
		Type:     domain.NotificationApplicationUpdate,
		Title:    "Application Submitted",
		Message:  fmt.Sprintf("Your application %s has been submitted for review", app.Reference),
		Priority: domain.NotificationPriorityNormal,
		Data:     domain.NotificationData{ApplicationID: &app.ID},
	})
	if err != nil {
		return nil, err
	}

	s.attachApplicant(ctx, app)

	log.Printf("Application submitted: %s by %s", app.Reference, actor.Email)

	return app, nil
}

// Delete removes an application; only drafts may be deleted
func (s *ApplicationService) Delete(ctx context.Context, id uuid.UUID, actor *domain.User) error {
	app, err := s.load(ctx, id, actor)
	if err != nil {
		return err
	}

	if app.Status != domain.StatusDraft {
		return ErrNotDraft
	}

	if err := s.apps.Delete(ctx, id); err != nil {
		return err
	}

	log.Printf("Application deleted: %s by %s", app.Reference, actor.Email)

	return nil
}

// DashboardStats returns aggregate counters scoped by the actor's role
func (s *ApplicationService) DashboardStats(ctx context.Context, actor *domain.User) (*domain.DashboardStats, error) {
	var createdBy *uuid.UUID
	if !actor.Role.Elevated() {
		createdBy = &actor.ID
	}
	return s.apps.DashboardStats(ctx, createdBy)
}

// load fetches an application and checks the actor may act on it
func (s *ApplicationService) load(ctx context.Context, id uuid.UUID, actor *domain.User) (*domain.Application, error) {
	app, err := s.apps.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, ErrNotFound
	}
	if !actor.Role.Elevated() && app.CreatedBy != actor.ID {
		return nil, ErrForbidden
	}
	return app, nil
}

func (s *ApplicationService) notifyOfficers(ctx context.Context, app *domain.Application, reason string) (int, error) {
	return s.notifier.NotifyRole(ctx, domain.RoleComplianceOfficer, domain.Notification{
		Type:     domain.NotificationApplicationUpdate,
		Title:    "New Application Submitted",
		Message:  fmt.Sprintf("Application %s %s", app.Reference, reason),
		Priority: domain.NotificationPriorityHigh,
		Data:     domain.NotificationData{ApplicationID: &app.ID},
	})
}

// attachApplicant populates the applicant summary; lookup failures leave the
// summary empty rather than failing the read
func (s *ApplicationService) attachApplicant(ctx context.Context, app *domain.Application) {
	company, err := s.companies.FindByID(ctx, app.Applicant)
	if err != nil || company == nil {
		return
	}
	app.ApplicantSummary = company.Summary()
}
