package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/lcportal/lcportal/internal/domain"
)

var (
	// ErrDuplicateReference is returned when a reference number collides
	ErrDuplicateReference = fmt.Errorf("application reference already exists")

	// ErrVersionConflict is returned when an update carries a stale version
	ErrVersionConflict = fmt.Errorf("application was modified concurrently")
)

// ApplicationRepository handles application persistence
type ApplicationRepository struct {
	db *sql.DB
}

// NewApplicationRepository creates a new application repository with a shared database connection
func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

const applicationColumns = `id, reference, type, amount, currency, applicant_id,
		beneficiary, issuing_bank, advising_bank,
		tenor, shipment_date, expiry_date, latest_shipment_date, presentation_period,
		goods_description, documents_required, additional_conditions, charges,
		status, current_step, form_data, compliance_check,
		created_by, assigned_to, priority, version, created_at, updated_at`

func scanApplication(row interface{ Scan(...interface{}) error }) (*domain.Application, error) {
	var (
		a                                 domain.Application
		goodsDescription, additionalConds sql.NullString
		beneficiary, issuing, advising    []byte
		docsRequired, charges             []byte
		formData, complianceCheck         []byte
	)
	err := row.Scan(
		&a.ID,
		&a.Reference,
		&a.Type,
		&a.Amount,
		&a.Currency,
		&a.Applicant,
		&beneficiary,
		&issuing,
		&advising,
		&a.Tenor,
		&a.ShipmentDate,
		&a.ExpiryDate,
		&a.LatestShipmentDate,
		&a.PresentationPeriod,
		&goodsDescription,
		&docsRequired,
		&additionalConds,
		&charges,
		&a.Status,
		&a.CurrentStep,
		&formData,
		&complianceCheck,
		&a.CreatedBy,
		&a.AssignedTo,
		&a.Priority,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.GoodsDescription = goodsDescription.String
	a.AdditionalConditions = additionalConds.String

	if err := unmarshalJSON(beneficiary, &a.Beneficiary); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(issuing, &a.IssuingBank); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(advising, &a.AdvisingBank); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(docsRequired, &a.DocumentsRequired); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(charges, &a.Charges); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(formData, &a.FormData); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(complianceCheck, &a.ComplianceCheck); err != nil {
		return nil, err
	}

	return &a, nil
}

func (r *ApplicationRepository) jsonColumns(a *domain.Application) (beneficiary, issuing, advising, docs, charges, formData, compliance []byte, err error) {
	if beneficiary, err = marshalJSON(a.Beneficiary); err != nil {
		return
	}
	if issuing, err = marshalJSON(a.IssuingBank); err != nil {
		return
	}
	if advising, err = marshalJSON(a.AdvisingBank); err != nil {
		return
	}
	docsRequired := a.DocumentsRequired
	if docsRequired == nil {
		docsRequired = []domain.DocumentRequirement{}
	}
	if docs, err = marshalJSON(docsRequired); err != nil {
		return
	}
	if charges, err = marshalJSON(a.Charges); err != nil {
		return
	}
	form := a.FormData
	if form == nil {
		form = domain.FormData{}
	}
	if formData, err = marshalJSON(form); err != nil {
		return
	}
	compliance, err = marshalJSON(a.ComplianceCheck)
	return
}

// Create creates a new application
func (r *ApplicationRepository) Create(ctx context.Context, app *domain.Application) error {
	query := `
		INSERT INTO applications (id, reference, type, amount, currency, applicant_id,
			beneficiary, issuing_bank, advising_bank,
			tenor, shipment_date, expiry_date, latest_shipment_date, presentation_period,
			goods_description, documents_required, additional_conditions, charges,
			status, current_step, form_data, compliance_check,
			created_by, assigned_to, priority, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)
	`

	beneficiary, issuing, advising, docs, charges, formData, compliance, err := r.jsonColumns(app)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query,
		app.ID,
		app.Reference,
		app.Type,
		app.Amount,
		app.Currency,
		app.Applicant,
		beneficiary,
		issuing,
		advising,
		app.Tenor,
		app.ShipmentDate,
		app.ExpiryDate,
		app.LatestShipmentDate,
		app.PresentationPeriod,
		nullString(app.GoodsDescription),
		docs,
		nullString(app.AdditionalConditions),
		charges,
		app.Status,
		app.CurrentStep,
		formData,
		compliance,
		app.CreatedBy,
		app.AssignedTo,
		app.Priority,
		app.Version,
		app.CreatedAt,
		app.UpdatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrDuplicateReference
		}
		return fmt.Errorf("failed to create application: %w", err)
	}

	return nil
}

// FindByID finds an application by ID, with its status history loaded in order
func (r *ApplicationRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`

	app, err := scanApplication(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find application: %w", err)
	}

	history, err := r.findHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	app.StatusHistory = history

	return app, nil
}

func (r *ApplicationRepository) findHistory(ctx context.Context, applicationID uuid.UUID) ([]domain.StatusHistoryEntry, error) {
	query := `
		SELECT id, status, changed_by, COALESCE(comments, ''), created_at
		FROM application_status_history
		WHERE application_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load status history: %w", err)
	}
	defer rows.Close()

	var history []domain.StatusHistoryEntry
	for rows.Next() {
		var entry domain.StatusHistoryEntry
		if err := rows.Scan(&entry.ID, &entry.Status, &entry.ChangedBy, &entry.Comments, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		history = append(history, entry)
	}

	return history, rows.Err()
}

// AppendHistory appends one audit entry to an application's status history
func (r *ApplicationRepository) AppendHistory(ctx context.Context, applicationID uuid.UUID, entry domain.StatusHistoryEntry) error {
	query := `
		INSERT INTO application_status_history (id, application_id, status, changed_by, comments, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		applicationID,
		entry.Status,
		entry.ChangedBy,
		nullString(entry.Comments),
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}

	return nil
}

// Update persists an application, guarded by its version. The stored row must
// still carry the version the caller read; otherwise ErrVersionConflict is
// returned and nothing is written.
func (r *ApplicationRepository) Update(ctx context.Context, app *domain.Application) error {
	query := `
		UPDATE applications SET
			type = $3, amount = $4, currency = $5,
			beneficiary = $6, issuing_bank = $7, advising_bank = $8,
			tenor = $9, shipment_date = $10, expiry_date = $11, latest_shipment_date = $12,
			presentation_period = $13, goods_description = $14, documents_required = $15,
			additional_conditions = $16, charges = $17,
			status = $18, current_step = $19, form_data = $20, compliance_check = $21,
			assigned_to = $22, priority = $23,
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`

	beneficiary, issuing, advising, docs, charges, formData, compliance, err := r.jsonColumns(app)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query,
		app.ID,
		app.Version,
		app.Type,
		app.Amount,
		app.Currency,
		beneficiary,
		issuing,
		advising,
		app.Tenor,
		app.ShipmentDate,
		app.ExpiryDate,
		app.LatestShipmentDate,
		app.PresentationPeriod,
		nullString(app.GoodsDescription),
		docs,
		nullString(app.AdditionalConditions),
		charges,
		app.Status,
		app.CurrentStep,
		formData,
		compliance,
		app.AssignedTo,
		app.Priority,
	)
	if err != nil {
		return fmt.Errorf("failed to update application: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrVersionConflict
	}

	app.Version++
	return nil
}

// Delete deletes an application and its history
func (r *ApplicationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// sortColumns whitelists the sortable fields exposed by the list endpoint
var sortColumns = map[string]string{
	"createdAt":  "created_at",
	"updatedAt":  "updated_at",
	"amount":     "amount",
	"reference":  "reference",
	"status":     "status",
	"priority":   "priority",
	"expiryDate": "expiry_date",
}

func buildFilter(filter domain.ApplicationFilter) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.CreatedBy != nil {
		clauses = append(clauses, "created_by = "+arg(*filter.CreatedBy))
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = "+arg(filter.Status))
	}
	if filter.Type != "" {
		clauses = append(clauses, "type = "+arg(filter.Type))
	}
	if filter.StartDate != nil {
		clauses = append(clauses, "created_at >= "+arg(*filter.StartDate))
	}
	if filter.EndDate != nil {
		clauses = append(clauses, "created_at <= "+arg(*filter.EndDate))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		clauses = append(clauses, fmt.Sprintf("(reference ILIKE %s OR beneficiary->>'name' ILIKE %s)", arg(pattern), arg(pattern)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List returns a page of applications matching the filter, plus the total count
func (r *ApplicationRepository) List(ctx context.Context, filter domain.ApplicationFilter) ([]*domain.Application, int, error) {
	where, args := buildFilter(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applications`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count applications: %w", err)
	}

	sortBy, ok := sortColumns[filter.SortBy]
	if !ok {
		sortBy = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		direction = "ASC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf(`SELECT %s FROM applications%s ORDER BY %s %s LIMIT %d OFFSET %d`,
		applicationColumns, where, sortBy, direction, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []*domain.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return apps, total, nil
}

// DashboardStats computes the aggregate counters for the dashboard, scoped to
// one creator when createdBy is set
func (r *ApplicationRepository) DashboardStats(ctx context.Context, createdBy *uuid.UUID) (*domain.DashboardStats, error) {
	where, args := buildFilter(domain.ApplicationFilter{CreatedBy: createdBy})
	stats := &domain.DashboardStats{}

	statusQuery := `SELECT status, COUNT(*) FROM applications` + where + ` GROUP BY status`
	rows, err := r.db.QueryContext(ctx, statusQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status domain.ApplicationStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status aggregate: %w", err)
		}
		stats.Total += count
		switch status {
		case domain.StatusDraft:
			stats.Draft = count
		case domain.StatusSubmitted:
			stats.Submitted = count
		case domain.StatusApproved:
			stats.Approved = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	typeQuery := `SELECT type, COUNT(*) FROM applications` + where + ` GROUP BY type ORDER BY type`
	typeRows, err := r.db.QueryContext(ctx, typeQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate by type: %w", err)
	}
	defer typeRows.Close()

	for typeRows.Next() {
		var tc domain.TypeCount
		if err := typeRows.Scan(&tc.Type, &tc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan type aggregate: %w", err)
		}
		stats.ByType = append(stats.ByType, tc)
	}
	if err := typeRows.Err(); err != nil {
		return nil, err
	}

	sixMonthsAgo := time.Now().AddDate(0, -6, 0)
	monthArgs := append(append([]interface{}{}, args...), sixMonthsAgo)
	conj := " WHERE "
	if where != "" {
		conj = where + " AND "
	}
	monthQuery := fmt.Sprintf(`
		SELECT EXTRACT(YEAR FROM created_at)::int, EXTRACT(MONTH FROM created_at)::int, COUNT(*)
		FROM applications%screated_at >= $%d
		GROUP BY 1, 2
		ORDER BY 1, 2
	`, conj, len(monthArgs))

	monthRows, err := r.db.QueryContext(ctx, monthQuery, monthArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate by month: %w", err)
	}
	defer monthRows.Close()

	for monthRows.Next() {
		var mc domain.MonthCount
		if err := monthRows.Scan(&mc.Year, &mc.Month, &mc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan month aggregate: %w", err)
		}
		stats.Monthly = append(stats.Monthly, mc)
	}

	return stats, monthRows.Err()
}
