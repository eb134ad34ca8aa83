package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/lcportal/lcportal/internal/domain"
)

// ErrDuplicateCompany is returned when a company name or registration number is taken
var ErrDuplicateCompany = fmt.Errorf("company already registered")

// CompanyRepository handles company persistence
type CompanyRepository struct {
	db *sql.DB
}

// NewCompanyRepository creates a new company repository with a shared database connection
func NewCompanyRepository(db *sql.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

const companyColumns = `id, name, registration_number, tax_id, legal_form, incorporation_date,
		address, contact_info, industry, business_type, annual_revenue, number_of_employees,
		bank_accounts, authorized_signatories, documents,
		compliance_status, kyc_status, risk_rating, created_by, created_at, updated_at`

func scanCompany(row interface{ Scan(...interface{}) error }) (*domain.Company, error) {
	var (
		c                                     domain.Company
		legalForm, industry, businessType     sql.NullString
		address, contact, accounts, sigs, doc []byte
	)
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.RegistrationNumber,
		&c.TaxID,
		&legalForm,
		&c.IncorporationDate,
		&address,
		&contact,
		&industry,
		&businessType,
		&c.AnnualRevenue,
		&c.NumberOfEmployees,
		&accounts,
		&sigs,
		&doc,
		&c.ComplianceStatus,
		&c.KYCStatus,
		&c.RiskRating,
		&c.CreatedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.LegalForm = domain.LegalForm(legalForm.String)
	c.Industry = industry.String
	c.BusinessType = domain.BusinessType(businessType.String)

	if err := unmarshalJSON(address, &c.Address); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(contact, &c.ContactInfo); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(accounts, &c.BankAccounts); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(sigs, &c.AuthorizedSignatories); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(doc, &c.Documents); err != nil {
		return nil, err
	}

	return &c, nil
}

// Create creates a new company
func (r *CompanyRepository) Create(ctx context.Context, company *domain.Company) error {
	query := `
		INSERT INTO companies (id, name, registration_number, tax_id, legal_form, incorporation_date,
			address, contact_info, industry, business_type, annual_revenue, number_of_employees,
			bank_accounts, authorized_signatories, documents,
			compliance_status, kyc_status, risk_rating, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	address, err := marshalJSON(company.Address)
	if err != nil {
		return err
	}
	contact, err := marshalJSON(company.ContactInfo)
	if err != nil {
		return err
	}
	accounts, err := marshalJSON(company.BankAccounts)
	if err != nil {
		return err
	}
	sigs, err := marshalJSON(company.AuthorizedSignatories)
	if err != nil {
		return err
	}
	docs, err := marshalJSON(company.Documents)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query,
		company.ID,
		company.Name,
		company.RegistrationNumber,
		company.TaxID,
		nullString(string(company.LegalForm)),
		company.IncorporationDate,
		address,
		contact,
		nullString(company.Industry),
		nullString(string(company.BusinessType)),
		company.AnnualRevenue,
		company.NumberOfEmployees,
		accounts,
		sigs,
		docs,
		company.ComplianceStatus,
		company.KYCStatus,
		company.RiskRating,
		company.CreatedBy,
		company.CreatedAt,
		company.UpdatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrDuplicateCompany
		}
		return fmt.Errorf("failed to create company: %w", err)
	}

	return nil
}

// FindByID finds a company by ID
func (r *CompanyRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1`

	company, err := scanCompany(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find company: %w", err)
	}

	return company, nil
}

// FindByCreator finds the company registered by the given user
func (r *CompanyRepository) FindByCreator(ctx context.Context, userID uuid.UUID) (*domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE created_by = $1`

	company, err := scanCompany(r.db.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find company by creator: %w", err)
	}

	return company, nil
}

// Update updates a company profile
func (r *CompanyRepository) Update(ctx context.Context, company *domain.Company) error {
	query := `
		UPDATE companies SET
			name = $2, registration_number = $3, tax_id = $4, legal_form = $5, incorporation_date = $6,
			address = $7, contact_info = $8, industry = $9, business_type = $10,
			annual_revenue = $11, number_of_employees = $12,
			bank_accounts = $13, authorized_signatories = $14, documents = $15,
			compliance_status = $16, kyc_status = $17, risk_rating = $18, updated_at = NOW()
		WHERE id = $1
	`

	address, err := marshalJSON(company.Address)
	if err != nil {
		return err
	}
	contact, err := marshalJSON(company.ContactInfo)
	if err != nil {
		return err
	}
	accounts, err := marshalJSON(company.BankAccounts)
	if err != nil {
		return err
	}
	sigs, err := marshalJSON(company.AuthorizedSignatories)
	if err != nil {
		return err
	}
	docs, err := marshalJSON(company.Documents)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query,
		company.ID,
		company.Name,
		company.RegistrationNumber,
		company.TaxID,
		nullString(string(company.LegalForm)),
		company.IncorporationDate,
		address,
		contact,
		nullString(company.Industry),
		nullString(string(company.BusinessType)),
		company.AnnualRevenue,
		company.NumberOfEmployees,
		accounts,
		sigs,
		docs,
		company.ComplianceStatus,
		company.KYCStatus,
		company.RiskRating,
	)
	if err != nil {
		return fmt.Errorf("failed to update company: %w", err)
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

// nullString converts an empty string to a SQL NULL
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
