package domain

import (
	"time"

	"github.com/google/uuid"
)

// LegalForm represents the legal structure of a company
type LegalForm string

const (
	LegalFormLLC            LegalForm = "LLC"
	LegalFormCorporation    LegalForm = "Corporation"
	LegalFormPartnership    LegalForm = "Partnership"
	LegalFormSoleProprietor LegalForm = "Sole Proprietorship"
	LegalFormOther          LegalForm = "Other"
)

// BusinessType represents the trading profile of a company
type BusinessType string

const (
	BusinessImporter        BusinessType = "Importer"
	BusinessExporter        BusinessType = "Exporter"
	BusinessTrader          BusinessType = "Trader"
	BusinessManufacturer    BusinessType = "Manufacturer"
	BusinessServiceProvider BusinessType = "Service Provider"
)

// ComplianceStatus represents the compliance review status of a company
type ComplianceStatus string

const (
	CompliancePending   ComplianceStatus = "pending"
	ComplianceApproved  ComplianceStatus = "approved"
	ComplianceRejected  ComplianceStatus = "rejected"
	ComplianceSuspended ComplianceStatus = "suspended"
)

// KYCStatus represents the know-your-customer progress of a company
type KYCStatus string

const (
	KYCNotStarted KYCStatus = "not_started"
	KYCInProgress KYCStatus = "in_progress"
	KYCCompleted  KYCStatus = "completed"
	KYCFailed     KYCStatus = "failed"
)

// RiskRating represents the assessed risk level of a company
type RiskRating string

const (
	RiskLow    RiskRating = "low"
	RiskMedium RiskRating = "medium"
	RiskHigh   RiskRating = "high"
)

// Address is a postal address
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country"`
}

// ContactInfo holds company contact details
type ContactInfo struct {
	Phone   string `json:"phone,omitempty"`
	Fax     string `json:"fax,omitempty"`
	Website string `json:"website,omitempty"`
}

// BankAccount is one of a company's settlement accounts
type BankAccount struct {
	BankName      string `json:"bankName,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	AccountType   string `json:"accountType,omitempty"`
	Currency      string `json:"currency,omitempty"`
	IBAN          string `json:"iban,omitempty"`
	SwiftCode     string `json:"swiftCode,omitempty"`
	IsPrimary     bool   `json:"isPrimary"`
}

// Signatory is an authorized signatory of a company
type Signatory struct {
	Name           string `json:"name"`
	Position       string `json:"position,omitempty"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	SignatureImage string `json:"signatureImage,omitempty"`
}

// CompanyDocument is metadata for an uploaded corporate document
type CompanyDocument struct {
	Type       string     `json:"type"` // certificate, license, tax, other
	Name       string     `json:"name"`
	FileURL    string     `json:"fileUrl,omitempty"`
	UploadedAt *time.Time `json:"uploadedAt,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

// Company is a registered trading company
type Company struct {
	ID                    uuid.UUID         `json:"id" db:"id"`
	Name                  string            `json:"name" db:"name"`
	RegistrationNumber    string            `json:"registrationNumber" db:"registration_number"`
	TaxID                 string            `json:"taxId" db:"tax_id"`
	LegalForm             LegalForm         `json:"legalForm,omitempty" db:"legal_form"`
	IncorporationDate     *time.Time        `json:"incorporationDate,omitempty" db:"incorporation_date"`
	Address               Address           `json:"address" db:"address"`
	ContactInfo           ContactInfo       `json:"contactInfo" db:"contact_info"`
	Industry              string            `json:"industry,omitempty" db:"industry"`
	BusinessType          BusinessType      `json:"businessType,omitempty" db:"business_type"`
	AnnualRevenue         *float64          `json:"annualRevenue,omitempty" db:"annual_revenue"`
	NumberOfEmployees     *int              `json:"numberOfEmployees,omitempty" db:"number_of_employees"`
	BankAccounts          []BankAccount     `json:"bankAccounts,omitempty" db:"bank_accounts"`
	AuthorizedSignatories []Signatory       `json:"authorizedSignatories,omitempty" db:"authorized_signatories"`
	Documents             []CompanyDocument `json:"documents,omitempty" db:"documents"`
	ComplianceStatus      ComplianceStatus  `json:"complianceStatus" db:"compliance_status"`
	KYCStatus             KYCStatus         `json:"kycStatus" db:"kyc_status"`
	RiskRating            RiskRating        `json:"riskRating" db:"risk_rating"`
	CreatedBy             uuid.UUID         `json:"createdBy" db:"created_by"`
	CreatedAt             time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt             time.Time         `json:"updatedAt" db:"updated_at"`
}

// Summary returns the applicant projection used on application reads
func (c *Company) Summary() *CompanySummary {
	if c == nil {
		return nil
	}
	return &CompanySummary{
		ID:                 c.ID,
		Name:               c.Name,
		RegistrationNumber: c.RegistrationNumber,
	}
}

// CompanyCreateRequest is the payload for registering a company
type CompanyCreateRequest struct {
	Name                  string            `json:"name" validate:"required"`
	RegistrationNumber    string            `json:"registrationNumber" validate:"required"`
	TaxID                 string            `json:"taxId" validate:"required"`
	LegalForm             LegalForm         `json:"legalForm,omitempty"`
	IncorporationDate     *time.Time        `json:"incorporationDate,omitempty"`
	Address               Address           `json:"address"`
	ContactInfo           ContactInfo       `json:"contactInfo,omitempty"`
	Industry              string            `json:"industry,omitempty"`
	BusinessType          BusinessType      `json:"businessType,omitempty"`
	AnnualRevenue         *float64          `json:"annualRevenue,omitempty"`
	NumberOfEmployees     *int              `json:"numberOfEmployees,omitempty"`
	BankAccounts          []BankAccount     `json:"bankAccounts,omitempty"`
	AuthorizedSignatories []Signatory       `json:"authorizedSignatories,omitempty"`
	Documents             []CompanyDocument `json:"documents,omitempty"`
}
