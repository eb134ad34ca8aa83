package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ApplicationType represents the kind of letter of credit
type ApplicationType string

const (
	TypeSight        ApplicationType = "sight"
	TypeUsance       ApplicationType = "usance"
	TypeTransferable ApplicationType = "transferable"
	TypeStandby      ApplicationType = "standby"
	TypeRevolving    ApplicationType = "revolving"
)

// IsValid reports whether the type is one of the known LC types
func (t ApplicationType) IsValid() bool {
	switch t {
	case TypeSight, TypeUsance, TypeTransferable, TypeStandby, TypeRevolving:
		return true
	}
	return false
}

// ApplicationStatus represents the workflow status of an application
type ApplicationStatus string

const (
	StatusDraft       ApplicationStatus = "draft"
	StatusSubmitted   ApplicationStatus = "submitted"
	StatusUnderReview ApplicationStatus = "under_review"
	StatusApproved    ApplicationStatus = "approved"
	StatusRejected    ApplicationStatus = "rejected"
	StatusIssued      ApplicationStatus = "issued"
	StatusAmended     ApplicationStatus = "amended"
	StatusExpired     ApplicationStatus = "expired"
	StatusCancelled   ApplicationStatus = "cancelled"
)

// IsValid reports whether the status is a known workflow status
func (s ApplicationStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusUnderReview, StatusApproved,
		StatusRejected, StatusIssued, StatusAmended, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// ApplicationStep represents the form step the applicant is on
type ApplicationStep string

const (
	StepCompanyInfo  ApplicationStep = "company_info"
	StepLCDetails    ApplicationStep = "lc_details"
	StepPartiesInfo  ApplicationStep = "parties_info"
	StepShippingInfo ApplicationStep = "shipping_info"
	StepCompliance   ApplicationStep = "compliance"
	StepReview       ApplicationStep = "review"
	StepSubmission   ApplicationStep = "submission"
)

// IsValid reports whether the step is a known form step
func (s ApplicationStep) IsValid() bool {
	switch s {
	case StepCompanyInfo, StepLCDetails, StepPartiesInfo, StepShippingInfo,
		StepCompliance, StepReview, StepSubmission:
		return true
	}
	return false
}

// FormCategory returns the form-data category key for a step: the first
// underscore-delimited segment (lc_details -> "lc", compliance -> "compliance").
func (s ApplicationStep) FormCategory() string {
	return strings.SplitN(string(s), "_", 2)[0]
}

// RequiredSteps are the form steps that must be completed before submission
var RequiredSteps = []ApplicationStep{
	StepCompanyInfo,
	StepLCDetails,
	StepPartiesInfo,
	StepShippingInfo,
	StepCompliance,
}

// Priority represents the handling priority of an application
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// FormData maps a form category (company, lc, parties, shipping, compliance) to
// an opaque client-defined payload. Categories are a closed set; payload shape
// is not interpreted server-side.
type FormData map[string]json.RawMessage

// Merge returns a copy of f with the categories of other merged in, replacing
// per category rather than wholesale.
func (f FormData) Merge(other FormData) FormData {
	merged := make(FormData, len(f)+len(other))
	for k, v := range f {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// BankDetails holds beneficiary-side bank account information
type BankDetails struct {
	BankName      string `json:"bankName,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	SwiftCode     string `json:"swiftCode,omitempty"`
	IBAN          string `json:"iban,omitempty"`
}

// Beneficiary is the party in whose favour the LC is issued
type Beneficiary struct {
	Name        string      `json:"name,omitempty"`
	Address     string      `json:"address,omitempty"`
	Country     string      `json:"country,omitempty"`
	BankDetails BankDetails `json:"bankDetails,omitempty"`
}

// BankReference is a free-form reference to an issuing or advising bank
type BankReference struct {
	BankID        *uuid.UUID `json:"bankId,omitempty"`
	Name          string     `json:"name,omitempty"`
	Branch        string     `json:"branch,omitempty"`
	ContactPerson string     `json:"contactPerson,omitempty"`
}

// DocumentRequirement describes one document the LC requires for presentation
type DocumentRequirement struct {
	Document         string `json:"document"`
	Copies           int    `json:"copies"`
	OriginalRequired bool   `json:"originalRequired"`
}

// Charges holds the fee breakdown for the LC
type Charges struct {
	Issuing      float64 `json:"issuing"`
	Advising     float64 `json:"advising"`
	Confirmation float64 `json:"confirmation"`
	Amendment    float64 `json:"amendment"`
}

// ComplianceCheck tracks the compliance screening state of an application
type ComplianceCheck struct {
	AMLCheck       bool   `json:"amlCheck"`
	KYCCheck       bool   `json:"kycCheck"`
	SanctionsCheck bool   `json:"sanctionsCheck"`
	RiskAssessment string `json:"riskAssessment,omitempty"`
}

// StatusHistoryEntry is one append-only audit record of a status transition
type StatusHistoryEntry struct {
	ID        uuid.UUID         `json:"id" db:"id"`
	Status    ApplicationStatus `json:"status" db:"status"`
	ChangedBy uuid.UUID         `json:"changedBy" db:"changed_by"`
	Comments  string            `json:"comments,omitempty" db:"comments"`
	Timestamp time.Time         `json:"timestamp" db:"created_at"`
}

// Application is a letter-of-credit application
type Application struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Reference string          `json:"reference" db:"reference"`
	Type      ApplicationType `json:"type" db:"type"`
	Amount    float64         `json:"amount" db:"amount"`
	Currency  string          `json:"currency" db:"currency"`

	Applicant    uuid.UUID     `json:"applicant" db:"applicant_id"`
	Beneficiary  Beneficiary   `json:"beneficiary" db:"beneficiary"`
	IssuingBank  BankReference `json:"issuingBank" db:"issuing_bank"`
	AdvisingBank BankReference `json:"advisingBank" db:"advising_bank"`

	Tenor              int        `json:"tenor" db:"tenor"` // days
	ShipmentDate       *time.Time `json:"shipmentDate,omitempty" db:"shipment_date"`
	ExpiryDate         time.Time  `json:"expiryDate" db:"expiry_date"`
	LatestShipmentDate *time.Time `json:"latestShipmentDate,omitempty" db:"latest_shipment_date"`
	PresentationPeriod int        `json:"presentationPeriod" db:"presentation_period"` // days after shipment

	GoodsDescription     string                `json:"goodsDescription,omitempty" db:"goods_description"`
	DocumentsRequired    []DocumentRequirement `json:"documentsRequired,omitempty" db:"documents_required"`
	AdditionalConditions string                `json:"additionalConditions,omitempty" db:"additional_conditions"`
	Charges              Charges               `json:"charges" db:"charges"`

	Status        ApplicationStatus    `json:"status" db:"status"`
	StatusHistory []StatusHistoryEntry `json:"statusHistory"`
	CurrentStep   ApplicationStep      `json:"currentStep" db:"current_step"`
	FormData      FormData             `json:"formData" db:"form_data"`

	ComplianceCheck ComplianceCheck `json:"complianceCheck" db:"compliance_check"`

	CreatedBy  uuid.UUID  `json:"createdBy" db:"created_by"`
	AssignedTo *uuid.UUID `json:"assignedTo,omitempty" db:"assigned_to"`
	Priority   Priority   `json:"priority" db:"priority"`

	// Version is an optimistic-concurrency token; updates must carry the
	// version they read or they are rejected as stale.
	Version   int       `json:"version" db:"version"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// ApplicantSummary is populated on reads for client display
	ApplicantSummary *CompanySummary `json:"applicantSummary,omitempty"`
}

// CompanySummary is the applicant projection attached to application reads
type CompanySummary struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	RegistrationNumber string    `json:"registrationNumber"`
}

// ApplicationCreateRequest is the payload for creating an application
type ApplicationCreateRequest struct {
	Reference            string                `json:"reference,omitempty"`
	Type                 ApplicationType       `json:"type" validate:"required"`
	Amount               float64               `json:"amount" validate:"required,gte=0"`
	Currency             string                `json:"currency" validate:"required"`
	Beneficiary          Beneficiary           `json:"beneficiary,omitempty"`
	IssuingBank          BankReference         `json:"issuingBank,omitempty"`
	AdvisingBank         BankReference         `json:"advisingBank,omitempty"`
	Tenor                *int                  `json:"tenor,omitempty"`
	ShipmentDate         *time.Time            `json:"shipmentDate,omitempty"`
	ExpiryDate           time.Time             `json:"expiryDate" validate:"required"`
	LatestShipmentDate   *time.Time            `json:"latestShipmentDate,omitempty"`
	PresentationPeriod   *int                  `json:"presentationPeriod,omitempty"`
	GoodsDescription     string                `json:"goodsDescription,omitempty"`
	DocumentsRequired    []DocumentRequirement `json:"documentsRequired,omitempty"`
	AdditionalConditions string                `json:"additionalConditions,omitempty"`
	Priority             Priority              `json:"priority,omitempty"`
}

// ApplicationUpdateRequest is the payload for updating an application.
// Pointer fields distinguish "absent" from zero values; any field present is
// applied after the status-transition checks.
type ApplicationUpdateRequest struct {
	Type                 *ApplicationType       `json:"type,omitempty"`
	Amount               *float64               `json:"amount,omitempty"`
	Currency             *string                `json:"currency,omitempty"`
	Beneficiary          *Beneficiary           `json:"beneficiary,omitempty"`
	IssuingBank          *BankReference         `json:"issuingBank,omitempty"`
	AdvisingBank         *BankReference         `json:"advisingBank,omitempty"`
	Tenor                *int                   `json:"tenor,omitempty"`
	ShipmentDate         *time.Time             `json:"shipmentDate,omitempty"`
	ExpiryDate           *time.Time             `json:"expiryDate,omitempty"`
	LatestShipmentDate   *time.Time             `json:"latestShipmentDate,omitempty"`
	PresentationPeriod   *int                   `json:"presentationPeriod,omitempty"`
	GoodsDescription     *string                `json:"goodsDescription,omitempty"`
	DocumentsRequired    []DocumentRequirement  `json:"documentsRequired,omitempty"`
	AdditionalConditions *string                `json:"additionalConditions,omitempty"`
	Charges              *Charges               `json:"charges,omitempty"`
	Status               *ApplicationStatus     `json:"status,omitempty"`
	StatusComments       string                 `json:"statusComments,omitempty"`
	FormData             FormData               `json:"formData,omitempty"`
	ComplianceCheck      *ComplianceCheck       `json:"complianceCheck,omitempty"`
	AssignedTo           *uuid.UUID             `json:"assignedTo,omitempty"`
	Priority             *Priority              `json:"priority,omitempty"`
	Version              *int                   `json:"version,omitempty"`
}

// ApplicationStepRequest is the payload for advancing the form step
type ApplicationStepRequest struct {
	Step     ApplicationStep `json:"step" validate:"required"`
	FormData json.RawMessage `json:"formData,omitempty"`
}

// ApplicationFilter holds list query parameters
type ApplicationFilter struct {
	Status    ApplicationStatus
	Type      ApplicationType
	StartDate *time.Time
	EndDate   *time.Time
	Search    string
	CreatedBy *uuid.UUID // set for non-elevated callers
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// TypeCount is one bucket of the by-type dashboard grouping
type TypeCount struct {
	Type  ApplicationType `json:"type"`
	Count int             `json:"count"`
}

// MonthCount is one bucket of the trailing-six-months dashboard grouping
type MonthCount struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Count int `json:"count"`
}

// DashboardStats aggregates application counts for the dashboard
type DashboardStats struct {
	Total     int          `json:"total"`
	Draft     int          `json:"draft"`
	Submitted int          `json:"submitted"`
	Approved  int          `json:"approved"`
	ByType    []TypeCount  `json:"byType"`
	Monthly   []MonthCount `json:"monthly"`
}
