package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lcportal/lcportal/internal/api/middleware"
	"github.com/lcportal/lcportal/internal/domain"
	"github.com/lcportal/lcportal/internal/repository"
)

// CompanyHandler handles company-related HTTP requests
type CompanyHandler struct {
	companyRepo *repository.CompanyRepository
	userRepo    *repository.UserRepository
}

// NewCompanyHandler creates a new company handler
func NewCompanyHandler(companyRepo *repository.CompanyRepository, userRepo *repository.UserRepository) *CompanyHandler {
	return &CompanyHandler{
		companyRepo: companyRepo,
		userRepo:    userRepo,
	}
}

// Register handles POST /api/company
func (h *CompanyHandler) Register(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUser(r.Context())

	var req domain.CompanyCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Company name is required")
		return
	}
	if req.RegistrationNumber == "" {
		respondError(w, http.StatusBadRequest, "Registration number is required")
		return
	}
	if req.TaxID == "" {
		respondError(w, http.StatusBadRequest, "Tax ID is required")
		return
	}
	if req.Address.Country == "" {
		respondError(w, http.StatusBadRequest, "Country is required")
		return
	}

	existing, err := h.companyRepo.FindByCreator(r.Context(), actor.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to register company")
		return
	}
	if existing != nil {
		respondError(w, http.StatusBadRequest, "You have already registered a company")
		return
	}

	now := time.Now()
	company := &domain.Company{
		ID:                    uuid.New(),
		Name:                  req.Name,
		RegistrationNumber:    req.RegistrationNumber,
		TaxID:                 req.TaxID,
		LegalForm:             req.LegalForm,
		IncorporationDate:     req.IncorporationDate,
		Address:               req.Address,
		ContactInfo:           req.ContactInfo,
		Industry:              req.Industry,
		BusinessType:          req.BusinessType,
		AnnualRevenue:         req.AnnualRevenue,
		NumberOfEmployees:     req.NumberOfEmployees,
		BankAccounts:          req.BankAccounts,
		AuthorizedSignatories: req.AuthorizedSignatories,
		Documents:             req.Documents,
		ComplianceStatus:      domain.CompliancePending,
		KYCStatus:             domain.KYCNotStarted,
		RiskRating:            domain.RiskMedium,
		CreatedBy:             actor.ID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := h.companyRepo.Create(r.Context(), company); err != nil {
		if errors.Is(err, repository.ErrDuplicateCompany) {
			respondError(w, http.StatusBadRequest, "Company is already registered")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to register company")
		return
	}

	if err := h.userRepo.SetCompany(r.Context(), actor.ID, company.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to link company to account")
		return
	}

	respondData(w, http.StatusCreated, company)
}

// GetMine handles GET /api/company/me
func (h *CompanyHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUser(r.Context())

	company, err := h.companyRepo.FindByCreator(r.Context(), actor.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load company")
		return
	}
	if company == nil {
		respondError(w, http.StatusNotFound, "No company registered for this account")
		return
	}

	respondData(w, http.StatusOK, company)
}

// UpdateMine handles PUT /api/company/me
func (h *CompanyHandler) UpdateMine(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUser(r.Context())

	company, err := h.companyRepo.FindByCreator(r.Context(), actor.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load company")
		return
	}
	if company == nil {
		respondError(w, http.StatusNotFound, "No company registered for this account")
		return
	}

	var req domain.CompanyCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name != "" {
		company.Name = req.Name
	}
	if req.RegistrationNumber != "" {
		company.RegistrationNumber = req.RegistrationNumber
	}
	if req.TaxID != "" {
		company.TaxID = req.TaxID
	}
	if req.LegalForm != "" {
		company.LegalForm = req.LegalForm
	}
	if req.IncorporationDate != nil {
		company.IncorporationDate = req.IncorporationDate
	}
	if req.Address.Country != "" {
		company.Address = req.Address
	}
	if req.ContactInfo != (domain.ContactInfo{}) {
		company.ContactInfo = req.ContactInfo
	}
	if req.Industry != "" {
		company.Industry = req.Industry
	}
	if req.BusinessType != "" {
		company.BusinessType = req.BusinessType
	}
	if req.AnnualRevenue != nil {
		company.AnnualRevenue = req.AnnualRevenue
	}
	if req.NumberOfEmployees != nil {
		company.NumberOfEmployees = req.NumberOfEmployees
	}
	if req.BankAccounts != nil {
		company.BankAccounts = req.BankAccounts
	}
	if req.AuthorizedSignatories != nil {
		company.AuthorizedSignatories = req.AuthorizedSignatories
	}
	if req.Documents != nil {
		company.Documents = req.Documents
	}

	if err := h.companyRepo.Update(r.Context(), company); err != nil {
		if errors.Is(err, repository.ErrDuplicateCompany) {
			respondError(w, http.StatusBadRequest, "Company is already registered")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to update company")
		return
	}

	respondData(w, http.StatusOK, company)
}
