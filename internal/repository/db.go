package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
)

// Open opens a Postgres connection pool and verifies connectivity
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		company_id UUID,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS companies (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		registration_number TEXT NOT NULL UNIQUE,
		tax_id TEXT NOT NULL,
		legal_form TEXT,
		incorporation_date TIMESTAMPTZ,
		address JSONB NOT NULL DEFAULT '{}',
		contact_info JSONB NOT NULL DEFAULT '{}',
		industry TEXT,
		business_type TEXT,
		annual_revenue DOUBLE PRECISION,
		number_of_employees INTEGER,
		bank_accounts JSONB NOT NULL DEFAULT '[]',
		authorized_signatories JSONB NOT NULL DEFAULT '[]',
		documents JSONB NOT NULL DEFAULT '[]',
		compliance_status TEXT NOT NULL DEFAULT 'pending',
		kyc_status TEXT NOT NULL DEFAULT 'not_started',
		risk_rating TEXT NOT NULL DEFAULT 'medium',
		created_by UUID NOT NULL REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS applications (
		id UUID PRIMARY KEY,
		reference TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		amount DOUBLE PRECISION NOT NULL CHECK (amount >= 0),
		currency TEXT NOT NULL DEFAULT 'USD',
		applicant_id UUID NOT NULL REFERENCES companies(id),
		beneficiary JSONB NOT NULL DEFAULT '{}',
		issuing_bank JSONB NOT NULL DEFAULT '{}',
		advising_bank JSONB NOT NULL DEFAULT '{}',
		tenor INTEGER NOT NULL DEFAULT 90,
		shipment_date TIMESTAMPTZ,
		expiry_date TIMESTAMPTZ NOT NULL,
		latest_shipment_date TIMESTAMPTZ,
		presentation_period INTEGER NOT NULL DEFAULT 21,
		goods_description TEXT,
		documents_required JSONB NOT NULL DEFAULT '[]',
		additional_conditions TEXT,
		charges JSONB NOT NULL DEFAULT '{}',
		status TEXT NOT NULL DEFAULT 'draft',
		current_step TEXT NOT NULL DEFAULT 'company_info',
		form_data JSONB NOT NULL DEFAULT '{}',
		compliance_check JSONB NOT NULL DEFAULT '{}',
		created_by UUID NOT NULL REFERENCES users(id),
		assigned_to UUID,
		priority TEXT NOT NULL DEFAULT 'normal',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS application_status_history (
		id UUID PRIMARY KEY,
		application_id UUID NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
		status TEXT NOT NULL,
		changed_by UUID NOT NULL,
		comments TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id),
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		data JSONB NOT NULL DEFAULT '{}',
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		priority TEXT NOT NULL DEFAULT 'normal',
		read_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_applications_created_by ON applications(created_by)`,
	`CREATE INDEX IF NOT EXISTS idx_applications_status ON applications(status)`,
	`CREATE INDEX IF NOT EXISTS idx_applications_created_at ON applications(created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_status_history_application ON application_status_history(application_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, is_read, created_at DESC)`,
}

// EnsureSchema creates the portal tables and indexes if they do not exist
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// marshalJSON encodes a value for a JSONB column
func marshalJSON(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode json column: %w", err)
	}
	return b, nil
}

// unmarshalJSON decodes a JSONB column into dst, tolerating NULL
func unmarshalJSON(src []byte, dst interface{}) error {
	if len(src) == 0 {
		return nil
	}
	if err := json.Unmarshal(src, dst); err != nil {
		return fmt.Errorf("failed to decode json column: %w", err)
	}
	return nil
}
