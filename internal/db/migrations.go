package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`CREATE TABLE IF NOT EXISTS agents (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name VARCHAR(255) NOT NULL,
		default_commission_luce NUMERIC(12,2),
		default_commission_gas NUMERIC(12,2)
	);`,
	`CREATE TABLE IF NOT EXISTS customers (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		kind VARCHAR(16) NOT NULL CHECK (kind IN ('private', 'business')),
		display_name VARCHAR(255) NOT NULL,
		agent_id UUID REFERENCES agents(id)
	);`,
	`CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		file_name VARCHAR(255) NOT NULL,
		content_type VARCHAR(128) NOT NULL,
		size BIGINT NOT NULL,
		content BYTEA NOT NULL,
		uploaded_by UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		customer_id UUID NOT NULL REFERENCES customers(id),
		commodity VARCHAR(8) NOT NULL CHECK (commodity IN ('luce', 'gas')),
		supply_point VARCHAR(64) NOT NULL CHECK (supply_point = btrim(supply_point) AND supply_point <> ''),
		supplier VARCHAR(255) NOT NULL,
		"procedure" VARCHAR(32) NOT NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'in_compilation',
		price NUMERIC(12,6),
		stipulated_at DATE,
		activated_at DATE,
		expires_at DATE,
		note TEXT NOT NULL DEFAULT '',
		revision BIGINT NOT NULL DEFAULT 1,
		superseded_at TIMESTAMPTZ,
		superseded_by UUID REFERENCES contracts(id) DEFERRABLE INITIALLY DEFERRED,
		created_by UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_contract_supply_point
		ON contracts (customer_id, commodity, supply_point)
		WHERE superseded_at IS NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_customer_id ON contracts (customer_id);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts (status);`,
	`CREATE TABLE IF NOT EXISTS commission_assignments (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		customer_id UUID NOT NULL REFERENCES customers(id),
		commodity VARCHAR(8) NOT NULL CHECK (commodity IN ('luce', 'gas')),
		agent_id UUID NOT NULL REFERENCES agents(id),
		amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
		mode VARCHAR(16) NOT NULL CHECK (mode IN ('manual', 'default')),
		assigned_by UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT uq_commission_customer_commodity UNIQUE (customer_id, commodity)
	);`,
	`CREATE TABLE IF NOT EXISTS procedure_history (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		seq BIGSERIAL NOT NULL,
		contract_id UUID NOT NULL REFERENCES contracts(id),
		previous_procedure VARCHAR(32) NOT NULL,
		new_procedure VARCHAR(32) NOT NULL,
		previous_status VARCHAR(32) NOT NULL,
		new_status VARCHAR(32) NOT NULL,
		note TEXT,
		attachment_ref UUID REFERENCES documents(id),
		actor_id UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp(),
		CHECK (previous_procedure <> new_procedure OR previous_status <> new_status)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_procedure_history_contract ON procedure_history (contract_id, created_at DESC, seq DESC);`,
	`CREATE OR REPLACE FUNCTION procedure_history_immutable() RETURNS trigger AS $$
	BEGIN
		RAISE EXCEPTION 'procedure_history is append-only';
	END
	$$ LANGUAGE plpgsql;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_procedure_history_immutable') THEN
			CREATE TRIGGER trg_procedure_history_immutable
				BEFORE UPDATE OR DELETE ON procedure_history
				FOR EACH ROW EXECUTE FUNCTION procedure_history_immutable();
		END IF;
	END
	$$;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
