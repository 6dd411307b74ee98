package store

import (
	"context"

	"github.com/ignite/liquidation-pipeline/internal/pkg/logger"
)

// Close releases the underlying database handle.
func (p *Postgres) Close() error { return p.db.Close() }

// EnsureSchema applies idempotent schema setup for all pipeline tables.
// Failures are logged, not fatal: in managed environments the tables are
// usually provisioned ahead of time with tighter ownership.
func (p *Postgres) EnsureSchema(ctx context.Context) {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS liquidation_units (
			unit_id TEXT PRIMARY KEY,
			program TEXT,
			master_program TEXT,
			category TEXT,
			title TEXT,
			product_status TEXT,
			marketplace TEXT,
			upc_retail DOUBLE PRECISION,
			category_avg_retail DOUBLE PRECISION,
			effective_retail DOUBLE PRECISION,
			sale_price DOUBLE PRECISION,
			discount DOUBLE PRECISION,
			gross_sale DOUBLE PRECISION,
			refund_amount DOUBLE PRECISION,
			is_refunded BOOLEAN NOT NULL DEFAULT FALSE,
			check_in_fee DOUBLE PRECISION,
			packaging_fee DOUBLE PRECISION,
			pick_pack_ship_fee DOUBLE PRECISION,
			refurb_fee DOUBLE PRECISION,
			marketplace_fee DOUBLE PRECISION,
			total_fees DOUBLE PRECISION,
			invoiced_check_in_fee DOUBLE PRECISION,
			invoiced_overbox_fee DOUBLE PRECISION,
			invoiced_pps_fee DOUBLE PRECISION,
			invoiced_shipping_fee DOUBLE PRECISION,
			invoiced_merchant_fee DOUBLE PRECISION,
			invoiced_3pmp_fee DOUBLE PRECISION,
			invoiced_revshare_fee DOUBLE PRECISION,
			invoiced_marketing_fee DOUBLE PRECISION,
			invoiced_refund_fee DOUBLE PRECISION,
			received_date TIMESTAMPTZ,
			checked_in_date TIMESTAMPTZ,
			tested_date TIMESTAMPTZ,
			first_listed_date TIMESTAMPTZ,
			order_closed_date TIMESTAMPTZ,
			fiscal_week INTEGER,
			fiscal_day INTEGER,
			current_stage TEXT,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS lifecycle_events (
			id BIGSERIAL PRIMARY KEY,
			unit_id TEXT NOT NULL,
			stage TEXT NOT NULL,
			event_date TIMESTAMPTZ NOT NULL,
			business_date TIMESTAMPTZ NOT NULL,
			fiscal_week INTEGER NOT NULL,
			fiscal_day INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lifecycle_events_unit ON lifecycle_events (unit_id)`,
		`CREATE TABLE IF NOT EXISTS sales_metrics (
			unit_id TEXT PRIMARY KEY,
			program TEXT,
			master_program TEXT,
			category TEXT,
			marketplace TEXT,
			fiscal_week INTEGER,
			fiscal_day INTEGER,
			order_closed_date TIMESTAMPTZ,
			sale_price DOUBLE PRECISION,
			discount DOUBLE PRECISION,
			gross_sale DOUBLE PRECISION,
			refund_amount DOUBLE PRECISION,
			is_refunded BOOLEAN NOT NULL DEFAULT FALSE,
			effective_retail DOUBLE PRECISION,
			total_fees DOUBLE PRECISION,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS fee_metrics (
			unit_id TEXT PRIMARY KEY,
			program TEXT,
			master_program TEXT,
			category TEXT,
			marketplace TEXT,
			check_in_fee DOUBLE PRECISION,
			packaging_fee DOUBLE PRECISION,
			pick_pack_ship_fee DOUBLE PRECISION,
			refurb_fee DOUBLE PRECISION,
			marketplace_fee DOUBLE PRECISION,
			total_fees DOUBLE PRECISION,
			invoiced_check_in_fee DOUBLE PRECISION,
			invoiced_overbox_fee DOUBLE PRECISION,
			invoiced_pps_fee DOUBLE PRECISION,
			invoiced_shipping_fee DOUBLE PRECISION,
			invoiced_merchant_fee DOUBLE PRECISION,
			invoiced_3pmp_fee DOUBLE PRECISION,
			invoiced_revshare_fee DOUBLE PRECISION,
			invoiced_marketing_fee DOUBLE PRECISION,
			invoiced_refund_fee DOUBLE PRECISION,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS file_runs (
			id UUID PRIMARY KEY,
			file_name TEXT NOT NULL,
			category TEXT NOT NULL,
			business_date TIMESTAMPTZ NOT NULL,
			row_count INTEGER NOT NULL DEFAULT 0,
			processed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			processed_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS fee_schedule (
			category TEXT NOT NULL,
			program TEXT NOT NULL,
			base_price_type TEXT,
			composite_key TEXT,
			price DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (category, program)
		)`,
	}
	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			logger.Warn("schema setup statement failed", "error", err)
		}
	}
}
