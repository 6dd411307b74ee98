package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/ignite/liquidation-pipeline/internal/fees"
	"github.com/ignite/liquidation-pipeline/internal/lifecycle"
	"github.com/ignite/liquidation-pipeline/internal/unit"
)

// Postgres implements Store against PostgreSQL.
type Postgres struct{ db *sql.DB }

// NewPostgres wraps an existing database handle.
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Open connects to PostgreSQL and verifies the connection.
func Open(databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{db: db}, nil
}

// DB exposes the underlying handle for lifecycle management.
func (p *Postgres) DB() *sql.DB { return p.db }

func (p *Postgres) CreateFileRun(ctx context.Context, run *FileRun) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO file_runs (id, file_name, category, business_date, row_count, processed, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, NOW())
	`, run.ID, run.FileName, run.Category, run.BusinessDate, run.RowCount)
	if err != nil {
		return fmt.Errorf("create file run: %w", err)
	}
	return nil
}

func (p *Postgres) MarkFileRunProcessed(ctx context.Context, id uuid.UUID, rowCount int) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE file_runs SET processed = TRUE, row_count = $2, processed_at = NOW()
		WHERE id = $1
	`, id, rowCount)
	if err != nil {
		return fmt.Errorf("mark file run processed: %w", err)
	}
	return nil
}

func (p *Postgres) ListFileRuns(ctx context.Context, limit int) ([]FileRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, file_name, category, business_date, row_count, processed, created_at, processed_at
		FROM file_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list file runs: %w", err)
	}
	defer rows.Close()

	var runs []FileRun
	for rows.Next() {
		var r FileRun
		var processedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.FileName, &r.Category, &r.BusinessDate,
			&r.RowCount, &r.Processed, &r.CreatedAt, &processedAt); err != nil {
			return nil, fmt.Errorf("scan file run: %w", err)
		}
		if processedAt.Valid {
			r.ProcessedAt = &processedAt.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// UpsertUnits writes one batch of canonical records in a single
// transaction. Conflict policy is last-write-wins full-row replace on
// unit_id: a re-upload supersedes, it never merges.
func (p *Postgres) UpsertUnits(ctx context.Context, recs []*unit.Record) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin units tx: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range recs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO liquidation_units (
				unit_id, program, master_program, category, title, product_status, marketplace,
				upc_retail, category_avg_retail, effective_retail,
				sale_price, discount, gross_sale, refund_amount, is_refunded,
				check_in_fee, packaging_fee, pick_pack_ship_fee, refurb_fee, marketplace_fee, total_fees,
				invoiced_check_in_fee, invoiced_overbox_fee, invoiced_pps_fee, invoiced_shipping_fee,
				invoiced_merchant_fee, invoiced_3pmp_fee, invoiced_revshare_fee, invoiced_marketing_fee,
				invoiced_refund_fee,
				received_date, checked_in_date, tested_date, first_listed_date, order_closed_date,
				fiscal_week, fiscal_day, current_stage, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7,
				$8, $9, $10,
				$11, $12, $13, $14, $15,
				$16, $17, $18, $19, $20, $21,
				$22, $23, $24, $25,
				$26, $27, $28, $29,
				$30,
				$31, $32, $33, $34, $35,
				$36, $37, $38, NOW()
			)
			ON CONFLICT (unit_id) DO UPDATE SET
				program = EXCLUDED.program,
				master_program = EXCLUDED.master_program,
				category = EXCLUDED.category,
				title = EXCLUDED.title,
				product_status = EXCLUDED.product_status,
				marketplace = EXCLUDED.marketplace,
				upc_retail = EXCLUDED.upc_retail,
				category_avg_retail = EXCLUDED.category_avg_retail,
				effective_retail = EXCLUDED.effective_retail,
				sale_price = EXCLUDED.sale_price,
				discount = EXCLUDED.discount,
				gross_sale = EXCLUDED.gross_sale,
				refund_amount = EXCLUDED.refund_amount,
				is_refunded = EXCLUDED.is_refunded,
				check_in_fee = EXCLUDED.check_in_fee,
				packaging_fee = EXCLUDED.packaging_fee,
				pick_pack_ship_fee = EXCLUDED.pick_pack_ship_fee,
				refurb_fee = EXCLUDED.refurb_fee,
				marketplace_fee = EXCLUDED.marketplace_fee,
				total_fees = EXCLUDED.total_fees,
				invoiced_check_in_fee = EXCLUDED.invoiced_check_in_fee,
				invoiced_overbox_fee = EXCLUDED.invoiced_overbox_fee,
				invoiced_pps_fee = EXCLUDED.invoiced_pps_fee,
				invoiced_shipping_fee = EXCLUDED.invoiced_shipping_fee,
				invoiced_merchant_fee = EXCLUDED.invoiced_merchant_fee,
				invoiced_3pmp_fee = EXCLUDED.invoiced_3pmp_fee,
				invoiced_revshare_fee = EXCLUDED.invoiced_revshare_fee,
				invoiced_marketing_fee = EXCLUDED.invoiced_marketing_fee,
				invoiced_refund_fee = EXCLUDED.invoiced_refund_fee,
				received_date = EXCLUDED.received_date,
				checked_in_date = EXCLUDED.checked_in_date,
				tested_date = EXCLUDED.tested_date,
				first_listed_date = EXCLUDED.first_listed_date,
				order_closed_date = EXCLUDED.order_closed_date,
				fiscal_week = EXCLUDED.fiscal_week,
				fiscal_day = EXCLUDED.fiscal_day,
				current_stage = EXCLUDED.current_stage,
				updated_at = NOW()
		`,
			rec.UnitID, rec.Program, rec.MasterProgram, rec.Category, rec.Title, rec.ProductStatus, rec.Marketplace,
			rec.UPCRetail, rec.CategoryAvgRetail, rec.EffectiveRetail,
			rec.SalePrice, rec.Discount, rec.GrossSale, rec.RefundAmount, rec.IsRefunded,
			rec.CheckInFee, rec.PackagingFee, rec.PickPackShipFee, rec.RefurbFee, rec.MarketplaceFee, rec.TotalFees,
			rec.InvoicedCheckInFee, rec.InvoicedOverboxFee, rec.InvoicedPPSFee, rec.InvoicedShippingFee,
			rec.InvoicedMerchantFee, rec.InvoicedThreePMPFee, rec.InvoicedRevshareFee, rec.InvoicedMarketingFee,
			rec.InvoicedRefundFee,
			rec.ReceivedDate, rec.CheckedInDate, rec.TestedDate, rec.FirstListedDate, rec.OrderClosedDate,
			rec.FiscalWeek, rec.FiscalDay, string(lifecycle.CurrentStage(rec)),
		)
		if err != nil {
			return fmt.Errorf("upsert unit %s: %w", rec.UnitID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit units tx: %w", err)
	}
	return nil
}

// AppendEvents inserts lifecycle events. The event log has no natural
// key: rows accumulate across runs, never updated.
func (p *Postgres) AppendEvents(ctx context.Context, events []lifecycle.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin events tx: %w", err)
	}
	defer tx.Rollback()

	for _, ev := range events {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO lifecycle_events (unit_id, stage, event_date, business_date, fiscal_week, fiscal_day, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
		`, ev.UnitID, string(ev.Stage), ev.EventDate, ev.BusinessDate, ev.FiscalWeek, ev.FiscalDay)
		if err != nil {
			return fmt.Errorf("append event %s/%s: %w", ev.UnitID, ev.Stage, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit events tx: %w", err)
	}
	return nil
}

func (p *Postgres) UpsertSalesMetrics(ctx context.Context, metrics []*SalesMetric) error {
	if len(metrics) == 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sales tx: %w", err)
	}
	defer tx.Rollback()

	for _, m := range metrics {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sales_metrics (
				unit_id, program, master_program, category, marketplace,
				fiscal_week, fiscal_day, order_closed_date,
				sale_price, discount, gross_sale, refund_amount, is_refunded,
				effective_retail, total_fees, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
			ON CONFLICT (unit_id) DO UPDATE SET
				program = EXCLUDED.program,
				master_program = EXCLUDED.master_program,
				category = EXCLUDED.category,
				marketplace = EXCLUDED.marketplace,
				fiscal_week = EXCLUDED.fiscal_week,
				fiscal_day = EXCLUDED.fiscal_day,
				order_closed_date = EXCLUDED.order_closed_date,
				sale_price = EXCLUDED.sale_price,
				discount = EXCLUDED.discount,
				gross_sale = EXCLUDED.gross_sale,
				refund_amount = EXCLUDED.refund_amount,
				is_refunded = EXCLUDED.is_refunded,
				effective_retail = EXCLUDED.effective_retail,
				total_fees = EXCLUDED.total_fees,
				updated_at = NOW()
		`, m.UnitID, m.Program, m.MasterProgram, m.Category, m.Marketplace,
			m.FiscalWeek, m.FiscalDay, m.OrderClosedDate,
			m.SalePrice, m.Discount, m.GrossSale, m.RefundAmount, m.IsRefunded,
			m.EffectiveRetail, m.TotalFees)
		if err != nil {
			return fmt.Errorf("upsert sales metric %s: %w", m.UnitID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sales tx: %w", err)
	}
	return nil
}

func (p *Postgres) UpsertFeeMetrics(ctx context.Context, metrics []*FeeMetric) error {
	if len(metrics) == 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin fees tx: %w", err)
	}
	defer tx.Rollback()

	for _, m := range metrics {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO fee_metrics (
				unit_id, program, master_program, category, marketplace,
				check_in_fee, packaging_fee, pick_pack_ship_fee, refurb_fee, marketplace_fee, total_fees,
				invoiced_check_in_fee, invoiced_overbox_fee, invoiced_pps_fee, invoiced_shipping_fee,
				invoiced_merchant_fee, invoiced_3pmp_fee, invoiced_revshare_fee, invoiced_marketing_fee,
				invoiced_refund_fee, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, NOW())
			ON CONFLICT (unit_id) DO UPDATE SET
				program = EXCLUDED.program,
				master_program = EXCLUDED.master_program,
				category = EXCLUDED.category,
				marketplace = EXCLUDED.marketplace,
				check_in_fee = EXCLUDED.check_in_fee,
				packaging_fee = EXCLUDED.packaging_fee,
				pick_pack_ship_fee = EXCLUDED.pick_pack_ship_fee,
				refurb_fee = EXCLUDED.refurb_fee,
				marketplace_fee = EXCLUDED.marketplace_fee,
				total_fees = EXCLUDED.total_fees,
				invoiced_check_in_fee = EXCLUDED.invoiced_check_in_fee,
				invoiced_overbox_fee = EXCLUDED.invoiced_overbox_fee,
				invoiced_pps_fee = EXCLUDED.invoiced_pps_fee,
				invoiced_shipping_fee = EXCLUDED.invoiced_shipping_fee,
				invoiced_merchant_fee = EXCLUDED.invoiced_merchant_fee,
				invoiced_3pmp_fee = EXCLUDED.invoiced_3pmp_fee,
				invoiced_revshare_fee = EXCLUDED.invoiced_revshare_fee,
				invoiced_marketing_fee = EXCLUDED.invoiced_marketing_fee,
				invoiced_refund_fee = EXCLUDED.invoiced_refund_fee,
				updated_at = NOW()
		`, m.UnitID, m.Program, m.MasterProgram, m.Category, m.Marketplace,
			m.CheckInFee, m.PackagingFee, m.PickPackShipFee, m.RefurbFee, m.MarketplaceFee, m.TotalFees,
			m.InvoicedCheckInFee, m.InvoicedOverboxFee, m.InvoicedPPSFee, m.InvoicedShippingFee,
			m.InvoicedMerchantFee, m.InvoicedThreePMPFee, m.InvoicedRevshareFee, m.InvoicedMarketingFee,
			m.InvoicedRefundFee)
		if err != nil {
			return fmt.Errorf("upsert fee metric %s: %w", m.UnitID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit fees tx: %w", err)
	}
	return nil
}

func (p *Postgres) FeeScheduleRows(ctx context.Context) ([]fees.ScheduleRow, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT category, program, COALESCE(base_price_type, ''), COALESCE(composite_key, ''), price
		FROM fee_schedule
	`)
	if err != nil {
		return nil, fmt.Errorf("query fee schedule: %w", err)
	}
	defer rows.Close()

	var out []fees.ScheduleRow
	for rows.Next() {
		var r fees.ScheduleRow
		if err := rows.Scan(&r.Category, &r.Program, &r.BasePriceType, &r.Key, &r.Price); err != nil {
			return nil, fmt.Errorf("scan fee schedule row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
