package repository

import (
	"context"
	"errors"
	"fmt"

	"chauffeur-backoffice/internal/data/entity"
	"chauffeur-backoffice/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type InvoiceRepository interface {
	// CreateWithBookings stores the invoice and its line items and marks the
	// covered bookings INVOICED in one transaction.
	CreateWithBookings(ctx context.Context, invoice *entity.Invoice) error
	CreateAttempt(ctx context.Context, attempt *entity.InvoiceAttempt) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.Invoice, error)
	FindByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*entity.Invoice, error)
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
	UpdateSync(ctx context.Context, invoice *entity.Invoice) error
}

const invoiceColumns = `id, tenant_id, provider_invoice_id, invoice_number, contact_id, contact_name, reference,
	status, currency, subtotal, total_tax, total, amount_due, amount_paid, issue_date, due_date, url,
	booking_ids, created_by, created_at, updated_at`

const lineItemColumns = `id, invoice_id, booking_id, position, description, quantity, unit_amount,
	line_amount, tax_type, account_code, created_at`

type invoiceRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewInvoiceRepository(db database.PgxIface, log *zap.Logger) InvoiceRepository {
	return &invoiceRepository{
		db:  db,
		log: log.With(zap.String("repository", "invoice")),
	}
}

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	err := row.Scan(
		&inv.ID,
		&inv.TenantID,
		&inv.ProviderInvoiceID,
		&inv.InvoiceNumber,
		&inv.ContactID,
		&inv.ContactName,
		&inv.Reference,
		&inv.Status,
		&inv.Currency,
		&inv.Subtotal,
		&inv.TotalTax,
		&inv.Total,
		&inv.AmountDue,
		&inv.AmountPaid,
		&inv.IssueDate,
		&inv.DueDate,
		&inv.URL,
		&inv.BookingIDs,
		&inv.CreatedBy,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepository) CreateWithBookings(ctx context.Context, inv *entity.Invoice) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin invoice transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO invoices (`+invoiceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`,
		inv.ID,
		inv.TenantID,
		inv.ProviderInvoiceID,
		inv.InvoiceNumber,
		inv.ContactID,
		inv.ContactName,
		inv.Reference,
		inv.Status,
		inv.Currency,
		inv.Subtotal,
		inv.TotalTax,
		inv.Total,
		inv.AmountDue,
		inv.AmountPaid,
		inv.IssueDate,
		inv.DueDate,
		inv.URL,
		inv.BookingIDs,
		inv.CreatedBy,
		inv.CreatedAt,
		inv.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to insert invoice",
			zap.Error(err),
			zap.String("provider_invoice_id", inv.ProviderInvoiceID),
		)
		return fmt.Errorf("insert invoice %s: %w", inv.ProviderInvoiceID, err)
	}

	for _, item := range inv.LineItems {
		_, err = tx.Exec(ctx, `
			INSERT INTO invoice_line_items (`+lineItemColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
			item.ID,
			inv.ID,
			item.BookingID,
			item.Position,
			item.Description,
			item.Quantity,
			item.UnitAmount,
			item.LineAmount,
			item.TaxType,
			item.AccountCode,
			item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert invoice %s line item: %w", inv.ProviderInvoiceID, err)
		}
	}

	result, err := tx.Exec(ctx, `
		UPDATE bookings SET payment_status = $3, updated_at = $4, version = version + 1
		WHERE tenant_id = $1 AND id = ANY($2) AND payment_status <> $3
	`, inv.TenantID, inv.BookingIDs, entity.BookingPaymentInvoiced, inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("mark bookings invoiced for %s: %w", inv.ProviderInvoiceID, err)
	}
	if int(result.RowsAffected()) != len(inv.BookingIDs) {
		// another request invoiced one of these bookings first
		return fmt.Errorf("mark bookings invoiced for %s: %d of %d bookings updated",
			inv.ProviderInvoiceID, result.RowsAffected(), len(inv.BookingIDs))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit invoice %s: %w", inv.ProviderInvoiceID, err)
	}

	return nil
}

func (r *invoiceRepository) CreateAttempt(ctx context.Context, a *entity.InvoiceAttempt) error {
	query := `
		INSERT INTO invoice_attempts (id, tenant_id, booking_ids, reference, error, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query, a.ID, a.TenantID, a.BookingIDs, a.Reference, a.Error, a.CreatedBy, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		r.log.Error("Failed to record invoice attempt", zap.Error(err))
		return fmt.Errorf("create invoice attempt: %w", err)
	}

	return nil
}

func (r *invoiceRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 AND tenant_id = $2`

	inv, err := scanInvoice(r.db.QueryRow(ctx, query, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find invoice by ID",
			zap.Error(err),
			zap.String("invoice_id", id.String()),
		)
		return nil, fmt.Errorf("find invoice by ID %s: %w", id.String(), err)
	}

	rows, err := r.db.Query(ctx, `SELECT `+lineItemColumns+` FROM invoice_line_items WHERE invoice_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("find invoice %s line items: %w", id.String(), err)
	}
	defer rows.Close()

	for rows.Next() {
		var item entity.InvoiceLineItem
		if err := rows.Scan(
			&item.ID,
			&item.InvoiceID,
			&item.BookingID,
			&item.Position,
			&item.Description,
			&item.Quantity,
			&item.UnitAmount,
			&item.LineAmount,
			&item.TaxType,
			&item.AccountCode,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan invoice line item: %w", err)
		}
		inv.LineItems = append(inv.LineItems, item)
	}

	return inv, rows.Err()
}

func (r *invoiceRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*entity.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find invoices by tenant",
			zap.Error(err),
			zap.String("tenant_id", tenantID.String()),
		)
		return nil, fmt.Errorf("find invoices by tenant %s: %w", tenantID.String(), err)
	}
	defer rows.Close()

	var invoices []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			r.log.Error("Failed to scan invoice row", zap.Error(err))
			return nil, fmt.Errorf("scan invoice row: %w", err)
		}
		invoices = append(invoices, inv)
	}

	return invoices, rows.Err()
}

func (r *invoiceRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE tenant_id = $1`, tenantID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count invoices by tenant %s: %w", tenantID.String(), err)
	}
	return count, nil
}

// UpdateSync writes the only mutable invoice fields.
func (r *invoiceRepository) UpdateSync(ctx context.Context, inv *entity.Invoice) error {
	query := `
		UPDATE invoices SET status = $3, amount_paid = $4, amount_due = $5, updated_at = $6
		WHERE id = $1 AND tenant_id = $2
	`

	result, err := r.db.Exec(ctx, query, inv.ID, inv.TenantID, inv.Status, inv.AmountPaid, inv.AmountDue, inv.UpdatedAt)
	if err != nil {
		r.log.Error("Failed to sync invoice",
			zap.Error(err),
			zap.String("invoice_id", inv.ID.String()),
		)
		return fmt.Errorf("sync invoice %s: %w", inv.ID.String(), err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("invoice %s not found", inv.ID.String())
	}

	return nil
}
