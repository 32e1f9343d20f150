package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/invoice-ingest/constants"
	"github.com/joseph-ayodele/invoice-ingest/internal/entity"
)

const (
	TableInvoices     = "invoices"
	TableInvoiceItems = "invoice_items"
)

// ErrInvoiceNotFound is returned when an invoice ID does not exist.
var ErrInvoiceNotFound = errors.New("invoice not found")

// CreateInvoiceRequest wraps everything needed to persist one invoice with
// its items in a single transaction.
type CreateInvoiceRequest struct {
	PlanID      uuid.UUID
	PayerID     *string
	Serial      *string
	Amount      float64
	Date        *time.Time
	Type        constants.InvoiceType
	PDFFilePath string
	Items       []CreateInvoiceItemRequest
}

type CreateInvoiceItemRequest struct {
	Name          string
	Specification *string
	Unit          *string
	Amount        *float64
	Pretax        float64
	Tax           float64
}

type InvoiceRepository interface {
	CreateWithItems(ctx context.Context, req *CreateInvoiceRequest) (*entity.Invoice, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error)
	ListByPlan(ctx context.Context, planID uuid.UUID) ([]*entity.Invoice, error)
	Delete(ctx context.Context, id uuid.UUID) (string, error)
}

type invoiceRepository struct {
	pool   *pgxpool.Pool
	tx     *TxManager
	qb     sq.StatementBuilderType
	logger *slog.Logger
}

func NewInvoiceRepository(pool *pgxpool.Pool, tx *TxManager, logger *slog.Logger) InvoiceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &invoiceRepository{
		pool:   pool,
		tx:     tx,
		qb:     sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger: logger,
	}
}

// CreateWithItems inserts the invoice and all of its items atomically. The
// write happens only after validation succeeded upstream; a failure here
// leaves no partial record behind.
func (r *invoiceRepository) CreateWithItems(ctx context.Context, req *CreateInvoiceRequest) (*entity.Invoice, error) {
	inv := &entity.Invoice{
		PlanID:      req.PlanID,
		PayerID:     req.PayerID,
		Serial:      req.Serial,
		Amount:      req.Amount,
		Date:        req.Date,
		Type:        req.Type,
		PDFFilePath: req.PDFFilePath,
	}

	err := r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		db := extractDB(ctx, r.pool)

		sql, args, err := r.qb.
			Insert(TableInvoices).
			Columns("plan_id", "payer_id", "serial", "amount", "date", "type", "pdf_file_path").
			Values(req.PlanID, req.PayerID, req.Serial, req.Amount, req.Date, string(req.Type), req.PDFFilePath).
			Suffix("RETURNING id, created_at, updated_at").
			ToSql()
		if err != nil {
			return createQueryError(err)
		}

		if err := db.QueryRow(ctx, sql, args...).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return scanRowError(err)
		}

		if len(req.Items) == 0 {
			return nil
		}

		itemsQuery := r.qb.
			Insert(TableInvoiceItems).
			Columns("invoice_id", "name", "specification", "unit", "amount", "pretax", "tax")
		for _, it := range req.Items {
			itemsQuery = itemsQuery.Values(inv.ID, it.Name, it.Specification, it.Unit, it.Amount, it.Pretax, it.Tax)
		}
		sql, args, err = itemsQuery.ToSql()
		if err != nil {
			return createQueryError(err)
		}
		if _, err := db.Exec(ctx, sql, args...); err != nil {
			return executeQueryError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("repository.invoice.created",
		"invoice_id", inv.ID,
		"plan_id", inv.PlanID,
		"type", inv.Type,
		"items", len(req.Items),
	)
	return inv, nil
}

func (r *invoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Select("id", "plan_id", "payer_id", "serial", "amount", "date", "type", "pdf_file_path", "created_at", "updated_at").
		From(TableInvoices).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, createQueryError(err)
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, executeQueryError(err)
	}
	inv, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByNameLax[entity.Invoice])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, collectRowsError(err)
	}

	inv.Items, err = r.itemsByInvoice(ctx, db, inv.ID)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *invoiceRepository) ListByPlan(ctx context.Context, planID uuid.UUID) ([]*entity.Invoice, error) {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Select("id", "plan_id", "payer_id", "serial", "amount", "date", "type", "pdf_file_path", "created_at", "updated_at").
		From(TableInvoices).
		Where(sq.Eq{"plan_id": planID}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, createQueryError(err)
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, executeQueryError(err)
	}
	invoices, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[entity.Invoice])
	if err != nil {
		return nil, collectRowsError(err)
	}

	for _, inv := range invoices {
		inv.Items, err = r.itemsByInvoice(ctx, db, inv.ID)
		if err != nil {
			return nil, err
		}
	}
	return invoices, nil
}

// Delete removes the invoice (items go with it via FK cascade) and returns
// the stored PDF path so the caller can remove the blob as well.
func (r *invoiceRepository) Delete(ctx context.Context, id uuid.UUID) (string, error) {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Delete(TableInvoices).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING pdf_file_path").
		ToSql()
	if err != nil {
		return "", createQueryError(err)
	}

	var pdfPath string
	if err := db.QueryRow(ctx, sql, args...).Scan(&pdfPath); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrInvoiceNotFound
		}
		return "", scanRowError(err)
	}

	r.logger.Info("repository.invoice.deleted", "invoice_id", id)
	return pdfPath, nil
}

func (r *invoiceRepository) itemsByInvoice(ctx context.Context, db DBTX, invoiceID uuid.UUID) ([]*entity.InvoiceItem, error) {
	sql, args, err := r.qb.
		Select("id", "invoice_id", "name", "specification", "unit", "amount", "pretax", "tax").
		From(TableInvoiceItems).
		Where(sq.Eq{"invoice_id": invoiceID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, createQueryError(err)
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, executeQueryError(err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[entity.InvoiceItem])
	if err != nil {
		return nil, collectRowsError(err)
	}
	return items, nil
}
