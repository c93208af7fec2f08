package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chauffeur-backoffice/internal/data/entity"
	"chauffeur-backoffice/internal/data/repository"
	"chauffeur-backoffice/internal/dto/request"
	"chauffeur-backoffice/internal/dto/response"
	"chauffeur-backoffice/internal/provider/accounting"
	"chauffeur-backoffice/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultInvoiceTerm = 14 * 24 * time.Hour

// retryMessage is shown for provider failures; the full detail is stored
// on the InvoiceAttempt.
const retryMessage = "the accounting system rejected the invoice, please retry"

type InvoiceService interface {
	// CreateInvoiceFromBookings invoices completed, uninvoiced bookings
	// either as one combined invoice or one invoice per booking. Invoices
	// that succeed stay created when a sibling fails.
	CreateInvoiceFromBookings(ctx context.Context, tenant Tenant, req *request.CreateInvoiceRequest) (*response.InvoiceBatchResponse, error)
	ListInvoices(ctx context.Context, tenant Tenant, req *request.PaginatedRequest) (*response.PaginatedResponse[response.InvoiceResponse], error)
	GetInvoice(ctx context.Context, tenant Tenant, id uuid.UUID) (*response.InvoiceResponse, error)
	// SyncInvoice refreshes status and amounts from the provider.
	SyncInvoice(ctx context.Context, tenant Tenant, id uuid.UUID) (*response.InvoiceResponse, error)
}

type invoiceService struct {
	repo        *repository.Repository
	provider    AccountingProvider
	connections AccountingService
	taxType     string
	accountCode string
	log         *zap.Logger
	now         func() time.Time
}

func NewInvoiceService(repo *repository.Repository, provider AccountingProvider, connections AccountingService, config utils.AccountingConfig, log *zap.Logger) InvoiceService {
	return &invoiceService{
		repo:        repo,
		provider:    provider,
		connections: connections,
		taxType:     config.DefaultTaxType,
		accountCode: config.AccountCode,
		log:         log.With(zap.String("service", "invoice")),
		now:         time.Now,
	}
}

type extraItem struct {
	request.ExtraLineItemRequest
	bookingID *uuid.UUID
}

// invoiceGroup is the input of one provider invoice call.
type invoiceGroup struct {
	bookings  []*entity.Booking
	extras    []extraItem
	reference string
}

func (g invoiceGroup) bookingIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(g.bookings))
	for _, b := range g.bookings {
		ids = append(ids, b.ID)
	}
	return ids
}

func (s *invoiceService) CreateInvoiceFromBookings(ctx context.Context, tenant Tenant, req *request.CreateInvoiceRequest) (*response.InvoiceBatchResponse, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create invoice validation failed", zap.Any("errors", errs))
		return nil, validationError(utils.FormatValidationErrors(errs))
	}

	ids, err := parseUniqueIDs(req.BookingIDs)
	if err != nil {
		return nil, err
	}

	bookings, err := s.repo.Booking.FindByIDs(ctx, tenant.ID, ids)
	if err != nil {
		return nil, fmt.Errorf("load bookings for invoicing: %w", err)
	}
	if len(bookings) == 0 {
		return nil, ErrNoValidBookings
	}
	if len(bookings) < len(ids) {
		s.log.Warn("Some bookings were not found for this tenant",
			zap.String("tenant_id", tenant.ID.String()),
			zap.Int("requested", len(ids)),
			zap.Int("found", len(bookings)),
		)
	}

	var incomplete, invoiced int
	for _, b := range bookings {
		if b.Status != entity.BookingStatusCompleted {
			incomplete++
		}
		if b.PaymentStatus == entity.BookingPaymentInvoiced {
			invoiced++
		}
	}
	if incomplete > 0 {
		return nil, &CountError{Err: ErrIncompleteBookings, Count: incomplete}
	}
	if invoiced > 0 {
		return nil, &CountError{Err: ErrAlreadyInvoiced, Count: invoiced}
	}

	currency := bookings[0].Currency
	for _, b := range bookings[1:] {
		if !strings.EqualFold(b.Currency, currency) {
			return nil, validationError("bookings in one batch must share a currency")
		}
	}

	extras, err := s.parseExtras(req.ExtraLineItems, bookings)
	if err != nil {
		return nil, err
	}

	issued := s.now()
	due := issued.Add(defaultInvoiceTerm)
	if req.DueDate != nil {
		if req.DueDate.Before(issued.Truncate(24 * time.Hour)) {
			return nil, validationError("due date cannot be before the issue date")
		}
		due = *req.DueDate
	}

	creds, err := s.connections.Credentials(ctx, tenant)
	if err != nil {
		return nil, err
	}

	groups := buildInvoiceGroups(bookings, extras, req.Combine)

	batch := &response.InvoiceBatchResponse{Success: true}
	for _, group := range groups {
		result := s.createOne(ctx, tenant, creds, req, group, currency, issued, due)
		if !result.Success {
			batch.Success = false
		}
		batch.Results = append(batch.Results, result)
	}

	s.log.Info("Invoicing batch finished",
		zap.String("tenant_id", tenant.ID.String()),
		zap.Int("bookings", len(bookings)),
		zap.Int("invoices", len(groups)),
		zap.Bool("success", batch.Success),
	)

	return batch, nil
}

func parseUniqueIDs(raw []string) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{}, len(raw))
	ids := make([]uuid.UUID, 0, len(raw))
	for _, v := range raw {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, validationError(fmt.Sprintf("invalid booking id %q", v))
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *invoiceService) parseExtras(items []request.ExtraLineItemRequest, bookings []*entity.Booking) ([]extraItem, error) {
	inBatch := make(map[uuid.UUID]struct{}, len(bookings))
	for _, b := range bookings {
		inBatch[b.ID] = struct{}{}
	}

	extras := make([]extraItem, 0, len(items))
	for _, item := range items {
		extra := extraItem{ExtraLineItemRequest: item}
		if item.BookingID != nil {
			id, err := uuid.Parse(*item.BookingID)
			if err != nil {
				return nil, validationError(fmt.Sprintf("invalid extra item booking id %q", *item.BookingID))
			}
			if _, ok := inBatch[id]; !ok {
				return nil, validationError(fmt.Sprintf("extra item %q references a booking outside this batch", item.Description))
			}
			extra.bookingID = &id
		}
		extras = append(extras, extra)
	}
	return extras, nil
}

func buildInvoiceGroups(bookings []*entity.Booking, extras []extraItem, combine bool) []invoiceGroup {
	if combine {
		refs := make([]string, 0, len(bookings))
		for _, b := range bookings {
			refs = append(refs, b.Reference)
		}
		return []invoiceGroup{{
			bookings:  bookings,
			extras:    extras,
			reference: "Combined bookings: " + strings.Join(refs, ", "),
		}}
	}

	groups := make([]invoiceGroup, 0, len(bookings))
	for _, b := range bookings {
		group := invoiceGroup{bookings: []*entity.Booking{b}, reference: b.Reference}
		for _, extra := range extras {
			// An extra with no booking lands on every separate invoice.
			// TODO: confirm with product whether untagged extras should be
			// billed once (first booking) instead of on each invoice.
			if extra.bookingID == nil || *extra.bookingID == b.ID {
				group.extras = append(group.extras, extra)
			}
		}
		groups = append(groups, group)
	}
	return groups
}

func (s *invoiceService) lineItems(group invoiceGroup) ([]accounting.LineItem, []*uuid.UUID) {
	lines := make([]accounting.LineItem, 0, len(group.bookings)+len(group.extras))
	owners := make([]*uuid.UUID, 0, cap(lines))

	for _, b := range group.bookings {
		id := b.ID
		lines = append(lines, accounting.LineItem{
			Description: fmt.Sprintf("%s: %s to %s, %s", b.Reference, b.Pickup, b.Dropoff, b.ScheduledAt.Format("02 Jan 2006 15:04")),
			Quantity:    1,
			UnitAmount:  b.Price,
			TaxType:     s.taxType,
			AccountCode: s.accountCode,
		})
		owners = append(owners, &id)
	}

	for _, extra := range group.extras {
		qty := extra.Quantity
		if qty == 0 {
			qty = 1
		}
		taxType := extra.TaxType
		if taxType == "" {
			taxType = s.taxType
		}
		accountCode := extra.AccountCode
		if accountCode == "" {
			accountCode = s.accountCode
		}
		lines = append(lines, accounting.LineItem{
			Description: extra.Description,
			Quantity:    qty,
			UnitAmount:  extra.UnitAmount,
			TaxType:     taxType,
			AccountCode: accountCode,
		})
		owners = append(owners, extra.bookingID)
	}

	return lines, owners
}

func (s *invoiceService) createOne(
	ctx context.Context,
	tenant Tenant,
	creds accounting.Credentials,
	req *request.CreateInvoiceRequest,
	group invoiceGroup,
	currency string,
	issued, due time.Time,
) response.InvoiceResultResponse {
	bookingIDs := group.bookingIDs()
	result := response.InvoiceResultResponse{BookingIDs: make([]string, 0, len(bookingIDs))}
	for _, id := range bookingIDs {
		result.BookingIDs = append(result.BookingIDs, id.String())
	}

	lines, owners := s.lineItems(group)
	created, err := s.provider.CreateInvoice(ctx, creds, accounting.InvoiceRequest{
		ContactID: req.ContactID,
		Reference: group.reference,
		Currency:  currency,
		Date:      issued,
		DueDate:   due,
		LineItems: lines,
	})
	if err != nil {
		s.log.Warn("Accounting provider rejected invoice",
			zap.Error(err),
			zap.String("tenant_id", tenant.ID.String()),
			zap.String("reference", group.reference),
		)
		s.recordAttempt(ctx, tenant, bookingIDs, group.reference, err.Error())
		result.Error = retryMessage
		return result
	}

	var url *string
	if link, err := s.provider.OnlineInvoiceURL(ctx, creds, created.ID); err != nil {
		s.log.Warn("Failed to fetch online invoice URL", zap.Error(err), zap.String("provider_invoice_id", created.ID))
	} else if link != "" {
		url = &link
	}

	inv := &entity.Invoice{
		TenantBase: entity.TenantBase{
			ID:        uuid.New(),
			TenantID:  tenant.ID,
			CreatedAt: issued,
			UpdatedAt: issued,
		},
		ProviderInvoiceID: created.ID,
		InvoiceNumber:     created.Number,
		ContactID:         req.ContactID,
		ContactName:       req.ContactName,
		Reference:         group.reference,
		Status:            created.Status,
		Currency:          currency,
		Subtotal:          created.Subtotal,
		TotalTax:          created.TotalTax,
		Total:             created.Total,
		AmountDue:         created.AmountDue,
		AmountPaid:        created.AmountPaid,
		IssueDate:         issued,
		DueDate:           due,
		URL:               url,
		BookingIDs:        bookingIDs,
		CreatedBy:         tenant.UserID,
	}
	if inv.ContactName == "" {
		inv.ContactName = created.ContactName
	}

	for i, line := range lines {
		lineAmount := line.Quantity * line.UnitAmount
		if len(created.LineItems) == len(lines) {
			lineAmount = created.LineItems[i].LineAmount
		}
		inv.LineItems = append(inv.LineItems, entity.InvoiceLineItem{
			BaseSimple:  entity.BaseSimple{ID: uuid.New(), CreatedAt: issued},
			InvoiceID:   inv.ID,
			BookingID:   owners[i],
			Position:    i,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitAmount:  line.UnitAmount,
			LineAmount:  lineAmount,
			TaxType:     line.TaxType,
			AccountCode: line.AccountCode,
		})
	}

	if err := s.repo.Invoice.CreateWithBookings(ctx, inv); err != nil {
		s.log.Error("Invoice created at provider but not recorded",
			zap.Error(err),
			zap.String("tenant_id", tenant.ID.String()),
			zap.String("provider_invoice_id", created.ID),
		)
		s.recordAttempt(ctx, tenant, bookingIDs, group.reference,
			fmt.Sprintf("provider invoice %s created but not recorded: %s", created.ID, err.Error()))
		result.Error = fmt.Sprintf("invoice %s was created in the accounting system but could not be recorded", created.Number)
		return result
	}

	resp := response.InvoiceToResponse(inv)
	result.Success = true
	result.Invoice = &resp
	return result
}

func (s *invoiceService) recordAttempt(ctx context.Context, tenant Tenant, bookingIDs []uuid.UUID, reference, detail string) {
	now := s.now()
	attempt := &entity.InvoiceAttempt{
		TenantBase: entity.TenantBase{
			ID:        uuid.New(),
			TenantID:  tenant.ID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingIDs: bookingIDs,
		Reference:  reference,
		Error:      detail,
		CreatedBy:  tenant.UserID,
	}
	if err := s.repo.Invoice.CreateAttempt(ctx, attempt); err != nil {
		s.log.Error("Failed to record invoice attempt", zap.Error(err), zap.String("reference", reference))
	}
}

func (s *invoiceService) ListInvoices(ctx context.Context, tenant Tenant, req *request.PaginatedRequest) (*response.PaginatedResponse[response.InvoiceResponse], error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(utils.FormatValidationErrors(errs))
	}

	invoices, err := s.repo.Invoice.FindByTenant(ctx, tenant.ID, req.Limit(), req.Offset())
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	total, err := s.repo.Invoice.CountByTenant(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("count invoices: %w", err)
	}

	data := make([]response.InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		data = append(data, response.InvoiceToResponse(inv))
	}

	return response.NewPaginatedResponse(data, req.Page, req.Limit(), total), nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, tenant Tenant, id uuid.UUID) (*response.InvoiceResponse, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	inv, err := s.load(ctx, tenant, id)
	if err != nil {
		return nil, err
	}

	resp := response.InvoiceToResponse(inv)
	return &resp, nil
}

func (s *invoiceService) SyncInvoice(ctx context.Context, tenant Tenant, id uuid.UUID) (*response.InvoiceResponse, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	inv, err := s.load(ctx, tenant, id)
	if err != nil {
		return nil, err
	}

	creds, err := s.connections.Credentials(ctx, tenant)
	if err != nil {
		return nil, err
	}

	remote, err := s.provider.GetInvoice(ctx, creds, inv.ProviderInvoiceID)
	if err != nil {
		s.log.Warn("Failed to fetch invoice from provider", zap.Error(err), zap.String("provider_invoice_id", inv.ProviderInvoiceID))
		return nil, providerError("fetch invoice", err)
	}

	inv.Status = remote.Status
	inv.AmountPaid = remote.AmountPaid
	inv.AmountDue = remote.AmountDue
	inv.UpdatedAt = s.now()

	if err := s.repo.Invoice.UpdateSync(ctx, inv); err != nil {
		return nil, fmt.Errorf("sync invoice: %w", err)
	}

	resp := response.InvoiceToResponse(inv)
	return &resp, nil
}

func (s *invoiceService) load(ctx context.Context, tenant Tenant, id uuid.UUID) (*entity.Invoice, error) {
	inv, err := s.repo.Invoice.FindByID(ctx, tenant.ID, id)
	if err != nil {
		return nil, fmt.Errorf("find invoice: %w", err)
	}
	if inv == nil {
		return nil, ErrInvoiceNotFound
	}
	return inv, nil
}
