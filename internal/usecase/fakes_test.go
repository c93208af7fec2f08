package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"chauffeur-backoffice/internal/data/entity"
	"chauffeur-backoffice/internal/data/repository"
	"chauffeur-backoffice/internal/provider/accounting"
	"chauffeur-backoffice/internal/provider/messaging"
	"chauffeur-backoffice/internal/provider/payments"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// fakeStore backs every in-memory repository with copies, so a test only
// observes what a service actually wrote.
type fakeStore struct {
	mu sync.Mutex

	orgs          map[uuid.UUID]*entity.Organization
	bookings      map[uuid.UUID]*entity.Booking
	drivers       map[uuid.UUID]*entity.Driver
	conversations map[uuid.UUID]*entity.Conversation
	messages      []*entity.Message
	invoices      map[uuid.UUID]*entity.Invoice
	attempts      []*entity.InvoiceAttempt
	payments      map[uuid.UUID]*entity.Payment
	links         map[uuid.UUID]*entity.PaymentLink
	accounts      map[uuid.UUID]*entity.PaymentAccount
	connections   map[uuid.UUID]*entity.AccountingConnection
	states        map[string]*entity.OAuthState

	invoicePersistErr error

	// failing writes: each counter fails that many calls before succeeding
	failBookingUpdates    int
	failConversationSaves int
	// onBookingUpdate runs once under the lock before the next booking
	// update, to stage a concurrent writer
	onBookingUpdate func(stored map[uuid.UUID]*entity.Booking)
	onMessageUpdate func(stored []*entity.Message)
}

var errStoreDown = errors.New("store unavailable")

func newFakeStore() *fakeStore {
	return &fakeStore{
		orgs:          map[uuid.UUID]*entity.Organization{},
		bookings:      map[uuid.UUID]*entity.Booking{},
		drivers:       map[uuid.UUID]*entity.Driver{},
		conversations: map[uuid.UUID]*entity.Conversation{},
		invoices:      map[uuid.UUID]*entity.Invoice{},
		payments:      map[uuid.UUID]*entity.Payment{},
		links:         map[uuid.UUID]*entity.PaymentLink{},
		accounts:      map[uuid.UUID]*entity.PaymentAccount{},
		connections:   map[uuid.UUID]*entity.AccountingConnection{},
		states:        map[string]*entity.OAuthState{},
	}
}

func (s *fakeStore) repository() *repository.Repository {
	return &repository.Repository{
		Organization:         fakeOrganizations{s},
		Booking:              fakeBookings{s},
		Driver:               fakeDrivers{s},
		Conversation:         fakeConversations{s},
		Message:              fakeMessages{s},
		Invoice:              fakeInvoices{s},
		Payment:              fakePayments{s},
		PaymentLink:          fakePaymentLinks{s},
		PaymentAccount:       fakePaymentAccounts{s},
		AccountingConnection: fakeConnections{s},
		OAuthState:           fakeStates{s},
	}
}

func clone[T any](v *T) *T {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

// --- seed and read helpers ---

func (s *fakeStore) putBooking(b *entity.Booking) *entity.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = clone(b)
	return b
}

func (s *fakeStore) booking(id uuid.UUID) *entity.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.bookings[id])
}

func (s *fakeStore) putDriver(d *entity.Driver) *entity.Driver {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drivers[d.ID] = clone(d)
	return d
}

func (s *fakeStore) putConversation(c *entity.Conversation) *entity.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[c.ID] = clone(c)
	return c
}

func (s *fakeStore) conversation(id uuid.UUID) *entity.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.conversations[id])
}

func (s *fakeStore) allMessages() []*entity.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.Message, 0, len(s.messages))
	for _, m := range s.messages {
		out = append(out, clone(m))
	}
	return out
}

func (s *fakeStore) putPayment(p *entity.Payment) *entity.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.ID] = clone(p)
	return p
}

func (s *fakeStore) payment(id uuid.UUID) *entity.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.payments[id])
}

func (s *fakeStore) putAccount(a *entity.PaymentAccount) *entity.PaymentAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.TenantID] = clone(a)
	return a
}

func (s *fakeStore) invoiceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.invoices)
}

// --- organizations ---

type fakeOrganizations struct{ s *fakeStore }

func (f fakeOrganizations) FindByID(_ context.Context, id uuid.UUID) (*entity.Organization, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return clone(f.s.orgs[id]), nil
}

func (f fakeOrganizations) FindByMessagingNumber(_ context.Context, number string) (*entity.Organization, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, org := range f.s.orgs {
		if org.MessagingNumber != nil && *org.MessagingNumber == number {
			return clone(org), nil
		}
	}
	return nil, nil
}

func (f fakeOrganizations) SetPaymentsOnboarded(_ context.Context, id uuid.UUID, onboarded bool, at time.Time) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	org, ok := f.s.orgs[id]
	if !ok {
		return fmt.Errorf("organization %s not found", id)
	}
	org.PaymentsOnboarded = onboarded
	org.UpdatedAt = at
	return nil
}

// --- bookings ---

type fakeBookings struct{ s *fakeStore }

func (f fakeBookings) Create(_ context.Context, b *entity.Booking) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.bookings[b.ID] = clone(b)
	return nil
}

func (f fakeBookings) FindByID(_ context.Context, tenantID, id uuid.UUID) (*entity.Booking, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	b, ok := f.s.bookings[id]
	if !ok || b.TenantID != tenantID {
		return nil, nil
	}
	return clone(b), nil
}

func (f fakeBookings) FindByIDs(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*entity.Booking, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*entity.Booking
	for _, id := range ids {
		if b, ok := f.s.bookings[id]; ok && b.TenantID == tenantID {
			out = append(out, clone(b))
		}
	}
	return out, nil
}

func (f fakeBookings) FindByPaymentSessionID(_ context.Context, sessionID string) (*entity.Booking, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, b := range f.s.bookings {
		if b.PaymentSessionID != nil && *b.PaymentSessionID == sessionID {
			return clone(b), nil
		}
	}
	return nil, nil
}

func (f fakeBookings) filtered(tenantID uuid.UUID, filter repository.BookingFilter) []*entity.Booking {
	var out []*entity.Booking
	for _, b := range f.s.bookings {
		if b.TenantID != tenantID {
			continue
		}
		if filter.Status != nil && b.Status != *filter.Status {
			continue
		}
		out = append(out, clone(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out
}

func (f fakeBookings) FindByTenant(_ context.Context, tenantID uuid.UUID, filter repository.BookingFilter, limit, offset int) ([]*entity.Booking, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	all := f.filtered(tenantID, filter)
	if offset >= len(all) {
		return nil, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func (f fakeBookings) CountByTenant(_ context.Context, tenantID uuid.UUID, filter repository.BookingFilter) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return int64(len(f.filtered(tenantID, filter))), nil
}

// Update mirrors the SQL version check.
func (f fakeBookings) Update(_ context.Context, b *entity.Booking) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if hook := f.s.onBookingUpdate; hook != nil {
		f.s.onBookingUpdate = nil
		hook(f.s.bookings)
	}
	if f.s.failBookingUpdates > 0 {
		f.s.failBookingUpdates--
		return false, errStoreDown
	}
	stored, ok := f.s.bookings[b.ID]
	if !ok || stored.TenantID != b.TenantID || stored.Version != b.Version {
		return false, nil
	}
	next := clone(b)
	next.Version++
	f.s.bookings[b.ID] = next
	b.Version++
	return true, nil
}

// --- drivers ---

type fakeDrivers struct{ s *fakeStore }

func (f fakeDrivers) Create(_ context.Context, d *entity.Driver) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.drivers[d.ID] = clone(d)
	return nil
}

func (f fakeDrivers) FindByID(_ context.Context, tenantID, id uuid.UUID) (*entity.Driver, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	d, ok := f.s.drivers[id]
	if !ok || d.TenantID != tenantID {
		return nil, nil
	}
	return clone(d), nil
}

func (f fakeDrivers) FindByTenant(_ context.Context, tenantID uuid.UUID) ([]*entity.Driver, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*entity.Driver
	for _, d := range f.s.drivers {
		if d.TenantID == tenantID {
			out = append(out, clone(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f fakeDrivers) Update(_ context.Context, d *entity.Driver) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.drivers[d.ID] = clone(d)
	return nil
}

// --- conversations ---

type fakeConversations struct{ s *fakeStore }

func (f fakeConversations) FindByDriver(_ context.Context, tenantID, driverID uuid.UUID, phone string) (*entity.Conversation, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, c := range f.s.conversations {
		if c.TenantID == tenantID && c.DriverID == driverID && c.Phone == phone {
			return clone(c), nil
		}
	}
	return nil, nil
}

func (f fakeConversations) FindLatestByPhone(_ context.Context, tenantID uuid.UUID, phone string) (*entity.Conversation, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var latest *entity.Conversation
	for _, c := range f.s.conversations {
		if c.TenantID != tenantID || c.Phone != phone {
			continue
		}
		if latest == nil || c.LastActivityAt.After(latest.LastActivityAt) {
			latest = c
		}
	}
	return clone(latest), nil
}

func (f fakeConversations) FindByPhone(_ context.Context, phone string) ([]*entity.Conversation, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*entity.Conversation
	for _, c := range f.s.conversations {
		if c.Phone == phone {
			out = append(out, clone(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivityAt.After(out[j].LastActivityAt) })
	return out, nil
}

func (f fakeConversations) FindByBooking(_ context.Context, tenantID, bookingID uuid.UUID) (*entity.Conversation, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, c := range f.s.conversations {
		if c.TenantID == tenantID && c.BoundTo(bookingID) {
			return clone(c), nil
		}
	}
	return nil, nil
}

func (f fakeConversations) Save(_ context.Context, c *entity.Conversation) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.failConversationSaves > 0 {
		f.s.failConversationSaves--
		return errStoreDown
	}
	f.s.conversations[c.ID] = clone(c)
	return nil
}

// --- messages ---

type fakeMessages struct{ s *fakeStore }

func (f fakeMessages) Create(_ context.Context, m *entity.Message) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.messages = append(f.s.messages, clone(m))
	return nil
}

func (f fakeMessages) FindByID(_ context.Context, tenantID, id uuid.UUID) (*entity.Message, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, m := range f.s.messages {
		if m.ID == id && m.TenantID == tenantID {
			return clone(m), nil
		}
	}
	return nil, nil
}

func (f fakeMessages) FindByProviderID(_ context.Context, direction entity.MessageDirection, providerMessageID string) (*entity.Message, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, m := range f.s.messages {
		if m.Direction == direction && m.ProviderMessageID != nil && *m.ProviderMessageID == providerMessageID {
			return clone(m), nil
		}
	}
	return nil, nil
}

func (f fakeMessages) FindByBooking(_ context.Context, tenantID, bookingID uuid.UUID) ([]*entity.Message, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*entity.Message
	for _, m := range f.s.messages {
		if m.TenantID == tenantID && m.BookingID != nil && *m.BookingID == bookingID {
			out = append(out, clone(m))
		}
	}
	return out, nil
}

// UpdateDelivery mirrors the SQL guard on the previous status.
func (f fakeMessages) UpdateDelivery(_ context.Context, m *entity.Message, expected entity.MessageStatus) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if hook := f.s.onMessageUpdate; hook != nil {
		f.s.onMessageUpdate = nil
		hook(f.s.messages)
	}
	for i, stored := range f.s.messages {
		if stored.ID != m.ID {
			continue
		}
		if stored.Status != expected {
			return false, nil
		}
		f.s.messages[i] = clone(m)
		return true, nil
	}
	return false, nil
}

// --- invoices ---

type fakeInvoices struct{ s *fakeStore }

func (f fakeInvoices) CreateWithBookings(_ context.Context, inv *entity.Invoice) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.invoicePersistErr != nil {
		return f.s.invoicePersistErr
	}
	for _, id := range inv.BookingIDs {
		b, ok := f.s.bookings[id]
		if !ok || b.PaymentStatus == entity.BookingPaymentInvoiced {
			return fmt.Errorf("booking %s cannot be invoiced", id)
		}
	}
	for _, id := range inv.BookingIDs {
		f.s.bookings[id].PaymentStatus = entity.BookingPaymentInvoiced
		f.s.bookings[id].Version++
	}
	f.s.invoices[inv.ID] = clone(inv)
	return nil
}

func (f fakeInvoices) CreateAttempt(_ context.Context, a *entity.InvoiceAttempt) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.attempts = append(f.s.attempts, clone(a))
	return nil
}

func (f fakeInvoices) FindByID(_ context.Context, tenantID, id uuid.UUID) (*entity.Invoice, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	inv, ok := f.s.invoices[id]
	if !ok || inv.TenantID != tenantID {
		return nil, nil
	}
	return clone(inv), nil
}

func (f fakeInvoices) FindByTenant(_ context.Context, tenantID uuid.UUID, limit, offset int) ([]*entity.Invoice, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*entity.Invoice
	for _, inv := range f.s.invoices {
		if inv.TenantID == tenantID {
			out = append(out, clone(inv))
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	return out[offset:min(offset+limit, len(out))], nil
}

func (f fakeInvoices) CountByTenant(_ context.Context, tenantID uuid.UUID) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var n int64
	for _, inv := range f.s.invoices {
		if inv.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

func (f fakeInvoices) UpdateSync(_ context.Context, inv *entity.Invoice) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	stored, ok := f.s.invoices[inv.ID]
	if !ok {
		return fmt.Errorf("invoice %s not found", inv.ID)
	}
	stored.Status, stored.AmountPaid, stored.AmountDue, stored.UpdatedAt = inv.Status, inv.AmountPaid, inv.AmountDue, inv.UpdatedAt
	return nil
}

// --- payments ---

type fakePayments struct{ s *fakeStore }

func (f fakePayments) Create(_ context.Context, p *entity.Payment) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.payments[p.ID] = clone(p)
	return nil
}

func (f fakePayments) find(match func(p *entity.Payment) bool) *entity.Payment {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, p := range f.s.payments {
		if match(p) {
			return clone(p)
		}
	}
	return nil
}

func (f fakePayments) FindByCheckoutSessionID(_ context.Context, sessionID string) (*entity.Payment, error) {
	return f.find(func(p *entity.Payment) bool {
		return p.CheckoutSessionID != nil && *p.CheckoutSessionID == sessionID
	}), nil
}

func (f fakePayments) FindByPaymentIntentID(_ context.Context, intentID string) (*entity.Payment, error) {
	return f.find(func(p *entity.Payment) bool {
		return p.PaymentIntentID != nil && *p.PaymentIntentID == intentID
	}), nil
}

func (f fakePayments) FindByBooking(_ context.Context, tenantID, bookingID uuid.UUID) ([]*entity.Payment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*entity.Payment
	for _, p := range f.s.payments {
		if p.TenantID == tenantID && p.BookingID == bookingID {
			out = append(out, clone(p))
		}
	}
	return out, nil
}

func (f fakePayments) Update(_ context.Context, p *entity.Payment, expected entity.PaymentStatus) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	stored, ok := f.s.payments[p.ID]
	if !ok || stored.Status != expected || stored.RefundedAmount > p.RefundedAmount {
		return false, nil
	}
	f.s.payments[p.ID] = clone(p)
	return true, nil
}

// --- payment links ---

type fakePaymentLinks struct{ s *fakeStore }

func (f fakePaymentLinks) Create(_ context.Context, l *entity.PaymentLink) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.links[l.ID] = clone(l)
	return nil
}

func (f fakePaymentLinks) FindByID(_ context.Context, tenantID, id uuid.UUID) (*entity.PaymentLink, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	l, ok := f.s.links[id]
	if !ok || l.TenantID != tenantID {
		return nil, nil
	}
	return clone(l), nil
}

func (f fakePaymentLinks) FindByBooking(_ context.Context, tenantID, bookingID uuid.UUID) ([]*entity.PaymentLink, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*entity.PaymentLink
	for _, l := range f.s.links {
		if l.TenantID == tenantID && l.BookingID == bookingID {
			out = append(out, clone(l))
		}
	}
	return out, nil
}

func (f fakePaymentLinks) Deactivate(_ context.Context, tenantID, id uuid.UUID, at time.Time) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	l, ok := f.s.links[id]
	if !ok || l.TenantID != tenantID {
		return fmt.Errorf("payment link %s not found", id)
	}
	l.Active = false
	l.UpdatedAt = at
	return nil
}

// --- payment accounts ---

type fakePaymentAccounts struct{ s *fakeStore }

func (f fakePaymentAccounts) FindByTenant(_ context.Context, tenantID uuid.UUID) (*entity.PaymentAccount, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return clone(f.s.accounts[tenantID]), nil
}

func (f fakePaymentAccounts) FindByProviderAccountID(_ context.Context, accountID string) (*entity.PaymentAccount, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, a := range f.s.accounts {
		if a.ProviderAccountID == accountID {
			return clone(a), nil
		}
	}
	return nil, nil
}

func (f fakePaymentAccounts) Save(_ context.Context, a *entity.PaymentAccount) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.accounts[a.TenantID] = clone(a)
	return nil
}

// --- accounting connections ---

type fakeConnections struct{ s *fakeStore }

func (f fakeConnections) FindByTenant(_ context.Context, tenantID uuid.UUID) (*entity.AccountingConnection, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return clone(f.s.connections[tenantID]), nil
}

func (f fakeConnections) Save(_ context.Context, c *entity.AccountingConnection) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.connections[c.TenantID] = clone(c)
	return nil
}

func (f fakeConnections) Delete(_ context.Context, tenantID uuid.UUID) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	delete(f.s.connections, tenantID)
	return nil
}

// --- oauth states ---

type fakeStates struct{ s *fakeStore }

func (f fakeStates) Create(_ context.Context, st *entity.OAuthState) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.states[st.Token] = clone(st)
	return nil
}

func (f fakeStates) FindByToken(_ context.Context, token string) (*entity.OAuthState, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return clone(f.s.states[token]), nil
}

func (f fakeStates) Consume(_ context.Context, token string, now time.Time) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	st, ok := f.s.states[token]
	if !ok || st.UsedAt != nil || !now.Before(st.ExpiresAt) {
		return false, nil
	}
	used := now
	st.UsedAt = &used
	return true, nil
}

// --- providers ---

type fakeSender struct {
	mu   sync.Mutex
	sent []messaging.OutboundMessage
	err  error

	// onSend runs before each send, outside the sender's lock
	onSend func()
}

func (f *fakeSender) Send(_ context.Context, msg messaging.OutboundMessage) (*messaging.SendResult, error) {
	if f.onSend != nil {
		f.onSend()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	if f.err != nil {
		return nil, f.err
	}
	return &messaging.SendResult{MessageID: fmt.Sprintf("wamid.%d", len(f.sent))}, nil
}

func (f *fakeSender) last() messaging.OutboundMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

type fakeAccounting struct {
	mu sync.Mutex

	exchanges int
	refreshes int
	revoked   []string
	requests  []accounting.InvoiceRequest

	token      *accounting.Token
	tenants    []accounting.Tenant
	refresh    func(refreshToken string) (*accounting.Token, error)
	createErr  func(n int) error
	remote     *accounting.Invoice
	revokeErr  error
	exchangeFn func(code string) (*accounting.Token, error)
}

func (f *fakeAccounting) AuthCodeURL(state string) string {
	return "https://login.example.test/authorize?state=" + state
}

func (f *fakeAccounting) Exchange(_ context.Context, code string) (*accounting.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges++
	if f.exchangeFn != nil {
		return f.exchangeFn(code)
	}
	return f.token, nil
}

func (f *fakeAccounting) Refresh(_ context.Context, refreshToken string) (*accounting.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.refresh != nil {
		return f.refresh(refreshToken)
	}
	return nil, errors.New("refresh not configured")
}

func (f *fakeAccounting) Revoke(_ context.Context, refreshToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, refreshToken)
	return f.revokeErr
}

func (f *fakeAccounting) Connections(context.Context, string) ([]accounting.Tenant, error) {
	return f.tenants, nil
}

func (f *fakeAccounting) CreateInvoice(_ context.Context, _ accounting.Credentials, req accounting.InvoiceRequest) (*accounting.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	n := len(f.requests)
	if f.createErr != nil {
		if err := f.createErr(n); err != nil {
			return nil, err
		}
	}

	inv := &accounting.Invoice{
		ID:        fmt.Sprintf("inv-%d", n),
		Number:    fmt.Sprintf("INV-%04d", n),
		Status:    "AUTHORISED",
		ContactID: req.ContactID,
		Reference: req.Reference,
		Currency:  req.Currency,
	}
	for _, li := range req.LineItems {
		amount := li.Quantity * li.UnitAmount
		inv.LineItems = append(inv.LineItems, accounting.InvoiceLine{
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitAmount:  li.UnitAmount,
			LineAmount:  amount,
			TaxType:     li.TaxType,
			AccountCode: li.AccountCode,
		})
		inv.Subtotal += amount
	}
	inv.Total = inv.Subtotal
	inv.AmountDue = inv.Total
	return inv, nil
}

func (f *fakeAccounting) GetInvoice(context.Context, accounting.Credentials, string) (*accounting.Invoice, error) {
	if f.remote == nil {
		return nil, errors.New("not found")
	}
	return f.remote, nil
}

func (f *fakeAccounting) OnlineInvoiceURL(_ context.Context, _ accounting.Credentials, id string) (string, error) {
	return "https://in.example.test/" + id, nil
}

type fakeGateway struct {
	mu sync.Mutex

	checkouts   []payments.CheckoutRequest
	checkoutErr error
	onCheckout  func()
	accounts    int
	account     *payments.Account
	links       int
	deactivated []string
}

func (f *fakeGateway) CreateCheckoutSession(_ context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error) {
	if f.onCheckout != nil {
		f.onCheckout()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkouts = append(f.checkouts, req)
	if f.checkoutErr != nil {
		return nil, f.checkoutErr
	}
	id := fmt.Sprintf("cs_test_%d", len(f.checkouts))
	return &payments.CheckoutSession{ID: id, URL: "https://checkout.example.test/" + id, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeGateway) CreateAccount(context.Context, payments.AccountRequest) (*payments.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts++
	return &payments.Account{ID: fmt.Sprintf("acct_%d", f.accounts), CurrentlyDue: []string{"external_account"}}, nil
}

func (f *fakeGateway) GetAccount(_ context.Context, id string) (*payments.Account, error) {
	if f.account == nil {
		return nil, errors.New("no such account")
	}
	acct := *f.account
	acct.ID = id
	return &acct, nil
}

func (f *fakeGateway) CreateOnboardingLink(_ context.Context, id string) (*payments.OnboardingLink, error) {
	return &payments.OnboardingLink{URL: "https://connect.example.test/" + id, ExpiresAt: time.Now().Add(5 * time.Minute)}, nil
}

func (f *fakeGateway) CreatePaymentLink(context.Context, payments.LinkRequest) (*payments.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links++
	id := fmt.Sprintf("plink_%d", f.links)
	return &payments.Link{ID: id, URL: "https://buy.example.test/" + id, Active: true}, nil
}

func (f *fakeGateway) DeactivatePaymentLink(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deactivated = append(f.deactivated, id)
	return nil
}

// --- fixtures ---

var testNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func testTenant() Tenant {
	return Tenant{ID: uuid.New(), UserID: uuid.New(), Role: "dispatcher"}
}

func testLogger() *zap.Logger { return zap.NewNop() }

func newBooking(tenantID uuid.UUID, mutate ...func(b *entity.Booking)) *entity.Booking {
	b := &entity.Booking{
		TenantBase: entity.TenantBase{
			ID:        uuid.New(),
			TenantID:  tenantID,
			CreatedAt: testNow,
			UpdatedAt: testNow,
		},
		Reference:     "BK-20250314-093000-" + uuid.NewString()[:4],
		CustomerName:  "Ada Lovelace",
		CustomerPhone: "+447700900123",
		Pickup:        "Heathrow T5",
		Dropoff:       "The Savoy",
		ScheduledAt:   testNow.Add(48 * time.Hour),
		Price:         5000,
		Currency:      "gbp",
		Status:        entity.BookingStatusPending,
		PaymentStatus: entity.BookingPaymentPending,
	}
	for _, m := range mutate {
		m(b)
	}
	return b
}

func newDriver(tenantID uuid.UUID) *entity.Driver {
	return &entity.Driver{
		TenantBase: entity.TenantBase{
			ID:        uuid.New(),
			TenantID:  tenantID,
			CreatedAt: testNow,
			UpdatedAt: testNow,
		},
		Name:           "Sam Driver",
		Phone:          "+447700900456",
		VehicleMake:    "Mercedes",
		VehicleModel:   "S-Class",
		VehiclePlate:   "LD25 ABC",
		Status:         entity.DriverStatusActive,
		MessagingOptIn: true,
	}
}

func completed(b *entity.Booking) { b.Status = entity.BookingStatusCompleted }
