package usecase

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"healthsync-api/internal/domain/entity"
	"healthsync-api/internal/service"
	"healthsync-api/pkg/jwt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var errStorage = errors.New("storage unavailable")

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

type fakeTxManager struct {
	calls int
}

func (m *fakeTxManager) WithinTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	m.calls++
	return fn(nil)
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

type mockUserRepo struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*entity.User
	createErr error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*entity.User)}
}

func (r *mockUserRepo) add(u *entity.User) *entity.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	r.users[u.ID] = &cp
	return u
}

func (r *mockUserRepo) get(id uuid.UUID) *entity.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

func (r *mockUserRepo) Create(ctx context.Context, db *gorm.DB, user *entity.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	r.add(user)
	return nil
}

func (r *mockUserRepo) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.User, error) {
	return r.get(id), nil
}

func (r *mockUserRepo) find(match func(u *entity.User) bool) *entity.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (r *mockUserRepo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.Email == email }), nil
}

func (r *mockUserRepo) FindByVerificationToken(ctx context.Context, db *gorm.DB, token string) (*entity.User, error) {
	now := time.Now()
	return r.find(func(u *entity.User) bool {
		return u.EmailVerificationToken != nil && *u.EmailVerificationToken == token &&
			u.EmailVerificationExpiresAt != nil && u.EmailVerificationExpiresAt.After(now)
	}), nil
}

func (r *mockUserRepo) FindByResetToken(ctx context.Context, db *gorm.DB, token string) (*entity.User, error) {
	now := time.Now()
	return r.find(func(u *entity.User) bool {
		return u.ResetPasswordToken != nil && *u.ResetPasswordToken == token &&
			u.ResetPasswordExpiresAt != nil && u.ResetPasswordExpiresAt.After(now)
	}), nil
}

func (r *mockUserRepo) Update(ctx context.Context, db *gorm.DB, user *entity.User) error {
	r.add(user)
	return nil
}

// ---------------------------------------------------------------------------
// Availability
// ---------------------------------------------------------------------------

type mockAvailabilityRepo struct {
	mu      sync.Mutex
	windows map[uuid.UUID]*entity.DoctorAvailability
	findErr error
}

func newMockAvailabilityRepo() *mockAvailabilityRepo {
	return &mockAvailabilityRepo{windows: make(map[uuid.UUID]*entity.DoctorAvailability)}
}

func (r *mockAvailabilityRepo) add(a *entity.DoctorAvailability) *entity.DoctorAvailability {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	cp := *a
	r.windows[a.ID] = &cp
	return a
}

func (r *mockAvailabilityRepo) Create(ctx context.Context, db *gorm.DB, a *entity.DoctorAvailability) error {
	r.add(a)
	return nil
}

func (r *mockAvailabilityRepo) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.DoctorAvailability, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.windows[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *mockAvailabilityRepo) filter(match func(a *entity.DoctorAvailability) bool) []entity.DoctorAvailability {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.DoctorAvailability
	for _, a := range r.windows {
		if match(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out
}

func (r *mockAvailabilityRepo) FindActiveByDoctor(ctx context.Context, db *gorm.DB, doctorID uuid.UUID) ([]entity.DoctorAvailability, error) {
	return r.filter(func(a *entity.DoctorAvailability) bool { return a.DoctorID == doctorID && a.IsActive }), nil
}

func (r *mockAvailabilityRepo) FindActiveByDoctorAndDay(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, day entity.Weekday) ([]entity.DoctorAvailability, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.filter(func(a *entity.DoctorAvailability) bool {
		return a.DoctorID == doctorID && a.DayOfWeek == day && a.IsActive
	}), nil
}

func (r *mockAvailabilityRepo) Update(ctx context.Context, db *gorm.DB, a *entity.DoctorAvailability) error {
	r.add(a)
	return nil
}

// ---------------------------------------------------------------------------
// Appointments
// ---------------------------------------------------------------------------

type mockAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*entity.Appointment
	updates      int
	updateErr    error
}

func newMockAppointmentRepo() *mockAppointmentRepo {
	return &mockAppointmentRepo{appointments: make(map[uuid.UUID]*entity.Appointment)}
}

func (r *mockAppointmentRepo) put(a *entity.Appointment) {
	cp := *a
	r.appointments[a.ID] = &cp
}

func (r *mockAppointmentRepo) add(a *entity.Appointment) *entity.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.put(a)
	return a
}

func (r *mockAppointmentRepo) get(id uuid.UUID) *entity.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil
	}
	cp := *a
	return &cp
}

func (r *mockAppointmentRepo) filter(match func(a *entity.Appointment) bool) []entity.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Appointment
	for _, a := range r.appointments {
		if match(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].QueueDate.Equal(out[j].QueueDate) {
			return out[i].QueueDate.Before(out[j].QueueDate)
		}
		return out[i].QueueNumber < out[j].QueueNumber
	})
	return out
}

func firstOf(list []entity.Appointment) *entity.Appointment {
	if len(list) == 0 {
		return nil
	}
	return &list[0]
}

func (r *mockAppointmentRepo) Create(ctx context.Context, db *gorm.DB, a *entity.Appointment) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	r.add(a)
	return nil
}

func (r *mockAppointmentRepo) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	return r.get(id), nil
}

func (r *mockAppointmentRepo) Update(ctx context.Context, db *gorm.DB, a *entity.Appointment) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates++
	r.put(a)
	return nil
}

func sameQueue(a *entity.Appointment, doctorID uuid.UUID, queueDate string) bool {
	return a.DoctorID == doctorID && a.QueueDay() == queueDate
}

func (r *mockAppointmentRepo) FindActiveByDoctorSlot(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, date, slotTime string) (*entity.Appointment, error) {
	return firstOf(r.filter(func(a *entity.Appointment) bool {
		return a.DoctorID == doctorID && a.AppointmentDate.Format(entity.DateLayout) == date && a.SlotTime == slotTime && !a.IsCancelled()
	})), nil
}

func (r *mockAppointmentRepo) FindActiveByPatientAndDate(ctx context.Context, db *gorm.DB, patientID uuid.UUID, date string) ([]entity.Appointment, error) {
	return r.filter(func(a *entity.Appointment) bool {
		return a.PatientID == patientID && a.AppointmentDate.Format(entity.DateLayout) == date && !a.IsCancelled()
	}), nil
}

func (r *mockAppointmentRepo) MaxQueueNumber(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, queueDate string) (int, error) {
	max := 0
	for _, a := range r.filter(func(a *entity.Appointment) bool { return sameQueue(a, doctorID, queueDate) }) {
		if a.QueueNumber > max {
			max = a.QueueNumber
		}
	}
	return max, nil
}

func (r *mockAppointmentRepo) FindEarliestActiveByPatient(ctx context.Context, db *gorm.DB, patientID uuid.UUID) (*entity.Appointment, error) {
	return firstOf(r.filter(func(a *entity.Appointment) bool {
		return a.PatientID == patientID && !a.IsCancelled() && a.QueueNumber > 0
	})), nil
}

func (r *mockAppointmentRepo) CountAhead(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, queueDate string, queueNumber int) (int64, error) {
	return int64(len(r.filter(func(a *entity.Appointment) bool {
		return sameQueue(a, doctorID, queueDate) && a.QueueNumber < queueNumber && !a.IsCancelled()
	}))), nil
}

func (r *mockAppointmentRepo) CountInQueue(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, queueDate string) (int64, error) {
	return int64(len(r.filter(func(a *entity.Appointment) bool {
		return sameQueue(a, doctorID, queueDate) && !a.IsCancelled()
	}))), nil
}

func (r *mockAppointmentRepo) FindInProgress(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, queueDate string) (*entity.Appointment, error) {
	return firstOf(r.filter(func(a *entity.Appointment) bool {
		return sameQueue(a, doctorID, queueDate) && a.QueueStatus == entity.QueueStatusInProgress && !a.IsCancelled()
	})), nil
}

func (r *mockAppointmentRepo) FindActiveByQueueNumber(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, queueDate string, queueNumber int) (*entity.Appointment, error) {
	return firstOf(r.filter(func(a *entity.Appointment) bool {
		return sameQueue(a, doctorID, queueDate) && a.QueueNumber == queueNumber && !a.IsCancelled()
	})), nil
}

func (r *mockAppointmentRepo) FindNextActiveAfter(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, queueDate string, queueNumber int) (*entity.Appointment, error) {
	return firstOf(r.filter(func(a *entity.Appointment) bool {
		return sameQueue(a, doctorID, queueDate) && a.QueueNumber > queueNumber && !a.IsCancelled()
	})), nil
}

func (r *mockAppointmentRepo) FindByPatient(ctx context.Context, db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error) {
	return r.filter(func(a *entity.Appointment) bool { return a.PatientID == patientID }), nil
}

func (r *mockAppointmentRepo) FindByDoctor(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, filter *entity.AppointmentFilter) ([]entity.Appointment, error) {
	return r.filter(func(a *entity.Appointment) bool {
		if a.DoctorID != doctorID {
			return false
		}
		if filter != nil && filter.Date != "" && a.AppointmentDate.Format(entity.DateLayout) != filter.Date {
			return false
		}
		if filter != nil && filter.Status != "" && a.Status != filter.Status {
			return false
		}
		return true
	}), nil
}

func (r *mockAppointmentRepo) Cancel(ctx context.Context, db *gorm.DB, id uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok || a.IsCancelled() || a.IsCompleted() {
		return 0, nil
	}
	a.Status = entity.AppointmentStatusCancelled
	return 1, nil
}

func (r *mockAppointmentRepo) Confirm(ctx context.Context, db *gorm.DB, id uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok || a.IsCancelled() {
		return 0, nil
	}
	a.Confirm()
	return 1, nil
}

// ---------------------------------------------------------------------------
// Transactions and coupons
// ---------------------------------------------------------------------------

type mockTransactionRepo struct {
	mu           sync.Mutex
	transactions map[uuid.UUID]*entity.Transaction
}

func newMockTransactionRepo() *mockTransactionRepo {
	return &mockTransactionRepo{transactions: make(map[uuid.UUID]*entity.Transaction)}
}

func (r *mockTransactionRepo) get(id uuid.UUID) *entity.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transactions[id]
	if !ok {
		return nil
	}
	cp := *t
	return &cp
}

func (r *mockTransactionRepo) Create(ctx context.Context, db *gorm.DB, t *entity.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = uuid.New()
	cp := *t
	r.transactions[t.ID] = &cp
	return nil
}

func (r *mockTransactionRepo) Update(ctx context.Context, db *gorm.DB, t *entity.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.transactions[t.ID] = &cp
	return nil
}

func (r *mockTransactionRepo) FindCreatedByOrderID(ctx context.Context, db *gorm.DB, orderID string) (*entity.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.transactions {
		if t.GatewayOrderID != nil && *t.GatewayOrderID == orderID && t.Status == entity.TransactionStatusCreated {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *mockTransactionRepo) MarkPaid(ctx context.Context, db *gorm.DB, id uuid.UUID, receipt entity.PaymentReceipt) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transactions[id]
	if !ok || t.Status != entity.TransactionStatusCreated {
		return 0, nil
	}
	t.MarkPaid(receipt)
	return 1, nil
}

type mockCouponRepo struct {
	coupons map[string]*entity.Coupon
}

func (r *mockCouponRepo) FindActiveByCode(ctx context.Context, db *gorm.DB, code string) (*entity.Coupon, error) {
	c, ok := r.coupons[strings.ToUpper(code)]
	if !ok || !c.IsActive {
		return nil, nil
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// Audit logs
// ---------------------------------------------------------------------------

type mockAuditLogRepo struct {
	mu   sync.Mutex
	logs []entity.AuditLog
}

func (r *mockAuditLogRepo) Create(ctx context.Context, db *gorm.DB, log *entity.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	log.ID = int64(len(r.logs) + 1)
	r.logs = append(r.logs, *log)
	return nil
}

func (r *mockAuditLogRepo) FindAll(ctx context.Context, db *gorm.DB) ([]entity.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.AuditLog(nil), r.logs...), nil
}

func (r *mockAuditLogRepo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*entity.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.logs {
		if r.logs[i].ID == id {
			cp := r.logs[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *mockAuditLogRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.logs))
	for i, l := range r.logs {
		out[i] = l.Action
	}
	return out
}

// ---------------------------------------------------------------------------
// Services
// ---------------------------------------------------------------------------

// fakeSequencer mirrors the redis script: max(counter, dbMax) + 1.
type fakeSequencer struct {
	mu       sync.Mutex
	counters map[string]int
	err      error
}

func (s *fakeSequencer) NextQueueNumber(ctx context.Context, doctorID uuid.UUID, queueDate time.Time, dbMax int) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counters == nil {
		s.counters = make(map[string]int)
	}
	key := doctorID.String() + ":" + queueDate.Format(entity.DateLayout)
	next := s.counters[key] + 1
	if next <= dbMax {
		next = dbMax + 1
	}
	s.counters[key] = next
	return next, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []service.QueueEvent
	err    error
}

func (n *fakeNotifier) Publish(ctx context.Context, event service.QueueEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, event)
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []service.Mail
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, mail service.Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, mail)
	return nil
}

type fakeGateway struct {
	orders   int
	lastIn   service.CreateOrderInput
	err      error
	validSig string
}

func (g *fakeGateway) CreateOrder(ctx context.Context, input service.CreateOrderInput) (*service.GatewayOrder, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.orders++
	g.lastIn = input
	return &service.GatewayOrder{
		ID:       "order_" + input.Receipt,
		Amount:   input.Amount,
		Currency: input.Currency,
		Receipt:  input.Receipt,
	}, nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return signature == g.validSig
}

func (g *fakeGateway) KeyID() string {
	return "rzp_test_key"
}

type fakeInvoiceGenerator struct {
	generated []service.InvoiceData
}

func (g *fakeInvoiceGenerator) Generate(data service.InvoiceData) ([]byte, error) {
	g.generated = append(g.generated, data)
	return []byte("%PDF-fake"), nil
}

type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[string]bool
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[string]bool)}
}

func tokenStoreKey(tokenType jwt.TokenType, userID uuid.UUID, tokenID string) string {
	return string(tokenType) + ":" + userID.String() + ":" + tokenID
}

func (s *fakeTokenStore) Store(ctx context.Context, tokenType jwt.TokenType, userID uuid.UUID, tokenID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenStoreKey(tokenType, userID, tokenID)] = true
	return nil
}

func (s *fakeTokenStore) Exists(ctx context.Context, tokenType jwt.TokenType, userID uuid.UUID, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[tokenStoreKey(tokenType, userID, tokenID)], nil
}

func (s *fakeTokenStore) Revoke(ctx context.Context, tokenType jwt.TokenType, userID uuid.UUID, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, tokenStoreKey(tokenType, userID, tokenID))
	return nil
}

func (s *fakeTokenStore) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.tokens {
		if strings.Contains(k, userID.String()) {
			delete(s.tokens, k)
		}
	}
	return nil
}

func (s *fakeTokenStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
