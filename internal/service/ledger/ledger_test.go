package ledger

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/Domenick1991/garagebooking/config"
	"github.com/Domenick1991/garagebooking/internal/domain"
	"github.com/Domenick1991/garagebooking/internal/repository"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var referencePattern = regexp.MustCompile(`^GB-[A-Z0-9]{6}$`)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Insert(ctx context.Context, b *domain.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) UpdatePaymentStatus(ctx context.Context, id int64, from, to domain.PaymentStatus, ref string) (bool, error) {
	args := m.Called(ctx, id, from, to, ref)
	return args.Bool(0), args.Error(1)
}

// memoryRepository enforces the unique reference constraint the way the
// database does.
type memoryRepository struct {
	mu     sync.Mutex
	nextID int64
	byRef  map[string]*domain.Booking
	byID   map[int64]*domain.Booking
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{byRef: map[string]*domain.Booking{}, byID: map[int64]*domain.Booking{}}
}

func (r *memoryRepository) Insert(_ context.Context, b *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byRef[b.Reference]; taken {
		return repository.ErrDuplicateReference
	}
	r.nextID++
	b.ID = r.nextID
	stored := *b
	r.byRef[b.Reference] = &stored
	r.byID[b.ID] = &stored
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *b
	return &out, nil
}

func (r *memoryRepository) GetByReference(_ context.Context, ref string) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byRef[ref]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *b
	return &out, nil
}

func (r *memoryRepository) UpdatePaymentStatus(_ context.Context, id int64, from, to domain.PaymentStatus, ref string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok || b.PaymentStatus != from {
		return false, nil
	}
	b.PaymentStatus = to
	if ref != "" {
		b.PaymentReference = ref
	}
	return true, nil
}

func newLedger(repo repository.BookingRepository) *Ledger {
	logger, _ := test.NewNullLogger()
	return New(repo, config.BookingConfig{ReferencePrefix: "gb", ReferenceAttempts: 3, Currency: "gbp"}, logger)
}

func validInput() domain.NewBooking {
	return domain.NewBooking{
		ServiceType: "mot",
		Date:        "2025-09-01",
		Time:        "09:00",
		Vehicle:     domain.VehicleAttributes{Registration: "AB12CDE", EngineCapacity: 1600, FuelType: domain.FuelPetrol},
		Customer:    domain.NewCustomer{Name: "Jane Smith", Email: "jane@example.com", Phone: "07700900000"},
		Price:       4000,
		Currency:    "gbp",
	}
}

func TestLedger_Create_Success(t *testing.T) {
	repo := &MockBookingRepository{}
	l := newLedger(repo)
	ctx := context.Background()

	repo.On("Insert", ctx, mock.AnythingOfType("*domain.Booking")).Return(nil).Once()

	b, err := l.Create(ctx, validInput())

	require.NoError(t, err)
	assert.Regexp(t, referencePattern, b.Reference)
	assert.Equal(t, domain.PaymentStatusPending, b.PaymentStatus)
	assert.Equal(t, domain.BookingStatusConfirmed, b.BookingStatus)
	assert.Equal(t, domain.Money(4000), b.Price)
	repo.AssertExpectations(t)
}

func TestLedger_Create_ValidationErrors(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*domain.NewBooking)
		field  string
	}{
		{name: "Missing name", mutate: func(in *domain.NewBooking) { in.Customer.Name = "  " }, field: "customer_name"},
		{name: "Missing email", mutate: func(in *domain.NewBooking) { in.Customer.Email = "" }, field: "customer_email"},
		{name: "Malformed email", mutate: func(in *domain.NewBooking) { in.Customer.Email = "jane.example.com" }, field: "customer_email"},
		{name: "Missing service", mutate: func(in *domain.NewBooking) { in.ServiceType = "" }, field: "service_type"},
		{name: "Missing date", mutate: func(in *domain.NewBooking) { in.Date = "" }, field: "date"},
		{name: "Malformed date", mutate: func(in *domain.NewBooking) { in.Date = "01/09/2025" }, field: "date"},
		{name: "Missing time", mutate: func(in *domain.NewBooking) { in.Time = "" }, field: "time"},
		{name: "Malformed time", mutate: func(in *domain.NewBooking) { in.Time = "9am" }, field: "time"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &MockBookingRepository{}
			l := newLedger(repo)
			in := validInput()
			tc.mutate(&in)

			b, err := l.Create(context.Background(), in)

			assert.Nil(t, b)
			assert.ErrorIs(t, err, domain.ErrValidationFailed)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tc.field)
			repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
		})
	}
}

func TestLedger_Create_RetriesOnCollision(t *testing.T) {
	repo := &MockBookingRepository{}
	l := newLedger(repo)
	codes := []string{"AAAAAA", "BBBBBB"}
	l.newCode = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
	ctx := context.Background()

	repo.On("Insert", ctx, mock.MatchedBy(func(b *domain.Booking) bool { return b.Reference == "GB-AAAAAA" })).
		Return(repository.ErrDuplicateReference).Once()
	repo.On("Insert", ctx, mock.MatchedBy(func(b *domain.Booking) bool { return b.Reference == "GB-BBBBBB" })).
		Return(nil).Once()

	b, err := l.Create(ctx, validInput())

	require.NoError(t, err)
	assert.Equal(t, "GB-BBBBBB", b.Reference)
	repo.AssertExpectations(t)
}

func TestLedger_Create_CollisionsExhausted(t *testing.T) {
	repo := &MockBookingRepository{}
	l := newLedger(repo)
	ctx := context.Background()

	repo.On("Insert", ctx, mock.Anything).Return(repository.ErrDuplicateReference).Times(3)

	b, err := l.Create(ctx, validInput())

	assert.Nil(t, b)
	assert.ErrorIs(t, err, domain.ErrPersistenceFailed)
	repo.AssertExpectations(t)
}

func TestLedger_Create_StoreUnavailable(t *testing.T) {
	repo := &MockBookingRepository{}
	l := newLedger(repo)
	ctx := context.Background()

	repo.On("Insert", ctx, mock.Anything).Return(errors.New("dial tcp: connection refused")).Once()

	b, err := l.Create(ctx, validInput())

	assert.Nil(t, b)
	assert.ErrorIs(t, err, domain.ErrPersistenceFailed)
	repo.AssertNumberOfCalls(t, "Insert", 1)
}

func TestLedger_Create_UniqueReferencesUnderConcurrency(t *testing.T) {
	repo := newMemoryRepository()
	l := newLedger(repo)
	ctx := context.Background()

	const workers, perWorker = 8, 250
	refs := make(chan string, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				in := validInput()
				in.Customer.Name = fmt.Sprintf("Customer %d-%d", w, i)
				b, err := l.Create(ctx, in)
				if assert.NoError(t, err) {
					refs <- b.Reference
				}
			}
		}(w)
	}
	wg.Wait()
	close(refs)

	seen := make(map[string]struct{}, workers*perWorker)
	for ref := range refs {
		assert.Regexp(t, referencePattern, ref)
		_, dup := seen[ref]
		assert.False(t, dup, "duplicate reference %s", ref)
		seen[ref] = struct{}{}
	}
	assert.Len(t, seen, workers*perWorker)
}

func TestLedger_Create_ForcedCollisionStillUnique(t *testing.T) {
	repo := newMemoryRepository()
	l := newLedger(repo)
	ctx := context.Background()
	codes := []string{"SAME00", "SAME00", "OTHER1"}
	l.newCode = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}

	first, err := l.Create(ctx, validInput())
	require.NoError(t, err)
	second, err := l.Create(ctx, validInput())
	require.NoError(t, err)

	assert.Equal(t, "GB-SAME00", first.Reference)
	assert.Equal(t, "GB-OTHER1", second.Reference)
}

func TestLedger_UpdatePaymentStatus_PaidIsTerminal(t *testing.T) {
	repo := newMemoryRepository()
	l := newLedger(repo)
	ctx := context.Background()
	b, err := l.Create(ctx, validInput())
	require.NoError(t, err)

	ok, err := l.UpdatePaymentStatus(ctx, b.ID, domain.PaymentStatusPaid, "pi_123")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.UpdatePaymentStatus(ctx, b.ID, domain.PaymentStatusFailed, "pi_456")
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := l.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, "pi_123", stored.PaymentReference)
}

func TestLedger_UpdatePaymentStatus_FailedIsTerminal(t *testing.T) {
	repo := newMemoryRepository()
	l := newLedger(repo)
	ctx := context.Background()
	b, err := l.Create(ctx, validInput())
	require.NoError(t, err)

	ok, err := l.UpdatePaymentStatus(ctx, b.ID, domain.PaymentStatusFailed, "")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.UpdatePaymentStatus(ctx, b.ID, domain.PaymentStatusPaid, "pi_123")
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := l.GetByReference(ctx, b.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, stored.PaymentStatus)
}

func TestLedger_UpdatePaymentStatus_RejectsOtherTargets(t *testing.T) {
	repo := &MockBookingRepository{}
	l := newLedger(repo)

	for _, status := range []domain.PaymentStatus{domain.PaymentStatusPending, domain.PaymentStatusRefunded, "bogus"} {
		ok, err := l.UpdatePaymentStatus(context.Background(), 1, status, "")
		assert.NoError(t, err)
		assert.False(t, ok)
	}
	repo.AssertNotCalled(t, "UpdatePaymentStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLedger_UpdatePaymentStatus_StoreError(t *testing.T) {
	repo := &MockBookingRepository{}
	l := newLedger(repo)
	ctx := context.Background()

	repo.On("UpdatePaymentStatus", ctx, int64(9), domain.PaymentStatusPending, domain.PaymentStatusPaid, "pi_1").
		Return(false, errors.New("timeout")).Once()

	ok, err := l.UpdatePaymentStatus(ctx, 9, domain.PaymentStatusPaid, "pi_1")

	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrPersistenceFailed)
}

func TestLedger_UpdatePaymentStatus_PaymentAlreadyUsed(t *testing.T) {
	repo := &MockBookingRepository{}
	l := newLedger(repo)
	ctx := context.Background()

	repo.On("UpdatePaymentStatus", ctx, int64(10), domain.PaymentStatusPending, domain.PaymentStatusPaid, "pi_50p").
		Return(false, repository.ErrDuplicatePaymentReference).Once()

	ok, err := l.UpdatePaymentStatus(ctx, 10, domain.PaymentStatusPaid, "pi_50p")

	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrPaymentReused)
	assert.NotErrorIs(t, err, domain.ErrPersistenceFailed)
}

func TestRandomCode(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code, err := randomCode()
		require.NoError(t, err)
		assert.Regexp(t, `^[A-Z0-9]{6}$`, code)
	}
}
