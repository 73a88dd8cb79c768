package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/averbusem/unbroken-vpn-bot/internal/domain"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/model"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/ports/adapter"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/ports/repository"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// fakeTxManager runs fn directly against the same in-memory fakes — no real
// isolation, but enough to exercise the service logic's read-modify-write
// ordering without a database.
type fakeTxManager struct{}

func (fakeTxManager) WithTx(ctx context.Context, fn func(context.Context, repository.Tx) error) error {
	return fn(ctx, nil)
}

func (fakeTxManager) WithUserTx(ctx context.Context, _ int64, fn func(context.Context, repository.Tx) error) error {
	return fn(ctx, nil)
}

type fakeUserRepo struct {
	mu    sync.Mutex
	byID  map[int64]*model.User
	byRef map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[int64]*model.User{}, byRef: map[string]*model.User{}}
}

func (f *fakeUserRepo) Save(_ context.Context, _ repository.Tx, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.byID[u.ID] = &cp
	f.byRef[u.ReferralCode] = &cp
	return nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, _ repository.Tx, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) FindByReferralCode(_ context.Context, _ repository.Tx, code string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byRef[code]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

type fakeSubRepo struct {
	mu     sync.Mutex
	byID   map[string]*model.Subscription
	byUser map[int64]string
}

func newFakeSubRepo() *fakeSubRepo {
	return &fakeSubRepo{byID: map[string]*model.Subscription{}, byUser: map[int64]string{}}
}

func (f *fakeSubRepo) Save(_ context.Context, _ repository.Tx, s *model.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.byID[s.ID] = &cp
	f.byUser[s.UserID] = s.ID
	return nil
}

func (f *fakeSubRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrSubscriptionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSubRepo) FindByUserID(_ context.Context, _ repository.Tx, userID int64) (*model.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byUser[userID]
	if !ok {
		return nil, domain.ErrSubscriptionNotFound
	}
	cp := *f.byID[id]
	return &cp, nil
}

func (f *fakeSubRepo) Update(_ context.Context, _ repository.Tx, id string, upd model.SubscriptionUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return domain.ErrSubscriptionNotFound
	}
	if upd.VPNKey != nil {
		s.VPNKey = *upd.VPNKey
	}
	if upd.VPNKeyID != nil {
		s.VPNKeyID = *upd.VPNKeyID
	}
	if upd.EndDate != nil {
		s.EndDate = *upd.EndDate
	}
	if upd.IsActive != nil {
		s.IsActive = *upd.IsActive
	}
	if upd.CntPayments != nil {
		s.CntPayments = *upd.CntPayments
	}
	return nil
}

type fakeTariffRepo struct {
	byID   map[string]*model.Tariff
	byName map[string]*model.Tariff
}

func newFakeTariffRepo(tariffs ...*model.Tariff) *fakeTariffRepo {
	r := &fakeTariffRepo{byID: map[string]*model.Tariff{}, byName: map[string]*model.Tariff{}}
	for _, t := range tariffs {
		r.byID[t.ID] = t
		r.byName[t.Name] = t
	}
	return r
}

func (f *fakeTariffRepo) Save(_ context.Context, _ repository.Tx, t *model.Tariff) error {
	f.byID[t.ID] = t
	f.byName[t.Name] = t
	return nil
}

func (f *fakeTariffRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Tariff, error) {
	t, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrTariffNotFound
	}
	return t, nil
}

func (f *fakeTariffRepo) FindByName(_ context.Context, _ repository.Tx, name string) (*model.Tariff, error) {
	t, ok := f.byName[name]
	if !ok {
		return nil, domain.ErrTariffNotFound
	}
	return t, nil
}

func (f *fakeTariffRepo) ListActive(_ context.Context, _ repository.Tx) ([]*model.Tariff, error) {
	var out []*model.Tariff
	for _, t := range f.byID {
		if t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeReferralRepo struct {
	mu         sync.Mutex
	byReferred map[int64]*model.Referral
	byReferrer map[int64][]*model.Referral
}

func newFakeReferralRepo() *fakeReferralRepo {
	return &fakeReferralRepo{byReferred: map[int64]*model.Referral{}, byReferrer: map[int64][]*model.Referral{}}
}

func (f *fakeReferralRepo) Create(_ context.Context, _ repository.Tx, r *model.Referral) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byReferred[r.ReferredID]; ok {
		return domain.ErrReferralAlreadyExist
	}
	f.byReferred[r.ReferredID] = r
	f.byReferrer[r.ReferrerID] = append(f.byReferrer[r.ReferrerID], r)
	return nil
}

func (f *fakeReferralRepo) FindByReferredID(_ context.Context, _ repository.Tx, referredID int64) (*model.Referral, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byReferred[referredID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

func (f *fakeReferralRepo) ListByReferrerID(_ context.Context, _ repository.Tx, referrerID int64) ([]*model.Referral, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byReferrer[referrerID], nil
}

type fakePaymentRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{byID: map[string]*model.Payment{}}
}

func (f *fakePaymentRepo) Save(_ context.Context, _ repository.Tx, p *model.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.byID[p.ID] = &cp
	return nil
}

func (f *fakePaymentRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePaymentRepo) MarkSuccess(_ context.Context, _ repository.Tx, id, extID, provID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	if p.Status != model.PaymentStatusPending {
		return domain.ErrPaymentAlreadyProcessed
	}
	p.Status = model.PaymentStatusSuccess
	p.ExternalChargeID = &extID
	p.ProviderChargeID = &provID
	p.CompletedAt = &at
	return nil
}

type fakeVPN struct {
	mu        sync.Mutex
	nextID    int
	created   []string
	deleted   []string
	createErr error
	deleteErr error
}

func (f *fakeVPN) CreateKey(_ context.Context, name string) (*adapter.VPNKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	f.created = append(f.created, name)
	id := name + "-key"
	return &adapter.VPNKey{ID: id, AccessURL: "ss://" + id}, nil
}

func (f *fakeVPN) DeleteKey(_ context.Context, keyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, keyID)
	return nil
}

type fakeSink struct {
	mu   sync.Mutex
	sent []int64
	err  error
}

func (f *fakeSink) Send(_ context.Context, userID int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, userID)
	return nil
}

type fakeScheduler struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{jobs: map[string]*model.Job{}}
}

func (f *fakeScheduler) Add(_ context.Context, j *model.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[j.ID]; ok {
		return domain.ErrAlreadyExists
	}
	f.jobs[j.ID] = j
	return nil
}

func (f *fakeScheduler) Replace(_ context.Context, j *model.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[j.ID] = j
	return nil
}

func (f *fakeScheduler) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.jobs, id)
	return nil
}

func (f *fakeScheduler) get(id string) (*model.Job, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	return j, ok
}
