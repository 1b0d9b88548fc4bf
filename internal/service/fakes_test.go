package service

import (
	"context"
	"errors"
	"merchant-phone-search/internal/client"
	"merchant-phone-search/internal/model"
	"merchant-phone-search/internal/repository"
	"time"
)

// map-backed repository fakes, enough to exercise the service layer without
// a database

type fakeUserRepo struct {
	users map[string]*model.User
	// forced errors
	findErr   error
	updateErr error

	incrementCalls []int
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*model.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) FindByPhone(ctx context.Context, phone string) (*model.User, error) {
	for _, u := range r.users {
		if u.Phone == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) UpdateMembership(ctx context.Context, id string, tier model.MembershipType, expiry time.Time) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.MembershipType = tier
	u.MembershipExpiry = &expiry
	return nil
}

func (r *fakeUserRepo) ResetExportCountIfStale(ctx context.Context, id string, dayStart time.Time) error {
	u, ok := r.users[id]
	if !ok {
		return nil
	}
	if u.DailyExportResetDate.Before(dayStart) {
		u.DailyExportCount = 0
		u.DailyExportResetDate = dayStart
	}
	return nil
}

func (r *fakeUserRepo) IncrementExportCount(ctx context.Context, id string, n int) error {
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.DailyExportCount += n
	r.incrementCalls = append(r.incrementCalls, n)
	return nil
}

type fakeIntentRepo struct {
	intents map[string]*model.PaymentIntent

	findErr     error
	markPaidErr error
}

func newFakeIntentRepo(intents ...*model.PaymentIntent) *fakeIntentRepo {
	r := &fakeIntentRepo{intents: make(map[string]*model.PaymentIntent)}
	for _, in := range intents {
		r.intents[in.OutTradeNo] = in
	}
	return r
}

func (r *fakeIntentRepo) Create(ctx context.Context, intent *model.PaymentIntent) error {
	r.intents[intent.OutTradeNo] = intent
	return nil
}

func (r *fakeIntentRepo) FindByOutTradeNo(ctx context.Context, outTradeNo string) (*model.PaymentIntent, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	in, ok := r.intents[outTradeNo]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *in
	return &cp, nil
}

func (r *fakeIntentRepo) FindByOutTradeNoAndUser(ctx context.Context, outTradeNo, userID string) (*model.PaymentIntent, error) {
	in, ok := r.intents[outTradeNo]
	if !ok || in.UserID != userID {
		return nil, repository.ErrNotFound
	}
	cp := *in
	return &cp, nil
}

func (r *fakeIntentRepo) MarkPaid(ctx context.Context, outTradeNo, transactionID string, paidAt time.Time) (bool, error) {
	if r.markPaidErr != nil {
		return false, r.markPaidErr
	}
	in, ok := r.intents[outTradeNo]
	if !ok || in.Status != model.PaymentPending {
		return false, nil
	}
	in.Status = model.PaymentPaid
	in.TransactionID = transactionID
	in.PaidAt = &paidAt
	return true, nil
}

func (r *fakeIntentRepo) MarkFailed(ctx context.Context, outTradeNo, reason string) (bool, error) {
	in, ok := r.intents[outTradeNo]
	if !ok || in.Status != model.PaymentPending {
		return false, nil
	}
	in.Status = model.PaymentFailed
	in.Error = reason
	return true, nil
}

// fakeAmapClient serves scripted pages and records how often it was called.

type fakeAmapClient struct {
	pages     [][]client.POI
	pageErrs  []error
	calls     int
	districts []client.District
	distErr   error
}

func (c *fakeAmapClient) SearchPOI(ctx context.Context, keywords, city string, page, pageSize int) ([]client.POI, error) {
	c.calls++
	idx := page - 1
	if idx < len(c.pageErrs) && c.pageErrs[idx] != nil {
		return nil, c.pageErrs[idx]
	}
	if idx >= len(c.pages) {
		return nil, nil
	}
	return c.pages[idx], nil
}

func (c *fakeAmapClient) DistrictTree(ctx context.Context) ([]client.District, error) {
	c.calls++
	if c.distErr != nil {
		return nil, c.distErr
	}
	return c.districts, nil
}

// fakeWechatClient controls signature verdicts and unified-order outcomes.

type fakeWechatClient struct {
	signValid bool
	orderErr  error
	codeURL   string
}

func (c *fakeWechatClient) CreateNativeOrder(ctx context.Context, outTradeNo string, amount int64, description, clientIP string) (*client.NativeOrderResult, error) {
	if c.orderErr != nil {
		return nil, c.orderErr
	}
	return &client.NativeOrderResult{CodeURL: c.codeURL, PrepayID: "prepay-1"}, nil
}

func (c *fakeWechatClient) VerifySign(fields map[string]string) bool {
	return c.signValid
}

var errUpstreamDown = errors.New("upstream unavailable")
