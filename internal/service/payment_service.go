package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zomasamka-bot/flashpay/internal/clock"
	"github.com/zomasamka-bot/flashpay/internal/core/domain"
	"github.com/zomasamka-bot/flashpay/internal/core/ports"
	"github.com/zomasamka-bot/flashpay/internal/guard"
	"github.com/zomasamka-bot/flashpay/internal/ledger"
	"github.com/zomasamka-bot/flashpay/internal/toggle"
	"github.com/zomasamka-bot/flashpay/internal/trail"
	"github.com/zomasamka-bot/flashpay/pkg/apperror"
	"github.com/zomasamka-bot/flashpay/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	DefaultProviderTimeout = 30 * time.Second
	defaultCacheTTL        = 24 * time.Hour

	opCreatePayment  = "create_payment"
	opExecutePayment = "execute_payment"
)

// CreatePaymentRequest is the input of CreatePayment. ID is only set when the
// caller retries with an identifier the provider already issued.
type CreatePaymentRequest struct {
	ID     string
	Amount decimal.Decimal
	Note   string
}

// Flusher forces pending persistence to run now.
type Flusher interface {
	Flush() bool
}

// PaymentDeps wires a PaymentService. Mirror, Events, Cache and Flusher are
// optional.
type PaymentDeps struct {
	Store    *ledger.Store
	Trail    *trail.Trail
	Chain    *guard.Chain
	Limiter  *guard.RateLimiter
	Wallet   guard.WalletGuard
	Domain   guard.DomainGuard
	Master   guard.MasterGuard
	Toggles  *toggle.Manager
	Provider ports.PaymentProvider
	Locks    ports.CreationLock
	Mirror   ports.BackendMirror
	Events   ports.EventPublisher
	Cache    ports.PaymentCache
	Flusher  Flusher
	Clock    clock.Clock

	ProviderTimeout time.Duration
	CacheTTL        time.Duration
	// Async runs fire-and-forget side effects. Defaults to a new goroutine.
	Async func(func())
}

// PaymentService is the operation orchestrator: it runs guards, talks to
// the provider and keeps the ledger, trail and best-effort mirrors in step.
type PaymentService struct {
	PaymentDeps
	log zerolog.Logger
}

func NewPaymentService(deps PaymentDeps, log zerolog.Logger) *PaymentService {
	if deps.ProviderTimeout <= 0 {
		deps.ProviderTimeout = DefaultProviderTimeout
	}
	if deps.CacheTTL <= 0 {
		deps.CacheTTL = defaultCacheTTL
	}
	if deps.Async == nil {
		deps.Async = func(f func()) { go f() }
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	return &PaymentService{PaymentDeps: deps, log: logger.Component(log, "orchestrator")}
}

// CreatePayment runs the create guard chain, obtains the payment id from
// the provider and records a PENDING payment. Repeating a call with an id
// that is already in the ledger returns the existing record.
func (s *PaymentService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*domain.Payment, error) {
	merchantID := s.Store.MerchantID()

	steps := []guard.Step{
		s.Limiter.Step(opCreatePayment, ""),
		{Name: "amount", Check: func(context.Context) error { return guard.ValidateAmount(req.Amount) }},
		{Name: "note", Check: func(context.Context) error { return guard.ValidateNote(req.Note) }},
	}
	if req.ID != "" {
		steps = append(steps, guard.Step{Name: "id", Check: func(context.Context) error { return guard.ValidateID(req.ID) }})
	}
	steps = append(steps, s.Wallet.Step(), s.Domain.Step(toggle.FeaturePayments), s.Master.Step())
	if err := s.Chain.Run(ctx, domain.OperationCreatePayment, merchantID, steps...); err != nil {
		return nil, err
	}

	if req.ID != "" {
		if existing, ok := s.Store.Get(req.ID); ok {
			s.log.Info().Str("payment_id", req.ID).Msg("create repeated for existing payment")
			return &existing, nil
		}
		lockKey := "create:" + merchantID + ":" + req.ID
		ok, err := s.Locks.Acquire(ctx, lockKey, s.ProviderTimeout)
		if err != nil {
			s.log.Warn().Err(err).Str("key", lockKey).Msg("creation lock unavailable, continuing")
		} else if !ok {
			return nil, s.fail(domain.OperationCreatePayment, apperror.ErrInProgress(), map[string]any{"payment_id": req.ID})
		} else {
			defer s.release(lockKey)
		}
		if existing, ok := s.Store.Get(req.ID); ok {
			return &existing, nil
		}
	}

	id := req.ID
	if id == "" {
		issued, err := s.issue(ctx, domain.PaymentData{MerchantID: merchantID, Amount: req.Amount, Memo: req.Note})
		if err != nil {
			return nil, s.fail(domain.OperationCreatePayment, err, map[string]any{"amount": req.Amount.String()})
		}
		id = issued
	}

	p, created := s.Store.Create(ledger.CreateRequest{ID: id, Amount: req.Amount, Note: req.Note})
	if !created {
		return &p, nil
	}

	entry := s.Trail.RecordAudit(domain.TrailEntry{
		Operation:  domain.OperationCreatePayment,
		MerchantID: merchantID,
		Details:    map[string]any{"payment_id": p.ID, "amount": p.Amount.String()},
	})
	s.cache(ctx, p)
	s.mirrorCreate(p)
	s.publish(domain.EventPaymentCreated, entry.TrackingID, p)

	s.log.Info().
		Str("payment_id", p.ID).
		Str("merchant_id", merchantID).
		Str("amount", p.Amount.String()).
		Str("tracking_id", entry.TrackingID).
		Msg("payment created")
	return &p, nil
}

func (s *PaymentService) issue(ctx context.Context, data domain.PaymentData) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.ProviderTimeout)
	defer cancel()

	id, err := callProvider(ctx, func(ctx context.Context) (string, error) {
		return s.Provider.IssuePayment(ctx, data)
	})
	if err != nil {
		return "", providerError(err)
	}
	if id == "" {
		return "", apperror.ErrProvider(errors.New("provider returned an empty payment id"))
	}
	return id, nil
}

// callProvider runs fn and stops waiting when ctx is done, whether or not fn
// honors ctx. A result that arrives later is dropped.
func callProvider[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func toAppError(err error) *apperror.AppError {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperror.InternalError(err)
}

func providerError(err error) *apperror.AppError {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.ErrProviderTimeout(err)
	}
	return apperror.ErrProvider(err)
}

// ExecutePayment starts the provider payment flow for a stored payment.
// Failures detected before the provider is involved are returned. After
// that exactly one of onSuccess or onError is called, from whatever
// goroutine delivers the provider's terminal event or the timeout.
func (s *PaymentService) ExecutePayment(ctx context.Context, id string, onSuccess func(domain.Payment), onError func(error)) error {
	merchantID := s.Store.MerchantID()

	err := s.Chain.Run(ctx, domain.OperationExecutePayment, merchantID,
		s.Limiter.Step(opExecutePayment, id),
		guard.Step{Name: "id", Check: func(context.Context) error { return guard.ValidateID(id) }},
	)
	if err != nil {
		return err
	}

	p, ok := s.Store.Get(id)
	if !ok {
		return s.fail(domain.OperationExecutePayment, apperror.ErrNotFound("Payment"), map[string]any{"payment_id": id})
	}
	if p.IsTerminal() {
		return s.fail(domain.OperationExecutePayment, apperror.ErrAlreadyPaid(), map[string]any{"payment_id": id})
	}

	if err := s.Chain.Run(ctx, domain.OperationExecutePayment, merchantID, s.Wallet.Step(), s.Master.Step()); err != nil {
		return err
	}

	lockKey := "execute:" + merchantID + ":" + id
	held, err := s.Locks.Acquire(ctx, lockKey, s.ProviderTimeout)
	if err != nil {
		s.log.Warn().Err(err).Str("key", lockKey).Msg("execution lock unavailable, continuing")
		held = true
	}
	if !held {
		return s.fail(domain.OperationExecutePayment, apperror.ErrInProgress(), map[string]any{"payment_id": id})
	}

	run := &execution{
		svc:        s,
		merchantID: merchantID,
		paymentID:  id,
		lockKey:    lockKey,
		onSuccess:  onSuccess,
		onError:    onError,
	}
	run.arm()

	data := domain.PaymentData{
		PaymentID:  p.ID,
		MerchantID: merchantID,
		Amount:     p.Amount,
		Memo:       p.Note,
		Metadata:   map[string]string{"paymentId": p.ID},
	}
	if err := s.Provider.CreatePayment(ctx, data, run.handle); err != nil {
		appErr := s.fail(domain.OperationExecutePayment, providerError(err), map[string]any{"payment_id": id})
		run.finish(nil)
		return appErr
	}

	s.log.Info().Str("payment_id", id).Str("status", string(p.Status)).Msg("payment execution started")
	return nil
}

// execution tracks one in-flight ExecutePayment.
type execution struct {
	svc        *PaymentService
	merchantID string
	paymentID  string
	lockKey    string
	onSuccess  func(domain.Payment)
	onError    func(error)

	mu    sync.Mutex
	timer clock.Timer
	once  sync.Once
}

func (r *execution) arm() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timer = r.svc.Clock.AfterFunc(r.svc.ProviderTimeout, r.timeout)
}

func (r *execution) timeout() {
	err := r.svc.fail(domain.OperationExecutePayment,
		apperror.ErrProviderTimeout(fmt.Errorf("no provider result after %s", r.svc.ProviderTimeout)),
		map[string]any{"payment_id": r.paymentID})
	r.finish(func() {
		if r.onError != nil {
			r.onError(err)
		}
	})
}

// finish releases the execution and runs notify, once. Later calls do
// nothing.
func (r *execution) finish(notify func()) {
	r.once.Do(func() {
		r.mu.Lock()
		if r.timer != nil {
			r.timer.Stop()
		}
		r.mu.Unlock()
		r.svc.release(r.lockKey)
		if notify != nil {
			notify()
		}
	})
}

func (r *execution) succeed(p domain.Payment) {
	r.finish(func() {
		if r.onSuccess != nil {
			r.onSuccess(p)
		}
	})
}

func (r *execution) failWith(err error) {
	r.finish(func() {
		if r.onError != nil {
			r.onError(err)
		}
	})
}

// handle consumes provider events. Ledger writes always happen, even after
// the caller was already notified of a timeout.
func (r *execution) handle(ev domain.ProviderEvent) {
	s := r.svc
	switch ev.Kind {
	case domain.ProviderEventApprovalRequested:
		s.log.Info().Str("payment_id", r.paymentID).Str("provider_payment_id", ev.ProviderPaymentID).Msg("approval requested")
		s.mirrorApprove(r.merchantID, r.paymentID, ev.ProviderPaymentID)

	case domain.ProviderEventCompleted:
		if _, ok := s.Store.Get(r.paymentID); !ok {
			err := s.fail(domain.OperationExecutePayment, apperror.ErrNotFound("Payment"),
				map[string]any{"payment_id": r.paymentID, "event": ev.Kind.String()})
			r.failWith(err)
			return
		}
		updated := s.Store.UpdateStatus(r.paymentID, domain.PaymentStatusPaid, ev.TxID)
		paid, _ := s.Store.Get(r.paymentID)
		if !updated {
			s.log.Warn().Str("payment_id", r.paymentID).Str("status", string(paid.Status)).Msg("completion did not change the payment")
			if paid.Status == domain.PaymentStatusPaid {
				r.succeed(paid)
			} else {
				r.failWith(s.fail(domain.OperationExecutePayment, apperror.ErrInProgress(), map[string]any{"payment_id": r.paymentID}))
			}
			return
		}
		entry := s.auditStatus(paid, ev)
		r.succeed(paid)
		s.mirrorStatus(paid)
		s.publish(domain.EventPaymentStatus, entry.TrackingID, paid)

	case domain.ProviderEventCancelled:
		r.terminal(domain.PaymentStatusCancelled, ev, apperror.ErrPaymentCancelled())

	case domain.ProviderEventFailed:
		cause := ev.Err
		if cause == nil {
			cause = errors.New("provider reported a failure")
		}
		r.terminal(domain.PaymentStatusFailed, ev, apperror.ErrProvider(cause))

	default:
		s.log.Warn().Int("kind", int(ev.Kind)).Str("payment_id", r.paymentID).Msg("unknown provider event ignored")
	}
}

// terminal records an unsuccessful outcome and reports err to the caller.
func (r *execution) terminal(status domain.PaymentStatus, ev domain.ProviderEvent, err *apperror.AppError) {
	s := r.svc
	if _, ok := s.Store.Get(r.paymentID); !ok {
		r.failWith(s.fail(domain.OperationExecutePayment, apperror.ErrNotFound("Payment"),
			map[string]any{"payment_id": r.paymentID, "event": ev.Kind.String()}))
		return
	}
	changed := s.Store.UpdateStatus(r.paymentID, status, "")
	tracked := s.fail(domain.OperationExecutePayment, err, map[string]any{
		"payment_id": r.paymentID,
		"event":      ev.Kind.String(),
	})
	if changed {
		p, _ := s.Store.Get(r.paymentID)
		entry := s.auditStatus(p, ev)
		s.mirrorStatus(p)
		s.publish(domain.EventPaymentStatus, entry.TrackingID, p)
	}
	r.failWith(tracked)
}

func (s *PaymentService) auditStatus(p domain.Payment, ev domain.ProviderEvent) domain.TrailEntry {
	details := map[string]any{
		"payment_id": p.ID,
		"status":     string(p.Status),
		"event":      ev.Kind.String(),
	}
	if ev.TxID != "" {
		details["txid"] = ev.TxID
	}
	return s.Trail.RecordAudit(domain.TrailEntry{
		Operation:  domain.OperationStatusChange,
		MerchantID: p.MerchantID,
		Details:    details,
	})
}

// GetPayment looks a payment up in the ledger, then in the secondary cache,
// then in the backend mirror.
func (s *PaymentService) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	if err := guard.ValidateID(id); err != nil {
		return nil, s.fail(domain.OperationGetPayment, err, map[string]any{"payment_id": id})
	}
	if p, ok := s.Store.Get(id); ok {
		return &p, nil
	}

	merchantID := s.Store.MerchantID()
	if p := s.cached(ctx, merchantID, id); p != nil {
		return p, nil
	}
	if s.Mirror != nil && s.featureOn(toggle.FeatureMirror) {
		p, err := s.Mirror.Fetch(ctx, merchantID, id)
		if err != nil {
			s.log.Warn().Err(err).Str("payment_id", id).Msg("mirror fetch failed")
		} else if p != nil && p.MerchantID == merchantID {
			return p, nil
		}
	}
	return nil, s.fail(domain.OperationGetPayment, apperror.ErrNotFound("Payment"), map[string]any{"payment_id": id})
}

// ListPayments returns the active merchant's payments, newest first.
func (s *PaymentService) ListPayments() []domain.Payment {
	return s.Store.List()
}

// Stats aggregates the active merchant's payments.
func (s *PaymentService) Stats() domain.PaymentStats {
	return s.Store.Stats()
}

// ClearPayments removes the active merchant's payments and their storage
// bucket.
func (s *PaymentService) ClearPayments(_ context.Context) int {
	n := s.Store.ClearPayments()
	if s.Flusher != nil {
		s.Flusher.Flush()
	}
	s.Trail.RecordAudit(domain.TrailEntry{
		Operation:  domain.OperationClearPayments,
		MerchantID: s.Store.MerchantID(),
		Details:    map[string]any{"removed": n},
	})
	return n
}

// fail records err in the error trail and returns it stamped with the
// entry's tracking id.
func (s *PaymentService) fail(op domain.Operation, err error, details map[string]any) *apperror.AppError {
	appErr := toAppError(err)
	if details == nil {
		details = map[string]any{}
	}
	details["code"] = appErr.Code
	details["reason"] = appErr.Message
	if appErr.Err != nil {
		details["cause"] = appErr.Err.Error()
	}
	entry := s.Trail.RecordError(domain.TrailEntry{
		Operation:  op,
		MerchantID: s.Store.MerchantID(),
		Details:    details,
	})
	return appErr.WithTracking(entry.TrackingID)
}

func (s *PaymentService) featureOn(name string) bool {
	return s.Toggles == nil || s.Toggles.Enabled(name)
}

func (s *PaymentService) release(key string) {
	if err := s.Locks.Release(context.Background(), key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("releasing lock failed")
	}
}

func (s *PaymentService) cache(ctx context.Context, p domain.Payment) {
	if s.Cache == nil {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		s.log.Warn().Err(err).Str("payment_id", p.ID).Msg("encoding payment for cache failed")
		return
	}
	if err := s.Cache.Set(ctx, domain.BuildCacheKey(p.MerchantID, p.ID), raw, s.CacheTTL); err != nil {
		s.log.Warn().Err(err).Str("payment_id", p.ID).Msg("failed to cache payment")
	}
}

func (s *PaymentService) cached(ctx context.Context, merchantID, id string) *domain.Payment {
	if s.Cache == nil {
		return nil
	}
	raw, err := s.Cache.Get(ctx, domain.BuildCacheKey(merchantID, id))
	if err != nil {
		s.log.Warn().Err(err).Str("payment_id", id).Msg("payment cache read failed")
		return nil
	}
	if raw == nil {
		return nil
	}
	var p domain.Payment
	if err := json.Unmarshal(raw, &p); err != nil || p.MerchantID != merchantID {
		return nil
	}
	return &p
}

func (s *PaymentService) mirrorCreate(p domain.Payment) {
	if s.Mirror == nil || !s.featureOn(toggle.FeatureMirror) {
		return
	}
	s.Async(func() {
		if err := s.Mirror.Create(context.Background(), p); err != nil {
			s.log.Warn().Err(err).Str("payment_id", p.ID).Msg("mirror create failed")
		}
	})
}

func (s *PaymentService) mirrorStatus(p domain.Payment) {
	if s.Mirror == nil || !s.featureOn(toggle.FeatureMirror) {
		return
	}
	s.Async(func() {
		if err := s.Mirror.UpdateStatus(context.Background(), p); err != nil {
			s.log.Warn().Err(err).Str("payment_id", p.ID).Msg("mirror status update failed")
		}
	})
}

func (s *PaymentService) mirrorApprove(merchantID, paymentID, providerPaymentID string) {
	if s.Mirror == nil || !s.featureOn(toggle.FeatureMirror) {
		return
	}
	s.Async(func() {
		if err := s.Mirror.Approve(context.Background(), merchantID, paymentID, providerPaymentID); err != nil {
			s.log.Warn().Err(err).Str("payment_id", paymentID).Msg("mirror approve failed")
		}
	})
}

func (s *PaymentService) publish(eventType, trackingID string, p domain.Payment) {
	if s.Events == nil || !s.featureOn(toggle.FeatureEvents) {
		return
	}
	ev := domain.PaymentEvent{Type: eventType, TrackingID: trackingID, Payment: p, OccurredAt: s.Clock.Now().UTC()}
	s.Async(func() {
		if err := s.Events.Publish(context.Background(), ev); err != nil {
			s.log.Warn().Err(err).Str("payment_id", p.ID).Str("event", eventType).Msg("publishing payment event failed")
		}
	})
}
