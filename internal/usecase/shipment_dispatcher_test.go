package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"taziri/internal/domain/event"
	"taziri/internal/domain/model"
	"taziri/internal/infra/carrier"
	repo "taziri/internal/repository"
)

type dispatcherDeps struct {
	tx      *TxManagerMock
	jobs    *ShipmentJobRepoMock
	orders  *OrderRepoMock
	carrier *CarrierMock
	pub     *PublisherMock
	cache   *CacheMock
}

var dispatchNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newDispatcher(maxAttempts int) (*ShipmentDispatcher, dispatcherDeps) {
	d := dispatcherDeps{
		tx:      new(TxManagerMock),
		jobs:    new(ShipmentJobRepoMock),
		orders:  new(OrderRepoMock),
		carrier: new(CarrierMock),
		pub:     new(PublisherMock),
		cache:   new(CacheMock),
	}
	d.tx.Repos = &TxReposMock{orders: d.orders, shipmentJobs: d.jobs}
	d.tx.On("WithinTx", mock.Anything).Return().Maybe()
	s := NewShipmentDispatcher(DispatcherConfig{MaxAttempts: maxAttempts, Interval: time.Second}, d.tx, d.jobs, d.orders, d.carrier, d.pub, d.cache, discardLogger())
	s.now = func() time.Time { return dispatchNow }
	s.jitter = func(time.Duration) time.Duration { return 0 }
	d.jobs.On("CountByState", mock.Anything, model.ShipmentJobQueued).Return(int64(0), nil).Maybe()
	return s, d
}

func confirmedOrder(id int64) model.Order {
	seller := int64(8)
	return model.Order{
		ID:           id,
		ItemName:     "Robe kabyle",
		Quantity:     2,
		TotalAmount:  dec("3098.50"),
		CustomerName: "Yasmine Ait Haddad",
		PhoneNumber:  "0555123456",
		Wilaya:       "الجزائر",
		WilayaCode:   16,
		Commune:      "Bab Ezzouar",
		DeliveryType: model.DeliveryStopDesk,
		Status:       model.OrderStatusConfirmed,
		SellerID:     &seller,
	}
}

func TestDispatcher_Success(t *testing.T) {
	s, d := newDispatcher(8)
	d.jobs.On("ClaimDue", mock.Anything, dispatchNow, dispatchLease, dispatchBatch).Return([]model.ShipmentJob{{ID: 1, OrderID: 10, Attempts: 1}}, nil)
	d.orders.On("FindByID", mock.Anything, int64(10)).Return(confirmedOrder(10), nil)
	d.carrier.On("Register", mock.Anything, mock.MatchedBy(func(p carrier.Parcel) bool {
		return p.Reference == "TZ-10" && p.IsStopDesk && p.FirstName == "Yasmine" && p.FamilyName == "Ait Haddad" &&
			p.Price == 3099 && p.ToWilayaCode == 16 && p.ProductList == "Robe kabyle x2"
	})).Return(carrier.Registration{Tracking: "YAL-ABC"}, nil)
	d.orders.On("FindByIDForUpdate", mock.Anything, int64(10)).Return(confirmedOrder(10), nil)
	d.orders.On("SetTrackingNumber", mock.Anything, int64(10), "YAL-ABC").Return(nil)
	d.jobs.On("MarkDone", mock.Anything, int64(1), "YAL-ABC").Return(nil)
	d.cache.On("Delete", mock.Anything, int64(10)).Return(nil)
	d.pub.On("Publish", mock.Anything, mock.MatchedBy(func(env event.Envelope) bool {
		p, err := event.Decode[event.ShipmentRegisteredPayload](env)
		return err == nil && env.EventType == event.TypeShipmentRegistered && p.TrackingNumber == "YAL-ABC"
	})).Return(nil)

	n, err := s.DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	d.orders.AssertExpectations(t)
	d.jobs.AssertExpectations(t)
	d.pub.AssertExpectations(t)
}

func TestDispatcher_TransientFailureRetriesWithBackoff(t *testing.T) {
	s, d := newDispatcher(8)
	d.jobs.On("ClaimDue", mock.Anything, dispatchNow, dispatchLease, dispatchBatch).Return([]model.ShipmentJob{{ID: 1, OrderID: 10, Attempts: 3}}, nil)
	d.orders.On("FindByID", mock.Anything, int64(10)).Return(confirmedOrder(10), nil)
	d.carrier.On("Register", mock.Anything, mock.Anything).Return(carrier.Registration{}, errors.New("carrier status 502"))
	//3回目 => 30s * 4
	d.jobs.On("MarkRetry", mock.Anything, int64(1), dispatchNow.Add(2*time.Minute), "carrier status 502").Return(nil)

	_, err := s.DispatchDue(context.Background())
	require.NoError(t, err)
	d.jobs.AssertExpectations(t)
	d.orders.AssertNotCalled(t, "SetTrackingNumber", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatcher_GivesUpAfterMaxAttempts(t *testing.T) {
	s, d := newDispatcher(3)
	d.jobs.On("ClaimDue", mock.Anything, dispatchNow, dispatchLease, dispatchBatch).Return([]model.ShipmentJob{{ID: 1, OrderID: 10, Attempts: 3}}, nil)
	d.orders.On("FindByID", mock.Anything, int64(10)).Return(confirmedOrder(10), nil)
	d.carrier.On("Register", mock.Anything, mock.Anything).Return(carrier.Registration{}, errors.New("timeout"))
	d.jobs.On("MarkFailed", mock.Anything, int64(1), "timeout").Return(nil)

	_, err := s.DispatchDue(context.Background())
	require.NoError(t, err)
	d.jobs.AssertExpectations(t)
	d.jobs.AssertNotCalled(t, "MarkRetry", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// 業務エラーは再送しても直らない
func TestDispatcher_RejectedFailsImmediately(t *testing.T) {
	s, d := newDispatcher(8)
	d.jobs.On("ClaimDue", mock.Anything, dispatchNow, dispatchLease, dispatchBatch).Return([]model.ShipmentJob{{ID: 1, OrderID: 10, Attempts: 1}}, nil)
	d.orders.On("FindByID", mock.Anything, int64(10)).Return(confirmedOrder(10), nil)
	rejected := fmt.Errorf("%w: invalid commune", carrier.ErrRejected)
	d.carrier.On("Register", mock.Anything, mock.Anything).Return(carrier.Registration{}, rejected)
	d.jobs.On("MarkFailed", mock.Anything, int64(1), rejected.Error()).Return(nil)

	_, err := s.DispatchDue(context.Background())
	require.NoError(t, err)
	d.jobs.AssertExpectations(t)
}

// 追跡番号があれば配送会社を呼ばない
func TestDispatcher_AlreadyRegisteredSkipsCarrier(t *testing.T) {
	s, d := newDispatcher(8)
	o := confirmedOrder(10)
	tracking := "YAL-OLD"
	o.TrackingNumber = &tracking
	d.jobs.On("ClaimDue", mock.Anything, dispatchNow, dispatchLease, dispatchBatch).Return([]model.ShipmentJob{{ID: 1, OrderID: 10, Attempts: 2}}, nil)
	d.orders.On("FindByID", mock.Anything, int64(10)).Return(o, nil)
	d.jobs.On("MarkDone", mock.Anything, int64(1), "YAL-OLD").Return(nil)

	_, err := s.DispatchDue(context.Background())
	require.NoError(t, err)
	d.carrier.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestDispatcher_CancelledOrder(t *testing.T) {
	s, d := newDispatcher(8)
	o := confirmedOrder(10)
	o.Status = model.OrderStatusCancelled
	d.jobs.On("ClaimDue", mock.Anything, dispatchNow, dispatchLease, dispatchBatch).Return([]model.ShipmentJob{{ID: 1, OrderID: 10, Attempts: 1}}, nil)
	d.orders.On("FindByID", mock.Anything, int64(10)).Return(o, nil)
	d.jobs.On("CancelQueued", mock.Anything, int64(10)).Return(nil)

	_, err := s.DispatchDue(context.Background())
	require.NoError(t, err)
	d.carrier.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
	d.jobs.AssertExpectations(t)
}

// 登録中に取り消されたら追跡番号も書かず、通知もしない
func TestDispatcher_CancelledDuringRegistration(t *testing.T) {
	s, d := newDispatcher(8)
	d.jobs.On("ClaimDue", mock.Anything, dispatchNow, dispatchLease, dispatchBatch).Return([]model.ShipmentJob{{ID: 1, OrderID: 10, Attempts: 1}}, nil)
	d.orders.On("FindByID", mock.Anything, int64(10)).Return(confirmedOrder(10), nil)
	d.carrier.On("Register", mock.Anything, mock.Anything).Return(carrier.Registration{Tracking: "YAL-LATE"}, nil)
	d.orders.On("FindByIDForUpdate", mock.Anything, int64(10)).Return(confirmedOrder(10), nil)
	//CancelQueued が先に commit されていた
	d.jobs.On("MarkDone", mock.Anything, int64(1), "YAL-LATE").Return(repo.ErrNotFound)

	_, err := s.DispatchDue(context.Background())
	require.NoError(t, err)
	d.orders.AssertNotCalled(t, "SetTrackingNumber", mock.Anything, mock.Anything, mock.Anything)
	d.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	d.cache.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

// ロックを取った時点で cancelled なら完了にしない
func TestDispatcher_OrderCancelledBeforeCompletion(t *testing.T) {
	s, d := newDispatcher(8)
	d.jobs.On("ClaimDue", mock.Anything, dispatchNow, dispatchLease, dispatchBatch).Return([]model.ShipmentJob{{ID: 1, OrderID: 10, Attempts: 1}}, nil)
	d.orders.On("FindByID", mock.Anything, int64(10)).Return(confirmedOrder(10), nil)
	d.carrier.On("Register", mock.Anything, mock.Anything).Return(carrier.Registration{Tracking: "YAL-LATE"}, nil)
	cancelled := confirmedOrder(10)
	cancelled.Status = model.OrderStatusCancelled
	d.orders.On("FindByIDForUpdate", mock.Anything, int64(10)).Return(cancelled, nil)

	_, err := s.DispatchDue(context.Background())
	require.NoError(t, err)
	d.jobs.AssertNotCalled(t, "MarkDone", mock.Anything, mock.Anything, mock.Anything)
	d.orders.AssertNotCalled(t, "SetTrackingNumber", mock.Anything, mock.Anything, mock.Anything)
	d.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

// 追跡番号の保存に失敗したら queued のまま。lease 切れで拾い直す
func TestDispatcher_SaveTrackingFailureLeavesJobQueued(t *testing.T) {
	s, d := newDispatcher(8)
	d.jobs.On("ClaimDue", mock.Anything, dispatchNow, dispatchLease, dispatchBatch).Return([]model.ShipmentJob{{ID: 1, OrderID: 10, Attempts: 1}}, nil)
	d.orders.On("FindByID", mock.Anything, int64(10)).Return(confirmedOrder(10), nil)
	d.carrier.On("Register", mock.Anything, mock.Anything).Return(carrier.Registration{Tracking: "YAL-ABC"}, nil)
	d.orders.On("FindByIDForUpdate", mock.Anything, int64(10)).Return(confirmedOrder(10), nil)
	d.jobs.On("MarkDone", mock.Anything, int64(1), "YAL-ABC").Return(nil)
	d.orders.On("SetTrackingNumber", mock.Anything, int64(10), "YAL-ABC").Return(errors.New("db down"))

	_, err := s.DispatchDue(context.Background())
	require.NoError(t, err)
	d.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	d.jobs.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatcher_Backoff(t *testing.T) {
	s, _ := newDispatcher(8)
	assert.Equal(t, 30*time.Second, s.backoff(1))
	assert.Equal(t, 60*time.Second, s.backoff(2))
	assert.Equal(t, 4*time.Minute, s.backoff(4))
	assert.Equal(t, 30*time.Minute, s.backoff(20))

	//揺らぎは最大25%
	s.jitter = func(d time.Duration) time.Duration { return d / 4 }
	assert.Equal(t, 30*time.Minute+7*time.Minute+30*time.Second, s.backoff(20))
}

func TestDispatcher_RunStopsOnCancel(t *testing.T) {
	s, d := newDispatcher(8)
	d.jobs.On("ClaimDue", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]model.ShipmentJob{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	wake := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		s.Run(ctx, wake)
		close(done)
	}()
	wake <- struct{}{}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestBuildParcel_SingleName(t *testing.T) {
	o := confirmedOrder(3)
	o.CustomerName = "Karim"
	o.DeliveryType = model.DeliveryHome
	p := BuildParcel(o)
	assert.Equal(t, "Karim", p.FirstName)
	assert.Equal(t, "Karim", p.FamilyName)
	assert.False(t, p.IsStopDesk)
	assert.Equal(t, "TZ-3", p.Reference)
}
