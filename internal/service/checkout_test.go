package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/gpio_shop/internal/hardware"
	"github.com/Skotchmaster/gpio_shop/internal/models"
	"github.com/Skotchmaster/gpio_shop/internal/repo"
)

func seedProduct(t *testing.T, svc *CatalogService, name string, pin int, action string) *models.Product {
	t.Helper()

	p, err := svc.CreateProduct(context.Background(), models.ProductPatch{
		Name:       ptr(name),
		GPIOPin:    ptr(pin),
		GPIOAction: ptr(action),
	}, "")
	require.NoError(t, err)
	return p
}

func TestCheckoutService_TriggersInOrderSkippingUnknown(t *testing.T) {
	store := newStore(t)
	catalog := &CatalogService{Repo: store}
	p1 := seedProduct(t, catalog, "Lamp", 17, "on")
	p2 := seedProduct(t, catalog, "Fan", 27, "off")

	ctrl := &fakeController{}
	pub := &recordingPublisher{}
	svc := &CheckoutService{Repo: store, Hardware: ctrl, Events: pub}

	res, err := svc.Checkout(context.Background(), "u1", []string{p1.ID, "unknown", p2.ID})
	require.NoError(t, err)

	assert.Equal(t, []hardware.Command{
		{Pin: 17, Action: "on"},
		{Pin: 27, Action: "off"},
	}, ctrl.Calls())
	assert.Equal(t, []string{p1.ID, p2.ID}, res.Triggered)
	assert.Equal(t, []string{"unknown"}, res.Skipped)
	assert.Equal(t, []string{"checkout_completed"}, pub.types())
}

func TestCheckoutService_DuplicateItemsTriggerTwice(t *testing.T) {
	store := newStore(t)
	p := seedProduct(t, &CatalogService{Repo: store}, "Lamp", 4, "toggle")

	ctrl := &fakeController{}
	svc := &CheckoutService{Repo: store, Hardware: ctrl}

	_, err := svc.Checkout(context.Background(), "u1", []string{p.ID, p.ID})
	require.NoError(t, err)
	assert.Len(t, ctrl.Calls(), 2)
}

func TestCheckoutService_StopsAtFirstFailure(t *testing.T) {
	store := newStore(t)
	catalog := &CatalogService{Repo: store}
	p1 := seedProduct(t, catalog, "Lamp", 17, "on")
	p2 := seedProduct(t, catalog, "Fan", 27, "off")

	devErr := errors.New("device unreachable")
	ctrl := &fakeController{failOn: map[int]error{17: devErr}}
	pub := &recordingPublisher{}
	svc := &CheckoutService{Repo: store, Hardware: ctrl, Events: pub}

	_, err := svc.Checkout(context.Background(), "u1", []string{p1.ID, p2.ID})
	require.Error(t, err)
	assert.ErrorIs(t, err, devErr)

	var te *TriggerError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, p1.ID, te.ItemID)
	assert.Empty(t, te.Triggered)

	assert.Equal(t, []hardware.Command{{Pin: 17, Action: "on"}}, ctrl.Calls())
	assert.Equal(t, []string{"checkout_failed"}, pub.types())
}

func TestCheckoutService_EarlierCommandsAreNotRolledBack(t *testing.T) {
	store := newStore(t)
	catalog := &CatalogService{Repo: store}
	p1 := seedProduct(t, catalog, "Lamp", 17, "on")
	p2 := seedProduct(t, catalog, "Fan", 27, "off")
	p3 := seedProduct(t, catalog, "Pump", 22, "on")

	ctrl := &fakeController{failOn: map[int]error{27: errors.New("boom")}}
	svc := &CheckoutService{Repo: store, Hardware: ctrl}

	_, err := svc.Checkout(context.Background(), "u1", []string{p1.ID, p2.ID, p3.ID})

	var te *TriggerError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, p2.ID, te.ItemID)
	assert.Equal(t, []string{p1.ID}, te.Triggered)
	assert.Len(t, ctrl.Calls(), 2)
}

func TestCheckoutService_RequiresItems(t *testing.T) {
	ctrl := &fakeController{}
	svc := &CheckoutService{Repo: newStore(t), Hardware: ctrl}

	_, err := svc.Checkout(context.Background(), "u1", nil)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, ctrl.Calls())
}

func TestCheckoutService_AllUnknownSucceeds(t *testing.T) {
	ctrl := &fakeController{}
	svc := &CheckoutService{Repo: newStore(t), Hardware: ctrl}

	res, err := svc.Checkout(context.Background(), "u1", []string{"a", "b"})
	require.NoError(t, err)
	assert.Empty(t, res.Triggered)
	assert.Equal(t, []string{"a", "b"}, res.Skipped)
	assert.Empty(t, ctrl.Calls())
}

func TestCheckoutService_EmptyItemsSucceed(t *testing.T) {
	ctrl := &fakeController{}
	svc := &CheckoutService{Repo: newStore(t), Hardware: ctrl}

	res, err := svc.Checkout(context.Background(), "u1", []string{})
	require.NoError(t, err)
	assert.Empty(t, res.Triggered)
	assert.Empty(t, ctrl.Calls())
}

// flakyRepo serves products from an inner store but fails lookups of one id.
type flakyRepo struct {
	repo.ProductRepo
	failID string
	err    error
}

func (f *flakyRepo) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if id == f.failID {
		return nil, f.err
	}
	return f.ProductRepo.GetProduct(ctx, id)
}

func TestCheckoutService_LookupFailureStopsTheRun(t *testing.T) {
	store := newStore(t)
	catalog := &CatalogService{Repo: store}
	p1 := seedProduct(t, catalog, "Lamp", 17, "on")
	p2 := seedProduct(t, catalog, "Fan", 27, "off")
	p3 := seedProduct(t, catalog, "Pump", 22, "on")

	dbErr := errors.New("connection reset")
	ctrl := &fakeController{}
	pub := &recordingPublisher{}
	svc := &CheckoutService{
		Repo:     &flakyRepo{ProductRepo: store, failID: p2.ID, err: dbErr},
		Hardware: ctrl,
		Events:   pub,
	}

	_, err := svc.Checkout(context.Background(), "u1", []string{p1.ID, p2.ID, p3.ID})
	require.ErrorIs(t, err, dbErr)

	var te *TriggerError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, p2.ID, te.ItemID)
	assert.Equal(t, []string{p1.ID}, te.Triggered)

	assert.Equal(t, []hardware.Command{{Pin: 17, Action: "on"}}, ctrl.Calls())
	assert.Equal(t, []string{"checkout_failed"}, pub.types())
}
