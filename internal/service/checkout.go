package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/gpio_shop/internal/events"
	"github.com/Skotchmaster/gpio_shop/internal/hardware"
	"github.com/Skotchmaster/gpio_shop/internal/logging"
	"github.com/Skotchmaster/gpio_shop/internal/repo"
)

type CheckoutService struct {
	Repo     repo.ProductRepo
	Hardware hardware.Controller
	Events   events.Publisher
}

type CheckoutResult struct {
	Triggered []string
	Skipped   []string
}

// TriggerError reports the item whose command failed. Commands sent before it
// are listed in Triggered; nothing after it was attempted.
type TriggerError struct {
	ItemID    string
	Triggered []string
	Err       error
}

func (e *TriggerError) Error() string {
	return fmt.Sprintf("trigger %s: %v", e.ItemID, e.Err)
}

func (e *TriggerError) Unwrap() error { return e.Err }

// Checkout sends one hardware command per item, in order, waiting for each
// before the next. Unknown ids are skipped. The first failure stops the run.
// An empty list succeeds without touching the device.
func (s *CheckoutService) Checkout(ctx context.Context, userID string, itemIDs []string) (*CheckoutResult, error) {
	l := logging.FromContext(ctx).With("svc", "checkout", "userID", userID)

	if itemIDs == nil {
		return nil, fmt.Errorf("%w: items required", ErrValidation)
	}

	res := &CheckoutResult{Triggered: []string{}, Skipped: []string{}}
	for _, id := range itemIDs {
		prod, err := s.Repo.GetProduct(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			l.Info("checkout_item_skipped", "productID", id)
			res.Skipped = append(res.Skipped, id)
			continue
		}
		if err != nil {
			return res, s.fail(ctx, userID, id, res, err)
		}

		cmd := hardware.Command{Pin: prod.GPIOPin, Action: prod.GPIOAction}
		if err := s.Hardware.Control(ctx, cmd); err != nil {
			l.Error("checkout_error", "status", 500, "productID", id, "pin", cmd.Pin, "action", cmd.Action, "error", err)
			return res, s.fail(ctx, userID, id, res, err)
		}
		l.Info("gpio_triggered", "productID", id, "pin", cmd.Pin, "action", cmd.Action)
		res.Triggered = append(res.Triggered, id)
	}

	publish(ctx, s.Events, events.TopicCheckout, userID, map[string]any{
		"type":      "checkout_completed",
		"userID":    userID,
		"triggered": res.Triggered,
		"skipped":   res.Skipped,
	})
	return res, nil
}

func (s *CheckoutService) fail(ctx context.Context, userID, itemID string, res *CheckoutResult, err error) error {
	publish(ctx, s.Events, events.TopicCheckout, userID, map[string]any{
		"type":      "checkout_failed",
		"userID":    userID,
		"productID": itemID,
		"triggered": res.Triggered,
		"error":     err.Error(),
	})
	return &TriggerError{ItemID: itemID, Triggered: res.Triggered, Err: err}
}
