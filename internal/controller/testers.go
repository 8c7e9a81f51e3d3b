package controller

import (
	"context"

	"github.com/Nazarious-ucu/weather-push-notifier/internal/models"
)

type testSender interface {
	SendTest(ctx context.Context, pushToken string) (models.PushReceipt, error)
}

// NotifierTester runs the test dispatch in-process.
type NotifierTester struct {
	sender testSender
}

func NewNotifierTester(sender testSender) *NotifierTester {
	return &NotifierTester{sender: sender}
}

func (t *NotifierTester) Test(ctx context.Context, pushToken string) error {
	_, err := t.sender.SendTest(ctx, pushToken)
	return err
}
