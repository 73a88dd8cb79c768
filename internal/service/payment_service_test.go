package service_test

import (
	"context"
	"testing"

	"github.com/averbusem/unbroken-vpn-bot/internal/domain"
	"github.com/averbusem/unbroken-vpn-bot/internal/domain/model"
	"github.com/averbusem/unbroken-vpn-bot/internal/service"
)

func newTestPaymentService(t *testing.T) (*service.PaymentService, *service.SubscriptionService) {
	t.Helper()
	subs := newFakeSubRepo()
	users := newFakeUserRepo()
	payments := newFakePaymentRepo()
	vpn := &fakeVPN{}
	sink := &fakeSink{}
	sched := newFakeScheduler()

	month, err := model.NewTariff("month", 30, 9.99)
	if err != nil {
		t.Fatal(err)
	}
	month.ID = "month"
	tariffs := newFakeTariffRepo(month)

	subSvc := service.NewSubscriptionService(subs, tariffs, users, vpn, sink, sched, fakeTxManager{}, nopLogger())
	paySvc := service.NewPaymentService(payments, tariffs, subSvc, fakeTxManager{}, nopLogger())
	return paySvc, subSvc
}

func TestPaymentService_CreateInvoiceThenProcessSuccess_Created(t *testing.T) {
	paySvc, _ := newTestPaymentService(t)

	inv, err := paySvc.CreateInvoice(context.Background(), 9001, "month")
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if inv.Amount != 9.99 || inv.DurationDays != 30 {
		t.Fatalf("unexpected invoice: %+v", inv)
	}

	result, err := paySvc.ProcessSuccess(context.Background(), inv.PaymentID, "ext-1", "prov-1")
	if err != nil {
		t.Fatalf("ProcessSuccess: %v", err)
	}
	if result.Action != "created" {
		t.Fatalf("expected action=created for a first-time buyer, got %q", result.Action)
	}
	if result.VPNKey == "" {
		t.Fatal("expected a vpn key in the result")
	}
}

func TestPaymentService_ProcessSuccess_ExtendsExistingSubscription(t *testing.T) {
	paySvc, subSvc := newTestPaymentService(t)

	if _, _, err := subSvc.CreateOrExtend(context.Background(), 9002, "month"); err != nil {
		t.Fatal(err)
	}

	inv, err := paySvc.CreateInvoice(context.Background(), 9002, "month")
	if err != nil {
		t.Fatal(err)
	}
	result, err := paySvc.ProcessSuccess(context.Background(), inv.PaymentID, "ext-2", "prov-2")
	if err != nil {
		t.Fatal(err)
	}
	if result.Action != "extended" {
		t.Fatalf("expected action=extended, got %q", result.Action)
	}
}

func TestPaymentService_ProcessSuccess_RejectsDoubleDelivery(t *testing.T) {
	paySvc, _ := newTestPaymentService(t)

	inv, err := paySvc.CreateInvoice(context.Background(), 9003, "month")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := paySvc.ProcessSuccess(context.Background(), inv.PaymentID, "ext-3", "prov-3"); err != nil {
		t.Fatal(err)
	}
	if _, err := paySvc.ProcessSuccess(context.Background(), inv.PaymentID, "ext-3", "prov-3"); err != domain.ErrPaymentAlreadyProcessed {
		t.Fatalf("expected ErrPaymentAlreadyProcessed, got %v", err)
	}
}
