package reservation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"petcare/internal/modules/notification"
	"petcare/internal/types"
)

func bookingNow() time.Time {
	return time.Date(2025, 6, 20, 10, 0, 0, 0, taipei)
}

func petHomeCommand() CreateCommand {
	return CreateCommand{
		OwnerID:        "owner",
		CaregiverID:    "carer",
		PetIDs:         []types.ID{"rex", "tom"},
		StartDate:      day(2025, 7, 1),
		EndDate:        day(2025, 7, 3),
		CareLocation:   types.CarePetHome,
		VisitsPerDay:   2,
		OwnerAddressID: ptr(types.ID("home")),
	}
}

func TestCreatePetHome(t *testing.T) {
	ctx := context.Background()
	f := newFixture(bookingNow())

	r, err := f.svc.Create(ctx, petHomeCommand())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Status != StatusPending {
		t.Fatalf("expected PENDING, got %s", r.Status)
	}
	if r.VisitsCount == nil || *r.VisitsCount != 6 {
		t.Fatalf("expected 6 visits, got %v", r.VisitsCount)
	}
	if r.TotalPrice.Amount != 6000 || r.Commission.Amount != 360 || r.TotalOwner.Amount != 6360 || r.TotalCaregiver.Amount != 5640 {
		t.Fatalf("unexpected totals: %+v %+v %+v %+v", r.TotalPrice, r.Commission, r.TotalOwner, r.TotalCaregiver)
	}
	if r.TotalOwner.Amount-r.TotalPrice.Amount != r.Commission.Amount || r.TotalPrice.Amount-r.TotalCaregiver.Amount != r.Commission.Amount {
		t.Fatalf("totals do not balance")
	}
	if r.Address.FullAddress != "No. 1, Taipei" {
		t.Fatalf("expected owner address snapshot, got %q", r.Address.FullAddress)
	}
	if r.DistanceKm == nil || *r.DistanceKm <= 0 {
		t.Fatalf("expected computed distance, got %v", r.DistanceKm)
	}
	if got := f.sender.count(notification.EventRequested); got != 1 {
		t.Fatalf("expected 1 request notification, got %d", got)
	}
	if len(f.audit.entries) != 1 || f.audit.entries[0].EntityID != r.ID {
		t.Fatalf("expected creation audit entry, got %+v", f.audit.entries)
	}
	stored, err := f.svc.Get(ctx, r.ID)
	if err != nil || stored.Status != StatusPending {
		t.Fatalf("stored reservation mismatch: %v %v", stored, err)
	}
}

func TestCreateCaregiverHome(t *testing.T) {
	f := newFixture(bookingNow())
	cmd := petHomeCommand()
	cmd.CareLocation = types.CareCaregiverHome
	cmd.OwnerAddressID = nil
	cmd.VisitsPerDay = 0

	r, err := f.svc.Create(context.Background(), cmd)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.VisitsCount != nil || r.VisitsPerDay != nil {
		t.Fatalf("visits must be absent for caregiver home care")
	}
	if r.TotalPrice.Amount != 6000 {
		t.Fatalf("expected 3 days at 2000, got %d", r.TotalPrice.Amount)
	}
	if r.Address.Name != "Studio" {
		t.Fatalf("expected caregiver address snapshot, got %q", r.Address.Name)
	}
	if r.DistanceKm != nil {
		t.Fatalf("distance without owner address should be absent")
	}
}

func TestCreateWithPayment(t *testing.T) {
	f := newFixture(bookingNow())
	r, err := f.svc.CreateWithPayment(context.Background(), petHomeCommand())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Status != StatusPaymentPending {
		t.Fatalf("expected PAYMENT_PENDING, got %s", r.Status)
	}
	if got := f.sender.count(notification.EventRequested); got != 0 {
		t.Fatalf("caregiver should not be notified before payment, got %d", got)
	}
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateCommand)
		want   error
	}{
		{"self booking", func(c *CreateCommand) { c.CaregiverID = "owner" }, types.ErrValidation},
		{"start today", func(c *CreateCommand) { c.StartDate = day(2025, 6, 20) }, types.ErrValidation},
		{"end before start", func(c *CreateCommand) { c.EndDate = day(2025, 6, 30) }, types.ErrValidation},
		{"no pets", func(c *CreateCommand) { c.PetIDs = nil }, types.ErrValidation},
		{"duplicate pets", func(c *CreateCommand) { c.PetIDs = []types.ID{"rex", "rex"} }, types.ErrValidation},
		{"zero visits", func(c *CreateCommand) { c.VisitsPerDay = 0 }, types.ErrValidation},
		{"missing owner address", func(c *CreateCommand) { c.OwnerAddressID = nil }, types.ErrValidation},
		{"bad care location", func(c *CreateCommand) { c.CareLocation = "moon" }, types.ErrValidation},
		{"negative distance", func(c *CreateCommand) { c.DistanceKm = ptr(-1.0) }, types.ErrValidation},
		{"unsupported pet type", func(c *CreateCommand) { c.PetIDs = []types.ID{"polly"} }, types.ErrValidation},
		{"foreign pet", func(c *CreateCommand) { c.PetIDs = []types.ID{"other"} }, types.ErrForbidden},
		{"unknown pet", func(c *CreateCommand) { c.PetIDs = []types.ID{"ghost"} }, types.ErrNotFound},
		{"unknown caregiver", func(c *CreateCommand) { c.CaregiverID = "ghost" }, types.ErrNotFound},
		{"foreign address", func(c *CreateCommand) { c.OwnerAddressID = ptr(types.ID("studio")) }, types.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(bookingNow())
			cmd := petHomeCommand()
			tt.mutate(&cmd)
			_, err := f.svc.Create(context.Background(), cmd)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if len(f.store.rows) != 0 {
				t.Fatalf("nothing should be stored on failure")
			}
		})
	}
}

func TestAcceptRejectCancel(t *testing.T) {
	ctx := context.Background()
	start, end := day(2025, 7, 1), day(2025, 7, 3)

	t.Run("accept", func(t *testing.T) {
		f := newFixture(bookingNow())
		f.seed("r1", StatusPending, start, end)
		r, err := f.svc.Accept(ctx, "r1", "carer")
		if err != nil {
			t.Fatalf("accept: %v", err)
		}
		if r.Status != StatusConfirmed || f.store.status("r1") != StatusConfirmed {
			t.Fatalf("expected CONFIRMED, got %s", r.Status)
		}
		if f.sender.count(notification.EventAccepted) != 1 {
			t.Fatalf("expected owner notification")
		}
		last := f.audit.entries[len(f.audit.entries)-1]
		if last.Changes[0].Field != "status" || last.Changes[0].OldValue != "PENDING" || last.Changes[0].NewValue != "CONFIRMED" {
			t.Fatalf("unexpected change record: %+v", last.Changes)
		}
		if _, err := f.svc.Reject(ctx, "r1", "carer"); !errors.Is(err, types.ErrInvalidTransition) {
			t.Fatalf("reject after accept: expected invalid transition, got %v", err)
		}
	})

	t.Run("owner cannot accept", func(t *testing.T) {
		f := newFixture(bookingNow())
		f.seed("r1", StatusPending, start, end)
		if _, err := f.svc.Accept(ctx, "r1", "owner"); !errors.Is(err, types.ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})

	t.Run("cancel resolves party", func(t *testing.T) {
		f := newFixture(bookingNow())
		f.seed("r1", StatusConfirmed, start, end)
		f.seed("r2", StatusConfirmed, start, end)
		a, err := f.svc.Cancel(ctx, "r1", "owner")
		if err != nil || a.Status != StatusCancelledOwner {
			t.Fatalf("owner cancel: %v %v", a, err)
		}
		b, err := f.svc.Cancel(ctx, "r2", "carer")
		if err != nil || b.Status != StatusCancelledCaregiver {
			t.Fatalf("caregiver cancel: %v %v", b, err)
		}
		if _, err := f.svc.Cancel(ctx, "r1", "owner"); !errors.Is(err, types.ErrInvalidTransition) {
			t.Fatalf("cancel terminal: expected invalid transition, got %v", err)
		}
	})

	t.Run("stranger cannot cancel", func(t *testing.T) {
		f := newFixture(bookingNow())
		f.seed("r1", StatusPending, start, end)
		if _, err := f.svc.Cancel(ctx, "r1", "nobody"); !errors.Is(err, types.ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})

	t.Run("unknown reservation", func(t *testing.T) {
		f := newFixture(bookingNow())
		if _, err := f.svc.Accept(ctx, "missing", "carer"); !errors.Is(err, types.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

func TestRecordPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(bookingNow())
	f.seed("paid", StatusPaymentPending, day(2025, 7, 1), day(2025, 7, 2))
	f.seed("failed", StatusPaymentPending, day(2025, 7, 1), day(2025, 7, 2))

	r, err := f.svc.RecordPayment(ctx, "paid", true)
	if err != nil || r.Status != StatusWaitingAcceptance {
		t.Fatalf("payment succeeded: %v %v", r, err)
	}
	r, err = f.svc.RecordPayment(ctx, "failed", false)
	if err != nil || r.Status != StatusPaymentRejected {
		t.Fatalf("payment failed: %v %v", r, err)
	}
	if _, err := f.svc.Accept(ctx, "paid", "carer"); err != nil {
		t.Fatalf("accept after payment: %v", err)
	}
}

func TestNotificationFailureKeepsTransition(t *testing.T) {
	f := newFixture(bookingNow())
	f.sender.fail = true
	f.seed("r1", StatusPending, day(2025, 7, 1), day(2025, 7, 2))

	if _, err := f.svc.Accept(context.Background(), "r1", "carer"); err != nil {
		t.Fatalf("accept should succeed despite push failure: %v", err)
	}
	if f.store.status("r1") != StatusConfirmed {
		t.Fatalf("transition must stay committed")
	}
}

func TestConcurrentAcceptVsReject(t *testing.T) {
	for i := 0; i < 50; i++ {
		f := newFixture(bookingNow())
		f.seed("r1", StatusPending, day(2025, 7, 1), day(2025, 7, 2))

		var wg sync.WaitGroup
		errs := make(chan error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.svc.Accept(context.Background(), "r1", "carer")
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := f.svc.Reject(context.Background(), "r1", "carer")
			errs <- err
		}()
		wg.Wait()
		close(errs)

		success := 0
		for err := range errs {
			if err == nil {
				success++
				continue
			}
			if !errors.Is(err, types.ErrConflict) && !errors.Is(err, types.ErrInvalidTransition) {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if success != 1 {
			t.Fatalf("expected exactly one success, got %d", success)
		}
		st := f.store.status("r1")
		if st != StatusConfirmed && st != StatusRejected {
			t.Fatalf("unexpected final status %s", st)
		}
	}
}

func TestGetForAndList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(bookingNow())
	f.seed("r1", StatusPending, day(2025, 7, 1), day(2025, 7, 2))
	f.seed("r2", StatusConfirmed, day(2025, 7, 5), day(2025, 7, 6))

	if _, err := f.svc.GetFor(ctx, "r1", "nobody", false); !errors.Is(err, types.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := f.svc.GetFor(ctx, "r1", "nobody", true); err != nil {
		t.Fatalf("read-any caller: %v", err)
	}

	confirmed := StatusConfirmed
	items, total, err := f.svc.List(ctx, ListFilter{UserID: "carer", Role: ListAsCaregiver, Status: &confirmed})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].ID != "r2" {
		t.Fatalf("unexpected list result: %d %+v", total, items)
	}
	if _, _, err := f.svc.List(ctx, ListFilter{UserID: "carer", Role: "boss"}); !errors.Is(err, types.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
