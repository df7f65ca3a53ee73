package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newBookingFixture(seed ...Booking) (*BookingService, *bookingRepoStub) {
	repo := newBookingRepoStub(seed...)
	clock := newFixedClock(10_000)
	return NewBookingService(repo, newLocationRepoStub("L1"), clock.Now, time.UTC), repo
}

func TestBookingService_Create(t *testing.T) {
	t.Run("rejects a start in the past regardless of end", func(t *testing.T) {
		svc, repo := newBookingFixture()
		_, err := svc.Create(context.Background(), CreateBookingParams{
			Session: member("u1"),
			Input:   BookingInput{Start: time.Unix(10_000-3600, 0), End: unixPtr(20_000)},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["startTime"]; !ok {
			t.Fatalf("expected startTime error, got %v", vErr.FieldErrors)
		}
		if len(repo.bookings) != 0 {
			t.Fatalf("expected nothing to be stored")
		}
	})

	t.Run("admins must provide an end time", func(t *testing.T) {
		svc, _ := newBookingFixture()
		_, err := svc.Create(context.Background(), CreateBookingParams{
			Session: adminUser("boss"),
			Input:   BookingInput{Start: time.Unix(20_000, 0)},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["endTime"]; !ok {
			t.Fatalf("expected endTime error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("members may leave the end open", func(t *testing.T) {
		svc, _ := newBookingFixture()
		booking, err := svc.Create(context.Background(), CreateBookingParams{
			Session: member("u1"),
			Input:   BookingInput{Start: time.Unix(20_000, 0), LocationID: strPtr("L1")},
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if booking.UserID != "u1" || booking.End != nil || booking.Location == nil || *booking.Location != "L1" {
			t.Fatalf("unexpected booking %+v", booking)
		}
	})

	t.Run("rejects reversed intervals", func(t *testing.T) {
		svc, _ := newBookingFixture()
		_, err := svc.Create(context.Background(), CreateBookingParams{
			Session: member("u1"),
			Input:   BookingInput{Start: time.Unix(20_000, 0), End: unixPtr(15_000)},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("members cannot book for others", func(t *testing.T) {
		svc, _ := newBookingFixture()
		_, err := svc.Create(context.Background(), CreateBookingParams{
			Session: member("u1"),
			Input:   BookingInput{UserID: "u2", Start: time.Unix(20_000, 0)},
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("unknown location", func(t *testing.T) {
		svc, _ := newBookingFixture()
		_, err := svc.Create(context.Background(), CreateBookingParams{
			Session: member("u1"),
			Input:   BookingInput{Start: time.Unix(20_000, 0), LocationID: strPtr("nowhere")},
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestBookingService_EditAndDelete(t *testing.T) {
	seed := Booking{UserID: "u1", Start: time.Unix(20_000, 0), Location: strPtr("L1")}

	t.Run("non owners are rejected", func(t *testing.T) {
		svc, repo := newBookingFixture(seed)
		_, err := svc.Edit(context.Background(), EditBookingParams{
			Session:   member("u2"),
			BookingID: 1,
			Input:     BookingInput{Start: time.Unix(30_000, 0)},
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if err := svc.Delete(context.Background(), member("u2"), 1); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if got := repo.bookings[1]; !got.Start.Equal(seed.Start) {
			t.Fatalf("expected the booking to be unchanged, got %+v", got)
		}
	})

	t.Run("owner edits and keeps the location", func(t *testing.T) {
		svc, _ := newBookingFixture(seed)
		booking, err := svc.Edit(context.Background(), EditBookingParams{
			Session:   member("u1"),
			BookingID: 1,
			Input:     BookingInput{Start: time.Unix(30_000, 0), End: unixPtr(40_000)},
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if booking.Start.Unix() != 30_000 || booking.End.Unix() != 40_000 || *booking.Location != "L1" {
			t.Fatalf("unexpected booking %+v", booking)
		}
	})

	t.Run("admin edits need an end time", func(t *testing.T) {
		svc, _ := newBookingFixture(seed)
		_, err := svc.Edit(context.Background(), EditBookingParams{
			Session:   adminUser("boss"),
			BookingID: 1,
			Input:     BookingInput{Start: time.Unix(30_000, 0)},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("admin deletes any booking", func(t *testing.T) {
		svc, repo := newBookingFixture(seed)
		if err := svc.Delete(context.Background(), adminUser("boss"), 1); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if len(repo.bookings) != 0 {
			t.Fatalf("expected the booking to be removed")
		}
	})

	t.Run("missing booking", func(t *testing.T) {
		svc, _ := newBookingFixture()
		if _, err := svc.Get(context.Background(), member("u1"), 7); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestBookingService_List(t *testing.T) {
	svc, repo := newBookingFixture()
	ref := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	if _, err := svc.List(context.Background(), ListBookingsParams{
		Session:    member("u1"),
		Date:       &ref,
		UserIDs:    []string{"u1", "u2"},
		LocationID: strPtr("  "),
	}); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	got := repo.lastList
	if !got.Range.Start.Equal(time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected week start %v", got.Range.Start)
	}
	if !got.Range.End.Equal(time.Date(2024, 5, 19, 23, 59, 59, 0, time.UTC)) {
		t.Fatalf("unexpected week end %v", got.Range.End)
	}
	if len(got.UserIDs) != 2 || got.LocationID != nil {
		t.Fatalf("unexpected filter %+v", got)
	}
}
