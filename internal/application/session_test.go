package application

import (
	"errors"
	"testing"
)

func TestAuthorize(t *testing.T) {
	t.Parallel()

	member := UserSession{User: User{ID: "u1"}}
	admin := UserSession{User: User{ID: "boss", Admin: true}}
	blocked := UserSession{User: User{ID: "u2", Locked: true, Admin: true}}
	readOnly := APISession{Token: APIToken{ID: "t1", ReadOnly: true}}
	adminToken := APISession{Token: APIToken{ID: "t2", Admin: true}}

	cases := []struct {
		name    string
		session Session
		tier    Tier
		wantErr error
	}{
		{name: "no session", session: nil, tier: TierReadOnly, wantErr: ErrUnauthenticated},
		{name: "blocked user on read only route", session: blocked, tier: TierReadOnly, wantErr: ErrBlocked},
		{name: "blocked admin on admin route", session: blocked, tier: TierAdmin, wantErr: ErrBlocked},
		{name: "member reads", session: member, tier: TierReadOnly},
		{name: "member writes", session: member, tier: TierReadWrite},
		{name: "member on admin route", session: member, tier: TierAdmin, wantErr: ErrUnauthorized},
		{name: "read only token reads", session: readOnly, tier: TierReadOnly},
		{name: "read only token writes", session: readOnly, tier: TierReadWrite, wantErr: ErrUnauthorized},
		{name: "admin token", session: adminToken, tier: TierAdmin},
		{name: "admin user", session: admin, tier: TierAdmin},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := Authorize(tc.session, tc.tier)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestActingUser(t *testing.T) {
	t.Parallel()

	member := UserSession{User: User{ID: "u1"}}
	admin := UserSession{User: User{ID: "boss", Admin: true}}
	kiosk := APISession{Token: APIToken{ID: "kiosk"}}

	if got, err := actingUser(member, ""); err != nil || got != "u1" {
		t.Fatalf("expected member to act for self, got %q, %v", got, err)
	}
	if _, err := actingUser(member, "u2"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected member acting for another user to be unauthorized, got %v", err)
	}
	if got, err := actingUser(admin, "u2"); err != nil || got != "u2" {
		t.Fatalf("expected admin to act for u2, got %q, %v", got, err)
	}
	if got, err := actingUser(kiosk, "u3"); err != nil || got != "u3" {
		t.Fatalf("expected kiosk token to act for u3, got %q, %v", got, err)
	}
	var vErr *ValidationError
	if _, err := actingUser(kiosk, ""); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error when a token names no user, got %v", err)
	}
}

func TestCanManage(t *testing.T) {
	t.Parallel()

	if !canManage(UserSession{User: User{ID: "u1"}}, "u1") {
		t.Fatalf("expected owner to manage own record")
	}
	if canManage(UserSession{User: User{ID: "u1"}}, "u2") {
		t.Fatalf("expected non-owner to be rejected")
	}
	if !canManage(APISession{Token: APIToken{Admin: true}}, "u2") {
		t.Fatalf("expected admin token to manage any record")
	}
	if canManage(APISession{Token: APIToken{}}, "") {
		t.Fatalf("expected non-admin token to own nothing")
	}
}
