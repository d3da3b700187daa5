package services

import (
	"testing"
	"time"

	"github.com/clinreach/clinreach/internal/models"
	"github.com/clinreach/clinreach/pkg/response"
)

func TestRegisterMember(t *testing.T) {
	db := openTestDB(t, "member_register")
	svc := NewMemberService(db)

	member, err := svc.Register(&RegisterMemberRequest{
		FirstName:    "Ada",
		LastName:     "Okafor",
		Email:        "ada@example.com",
		DateOfBirth:  time.Date(1985, 3, 2, 0, 0, 0, 0, time.UTC),
		ConsentGiven: true,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if member.ID == "" {
		t.Error("Register() did not assign an id")
	}
	if member.Status != models.MemberStatusActive {
		t.Errorf("status = %q, want active", member.Status)
	}
	if member.ConsentDate == nil {
		t.Error("consent date was not stamped")
	}

	_, err = svc.Register(&RegisterMemberRequest{
		FirstName:   "Other",
		LastName:    "Person",
		Email:       "ada@example.com",
		DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if !response.IsKind(err, response.KindConflict) {
		t.Errorf("duplicate email: error kind = %q, want %q", response.Kind(err), response.KindConflict)
	}
}

func TestRegisterMember_EmailUniqueAcrossInactive(t *testing.T) {
	db := openTestDB(t, "member_email_inactive")
	svc := NewMemberService(db)

	member, err := svc.Register(&RegisterMemberRequest{
		FirstName:   "Ada",
		LastName:    "Okafor",
		Email:       "ada@example.com",
		DateOfBirth: time.Date(1985, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := svc.Deactivate(member.ID); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}

	// Email stays reserved even after deactivation.
	_, err = svc.Register(&RegisterMemberRequest{
		FirstName:   "Ada",
		LastName:    "Again",
		Email:       "ada@example.com",
		DateOfBirth: time.Date(1985, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	if !response.IsKind(err, response.KindConflict) {
		t.Errorf("reused email: error kind = %q, want %q", response.Kind(err), response.KindConflict)
	}
}

func TestUpdateMember(t *testing.T) {
	db := openTestDB(t, "member_update")
	svc := NewMemberService(db)

	member, err := svc.Register(&RegisterMemberRequest{
		FirstName:   "Ada",
		LastName:    "Okafor",
		Email:       "ada@example.com",
		Phone:       "555-0100",
		DateOfBirth: time.Date(1985, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	newPhone := "555-0199"
	newCity := "Leiden"
	updated, err := svc.Update(member.ID, &UpdateMemberRequest{
		Phone: &newPhone,
		City:  &newCity,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Phone != "555-0199" || updated.City != "Leiden" {
		t.Errorf("update not applied: phone=%q city=%q", updated.Phone, updated.City)
	}
	// Untouched fields survive a partial update.
	if updated.FirstName != "Ada" {
		t.Errorf("first name changed unexpectedly: %q", updated.FirstName)
	}

	if _, err := svc.Update("missing", &UpdateMemberRequest{}); !response.IsKind(err, response.KindNotFound) {
		t.Errorf("unknown member: error kind = %q, want %q", response.Kind(err), response.KindNotFound)
	}
}

func TestUpdateConsent(t *testing.T) {
	db := openTestDB(t, "member_consent")
	svc := NewMemberService(db)

	member, err := svc.Register(&RegisterMemberRequest{
		FirstName:   "Ada",
		LastName:    "Okafor",
		Email:       "ada@example.com",
		DateOfBirth: time.Date(1985, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	granted, err := svc.UpdateConsent(member.ID, true)
	if err != nil {
		t.Fatalf("UpdateConsent(true) error = %v", err)
	}
	if !granted.ConsentGiven || granted.ConsentDate == nil {
		t.Error("consent grant was not recorded")
	}

	withdrawn, err := svc.UpdateConsent(member.ID, false)
	if err != nil {
		t.Fatalf("UpdateConsent(false) error = %v", err)
	}
	if withdrawn.ConsentGiven || withdrawn.ConsentDate != nil {
		t.Error("consent withdrawal did not clear the record")
	}
}

func TestDeactivateMember_Idempotent(t *testing.T) {
	db := openTestDB(t, "member_deactivate")
	svc := NewMemberService(db)

	member, err := svc.Register(&RegisterMemberRequest{
		FirstName:   "Ada",
		LastName:    "Okafor",
		Email:       "ada@example.com",
		DateOfBirth: time.Date(1985, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		deactivated, err := svc.Deactivate(member.ID)
		if err != nil {
			t.Fatalf("Deactivate() attempt %d error = %v", i+1, err)
		}
		if deactivated.Status != models.MemberStatusInactive {
			t.Errorf("status = %q, want inactive", deactivated.Status)
		}
	}
}

func TestListMembers(t *testing.T) {
	db := openTestDB(t, "member_list")
	svc := NewMemberService(db)

	seeds := []struct {
		first, last, email, gender string
	}{
		{"Ada", "Okafor", "ada@example.com", "female"},
		{"Ben", "Smit", "ben@example.com", "male"},
		{"Cleo", "Janssen", "cleo@example.com", "female"},
	}
	for _, seed := range seeds {
		if _, err := svc.Register(&RegisterMemberRequest{
			FirstName:   seed.first,
			LastName:    seed.last,
			Email:       seed.email,
			Gender:      seed.gender,
			DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		}); err != nil {
			t.Fatalf("Register(%s) error = %v", seed.email, err)
		}
	}

	all, err := svc.List(&MemberListRequest{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if all.Total != 3 {
		t.Errorf("total = %d, want 3", all.Total)
	}

	women, err := svc.List(&MemberListRequest{Gender: "female"})
	if err != nil {
		t.Fatalf("List(gender) error = %v", err)
	}
	if women.Total != 2 {
		t.Errorf("gender filter total = %d, want 2", women.Total)
	}

	search, err := svc.List(&MemberListRequest{Search: "jans"})
	if err != nil {
		t.Fatalf("List(search) error = %v", err)
	}
	if search.Total != 1 {
		t.Errorf("search total = %d, want 1", search.Total)
	}
}
