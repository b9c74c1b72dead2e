package enums

import "testing"

func TestParseUserRole(t *testing.T) {
	role, err := ParseUserRole(" Farmer ")
	if err != nil {
		t.Fatalf("parse role: %v", err)
	}
	if role != UserRoleFarmer {
		t.Fatalf("expected farmer, got %s", role)
	}
	if _, err := ParseUserRole("vendor"); err == nil {
		t.Fatal("expected unknown role to fail")
	}
}

func TestApprovedOnCreate(t *testing.T) {
	if UserRoleFarmer.ApprovedOnCreate() {
		t.Fatal("farmers must start unapproved")
	}
	if !UserRoleBuyer.ApprovedOnCreate() || !UserRoleAdmin.ApprovedOnCreate() {
		t.Fatal("buyers and admins start approved")
	}
}

func TestParsePaymentMode(t *testing.T) {
	for input, want := range map[string]PaymentMode{"cod": PaymentModeCOD, "ONLINE": PaymentModeOnline} {
		got, err := ParsePaymentMode(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s got %s", input, want, got)
		}
	}
	if _, err := ParsePaymentMode("upi"); err == nil {
		t.Fatal("expected unsupported payment mode to fail")
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	if !OrderStatusNew.CanTransitionTo(OrderStatusPacked) {
		t.Fatal("new -> packed must be allowed")
	}
	if OrderStatusPacked.CanTransitionTo(OrderStatusNew) {
		t.Fatal("packed -> new must be rejected")
	}
	if OrderStatusPacked.CanTransitionTo(OrderStatusPacked) {
		t.Fatal("packed -> packed must be rejected")
	}
}

func TestParseProductCategory(t *testing.T) {
	got, err := ParseProductCategory("vegetable")
	if err != nil {
		t.Fatalf("parse category: %v", err)
	}
	if got != ProductCategoryVegetable {
		t.Fatalf("expected Vegetable, got %s", got)
	}
	if _, err := ParseProductCategory("Dairy"); err == nil {
		t.Fatal("expected unknown category to fail")
	}
	if len(ProductCategories()) != 4 {
		t.Fatalf("expected four categories, got %v", ProductCategories())
	}
}
