package keen

import "testing"

func TestInstanceCurrentWithoutCore(t *testing.T) {
	if c := Instance(ModeCurrent); c != nil {
		t.Fatal("expected nil core before any renew")
	}
	if got := CurrentRefCount(); got != 0 {
		t.Fatalf("ref count = %d, want 0", got)
	}
}

func TestInstanceRenewAndRelease(t *testing.T) {
	first := GetInstance()
	if first == nil {
		t.Fatal("renew returned nil core")
	}
	defer func() {
		// In case an assertion fails before the releases below.
		for CurrentRefCount() > 0 {
			ReleaseInstance()
		}
	}()
	if got := CurrentRefCount(); got != 1 {
		t.Fatalf("ref count after first renew = %d, want 1", got)
	}

	second := GetInstance()
	if second != first {
		t.Fatal("second renew returned a different core")
	}
	if got := CurrentRefCount(); got != 2 {
		t.Fatalf("ref count after second renew = %d, want 2", got)
	}
	if cur := Instance(ModeCurrent); cur != first {
		t.Fatal("current does not match the held core")
	}
	if got := CurrentRefCount(); got != 2 {
		t.Fatalf("current must not change the ref count, got %d", got)
	}

	ReleaseInstance()
	if got := CurrentRefCount(); got != 1 {
		t.Fatalf("ref count after release = %d, want 1", got)
	}
	if cur := Instance(ModeCurrent); cur != first {
		t.Fatal("core discarded while still held")
	}

	ReleaseInstance()
	if cur := Instance(ModeCurrent); cur != nil {
		t.Fatal("core not discarded after last release")
	}
	if got := CurrentRefCount(); got != 0 {
		t.Fatalf("ref count after last release = %d, want 0", got)
	}
}

func TestInstanceRenewAfterRelease(t *testing.T) {
	first := GetInstance()
	ReleaseInstance()

	second := GetInstance()
	defer ReleaseInstance()
	if second == nil {
		t.Fatal("renew after release returned nil")
	}
	if second == first {
		t.Fatal("expected a fresh core after full release")
	}
	if got := CurrentRefCount(); got != 1 {
		t.Fatalf("ref count = %d, want 1", got)
	}
}

func TestReleaseWithoutHoldIsSafe(t *testing.T) {
	ReleaseInstance()
	if got := CurrentRefCount(); got != 0 {
		t.Fatalf("ref count = %d, want 0", got)
	}
}
