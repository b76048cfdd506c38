// internal/entitlement/rules_test.go
package entitlement

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

// play runs the check-then-count sequence a successful gated action performs.
func play(t *testing.T, r *Rules) bool {
	t.Helper()
	if !r.CheckPlay() {
		return false
	}
	r.ConsumePlay()
	return true
}

func TestRules_FreeTierQuota(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewRules(TierFree, 3, clock)

	for i := 0; i < 3; i++ {
		if !play(t, r) {
			t.Fatalf("play #%d denied, want allowed", i+1)
		}
	}

	if r.CanPlay() {
		t.Error("CanPlay() should be false at quota")
	}
	if r.CheckPlay() {
		t.Error("CheckPlay should be denied at quota")
	}
	if got := r.PlaysToday(); got != 3 {
		t.Errorf("PlaysToday() = %d, want 3 (denied attempt must not count)", got)
	}
}

func TestRules_CheckPlayDoesNotCount(t *testing.T) {
	r := NewRules(TierFree, 2, clockwork.NewFakeClock())

	for i := 0; i < 5; i++ {
		if !r.CheckPlay() {
			t.Fatalf("CheckPlay #%d denied under quota", i+1)
		}
	}
	if got := r.PlaysToday(); got != 0 {
		t.Errorf("PlaysToday() = %d, want 0 (only ConsumePlay counts)", got)
	}
}

func TestRules_PaidTierUnlimited(t *testing.T) {
	r := NewRules(TierPremium, 3, clockwork.NewFakeClock())

	for i := 0; i < 10; i++ {
		if !play(t, r) {
			t.Fatalf("play #%d denied on paid tier", i+1)
		}
	}
	if got := r.RemainingToday(); got != -1 {
		t.Errorf("RemainingToday() = %d, want -1 (unlimited)", got)
	}
}

func TestRules_MidnightRollover(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewRules(TierFree, 1, clock)

	if !play(t, r) {
		t.Fatal("first play denied")
	}
	if r.CanPlay() {
		t.Error("CanPlay() should be false at quota")
	}

	clock.Advance(24 * time.Hour)

	if !r.CanPlay() {
		t.Error("CanPlay() should be true after the day rolls over")
	}
	if got := r.PlaysToday(); got != 0 {
		t.Errorf("PlaysToday() = %d, want 0 after rollover", got)
	}
}

func TestRules_DenialHandler(t *testing.T) {
	r := NewRules(TierFree, 1, clockwork.NewFakeClock())
	var denials []Denial
	r.OnDenial(func(d Denial) { denials = append(denials, d) })

	if !play(t, r) {
		t.Fatal("first play denied")
	}
	if r.CheckPlay() {
		t.Fatal("second play should be denied")
	}

	if len(denials) != 1 {
		t.Fatalf("denials = %d, want 1", len(denials))
	}
	if denials[0].Reason != ReasonQuotaExceeded {
		t.Errorf("Reason = %q, want %q", denials[0].Reason, ReasonQuotaExceeded)
	}
	if denials[0].Tier != TierFree {
		t.Errorf("Tier = %v, want TierFree", denials[0].Tier)
	}
}

func TestRules_ZeroQuotaMeansUnlimited(t *testing.T) {
	r := NewRules(TierFree, 0, clockwork.NewFakeClock())

	for i := 0; i < 20; i++ {
		if !play(t, r) {
			t.Fatalf("play #%d denied with unlimited quota", i+1)
		}
	}
}

func TestRules_SetTier(t *testing.T) {
	r := NewRules(TierFree, 1, clockwork.NewFakeClock())
	if !play(t, r) {
		t.Fatal("first play denied")
	}
	if r.CanPlay() {
		t.Error("free tier should be at quota")
	}

	r.SetTier(TierPremium)

	if !r.CanPlay() {
		t.Error("CanPlay() should be true after upgrade")
	}
	if r.Tier() != TierPremium {
		t.Errorf("Tier() = %v, want TierPremium", r.Tier())
	}
}

func TestRules_AttemptLanguage(t *testing.T) {
	r := NewRules(TierFree, 0, clockwork.NewFakeClock())
	var denials []Denial
	r.OnDenial(func(d Denial) { denials = append(denials, d) })

	if !r.AttemptLanguage("en") {
		t.Error("free tier should allow en")
	}
	if r.AttemptLanguage("ja") {
		t.Error("free tier should deny ja")
	}

	if len(denials) != 1 {
		t.Fatalf("denials = %d, want 1", len(denials))
	}
	if denials[0].Reason != ReasonLanguage || denials[0].Language != "ja" {
		t.Errorf("denial = %+v, want language denial for ja", denials[0])
	}
}

func TestRules_RemainingToday(t *testing.T) {
	r := NewRules(TierFree, 2, clockwork.NewFakeClock())

	if got := r.RemainingToday(); got != 2 {
		t.Errorf("RemainingToday() = %d, want 2", got)
	}
	play(t, r)
	if got := r.RemainingToday(); got != 1 {
		t.Errorf("RemainingToday() = %d, want 1", got)
	}
	play(t, r)
	if got := r.RemainingToday(); got != 0 {
		t.Errorf("RemainingToday() = %d, want 0", got)
	}
}
