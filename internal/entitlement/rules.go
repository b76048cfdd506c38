package entitlement

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Denial reasons.
const (
	ReasonQuotaExceeded = "quota_exceeded"
	ReasonLanguage      = "language_not_available"
)

// Denial describes why a playback action was refused.
type Denial struct {
	Reason   string
	Tier     Tier
	Language string // set for language denials
}

// DenialHandler receives denials. Denials are expected control flow, not
// errors: the handler drives whatever upgrade or limit surface the caller
// has.
type DenialHandler func(Denial)

// Rules gates playback actions against the current tier.
//
// Free tier carries a daily play quota that resets at local midnight. Paid
// tiers are unlimited. SetTier takes effect on the next check.
type Rules struct {
	mu    sync.Mutex
	clock clockwork.Clock

	tier       Tier
	dailyQuota int // plays per day on the free tier, 0 means unlimited

	playsToday int
	quotaDay   time.Time // midnight of the day playsToday counts for

	onDenial DenialHandler
}

// NewRules creates gating rules for the given tier. dailyQuota applies to
// the free tier only; pass 0 for unlimited. A nil clock uses the real one.
func NewRules(tier Tier, dailyQuota int, clock clockwork.Clock) *Rules {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	r := &Rules{
		clock:      clock,
		tier:       tier,
		dailyQuota: dailyQuota,
	}
	r.quotaDay = midnight(clock.Now())
	return r
}

// OnDenial registers the denial handler. Only one handler is kept.
func (r *Rules) OnDenial(h DenialHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDenial = h
}

// Tier returns the current tier.
func (r *Rules) Tier() Tier {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tier
}

// SetTier changes the tier. The quota counter is kept: a downgrade the same
// day still counts plays made earlier.
func (r *Rules) SetTier(tier Tier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tier = tier
}

// CanPlay reports whether a new play would currently be allowed. Pure
// predicate: it never increments the counter and never fires the handler.
func (r *Rules) CanPlay() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rolloverLocked()
	return r.allowedLocked()
}

// CheckPlay checks the quota without counting anything. On denial it fires
// the handler and returns false. Callers count the play with ConsumePlay
// once the gated action actually succeeded.
func (r *Rules) CheckPlay() bool {
	r.mu.Lock()
	r.rolloverLocked()
	if !r.allowedLocked() {
		d := Denial{Reason: ReasonQuotaExceeded, Tier: r.tier}
		h := r.onDenial
		r.mu.Unlock()
		if h != nil {
			h(d)
		}
		return false
	}
	r.mu.Unlock()
	return true
}

// ConsumePlay counts one play against today's quota.
func (r *Rules) ConsumePlay() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rolloverLocked()
	r.playsToday++
}

// AttemptLanguage checks the tier to language table. On denial it fires the
// handler and returns false.
func (r *Rules) AttemptLanguage(lang string) bool {
	r.mu.Lock()
	tier := r.tier
	h := r.onDenial
	r.mu.Unlock()

	if CanSwitchLanguage(tier, lang) {
		return true
	}
	if h != nil {
		h(Denial{Reason: ReasonLanguage, Tier: tier, Language: lang})
	}
	return false
}

// PlaysToday returns the number of quota-counted plays for the current day.
func (r *Rules) PlaysToday() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rolloverLocked()
	return r.playsToday
}

// RemainingToday returns how many plays are left today, or -1 if unlimited.
func (r *Rules) RemainingToday() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rolloverLocked()
	if r.tier.IsPaid() || r.dailyQuota <= 0 {
		return -1
	}
	left := r.dailyQuota - r.playsToday
	if left < 0 {
		return 0
	}
	return left
}

// allowedLocked is the quota predicate. Caller holds mu.
func (r *Rules) allowedLocked() bool {
	if r.tier.IsPaid() || r.dailyQuota <= 0 {
		return true
	}
	return r.playsToday < r.dailyQuota
}

// rolloverLocked resets the counter when the local day has changed.
// Caller holds mu.
func (r *Rules) rolloverLocked() {
	today := midnight(r.clock.Now())
	if !today.Equal(r.quotaDay) {
		r.quotaDay = today
		r.playsToday = 0
	}
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
