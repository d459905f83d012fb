package arbitration

import (
	"bytes"
	"errors"
	"math/big"
	"testing"
)

type mockPoolState struct {
	profiles map[[20]byte]*Arbitrator
	order    [][20]byte
}

func newMockPoolState() *mockPoolState {
	return &mockPoolState{profiles: make(map[[20]byte]*Arbitrator)}
}

func (m *mockPoolState) ArbitratorPut(a *Arbitrator) error {
	sanitized, err := SanitizeArbitrator(a)
	if err != nil {
		return err
	}
	if _, ok := m.profiles[sanitized.Addr]; !ok {
		m.order = append(m.order, sanitized.Addr)
	}
	m.profiles[sanitized.Addr] = sanitized.Clone()
	return nil
}

func (m *mockPoolState) ArbitratorGet(addr [20]byte) (*Arbitrator, bool) {
	profile, ok := m.profiles[addr]
	if !ok {
		return nil, false
	}
	return profile.Clone(), true
}

func (m *mockPoolState) ArbitratorList() ([][20]byte, error) {
	out := make([][20]byte, len(m.order))
	copy(out, m.order)
	return out, nil
}

func poolAddr(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func newTestPool(state *mockPoolState) *Pool {
	pool := NewPool()
	pool.SetState(state)
	pool.SetParams(Params{
		MinReputation:     40,
		MaxActiveDisputes: 5,
		CandidateCap:      10,
		BaseUnit:          big.NewInt(1_000_000),
	})
	pool.SetNowFunc(func() int64 { return 1_700_000_000 })
	return pool
}

func enroll(t *testing.T, pool *Pool, addr [20]byte, mutate func(*Arbitrator)) {
	t.Helper()
	profile := &Arbitrator{
		Addr:               addr,
		Available:          true,
		Reputation:         60,
		AvgResponseSeconds: 1800,
	}
	if mutate != nil {
		mutate(profile)
	}
	if _, err := pool.Register(profile); err != nil {
		t.Fatalf("register %x: %v", addr[:1], err)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	pool := newTestPool(newMockPoolState())
	addr := poolAddr(0x01)
	enroll(t, pool, addr, nil)
	_, err := pool.Register(&Arbitrator{Addr: addr, Available: true, Reputation: 70})
	if !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("expected ErrAlreadyEnrolled, got %v", err)
	}
}

func TestSelectExcludesIneligible(t *testing.T) {
	initiator := poolAddr(0xE1)
	responder := poolAddr(0xE2)
	winner := poolAddr(0x06)

	cases := []struct {
		name   string
		mutate func(*Arbitrator)
	}{
		{"not enrolled", func(a *Arbitrator) { a.Enrolled = false }},
		{"unavailable", func(a *Arbitrator) { a.Available = false }},
		{"below min reputation", func(a *Arbitrator) { a.Reputation = 39 }},
		{"at capacity", func(a *Arbitrator) { a.ActiveDisputes = 5 }},
		{"blacklists initiator", func(a *Arbitrator) { a.Blacklist = [][20]byte{initiator} }},
		{"blacklists responder", func(a *Arbitrator) { a.Blacklist = [][20]byte{responder} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state := newMockPoolState()
			pool := newTestPool(state)
			excluded := poolAddr(0x05)
			// The excluded entry gets a perfect profile so any selection of it
			// would be by score, not accident.
			enroll(t, pool, excluded, func(a *Arbitrator) {
				a.Reputation = 100
				a.Specialization = map[SizeBucket]uint64{BucketSmall: 100}
			})
			enroll(t, pool, winner, nil)

			// Registration sets Enrolled/counters; apply exclusions afterwards.
			profile, _ := state.ArbitratorGet(excluded)
			tc.mutate(profile)
			if err := state.ArbitratorPut(profile); err != nil {
				t.Fatalf("update profile: %v", err)
			}

			selected, err := pool.Select(initiator, responder, big.NewInt(100))
			if err != nil {
				t.Fatalf("select: %v", err)
			}
			if selected != winner {
				t.Fatalf("selected %x, want %x", selected[:1], winner[:1])
			}
		})
	}
}

func TestSelectEmptyEligibleSetFails(t *testing.T) {
	initiator := poolAddr(0xE1)
	state := newMockPoolState()
	pool := newTestPool(state)
	only := poolAddr(0x01)
	enroll(t, pool, only, func(a *Arbitrator) { a.Blacklist = [][20]byte{initiator} })

	_, err := pool.Select(initiator, poolAddr(0xE2), big.NewInt(1))
	if !errors.Is(err, ErrNoEligibleArbitrators) {
		t.Fatalf("expected ErrNoEligibleArbitrators, got %v", err)
	}
	// A failed selection must not touch counters.
	profile, _ := state.ArbitratorGet(only)
	if profile.ActiveDisputes != 0 || profile.LastAssignedAt != 0 {
		t.Fatalf("counters mutated on failed selection: %+v", profile)
	}
}

func TestSelectWeightsReputationFirst(t *testing.T) {
	pool := newTestPool(newMockPoolState())
	strong := poolAddr(0x01)
	weak := poolAddr(0x02)
	enroll(t, pool, strong, func(a *Arbitrator) { a.Reputation = 90 })
	enroll(t, pool, weak, func(a *Arbitrator) {
		a.Reputation = 60
		a.Specialization = map[SizeBucket]uint64{BucketSmall: 100}
	})

	selected, err := pool.Select(poolAddr(0xE1), poolAddr(0xE2), big.NewInt(100))
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	// 90*40 vs 60*40+100*20: reputation weight dominates specialization.
	if selected != strong {
		t.Fatalf("selected %x, want reputation leader %x", selected[:1], strong[:1])
	}
}

func TestSelectSpecializationUsesAmountBucket(t *testing.T) {
	pool := newTestPool(newMockPoolState())
	smallExpert := poolAddr(0x01)
	largeExpert := poolAddr(0x02)
	enroll(t, pool, smallExpert, func(a *Arbitrator) {
		a.Specialization = map[SizeBucket]uint64{BucketSmall: 100}
	})
	enroll(t, pool, largeExpert, func(a *Arbitrator) {
		a.Specialization = map[SizeBucket]uint64{BucketLarge: 100}
	})

	// Base unit is 1_000_000 in the test params; 20 units is a large dispute.
	selected, err := pool.Select(poolAddr(0xE1), poolAddr(0xE2), big.NewInt(20_000_000))
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if selected != largeExpert {
		t.Fatalf("selected %x, want large-bucket expert", selected[:1])
	}
}

func TestSelectTieBreaksToScanOrder(t *testing.T) {
	pool := newTestPool(newMockPoolState())
	first := poolAddr(0x0A)
	second := poolAddr(0x0B)
	enroll(t, pool, first, nil)
	enroll(t, pool, second, nil)

	for i := 0; i < 3; i++ {
		selected, err := pool.Select(poolAddr(0xE1), poolAddr(0xE2), big.NewInt(1))
		if err != nil {
			t.Fatalf("select %d: %v", i, err)
		}
		if selected != first {
			t.Fatalf("tie must resolve to first registered, got %x", selected[:1])
		}
		if err := pool.Complete(selected); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}
}

func TestSelectDeterministic(t *testing.T) {
	build := func() *Pool {
		pool := newTestPool(newMockPoolState())
		enroll(t, pool, poolAddr(0x01), func(a *Arbitrator) { a.Reputation = 55 })
		enroll(t, pool, poolAddr(0x02), func(a *Arbitrator) {
			a.Reputation = 72
			a.AvgResponseSeconds = 5 * 3600
		})
		enroll(t, pool, poolAddr(0x03), func(a *Arbitrator) {
			a.Reputation = 70
			a.Specialization = map[SizeBucket]uint64{BucketMedium: 80}
		})
		return pool
	}
	var want [20]byte
	for i := 0; i < 5; i++ {
		got, err := build().Select(poolAddr(0xE1), poolAddr(0xE2), big.NewInt(3_000_000))
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if i == 0 {
			want = got
			continue
		}
		if got != want {
			t.Fatalf("selection not deterministic: run %d picked %x, first run %x", i, got[:1], want[:1])
		}
	}
}

func TestSelectCandidateCapBoundsScan(t *testing.T) {
	state := newMockPoolState()
	pool := newTestPool(state)
	pool.SetParams(Params{
		MinReputation:     40,
		MaxActiveDisputes: 5,
		CandidateCap:      2,
		BaseUnit:          big.NewInt(1_000_000),
	})
	for i := byte(1); i <= 4; i++ {
		enroll(t, pool, poolAddr(i), nil)
	}
	// The best-scoring entry sits past the cap, so it is never considered.
	best := poolAddr(4)
	profile, _ := state.ArbitratorGet(best)
	profile.Reputation = 100
	if err := state.ArbitratorPut(profile); err != nil {
		t.Fatalf("update: %v", err)
	}

	selected, err := pool.Select(poolAddr(0xE1), poolAddr(0xE2), big.NewInt(1))
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if selected == best {
		t.Fatalf("candidate past the cap must not be selected")
	}
}

func TestSelectRecordsAssignment(t *testing.T) {
	state := newMockPoolState()
	pool := newTestPool(state)
	addr := poolAddr(0x01)
	enroll(t, pool, addr, nil)

	if _, err := pool.Select(poolAddr(0xE1), poolAddr(0xE2), big.NewInt(1)); err != nil {
		t.Fatalf("select: %v", err)
	}
	profile, _ := state.ArbitratorGet(addr)
	if profile.ActiveDisputes != 1 {
		t.Fatalf("active disputes = %d, want 1", profile.ActiveDisputes)
	}
	if profile.LastAssignedAt != 1_700_000_000 {
		t.Fatalf("last assigned = %d, want fixed now", profile.LastAssignedAt)
	}

	if err := pool.Complete(addr); err != nil {
		t.Fatalf("complete: %v", err)
	}
	profile, _ = state.ArbitratorGet(addr)
	if profile.ActiveDisputes != 0 {
		t.Fatalf("active disputes after complete = %d, want 0", profile.ActiveDisputes)
	}
}

// Scenario: an assignment that is abandoned before the dispute opens must
// net out entirely, the assignment stamp included, so fairness ordering still
// reflects only disputes that really happened.
func TestRollbackRestoresAssignmentStamp(t *testing.T) {
	state := newMockPoolState()
	pool := newTestPool(state)
	addr := poolAddr(0x01)
	enroll(t, pool, addr, nil)

	firstNow := int64(1_700_000_000)
	secondNow := firstNow + 3600
	if _, err := pool.Select(poolAddr(0xE1), poolAddr(0xE2), big.NewInt(1)); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := pool.Complete(addr); err != nil {
		t.Fatalf("complete: %v", err)
	}

	pool.SetNowFunc(func() int64 { return secondNow })
	if _, err := pool.Select(poolAddr(0xE1), poolAddr(0xE2), big.NewInt(1)); err != nil {
		t.Fatalf("second select: %v", err)
	}
	profile, _ := state.ArbitratorGet(addr)
	if profile.LastAssignedAt != secondNow {
		t.Fatalf("last assigned = %d, want %d", profile.LastAssignedAt, secondNow)
	}

	if err := pool.Rollback(addr); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	profile, _ = state.ArbitratorGet(addr)
	if profile.ActiveDisputes != 0 {
		t.Fatalf("active disputes after rollback = %d, want 0", profile.ActiveDisputes)
	}
	if profile.LastAssignedAt != firstNow {
		t.Fatalf("last assigned after rollback = %d, want prior stamp %d", profile.LastAssignedAt, firstNow)
	}
}

func TestCompleteKeepsAssignmentStamp(t *testing.T) {
	state := newMockPoolState()
	pool := newTestPool(state)
	addr := poolAddr(0x01)
	enroll(t, pool, addr, nil)

	if _, err := pool.Select(poolAddr(0xE1), poolAddr(0xE2), big.NewInt(1)); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := pool.Complete(addr); err != nil {
		t.Fatalf("complete: %v", err)
	}
	profile, _ := state.ArbitratorGet(addr)
	if profile.LastAssignedAt != 1_700_000_000 {
		t.Fatalf("completed dispute must keep its stamp, got %d", profile.LastAssignedAt)
	}
}

func TestScenarioCapacityVersusBlacklist(t *testing.T) {
	initiator := poolAddr(0xE1)
	responder := poolAddr(0xE2)
	state := newMockPoolState()
	pool := newTestPool(state)
	pool.SetParams(Params{
		MinReputation:     40,
		MaxActiveDisputes: 1,
		CandidateCap:      10,
		BaseUnit:          big.NewInt(1_000_000),
	})
	blacklisted := poolAddr(0x01)
	lowRep := poolAddr(0x02)
	enroll(t, pool, blacklisted, func(a *Arbitrator) {
		a.Reputation = 95
		a.Blacklist = [][20]byte{initiator}
	})
	enroll(t, pool, lowRep, func(a *Arbitrator) { a.Reputation = 45 })

	// The non-blacklisted entry wins despite lower reputation.
	selected, err := pool.Select(initiator, responder, big.NewInt(1))
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if selected != lowRep {
		t.Fatalf("selected %x, want non-blacklisted %x", selected[:1], lowRep[:1])
	}

	// It is now at capacity 1 of 1; only the blacklisted entry remains and
	// the dispute-raise must fail.
	_, err = pool.Select(initiator, responder, big.NewInt(1))
	if !errors.Is(err, ErrNoEligibleArbitrators) {
		t.Fatalf("expected ErrNoEligibleArbitrators, got %v", err)
	}
}

func TestRosterAdministration(t *testing.T) {
	state := newMockPoolState()
	pool := newTestPool(state)
	addr := poolAddr(0x01)
	party := poolAddr(0xE9)
	enroll(t, pool, addr, nil)

	if err := pool.SetReputation(addr, 101); !errors.Is(err, ErrScoreOutOfRange) {
		t.Fatalf("expected ErrScoreOutOfRange, got %v", err)
	}
	if err := pool.SetReputation(addr, 88); err != nil {
		t.Fatalf("set reputation: %v", err)
	}
	if err := pool.SetSpecialization(addr, BucketLarge, 70); err != nil {
		t.Fatalf("set specialization: %v", err)
	}
	if err := pool.SetResponseTime(addr, 7200); err != nil {
		t.Fatalf("set response time: %v", err)
	}
	if err := pool.BlacklistAdd(addr, party); err != nil {
		t.Fatalf("blacklist add: %v", err)
	}

	profile, ok, err := pool.Get(addr)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if profile.Reputation != 88 || profile.SpecializationFor(BucketLarge) != 70 || profile.AvgResponseSeconds != 7200 {
		t.Fatalf("profile not updated: %+v", profile)
	}
	if !profile.Blacklists(party) {
		t.Fatalf("blacklist entry missing")
	}

	if err := pool.BlacklistRemove(addr, party); err != nil {
		t.Fatalf("blacklist remove: %v", err)
	}
	profile, _, _ = pool.Get(addr)
	if profile.Blacklists(party) {
		t.Fatalf("blacklist entry not removed")
	}

	if err := pool.Leave(addr); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if _, err := pool.Select(poolAddr(0xE1), poolAddr(0xE2), big.NewInt(1)); !errors.Is(err, ErrNoEligibleArbitrators) {
		t.Fatalf("left arbitrator must be ineligible, got %v", err)
	}

	if err := pool.SetAvailability(poolAddr(0x77), true); !errors.Is(err, ErrArbitratorNotFound) {
		t.Fatalf("expected ErrArbitratorNotFound, got %v", err)
	}
}

func TestBucketFor(t *testing.T) {
	unit := big.NewInt(1_000_000)
	cases := []struct {
		amount int64
		want   SizeBucket
	}{
		{1, BucketSmall},
		{999_999, BucketSmall},
		{1_000_000, BucketMedium},
		{9_999_999, BucketMedium},
		{10_000_000, BucketLarge},
	}
	for _, tc := range cases {
		if got := BucketFor(big.NewInt(tc.amount), unit); got != tc.want {
			t.Fatalf("BucketFor(%d) = %s, want %s", tc.amount, got, tc.want)
		}
	}
}

func TestResponsivenessScore(t *testing.T) {
	cases := []struct {
		seconds int64
		want    uint64
	}{
		{0, 100},
		{3599, 100},
		{3600, 80},
		{4*3600 - 1, 80},
		{4 * 3600, 50},
		{12*3600 - 1, 50},
		{12 * 3600, 20},
		{48 * 3600, 20},
	}
	for _, tc := range cases {
		if got := responsivenessScore(tc.seconds); got != tc.want {
			t.Fatalf("responsivenessScore(%d) = %d, want %d", tc.seconds, got, tc.want)
		}
	}
}
