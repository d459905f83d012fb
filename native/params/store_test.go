package params

import (
	"errors"
	"math/big"
	"testing"

	"pactnet/native/arbitration"
	"pactnet/native/fees"
)

type mockParamState struct {
	kv      map[string][]byte
	allowed map[string]bool
	wrapped map[string]string
}

func newMockParamState() *mockParamState {
	return &mockParamState{
		kv:      make(map[string][]byte),
		allowed: make(map[string]bool),
		wrapped: make(map[string]string),
	}
}

func (m *mockParamState) ParamStoreSet(name string, value []byte) error {
	buf := make([]byte, len(value))
	copy(buf, value)
	m.kv[name] = buf
	return nil
}

func (m *mockParamState) ParamStoreGet(name string) ([]byte, bool, error) {
	value, ok := m.kv[name]
	return value, ok, nil
}

func (m *mockParamState) TokenAllowlistSet(token string, allowed bool) error {
	m.allowed[token] = allowed
	return nil
}

func (m *mockParamState) TokenAllowed(token string) bool { return m.allowed[token] }

func (m *mockParamState) OriginalTokenGet(wrapped string) (string, bool, error) {
	original, ok := m.wrapped[wrapped]
	return original, ok, nil
}

type staticAdmin struct {
	admin [20]byte
}

func (s staticAdmin) IsAdmin(addr [20]byte) bool { return addr == s.admin }

func testPolicy() PlatformPolicy {
	return PlatformPolicy{
		FeeBps:            150,
		MinEscrowAmount:   big.NewInt(1),
		DisputeFee:        big.NewInt(25),
		DisputeWindowSecs: 86_400,
	}
}

func TestSetPolicyRequiresAdmin(t *testing.T) {
	admin := [20]byte{0xAA}
	stranger := [20]byte{0xBB}
	store := NewStore(newMockParamState(), staticAdmin{admin: admin})

	if err := store.SetPolicy(stranger, testPolicy()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := store.SetPolicy(admin, testPolicy()); err != nil {
		t.Fatalf("admin set policy: %v", err)
	}
}

func TestPolicyRoundTrip(t *testing.T) {
	admin := [20]byte{0xAA}
	store := NewStore(newMockParamState(), staticAdmin{admin: admin})

	if _, ok, err := store.Policy(); err != nil || ok {
		t.Fatalf("expected unset policy, got ok=%v err=%v", ok, err)
	}

	want := testPolicy()
	if err := store.SetPolicy(admin, want); err != nil {
		t.Fatalf("set policy: %v", err)
	}
	got, ok, err := store.Policy()
	if err != nil || !ok {
		t.Fatalf("load policy: ok=%v err=%v", ok, err)
	}
	if got.FeeBps != want.FeeBps || got.DisputeWindowSecs != want.DisputeWindowSecs {
		t.Fatalf("policy mismatch: got %+v want %+v", got, want)
	}
	if got.MinEscrowAmount.Cmp(want.MinEscrowAmount) != 0 || got.DisputeFee.Cmp(want.DisputeFee) != 0 {
		t.Fatalf("policy amounts mismatch: got %+v want %+v", got, want)
	}
}

func TestSetPolicyValidatesBeforeMutation(t *testing.T) {
	admin := [20]byte{0xAA}
	state := newMockParamState()
	store := NewStore(state, staticAdmin{admin: admin})

	cases := []struct {
		name   string
		mutate func(*PlatformPolicy)
	}{
		{"fee above cap", func(p *PlatformPolicy) { p.FeeBps = fees.MaxPlatformFeeBps + 1 }},
		{"zero minimum", func(p *PlatformPolicy) { p.MinEscrowAmount = big.NewInt(0) }},
		{"nil minimum", func(p *PlatformPolicy) { p.MinEscrowAmount = nil }},
		{"negative dispute fee", func(p *PlatformPolicy) { p.DisputeFee = big.NewInt(-1) }},
		{"zero window", func(p *PlatformPolicy) { p.DisputeWindowSecs = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			policy := testPolicy()
			tc.mutate(&policy)
			if err := store.SetPolicy(admin, policy); !errors.Is(err, fees.ErrInvalidFeeConfiguration) {
				t.Fatalf("expected ErrInvalidFeeConfiguration, got %v", err)
			}
			if _, ok := state.kv[ParamsKeyPlatformPolicy]; ok {
				t.Fatalf("invalid policy must not be persisted")
			}
		})
	}
}

func TestSelectionRoundTrip(t *testing.T) {
	admin := [20]byte{0xAA}
	store := NewStore(newMockParamState(), staticAdmin{admin: admin})

	if _, ok, err := store.Selection(); err != nil || ok {
		t.Fatalf("expected unset selection, got ok=%v err=%v", ok, err)
	}

	invalid := SelectionParams{MinReputation: 40, MaxActiveDisputes: 0, CandidateCap: 10, BaseUnit: big.NewInt(1)}
	if err := store.SetSelection(admin, invalid); err == nil {
		t.Fatalf("expected rejection of zero dispute cap")
	}

	want := SelectionParams{MinReputation: 60, MaxActiveDisputes: 3, CandidateCap: 8, BaseUnit: big.NewInt(1_000)}
	if err := store.SetSelection(admin, want); err != nil {
		t.Fatalf("set selection: %v", err)
	}
	got, ok, err := store.Selection()
	if err != nil || !ok {
		t.Fatalf("load selection: ok=%v err=%v", ok, err)
	}
	if got.MinReputation != want.MinReputation || got.CandidateCap != want.CandidateCap {
		t.Fatalf("selection mismatch: got %+v want %+v", got, want)
	}
	if got.BaseUnit.Cmp(want.BaseUnit) != 0 {
		t.Fatalf("base unit mismatch: got %s want %s", got.BaseUnit, want.BaseUnit)
	}
}

func TestFeeCollectorRoundTrip(t *testing.T) {
	admin := [20]byte{0xAA}
	collector := [20]byte{0xFE}
	store := NewStore(newMockParamState(), staticAdmin{admin: admin})

	if _, ok, err := store.FeeCollector(); err != nil || ok {
		t.Fatalf("expected unset collector, got ok=%v err=%v", ok, err)
	}
	if err := store.SetFeeCollector(admin, [20]byte{}); !errors.Is(err, fees.ErrInvalidFeeConfiguration) {
		t.Fatalf("expected rejection of zero collector, got %v", err)
	}
	if err := store.SetFeeCollector(admin, collector); err != nil {
		t.Fatalf("set collector: %v", err)
	}
	got, ok, err := store.FeeCollector()
	if err != nil || !ok {
		t.Fatalf("load collector: ok=%v err=%v", ok, err)
	}
	if got != collector {
		t.Fatalf("collector mismatch: got %x want %x", got, collector)
	}
}

func TestTokenAllowlistAdministration(t *testing.T) {
	admin := [20]byte{0xAA}
	stranger := [20]byte{0xBB}
	state := newMockParamState()
	store := NewStore(state, staticAdmin{admin: admin})

	if err := store.AllowToken(stranger, "USDX"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := store.AllowToken(admin, "USDX"); err != nil {
		t.Fatalf("allow token: %v", err)
	}
	if !state.TokenAllowed("USDX") {
		t.Fatalf("token should be allowed after AllowToken")
	}
	if err := store.DisallowToken(admin, "USDX"); err != nil {
		t.Fatalf("disallow token: %v", err)
	}
	if state.TokenAllowed("USDX") {
		t.Fatalf("token should be blocked after DisallowToken")
	}
}

func TestAllowTokenRejectsWrappedRepresentation(t *testing.T) {
	admin := [20]byte{0xAA}
	state := newMockParamState()
	state.wrapped["WUSDX"] = "USDX"
	store := NewStore(state, staticAdmin{admin: admin})

	if err := store.AllowToken(admin, "wusdx"); !errors.Is(err, ErrTokenReserved) {
		t.Fatalf("expected ErrTokenReserved, got %v", err)
	}
	if state.TokenAllowed("WUSDX") {
		t.Fatalf("reserved symbol must not reach the allow-list")
	}
	// Delisting stays possible even when the symbol later becomes wrapped.
	if err := store.DisallowToken(admin, "WUSDX"); err != nil {
		t.Fatalf("disallow reserved symbol: %v", err)
	}
}

func TestPauseSwitchAdministration(t *testing.T) {
	admin := [20]byte{0xAA}
	stranger := [20]byte{0xBB}
	store := NewStore(newMockParamState(), staticAdmin{admin: admin})

	if store.IsPaused("escrow") {
		t.Fatalf("modules run until an administrator pauses them")
	}
	if err := store.SetPaused(stranger, "escrow", true); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := store.SetPaused(admin, "", true); err == nil {
		t.Fatalf("expected rejection of empty module name")
	}
	if err := store.SetPaused(admin, "escrow", true); err != nil {
		t.Fatalf("pause escrow: %v", err)
	}
	if !store.IsPaused("escrow") {
		t.Fatalf("escrow should report paused")
	}
	if store.IsPaused("swap") {
		t.Fatalf("pause switches are per module")
	}
	if err := store.SetPaused(admin, "escrow", false); err != nil {
		t.Fatalf("resume escrow: %v", err)
	}
	if store.IsPaused("escrow") {
		t.Fatalf("escrow should report running after resume")
	}
}

type rosterState struct {
	records map[[20]byte]*arbitration.Arbitrator
	order   [][20]byte
}

func newRosterState() *rosterState {
	return &rosterState{records: make(map[[20]byte]*arbitration.Arbitrator)}
}

func (r *rosterState) ArbitratorPut(record *arbitration.Arbitrator) error {
	if _, ok := r.records[record.Addr]; !ok {
		r.order = append(r.order, record.Addr)
	}
	r.records[record.Addr] = record
	return nil
}

func (r *rosterState) ArbitratorGet(addr [20]byte) (*arbitration.Arbitrator, bool) {
	record, ok := r.records[addr]
	return record, ok
}

func (r *rosterState) ArbitratorList() ([][20]byte, error) {
	out := make([][20]byte, len(r.order))
	copy(out, r.order)
	return out, nil
}

func TestRosterAdministration(t *testing.T) {
	admin := [20]byte{0xAA}
	stranger := [20]byte{0xBB}
	arbAddr := [20]byte{0xCC}

	store := NewStore(newMockParamState(), staticAdmin{admin: admin})
	pool := arbitration.NewPool()
	pool.SetState(newRosterState())
	store.SetPool(pool)

	profile := &arbitration.Arbitrator{Addr: arbAddr, Available: true, Reputation: 80}
	if _, err := store.RegisterArbitrator(stranger, profile); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := store.RegisterArbitrator(admin, profile); err != nil {
		t.Fatalf("register arbitrator: %v", err)
	}
	if _, ok, err := pool.Get(arbAddr); err != nil || !ok {
		t.Fatalf("arbitrator should be registered: ok=%v err=%v", ok, err)
	}
	if err := store.RemoveArbitrator(admin, arbAddr); err != nil {
		t.Fatalf("remove arbitrator: %v", err)
	}
	record, ok, err := pool.Get(arbAddr)
	if err != nil || !ok {
		t.Fatalf("get after removal: ok=%v err=%v", ok, err)
	}
	if record.Enrolled {
		t.Fatalf("arbitrator should be withdrawn after removal")
	}
}

func TestRosterTuningPassthrough(t *testing.T) {
	admin := [20]byte{0xAA}
	stranger := [20]byte{0xBB}
	arbAddr := [20]byte{0xCC}
	party := [20]byte{0xDD}

	store := NewStore(newMockParamState(), staticAdmin{admin: admin})
	pool := arbitration.NewPool()
	pool.SetState(newRosterState())
	store.SetPool(pool)

	if _, err := store.RegisterArbitrator(admin, &arbitration.Arbitrator{Addr: arbAddr, Available: true, Reputation: 50}); err != nil {
		t.Fatalf("register arbitrator: %v", err)
	}

	if err := store.SetArbitratorReputation(stranger, arbAddr, 90); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := store.SetArbitratorReputation(admin, arbAddr, 90); err != nil {
		t.Fatalf("set reputation: %v", err)
	}
	if err := store.SetArbitratorResponseTime(admin, arbAddr, 1_800); err != nil {
		t.Fatalf("set response time: %v", err)
	}
	if err := store.SetArbitratorSpecialization(admin, arbAddr, arbitration.BucketLarge, 75); err != nil {
		t.Fatalf("set specialization: %v", err)
	}
	if err := store.SetArbitratorAvailability(admin, arbAddr, false); err != nil {
		t.Fatalf("set availability: %v", err)
	}
	if err := store.BlacklistParty(admin, arbAddr, party); err != nil {
		t.Fatalf("blacklist party: %v", err)
	}

	record, ok, err := pool.Get(arbAddr)
	if err != nil || !ok {
		t.Fatalf("get arbitrator: ok=%v err=%v", ok, err)
	}
	if record.Reputation != 90 || record.AvgResponseSeconds != 1_800 || record.Available {
		t.Fatalf("tuning not applied: %+v", record)
	}
	if record.SpecializationFor(arbitration.BucketLarge) != 75 {
		t.Fatalf("specialization not applied: %+v", record)
	}
	if !record.Blacklists(party) {
		t.Fatalf("blacklist not applied")
	}

	if err := store.UnblacklistParty(admin, arbAddr, party); err != nil {
		t.Fatalf("unblacklist party: %v", err)
	}
	record, _, _ = pool.Get(arbAddr)
	if record.Blacklists(party) {
		t.Fatalf("blacklist entry should be removed")
	}
}
