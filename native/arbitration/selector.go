package arbitration

import "math/big"

// Aggregate score weights. Past reliability dominates, then spare capacity,
// then domain fit, then speed.
const (
	weightReputation     = uint64(40)
	weightCapacity       = uint64(30)
	weightSpecialization = uint64(20)
	weightResponsiveness = uint64(10)
)

// Responsiveness thresholds in seconds and the scores they map to.
const (
	responseFast   = int64(3600)
	responseMedium = int64(4 * 3600)
	responseSlow   = int64(12 * 3600)
)

// candidate is the transient scoring record for one arbitrator during one
// selection call. It is never persisted.
type candidate struct {
	addr           [20]byte
	reputation     uint64
	workload       uint32
	specialization uint64
	responsiveness uint64
	score          uint64
}

func responsivenessScore(avgSeconds int64) uint64 {
	switch {
	case avgSeconds < responseFast:
		return 100
	case avgSeconds < responseMedium:
		return 80
	case avgSeconds < responseSlow:
		return 50
	default:
		return 20
	}
}

func (p *Pool) eligible(a *Arbitrator, initiator, responder [20]byte) bool {
	if a == nil || !a.Enrolled || !a.Available {
		return false
	}
	if a.Reputation < p.params.MinReputation {
		return false
	}
	if a.ActiveDisputes >= p.params.MaxActiveDisputes {
		return false
	}
	// The blacklist is honoured in both directions independently; refusing
	// either party removes the arbitrator from candidacy.
	if a.Blacklists(initiator) || a.Blacklists(responder) {
		return false
	}
	return true
}

func (p *Pool) scoreCandidate(a *Arbitrator, bucket SizeBucket) candidate {
	c := candidate{
		addr:           a.Addr,
		reputation:     a.Reputation,
		workload:       a.ActiveDisputes,
		specialization: a.SpecializationFor(bucket),
		responsiveness: responsivenessScore(a.AvgResponseSeconds),
	}
	spare := uint64(p.params.MaxActiveDisputes - a.ActiveDisputes)
	c.score = c.reputation*weightReputation +
		spare*weightCapacity +
		c.specialization*weightSpecialization +
		c.responsiveness*weightResponsiveness
	return c
}

// Select picks the dispute handler for the supplied parties and amount. The
// roster is scanned in registration order; eligible entries are collected up
// to the candidate cap, scored, and the strictly highest aggregate wins. On
// an exact tie the first candidate in scan order is kept, which is
// deterministic but registration-order-sensitive. An empty eligible set fails
// with ErrNoEligibleArbitrators and leaves all state untouched.
func (p *Pool) Select(initiator, responder [20]byte, disputeAmount *big.Int) ([20]byte, error) {
	state, err := p.withState()
	if err != nil {
		return [20]byte{}, err
	}
	roster, err := state.ArbitratorList()
	if err != nil {
		return [20]byte{}, err
	}
	bucket := BucketFor(disputeAmount, p.params.BaseUnit)
	candidates := make([]candidate, 0, p.params.CandidateCap)
	for _, addr := range roster {
		if len(candidates) >= p.params.CandidateCap {
			break
		}
		profile, ok := state.ArbitratorGet(addr)
		if !ok {
			continue
		}
		if !p.eligible(profile, initiator, responder) {
			continue
		}
		candidates = append(candidates, p.scoreCandidate(profile, bucket))
	}
	if len(candidates) == 0 {
		return [20]byte{}, ErrNoEligibleArbitrators
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.score > best.score {
			best = c
		}
	}
	if err := p.recordAssignment(best.addr); err != nil {
		return [20]byte{}, err
	}
	p.emit(NewSelectedEvent(best.addr, initiator, responder, disputeAmount, bucket, best.score))
	return best.addr, nil
}

func (p *Pool) recordAssignment(addr [20]byte) error {
	now := p.now()
	return p.update(addr, func(a *Arbitrator) error {
		if p.prevStamps != nil {
			p.prevStamps[addr] = a.LastAssignedAt
		}
		a.ActiveDisputes++
		a.LastAssignedAt = now
		return nil
	})
}
