package arbitration

import (
	"errors"
	"math/big"
)

// SizeBucket partitions dispute amounts into the specialization classes the
// selector scores against.
type SizeBucket uint8

const (
	// BucketSmall covers disputes below one base unit.
	BucketSmall SizeBucket = iota
	// BucketMedium covers disputes below ten base units.
	BucketMedium
	// BucketLarge covers everything else.
	BucketLarge
)

// maxScore bounds reputation and specialization values.
const maxScore = uint64(100)

var (
	errNilArbitrator = errors.New("arbitration: nil arbitrator")
	// ErrArbitratorNotFound marks lookups against unknown roster entries.
	ErrArbitratorNotFound = errors.New("arbitration: arbitrator not found")
	// ErrAlreadyEnrolled is returned when registering an address twice.
	ErrAlreadyEnrolled = errors.New("arbitration: already enrolled")
	// ErrNoEligibleArbitrators is returned when the eligible candidate set is
	// empty. The caller's dispute-raise must fail without mutating the escrow.
	ErrNoEligibleArbitrators = errors.New("arbitration: no eligible arbitrators")
	// ErrScoreOutOfRange marks reputation or specialization values above 100.
	ErrScoreOutOfRange = errors.New("arbitration: score out of range")
)

// BucketFor classifies a dispute amount against the chain's base unit.
func BucketFor(amount, baseUnit *big.Int) SizeBucket {
	if amount == nil || baseUnit == nil || baseUnit.Sign() <= 0 {
		return BucketSmall
	}
	if amount.Cmp(baseUnit) < 0 {
		return BucketSmall
	}
	medium := new(big.Int).Mul(baseUnit, big.NewInt(10))
	if amount.Cmp(medium) < 0 {
		return BucketMedium
	}
	return BucketLarge
}

// String implements fmt.Stringer for event attributes.
func (b SizeBucket) String() string {
	switch b {
	case BucketSmall:
		return "small"
	case BucketMedium:
		return "medium"
	case BucketLarge:
		return "large"
	default:
		return "unknown"
	}
}

// Arbitrator captures the roster entry for a single dispute handler. Counters
// (active disputes, last assignment) are the only fields the selector itself
// mutates; everything else changes through roster administration.
type Arbitrator struct {
	Addr               [20]byte              `json:"addr"`
	Enrolled           bool                  `json:"enrolled"`
	Available          bool                  `json:"available"`
	Reputation         uint64                `json:"reputation"`
	AvgResponseSeconds int64                 `json:"avgResponseSeconds"`
	ActiveDisputes     uint32                `json:"activeDisputes"`
	LastAssignedAt     int64                 `json:"lastAssignedAt"`
	Specialization     map[SizeBucket]uint64 `json:"specialization,omitempty"`
	Blacklist          [][20]byte            `json:"blacklist,omitempty"`
}

// Clone returns a deep copy of the arbitrator record.
func (a *Arbitrator) Clone() *Arbitrator {
	if a == nil {
		return nil
	}
	clone := *a
	if a.Specialization != nil {
		clone.Specialization = make(map[SizeBucket]uint64, len(a.Specialization))
		for bucket, score := range a.Specialization {
			clone.Specialization[bucket] = score
		}
	}
	if a.Blacklist != nil {
		clone.Blacklist = make([][20]byte, len(a.Blacklist))
		copy(clone.Blacklist, a.Blacklist)
	}
	return &clone
}

// SpecializationFor reads the per-bucket specialization value, defaulting to
// zero for buckets the arbitrator never configured.
func (a *Arbitrator) SpecializationFor(bucket SizeBucket) uint64 {
	if a == nil || a.Specialization == nil {
		return 0
	}
	return a.Specialization[bucket]
}

// Blacklists reports whether the arbitrator refuses to serve the supplied
// party.
func (a *Arbitrator) Blacklists(party [20]byte) bool {
	if a == nil {
		return false
	}
	for _, entry := range a.Blacklist {
		if entry == party {
			return true
		}
	}
	return false
}

// SanitizeArbitrator validates the record and returns a clone with non-nil
// collection fields.
func SanitizeArbitrator(a *Arbitrator) (*Arbitrator, error) {
	if a == nil {
		return nil, errNilArbitrator
	}
	if a.Addr == ([20]byte{}) {
		return nil, errors.New("arbitration: address required")
	}
	if a.Reputation > maxScore {
		return nil, ErrScoreOutOfRange
	}
	for _, score := range a.Specialization {
		if score > maxScore {
			return nil, ErrScoreOutOfRange
		}
	}
	if a.AvgResponseSeconds < 0 {
		return nil, errors.New("arbitration: response time must be non-negative")
	}
	clone := a.Clone()
	if clone.Specialization == nil {
		clone.Specialization = make(map[SizeBucket]uint64)
	}
	if clone.Blacklist == nil {
		clone.Blacklist = [][20]byte{}
	}
	return clone, nil
}
