package repository

// Commitment represents the confirmation level account reads are served at.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// IsValidCommitment returns true if c is a supported commitment level.
func IsValidCommitment(c Commitment) bool {
	switch c {
	case CommitmentProcessed, CommitmentConfirmed, CommitmentFinalized:
		return true
	default:
		return false
	}
}

// DefaultCommitment returns the default commitment level.
func DefaultCommitment() Commitment { return CommitmentConfirmed }

// NormalizeCommitment converts raw string to a valid commitment (or default).
func NormalizeCommitment(s string) Commitment {
	if s == "" {
		return DefaultCommitment()
	}
	c := Commitment(s)
	if IsValidCommitment(c) {
		return c
	}
	return DefaultCommitment()
}
