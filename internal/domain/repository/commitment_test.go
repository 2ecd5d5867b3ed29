package repository

import "testing"

func TestIsValidCommitment(t *testing.T) {
	valid := []Commitment{CommitmentProcessed, CommitmentConfirmed, CommitmentFinalized}
	for _, c := range valid {
		if !IsValidCommitment(c) {
			t.Fatalf("%s should be valid", c)
		}
	}
	if IsValidCommitment("recent") {
		t.Fatal("recent is not a supported commitment")
	}
	if IsValidCommitment("") {
		t.Fatal("empty commitment is not valid")
	}
}

func TestNormalizeCommitment(t *testing.T) {
	if got := NormalizeCommitment(""); got != CommitmentConfirmed {
		t.Fatalf("empty input should default to confirmed, got %s", got)
	}
	if got := NormalizeCommitment("finalized"); got != CommitmentFinalized {
		t.Fatalf("expected finalized, got %s", got)
	}
	if got := NormalizeCommitment("bogus"); got != CommitmentConfirmed {
		t.Fatalf("unknown input should default to confirmed, got %s", got)
	}
}
