package rpc

import (
	"context"
	"fmt"

	"github.com/mr-tron/base58"

	"LendPulse/internal/domain/models"
	domrepo "LendPulse/internal/domain/repository"
)

// Loader implements PositionSource against a lending program on a node.
// It owns retrieval and decoding; everything it hands out is an immutable
// snapshot ready for the health calculator.
type Loader struct {
	client  *Client
	program string
}

func NewLoader(client *Client, program string) domrepo.PositionSource {
	return &Loader{client: client, program: program}
}

// LoadObligation fetches one obligation plus every reserve it references in
// two round trips.
func (l *Loader) LoadObligation(ctx context.Context, address string) (*models.ObligationSnapshot, models.ReserveSet, error) {
	data, slot, err := l.client.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, nil, fmt.Errorf("load obligation: %w", err)
	}
	snap, err := DecodeObligation(address, data)
	if err != nil {
		return nil, nil, fmt.Errorf("load obligation: %w", err)
	}
	snap.Slot = slot

	addrs := referencedReserves(snap)
	if len(addrs) == 0 {
		return snap, models.ReserveSet{}, nil
	}

	payloads, _, err := l.client.GetMultipleAccounts(ctx, addrs)
	if err != nil {
		return nil, nil, fmt.Errorf("load reserves for %s: %w", address, err)
	}
	set := models.ReserveSet{}
	for i, b := range payloads {
		if b == nil {
			// Missing on-chain reserve surfaces later as a calculator
			// reserve-not-found error; do not invent placeholder data.
			continue
		}
		r, err := DecodeReserve(addrs[i], b)
		if err != nil {
			return nil, nil, err
		}
		set.Add(r)
	}
	return snap, set, nil
}

// LoadReserves fetches the full reserve set of one market.
func (l *Loader) LoadReserves(ctx context.Context, market string) (models.ReserveSet, error) {
	accounts, err := l.client.GetProgramAccounts(ctx, l.program, ReserveDataSize, []MemcmpFilter{
		{Offset: 0, Bytes: base58.Encode([]byte{AccountKindReserve})},
		{Offset: 1, Bytes: market},
	})
	if err != nil {
		return nil, fmt.Errorf("load reserves: %w", err)
	}
	set := models.ReserveSet{}
	for _, a := range accounts {
		r, err := DecodeReserve(a.Address, a.Data)
		if err != nil {
			return nil, err
		}
		set.Add(r)
	}
	return set, nil
}

// LoadMarket fetches every obligation of a market plus the market's reserve
// set. Obligation payloads are variable-length so the scan filters on the
// kind tag and market pubkey only.
func (l *Loader) LoadMarket(ctx context.Context, market string) ([]*models.ObligationSnapshot, models.ReserveSet, error) {
	set, err := l.LoadReserves(ctx, market)
	if err != nil {
		return nil, nil, err
	}

	accounts, err := l.client.GetProgramAccounts(ctx, l.program, 0, []MemcmpFilter{
		{Offset: 0, Bytes: base58.Encode([]byte{AccountKindObligation})},
		{Offset: 1, Bytes: market},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("load market %s: %w", market, err)
	}

	snaps := make([]*models.ObligationSnapshot, 0, len(accounts))
	for _, a := range accounts {
		snap, err := DecodeObligation(a.Address, a.Data)
		if err != nil {
			return nil, nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, set, nil
}

// referencedReserves collects the distinct reserve addresses an obligation's
// positions point at, preserving first-seen order.
func referencedReserves(snap *models.ObligationSnapshot) []string {
	seen := make(map[string]struct{})
	var addrs []string
	add := func(a string) {
		if _, ok := seen[a]; !ok {
			seen[a] = struct{}{}
			addrs = append(addrs, a)
		}
	}
	for _, d := range snap.Deposits {
		add(d.ReserveAddress)
	}
	for _, b := range snap.Borrows {
		add(b.ReserveAddress)
	}
	return addrs
}

var _ domrepo.PositionSource = (*Loader)(nil)
