package rpc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"

	"LendPulse/internal/domain/models"
)

// Account payloads are fixed little-endian layouts. The first byte tags the
// account kind so program scans can be filtered server-side with a memcmp
// on offset 0.
const (
	AccountKindReserve    byte = 1
	AccountKindObligation byte = 2
)

const (
	// reserve: kind(1) market(32) mint(32) decimals(1) priceWad(16)
	// emaPriceWad(16) exchangeRateWad(16) cumBorrowRateWad(16) ltvBps(2)
	// liqThresholdBps(2) borrowWeightBps(2) symbol(8)
	ReserveDataSize = 144

	// obligation header: kind(1) market(32) owner(32) slot(8)
	// depositsLen(1) borrowsLen(1); then deposit entries of
	// reserve(32)+amount(8) and borrow entries of reserve(32)+
	// borrowedWads(16)+cumRateWads(16).
	obligationHeaderSize = 75
	depositEntrySize     = 40
	borrowEntrySize      = 64
)

const wadShift = 18
const bpsShift = 4 // basis points to fraction

func pubkeyAt(data []byte, off int) string {
	return base58.Encode(data[off : off+32])
}

// u128At reads a little-endian unsigned 128-bit integer as an exact decimal.
func u128At(data []byte, off int) decimal.Decimal {
	le := data[off : off+16]
	be := make([]byte, 16)
	for i := 0; i < 16; i++ {
		be[i] = le[15-i]
	}
	return decimal.NewFromBigInt(new(big.Int).SetBytes(be), 0)
}

func wadAt(data []byte, off int) decimal.Decimal {
	return u128At(data, off).Shift(-wadShift)
}

func bpsAt(data []byte, off int) decimal.Decimal {
	v := binary.LittleEndian.Uint16(data[off : off+2])
	return decimal.New(int64(v), 0).Shift(-bpsShift)
}

// DecodeReserve decodes one reserve account payload. The optional EMA price
// and borrow weight are absent when stored as zero; min/max price bounds
// are derived from spot vs EMA when both are present.
func DecodeReserve(address string, data []byte) (*models.Reserve, error) {
	if len(data) != ReserveDataSize {
		return nil, fmt.Errorf("reserve %s: payload is %d bytes, want %d", address, len(data), ReserveDataSize)
	}
	if data[0] != AccountKindReserve {
		return nil, fmt.Errorf("reserve %s: account kind %d", address, data[0])
	}

	r := &models.Reserve{
		Address:              address,
		Decimals:             int32(data[65]),
		Price:                wadAt(data, 66),
		CTokenExchangeRate:   wadAt(data, 98),
		CumulativeBorrowRate: wadAt(data, 114),
		LoanToValueRatio:     bpsAt(data, 130),
		LiquidationThreshold: bpsAt(data, 132),
		Symbol:               string(bytes.TrimRight(data[136:144], "\x00")),
	}

	if ema := wadAt(data, 82); !ema.IsZero() {
		r.EmaPrice = &ema
		min, max := r.Price, ema
		if ema.LessThan(min) {
			min, max = ema, r.Price
		}
		r.MinPrice = &min
		r.MaxPrice = &max
	}
	if w := bpsAt(data, 134); !w.IsZero() {
		r.BorrowWeight = &w
	}
	return r, nil
}

// DecodeObligation decodes one obligation account payload, including its
// variable-length deposit and borrow tables.
func DecodeObligation(address string, data []byte) (*models.ObligationSnapshot, error) {
	if len(data) < obligationHeaderSize {
		return nil, fmt.Errorf("obligation %s: payload is %d bytes, want >= %d", address, len(data), obligationHeaderSize)
	}
	if data[0] != AccountKindObligation {
		return nil, fmt.Errorf("obligation %s: account kind %d", address, data[0])
	}

	nDeposits := int(data[73])
	nBorrows := int(data[74])
	want := obligationHeaderSize + nDeposits*depositEntrySize + nBorrows*borrowEntrySize
	if len(data) != want {
		return nil, fmt.Errorf("obligation %s: payload is %d bytes, want %d for %d deposits %d borrows",
			address, len(data), want, nDeposits, nBorrows)
	}

	snap := &models.ObligationSnapshot{
		Address:       address,
		MarketAddress: pubkeyAt(data, 1),
		Slot:          binary.LittleEndian.Uint64(data[65:73]),
	}

	off := obligationHeaderSize
	for i := 0; i < nDeposits; i++ {
		amount := binary.LittleEndian.Uint64(data[off+32 : off+40])
		snap.Deposits = append(snap.Deposits, models.DepositPosition{
			ReserveAddress:  pubkeyAt(data, off),
			DepositedAmount: decimal.NewFromUint64(amount),
		})
		off += depositEntrySize
	}
	for i := 0; i < nBorrows; i++ {
		snap.Borrows = append(snap.Borrows, models.BorrowPosition{
			ReserveAddress:           pubkeyAt(data, off),
			BorrowedAmountWads:       u128At(data, off+32),
			CumulativeBorrowRateWads: u128At(data, off+48),
		})
		off += borrowEntrySize
	}
	return snap, nil
}

// AccountKind inspects a payload's kind tag without full decoding.
func AccountKind(data []byte) (byte, bool) {
	if len(data) == 0 {
		return 0, false
	}
	switch data[0] {
	case AccountKindReserve, AccountKindObligation:
		return data[0], true
	default:
		return 0, false
	}
}
