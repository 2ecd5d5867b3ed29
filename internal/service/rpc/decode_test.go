package rpc

import (
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
)

func putU128(dst []byte, v *big.Int) {
	be := v.Bytes()
	for i, b := range be {
		dst[len(be)-1-i] = b
	}
}

func wad(units int64) *big.Int {
	w := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return new(big.Int).Mul(big.NewInt(units), w)
}

func testPubkey(seed byte) []byte {
	b := make([]byte, 32)
	for i := range b {
		b[i] = seed
	}
	return b
}

func buildReserve(t *testing.T, market []byte, emaUnits int64, weightBps uint16) []byte {
	t.Helper()
	data := make([]byte, ReserveDataSize)
	data[0] = AccountKindReserve
	copy(data[1:33], market)
	copy(data[33:65], testPubkey(9)) // mint
	data[65] = 6                     // decimals
	putU128(data[66:82], wad(2))     // price $2
	if emaUnits > 0 {
		putU128(data[82:98], wad(emaUnits))
	}
	putU128(data[98:114], wad(1))  // exchange rate 1
	putU128(data[114:130], wad(1)) // cumulative borrow rate 1
	binary.LittleEndian.PutUint16(data[130:132], 8000) // ltv 0.8
	binary.LittleEndian.PutUint16(data[132:134], 8500) // threshold 0.85
	binary.LittleEndian.PutUint16(data[134:136], weightBps)
	copy(data[136:144], "USDC")
	return data
}

func TestDecodeReserve(t *testing.T) {
	market := testPubkey(7)
	addr := base58.Encode(testPubkey(3))
	r, err := DecodeReserve(addr, buildReserve(t, market, 0, 0))
	if err != nil {
		t.Fatalf("decode reserve: %v", err)
	}
	if r.Address != addr || r.Symbol != "USDC" || r.Decimals != 6 {
		t.Fatalf("identity fields wrong: %+v", r)
	}
	if !r.Price.Equal(decimal.RequireFromString("2")) {
		t.Fatalf("price = %s, want 2", r.Price)
	}
	if !r.LoanToValueRatio.Equal(decimal.RequireFromString("0.8")) {
		t.Fatalf("ltv = %s, want 0.8", r.LoanToValueRatio)
	}
	if !r.LiquidationThreshold.Equal(decimal.RequireFromString("0.85")) {
		t.Fatalf("threshold = %s, want 0.85", r.LiquidationThreshold)
	}
	if r.EmaPrice != nil || r.MinPrice != nil || r.MaxPrice != nil {
		t.Fatalf("zero ema must decode as absent")
	}
	if r.BorrowWeight != nil {
		t.Fatalf("zero borrow weight must decode as absent")
	}
}

func TestDecodeReserveOptionalFields(t *testing.T) {
	addr := base58.Encode(testPubkey(3))
	r, err := DecodeReserve(addr, buildReserve(t, testPubkey(7), 3, 20000))
	if err != nil {
		t.Fatalf("decode reserve: %v", err)
	}
	if r.EmaPrice == nil || !r.EmaPrice.Equal(decimal.RequireFromString("3")) {
		t.Fatalf("ema = %v, want 3", r.EmaPrice)
	}
	// spot 2 vs ema 3: min 2, max 3
	if r.MinPrice == nil || !r.MinPrice.Equal(decimal.RequireFromString("2")) {
		t.Fatalf("min price = %v, want 2", r.MinPrice)
	}
	if r.MaxPrice == nil || !r.MaxPrice.Equal(decimal.RequireFromString("3")) {
		t.Fatalf("max price = %v, want 3", r.MaxPrice)
	}
	if r.BorrowWeight == nil || !r.BorrowWeight.Equal(decimal.RequireFromString("2")) {
		t.Fatalf("borrow weight = %v, want 2", r.BorrowWeight)
	}
}

func TestDecodeReserveRejectsBadPayload(t *testing.T) {
	if _, err := DecodeReserve("x", make([]byte, 10)); err == nil {
		t.Fatalf("short payload must fail")
	}
	data := buildReserve(t, testPubkey(7), 0, 0)
	data[0] = AccountKindObligation
	if _, err := DecodeReserve("x", data); err == nil {
		t.Fatalf("wrong kind tag must fail")
	}
}

func TestDecodeObligation(t *testing.T) {
	market := testPubkey(7)
	owner := testPubkey(8)
	depositReserve := testPubkey(1)
	borrowReserve := testPubkey(2)

	data := make([]byte, 75+40+64)
	data[0] = AccountKindObligation
	copy(data[1:33], market)
	copy(data[33:65], owner)
	binary.LittleEndian.PutUint64(data[65:73], 12345) // slot
	data[73] = 1                                      // deposits
	data[74] = 1                                      // borrows

	off := 75
	copy(data[off:off+32], depositReserve)
	binary.LittleEndian.PutUint64(data[off+32:off+40], 100_000_000) // 100 units at 6 decimals
	off += 40
	copy(data[off:off+32], borrowReserve)
	putU128(data[off+32:off+48], wad(50_000_000)) // 50 units at 6 decimals, wad scale
	putU128(data[off+48:off+64], wad(1))

	addr := base58.Encode(testPubkey(4))
	snap, err := DecodeObligation(addr, data)
	if err != nil {
		t.Fatalf("decode obligation: %v", err)
	}
	if snap.MarketAddress != base58.Encode(market) {
		t.Fatalf("market = %s", snap.MarketAddress)
	}
	if snap.Slot != 12345 {
		t.Fatalf("slot = %d", snap.Slot)
	}
	if len(snap.Deposits) != 1 || len(snap.Borrows) != 1 {
		t.Fatalf("entries = %d deposits %d borrows", len(snap.Deposits), len(snap.Borrows))
	}
	if snap.Deposits[0].ReserveAddress != base58.Encode(depositReserve) {
		t.Fatalf("deposit reserve = %s", snap.Deposits[0].ReserveAddress)
	}
	if !snap.Deposits[0].DepositedAmount.Equal(decimal.RequireFromString("100000000")) {
		t.Fatalf("deposited = %s", snap.Deposits[0].DepositedAmount)
	}
	want := decimal.RequireFromString("50000000").Shift(18)
	if !snap.Borrows[0].BorrowedAmountWads.Equal(want) {
		t.Fatalf("borrowed wads = %s, want %s", snap.Borrows[0].BorrowedAmountWads, want)
	}
}

func TestDecodeObligationLengthMismatch(t *testing.T) {
	data := make([]byte, 75)
	data[0] = AccountKindObligation
	data[73] = 2 // claims two deposits, no entry bytes
	if _, err := DecodeObligation("x", data); err == nil {
		t.Fatalf("truncated entry table must fail")
	}
}
