package rpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	domrepo "LendPulse/internal/domain/repository"
)

// The client is shared across the scanner, queue workers and HTTP handlers,
// so concurrent calls must not trample the request id counter.
func TestConcurrentCallsAssignUniqueIDs(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})

	var mu sync.Mutex
	seen := make(map[int64]int)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID int64 `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		mu.Lock()
		seen[req.ID]++
		mu.Unlock()
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"result":{"context":{"slot":7},"value":{"data":[%q,"base64"],"owner":"o","lamports":1}}}`, req.ID, payload)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, domrepo.CommitmentConfirmed, time.Second, 10000)

	const workers = 8
	const calls = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				b, slot, err := c.GetAccountInfo(context.Background(), "Acc1111111111111111111111111111111111111111")
				if err != nil {
					t.Errorf("GetAccountInfo: %v", err)
					return
				}
				if slot != 7 || len(b) != 3 {
					t.Errorf("slot = %d, payload len = %d", slot, len(b))
					return
				}
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != workers*calls {
		t.Fatalf("expected %d distinct request ids, got %d", workers*calls, len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("request id %d reused %d times", id, n)
		}
	}
}
