package services

import (
	"sync"
	"testing"
	"time"
)

const testWallet = "EQBvW8Z5huBkMJYdnfAEM5JqTNkuWX3diqYENkWsIL0XggGG"

func newTestAdmission() (*AdmissionControl, *time.Time) {
	a := NewAdmissionControl()
	now := time.Now()
	a.now = func() time.Time { return now }
	return a, &now
}

func TestTryAdmitAllowsFirstBet(t *testing.T) {
	a, _ := newTestAdmission()

	d := a.TryAdmit(testWallet, "bet-1", time.Second, 10)
	if !d.Allowed {
		t.Fatalf("first bet should be admitted, got %s", d.Reason)
	}
	if d.Reason != "" {
		t.Errorf("allowed decision should carry no reason, got %s", d.Reason)
	}
}

func TestTryAdmitDeniesPendingBet(t *testing.T) {
	a, now := newTestAdmission()

	a.TryAdmit(testWallet, "bet-1", time.Second, 10)
	*now = now.Add(time.Minute)

	d := a.TryAdmit(testWallet, "bet-2", time.Second, 10)
	if d.Allowed {
		t.Fatal("second bet should be denied while the first is outstanding")
	}
	if d.Reason != DenyPendingBet {
		t.Errorf("expected reason %s, got %s", DenyPendingBet, d.Reason)
	}
}

// Two bets back to back inside the minimum interval: the second is denied
// with the remaining wait and no state change.
func TestTryAdmitDeniesTooSoon(t *testing.T) {
	a, now := newTestAdmission()

	a.TryAdmit(testWallet, "bet-1", 5*time.Second, 10)
	a.Release(testWallet, "bet-1")

	*now = now.Add(2 * time.Second)
	d := a.TryAdmit(testWallet, "bet-2", 5*time.Second, 10)
	if d.Allowed {
		t.Fatal("bet inside the minimum interval should be denied")
	}
	if d.Reason != DenyTooSoon {
		t.Errorf("expected reason %s, got %s", DenyTooSoon, d.Reason)
	}
	if d.RetryAfter != 3*time.Second {
		t.Errorf("expected 3s remaining wait, got %s", d.RetryAfter)
	}

	*now = now.Add(3 * time.Second)
	if d := a.TryAdmit(testWallet, "bet-2", 5*time.Second, 10); !d.Allowed {
		t.Errorf("bet after the interval should be admitted, got %s", d.Reason)
	}
}

func TestTryAdmitRollingWindowCap(t *testing.T) {
	a, now := newTestAdmission()

	for i := 0; i < 3; i++ {
		betID := "bet-" + string(rune('a'+i))
		d := a.TryAdmit(testWallet, betID, 0, 3)
		if !d.Allowed {
			t.Fatalf("bet %d should be admitted, got %s", i, d.Reason)
		}
		a.Release(testWallet, betID)
	}

	d := a.TryAdmit(testWallet, "bet-over", 0, 3)
	if d.Allowed {
		t.Fatal("fourth bet within the window should be denied")
	}
	if d.Reason != DenyRateLimited {
		t.Errorf("expected reason %s, got %s", DenyRateLimited, d.Reason)
	}
	if d.RetryAfter <= 0 || d.RetryAfter > time.Minute {
		t.Errorf("retry-after should be inside the window, got %s", d.RetryAfter)
	}

	// Counter resets once the window timestamp elapses.
	*now = now.Add(61 * time.Second)
	if d := a.TryAdmit(testWallet, "bet-new", 0, 3); !d.Allowed {
		t.Errorf("bet after window reset should be admitted, got %s", d.Reason)
	}
}

func TestReleaseIgnoresStaleBetID(t *testing.T) {
	a, _ := newTestAdmission()

	a.TryAdmit(testWallet, "bet-1", 0, 10)
	a.Release(testWallet, "bet-other")

	if _, ok := a.PendingBet(testWallet); !ok {
		t.Error("release with a stale bet id must not clear the pending slot")
	}

	a.Release(testWallet, "bet-1")
	if _, ok := a.PendingBet(testWallet); ok {
		t.Error("pending slot should be cleared")
	}
}

// check-then-update is one atomic step: of N concurrent attempts exactly
// one wins.
func TestTryAdmitConcurrent(t *testing.T) {
	a := NewAdmissionControl()

	const attempts = 64
	var wg sync.WaitGroup
	admitted := make(chan string, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			betID := "bet-" + string(rune('0'+n%10))
			if d := a.TryAdmit(testWallet, betID, 0, attempts+1); d.Allowed {
				admitted <- betID
			}
		}(i)
	}
	wg.Wait()
	close(admitted)

	count := 0
	for range admitted {
		count++
	}
	if count != 1 {
		t.Errorf("exactly one concurrent admission should win, got %d", count)
	}
}
