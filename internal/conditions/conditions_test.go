package conditions

import (
	"net/http"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/telship/internal/domain"
)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func TestValue_NotifiesOnChange(t *testing.T) {
	v := NewConsentProvider(domain.ConsentPending)

	var got []string
	v.Subscribe(func(old, new domain.Consent) {
		got = append(got, old.String()+"->"+new.String())
	})

	v.Set(domain.ConsentPending)
	v.Set(domain.ConsentGranted)
	v.Set(domain.ConsentGranted)
	v.Set(domain.ConsentNotGranted)

	want := []string{"pending->granted", "granted->not_granted"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("notifications = %v, want %v", got, want)
	}
	if v.Current() != domain.ConsentNotGranted {
		t.Errorf("Current() = %v", v.Current())
	}
}

func TestValue_ConcurrentSetKeepsTransitionChain(t *testing.T) {
	v := NewValue(0)

	var mu sync.Mutex
	last := 0
	broken := false
	v.Subscribe(func(old, new int) {
		mu.Lock()
		defer mu.Unlock()
		if old != last {
			broken = true
		}
		last = new
	})

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			v.Set(n)
		}(i)
	}
	wg.Wait()

	if broken {
		t.Error("observer saw a transition whose old value was not the previous new value")
	}
	if last != v.Current() {
		t.Errorf("last notified = %d, Current() = %d", last, v.Current())
	}
}

func TestMinLevelBatteryPolicy(t *testing.T) {
	policy := MinLevelBatteryPolicy(0.1)

	tests := []struct {
		name   string
		status domain.BatteryStatus
		want   bool
	}{
		{"unknown", domain.BatteryStatus{State: domain.BatteryUnknown, LowPowerMode: true}, true},
		{"charging low", domain.BatteryStatus{State: domain.BatteryCharging, Level: 0.01}, true},
		{"full", domain.BatteryStatus{State: domain.BatteryFull, Level: 1}, true},
		{"unplugged ok", domain.BatteryStatus{State: domain.BatteryUnplugged, Level: 0.5}, true},
		{"unplugged at threshold", domain.BatteryStatus{State: domain.BatteryUnplugged, Level: 0.1}, true},
		{"unplugged low", domain.BatteryStatus{State: domain.BatteryUnplugged, Level: 0.05}, false},
		{"low power mode", domain.BatteryStatus{State: domain.BatteryCharging, Level: 0.9, LowPowerMode: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy(tt.status); got != tt.want {
				t.Errorf("policy(%+v) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestUploadConditions_Blockers(t *testing.T) {
	consent := NewConsentProvider(domain.ConsentGranted)
	battery := NewBatteryProvider()
	network := NewNetworkProvider()
	conds := NewUploadConditions(consent, battery, network, nil, nil)

	if !conds.OK() {
		t.Fatalf("Blockers() = %v, want none", conds.Blockers())
	}

	consent.Set(domain.ConsentPending)
	network.Set(domain.NetworkInfo{Reachability: domain.ReachabilityNo})
	battery.Set(domain.BatteryStatus{State: domain.BatteryUnplugged, Level: 0.02})

	want := []Blocker{BlockedByConsent, BlockedByNetwork, BlockedByBattery}
	if got := conds.Blockers(); !reflect.DeepEqual(got, want) {
		t.Errorf("Blockers() = %v, want %v", got, want)
	}
	if conds.ConsentGranted() {
		t.Error("ConsentGranted() = true with pending consent")
	}
}

func TestUploadConditions_NilProvidersAllow(t *testing.T) {
	conds := NewUploadConditions(NewConsentProvider(domain.ConsentGranted), nil, nil, nil, nil)
	if !conds.OK() {
		t.Errorf("Blockers() = %v, want none", conds.Blockers())
	}
}

func TestServerDateCorrector(t *testing.T) {
	local := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewServerDateCorrector(fixedClock(local))

	if c.CurrentCorrection().ServerTimeOffset != 0 {
		t.Fatal("initial offset should be zero")
	}

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Date", local.Add(90*time.Second).Format(http.TimeFormat))
	c.ObserveResponse(resp)
	if got := c.CurrentCorrection().ServerTimeOffset; got != 90*time.Second {
		t.Errorf("offset = %v, want 90s", got)
	}

	bad := &http.Response{Header: http.Header{}}
	bad.Header.Set("Date", "yesterday")
	c.ObserveResponse(bad)
	c.ObserveResponse(nil)
	if got := c.CurrentCorrection().ServerTimeOffset; got != 90*time.Second {
		t.Errorf("offset after bad headers = %v, want unchanged 90s", got)
	}
}

func TestStaticDateCorrector(t *testing.T) {
	c := StaticDateCorrector{Offset: time.Minute}
	if c.CurrentCorrection().ServerTimeOffset != time.Minute {
		t.Error("static offset not returned")
	}
}
