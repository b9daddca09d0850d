package registry

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/indigolab/indigo-core/internal/device"
)

func newTestRegistry(t *testing.T) (*Registry, *Writer) {
	t.Helper()
	r, w, err := New([]uint8{1, 2, 3}, 9)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r, w
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		lanes   []uint8
		utility uint8
	}{
		{name: "duplicate lane", lanes: []uint8{1, 2, 1}, utility: 9},
		{name: "utility is a lane", lanes: []uint8{1, 9}, utility: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := New(tt.lanes, tt.utility)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("New() error = %v, want %v", err, ErrInvalidConfig)
			}
		})
	}
}

func TestLaneSnapshot_Unpolled(t *testing.T) {
	r, _ := newTestRegistry(t)

	want := []LaneEntry{{Address: 1}, {Address: 2}, {Address: 3}}
	if diff := cmp.Diff(want, r.LaneSnapshot()); diff != "" {
		t.Errorf("LaneSnapshot() mismatch (-want +got):\n%s", diff)
	}

	u := r.UtilitySnapshot()
	if diff := cmp.Diff(UtilityEntry{Address: 9}, u); diff != "" {
		t.Errorf("UtilitySnapshot() mismatch (-want +got):\n%s", diff)
	}
	if r.Utility() != nil {
		t.Error("Utility() should be nil before first poll")
	}
}

func TestRecordLane(t *testing.T) {
	r, w := newTestRegistry(t)
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	st := device.LaneStatus{Address: 2, Online: true, ErrorStatus: 4, ThermalTempC: 21.5}
	if err := w.RecordLane(st, ts); err != nil {
		t.Fatalf("RecordLane() error = %v", err)
	}

	es := uint8(4)
	want := []LaneEntry{
		{Address: 1},
		{Address: 2, Online: true, ErrorStatus: &es, Status: &st, LastSeen: &ts},
		{Address: 3},
	}
	if diff := cmp.Diff(want, r.LaneSnapshot()); diff != "" {
		t.Errorf("LaneSnapshot() mismatch (-want +got):\n%s", diff)
	}

	got, err := r.Lane(2)
	if err != nil {
		t.Fatalf("Lane(2) error = %v", err)
	}
	if got.Status == nil || got.Status.ThermalTempC != 21.5 {
		t.Errorf("Lane(2).Status = %+v, want thermal 21.5", got.Status)
	}
}

func TestRecord_UnknownAddress(t *testing.T) {
	r, w := newTestRegistry(t)
	ts := time.Now()

	if err := w.RecordLane(device.LaneStatus{Address: 7, Online: true}, ts); !errors.Is(err, ErrUnknownAddress) {
		t.Errorf("RecordLane(7) error = %v, want %v", err, ErrUnknownAddress)
	}
	if err := w.RecordLane(device.LaneStatus{Address: 9, Online: true}, ts); !errors.Is(err, ErrUnknownAddress) {
		t.Errorf("RecordLane(utility addr) error = %v, want %v", err, ErrUnknownAddress)
	}
	if err := w.RecordUtility(device.UtilityStatus{Address: 1, Online: true}, ts); !errors.Is(err, ErrUnknownAddress) {
		t.Errorf("RecordUtility(1) error = %v, want %v", err, ErrUnknownAddress)
	}
	if _, err := r.Lane(9); !errors.Is(err, ErrUnknownAddress) {
		t.Errorf("Lane(9) error = %v, want %v", err, ErrUnknownAddress)
	}

	for _, e := range r.LaneSnapshot() {
		if e.Online {
			t.Errorf("lane %d should not be online", e.Address)
		}
	}
}

func TestRecordUtility(t *testing.T) {
	r, w := newTestRegistry(t)
	ts := time.Now()

	st := device.UtilityStatus{Address: 9, Online: true, SafeChainOK: true}
	if err := w.RecordUtility(st, ts); err != nil {
		t.Fatalf("RecordUtility() error = %v", err)
	}

	got := r.Utility()
	if got == nil || !got.SafeChainOK {
		t.Fatalf("Utility() = %+v, want safe chain OK", got)
	}

	// Mutating the returned copy must not leak into the registry.
	got.SafeChainOK = false
	if !r.Utility().SafeChainOK {
		t.Error("Utility() returned shared state")
	}

	u := r.UtilitySnapshot()
	if !u.Online || u.ErrorStatus == nil || *u.ErrorStatus != 0 || u.LastSeen == nil {
		t.Errorf("UtilitySnapshot() = %+v", u)
	}
}

func TestRecord_LastSeenNeverDecreases(t *testing.T) {
	r, w := newTestRegistry(t)
	t1 := time.Date(2026, 1, 1, 0, 0, 10, 0, time.UTC)
	t0 := t1.Add(-5 * time.Second)

	if err := w.RecordLane(device.LaneStatus{Address: 1, Online: true}, t1); err != nil {
		t.Fatal(err)
	}
	if err := w.RecordLane(device.LaneStatus{Address: 1, Online: true, ErrorStatus: 1}, t0); err != nil {
		t.Fatal(err)
	}

	e, _ := r.Lane(1)
	if !e.LastSeen.Equal(t1) {
		t.Errorf("LastSeen = %v, want %v", e.LastSeen, t1)
	}
	if *e.ErrorStatus != 1 {
		t.Errorf("ErrorStatus = %d, want latest status to be kept", *e.ErrorStatus)
	}

	if err := w.RecordUtility(device.UtilityStatus{Address: 9, Online: true}, t1); err != nil {
		t.Fatal(err)
	}
	if err := w.RecordUtility(device.UtilityStatus{Address: 9, Online: true}, t0); err != nil {
		t.Fatal(err)
	}
	if u := r.UtilitySnapshot(); !u.LastSeen.Equal(t1) {
		t.Errorf("utility LastSeen = %v, want %v", u.LastSeen, t1)
	}
}

func TestSnapshot_IsIsolated(t *testing.T) {
	r, w := newTestRegistry(t)
	if err := w.RecordLane(device.LaneStatus{Address: 1, Online: true}, time.Now()); err != nil {
		t.Fatal(err)
	}

	snap := r.LaneSnapshot()
	snap[0].Status.ErrorStatus = 99
	*snap[0].ErrorStatus = 99

	e, _ := r.Lane(1)
	if *e.ErrorStatus != 0 || e.Status.ErrorStatus != 0 {
		t.Error("snapshot mutation leaked into registry")
	}

	addrs := r.LaneAddrs()
	addrs[0] = 42
	if !r.IsLane(1) || r.LaneAddrs()[0] != 1 {
		t.Error("LaneAddrs() returned shared slice")
	}
}

func TestRegistry_ConcurrentReaders(t *testing.T) {
	r, w := newTestRegistry(t)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				for _, e := range r.LaneSnapshot() {
					if e.Online && e.Status == nil {
						t.Error("online entry without status")
						return
					}
				}
				_ = r.UtilitySnapshot()
			}
		}()
	}

	base := time.Now()
	for i := range 500 {
		addr := uint8(i%3 + 1)
		_ = w.RecordLane(device.LaneStatus{Address: addr, Online: true, StirSpeedCmd: uint16(i)}, base.Add(time.Duration(i)))
		_ = w.RecordUtility(device.UtilityStatus{Address: 9, Online: true}, base.Add(time.Duration(i)))
	}
	close(stop)
	wg.Wait()

	for _, e := range r.LaneSnapshot() {
		if !e.Online {
			t.Errorf("lane %d offline after writes", e.Address)
		}
	}
}

func TestWriter_Registry(t *testing.T) {
	r, w := newTestRegistry(t)
	if w.Registry() != r {
		t.Error("Writer.Registry() does not return its registry")
	}
	if r.UtilityAddr() != 9 {
		t.Errorf("UtilityAddr() = %d, want 9", r.UtilityAddr())
	}
}
