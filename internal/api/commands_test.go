package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/indigolab/indigo-core/internal/bus"
	"github.com/indigolab/indigo-core/internal/control"
	"github.com/indigolab/indigo-core/internal/poller"
	"github.com/indigolab/indigo-core/internal/safety"
)

func TestLaneCommand_ForwardsParams(t *testing.T) {
	env := testServer(t)

	w := doRequest(t, env.srv.buildRouter(), http.MethodPost, "/api/lanes/2/commands/vac_valve", `{"open": true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", w.Code, w.Body.String())
	}

	call := env.cmd.lastCall(t)
	if call.utility || call.addr != 2 || call.name != "vac_valve" {
		t.Errorf("call = %+v, want lane 2 vac_valve", call)
	}
	if call.params["open"] != true {
		t.Errorf("params = %v, want open=true", call.params)
	}

	res := decodeBody[control.Result](t, w)
	if !res.Acked || res.ID != "cmd-1" || res.Address != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestUtilityCommand_EmptyBody(t *testing.T) {
	env := testServer(t)

	w := doRequest(t, env.srv.buildRouter(), http.MethodPost, "/api/utility/commands/stop", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", w.Code, w.Body.String())
	}

	call := env.cmd.lastCall(t)
	if !call.utility || call.name != "stop" || len(call.params) != 0 {
		t.Errorf("call = %+v, want utility stop with no params", call)
	}
}

func TestCommand_InvalidJSON(t *testing.T) {
	env := testServer(t)
	router := env.srv.buildRouter()

	for _, path := range []string{"/api/lanes/1/commands/stir", "/api/utility/commands/vacuum_pump"} {
		w := doRequest(t, router, http.MethodPost, path, `[1,2`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", path, w.Code)
		}
	}
}

func TestCommand_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"unknown lane", fmt.Errorf("%w: 7", control.ErrUnknownLane), http.StatusNotFound, ErrCodeNotFound},
		{"unknown command", fmt.Errorf("%w: %q", control.ErrUnknownCommand, "x"), http.StatusNotFound, ErrCodeNotFound},
		{"invalid parameter", fmt.Errorf("%w: open", control.ErrInvalidParameter), http.StatusBadRequest, ErrCodeBadRequest},
		{"not ready", fmt.Errorf("%w: %s", control.ErrNotReady, safety.ReasonSafeChain), http.StatusConflict, ErrCodeNotReady},
		{"not acknowledged", control.ErrNotAcknowledged, http.StatusBadGateway, ErrCodeNotAcknowledged},
		{"queue full", fmt.Errorf("executing stop: %w", poller.ErrQueueFull), http.StatusServiceUnavailable, ErrCodeUnavailable},
		{"not running", fmt.Errorf("executing stop: %w", poller.ErrNotRunning), http.StatusServiceUnavailable, ErrCodeUnavailable},
		{"no response", fmt.Errorf("executing stop: %w", poller.ErrNoResponse), http.StatusGatewayTimeout, ErrCodeTimeout},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, ErrCodeTimeout},
		{"other", fmt.Errorf("disk on fire"), http.StatusInternalServerError, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testServer(t)
			env.cmd.err = tt.err

			w := doRequest(t, env.srv.buildRouter(), http.MethodPost, "/api/lanes/1/commands/lid", `{"extend": true}`)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if got := decodeBody[Error](t, w); got.Code != tt.wantBody {
				t.Errorf("code = %q, want %q", got.Code, tt.wantBody)
			}
		})
	}
}

// TestCommand_EndToEnd drives the real controller and scheduler over the
// simulator.
func TestCommand_EndToEnd(t *testing.T) {
	env := testServer(t)

	sim := bus.NewSimulator(bus.WithUtilityAddr(9), bus.WithMaxDelay(0))
	sched, err := poller.New(poller.Config{
		LaneAddrs:   []uint8{1, 2},
		UtilityAddr: 9,
		PollHz:      50,
	}, sim, poller.Options{})
	if err != nil {
		t.Fatalf("poller.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sched.Stop() //nolint:errcheck // Test cleanup

	env.srv.registry = sched.Registry()
	env.srv.controller = control.New(sched, sched.Registry())
	router := env.srv.buildRouter()

	deadline := time.Now().Add(2 * time.Second)
	for !safety.Current(sched.Registry()).Ready {
		if time.Now().After(deadline) {
			t.Fatal("system never became ready")
		}
		time.Sleep(10 * time.Millisecond)
	}

	w := doRequest(t, router, http.MethodPost, "/api/lanes/1/commands/stir", `{"on": true, "speed": 300}`)
	if w.Code != http.StatusOK {
		t.Fatalf("stir status = %d, want 200 (%s)", w.Code, w.Body.String())
	}
	if res := decodeBody[control.Result](t, w); !res.Acked || res.ID == "" {
		t.Errorf("result = %+v, want acked with id", res)
	}

	w = doRequest(t, router, http.MethodPost, "/api/lanes/5/commands/stir", `{"on": true}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown lane status = %d, want 404", w.Code)
	}

	w = doRequest(t, router, http.MethodPost, "/api/lanes/1/commands/stir", `{"on": "maybe"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad param status = %d, want 400", w.Code)
	}

	w = doRequest(t, router, http.MethodPost, "/api/utility/commands/stop", "")
	if w.Code != http.StatusOK {
		t.Errorf("utility stop status = %d, want 200", w.Code)
	}
}
