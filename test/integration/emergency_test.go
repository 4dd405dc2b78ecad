package integration

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vitacare/portal/internal/domain/emergency"
	"github.com/vitacare/portal/internal/platform/db"
	"github.com/vitacare/portal/internal/platform/notification"
	"github.com/vitacare/portal/internal/platform/pubsub"
	"github.com/vitacare/portal/internal/platform/websocket"
)

const testChannel = "dispatch_events_it"

// startRemoteInstance listens on the notify channel as a second server
// would, and returns a client subscribed to topic on that instance's hub.
func startRemoteInstance(t *testing.T, ctx context.Context, local *pubsub.Bus, topic string) *websocket.Client {
	t.Helper()
	hub := websocket.NewHub(zerolog.Nop())
	remote := pubsub.NewBus(globalDB.Pool, hub, testChannel, zerolog.Nop())
	go func() { _ = remote.Listen(ctx, globalDB.DSN) }()

	ping := websocket.NewClient()
	hub.Register(ping)
	hub.Subscribe(ping, []string{"ping"})
	defer hub.Unregister(ping)

	deadline := time.Now().Add(10 * time.Second)
	for {
		evt, _ := websocket.NewEvent("ping", "ping", "Ping", "", nil)
		if err := local.Publish(ctx, evt); err != nil {
			t.Fatalf("publish ping: %v", err)
		}
		select {
		case <-ping.Send:
			client := websocket.NewClient()
			hub.Register(client)
			hub.Subscribe(client, []string{topic})
			return client
		case <-time.After(200 * time.Millisecond):
		}
		if time.Now().After(deadline) {
			t.Fatal("remote listener never connected")
		}
	}
}

func TestEmergencyDispatchToArrival(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool := globalDB.Pool
	pt := createTestPatient(t, ctx, "Lena")

	bus := pubsub.NewBus(pool, websocket.NewHub(zerolog.Nop()), testChannel, zerolog.Nop())
	remote := startRemoteInstance(t, ctx, bus, notification.PatientTopic(pt.ID))

	repo := emergency.NewRepoPG(pool)
	tx := db.Transactor(pool)
	engine := emergency.NewEngine(repo, tx, bus, nil, emergency.EngineConfig{Tick: 20 * time.Millisecond, Step: 0.25}, zerolog.Nop())
	defer engine.Shutdown(context.Background())
	svc := emergency.NewService(repo, tx, engine, emergency.Coordinate{Latitude: 40.7128, Longitude: -74.006}, zerolog.Nop())

	r, err := svc.Create(ctx, pt.ID, emergency.RequestDraft{Type: "cardiac", GeolocationDenied: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !r.LocationApproximate || r.Latitude != 40.7128 {
		t.Errorf("expected fallback location, got %+v", r)
	}

	// The remote instance sees the request progress to arrival.
	arrived := false
	timeout := time.After(10 * time.Second)
	for !arrived {
		select {
		case raw := <-remote.Send:
			var evt websocket.Event
			if err := json.Unmarshal(raw, &evt); err != nil {
				t.Fatalf("decode relayed event: %v", err)
			}
			var tr emergency.Tracking
			if err := json.Unmarshal(evt.Data, &tr); err != nil {
				t.Fatalf("decode tracking: %v", err)
			}
			arrived = evt.Type == emergency.EventStatus && tr.Status == emergency.StatusArrived
		case <-timeout:
			t.Fatal("no arrival event relayed")
		}
	}

	got, err := svc.Get(ctx, pt.ID, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != emergency.StatusArrived {
		t.Errorf("expected arrived, got %s", got.Status)
	}

	history, err := svc.History(ctx, pt.ID, r.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) < 2 || history[0].Status != emergency.StatusRequested || history[len(history)-1].Status != emergency.StatusArrived {
		t.Fatalf("unexpected history %+v", history)
	}
	for i := 1; i < len(history); i++ {
		if history[i].ChangedAt.Before(history[i-1].ChangedAt) {
			t.Errorf("history out of order at %d", i)
		}
	}

	if _, err := svc.Cancel(ctx, pt.ID, r.ID); !errors.Is(err, emergency.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition cancelling an arrived request, got %v", err)
	}
}

func TestEmergencyCancelAndResume(t *testing.T) {
	ctx := context.Background()
	pool := globalDB.Pool
	pt := createTestPatient(t, ctx, "Ivo")
	repo := emergency.NewRepoPG(pool)
	tx := db.Transactor(pool)
	hub := websocket.NewHub(zerolog.Nop())

	// An hour-long tick keeps the request in flight for the whole test.
	slow := emergency.EngineConfig{Tick: time.Hour, Step: 0.01}
	first := emergency.NewEngine(repo, tx, hub, nil, slow, zerolog.Nop())
	svc := emergency.NewService(repo, tx, first, emergency.Coordinate{Latitude: 1, Longitude: 1}, zerolog.Nop())
	lat, lng := 52.52, 13.405
	r, err := svc.Create(ctx, pt.ID, emergency.RequestDraft{Type: "breathing", Latitude: &lat, Longitude: &lng})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := first.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	// A restarted instance picks the request up again.
	second := emergency.NewEngine(repo, tx, hub, nil, slow, zerolog.Nop())
	defer second.Shutdown(ctx)
	if _, err := second.Resume(ctx); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if second.Active() == 0 {
		t.Fatal("expected the open request to be tracked after resume")
	}

	got, err := second.Cancel(ctx, r.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != emergency.StatusCancelled {
		t.Errorf("expected cancelled, got %s", got.Status)
	}
	stored, err := repo.GetByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != emergency.StatusCancelled || stored.LocationApproximate {
		t.Errorf("unexpected stored request %+v", stored)
	}
}

func TestEmergencyCancelOnAnotherInstance(t *testing.T) {
	ctx := context.Background()
	pool := globalDB.Pool
	pt := createTestPatient(t, ctx, "Tove")
	repo := emergency.NewRepoPG(pool)
	tx := db.Transactor(pool)
	hub := websocket.NewHub(zerolog.Nop())

	cfg := emergency.EngineConfig{Tick: 20 * time.Millisecond, Step: 0.02}
	a := emergency.NewEngine(repo, tx, hub, nil, cfg, zerolog.Nop())
	defer a.Shutdown(ctx)
	b := emergency.NewEngine(repo, tx, hub, nil, cfg, zerolog.Nop())
	defer b.Shutdown(ctx)

	svc := emergency.NewService(repo, tx, a, emergency.Coordinate{Latitude: 1, Longitude: 1}, zerolog.Nop())
	r, err := svc.Create(ctx, pt.ID, emergency.RequestDraft{Type: "stroke"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := b.Resume(ctx); err != nil {
		t.Fatalf("resume on b: %v", err)
	}
	if _, _, tracked := b.Live(r.ID); tracked {
		t.Fatal("second instance took a request held by the first")
	}

	if _, err := b.Cancel(ctx, r.ID); err != nil {
		t.Fatalf("cancel on b: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for a.Active() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("tracker on a kept running after cancellation")
		}
		time.Sleep(10 * time.Millisecond)
	}

	got, err := repo.GetByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != emergency.StatusCancelled {
		t.Fatalf("expected cancelled to stick, got %s", got.Status)
	}
	history, err := repo.History(ctx, r.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if last := history[len(history)-1].Status; last != emergency.StatusCancelled {
		t.Errorf("status recorded after cancellation: %s", last)
	}
	if err := repo.UpdateStatus(ctx, r.ID, emergency.StatusArrived, 1); !errors.Is(err, emergency.ErrInvalidTransition) {
		t.Errorf("expected the guarded update to refuse a cancelled request, got %v", err)
	}
}
