package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/roman-kulish/marker-navigation/internal/flight"
	"github.com/roman-kulish/marker-navigation/internal/nav"
)

func newTestStore(t *testing.T) *SqliteStore {
	t.Helper()

	store := NewSqliteStore(filepath.Join(t.TempDir(), "flight_session.sqlite"))
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})

	return store
}

func ptrFloat(v float64) *float64 { return &v }
func ptrInt(v int64) *int64       { return &v }

func TestSqliteStore_SessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	config := map[string]int{"width": 320, "height": 240}
	id, err := store.CreateSession(ctx, "aruco", "cam0", config)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if id <= 0 {
		t.Fatalf("CreateSession() id = %d, want positive", id)
	}

	session, err := store.Session(ctx, id)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}

	if session.ID != id || session.DetectorType != "aruco" || session.DeviceID != "cam0" {
		t.Errorf("session = %+v", session)
	}
	if session.UUID == "" {
		t.Error("session UUID is empty")
	}
	if session.Config == nil || !strings.Contains(*session.Config, `"width":320`) {
		t.Errorf("session config = %v, want marshaled detector config", session.Config)
	}

	sessions, err := store.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions() error = %v", err)
	}
	if len(sessions) != 1 || sessions[0].UUID != session.UUID {
		t.Errorf("Sessions() = %+v, want the created session", sessions)
	}
}

func TestSqliteStore_StoreRecordsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.CreateSession(ctx, "aruco", "cam0", nil)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	start := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
	first := []flight.Record{
		{
			Timestamp:    start,
			Phase:        nav.PhaseTakeoff,
			TargetID:     1,
			Height:       140,
			TargetHeight: 150,
			Command:      nav.Command{UpDown: 20},
		},
		{
			Timestamp:    start.Add(100 * time.Millisecond),
			Phase:        nav.PhaseAligning,
			TargetID:     1,
			Height:       150,
			TargetHeight: 150,
			MarkerX:      ptrFloat(200),
			MarkerY:      ptrFloat(100),
			MarkerDist:   ptrFloat(100.5),
			Command:      nav.Command{Yaw: -35},
			Battery:      ptrInt(97),
		},
	}

	// A committed batch must report success.
	if err = store.StoreRecords(ctx, id, first); err != nil {
		t.Fatalf("StoreRecords() error = %v", err)
	}

	// The store stays usable for the next flush.
	second := []flight.Record{
		{
			Timestamp:    start.Add(200 * time.Millisecond),
			Phase:        nav.PhaseApproaching,
			TargetID:     2,
			ReachedID:    1,
			MaxID:        3,
			Height:       152,
			TargetHeight: 150,
			MarkerX:      ptrFloat(160),
			MarkerY:      ptrFloat(192),
			MarkerDist:   ptrFloat(0),
			Command:      nav.Command{LeftRight: 15, ForwardBackward: -60},
			Battery:      ptrInt(96),
		},
	}
	if err = store.StoreRecords(ctx, id, second); err != nil {
		t.Fatalf("StoreRecords() error = %v", err)
	}

	reader, err := store.ReadFlight(ctx, id)
	if err != nil {
		t.Fatalf("ReadFlight() error = %v", err)
	}
	defer reader.Close()

	var got []flight.Record
	for reader.Next(ctx) {
		got = append(got, *reader.Current())
	}
	if err = reader.Error(); err != nil {
		t.Fatalf("reader error = %v", err)
	}

	want := append(first, second...)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestSqliteStore_ReadFlightWithoutRecords(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.CreateSession(ctx, "apriltag", "cam1", nil)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if _, err = store.ReadFlight(ctx, id); !errors.Is(err, ErrNoData) {
		t.Errorf("ReadFlight() error = %v, want ErrNoData", err)
	}
}
