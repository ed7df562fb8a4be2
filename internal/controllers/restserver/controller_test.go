package restserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/JashanChopra/Summit/internal/database"
	"github.com/JashanChopra/Summit/internal/standards"
	"github.com/JashanChopra/Summit/internal/testsupport"
	"github.com/JashanChopra/Summit/pkg/config"
)

func fptr(v float64) *float64 { return &v }

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }

func newTestController(t *testing.T) (*Controller, *database.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t)
	ctrl, err := NewController(context.Background(), &sync.WaitGroup{}, store, config.RESTServerData{}, testsupport.Logger(t))
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return ctrl, store
}

func get(t *testing.T, ctrl *Controller, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ctrl.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func seedMasterCal(t *testing.T, store *database.Store) (database.MasterCal, []database.CalEvent) {
	t.Helper()
	ctx := context.Background()

	var events []database.CalEvent
	for i, cat := range standards.Standards() {
		ev := database.CalEvent{EpochMs: int64(i+1) * 180_000, StandardUsed: cat, Points: 121, BackPeriod: 21}
		ev.SetResult(standards.CO, database.Result{Mean: fptr(70 + float64(i)), Median: fptr(70)})
		if err := store.CreateCalEvent(ctx, &ev, nil); err != nil {
			t.Fatal(err)
		}
		events = append(events, ev)
	}

	mc := database.MasterCal{EpochMs: events[0].EpochMs, LowCalID: events[0].ID, HighCalID: events[1].ID, MidCalID: events[2].ID}
	if err := store.CreateMasterCal(ctx, &mc); err != nil {
		t.Fatal(err)
	}
	mc.SetCurve(standards.CO, database.CurveFit{Slope: fptr(0.997), Intercept: fptr(0.4)})
	mc.Fitted = true
	if err := store.SaveMasterCalCurve(ctx, &mc); err != nil {
		t.Fatal(err)
	}
	return mc, events
}

func TestGetStatus(t *testing.T) {
	ctrl, store := newTestController(t)
	testsupport.SeedData(t, store, testsupport.Run(1, 0, 3, 100, 410, 1900))

	rec := get(t, ctrl, "/api/v1/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}

	var resp StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Counts.Data != 3 || resp.Counts.Files != 1 || resp.Version == "" {
		t.Fatalf("unexpected status %+v", resp)
	}
}

func TestGetCalEvents(t *testing.T) {
	ctrl, store := newTestController(t)
	_, events := seedMasterCal(t, store)

	rec := get(t, ctrl, "/api/v1/calevents?standard=high_std")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp []CalEventResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 1 || resp[0].ID != events[1].ID || resp[0].StandardUsed != "high_std" {
		t.Fatalf("unexpected events %+v", resp)
	}
	co := resp[0].Results["co"]
	if co.Mean == nil || *co.Mean != 71 || co.Stdev != nil {
		t.Fatalf("unexpected co result %+v", co)
	}
	if resp[0].Results["ch4"].Mean != nil {
		t.Fatal("unset ch4 mean should be null")
	}

	rec = get(t, ctrl, "/api/v1/calevents?limit=2")
	resp = nil
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 2 || resp[0].ID != events[2].ID {
		t.Fatalf("expected the two newest events, got %+v", resp)
	}
}

func TestGetCalEventByID(t *testing.T) {
	ctrl, store := newTestController(t)
	mc, events := seedMasterCal(t, store)

	rec := get(t, ctrl, "/api/v1/calevents/"+itoa(events[0].ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp CalEventResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.MasterCalID == nil || *resp.MasterCalID != mc.ID {
		t.Fatalf("expected link to master calibration %d, got %v", mc.ID, resp.MasterCalID)
	}

	if rec := get(t, ctrl, "/api/v1/calevents/999"); rec.Code != http.StatusNotFound {
		t.Fatalf("missing event status = %d, want 404", rec.Code)
	}
}

func TestGetMasterCalsMsgpack(t *testing.T) {
	ctrl, store := newTestController(t)
	mc, _ := seedMasterCal(t, store)

	rec := get(t, ctrl, "/api/v1/mastercals?format=msgpack")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-msgpack" {
		t.Fatalf("content type = %q", ct)
	}

	var resp []MasterCalResponse
	dec := msgpack.NewDecoder(rec.Body)
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 1 || resp[0].ID != mc.ID || !resp[0].Fitted {
		t.Fatalf("unexpected master calibrations %+v", resp)
	}
	co := resp[0].Curves["co"]
	if co.Slope == nil || *co.Slope != 0.997 || co.MiddleOffset != nil {
		t.Fatalf("unexpected co curve %+v", co)
	}

	if rec := get(t, ctrl, "/api/v1/mastercals/"+itoa(mc.ID)); rec.Code != http.StatusOK {
		t.Fatalf("single master calibration status = %d", rec.Code)
	}
}

func TestBadRequests(t *testing.T) {
	ctrl, _ := newTestController(t)

	tests := []struct {
		target string
		want   int
	}{
		{"/api/v1/calevents?limit=-1", http.StatusBadRequest},
		{"/api/v1/calevents?limit=ten", http.StatusBadRequest},
		{"/api/v1/calevents?standard=ambient", http.StatusBadRequest},
		{"/api/v1/mastercals?limit=x", http.StatusBadRequest},
		{"/api/v1/mastercals/12", http.StatusNotFound},
		{"/api/v1/files", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if rec := get(t, ctrl, tt.target); rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRejectsWrites(t *testing.T) {
	ctrl, store := newTestController(t)
	seedMasterCal(t, store)
	ctx := context.Background()

	before, err := store.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		t.Run(method, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ctrl.Server.Handler.ServeHTTP(rec, httptest.NewRequest(method, "/api/v1/calevents", nil))
			if rec.Code != http.StatusMethodNotAllowed {
				t.Fatalf("status = %d, want 405", rec.Code)
			}
			if allow := rec.Header().Get("Allow"); allow != http.MethodGet {
				t.Fatalf("Allow = %q", allow)
			}
		})
	}

	after, err := store.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if before != after {
		t.Fatalf("counts changed from %+v to %+v", before, after)
	}
}

func TestGetCalEventData(t *testing.T) {
	ctrl, store := newTestController(t)
	ctx := context.Background()

	data := testsupport.SeedData(t, store, testsupport.Run(2, 60_000, 3, 69.6, 390.24, 1838.5))
	testsupport.SeedData(t, store, testsupport.Run(1, 0, 2, 100, 410, 1900))
	ids := make([]uint, 0, len(data))
	for _, d := range data {
		ids = append(ids, d.ID)
	}
	ev := database.CalEvent{EpochMs: 62_000, StartEpochMs: 60_000, StandardUsed: standards.LowStd, Points: 3}
	if err := store.CreateCalEvent(ctx, &ev, ids); err != nil {
		t.Fatal(err)
	}

	rec := get(t, ctrl, "/api/v1/calevents/"+itoa(ev.ID)+"/data")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp []DatumResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 3 {
		t.Fatalf("expected 3 member measurements, got %+v", resp)
	}
	for i, d := range resp {
		if d.Timestamp != 60_000+int64(i)*1000 || d.MPVPosition != 2 || d.CO != 69.6 {
			t.Fatalf("unexpected measurement %d: %+v", i, d)
		}
	}

	if rec := get(t, ctrl, "/api/v1/calevents/999/data"); rec.Code != http.StatusNotFound {
		t.Fatalf("missing event status = %d, want 404", rec.Code)
	}
}
