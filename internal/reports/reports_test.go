package reports

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const planningTSV = "sku\tproduct-name\tavailable\tunits-shipped-t90\tsales-shipped-last-90-days\trecommended-ship-in-quantity\n" +
	"SKU-1\tGarlic Salt\t12\t90\t1,234.50\t60\n" +
	"\tno sku\t1\t1\t1\t1\n" +
	"SKU-2\tHoney BBQ\tx\t0\t\t5\n"

func newAPIServer(t *testing.T, statuses []string, gz bool) (*httptest.Server, *int) {
	t.Helper()
	polls := 0
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("POST /reports/2021-06-30/reports", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-amz-access-token") != "token" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		var body struct {
			ReportType     string   `json:"reportType"`
			MarketplaceIDs []string `json:"marketplaceIds"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.ReportType != TypeFBAPlanning || len(body.MarketplaceIDs) != 1 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"reportId": "R1"})
	})
	mux.HandleFunc("GET /reports/2021-06-30/reports/R1", func(w http.ResponseWriter, r *http.Request) {
		st := statuses[min(polls, len(statuses)-1)]
		polls++
		rep := Report{ReportID: "R1", ProcessingStatus: st}
		if st == StatusDone {
			rep.ReportDocumentID = "D1"
		}
		_ = json.NewEncoder(w).Encode(rep)
	})
	mux.HandleFunc("GET /reports/2021-06-30/documents/D1", func(w http.ResponseWriter, r *http.Request) {
		d := Document{ReportDocumentID: "D1", URL: srv.URL + "/download/D1"}
		if gz {
			d.CompressionAlgorithm = "GZIP"
		}
		_ = json.NewEncoder(w).Encode(d)
	})
	mux.HandleFunc("GET /download/D1", func(w http.ResponseWriter, r *http.Request) {
		if !gz {
			_, _ = w.Write([]byte(planningTSV))
			return
		}
		zw := gzip.NewWriter(w)
		_, _ = zw.Write([]byte(planningTSV))
		_ = zw.Close()
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &polls
}

func TestFetcher_FetchPlanning(t *testing.T) {
	for _, gz := range []bool{false, true} {
		srv, polls := newAPIServer(t, []string{StatusInQueue, StatusInProgress, StatusDone}, gz)
		client := NewClient(srv.URL, "token", "ATVPDKIKX0DER", srv.Client())
		tracker := NewMemTracker()
		seen := map[string]int{}
		poller := NewPoller(client, time.Millisecond, 5, nil)
		poller.OnPoll(func(s string) { seen[s]++ })
		f := NewFetcher(client, tracker, poller, 24*time.Hour, nil)

		rows, err := f.FetchPlanning(context.Background())
		if err != nil {
			t.Fatalf("gzip=%v: unexpected error: %v", gz, err)
		}
		if len(rows) != 2 {
			t.Fatalf("gzip=%v: rows = %d, want 2", gz, len(rows))
		}
		if rows[0].SalesT90.String() != "1234.5" || rows[0].RecommendedQty != 60 {
			t.Errorf("row 0 = %+v", rows[0])
		}
		if rows[1].Available != 0 {
			t.Errorf("malformed available = %d, want 0", rows[1].Available)
		}
		if *polls != 3 || seen[StatusDone] != 1 {
			t.Errorf("polls = %d, seen = %v", *polls, seen)
		}

		// второй вызов берёт отчёт из журнала без нового опроса
		if _, err := f.FetchPlanning(context.Background()); err != nil {
			t.Fatalf("second fetch: %v", err)
		}
		if *polls != 3 {
			t.Errorf("recent report should be reused, polls = %d", *polls)
		}
	}
}

type fakeStatus struct {
	statuses []string
	calls    int
	err      error
}

func (f *fakeStatus) GetReport(context.Context, string) (Report, error) {
	f.calls++
	if f.err != nil {
		return Report{}, f.err
	}
	return Report{ReportID: "R1", ProcessingStatus: f.statuses[min(f.calls-1, len(f.statuses)-1)]}, nil
}

func TestPoller_Wait(t *testing.T) {
	tests := []struct {
		name      string
		api       *fakeStatus
		wantErr   error
		wantCalls int
	}{
		{"done", &fakeStatus{statuses: []string{StatusInQueue, StatusDone}}, nil, 2},
		{"timeout", &fakeStatus{statuses: []string{StatusInProgress}}, ErrReportTimeout, 3},
		{"fatal", &fakeStatus{statuses: []string{StatusInQueue, StatusFatal}}, ErrReportFailed, 2},
		{"throttled", &fakeStatus{err: &APIError{Status: http.StatusTooManyRequests}}, ErrReportTimeout, 3},
		{"forbidden", &fakeStatus{err: &APIError{Status: http.StatusForbidden}}, nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPoller(tt.api, time.Millisecond, 3, nil)
			_, err := p.Wait(context.Background(), "R1")
			switch {
			case tt.name == "forbidden":
				var apiErr *APIError
				if !errors.As(err, &apiErr) {
					t.Errorf("error = %v, want APIError", err)
				}
			case tt.wantErr == nil && err != nil:
				t.Errorf("unexpected error: %v", err)
			case tt.wantErr != nil && !errors.Is(err, tt.wantErr):
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.api.calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", tt.api.calls, tt.wantCalls)
			}
		})
	}
}

func TestPoller_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewPoller(&fakeStatus{statuses: []string{StatusInQueue}}, time.Millisecond, 3, nil)
	if _, err := p.Wait(ctx, "R1"); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestMemTracker_FindRecent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemTracker()
	_ = m.Log(ctx, Record{ReportID: "OLD", ReportType: TypeFBAPlanning, Status: StatusDone, DocumentID: "D0", CreatedAt: now.Add(-48 * time.Hour)})
	_ = m.Log(ctx, Record{ReportID: "NEW", ReportType: TypeFBAPlanning, Status: StatusInQueue, CreatedAt: now.Add(-time.Hour)})

	since := now.Add(-24 * time.Hour)
	if rec, _ := m.FindRecent(ctx, TypeFBAPlanning, since); rec != nil {
		t.Fatalf("unfinished and stale reports should not be reused, got %+v", rec)
	}
	_ = m.UpdateStatus(ctx, "NEW", StatusDone, "D1")
	rec, _ := m.FindRecent(ctx, TypeFBAPlanning, since)
	if rec == nil || rec.DocumentID != "D1" {
		t.Errorf("FindRecent = %+v, want NEW/D1", rec)
	}
	if rec, _ := m.FindRecent(ctx, "OTHER", since); rec != nil {
		t.Errorf("other report type matched: %+v", rec)
	}
}

func TestParseTSV(t *testing.T) {
	data := []byte("\ufeffSKU\tRecommended Ship-In Quantity\n A-1 \t7\nB-2\n")
	rows, err := ParseTSV(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0]["sku"] != "A-1" || rows[0]["recommendedshipinquantity"] != "7" {
		t.Errorf("row 0 = %v", rows[0])
	}
	if rows[1]["recommendedshipinquantity"] != "" {
		t.Errorf("short row = %v", rows[1])
	}
	if empty, err := ParseTSV(nil); err != nil || empty != nil {
		t.Errorf("ParseTSV(nil) = %v, %v", empty, err)
	}
}
