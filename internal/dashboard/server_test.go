package dashboard

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/memeyard/internal/moderation"
	"github.com/zulandar/memeyard/internal/models"
	"github.com/zulandar/memeyard/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeReader struct {
	mu      sync.Mutex
	counts  moderation.Counts
	subs    []models.Submission
	err     error
	queries []store.SubmissionQuery
}

func (f *fakeReader) CountByStatus(owner string) (moderation.Counts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := moderation.Counts{}
	for k, v := range f.counts {
		out[k] = v
	}
	return out, f.err
}

func (f *fakeReader) FindSubmissions(q store.SubmissionQuery) ([]models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.subs, f.err
}

func (f *fakeReader) set(s models.Status, n int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[s] = n
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	h.ServeHTTP(w, req)
	return w
}

func TestStart_NilStore(t *testing.T) {
	err := Start(context.Background(), StartOpts{})
	if err == nil {
		t.Fatal("expected error for nil store")
	}
	if !strings.Contains(err.Error(), "store is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "store is required")
	}
}

func TestHealthz(t *testing.T) {
	w := get(t, newRouter(&fakeReader{}, nil), "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestSummary(t *testing.T) {
	r := &fakeReader{counts: moderation.Counts{
		models.StatusUploaded: 4,
		models.StatusApproved: 2,
		models.StatusPosted:   9,
	}}
	w := get(t, newRouter(r, nil), "/api/summary")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got Summary
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := Summary{Total: 15, Uploaded: 4, Approved: 2, Posted: 9}
	if got != want {
		t.Errorf("summary = %+v, want %+v", got, want)
	}
}

func TestSummary_StoreError(t *testing.T) {
	w := get(t, newRouter(&fakeReader{err: errors.New("db down")}, nil), "/api/summary")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestSubmissions(t *testing.T) {
	name := "alice"
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	r := &fakeReader{subs: []models.Submission{
		{ID: "s1", Link: "https://img.example/1.png", Status: models.StatusApproved, CreatedAt: at,
			User: &models.User{ID: "u1", DisplayName: &name}},
		{ID: "s2", Link: "https://img.example/2.png", Status: models.StatusApproved, CreatedAt: at},
	}}
	w := get(t, newRouter(r, nil), "/api/submissions?status=approved&limit=5")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var body struct {
		Status      string          `json:"status"`
		Submissions []SubmissionRow `json:"submissions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "approved" || len(body.Submissions) != 2 {
		t.Fatalf("body = %+v", body)
	}
	if body.Submissions[0].Author != "alice" || body.Submissions[1].Author != "deleted account" {
		t.Errorf("authors = %q, %q", body.Submissions[0].Author, body.Submissions[1].Author)
	}
	q := r.queries[0]
	if q.Status != models.StatusApproved || q.Limit != 5 || q.Sort != moderation.SortNewest {
		t.Errorf("query = %+v", q)
	}
}

func TestSubmissions_Defaults(t *testing.T) {
	r := &fakeReader{}
	w := get(t, newRouter(r, nil), "/api/submissions")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	q := r.queries[0]
	if q.Status != models.StatusUploaded || q.Limit != defaultLimit {
		t.Errorf("query = %+v, want uploaded with the default limit", q)
	}
	if !strings.Contains(w.Body.String(), `"submissions":[]`) {
		t.Errorf("body = %s, want an empty list", w.Body.String())
	}
}

func TestSubmissions_BadRequest(t *testing.T) {
	router := newRouter(&fakeReader{}, nil)
	for _, path := range []string{
		"/api/submissions?status=deleted",
		"/api/submissions?limit=0",
		"/api/submissions?limit=many",
		fmt.Sprintf("/api/submissions?limit=%d", maxLimit+1),
	} {
		if w := get(t, router, path); w.Code != http.StatusBadRequest {
			t.Errorf("GET %s = %d, want 400", path, w.Code)
		}
	}
}

func TestMetricsHandler(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "memeyard_events_total 3\n")
	})
	w := get(t, newRouter(&fakeReader{}, metrics), "/metrics")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "memeyard_events_total") {
		t.Errorf("GET /metrics = %d %q", w.Code, w.Body.String())
	}
}

func TestMetricsDefaultRegistry(t *testing.T) {
	w := get(t, newRouter(&fakeReader{}, nil), "/metrics")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Errorf("GET /metrics = %d, want the default registry", w.Code)
	}
}

func TestSSE_PushesCountsOnChange(t *testing.T) {
	r := &fakeReader{counts: moderation.Counts{models.StatusUploaded: 1}}
	router := gin.New()
	router.GET("/api/events", handleSSE(r, 20*time.Millisecond))
	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	var events, data []string
	for scanner.Scan() && len(data) < 3 {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			events = append(events, strings.TrimPrefix(line, "event: "))
		case strings.HasPrefix(line, "data: "):
			data = append(data, strings.TrimPrefix(line, "data: "))
			if len(data) == 2 {
				r.set(models.StatusUploaded, 2)
			}
		}
	}

	want := []string{"connected", "counts", "counts"}
	if strings.Join(events, ",") != strings.Join(want, ",") {
		t.Fatalf("events = %v, want %v", events, want)
	}
	if !strings.Contains(data[1], `"uploaded":1`) || !strings.Contains(data[2], `"uploaded":2`) {
		t.Errorf("data = %v", data)
	}
}

func TestWriteSSE(t *testing.T) {
	var b strings.Builder
	writeSSE(&b, "counts", Summary{Total: 1})
	want := "event: counts\ndata: {\"total\":1,\"uploaded\":0,\"approved\":0,\"rejected\":0,\"posted\":0}\n\n"
	if b.String() != want {
		t.Errorf("writeSSE = %q, want %q", b.String(), want)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestStart_ServesAndShutsDown(t *testing.T) {
	port := freePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	var out strings.Builder
	errCh := make(chan error, 1)
	go func() {
		errCh <- Start(ctx, StartOpts{Store: &fakeReader{}, Port: port, Out: &out})
	}()

	url := fmt.Sprintf("http://127.0.0.1:%d/healthz", port)
	deadline := time.Now().Add(3 * time.Second)
	var resp *http.Response
	var err error
	for time.Now().Before(deadline) {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		cancel()
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	if !strings.Contains(out.String(), fmt.Sprintf("Dashboard running at http://localhost:%d", port)) {
		t.Errorf("output = %q", out.String())
	}
}
