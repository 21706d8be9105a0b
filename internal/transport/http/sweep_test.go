package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/invizible/bookassist/internal/app"
)

type stubSweeper struct {
	result app.SweepResult
	err    error
	calls  int
	lastIn app.SweepInput
}

func (s *stubSweeper) Sweep(_ context.Context, in app.SweepInput) (app.SweepResult, error) {
	s.calls++
	s.lastIn = in
	return s.result, s.err
}

func TestHandleSweep_Auth(t *testing.T) {
	t.Parallel()

	t.Run("rejects manual calls without the secret", func(t *testing.T) {
		t.Parallel()
		stub := &stubSweeper{}
		handler := HandleSweep(stub, "s3cret")

		req := httptest.NewRequest(http.MethodGet, "/api/sweep", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d", rec.Code)
		}
		if stub.calls != 0 {
			t.Fatalf("sweep ran without authorization")
		}
	})

	t.Run("rejects everything when no secret is configured", func(t *testing.T) {
		t.Parallel()
		handler := HandleSweep(&stubSweeper{}, "")

		req := httptest.NewRequest(http.MethodGet, "/api/sweep?secret=anything", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("accepts the secret as a query parameter", func(t *testing.T) {
		t.Parallel()
		stub := &stubSweeper{}
		handler := HandleSweep(stub, "s3cret")

		req := httptest.NewRequest(http.MethodGet, "/api/sweep?secret=s3cret", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if stub.calls != 1 {
			t.Fatalf("sweep calls = %d", stub.calls)
		}
	})

	t.Run("accepts the secret as a header", func(t *testing.T) {
		t.Parallel()
		stub := &stubSweeper{}
		handler := HandleSweep(stub, "s3cret")

		req := httptest.NewRequest(http.MethodPost, "/api/sweep", nil)
		req.Header.Set(SweepSecretHeader, "s3cret")
		rec := httptest.NewRecorder()
		handler(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("trusts the platform cron header", func(t *testing.T) {
		t.Parallel()
		stub := &stubSweeper{}
		handler := HandleSweep(stub, "s3cret")

		req := httptest.NewRequest(http.MethodGet, "/api/sweep", nil)
		req.Header.Set(CronTriggerHeader, "1")
		rec := httptest.NewRecorder()
		handler(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if stub.calls != 1 {
			t.Fatalf("sweep calls = %d", stub.calls)
		}
	})
}

func TestHandleSweep_Params(t *testing.T) {
	t.Parallel()

	t.Run("defaults applied when absent", func(t *testing.T) {
		t.Parallel()
		stub := &stubSweeper{}
		handler := HandleSweep(stub, "s3cret")

		req := httptest.NewRequest(http.MethodGet, "/api/sweep?secret=s3cret", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		in := stub.lastIn
		if in.Limit != 1000 || in.SinceDays != 1 || in.HorizonDays != 60 {
			t.Fatalf("defaults = %+v", in)
		}
		if in.DryRun {
			t.Fatalf("dryRun defaulted to true")
		}
	})

	t.Run("explicit values pass through including zero", func(t *testing.T) {
		t.Parallel()
		stub := &stubSweeper{}
		handler := HandleSweep(stub, "s3cret")

		req := httptest.NewRequest(http.MethodGet,
			"/api/sweep?secret=s3cret&dryRun=1&limit=25&sinceDays=0&horizonDays=7&calendarId=ops@example.com&sendUpdates=all", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		in := stub.lastIn
		if !in.DryRun || in.Limit != 25 || in.SinceDays != 0 || in.HorizonDays != 7 {
			t.Fatalf("input = %+v", in)
		}
		if in.CalendarID != "ops@example.com" || in.SendUpdates != "all" {
			t.Fatalf("input = %+v", in)
		}
	})

	t.Run("explicit zero limit and horizon clamp to one", func(t *testing.T) {
		t.Parallel()
		stub := &stubSweeper{}
		handler := HandleSweep(stub, "s3cret")

		req := httptest.NewRequest(http.MethodGet,
			"/api/sweep?secret=s3cret&limit=0&horizonDays=0&sinceDays=-3", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		in := stub.lastIn
		if in.Limit != 1 || in.HorizonDays != 1 || in.SinceDays != 0 {
			t.Fatalf("input = %+v", in)
		}
	})

	t.Run("malformed numbers fall back to defaults", func(t *testing.T) {
		t.Parallel()
		stub := &stubSweeper{}
		handler := HandleSweep(stub, "s3cret")

		req := httptest.NewRequest(http.MethodGet, "/api/sweep?secret=s3cret&limit=lots&sinceDays=x", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		if stub.lastIn.Limit != 1000 || stub.lastIn.SinceDays != 1 {
			t.Fatalf("input = %+v", stub.lastIn)
		}
	})
}

func TestHandleSweep_MethodNotAllowed(t *testing.T) {
	t.Parallel()
	handler := HandleSweep(&stubSweeper{}, "s3cret")

	req := httptest.NewRequest(http.MethodDelete, "/api/sweep", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}
