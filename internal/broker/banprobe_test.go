package broker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestProbe(url string) *Probe {
	p := NewProbe("example.test", 2*time.Second)
	p.URL = url
	return p
}

func TestCheckSuspendedHealthyWithUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"usageBreakdownList":[{"currentUsage":42,"usageLimit":500}]}`))
	}))
	defer server.Close()

	res, err := newTestProbe(server.URL).CheckSuspended(context.Background(), "tok-1", "us-east-1")
	if err != nil {
		t.Fatalf("CheckSuspended failed: %v", err)
	}
	if res.Status != SuspensionCleared {
		t.Fatalf("Status = %s, want cleared", res.Status)
	}
	if res.Usage == nil || res.Usage.CurrentUsage != 42 || res.Usage.UsageLimit != 500 {
		t.Fatalf("unexpected usage: %+v", res.Usage)
	}
}

func TestCheckSuspendedForbiddenWithReason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"reason":"TEMPORARILY_SUSPENDED","message":"account is suspended"}`))
	}))
	defer server.Close()

	res, err := newTestProbe(server.URL).CheckSuspended(context.Background(), "tok-1", "us-east-1")
	if err != nil {
		t.Fatalf("CheckSuspended failed: %v", err)
	}
	if res.Status != Suspended {
		t.Fatalf("Status = %s, want suspended", res.Status)
	}
	if res.Reason != "TEMPORARILY_SUSPENDED" {
		t.Fatalf("Reason = %q", res.Reason)
	}
}

func TestCheckSuspendedForbiddenWithBannedReason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"reason":"ACCOUNT_BANNED","message":"access not available"}`))
	}))
	defer server.Close()

	res, err := newTestProbe(server.URL).CheckSuspended(context.Background(), "tok-1", "us-east-1")
	if err != nil {
		t.Fatalf("CheckSuspended failed: %v", err)
	}
	if res.Status != Suspended {
		t.Fatalf("Status = %s, want suspended", res.Status)
	}
	if res.Reason != "ACCOUNT_BANNED" {
		t.Fatalf("Reason = %q", res.Reason)
	}
}

func TestCheckSuspendedForbiddenWithoutMarkerIsUnknown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"missing scope"}`))
	}))
	defer server.Close()

	res, err := newTestProbe(server.URL).CheckSuspended(context.Background(), "tok-1", "us-east-1")
	if err != nil {
		t.Fatalf("CheckSuspended failed: %v", err)
	}
	if res.Status != SuspensionUnknown {
		t.Fatalf("Status = %s, want unknown (no false lockouts)", res.Status)
	}
}

func TestCheckSuspendedUnexpectedStatusIsUnknown(t *testing.T) {
	for _, status := range []int{http.StatusBadGateway, http.StatusTeapot, http.StatusUnauthorized} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		res, err := newTestProbe(server.URL).CheckSuspended(context.Background(), "tok-1", "us-east-1")
		server.Close()
		if err != nil {
			t.Fatalf("status %d: CheckSuspended failed: %v", status, err)
		}
		if res.Status != SuspensionUnknown {
			t.Fatalf("status %d: got %s, want unknown", status, res.Status)
		}
	}
}

func TestCheckSuspendedMalformedOKBodyStillCleared(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`garbage`))
	}))
	defer server.Close()

	res, err := newTestProbe(server.URL).CheckSuspended(context.Background(), "tok-1", "us-east-1")
	if err != nil {
		t.Fatalf("CheckSuspended failed: %v", err)
	}
	if res.Status != SuspensionCleared {
		t.Fatalf("Status = %s, want cleared (200 proves access)", res.Status)
	}
	if res.Usage != nil {
		t.Fatalf("expected no usage figures, got %+v", res.Usage)
	}
}
