package horizonclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}

func TestStreamPayments_ParsesEventsAndSkipsKeepAlives(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": comment to ignore\n\n")
		fmt.Fprint(w, "data: \"hello\"\n\n")
		fmt.Fprint(w, "id: 101\ndata: {\"id\":\"op1\",\"paging_token\":\"101\",\"type\":\"payment\",\"amount\":\"50\"}\n\n")
		fmt.Fprint(w, "id: 102\ndata: {\"id\":\"op2\",\"paging_token\":\"102\",\"type\":\"payment\",\"amount\":\"25\"}\n\n")
		fmt.Fprint(w, "data: \"byebye\"\n\n")
		w.(http.Flusher).Flush()
		// Keep the connection open so the test observes a single read, not
		// reconnect behavior.
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(server.URL)
	var mu sync.Mutex
	var records []PaymentRecord
	stop := client.StreamPayments(context.Background(), "GTEST", "", func(record PaymentRecord) {
		mu.Lock()
		records = append(records, record)
		mu.Unlock()
	}, nil)
	defer stop()

	if !waitFor(2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(records) == 2
	}) {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	mu.Lock()
	defer mu.Unlock()
	if records[0].ID != "op1" || records[1].ID != "op2" {
		t.Fatalf("unexpected records %+v", records)
	}
	if records[1].PagingToken != "102" {
		t.Fatalf("expected paging token 102, got %q", records[1].PagingToken)
	}
}

func TestStreamPayments_ReconnectsWithLastEventID(t *testing.T) {
	var mu sync.Mutex
	var cursors []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		cursors = append(cursors, r.URL.Query().Get("cursor"))
		connection := len(cursors)
		mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		if connection == 1 {
			// First connection delivers one event, then drops.
			fmt.Fprint(w, "id: 7\ndata: {\"id\":\"op7\",\"paging_token\":\"7\"}\n\n")
			return
		}
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(server.URL)
	stop := client.StreamPayments(context.Background(), "GTEST", "", func(PaymentRecord) {}, nil)
	defer stop()

	if !waitFor(5*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(cursors) >= 2
	}) {
		t.Fatal("stream never reconnected")
	}

	mu.Lock()
	defer mu.Unlock()
	if cursors[0] != "" {
		t.Fatalf("expected first connect without cursor, got %q", cursors[0])
	}
	if cursors[1] != "7" {
		t.Fatalf("expected reconnect to resume from id 7, got %q", cursors[1])
	}
}

func TestStreamAccount_SignalsWithoutPayloadInspection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"sequence\":\"1\"}\n\n")
		fmt.Fprint(w, "data: {\"sequence\":\"2\"}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(server.URL)
	var mu sync.Mutex
	updates := 0
	stop := client.StreamAccount(context.Background(), "GTEST", func() {
		mu.Lock()
		updates++
		mu.Unlock()
	}, nil)
	defer stop()

	if !waitFor(2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return updates == 2
	}) {
		t.Fatalf("expected 2 updates, got %d", updates)
	}

	// Stop must end the subscription; no further updates arrive.
	stop()
	mu.Lock()
	settled := updates
	mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if updates != settled {
		t.Fatal("expected no updates after stop")
	}
}
