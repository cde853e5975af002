package app

import (
	"testing"

	"github.com/stellawallet/wallet-service/internal/domain"
)

func TestAppendStatus_FiltersIncomplete(t *testing.T) {
	timeline := AppendStatus(nil, domain.StatusIncomplete, "waiting on user")
	if len(timeline) != 0 {
		t.Fatalf("expected incomplete to be filtered, got %d entries", len(timeline))
	}
}

func TestAppendStatus_TitleCasesWireStatus(t *testing.T) {
	timeline := AppendStatus(nil, "pending_anchor", "processing")
	if len(timeline) != 1 {
		t.Fatalf("expected one entry, got %d", len(timeline))
	}
	if timeline[0].Status != "Pending Anchor" {
		t.Fatalf("expected Title Case status, got %q", timeline[0].Status)
	}
}

func TestAppendStatus_DeduplicatesByValue(t *testing.T) {
	timeline := AppendStatus(nil, "pending_anchor", "processing")
	timeline = AppendStatus(timeline, "pending_anchor", "processing")
	if len(timeline) != 1 {
		t.Fatalf("expected redelivered observation to be dropped, got %d entries", len(timeline))
	}

	// Same status with a different message is a distinct observation.
	timeline = AppendStatus(timeline, "pending_anchor", "still processing")
	if len(timeline) != 2 {
		t.Fatalf("expected new message to append, got %d entries", len(timeline))
	}
}

func TestAppendStatus_PreservesOrder(t *testing.T) {
	var timeline []domain.StatusEvent
	for _, s := range []string{"incomplete", "pending_user_transfer_start", "pending_anchor", "completed"} {
		timeline = AppendStatus(timeline, s, "")
	}
	want := []string{"Pending User Transfer Start", "Pending Anchor", "Completed"}
	if len(timeline) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(timeline))
	}
	for i, status := range want {
		if timeline[i].Status != status {
			t.Fatalf("entry %d: expected %q, got %q", i, status, timeline[i].Status)
		}
	}
}

func TestSnakeToTitleCase(t *testing.T) {
	cases := map[string]string{
		"completed":      "Completed",
		"pending_anchor": "Pending Anchor",
		"no_market":      "No Market",
		"":               "",
	}
	for in, want := range cases {
		if got := SnakeToTitleCase(in); got != want {
			t.Fatalf("SnakeToTitleCase(%q) = %q, want %q", in, got, want)
		}
	}
}
