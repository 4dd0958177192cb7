package postgres

import (
	"testing"
)

func TestNewEventSink_RequiresPool(t *testing.T) {
	if _, err := NewEventSink(nil, nil); err == nil {
		t.Fatal("expected error for nil pool")
	}
}

func TestMarshalFields_EmptyMapIsEmptyObject(t *testing.T) {
	got, err := marshalFields(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "{}" {
		t.Errorf("got %s, want {}", got)
	}
}

func TestMarshalFields_UnmarshalableValueErrors(t *testing.T) {
	_, err := marshalFields(map[string]any{"bad": make(chan int)})
	if err == nil {
		t.Fatal("expected marshal error")
	}
}
