package queue

import (
	"encoding/json"
	"testing"
)

func TestRoutingKey(t *testing.T) {
	cases := map[string]string{
		DetailBookingConfirmed: "booking.confirmed",
		DetailReviewCreated:    "review.created",
		"Ping":                 "ping",
	}
	for in, want := range cases {
		if got := RoutingKey(in); got != want {
			t.Errorf("RoutingKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEnvelopeWireShape(t *testing.T) {
	env, err := NewEnvelope(DetailReviewCreated, SourceReview, ReviewCreated{Rating: 3})
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	raw, _ := json.Marshal(env)
	var shaped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &shaped); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"id", "detail_type", "source", "time", "detail"} {
		if _, ok := shaped[k]; !ok {
			t.Errorf("missing %q in %s", k, raw)
		}
	}
	var detail map[string]interface{}
	_ = json.Unmarshal(shaped["detail"], &detail)
	if detail["reviewer_name"] != nil || detail["rating"] != float64(3) {
		t.Fatalf("detail %v", detail)
	}
}
