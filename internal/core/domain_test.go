package core

import (
	"errors"
	"testing"
)

func TestComplaintValidate(t *testing.T) {
	cases := []struct {
		c   Complaint
		err error
	}{
		{Complaint{State: "CO", Count: 1}, nil},
		{Complaint{State: "CO", Count: 0}, nil},
		{Complaint{State: "  ", Count: 1}, ErrEmptyState},
		{Complaint{State: "CO", Count: -1}, ErrNegativeCount},
	}
	for i, tc := range cases {
		err := tc.c.Validate()
		if !errors.Is(err, tc.err) {
			t.Fatalf("case %d expected %v, got %v", i, tc.err, err)
		}
	}
}

func TestSnapshotRequire(t *testing.T) {
	s := &Snapshot{Present: map[Column]bool{ColState: true, ColCount: true}}
	if err := s.Require(ColState, ColCount); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	err := s.Require(ColProduct, ColState, ColTimely)
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if len(se.Missing) != 2 || se.Missing[0] != ColProduct || se.Missing[1] != ColTimely {
		t.Fatalf("unexpected missing columns: %v", se.Missing)
	}
	if se.Error() != "missing columns: product, timely" {
		t.Fatalf("unexpected message: %s", se.Error())
	}

	var nilSnap *Snapshot
	if nilSnap.Len() != 0 || nilSnap.Has(ColState) || nilSnap.States() != nil {
		t.Fatalf("nil snapshot should behave as empty")
	}
}

func TestSnapshotStatesFirstAppearance(t *testing.T) {
	s := &Snapshot{Records: []Complaint{{State: "CO"}, {State: "TX"}, {State: "CO"}, {State: "AZ"}}}
	got := s.States()
	want := []string{"CO", "TX", "AZ"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestPercentage(t *testing.T) {
	cases := []struct {
		num, den int64
		out      string
	}{
		{3, 5, "60.00"},
		{1, 3, "33.33"},
		{2, 3, "66.67"},
		{0, 4, "0.00"},
		{0, 0, NotAvailable},
	}
	for _, tc := range cases {
		if got := NewPercentage(tc.num, tc.den).String(); got != tc.out {
			t.Fatalf("%d/%d expected %s, got %s", tc.num, tc.den, tc.out, got)
		}
	}
	b, err := NewPercentage(0, 0).MarshalText()
	if err != nil || string(b) != NotAvailable {
		t.Fatalf("expected N/A text, got %q (err=%v)", b, err)
	}
}

func TestTreeNodeLeafSum(t *testing.T) {
	n := TreeNode{Name: "CO", Value: 5, Children: []TreeNode{
		{Name: "A", Value: 3, Children: []TreeNode{{Name: "x", Value: 1}, {Name: "y", Value: 2}}},
		{Name: "B", Value: 2, Children: []TreeNode{{Name: NoSubIssueLabel, Value: 2}}},
	}}
	if n.LeafSum() != 5 {
		t.Fatalf("expected 5, got %d", n.LeafSum())
	}
	if _, ok := n.Find("B"); !ok {
		t.Fatalf("expected child B")
	}
	if _, ok := n.Find("Z"); ok {
		t.Fatalf("unexpected child Z")
	}
}
