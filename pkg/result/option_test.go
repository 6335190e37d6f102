package result

import "testing"

func TestOptionBasics(t *testing.T) {
	s := Some(10)
	if !s.IsSome() || s.IsNone() {
		t.Error("Some reported wrong variant")
	}
	if got := s.UnwrapOr(0); got != 10 {
		t.Errorf("expected 10, got %d", got)
	}

	n := None[int]()
	if n.IsSome() || !n.IsNone() {
		t.Error("None reported wrong variant")
	}
	if got := n.UnwrapOr(7); got != 7 {
		t.Errorf("expected default 7, got %d", got)
	}
	if got := n.UnwrapOrElse(func() int { return 9 }); got != 9 {
		t.Errorf("expected computed default 9, got %d", got)
	}
}

func TestFromPtr(t *testing.T) {
	v := 3
	if got := FromPtr(&v).UnwrapOr(0); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
	if FromPtr[int](nil).IsSome() {
		t.Error("nil pointer must produce None")
	}
}

func TestMapOptSkipsNone(t *testing.T) {
	called := false
	out := MapOpt(None[int](), func(v int) int {
		called = true
		return v
	})
	if called || out.IsSome() {
		t.Error("MapOpt ran on None")
	}

	if got := MapOpt(Some(2), func(v int) int { return v * 2 }).UnwrapOr(0); got != 4 {
		t.Errorf("expected 4, got %d", got)
	}
}

func TestAndThenOptShortCircuits(t *testing.T) {
	called := false
	out := AndThenOpt(None[int](), func(v int) Option[string] {
		called = true
		return Some("x")
	})
	if called || out.IsSome() {
		t.Error("AndThenOpt ran on None")
	}
}

func TestOkOr(t *testing.T) {
	r := None[string]().OkOr(New("missing"))
	if !r.IsErr() || r.Error().RootCause() != "missing" {
		t.Errorf("expected missing error, got %v", r)
	}
	if got := Some("v").OkOr(New("missing")).UnwrapOr(""); got != "v" {
		t.Errorf("expected v, got %q", got)
	}

	r2 := None[string]().OkOrElse(func() *AppError { return New("computed") })
	if !r2.IsErr() || r2.Error().RootCause() != "computed" {
		t.Errorf("expected computed error, got %v", r2)
	}
}

func TestFilter(t *testing.T) {
	if Some(4).Filter(func(v int) bool { return v > 10 }).IsSome() {
		t.Error("failing predicate must yield None")
	}
	if !Some(40).Filter(func(v int) bool { return v > 10 }).IsSome() {
		t.Error("passing predicate must keep the value")
	}
}

func TestToPtr(t *testing.T) {
	p := Some(5).ToPtr()
	if p == nil || *p != 5 {
		t.Errorf("unexpected pointer: %v", p)
	}
	if None[int]().ToPtr() != nil {
		t.Error("None must convert to nil pointer")
	}
}

func TestMatchOpt(t *testing.T) {
	got := MatchOpt(Some(1),
		func(v int) string { return "some" },
		func() string { return "none" })
	if got != "some" {
		t.Errorf("expected some branch, got %q", got)
	}

	got = MatchOpt(None[int](),
		func(v int) string { return "some" },
		func() string { return "none" })
	if got != "none" {
		t.Errorf("expected none branch, got %q", got)
	}
}

func TestCollectOptions(t *testing.T) {
	all := CollectOptions([]Option[int]{Some(1), Some(2)})
	if got, ok := all.Unwrap(); !ok || len(got) != 2 || got[1] != 2 {
		t.Errorf("unexpected collected values: %v", got)
	}

	if CollectOptions([]Option[int]{Some(1), None[int]()}).IsSome() {
		t.Error("a None must collapse the collection")
	}
}
