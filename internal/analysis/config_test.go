package analysis

import "testing"

func TestParseScope(t *testing.T) {
	s, err := ParseScope("final", 0)
	if err != nil {
		t.Fatalf("ParseScope(final): %v", err)
	}
	if !s.Final || s.LastN() != 1 || s.Tag() != "final" {
		t.Errorf("final scope = %+v, lastN=%d tag=%s", s, s.LastN(), s.Tag())
	}

	s, err = ParseScope("topn", 3)
	if err != nil {
		t.Fatalf("ParseScope(topn): %v", err)
	}
	if s.Final || s.LastN() != 3 || s.Tag() != "top3" {
		t.Errorf("topn scope = %+v, lastN=%d tag=%s", s, s.LastN(), s.Tag())
	}

	if _, err := ParseScope("topn", 0); err == nil {
		t.Error("topn with n=0 should fail")
	}
	if _, err := ParseScope("weekly", 1); err == nil {
		t.Error("unknown scope kind should fail")
	}
}
