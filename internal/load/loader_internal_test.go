package load

import "testing"

func TestNormalizePhone(t *testing.T) {
	if got := normalizePhone(" +7 (925) 123-45.67 "); got != "+79251234567" {
		t.Fatalf("unexpected normalization result: %q", got)
	}
	// Letters survive so that validation reports them.
	if got := normalizePhone("12ab"); got != "12ab" {
		t.Fatalf("unexpected normalization result: %q", got)
	}
}
