package api

import "testing"

func TestNormalizeColumns(t *testing.T) {
	cases := []struct {
		name   string
		in     []string
		sorted bool
		want   []string
	}{
		{"lowercase and trim", []string{"  Age ", "INCOME"}, false, []string{"age", "income"}},
		{"already normalized", []string{"age", "income"}, false, []string{"age", "income"}},
		{"sorted variant", []string{"  Income", "Age "}, true, []string{"age", "income"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeColumns(tc.in, tc.sorted)
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("index %d: got %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestColumnNormalizationCaseAndWhitespaceEquivalence(t *testing.T) {
	a := NormalizeColumns([]string{"  Age", "Income "}, false)
	b := NormalizeColumns([]string{"age", "income"}, false)
	if len(a) != len(b) {
		t.Fatalf("length mismatch: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("index %d differs: %q vs %q", i, a[i], b[i])
		}
	}
}

func TestFitInputValidate_RowCountMismatch(t *testing.T) {
	f := &FitInput{
		XTrainColumns: []string{"age"},
		XTrainRows:    [][]any{{1.0}, {2.0}},
		YTrainColumns: []string{"label"},
		YTrainRows:    [][]any{{1.0}},
	}
	if err := f.Validate(); err == nil {
		t.Fatal("expected validation error for mismatched row counts")
	}
	if _, ok := any(f.Validate()).(error); !ok {
		t.Fatal("expected an error value")
	}
}

func TestFitInputValidate_OK(t *testing.T) {
	f := &FitInput{
		XTrainRows: [][]any{{1.0}, {2.0}},
		YTrainRows: [][]any{{1.0}, {2.0}},
	}
	if err := f.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFitInputNormalize_SortedVariant(t *testing.T) {
	f := &FitInput{
		XTrainColumns: []string{" Income", "Age "},
		Sorted:        true,
	}
	f.Normalize()
	want := []string{"age", "income"}
	for i := range want {
		if f.XTrainColumns[i] != want[i] {
			t.Errorf("index %d: got %q, want %q", i, f.XTrainColumns[i], want[i])
		}
	}
}
