package verifier

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const (
	origHeader  = "id,title,organizer_primary\n"
	splitHeader = "id,title,organizer_primary_email,organizer_primary_country,organizer_primary_lastName,organizer_primary_firstName,organizer_primary_affiliation\n"
	sampleBlob  = `"{""email"":""a@x.com"",""country"":""US"",""lastName"":""Doe"",""firstName"":""J"",""affiliation"":""Acme""}"`
)

func mustLoad(t *testing.T, name, body string) *Dataset {
	t.Helper()
	ds, err := Load(name, strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to load %s: %v", name, err)
	}
	return ds
}

func TestCompareScenarios(t *testing.T) {
	t.Run("LosslessSplit", func(t *testing.T) {
		orig := mustLoad(t, "orig.csv", origHeader+"1,Talk,"+sampleBlob+"\n")
		updated := mustLoad(t, "new.csv", splitHeader+"1,Talk,a@x.com,US,Doe,J,Acme\n")

		summary, diffs, err := Compare(orig, updated, DefaultOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(diffs) != 0 {
			t.Fatalf("expected no diffs, got %+v", diffs)
		}
		if Evaluate(summary, diffs) != OutcomeClean {
			t.Fatalf("expected clean outcome, got %v", Evaluate(summary, diffs))
		}
		wantKeys := []string{"affiliation", "country", "email", "firstName", "lastName"}
		if d := cmp.Diff(wantKeys, summary.SeenBlobKeys); d != "" {
			t.Errorf("seen keys mismatch (-want +got):\n%s", d)
		}
		if d := cmp.Diff([]string{"id", "title"}, summary.SharedColsCompared); d != "" {
			t.Errorf("shared cols mismatch (-want +got):\n%s", d)
		}
		if len(summary.NewSplitCols) != 5 {
			t.Errorf("expected 5 split cols, got %v", summary.NewSplitCols)
		}
	})

	t.Run("MismatchedSplitValue", func(t *testing.T) {
		orig := mustLoad(t, "orig.csv", origHeader+"1,Talk,"+sampleBlob+"\n")
		updated := mustLoad(t, "new.csv", splitHeader+"1,Talk,b@x.com,US,Doe,J,Acme\n")

		summary, diffs, err := Compare(orig, updated, DefaultOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []Diff{{ID: "1", Field: "organizer_primary_email", Original: "a@x.com", New: "b@x.com"}}
		if d := cmp.Diff(want, diffs); d != "" {
			t.Fatalf("diffs mismatch (-want +got):\n%s", d)
		}
		if Evaluate(summary, diffs) != OutcomeFieldDiffs {
			t.Fatalf("expected field diffs outcome")
		}
	})

	t.Run("AbsentBlobWithPopulatedSplit", func(t *testing.T) {
		orig := mustLoad(t, "orig.csv", origHeader+"1,Talk,\n")
		updated := mustLoad(t, "new.csv", splitHeader+"1,Talk,a@x.com,,,,\n")

		_, diffs, err := Compare(orig, updated, DefaultOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []Diff{{ID: "1", Field: "organizer_primary_email", Original: "", New: "a@x.com"}}
		if d := cmp.Diff(want, diffs); d != "" {
			t.Fatalf("diffs mismatch (-want +got):\n%s", d)
		}
	})

	t.Run("AbsentBlobWithoutSplitColumns", func(t *testing.T) {
		orig := mustLoad(t, "orig.csv", origHeader+"1,Talk,\n")
		updated := mustLoad(t, "new.csv", "id,title\n1,Talk\n")

		_, diffs, err := Compare(orig, updated, DefaultOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(diffs) != 0 {
			t.Fatalf("expected no diffs, got %+v", diffs)
		}
	})

	t.Run("MissingIdentifier", func(t *testing.T) {
		orig := mustLoad(t, "orig.csv", origHeader+"1,Talk,"+sampleBlob+"\n2,Other,\n")
		updated := mustLoad(t, "new.csv", splitHeader+"1,Talk,a@x.com,US,Doe,J,Acme\n")

		summary, diffs, err := Compare(orig, updated, DefaultOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.MissingInNewCount != 1 {
			t.Fatalf("expected 1 missing id, got %d", summary.MissingInNewCount)
		}
		if d := cmp.Diff([]string{"2"}, summary.MissingInNewSample); d != "" {
			t.Errorf("missing sample mismatch (-want +got):\n%s", d)
		}
		if Evaluate(summary, diffs) != OutcomeIDSetsDiffer {
			t.Fatalf("expected id sets differ outcome, got %v", Evaluate(summary, diffs))
		}
	})

	t.Run("UnexpectedBlobKey", func(t *testing.T) {
		blob := `"{""email"":""a@x.com"",""country"":""US"",""lastName"":""Doe"",""firstName"":""J"",""affiliation"":""Acme"",""phone"":""555""}"`
		orig := mustLoad(t, "orig.csv", origHeader+"1,Talk,"+blob+"\n2,Other,"+sampleBlob+"\n")
		updated := mustLoad(t, "new.csv", splitHeader+"1,Talk,a@x.com,US,Doe,J,Acme\n2,Other,a@x.com,US,Doe,J,Acme\n")

		summary, diffs, err := Compare(orig, updated, DefaultOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.UnexpectedBlobKeyRows != 1 {
			t.Fatalf("expected 1 unexpected key row, got %d", summary.UnexpectedBlobKeyRows)
		}
		if len(diffs) != 0 {
			t.Fatalf("extra key must not produce diffs, got %+v", diffs)
		}
		found := false
		for _, k := range summary.SeenBlobKeys {
			if k == "phone" {
				found = true
			}
		}
		if !found {
			t.Errorf("expected phone in seen keys: %v", summary.SeenBlobKeys)
		}
	})
}

func TestCompareBlobEdges(t *testing.T) {
	t.Run("NonObjectBlob", func(t *testing.T) {
		orig := mustLoad(t, "orig.csv", origHeader+"1,Talk,\"[1,2]\"\n")
		updated := mustLoad(t, "new.csv", splitHeader+"1,Talk,,,,,\n")

		_, diffs, err := Compare(orig, updated, DefaultOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []Diff{{ID: "1", Field: "organizer_primary", Original: "[1, 2]", New: MarkerNonObjectBlob}}
		if d := cmp.Diff(want, diffs); d != "" {
			t.Fatalf("diffs mismatch (-want +got):\n%s", d)
		}
	})

	t.Run("MissingSplitColumn", func(t *testing.T) {
		orig := mustLoad(t, "orig.csv", origHeader+"1,Talk,"+sampleBlob+"\n")
		updated := mustLoad(t, "new.csv", "id,title,organizer_primary_email,organizer_primary_country,organizer_primary_lastName,organizer_primary_firstName\n1,Talk,a@x.com,US,Doe,J\n")

		_, diffs, err := Compare(orig, updated, DefaultOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []Diff{{ID: "1", Field: "organizer_primary_affiliation", Original: "Acme", New: MarkerMissingColumn}}
		if d := cmp.Diff(want, diffs); d != "" {
			t.Fatalf("diffs mismatch (-want +got):\n%s", d)
		}
	})

	t.Run("BlobMissingExpectedKey", func(t *testing.T) {
		blob := `"{""email"":""a@x.com""}"`
		orig := mustLoad(t, "orig.csv", origHeader+"1,Talk,"+blob+"\n")
		updated := mustLoad(t, "new.csv", splitHeader+"1,Talk,a@x.com,,,,\n")

		_, diffs, err := Compare(orig, updated, DefaultOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(diffs) != 0 {
			t.Fatalf("absent keys compare as empty, got %+v", diffs)
		}
	})

	t.Run("ScalarBlobValues", func(t *testing.T) {
		blob := `"{""email"":true,""country"":1.0,""lastName"":{""a"":1},""firstName"":1.50,""affiliation"":null}"`
		orig := mustLoad(t, "orig.csv", origHeader+"1,Talk,"+blob+"\n")
		updated := mustLoad(t, "new.csv", splitHeader+"1,Talk,True,1.0,{'a': 1},1.5,\n")

		_, diffs, err := Compare(orig, updated, DefaultOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(diffs) != 0 {
			t.Fatalf("expected no diffs, got %+v", diffs)
		}
	})

	t.Run("SingleQuotedBlob", func(t *testing.T) {
		blob := `"{'email':'a@x.com','country':'US','lastName':'Doe','firstName':'J','affiliation':'Acme'}"`
		orig := mustLoad(t, "orig.csv", origHeader+"1,Talk,"+blob+"\n")
		updated := mustLoad(t, "new.csv", splitHeader+"1,Talk,a@x.com,US,Doe,J,Acme\n")

		_, diffs, err := Compare(orig, updated, DefaultOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(diffs) != 0 {
			t.Fatalf("expected no diffs, got %+v", diffs)
		}
	})

	t.Run("UnparseableBlobIsFatal", func(t *testing.T) {
		orig := mustLoad(t, "orig.csv", origHeader+"1,Talk,{broken\n")
		updated := mustLoad(t, "new.csv", splitHeader+"1,Talk,,,,,\n")

		summary, diffs, err := Compare(orig, updated, DefaultOptions())
		if !errors.Is(err, ErrBlobParse) {
			t.Fatalf("expected ErrBlobParse, got %v", err)
		}
		if summary != nil || diffs != nil {
			t.Fatal("fatal errors must not produce a partial report")
		}
		if !strings.Contains(err.Error(), "orig.csv") || !strings.Contains(err.Error(), "id=1") {
			t.Errorf("error lacks context: %v", err)
		}
	})
}

func TestCompareDuplicateIDs(t *testing.T) {
	orig := mustLoad(t, "orig.csv", origHeader+"1,Talk,\n1,Again,\n")
	updated := mustLoad(t, "new.csv", splitHeader+"1,Talk,,,,,\n")

	_, diffs, err := Compare(orig, updated, DefaultOptions())
	if !errors.Is(err, ErrDuplicateIDs) {
		t.Fatalf("expected ErrDuplicateIDs, got %v", err)
	}
	if len(diffs) != 0 {
		t.Fatalf("expected zero diffs, got %d", len(diffs))
	}
}

func TestCompareSharedColumns(t *testing.T) {
	orig := mustLoad(t, "orig.csv", "id,title,room,organizer_primary\n1,Talk,A,\n2,Panel,B,\n")
	updated := mustLoad(t, "new.csv", "id,title,room,extra\n1,Talk!,A,z\n2,Panel,C,z\n3,New,D,z\n")

	summary, diffs, err := Compare(orig, updated, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Diff{
		{ID: "1", Field: "title", Original: "Talk", New: "Talk!"},
		{ID: "2", Field: "room", Original: "B", New: "C"},
	}
	if d := cmp.Diff(want, diffs); d != "" {
		t.Fatalf("diffs mismatch (-want +got):\n%s", d)
	}
	if summary.ExtraInNewCount != 1 || summary.ExtraInNewSample[0] != "3" {
		t.Errorf("unexpected extra ids: %+v", summary)
	}
	if d := cmp.Diff([]string{"id", "title", "room"}, summary.SharedColsCompared); d != "" {
		t.Errorf("shared cols mismatch (-want +got):\n%s", d)
	}
}

// manyDiffs builds n rows that each differ in title and email.
func manyDiffs(t *testing.T, n int) (*Dataset, *Dataset) {
	t.Helper()
	var ob, nb strings.Builder
	ob.WriteString(origHeader)
	nb.WriteString(splitHeader)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&ob, "%03d,Talk,%s\n", i, sampleBlob)
		fmt.Fprintf(&nb, "%03d,Changed,z@x.com,US,Doe,J,Acme\n", i)
	}
	return mustLoad(t, "orig.csv", ob.String()), mustLoad(t, "new.csv", nb.String())
}

func TestCompareMaxDiffs(t *testing.T) {
	orig, updated := manyDiffs(t, 20)

	t.Run("CapIsExact", func(t *testing.T) {
		opts := DefaultOptions()
		opts.MaxDiffs = 5
		_, diffs, err := Compare(orig, updated, opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(diffs) != 5 {
			t.Fatalf("expected 5 diffs, got %d", len(diffs))
		}
		if diffs[0].ID != "000" || diffs[1].Field != "organizer_primary_email" {
			t.Errorf("unexpected order: %+v", diffs[:2])
		}
	})

	t.Run("Monotonic", func(t *testing.T) {
		prev := []Diff{}
		for _, max := range []int{1, 3, 10, 50} {
			opts := DefaultOptions()
			opts.MaxDiffs = max
			_, diffs, err := Compare(orig, updated, opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d := cmp.Diff(prev, diffs[:len(prev)]); d != "" {
				t.Fatalf("max=%d dropped earlier diffs (-want +got):\n%s", max, d)
			}
			prev = diffs
		}
		if len(prev) != 40 {
			t.Fatalf("expected all 40 diffs under a large cap, got %d", len(prev))
		}
	})

	t.Run("NonPositiveUsesDefault", func(t *testing.T) {
		opts := DefaultOptions()
		opts.MaxDiffs = 0
		_, diffs, err := Compare(orig, updated, opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(diffs) != 40 {
			t.Fatalf("expected 40 diffs, got %d", len(diffs))
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		s1, d1, err1 := Compare(orig, updated, DefaultOptions())
		s2, d2, err2 := Compare(orig, updated, DefaultOptions())
		if err1 != nil || err2 != nil {
			t.Fatalf("unexpected errors: %v %v", err1, err2)
		}
		if d := cmp.Diff(s1, s2); d != "" {
			t.Errorf("summaries differ:\n%s", d)
		}
		if d := cmp.Diff(d1, d2); d != "" {
			t.Errorf("diffs differ:\n%s", d)
		}
	})
}

func TestCompareCustomOptions(t *testing.T) {
	orig := mustLoad(t, "orig.csv", "key,meta\nk1,\"{\"\"a\"\":\"\"1\"\"}\"\n")
	updated := mustLoad(t, "new.csv", "key,meta_a\nk1,2\n")

	opts := Options{MaxDiffs: 10, IDColumn: "key", BlobColumn: "meta", SplitPrefix: "meta_", ExpectedKeys: []string{"a"}}
	_, diffs, err := Compare(orig, updated, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Diff{{ID: "k1", Field: "meta_a", Original: "1", New: "2"}}
	if d := cmp.Diff(want, diffs); d != "" {
		t.Fatalf("diffs mismatch (-want +got):\n%s", d)
	}
}

func TestOutcome(t *testing.T) {
	clean := &Summary{}
	if Evaluate(clean, nil) != OutcomeClean || int(OutcomeClean) != 0 {
		t.Fatal("expected clean outcome with exit code 0")
	}
	if Evaluate(&Summary{ExtraInNewCount: 1}, []Diff{{ID: "1"}}) != OutcomeFieldDiffs {
		t.Fatal("field diffs take precedence over id differences")
	}
	if int(OutcomeFieldDiffs) != 2 || int(OutcomeIDSetsDiffer) != 3 {
		t.Fatal("unexpected exit code values")
	}
	if OutcomeIDSetsDiffer.Message() == OutcomeClean.Message() {
		t.Fatal("messages must differ")
	}
}
