package catalogue

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTechnical(t *testing.T) *Technical {
	t.Helper()
	tech, err := NewTechnical()
	if err != nil {
		t.Fatalf("NewTechnical: %v", err)
	}
	return tech
}

func TestTechnicalHasNineCategories(t *testing.T) {
	tech := newTechnical(t)
	var ids []string
	for _, c := range tech.Categories() {
		ids = append(ids, c.ID)
	}
	want := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("category ids mismatch (-want +got):\n%s", diff)
	}
}

func TestFindCategory(t *testing.T) {
	t.Parallel()
	tech := newTechnical(t)

	tests := []struct {
		text string
		want string
	}{
		{"timing", "B"},
		{"Timing Category", "B"},
		{"help with my footwork", "C"},
		{"shot selection", "A"},
		{"playing the short ball", "D"},
		{"death overs", "H"},
		{"running between wickets", "G"},
		{"handling stuff", "E"},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			c, ok := tech.FindCategory(tc.text)
			if !ok {
				t.Fatalf("FindCategory(%q) found nothing", tc.text)
			}
			if c.ID != tc.want {
				t.Errorf("FindCategory(%q) = %s, want %s", tc.text, c.ID, tc.want)
			}
		})
	}

	for _, text := range []string{"asdkjalksd", "more", "a2 drills", "improve batting"} {
		if c, ok := tech.FindCategory(text); ok {
			t.Errorf("FindCategory(%q) = %s, want no match", text, c.ID)
		}
	}
}

func TestSubAreas(t *testing.T) {
	tech := newTechnical(t)
	a, _ := tech.Category("a")

	got := tech.SubAreas(a.Name)
	if len(got) != 3 || got[0].AreaID != "A1" || got[2].AreaID != "A3" {
		t.Fatalf("unexpected sub areas: %+v", got)
	}
	if sub := tech.SubAreas("no such category"); sub == nil || len(sub) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", sub)
	}
}

func TestDrillsPagination(t *testing.T) {
	tech := newTechnical(t)

	first := tech.Drills("A2", 0, 2)
	if !first.Found || first.Total != 5 || len(first.Returned) != 2 || first.Remaining != 3 {
		t.Fatalf("unexpected first page: %+v", first)
	}
	last := tech.Drills("A2", 4, 2)
	if len(last.Returned) != 1 || last.Remaining != 0 {
		t.Fatalf("unexpected last page: %+v", last)
	}
	past := tech.Drills("A2", 6, 2)
	if len(past.Returned) != 0 || past.Remaining != 0 || !past.Found {
		t.Fatalf("unexpected page past the end: %+v", past)
	}

	missing := tech.Drills("Z9", 0, 2)
	if missing.Found || missing.Total != 0 || missing.Returned == nil {
		t.Fatalf("unexpected page for unknown area: %+v", missing)
	}
}

func TestArea(t *testing.T) {
	tech := newTechnical(t)
	if a, err := tech.Area("c1"); err != nil || a.Name != "Front Foot Drive" {
		t.Fatalf("Area(c1) = %v, %v", a, err)
	}
	if _, err := tech.Area("Q1"); !errors.Is(err, ErrAreaNotFound) {
		t.Fatalf("expected ErrAreaNotFound, got %v", err)
	}
}

func TestSearchArea(t *testing.T) {
	t.Parallel()
	tech := newTechnical(t)

	tests := []struct {
		text   string
		wantID string
	}{
		// B3 comes first in catalogue order but C1 is core for the top order.
		{"drive", "C1"},
		{"how to improve gap finding", "F1"},
		{"fix my crease usage", "E1"},
	}
	for _, tc := range tests {
		a, ok := tech.SearchArea(tc.text)
		if !ok {
			t.Errorf("SearchArea(%q) found nothing", tc.text)
			continue
		}
		if a.ID != tc.wantID {
			t.Errorf("SearchArea(%q) = %s, want %s", tc.text, a.ID, tc.wantID)
		}
	}

	for _, text := range []string{"how to improve my batting", "asdkjalksd", "a"} {
		if a, ok := tech.SearchArea(text); ok {
			t.Errorf("SearchArea(%q) = %s, want no match", text, a.ID)
		}
	}
}

func TestRolePriority(t *testing.T) {
	tech := newTechnical(t)

	rp := tech.RolePriority("Top Order Batsman")
	if !rp.Structured {
		t.Fatal("expected structured result for known role")
	}
	var ids []string
	for _, c := range rp.Priority {
		ids = append(ids, c.CategoryID)
	}
	if diff := cmp.Diff([]string{"A", "B", "C", "D"}, ids); diff != "" {
		t.Fatalf("priority mismatch (-want +got):\n%s", diff)
	}

	unknown := tech.RolePriority("twelfth man")
	if unknown.Structured || len(unknown.Priority) != 0 || unknown.Low == nil {
		t.Fatalf("unexpected result for unknown role: %+v", unknown)
	}
}

func TestAreaByName(t *testing.T) {
	tech := newTechnical(t)
	d, ok := tech.AreaByName("leaving the ball")
	if !ok || d.AreaName != "Leaving the Ball" || len(d.Drills) != 5 {
		t.Fatalf("AreaByName = %+v, %v", d, ok)
	}
	if _, ok := tech.AreaByName("leaving"); ok {
		t.Fatal("expected exact name match only")
	}
}

func TestParseTechnicalRejectsDuplicateAreas(t *testing.T) {
	doc := []byte(`{"technical_categories":[{"category_id":"A","category_name":"X","areas":[
		{"area_id":"A1","name":"one"},{"area_id":"a1","name":"two"}]}]}`)
	if _, err := ParseTechnical(doc, Vocabulary()); err == nil {
		t.Fatal("expected duplicate area error")
	}
}
