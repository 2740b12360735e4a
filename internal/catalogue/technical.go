package catalogue

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/crickmate/coach/internal/domain"
)

//go:embed data/technical_drills.json
var technicalJSON []byte

// ErrAreaNotFound is returned when an area id does not exist.
var ErrAreaNotFound = errors.New("technical area not found")

// Priority labels used in an area's role_priority table.
const (
	PriorityCore      = "core"
	PriorityImportant = "important"
	PrioritySupport   = "support"
)

// Drill is one practice drill as stored in the catalogue.
type Drill struct {
	Name           string   `json:"name"`
	HowTo          []string `json:"how_to"`
	Equipment      string   `json:"equipment"`
	CoachingPoints []string `json:"coaching_points"`
	Mistakes       []string `json:"mistakes"`
	RepsSets       string   `json:"reps_sets"`
	Difficulty     string   `json:"difficulty"`
	Safety         string   `json:"safety"`
}

// Area is a sub-skill inside a category.
type Area struct {
	ID           string            `json:"area_id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	WhyItMatters string            `json:"why_it_matters"`
	RolePriority map[string]string `json:"role_priority"`
	Drills       []Drill           `json:"drills"`
}

// Category is a top-level technical skill group.
type Category struct {
	ID    string `json:"category_id"`
	Name  string `json:"category_name"`
	Areas []Area `json:"areas"`
}

// DrillDetail is the client-facing rendering of a drill.
type DrillDetail struct {
	DrillName      string   `json:"drill_name"`
	HowTo          []string `json:"how_to"`
	Equipment      string   `json:"equipment"`
	CoachingPoints []string `json:"coaching_points"`
	Mistakes       []string `json:"mistakes"`
	RepsSets       string   `json:"reps_sets"`
	Difficulty     string   `json:"difficulty"`
	Safety         string   `json:"safety"`
}

// AreaSummary is one entry of a category's sub-area menu.
type AreaSummary struct {
	AreaID      string `json:"area_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AreaDetail is an area with all of its drills.
type AreaDetail struct {
	AreaName     string        `json:"area_name"`
	Description  string        `json:"description"`
	WhyItMatters string        `json:"why_it_matters"`
	Drills       []DrillDetail `json:"drills"`
}

// DrillPage is a slice of an area's drill list.
type DrillPage struct {
	Returned  []DrillDetail `json:"returned"`
	Total     int           `json:"total"`
	Remaining int           `json:"remaining"`
	Found     bool          `json:"-"`
}

// CategoryRef names a category in a role priority listing.
type CategoryRef struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
}

// RolePriority groups categories by importance for a playing role.
type RolePriority struct {
	Priority   []CategoryRef `json:"priority"`
	Secondary  []CategoryRef `json:"secondary"`
	Low        []CategoryRef `json:"low"`
	Structured bool          `json:"structured"`
}

type roleTiers struct {
	priority, secondary, low []string
}

var tailEnder = roleTiers{
	priority:  []string{"B", "F", "D"},
	secondary: []string{"C", "I"},
	low:       []string{"A", "E", "H", "G"},
}

var rolePriorityTable = map[string]roleTiers{
	"top order batsman": {
		priority:  []string{"A", "B", "C", "D"},
		secondary: []string{"F", "I"},
		low:       []string{"E", "H", "G"},
	},
	"middle order batsman": {
		priority:  []string{"E", "F", "I"},
		secondary: []string{"C", "B", "H"},
		low:       []string{"A", "G", "D"},
	},
	"finisher": {
		priority:  []string{"H", "F", "I"},
		secondary: []string{"B", "C"},
		low:       []string{"D", "A", "E", "G"},
	},
	"all rounder": {
		priority:  []string{"I", "B", "C"},
		secondary: []string{"E", "D", "F"},
		low:       []string{"A", "H", "G"},
	},
	"wicket keeper batsman": {
		priority:  []string{"B", "E", "F"},
		secondary: []string{"C", "I"},
		low:       []string{"A", "D", "G", "H"},
	},
	"fast bowler":    tailEnder,
	"medium bowler":  tailEnder,
	"wrist spinner":  tailEnder,
	"finger spinner": tailEnder,
}

// Technical is the technical drills catalogue. It is read-only after
// construction and safe for concurrent use.
type Technical struct {
	categories []Category
	areas      map[string]*Area
	keywords   []KeywordCategory
	stopwords  map[string]struct{}
}

// NewTechnical loads the embedded technical catalogue.
func NewTechnical() (*Technical, error) {
	return ParseTechnical(technicalJSON, Vocabulary())
}

// ParseTechnical builds a catalogue from a technical_drills document.
func ParseTechnical(data []byte, vocab *Vocab) (*Technical, error) {
	var doc struct {
		Categories []Category `json:"technical_categories"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse technical catalogue: %w", err)
	}
	if len(doc.Categories) == 0 {
		return nil, fmt.Errorf("technical catalogue has no categories")
	}

	t := &Technical{
		categories: doc.Categories,
		areas:      make(map[string]*Area),
		keywords:   vocab.CategoryKeywords,
		stopwords:  make(map[string]struct{}, len(vocab.SearchStopwords)),
	}
	for ci := range t.categories {
		c := &t.categories[ci]
		c.ID = strings.ToUpper(c.ID)
		for ai := range c.Areas {
			a := &c.Areas[ai]
			a.ID = strings.ToUpper(a.ID)
			if _, dup := t.areas[a.ID]; dup {
				return nil, fmt.Errorf("duplicate area id %q", a.ID)
			}
			t.areas[a.ID] = a
		}
	}
	for _, w := range vocab.SearchStopwords {
		t.stopwords[w] = struct{}{}
	}
	return t, nil
}

// Categories returns all categories in catalogue order.
func (t *Technical) Categories() []Category {
	return t.categories
}

// Category returns the category with the given id.
func (t *Technical) Category(id string) (*Category, bool) {
	id = strings.ToUpper(strings.TrimSpace(id))
	for i := range t.categories {
		if t.categories[i].ID == id {
			return &t.categories[i], true
		}
	}
	return nil, false
}

// Area returns the area with the given id.
func (t *Technical) Area(id string) (*Area, error) {
	a, ok := t.areas[strings.ToUpper(strings.TrimSpace(id))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAreaNotFound, id)
	}
	return a, nil
}

// FindCategory maps free text to a category. The keyword table is consulted
// first; after that a category matches on its full name or on any name word
// of three or more letters.
func (t *Technical) FindCategory(text string) (*Category, bool) {
	text = strings.ToLower(text)

	for _, kw := range t.keywords {
		if strings.Contains(text, kw.Keyword) {
			return t.Category(kw.Category)
		}
	}

	for i := range t.categories {
		name := strings.ToLower(t.categories[i].Name)
		if strings.Contains(text, name) {
			return &t.categories[i], true
		}
		for _, word := range strings.Fields(name) {
			if len(word) >= 3 && strings.Contains(text, word) {
				return &t.categories[i], true
			}
		}
	}
	return nil, false
}

// SubAreas lists the areas of the category with the given name.
func (t *Technical) SubAreas(categoryName string) []AreaSummary {
	out := []AreaSummary{}
	for _, c := range t.categories {
		if !strings.EqualFold(c.Name, categoryName) {
			continue
		}
		for _, a := range c.Areas {
			out = append(out, AreaSummary{AreaID: a.ID, Name: a.Name, Description: a.Description})
		}
		break
	}
	return out
}

// Drills returns count drills of an area starting at start. Remaining is
// max(0, total-(start+count)). An unknown area yields an empty page with
// Found unset.
func (t *Technical) Drills(areaID string, start, count int) DrillPage {
	page := DrillPage{Returned: []DrillDetail{}}
	a, err := t.Area(areaID)
	if err != nil {
		return page
	}
	page.Found = true
	page.Total = len(a.Drills)

	if start < 0 {
		start = 0
	}
	end := start + count
	if end > len(a.Drills) {
		end = len(a.Drills)
	}
	for i := start; i < end; i++ {
		page.Returned = append(page.Returned, drillDetail(a.Drills[i]))
	}
	page.Remaining = max(0, page.Total-(start+count))
	return page
}

// SearchArea finds an area by word overlap with its name after removing
// stopwords and words shorter than three letters. When several areas match,
// those that are core for the reference role come first; otherwise catalogue
// order is kept.
func (t *Technical) SearchArea(text string) (*Area, bool) {
	text = strings.ToLower(text)

	var cleaned []string
	for _, w := range strings.Fields(text) {
		w = strings.Trim(w, ".,!?;:'\"()")
		if len(w) < 3 {
			continue
		}
		if _, stop := t.stopwords[w]; stop {
			continue
		}
		cleaned = append(cleaned, w)
	}
	if len(cleaned) == 0 {
		return nil, false
	}

	var candidates []*Area
	for ci := range t.categories {
		for ai := range t.categories[ci].Areas {
			a := &t.categories[ci].Areas[ai]
			name := strings.ToLower(a.Name)
			if strings.Contains(text, name) {
				candidates = append(candidates, a)
				continue
			}
			for _, w := range cleaned {
				if strings.Contains(name, w) {
					candidates = append(candidates, a)
					break
				}
			}
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return isCore(candidates[i]) && !isCore(candidates[j])
	})
	return candidates[0], true
}

func isCore(a *Area) bool {
	return a.RolePriority[domain.ReferenceRole] == PriorityCore
}

// AreaByName returns the detail of the area whose name equals name,
// ignoring case.
func (t *Technical) AreaByName(name string) (AreaDetail, bool) {
	for ci := range t.categories {
		for ai := range t.categories[ci].Areas {
			a := &t.categories[ci].Areas[ai]
			if strings.EqualFold(a.Name, name) {
				return t.FormatArea(a), true
			}
		}
	}
	return AreaDetail{}, false
}

// FormatArea renders an area with all of its drills.
func (t *Technical) FormatArea(a *Area) AreaDetail {
	d := AreaDetail{
		AreaName:     a.Name,
		Description:  a.Description,
		WhyItMatters: a.WhyItMatters,
		Drills:       make([]DrillDetail, 0, len(a.Drills)),
	}
	for _, dr := range a.Drills {
		d.Drills = append(d.Drills, drillDetail(dr))
	}
	return d
}

// RolePriority groups categories by importance for role. An unknown role
// yields empty lists and Structured=false.
func (t *Technical) RolePriority(role string) RolePriority {
	tiers, ok := rolePriorityTable[strings.ToLower(strings.TrimSpace(role))]
	if !ok {
		return RolePriority{Priority: []CategoryRef{}, Secondary: []CategoryRef{}, Low: []CategoryRef{}}
	}
	return RolePriority{
		Priority:   t.refs(tiers.priority),
		Secondary:  t.refs(tiers.secondary),
		Low:        t.refs(tiers.low),
		Structured: true,
	}
}

func (t *Technical) refs(ids []string) []CategoryRef {
	out := make([]CategoryRef, 0, len(ids))
	for _, id := range ids {
		if c, ok := t.Category(id); ok {
			out = append(out, CategoryRef{CategoryID: c.ID, CategoryName: c.Name})
		}
	}
	return out
}

func drillDetail(d Drill) DrillDetail {
	return DrillDetail{
		DrillName:      d.Name,
		HowTo:          d.HowTo,
		Equipment:      d.Equipment,
		CoachingPoints: d.CoachingPoints,
		Mistakes:       d.Mistakes,
		RepsSets:       d.RepsSets,
		Difficulty:     d.Difficulty,
		Safety:         d.Safety,
	}
}
