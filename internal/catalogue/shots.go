package catalogue

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

//go:embed data/shots.json
var shotsJSON []byte

//go:embed data/fundamentals.json
var fundamentalsJSON []byte

//go:embed data/roadmap.json
var roadmapJSON []byte

// Fixed replies of Answer.
const (
	MsgShotNotIdentified = "Sorry, I couldn't identify the shot you are asking about."
	MsgShotNoData        = "Sorry, I don't have information about that shot yet."
)

// ShotDrill is a drill attached to a shot.
type ShotDrill struct {
	Name     string   `json:"name"`
	HowTo    []string `json:"how_to"`
	RepsSets string   `json:"reps_sets"`
	Safety   string   `json:"safety"`
}

// Shot describes one batting stroke.
type Shot struct {
	Name           string `json:"name"`
	PlayedToLength string `json:"played_to_length"`
	Description    string `json:"description"`
	Technique      struct {
		Steps          []string `json:"steps"`
		KeyPoints      []string `json:"key_points"`
		CommonMistakes []string `json:"common_mistakes"`
	} `json:"technique"`
	Drills []ShotDrill `json:"drills"`
}

// Fundamental is a basic batting topic such as grip or stance.
type Fundamental struct {
	Title        string   `json:"title"`
	What         string   `json:"what"`
	HowTo        []string `json:"how_to"`
	Mistakes     []string `json:"mistakes"`
	WhyItMatters string   `json:"why_it_matters"`
	Drills       []string `json:"drills"`
	Keywords     []string `json:"keywords"`
}

type roadmap struct {
	TriggerKeywords []string `json:"trigger_keywords"`
	Batting         []string `json:"batting"`
	Bowling         []string `json:"bowling"`
	Fielding        []string `json:"fielding"`
	Fitness         []string `json:"fitness"`
}

// Shots is the shot and fundamentals catalogue.
type Shots struct {
	shots        map[string]Shot
	fundamentals map[string]Fundamental
	fundKeys     []string
	roadmap      roadmap
	aliases      []ShotAlias
	drillWords   []string
}

// NewShots loads the embedded shot, fundamentals and roadmap data.
func NewShots() (*Shots, error) {
	return ParseShots(shotsJSON, fundamentalsJSON, roadmapJSON, Vocabulary())
}

// ParseShots builds the catalogue from its three documents.
func ParseShots(shots, fundamentals, roadmapDoc []byte, vocab *Vocab) (*Shots, error) {
	s := &Shots{aliases: vocab.ShotAliases, drillWords: vocab.DrillWords}
	if err := json.Unmarshal(shots, &s.shots); err != nil {
		return nil, fmt.Errorf("failed to parse shots: %w", err)
	}
	if err := json.Unmarshal(fundamentals, &s.fundamentals); err != nil {
		return nil, fmt.Errorf("failed to parse fundamentals: %w", err)
	}
	var rm struct {
		Beginner roadmap `json:"roadmap_beginner"`
	}
	if err := json.Unmarshal(roadmapDoc, &rm); err != nil {
		return nil, fmt.Errorf("failed to parse roadmap: %w", err)
	}
	s.roadmap = rm.Beginner

	for k := range s.fundamentals {
		s.fundKeys = append(s.fundKeys, k)
	}
	sort.Strings(s.fundKeys)
	return s, nil
}

// DetectShot returns the first shot whose alias occurs in text as whole
// words, so "execution" does not match "cut".
func (s *Shots) DetectShot(text string) (string, bool) {
	padded := " " + strings.Join(words(text), " ") + " "
	for _, a := range s.aliases {
		if strings.Contains(padded, " "+a.Alias+" ") {
			return a.Shot, true
		}
	}
	return "", false
}

// words lowercases text and splits it on anything that is not a letter or
// digit.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// DetectFundamental returns the first fundamental, by key order, with a
// keyword in text.
func (s *Shots) DetectFundamental(text string) (string, bool) {
	text = strings.ToLower(text)
	for _, k := range s.fundKeys {
		if ContainsAny(text, s.fundamentals[k].Keywords) {
			return k, true
		}
	}
	return "", false
}

// FormatFundamental renders a fundamental as chat text. Unknown keys yield "".
func (s *Shots) FormatFundamental(key string) string {
	f, ok := s.fundamentals[key]
	if !ok {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🏏 %s\n\n", f.Title)
	b.WriteString("📌 What it is:\n")
	fmt.Fprintf(&b, "- %s\n\n", f.What)
	b.WriteString("📝 How to do it:\n")
	writeList(&b, f.HowTo)
	b.WriteString("\n❌ Common mistakes:\n")
	writeList(&b, f.Mistakes)
	b.WriteString("\n🎯 Why it matters:\n")
	fmt.Fprintf(&b, "- %s\n\n", f.WhyItMatters)
	b.WriteString("🧪 Drills:\n")
	writeList(&b, f.Drills)
	return strings.TrimRight(b.String(), "\n")
}

// Answer replies to a shot or fundamentals question. A roadmap request wins,
// then fundamentals, then shots.
func (s *Shots) Answer(text string) string {
	q := strings.ToLower(text)
	if ContainsAny(q, s.roadmap.TriggerKeywords) {
		return s.formatRoadmap()
	}
	if key, ok := s.DetectFundamental(q); ok {
		return s.FormatFundamental(key)
	}
	key, ok := s.DetectShot(q)
	if !ok {
		return MsgShotNotIdentified
	}
	shot, ok := s.shots[key]
	if !ok {
		return MsgShotNoData
	}
	if ContainsAny(q, s.drillWords) {
		return formatShotDrills(shot)
	}
	return formatShot(shot)
}

func formatShot(sh Shot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏏 %s\n", sh.Name)
	fmt.Fprintf(&b, "\nPlayed to: %s\n", sh.PlayedToLength)
	fmt.Fprintf(&b, "\n%s\n\n", sh.Description)
	b.WriteString("🔹 How to play:\n")
	writeList(&b, sh.Technique.Steps)
	b.WriteString("\n🔹 Key coaching points:\n")
	writeList(&b, sh.Technique.KeyPoints)
	b.WriteString("\n❌ Common mistakes:\n")
	writeList(&b, sh.Technique.CommonMistakes)
	return strings.TrimRight(b.String(), "\n")
}

func formatShotDrills(sh Shot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🧪 Drills for %s:\n\n", sh.Name)
	for _, d := range sh.Drills {
		fmt.Fprintf(&b, "➡ %s\n", d.Name)
		for _, step := range d.HowTo {
			fmt.Fprintf(&b, "  - %s\n", step)
		}
		fmt.Fprintf(&b, "  Reps/Sets: %s\n", d.RepsSets)
		fmt.Fprintf(&b, "  Safety: %s\n\n", d.Safety)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *Shots) formatRoadmap() string {
	var b strings.Builder
	b.WriteString("🏏 Beginner Cricket Roadmap\n\n")
	sections := []struct {
		title string
		items []string
	}{
		{"Batting", s.roadmap.Batting},
		{"Bowling", s.roadmap.Bowling},
		{"Fielding", s.roadmap.Fielding},
		{"Fitness", s.roadmap.Fitness},
	}
	for i, sec := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "📌 %s Fundamentals:\n", sec.title)
		writeList(&b, sec.items)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeList(b *strings.Builder, items []string) {
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}
