package router

import "github.com/crickmate/coach/internal/catalogue"

// Entry types, in the order consumers render them.
const (
	TypeExercise            = "exercise"
	TypeShot                = "shot"
	TypeFundamental         = "fundamental"
	TypeTechnicalCategory   = "technical_category"
	TypeTechnicalDrills     = "technical_drills"
	TypeTechnicalDirect     = "technical_direct"
	TypeBattingOverview     = "batting_overview"
	TypeBattingRolePriority = "batting_role_priority"
	TypeGeneralKnowledge    = "general_knowledge"
	TypeUnknown             = "unknown"
)

// Fixed chat lines and instructions.
const (
	ChatDefault             = "Here is your requested information 👇"
	InstructionPickArea     = "Choose one sub-area using ID (e.g. A3)"
	InstructionMore         = "Type 'more' to load next drills"
	MsgNoGeneralKnowledge   = "I couldn't find that in my cricket library. Please ask something related to cricket."
	msgAreaNotFoundTemplate = "Area %s was not found. Pick a sub-area ID from a category list."
)

// Envelope is the reply to one message. It has one of two shapes:
// OrderedResponses for normal processing, or TechnicalDrills for the
// pagination and drill-code shortcuts. Exactly one of the two is set.
type Envelope struct {
	Chat             string      `json:"chat"`
	OrderedResponses []Entry     `json:"ordered_responses,omitempty"`
	TechnicalDrills  *DrillsPage `json:"technical_drills,omitempty"`
}

// Entry is one typed result. Entries appear in the order their segments
// were read.
type Entry struct {
	Type   string `json:"type"`
	Input  string `json:"input,omitempty"`
	Result any    `json:"result"`
}

// DrillsPage is the narrow shortcut payload.
type DrillsPage struct {
	AreaID    string                  `json:"area_id"`
	Returned  []catalogue.DrillDetail `json:"returned"`
	Remaining int                     `json:"remaining"`
}

// CategoryResult lists a category's sub-areas.
type CategoryResult struct {
	CategoryID  string                  `json:"category_id"`
	Category    string                  `json:"category"`
	Instruction string                  `json:"instruction"`
	SubAreas    []catalogue.AreaSummary `json:"sub_areas"`
}

// DrillsResult is the first page of an area selected inside a message.
type DrillsResult struct {
	AreaID      string                  `json:"area_id"`
	Found       bool                    `json:"found"`
	Drills      []catalogue.DrillDetail `json:"drills"`
	Remaining   int                     `json:"remaining"`
	Instruction string                  `json:"instruction,omitempty"`
	Message     string                  `json:"message,omitempty"`
}
