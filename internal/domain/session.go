package domain

// DrillPageSize is the number of drills returned per page.
const DrillPageSize = 2

// SessionMemory holds per-user conversation state across chat turns.
// An empty string means the field is unset.
type SessionMemory struct {
	UserID                string `json:"user_id"`
	LastTechnicalCategory string `json:"last_technical_category,omitempty"`
	LastTechnicalArea     string `json:"last_technical_area,omitempty"`
	DrillCursor           int    `json:"drill_cursor"`
	LastExerciseGoal      string `json:"last_exercise_goal,omitempty"`
	LastShot              string `json:"last_shot,omitempty"`
	LastFundamental       string `json:"last_fundamental,omitempty"`
}

// SelectCategory records a category listing. The area and cursor are reset
// because a sub-area has not been picked yet.
func (m *SessionMemory) SelectCategory(categoryID string) {
	m.LastTechnicalCategory = categoryID
	m.LastTechnicalArea = ""
	m.DrillCursor = 0
}

// SelectArea records that the first page of an area was shown.
func (m *SessionMemory) SelectArea(areaID string) {
	m.LastTechnicalArea = areaID
	m.DrillCursor = DrillPageSize
}

// Advance moves the drill cursor forward after a "more" page.
func (m *SessionMemory) Advance(n int) {
	if n > 0 {
		m.DrillCursor += n
	}
}

// HasArea reports whether a drill list is available for pagination.
func (m *SessionMemory) HasArea() bool {
	return m.LastTechnicalArea != ""
}
