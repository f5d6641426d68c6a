package structs

import "encoding/json"

// CommentContext carries the values a training report comment is filled from:
// the training start date as entered, the training year ordinal and the team name.
//
// The values are stored exactly as supplied. Nothing is validated, so an empty
// start date or a negative year is kept and handed back unchanged.
type CommentContext struct {
	trainingStartDate string
	trainingYear      int
	teamName          string
}

// commentContextJSON is the wire form of CommentContext.
type commentContextJSON struct {
	TrainingStartDate string `json:"training_start_date"`
	TrainingYear      int    `json:"training_year"`
	TeamName          string `json:"team_name"`
}

func NewCommentContext(trainingStartDate string, trainingYear int, teamName string) CommentContext {
	return CommentContext{
		trainingStartDate: trainingStartDate,
		trainingYear:      trainingYear,
		teamName:          teamName,
	}
}

func (c CommentContext) GetTrainingStartDate() string {
	return c.trainingStartDate
}

func (c CommentContext) GetTrainingYear() int {
	return c.trainingYear
}

func (c CommentContext) GetTeamName() string {
	return c.teamName
}

// Equal reports whether both contexts hold the same three values.
func (c CommentContext) Equal(other CommentContext) bool {
	return c == other
}

func (c CommentContext) MarshalJSON() ([]byte, error) {
	return json.Marshal(commentContextJSON{
		TrainingStartDate: c.trainingStartDate,
		TrainingYear:      c.trainingYear,
		TeamName:          c.teamName,
	})
}

// UnmarshalJSON decodes without validation. A null text field decodes to "".
func (c *CommentContext) UnmarshalJSON(data []byte) error {
	var raw commentContextJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = NewCommentContext(raw.TrainingStartDate, raw.TrainingYear, raw.TeamName)
	return nil
}
