package surveys

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/sngm3741/survey-haven/api/internal/interfaces/http/common"
	"github.com/sngm3741/survey-haven/api/internal/shared"
	"github.com/sngm3741/survey-haven/api/internal/survey/domain"
)

type voteTallyPayload struct {
	Yes int `json:"yes"`
	No  int `json:"no"`
}

var knownSurveyKeys = map[string]struct{}{
	"_id": {}, "name": {}, "email": {}, "title": {}, "description": {}, "options": {},
	"category": {}, "deadline": {}, "yesCount": {}, "noCount": {}, "totalVote": {},
	"status": {}, "date": {}, "comments": {}, "votes": {},
}

type voteRequest struct {
	Vote any `json:"vote"`
}

type commentRequest struct {
	Comment any `json:"comment"`
}

type voteResponse struct {
	Success       bool           `json:"success"`
	UpdatedSurvey map[string]any `json:"updatedSurvey"`
}

type commentResponse struct {
	Success bool `json:"success"`
	Comment any  `json:"comment"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// decodeSurvey は記述系の項目と options を型を問わずそのまま受け取り、それ以外の未知の項目は
// Extra に残す。サーバーが加算するカウンタと votes/comments だけは形を確認する。
func decodeSurvey(w http.ResponseWriter, r *http.Request) (domain.Survey, error) {
	body, err := common.ReadBody(w, r)
	if err != nil {
		return domain.Survey{}, err
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.Survey{}, fmt.Errorf("%w: malformed survey: %v", shared.ErrInvalidInput, err)
	}

	survey := domain.Survey{
		Name:        raw["name"],
		Email:       raw["email"],
		Title:       raw["title"],
		Description: raw["description"],
		Options:     raw["options"],
		Category:    raw["category"],
		Deadline:    raw["deadline"],
		Status:      raw["status"],
		Date:        raw["date"],
	}
	if survey.YesCount, err = counterField(raw, "yesCount"); err != nil {
		return domain.Survey{}, err
	}
	if survey.NoCount, err = counterField(raw, "noCount"); err != nil {
		return domain.Survey{}, err
	}
	if survey.TotalVote, err = counterField(raw, "totalVote"); err != nil {
		return domain.Survey{}, err
	}

	switch comments := raw["comments"].(type) {
	case nil:
	case []any:
		survey.Comments = comments
	default:
		return domain.Survey{}, fmt.Errorf("%w: comments must be an array", shared.ErrInvalidInput)
	}

	switch votes := raw["votes"].(type) {
	case nil:
	case map[string]any:
		yes, err := counterField(votes, "yes")
		if err != nil {
			return domain.Survey{}, err
		}
		no, err := counterField(votes, "no")
		if err != nil {
			return domain.Survey{}, err
		}
		survey.Votes = &domain.VoteTally{Yes: yes, No: no}
	default:
		return domain.Survey{}, fmt.Errorf("%w: votes must be an object", shared.ErrInvalidInput)
	}

	for key, value := range raw {
		if _, known := knownSurveyKeys[key]; known {
			continue
		}
		if survey.Extra == nil {
			survey.Extra = make(map[string]any)
		}
		survey.Extra[key] = value
	}
	return survey, nil
}

// counterField reads a whole-number counter; a missing or null value is 0.
func counterField(fields map[string]any, key string) (int, error) {
	switch v := fields[key].(type) {
	case nil:
		return 0, nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: %s must be a whole number", shared.ErrInvalidInput, key)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("%w: %s must be a number", shared.ErrInvalidInput, key)
	}
}

// surveyResponse renders the survey in its stored document shape.
func surveyResponse(survey domain.Survey) map[string]any {
	out := make(map[string]any, len(survey.Extra)+16)
	for key, value := range survey.Extra {
		out[key] = value
	}
	out["_id"] = survey.ID
	out["name"] = survey.Name
	out["email"] = survey.Email
	out["title"] = survey.Title
	out["description"] = survey.Description
	out["options"] = survey.Options
	out["category"] = survey.Category
	out["deadline"] = survey.Deadline
	out["yesCount"] = survey.YesCount
	out["noCount"] = survey.NoCount
	out["totalVote"] = survey.TotalVote
	out["status"] = survey.Status
	out["date"] = survey.Date
	if survey.Comments != nil {
		out["comments"] = survey.Comments
	}
	if survey.Votes != nil {
		out["votes"] = voteTallyPayload{Yes: survey.Votes.Yes, No: survey.Votes.No}
	}
	return out
}

func surveyListResponse(surveys []domain.Survey) []map[string]any {
	items := make([]map[string]any, 0, len(surveys))
	for _, survey := range surveys {
		items = append(items, surveyResponse(survey))
	}
	return items
}
