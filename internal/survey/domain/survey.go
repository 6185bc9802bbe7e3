package domain

import (
	"github.com/sngm3741/survey-haven/api/internal/shared"
)

// VoteChoice is a single yes/no ballot.
type VoteChoice string

const (
	VoteYes VoteChoice = "yes"
	VoteNo  VoteChoice = "no"
)

// ParseVoteChoice accepts exactly the strings "yes" or "no". Any other value,
// including non-strings, is shared.ErrInvalidVote.
func ParseVoteChoice(value any) (VoteChoice, error) {
	s, ok := value.(string)
	if !ok {
		return "", shared.ErrInvalidVote
	}
	switch VoteChoice(s) {
	case VoteYes, VoteNo:
		return VoteChoice(s), nil
	}
	return "", shared.ErrInvalidVote
}

// VoteTally は旧形式の votes 埋め込みドキュメント。
type VoteTally struct {
	Yes int
	No  int
}

// Survey はアンケート 1 件分の集約。記述系の項目と Options は利用者が送った値・保存済みの値を
// 型を問わずそのまま保持し、サーバーが計算に使うカウンタだけを数値として扱う。
type Survey struct {
	ID          string
	Name        any
	Email       any
	Title       any
	Description any
	Options     any
	Category    any
	Deadline    any
	YesCount    int
	NoCount     int
	TotalVote   int
	Status      any
	Date        any
	Comments    []any
	Votes       *VoteTally
	// Extra carries any other stored fields through unchanged.
	Extra map[string]any
}

// WithDefaultTally returns a copy whose Votes is never nil, unless a stored
// votes value of another shape is being carried in Extra. The receiver is left
// untouched so that the normalisation is never persisted.
func (s Survey) WithDefaultTally() Survey {
	if s.Votes != nil {
		return s
	}
	if legacy, ok := s.Extra["votes"]; ok && legacy != nil {
		return s
	}
	s.Votes = &VoteTally{}
	return s
}

// ApplyVote increments the matching counter and the total.
func (s *Survey) ApplyVote(choice VoteChoice) {
	switch choice {
	case VoteYes:
		s.YesCount++
	case VoteNo:
		s.NoCount++
	default:
		return
	}
	s.TotalVote++
}

// AppendComment adds comment to the end of the comment sequence.
func (s *Survey) AppendComment(comment any) {
	if s.Comments == nil {
		s.Comments = []any{}
	}
	s.Comments = append(s.Comments, comment)
}
