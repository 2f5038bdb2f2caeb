package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type CandidateStatus string

const (
	CandidateNew               CandidateStatus = "new"
	CandidateScreening         CandidateStatus = "screening"
	CandidateInterviewSched    CandidateStatus = "interview_scheduled"
	CandidateInterviewComplete CandidateStatus = "interview_complete"
	CandidateTrialScheduled    CandidateStatus = "trial_scheduled"
	CandidateTrialComplete     CandidateStatus = "trial_complete"
	CandidateApproved          CandidateStatus = "approved"
	CandidateHired             CandidateStatus = "hired"
	CandidateWithdrawn         CandidateStatus = "withdrawn"
	CandidateRejected          CandidateStatus = "rejected"
)

// pipelineRank is the canonical forward ordering of the hiring pipeline.
// Statuses outside this map (hired, withdrawn, rejected) sit outside the
// pipeline and never advance automatically.
var pipelineRank = map[CandidateStatus]int{
	CandidateNew:               0,
	CandidateScreening:         1,
	CandidateInterviewSched:    2,
	CandidateInterviewComplete: 3,
	CandidateTrialScheduled:    4,
	CandidateTrialComplete:     5,
	CandidateApproved:          6,
}

func ParseCandidateStatus(s string) (CandidateStatus, error) {
	st := CandidateStatus(s)
	switch st {
	case CandidateNew, CandidateScreening, CandidateInterviewSched,
		CandidateInterviewComplete, CandidateTrialScheduled,
		CandidateTrialComplete, CandidateApproved, CandidateHired,
		CandidateWithdrawn, CandidateRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown candidate status %q", s)
}

// Settled reports whether the candidate already moved past the point
// where a finished booking needs feedback: any booking of theirs whose
// time has passed is moot and resolves directly.
func (s CandidateStatus) Settled() bool {
	switch s {
	case CandidateWithdrawn, CandidateRejected, CandidateTrialScheduled,
		CandidateTrialComplete, CandidateApproved, CandidateHired:
		return true
	}
	return false
}

// IsForwardMove reports whether from -> to strictly advances the
// pipeline. Moves touching a status outside the pipeline are never
// forward; they belong to staff.
func IsForwardMove(from, to CandidateStatus) bool {
	a, ok := pipelineRank[from]
	if !ok {
		return false
	}
	b, ok := pipelineRank[to]
	if !ok {
		return false
	}
	return b > a
}

// CompletionStatus is the pipeline step a candidate advances to once a
// booking of the given category has taken place.
func CompletionStatus(c Category) CandidateStatus {
	if c == CategoryTrial {
		return CandidateTrialComplete
	}
	return CandidateInterviewComplete
}

type Candidate struct {
	bun.BaseModel `bun:"table:candidates"`

	ID        uuid.UUID       `bun:"id,pk,type:uuid"`
	FullName  string          `bun:"full_name,notnull"`
	Email     string          `bun:"email,notnull"`
	Status    CandidateStatus `bun:"status,notnull"`
	CreatedAt time.Time       `bun:"created_at,notnull"`
	UpdatedAt time.Time       `bun:"updated_at,notnull"`
}

func (c *Candidate) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if c.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			c.ID = id
		}
		if c.Status == "" {
			c.Status = CandidateNew
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		if c.UpdatedAt.IsZero() {
			c.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		c.UpdatedAt = now
	}
	return nil
}
