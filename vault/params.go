package vault

import (
	"time"

	"github.com/google/uuid"
)

// TimeLayout formats Params.Time.
const TimeLayout = "2006/01/02, 15:04:05"

// Params records how a collection run was performed, for reproducibility.
type Params struct {
	User    string `json:"user"`
	BaseURL string `json:"baseurl"`
	Time    string `json:"time"`
	// Hash describes the anonymizer ("ALGO:...;REPETITIONS:n;SALT:...").
	Hash  string `json:"hash"`
	RunID string `json:"run_id,omitempty"`
}

// NewParams stamps a run with now and a fresh run id.
func NewParams(user, baseURL string, now time.Time, hash string) Params {
	return Params{
		User:    user,
		BaseURL: baseURL,
		Time:    now.Format(TimeLayout),
		Hash:    hash,
		RunID:   uuid.NewString(),
	}
}

// Stats are the aggregate counters of a collection run.
type Stats struct {
	NumSubs       int `json:"num_subs"`
	NumSubsAgreed int `json:"num_subs_agreed"`

	NumReviewers       int `json:"num_reviewers"`
	NumReviewersAgreed int `json:"num_reviewers_agreed"`

	NumActiveReviewers       int `json:"num_active_reviewers"`
	NumActiveReviewersAgreed int `json:"num_active_reviewers_agreed"`

	NumResponses                 int `json:"num_responses"`
	NumResponsesAttributed       int `json:"num_responses_attributed"`
	NumActiveResponses           int `json:"num_active_responses"`
	NumActiveResponsesAttributed int `json:"num_active_responses_attributed"`

	NumRevsAgreedEffective int `json:"num_revs_agreed_effective"`
}
