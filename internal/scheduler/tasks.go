package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TaskPostingSweep posts every pending lead whose posting time has passed.
const TaskPostingSweep = "leads.posting.sweep"

// TaskPostLead posts one approved lead at its due time.
const TaskPostLead = "leads.post"

// TaskTrialSweep expires unspent trial credits.
const TaskTrialSweep = "wallet.trials.expire"

type PostLeadPayload struct {
	LeadID string `json:"leadId"`
}

func NewPostingSweepTask() *asynq.Task {
	return asynq.NewTask(TaskPostingSweep, nil)
}

func NewTrialSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTrialSweep, nil)
}

func NewPostLeadTask(leadID uuid.UUID) (*asynq.Task, error) {
	data, err := json.Marshal(PostLeadPayload{LeadID: leadID.String()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPostLead, data), nil
}

func ParsePostLeadPayload(task *asynq.Task) (uuid.UUID, error) {
	var payload PostLeadPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("post lead payload: %w", err)
	}
	return id, nil
}

// postLeadTaskID dedupes repeated scheduling of the same lead.
func postLeadTaskID(leadID uuid.UUID) string {
	return TaskPostLead + ":" + leadID.String()
}
