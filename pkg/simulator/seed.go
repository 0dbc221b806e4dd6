package simulator

import (
	"time"

	"github.com/google/uuid"
	"github.com/pipeboard/pipeboard/pkg/models"
)

// seed builds a small delivery pipeline: a repository event source feeding
// a staging deploy, which feeds a gated production deploy.
func (s *Simulator) seed() {
	now := time.Now().UTC()

	sourceID := uuid.New().String()

	s.canvas = models.Canvas{
		ID:             uuid.New().String(),
		Name:           "demo-delivery",
		OrganizationID: uuid.New().String(),
	}

	s.sources = []models.EventSource{
		{
			ID:   sourceID,
			Name: "demo-repository",
			URL:  "https://github.com/pipeboard/demo",
			Type: "github",
			Events: []models.Event{
				{
					ID:        uuid.New().String(),
					SourceID:  sourceID,
					Type:      "push",
					CreatedAt: &now,
				},
			},
		},
	}

	staging := models.Stage{
		ID:   uuid.New().String(),
		Name: "deploy-staging",
		Spec: models.StageSpec{
			Executor: models.ExecutorSpec{
				Type: models.ExecutorTypeSemaphore,
				Semaphore: &models.SemaphoreExecutorSpec{
					OrganizationURL: "https://demo.semaphoreci.com",
					ProjectID:       uuid.New().String(),
					Branch:          "main",
					PipelineFile:    ".semaphore/deploy-staging.yml",
				},
			},
			Connections: []models.Connection{
				{Name: "demo-repository", Type: "event_source"},
			},
			Outputs: []models.OutputDefinition{
				{Name: "image_tag", Required: true},
			},
		},
		Queue: []models.StageEvent{},
	}

	production := models.Stage{
		ID:   uuid.New().String(),
		Name: "deploy-production",
		Spec: models.StageSpec{
			Executor: models.ExecutorSpec{
				Type: models.ExecutorTypeSemaphore,
				Semaphore: &models.SemaphoreExecutorSpec{
					OrganizationURL: "https://demo.semaphoreci.com",
					ProjectID:       uuid.New().String(),
					Branch:          "main",
					PipelineFile:    ".semaphore/deploy-production.yml",
				},
			},
			Connections: []models.Connection{
				{Name: "deploy-staging", Type: "stage"},
			},
			Conditions: []models.Condition{
				{
					Type:     models.ConditionTypeApproval,
					Approval: &models.ApprovalCondition{Count: 1},
				},
			},
			Inputs: []models.InputDefinition{
				{Name: "image_tag"},
			},
		},
		Queue: []models.StageEvent{},
	}

	s.stages = []models.Stage{staging, production}
}
