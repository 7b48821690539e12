package camunda

import (
	"context"
	"encoding/json"
	"fmt"

	"sales-orchestrator/internal/common/errors"
	"sales-orchestrator/internal/common/logger"
	"sales-orchestrator/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// DecodeVariables validates the job variables against schema and decodes them into dest.
// Any failure is a non-retryable INVALID_INPUT error.
func DecodeVariables(job entities.Job, schema *validation.Schema, dest interface{}) error {
	raw := []byte(job.GetVariables())
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	if schema != nil {
		if result := schema.ValidateJSON(raw); !result.Valid {
			return errors.NewValidationError(validation.FormatErrors(result.Errors))
		}
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return errors.NewValidationError(fmt.Sprintf("decode variables: %v", err))
	}
	return nil
}

// CompleteJob completes job with output as its variables. Send failures are only logged;
// the broker re-activates the job once its timeout expires.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}, log logger.Logger) {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		log.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(ctx); err != nil {
		log.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	log.Info("job completed", map[string]interface{}{"jobKey": job.GetKey()})
}
