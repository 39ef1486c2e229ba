// Package worker runs out-of-band jobs: tenant schema provisioning picked
// up from the Redis queue after a tenant-creation request returns.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atelier-lms/backend/pkg/queue"
)

// TenantProvisioner is the provisioning surface the processor drives.
type TenantProvisioner interface {
	Provision(ctx context.Context, tenantID uuid.UUID) error
}

// ProvisionProcessor consumes tenant provisioning jobs. Provisioning is
// idempotent, so a retried or duplicated job is harmless.
type ProvisionProcessor struct {
	provisioner TenantProvisioner
	queue       *queue.Queue
	logger      *zap.Logger
}

// NewProvisionProcessor creates a provisioning job processor.
func NewProvisionProcessor(provisioner TenantProvisioner, q *queue.Queue, logger *zap.Logger) *ProvisionProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProvisionProcessor{provisioner: provisioner, queue: q, logger: logger}
}

// Process executes one provisioning job.
func (p *ProvisionProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeTenantProvision {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.TenantProvisionPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return p.provisioner.Provision(ctx, payload.TenantID)
}

// Run starts the worker loop: dequeue, provision, retry on error.
func (p *ProvisionProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("provisioning worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("provisioning worker stopping")
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(2 * time.Second)
			continue
		}
		if job == nil {
			continue
		}

		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("provisioning job failed",
				zap.String("job_id", job.ID),
				zap.Int("attempt", job.Attempt),
				zap.Error(err))
			if rerr := p.queue.Retry(ctx, job); rerr != nil {
				p.logger.Error("retry enqueue failed", zap.String("job_id", job.ID), zap.Error(rerr))
			}
			continue
		}
		p.logger.Info("provisioning job done", zap.String("job_id", job.ID))
	}
}
