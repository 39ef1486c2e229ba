package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-lms/backend/pkg/queue"
)

type fakeProvisioner struct {
	got uuid.UUID
	err error
}

func (f *fakeProvisioner) Provision(ctx context.Context, tenantID uuid.UUID) error {
	f.got = tenantID
	return f.err
}

func provisionJob(t *testing.T, tenantID uuid.UUID) *queue.Job {
	t.Helper()
	payload, err := json.Marshal(queue.TenantProvisionPayload{TenantID: tenantID})
	require.NoError(t, err)
	return &queue.Job{
		ID:      uuid.New().String(),
		Type:    queue.JobTypeTenantProvision,
		Payload: payload,
	}
}

func TestProcessProvisionJob(t *testing.T) {
	tenantID := uuid.New()
	prov := &fakeProvisioner{}
	p := NewProvisionProcessor(prov, nil, nil)

	require.NoError(t, p.Process(context.Background(), provisionJob(t, tenantID)))
	assert.Equal(t, tenantID, prov.got)
}

func TestProcessPropagatesProvisionError(t *testing.T) {
	prov := &fakeProvisioner{err: errors.New("schema create failed")}
	p := NewProvisionProcessor(prov, nil, nil)

	err := p.Process(context.Background(), provisionJob(t, uuid.New()))
	assert.EqualError(t, err, "schema create failed")
}

func TestProcessRejectsUnknownJobType(t *testing.T) {
	p := NewProvisionProcessor(&fakeProvisioner{}, nil, nil)
	job := &queue.Job{ID: "j1", Type: "send_email", Payload: []byte(`{}`)}

	err := p.Process(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown job type")
}

func TestProcessRejectsMalformedPayload(t *testing.T) {
	p := NewProvisionProcessor(&fakeProvisioner{}, nil, nil)
	job := &queue.Job{ID: "j1", Type: queue.JobTypeTenantProvision, Payload: []byte(`not-json`)}

	err := p.Process(context.Background(), job)
	assert.Error(t, err)
}
