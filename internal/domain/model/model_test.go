package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"athena/pkg/errors"
)

func validDescriptor() Descriptor {
	return Descriptor{
		ID:           "chat-lite",
		Kind:         KindGeneral,
		RequiredTier: TierPublic,
		Capabilities: []TaskType{TaskChat},
		Health:       HealthHealthy,
	}
}

func TestDescriptor_Validate(t *testing.T) {
	assert.NoError(t, validDescriptor().Validate())
}

func TestDescriptor_ValidateRejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Descriptor)
	}{
		{"missing id", func(d *Descriptor) { d.ID = "" }},
		{"unknown kind", func(d *Descriptor) { d.Kind = "quantum" }},
		{"invalid tier", func(d *Descriptor) { d.RequiredTier = Tier(-3) }},
		{"no capabilities", func(d *Descriptor) { d.Capabilities = nil }},
		{"unknown capability", func(d *Descriptor) { d.Capabilities = []TaskType{"telepathy"} }},
		{"unknown health", func(d *Descriptor) { d.Health = "sleepy" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := validDescriptor()
			tt.mutate(&desc)
			err := desc.Validate()
			assert.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrSchemaValidation))
		})
	}
}

func TestTier_Ordering(t *testing.T) {
	assert.True(t, TierAdmin > TierStaff)
	assert.True(t, TierStaff > TierMember)
	assert.True(t, TierMember > TierPublic)
}

func TestHealthState_Rank(t *testing.T) {
	assert.Less(t, HealthHealthy.Rank(), HealthDegraded.Rank())
	assert.Less(t, HealthDegraded.Rank(), HealthUnavailable.Rank())
}

func TestDescriptor_RuntimeModel(t *testing.T) {
	desc := validDescriptor()
	assert.Equal(t, "chat-lite", desc.RuntimeModel())

	desc.Metadata.RuntimeModel = "gpt-4o-mini"
	assert.Equal(t, "gpt-4o-mini", desc.RuntimeModel())
}
