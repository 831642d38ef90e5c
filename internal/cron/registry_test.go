package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedJob string

func (n namedJob) Name() string              { return string(n) }
func (n namedJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	registry, err := NewRegistry(namedJob("bargain-expiry"), namedJob("outbox-retention"))
	require.NoError(t, err)
	require.NoError(t, registry.Register(namedJob("notification-cleanup")))

	assert.Equal(t, []string{"bargain-expiry", "outbox-retention", "notification-cleanup"}, registry.Names())

	jobs := registry.Jobs()
	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0], "internal slice leaked")
}

func TestRegistryRejectsDuplicatesAndNil(t *testing.T) {
	_, err := NewRegistry(namedJob("settlement"), namedJob("settlement"))
	assert.Error(t, err)

	registry, err := NewRegistry()
	require.NoError(t, err)
	assert.Error(t, registry.Register(nil))
	assert.Empty(t, registry.Names())
}
