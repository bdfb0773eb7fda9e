package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agriconnect/agriconnect-api/models"
)

func TestValidOrderStatus(t *testing.T) {
	assert.True(t, models.ValidOrderStatus(models.OrderStatusPending))
	assert.True(t, models.ValidOrderStatus(models.OrderStatusAccepted))
	assert.True(t, models.ValidOrderStatus(models.OrderStatusRejected))
	assert.True(t, models.ValidOrderStatus(models.OrderStatusCompleted))

	assert.False(t, models.ValidOrderStatus("archived"))
	assert.False(t, models.ValidOrderStatus(""))
	assert.False(t, models.ValidOrderStatus("Pending"))
}

func TestValidOrderTransition(t *testing.T) {
	assert.True(t, models.ValidOrderTransition(models.OrderStatusPending, models.OrderStatusAccepted))
	assert.True(t, models.ValidOrderTransition(models.OrderStatusPending, models.OrderStatusRejected))
	assert.True(t, models.ValidOrderTransition(models.OrderStatusAccepted, models.OrderStatusCompleted))

	// no skipping straight to completed and no going backwards
	assert.False(t, models.ValidOrderTransition(models.OrderStatusPending, models.OrderStatusCompleted))
	assert.False(t, models.ValidOrderTransition(models.OrderStatusAccepted, models.OrderStatusPending))
	assert.False(t, models.ValidOrderTransition(models.OrderStatusAccepted, models.OrderStatusRejected))

	// terminal statuses never move again
	assert.False(t, models.ValidOrderTransition(models.OrderStatusRejected, models.OrderStatusAccepted))
	assert.False(t, models.ValidOrderTransition(models.OrderStatusCompleted, models.OrderStatusAccepted))

	// self transitions are not legal either
	assert.False(t, models.ValidOrderTransition(models.OrderStatusPending, models.OrderStatusPending))
}

func TestConsultOrderTerminal(t *testing.T) {
	order := models.ConsultOrder{}

	order.Details.Status = models.OrderStatusPending
	assert.False(t, order.Terminal())

	order.Details.Status = models.OrderStatusAccepted
	assert.False(t, order.Terminal())

	order.Details.Status = models.OrderStatusRejected
	assert.True(t, order.Terminal())

	order.Details.Status = models.OrderStatusCompleted
	assert.True(t, order.Terminal())
}
