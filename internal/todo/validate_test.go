package todo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC)

func TestValidateTodoInputAccepts(t *testing.T) {
	due, errs := validateTodoInput("Buy milk", "from the corner shop", PriorityLow, StatusPending, "2026-03-05", testNow)
	assert.Empty(t, errs)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), due)
}

func TestValidateTodoInputDueTodayAccepted(t *testing.T) {
	_, errs := validateTodoInput("Buy milk", "", PriorityHigh, StatusPending, "2026-03-01", testNow)
	assert.Empty(t, errs)
}

func TestValidateTodoInputCollectsFailures(t *testing.T) {
	_, errs := validateTodoInput("ab", string(make([]byte, 201)), "urgent", "done", "yesterday", testNow)

	require.Len(t, errs, 5)
	assert.Equal(t, "Title must be at least 3 character long.", errs[0].Message)
	assert.Equal(t, "Description must not exceed 200 characters.", errs[1].Message)
	assert.Equal(t, "Priority must be either low, medium, or high.", errs[2].Message)
	assert.Equal(t, "Status must be either pending or completed.", errs[3].Message)
	assert.Equal(t, "Invalid date format.", errs[4].Message)
}

func TestValidateTodoInputPastDueDate(t *testing.T) {
	_, errs := validateTodoInput("Buy milk", "", PriorityMedium, StatusCompleted, "2026-02-28", testNow)
	require.Len(t, errs, 1)
	assert.Equal(t, "dueDate", errs[0].Field)
	assert.Equal(t, "Due date cannot be in the past.", errs[0].Message)
}
