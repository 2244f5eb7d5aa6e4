package todo

import (
	"time"

	"taskbox/internal/web"
)

func validateTodoInput(title, description, priority, status, dueDate string, now time.Time) (time.Time, []web.FieldError) {
	var errs []web.FieldError

	if len(title) < 3 {
		errs = append(errs, web.FieldError{Field: "title", Message: "Title must be at least 3 character long."})
	}
	if len(description) > 200 {
		errs = append(errs, web.FieldError{Field: "description", Message: "Description must not exceed 200 characters."})
	}
	if priority != PriorityLow && priority != PriorityMedium && priority != PriorityHigh {
		errs = append(errs, web.FieldError{Field: "priority", Message: "Priority must be either low, medium, or high."})
	}
	if status != StatusPending && status != StatusCompleted {
		errs = append(errs, web.FieldError{Field: "status", Message: "Status must be either pending or completed."})
	}

	due, err := time.Parse("2006-01-02", dueDate)
	if err != nil {
		errs = append(errs, web.FieldError{Field: "dueDate", Message: "Invalid date format."})
	} else {
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if due.Before(today) {
			errs = append(errs, web.FieldError{Field: "dueDate", Message: "Due date cannot be in the past."})
		}
	}

	return due, errs
}
