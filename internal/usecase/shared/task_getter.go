package shared

import (
	"fmt"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

// GetTask retrieves a task by ID and returns domain.ErrTaskNotFound if not found.
// This centralizes the common pattern of:
//
//	task, err := store.GetTask(taskID)
//	if err != nil { return nil, fmt.Errorf("get task: %w", err) }
//	if task == nil { return nil, domain.ErrTaskNotFound }
func GetTask(store domain.EntityStore, taskID string) (*domain.TaskRecord, error) {
	task, err := store.GetTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, taskID)
	}
	return task, nil
}

// GetUser retrieves a user by ID and returns domain.ErrUserNotFound if not found.
func GetUser(store domain.EntityStore, userID string) (*domain.UserRecord, error) {
	user, err := store.GetUser(userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, userID)
	}
	return user, nil
}

// GetProject retrieves a project by ID and returns domain.ErrProjectNotFound if not found.
func GetProject(store domain.EntityStore, projectID string) (*domain.ProjectRecord, error) {
	project, err := store.GetProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if project == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrProjectNotFound, projectID)
	}
	return project, nil
}

// GetUserSnapshot retrieves and normalizes a user.
func GetUserSnapshot(store domain.EntityStore, userID string) (*domain.UserSnapshot, error) {
	rec, err := GetUser(store, userID)
	if err != nil {
		return nil, err
	}
	snap, err := domain.ToUserSnapshot(rec)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// GetProjectSnapshot retrieves and normalizes a project.
func GetProjectSnapshot(store domain.EntityStore, projectID string) (*domain.ProjectSnapshot, error) {
	rec, err := GetProject(store, projectID)
	if err != nil {
		return nil, err
	}
	snap, err := domain.ToProjectSnapshot(rec)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
