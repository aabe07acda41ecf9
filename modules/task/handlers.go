package task

import (
	"context"

	domain "github.com/example/task-manager/domain/task"
	"github.com/go-monolith/mono"
)

// addTask handles the add-task service request.
func (m *TaskModule) addTask(ctx context.Context, req AddTaskRequest, _ *mono.Msg) (AddTaskResponse, error) {
	t, err := m.service.AddTask(ctx, req.Title, req.Description)
	if err != nil {
		return AddTaskResponse{}, err
	}
	return AddTaskResponse{
		Task:    toTaskResponse(*t),
		Message: MsgTaskAdded,
	}, nil
}

// listTasks handles the list-tasks service request.
func (m *TaskModule) listTasks(ctx context.Context, _ ListTasksRequest, _ *mono.Msg) (ListTasksResponse, error) {
	tasks, err := m.service.ListTasks(ctx)
	if err != nil {
		return ListTasksResponse{}, err
	}

	response := ListTasksResponse{
		Tasks: make([]TaskResponse, 0, len(tasks)),
		Total: len(tasks),
	}
	for _, t := range tasks {
		response.Tasks = append(response.Tasks, toTaskResponse(t))
	}
	return response, nil
}

// completeTask handles the complete-task service request.
func (m *TaskModule) completeTask(ctx context.Context, req CompleteTaskRequest, _ *mono.Msg) (MutationResponse, error) {
	changed, err := m.service.CompleteTask(ctx, req.ID)
	if err != nil {
		return MutationResponse{ID: req.ID}, err
	}
	return MutationResponse{ID: req.ID, Changed: changed, Message: MsgTaskCompleted}, nil
}

// deleteTask handles the delete-task service request.
func (m *TaskModule) deleteTask(ctx context.Context, req DeleteTaskRequest, _ *mono.Msg) (MutationResponse, error) {
	deleted, err := m.service.DeleteTask(ctx, req.ID)
	if err != nil {
		return MutationResponse{ID: req.ID}, err
	}
	return MutationResponse{ID: req.ID, Changed: deleted, Message: MsgTaskDeleted}, nil
}

// toTaskResponse converts a domain Task to a TaskResponse.
func toTaskResponse(t domain.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
	}
}
