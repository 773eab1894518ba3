package main

import (
	"context"
	"time"

	"taskforge/pkg/models"
)

// processForcedOrPlain routes through the classifier unless the user
// pinned a task type or agent on the command line.
func processForcedOrPlain(ctx context.Context, a *app, request string) models.RequestResult {
	if runAgent == "" && runTaskType == "" {
		return a.supervisor.ProcessRequest(ctx, request)
	}

	task := models.Task{
		Type:        runTaskType,
		Description: request,
		AgentTarget: runAgent,
		Input:       request,
	}
	if task.Type == "" {
		task.Type = "general"
	}

	start := time.Now()
	taskResult, err := a.supervisor.RouteTask(ctx, task)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		return models.RequestResult{ProcessingTime: elapsed, Error: err.Error()}
	}
	return models.RequestResult{
		Success:        taskResult.Success,
		TaskID:         taskResult.TaskID,
		ProcessingTime: elapsed,
		Result:         taskResult,
	}
}
