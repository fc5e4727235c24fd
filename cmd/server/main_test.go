package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mzkhan-25/field-services-mk/internal/assignment"
	"github.com/mzkhan-25/field-services-mk/internal/domain"
	"github.com/mzkhan-25/field-services-mk/internal/memstore"
	"github.com/mzkhan-25/field-services-mk/internal/notifier"
	"github.com/mzkhan-25/field-services-mk/internal/tasks"
	"github.com/mzkhan-25/field-services-mk/internal/tracking"
)

type testEnv struct {
	server  *httptest.Server
	storage *memstore.Storage
	queue   *memstore.Queue
	sender  *memstore.Sender
}

func runTestServer() *testEnv {
	storage := memstore.NewStorage()
	queue := memstore.NewQueue()
	channelSender := memstore.NewSender()
	lock := memstore.NewLock()

	storage.SeedUser(domain.User{ID: 1, Username: "dispatcher_dana", Email: "dana@example.com", Role: domain.RoleDispatcher, Active: true})
	storage.SeedUser(domain.User{ID: 2, Username: "tech_tom", Email: "tom@example.com", Phone: "+15550100", Role: domain.RoleTechnician, Active: true})
	storage.SeedUser(domain.User{ID: 3, Username: "tech_idle", Email: "idle@example.com", Role: domain.RoleTechnician, Active: false})
	storage.SeedUser(domain.User{ID: 4, Username: "customer_carl", Email: "carl@example.com", Role: domain.RoleCustomer, Active: true})

	enqueuer := notifier.NewQueueEnqueuer(queue, "notifications")
	throttle := tracking.NewMemoryThrottle(30 * time.Second)

	deps := serverDeps{
		tasks:         tasks.NewService(storage, storage, lock, enqueuer),
		assignments:   assignment.NewCoordinator(storage, storage, lock, enqueuer),
		tracking:      tracking.NewService(storage, storage, storage, throttle, queue, "locations_live"),
		notifications: notifier.NewService(storage, channelSender, 3),
		store:         storage,
		queue:         queue,
	}

	postgresIsReady, rabbitIsReady, redisIsReady = true, true, true

	return &testEnv{
		server:  httptest.NewServer(setupHTTPServer(deps)),
		storage: storage,
		queue:   queue,
		sender:  channelSender,
	}
}

func (e *testEnv) post(t *testing.T, path string, payload any) *http.Response {
	t.Helper()

	body := []byte{}
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("Expected no error marshalling payload, got %v", err)
		}
		body = jsonData
	}

	req, err := http.NewRequest("POST", e.server.URL+path, bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("Expected no error creating request, got %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Expected no error sending request, got %v", err)
	}

	return resp
}

func (e *testEnv) patch(t *testing.T, path string, payload any) *http.Response {
	t.Helper()

	jsonData, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Expected no error marshalling payload, got %v", err)
	}

	req, err := http.NewRequest("PATCH", e.server.URL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		t.Fatalf("Expected no error creating request, got %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Expected no error sending request, got %v", err)
	}

	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Expected no error decoding response body, got %v", err)
	}

	return out
}

func Test_liveness_api(t *testing.T) {
	env := runTestServer()
	defer env.server.Close()

	t.Run("it should return 200 when health is ok", func(t *testing.T) {
		resp, err := http.Get(fmt.Sprintf("%s/liveness", env.server.URL))
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		assert.Equal(t, 200, resp.StatusCode)
	})
}

func Test_readiness_api(t *testing.T) {
	env := runTestServer()
	defer env.server.Close()

	t.Run("it should return 200 when health is ok", func(t *testing.T) {
		resp, err := http.Get(fmt.Sprintf("%s/readiness", env.server.URL))
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		assert.Equal(t, 200, resp.StatusCode)
	})
}

func Test_create_task_api(t *testing.T) {
	env := runTestServer()
	defer env.server.Close()

	t.Run("it should create an unassigned task", func(t *testing.T) {
		resp := env.post(t, "/tasks", map[string]any{
			"title":          "Fix water heater",
			"description":    "No hot water since Tuesday",
			"client_address": "221B Baker Street",
			"priority":       "HIGH",
		})

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		task := decodeJSON[domain.Task](t, resp)
		assert.Equal(t, domain.Unassigned, task.Status)
		assert.Equal(t, domain.High, task.Priority)
		assert.NotZero(t, task.ID)
	})

	t.Run("it should reject an unknown priority", func(t *testing.T) {
		resp := env.post(t, "/tasks", map[string]any{
			"title":          "Fix water heater",
			"client_address": "221B Baker Street",
			"priority":       "URGENT",
		})
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("it should reject an address without digits", func(t *testing.T) {
		resp := env.post(t, "/tasks", map[string]any{
			"title":          "Fix water heater",
			"client_address": "Baker Street",
			"priority":       "LOW",
		})
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func Test_task_lifecycle_apis(t *testing.T) {
	env := runTestServer()
	defer env.server.Close()

	createResp := env.post(t, "/tasks", map[string]any{
		"title":              "Replace breaker panel",
		"client_address":     "12 Elm Street",
		"priority":           "MEDIUM",
		"estimated_duration": 90,
	})
	created := decodeJSON[domain.Task](t, createResp)

	t.Run("it should reject starting an unassigned task", func(t *testing.T) {
		resp := env.post(t, fmt.Sprintf("/tasks/%d/start", created.ID), nil)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("it should assign the task to an active technician", func(t *testing.T) {
		resp := env.post(t, fmt.Sprintf("/tasks/%d/assign", created.ID), map[string]any{
			"technician_id": 2,
			"assigned_by":   1,
		})

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		task := decodeJSON[domain.Task](t, resp)
		assert.Equal(t, domain.Assigned, task.Status)
		if assert.NotNil(t, task.AssignedTechnicianID) {
			assert.Equal(t, int64(2), *task.AssignedTechnicianID)
		}
		assert.NotNil(t, task.AssignedAt)
	})

	t.Run("it should reject assigning an already assigned task", func(t *testing.T) {
		resp := env.post(t, fmt.Sprintf("/tasks/%d/assign", created.ID), map[string]any{
			"technician_id": 2,
			"assigned_by":   1,
		})
		defer resp.Body.Close()

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("it should start the assigned task", func(t *testing.T) {
		resp := env.post(t, fmt.Sprintf("/tasks/%d/start", created.ID), nil)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		task := decodeJSON[domain.Task](t, resp)
		assert.Equal(t, domain.InProgress, task.Status)
		assert.NotNil(t, task.StartedAt)
	})

	t.Run("it should reject completion without a work summary", func(t *testing.T) {
		resp := env.post(t, fmt.Sprintf("/tasks/%d/complete", created.ID), map[string]any{
			"work_summary": "   ",
		})
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("it should complete the task with a work summary", func(t *testing.T) {
		resp := env.post(t, fmt.Sprintf("/tasks/%d/complete", created.ID), map[string]any{
			"work_summary": "Replaced panel and tested all circuits",
		})

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		task := decodeJSON[domain.Task](t, resp)
		assert.Equal(t, domain.Completed, task.Status)
		assert.Equal(t, "Replaced panel and tested all circuits", task.WorkSummary)
		assert.NotNil(t, task.CompletedAt)
	})

	t.Run("it should report the terminal status", func(t *testing.T) {
		resp, err := http.Get(fmt.Sprintf("%s/tasks/%d/status", env.server.URL, created.ID))
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeJSON[map[string]string](t, resp)
		assert.Equal(t, "COMPLETED", body["status"])
	})

	t.Run("it should return 404 for an unknown task", func(t *testing.T) {
		resp, err := http.Get(fmt.Sprintf("%s/tasks/9999", env.server.URL))
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func Test_assign_task_api_rejections(t *testing.T) {
	env := runTestServer()
	defer env.server.Close()

	createResp := env.post(t, "/tasks", map[string]any{
		"title":          "Service AC unit",
		"client_address": "45 Oak Avenue",
		"priority":       "LOW",
	})
	created := decodeJSON[domain.Task](t, createResp)

	t.Run("it should reject an inactive technician", func(t *testing.T) {
		resp := env.post(t, fmt.Sprintf("/tasks/%d/assign", created.ID), map[string]any{
			"technician_id": 3,
			"assigned_by":   1,
		})
		defer resp.Body.Close()

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("it should reject a non-technician assignee", func(t *testing.T) {
		resp := env.post(t, fmt.Sprintf("/tasks/%d/assign", created.ID), map[string]any{
			"technician_id": 4,
			"assigned_by":   1,
		})
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("it should reject an unknown technician", func(t *testing.T) {
		resp := env.post(t, fmt.Sprintf("/tasks/%d/assign", created.ID), map[string]any{
			"technician_id": 9999,
			"assigned_by":   1,
		})
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("it should leave the task unassigned after the rejections", func(t *testing.T) {
		resp, err := http.Get(fmt.Sprintf("%s/tasks/%d", env.server.URL, created.ID))
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		task := decodeJSON[domain.Task](t, resp)
		assert.Equal(t, domain.Unassigned, task.Status)
		assert.Nil(t, task.AssignedTechnicianID)
	})
}

func Test_available_technicians_api(t *testing.T) {
	env := runTestServer()
	defer env.server.Close()

	t.Run("it should list only active technicians", func(t *testing.T) {
		resp, err := http.Get(fmt.Sprintf("%s/technicians/available", env.server.URL))
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		technicians := decodeJSON[[]domain.Technician](t, resp)
		if assert.Len(t, technicians, 1) {
			assert.Equal(t, "tech_tom", technicians[0].Username)
		}
	})
}

func Test_report_location_api(t *testing.T) {
	env := runTestServer()
	defer env.server.Close()

	t.Run("it should accept a technician location report", func(t *testing.T) {
		resp := env.post(t, "/locations", map[string]any{
			"user_id":   2,
			"latitude":  52.52,
			"longitude": 13.405,
		})

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		location := decodeJSON[domain.Location](t, resp)
		assert.Equal(t, int64(2), location.UserID)
	})

	t.Run("it should throttle a report inside the window", func(t *testing.T) {
		resp := env.post(t, "/locations", map[string]any{
			"user_id":   2,
			"latitude":  52.53,
			"longitude": 13.41,
		})

		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		body := decodeJSON[map[string]any](t, resp)
		retryAfter, exists := body["retry_after_seconds"]
		assert.Equal(t, true, exists)
		assert.Greater(t, retryAfter.(float64), float64(0))
	})

	t.Run("it should accept zero coordinates on the equator and prime meridian", func(t *testing.T) {
		resp := env.post(t, "/locations", map[string]any{
			"user_id":   3,
			"latitude":  0.0,
			"longitude": 0.0,
		})

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		location := decodeJSON[domain.Location](t, resp)
		assert.Equal(t, float64(0), location.Latitude)
		assert.Equal(t, float64(0), location.Longitude)
	})

	t.Run("it should reject a report without coordinates", func(t *testing.T) {
		resp := env.post(t, "/locations", map[string]any{
			"user_id": 3,
		})
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("it should reject a non-technician reporter", func(t *testing.T) {
		resp := env.post(t, "/locations", map[string]any{
			"user_id":   1,
			"latitude":  52.52,
			"longitude": 13.405,
		})
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("it should return the latest report for the user", func(t *testing.T) {
		resp, err := http.Get(fmt.Sprintf("%s/locations/user/2", env.server.URL))
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		location := decodeJSON[domain.Location](t, resp)
		assert.Equal(t, 52.52, location.Latitude)
	})
}

func Test_update_task_api(t *testing.T) {
	env := runTestServer()
	defer env.server.Close()

	createResp := env.post(t, "/tasks", map[string]any{
		"title":          "Inspect roof",
		"client_address": "78 Pine Road",
		"priority":       "LOW",
	})
	created := decodeJSON[domain.Task](t, createResp)

	t.Run("it should update priority without touching other fields", func(t *testing.T) {
		resp := env.patch(t, fmt.Sprintf("/tasks/%d", created.ID), map[string]any{
			"priority": "HIGH",
		})

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		task := decodeJSON[domain.Task](t, resp)
		assert.Equal(t, domain.High, task.Priority)
		assert.Equal(t, "Inspect roof", task.Title)
	})

	t.Run("it should reject an invalid replacement address", func(t *testing.T) {
		resp := env.patch(t, fmt.Sprintf("/tasks/%d", created.ID), map[string]any{
			"client_address": "?????",
		})
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func Test_notifications_api(t *testing.T) {
	env := runTestServer()
	defer env.server.Close()

	t.Run("it should send a notification and record it as SENT", func(t *testing.T) {
		resp := env.post(t, "/notifications/send", map[string]any{
			"task_id":           1,
			"customer_id":       4,
			"type":              "TASK_ASSIGNED",
			"message":           "A technician has been assigned to your request",
			"recipient_contact": "carl@example.com",
		})

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		notification := decodeJSON[domain.Notification](t, resp)
		assert.Equal(t, domain.DeliverySent, notification.DeliveryStatus)
		assert.Equal(t, domain.ChannelEmail, notification.Channel)
		assert.Len(t, env.sender.Emails(), 1)
	})

	t.Run("it should list the notifications of a task", func(t *testing.T) {
		resp, err := http.Get(fmt.Sprintf("%s/notifications/1", env.server.URL))
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		notifications := decodeJSON[[]domain.Notification](t, resp)
		assert.Len(t, notifications, 1)
	})

	t.Run("it should reject an unknown notification type", func(t *testing.T) {
		resp := env.post(t, "/notifications/send", map[string]any{
			"task_id":           1,
			"customer_id":       4,
			"type":              "TASK_EXPLODED",
			"message":           "boom",
			"recipient_contact": "carl@example.com",
		})
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("it should accept a retry sweep request", func(t *testing.T) {
		resp := env.post(t, "/notifications/retry", map[string]any{})
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
