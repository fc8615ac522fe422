package jobs_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub/internal/auth"
	"github.com/learnhub/learnhub/jobs"
	_ "github.com/learnhub/learnhub/testing"
)

func TestOTPEmailTaskPayload(t *testing.T) {
	task, err := jobs.NewOTPEmailTask(jobs.OTPEmailPayload{
		To:       "student@example.com",
		FullName: "Nadia Rahman",
		Code:     "482913",
	})
	require.NoError(t, err)
	require.Equal(t, jobs.TaskTypeOTPEmail, task.Type())

	var decoded jobs.OTPEmailPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	require.Equal(t, "student@example.com", decoded.To)
	require.Equal(t, "482913", decoded.Code)
}

func TestPaymentSMSTaskPayload(t *testing.T) {
	task, err := jobs.NewPaymentSMSTask(jobs.PaymentSMSPayload{
		Phone:      "01712345678",
		FullName:   "Nadia Rahman",
		CourseName: "Go Fundamentals",
		Amount:     4500,
		Accepted:   false,
		Reason:     "transaction id not found",
	})
	require.NoError(t, err)
	require.Equal(t, jobs.TaskTypePaymentSMS, task.Type())

	var decoded jobs.PaymentSMSPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	require.False(t, decoded.Accepted)
	require.Equal(t, "transaction id not found", decoded.Reason)
}

func TestQueueHealthRequiresAdmin(t *testing.T) {
	handler := jobs.NewHandler("127.0.0.1:6379", auth.Guard{}, nil)
	router := chi.NewRouter()
	router.Route("/jobs", handler.MountRoutes)

	req := httptest.NewRequest(http.MethodGet, "/jobs/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProcessorRejectsMalformedPayload(t *testing.T) {
	processor := jobs.NewProcessor(nil, nil, nil, nil)
	task := asynq.NewTask(jobs.TaskTypeOTPEmail, []byte("{not json"))
	err := processor.HandleOTPEmail(context.Background(), task)
	require.Error(t, err)
}
