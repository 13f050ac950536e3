package router_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amirphl/docflow/app/handlers"
	"github.com/amirphl/docflow/app/middleware"
	"github.com/amirphl/docflow/app/router"
	"github.com/amirphl/docflow/app/services"
	businessflow "github.com/amirphl/docflow/business_flow"
	"github.com/amirphl/docflow/config"
	"github.com/amirphl/docflow/repository"
	testingutil "github.com/amirphl/docflow/testing"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-test-secret-key-0123456789abcdef"

type apiEnv struct {
	app      *fiber.App
	token    string
	fixtures *testingutil.TestFixtures
	email    *services.MockEmailProvider
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Details any    `json:"details"`
	} `json:"error"`
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			ReadTimeout:   5 * time.Second,
			WriteTimeout:  5 * time.Second,
			IdleTimeout:   5 * time.Second,
			BodyLimit:     1024 * 1024,
			EnableMetrics: true,
		},
		Security: config.SecurityConfig{
			AllowedOrigins:  []string{"http://localhost:3000"},
			AllowedMethods:  []string{"GET", "POST", "PATCH"},
			AllowedHeaders:  []string{"Content-Type", "Authorization"},
			GlobalRateLimit: 1000,
			PublicRateLimit: 1000,
			RateLimitWindow: time.Minute,
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
		App:     config.AppConfig{PublicBaseURL: "https://docs.example.com", RecentViewsLimit: 10},
	}
}

func withAPI(t *testing.T, fn func(env *apiEnv)) {
	t.Helper()
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		cfg := testConfig()
		clock := testingutil.NewStepClock()
		email := services.NewMockEmailProvider()
		notifier := services.NewNotificationService(email, "owner@example.com")

		documentRepo := repository.NewDocumentRepository(testDB.DB)
		clientRepo := repository.NewClientRepository(testDB.DB)
		auditRepo := repository.NewAuditLogRepository(testDB.DB)
		taskRepo := repository.NewTaskRepository(testDB.DB)
		leadRepo := repository.NewLeadRepository(testDB.DB)

		documents := businessflow.NewDocumentFlow(documentRepo, clientRepo, repository.NewSequenceCounterRepository(testDB.DB), auditRepo, clock, testDB.DB)
		tracking := businessflow.NewTrackingFlow(repository.NewDocumentTrackingRepository(testDB.DB), repository.NewDocumentViewRepository(testDB.DB),
			documentRepo, auditRepo, notifier, clock, cfg.App.PublicBaseURL, cfg.App.RecentViewsLimit)
		signatures := businessflow.NewSignatureFlow(repository.NewSignatureRequestRepository(testDB.DB), documentRepo, auditRepo, notifier, clock,
			7*24*time.Hour, cfg.App.PublicBaseURL, testDB.DB)
		reminders := businessflow.NewReminderFlow(taskRepo, documentRepo, leadRepo, clientRepo, clock)
		reports := businessflow.NewReportFlow(documentRepo, clientRepo, taskRepo, leadRepo, nil, "docflow:", time.Minute, clock)

		tokenService, err := services.NewTokenService(time.Hour, 24*time.Hour, "docflow", "docflow-api", false, "", "", testSecret)
		require.NoError(t, err)
		access, _, err := tokenService.GenerateTokens(1)
		require.NoError(t, err)

		r := router.NewFiberRouter(cfg, router.Handlers{
			Documents:  handlers.NewDocumentHandler(documents, reports),
			Tracking:   handlers.NewTrackingHandler(tracking, cfg.App.RecentViewsLimit),
			Signatures: handlers.NewSignatureHandler(signatures, reports),
			Reminders:  handlers.NewReminderHandler(reminders),
			Reports:    handlers.NewReportHandler(reports),
		}, middleware.NewAuthMiddleware(tokenService), map[string]router.HealthCheck{
			"database": testDB.Ping,
		}, nil)
		r.SetupRoutes()

		fn(&apiEnv{app: r.GetApp(), token: access, fixtures: testingutil.NewTestFixtures(testDB), email: email})
		return nil
	})
	require.NoError(t, err)
}

func (env *apiEnv) do(t *testing.T, method, path string, body any, authenticated bool) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authenticated {
		req.Header.Set("Authorization", "Bearer "+env.token)
	}
	resp, err := env.app.Test(req)
	require.NoError(t, err)

	var out envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type documentBody struct {
	ID              uint     `json:"id"`
	Number          string   `json:"number"`
	Status          string   `json:"status"`
	TotalHT         string   `json:"total_ht"`
	TotalTVA        string   `json:"total_tva"`
	TotalTTC        string   `json:"total_ttc"`
	AllowedStatuses []string `json:"allowed_statuses"`
}

func (env *apiEnv) createQuote(t *testing.T) documentBody {
	t.Helper()
	client, err := env.fixtures.CreateTestClient("Ada", "Lovelace")
	require.NoError(t, err)

	resp, out := env.do(t, http.MethodPost, "/api/v1/documents", map[string]any{
		"client_id": client.ID,
		"type":      "quote",
		"lines": []map[string]any{
			{"description": "Consulting", "quantity": "2", "unit_price_ht": "100", "tva_rate": "20"},
			{"description": "Travel", "quantity": "1", "unit_price_ht": "50", "tva_rate": "10"},
		},
	}, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode, out.Message)
	return decode[documentBody](t, out.Data)
}

func TestDocumentEndpoints(t *testing.T) {
	withAPI(t, func(env *apiEnv) {
		doc := env.createQuote(t)
		assert.Equal(t, "DEV-2025-001", doc.Number)
		assert.Equal(t, "250.00", doc.TotalHT)
		assert.Equal(t, "45.00", doc.TotalTVA)
		assert.Equal(t, "295.00", doc.TotalTTC)

		t.Run("Get", func(t *testing.T) {
			resp, out := env.do(t, http.MethodGet, "/api/v1/documents/1", nil, true)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			got := decode[documentBody](t, out.Data)
			assert.ElementsMatch(t, []string{"sent", "cancelled"}, got.AllowedStatuses)
		})

		t.Run("List", func(t *testing.T) {
			resp, out := env.do(t, http.MethodGet, "/api/v1/documents?type=quote&page=1&page_size=5", nil, true)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			list := decode[struct {
				Documents []documentBody `json:"documents"`
			}](t, out.Data)
			require.Len(t, list.Documents, 1)
		})

		t.Run("TransitionAllowed", func(t *testing.T) {
			resp, out := env.do(t, http.MethodPost, "/api/v1/documents/1/transition", map[string]string{"status": "sent"}, true)
			require.Equal(t, http.StatusOK, resp.StatusCode, out.Message)
			assert.Equal(t, "sent", decode[documentBody](t, out.Data).Status)
		})

		t.Run("TransitionRejectedIsConflict", func(t *testing.T) {
			resp, out := env.do(t, http.MethodPost, "/api/v1/documents/1/transition", map[string]string{"status": "paid"}, true)
			assert.Equal(t, http.StatusConflict, resp.StatusCode)
			assert.False(t, out.Success)
			assert.NotEmpty(t, out.Error.Code)
		})

		t.Run("UnknownDocumentIsNotFound", func(t *testing.T) {
			resp, _ := env.do(t, http.MethodGet, "/api/v1/documents/999", nil, true)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		})

		t.Run("InvalidBodyIsBadRequest", func(t *testing.T) {
			resp, out := env.do(t, http.MethodPost, "/api/v1/documents", map[string]any{"type": "receipt"}, true)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "VALIDATION_ERROR", out.Error.Code)
		})

		t.Run("EmptyLinesIsBadRequest", func(t *testing.T) {
			resp, _ := env.do(t, http.MethodPost, "/api/v1/documents", map[string]any{"client_id": 1, "type": "invoice"}, true)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	})
}

func TestAuthentication(t *testing.T) {
	withAPI(t, func(env *apiEnv) {
		tests := []struct {
			name   string
			header string
			code   string
		}{
			{"Missing", "", "MISSING_AUTHORIZATION_HEADER"},
			{"WrongScheme", "Basic abc", "INVALID_AUTHORIZATION_FORMAT"},
			{"Garbage", "Bearer nope", "TOKEN_INVALID"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
				if tt.header != "" {
					req.Header.Set("Authorization", tt.header)
				}
				resp, err := env.app.Test(req)
				require.NoError(t, err)
				assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

				var out envelope
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
				assert.Equal(t, tt.code, out.Error.Code)
			})
		}
	})
}

func TestPublicTrackingAndSigning(t *testing.T) {
	withAPI(t, func(env *apiEnv) {
		doc := env.createQuote(t)

		resp, out := env.do(t, http.MethodPost, "/api/v1/documents/1/tracking", nil, true)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		tracking := decode[struct {
			Token string `json:"token"`
		}](t, out.Data)

		t.Run("ViewIsPublic", func(t *testing.T) {
			resp, out := env.do(t, http.MethodGet, "/view/"+tracking.Token, nil, false)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			view := decode[struct {
				Available bool `json:"available"`
			}](t, out.Data)
			assert.True(t, view.Available)
		})

		t.Run("UnknownViewTokenIsInert", func(t *testing.T) {
			resp, out := env.do(t, http.MethodGet, "/view/unknown", nil, false)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			view := decode[struct {
				Available bool `json:"available"`
			}](t, out.Data)
			assert.False(t, view.Available)
		})

		resp, out = env.do(t, http.MethodPost, "/api/v1/documents/1/signatures", map[string]string{
			"signer_name": "Grace Hopper", "signer_email": "grace@example.com",
		}, true)
		require.Equal(t, http.StatusCreated, resp.StatusCode, out.Message)
		signature := decode[struct {
			SignURL string `json:"sign_url"`
		}](t, out.Data)
		token := strings.TrimPrefix(signature.SignURL, "https://docs.example.com/sign/")
		require.NotEmpty(t, token)

		t.Run("SignerSeesRequest", func(t *testing.T) {
			resp, out := env.do(t, http.MethodGet, "/sign/"+token, nil, false)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			got := decode[struct {
				Status string `json:"status"`
			}](t, out.Data)
			assert.Equal(t, "pending", got.Status)
		})

		t.Run("SignAndSignAgain", func(t *testing.T) {
			body := map[string]string{"outcome": "signed", "signature_data": "data:image/png;base64,AAAA"}
			resp, out := env.do(t, http.MethodPost, "/sign/"+token+"/respond", body, false)
			require.Equal(t, http.StatusOK, resp.StatusCode, out.Message)

			resp, _ = env.do(t, http.MethodPost, "/sign/"+token+"/respond", body, false)
			assert.Equal(t, http.StatusConflict, resp.StatusCode)
		})

		t.Run("AggregateStatus", func(t *testing.T) {
			resp, out := env.do(t, http.MethodGet, "/api/v1/documents/1/signature-status", nil, true)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			got := decode[struct {
				Status string `json:"status"`
			}](t, out.Data)
			assert.Equal(t, "signed", got.Status)
		})

		t.Run("UnknownSignTokenIsNotFound", func(t *testing.T) {
			resp, _ := env.do(t, http.MethodGet, "/sign/unknown", nil, false)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		})

		assert.NotZero(t, doc.ID)
		assert.NotEmpty(t, env.email.Sent())
	})
}

func TestReportEndpoints(t *testing.T) {
	withAPI(t, func(env *apiEnv) {
		env.createQuote(t)

		t.Run("KPIs", func(t *testing.T) {
			resp, out := env.do(t, http.MethodGet, "/api/v1/reports/kpis?refresh=true", nil, true)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.True(t, out.Success)
		})

		t.Run("BadRefresh", func(t *testing.T) {
			resp, _ := env.do(t, http.MethodGet, "/api/v1/reports/kpis?refresh=maybe", nil, true)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})

		t.Run("ExportCSV", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/documents/export?format=csv", nil)
			req.Header.Set("Authorization", "Bearer "+env.token)
			resp, err := env.app.Test(req)
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, resp.Header.Get("Content-Disposition"), "documents-20250310.csv")

			records, err := csv.NewReader(resp.Body).ReadAll()
			require.NoError(t, err)
			require.Len(t, records, 2)
			assert.Equal(t, "DEV-2025-001", records[1][1])
		})

		t.Run("ExportUnknownFormat", func(t *testing.T) {
			resp, _ := env.do(t, http.MethodGet, "/api/v1/reports/documents/export?format=pdf", nil, true)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})

		t.Run("Reminders", func(t *testing.T) {
			resp, out := env.do(t, http.MethodGet, "/api/v1/reminders/counts", nil, true)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			counts := decode[struct {
				Total int64 `json:"total"`
			}](t, out.Data)
			assert.Zero(t, counts.Total)
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	withAPI(t, func(env *apiEnv) {
		resp, out := env.do(t, http.MethodGet, "/api/v1/health", nil, false)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		health := decode[struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}](t, out.Data)
		assert.Equal(t, "ok", health.Status)
		assert.Equal(t, "ok", health.Checks["database"])
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		resp, err := env.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp, out = env.do(t, http.MethodGet, "/nowhere", nil, false)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", out.Error.Code)
	})
}
