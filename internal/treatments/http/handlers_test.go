package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/leafit/leafit-backend/internal/platform/access"
	"github.com/leafit/leafit-backend/internal/platform/logger"
	"github.com/leafit/leafit-backend/internal/session"
	"github.com/leafit/leafit-backend/internal/treatments/domain"
	"github.com/leafit/leafit-backend/internal/treatments/repository"
	"github.com/leafit/leafit-backend/internal/treatments/service"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// X-Test-User stands in for the session cookie.
func fakeSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid := c.GetHeader("X-Test-User"); uid != "" {
			session.SetActor(c, access.Actor{UserID: uid, Username: "name-" + uid})
		}
		c.Next()
	}
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := service.NewTreatmentService(repository.NewTreatmentRepository(client, "leafit"), nil, logger.Nop())
	r := gin.New()
	r.Use(fakeSession())
	New(svc, logger.Nop()).Register(r.Group("/api/treatments"), session.RequireAuth())
	return r
}

func do(r *gin.Engine, method, path, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createTreatment(t *testing.T, r *gin.Engine, user string) string {
	t.Helper()
	w := do(r, http.MethodPost, "/api/treatments", user,
		`{"name":"Neem oil","instructions":"Spray weekly","type":"organic","problemsSolved":"aphids","ingredients":["neem"]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Message     string `json:"message"`
		TreatmentID string `json:"treatmentId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Treatment created successfully", resp.Message)
	return resp.TreatmentID
}

func TestTreatmentHandlers_CreateAndGet(t *testing.T) {
	r := setupRouter(t)
	id := createTreatment(t, r, "u1")

	w := do(r, http.MethodGet, "/api/treatments/"+id, "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got domain.Treatment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "name-u1", got.Username)

	w = do(r, http.MethodGet, "/api/treatments/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Treatment not found"}`, w.Body.String())
}

func TestTreatmentHandlers_CreateValidation(t *testing.T) {
	r := setupRouter(t)

	w := do(r, http.MethodPost, "/api/treatments", "", `{"name":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/api/treatments", "u1", `{"name":"Neem oil"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"All fields are required"}`, w.Body.String())
}

func TestTreatmentHandlers_OwnerOnlyMutations(t *testing.T) {
	r := setupRouter(t)
	id := createTreatment(t, r, "u1")

	w := do(r, http.MethodPut, "/api/treatments/"+id, "u2", `{"instructions":"hijack"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())

	w = do(r, http.MethodDelete, "/api/treatments/"+id, "u2", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodPut, "/api/treatments/"+id, "u1", `{"instructions":"Spray at dusk"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Treatment updated successfully"}`, w.Body.String())

	w = do(r, http.MethodDelete, "/api/treatments/"+id, "u1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Treatment deleted successfully"}`, w.Body.String())
}

func TestTreatmentHandlers_Rate(t *testing.T) {
	r := setupRouter(t)
	id := createTreatment(t, r, "u1")

	w := do(r, http.MethodPost, "/api/treatments/"+id+"/rate", "u2", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, body := range []string{`{"success":true}`, `{"success":false}`, `{"success":true}`} {
		w = do(r, http.MethodPost, "/api/treatments/"+id+"/rate", "u2", body)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"Treatment rated successfully"}`, w.Body.String())
	}

	w = do(r, http.MethodGet, "/api/treatments/"+id, "", "")
	var got domain.Treatment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 3, got.Applications)
	assert.Equal(t, 67, got.SuccessRate)

	w = do(r, http.MethodPost, "/api/treatments/missing/rate", "u2", `{"success":true}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTreatmentHandlers_ListFilters(t *testing.T) {
	r := setupRouter(t)
	createTreatment(t, r, "u1")
	w := do(r, http.MethodPost, "/api/treatments", "u1",
		`{"name":"Copper spray","instructions":"Mix and spray","type":"chemical","problemsSolved":"blight"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodGet, "/api/treatments?type=chemical", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var items []domain.Treatment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Copper spray", items[0].Name)
	assert.Equal(t, []string{}, items[0].Ingredients)
}
