package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/quarrel-dev/upkeep/internal/completion"
	upkeepdb "github.com/quarrel-dev/upkeep/internal/db"
	"github.com/quarrel-dev/upkeep/internal/models"
	"github.com/quarrel-dev/upkeep/internal/session"
	"github.com/quarrel-dev/upkeep/internal/store"
)

type fakeClient struct {
	response string
	err      error
}

func (f *fakeClient) Complete(ctx context.Context, system, user string, opts completion.Options) (string, error) {
	return f.response, f.err
}

// testServer wires a router over an in-memory database and a canned
// completion provider.
func testServer(t *testing.T, client completion.Client) (*gin.Engine, *gorm.DB, *models.User, *models.Business) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(upkeepdb.AllModels()...); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	biz := &models.Business{Name: "Acme"}
	if err := db.Create(biz).Error; err != nil {
		t.Fatal(err)
	}
	user := &models.User{Name: "alice", Email: "alice@example.com"}
	if err := db.Create(user).Error; err != nil {
		t.Fatal(err)
	}
	orch, err := session.New(session.Opts{DB: db, Client: client})
	if err != nil {
		t.Fatal(err)
	}
	return NewRouter(db, orch), db, user, biz
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router, _, _, _ := testServer(t, &fakeClient{response: "[]"})
	w := doJSON(t, router, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestCreateSession(t *testing.T) {
	router, _, user, biz := testServer(t, &fakeClient{response: "[]"})

	w := doJSON(t, router, http.MethodPost, "/api/sessions", gin.H{"userId": user.ID, "businessId": biz.ID})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body)
	}
	var s models.DiagnosticSession
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	if s.Status != session.StatusActive {
		t.Errorf("status = %q, want active", s.Status)
	}

	// Unresolvable references map to 404.
	w = doJSON(t, router, http.MethodPost, "/api/sessions", gin.H{"userId": 9999, "businessId": biz.ID})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown user: status = %d, want 404", w.Code)
	}

	// Missing fields map to 422.
	w = doJSON(t, router, http.MethodPost, "/api/sessions", gin.H{"userId": user.ID})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing business: status = %d, want 422", w.Code)
	}
}

func TestMessageAndTranscript(t *testing.T) {
	router, _, user, biz := testServer(t, &fakeClient{response: "[]"})
	w := doJSON(t, router, http.MethodPost, "/api/sessions", gin.H{"userId": user.ID, "businessId": biz.ID})
	var s models.DiagnosticSession
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/sessions/%d/messages", s.ID),
		gin.H{"content": "fridge is warm", "role": "user"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add message: status = %d, want 201: %s", w.Code, w.Body)
	}

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/sessions/%d/messages", s.ID),
		gin.H{"content": "hi", "role": "moderator"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad role: status = %d, want 422", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/sessions/%d/transcript", s.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("transcript: status = %d, want 200", w.Code)
	}
	var resp struct {
		Entries []models.TranscriptEntry `json:"entries"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Entries) != 1 {
		t.Errorf("entries = %d, want 1", len(resp.Entries))
	}
}

func TestUpdateStatusMapping(t *testing.T) {
	router, _, user, biz := testServer(t, &fakeClient{response: "[]"})
	w := doJSON(t, router, http.MethodPost, "/api/sessions", gin.H{"userId": user.ID, "businessId": biz.ID})
	var s models.DiagnosticSession
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}

	w = doJSON(t, router, http.MethodPatch, fmt.Sprintf("/api/sessions/%d/status", s.ID),
		gin.H{"status": session.StatusFollowUpQuestionSet})
	if w.Code != http.StatusOK {
		t.Fatalf("valid transition: status = %d, want 200: %s", w.Code, w.Body)
	}

	w = doJSON(t, router, http.MethodPatch, fmt.Sprintf("/api/sessions/%d/status", s.ID),
		gin.H{"status": session.StatusResolved})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid transition: status = %d, want 422", w.Code)
	}

	w = doJSON(t, router, http.MethodPatch, "/api/sessions/9999/status",
		gin.H{"status": session.StatusFollowUpQuestionSet})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown session: status = %d, want 404", w.Code)
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	router, _, user, biz := testServer(t, &fakeClient{response: "[]"})
	w := doJSON(t, router, http.MethodPost, "/api/sessions", gin.H{"userId": user.ID, "businessId": biz.ID})
	var s models.DiagnosticSession
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/sessions/%d/messages", s.ID),
		gin.H{"content": "walk-in cooler not cooling", "role": "user"})

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/sessions/%d/analyze", s.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("analyze: status = %d, want 200: %s", w.Code, w.Body)
	}
	var a session.Analysis
	if err := json.Unmarshal(w.Body.Bytes(), &a); err != nil {
		t.Fatal(err)
	}
	if !a.IsDiagnosisReady {
		t.Error("IsDiagnosisReady = false, want true with no follow-ups")
	}
}

func TestDiagnoseEndpoint(t *testing.T) {
	router, _, user, biz := testServer(t, &fakeClient{response: "[]"})
	w := doJSON(t, router, http.MethodPost, "/api/sessions", gin.H{"userId": user.ID, "businessId": biz.ID})
	var s models.DiagnosticSession
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/sessions/%d/messages", s.ID),
		gin.H{"content": "walk-in cooler not cooling", "role": "user"})

	// Too early: the session has not reached the diagnosis stage.
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/sessions/%d/diagnose", s.ID), nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("diagnose on active session: status = %d, want 422", w.Code)
	}

	doJSON(t, router, http.MethodPatch, fmt.Sprintf("/api/sessions/%d/status", s.ID),
		gin.H{"status": session.StatusFollowUpQuestionSet})

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/sessions/%d/diagnose", s.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("diagnose: status = %d, want 200: %s", w.Code, w.Body)
	}
	var a session.Analysis
	if err := json.Unmarshal(w.Body.Bytes(), &a); err != nil {
		t.Fatal(err)
	}
	if !a.IsDiagnosisReady {
		t.Error("IsDiagnosisReady = false, want true")
	}

	// The result is persisted on the session.
	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/sessions/%d", s.ID), nil)
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	if s.Status != session.StatusDiagnosisComplete {
		t.Errorf("session status = %q, want enhanced_diagnosis_complete", s.Status)
	}
	meta, err := session.DecodeMetadata(s.Metadata)
	if err != nil {
		t.Fatal(err)
	}
	if len(meta.EnhancedDiagnosisResult) == 0 {
		t.Error("enhancedDiagnosisResult not persisted")
	}
}

func TestSimilarIssuesAndCrossMatchEndpoints(t *testing.T) {
	router, db, user, biz := testServer(t, &fakeClient{response: "[1]"})
	eq := &models.Equipment{BusinessID: biz.ID, Type: "Refrigerator"}
	if err := db.Create(eq).Error; err != nil {
		t.Fatal(err)
	}
	problem, err := store.CreateProblemWithSolution(db, store.ProblemOpts{
		EquipmentID: eq.ID, ReporterID: user.ID,
		Description: "not cooling", Treatment: "clean coils", EquipmentType: "Refrigerator",
	})
	if err != nil {
		t.Fatal(err)
	}
	solID := problem.Solutions[0].ID
	if _, err := store.CreateIssue(db, store.IssueOpts{
		EquipmentID: eq.ID, BusinessID: biz.ID, OpenedByID: user.ID,
		Description: "fridge warm", SolutionID: &solID,
	}); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, router, http.MethodPost, "/api/sessions", gin.H{"userId": user.ID, "businessId": biz.ID})
	var s models.DiagnosticSession
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/sessions/%d/messages", s.ID),
		gin.H{"content": "my fridge is warm again", "role": "user"})

	w = doJSON(t, router, http.MethodGet,
		fmt.Sprintf("/api/sessions/%d/similar-issues?equipmentId=%d", s.ID, eq.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("similar-issues: status = %d, want 200: %s", w.Code, w.Body)
	}
	var issuesResp struct {
		Issues []models.Issue `json:"issues"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &issuesResp); err != nil {
		t.Fatal(err)
	}
	if len(issuesResp.Issues) != 1 {
		t.Errorf("issues = %d, want 1", len(issuesResp.Issues))
	}

	w = doJSON(t, router, http.MethodGet,
		fmt.Sprintf("/api/sessions/%d/similar-issues", s.ID), nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing equipmentId: status = %d, want 422", w.Code)
	}

	w = doJSON(t, router, http.MethodGet,
		fmt.Sprintf("/api/sessions/%d/cross-matches?equipmentType=Refrigerator", s.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("cross-matches: status = %d, want 200: %s", w.Code, w.Body)
	}
	var problemsResp struct {
		Problems []models.Problem `json:"problems"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &problemsResp); err != nil {
		t.Fatal(err)
	}
	if len(problemsResp.Problems) != 1 {
		t.Errorf("problems = %d, want 1", len(problemsResp.Problems))
	}

	w = doJSON(t, router, http.MethodGet, "/api/sessions/9999/similar-issues?equipmentId=1", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown session: status = %d, want 404", w.Code)
	}
}

func TestNewProblemValidationMapping(t *testing.T) {
	router, db, user, biz := testServer(t, &fakeClient{response: "[]"})
	eq := &models.Equipment{BusinessID: biz.ID, Type: "Oven"}
	if err := db.Create(eq).Error; err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, router, http.MethodPost, "/api/sessions", gin.H{"userId": user.ID, "businessId": biz.ID})
	var s models.DiagnosticSession
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	doJSON(t, router, http.MethodPatch, fmt.Sprintf("/api/sessions/%d/status", s.ID),
		gin.H{"status": session.StatusFollowUpQuestionSet})
	doJSON(t, router, http.MethodPatch, fmt.Sprintf("/api/sessions/%d/status", s.ID),
		gin.H{"status": session.StatusDiagnosisComplete})

	// Missing treatment is a validation failure, not a server error.
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/sessions/%d/problem", s.ID),
		gin.H{"equipmentId": eq.ID, "description": "door seal torn"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing treatment: status = %d, want 422: %s", w.Code, w.Body)
	}
}

func TestSolutionSuccessEndpoint(t *testing.T) {
	router, db, user, biz := testServer(t, &fakeClient{response: "[]"})
	eq := &models.Equipment{BusinessID: biz.ID, Type: "Refrigerator"}
	if err := db.Create(eq).Error; err != nil {
		t.Fatal(err)
	}
	problem, err := store.CreateProblemWithSolution(db, store.ProblemOpts{
		EquipmentID: eq.ID, ReporterID: user.ID,
		Description: "not cooling", Treatment: "clean condenser coils", EquipmentType: "Refrigerator",
	})
	if err != nil {
		t.Fatal(err)
	}
	solID := problem.Solutions[0].ID

	w := doJSON(t, router, http.MethodPost, "/api/sessions", gin.H{"userId": user.ID, "businessId": biz.ID})
	var s models.DiagnosticSession
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	doJSON(t, router, http.MethodPatch, fmt.Sprintf("/api/sessions/%d/status", s.ID),
		gin.H{"status": session.StatusFollowUpQuestionSet})
	doJSON(t, router, http.MethodPatch, fmt.Sprintf("/api/sessions/%d/status", s.ID),
		gin.H{"status": session.StatusDiagnosisComplete})

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/sessions/%d/solution-success", s.ID),
		gin.H{"solutionId": solID})
	if w.Code != http.StatusCreated {
		t.Fatalf("solution-success: status = %d, want 201: %s", w.Code, w.Body)
	}
	var issue models.Issue
	if err := json.Unmarshal(w.Body.Bytes(), &issue); err != nil {
		t.Fatal(err)
	}
	if issue.Status != models.IssueResolved {
		t.Errorf("issue status = %q, want resolved", issue.Status)
	}

	// A second handoff on the same session conflicts.
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/sessions/%d/solution-success", s.ID),
		gin.H{"solutionId": solID})
	if w.Code != http.StatusConflict {
		t.Errorf("second handoff: status = %d, want 409", w.Code)
	}
}

func TestEquipmentSearchEndpoint(t *testing.T) {
	router, db, _, biz := testServer(t, &fakeClient{response: "[]"})
	eq := &models.Equipment{BusinessID: biz.ID, Type: "Refrigerator", Manufacturer: "Bosch"}
	if err := db.Create(eq).Error; err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, router, http.MethodGet,
		fmt.Sprintf("/api/equipment/search?businessId=%d&keyword=bosch", biz.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search: status = %d, want 200: %s", w.Code, w.Body)
	}
	var resp struct {
		Equipment []models.Equipment `json:"equipment"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Equipment) != 1 {
		t.Errorf("equipment = %d, want 1", len(resp.Equipment))
	}

	w = doJSON(t, router, http.MethodGet, "/api/equipment/search?keyword=bosch", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing businessId: status = %d, want 422", w.Code)
	}
}

func TestRateSolutionEndpoint(t *testing.T) {
	router, db, user, biz := testServer(t, &fakeClient{response: "[]"})
	eq := &models.Equipment{BusinessID: biz.ID, Type: "Oven"}
	if err := db.Create(eq).Error; err != nil {
		t.Fatal(err)
	}
	problem, err := store.CreateProblemWithSolution(db, store.ProblemOpts{
		EquipmentID: eq.ID, ReporterID: user.ID,
		Description: "no heat", Treatment: "replace igniter", EquipmentType: "Oven",
	})
	if err != nil {
		t.Fatal(err)
	}
	solID := problem.Solutions[0].ID

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/solutions/%d/rate", solID), gin.H{"delta": 1})
	if w.Code != http.StatusOK {
		t.Fatalf("rate: status = %d, want 200: %s", w.Code, w.Body)
	}
	var sol models.Solution
	if err := json.Unmarshal(w.Body.Bytes(), &sol); err != nil {
		t.Fatal(err)
	}
	if sol.Effectiveness != 1 {
		t.Errorf("effectiveness = %d, want 1", sol.Effectiveness)
	}

	// Downvotes floor at zero.
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/solutions/%d/rate", solID), gin.H{"delta": -5})
	if w.Code != http.StatusOK {
		t.Fatal(w.Body)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &sol); err != nil {
		t.Fatal(err)
	}
	if sol.Effectiveness != 0 {
		t.Errorf("effectiveness after downvote = %d, want 0", sol.Effectiveness)
	}

	w = doJSON(t, router, http.MethodPost, "/api/solutions/9999/rate", gin.H{"delta": 1})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown solution: status = %d, want 404", w.Code)
	}
}
