package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/quarrel-dev/upkeep/internal/question"
	"github.com/quarrel-dev/upkeep/internal/session"
	"github.com/quarrel-dev/upkeep/internal/store"
)

// registerRoutes sets up all API routes on the gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB, orch *session.Orchestrator) {
	router.GET("/api/health", handleHealth)

	sessions := router.Group("/api/sessions")
	{
		sessions.POST("", handleCreateSession(orch))
		sessions.GET("/:id", handleGetSession(orch))
		sessions.GET("/:id/transcript", handleTranscript(orch))
		sessions.POST("/:id/messages", handleAddMessage(orch))
		sessions.PATCH("/:id/status", handleUpdateStatus(orch))
		sessions.POST("/:id/enhance", handleEnhance(orch))
		sessions.POST("/:id/analyze", handleAnalyze(orch))
		sessions.POST("/:id/diagnose", handleDiagnose(orch))
		sessions.GET("/:id/similar-issues", handleSimilarIssues(orch))
		sessions.GET("/:id/cross-matches", handleCrossMatches(orch))
		sessions.POST("/:id/question", handleSetQuestion(orch))
		sessions.POST("/:id/answer", handleAnswer(orch))
		sessions.POST("/:id/solution-success", handleSolutionSuccess(orch))
		sessions.POST("/:id/problem", handleNewProblem(orch))
		sessions.POST("/:id/assign", handleAssign(orch))
		sessions.GET("/:id/technician-description", handleTechnicianDescription(orch))
	}

	equipment := router.Group("/api/equipment")
	{
		equipment.GET("/search", handleSearchEquipment(db))
		equipment.GET("/:id/problems", handleEquipmentProblems(db))
		equipment.GET("/:id/issues", handleEquipmentIssues(db))
	}

	router.POST("/api/solutions/:id/rate", handleRateSolution(db))
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// pathID parses the :id path parameter.
func pathID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id %q", session.ErrValidation, c.Param("id"))
	}
	return uint(id), nil
}

// queryUint parses an optional unsigned query parameter.
func queryUint(c *gin.Context, name string) (uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", session.ErrValidation, name, raw)
	}
	return uint(v), nil
}

func handleCreateSession(orch *session.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UserID     uint `json:"userId" binding:"required"`
			BusinessID uint `json:"businessId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, fmt.Errorf("%w: %v", session.ErrValidation, err))
			return
		}
		s, err := orch.CreateSession(c.Request.Context(), req.UserID, req.BusinessID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, s)
	}
}

func handleGetSession(orch *session.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			fail(c, err)
			return
		}
		s, err := orch.Get(id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

func handleTranscript(orch *session.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			fail(c, err)
			return
		}
		entries, err := orch.Transcript(id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"entries": entries})
	}
}

func handleAddMessage(orch *session.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			fail(c, err)
			return
		}
		var req struct {
			Content  string                 `json:"content"`
			Role     string                 `json:"role"`
			Metadata map[string]interface{} `json:"metadata"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, fmt.Errorf("%w: %v", session.ErrValidation, err))
			return
		}
		entry, err := orch.AddMessage(c.Request.Context(), id, req.Content, req.Role, req.Metadata)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, entry)
	}
}

func handleUpdateStatus(orch *session.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			fail(c, err)
			return
		}
		var req struct {
			Status   string                 `json:"status" binding:"required"`
			Metadata map[string]interface{} `json:"metadata"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, fmt.Errorf("%w: %v", session.ErrValidation, err))
			return
		}
		s, err := orch.UpdateStatus(id, req.Status, req.Metadata)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

func handleEnhance(orch *session.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			fail(c, err)
			return
		}
		enhanced, err := orch.EnhanceDescription(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"enhancedDescription": enhanced})
	}
}

func handleAnalyze(orch *session.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			fail(c, err)
			return
		}
		analysis, err := orch.Analyze(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, analysis)
	}
}

func handleDiagnose(orch *session.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			fail(c, err)
			return
		}
		analysis, err := orch.RunEnhancedDiagnosis(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, analysis)
	}
}

func handleSimilarIssues(orch *session.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			fail(c, err)
			return
		}
		equipmentID, err := queryUint(c, "equipmentId")
		if err != nil {
			fail(c, err)
			return
		}
		if equipmentID == 0 {
			fail(c, fmt.Errorf("%w: equipmentId is required", session.ErrValidation))
			return
		}
		issues, err := orch.SimilarIssues(c.Request.Context(), id, equipmentID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"issues": issues})
	}
}

func handleCrossMatches(orch *session.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			fail(c, err)
			return
		}
		problems, err := orch.CrossBusinessMatches(c.Request.Context(), id, c.Query("equipmentType"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"problems": problems})
	}
}

func handleSetQuestion(orch *session.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			fail(c, err)
			return
		}
		var q question.Question
		if err := c.ShouldBindJSON(&q); err != nil || q.Question == "" {
			fail(c, fmt.Errorf("%w: question is required", session.ErrValidation))
			return
		}
		s, err := orch.SetFollowUpQuestion(id, q)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

func handleAnswer(orch *session.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			fail(c, err)
			return
		}
		var req struct {
			QuestionType string `json:"questionType"`
			Answer       string `json:"answer"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, fmt.Errorf("%w: %v", session.ErrValidation, err))
			return
		}
		s, err := orch.AnswerFollowUp(c.Request.Context(), id, req.QuestionType, req.Answer)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

func handleSolutionSuccess(orch *session.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			fail(c, err)
			return
		}
		var req struct {
			SolutionID uint `json:"solutionId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, fmt.Errorf("%w: %v", session.ErrValidation, err))
			return
		}
		issue, err := orch.RecordSolutionSuccess(c.Request.Context(), id, req.SolutionID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, issue)
	}
}

func handleNewProblem(orch *session.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			fail(c, err)
			return
		}
		var req struct {
			EquipmentID   uint     `json:"equipmentId" binding:"required"`
			Description   string   `json:"description"`
			Symptoms      []string `json:"symptoms"`
			Treatment     string   `json:"treatment"`
			Cause         string   `json:"cause"`
			EquipmentType string   `json:"equipmentType"`
			Cost          *float64 `json:"cost"`
			IsExternal    bool     `json:"isExternal"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, fmt.Errorf("%w: %v", session.ErrValidation, err))
			return
		}
		problem, err := orch.CreateNewProblemWithSolution(c.Request.Context(), id, store.ProblemOpts{
			EquipmentID:   req.EquipmentID,
			Description:   req.Description,
			Symptoms:      req.Symptoms,
			Treatment:     req.Treatment,
			Cause:         req.Cause,
			EquipmentType: req.EquipmentType,
			Cost:          req.Cost,
			IsExternal:    req.IsExternal,
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, problem)
	}
}

func handleAssign(orch *session.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			fail(c, err)
			return
		}
		var req struct {
			EquipmentID  uint  `json:"equipmentId" binding:"required"`
			TechnicianID *uint `json:"technicianId"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, fmt.Errorf("%w: %v", session.ErrValidation, err))
			return
		}
		issue, err := orch.AssignToTechnician(c.Request.Context(), id, req.EquipmentID, req.TechnicianID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, issue)
	}
}

func handleTechnicianDescription(orch *session.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			fail(c, err)
			return
		}
		brief, err := orch.TechnicianDescription(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"description": brief})
	}
}

func handleSearchEquipment(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		businessID, err := queryUint(c, "businessId")
		if err != nil {
			fail(c, err)
			return
		}
		keyword := c.Query("keyword")
		if businessID == 0 || keyword == "" {
			fail(c, fmt.Errorf("%w: businessId and keyword are required", session.ErrValidation))
			return
		}
		equipment, err := store.SearchEquipment(db, businessID, keyword)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"equipment": equipment})
	}
}

func handleEquipmentProblems(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			fail(c, err)
			return
		}
		businessID, err := queryUint(c, "businessId")
		if err != nil {
			fail(c, err)
			return
		}
		if businessID == 0 {
			fail(c, fmt.Errorf("%w: businessId is required", session.ErrValidation))
			return
		}
		problems, err := store.ProblemsForEquipment(db, businessID, id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"problems": problems})
	}
}

func handleEquipmentIssues(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			fail(c, err)
			return
		}
		businessID, err := queryUint(c, "businessId")
		if err != nil {
			fail(c, err)
			return
		}
		if businessID == 0 {
			fail(c, fmt.Errorf("%w: businessId is required", session.ErrValidation))
			return
		}
		issues, err := store.ListIssues(db, businessID, id, c.Query("status"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"issues": issues})
	}
}

func handleRateSolution(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			fail(c, err)
			return
		}
		var req struct {
			Delta int `json:"delta"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, fmt.Errorf("%w: %v", session.ErrValidation, err))
			return
		}
		if req.Delta == 0 {
			fail(c, fmt.Errorf("%w: delta must be non-zero", session.ErrValidation))
			return
		}
		sol, err := store.RateSolution(db, id, req.Delta)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, sol)
	}
}
