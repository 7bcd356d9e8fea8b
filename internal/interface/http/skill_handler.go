package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/skillvouch/skillvouch/internal/application"
	"github.com/skillvouch/skillvouch/pkg/response"
	"github.com/skillvouch/skillvouch/pkg/validation"
)

type SkillHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
}

func NewSkillHandler(svc *application.Service, logger *logrus.Logger) *SkillHandler {
	return &SkillHandler{Svc: svc, Logger: logger}
}

// addSkillsRequest accepts either a single skill {name} or a batch
// {skills: [{name}, ...]}.
type addSkillsRequest struct {
	Name   string       `json:"name"`
	Skills []skillInput `json:"skills" binding:"omitempty,dive"`
}

type skillInput struct {
	Name string `json:"name" binding:"required"`
}

type verifySkillRequest struct {
	UserID  string `json:"userId" binding:"required"`
	Score   int    `json:"score" binding:"required,score"`
	Comment string `json:"comment"`
}

func (r *addSkillsRequest) names() []string {
	if strings.TrimSpace(r.Name) != "" {
		return []string{r.Name}
	}
	out := make([]string, 0, len(r.Skills))
	for _, s := range r.Skills {
		out = append(out, s.Name)
	}
	return out
}

func (h *SkillHandler) List(c *gin.Context) {
	skills, err := h.Svc.ListSkills(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, skills, "skills", map[string]any{"count": len(skills)})
}

func (h *SkillHandler) Add(c *gin.Context) {
	var req addSkillsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	skills, err := h.Svc.AddSkills(c.Request.Context(), c.Param("id"), req.names())
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, skills, "skills added", nil)
}

func (h *SkillHandler) Remove(c *gin.Context) {
	if err := h.Svc.RemoveSkill(c.Request.Context(), c.Param("id"), c.Param("skillName")); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.NoContent(c)
}

func (h *SkillHandler) Verify(c *gin.Context) {
	var req verifySkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	skill, err := h.Svc.VerifySkill(c.Request.Context(), application.VerifySkillArgs{
		UserID:     c.Param("id"),
		SkillName:  c.Param("skillName"),
		VerifierID: req.UserID,
		Score:      req.Score,
		Comment:    req.Comment,
	})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, skill, "skill verified", nil)
}
