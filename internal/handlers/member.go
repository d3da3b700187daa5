package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/clinreach/clinreach/internal/services"
	"github.com/clinreach/clinreach/pkg/response"
)

type MemberHandler struct {
	memberService *services.MemberService
}

func NewMemberHandler(db *gorm.DB) *MemberHandler {
	return &MemberHandler{
		memberService: services.NewMemberService(db),
	}
}

// Register adds a member to the recruitment pool
// POST /api/members
func (h *MemberHandler) Register(c *gin.Context) {
	var req services.RegisterMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	member, err := h.memberService.Register(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, member)
}

// List returns paginated members with optional filters
// GET /api/members
func (h *MemberHandler) List(c *gin.Context) {
	var req services.MemberListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.memberService.List(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// GetByID returns a member by id
// GET /api/members/:id
func (h *MemberHandler) GetByID(c *gin.Context) {
	member, err := h.memberService.GetByID(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, member)
}

// Update applies the mutable member fields
// PUT /api/members/:id
func (h *MemberHandler) Update(c *gin.Context) {
	var req services.UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	member, err := h.memberService.Update(c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, member)
}

type updateConsentRequest struct {
	ConsentGiven *bool `json:"consent_given" binding:"required"`
}

// UpdateConsent records or withdraws consent
// PATCH /api/members/:id/consent
func (h *MemberHandler) UpdateConsent(c *gin.Context) {
	var req updateConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	member, err := h.memberService.UpdateConsent(c.Param("id"), *req.ConsentGiven)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, member)
}

// Deactivate removes a member from active recruitment
// DELETE /api/members/:id
func (h *MemberHandler) Deactivate(c *gin.Context) {
	member, err := h.memberService.Deactivate(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, member)
}
