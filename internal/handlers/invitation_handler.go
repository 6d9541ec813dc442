package handlers

import (
	"errors"
	"log"

	"jengamart/internal/models"
	"jengamart/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// InvitationHandler handles the seller staff invitation workflow.
type InvitationHandler struct {
	service  *services.InvitationService
	validate *validator.Validate
}

// NewInvitationHandler creates a new InvitationHandler.
func NewInvitationHandler(service *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{service: service, validate: validator.New()}
}

// RegisterRoutes registers the invitation routes. lookup and accept are public.
func (h *InvitationHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	invitationRoutes := router.Group("/seller-invitations")
	invitationRoutes.Get("/lookup", h.HandleLookup)
	invitationRoutes.Post("/accept", h.HandleAccept)
	invitationRoutes.Get("/", auth, h.HandleListInvitations)
	invitationRoutes.Post("/", auth, h.HandleInvite)
	invitationRoutes.Get("/:id", auth, h.HandleGetInvitation)
	invitationRoutes.Post("/:id/cancel", auth, h.HandleCancel)
}

// InvitationResponse is an invitation with the name of its seller.
type InvitationResponse struct {
	models.Invitation
	SellerName string `json:"seller_name"`
}

func invitationView(inv models.Invitation) InvitationResponse {
	return InvitationResponse{Invitation: inv, SellerName: inv.SellerName()}
}

// InviteRequest is the body of POST /seller-invitations.
type InviteRequest struct {
	SellerID string `json:"seller_id"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,max=30"`
	Role     string `json:"role" validate:"omitempty,oneof=staff"`
}

// AcceptRequest is the body of POST /seller-invitations/accept.
type AcceptRequest struct {
	Token    string `json:"token" validate:"required"`
	FullName string `json:"full_name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleListInvitations lists the invitations of the caller's sellers.
func (h *InvitationHandler) HandleListInvitations(c *fiber.Ctx) error {
	invitations, err := h.service.List(c.UserContext(), callerOf(c))
	if err != nil {
		return respondError(c, err, "Could not retrieve invitations")
	}
	views := make([]InvitationResponse, 0, len(invitations))
	for _, inv := range invitations {
		views = append(views, invitationView(inv))
	}
	return c.JSON(views)
}

// HandleGetInvitation retrieves one invitation.
func (h *InvitationHandler) HandleGetInvitation(c *fiber.Ctx) error {
	invitation, err := h.service.Get(c.UserContext(), callerOf(c), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Could not retrieve invitation")
	}
	return c.JSON(invitationView(*invitation))
}

// HandleInvite creates a pending invitation on one of the caller's sellers.
func (h *InvitationHandler) HandleInvite(c *fiber.Ctx) error {
	var req InviteRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	invitation, err := h.service.Invite(c.UserContext(), callerOf(c), services.InviteInput{
		SellerID: req.SellerID,
		Email:    req.Email,
		Phone:    req.Phone,
		Role:     models.MemberRole(req.Role),
	})
	if err != nil {
		log.Printf("Error creating invitation: %v", err)
		return respondError(c, err, "Could not create invitation")
	}
	return c.Status(fiber.StatusCreated).JSON(invitationView(*invitation))
}

// HandleLookup returns a pending invitation by token. Used and unknown tokens look the same.
func (h *InvitationHandler) HandleLookup(c *fiber.Ctx) error {
	invitation, err := h.service.Lookup(c.UserContext(), c.Query("token"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return respondError(c, err, "Invitation not found or already used.")
		}
		return respondError(c, err, "Token is required.")
	}
	return c.JSON(invitationView(*invitation))
}

// HandleAccept redeems an invitation into a new staff account.
func (h *InvitationHandler) HandleAccept(c *fiber.Ctx) error {
	var req AcceptRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	user, tokens, err := h.service.Accept(c.UserContext(), services.AcceptInput{
		Token:    req.Token,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		log.Printf("Error accepting invitation: %v", err)
		switch {
		case errors.Is(err, services.ErrNotFound):
			return respondError(c, err, "Invitation not found or already used.")
		case errors.Is(err, services.ErrConflict):
			return respondErrorAs(c, fiber.StatusBadRequest, err, "An account with that phone already exists.")
		}
		return respondError(c, err, "Could not accept invitation")
	}
	return c.JSON(fiber.Map{
		"user":   user,
		"tokens": tokens,
	})
}

// HandleCancel withdraws a pending invitation.
func (h *InvitationHandler) HandleCancel(c *fiber.Ctx) error {
	if err := h.service.Cancel(c.UserContext(), callerOf(c), c.Params("id")); err != nil {
		return respondError(c, err, "Could not cancel invitation")
	}
	return c.JSON(fiber.Map{"ok": true})
}
