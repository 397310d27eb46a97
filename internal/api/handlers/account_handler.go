package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postcast/internal/models"
	"github.com/maheshrc27/postcast/internal/service"
)

type AccountHandler struct {
	s service.AccountService
}

func NewAccountHandler(s service.AccountService) *AccountHandler {
	return &AccountHandler{s: s}
}

func (h *AccountHandler) ListSocialAccounts(c *fiber.Ctx) error {
	accountList, err := h.s.List(c.Context(), GetUserID(c))
	if err != nil {
		return sendError(c, err)
	}
	if accountList == nil {
		accountList = []*models.SocialAccount{}
	}

	return c.Status(fiber.StatusOK).JSON(accountList)
}

func (h *AccountHandler) DeleteSocialAccount(c *fiber.Ctx) error {
	accountID, err := c.ParamsInt("id")
	if err != nil || accountID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid account id",
		})
	}

	if err := h.s.Delete(c.Context(), GetUserID(c), int64(accountID)); err != nil {
		return sendError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *AccountHandler) Register(router fiber.Router) {
	router.Get("/accounts", h.ListSocialAccounts)
	router.Delete("/accounts/:id", h.DeleteSocialAccount)
}
