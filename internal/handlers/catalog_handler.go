package handler

import (
	"net/http"
	"time"

	"moneta-backend/internal/models"
	"moneta-backend/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CatalogHandler exposes the minimal account/card/category surface the
// import pipeline resolves references against. Full CRUD lives elsewhere.
type CatalogHandler struct {
	accountRepo  *repository.AccountRepository
	cardRepo     *repository.CardRepository
	categoryRepo *repository.CategoryRepository
}

func NewCatalogHandler(
	accountRepo *repository.AccountRepository,
	cardRepo *repository.CardRepository,
	categoryRepo *repository.CategoryRepository,
) *CatalogHandler {
	return &CatalogHandler{
		accountRepo:  accountRepo,
		cardRepo:     cardRepo,
		categoryRepo: categoryRepo,
	}
}

type namePayload struct {
	Name     string     `json:"name"`
	ParentID *uuid.UUID `json:"parentId"`
}

func (h *CatalogHandler) bindName(c *gin.Context) (namePayload, bool) {
	var payload namePayload
	if err := c.BindJSON(&payload); err != nil || payload.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
		return payload, false
	}
	return payload, true
}

func (h *CatalogHandler) CreateAccount(c *gin.Context) {
	payload, ok := h.bindName(c)
	if !ok {
		return
	}
	account := &models.Account{
		ID:        uuid.New(),
		UserID:    currentUser(c),
		Name:      payload.Name,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	if err := h.accountRepo.Create(account); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (h *CatalogHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.accountRepo.List(currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

func (h *CatalogHandler) CreateCard(c *gin.Context) {
	payload, ok := h.bindName(c)
	if !ok {
		return
	}
	card := &models.Card{
		ID:        uuid.New(),
		UserID:    currentUser(c),
		Name:      payload.Name,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	if err := h.cardRepo.Create(card); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, card)
}

func (h *CatalogHandler) ListCards(c *gin.Context) {
	cards, err := h.cardRepo.List(currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cards)
}

func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	payload, ok := h.bindName(c)
	if !ok {
		return
	}
	category := &models.Category{
		ID:        uuid.New(),
		UserID:    currentUser(c),
		Name:      payload.Name,
		ParentID:  payload.ParentID,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	if err := h.categoryRepo.Create(category); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.categoryRepo.List(currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}
