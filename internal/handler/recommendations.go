package handler

import (
	"net/http"
	"strconv"

	"shopcore/internal/apierror"
	"shopcore/internal/dto"
	"shopcore/internal/service"
	"shopcore/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RecommendationsHandler struct {
	recSvc     service.RecommendationService
	assocSvc   service.AssociationService
	cartSvc    service.CartService
	dispatcher *worker.Dispatcher
}

func NewRecommendationsHandler(
	recSvc service.RecommendationService,
	assocSvc service.AssociationService,
	cartSvc service.CartService,
	dispatcher *worker.Dispatcher,
) *RecommendationsHandler {
	return &RecommendationsHandler{
		recSvc:     recSvc,
		assocSvc:   assocSvc,
		cartSvc:    cartSvc,
		dispatcher: dispatcher,
	}
}

// ForProduct godoc
// @Summary      Recommendations for a product detail page
// @Description  Association-rule consequents ranked by lift, topped up with same-category and popular products.
// @Tags         recommendations
// @Produce      json
// @Param        id    path  string true  "Product UUID"
// @Param        limit query int    false "Maximum results"
// @Success      200 {array} model.ProductSummary
// @Failure      404 {object} apierror.APIError
// @Router       /v1/products/{id}/recommendations [get]
func (h *RecommendationsHandler) ForProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	resp, err := h.recSvc.ForProduct(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ForCart godoc
// @Summary      Recommendations for the contents of a cart
// @Tags         recommendations
// @Produce      json
// @Param        id    path  string true  "Cart UUID"
// @Param        limit query int    false "Maximum results"
// @Success      200 {array} model.ProductSummary
// @Router       /v1/carts/{id}/recommendations [get]
func (h *RecommendationsHandler) ForCart(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	cart, err := h.cartSvc.GetCart(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	productIDs := make([]uuid.UUID, 0, len(cart.Items))
	for _, item := range cart.Items {
		pid, err := uuid.Parse(item.ProductID)
		if err != nil {
			continue
		}
		productIDs = append(productIDs, pid)
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	resp, err := h.recSvc.ForCart(c.Request.Context(), productIDs, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ListForUser godoc
// @Summary      Materialized recommendations for a user
// @Tags         recommendations
// @Produce      json
// @Param        user_id        path  string  true  "User UUID"
// @Param        limit          query int     false "Maximum results"
// @Param        min_score      query number  false "Minimum score in [0,1]"
// @Param        include_viewed query bool    false "Include already-viewed records"
// @Success      200 {array} dto.RecommendationResponse
// @Router       /v1/users/{user_id}/recommendations [get]
func (h *RecommendationsHandler) ListForUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid user id"))
		return
	}
	var filter dto.UserRecommendationFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.assocSvc.ListForUser(c.Request.Context(), userID, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GenerateForUser godoc
// @Summary      Regenerate a user's materialized recommendations
// @Tags         recommendations
// @Produce      json
// @Param        user_id path string true "User UUID"
// @Success      200 {object} map[string]int
// @Router       /v1/users/{user_id}/recommendations/generate [post]
func (h *RecommendationsHandler) GenerateForUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid user id"))
		return
	}
	written, err := h.assocSvc.GenerateForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"generated": written})
}

func (h *RecommendationsHandler) MarkViewed(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	if err := h.assocSvc.MarkViewed(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateAssociation godoc
// @Summary      Upsert one product association by hand
// @Tags         recommendations
// @Accept       json
// @Produce      json
// @Param        body body dto.CreateAssociationRequest true "Directional pair and strength"
// @Success      201  {object} dto.AssociationResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/associations [post]
func (h *RecommendationsHandler) CreateAssociation(c *gin.Context) {
	var req dto.CreateAssociationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.assocSvc.CreateAssociation(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *RecommendationsHandler) ListAssociations(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	minStrength, _ := strconv.ParseFloat(c.DefaultQuery("min_strength", "0"), 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	resp, err := h.assocSvc.ListForProduct(c.Request.Context(), id, minStrength, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// RebuildAssociations godoc
// @Summary      Enqueue a batch rebuild of the association cache
// @Description  The rebuild runs on the worker pool; the endpoint returns immediately.
// @Tags         recommendations
// @Produce      json
// @Success      202
// @Router       /v1/associations/rebuild [post]
func (h *RecommendationsHandler) RebuildAssociations(c *gin.Context) {
	if err := h.dispatcher.EnqueueAssociationRebuild(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}
