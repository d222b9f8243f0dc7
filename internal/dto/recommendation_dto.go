package dto

type CreateAssociationRequest struct {
	ProductID           string  `json:"product_id" validate:"required,uuid4"`
	AssociatedProductID string  `json:"associated_product_id" validate:"required,uuid4"`
	Strength            float64 `json:"strength" validate:"gte=0,lte=1"`
}

type AssociationResponse struct {
	ID                  string  `json:"id"`
	ProductID           string  `json:"product_id"`
	AssociatedProductID string  `json:"associated_product_id"`
	Strength            float64 `json:"strength"`
}

type RecommendationResponse struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name,omitempty"`
	Score       float64 `json:"score"`
	Viewed      bool    `json:"viewed"`
}

// UserRecommendationFilter holds the query parameters of the per-user
// recommendation endpoint.
type UserRecommendationFilter struct {
	Limit         int     `form:"limit"`
	MinScore      float64 `form:"min_score"`
	IncludeViewed bool    `form:"include_viewed"`
}
