package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ascai/internal/model"
)

func TestCreateBadgeRequest_ToModel(t *testing.T) {
	req := CreateBadgeRequest{
		Name:        "Alumni",
		Description: "Graduated and still with us",
		Category:    "membership",
		Icon:        "graduation-cap",
	}

	badge := req.toModel()
	assert.Equal(t, "Alumni", badge.Name)
	assert.Equal(t, "Graduated and still with us", badge.Description)
	assert.Equal(t, model.BadgeMembership, badge.Category)
	assert.Equal(t, "graduation-cap", badge.Icon)
}
