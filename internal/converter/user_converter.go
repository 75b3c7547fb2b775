package converter

import (
	"healthsync-api/internal/delivery/dto"
	"healthsync-api/internal/domain/entity"
)

// UserToResponse converts a User entity to UserResponse DTO
func UserToResponse(user *entity.User) *dto.UserResponse {
	if user == nil {
		return nil
	}

	return &dto.UserResponse{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		Phone:         user.Phone,
		Age:           user.Age,
		Role:          user.Role.String(),
		Status:        string(user.Status),
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}
