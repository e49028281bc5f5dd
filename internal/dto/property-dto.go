package dto

type CreatePropertyDTO struct {
	Name    string `json:"name" validate:"max=255"`
	Address string `json:"address" validate:"required,min=3,max=500"`
}
