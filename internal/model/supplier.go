package model

type Supplier struct {
	BaseModel
	Name    string `gorm:"type:varchar(255);not null;index" json:"name" validate:"required"`
	Phone   string `gorm:"type:varchar(30)" json:"phone"`
	Email   string `gorm:"type:varchar(255)" json:"email" validate:"omitempty,email"`
	Address string `gorm:"type:text" json:"address"`
	PicName string `gorm:"type:varchar(255)" json:"pic_name"`
}
