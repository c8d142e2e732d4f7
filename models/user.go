package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/pratesvistorias/vistorias_backend/config"
	"bitbucket.org/pratesvistorias/vistorias_backend/utils"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email     string    `gorm:"size:100;not null;unique" json:"email" binding:"required"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	Role      UserRole  `gorm:"type:enum('ADMIN', 'MANAGER', 'OPERATOR');default:OPERATOR" json:"role"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email" binding:"required,email"`
	Password string   `json:"password" binding:"required,min=6"`
	Role     UserRole `json:"role"`
	IsActive *bool    `json:"is_active"`
}

/*
caches:
	User:$email
*/

func (user User) RemoveInstanceRedis() error {
	return config.RemoveRedisKey("User:" + strings.ToLower(user.Email))
}

type LoginInfo struct {
	Token string   `json:"token"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
}

func Login(ctx context.Context, email string, password string) (*LoginInfo, error) {

	db := config.GetDB()
	email = strings.ToLower(strings.TrimSpace(email))

	user := User{}
	exists, err := config.GetRedisObject("User:"+email, &user)
	if err != nil {
		return nil, err
	}
	if !exists {
		err = db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Take(&user).Error
		if err != nil {
			return nil, errors.New("invalid email or password")
		}
	}

	if err := utils.ComparePassword(user.Password, password); err != nil {
		return nil, errors.New("invalid email or password")
	}

	if !utils.DereferencePtr(user.IsActive) {
		return nil, errors.New("user is disabled")
	}

	token, err := utils.JwtGenerate(user.ID, user.Email, user.Name, string(user.Role))
	if err != nil {
		return nil, err
	}

	_ = config.SetRedisObject("User:"+email, user, utils.TokenLifespan())

	return &LoginInfo{
		Token: token,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}, nil
}

func (input *NewUser) validate(ctx context.Context, id int) error {
	if !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email")
	}
	if input.Role != "" && input.Role != UserRoleAdmin && input.Role != UserRoleManager && input.Role != UserRoleOperator {
		return errors.New("invalid role")
	}
	if err := utils.ValidateUnique[User](ctx, "email", strings.ToLower(input.Email), id); err != nil {
		return err
	}
	return nil
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = UserRoleOperator
	}
	isActive := input.IsActive
	if isActive == nil {
		isActive = utils.NewTrue()
	}

	db := config.GetDB()
	user := User{
		Name:     input.Name,
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		Password: string(hashed),
		Role:     role,
		IsActive: isActive,
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

func UpdateUser(ctx context.Context, id int, input *NewUser) (*User, error) {

	db := config.GetDB()
	user, err := utils.FetchModel[User](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"Name":  input.Name,
		"Email": strings.ToLower(strings.TrimSpace(input.Email)),
	}
	if input.Role != "" {
		updates["Role"] = input.Role
	}
	if input.IsActive != nil {
		updates["IsActive"] = input.IsActive
	}
	if input.Password != "" {
		hashed, err := utils.HashPassword(input.Password)
		if err != nil {
			return nil, err
		}
		updates["Password"] = string(hashed)
	}

	if err := db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := user.RemoveInstanceRedis(); err != nil {
		return nil, err
	}

	return user, nil
}

func DeleteUser(ctx context.Context, id int) (*User, error) {

	db := config.GetDB()
	user, err := utils.FetchModel[User](ctx, id)
	if err != nil {
		return nil, err
	}
	if err = db.WithContext(ctx).Delete(user).Error; err != nil {
		return nil, err
	}
	if err := user.RemoveInstanceRedis(); err != nil {
		return nil, err
	}
	return user, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {
	return utils.FetchModel[User](ctx, id)
}

func GetUsers(ctx context.Context) ([]*User, error) {
	return utils.FetchAllModels[User](ctx)
}

// Me resolves the session user from context claims.
func Me(ctx context.Context) (*User, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == 0 {
		return nil, errors.New("unauthorized")
	}
	return utils.FetchModel[User](ctx, userId)
}
