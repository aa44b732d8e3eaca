package models

import (
	"context"
	"errors"
	"time"

	"github.com/WRENCH-CLOUD/machnix-sub003/config"
	"github.com/WRENCH-CLOUD/machnix-sub003/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	GarageId  string    `gorm:"index" json:"garageId"`
	Username  string    `gorm:"size:100;not null;unique" json:"username" binding:"required"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email     *string   `gorm:"size:100" json:"email"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	Role      UserRole  `gorm:"type:varchar(1);default:S" json:"role"`
	IsActive  *bool     `gorm:"not null" json:"isActive"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

type NewUser struct {
	Username string   `json:"username" binding:"required"`
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	Password string   `json:"password" binding:"required,min=8"`
	Role     UserRole `json:"role"`
}

/*
caches:
	User:$username
	Token:$token
*/

func (user User) RemoveInstanceRedis() error {
	return config.RemoveRedisKey("User:" + user.Username)
}

type LoginInfo struct {
	Token      string `json:"token"`
	ApiToken   string `json:"apiToken"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	GarageId   string `json:"garageId"`
	GarageName string `json:"garageName"`
}

func Login(ctx context.Context, username string, password string) (*LoginInfo, error) {

	db := config.GetDB()
	var result LoginInfo

	user := User{}

	// get User info
	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return &result, err
	}
	if !exists {
		// login is pre-tenant: bypass the guard
		lookupCtx := utils.SetSkipTenantScopeInContext(ctx, true)
		err = db.WithContext(lookupCtx).Model(&User{}).Where("username = ?", username).Take(&user).Error
		if err != nil {
			return &result, errors.New("invalid username or password")
		}
	}

	// check login credentials
	err = utils.ComparePassword(user.Password, password)
	if err != nil && err == bcrypt.ErrMismatchedHashAndPassword {
		return &result, errors.New("invalid username or password")
	}

	if user.IsActive == nil || !*user.IsActive {
		return &result, errors.New("user is disabled")
	}

	// generate token & response
	token := uuid.New()
	result.Token = token.String()
	apiToken, err := utils.JwtGenerate(user.ID, string(user.Role))
	if err != nil {
		return &result, err
	}
	result.ApiToken = apiToken
	result.Name = user.Name
	result.Role = user.Role.Label()
	result.GarageId = user.GarageId

	if user.Role != UserRoleAdmin {
		var garage Garage
		lookupCtx := utils.SetSkipTenantScopeInContext(ctx, true)
		if err := db.WithContext(lookupCtx).Model(&Garage{}).Where("id = ?", user.GarageId).First(&garage).Error; err != nil {
			return nil, err
		}
		result.GarageName = garage.Name
	}

	// store token & user in redis
	lifespan := time.Duration(utils.TokenHourLifespan()) * time.Hour
	if err := config.SetRedisValue("Token:"+result.Token, user.Username, lifespan); err != nil {
		return &result, err
	}
	if err := config.SetRedisObject("User:"+user.Username, &user, lifespan); err != nil {
		return &result, err
	}

	return &result, nil
}

func Logout(ctx context.Context) error {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return errors.New("no session")
	}
	return config.RemoveRedisKey("Token:" + token)
}

// FindUserByUsername resolves the session user (redis first, then DB).
func FindUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return nil, err
	}
	if exists {
		return &user, nil
	}
	db := config.GetDB()
	lookupCtx := utils.SetSkipTenantScopeInContext(ctx, true)
	if err := db.WithContext(lookupCtx).Model(&User{}).Where("username = ?", username).Take(&user).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &user, nil
}

// FindUserById resolves a JWT subject to its user row.
func FindUserById(ctx context.Context, id int) (*User, error) {
	db := config.GetDB()
	var user User
	lookupCtx := utils.SetSkipTenantScopeInContext(ctx, true)
	if err := db.WithContext(lookupCtx).First(&user, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &user, nil
}

// CreateUser adds a staff account to the ctx garage.
func CreateUser(ctx context.Context, input *NewUser) (*User, error) {

	garageId, ok := utils.GetGarageIdFromContext(ctx)
	if !ok || garageId == "" {
		return nil, errors.New("garage id is required")
	}

	role := input.Role
	if role == "" {
		role = UserRoleStaff
	}
	if role == UserRoleAdmin {
		return nil, errors.New("cannot create platform admin")
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	var email *string
	if input.Email != "" {
		email = &input.Email
	}
	user := User{
		GarageId: garageId,
		Username: input.Username,
		Name:     input.Name,
		Email:    email,
		Phone:    input.Phone,
		Password: hashed,
		Role:     role,
		IsActive: utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, errors.New("username already exists")
		}
		return nil, err
	}
	return &user, nil
}
