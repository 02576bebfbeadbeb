package handler

import (
	"context"

	"hiring-portal/internal/constants"
	"hiring-portal/internal/storage/models"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// UserStore 用户存储，密码由存储层 bcrypt 哈希
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User, password string) error
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// UserHandler 用户接口
type UserHandler struct {
	users UserStore
}

func NewUserHandler(users UserStore) *UserHandler {
	return &UserHandler{users: users}
}

type createUserRequest struct {
	EmpID       string `json:"emp_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	FullName    string `json:"full_name"`
	Department  string `json:"department"`
	Designation string `json:"designation"`
}

var validRoles = map[string]bool{
	constants.RoleHR:         true,
	constants.RoleManager:    true,
	constants.RoleManagement: true,
}

// CreateUser POST /api/v1/users
func (h *UserHandler) CreateUser(ctx context.Context, c *app.RequestContext) {
	var req createUserRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(ctx, c, err)
		return
	}
	if !validRoles[req.Role] {
		writeError(ctx, c, badRequest("无效的角色 %q，可选 HR、Manager、Management", req.Role))
		return
	}
	user := &models.User{
		EmpID:       req.EmpID,
		Username:    req.Username,
		Email:       req.Email,
		Role:        req.Role,
		FullName:    req.FullName,
		Department:  req.Department,
		Designation: req.Designation,
		Status:      "active",
	}
	if err := h.users.CreateUser(ctx, user, req.Password); err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusCreated, user)
}

// GetUser GET /api/v1/users/:username
func (h *UserHandler) GetUser(ctx context.Context, c *app.RequestContext) {
	user, err := h.users.FindUserByUsername(ctx, c.Param("username"))
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, user)
}
