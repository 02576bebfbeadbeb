package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hiring-portal/internal/storage/models"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidUser 创建用户时缺少必填项
var ErrInvalidUser = errors.New("invalid user")

// CreateUser 哈希密码后写入用户，用户名、邮箱、工号任一重复返回 ErrDuplicate
func (m *MySQL) CreateUser(ctx context.Context, user *models.User, password string) error {
	if strings.TrimSpace(password) == "" || user.Username == "" || user.Email == "" || user.EmpID == "" {
		return fmt.Errorf("用户名、邮箱、工号和密码不能为空: %w", ErrInvalidUser)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash

	return m.transaction(ctx, func(tx *MySQL) error {
		var count int64
		if err := tx.db.Model(&models.User{}).
			Where("username = ? OR email = ? OR emp_id = ?", user.Username, user.Email, user.EmpID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("检查用户唯一性失败: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("用户名、邮箱或工号已存在: %w", ErrDuplicate)
		}
		if err := tx.db.Create(user).Error; err != nil {
			if isDuplicateKey(err) {
				return fmt.Errorf("用户名、邮箱或工号已存在: %w", ErrDuplicate)
			}
			return fmt.Errorf("创建用户失败: %w", err)
		}
		return nil
	})
}

// FindUserByUsername 按用户名查询
func (m *MySQL) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := m.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		return nil, notFound(err, "查询用户 %s", username)
	}
	return &user, nil
}

// FindUserByNameAndRole 用户名或姓名匹配且角色一致的用户
func (m *MySQL) FindUserByNameAndRole(ctx context.Context, name, role string) (*models.User, error) {
	var user models.User
	err := m.db.WithContext(ctx).
		Where("(username = ? OR full_name = ?) AND role = ?", name, name, role).
		Order("user_id ASC").
		First(&user).Error
	if err != nil {
		return nil, notFound(err, "查询%s %s", role, name)
	}
	return &user, nil
}

// HashPassword bcrypt 默认强度
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("密码哈希失败: %w", err)
	}
	return string(hash), nil
}

// CheckPassword 校验明文与哈希是否匹配
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
