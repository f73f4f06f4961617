package services

import (
	"errors"
	"strings"

	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/pkg/response"
	"gorm.io/gorm"
)

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID uint
	Role   string
}

func (a Actor) IsAdmin() bool      { return a.Role == models.RoleAdmin }
func (a Actor) IsClient() bool     { return a.Role == models.RoleClient }
func (a Actor) IsFreelancer() bool { return a.Role == models.RoleFreelancer }

// PageRequest is embedded by list requests
type PageRequest struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

func (p *PageRequest) normalize(defaultSize int) {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultSize
	}
}

func (p *PageRequest) offset() int {
	return (p.Page - 1) * p.PageSize
}

type PageResponse[T any] struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Items    []T   `json:"items"`
}

func newPage[T any](req PageRequest, total int64, items []T) *PageResponse[T] {
	if items == nil {
		items = []T{}
	}
	return &PageResponse[T]{Total: total, Page: req.Page, PageSize: req.PageSize, Items: items}
}

// notFoundOr maps gorm's not-found to a 404 AppError and passes other errors through
func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return response.NewNotFound(msg)
	}
	return err
}

// isDuplicateKey recognises unique violations across sqlite, mysql and postgres
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "duplicate key")
}

func likePattern(s string) string {
	return "%" + strings.TrimSpace(s) + "%"
}
