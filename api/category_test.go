package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func categoryRows(id uint, name, catType string, accountID interface{}, isDefault bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "type", "account_id", "is_default", "icon", "color", "created_at", "updated_at", "deleted_at"}).
		AddRow(id, name, catType, accountID, isDefault, "tag", "#64748b", time.Now(), time.Now(), nil)
}

func TestCategoryHandler_GetDefault(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	rows := categoryRows(1, "工资", "income", nil, true)
	rows.AddRow(2, "住房", "expense", nil, true, "home", "#F44336", time.Now(), time.Now(), nil)
	mock.ExpectQuery("SELECT .* FROM `categories`").
		WithArgs(true).
		WillReturnRows(rows)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewCategoryHandler()
	router.GET("/categories/default", h.GetDefault)

	req := httptest.NewRequest("GET", "/categories/default", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	list := resp["data"].([]interface{})
	assert.Len(t, list, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryHandler_Update_DefaultImmutable(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	// 默认类别
	mock.ExpectQuery("SELECT .* FROM `categories`").
		WithArgs(uint(1)).
		WillReturnRows(categoryRows(1, "工资", "income", nil, true))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(authAs(1))
	h := NewCategoryHandler()
	router.PUT("/categories/:id", h.Update)

	body := `{"name":"薪水"}`
	req := httptest.NewRequest("PUT", "/categories/1", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 403, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "默认类别不可修改", resp["message"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryHandler_Delete_DefaultImmutable(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	mock.ExpectQuery("SELECT .* FROM `categories`").
		WithArgs(uint(1)).
		WillReturnRows(categoryRows(1, "转账", "transfer", nil, true))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(authAs(1))
	h := NewCategoryHandler()
	router.DELETE("/categories/:id", h.Delete)

	req := httptest.NewRequest("DELETE", "/categories/1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 403, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "默认类别不可删除", resp["message"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryHandler_Update_AccountScoped_NotMember(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	// 账本自定义类别，当前用户不是账本成员
	mock.ExpectQuery("SELECT .* FROM `categories`").
		WithArgs(uint(9)).
		WillReturnRows(categoryRows(9, "宠物", "expense", uint(5), false))
	mock.ExpectQuery("SELECT .* FROM `account_memberships`").
		WillReturnRows(emptyRows())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(authAs(1))
	h := NewCategoryHandler()
	router.PUT("/categories/:id", h.Update)

	body := `{"name":"猫咪"}`
	req := httptest.NewRequest("PUT", "/categories/9", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 403, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryHandler_Create_InvalidType(t *testing.T) {
	_, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(authAs(1))
	h := NewCategoryHandler()
	router.POST("/categories", h.Create)

	body := `{"name":"宠物","type":"withdraw"}`
	req := httptest.NewRequest("POST", "/categories", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)
}
