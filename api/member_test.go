package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberHandler_Add(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	// 账本所有者是当前用户 1
	mock.ExpectQuery("SELECT .* FROM `accounts`").
		WithArgs(uint(1)).
		WillReturnRows(accountRows(1, 1, 0))
	// 目标用户存在
	mock.ExpectQuery("SELECT .* FROM `users`").
		WithArgs(uint(2)).
		WillReturnRows(userRows(2, "friend@example.com", "hash"))
	// 还不是成员
	mock.ExpectQuery("SELECT .* FROM `account_memberships`").
		WillReturnRows(emptyRows())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `account_memberships`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(authAs(1))
	h := NewMemberHandler()
	router.POST("/accounts/:id/members", h.Add)

	body := `{"user_id":2,"role":"member"}`
	req := httptest.NewRequest("POST", "/accounts/1/members", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "添加成功", resp["message"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberHandler_Add_AlreadyMember(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	mock.ExpectQuery("SELECT .* FROM `accounts`").
		WithArgs(uint(1)).
		WillReturnRows(accountRows(1, 1, 0))
	mock.ExpectQuery("SELECT .* FROM `users`").
		WithArgs(uint(2)).
		WillReturnRows(userRows(2, "friend@example.com", "hash"))
	// 已经是成员
	mock.ExpectQuery("SELECT .* FROM `account_memberships`").
		WillReturnRows(membershipRows(1, 2, "member"))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(authAs(1))
	h := NewMemberHandler()
	router.POST("/accounts/:id/members", h.Add)

	body := `{"user_id":2}`
	req := httptest.NewRequest("POST", "/accounts/1/members", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 409, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberHandler_Add_NotOwner(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	// 当前用户 3 不是所有者（所有者是 1）
	mock.ExpectQuery("SELECT .* FROM `accounts`").
		WithArgs(uint(1)).
		WillReturnRows(accountRows(1, 1, 0))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(authAs(3))
	h := NewMemberHandler()
	router.POST("/accounts/:id/members", h.Add)

	body := `{"user_id":2}`
	req := httptest.NewRequest("POST", "/accounts/1/members", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 403, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberHandler_Remove_OwnerProtected(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	// 账本所有者就是要移除的成员
	mock.ExpectQuery("SELECT .* FROM `accounts`").
		WithArgs(uint(1)).
		WillReturnRows(accountRows(1, 1, 0))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(authAs(1))
	h := NewMemberHandler()
	router.DELETE("/accounts/:id/members/:user_id", h.Remove)

	req := httptest.NewRequest("DELETE", "/accounts/1/members/1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 403, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["message"], "所有者不可被移除")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberHandler_Remove(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	mock.ExpectQuery("SELECT .* FROM `accounts`").
		WithArgs(uint(1)).
		WillReturnRows(accountRows(1, 1, 0))
	mock.ExpectQuery("SELECT .* FROM `account_memberships`").
		WillReturnRows(membershipRows(1, 2, "member"))

	// 成员关系表为物理删除
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `account_memberships`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(authAs(1))
	h := NewMemberHandler()
	router.DELETE("/accounts/:id/members/:user_id", h.Remove)

	req := httptest.NewRequest("DELETE", "/accounts/1/members/2", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
