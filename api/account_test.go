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

func TestAccountHandler_Create(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	// 账本和所有者成员关系在同一事务内创建
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `accounts`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO `account_memberships`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(authAs(1))
	h := NewAccountHandler()
	router.POST("/accounts", h.Create)

	// 请求中携带期初余额也不会生效，余额只能由流水驱动
	body := `{"name":"家庭账本","description":"日常开销","balance":123.45}`
	req := httptest.NewRequest("POST", "/accounts", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "创建成功", resp["message"])
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "家庭账本", data["name"])
	assert.Equal(t, "CNY", data["currency"])
	assert.Equal(t, float64(1), data["owner_id"])
	assert.Equal(t, float64(0), data["balance"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountHandler_Get_NotMember(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	// 账本存在但当前用户不是成员
	mock.ExpectQuery("SELECT .* FROM `accounts`").
		WithArgs(uint(5)).
		WillReturnRows(accountRows(5, 2, 0))
	mock.ExpectQuery("SELECT .* FROM `account_memberships`").
		WillReturnRows(emptyRows())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(authAs(1))
	h := NewAccountHandler()
	router.GET("/accounts/:id", h.Get)

	req := httptest.NewRequest("GET", "/accounts/5", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 403, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountHandler_Get_NotFound(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	mock.ExpectQuery("SELECT .* FROM `accounts`").
		WithArgs(uint(404)).
		WillReturnRows(emptyRows())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(authAs(1))
	h := NewAccountHandler()
	router.GET("/accounts/:id", h.Get)

	req := httptest.NewRequest("GET", "/accounts/404", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 404, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountHandler_Update_NotOwner(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	// 账本所有者是用户 2，当前用户 1 不可修改
	mock.ExpectQuery("SELECT .* FROM `accounts`").
		WithArgs(uint(3)).
		WillReturnRows(accountRows(3, 2, 0))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(authAs(1))
	h := NewAccountHandler()
	router.PUT("/accounts/:id", h.Update)

	body := `{"name":"改名"}`
	req := httptest.NewRequest("PUT", "/accounts/3", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 403, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountHandler_Delete_RevertsTransferCredits(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	mock.ExpectQuery("SELECT .* FROM `accounts`").
		WithArgs(uint(1)).
		WillReturnRows(accountRows(1, 1, -50))

	mock.ExpectBegin()
	// 本账本曾向账本 2 转账 50，删除前要从目标账本冲回
	mock.ExpectQuery("SELECT transfer_to_account_id AS target_id, SUM\\(amount\\) AS total FROM `entries`").
		WillReturnRows(sqlmock.NewRows([]string{"target_id", "total"}).AddRow(2, 50.0))
	mock.ExpectExec("UPDATE `accounts` SET `balance`=balance - ?").
		WithArgs(50.0, sqlmock.AnyArg(), uint(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// 流水软删除
	mock.ExpectExec("UPDATE `entries`").
		WillReturnResult(sqlmock.NewResult(0, 2))
	// 成员关系物理删除
	mock.ExpectExec("DELETE FROM `account_memberships`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// 账本软删除
	mock.ExpectExec("UPDATE `accounts`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(authAs(1))
	h := NewAccountHandler()
	router.DELETE("/accounts/:id", h.Delete)

	req := httptest.NewRequest("DELETE", "/accounts/1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountHandler_Balance(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	mock.ExpectQuery("SELECT .* FROM `accounts`").
		WithArgs(uint(1)).
		WillReturnRows(accountRows(1, 1, 150))
	mock.ExpectQuery("SELECT .* FROM `account_memberships`").
		WillReturnRows(membershipRows(1, 1, "admin"))
	// 流水带符号合计与转入合计
	mock.ExpectQuery("SELECT .* FROM `entries`").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(100.0))
	mock.ExpectQuery("SELECT .* FROM `entries`").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(50.0))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(authAs(1))
	h := NewAccountHandler()
	router.GET("/accounts/:id/balance", h.Balance)

	req := httptest.NewRequest("GET", "/accounts/1/balance", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	// 不限日期时重算余额应与缓存余额一致
	assert.Equal(t, float64(150), data["cached_balance"])
	assert.Equal(t, float64(150), data["computed_balance"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountHandler_Balance_BadDate(t *testing.T) {
	mock, cleanup := setupMockDB(t)
	defer cleanup()
	setupTestConfig(t)

	mock.ExpectQuery("SELECT .* FROM `accounts`").
		WithArgs(uint(1)).
		WillReturnRows(accountRows(1, 1, 0))
	mock.ExpectQuery("SELECT .* FROM `account_memberships`").
		WillReturnRows(membershipRows(1, 1, "admin"))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(authAs(1))
	h := NewAccountHandler()
	router.GET("/accounts/:id/balance", h.Balance)

	req := httptest.NewRequest("GET", "/accounts/1/balance?as_of=01-02-2024", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
