package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"budget/database"
	"budget/middleware"
	"budget/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportHandler 导出处理器
type ExportHandler struct{}

// NewExportHandler 创建导出处理器
func NewExportHandler() *ExportHandler {
	return &ExportHandler{}
}

// 类型的中文展示名
var entryTypeNames = map[string]string{
	models.EntryTypeIncome:   "收入",
	models.EntryTypeExpense:  "支出",
	models.EntryTypeTransfer: "转账",
}

// loadExportEntries 校验权限并加载导出范围内的流水
func loadExportEntries(c *gin.Context) ([]models.Entry, uint, string, string, bool) {
	userID := middleware.GetCurrentUserID(c)

	accountIDStr := c.Query("account_id")
	if accountIDStr == "" {
		BadRequest(c, "account_id参数必填")
		return nil, 0, "", "", false
	}
	accountID64, err := strconv.ParseUint(accountIDStr, 10, 32)
	if err != nil {
		BadRequest(c, "无效的账本ID")
		return nil, 0, "", "", false
	}
	accountID := uint(accountID64)

	startTimeStr := c.Query("start_time")
	endTimeStr := c.Query("end_time")
	if startTimeStr == "" || endTimeStr == "" {
		BadRequest(c, "请提供开始时间和结束时间")
		return nil, 0, "", "", false
	}

	startTime, err := time.ParseInLocation("2006-01-02", startTimeStr, time.Local)
	if err != nil {
		BadRequest(c, "开始时间格式错误，应为: 2006-01-02")
		return nil, 0, "", "", false
	}
	endTime, err := time.ParseInLocation("2006-01-02", endTimeStr, time.Local)
	if err != nil {
		BadRequest(c, "结束时间格式错误，应为: 2006-01-02")
		return nil, 0, "", "", false
	}
	endTime = endTime.Add(24*time.Hour - time.Second)

	if _, err := findAccount(accountID); err != nil {
		NotFound(c, "账本不存在")
		return nil, 0, "", "", false
	}
	member, err := isMember(accountID, userID)
	if err != nil {
		InternalError(c, SafeErrorMessage(err, "查询失败"))
		return nil, 0, "", "", false
	}
	if !member {
		Forbidden(c, "您不是该账本的成员")
		return nil, 0, "", "", false
	}

	// 查询数据
	var entries []models.Entry
	if err := database.DB.Preload("Category").Preload("Creator").
		Where("account_id = ? AND entry_date >= ? AND entry_date <= ?", accountID, startTime, endTime).
		Order("entry_date DESC").
		Find(&entries).Error; err != nil {
		InternalError(c, "查询数据失败: "+err.Error())
		return nil, 0, "", "", false
	}

	return entries, accountID, startTimeStr, endTimeStr, true
}

func entryCategoryName(entry models.Entry) string {
	if entry.Category != nil {
		return entry.Category.Name
	}
	return "未分类"
}

func entryUserName(entry models.Entry) string {
	if entry.Creator != nil {
		return entry.Creator.Name
	}
	return ""
}

// ExportCSV 导出流水为 CSV
// @Summary 导出账本流水
// @Description 根据时间范围导出账本流水为 CSV 文件，需要账本成员权限
// @Tags 导出
// @Accept json
// @Produce text/csv
// @Security BearerAuth
// @Param account_id query int true "账本ID"
// @Param start_time query string true "开始时间 (2024-01-01)"
// @Param end_time query string true "结束时间 (2024-12-31)"
// @Success 200 {file} file "CSV 文件"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 403 {object} Response "非账本成员"
// @Router /api/v1/export/csv [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	entries, accountID, startTimeStr, endTimeStr, ok := loadExportEntries(c)
	if !ok {
		return
	}

	// 生成 CSV
	buf := new(bytes.Buffer)
	// 添加 BOM 以支持 Excel 中文显示
	buf.WriteString("\xEF\xBB\xBF")

	writer := csv.NewWriter(buf)

	// 写入表头
	headers := []string{"ID", "类型", "金额", "币种", "类别", "描述", "记账人", "流水日期", "创建时间"}
	if err := writer.Write(headers); err != nil {
		InternalError(c, "生成 CSV 失败")
		return
	}

	// 写入数据
	for _, entry := range entries {
		row := []string{
			fmt.Sprintf("%d", entry.ID),
			entryTypeNames[entry.Type],
			fmt.Sprintf("%.2f", entry.Amount),
			entry.Currency,
			entryCategoryName(entry),
			entry.Description,
			entryUserName(entry),
			entry.EntryDate.Format("2006-01-02"),
			entry.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := writer.Write(row); err != nil {
			InternalError(c, "生成 CSV 失败")
			return
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		InternalError(c, "生成 CSV 失败")
		return
	}

	// 设置响应头
	filename := fmt.Sprintf("entries_%d_%s_%s.csv", accountID, startTimeStr, endTimeStr)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Header("Content-Length", fmt.Sprintf("%d", buf.Len()))

	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ExportExcel 导出流水为 Excel
// @Summary 导出账本流水为 Excel
// @Description 根据时间范围导出账本流水为 Excel 文件，需要账本成员权限
// @Tags 导出
// @Accept json
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param account_id query int true "账本ID"
// @Param start_time query string true "开始时间 (2024-01-01)"
// @Param end_time query string true "结束时间 (2024-12-31)"
// @Success 200 {file} file "Excel 文件"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 403 {object} Response "非账本成员"
// @Router /api/v1/export/excel [get]
func (h *ExportHandler) ExportExcel(c *gin.Context) {
	entries, accountID, startTimeStr, endTimeStr, ok := loadExportEntries(c)
	if !ok {
		return
	}

	// 创建 Excel 文件
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "流水记录"
	f.SetSheetName("Sheet1", sheetName)

	// 设置表头样式
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})

	// 数据样式
	dataStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})

	// 设置列宽
	f.SetColWidth(sheetName, "A", "A", 10)
	f.SetColWidth(sheetName, "B", "B", 10)
	f.SetColWidth(sheetName, "C", "C", 15)
	f.SetColWidth(sheetName, "D", "D", 10)
	f.SetColWidth(sheetName, "E", "E", 12)
	f.SetColWidth(sheetName, "F", "F", 30)
	f.SetColWidth(sheetName, "G", "G", 12)
	f.SetColWidth(sheetName, "H", "H", 15)
	f.SetColWidth(sheetName, "I", "I", 20)

	// 写入表头
	headers := []string{"ID", "类型", "金额", "币种", "类别", "描述", "记账人", "流水日期", "创建时间"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	// 写入数据
	var totalIncome, totalExpense float64
	for i, entry := range entries {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), entry.ID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), entryTypeNames[entry.Type])
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), entry.Amount)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), entry.Currency)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), entryCategoryName(entry))
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), entry.Description)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), entryUserName(entry))
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), entry.EntryDate.Format("2006-01-02"))
		f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), entry.CreatedAt.Format("2006-01-02 15:04:05"))

		// 设置数据样式
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("I%d", row), dataStyle)

		if entry.Type == models.EntryTypeIncome {
			totalIncome += entry.Amount
		} else {
			totalExpense += entry.Amount
		}
	}

	// 添加汇总行
	summaryRow := len(entries) + 2
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"FFC000"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})

	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryRow), "合计")
	f.MergeCell(sheetName, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("B%d", summaryRow))
	f.SetCellValue(sheetName, fmt.Sprintf("C%d", summaryRow), fmt.Sprintf("收入 %.2f / 支出 %.2f", totalIncome, totalExpense))
	f.MergeCell(sheetName, fmt.Sprintf("C%d", summaryRow), fmt.Sprintf("E%d", summaryRow))
	f.SetCellValue(sheetName, fmt.Sprintf("F%d", summaryRow), fmt.Sprintf("共 %d 条记录", len(entries)))
	f.MergeCell(sheetName, fmt.Sprintf("F%d", summaryRow), fmt.Sprintf("I%d", summaryRow))
	f.SetCellStyle(sheetName, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("I%d", summaryRow), summaryStyle)

	// 设置响应头
	filename := fmt.Sprintf("流水记录_%d_%s_%s.xlsx", accountID, startTimeStr, endTimeStr)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", filename))

	// 写入响应
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "生成 Excel 失败"})
		return
	}
}
