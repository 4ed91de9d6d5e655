package controllers

import (
	"encoding/csv"
	"fmt"
	"madrese_go/database"
	"madrese_go/middleware"
	"madrese_go/models"
	"madrese_go/utils"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// ExportController produces downloadable roster files for the admin panel.
type ExportController struct{}

func NewExportController() *ExportController {
	return &ExportController{}
}

var rosterHeader = []string{
	"ID", "First Name", "Last Name", "Father Name", "National Code",
	"Birth Date", "School", "Grade", "Class", "Phone", "Parent Phone",
	"Tuition", "Paid", "Active", "Inactive Reason",
}

// ExportStudents streams the student roster as XLSX (default) or CSV.
// Query: format=xlsx|csv, class_id, show_inactive
func (ec *ExportController) ExportStudents(c *fiber.Ctx) error {
	query := database.DB.Model(&models.Student{}).Preload("Class")
	if c.Query("show_inactive") != "true" {
		query = query.Where("is_active = ?", true)
	}
	if classID, err := strconv.ParseUint(c.Query("class_id", "0"), 10, 32); err == nil && classID > 0 {
		query = query.Where("class_id = ?", uint(classID))
	}

	var studentRows []models.Student
	if err := query.Order("last_name, first_name").Find(&studentRows).Error; err != nil {
		logrus.WithError(err).Error("Failed to load students for export")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to export students"})
	}

	filename := fmt.Sprintf("students_%s", time.Now().Format("2006-01-02"))

	middleware.LogActivity(c, "EXPORT", "students", 0, fiber.Map{
		"format": c.Query("format", "xlsx"),
		"count":  len(studentRows),
	})

	if c.Query("format") == "csv" {
		return ec.writeCSV(c, filename, studentRows)
	}
	return ec.writeXLSX(c, filename, studentRows)
}

func (ec *ExportController) writeXLSX(c *fiber.Ctx, filename string, rows []models.Student) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Students"
	f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	for i, h := range rosterHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	endCol, _ := excelize.CoordinatesToCellName(len(rosterHeader), 1)
	f.SetCellStyle(sheet, "A1", endCol, headerStyle)

	for r, s := range rows {
		for i, v := range studentRowValues(s) {
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			f.SetCellValue(sheet, cell, v)
		}
	}
	f.SetColWidth(sheet, "B", "E", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		logrus.WithError(err).Error("Failed to build XLSX export")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to build export file"})
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, filename))
	return c.Send(buf.Bytes())
}

func (ec *ExportController) writeCSV(c *fiber.Ctx, filename string, rows []models.Student) error {
	c.Set("Content-Type", "text/csv; charset=utf-8")
	c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, filename))

	w := csv.NewWriter(c.Response().BodyWriter())
	// UTF-8 BOM so Excel opens Persian names correctly
	c.Response().BodyWriter().Write([]byte{0xEF, 0xBB, 0xBF})

	if err := w.Write(rosterHeader); err != nil {
		return err
	}
	for _, s := range rows {
		record := make([]string, 0, len(rosterHeader))
		for _, v := range studentRowValues(s) {
			record = append(record, fmt.Sprint(v))
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func studentRowValues(s models.Student) []interface{} {
	className := ""
	if s.Class != nil {
		className = s.Class.Name
	}
	active := "yes"
	if !s.IsActive {
		active = "no"
	}
	return []interface{}{
		s.ID, s.FirstName, s.LastName, s.FatherName, s.NationalCode,
		utils.FormatJalaliDate(s.BirthDate), s.School, s.Grade, className,
		s.Phone, s.ParentPhone, s.TuitionAmount, s.PaidAmount, active,
		s.InactiveReason,
	}
}
