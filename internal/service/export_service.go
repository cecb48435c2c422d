package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"
	"tp_portal_backend/internal/model"
	"tp_portal_backend/pkg/logger"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var ErrExportGenerateFail = errors.New("Failed to generate the Excel file")

const resultsSheet = "Results"

var resultHeaders = []string{"Name", "Registration Number", "Department", "School", "Supervisor ID", "Supervisor", "Score", "Band"}

// ExportService renders the coordinator's student results workbook.
type ExportService struct {
	Users UserStore
}

func NewExportService(users UserStore) *ExportService {
	return &ExportService{Users: users}
}

func scoreBand(u *model.User) string {
	if !u.HasScore() {
		return "Not scored"
	}
	switch score := *u.Score; {
	case score >= 90:
		return "Excellent"
	case score >= 70:
		return "Good"
	case score >= 60:
		return "Fair"
	}
	return "Needs improvement"
}

// ExportResults returns the workbook and its suggested file name.
func (s *ExportService) ExportResults(ctx context.Context) (*bytes.Buffer, string, error) {
	students, err := s.Users.ListByRole(ctx, model.Student)
	if err != nil {
		return nil, "", err
	}
	supervisors, err := s.Users.ListByRole(ctx, model.Supervisor)
	if err != nil {
		return nil, "", err
	}

	supervisorNames := make(map[string]string, len(supervisors))
	for _, sup := range supervisors {
		supervisorNames[sup.SupervisorID] = sup.Name
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(resultsSheet)
	if err != nil {
		return nil, "", err
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(resultsSheet, "A", "A", 28)
	f.SetColWidth(resultsSheet, "B", "B", 22)
	f.SetColWidth(resultsSheet, "C", "F", 26)
	f.SetColWidth(resultsSheet, "G", "H", 14)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#003366"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for i, h := range resultHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(resultsSheet, cell, h)
	}
	last, _ := excelize.CoordinatesToCellName(len(resultHeaders), 1)
	f.SetCellStyle(resultsSheet, "A1", last, headerStyle)

	for i := range students {
		st := &students[i]
		row := i + 2
		values := []interface{}{
			st.Name,
			st.StudentRegNumber,
			st.Department,
			st.TeachingPracticeSchool,
			st.SupervisorID,
			supervisorNames[st.SupervisorID],
			"",
			scoreBand(st),
		}
		if st.HasScore() {
			values[6] = *st.Score
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(resultsSheet, cell, &values); err != nil {
			return nil, "", err
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		logger.Log.Error("Failed to write results workbook", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("teaching-practice-results_%s.xlsx", time.Now().Format("20060102"))
	return buf, filename, nil
}
